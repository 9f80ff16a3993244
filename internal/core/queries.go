package core

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/divyansh-cyber/AceE6data/internal/observability"
	"github.com/divyansh-cyber/AceE6data/internal/queryanalysis"
	"github.com/divyansh-cyber/AceE6data/internal/storage"
	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

// QueryReport is the outcome of one batch classification run.
type QueryReport struct {
	Results  []models.AnalysisResult `json:"results"`
	Summary  models.QuerySummary     `json:"summary"`
	Snapshot models.RecentAnalysis   `json:"snapshot"`
}

// QueryAnalyzer classifies query records and keeps the recent-analysis
// snapshot current.
type QueryAnalyzer interface {
	Classify(rec models.QueryRecord) models.AnalysisResult
	Summarize(results []models.AnalysisResult) models.QuerySummary
	// Analyze classifies a batch, records it and rewrites the snapshot.
	Analyze(records []models.QueryRecord) (*QueryReport, error)
	Recent() (*models.RecentAnalysis, error)
}

// queryAnalyzer implements QueryAnalyzer.
type queryAnalyzer struct {
	classifier *queryanalysis.Classifier
	store      *storage.AnalysisStore
	recorder   *observability.Recorder
	logger     *slog.Logger
	now        func() time.Time
}

// NewQueryAnalyzer creates a QueryAnalyzer. store and recorder may be nil,
// in which case runs are neither persisted nor recorded.
func NewQueryAnalyzer(classifier *queryanalysis.Classifier, store *storage.AnalysisStore, recorder *observability.Recorder, logger *slog.Logger) QueryAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &queryAnalyzer{
		classifier: classifier,
		store:      store,
		recorder:   recorder,
		logger:     logger,
		now:        time.Now,
	}
}

func (q *queryAnalyzer) Classify(rec models.QueryRecord) models.AnalysisResult {
	return q.classifier.Classify(rec)
}

func (q *queryAnalyzer) Summarize(results []models.AnalysisResult) models.QuerySummary {
	return q.classifier.GenerateSummary(results)
}

func (q *queryAnalyzer) Analyze(records []models.QueryRecord) (*QueryReport, error) {
	results := q.classifier.ClassifyAll(records)
	report := &QueryReport{
		Results:  results,
		Summary:  q.classifier.GenerateSummary(results),
		Snapshot: queryanalysis.RecentAnalysis(results, q.now()),
	}

	if q.store != nil {
		if err := q.store.Save(report.Snapshot); err != nil {
			return nil, fmt.Errorf("saving recent analysis: %w", err)
		}
	}
	q.recorder.QueriesAnalyzed(report.Summary)
	q.logger.Debug("queries analyzed", "total", report.Summary.TotalQueries, "slow", report.Summary.SlowQueries)
	return report, nil
}

func (q *queryAnalyzer) Recent() (*models.RecentAnalysis, error) {
	if q.store == nil {
		return nil, storage.ErrNoAnalysis
	}
	return q.store.Load()
}
