package observability

import (
	"log/slog"
	"time"

	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

// Recorder reports detector and classifier activity to the event log and
// Prometheus. Either sink may be nil. Write failures are logged and never
// returned, so instrumentation cannot fail an analysis.
type Recorder struct {
	log    EventLog
	prom   *PromMetrics
	logger *slog.Logger
	now    func() time.Time
}

// NewRecorder creates a Recorder.
func NewRecorder(log EventLog, prom *PromMetrics, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		log:    log,
		prom:   prom,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *Recorder) write(level, typ, msg string, data map[string]any) {
	if r == nil || r.log == nil {
		return
	}
	err := r.log.Write(Event{Time: r.now(), Level: level, Type: typ, Message: msg, Data: data})
	if err != nil {
		r.logger.Warn("writing event failed", "type", typ, "error", err)
	}
}

// SampleCollected records a collected metric sample.
func (r *Recorder) SampleCollected(source string, sample models.MetricSample, historySize int) {
	if r == nil {
		return
	}
	r.write(LevelInfo, EventMetricsCollected, "metrics collected", map[string]any{
		"source":  source,
		"metrics": len(sample.Values),
		"history": historySize,
	})
	if r.prom != nil {
		r.prom.SamplesCollected.WithLabelValues(source).Inc()
		r.prom.HistorySize.Set(float64(historySize))
	}
}

// ModelTrained records a successful training run.
func (r *Recorder) ModelTrained(samples int) {
	if r == nil {
		return
	}
	r.write(LevelInfo, EventModelTrained, "anomaly model trained", map[string]any{"samples": samples})
	if r.prom != nil {
		r.prom.ModelsTrained.Inc()
	}
}

// ModelNotReady records a training attempt or check without enough data.
func (r *Recorder) ModelNotReady(available, required int) {
	if r == nil {
		return
	}
	missing := required - available
	if missing < 0 {
		missing = 0
	}
	r.write(LevelInfo, EventModelNotReady, "not enough data for training", map[string]any{
		"available": available,
		"required":  required,
		"missing":   missing,
	})
}

// AnomalyChecked records a scored sample.
func (r *Recorder) AnomalyChecked(isAnomaly bool, score float64) {
	if r == nil {
		return
	}
	data := map[string]any{"score": score, "is_anomaly": isAnomaly}
	verdict := "normal"
	if isAnomaly {
		verdict = "anomaly"
		r.write(LevelWarn, EventAnomalyDetected, "metric anomaly detected", data)
	} else {
		r.write(LevelInfo, EventAnomalyChecked, "metrics normal", data)
	}
	if r.prom != nil {
		r.prom.AnomalyChecks.WithLabelValues(verdict).Inc()
		r.prom.LastAnomalyScore.Set(score)
	}
}

// QueriesAnalyzed records a classification run.
func (r *Recorder) QueriesAnalyzed(summary models.QuerySummary) {
	if r == nil {
		return
	}
	severities := make(map[string]int, len(summary.SeverityCounts))
	for k, v := range summary.SeverityCounts {
		severities[string(k)] = v
	}
	level := LevelInfo
	if summary.CriticalQueries > 0 {
		level = LevelWarn
	}
	r.write(level, EventQueriesAnalyzed, "queries analyzed", map[string]any{
		"total_queries":         summary.TotalQueries,
		"slow_queries":          summary.SlowQueries,
		"critical_queries":      summary.CriticalQueries,
		"slow_query_percentage": summary.SlowQueryPercentage,
		"severity_counts":       severities,
		"issue_counts":          summary.IssueCounts,
	})
	if r.prom != nil {
		for sev, n := range severities {
			r.prom.QueriesClassified.WithLabelValues(sev).Add(float64(n))
		}
		for issue, n := range summary.IssueCounts {
			r.prom.QueryIssues.WithLabelValues(issue).Add(float64(n))
		}
	}
}
