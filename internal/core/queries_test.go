package core

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/divyansh-cyber/AceE6data/internal/logging"
	"github.com/divyansh-cyber/AceE6data/internal/observability"
	"github.com/divyansh-cyber/AceE6data/internal/queryanalysis"
	"github.com/divyansh-cyber/AceE6data/internal/storage"
	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

func newTestQueryAnalyzer(t *testing.T) (QueryAnalyzer, *storage.AnalysisStore, observability.EventLog) {
	t.Helper()
	dir := t.TempDir()
	classifier, err := queryanalysis.NewClassifier(queryanalysis.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	events, err := observability.NewJSONLEventLog(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		t.Fatalf("NewJSONLEventLog: %v", err)
	}
	t.Cleanup(func() { events.Close() })

	store := storage.NewAnalysisStore(filepath.Join(dir, "recent_analysis.json"))
	qa := NewQueryAnalyzer(classifier, store, observability.NewRecorder(events, nil, logging.Discard()), logging.Discard())
	qa.(*queryAnalyzer).now = func() time.Time { return time.Unix(1700000000, 0) }
	return qa, store, events
}

func TestQueryAnalyzer_AnalyzeWritesSnapshot(t *testing.T) {
	qa, store, events := newTestQueryAnalyzer(t)

	if _, err := qa.Recent(); !errors.Is(err, storage.ErrNoAnalysis) {
		t.Fatalf("Recent before any run: err = %v, want ErrNoAnalysis", err)
	}

	report, err := qa.Analyze(queryanalysis.DemoQueries())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.Summary.TotalQueries != 10 || len(report.Results) != 10 {
		t.Errorf("summary = %+v", report.Summary)
	}

	saved, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if saved.TotalQueries != 10 || len(saved.Queries) != 10 || saved.Timestamp != 1700000000 {
		t.Errorf("snapshot = %+v", saved)
	}

	recent, err := qa.Recent()
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if recent.SlowQueries != report.Summary.SlowQueries {
		t.Errorf("Recent().SlowQueries = %d, want %d", recent.SlowQueries, report.Summary.SlowQueries)
	}

	got, err := events.Read(observability.EventFilter{Type: observability.EventQueriesAnalyzed})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("%d queries.analyzed events, want 1", len(got))
	}
}

func TestQueryAnalyzer_EmptyBatch(t *testing.T) {
	qa, store, _ := newTestQueryAnalyzer(t)

	report, err := qa.Analyze(nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.Summary.TotalQueries != 0 {
		t.Errorf("TotalQueries = %d", report.Summary.TotalQueries)
	}
	saved, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if saved.Queries == nil || len(saved.Queries) != 0 {
		t.Errorf("Queries = %#v, want empty array", saved.Queries)
	}
}

func TestQueryAnalyzer_ClassifyHasNoSideEffects(t *testing.T) {
	qa, store, events := newTestQueryAnalyzer(t)

	res := qa.Classify(models.QueryRecord{ID: 1, Query: "SELECT * FROM orders", ExecutionTime: 3, RowsExamined: 10, RowsSent: 10})
	if !res.IsSlow {
		t.Error("expected slow query")
	}
	if _, err := store.Load(); !errors.Is(err, storage.ErrNoAnalysis) {
		t.Errorf("Classify wrote a snapshot: %v", err)
	}
	all, _ := events.Read(observability.EventFilter{})
	if len(all) != 0 {
		t.Errorf("Classify wrote %d events", len(all))
	}
}

func TestQueryAnalyzer_NilStore(t *testing.T) {
	classifier, err := queryanalysis.NewClassifier(queryanalysis.DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	qa := NewQueryAnalyzer(classifier, nil, nil, nil)
	if _, err := qa.Analyze(queryanalysis.DemoQueries()); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if _, err := qa.Recent(); !errors.Is(err, storage.ErrNoAnalysis) {
		t.Errorf("err = %v, want ErrNoAnalysis", err)
	}
}
