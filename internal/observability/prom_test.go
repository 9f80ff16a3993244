package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

func TestStatusBucket(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{201, "2xx"},
		{301, "3xx"},
		{404, "4xx"},
		{503, "5xx"},
		{0, "unknown"},
		{700, "unknown"},
	}
	for _, tt := range tests {
		if got := statusBucket(tt.code); got != tt.want {
			t.Errorf("statusBucket(%d) = %s, want %s", tt.code, got, tt.want)
		}
	}
}

func TestPromMetrics_RecorderUpdatesCollectors(t *testing.T) {
	prom := NewPromMetrics()
	rec := NewRecorder(nil, prom, nil)

	rec.SampleCollected("demo", models.NewMetricSample(time.Now(), nil), 7)
	rec.ModelTrained(10)
	rec.AnomalyChecked(true, -0.2)
	rec.QueriesAnalyzed(models.QuerySummary{
		SeverityCounts: map[models.Severity]int{models.SeverityHigh: 2},
		IssueCounts:    map[string]int{"full_table_scan": 1},
	})

	if v := testutil.ToFloat64(prom.SamplesCollected.WithLabelValues("demo")); v != 1 {
		t.Errorf("samples_collected_total{demo} = %v, want 1", v)
	}
	if v := testutil.ToFloat64(prom.HistorySize); v != 7 {
		t.Errorf("history_samples = %v, want 7", v)
	}
	if v := testutil.ToFloat64(prom.ModelsTrained); v != 1 {
		t.Errorf("models_trained_total = %v, want 1", v)
	}
	if v := testutil.ToFloat64(prom.AnomalyChecks.WithLabelValues("anomaly")); v != 1 {
		t.Errorf("anomaly_checks_total{anomaly} = %v, want 1", v)
	}
	if v := testutil.ToFloat64(prom.LastAnomalyScore); v != -0.2 {
		t.Errorf("last_anomaly_score = %v, want -0.2", v)
	}
	if v := testutil.ToFloat64(prom.QueriesClassified.WithLabelValues("high")); v != 2 {
		t.Errorf("queries_classified_total{high} = %v, want 2", v)
	}
}

func TestPromMetrics_Handler(t *testing.T) {
	prom := NewPromMetrics()
	prom.ObserveHTTP("GET", "/health", 200, 5*time.Millisecond)

	w := httptest.NewRecorder()
	prom.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(w.Body)
	if !strings.Contains(string(body), `p3_http_requests_total{method="GET",route="/health",status="2xx"} 1`) {
		t.Errorf("metrics output missing request counter:\n%s", body)
	}
}

func TestRecorder_NilSafe(t *testing.T) {
	var rec *Recorder
	rec.ModelTrained(1)
	rec.AnomalyChecked(true, -1)
	rec.QueriesAnalyzed(models.QuerySummary{})
	rec.ModelNotReady(1, 2)
	rec.SampleCollected("x", models.MetricSample{}, 0)
}
