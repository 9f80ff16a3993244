package observability

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/divyansh-cyber/AceE6data/internal/logging"
)

// =============================================================================
// Property 22: Anomaly Counts Match Recorded Verdicts
// =============================================================================

// Feature: observability, Property 22: Anomaly Counts Match Recorded Verdicts
// *For any* sequence of recorded verdicts, the MetricsCalculator SHALL report
// AnomalyChecks == N and AnomaliesDetected == the number of anomalous ones.
func TestProperty22_AnomalyCountsMatchVerdicts(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		dir := t.TempDir()
		el, err := NewJSONLEventLog(filepath.Join(dir, fmt.Sprintf("events-%d.jsonl", rapid.Int().Draw(rt, "file"))))
		if err != nil {
			rt.Fatalf("creating event log: %v", err)
		}
		defer el.Close()
		rec := NewRecorder(el, nil, logging.Discard())

		n := rapid.IntRange(1, 30).Draw(rt, "n")
		anomalies := 0
		for i := 0; i < n; i++ {
			isAnomaly := rapid.Bool().Draw(rt, fmt.Sprintf("anomaly_%d", i))
			if isAnomaly {
				anomalies++
			}
			rec.AnomalyChecked(isAnomaly, rapid.Float64Range(-0.5, 0.5).Draw(rt, fmt.Sprintf("score_%d", i)))
		}

		m, err := NewMetricsCalculator(el).Calculate(time.Now().Add(-time.Hour))
		if err != nil {
			rt.Fatalf("calculating metrics: %v", err)
		}
		if m.AnomalyChecks != n || m.AnomaliesDetected != anomalies {
			rt.Errorf("checks %d detected %d, want %d and %d", m.AnomalyChecks, m.AnomaliesDetected, n, anomalies)
		}
		if m.AnomalyRate < 0 || m.AnomalyRate > 1 {
			rt.Errorf("AnomalyRate = %v", m.AnomalyRate)
		}
	})
}

// =============================================================================
// Property 23: Metrics Event Count Is Total
// =============================================================================

// Feature: observability, Property 23: Metrics Event Count Is Total
// *For any* mix of event types, EventCount equals the number written.
func TestProperty23_MetricsEventCountIsTotal(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		dir := t.TempDir()
		el, err := NewJSONLEventLog(filepath.Join(dir, fmt.Sprintf("events-%d.jsonl", rapid.Int().Draw(rt, "file"))))
		if err != nil {
			rt.Fatalf("creating event log: %v", err)
		}
		defer el.Close()

		types := []string{EventMetricsCollected, EventModelTrained, EventModelNotReady, EventAnomalyChecked, EventAnomalyDetected, EventQueriesAnalyzed, "custom.event"}
		n := rapid.IntRange(0, 40).Draw(rt, "n")
		base := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
		for i := 0; i < n; i++ {
			typ := rapid.SampledFrom(types).Draw(rt, fmt.Sprintf("type_%d", i))
			if err := el.Write(Event{Time: base.Add(time.Duration(i) * time.Minute), Level: LevelInfo, Type: typ}); err != nil {
				rt.Fatalf("writing event: %v", err)
			}
		}

		m, err := NewMetricsCalculator(el).Calculate(base.Add(-time.Hour))
		if err != nil {
			rt.Fatalf("calculating metrics: %v", err)
		}
		if m.EventCount != n {
			rt.Errorf("EventCount = %d, want %d", m.EventCount, n)
		}
	})
}
