package observability

import (
	"testing"
	"time"
)

func writeEvents(t *testing.T, log EventLog, events ...Event) {
	t.Helper()
	for _, e := range events {
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}
}

func findAlert(alerts []Alert, condition string) *Alert {
	for i := range alerts {
		if alerts[i].Condition == condition {
			return &alerts[i]
		}
	}
	return nil
}

func anomalyAt(ts time.Time) Event {
	return Event{Time: ts, Level: LevelWarn, Type: EventAnomalyDetected, Message: "metric anomaly detected", Data: map[string]any{"score": -0.1}}
}

func TestAlertEngine_AnomalyBurst(t *testing.T) {
	log := newTestEventLog(t)
	now := time.Now().UTC()
	for i := 0; i < 4; i++ {
		writeEvents(t, log, anomalyAt(now.Add(-time.Duration(i+1)*time.Hour)))
	}

	alerts, err := NewAlertEngine(log, DefaultAlertThresholds()).Evaluate()
	if err != nil {
		t.Fatalf("evaluating alerts: %v", err)
	}
	a := findAlert(alerts, "anomaly_burst")
	if a == nil {
		t.Fatal("expected anomaly burst alert but none found")
	}
	if a.Severity != SeverityHigh {
		t.Errorf("expected high severity, got %s", a.Severity)
	}
}

func TestAlertEngine_NoBurstOutsideWindow(t *testing.T) {
	log := newTestEventLog(t)
	now := time.Now().UTC()
	// Three inside the window is at the limit; two more are too old.
	for i := 0; i < 3; i++ {
		writeEvents(t, log, anomalyAt(now.Add(-time.Duration(i+1)*time.Hour)))
	}
	writeEvents(t, log, anomalyAt(now.Add(-48*time.Hour)), anomalyAt(now.Add(-72*time.Hour)))

	alerts, err := NewAlertEngine(log, DefaultAlertThresholds()).Evaluate()
	if err != nil {
		t.Fatalf("evaluating alerts: %v", err)
	}
	if findAlert(alerts, "anomaly_burst") != nil {
		t.Error("did not expect anomaly burst alert")
	}
}

func TestAlertEngine_LatestAnalysisRules(t *testing.T) {
	log := newTestEventLog(t)
	now := time.Now().UTC()
	writeEvents(t, log,
		Event{Time: now.Add(-2 * time.Hour), Level: LevelWarn, Type: EventQueriesAnalyzed, Data: map[string]any{
			"critical_queries": 2, "slow_query_percentage": 90.0,
		}},
		Event{Time: now.Add(-time.Hour), Level: LevelInfo, Type: EventQueriesAnalyzed, Data: map[string]any{
			"critical_queries": 0, "slow_query_percentage": 60.0,
		}},
	)

	alerts, err := NewAlertEngine(log, DefaultAlertThresholds()).Evaluate()
	if err != nil {
		t.Fatalf("evaluating alerts: %v", err)
	}
	if findAlert(alerts, "critical_queries") != nil {
		t.Error("critical alert raised from an older run")
	}
	slow := findAlert(alerts, "slow_query_share")
	if slow == nil {
		t.Fatal("expected slow query share alert")
	}
	if slow.Severity != SeverityMedium {
		t.Errorf("expected medium severity, got %s", slow.Severity)
	}
}

func TestAlertEngine_CriticalQueries(t *testing.T) {
	log := newTestEventLog(t)
	writeEvents(t, log, Event{Level: LevelWarn, Type: EventQueriesAnalyzed, Data: map[string]any{
		"critical_queries": 1, "slow_query_percentage": 10.0,
	}})

	alerts, err := NewAlertEngine(log, DefaultAlertThresholds()).Evaluate()
	if err != nil {
		t.Fatalf("evaluating alerts: %v", err)
	}
	if findAlert(alerts, "critical_queries") == nil {
		t.Error("expected critical queries alert")
	}
	if findAlert(alerts, "slow_query_share") != nil {
		t.Error("did not expect slow query share alert at 10%")
	}
}

func TestAlertEngine_DetectorPending(t *testing.T) {
	log := newTestEventLog(t)
	now := time.Now().UTC()
	writeEvents(t, log,
		Event{Time: now.Add(-time.Minute), Level: LevelInfo, Type: EventModelNotReady, Data: map[string]any{"missing": 4}},
	)

	engine := NewAlertEngine(log, DefaultAlertThresholds())
	alerts, err := engine.Evaluate()
	if err != nil {
		t.Fatalf("evaluating alerts: %v", err)
	}
	a := findAlert(alerts, "detector_not_ready")
	if a == nil {
		t.Fatal("expected detector pending alert")
	}
	if a.Severity != SeverityLow {
		t.Errorf("expected low severity, got %s", a.Severity)
	}

	writeEvents(t, log, Event{Time: now, Level: LevelInfo, Type: EventModelTrained, Data: map[string]any{"samples": 10}})
	alerts, err = engine.Evaluate()
	if err != nil {
		t.Fatalf("evaluating alerts: %v", err)
	}
	if findAlert(alerts, "detector_not_ready") != nil {
		t.Error("pending alert survived successful training")
	}
}

func TestAlertEngine_OrderedBySeverity(t *testing.T) {
	log := newTestEventLog(t)
	now := time.Now().UTC()
	writeEvents(t, log,
		Event{Time: now.Add(-time.Hour), Level: LevelInfo, Type: EventModelNotReady, Data: map[string]any{"missing": 1}},
		Event{Time: now.Add(-time.Minute), Level: LevelWarn, Type: EventQueriesAnalyzed, Data: map[string]any{
			"critical_queries": 3, "slow_query_percentage": 75.0,
		}},
	)

	alerts, err := NewAlertEngine(log, DefaultAlertThresholds()).Evaluate()
	if err != nil {
		t.Fatalf("evaluating alerts: %v", err)
	}
	if len(alerts) != 3 {
		t.Fatalf("expected 3 alerts, got %d: %+v", len(alerts), alerts)
	}
	for i := 1; i < len(alerts); i++ {
		if severityOrder(alerts[i].Severity) > severityOrder(alerts[i-1].Severity) {
			t.Errorf("alerts not ordered by severity: %+v", alerts)
		}
	}
}

func TestAlertEngine_EmptyLog(t *testing.T) {
	alerts, err := NewAlertEngine(newTestEventLog(t), DefaultAlertThresholds()).Evaluate()
	if err != nil {
		t.Fatalf("evaluating alerts: %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("expected no alerts, got %+v", alerts)
	}
}
