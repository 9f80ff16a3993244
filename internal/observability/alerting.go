package observability

import (
	"fmt"
	"sort"
	"time"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertThresholds configures when alerts should fire.
type AlertThresholds struct {
	// AnomalyWindowHours is the look-back window for the anomaly burst rule.
	AnomalyWindowHours int `yaml:"anomaly_window_hours" json:"anomaly_window_hours"`
	// MaxAnomalies is how many anomalies the window tolerates before alerting.
	MaxAnomalies int `yaml:"max_anomalies" json:"max_anomalies"`
	// SlowQueryPercentage is the slow share of the latest analysis run above
	// which an alert fires.
	SlowQueryPercentage float64 `yaml:"slow_query_percentage" json:"slow_query_percentage"`
}

// DefaultAlertThresholds returns the default alert thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		AnomalyWindowHours:  24,
		MaxAnomalies:        3,
		SlowQueryPercentage: 50,
	}
}

// AlertEngine evaluates alert conditions against the event log.
type AlertEngine interface {
	Evaluate() ([]Alert, error)
}

type alertEngine struct {
	eventLog   EventLog
	thresholds AlertThresholds
	now        func() time.Time
}

// NewAlertEngine creates a new AlertEngine with the given EventLog and thresholds.
func NewAlertEngine(eventLog EventLog, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{
		eventLog:   eventLog,
		thresholds: thresholds,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate checks every rule and returns triggered alerts, most severe first.
func (ae *alertEngine) Evaluate() ([]Alert, error) {
	now := ae.now()
	var alerts []Alert

	burst, err := ae.checkAnomalyBurst(now)
	if err != nil {
		return nil, fmt.Errorf("checking anomaly burst: %w", err)
	}
	alerts = append(alerts, burst...)

	queryAlerts, err := ae.checkLatestAnalysis(now)
	if err != nil {
		return nil, fmt.Errorf("checking latest analysis: %w", err)
	}
	alerts = append(alerts, queryAlerts...)

	pending, err := ae.checkDetectorPending(now)
	if err != nil {
		return nil, fmt.Errorf("checking detector state: %w", err)
	}
	alerts = append(alerts, pending...)

	sort.SliceStable(alerts, func(i, j int) bool {
		return severityOrder(alerts[i].Severity) > severityOrder(alerts[j].Severity)
	})
	return alerts, nil
}

// checkAnomalyBurst fires when more than MaxAnomalies anomalies were
// detected within the window.
func (ae *alertEngine) checkAnomalyBurst(now time.Time) ([]Alert, error) {
	since := now.Add(-time.Duration(ae.thresholds.AnomalyWindowHours) * time.Hour)
	events, err := ae.eventLog.Read(EventFilter{Type: EventAnomalyDetected, Since: &since})
	if err != nil {
		return nil, err
	}
	if len(events) <= ae.thresholds.MaxAnomalies {
		return nil, nil
	}
	return []Alert{{
		ID:          "anomaly-burst",
		Condition:   "anomaly_burst",
		Severity:    SeverityHigh,
		Message:     fmt.Sprintf("%d metric anomalies detected in the last %d hours (limit %d)", len(events), ae.thresholds.AnomalyWindowHours, ae.thresholds.MaxAnomalies),
		TriggeredAt: now,
	}}, nil
}

// checkLatestAnalysis inspects the most recent query analysis run.
func (ae *alertEngine) checkLatestAnalysis(now time.Time) ([]Alert, error) {
	events, err := ae.eventLog.Read(EventFilter{Type: EventQueriesAnalyzed, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	latest := events[0]

	var alerts []Alert
	if critical, ok := dataFloat(latest.Data, "critical_queries"); ok && critical > 0 {
		alerts = append(alerts, Alert{
			ID:          "critical-queries",
			Condition:   "critical_queries",
			Severity:    SeverityHigh,
			Message:     fmt.Sprintf("latest analysis found %d critical queries", int(critical)),
			TriggeredAt: now,
		})
	}
	if pct, ok := dataFloat(latest.Data, "slow_query_percentage"); ok && pct > ae.thresholds.SlowQueryPercentage {
		alerts = append(alerts, Alert{
			ID:          "slow-query-share",
			Condition:   "slow_query_share",
			Severity:    SeverityMedium,
			Message:     fmt.Sprintf("%.1f%% of analysed queries are slow (limit %.1f%%)", pct, ae.thresholds.SlowQueryPercentage),
			TriggeredAt: now,
		})
	}
	return alerts, nil
}

// checkDetectorPending fires when the latest detector event reports that
// the model still lacks training data.
func (ae *alertEngine) checkDetectorPending(now time.Time) ([]Alert, error) {
	events, err := ae.eventLog.Read(EventFilter{})
	if err != nil {
		return nil, err
	}
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		switch e.Type {
		case EventModelTrained, EventAnomalyChecked, EventAnomalyDetected:
			return nil, nil
		case EventModelNotReady:
			missing, _ := dataFloat(e.Data, "missing")
			return []Alert{{
				ID:          "detector-pending",
				Condition:   "detector_not_ready",
				Severity:    SeverityLow,
				Message:     fmt.Sprintf("anomaly detector needs %d more samples before it can score", int(missing)),
				TriggeredAt: now,
			}}, nil
		}
	}
	return nil, nil
}

func severityOrder(s AlertSeverity) int {
	switch s {
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}
