package observability

import (
	"fmt"
	"time"
)

// Metrics holds activity statistics derived from the event log.
type Metrics struct {
	SamplesCollected   int            `json:"samples_collected"`
	SamplesBySource    map[string]int `json:"samples_by_source"`
	ModelsTrained      int            `json:"models_trained"`
	NotReadyChecks     int            `json:"not_ready_checks"`
	AnomalyChecks      int            `json:"anomaly_checks"`
	AnomaliesDetected  int            `json:"anomalies_detected"`
	AnomalyRate        float64        `json:"anomaly_rate"`
	AnalysisRuns       int            `json:"analysis_runs"`
	QueriesAnalyzed    int            `json:"queries_analyzed"`
	SlowQueries        int            `json:"slow_queries"`
	QueriesBySeverity  map[string]int `json:"queries_by_severity"`
	IssuesByCategory   map[string]int `json:"issues_by_category"`
	LastTrainedSamples int            `json:"last_trained_samples"`
	EventCount         int            `json:"event_count"`
	OldestEvent        *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent        *time.Time     `json:"newest_event,omitempty"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a new MetricsCalculator that reads from the given EventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate reads all events since the given time and aggregates them.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{
		SamplesBySource:   make(map[string]int),
		QueriesBySeverity: make(map[string]int),
		IssuesByCategory:  make(map[string]int),
		EventCount:        len(events),
	}

	for i, event := range events {
		if i == 0 {
			t := event.Time
			m.OldestEvent = &t
		}
		t := event.Time
		m.NewestEvent = &t

		switch event.Type {
		case EventMetricsCollected:
			m.SamplesCollected++
			if source, ok := event.Data["source"].(string); ok {
				m.SamplesBySource[source]++
			}
		case EventModelTrained:
			m.ModelsTrained++
			if n, ok := dataFloat(event.Data, "samples"); ok {
				m.LastTrainedSamples = int(n)
			}
		case EventModelNotReady:
			m.NotReadyChecks++
		case EventAnomalyChecked:
			m.AnomalyChecks++
		case EventAnomalyDetected:
			m.AnomalyChecks++
			m.AnomaliesDetected++
		case EventQueriesAnalyzed:
			m.AnalysisRuns++
			if n, ok := dataFloat(event.Data, "total_queries"); ok {
				m.QueriesAnalyzed += int(n)
			}
			if n, ok := dataFloat(event.Data, "slow_queries"); ok {
				m.SlowQueries += int(n)
			}
			for k, v := range dataCounts(event.Data, "severity_counts") {
				m.QueriesBySeverity[k] += v
			}
			for k, v := range dataCounts(event.Data, "issue_counts") {
				m.IssuesByCategory[k] += v
			}
		}
	}

	if m.AnomalyChecks > 0 {
		m.AnomalyRate = float64(m.AnomaliesDetected) / float64(m.AnomalyChecks)
	}
	return m, nil
}
