// Package observability provides event logging, metrics calculation,
// alerting and Prometheus instrumentation for p3. Detector and classifier
// activity is persisted as JSON Lines (JSONL) events; statistics and alerts
// are derived on demand from the event log.
package observability
