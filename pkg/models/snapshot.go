package models

// SnapshotSchemaVersion is written into every persisted snapshot. Readers
// reject versions they do not know.
const SnapshotSchemaVersion = 1

// HistorySnapshot is the on-disk form of the metrics history.
type HistorySnapshot struct {
	SchemaVersion int            `json:"schema_version"`
	Samples       []MetricSample `json:"samples"`
}

// RecentQuery is one entry of the recent-analysis snapshot.
type RecentQuery struct {
	Query         string   `json:"query"`
	ExecutionTime float64  `json:"execution_time"`
	RowsExamined  int64    `json:"rows_examined"`
	Severity      Severity `json:"severity"`
	MainIssue     string   `json:"main_issue"`
}

// RecentAnalysis is the context snapshot written after each batch
// classification run and read by assistant integrations.
type RecentAnalysis struct {
	SchemaVersion    int           `json:"schema_version"`
	TotalQueries     int           `json:"total_queries"`
	SlowQueries      int           `json:"slow_queries"`
	CriticalIssues   int           `json:"critical_issues"`
	AvgExecutionTime float64       `json:"avg_execution_time"`
	Queries          []RecentQuery `json:"queries"`
	Timestamp        float64       `json:"timestamp"`
}
