package models

// Severity ranks how much a query hurts the server.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists every severity from least to most severe.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Rank returns the position of s in the low < medium < high < critical order.
// Unknown values rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return -1
	}
}

// QueryRecord holds the execution statistics of one observed query.
type QueryRecord struct {
	ID            int     `json:"id" yaml:"id"`
	Query         string  `json:"query" yaml:"query"`
	ExecutionTime float64 `json:"execution_time" yaml:"execution_time"`
	RowsExamined  int64   `json:"rows_examined" yaml:"rows_examined"`
	RowsSent      int64   `json:"rows_sent" yaml:"rows_sent"`
	Explanation   string  `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// AnalysisResult is the classifier's verdict for a single QueryRecord.
type AnalysisResult struct {
	QueryID         int      `json:"query_id"`
	Query           string   `json:"query"`
	ExecutionTime   float64  `json:"execution_time"`
	RowsExamined    int64    `json:"rows_examined"`
	RowsSent        int64    `json:"rows_sent"`
	IsSlow          bool     `json:"is_slow"`
	EfficiencyRatio float64  `json:"efficiency_ratio"`
	Severity        Severity `json:"severity"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
	Explanation     string   `json:"explanation,omitempty"`
}

// HasIssue reports whether the result carries the named category.
func (r AnalysisResult) HasIssue(name string) bool {
	for _, issue := range r.Issues {
		if issue == name {
			return true
		}
	}
	return false
}

// QuerySummary aggregates a batch of analysis results.
type QuerySummary struct {
	TotalQueries        int              `json:"total_queries"`
	SlowQueries         int              `json:"slow_queries"`
	CriticalQueries     int              `json:"critical_queries"`
	HighPriorityQueries int              `json:"high_priority_queries"`
	SlowQueryPercentage float64          `json:"slow_query_percentage"`
	SeverityCounts      map[Severity]int `json:"severity_counts"`
	IssueCounts         map[string]int   `json:"issue_counts"`
	AvgExecutionTime    float64          `json:"avg_execution_time"`
	TotalRowsExamined   int64            `json:"total_rows_examined"`
	TotalRowsSent       int64            `json:"total_rows_sent"`
}
