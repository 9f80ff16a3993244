package queryanalysis

import (
	"time"

	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

// NoIssue is the main_issue value of a query without detected categories.
const NoIssue = "none"

// Summarize reduces a batch of results. An empty batch yields zero counts
// with every severity present.
func Summarize(results []models.AnalysisResult) models.QuerySummary {
	s := models.QuerySummary{
		SeverityCounts: make(map[models.Severity]int, len(models.Severities)),
		IssueCounts:    map[string]int{},
	}
	for _, sev := range models.Severities {
		s.SeverityCounts[sev] = 0
	}

	total := 0.0
	for _, r := range results {
		s.TotalQueries++
		if r.IsSlow {
			s.SlowQueries++
		}
		switch r.Severity {
		case models.SeverityCritical:
			s.CriticalQueries++
			s.HighPriorityQueries++
		case models.SeverityHigh:
			s.HighPriorityQueries++
		}
		s.SeverityCounts[r.Severity]++
		for _, issue := range r.Issues {
			s.IssueCounts[issue]++
		}
		total += r.ExecutionTime
		s.TotalRowsExamined += r.RowsExamined
		s.TotalRowsSent += r.RowsSent
	}

	if s.TotalQueries > 0 {
		n := float64(s.TotalQueries)
		s.SlowQueryPercentage = float64(s.SlowQueries) / n * 100
		s.AvgExecutionTime = total / n
	}
	return s
}

// GenerateSummary reduces results produced by c. It is Summarize exposed on
// the classifier for callers holding only a Classifier.
func (c *Classifier) GenerateSummary(results []models.AnalysisResult) models.QuerySummary {
	return Summarize(results)
}

// MainIssue returns the first detected category, or NoIssue.
func MainIssue(r models.AnalysisResult) string {
	if len(r.Issues) == 0 {
		return NoIssue
	}
	return r.Issues[0]
}

// RecentAnalysis builds the context snapshot for a classification run.
func RecentAnalysis(results []models.AnalysisResult, now time.Time) models.RecentAnalysis {
	summary := Summarize(results)
	ra := models.RecentAnalysis{
		SchemaVersion:    models.SnapshotSchemaVersion,
		TotalQueries:     summary.TotalQueries,
		SlowQueries:      summary.SlowQueries,
		CriticalIssues:   summary.CriticalQueries,
		AvgExecutionTime: summary.AvgExecutionTime,
		Queries:          make([]models.RecentQuery, 0, len(results)),
		Timestamp:        float64(now.UnixNano()) / 1e9,
	}
	for _, r := range results {
		ra.Queries = append(ra.Queries, models.RecentQuery{
			Query:         r.Query,
			ExecutionTime: r.ExecutionTime,
			RowsExamined:  r.RowsExamined,
			Severity:      r.Severity,
			MainIssue:     MainIssue(r),
		})
	}
	return ra
}
