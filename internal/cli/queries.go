package cli

import (
	"fmt"
	"io"
	"math/rand"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/divyansh-cyber/AceE6data/internal/queryanalysis"
	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

var (
	queriesCount int
	queriesSeed  int64
	queriesFile  string

	classifyQuery    string
	classifyTime     float64
	classifyExamined int64
	classifySent     int64
)

// maxQueryWidth truncates SQL text in listings.
const maxQueryWidth = 80

var queriesCmd = &cobra.Command{
	Use:   "queries",
	Short: "Classify slow queries and report on them",
}

var queriesAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Classify a batch of queries and print per-query findings",
	Long: `Classify a batch of query records and print each finding followed by
the batch summary. Records come from --file (YAML or JSON, a list or a
mapping with a "queries" list) or from the built-in demo workload.

The run is recorded as the recent-analysis snapshot.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queries == nil {
			return fmt.Errorf("query analyzer not initialized")
		}
		records, err := loadQueryRecords(cmd)
		if err != nil {
			return err
		}

		report, err := Queries.Analyze(records)
		if err != nil {
			return fmt.Errorf("analyzing queries: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, strings.Repeat("=", 80))
		fmt.Fprintln(out, "DETAILED QUERY ANALYSIS & RECOMMENDATIONS")
		fmt.Fprintln(out, strings.Repeat("=", 80))
		fmt.Fprintf(out, "Analyzing %d queries...\n\n", len(records))
		for _, r := range report.Results {
			printAnalysisResult(out, r)
		}
		printQuerySummary(out, report.Summary)
		return nil
	},
}

var queriesReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a full report grouped by severity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queries == nil {
			return fmt.Errorf("query analyzer not initialized")
		}
		records, err := loadQueryRecords(cmd)
		if err != nil {
			return err
		}

		report, err := Queries.Analyze(records)
		if err != nil {
			return fmt.Errorf("analyzing queries: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, strings.Repeat("=", 80))
		fmt.Fprintln(out, "COMPREHENSIVE QUERY PERFORMANCE REPORT")
		fmt.Fprintln(out, strings.Repeat("=", 80))

		printSeveritySection(out, "CRITICAL ISSUES (Immediate Action Required):", report.Results, models.SeverityCritical)
		printSeveritySection(out, "HIGH PRIORITY ISSUES:", report.Results, models.SeverityHigh)

		fmt.Fprintln(out, "\nPERFORMANCE METRICS:")
		printQuerySummary(out, report.Summary)

		fmt.Fprintln(out, "\nTOP RECOMMENDATIONS:")
		recs := topRecommendations(report.Results, 5)
		if len(recs) == 0 {
			fmt.Fprintln(out, "  No recommendations.")
		}
		for i, r := range recs {
			fmt.Fprintf(out, "%d. %s\n", i+1, r)
		}
		fmt.Fprintln(out, strings.Repeat("=", 80))
		return nil
	},
}

var queriesClassifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify a single query",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queries == nil {
			return fmt.Errorf("query analyzer not initialized")
		}
		if strings.TrimSpace(classifyQuery) == "" {
			return fmt.Errorf("--query is required")
		}

		res := Queries.Classify(models.QueryRecord{
			ID:            1,
			Query:         classifyQuery,
			ExecutionTime: classifyTime,
			RowsExamined:  classifyExamined,
			RowsSent:      classifySent,
		})
		printAnalysisResult(cmd.OutOrStdout(), res)
		return nil
	},
}

// loadQueryRecords returns records from --file, or the demo workload
// narrowed by --count and --seed.
func loadQueryRecords(cmd *cobra.Command) ([]models.QueryRecord, error) {
	if queriesFile != "" {
		records, err := queryanalysis.LoadRecords(queriesFile)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", queriesFile, err)
		}
		return records, nil
	}
	if queriesCount <= 0 {
		return queryanalysis.DemoQueries(), nil
	}
	var r *rand.Rand
	if cmd.Flags().Changed("seed") {
		r = rand.New(rand.NewSource(queriesSeed))
	}
	return queryanalysis.SampleDemoQueries(queriesCount, r), nil
}

func printAnalysisResult(w io.Writer, r models.AnalysisResult) {
	fmt.Fprintf(w, "QUERY #%d (%s)\n", r.QueryID, strings.ToUpper(string(r.Severity)))
	fmt.Fprintf(w, "   Execution Time: %.2fs\n", r.ExecutionTime)
	fmt.Fprintf(w, "   Rows Examined: %s\n", groupDigits(r.RowsExamined))
	fmt.Fprintf(w, "   Rows Sent: %s\n", groupDigits(r.RowsSent))
	fmt.Fprintf(w, "   Efficiency: %.2f%%\n", r.EfficiencyRatio*100)
	fmt.Fprintf(w, "   Query: %s\n", truncate(r.Query, maxQueryWidth))
	if len(r.Issues) > 0 {
		fmt.Fprintf(w, "   Issues: %s\n", strings.Join(r.Issues, ", "))
	}
	if len(r.Recommendations) > 0 {
		fmt.Fprintln(w, "   Recommendations:")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(w, "     - %s\n", rec)
		}
	}
	fmt.Fprintln(w, strings.Repeat("-", 80))
}

func printQuerySummary(w io.Writer, s models.QuerySummary) {
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintln(w, "QUERY PERFORMANCE SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Total Queries Analyzed: %d\n", s.TotalQueries)
	fmt.Fprintf(w, "Slow Queries: %d (%.1f%%)\n", s.SlowQueries, s.SlowQueryPercentage)
	fmt.Fprintf(w, "Critical Issues: %d\n", s.CriticalQueries)
	fmt.Fprintf(w, "High Priority Issues: %d\n", s.HighPriorityQueries)
	fmt.Fprintf(w, "Average Execution Time: %.2fs\n", s.AvgExecutionTime)
	fmt.Fprintf(w, "Total Rows Examined: %s\n", groupDigits(s.TotalRowsExamined))
	fmt.Fprintf(w, "Total Rows Sent: %s\n", groupDigits(s.TotalRowsSent))

	if len(s.IssueCounts) > 0 {
		fmt.Fprintln(w, "\nIssue Breakdown:")
		names := make([]string, 0, len(s.IssueCounts))
		for name := range s.IssueCounts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  - %s: %d\n", issueTitle(name), s.IssueCounts[name])
		}
	}
	fmt.Fprintln(w, strings.Repeat("=", 60))
}

func printSeveritySection(w io.Writer, title string, results []models.AnalysisResult, sev models.Severity) {
	fmt.Fprintf(w, "\n%s\n", title)
	found := false
	for _, r := range results {
		if r.Severity != sev {
			continue
		}
		found = true
		fmt.Fprintf(w, "\n  Query #%d: %.2fs\n", r.QueryID, r.ExecutionTime)
		fmt.Fprintf(w, "  %s\n", r.Query)
		if r.Explanation != "" {
			fmt.Fprintf(w, "  Issue: %s\n", r.Explanation)
		} else if len(r.Issues) > 0 {
			fmt.Fprintf(w, "  Issue: %s\n", strings.Join(r.Issues, ", "))
		}
	}
	if !found {
		fmt.Fprintf(w, "  No %s issues found\n", sev)
	}
}

// topRecommendations ranks recommendations by how many results carry them,
// breaking ties by first appearance.
func topRecommendations(results []models.AnalysisResult, n int) []string {
	counts := make(map[string]int)
	var order []string
	for _, r := range results {
		for _, rec := range r.Recommendations {
			if counts[rec] == 0 {
				order = append(order, rec)
			}
			counts[rec]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > n {
		order = order[:n]
	}
	return order
}

var titleCaser = cases.Title(language.English)

// issueTitle renders an issue name like "missing_index" as "Missing Index".
func issueTitle(name string) string {
	return titleCaser.String(strings.ReplaceAll(name, "_", " "))
}

// truncate shortens s to n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// groupDigits formats n with thousands separators.
func groupDigits(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func init() {
	for _, c := range []*cobra.Command{queriesAnalyzeCmd, queriesReportCmd} {
		c.Flags().IntVar(&queriesCount, "count", 0, "Number of demo queries to sample (0 for the full workload)")
		c.Flags().Int64Var(&queriesSeed, "seed", 0, "Seed for demo query sampling")
		c.Flags().StringVar(&queriesFile, "file", "", "YAML or JSON file of query records")
	}

	queriesClassifyCmd.Flags().StringVar(&classifyQuery, "query", "", "SQL text")
	queriesClassifyCmd.Flags().Float64Var(&classifyTime, "time", 0, "Execution time in seconds")
	queriesClassifyCmd.Flags().Int64Var(&classifyExamined, "examined", 0, "Rows examined")
	queriesClassifyCmd.Flags().Int64Var(&classifySent, "sent", 0, "Rows sent")

	queriesCmd.AddCommand(queriesAnalyzeCmd)
	queriesCmd.AddCommand(queriesReportCmd)
	queriesCmd.AddCommand(queriesClassifyCmd)
	rootCmd.AddCommand(queriesCmd)
}
