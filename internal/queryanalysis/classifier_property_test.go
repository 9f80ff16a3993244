package queryanalysis

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

// =============================================================================
// Property 10: Efficiency Ratio Is Bounded
// =============================================================================

// For any rows_sent and rows_examined, including zero and negative values,
// the efficiency ratio lies in [0, 1].
func TestProperty10_EfficiencyRatioBounded(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		sent := rapid.Int64Range(-1_000, 10_000_000).Draw(rt, "sent")
		examined := rapid.Int64Range(-1_000, 10_000_000).Draw(rt, "examined")

		r := EfficiencyRatio(sent, examined)
		if r < 0 || r > 1 {
			rt.Errorf("EfficiencyRatio(%d, %d) = %v", sent, examined, r)
		}
	})
}

// =============================================================================
// Property 11: Severity Is Monotonic
// =============================================================================

// For any record, increasing execution_time or rows_examined while holding
// the other fixed never lowers the severity rank.
func TestProperty11_SeverityMonotonic(t *testing.T) {
	c, err := NewClassifier(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	rapid.Check(t, func(rt *rapid.T) {
		execTime := rapid.Float64Range(0, 10).Draw(rt, "execTime")
		rows := rapid.Int64Range(0, 10_000_000).Draw(rt, "rows")
		dt := rapid.Float64Range(0, 10).Draw(rt, "dt")
		dr := rapid.Int64Range(0, 10_000_000).Draw(rt, "dr")

		base := c.Severity(execTime, rows).Rank()
		if got := c.Severity(execTime+dt, rows).Rank(); got < base {
			rt.Errorf("raising time %v -> %v lowered rank %d -> %d", execTime, execTime+dt, base, got)
		}
		if got := c.Severity(execTime, rows+dr).Rank(); got < base {
			rt.Errorf("raising rows %d -> %d lowered rank %d -> %d", rows, rows+dr, base, got)
		}
	})
}

// =============================================================================
// Property 12: Summary Counts Match Results
// =============================================================================

// For any batch of records, the severity counts sum to the number of
// results and the slow count matches results flagged slow.
func TestProperty12_SummaryCountsMatch(t *testing.T) {
	c, err := NewClassifier(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	queries := []string{
		"SELECT * FROM users WHERE email = 'x'",
		"SELECT * FROM a CROSS JOIN b",
		"SELECT 1",
		"SELECT * FROM t WHERE a IN (SELECT b FROM u)",
	}
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 30).Draw(rt, "n")
		records := make([]models.QueryRecord, n)
		slow := 0
		for i := range records {
			records[i] = models.QueryRecord{
				ID:            i + 1,
				Query:         rapid.SampledFrom(queries).Draw(rt, "query"),
				ExecutionTime: rapid.Float64Range(0, 8).Draw(rt, "time"),
				RowsExamined:  rapid.Int64Range(0, 6_000_000).Draw(rt, "examined"),
				RowsSent:      rapid.Int64Range(0, 1_000).Draw(rt, "sent"),
			}
			if records[i].ExecutionTime > DefaultSlowQueryThreshold {
				slow++
			}
		}

		s := Summarize(c.ClassifyAll(records))
		total := 0
		for _, v := range s.SeverityCounts {
			total += v
		}
		if total != n || s.TotalQueries != n {
			rt.Errorf("severity total %d, TotalQueries %d, want %d", total, s.TotalQueries, n)
		}
		if s.SlowQueries != slow {
			rt.Errorf("SlowQueries = %d, want %d", s.SlowQueries, slow)
		}
	})
}
