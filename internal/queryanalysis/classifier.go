package queryanalysis

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

// Defaults for the classifier thresholds.
const (
	DefaultSlowQueryThreshold = 2.0
	DefaultLowEfficiencyRatio = 0.01
)

// DefaultSeverityThresholds returns the built-in severity table.
func DefaultSeverityThresholds() models.SeverityThresholds {
	return models.SeverityThresholds{
		Critical: models.SeverityBreakpoint{ExecutionTime: 5.0, RowsExamined: 5_000_000},
		High:     models.SeverityBreakpoint{ExecutionTime: 2.0, RowsExamined: 1_000_000},
		Medium:   models.SeverityBreakpoint{ExecutionTime: 1.0, RowsExamined: 100_000},
	}
}

// DefaultConfig returns the classifier configuration used when none is given.
func DefaultConfig() models.QueryConfig {
	return models.QueryConfig{
		SlowQueryThreshold: DefaultSlowQueryThreshold,
		LowEfficiencyRatio: DefaultLowEfficiencyRatio,
		Severity:           DefaultSeverityThresholds(),
	}
}

// ValidateConfig checks that thresholds are non-negative and that the
// severity table does not decrease from medium to critical.
func ValidateConfig(cfg models.QueryConfig) error {
	var errs []error
	if cfg.SlowQueryThreshold < 0 {
		errs = append(errs, fmt.Errorf("slow_query_threshold must be non-negative, got %v", cfg.SlowQueryThreshold))
	}
	if cfg.LowEfficiencyRatio < 0 || cfg.LowEfficiencyRatio > 1 {
		errs = append(errs, fmt.Errorf("low_efficiency_ratio must be in [0, 1], got %v", cfg.LowEfficiencyRatio))
	}
	s := cfg.Severity
	if s.Medium.ExecutionTime < 0 || s.Medium.RowsExamined < 0 {
		errs = append(errs, fmt.Errorf("severity.medium thresholds must be non-negative"))
	}
	if s.High.ExecutionTime < s.Medium.ExecutionTime || s.Critical.ExecutionTime < s.High.ExecutionTime {
		errs = append(errs, fmt.Errorf("severity execution_time thresholds must satisfy medium <= high <= critical"))
	}
	if s.High.RowsExamined < s.Medium.RowsExamined || s.Critical.RowsExamined < s.High.RowsExamined {
		errs = append(errs, fmt.Errorf("severity rows_examined thresholds must satisfy medium <= high <= critical"))
	}
	return errors.Join(errs...)
}

// severityLevel pairs a severity with the breakpoint that triggers it.
type severityLevel struct {
	severity models.Severity
	bound    models.SeverityBreakpoint
}

// Classifier turns query execution statistics into an AnalysisResult. It
// holds no mutable state and is safe for concurrent use.
type Classifier struct {
	cfg        models.QueryConfig
	categories []Category
	levels     []severityLevel
	slowRec    string
}

// NewClassifier builds a Classifier. A nil categories slice selects
// DefaultCategories.
func NewClassifier(cfg models.QueryConfig, categories []Category) (*Classifier, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid query config: %w", err)
	}
	if categories == nil {
		categories = DefaultCategories()
	}
	return &Classifier{
		cfg:        cfg,
		categories: categories,
		levels: []severityLevel{
			{models.SeverityCritical, cfg.Severity.Critical},
			{models.SeverityHigh, cfg.Severity.High},
			{models.SeverityMedium, cfg.Severity.Medium},
		},
		slowRec: fmt.Sprintf(RecSlowQuery, strconv.FormatFloat(cfg.SlowQueryThreshold, 'f', -1, 64)),
	}, nil
}

// Categories returns the category table in evaluation order.
func (c *Classifier) Categories() []Category {
	return append([]Category(nil), c.categories...)
}

// SlowQueryThreshold returns the execution time above which a query is slow.
func (c *Classifier) SlowQueryThreshold() float64 { return c.cfg.SlowQueryThreshold }

// Classify analyses one record. It never fails: negative or non-finite
// statistics are treated as zero.
func (c *Classifier) Classify(rec models.QueryRecord) models.AnalysisResult {
	execTime := nonNegative(rec.ExecutionTime)
	examined := max(rec.RowsExamined, 0)
	sent := max(rec.RowsSent, 0)

	res := models.AnalysisResult{
		QueryID:         rec.ID,
		Query:           rec.Query,
		ExecutionTime:   execTime,
		RowsExamined:    examined,
		RowsSent:        sent,
		IsSlow:          execTime > c.cfg.SlowQueryThreshold,
		EfficiencyRatio: EfficiencyRatio(sent, examined),
		Severity:        c.Severity(execTime, examined),
		Issues:          []string{},
		Recommendations: []string{},
		Explanation:     rec.Explanation,
	}

	for _, cat := range c.categories {
		if !cat.Matches(rec.Query) {
			continue
		}
		res.Issues = append(res.Issues, cat.Name)
		res.Recommendations = append(res.Recommendations, cat.Recommendations...)
	}

	// Selectivity is undefined when nothing was examined.
	if examined > 0 && res.EfficiencyRatio < c.cfg.LowEfficiencyRatio {
		res.Recommendations = append(res.Recommendations, RecLowEfficiency)
	}
	if res.IsSlow {
		res.Recommendations = append(res.Recommendations, c.slowRec)
	}
	return res
}

// ClassifyAll classifies records in order.
func (c *Classifier) ClassifyAll(records []models.QueryRecord) []models.AnalysisResult {
	out := make([]models.AnalysisResult, len(records))
	for i, r := range records {
		out[i] = c.Classify(r)
	}
	return out
}

// Severity evaluates the severity table from critical down; the first level
// whose time or row bound is exceeded wins.
func (c *Classifier) Severity(execTime float64, rowsExamined int64) models.Severity {
	for _, l := range c.levels {
		if execTime > l.bound.ExecutionTime || rowsExamined > l.bound.RowsExamined {
			return l.severity
		}
	}
	return models.SeverityLow
}

// EfficiencyRatio is rowsSent / max(rowsExamined, 1), clamped to [0, 1].
func EfficiencyRatio(rowsSent, rowsExamined int64) float64 {
	if rowsSent <= 0 {
		return 0
	}
	ratio := float64(rowsSent) / float64(max(rowsExamined, 1))
	return math.Min(ratio, 1)
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
