package queryanalysis

import (
	"fmt"
	"regexp"
)

// Category maps an issue name to the patterns that detect it and the
// recommendations emitted when it is detected.
type Category struct {
	Name            string
	Patterns        []*regexp.Regexp
	Recommendations []string
}

// Matches reports whether any pattern matches query.
func (c Category) Matches(query string) bool {
	for _, p := range c.Patterns {
		if p.MatchString(query) {
			return true
		}
	}
	return false
}

// NewCategory compiles patterns case-insensitively.
func NewCategory(name string, patterns, recommendations []string) (Category, error) {
	c := Category{Name: name, Recommendations: dedupe(recommendations)}
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return Category{}, fmt.Errorf("category %s: compiling %q: %w", name, p, err)
		}
		c.Patterns = append(c.Patterns, re)
	}
	return c, nil
}

// MustCategory is NewCategory for static tables; it panics on a bad pattern.
func MustCategory(name string, patterns, recommendations []string) Category {
	c, err := NewCategory(name, patterns, recommendations)
	if err != nil {
		panic(err)
	}
	return c
}

// Issue category names.
const (
	IssueMissingIndex     = "missing_index"
	IssueFullTableScan    = "full_table_scan"
	IssueInefficientJoins = "inefficient_joins"
	IssueSubquery         = "subquery_issues"
)

// Recommendations added independently of category.
const (
	RecLowEfficiency = "Very low efficiency ratio - consider adding WHERE clauses to reduce examined rows"
	RecSlowQuery     = "Query execution time exceeds %s seconds - immediate optimization needed"
)

var defaultCategories = []Category{
	MustCategory(IssueMissingIndex,
		[]string{
			`WHERE\s+\w+\s*=\s*\?`,
			`WHERE\s+\w+\s*=\s*('[^']*'|"[^"]*"|\d+)`,
			`WHERE\s+\w+\s+IN\s*\(`,
			`ORDER\s+BY\s+\w+`,
			`GROUP\s+BY\s+\w+`,
		},
		[]string{
			"Add appropriate indexes to improve query performance",
			"Consider composite indexes for multi-column WHERE clauses",
		}),
	MustCategory(IssueFullTableScan,
		[]string{
			`WHERE\s+\w+\s+LIKE\s+['"]%`,
			`WHERE\s+\w+\s+!=`,
			`WHERE\s+\w+\s+NOT\s+IN`,
		},
		[]string{
			"Avoid LIKE patterns with leading wildcards",
			"Consider full-text search indexes for text searching",
		}),
	MustCategory(IssueInefficientJoins,
		[]string{
			`CROSS\s+JOIN`,
			`LEFT\s+JOIN.*WHERE.*IS\s+NULL`,
			`JOIN.*ON\s+\w+\.\w+\s*=\s*\w+\.\w+.*AND`,
		},
		[]string{
			"Optimize JOIN conditions and add foreign key indexes",
			"Consider query rewriting for better performance",
		}),
	MustCategory(IssueSubquery,
		[]string{
			`WHERE\s+\w+\s+IN\s*\(SELECT`,
			`WHERE\s+EXISTS\s*\(SELECT`,
			`SELECT.*FROM\s*\(SELECT`,
		},
		[]string{
			"Consider rewriting subqueries as JOINs",
			"Use EXISTS only when necessary, prefer JOINs for better performance",
		}),
}

// DefaultCategories returns the built-in category table in evaluation order.
func DefaultCategories() []Category {
	out := make([]Category, len(defaultCategories))
	copy(out, defaultCategories)
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
