// Package queryanalysis classifies SQL query executions by severity and
// detected issue categories, and emits remediation hints.
//
// Categories are data: each is a name, a list of case-insensitive patterns
// and a list of recommendations. A query carries every category with at
// least one matching pattern. Severity depends only on execution time and
// rows examined.
package queryanalysis
