// Package mcp provides an MCP (Model Context Protocol) server that exposes
// p3's query classifier, anomaly detector and alerts as MCP tools for AI
// coding assistants.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/divyansh-cyber/AceE6data/internal/core"
	"github.com/divyansh-cyber/AceE6data/internal/observability"
	"github.com/divyansh-cyber/AceE6data/internal/storage"
	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

// Server wraps p3 services and exposes them as MCP tools.
type Server struct {
	server      *gomcp.Server
	queries     core.QueryAnalyzer
	monitor     core.MetricsMonitor
	metricsCalc observability.MetricsCalculator
	alertEngine observability.AlertEngine
}

// NewServer creates a new MCP server with the given service dependencies.
// monitor, metricsCalc and alertEngine may be nil; their tools then report
// an error result.
func NewServer(queries core.QueryAnalyzer, monitor core.MetricsMonitor, metricsCalc observability.MetricsCalculator, alertEngine observability.AlertEngine, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		queries:     queries,
		monitor:     monitor,
		metricsCalc: metricsCalc,
		alertEngine: alertEngine,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "p3", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type queryInput struct {
	ID            int     `json:"id,omitempty" jsonschema:"optional caller-assigned query id"`
	Query         string  `json:"query" jsonschema:"required,the SQL text"`
	ExecutionTime float64 `json:"execution_time" jsonschema:"execution time in seconds"`
	RowsExamined  int64   `json:"rows_examined" jsonschema:"rows the server examined"`
	RowsSent      int64   `json:"rows_sent" jsonschema:"rows returned to the client"`
}

func (q queryInput) record() models.QueryRecord {
	return models.QueryRecord{
		ID:            q.ID,
		Query:         q.Query,
		ExecutionTime: q.ExecutionTime,
		RowsExamined:  q.RowsExamined,
		RowsSent:      q.RowsSent,
	}
}

type classifyOutput struct {
	Result models.AnalysisResult `json:"result"`
}

type summarizeInput struct {
	Queries []queryInput `json:"queries" jsonschema:"required,the query records to analyse"`
}

type summarizeOutput struct {
	Summary models.QuerySummary     `json:"summary"`
	Results []models.AnalysisResult `json:"results"`
}

type emptyInput struct{}

type recentOutput struct {
	Analysis models.RecentAnalysis `json:"analysis"`
}

type anomalyOutput struct {
	Status    string  `json:"status"`
	Ready     bool    `json:"ready"`
	Missing   int     `json:"missing"`
	Available int     `json:"available"`
	Required  int     `json:"required"`
	TrainedOn int     `json:"trained_on,omitempty"`
	Score     float64 `json:"score"`
	SampledAt string  `json:"sampled_at,omitempty"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type metricsOutput struct {
	SamplesCollected  int            `json:"samples_collected"`
	SamplesBySource   map[string]int `json:"samples_by_source"`
	ModelsTrained     int            `json:"models_trained"`
	AnomalyChecks     int            `json:"anomaly_checks"`
	AnomaliesDetected int            `json:"anomalies_detected"`
	AnomalyRate       float64        `json:"anomaly_rate"`
	AnalysisRuns      int            `json:"analysis_runs"`
	QueriesAnalyzed   int            `json:"queries_analyzed"`
	SlowQueries       int            `json:"slow_queries"`
	EventCount        int            `json:"event_count"`
	OldestEvent       string         `json:"oldest_event,omitempty"`
	NewestEvent       string         `json:"newest_event,omitempty"`
}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "classify_query",
		Description: "Classify one MySQL query: slow flag, efficiency ratio, severity, detected issues and recommendations.",
	}, s.handleClassify)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "summarize_queries",
		Description: "Classify a batch of queries, return the aggregate summary, and record it as the recent analysis.",
	}, s.handleSummarize)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_recent_analysis",
		Description: "Return the snapshot written by the most recent batch analysis.",
	}, s.handleRecent)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "detect_anomaly",
		Description: "Score the latest collected metrics sample against a model trained on the history.",
	}, s.handleDetectAnomaly)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get aggregated statistics from the event log: samples collected, training runs, anomalies and analysis runs.",
	}, s.handleGetMetrics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate and return active alerts (anomaly bursts, critical queries, slow query share, pending detector).",
	}, s.handleGetAlerts)
}

// --- Tool handlers ---

func (s *Server) handleClassify(_ context.Context, _ *gomcp.CallToolRequest, input queryInput) (*gomcp.CallToolResult, classifyOutput, error) {
	if input.Query == "" {
		return errorResult("query is required"), classifyOutput{}, nil
	}
	return nil, classifyOutput{Result: s.queries.Classify(input.record())}, nil
}

func (s *Server) handleSummarize(_ context.Context, _ *gomcp.CallToolRequest, input summarizeInput) (*gomcp.CallToolResult, summarizeOutput, error) {
	records := make([]models.QueryRecord, len(input.Queries))
	for i, q := range input.Queries {
		records[i] = q.record()
		if records[i].ID == 0 {
			records[i].ID = i + 1
		}
	}

	report, err := s.queries.Analyze(records)
	if err != nil {
		return errorResult(fmt.Sprintf("analysing queries: %s", err)), summarizeOutput{}, nil
	}
	results := report.Results
	if results == nil {
		results = []models.AnalysisResult{}
	}
	return nil, summarizeOutput{Summary: report.Summary, Results: results}, nil
}

func (s *Server) handleRecent(_ context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, recentOutput, error) {
	recent, err := s.queries.Recent()
	if errors.Is(err, storage.ErrNoAnalysis) {
		return errorResult("no analysis has been run yet"), recentOutput{}, nil
	}
	if err != nil {
		return errorResult(fmt.Sprintf("reading recent analysis: %s", err)), recentOutput{}, nil
	}
	return nil, recentOutput{Analysis: *recent}, nil
}

func (s *Server) handleDetectAnomaly(ctx context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, anomalyOutput, error) {
	if s.monitor == nil {
		return errorResult("metrics monitor not available"), anomalyOutput{}, nil
	}
	latest, ok := s.monitor.Latest()
	if !ok {
		return errorResult("metrics history is empty; run a collection first"), anomalyOutput{}, nil
	}

	report, err := s.monitor.Score(ctx, latest)
	if err != nil {
		return errorResult(fmt.Sprintf("checking sample: %s", err)), anomalyOutput{}, nil
	}

	out := anomalyOutput{
		Ready:     report.Ready,
		Missing:   report.Missing(),
		Available: report.Available,
		Required:  report.Required,
		TrainedOn: report.TrainedOn,
		Score:     report.Verdict.Score,
		SampledAt: latest.Timestamp.Format(time.RFC3339),
	}
	switch {
	case !report.Ready:
		out.Status = "not_ready"
	case report.Verdict.IsAnomaly:
		out.Status = "anomaly"
	default:
		out.Status = "normal"
	}
	return nil, out, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.metricsCalc == nil {
		return errorResult("metrics calculator not available (event log may be disabled)"), emptyMetricsOutput(), nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}

	sinceTime, err := parseSince(sinceStr)
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyMetricsOutput(), nil
	}

	metrics, err := s.metricsCalc.Calculate(sinceTime)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyMetricsOutput(), nil
	}

	out := metricsOutput{
		SamplesCollected:  metrics.SamplesCollected,
		SamplesBySource:   metrics.SamplesBySource,
		ModelsTrained:     metrics.ModelsTrained,
		AnomalyChecks:     metrics.AnomalyChecks,
		AnomaliesDetected: metrics.AnomaliesDetected,
		AnomalyRate:       metrics.AnomalyRate,
		AnalysisRuns:      metrics.AnalysisRuns,
		QueriesAnalyzed:   metrics.QueriesAnalyzed,
		SlowQueries:       metrics.SlowQueries,
		EventCount:        metrics.EventCount,
	}
	if out.SamplesBySource == nil {
		out.SamplesBySource = make(map[string]int)
	}
	if metrics.OldestEvent != nil {
		out.OldestEvent = metrics.OldestEvent.Format(time.RFC3339)
	}
	if metrics.NewestEvent != nil {
		out.NewestEvent = metrics.NewestEvent.Format(time.RFC3339)
	}

	return nil, out, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ emptyInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alertEngine == nil {
		return errorResult("alert engine not available (event log may be disabled)"), getAlertsOutput{}, nil
	}

	alerts, err := s.alertEngine.Evaluate()
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{}, nil
	}

	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}

	return nil, out, nil
}

// --- Helpers ---

func emptyMetricsOutput() metricsOutput {
	return metricsOutput{SamplesBySource: make(map[string]int)}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// parseSince parses a human-friendly duration string like "7d", "30d", or "24h"
// into the corresponding time in the past.
func parseSince(s string) (time.Time, error) {
	now := time.Now().UTC()

	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]
	var num int
	if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}
