package cli

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/divyansh-cyber/AceE6data/internal/observability"
	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

// mockDashboardAlerts implements observability.AlertEngine.
type mockDashboardAlerts struct {
	alerts []observability.Alert
	err    error
}

func (m *mockDashboardAlerts) Evaluate() ([]observability.Alert, error) {
	return m.alerts, m.err
}

func saveDashboardVars(t *testing.T) {
	t.Helper()
	origMonitor, origQueries, origAlerts, origConfig := Monitor, Queries, AlertEngine, Config
	t.Cleanup(func() {
		Monitor, Queries, AlertEngine, Config = origMonitor, origQueries, origAlerts, origConfig
	})
	Monitor, Queries, AlertEngine, Config = nil, nil, nil, nil
}

func TestDashboardModel_Init(t *testing.T) {
	m := newDashboardModel()

	if m.activePanel != panelMetrics {
		t.Errorf("expected activePanel = %d, got %d", panelMetrics, m.activePanel)
	}
	if !m.loading {
		t.Error("expected loading = true on init")
	}

	// Init should return a command (loadData).
	cmd := m.Init()
	if cmd == nil {
		t.Error("expected Init to return a non-nil command")
	}
}

func TestDashboardModel_KeyQ(t *testing.T) {
	m := newDashboardModel()
	m.loading = false

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected tea.Quit command from q key")
	}

	msg := cmd()
	if _, ok := msg.(tea.QuitMsg); !ok {
		t.Errorf("expected tea.QuitMsg, got %T", msg)
	}

	dm := updated.(dashboardModel)
	if dm.activePanel != panelMetrics {
		t.Errorf("expected activePanel unchanged, got %d", dm.activePanel)
	}
}

func TestDashboardModel_KeyEsc(t *testing.T) {
	m := newDashboardModel()
	m.loading = false

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEscape})
	if cmd == nil {
		t.Fatal("expected tea.Quit command from esc key")
	}
	msg := cmd()
	if _, ok := msg.(tea.QuitMsg); !ok {
		t.Errorf("expected tea.QuitMsg, got %T", msg)
	}
}

func TestDashboardModel_KeyTab(t *testing.T) {
	m := newDashboardModel()

	want := []int{panelDetector, panelQueries, panelAlerts, panelMetrics}
	var model tea.Model = m
	for i, w := range want {
		var cmd tea.Cmd
		model, cmd = model.Update(tea.KeyMsg{Type: tea.KeyTab})
		if cmd != nil {
			t.Error("expected no command from tab key")
		}
		if got := model.(dashboardModel).activePanel; got != w {
			t.Errorf("tab %d: panel = %d, want %d", i+1, got, w)
		}
	}
}

func TestDashboardModel_KeyShiftTab(t *testing.T) {
	m := newDashboardModel()

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if cmd != nil {
		t.Error("expected no command from shift+tab")
	}
	dm := updated.(dashboardModel)
	if dm.activePanel != panelAlerts {
		t.Errorf("expected panel %d after shift+tab from 0, got %d", panelAlerts, dm.activePanel)
	}
}

func TestDashboardModel_KeyR(t *testing.T) {
	m := newDashboardModel()
	m.loading = false

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	dm := updated.(dashboardModel)
	if !dm.loading {
		t.Error("expected loading = true after pressing r")
	}
	if cmd == nil {
		t.Error("expected a command (loadData) from r key")
	}
}

func TestDashboardModel_Tick(t *testing.T) {
	m := newDashboardModel()

	_, cmd := m.Update(tickMsg(time.Now()))
	if cmd == nil {
		t.Error("expected reload and next tick after tickMsg")
	}
}

func TestDashboardModel_DataLoaded(t *testing.T) {
	m := newDashboardModel()

	msg := dataLoadedMsg{
		sample: &sampleSnapshot{
			taken:       time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
			rows:        []metricRow{{name: "Threads_connected", value: 150, status: "HIGH"}},
			historySize: 12,
		},
		detector: &detectorSnapshot{ready: true, score: -0.12, trainedOn: 12},
		queries:  &models.RecentAnalysis{TotalQueries: 10, SlowQueries: 6},
		alerts: []alertSnapshot{
			{severity: "high", message: "4 anomalies in the last 24h", time: "2026-10-15 09:00 UTC"},
		},
	}

	updated, cmd := m.Update(msg)
	if cmd != nil {
		t.Error("expected no command after dataLoadedMsg")
	}

	dm := updated.(dashboardModel)
	if dm.loading {
		t.Error("expected loading = false after data loaded")
	}
	if dm.err != nil {
		t.Errorf("expected no error, got: %v", dm.err)
	}
	if dm.sample == nil || dm.sample.historySize != 12 {
		t.Errorf("sample not stored: %+v", dm.sample)
	}
	if dm.detector == nil || dm.detector.trainedOn != 12 {
		t.Errorf("detector not stored: %+v", dm.detector)
	}
	if dm.queries == nil || dm.queries.SlowQueries != 6 {
		t.Errorf("queries not stored: %+v", dm.queries)
	}
	if len(dm.alerts) != 1 {
		t.Errorf("expected 1 alert, got %d", len(dm.alerts))
	}
}

func TestDashboardModel_DataLoadedError(t *testing.T) {
	m := newDashboardModel()

	updated, _ := m.Update(dataLoadedMsg{err: errors.New("connection failed")})
	dm := updated.(dashboardModel)
	if dm.loading {
		t.Error("expected loading = false after error")
	}
	if dm.err == nil || dm.err.Error() != "connection failed" {
		t.Fatalf("err = %v, want connection failed", dm.err)
	}

	dm.width = 100
	if !strings.Contains(dm.View(), "Error: connection failed") {
		t.Error("expected error view")
	}
}

func TestDashboardModel_WindowResize(t *testing.T) {
	m := newDashboardModel()

	updated, cmd := m.Update(tea.WindowSizeMsg{Width: 200, Height: 50})
	if cmd != nil {
		t.Error("expected no command from window resize")
	}
	dm := updated.(dashboardModel)
	if dm.width != 200 || dm.height != 50 {
		t.Errorf("size = %dx%d, want 200x50", dm.width, dm.height)
	}
}

func TestDashboardModel_ViewLoading(t *testing.T) {
	m := newDashboardModel()
	if m.View() != "Loading..." {
		t.Errorf("expected placeholder before the first resize, got %q", m.View())
	}

	m.width = 100
	m.height = 40
	if !strings.Contains(m.View(), "Loading data") {
		t.Error("expected loading view to contain 'Loading data'")
	}
}

func TestDashboardModel_ViewWithData(t *testing.T) {
	m := newDashboardModel()
	m.width = 130
	m.height = 40
	m.loading = false
	m.sample = &sampleSnapshot{
		taken:       time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
		rows:        []metricRow{{name: "Threads_running", value: 4, status: "OK"}},
		historySize: 3,
	}
	m.detector = &detectorSnapshot{ready: false, missing: 7}
	m.queries = &models.RecentAnalysis{
		TotalQueries: 2,
		Queries: []models.RecentQuery{
			{Query: "SELECT * FROM orders", Severity: models.SeverityCritical},
			{Query: "SELECT 1", Severity: models.SeverityLow},
		},
	}
	m.alerts = []alertSnapshot{{severity: "high", message: "2 critical queries"}}

	view := m.View()
	for _, want := range []string{
		"Latest Metrics",
		"Threads_running",
		"History: 3 samples",
		"need 7 more samples",
		"Recent Query Analysis",
		"[CRITICAL]",
		"SELECT * FROM orders",
		"Alerts",
		"2 critical queries",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if strings.Contains(view, "SELECT 1") {
		t.Error("low severity queries should not be listed")
	}
}

func TestDashboardModel_ViewVerticalLayout(t *testing.T) {
	m := newDashboardModel()
	m.width = 80
	m.height = 40
	m.loading = false
	m.detector = &detectorSnapshot{ready: true, isAnomaly: true, score: -0.3, trainedOn: 20}

	view := m.View()
	for _, want := range []string{"No samples collected.", "ANOMALY DETECTED", "No analysis yet", "No active alerts."} {
		if !strings.Contains(view, want) {
			t.Errorf("vertical view missing %q", want)
		}
	}
}

func TestDashboardLoadData(t *testing.T) {
	saveDashboardVars(t)

	Monitor = newTestMonitor(t)
	for i := 0; i < 3; i++ {
		if _, err := Monitor.Collect(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	Queries = newTestQueries(t)

	now := time.Now().UTC()
	AlertEngine = &mockDashboardAlerts{
		alerts: []observability.Alert{
			{Severity: observability.SeverityHigh, Message: "4 anomalies in the last 24h", TriggeredAt: now},
		},
	}

	data, ok := loadData().(dataLoadedMsg)
	if !ok {
		t.Fatal("expected dataLoadedMsg")
	}
	if data.err != nil {
		t.Fatalf("unexpected error: %v", data.err)
	}
	if data.sample == nil || data.sample.historySize != 3 || len(data.sample.rows) == 0 {
		t.Errorf("unexpected sample snapshot: %+v", data.sample)
	}
	if data.detector == nil || data.detector.ready || data.detector.missing != 7 {
		t.Errorf("unexpected detector snapshot: %+v", data.detector)
	}
	if data.queries != nil {
		t.Error("expected no query snapshot before any analysis")
	}
	if len(data.alerts) != 1 || data.alerts[0].severity != "high" {
		t.Errorf("unexpected alerts: %+v", data.alerts)
	}

	if _, err := Queries.Analyze([]models.QueryRecord{{ID: 1, Query: "SELECT 1", ExecutionTime: 0.1}}); err != nil {
		t.Fatal(err)
	}
	data = loadData().(dataLoadedMsg)
	if data.queries == nil || data.queries.TotalQueries != 1 {
		t.Errorf("expected query snapshot after analysis, got %+v", data.queries)
	}
}

func TestDashboardLoadData_AlertError(t *testing.T) {
	saveDashboardVars(t)
	AlertEngine = &mockDashboardAlerts{err: errors.New("event log unreadable")}

	data := loadData().(dataLoadedMsg)
	if data.err == nil || !strings.Contains(data.err.Error(), "loading alerts") {
		t.Errorf("err = %v, want loading alerts", data.err)
	}
}

func TestDashboardCmd_NoServices(t *testing.T) {
	saveDashboardVars(t)

	err := dashboardCmd.RunE(dashboardCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "services not initialized") {
		t.Fatalf("err = %v, want services not initialized", err)
	}
}
