package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/divyansh-cyber/AceE6data/internal/storage"
	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

// Dashboard panel indices.
const (
	panelMetrics = iota
	panelDetector
	panelQueries
	panelAlerts
	panelCount
)

// dashboardRefresh is the interval between automatic reloads.
const dashboardRefresh = 5 * time.Second

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	// Data.
	sample   *sampleSnapshot
	detector *detectorSnapshot
	queries  *models.RecentAnalysis
	alerts   []alertSnapshot

	// State.
	loading bool
	err     error
}

type metricRow struct {
	name   string
	value  float64
	status string
}

type sampleSnapshot struct {
	taken       time.Time
	rows        []metricRow
	historySize int
}

type detectorSnapshot struct {
	ready     bool
	missing   int
	isAnomaly bool
	score     float64
	trainedOn int
}

type alertSnapshot struct {
	severity string
	message  string
	time     string
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	sample   *sampleSnapshot
	detector *detectorSnapshot
	queries  *models.RecentAnalysis
	alerts   []alertSnapshot
	err      error
}

type tickMsg time.Time

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	statusOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusHigh  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	statusError = lipgloss.NewStyle().Foreground(lipgloss.Color("201"))
	statusMuted = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	severityCritical = lipgloss.NewStyle().Foreground(lipgloss.Color("201")).Bold(true)
	severityHigh     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityMedium   = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	severityLow      = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel: panelMetrics,
		loading:     true,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(loadData, tick())
}

func tick() tea.Cmd {
	return tea.Tick(dashboardRefresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			m.loading = true
			return m, loadData
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		return m, tea.Batch(loadData, tick())

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.sample = msg.sample
		m.detector = msg.detector
		m.queries = msg.queries
		m.alerts = msg.alerts
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" p3 Dashboard ")
	help := helpStyle.Render("tab: switch panel | r: refresh | q: quit")

	if m.loading && m.sample == nil {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	panels := []string{
		m.renderMetricsPanel(),
		m.renderDetectorPanel(),
		m.renderQueriesPanel(),
		m.renderAlertsPanel(),
	}

	// Available width for panels after accounting for margins.
	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		// Two by two grid.
		colWidth := availableWidth / 2
		for i := range panels {
			panels[i] = m.applyPanelStyle(i, panels[i], colWidth-4)
		}
		top := lipgloss.JoinHorizontal(lipgloss.Top, panels[panelMetrics], panels[panelDetector])
		bottom := lipgloss.JoinHorizontal(lipgloss.Top, panels[panelQueries], panels[panelAlerts])
		body = lipgloss.JoinVertical(lipgloss.Left, top, bottom)
	} else {
		// Vertical layout: stacked.
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		for i := range panels {
			panels[i] = m.applyPanelStyle(i, panels[i], panelWidth)
		}
		body = lipgloss.JoinVertical(lipgloss.Left, panels...)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderMetricsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Latest Metrics"))
	b.WriteString("\n")

	if m.sample == nil {
		b.WriteString("  No samples collected.")
		return b.String()
	}

	for _, r := range m.sample.rows {
		label := fmt.Sprintf("  %-24s %14.2f  ", r.name, r.value)
		b.WriteString(label)
		b.WriteString(styleForStatus(r.status).Render(r.status))
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("\n  Taken: %s", m.sample.taken.Format("15:04:05 UTC")))
	b.WriteString(fmt.Sprintf("\n  History: %d samples", m.sample.historySize))

	return b.String()
}

func (m dashboardModel) renderDetectorPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Anomaly Detector"))
	b.WriteString("\n")

	d := m.detector
	switch {
	case d == nil:
		b.WriteString("  No samples to score.")
	case !d.ready:
		b.WriteString(statusMuted.Render(fmt.Sprintf("  Training: need %d more samples", d.missing)))
	case d.isAnomaly:
		b.WriteString(statusHigh.Render("  ANOMALY DETECTED"))
		b.WriteString(fmt.Sprintf("\n  Score: %.4f", d.score))
		b.WriteString(fmt.Sprintf("\n  Trained on: %d samples", d.trainedOn))
	default:
		b.WriteString(statusOK.Render("  Normal"))
		b.WriteString(fmt.Sprintf("\n  Score: %.4f", d.score))
		b.WriteString(fmt.Sprintf("\n  Trained on: %d samples", d.trainedOn))
	}

	return b.String()
}

func (m dashboardModel) renderQueriesPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Recent Query Analysis"))
	b.WriteString("\n")

	q := m.queries
	if q == nil {
		b.WriteString("  No analysis yet. Run `p3 queries analyze`.")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("  %-16s %d\n", "Queries:", q.TotalQueries))
	b.WriteString(fmt.Sprintf("  %-16s %d\n", "Slow:", q.SlowQueries))
	b.WriteString(fmt.Sprintf("  %-16s %d\n", "Critical:", q.CriticalIssues))
	b.WriteString(fmt.Sprintf("  %-16s %.2fs\n", "Avg time:", q.AvgExecutionTime))

	for _, rq := range q.Queries {
		if rq.Severity.Rank() < models.SeverityHigh.Rank() {
			continue
		}
		sev := styleForSeverity(string(rq.Severity)).Render(fmt.Sprintf("[%s]", strings.ToUpper(string(rq.Severity))))
		b.WriteString(fmt.Sprintf("\n  %s %s", sev, truncate(rq.Query, 48)))
	}

	return b.String()
}

func (m dashboardModel) renderAlertsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Alerts"))
	b.WriteString("\n")

	if len(m.alerts) == 0 {
		b.WriteString("  No active alerts.")
		return b.String()
	}

	for _, a := range m.alerts {
		sev := styleForSeverity(a.severity).Render(fmt.Sprintf("[%s]", strings.ToUpper(a.severity)))
		b.WriteString(fmt.Sprintf("  %s %s\n", sev, a.message))
	}

	b.WriteString(fmt.Sprintf("\n  Total: %d alert(s)", len(m.alerts)))

	return b.String()
}

func styleForStatus(status string) lipgloss.Style {
	switch status {
	case "OK":
		return statusOK
	case "HIGH":
		return statusHigh
	case "ERROR":
		return statusError
	default:
		return lipgloss.NewStyle()
	}
}

func styleForSeverity(severity string) lipgloss.Style {
	switch strings.ToLower(severity) {
	case "critical":
		return severityCritical
	case "high":
		return severityHigh
	case "medium":
		return severityMedium
	case "low":
		return severityLow
	default:
		return lipgloss.NewStyle()
	}
}

func loadData() tea.Msg {
	var result dataLoadedMsg

	// Latest sample and detector verdict from Monitor.
	if Monitor != nil {
		if latest, ok := Monitor.Latest(); ok {
			threshold := metricThresholds()
			snap := &sampleSnapshot{taken: latest.Timestamp, historySize: len(Monitor.History())}
			for _, name := range latest.Keys() {
				v := latest.Values[name]
				limit, has := threshold(name)
				snap.rows = append(snap.rows, metricRow{name: name, value: v, status: metricStatus(v, limit, has)})
			}
			result.sample = snap

			report, err := Monitor.Score(context.Background(), latest)
			if err != nil {
				result.err = fmt.Errorf("checking latest sample: %w", err)
				return result
			}
			result.detector = &detectorSnapshot{
				ready:     report.Ready,
				missing:   report.Missing(),
				isAnomaly: report.Verdict.IsAnomaly,
				score:     report.Verdict.Score,
				trainedOn: report.TrainedOn,
			}
		}
	}

	// Recent analysis snapshot from Queries.
	if Queries != nil {
		recent, err := Queries.Recent()
		switch {
		case errors.Is(err, storage.ErrNoAnalysis):
		case err != nil:
			result.err = fmt.Errorf("loading recent analysis: %w", err)
			return result
		default:
			result.queries = recent
		}
	}

	// Alerts from AlertEngine, most severe first.
	if AlertEngine != nil {
		alerts, err := AlertEngine.Evaluate()
		if err != nil {
			result.err = fmt.Errorf("loading alerts: %w", err)
			return result
		}
		result.alerts = make([]alertSnapshot, 0, len(alerts))
		for _, a := range alerts {
			result.alerts = append(result.alerts, alertSnapshot{
				severity: string(a.Severity),
				message:  a.Message,
				time:     a.TriggeredAt.Format("2006-01-02 15:04 UTC"),
			})
		}
	}

	return result
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard for metrics, anomalies and query analysis",
	Long: `Launch an interactive terminal dashboard showing the latest metrics
sample, the anomaly detector verdict, the recent query analysis and active
alerts. Data reloads every few seconds.

Navigate between panels with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Monitor == nil && Queries == nil {
			return fmt.Errorf("services not initialized")
		}
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
