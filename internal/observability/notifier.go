package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Notifier sends alert notifications to external channels.
type Notifier interface {
	Notify(ctx context.Context, alerts []Alert) error
}

// slackNotifier posts alert digests to a Slack incoming webhook.
type slackNotifier struct {
	webhookURL string
	instance   string
	client     *http.Client
}

// NewSlackNotifier creates a Notifier that posts to webhookURL. instance
// names the monitored server in the message header and may be empty.
func NewSlackNotifier(webhookURL, instance string) Notifier {
	return &slackNotifier{
		webhookURL: webhookURL,
		instance:   instance,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type slackMessage struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// conditionTitles labels the alert rules in the digest.
var conditionTitles = map[string]string{
	"anomaly_burst":      "Metric anomalies",
	"slow_query_share":   "Slow queries",
	"critical_queries":   "Critical queries",
	"detector_not_ready": "Anomaly detector",
}

// Notify posts one digest for alerts. An empty slice sends nothing.
func (s *slackNotifier) Notify(ctx context.Context, alerts []Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	body, err := json.Marshal(s.buildMessage(alerts))
	if err != nil {
		return fmt.Errorf("marshaling slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// buildMessage renders a header with severity counts, then one section per
// alert condition in order of its most severe alert.
func (s *slackNotifier) buildMessage(alerts []Alert) slackMessage {
	summary := digestSummary(alerts)
	header := "p3 MySQL alerts"
	if s.instance != "" {
		header += " on " + s.instance
	}
	blocks := []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: header}},
		{Type: "section", Text: &slackText{Type: "mrkdwn", Text: summary}},
	}

	for _, group := range groupByCondition(alerts) {
		var b strings.Builder
		fmt.Fprintf(&b, "*%s*", conditionTitle(group[0].Condition))
		for _, a := range group {
			fmt.Fprintf(&b, "\n*[%s]* %s _%s_",
				strings.ToUpper(string(a.Severity)),
				a.Message,
				a.TriggeredAt.UTC().Format("2006-01-02 15:04 UTC"),
			)
		}
		blocks = append(blocks,
			slackBlock{Type: "divider"},
			slackBlock{Type: "section", Text: &slackText{Type: "mrkdwn", Text: b.String()}},
		)
	}

	return slackMessage{Text: header + ": " + summary, Blocks: blocks}
}

// digestSummary counts alerts per severity, most severe first.
func digestSummary(alerts []Alert) string {
	counts := make(map[AlertSeverity]int)
	for _, a := range alerts {
		counts[a.Severity]++
	}
	var parts []string
	for _, sev := range []AlertSeverity{SeverityHigh, SeverityMedium, SeverityLow} {
		if counts[sev] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[sev], sev))
		}
	}
	noun := "alerts"
	if len(alerts) == 1 {
		noun = "alert"
	}
	return fmt.Sprintf("%d active %s (%s)", len(alerts), noun, strings.Join(parts, ", "))
}

// groupByCondition keeps first-seen order within a group and orders groups
// by their most severe alert.
func groupByCondition(alerts []Alert) [][]Alert {
	index := make(map[string]int)
	var groups [][]Alert
	for _, a := range alerts {
		i, ok := index[a.Condition]
		if !ok {
			i = len(groups)
			index[a.Condition] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], a)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return maxSeverity(groups[i]) > maxSeverity(groups[j])
	})
	return groups
}

func maxSeverity(alerts []Alert) int {
	best := 0
	for _, a := range alerts {
		best = max(best, severityOrder(a.Severity))
	}
	return best
}

func conditionTitle(condition string) string {
	if t, ok := conditionTitles[condition]; ok {
		return t
	}
	if condition == "" {
		return "Other"
	}
	return condition
}
