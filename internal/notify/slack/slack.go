// Package slack sends enriched alert notifications to Slack via incoming
// webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/argus/internal/notify"
)

const (
	maxSectionLen = 3000
	httpTimeout   = 10 * time.Second
)

// Notifier posts alert messages to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, Notify is a
// no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Name identifies the channel in delivery outcomes.
func (n *Notifier) Name() string { return "slack" }

// Notify posts the enriched alert to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Notify(ctx context.Context, msg *notify.Message) error {
	if n.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(buildMessage(msg))
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(m *notify.Message) map[string]any {
	blocks := []map[string]any{
		headerBlock(m),
		{"type": "divider"},
		fieldsBlock(m),
	}

	if m.Err != nil {
		blocks = append(blocks,
			map[string]any{"type": "divider"},
			errorBlock(m.Err),
		)
	} else if m.Record.Explanation != nil {
		blocks = append(blocks,
			map[string]any{"type": "divider"},
			explanationBlock(m),
		)
	}

	if m.Analysis != nil && m.Analysis.SimilarCount > 0 {
		blocks = append(blocks,
			map[string]any{"type": "divider"},
			analysisBlock(m),
		)
	}

	blocks = append(blocks,
		map[string]any{"type": "divider"},
		contextBlock(m),
	)

	return map[string]any{"blocks": blocks}
}

func headerBlock(m *notify.Message) map[string]any {
	title := "Security Alert"
	if m.Err != nil {
		title = "Alert Enrichment Failed"
	}
	text := fmt.Sprintf("%s %s: %s", priorityEmoji(m.Record.Priority), title, m.Record.Rule)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(m *notify.Message) map[string]any {
	r := m.Record
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Priority:* %s", r.Priority),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Source:* %s", orDash(r.Source)),
		},
	}
	if m.Analysis != nil {
		fields = append(fields,
			map[string]any{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*Risk:* %.1f/10", m.Analysis.RiskScore),
			},
			map[string]any{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*Category:* %s", m.Analysis.ThreatCategory),
			},
		)
	}
	fields = append(fields, map[string]any{
		"type": "mrkdwn",
		"text": fmt.Sprintf("*Output:* %s", truncate(r.Output, 500)),
	})

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func explanationBlock(m *notify.Message) map[string]any {
	ex := m.Record.Explanation

	var b strings.Builder
	if ex.SecurityImpact != "" {
		fmt.Fprintf(&b, "*Security Impact*\n%s\n\n", ex.SecurityImpact)
	}
	if ex.NextSteps != "" {
		fmt.Fprintf(&b, "*Next Steps*\n%s\n\n", ex.NextSteps)
	}
	if ex.RemediationSteps != "" {
		fmt.Fprintf(&b, "*Remediation*\n%s\n\n", ex.RemediationSteps)
	}
	if len(ex.Commands) > 0 {
		fmt.Fprintf(&b, "*Commands*\n```%s```", strings.Join(ex.Commands, "\n"))
	}

	text := truncate(strings.TrimSpace(b.String()), maxSectionLen)
	if text == "" {
		text = "_No explanation available._"
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": text,
		},
	}
}

func analysisBlock(m *notify.Message) map[string]any {
	a := m.Analysis

	var b strings.Builder
	fmt.Fprintf(&b, "*Correlation*\n%d similar alerts (confidence %.2f)", a.SimilarCount, a.Confidence)
	for _, in := range a.Insights {
		fmt.Fprintf(&b, "\n• %s", in)
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": truncate(b.String(), maxSectionLen),
		},
	}
}

func errorBlock(err error) map[string]any {
	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": truncate(fmt.Sprintf("*Enrichment error*\n```%s```", err), maxSectionLen),
		},
	}
}

func contextBlock(m *notify.Message) map[string]any {
	ts := m.Record.Timestamp
	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("argus • alert %s • %s", m.Record.ID, ts.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func priorityEmoji(priority string) string {
	switch strings.ToLower(priority) {
	case "emergency", "alert", "critical":
		return "\U0001f534" // red circle
	case "error", "warning":
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
