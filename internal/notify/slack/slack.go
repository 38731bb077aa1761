// Package slack posts emergency consultation alerts to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/sahayak/internal/consult"
	"github.com/linnemanlabs/sahayak/internal/triage"
)

const (
	maxTextLen  = 2000
	httpTimeout = 10 * time.Second
)

// Notifier sends consultations to a Slack webhook. It satisfies consult.Notifier.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     log.Logger
}

var _ consult.Notifier = (*Notifier)(nil)

// New creates a new Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string, logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
		logger:     logger,
	}
}

// Enabled reports whether a webhook is configured.
func (n *Notifier) Enabled() bool { return n.webhookURL != "" }

// Send posts a consultation to the configured Slack webhook.
func (n *Notifier) Send(ctx context.Context, c *consult.Consultation) error {
	if n.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(buildMessage(c))
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

	n.logger.Info(ctx, "slack notification sent", "consultation_id", c.ID, "severity", c.Severity)
	return nil
}

func buildMessage(c *consult.Consultation) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(c),
			{"type": "divider"},
			fieldsBlock(c),
			{"type": "divider"},
			textBlock("Explanation", c.Explanation),
			textBlock("Guidance (বাংলা)", c.GuidanceBN),
			textBlock("Guidance", c.GuidanceEN),
			{"type": "divider"},
			contextBlock(c),
		},
	}
}

func headerBlock(c *consult.Consultation) map[string]any {
	title := "Triage"
	if c.Emergency() {
		title = "Emergency Triage"
	}
	text := fmt.Sprintf("%s %s", severityEmoji(c.Severity), title)
	if c.TriggeredBy != "" {
		text += ": " + c.TriggeredBy
	}

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(c *consult.Consultation) map[string]any {
	ids := make([]string, 0, len(c.Symptoms))
	for _, s := range c.Symptoms {
		ids = append(ids, s.ID)
	}
	source := string(c.Provenance)
	if c.Model != "" {
		source += " (" + shortModel(c.Model) + ")"
	}

	fields := []map[string]any{
		{"type": "mrkdwn", "text": fmt.Sprintf("*Severity:* %s", c.Severity)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Age:* %d", c.Age)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Symptoms:* %s", truncate(strings.Join(ids, ", "), 200))},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Duration:* %s", c.Duration)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Source:* %s", source)},
	}
	if c.FallbackReason != triage.ReasonNone {
		fields = append(fields, map[string]any{
			"type": "mrkdwn", "text": fmt.Sprintf("*Fallback:* %s", c.FallbackReason),
		})
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func textBlock(title, body string) map[string]any {
	text := truncate(body, maxTextLen)
	if text == "" {
		text = "_None._"
	}
	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*%s*\n\n%s", title, text),
		},
	}
}

func contextBlock(c *consult.Consultation) map[string]any {
	return map[string]any{
		"type": "context",
		"elements": []map[string]any{
			{
				"type": "mrkdwn",
				"text": fmt.Sprintf("sahayak • consultation %s • %s", c.ID, c.CreatedAt.UTC().Format("2006-01-02 15:04 UTC")),
			},
		},
	}
}

func severityEmoji(s triage.Severity) string {
	switch s {
	case triage.SeverityEmergency:
		return "\U0001f534" // red circle
	case triage.SeverityModerate:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

// dateModelRe matches model names ending with a YYYYMMDD date suffix.
var dateModelRe = regexp.MustCompile(`-\d{8}$`)

func shortModel(model string) string {
	return dateModelRe.ReplaceAllString(model, "")
}

// truncate cuts s to at most limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
