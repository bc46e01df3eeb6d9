package observability

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/valter-silva-au/maestro/pkg/models"
)

// Notifier sends run summaries and alerts to external channels.
type Notifier interface {
	Notify(summary models.ExecutionSummary, alerts []Alert) error
}

// slackNotifier posts to a Slack incoming webhook.
type slackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier creates a Notifier that posts to the given Slack webhook URL.
func NewSlackNotifier(webhookURL string) Notifier {
	return &slackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type slackMessage struct {
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

// Notify sends the run summary followed by any alerts.
func (s *slackNotifier) Notify(summary models.ExecutionSummary, alerts []Alert) error {
	body, err := json.Marshal(s.buildMessage(summary, alerts))
	if err != nil {
		return fmt.Errorf("marshaling slack message: %w", err)
	}

	resp, err := s.client.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("posting to slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *slackNotifier) buildMessage(summary models.ExecutionSummary, alerts []Alert) slackMessage {
	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: "Maestro Run Summary"},
		},
		{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: fmt.Sprintf(
				"*Run:* `%s`\n*Tasks:* %d/%d succeeded (%d%%)\n*Duration:* %s\n*Output:* `%s`",
				summary.RunID,
				summary.SuccessCount,
				summary.TotalTasks,
				summary.SuccessRate(),
				summary.Duration.Round(time.Millisecond),
				summary.OutputDir,
			)},
		},
	}

	var failed []string
	for _, r := range summary.Results {
		if !r.Succeeded() {
			failed = append(failed, fmt.Sprintf("• %s: %s", r.TaskTitle, r.Notes))
		}
	}
	if len(failed) > 0 {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: "*Failed tasks*\n" + strings.Join(failed, "\n")},
		})
	}

	for _, alert := range alerts {
		blocks = append(blocks, slackBlock{Type: "divider"})
		text := fmt.Sprintf("%s *[%s]* %s\n_%s_",
			severityEmoji(alert.Severity),
			strings.ToUpper(string(alert.Severity)),
			alert.Message,
			alert.TriggeredAt.Format("2006-01-02 15:04 UTC"),
		)
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: text},
		})
	}

	return slackMessage{Blocks: blocks}
}

func severityEmoji(severity AlertSeverity) string {
	switch severity {
	case SeverityHigh:
		return "\U0001f534"
	case SeverityMedium:
		return "\U0001f7e1"
	case SeverityLow:
		return "\U0001f535"
	default:
		return "❓"
	}
}
