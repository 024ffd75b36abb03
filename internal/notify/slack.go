package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

// Slack posts events to an incoming webhook.
type Slack struct {
	webhookURL string
	client     *http.Client
	logger     zerolog.Logger
}

// NewSlack creates a Slack webhook notifier.
func NewSlack(webhookURL string, logger zerolog.Logger) *Slack {
	return &Slack{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With().Str("component", "notify").Str("sink", "slack").Logger(),
	}
}

func (s *Slack) Notify(ctx context.Context, e Event) error {
	msg := &slack.WebhookMessage{
		Text:   e.Summary(),
		Blocks: &slack.Blocks{BlockSet: EventBlocks(e)},
	}
	if err := slack.PostWebhookCustomHTTPContext(ctx, s.webhookURL, s.client, msg); err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	s.logger.Debug().Str("kind", string(e.Kind)).Int64("project_id", e.Project.ID).Msg("slack notification sent")
	return nil
}

// progressBar renders pct as ten cells.
func progressBar(pct int) string {
	filled := pct / 10
	if filled > 10 {
		filled = 10
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("▰", filled) + strings.Repeat("▱", 10-filled)
}

// EventBlocks builds the Block Kit message for e.
func EventBlocks(e Event) []slack.Block {
	var header, body string
	switch e.Kind {
	case KindProjectCompleted:
		header = "🏆 Project complete"
		body = fmt.Sprintf("*%s*\nAll %d tasks done. %d XP earned.", e.Project.Name, e.Stats.TotalTasks, e.Stats.EarnedXP)
	default:
		header = "⭐ Quest complete"
		if e.Task != nil {
			body = fmt.Sprintf("*%s* (+%d XP, %s)\nProject: %s", e.Task.Name, e.Task.XP, e.Task.Difficulty, e.Project.Name)
		} else {
			body = "Project: " + e.Project.Name
		}
	}

	return []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, header, true, false)),
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, body, false, false), nil, nil),
		slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("%s %d%% · %d/%d XP", progressBar(e.Stats.Progress), e.Stats.Progress, e.Stats.EarnedXP, e.Stats.TotalXP),
				false, false),
		),
	}
}
