package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"fieldops/internal/model"
)

// EscalationNotifier is told when a job becomes ESCALATED.
type EscalationNotifier interface {
	JobEscalated(ctx context.Context, job *model.Job, remarks string) error
}

type slackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier posts escalations to a Slack channel.
type SlackNotifier struct {
	client    slackPoster
	channelID string
}

var _ EscalationNotifier = (*SlackNotifier)(nil)

// NewSlackNotifier returns nil when token or channel is empty, which callers
// treat as "escalation notices disabled".
func NewSlackNotifier(token, channelID string) *SlackNotifier {
	if token == "" || channelID == "" {
		return nil
	}
	return &SlackNotifier{client: slack.New(token), channelID: channelID}
}

func (s *SlackNotifier) JobEscalated(ctx context.Context, job *model.Job, remarks string) error {
	if s == nil {
		return nil
	}
	_, _, err := s.client.PostMessageContext(ctx, s.channelID,
		slack.MsgOptionText(formatEscalation(job, remarks), false),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		return fmt.Errorf("failed to post message to Slack: %w", err)
	}
	return nil
}

func formatEscalation(job *model.Job, remarks string) string {
	var b strings.Builder
	fmt.Fprintf(&b, ":rotating_light: *Job #%d escalated*\n", job.ID)
	fmt.Fprintf(&b, "Vehicle: %s (%s)", job.VehicleReg, job.JobType)
	if job.Location != "" {
		fmt.Fprintf(&b, "\nLocation: %s", job.Location)
	}
	if job.Technician != nil {
		fmt.Fprintf(&b, "\nTechnician: %s", job.Technician.Name)
	}
	if remarks != "" {
		fmt.Fprintf(&b, "\nRemarks: %s", remarks)
	}
	return b.String()
}
