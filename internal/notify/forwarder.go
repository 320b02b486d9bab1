package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/influencer-campaigns/backend/internal/events"
	"github.com/influencer-campaigns/backend/internal/repositories"
)

// Pusher delivers a text message to a LINE user.
type Pusher interface {
	PushText(ctx context.Context, lineUserID, text string) error
}

// LineForwarder turns application status events into LINE push messages.
type LineForwarder struct {
	repos  repositories.Repos
	pusher Pusher
	log    *zap.Logger
}

func NewLineForwarder(repos repositories.Repos, pusher Pusher, log *zap.Logger) *LineForwarder {
	return &LineForwarder{repos: repos, pusher: pusher, log: log}
}

// Handle returns (false, nil) when the event needs no message.
func (f *LineForwarder) Handle(ctx context.Context, ev events.Event) (bool, error) {
	if ev.Type != events.EventApplicationStatusChanged {
		return false, nil
	}
	userID, err := uuid.Parse(ev.String("user_id"))
	if err != nil {
		return false, fmt.Errorf("event user_id: %w", err)
	}
	campaignID, err := uuid.Parse(ev.String("campaign_id"))
	if err != nil {
		return false, fmt.Errorf("event campaign_id: %w", err)
	}

	user, err := f.repos.Users().GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load user %s: %w", userID, err)
	}
	if user.LineUserID == nil || *user.LineUserID == "" {
		return false, nil
	}

	campaign, err := f.repos.Campaigns().GetByID(ctx, campaignID)
	if err != nil {
		return false, fmt.Errorf("load campaign %s: %w", campaignID, err)
	}

	text, ok := StatusMessage(ev.String("new_status"), campaign.Title)
	if !ok {
		return false, nil
	}
	if err := f.pusher.PushText(ctx, *user.LineUserID, text); err != nil {
		return false, err
	}
	f.log.Info("line notification sent",
		zap.String("application_id", ev.String("application_id")),
		zap.String("status", ev.String("new_status")))
	return true, nil
}
