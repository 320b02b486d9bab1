// Package notify tells participants about application status changes.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/influencer-campaigns/backend/internal/events"
	"github.com/influencer-campaigns/backend/internal/models"
)

// Result reports the outcome of a dispatch. Callers log failures; they never
// propagate them.
type Result struct {
	Success bool
	Error   error
}

// Notifier is invoked by the workflow after a status change has committed.
type Notifier interface {
	Notify(ctx context.Context, app *models.Application, oldStatus, newStatus string) Result
}

// EventNotifier publishes status changes to Redis. Delivery to LINE and to
// websocket clients happens in the subscribers.
type EventNotifier struct {
	pub events.Publisher
	log *zap.Logger
}

func NewEventNotifier(pub events.Publisher, log *zap.Logger) *EventNotifier {
	return &EventNotifier{pub: pub, log: log}
}

func (n *EventNotifier) Notify(ctx context.Context, app *models.Application, oldStatus, newStatus string) Result {
	ev := StatusChangedEvent(app, oldStatus, newStatus, time.Now().UTC())
	if err := n.pub.Publish(ctx, events.StreamApplication, ev); err != nil {
		return Result{Error: err}
	}
	return Result{Success: true}
}

// StatusChangedEvent builds the event published for a status change.
func StatusChangedEvent(app *models.Application, oldStatus, newStatus string, at time.Time) events.Event {
	return events.Event{
		Type: events.EventApplicationStatusChanged,
		Payload: map[string]any{
			"application_id": app.ID.String(),
			"campaign_id":    app.CampaignID.String(),
			"user_id":        app.UserID.String(),
			"old_status":     oldStatus,
			"new_status":     newStatus,
			"changed_at":     at.Format(time.RFC3339),
		},
	}
}

// Nop drops every notification. Used when Redis is not configured.
type Nop struct{}

func (Nop) Notify(context.Context, *models.Application, string, string) Result {
	return Result{Success: true}
}
