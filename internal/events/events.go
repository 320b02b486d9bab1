package events

import "context"

// Event types
const (
	EventApplicationStatusChanged = "application_status_changed"
	EventPayoutConfirmed          = "payout_confirmed"
	EventRevenueSettled           = "revenue_settled"
)

// Streams
const (
	StreamApplication = "events:application"
	StreamFinance     = "events:finance"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// String returns a payload field, or "" when absent or not a string.
func (e Event) String(key string) string {
	v, _ := e.Payload[key].(string)
	return v
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
