package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Campaign statuses. Deadline-driven and monotonic; moved by admins only.
const (
	CampaignStatusDraft      = "DRAFT"
	CampaignStatusOpen       = "OPEN"
	CampaignStatusInProgress = "IN_PROGRESS"
	CampaignStatusClosed     = "CLOSED"
)

var campaignStatusOrder = map[string]int{
	CampaignStatusDraft:      0,
	CampaignStatusOpen:       1,
	CampaignStatusInProgress: 2,
	CampaignStatusClosed:     3,
}

// IsValidCampaignProgression rejects unknown statuses and regressions.
func IsValidCampaignProgression(from, to string) bool {
	f, ok := campaignStatusOrder[from]
	if !ok {
		return false
	}
	t, ok := campaignStatusOrder[to]
	return ok && t >= f
}

type Campaign struct {
	ID                  uuid.UUID       `json:"id"`
	Title               string          `json:"title"`
	BrandName           string          `json:"brand_name"`
	Description         *string         `json:"description,omitempty"`
	Budget              decimal.Decimal `json:"budget"`
	ApplicationDeadline *time.Time      `json:"application_deadline,omitempty"`
	ContentDeadline     *time.Time      `json:"content_deadline,omitempty"`
	ScriptDeadline      *time.Time      `json:"script_deadline,omitempty"`
	DraftDeadline       *time.Time      `json:"draft_deadline,omitempty"`
	FinalDeadline       *time.Time      `json:"final_deadline,omitempty"`
	InsightDeadline     *time.Time      `json:"insight_deadline,omitempty"`
	Status              string          `json:"status"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}
