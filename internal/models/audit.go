package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions
const (
	AuditActionApply           = "application.apply"
	AuditActionReview          = "application.review"
	AuditActionStartWork       = "application.start_work"
	AuditActionSubmitWork      = "application.submit"
	AuditActionApproveStage    = "application.approve_stage"
	AuditActionRequestRevision = "application.request_revision"
	AuditActionUpdateNotes     = "application.update_notes"
	AuditActionDelete          = "application.delete"
	AuditActionConfirmPayout   = "finance.confirm_payout"
	AuditActionSettleRevenue   = "finance.settle_revenue"
	AuditActionFreezeWallet    = "wallet.freeze"
	AuditActionUnfreezeWallet  = "wallet.unfreeze"
	AuditActionCampaignCreate  = "campaign.create"
	AuditActionCampaignUpdate  = "campaign.update"
	AuditActionLedgerViolation = "ledger.violation"
)

type AuditLog struct {
	ID          uuid.UUID  `json:"id"`
	ActorUserID *uuid.UUID `json:"actor_user_id,omitempty"`
	ActorType   string     `json:"actor_type"` // user/admin/system
	Action      string     `json:"action"`
	EntityType  string     `json:"entity_type"`
	EntityID    *uuid.UUID `json:"entity_id,omitempty"`
	Meta        any        `json:"meta,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
