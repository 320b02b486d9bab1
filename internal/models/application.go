package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Application statuses
const (
	ApplicationStatusWaiting            = "WAITING"
	ApplicationStatusApproved           = "APPROVED"
	ApplicationStatusWorkInProgress     = "WORK_IN_PROGRESS"
	ApplicationStatusSubmittedScript    = "SUBMITTED_SCRIPT"
	ApplicationStatusScriptApproved     = "SCRIPT_APPROVED"
	ApplicationStatusReviseScript       = "REVISE_SCRIPT"
	ApplicationStatusSubmittedDraft     = "SUBMITTED_DRAFT"
	ApplicationStatusDraftApproved      = "DRAFT_APPROVED"
	ApplicationStatusReviseDraft        = "REVISE_DRAFT"
	ApplicationStatusSubmittedFinal     = "SUBMITTED_FINAL"
	ApplicationStatusFinalApproved      = "FINAL_APPROVED"
	ApplicationStatusReviseFinal        = "REVISE_FINAL"
	ApplicationStatusSubmittedInsight   = "SUBMITTED_INSIGHT"
	ApplicationStatusReviseInsight      = "REVISE_INSIGHT"
	ApplicationStatusInsightApproved    = "INSIGHT_APPROVED" // legacy rows only
	ApplicationStatusCompleted          = "COMPLETED"
	ApplicationStatusReadyToPay         = "READY_TO_PAY" // legacy, payable
	ApplicationStatusPaymentTransferred = "PAYMENT_TRANSFERRED"
	ApplicationStatusRejected           = "REJECTED"
)

var AllApplicationStatuses = []string{
	ApplicationStatusWaiting, ApplicationStatusApproved, ApplicationStatusWorkInProgress,
	ApplicationStatusSubmittedScript, ApplicationStatusScriptApproved, ApplicationStatusReviseScript,
	ApplicationStatusSubmittedDraft, ApplicationStatusDraftApproved, ApplicationStatusReviseDraft,
	ApplicationStatusSubmittedFinal, ApplicationStatusFinalApproved, ApplicationStatusReviseFinal,
	ApplicationStatusSubmittedInsight, ApplicationStatusReviseInsight, ApplicationStatusInsightApproved,
	ApplicationStatusCompleted, ApplicationStatusReadyToPay, ApplicationStatusPaymentTransferred,
	ApplicationStatusRejected,
}

// StageRule is the slice of the state machine owned by one stage.
type StageRule struct {
	SubmitFrom []string
	Submitted  string
	Approved   string
	Revise     string
}

var StageRules = map[Stage]StageRule{
	StageScript: {
		SubmitFrom: []string{ApplicationStatusApproved, ApplicationStatusWorkInProgress, ApplicationStatusReviseScript},
		Submitted:  ApplicationStatusSubmittedScript,
		Approved:   ApplicationStatusScriptApproved,
		Revise:     ApplicationStatusReviseScript,
	},
	StageDraft: {
		SubmitFrom: []string{ApplicationStatusScriptApproved, ApplicationStatusReviseDraft},
		Submitted:  ApplicationStatusSubmittedDraft,
		Approved:   ApplicationStatusDraftApproved,
		Revise:     ApplicationStatusReviseDraft,
	},
	StageFinal: {
		SubmitFrom: []string{ApplicationStatusDraftApproved, ApplicationStatusReviseFinal},
		Submitted:  ApplicationStatusSubmittedFinal,
		Approved:   ApplicationStatusFinalApproved,
		Revise:     ApplicationStatusReviseFinal,
	},
	StageInsight: {
		SubmitFrom: []string{ApplicationStatusFinalApproved, ApplicationStatusReviseInsight},
		Submitted:  ApplicationStatusSubmittedInsight,
		Approved:   ApplicationStatusCompleted,
		Revise:     ApplicationStatusReviseInsight,
	},
}

// PayableStatuses are the states a payout may be confirmed from.
var PayableStatuses = []string{ApplicationStatusCompleted, ApplicationStatusReadyToPay}

// Valid state transitions: from -> []to
var ValidApplicationTransitions = map[string][]string{
	ApplicationStatusWaiting:            {ApplicationStatusApproved, ApplicationStatusRejected},
	ApplicationStatusApproved:           {ApplicationStatusWorkInProgress, ApplicationStatusSubmittedScript},
	ApplicationStatusWorkInProgress:     {ApplicationStatusSubmittedScript},
	ApplicationStatusSubmittedScript:    {ApplicationStatusScriptApproved, ApplicationStatusReviseScript},
	ApplicationStatusScriptApproved:     {ApplicationStatusSubmittedDraft},
	ApplicationStatusReviseScript:       {ApplicationStatusSubmittedScript},
	ApplicationStatusSubmittedDraft:     {ApplicationStatusDraftApproved, ApplicationStatusReviseDraft},
	ApplicationStatusDraftApproved:      {ApplicationStatusSubmittedFinal},
	ApplicationStatusReviseDraft:        {ApplicationStatusSubmittedDraft},
	ApplicationStatusSubmittedFinal:     {ApplicationStatusFinalApproved, ApplicationStatusReviseFinal},
	ApplicationStatusFinalApproved:      {ApplicationStatusSubmittedInsight},
	ApplicationStatusReviseFinal:        {ApplicationStatusSubmittedFinal},
	ApplicationStatusSubmittedInsight:   {ApplicationStatusCompleted, ApplicationStatusReviseInsight},
	ApplicationStatusReviseInsight:      {ApplicationStatusSubmittedInsight},
	ApplicationStatusInsightApproved:    {},
	ApplicationStatusCompleted:          {ApplicationStatusPaymentTransferred},
	ApplicationStatusReadyToPay:         {ApplicationStatusPaymentTransferred},
	ApplicationStatusPaymentTransferred: {},
	ApplicationStatusRejected:           {},
}

func IsValidTransition(from, to string) bool {
	allowed, ok := ValidApplicationTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

func IsValidStatus(status string) bool {
	_, ok := ValidApplicationTransitions[status]
	return ok
}

func IsPayable(status string) bool {
	return contains(PayableStatuses, status)
}

// CanSubmit reports whether the stage accepts a submission from status.
func CanSubmit(stage Stage, status string) bool {
	rule, ok := StageRules[stage]
	return ok && contains(rule.SubmitFrom, status)
}

// CanReview reports whether the stage has a submission awaiting review.
func CanReview(stage Stage, status string) bool {
	rule, ok := StageRules[stage]
	return ok && rule.Submitted == status
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type Application struct {
	ID              uuid.UUID            `json:"id"`
	CampaignID      uuid.UUID            `json:"campaign_id"`
	UserID          uuid.UUID            `json:"user_id"`
	Status          string               `json:"status"`
	ApplicationNote string               `json:"application_note,omitempty"`
	Submissions     Submissions          `json:"submission_data"`
	Insight         SingleSlotSubmission `json:"insight"`
	AdminNotes      string               `json:"admin_notes,omitempty"`
	PaymentSlipURL  *string              `json:"payment_slip_url,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// ApplicationWithCampaign embeds Application and adds campaign info to avoid N+1 queries.
type ApplicationWithCampaign struct {
	Application
	CampaignTitle  string          `json:"campaign_title"`
	CampaignBudget decimal.Decimal `json:"campaign_budget"`
}

// Clone returns a deep copy; the revision ledger is not shared.
func (a *Application) Clone() *Application {
	out := *a
	out.Submissions = a.Submissions.clone()
	out.Insight = a.Insight.clone()
	if a.PaymentSlipURL != nil {
		u := *a.PaymentSlipURL
		out.PaymentSlipURL = &u
	}
	return &out
}

// CurrentStage maps the status onto the pipeline step the participant is on:
// brief, script, draft, final, insight or payment. Empty for REJECTED.
func (a *Application) CurrentStage() string {
	switch a.Status {
	case ApplicationStatusWaiting, ApplicationStatusApproved, ApplicationStatusWorkInProgress:
		return "brief"
	case ApplicationStatusSubmittedScript, ApplicationStatusReviseScript:
		return string(StageScript)
	case ApplicationStatusScriptApproved, ApplicationStatusSubmittedDraft, ApplicationStatusReviseDraft:
		return string(StageDraft)
	case ApplicationStatusDraftApproved, ApplicationStatusSubmittedFinal, ApplicationStatusReviseFinal:
		return string(StageFinal)
	case ApplicationStatusFinalApproved, ApplicationStatusSubmittedInsight, ApplicationStatusReviseInsight:
		return string(StageInsight)
	case ApplicationStatusInsightApproved, ApplicationStatusCompleted,
		ApplicationStatusReadyToPay, ApplicationStatusPaymentTransferred:
		return "payment"
	}
	return ""
}

// IsWorking is true while the participant owes a submission.
func (a *Application) IsWorking() bool {
	switch a.Status {
	case ApplicationStatusApproved, ApplicationStatusWorkInProgress,
		ApplicationStatusScriptApproved, ApplicationStatusDraftApproved, ApplicationStatusFinalApproved,
		ApplicationStatusReviseScript, ApplicationStatusReviseDraft, ApplicationStatusReviseFinal,
		ApplicationStatusReviseInsight:
		return true
	}
	return false
}

// IsPendingReview is true while an admin owes a decision.
func (a *Application) IsPendingReview() bool {
	switch a.Status {
	case ApplicationStatusWaiting, ApplicationStatusSubmittedScript, ApplicationStatusSubmittedDraft,
		ApplicationStatusSubmittedFinal, ApplicationStatusSubmittedInsight:
		return true
	}
	return false
}

// ApplicationFilter narrows admin listings.
type ApplicationFilter struct {
	CampaignID *uuid.UUID
	UserID     *uuid.UUID
	Status     string
	Limit      int
	Offset     int
}
