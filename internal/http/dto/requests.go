package dto

import "time"

type ApplyRequest struct {
	Note string `json:"note"`
}

type ReviewApplicationRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason,omitempty"`
}

type SubmitWorkRequest struct {
	Link  string `json:"link"`
	Notes string `json:"notes,omitempty"`
	// Insight stage only
	Image string   `json:"image,omitempty"`
	Files []string `json:"files,omitempty"`
}

type StageFeedbackRequest struct {
	Feedback string `json:"feedback,omitempty"`
}

type UpdateNotesRequest struct {
	AdminNotes string `json:"admin_notes"`
}

// ConfirmPayoutRequest is also accepted as multipart form fields next to a "slip" file.
type ConfirmPayoutRequest struct {
	ProofReference string `json:"proof_reference" form:"proof_reference"`
	IncludeVAT     bool   `json:"include_vat" form:"include_vat"`
	IncludeWHT     bool   `json:"include_wht" form:"include_wht"`
}

type SettleRevenueRequest struct {
	Note string `json:"note,omitempty"`
}

type FreezeWalletRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Campaigns

type CreateCampaignRequest struct {
	Title               string     `json:"title"`
	BrandName           string     `json:"brand_name"`
	Description         *string    `json:"description,omitempty"`
	Budget              string     `json:"budget"`
	Status              string     `json:"status,omitempty"`
	ApplicationDeadline *time.Time `json:"application_deadline,omitempty"`
	ContentDeadline     *time.Time `json:"content_deadline,omitempty"`
	ScriptDeadline      *time.Time `json:"script_deadline,omitempty"`
	DraftDeadline       *time.Time `json:"draft_deadline,omitempty"`
	FinalDeadline       *time.Time `json:"final_deadline,omitempty"`
	InsightDeadline     *time.Time `json:"insight_deadline,omitempty"`
}

type UpdateCampaignRequest = CreateCampaignRequest
