package dto

// Error codes returned in ErrorResponse.Code
const (
	CodeBadRequest               = "bad_request"
	CodeUnauthorized             = "unauthorized"
	CodeForbidden                = "forbidden"
	CodeNotFound                 = "not_found"
	CodeRateLimited              = "rate_limited"
	CodeInternal                 = "internal_error"
	CodeMaxAttemptsExceeded      = "max_attempts_exceeded"
	CodeInvalidStageTransition   = "invalid_stage_transition"
	CodeImmutableLedgerViolation = "immutable_ledger_violation"
	CodeMissingProofReference    = "missing_proof_reference"
	CodeInsufficientJobValue     = "insufficient_job_value"
	CodeNothingToSettle          = "nothing_to_settle"
	CodeDuplicateApplication     = "duplicate_application"
	CodeCampaignNotOpen          = "campaign_not_open"
	CodeWalletFrozen             = "wallet_frozen"
	CodeInvalidStage             = "invalid_stage"
	CodeInvalidSubmission        = "invalid_submission"
	CodeInvalidAmount            = "invalid_amount"
	CodeFileTooLarge             = "file_too_large"
	CodeUnsupportedFileType      = "unsupported_file_type"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type SettleResponse struct {
	Settlement any `json:"settlement"`
	Settled    int `json:"settled_rows"`
}

// ItemError reports one failed item of a bulk request.
type ItemError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

type BulkPayoutResponse struct {
	ProcessedCount int         `json:"processed_count"`
	Payouts        any         `json:"payouts"`
	Errors         []ItemError `json:"errors"`
}

type StageInfo struct {
	Stage        string `json:"stage"`
	HasRevisions bool   `json:"has_revisions"`
	MaxRounds    int    `json:"max_rounds,omitempty"`
}
