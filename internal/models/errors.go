package models

import "errors"

var (
	ErrMaxAttemptsExceeded      = errors.New("maximum submission attempts reached for this stage")
	ErrInvalidStageTransition   = errors.New("operation not allowed from current application status")
	ErrImmutableLedgerViolation = errors.New("ledger records cannot be modified or deleted")
	ErrMissingProofReference    = errors.New("proof reference (bank slip id) is required")
	ErrInsufficientJobValue     = errors.New("job value must be greater than zero")
	ErrNothingToSettle          = errors.New("no unclaimed revenue to settle")

	ErrNotFound             = errors.New("not found")
	ErrDuplicateApplication = errors.New("participant already applied to this campaign")
	ErrCampaignNotOpen      = errors.New("campaign is not accepting applications")
	ErrWalletFrozen         = errors.New("participant wallet is frozen")
	ErrInvalidStage         = errors.New("unknown workflow stage")
	ErrNoSubmission         = errors.New("stage has no submission to review")
	ErrInvalidSubmission    = errors.New("submission is missing required content")
	ErrInvalidAmount        = errors.New("amount must have at most two decimal places")
	ErrForbidden            = errors.New("action not permitted for this user")
)
