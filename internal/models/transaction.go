package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction types
const (
	TransactionTypeDeposit    = "DEPOSIT"
	TransactionTypePayout     = "PAYOUT"
	TransactionTypeServiceFee = "SERVICE_FEE"
	TransactionTypeVAT        = "VAT"
	TransactionTypeWithdrawal = "WITHDRAWAL"
	TransactionTypeRefund     = "REFUND"
)

// Transaction statuses
const (
	TransactionStatusPending   = "PENDING"
	TransactionStatusCompleted = "COMPLETED"
	TransactionStatusFailed    = "FAILED"
)

// Transaction is a ledger entry. Completed entries are never changed or deleted.
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	ApplicationID *uuid.UUID      `json:"application_id,omitempty"`
	SenderID      *uuid.UUID      `json:"sender_id,omitempty"`
	ReceiverID    *uuid.UUID      `json:"receiver_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Type          string          `json:"transaction_type"`
	Status        string          `json:"status"`
	ReferenceNote string          `json:"reference_note"`
	Description   string          `json:"description,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (t *Transaction) IsCompleted() bool {
	return t.Status == TransactionStatusCompleted
}

type TransactionFilter struct {
	ApplicationID *uuid.UUID
	Type          string
	Status        string
	Limit         int
	Offset        int
}
