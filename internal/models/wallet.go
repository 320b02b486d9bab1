package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	WalletStatusActive = "ACTIVE"
	WalletStatusFrozen = "FROZEN"
)

// Wallet is bookkeeping only; the ledger is the source of truth for money.
type Wallet struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (w *Wallet) IsFrozen() bool {
	return w.Status == WalletStatusFrozen
}
