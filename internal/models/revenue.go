package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Settlement statuses of platform revenue
const (
	RevenueStatusUnclaimed = "UNCLAIMED"
	RevenueStatusPending   = "PENDING"
	RevenueStatusSettled   = "SETTLED"
)

// PlatformRevenue is the fee side of one payout. Only the settlement link changes after insert.
type PlatformRevenue struct {
	ID               uuid.UUID       `json:"id"`
	TransactionID    uuid.UUID       `json:"transaction_id"`
	ApplicationID    uuid.UUID       `json:"application_id"`
	GrossAmount      decimal.Decimal `json:"gross_amount"`
	PlatformFee      decimal.Decimal `json:"platform_fee"`
	NetPayout        decimal.Decimal `json:"net_payout"`
	VATAmount        decimal.Decimal `json:"vat_amount"`
	WHTAmount        decimal.Decimal `json:"wht_amount"`
	SettlementStatus string          `json:"settlement_status"`
	SettlementID     *uuid.UUID      `json:"settlement_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

type Settlement struct {
	ID          uuid.UUID       `json:"id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Note        string          `json:"note,omitempty"`
	CreatedBy   *uuid.UUID      `json:"created_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// RevenueTotals aggregates PlatformRevenue for the finance dashboard.
type RevenueTotals struct {
	GMV       decimal.Decimal `json:"total_gmv"`
	Revenue   decimal.Decimal `json:"total_revenue"`
	Payouts   decimal.Decimal `json:"total_payouts"`
	VAT       decimal.Decimal `json:"total_vat"`
	Count     int             `json:"transaction_count"`
	Unclaimed decimal.Decimal `json:"unclaimed_revenue"`
}
