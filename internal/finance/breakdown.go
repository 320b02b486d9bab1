// Package finance derives the money figures of a payout from the net amount
// paid to the participant.
package finance

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/influencer-campaigns/backend/internal/models"
)

// Rates are fractions, e.g. 0.10 for a 10% platform fee.
type Rates struct {
	PlatformFee    decimal.Decimal
	VAT            decimal.Decimal
	WithholdingTax decimal.Decimal
}

func DefaultRates() Rates {
	return Rates{
		PlatformFee:    decimal.RequireFromString("0.10"),
		VAT:            decimal.RequireFromString("0.07"),
		WithholdingTax: decimal.RequireFromString("0.03"),
	}
}

// ParseRates builds Rates from their decimal string form.
func ParseRates(fee, vat, wht string) (Rates, error) {
	var r Rates
	var err error
	if r.PlatformFee, err = decimal.NewFromString(fee); err != nil {
		return Rates{}, fmt.Errorf("platform fee rate %q: %w", fee, err)
	}
	if r.VAT, err = decimal.NewFromString(vat); err != nil {
		return Rates{}, fmt.Errorf("vat rate %q: %w", vat, err)
	}
	if r.WithholdingTax, err = decimal.NewFromString(wht); err != nil {
		return Rates{}, fmt.Errorf("withholding tax rate %q: %w", wht, err)
	}
	return r, r.Validate()
}

func (r Rates) Validate() error {
	one := decimal.NewFromInt(1)
	if r.PlatformFee.IsNegative() || r.PlatformFee.GreaterThanOrEqual(one) {
		return fmt.Errorf("platform fee rate must be in [0, 1), got %s", r.PlatformFee)
	}
	if r.VAT.IsNegative() || r.WithholdingTax.IsNegative() {
		return fmt.Errorf("tax rates must not be negative")
	}
	return nil
}

type Breakdown struct {
	Gross decimal.Decimal `json:"gross_amount"`
	Fee   decimal.Decimal `json:"platform_fee"`
	Net   decimal.Decimal `json:"net_payout"`
	VAT   decimal.Decimal `json:"vat_amount"`
	WHT   decimal.Decimal `json:"wht_amount"`
}

// Calculate treats net as the amount the participant receives and inflates
// it by the platform fee: gross = net / (1 - fee). Net must already be in
// cents; derived figures are rounded half-even to two decimals.
func Calculate(net decimal.Decimal, rates Rates, includeVAT, includeWHT bool) (Breakdown, error) {
	if !net.IsPositive() {
		return Breakdown{}, fmt.Errorf("%w: net %s", models.ErrInsufficientJobValue, net.StringFixed(2))
	}
	if err := rates.Validate(); err != nil {
		return Breakdown{}, err
	}

	if !net.Equal(net.Round(2)) {
		return Breakdown{}, fmt.Errorf("%w: net %s", models.ErrInvalidAmount, net)
	}
	net = net.Round(2)
	divisor := decimal.NewFromInt(1).Sub(rates.PlatformFee)
	gross := net.DivRound(divisor, 16).RoundBank(2)
	fee := gross.Sub(net)

	b := Breakdown{
		Gross: gross,
		Fee:   fee,
		Net:   net,
		VAT:   decimal.Zero,
		WHT:   decimal.Zero,
	}
	if includeVAT {
		b.VAT = fee.Mul(rates.VAT).RoundBank(2)
	}
	if includeWHT {
		b.WHT = net.Mul(rates.WithholdingTax).RoundBank(2)
	}
	return b, nil
}
