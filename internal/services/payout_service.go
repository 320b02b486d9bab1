package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/influencer-campaigns/backend/internal/events"
	"github.com/influencer-campaigns/backend/internal/finance"
	"github.com/influencer-campaigns/backend/internal/models"
	"github.com/influencer-campaigns/backend/internal/notify"
	"github.com/influencer-campaigns/backend/internal/repositories"
)

// DocumentStore keeps transfer slips. Implemented by storage.LocalStore.
type DocumentStore interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

// PayoutService settles completed applications: one PAYOUT entry, one
// SERVICE_FEE entry, one revenue row and the status advance, all in one
// transaction.
type PayoutService struct {
	store    repositories.Store
	docs     DocumentStore
	notifier notify.Notifier
	pub      events.Publisher
	rates    finance.Rates
	log      *zap.Logger
}

func NewPayoutService(
	store repositories.Store,
	docs DocumentStore,
	notifier notify.Notifier,
	pub events.Publisher,
	rates finance.Rates,
	log *zap.Logger,
) *PayoutService {
	return &PayoutService{
		store:    store,
		docs:     docs,
		notifier: notifier,
		pub:      pub,
		rates:    rates,
		log:      log,
	}
}

type Slip struct {
	Filename string
	Body     io.Reader
}

type ConfirmPayoutInput struct {
	ApplicationID  uuid.UUID
	ProofReference string
	IncludeVAT     bool
	IncludeWHT     bool
	// Slip is optional. When present it is stored before the transaction and
	// removed again if the transaction fails.
	Slip *Slip
}

type PayoutResult struct {
	Application *models.Application     `json:"application"`
	Breakdown   finance.Breakdown       `json:"breakdown"`
	PayoutTx    *models.Transaction     `json:"payout_transaction"`
	FeeTx       *models.Transaction     `json:"fee_transaction"`
	Revenue     *models.PlatformRevenue `json:"revenue"`
}

// ConfirmPayout pays the participant of a COMPLETED (or legacy READY_TO_PAY)
// application the campaign budget.
func (s *PayoutService) ConfirmPayout(ctx context.Context, in ConfirmPayoutInput, actor Actor) (*PayoutResult, error) {
	ref := strings.TrimSpace(in.ProofReference)
	if ref == "" {
		return nil, models.ErrMissingProofReference
	}
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	var slipURL string
	if in.Slip != nil && in.Slip.Body != nil {
		url, err := s.docs.Save(ctx, in.Slip.Filename, in.Slip.Body)
		if err != nil {
			return nil, fmt.Errorf("store transfer slip: %w", err)
		}
		slipURL = url
	}

	var res PayoutResult
	var oldStatus string
	err := s.store.InTx(ctx, func(tx repositories.Repos) error {
		app, err := tx.Applications().GetForUpdate(ctx, in.ApplicationID)
		if err != nil {
			return err
		}
		if !models.IsPayable(app.Status) {
			return fmt.Errorf("%w: payout requires %v, application is %s",
				models.ErrInvalidStageTransition, models.PayableStatuses, app.Status)
		}
		oldStatus = app.Status

		campaign, err := tx.Campaigns().GetByID(ctx, app.CampaignID)
		if err != nil {
			return fmt.Errorf("campaign %s: %w", app.CampaignID, err)
		}
		b, err := finance.Calculate(campaign.Budget, s.rates, in.IncludeVAT, in.IncludeWHT)
		if err != nil {
			return err
		}
		if !b.Fee.IsPositive() {
			return fmt.Errorf("%w: platform fee on %s rounds to zero", models.ErrInsufficientJobValue, b.Net.StringFixed(2))
		}

		wallet, err := tx.Wallets().GetByUserID(ctx, app.UserID)
		switch {
		case errors.Is(err, models.ErrNotFound):
		case err != nil:
			return err
		case wallet.IsFrozen():
			return fmt.Errorf("%w: participant %s", models.ErrWalletFrozen, app.UserID)
		}

		appID, userID := app.ID, app.UserID
		payout := &models.Transaction{
			ApplicationID: &appID,
			ReceiverID:    &userID,
			Amount:        b.Net,
			Type:          models.TransactionTypePayout,
			Status:        models.TransactionStatusCompleted,
			ReferenceNote: ref,
			Description:   fmt.Sprintf("Payout for %s", campaign.Title),
		}
		if err := tx.Ledger().Create(ctx, payout); err != nil {
			return fmt.Errorf("record payout: %w", err)
		}

		fee := &models.Transaction{
			ApplicationID: &appID,
			SenderID:      &userID,
			Amount:        b.Fee,
			Type:          models.TransactionTypeServiceFee,
			Status:        models.TransactionStatusCompleted,
			ReferenceNote: ref,
			Description:   fmt.Sprintf("Platform fee for %s", campaign.Title),
		}
		if err := tx.Ledger().Create(ctx, fee); err != nil {
			return fmt.Errorf("record service fee: %w", err)
		}

		rev := &models.PlatformRevenue{
			TransactionID:    fee.ID,
			ApplicationID:    appID,
			GrossAmount:      b.Gross,
			PlatformFee:      b.Fee,
			NetPayout:        b.Net,
			VATAmount:        b.VAT,
			WHTAmount:        b.WHT,
			SettlementStatus: models.RevenueStatusUnclaimed,
		}
		if err := tx.Revenue().Create(ctx, rev); err != nil {
			return fmt.Errorf("record revenue: %w", err)
		}

		app.Status = models.ApplicationStatusPaymentTransferred
		if slipURL != "" {
			app.PaymentSlipURL = &slipURL
		}
		if err := tx.Applications().Save(ctx, app); err != nil {
			return err
		}

		if err := tx.Audit().Log(ctx, auditEntry(actor, models.AuditActionConfirmPayout, "application", appID, map[string]any{
			"proof_reference": ref,
			"gross":           b.Gross.StringFixed(2),
			"fee":             b.Fee.StringFixed(2),
			"net":             b.Net.StringFixed(2),
			"vat":             b.VAT.StringFixed(2),
			"wht":             b.WHT.StringFixed(2),
		})); err != nil {
			return err
		}

		res = PayoutResult{Application: app, Breakdown: b, PayoutTx: payout, FeeTx: fee, Revenue: rev}
		return nil
	})
	if err != nil {
		if slipURL != "" {
			if derr := s.docs.Delete(ctx, slipURL); derr != nil {
				s.log.Warn("failed to remove orphaned slip", zap.String("url", slipURL), zap.Error(derr))
			}
		}
		if errors.Is(err, models.ErrImmutableLedgerViolation) {
			s.log.Error("ledger integrity violation during payout",
				zap.String("application_id", in.ApplicationID.String()), zap.Error(err))
		}
		return nil, err
	}

	s.log.Info("payout confirmed",
		zap.String("application_id", res.Application.ID.String()),
		zap.String("proof_reference", ref),
		zap.String("net", res.Breakdown.Net.StringFixed(2)),
		zap.String("fee", res.Breakdown.Fee.StringFixed(2)))

	s.afterPayout(ctx, &res, oldStatus)
	return &res, nil
}

// afterPayout runs the best-effort side effects. Nothing here can fail the payout.
func (s *PayoutService) afterPayout(ctx context.Context, res *PayoutResult, oldStatus string) {
	app := res.Application
	if _, err := s.store.Wallets().GetOrCreate(ctx, app.UserID); err != nil {
		s.log.Warn("wallet bookkeeping failed", zap.String("user_id", app.UserID.String()), zap.Error(err))
	}

	if r := s.notifier.Notify(ctx, app.Clone(), oldStatus, app.Status); !r.Success {
		s.log.Warn("payout notification failed", zap.String("application_id", app.ID.String()), zap.Error(r.Error))
	}

	if s.pub != nil {
		_ = s.pub.Publish(ctx, events.StreamFinance, events.Event{
			Type: events.EventPayoutConfirmed,
			Payload: map[string]any{
				"application_id": app.ID.String(),
				"user_id":        app.UserID.String(),
				"net_payout":     res.Breakdown.Net.StringFixed(2),
				"platform_fee":   res.Breakdown.Fee.StringFixed(2),
				"confirmed_at":   time.Now().UTC().Format(time.RFC3339),
			},
		})
	}
}

// BulkPayoutFailure records one item of a bulk confirmation that was not paid.
type BulkPayoutFailure struct {
	ApplicationID uuid.UUID `json:"id"`
	Err           error     `json:"-"`
}

type BulkPayoutResult struct {
	Payouts []*PayoutResult     `json:"payouts"`
	Failed  []BulkPayoutFailure `json:"-"`
}

func (r *BulkPayoutResult) Processed() int { return len(r.Payouts) }

// ConfirmPayouts runs ConfirmPayout for each item in its own transaction.
// A failed item is reported and does not undo the items already paid.
func (s *PayoutService) ConfirmPayouts(ctx context.Context, items []ConfirmPayoutInput, actor Actor) (*BulkPayoutResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	out := &BulkPayoutResult{Payouts: []*PayoutResult{}}
	seen := make(map[uuid.UUID]bool, len(items))
	for _, in := range items {
		if seen[in.ApplicationID] {
			out.Failed = append(out.Failed, BulkPayoutFailure{
				ApplicationID: in.ApplicationID,
				Err:           fmt.Errorf("%w: application listed twice", models.ErrInvalidStageTransition),
			})
			continue
		}
		seen[in.ApplicationID] = true

		res, err := s.ConfirmPayout(ctx, in, actor)
		if err != nil {
			out.Failed = append(out.Failed, BulkPayoutFailure{ApplicationID: in.ApplicationID, Err: err})
			continue
		}
		out.Payouts = append(out.Payouts, res)
	}

	s.log.Info("bulk payout finished",
		zap.Int("requested", len(items)),
		zap.Int("processed", out.Processed()),
		zap.Int("failed", len(out.Failed)))
	return out, nil
}

// PendingPayout is a payable application with the figures a confirmation would record.
type PendingPayout struct {
	models.ApplicationWithCampaign
	Breakdown *finance.Breakdown `json:"breakdown,omitempty"`
}

func (s *PayoutService) PendingPayouts(ctx context.Context, includeVAT, includeWHT bool) ([]PendingPayout, error) {
	apps, err := s.store.Applications().ListPayable(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]PendingPayout, 0, len(apps))
	for _, a := range apps {
		p := PendingPayout{ApplicationWithCampaign: a}
		if b, err := finance.Calculate(a.CampaignBudget, s.rates, includeVAT, includeWHT); err == nil {
			p.Breakdown = &b
		}
		out = append(out, p)
	}
	return out, nil
}

// Preview computes the breakdown for an arbitrary net amount.
func (s *PayoutService) Preview(net decimal.Decimal, includeVAT, includeWHT bool) (finance.Breakdown, error) {
	return finance.Calculate(net, s.rates, includeVAT, includeWHT)
}

type DashboardStats struct {
	models.RevenueTotals
	PendingCount  int             `json:"pending_payout_count"`
	PendingAmount decimal.Decimal `json:"pending_payout_amount"`
}

func (s *PayoutService) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	totals, err := s.store.Revenue().Totals(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.store.Applications().ListPayable(ctx)
	if err != nil {
		return nil, err
	}
	stats := &DashboardStats{RevenueTotals: *totals, PendingAmount: decimal.Zero}
	for _, a := range pending {
		stats.PendingCount++
		stats.PendingAmount = stats.PendingAmount.Add(a.CampaignBudget)
	}
	return stats, nil
}

func (s *PayoutService) ListTransactions(ctx context.Context, f models.TransactionFilter) ([]models.Transaction, error) {
	return s.store.Ledger().List(ctx, f)
}

// ApplicationLedger is every ledger record tied to one application.
type ApplicationLedger struct {
	Transactions []models.Transaction     `json:"transactions"`
	Revenue      []models.PlatformRevenue `json:"revenue"`
}

func (s *PayoutService) ApplicationLedger(ctx context.Context, appID uuid.UUID, actor Actor) (*ApplicationLedger, error) {
	app, err := s.store.Applications().GetByID(ctx, appID)
	if err != nil {
		return nil, err
	}
	if err := requireOwnerOrAdmin(actor, app); err != nil {
		return nil, err
	}
	txs, err := s.store.Ledger().ListByApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	out := &ApplicationLedger{Transactions: txs}
	if actor.IsAdmin() {
		if out.Revenue, err = s.store.Revenue().ListByApplication(ctx, appID); err != nil {
			return nil, err
		}
	}
	return out, nil
}
