package services

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/influencer-campaigns/backend/internal/events"
	"github.com/influencer-campaigns/backend/internal/finance"
	"github.com/influencer-campaigns/backend/internal/models"
	"github.com/influencer-campaigns/backend/internal/storage"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(_ context.Context, _ string, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func newPayoutService(t *testing.T, f *fixture) (*PayoutService, *storage.LocalStore) {
	t.Helper()
	docs, err := storage.NewLocalStore(t.TempDir(), "/slips", 1<<20, zap.NewNop())
	require.NoError(t, err)
	return NewPayoutService(f.store, docs, f.notifier, &capturePublisher{}, finance.DefaultRates(), zap.NewNop()), docs
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestConfirmPayout(t *testing.T) {
	f := newFixture(t, "1000.00")
	svc, _ := newPayoutService(t, f)
	app := f.completed(t)

	res, err := svc.ConfirmPayout(f.ctx, ConfirmPayoutInput{ApplicationID: app.ID, ProofReference: " SLIP-001 "}, f.admin)
	require.NoError(t, err)

	assert.Equal(t, models.ApplicationStatusPaymentTransferred, res.Application.Status)
	assert.Equal(t, "1111.11", res.Breakdown.Gross.StringFixed(2))
	assert.Equal(t, "111.11", res.Breakdown.Fee.StringFixed(2))
	assert.Equal(t, "1000.00", res.Breakdown.Net.StringFixed(2))
	assert.True(t, res.Breakdown.VAT.IsZero())

	txs, err := f.store.Ledger().ListByApplication(f.ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	byType := map[string]models.Transaction{}
	for _, tx := range txs {
		byType[tx.Type] = tx
		assert.Equal(t, "SLIP-001", tx.ReferenceNote)
		assert.Equal(t, models.TransactionStatusCompleted, tx.Status)
	}
	assert.True(t, byType[models.TransactionTypePayout].Amount.Equal(decimal.RequireFromString("1000")))
	assert.Equal(t, app.UserID, *byType[models.TransactionTypePayout].ReceiverID)
	assert.True(t, byType[models.TransactionTypeServiceFee].Amount.Equal(decimal.RequireFromString("111.11")))

	revs, err := f.store.Revenue().ListByApplication(f.ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, revs, 1)
	assert.Equal(t, byType[models.TransactionTypeServiceFee].ID, revs[0].TransactionID)
	assert.Equal(t, models.RevenueStatusUnclaimed, revs[0].SettlementStatus)

	w, err := f.store.Wallets().GetByUserID(f.ctx, app.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.WalletStatusActive, w.Status)
	assert.Equal(t, models.ApplicationStatusPaymentTransferred, f.notifier.last().new)
}

func TestConfirmPayoutIncludesTaxes(t *testing.T) {
	f := newFixture(t, "1000")
	svc, _ := newPayoutService(t, f)
	app := f.completed(t)

	res, err := svc.ConfirmPayout(f.ctx, ConfirmPayoutInput{
		ApplicationID: app.ID, ProofReference: "SLIP-2", IncludeVAT: true, IncludeWHT: true,
	}, f.admin)
	require.NoError(t, err)
	assert.Equal(t, "7.78", res.Revenue.VATAmount.StringFixed(2))
	assert.Equal(t, "30.00", res.Revenue.WHTAmount.StringFixed(2))
}

func TestConfirmPayoutTwiceFails(t *testing.T) {
	f := newFixture(t, "1000")
	svc, _ := newPayoutService(t, f)
	app := f.completed(t)

	_, err := svc.ConfirmPayout(f.ctx, ConfirmPayoutInput{ApplicationID: app.ID, ProofReference: "A"}, f.admin)
	require.NoError(t, err)
	_, err = svc.ConfirmPayout(f.ctx, ConfirmPayoutInput{ApplicationID: app.ID, ProofReference: "B"}, f.admin)
	assert.ErrorIs(t, err, models.ErrInvalidStageTransition)

	n, err := f.store.Ledger().CountByApplication(f.ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestConcurrentPayoutsSettleOnce(t *testing.T) {
	f := newFixture(t, "1000")
	svc, _ := newPayoutService(t, f)
	app := f.completed(t)

	var wg sync.WaitGroup
	errs := make([]error, 6)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.ConfirmPayout(f.ctx, ConfirmPayoutInput{ApplicationID: app.ID, ProofReference: "SLIP"}, f.admin)
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, models.ErrInvalidStageTransition)
		}
	}
	assert.Equal(t, 1, ok)

	revs, err := f.store.Revenue().ListByApplication(f.ctx, app.ID)
	require.NoError(t, err)
	assert.Len(t, revs, 1)
}

func TestConfirmPayoutRejections(t *testing.T) {
	tests := []struct {
		name    string
		budget  string
		ref     string
		actor   func(f *fixture) Actor
		prepare func(t *testing.T, f *fixture) *models.Application
		wantErr error
	}{
		{
			name:    "empty proof reference",
			budget:  "1000",
			ref:     "   ",
			actor:   func(f *fixture) Actor { return f.admin },
			prepare: func(t *testing.T, f *fixture) *models.Application { return f.completed(t) },
			wantErr: models.ErrMissingProofReference,
		},
		{
			name:    "not an admin",
			budget:  "1000",
			ref:     "SLIP",
			actor:   func(f *fixture) Actor { return f.user },
			prepare: func(t *testing.T, f *fixture) *models.Application { return f.completed(t) },
			wantErr: models.ErrForbidden,
		},
		{
			name:    "not completed",
			budget:  "1000",
			ref:     "SLIP",
			actor:   func(f *fixture) Actor { return f.admin },
			prepare: func(t *testing.T, f *fixture) *models.Application { return f.apply(t) },
			wantErr: models.ErrInvalidStageTransition,
		},
		{
			name:    "zero budget",
			budget:  "0",
			ref:     "SLIP",
			actor:   func(f *fixture) Actor { return f.admin },
			prepare: func(t *testing.T, f *fixture) *models.Application { return f.completed(t) },
			wantErr: models.ErrInsufficientJobValue,
		},
		{
			name:    "fee rounds to zero",
			budget:  "0.01",
			ref:     "SLIP",
			actor:   func(f *fixture) Actor { return f.admin },
			prepare: func(t *testing.T, f *fixture) *models.Application { return f.completed(t) },
			wantErr: models.ErrInsufficientJobValue,
		},
		{
			name:   "frozen wallet",
			budget: "1000",
			ref:    "SLIP",
			actor:  func(f *fixture) Actor { return f.admin },
			prepare: func(t *testing.T, f *fixture) *models.Application {
				app := f.completed(t)
				_, err := NewWalletService(f.store, zap.NewNop()).Freeze(f.ctx, app.UserID, "kyc", f.admin)
				require.NoError(t, err)
				return app
			},
			wantErr: models.ErrWalletFrozen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.budget)
			svc, _ := newPayoutService(t, f)
			app := tt.prepare(t, f)
			before, err := f.store.Applications().GetByID(f.ctx, app.ID)
			require.NoError(t, err)

			_, err = svc.ConfirmPayout(f.ctx, ConfirmPayoutInput{ApplicationID: app.ID, ProofReference: tt.ref}, tt.actor(f))
			assert.ErrorIs(t, err, tt.wantErr)

			n, err := f.store.Ledger().CountByApplication(f.ctx, app.ID)
			require.NoError(t, err)
			assert.Zero(t, n)

			after, err := f.store.Applications().GetByID(f.ctx, app.ID)
			require.NoError(t, err)
			assert.Equal(t, before.Status, after.Status)
		})
	}
}

func TestConfirmPayoutRollsBackOnFailure(t *testing.T) {
	for _, op := range []string{"ledger.create", "revenue.create", "applications.save"} {
		t.Run(op, func(t *testing.T) {
			f := newFixture(t, "1000")
			svc, docs := newPayoutService(t, f)
			app := f.completed(t)

			boom := errors.New("write failed")
			f.store.FailOn(op, boom)

			_, err := svc.ConfirmPayout(f.ctx, ConfirmPayoutInput{
				ApplicationID:  app.ID,
				ProofReference: "SLIP-9",
				Slip:           &Slip{Filename: "slip.png", Body: strings.NewReader("png bytes")},
			}, f.admin)
			require.ErrorIs(t, err, boom)

			got, err := f.store.Applications().GetByID(f.ctx, app.ID)
			require.NoError(t, err)
			assert.Equal(t, models.ApplicationStatusCompleted, got.Status)
			assert.Nil(t, got.PaymentSlipURL)

			n, err := f.store.Ledger().CountByApplication(f.ctx, app.ID)
			require.NoError(t, err)
			assert.Zero(t, n)

			totals, err := f.store.Revenue().Totals(f.ctx)
			require.NoError(t, err)
			assert.Zero(t, totals.Count)

			assert.Zero(t, countFiles(t, docs.Dir()), "slip must be removed after rollback")
		})
	}
}

func TestConfirmPayoutStoresSlip(t *testing.T) {
	f := newFixture(t, "1000")
	svc, docs := newPayoutService(t, f)
	app := f.completed(t)

	res, err := svc.ConfirmPayout(f.ctx, ConfirmPayoutInput{
		ApplicationID:  app.ID,
		ProofReference: "SLIP-3",
		Slip:           &Slip{Filename: "slip.jpg", Body: strings.NewReader("jpeg bytes")},
	}, f.admin)
	require.NoError(t, err)
	require.NotNil(t, res.Application.PaymentSlipURL)
	assert.True(t, strings.HasPrefix(*res.Application.PaymentSlipURL, "/slips/"))
	assert.Equal(t, 1, countFiles(t, docs.Dir()))
}

func TestWalletFailureDoesNotFailPayout(t *testing.T) {
	f := newFixture(t, "1000")
	svc, _ := newPayoutService(t, f)
	app := f.completed(t)
	f.notifier.fail = errors.New("line down")
	f.store.FailOn("wallets.get_or_create", errors.New("wallets offline"))

	res, err := svc.ConfirmPayout(f.ctx, ConfirmPayoutInput{ApplicationID: app.ID, ProofReference: "SLIP"}, f.admin)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusPaymentTransferred, res.Application.Status)

	_, err = f.store.Wallets().GetByUserID(f.ctx, app.UserID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPendingPayoutsAndDashboard(t *testing.T) {
	f := newFixture(t, "900")
	svc, _ := newPayoutService(t, f)
	app := f.completed(t)

	pending, err := svc.PendingPayouts(f.ctx, false, false)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.NotNil(t, pending[0].Breakdown)
	assert.Equal(t, "1000.00", pending[0].Breakdown.Gross.StringFixed(2))

	stats, err := svc.DashboardStats(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PendingCount)
	assert.True(t, stats.PendingAmount.Equal(decimal.NewFromInt(900)))

	_, err = svc.ConfirmPayout(f.ctx, ConfirmPayoutInput{ApplicationID: app.ID, ProofReference: "S"}, f.admin)
	require.NoError(t, err)

	stats, err = svc.DashboardStats(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.PendingCount)
	assert.Equal(t, "1000.00", stats.GMV.StringFixed(2))
	assert.Equal(t, "100.00", stats.Unclaimed.StringFixed(2))

	ledger, err := svc.ApplicationLedger(f.ctx, app.ID, f.user)
	require.NoError(t, err)
	assert.Len(t, ledger.Transactions, 2)
	assert.Empty(t, ledger.Revenue)
}

func TestConfirmPayoutsBulkIsPerItem(t *testing.T) {
	f := newFixture(t, "1000")
	svc, docs := newPayoutService(t, f)

	owner := f.user
	var paid []*models.Application
	for i := 0; i < 2; i++ {
		f.user = Actor{UserID: uuid.New(), Role: models.RoleInfluencer}
		paid = append(paid, f.completed(t))
	}
	f.user = owner
	waiting := f.apply(t)

	slip := func(name string) *Slip { return &Slip{Filename: name, Body: strings.NewReader("png")} }
	items := []ConfirmPayoutInput{
		{ApplicationID: paid[0].ID, ProofReference: "BULK-1", Slip: slip("a.png")},
		{ApplicationID: waiting.ID, ProofReference: "BULK-2", Slip: slip("b.png")},
		{ApplicationID: paid[1].ID, ProofReference: "BULK-3", Slip: slip("c.png")},
		{ApplicationID: paid[1].ID, ProofReference: "BULK-4", Slip: slip("d.png")},
		{ApplicationID: uuid.New(), ProofReference: "BULK-5"},
	}

	_, err := svc.ConfirmPayouts(f.ctx, items, f.user)
	require.ErrorIs(t, err, models.ErrForbidden)

	res, err := svc.ConfirmPayouts(f.ctx, items, f.admin)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed())
	require.Len(t, res.Failed, 3)
	assert.Equal(t, waiting.ID, res.Failed[0].ApplicationID)
	assert.ErrorIs(t, res.Failed[0].Err, models.ErrInvalidStageTransition)
	assert.ErrorIs(t, res.Failed[1].Err, models.ErrInvalidStageTransition)
	assert.ErrorIs(t, res.Failed[2].Err, models.ErrNotFound)

	for _, app := range paid {
		got, err := f.store.Applications().GetByID(f.ctx, app.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ApplicationStatusPaymentTransferred, got.Status)
		require.NotNil(t, got.PaymentSlipURL)

		txs, err := f.store.Ledger().ListByApplication(f.ctx, app.ID)
		require.NoError(t, err)
		assert.Len(t, txs, 2)
	}

	n, err := f.store.Ledger().CountByApplication(f.ctx, waiting.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	// Only the two paid items keep their slips; the rejected one is removed.
	assert.Equal(t, 2, countFiles(t, docs.Dir()))
}
