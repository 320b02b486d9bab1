package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/influencer-campaigns/backend/internal/models"
	"github.com/influencer-campaigns/backend/internal/repositories"
)

func TestInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx repositories.Repos) error {
		camp := &models.Campaign{Title: "Launch", Status: models.CampaignStatusOpen}
		require.NoError(t, tx.Campaigns().Create(ctx, camp))
		return boom
	})
	require.ErrorIs(t, err, boom)

	list, err := s.Campaigns().List(ctx, repositories.CampaignFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestInTxCommits(t *testing.T) {
	ctx := context.Background()
	s := New()

	var id uuid.UUID
	err := s.InTx(ctx, func(tx repositories.Repos) error {
		camp := &models.Campaign{Title: "Launch", Status: models.CampaignStatusOpen}
		if err := tx.Campaigns().Create(ctx, camp); err != nil {
			return err
		}
		id = camp.ID
		return nil
	})
	require.NoError(t, err)

	got, err := s.Campaigns().GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Launch", got.Title)
}

func TestLedgerIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	s := New()
	appID := uuid.New()

	txn := &models.Transaction{
		ApplicationID: &appID,
		Amount:        decimal.RequireFromString("1000"),
		Type:          models.TransactionTypePayout,
		Status:        models.TransactionStatusCompleted,
		ReferenceNote: "SLIP-1",
	}
	require.NoError(t, s.Ledger().Create(ctx, txn))

	txn.Amount = decimal.RequireFromString("1")
	assert.ErrorIs(t, s.Ledger().Update(ctx, txn), models.ErrImmutableLedgerViolation)
	assert.ErrorIs(t, s.Ledger().Delete(ctx, txn.ID), models.ErrImmutableLedgerViolation)

	stored, err := s.Ledger().GetByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.True(t, stored.Amount.Equal(decimal.RequireFromString("1000")))
}

func TestLedgerPendingRowCanChange(t *testing.T) {
	ctx := context.Background()
	s := New()

	txn := &models.Transaction{
		Amount: decimal.RequireFromString("50"),
		Type:   models.TransactionTypeDeposit,
		Status: models.TransactionStatusPending,
	}
	require.NoError(t, s.Ledger().Create(ctx, txn))

	txn.Status = models.TransactionStatusCompleted
	require.NoError(t, s.Ledger().Update(ctx, txn))

	txn.Status = models.TransactionStatusFailed
	assert.ErrorIs(t, s.Ledger().Update(ctx, txn), models.ErrImmutableLedgerViolation)
}

func TestLedgerRejectsNonPositiveAmount(t *testing.T) {
	s := New()
	err := s.Ledger().Create(context.Background(), &models.Transaction{
		Amount: decimal.Zero,
		Type:   models.TransactionTypePayout,
		Status: models.TransactionStatusCompleted,
	})
	assert.ErrorIs(t, err, models.ErrInsufficientJobValue)
}

func TestApplicationWithLedgerEntriesCannotBeDeleted(t *testing.T) {
	ctx := context.Background()
	s := New()

	app := &models.Application{CampaignID: uuid.New(), UserID: uuid.New(), Status: models.ApplicationStatusCompleted}
	require.NoError(t, s.Applications().Create(ctx, app))
	require.NoError(t, s.Ledger().Create(ctx, &models.Transaction{
		ApplicationID: &app.ID,
		Amount:        decimal.RequireFromString("10"),
		Type:          models.TransactionTypePayout,
		Status:        models.TransactionStatusCompleted,
	}))

	assert.ErrorIs(t, s.Applications().Delete(ctx, app.ID), models.ErrImmutableLedgerViolation)
	_, err := s.Applications().GetByID(ctx, app.ID)
	assert.NoError(t, err)
}

func TestDuplicateApplication(t *testing.T) {
	ctx := context.Background()
	s := New()
	campaignID, userID := uuid.New(), uuid.New()

	require.NoError(t, s.Applications().Create(ctx, &models.Application{CampaignID: campaignID, UserID: userID}))
	err := s.Applications().Create(ctx, &models.Application{CampaignID: campaignID, UserID: userID})
	assert.ErrorIs(t, err, models.ErrDuplicateApplication)
}

func TestListPayableNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	camp := &models.Campaign{Title: "Launch", Budget: decimal.NewFromInt(100), Status: models.CampaignStatusOpen}
	require.NoError(t, s.Campaigns().Create(ctx, camp))

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		app := &models.Application{CampaignID: camp.ID, UserID: uuid.New(), Status: models.ApplicationStatusWaiting}
		require.NoError(t, s.Applications().Create(ctx, app))
		ids = append(ids, app.ID)
	}
	for _, id := range ids {
		app, err := s.Applications().GetByID(ctx, id)
		require.NoError(t, err)
		app.Status = models.ApplicationStatusCompleted
		require.NoError(t, s.Applications().Save(ctx, app))
	}

	list, err := s.Applications().ListPayable(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []uuid.UUID{ids[2], ids[1], ids[0]},
		[]uuid.UUID{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, "Launch", list[0].CampaignTitle)
}

func TestMarkSettledSkipsAlreadySettled(t *testing.T) {
	ctx := context.Background()
	s := New()

	rev := &models.PlatformRevenue{
		TransactionID:    uuid.New(),
		ApplicationID:    uuid.New(),
		PlatformFee:      decimal.RequireFromString("111.11"),
		SettlementStatus: models.RevenueStatusUnclaimed,
	}
	require.NoError(t, s.Revenue().Create(ctx, rev))

	n, err := s.Revenue().MarkSettled(ctx, []uuid.UUID{rev.ID}, uuid.New())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = s.Revenue().MarkSettled(ctx, []uuid.UUID{rev.ID}, uuid.New())
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestFailOnIsOneShot(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("disk full")
	s.FailOn("ledger.create", boom)

	txn := &models.Transaction{Amount: decimal.NewFromInt(1), Type: models.TransactionTypeDeposit, Status: models.TransactionStatusPending}
	assert.ErrorIs(t, s.Ledger().Create(ctx, txn), boom)
	assert.NoError(t, s.Ledger().Create(ctx, txn))
}
