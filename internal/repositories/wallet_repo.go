package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/influencer-campaigns/backend/internal/models"
)

type WalletRepo struct {
	db DBTX
}

func NewWalletRepo(db DBTX) *WalletRepo {
	return &WalletRepo{db: db}
}

func (r *WalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var w models.Wallet
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, balance::text, status, created_at, updated_at
		FROM wallets WHERE user_id = $1
	`, userID).Scan(&w.ID, &w.UserID, &w.Balance, &w.Status, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &w, nil
}

// GetOrCreate returns the user's wallet, creating an ACTIVE zero-balance one if missing.
func (r *WalletRepo) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO wallets (user_id, balance, status)
		VALUES ($1, 0, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, models.WalletStatusActive)
	if err != nil {
		return nil, err
	}
	return r.GetByUserID(ctx, userID)
}

func (r *WalletRepo) SetStatus(ctx context.Context, userID uuid.UUID, status string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE wallets SET status = $1, updated_at = now() WHERE user_id = $2
	`, status, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
