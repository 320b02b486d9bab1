package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/influencer-campaigns/backend/internal/models"
	"github.com/influencer-campaigns/backend/internal/repositories"
)

type WalletService struct {
	store repositories.Store
	log   *zap.Logger
}

func NewWalletService(store repositories.Store, log *zap.Logger) *WalletService {
	return &WalletService{store: store, log: log}
}

// EnsureWallet returns the participant's wallet, creating an empty one on first use.
func (s *WalletService) EnsureWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	return s.store.Wallets().GetOrCreate(ctx, userID)
}

func (s *WalletService) GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	return s.store.Wallets().GetByUserID(ctx, userID)
}

// Freeze blocks payouts to userID until Unfreeze is called.
func (s *WalletService) Freeze(ctx context.Context, userID uuid.UUID, reason string, actor Actor) (*models.Wallet, error) {
	return s.setStatus(ctx, userID, models.WalletStatusFrozen, models.AuditActionFreezeWallet, reason, actor)
}

func (s *WalletService) Unfreeze(ctx context.Context, userID uuid.UUID, actor Actor) (*models.Wallet, error) {
	return s.setStatus(ctx, userID, models.WalletStatusActive, models.AuditActionUnfreezeWallet, "", actor)
}

func (s *WalletService) setStatus(ctx context.Context, userID uuid.UUID, status, action, reason string, actor Actor) (*models.Wallet, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	var out *models.Wallet
	err := s.store.InTx(ctx, func(tx repositories.Repos) error {
		w, err := tx.Wallets().GetOrCreate(ctx, userID)
		if err != nil {
			return err
		}
		if err := tx.Wallets().SetStatus(ctx, userID, status); err != nil {
			return err
		}
		w.Status = status
		out = w
		return tx.Audit().Log(ctx, auditEntry(actor, action, "wallet", w.ID, map[string]any{
			"user_id": userID.String(),
			"reason":  reason,
		}))
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("wallet status changed",
		zap.String("user_id", userID.String()),
		zap.String("status", status))
	return out, nil
}
