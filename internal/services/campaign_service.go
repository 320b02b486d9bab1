package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/influencer-campaigns/backend/internal/models"
	"github.com/influencer-campaigns/backend/internal/repositories"
)

type CampaignService struct {
	store repositories.Store
	log   *zap.Logger
}

func NewCampaignService(store repositories.Store, log *zap.Logger) *CampaignService {
	return &CampaignService{store: store, log: log}
}

func (s *CampaignService) Create(ctx context.Context, c *models.Campaign, actor Actor) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	c.Title = strings.TrimSpace(c.Title)
	if c.Title == "" {
		return fmt.Errorf("campaign title is required")
	}
	if c.Budget.IsNegative() {
		return fmt.Errorf("%w: budget %s", models.ErrInsufficientJobValue, c.Budget)
	}
	if !c.Budget.Equal(c.Budget.Round(2)) {
		return fmt.Errorf("%w: budget %s", models.ErrInvalidAmount, c.Budget)
	}
	if c.Status == "" {
		c.Status = models.CampaignStatusDraft
	}
	if !models.IsValidCampaignProgression(models.CampaignStatusDraft, c.Status) {
		return fmt.Errorf("unknown campaign status %q", c.Status)
	}

	return s.store.InTx(ctx, func(tx repositories.Repos) error {
		if err := tx.Campaigns().Create(ctx, c); err != nil {
			return err
		}
		return tx.Audit().Log(ctx, auditEntry(actor, models.AuditActionCampaignCreate, "campaign", c.ID,
			map[string]any{"title": c.Title, "budget": c.Budget.StringFixed(2)}))
	})
}

// GetByID hides DRAFT campaigns from non-admins.
func (s *CampaignService) GetByID(ctx context.Context, id uuid.UUID, actor Actor) (*models.Campaign, error) {
	c, err := s.store.Campaigns().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status == models.CampaignStatusDraft && !actor.IsAdmin() {
		return nil, models.ErrNotFound
	}
	return c, nil
}

func (s *CampaignService) List(ctx context.Context, f repositories.CampaignFilter, actor Actor) ([]models.Campaign, error) {
	if !actor.IsAdmin() {
		f.ExcludeDraft = true
	}
	return s.store.Campaigns().List(ctx, f)
}

// Update replaces the editable fields. Status may only move forward.
func (s *CampaignService) Update(ctx context.Context, id uuid.UUID, c *models.Campaign, actor Actor) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return s.store.InTx(ctx, func(tx repositories.Repos) error {
		existing, err := tx.Campaigns().GetByID(ctx, id)
		if err != nil {
			return err
		}
		c.ID = id
		c.CreatedAt = existing.CreatedAt
		if c.Status == "" {
			c.Status = existing.Status
		}
		if !models.IsValidCampaignProgression(existing.Status, c.Status) {
			return fmt.Errorf("campaign status cannot move from %s to %s", existing.Status, c.Status)
		}
		if c.Budget.IsNegative() {
			return fmt.Errorf("%w: budget %s", models.ErrInsufficientJobValue, c.Budget)
		}
		if !c.Budget.Equal(c.Budget.Round(2)) {
			return fmt.Errorf("%w: budget %s", models.ErrInvalidAmount, c.Budget)
		}
		if err := tx.Campaigns().Update(ctx, c); err != nil {
			return err
		}
		return tx.Audit().Log(ctx, auditEntry(actor, models.AuditActionCampaignUpdate, "campaign", id,
			map[string]any{"old_status": existing.Status, "new_status": c.Status}))
	})
}
