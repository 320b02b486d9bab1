package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/influencer-campaigns/backend/internal/events"
	"github.com/influencer-campaigns/backend/internal/models"
	"github.com/influencer-campaigns/backend/internal/repositories"
)

// SettlementService rolls unclaimed platform revenue into settlement batches.
type SettlementService struct {
	store repositories.Store
	pub   events.Publisher
	log   *zap.Logger
}

func NewSettlementService(store repositories.Store, pub events.Publisher, log *zap.Logger) *SettlementService {
	return &SettlementService{store: store, pub: pub, log: log}
}

// SettleUnclaimed locks every UNCLAIMED revenue row, records one Settlement
// for the sum of their fees and links the rows to it. Returns
// ErrNothingToSettle when no row is unclaimed.
func (s *SettlementService) SettleUnclaimed(ctx context.Context, note string, actor Actor) (*models.Settlement, int, error) {
	if !actor.IsAdmin() && !actor.IsSystem() {
		return nil, 0, fmt.Errorf("%w: admin role required", models.ErrForbidden)
	}

	var settlement *models.Settlement
	var count int
	err := s.store.InTx(ctx, func(tx repositories.Repos) error {
		rows, err := tx.Revenue().LockUnclaimed(ctx)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return models.ErrNothingToSettle
		}

		total := decimal.Zero
		ids := make([]uuid.UUID, 0, len(rows))
		for _, r := range rows {
			total = total.Add(r.PlatformFee)
			ids = append(ids, r.ID)
		}

		st := &models.Settlement{
			TotalAmount: total,
			Note:        strings.TrimSpace(note),
			CreatedBy:   actor.auditUserID(),
		}
		if err := tx.Revenue().CreateSettlement(ctx, st); err != nil {
			return fmt.Errorf("create settlement: %w", err)
		}

		n, err := tx.Revenue().MarkSettled(ctx, ids, st.ID)
		if err != nil {
			return err
		}
		if int(n) != len(ids) {
			return fmt.Errorf("settlement %s: marked %d of %d locked rows", st.ID, n, len(ids))
		}

		if err := tx.Audit().Log(ctx, auditEntry(actor, models.AuditActionSettleRevenue, "settlement", st.ID, map[string]any{
			"total": total.StringFixed(2),
			"rows":  len(ids),
		})); err != nil {
			return err
		}

		settlement, count = st, len(ids)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	s.log.Info("revenue settled",
		zap.String("settlement_id", settlement.ID.String()),
		zap.String("total", settlement.TotalAmount.StringFixed(2)),
		zap.Int("rows", count))

	if s.pub != nil {
		_ = s.pub.Publish(ctx, events.StreamFinance, events.Event{
			Type: events.EventRevenueSettled,
			Payload: map[string]any{
				"settlement_id": settlement.ID.String(),
				"total_amount":  settlement.TotalAmount.StringFixed(2),
				"rows":          count,
				"settled_at":    time.Now().UTC().Format(time.RFC3339),
			},
		})
	}
	return settlement, count, nil
}

type SettlementOverview struct {
	Available   decimal.Decimal      `json:"available_revenue"`
	Totals      models.RevenueTotals `json:"totals"`
	Settlements []models.Settlement  `json:"settlements"`
}

func (s *SettlementService) Overview(ctx context.Context) (*SettlementOverview, error) {
	totals, err := s.store.Revenue().Totals(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.store.Revenue().ListSettlements(ctx, 20)
	if err != nil {
		return nil, err
	}
	return &SettlementOverview{Available: totals.Unclaimed, Totals: *totals, Settlements: list}, nil
}
