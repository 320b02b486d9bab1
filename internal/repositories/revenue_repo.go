package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/influencer-campaigns/backend/internal/models"
)

type RevenueRepo struct {
	db DBTX
}

func NewRevenueRepo(db DBTX) *RevenueRepo {
	return &RevenueRepo{db: db}
}

const revenueColumns = `
	id, transaction_id, application_id, gross_amount::text, platform_fee::text,
	net_payout::text, vat_amount::text, wht_amount::text, settlement_status,
	settlement_id, created_at`

func scanRevenue(row interface{ Scan(dest ...any) error }, p *models.PlatformRevenue) error {
	return row.Scan(&p.ID, &p.TransactionID, &p.ApplicationID, &p.GrossAmount, &p.PlatformFee,
		&p.NetPayout, &p.VATAmount, &p.WHTAmount, &p.SettlementStatus,
		&p.SettlementID, &p.CreatedAt)
}

func (r *RevenueRepo) Create(ctx context.Context, p *models.PlatformRevenue) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO platform_revenue (transaction_id, application_id, gross_amount, platform_fee,
			net_payout, vat_amount, wht_amount, settlement_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, p.TransactionID, p.ApplicationID, p.GrossAmount.StringFixed(2), p.PlatformFee.StringFixed(2),
		p.NetPayout.StringFixed(2), p.VATAmount.StringFixed(2), p.WHTAmount.StringFixed(2), p.SettlementStatus,
	).Scan(&p.ID, &p.CreatedAt)
}

func (r *RevenueRepo) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]models.PlatformRevenue, error) {
	return r.list(ctx, `SELECT `+revenueColumns+` FROM platform_revenue
		WHERE application_id = $1 ORDER BY created_at ASC`, applicationID)
}

func (r *RevenueRepo) LockUnclaimed(ctx context.Context) ([]models.PlatformRevenue, error) {
	return r.list(ctx, `SELECT `+revenueColumns+` FROM platform_revenue
		WHERE settlement_status = $1
		ORDER BY created_at ASC
		FOR UPDATE`, models.RevenueStatusUnclaimed)
}

func (r *RevenueRepo) list(ctx context.Context, query string, args ...any) ([]models.PlatformRevenue, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PlatformRevenue
	for rows.Next() {
		var p models.PlatformRevenue
		if err := scanRevenue(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSettled only flips rows that are still UNCLAIMED.
func (r *RevenueRepo) MarkSettled(ctx context.Context, ids []uuid.UUID, settlementID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE platform_revenue SET settlement_status = $1, settlement_id = $2
		WHERE id = ANY($3) AND settlement_status = $4
	`, models.RevenueStatusSettled, settlementID, ids, models.RevenueStatusUnclaimed)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *RevenueRepo) CreateSettlement(ctx context.Context, s *models.Settlement) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO settlements (total_amount, note, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, s.TotalAmount.StringFixed(2), s.Note, s.CreatedBy).Scan(&s.ID, &s.CreatedAt)
}

func (r *RevenueRepo) ListSettlements(ctx context.Context, limit int) ([]models.Settlement, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, total_amount::text, note, created_by, created_at
		FROM settlements ORDER BY created_at DESC LIMIT $1
	`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Settlement
	for rows.Next() {
		var s models.Settlement
		if err := rows.Scan(&s.ID, &s.TotalAmount, &s.Note, &s.CreatedBy, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *RevenueRepo) Totals(ctx context.Context) (*models.RevenueTotals, error) {
	var t models.RevenueTotals
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(gross_amount), 0)::text,
		       COALESCE(SUM(platform_fee), 0)::text,
		       COALESCE(SUM(net_payout), 0)::text,
		       COALESCE(SUM(vat_amount), 0)::text,
		       count(*),
		       COALESCE(SUM(platform_fee) FILTER (WHERE settlement_status = $1), 0)::text
		FROM platform_revenue
	`, models.RevenueStatusUnclaimed).Scan(&t.GMV, &t.Revenue, &t.Payouts, &t.VAT, &t.Count, &t.Unclaimed)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
