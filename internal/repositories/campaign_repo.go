package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/influencer-campaigns/backend/internal/models"
)

type CampaignRepo struct {
	db DBTX
}

func NewCampaignRepo(db DBTX) *CampaignRepo {
	return &CampaignRepo{db: db}
}

const campaignColumns = `
	id, title, brand_name, description, budget::text,
	application_deadline, content_deadline, script_deadline, draft_deadline,
	final_deadline, insight_deadline, status, created_at, updated_at`

func scanCampaign(row interface{ Scan(dest ...any) error }, c *models.Campaign) error {
	return row.Scan(&c.ID, &c.Title, &c.BrandName, &c.Description, &c.Budget,
		&c.ApplicationDeadline, &c.ContentDeadline, &c.ScriptDeadline, &c.DraftDeadline,
		&c.FinalDeadline, &c.InsightDeadline, &c.Status, &c.CreatedAt, &c.UpdatedAt)
}

func (r *CampaignRepo) Create(ctx context.Context, c *models.Campaign) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO campaigns (title, brand_name, description, budget,
			application_deadline, content_deadline, script_deadline, draft_deadline,
			final_deadline, insight_deadline, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`, c.Title, c.BrandName, c.Description, c.Budget.String(),
		c.ApplicationDeadline, c.ContentDeadline, c.ScriptDeadline, c.DraftDeadline,
		c.FinalDeadline, c.InsightDeadline, c.Status,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *CampaignRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	var c models.Campaign
	row := r.db.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id)
	if err := scanCampaign(row, &c); err != nil {
		return nil, mapPgError(err)
	}
	return &c, nil
}

func (r *CampaignRepo) Update(ctx context.Context, c *models.Campaign) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE campaigns SET title = $1, brand_name = $2, description = $3, budget = $4,
		       application_deadline = $5, content_deadline = $6, script_deadline = $7,
		       draft_deadline = $8, final_deadline = $9, insight_deadline = $10,
		       status = $11, updated_at = now()
		WHERE id = $12
	`, c.Title, c.BrandName, c.Description, c.Budget.String(),
		c.ApplicationDeadline, c.ContentDeadline, c.ScriptDeadline,
		c.DraftDeadline, c.FinalDeadline, c.InsightDeadline,
		c.Status, c.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

type CampaignFilter struct {
	Status       *string
	// ExcludeDraft hides DRAFT campaigns before paging.
	ExcludeDraft bool
	Limit        int
	Offset       int
}

func (r *CampaignRepo) List(ctx context.Context, f CampaignFilter) ([]models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns`
	args := []any{}
	argIdx := 1
	where := []string{}

	if f.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *f.Status)
		argIdx++
	}
	if f.ExcludeDraft {
		where = append(where, fmt.Sprintf("status <> $%d", argIdx))
		args = append(args, models.CampaignStatusDraft)
		argIdx++
	}
	query += whereClause(where)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, clampLimit(f.Limit), f.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []models.Campaign
	for rows.Next() {
		var c models.Campaign
		if err := scanCampaign(rows, &c); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}
