package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/influencer-campaigns/backend/internal/models"
)

type ApplicationRepo struct {
	db DBTX
}

func NewApplicationRepo(db DBTX) *ApplicationRepo {
	return &ApplicationRepo{db: db}
}

const applicationColumns = `
	a.id, a.campaign_id, a.user_id, a.status, a.application_note, a.submission_data,
	a.insight_image, a.insight_files, a.insight_note, a.insight_submitted_at, a.insight_feedback,
	a.admin_notes, a.payment_slip_url, a.created_at, a.updated_at`

func scanApplication(row interface{ Scan(dest ...any) error }, a *models.Application, extra ...any) error {
	var submissionData []byte
	dest := []any{&a.ID, &a.CampaignID, &a.UserID, &a.Status, &a.ApplicationNote, &submissionData,
		&a.Insight.Image, &a.Insight.Files, &a.Insight.Note, &a.Insight.SubmittedAt, &a.Insight.Feedback,
		&a.AdminNotes, &a.PaymentSlipURL, &a.CreatedAt, &a.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	if len(submissionData) > 0 {
		if err := json.Unmarshal(submissionData, &a.Submissions); err != nil {
			return fmt.Errorf("application %s: decode submission_data: %w", a.ID, err)
		}
	}
	return nil
}

func (r *ApplicationRepo) Create(ctx context.Context, a *models.Application) error {
	data, err := json.Marshal(a.Submissions)
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx, `
		INSERT INTO applications (campaign_id, user_id, status, application_note, submission_data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, a.CampaignID, a.UserID, a.Status, a.ApplicationNote, data,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if isUniqueViolation(err) {
		return models.ErrDuplicateApplication
	}
	return err
}

func (r *ApplicationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	return r.get(ctx, `SELECT `+applicationColumns+` FROM applications a WHERE a.id = $1`, id)
}

func (r *ApplicationRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	return r.get(ctx, `SELECT `+applicationColumns+` FROM applications a WHERE a.id = $1 FOR UPDATE`, id)
}

func (r *ApplicationRepo) get(ctx context.Context, query string, id uuid.UUID) (*models.Application, error) {
	var a models.Application
	if err := scanApplication(r.db.QueryRow(ctx, query, id), &a); err != nil {
		return nil, mapPgError(err)
	}
	return &a, nil
}

// Save writes every mutable column of the application.
func (r *ApplicationRepo) Save(ctx context.Context, a *models.Application) error {
	data, err := json.Marshal(a.Submissions)
	if err != nil {
		return err
	}
	files := a.Insight.Files
	if files == nil {
		files = []string{}
	}
	err = r.db.QueryRow(ctx, `
		UPDATE applications SET status = $1, submission_data = $2,
		       insight_image = $3, insight_files = $4, insight_note = $5,
		       insight_submitted_at = $6, insight_feedback = $7,
		       admin_notes = $8, payment_slip_url = $9, updated_at = now()
		WHERE id = $10
		RETURNING updated_at
	`, a.Status, data,
		a.Insight.Image, files, a.Insight.Note,
		a.Insight.SubmittedAt, a.Insight.Feedback,
		a.AdminNotes, a.PaymentSlipURL, a.ID,
	).Scan(&a.UpdatedAt)
	return mapPgError(err)
}

// Delete refuses applications that own ledger entries.
func (r *ApplicationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	var owned bool
	if err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM transactions WHERE application_id = $1)`, id,
	).Scan(&owned); err != nil {
		return err
	}
	if owned {
		return fmt.Errorf("%w: application %s has ledger entries", models.ErrImmutableLedgerViolation, id)
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *ApplicationRepo) List(ctx context.Context, f models.ApplicationFilter) ([]models.ApplicationWithCampaign, error) {
	query := `SELECT ` + applicationColumns + `, c.title, c.budget::text
		FROM applications a
		JOIN campaigns c ON c.id = a.campaign_id`
	args := []any{}
	argIdx := 1
	where := []string{}

	if f.CampaignID != nil {
		where = append(where, fmt.Sprintf("a.campaign_id = $%d", argIdx))
		args = append(args, *f.CampaignID)
		argIdx++
	}
	if f.UserID != nil {
		where = append(where, fmt.Sprintf("a.user_id = $%d", argIdx))
		args = append(args, *f.UserID)
		argIdx++
	}
	if f.Status != "" {
		where = append(where, fmt.Sprintf("a.status = $%d", argIdx))
		args = append(args, f.Status)
		argIdx++
	}
	query += whereClause(where)
	query += fmt.Sprintf(" ORDER BY a.created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, clampLimit(f.Limit), f.Offset)

	return r.listWithCampaign(ctx, query, args...)
}

// ListPayable returns applications waiting for a payout, most recently completed first.
func (r *ApplicationRepo) ListPayable(ctx context.Context) ([]models.ApplicationWithCampaign, error) {
	return r.listWithCampaign(ctx, `SELECT `+applicationColumns+`, c.title, c.budget::text
		FROM applications a
		JOIN campaigns c ON c.id = a.campaign_id
		WHERE a.status = ANY($1)
		ORDER BY a.updated_at DESC`, models.PayableStatuses)
}

func (r *ApplicationRepo) listWithCampaign(ctx context.Context, query string, args ...any) ([]models.ApplicationWithCampaign, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []models.ApplicationWithCampaign
	for rows.Next() {
		var a models.ApplicationWithCampaign
		if err := scanApplication(rows, &a.Application, &a.CampaignTitle, &a.CampaignBudget); err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}
