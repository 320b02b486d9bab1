package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/influencer-campaigns/backend/internal/models"
)

// LedgerRepo is the only writer of the transactions table.
type LedgerRepo struct {
	db DBTX
}

func NewLedgerRepo(db DBTX) *LedgerRepo {
	return &LedgerRepo{db: db}
}

const transactionColumns = `
	id, application_id, sender_id, receiver_id, amount::text,
	transaction_type, status, reference_note, description, created_at`

func scanTransaction(row interface{ Scan(dest ...any) error }, t *models.Transaction) error {
	return row.Scan(&t.ID, &t.ApplicationID, &t.SenderID, &t.ReceiverID, &t.Amount,
		&t.Type, &t.Status, &t.ReferenceNote, &t.Description, &t.CreatedAt)
}

func (r *LedgerRepo) Create(ctx context.Context, t *models.Transaction) error {
	if !t.Amount.IsPositive() {
		return fmt.Errorf("%w: transaction amount must be positive, got %s", models.ErrInsufficientJobValue, t.Amount)
	}
	return r.db.QueryRow(ctx, `
		INSERT INTO transactions (application_id, sender_id, receiver_id, amount,
			transaction_type, status, reference_note, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, t.ApplicationID, t.SenderID, t.ReceiverID, t.Amount.StringFixed(2),
		t.Type, t.Status, t.ReferenceNote, t.Description,
	).Scan(&t.ID, &t.CreatedAt)
}

func (r *LedgerRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var t models.Transaction
	row := r.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	if err := scanTransaction(row, &t); err != nil {
		return nil, mapPgError(err)
	}
	return &t, nil
}

func (r *LedgerRepo) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]models.Transaction, error) {
	return r.list(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE application_id = $1 ORDER BY created_at ASC`, applicationID)
}

func (r *LedgerRepo) List(ctx context.Context, f models.TransactionFilter) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions`
	args := []any{}
	argIdx := 1
	where := []string{}

	if f.ApplicationID != nil {
		where = append(where, fmt.Sprintf("application_id = $%d", argIdx))
		args = append(args, *f.ApplicationID)
		argIdx++
	}
	if f.Type != "" {
		where = append(where, fmt.Sprintf("transaction_type = $%d", argIdx))
		args = append(args, f.Type)
		argIdx++
	}
	if f.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, f.Status)
		argIdx++
	}
	query += whereClause(where)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, clampLimit(f.Limit), f.Offset)

	return r.list(ctx, query, args...)
}

func (r *LedgerRepo) list(ctx context.Context, query string, args ...any) ([]models.Transaction, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := scanTransaction(rows, &t); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (r *LedgerRepo) CountByApplication(ctx context.Context, applicationID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM transactions WHERE application_id = $1`, applicationID).Scan(&n)
	return n, err
}

// Update is only possible while the stored row is not COMPLETED.
func (r *LedgerRepo) Update(ctx context.Context, t *models.Transaction) error {
	var status string
	err := r.db.QueryRow(ctx, `SELECT status FROM transactions WHERE id = $1 FOR UPDATE`, t.ID).Scan(&status)
	if err != nil {
		return mapPgError(err)
	}
	if status == models.TransactionStatusCompleted {
		return fmt.Errorf("%w: transaction %s is completed", models.ErrImmutableLedgerViolation, t.ID)
	}
	_, err = r.db.Exec(ctx, `
		UPDATE transactions SET amount = $1, status = $2, reference_note = $3, description = $4
		WHERE id = $5
	`, t.Amount.StringFixed(2), t.Status, t.ReferenceNote, t.Description, t.ID)
	return mapPgError(err)
}

func (r *LedgerRepo) Delete(_ context.Context, id uuid.UUID) error {
	return fmt.Errorf("%w: delete of transaction %s", models.ErrImmutableLedgerViolation, id)
}
