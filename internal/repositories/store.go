package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/influencer-campaigns/backend/internal/models"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type CampaignStore interface {
	Create(ctx context.Context, c *models.Campaign) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	Update(ctx context.Context, c *models.Campaign) error
	List(ctx context.Context, f CampaignFilter) ([]models.Campaign, error)
}

type ApplicationStore interface {
	Create(ctx context.Context, a *models.Application) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Application, error)
	Save(ctx context.Context, a *models.Application) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f models.ApplicationFilter) ([]models.ApplicationWithCampaign, error)
	ListPayable(ctx context.Context) ([]models.ApplicationWithCampaign, error)
}

// LedgerStore is append-only. Update and Delete exist to reject callers
// with ErrImmutableLedgerViolation.
type LedgerStore interface {
	Create(ctx context.Context, t *models.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]models.Transaction, error)
	List(ctx context.Context, f models.TransactionFilter) ([]models.Transaction, error)
	CountByApplication(ctx context.Context, applicationID uuid.UUID) (int, error)
	Update(ctx context.Context, t *models.Transaction) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type RevenueStore interface {
	Create(ctx context.Context, r *models.PlatformRevenue) error
	ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]models.PlatformRevenue, error)
	// LockUnclaimed selects UNCLAIMED rows FOR UPDATE.
	LockUnclaimed(ctx context.Context) ([]models.PlatformRevenue, error)
	MarkSettled(ctx context.Context, ids []uuid.UUID, settlementID uuid.UUID) (int64, error)
	CreateSettlement(ctx context.Context, s *models.Settlement) error
	ListSettlements(ctx context.Context, limit int) ([]models.Settlement, error)
	Totals(ctx context.Context) (*models.RevenueTotals, error)
}

type WalletStore interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	SetStatus(ctx context.Context, userID uuid.UUID, status string) error
}

type AuditStore interface {
	Log(ctx context.Context, entry models.AuditLog) error
	GetByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit, offset int) ([]models.AuditLog, error)
}

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Repos groups the stores that share one connection or transaction.
type Repos interface {
	Campaigns() CampaignStore
	Applications() ApplicationStore
	Ledger() LedgerStore
	Revenue() RevenueStore
	Wallets() WalletStore
	Audit() AuditStore
	Users() UserStore
}

// Store runs fn inside a single database transaction. Any error returned by
// fn rolls back every write made through the Repos it was given.
type Store interface {
	Repos
	InTx(ctx context.Context, fn func(tx Repos) error) error
}

type pgRepos struct {
	db DBTX
}

func (r pgRepos) Campaigns() CampaignStore { return NewCampaignRepo(r.db) }
func (r pgRepos) Applications() ApplicationStore { return NewApplicationRepo(r.db) }
func (r pgRepos) Ledger() LedgerStore { return NewLedgerRepo(r.db) }
func (r pgRepos) Revenue() RevenueStore { return NewRevenueRepo(r.db) }
func (r pgRepos) Wallets() WalletStore { return NewWalletRepo(r.db) }
func (r pgRepos) Audit() AuditStore { return NewAuditRepo(r.db) }
func (r pgRepos) Users() UserStore { return NewUserRepo(r.db) }

type PgStore struct {
	pgRepos
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pgRepos: pgRepos{db: pool}, pool: pool}
}

func (s *PgStore) InTx(ctx context.Context, fn func(tx Repos) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if cerr := tx.Commit(ctx); cerr != nil {
			err = fmt.Errorf("commit tx: %w", mapPgError(cerr))
		}
	}()
	return fn(pgRepos{db: tx})
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgRestrictViolation   = "23001"
)

// mapPgError translates driver errors into domain sentinels.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgRestrictViolation, pgForeignKeyViolation:
			if strings.Contains(pgErr.Message, "transactions") || strings.Contains(pgErr.Message, "ledger") {
				return fmt.Errorf("%w: %s", models.ErrImmutableLedgerViolation, pgErr.Message)
			}
		}
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// whereClause joins conditions with AND.
func whereClause(where []string) string {
	if len(where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(where, " AND ")
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}
