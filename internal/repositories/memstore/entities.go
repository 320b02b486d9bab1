package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/influencer-campaigns/backend/internal/models"
	"github.com/influencer-campaigns/backend/internal/repositories"
)

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return append([]T(nil), items[offset:end]...)
}

// --- Campaigns ---

type campaignStore struct{ r *repos }

func (c campaignStore) Create(_ context.Context, camp *models.Campaign) error {
	st, unlock := c.r.enter()
	defer unlock()

	if camp.ID == uuid.Nil {
		camp.ID = uuid.New()
	}
	now := c.r.store.now()
	camp.CreatedAt, camp.UpdatedAt = now, now
	st.campaigns[camp.ID] = *camp
	return nil
}

func (c campaignStore) GetByID(_ context.Context, id uuid.UUID) (*models.Campaign, error) {
	st, unlock := c.r.enter()
	defer unlock()

	camp, ok := st.campaigns[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &camp, nil
}

func (c campaignStore) Update(_ context.Context, camp *models.Campaign) error {
	st, unlock := c.r.enter()
	defer unlock()

	old, ok := st.campaigns[camp.ID]
	if !ok {
		return models.ErrNotFound
	}
	camp.CreatedAt = old.CreatedAt
	camp.UpdatedAt = c.r.store.now()
	st.campaigns[camp.ID] = *camp
	return nil
}

func (c campaignStore) List(_ context.Context, f repositories.CampaignFilter) ([]models.Campaign, error) {
	st, unlock := c.r.enter()
	defer unlock()

	var out []models.Campaign
	for _, camp := range st.campaigns {
		if f.Status != nil && camp.Status != *f.Status {
			continue
		}
		if f.ExcludeDraft && camp.Status == models.CampaignStatusDraft {
			continue
		}
		out = append(out, camp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), nil
}

// --- Applications ---

type applicationStore struct{ r *repos }

func (a applicationStore) Create(_ context.Context, app *models.Application) error {
	st, unlock := a.r.enter()
	defer unlock()

	for _, existing := range st.applications {
		if existing.CampaignID == app.CampaignID && existing.UserID == app.UserID {
			return models.ErrDuplicateApplication
		}
	}
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	now := a.r.store.now()
	app.CreatedAt, app.UpdatedAt = now, now
	st.applications[app.ID] = app.Clone()
	return nil
}

func (a applicationStore) GetByID(_ context.Context, id uuid.UUID) (*models.Application, error) {
	st, unlock := a.r.enter()
	defer unlock()

	app, ok := st.applications[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return app.Clone(), nil
}

// GetForUpdate needs no extra locking: transactions are already serialised.
func (a applicationStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	return a.GetByID(ctx, id)
}

func (a applicationStore) Save(_ context.Context, app *models.Application) error {
	if err := a.r.store.takeFailure("applications.save"); err != nil {
		return err
	}
	st, unlock := a.r.enter()
	defer unlock()

	if _, ok := st.applications[app.ID]; !ok {
		return models.ErrNotFound
	}
	app.UpdatedAt = a.r.store.now()
	st.applications[app.ID] = app.Clone()
	return nil
}

func (a applicationStore) Delete(_ context.Context, id uuid.UUID) error {
	st, unlock := a.r.enter()
	defer unlock()

	if _, ok := st.applications[id]; !ok {
		return models.ErrNotFound
	}
	for _, t := range st.transactions {
		if t.ApplicationID != nil && *t.ApplicationID == id {
			return fmt.Errorf("%w: application %s has ledger entries", models.ErrImmutableLedgerViolation, id)
		}
	}
	delete(st.applications, id)
	return nil
}

func (a applicationStore) List(_ context.Context, f models.ApplicationFilter) ([]models.ApplicationWithCampaign, error) {
	st, unlock := a.r.enter()
	defer unlock()

	out := joinCampaigns(st, func(app *models.Application) bool {
		if f.CampaignID != nil && app.CampaignID != *f.CampaignID {
			return false
		}
		if f.UserID != nil && app.UserID != *f.UserID {
			return false
		}
		return f.Status == "" || app.Status == f.Status
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), nil
}

func (a applicationStore) ListPayable(_ context.Context) ([]models.ApplicationWithCampaign, error) {
	st, unlock := a.r.enter()
	defer unlock()

	out := joinCampaigns(st, func(app *models.Application) bool { return models.IsPayable(app.Status) })
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func joinCampaigns(st *state, keep func(*models.Application) bool) []models.ApplicationWithCampaign {
	var out []models.ApplicationWithCampaign
	for _, app := range st.applications {
		if !keep(app) {
			continue
		}
		camp, ok := st.campaigns[app.CampaignID]
		if !ok {
			continue
		}
		out = append(out, models.ApplicationWithCampaign{
			Application:    *app.Clone(),
			CampaignTitle:  camp.Title,
			CampaignBudget: camp.Budget,
		})
	}
	return out
}

// --- Ledger ---

type ledgerStore struct{ r *repos }

func (l ledgerStore) Create(_ context.Context, t *models.Transaction) error {
	if err := l.r.store.takeFailure("ledger.create"); err != nil {
		return err
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("%w: transaction amount must be positive, got %s", models.ErrInsufficientJobValue, t.Amount)
	}
	st, unlock := l.r.enter()
	defer unlock()

	t.ID = uuid.New()
	t.Amount = t.Amount.Round(2)
	t.CreatedAt = l.r.store.now()
	st.transactions = append(st.transactions, *t)
	return nil
}

func (l ledgerStore) GetByID(_ context.Context, id uuid.UUID) (*models.Transaction, error) {
	st, unlock := l.r.enter()
	defer unlock()

	for _, t := range st.transactions {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, models.ErrNotFound
}

func (l ledgerStore) ListByApplication(_ context.Context, applicationID uuid.UUID) ([]models.Transaction, error) {
	st, unlock := l.r.enter()
	defer unlock()

	var out []models.Transaction
	for _, t := range st.transactions {
		if t.ApplicationID != nil && *t.ApplicationID == applicationID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (l ledgerStore) List(_ context.Context, f models.TransactionFilter) ([]models.Transaction, error) {
	st, unlock := l.r.enter()
	defer unlock()

	var out []models.Transaction
	for i := len(st.transactions) - 1; i >= 0; i-- {
		t := st.transactions[i]
		if f.ApplicationID != nil && (t.ApplicationID == nil || *t.ApplicationID != *f.ApplicationID) {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		out = append(out, t)
	}
	return page(out, f.Limit, f.Offset), nil
}

func (l ledgerStore) CountByApplication(ctx context.Context, applicationID uuid.UUID) (int, error) {
	txs, err := l.ListByApplication(ctx, applicationID)
	return len(txs), err
}

func (l ledgerStore) Update(_ context.Context, t *models.Transaction) error {
	st, unlock := l.r.enter()
	defer unlock()

	for i := range st.transactions {
		if st.transactions[i].ID != t.ID {
			continue
		}
		if st.transactions[i].IsCompleted() {
			return fmt.Errorf("%w: transaction %s is completed", models.ErrImmutableLedgerViolation, t.ID)
		}
		cur := &st.transactions[i]
		cur.Amount = t.Amount
		cur.Status = t.Status
		cur.ReferenceNote = t.ReferenceNote
		cur.Description = t.Description
		return nil
	}
	return models.ErrNotFound
}

func (l ledgerStore) Delete(_ context.Context, id uuid.UUID) error {
	return fmt.Errorf("%w: delete of transaction %s", models.ErrImmutableLedgerViolation, id)
}

// --- Revenue ---

type revenueStore struct{ r *repos }

func (rs revenueStore) Create(_ context.Context, p *models.PlatformRevenue) error {
	if err := rs.r.store.takeFailure("revenue.create"); err != nil {
		return err
	}
	st, unlock := rs.r.enter()
	defer unlock()

	for _, existing := range st.revenue {
		if existing.TransactionID == p.TransactionID {
			return fmt.Errorf("platform revenue for transaction %s already exists", p.TransactionID)
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = rs.r.store.now()
	st.revenue = append(st.revenue, *p)
	return nil
}

func (rs revenueStore) ListByApplication(_ context.Context, applicationID uuid.UUID) ([]models.PlatformRevenue, error) {
	st, unlock := rs.r.enter()
	defer unlock()

	var out []models.PlatformRevenue
	for _, p := range st.revenue {
		if p.ApplicationID == applicationID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (rs revenueStore) LockUnclaimed(_ context.Context) ([]models.PlatformRevenue, error) {
	st, unlock := rs.r.enter()
	defer unlock()

	var out []models.PlatformRevenue
	for _, p := range st.revenue {
		if p.SettlementStatus == models.RevenueStatusUnclaimed {
			out = append(out, p)
		}
	}
	return out, nil
}

func (rs revenueStore) MarkSettled(_ context.Context, ids []uuid.UUID, settlementID uuid.UUID) (int64, error) {
	st, unlock := rs.r.enter()
	defer unlock()

	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var n int64
	for i := range st.revenue {
		p := &st.revenue[i]
		if want[p.ID] && p.SettlementStatus == models.RevenueStatusUnclaimed {
			sid := settlementID
			p.SettlementStatus = models.RevenueStatusSettled
			p.SettlementID = &sid
			n++
		}
	}
	return n, nil
}

func (rs revenueStore) CreateSettlement(_ context.Context, s *models.Settlement) error {
	st, unlock := rs.r.enter()
	defer unlock()

	s.ID = uuid.New()
	s.CreatedAt = rs.r.store.now()
	st.settlements = append(st.settlements, *s)
	return nil
}

func (rs revenueStore) ListSettlements(_ context.Context, limit int) ([]models.Settlement, error) {
	st, unlock := rs.r.enter()
	defer unlock()

	out := make([]models.Settlement, 0, len(st.settlements))
	for i := len(st.settlements) - 1; i >= 0; i-- {
		out = append(out, st.settlements[i])
	}
	return page(out, limit, 0), nil
}

func (rs revenueStore) Totals(_ context.Context) (*models.RevenueTotals, error) {
	st, unlock := rs.r.enter()
	defer unlock()

	t := &models.RevenueTotals{
		GMV:       decimal.Zero,
		Revenue:   decimal.Zero,
		Payouts:   decimal.Zero,
		VAT:       decimal.Zero,
		Unclaimed: decimal.Zero,
	}
	for _, p := range st.revenue {
		t.GMV = t.GMV.Add(p.GrossAmount)
		t.Revenue = t.Revenue.Add(p.PlatformFee)
		t.Payouts = t.Payouts.Add(p.NetPayout)
		t.VAT = t.VAT.Add(p.VATAmount)
		t.Count++
		if p.SettlementStatus == models.RevenueStatusUnclaimed {
			t.Unclaimed = t.Unclaimed.Add(p.PlatformFee)
		}
	}
	return t, nil
}

// --- Wallets ---

type walletStore struct{ r *repos }

func (w walletStore) GetByUserID(_ context.Context, userID uuid.UUID) (*models.Wallet, error) {
	st, unlock := w.r.enter()
	defer unlock()

	wallet, ok := st.wallets[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &wallet, nil
}

func (w walletStore) GetOrCreate(_ context.Context, userID uuid.UUID) (*models.Wallet, error) {
	if err := w.r.store.takeFailure("wallets.get_or_create"); err != nil {
		return nil, err
	}
	st, unlock := w.r.enter()
	defer unlock()

	wallet, ok := st.wallets[userID]
	if !ok {
		now := w.r.store.now()
		wallet = models.Wallet{
			ID:        uuid.New(),
			UserID:    userID,
			Balance:   decimal.Zero,
			Status:    models.WalletStatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		st.wallets[userID] = wallet
	}
	return &wallet, nil
}

func (w walletStore) SetStatus(_ context.Context, userID uuid.UUID, status string) error {
	st, unlock := w.r.enter()
	defer unlock()

	wallet, ok := st.wallets[userID]
	if !ok {
		return models.ErrNotFound
	}
	wallet.Status = status
	wallet.UpdatedAt = w.r.store.now()
	st.wallets[userID] = wallet
	return nil
}

// --- Audit ---

type auditStore struct{ r *repos }

func (a auditStore) Log(_ context.Context, entry models.AuditLog) error {
	st, unlock := a.r.enter()
	defer unlock()

	entry.ID = uuid.New()
	entry.CreatedAt = a.r.store.now()
	st.audit = append(st.audit, entry)
	return nil
}

func (a auditStore) GetByEntity(_ context.Context, entityType string, entityID uuid.UUID, limit, offset int) ([]models.AuditLog, error) {
	st, unlock := a.r.enter()
	defer unlock()

	var out []models.AuditLog
	for i := len(st.audit) - 1; i >= 0; i-- {
		e := st.audit[i]
		if e.EntityType == entityType && e.EntityID != nil && *e.EntityID == entityID {
			out = append(out, e)
		}
	}
	if limit <= 0 {
		limit = 50
	}
	return page(out, limit, offset), nil
}

// --- Users ---

type userStore struct{ r *repos }

func (u userStore) Create(_ context.Context, user *models.User) error {
	st, unlock := u.r.enter()
	defer unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = u.r.store.now()
	st.users[user.ID] = *user
	return nil
}

func (u userStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	st, unlock := u.r.enter()
	defer unlock()

	user, ok := st.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &user, nil
}
