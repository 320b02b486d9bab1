package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/influencer-campaigns/backend/internal/models"
)

type UserRepo struct {
	db DBTX
}

func NewUserRepo(db DBTX) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO users (display_name, email, line_user_id, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, u.DisplayName, u.Email, u.LineUserID, u.Role).Scan(&u.ID, &u.CreatedAt)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := r.db.QueryRow(ctx, `
		SELECT id, display_name, email, line_user_id, role, created_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.DisplayName, &u.Email, &u.LineUserID, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &u, nil
}
