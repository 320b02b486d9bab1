package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin      = "admin"
	RoleInfluencer = "influencer"
)

type User struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       *string   `json:"email,omitempty"`
	LineUserID  *string   `json:"line_user_id,omitempty"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
