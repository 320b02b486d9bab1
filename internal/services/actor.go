package services

import (
	"github.com/google/uuid"

	"github.com/influencer-campaigns/backend/internal/models"
)

const ActorTypeSystem = "system"

// Actor is the authenticated user an operation is attributed to.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

// SystemActor is used by background jobs.
var SystemActor = Actor{Role: ActorTypeSystem}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }
func (a Actor) IsSystem() bool { return a.Role == ActorTypeSystem }

func (a Actor) auditUserID() *uuid.UUID {
	if a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}

func (a Actor) auditType() string {
	switch {
	case a.IsSystem():
		return ActorTypeSystem
	case a.IsAdmin():
		return "admin"
	default:
		return "user"
	}
}

func auditEntry(actor Actor, action, entityType string, entityID uuid.UUID, meta map[string]any) models.AuditLog {
	id := entityID
	return models.AuditLog{
		ActorUserID: actor.auditUserID(),
		ActorType:   actor.auditType(),
		Action:      action,
		EntityType:  entityType,
		EntityID:    &id,
		Meta:        meta,
	}
}
