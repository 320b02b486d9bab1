package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/influencer-campaigns/backend/internal/auth"
	"github.com/influencer-campaigns/backend/internal/http/dto"
	"github.com/influencer-campaigns/backend/internal/models"
	"github.com/influencer-campaigns/backend/internal/rbac"
)

const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

func AuthMiddleware(secret string, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "missing authorization header")
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			return unauthorized(c, "invalid authorization format")
		}

		claims, err := auth.ParseJWT(secret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return unauthorized(c, "invalid or expired token")
		}

		role := claims.Role
		if role == "" {
			role = models.RoleInfluencer
		}
		c.Locals(CtxUserID, claims.UserID)
		c.Locals(CtxRole, role)

		return c.Next()
	}
}

func GetUserID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(CtxUserID).(uuid.UUID)
	return id
}

func GetRole(c *fiber.Ctx) string {
	role, _ := c.Locals(CtxRole).(string)
	return role
}

// Require rejects requests whose role lacks perm.
func Require(perm string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !rbac.HasPermission(GetRole(c), perm) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error:     "insufficient permissions",
				Code:      dto.CodeForbidden,
				RequestID: GetRequestID(c),
			})
		}
		return c.Next()
	}
}

// AdminMiddleware requires the admin role.
func AdminMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetRole(c) != models.RoleAdmin {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error:     "admin access required",
				Code:      dto.CodeForbidden,
				RequestID: GetRequestID(c),
			})
		}
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error:     msg,
		Code:      dto.CodeUnauthorized,
		RequestID: GetRequestID(c),
	})
}
