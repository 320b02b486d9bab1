package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/influencer-campaigns/backend/internal/http/dto"
	"github.com/influencer-campaigns/backend/internal/middleware"
	"github.com/influencer-campaigns/backend/internal/repositories"
)

type UserHandler struct {
	users repositories.UserStore
	log   *zap.Logger
}

func NewUserHandler(users repositories.UserStore, log *zap.Logger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	user, err := h.users.GetByID(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: user})
}
