package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/influencer-campaigns/backend/internal/http/dto"
	"github.com/influencer-campaigns/backend/internal/middleware"
	"github.com/influencer-campaigns/backend/internal/services"
)

type WalletHandler struct {
	walletService *services.WalletService
	log           *zap.Logger
}

func NewWalletHandler(walletService *services.WalletService, log *zap.Logger) *WalletHandler {
	return &WalletHandler{walletService: walletService, log: log}
}

func (h *WalletHandler) GetMyWallet(c *fiber.Ctx) error {
	w, err := h.walletService.EnsureWallet(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: w})
}

func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	userID, ok := paramUUID(c, "userId")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	w, err := h.walletService.GetWallet(c.UserContext(), userID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: w})
}

func (h *WalletHandler) Freeze(c *fiber.Ctx) error {
	userID, ok := paramUUID(c, "userId")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	var req dto.FreezeWalletRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request")
		}
	}
	w, err := h.walletService.Freeze(c.UserContext(), userID, req.Reason, actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: w})
}

func (h *WalletHandler) Unfreeze(c *fiber.Ctx) error {
	userID, ok := paramUUID(c, "userId")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	w, err := h.walletService.Unfreeze(c.UserContext(), userID, actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: w})
}
