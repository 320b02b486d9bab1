package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/influencer-campaigns/backend/internal/http/dto"
	"github.com/influencer-campaigns/backend/internal/models"
	"github.com/influencer-campaigns/backend/internal/repositories"
	"github.com/influencer-campaigns/backend/internal/services"
)

type CampaignHandler struct {
	campaignService *services.CampaignService
	log             *zap.Logger
}

func NewCampaignHandler(campaignService *services.CampaignService, log *zap.Logger) *CampaignHandler {
	return &CampaignHandler{campaignService: campaignService, log: log}
}

func campaignFromRequest(req dto.CreateCampaignRequest) (*models.Campaign, error) {
	budget, err := decimal.NewFromString(req.Budget)
	if err != nil {
		return nil, err
	}
	return &models.Campaign{
		Title:               req.Title,
		BrandName:           req.BrandName,
		Description:         req.Description,
		Budget:              budget,
		Status:              req.Status,
		ApplicationDeadline: req.ApplicationDeadline,
		ContentDeadline:     req.ContentDeadline,
		ScriptDeadline:      req.ScriptDeadline,
		DraftDeadline:       req.DraftDeadline,
		FinalDeadline:       req.FinalDeadline,
		InsightDeadline:     req.InsightDeadline,
	}, nil
}

func (h *CampaignHandler) CreateCampaign(c *fiber.Ctx) error {
	var req dto.CreateCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	if req.Title == "" || req.Budget == "" {
		return badRequest(c, "title and budget are required")
	}

	campaign, err := campaignFromRequest(req)
	if err != nil {
		return badRequest(c, "budget must be a decimal amount")
	}
	if err := h.campaignService.Create(c.UserContext(), campaign, actorFrom(c)); err != nil {
		return writeError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: campaign})
}

func (h *CampaignHandler) GetCampaign(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "invalid campaign id")
	}

	campaign, err := h.campaignService.GetByID(c.UserContext(), id, actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: campaign})
}

func (h *CampaignHandler) ListCampaigns(c *fiber.Ctx) error {
	limit, offset := paging(c)
	filter := repositories.CampaignFilter{Limit: limit, Offset: offset}
	if v := c.Query("status"); v != "" {
		filter.Status = &v
	}

	campaigns, err := h.campaignService.List(c.UserContext(), filter, actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: campaigns})
}

func (h *CampaignHandler) UpdateCampaign(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "invalid campaign id")
	}

	var req dto.UpdateCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	campaign, err := campaignFromRequest(req)
	if err != nil {
		return badRequest(c, "budget must be a decimal amount")
	}

	actor := actorFrom(c)
	if err := h.campaignService.Update(c.UserContext(), id, campaign, actor); err != nil {
		return writeError(c, h.log, err)
	}

	updated, err := h.campaignService.GetByID(c.UserContext(), id, actor)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: updated})
}
