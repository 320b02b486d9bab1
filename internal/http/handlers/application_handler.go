package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/influencer-campaigns/backend/internal/http/dto"
	"github.com/influencer-campaigns/backend/internal/middleware"
	"github.com/influencer-campaigns/backend/internal/models"
	"github.com/influencer-campaigns/backend/internal/services"
)

type ApplicationHandler struct {
	workflow *services.WorkflowService
	payouts  *services.PayoutService
	log      *zap.Logger
}

func NewApplicationHandler(workflow *services.WorkflowService, payouts *services.PayoutService, log *zap.Logger) *ApplicationHandler {
	return &ApplicationHandler{workflow: workflow, payouts: payouts, log: log}
}

// Participant endpoints

func (h *ApplicationHandler) Apply(c *fiber.Ctx) error {
	campaignID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "invalid campaign id")
	}
	var req dto.ApplyRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request")
		}
	}

	app, err := h.workflow.Apply(c.UserContext(), campaignID, middleware.GetUserID(c), req.Note)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: app})
}

func (h *ApplicationHandler) MyApplications(c *fiber.Ctx) error {
	limit, offset := paging(c)
	apps, err := h.workflow.ListMyApplications(c.UserContext(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: apps})
}

func (h *ApplicationHandler) GetApplication(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "invalid application id")
	}
	app, err := h.workflow.GetApplication(c.UserContext(), id, actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{
		"application":   app,
		"current_stage": app.CurrentStage(),
	}})
}

func (h *ApplicationHandler) GetSubmissions(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "invalid application id")
	}
	hist, err := h.workflow.GetRevisionHistory(c.UserContext(), id, actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: hist})
}

func (h *ApplicationHandler) GetHistory(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "invalid application id")
	}
	logs, err := h.workflow.GetHistory(c.UserContext(), id, actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: logs})
}

func (h *ApplicationHandler) GetLedger(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "invalid application id")
	}
	ledger, err := h.payouts.ApplicationLedger(c.UserContext(), id, actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: ledger})
}

func (h *ApplicationHandler) StartWork(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "invalid application id")
	}
	app, err := h.workflow.StartWork(c.UserContext(), id, actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: app})
}

func (h *ApplicationHandler) SubmitWork(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "invalid application id")
	}
	stage, err := models.ParseStage(c.Params("stage"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req dto.SubmitWorkRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	res, err := h.workflow.SubmitWork(c.UserContext(), services.SubmitWorkInput{
		ApplicationID: id,
		Stage:         stage,
		Link:          req.Link,
		Notes:         req.Notes,
		Image:         req.Image,
		Files:         req.Files,
	}, actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: res})
}

// Admin endpoints

func (h *ApplicationHandler) ListApplications(c *fiber.Ctx) error {
	limit, offset := paging(c)
	f := models.ApplicationFilter{Status: c.Query("status"), Limit: limit, Offset: offset}
	if v := c.Query("campaign_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return badRequest(c, "invalid campaign_id")
		}
		f.CampaignID = &id
	}
	if f.Status != "" && !models.IsValidStatus(f.Status) {
		return badRequest(c, "unknown status")
	}

	apps, err := h.workflow.ListApplications(c.UserContext(), f)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: apps})
}

func (h *ApplicationHandler) Review(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "invalid application id")
	}
	var req dto.ReviewApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	app, err := h.workflow.ReviewApplication(c.UserContext(), id, req.Approve, req.Reason, actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: app})
}

func (h *ApplicationHandler) ApproveStage(c *fiber.Ctx) error {
	return h.reviewStage(c, true)
}

func (h *ApplicationHandler) RequestRevision(c *fiber.Ctx) error {
	return h.reviewStage(c, false)
}

func (h *ApplicationHandler) reviewStage(c *fiber.Ctx, approve bool) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "invalid application id")
	}
	stage, err := models.ParseStage(c.Params("stage"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req dto.StageFeedbackRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request")
		}
	}

	var app *models.Application
	if approve {
		app, err = h.workflow.ApproveStage(c.UserContext(), id, stage, req.Feedback, actorFrom(c))
	} else {
		app, err = h.workflow.RequestRevision(c.UserContext(), id, stage, req.Feedback, actorFrom(c))
	}
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: app})
}

func (h *ApplicationHandler) UpdateNotes(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "invalid application id")
	}
	var req dto.UpdateNotesRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	app, err := h.workflow.UpdateAdminNotes(c.UserContext(), id, req.AdminNotes, actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: app})
}

func (h *ApplicationHandler) Delete(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "invalid application id")
	}
	if err := h.workflow.DeleteApplication(c.UserContext(), id, actorFrom(c)); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}
