package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/influencer-campaigns/backend/internal/http/dto"
	"github.com/influencer-campaigns/backend/internal/middleware"
	"github.com/influencer-campaigns/backend/internal/models"
	"github.com/influencer-campaigns/backend/internal/services"
	"github.com/influencer-campaigns/backend/internal/storage"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// Order matters: the first sentinel matched by errors.Is wins.
var errorMappings = []errorMapping{
	{models.ErrMissingProofReference, fiber.StatusBadRequest, dto.CodeMissingProofReference},
	{models.ErrMaxAttemptsExceeded, fiber.StatusUnprocessableEntity, dto.CodeMaxAttemptsExceeded},
	{models.ErrInvalidStageTransition, fiber.StatusConflict, dto.CodeInvalidStageTransition},
	{models.ErrImmutableLedgerViolation, fiber.StatusConflict, dto.CodeImmutableLedgerViolation},
	{models.ErrInsufficientJobValue, fiber.StatusUnprocessableEntity, dto.CodeInsufficientJobValue},
	{models.ErrNothingToSettle, fiber.StatusConflict, dto.CodeNothingToSettle},
	{models.ErrDuplicateApplication, fiber.StatusConflict, dto.CodeDuplicateApplication},
	{models.ErrCampaignNotOpen, fiber.StatusConflict, dto.CodeCampaignNotOpen},
	{models.ErrWalletFrozen, fiber.StatusConflict, dto.CodeWalletFrozen},
	{models.ErrInvalidStage, fiber.StatusBadRequest, dto.CodeInvalidStage},
	{models.ErrInvalidSubmission, fiber.StatusBadRequest, dto.CodeInvalidSubmission},
	{models.ErrInvalidAmount, fiber.StatusBadRequest, dto.CodeInvalidAmount},
	{models.ErrNoSubmission, fiber.StatusConflict, dto.CodeInvalidStageTransition},
	{models.ErrForbidden, fiber.StatusForbidden, dto.CodeForbidden},
	{models.ErrNotFound, fiber.StatusNotFound, dto.CodeNotFound},
	{storage.ErrTooLarge, fiber.StatusRequestEntityTooLarge, dto.CodeFileTooLarge},
	{storage.ErrUnsupportedType, fiber.StatusUnsupportedMediaType, dto.CodeUnsupportedFileType},
}

// writeError maps domain errors to a status and code. Unknown errors are
// logged and reported as 500 without their message.
func writeError(c *fiber.Ctx, log *zap.Logger, err error) error {
	reqID := middleware.GetRequestID(c)
	if m, ok := lookupError(err); ok {
		if m.code == dto.CodeImmutableLedgerViolation {
			log.Error("ledger integrity violation", zap.String("request_id", reqID), zap.Error(err))
		}
		return c.Status(m.status).JSON(dto.ErrorResponse{Error: err.Error(), Code: m.code, RequestID: reqID})
	}

	log.Error("request failed",
		zap.String("request_id", reqID),
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error:     "internal error",
		Code:      dto.CodeInternal,
		RequestID: reqID,
	})
}

func lookupError(err error) (errorMapping, bool) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m, true
		}
	}
	return errorMapping{}, false
}

// itemError renders err for a per-item error list. Unknown errors keep no detail.
func itemError(id string, err error) dto.ItemError {
	if m, ok := lookupError(err); ok {
		return dto.ItemError{ID: id, Error: err.Error(), Code: m.code}
	}
	return dto.ItemError{ID: id, Error: "internal error", Code: dto.CodeInternal}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error:     msg,
		Code:      dto.CodeBadRequest,
		RequestID: middleware.GetRequestID(c),
	})
}

func actorFrom(c *fiber.Ctx) services.Actor {
	return services.Actor{UserID: middleware.GetUserID(c), Role: middleware.GetRole(c)}
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}

func paging(c *fiber.Ctx) (limit, offset int) {
	limit = 20
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}
	return limit, offset
}
