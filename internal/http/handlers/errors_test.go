package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/influencer-campaigns/backend/internal/http/dto"
	"github.com/influencer-campaigns/backend/internal/middleware"
	"github.com/influencer-campaigns/backend/internal/models"
	"github.com/influencer-campaigns/backend/internal/storage"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"max attempts", fmt.Errorf("script: %w", models.ErrMaxAttemptsExceeded), fiber.StatusUnprocessableEntity, dto.CodeMaxAttemptsExceeded},
		{"invalid transition", fmt.Errorf("%w: WAITING", models.ErrInvalidStageTransition), fiber.StatusConflict, dto.CodeInvalidStageTransition},
		{"ledger violation", models.ErrImmutableLedgerViolation, fiber.StatusConflict, dto.CodeImmutableLedgerViolation},
		{"missing proof", models.ErrMissingProofReference, fiber.StatusBadRequest, dto.CodeMissingProofReference},
		{"insufficient value", models.ErrInsufficientJobValue, fiber.StatusUnprocessableEntity, dto.CodeInsufficientJobValue},
		{"nothing to settle", models.ErrNothingToSettle, fiber.StatusConflict, dto.CodeNothingToSettle},
		{"not found", fmt.Errorf("campaign x: %w", models.ErrNotFound), fiber.StatusNotFound, dto.CodeNotFound},
		{"forbidden", models.ErrForbidden, fiber.StatusForbidden, dto.CodeForbidden},
		{"wallet frozen", models.ErrWalletFrozen, fiber.StatusConflict, dto.CodeWalletFrozen},
		{"too large", storage.ErrTooLarge, fiber.StatusRequestEntityTooLarge, dto.CodeFileTooLarge},
		{"unsupported type", fmt.Errorf("store transfer slip: %w", storage.ErrUnsupportedType), fiber.StatusUnsupportedMediaType, dto.CodeUnsupportedFileType},
		{"invalid submission", fmt.Errorf("%w: script submission requires a link", models.ErrInvalidSubmission), fiber.StatusBadRequest, dto.CodeInvalidSubmission},
		{"invalid amount", models.ErrInvalidAmount, fiber.StatusBadRequest, dto.CodeInvalidAmount},
		{"unknown", errors.New("pq: connection refused"), fiber.StatusInternalServerError, dto.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(middleware.RequestIDMiddleware())
			app.Get("/", func(c *fiber.Ctx) error { return writeError(c, zap.NewNop(), tt.err) })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			body, _ := io.ReadAll(resp.Body)
			var out dto.ErrorResponse
			require.NoError(t, json.Unmarshal(body, &out))
			assert.Equal(t, tt.wantCode, out.Code)
			assert.NotEmpty(t, out.RequestID)
			if tt.wantStatus == fiber.StatusInternalServerError {
				assert.Equal(t, "internal error", out.Error)
			}
		})
	}
}
