package handlers

import (
	"encoding/json"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/influencer-campaigns/backend/internal/http/dto"
	"github.com/influencer-campaigns/backend/internal/models"
	"github.com/influencer-campaigns/backend/internal/services"
)

type FinanceHandler struct {
	payouts     *services.PayoutService
	settlements *services.SettlementService
	log         *zap.Logger
}

func NewFinanceHandler(payouts *services.PayoutService, settlements *services.SettlementService, log *zap.Logger) *FinanceHandler {
	return &FinanceHandler{payouts: payouts, settlements: settlements, log: log}
}

// ConfirmPayout accepts JSON, or multipart form fields with an optional "slip" file.
func (h *FinanceHandler) ConfirmPayout(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "invalid application id")
	}

	var req dto.ConfirmPayoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	in := services.ConfirmPayoutInput{
		ApplicationID:  id,
		ProofReference: req.ProofReference,
		IncludeVAT:     req.IncludeVAT,
		IncludeWHT:     req.IncludeWHT,
	}

	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		if fh, err := c.FormFile("slip"); err == nil {
			f, err := fh.Open()
			if err != nil {
				return badRequest(c, "unreadable slip upload")
			}
			defer f.Close()
			in.Slip = &services.Slip{Filename: fh.Filename, Body: f}
		}
	}

	res, err := h.payouts.ConfirmPayout(c.UserContext(), in, actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: res})
}

// ConfirmPayoutsBulk confirms several payouts from one multipart form:
// application_ids is a JSON array, each id needs a slip_<id> file and may
// carry reference_<id> (defaults to the slip file name). Items are paid
// independently; failures are listed in errors.
func (h *FinanceHandler) ConfirmPayoutsBulk(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return badRequest(c, "multipart form required")
	}

	var rawIDs []string
	if err := json.Unmarshal([]byte(formValue(form, "application_ids")), &rawIDs); err != nil {
		return badRequest(c, "application_ids must be a JSON array of ids")
	}
	if len(rawIDs) == 0 {
		return badRequest(c, "no applications selected")
	}
	includeVAT, _ := strconv.ParseBool(formValue(form, "include_vat"))
	includeWHT, _ := strconv.ParseBool(formValue(form, "include_wht"))

	var (
		items    []services.ConfirmPayoutInput
		itemErrs []dto.ItemError
	)
	for _, raw := range rawIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			itemErrs = append(itemErrs, dto.ItemError{ID: raw, Error: "invalid application id", Code: dto.CodeBadRequest})
			continue
		}
		files := form.File["slip_"+raw]
		if len(files) == 0 {
			itemErrs = append(itemErrs, dto.ItemError{ID: raw, Error: "missing slip file", Code: dto.CodeBadRequest})
			continue
		}
		f, err := files[0].Open()
		if err != nil {
			itemErrs = append(itemErrs, dto.ItemError{ID: raw, Error: "unreadable slip upload", Code: dto.CodeBadRequest})
			continue
		}
		// Closed on return, after ConfirmPayouts has stored it.
		defer f.Close()

		ref := formValue(form, "reference_"+raw)
		if strings.TrimSpace(ref) == "" {
			ref = "SLIP " + files[0].Filename
		}
		items = append(items, services.ConfirmPayoutInput{
			ApplicationID:  id,
			ProofReference: ref,
			IncludeVAT:     includeVAT,
			IncludeWHT:     includeWHT,
			Slip:           &services.Slip{Filename: files[0].Filename, Body: f},
		})
	}

	res, err := h.payouts.ConfirmPayouts(c.UserContext(), items, actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	for _, fail := range res.Failed {
		itemErrs = append(itemErrs, itemError(fail.ApplicationID.String(), fail.Err))
	}
	if itemErrs == nil {
		itemErrs = []dto.ItemError{}
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.BulkPayoutResponse{
		ProcessedCount: res.Processed(),
		Payouts:        res.Payouts,
		Errors:         itemErrs,
	}})
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func (h *FinanceHandler) ListTransactions(c *fiber.Ctx) error {
	limit, offset := paging(c)
	f := models.TransactionFilter{
		Type:   strings.ToUpper(c.Query("type")),
		Status: strings.ToUpper(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	}
	if v := c.Query("application_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return badRequest(c, "invalid application_id")
		}
		f.ApplicationID = &id
	}

	txs, err := h.payouts.ListTransactions(c.UserContext(), f)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: txs})
}

func (h *FinanceHandler) PendingPayouts(c *fiber.Ctx) error {
	list, err := h.payouts.PendingPayouts(c.UserContext(), c.QueryBool("include_vat"), c.QueryBool("include_wht"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: list})
}

func (h *FinanceHandler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.payouts.DashboardStats(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: stats})
}

// Preview returns the breakdown for ?net=, without writing anything.
func (h *FinanceHandler) Preview(c *fiber.Ctx) error {
	net, err := decimal.NewFromString(c.Query("net"))
	if err != nil {
		return badRequest(c, "net must be a decimal amount")
	}
	b, err := h.payouts.Preview(net, c.QueryBool("include_vat"), c.QueryBool("include_wht"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: b})
}

func (h *FinanceHandler) InternalRevenue(c *fiber.Ctx) error {
	overview, err := h.settlements.Overview(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: overview})
}

func (h *FinanceHandler) Settle(c *fiber.Ctx) error {
	var req dto.SettleRevenueRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request")
		}
	}
	st, n, err := h.settlements.SettleUnclaimed(c.UserContext(), req.Note, actorFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: dto.SettleResponse{Settlement: st, Settled: n}})
}
