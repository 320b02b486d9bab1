package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/influencer-campaigns/backend/internal/http/dto"
	"github.com/influencer-campaigns/backend/internal/models"
)

type MetaHandler struct{}

func NewMetaHandler() *MetaHandler {
	return &MetaHandler{}
}

type MetaStatus struct {
	ID          string   `json:"id"`
	Stage       string   `json:"stage"`
	Transitions []string `json:"transitions"`
	Payable     bool     `json:"payable,omitempty"`
}

func (h *MetaHandler) GetStatuses(c *fiber.Ctx) error {
	out := make([]MetaStatus, 0, len(models.AllApplicationStatuses))
	for _, s := range models.AllApplicationStatuses {
		app := models.Application{Status: s}
		out = append(out, MetaStatus{
			ID:          s,
			Stage:       app.CurrentStage(),
			Transitions: models.ValidApplicationTransitions[s],
			Payable:     models.IsPayable(s),
		})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: out})
}

func (h *MetaHandler) GetStages(c *fiber.Ctx) error {
	out := make([]dto.StageInfo, 0, len(models.AllStages))
	for _, s := range models.AllStages {
		info := dto.StageInfo{Stage: string(s), HasRevisions: s.HasRevisions()}
		if info.HasRevisions {
			info.MaxRounds = models.MaxRevisionRounds
		}
		out = append(out, info)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: out})
}
