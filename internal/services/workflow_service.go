package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/influencer-campaigns/backend/internal/models"
	"github.com/influencer-campaigns/backend/internal/notify"
	"github.com/influencer-campaigns/backend/internal/repositories"
)

// WorkflowService drives an application through its stages. Every operation
// runs in one transaction with the application row locked; the notifier is
// called only after commit.
type WorkflowService struct {
	store    repositories.Store
	notifier notify.Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewWorkflowService(store repositories.Store, notifier notify.Notifier, log *zap.Logger) *WorkflowService {
	return &WorkflowService{
		store:    store,
		notifier: notifier,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type statusChange struct {
	app      *models.Application
	old, new string
}

// notifyChange dispatches a committed status change. Failures are logged only.
func (s *WorkflowService) notifyChange(ctx context.Context, ch statusChange) {
	if ch.app == nil || ch.old == ch.new {
		return
	}
	res := s.notifier.Notify(ctx, ch.app, ch.old, ch.new)
	if !res.Success {
		s.log.Warn("status notification failed",
			zap.String("application_id", ch.app.ID.String()),
			zap.String("new_status", ch.new),
			zap.Error(res.Error))
	}
}

// mutate locks the application, applies fn and saves the result with an audit entry.
func (s *WorkflowService) mutate(ctx context.Context, appID uuid.UUID, actor Actor, action string,
	fn func(tx repositories.Repos, app *models.Application) (map[string]any, error),
) (*models.Application, statusChange, error) {
	var out *models.Application
	var change statusChange

	err := s.store.InTx(ctx, func(tx repositories.Repos) error {
		app, err := tx.Applications().GetForUpdate(ctx, appID)
		if err != nil {
			return err
		}
		oldStatus := app.Status

		meta, err := fn(tx, app)
		if err != nil {
			return err
		}
		if app.Status != oldStatus && !models.IsValidTransition(oldStatus, app.Status) {
			return fmt.Errorf("%w: %s -> %s", models.ErrInvalidStageTransition, oldStatus, app.Status)
		}
		if err := tx.Applications().Save(ctx, app); err != nil {
			return err
		}

		if meta == nil {
			meta = map[string]any{}
		}
		meta["old_status"] = oldStatus
		meta["new_status"] = app.Status
		if err := tx.Audit().Log(ctx, auditEntry(actor, action, "application", app.ID, meta)); err != nil {
			return err
		}

		out = app
		change = statusChange{app: app.Clone(), old: oldStatus, new: app.Status}
		return nil
	})
	if err != nil {
		return nil, statusChange{}, err
	}
	return out, change, nil
}

func requireAdmin(actor Actor) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: admin role required", models.ErrForbidden)
	}
	return nil
}

func requireOwnerOrAdmin(actor Actor, app *models.Application) error {
	if actor.IsAdmin() || app.UserID == actor.UserID {
		return nil
	}
	return fmt.Errorf("%w: application belongs to another participant", models.ErrForbidden)
}

// Apply registers a participant for an OPEN campaign with status WAITING.
func (s *WorkflowService) Apply(ctx context.Context, campaignID, participantID uuid.UUID, note string) (*models.Application, error) {
	app := &models.Application{
		CampaignID:      campaignID,
		UserID:          participantID,
		Status:          models.ApplicationStatusWaiting,
		ApplicationNote: strings.TrimSpace(note),
	}
	actor := Actor{UserID: participantID, Role: models.RoleInfluencer}

	err := s.store.InTx(ctx, func(tx repositories.Repos) error {
		campaign, err := tx.Campaigns().GetByID(ctx, campaignID)
		if err != nil {
			return fmt.Errorf("campaign %s: %w", campaignID, err)
		}
		if campaign.Status != models.CampaignStatusOpen {
			return fmt.Errorf("%w: status %s", models.ErrCampaignNotOpen, campaign.Status)
		}
		if err := tx.Applications().Create(ctx, app); err != nil {
			return err
		}
		return tx.Audit().Log(ctx, auditEntry(actor, models.AuditActionApply, "application", app.ID,
			map[string]any{"campaign_id": campaignID.String()}))
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("application created",
		zap.String("application_id", app.ID.String()),
		zap.String("campaign_id", campaignID.String()),
		zap.String("user_id", participantID.String()))
	s.notifyChange(ctx, statusChange{app: app.Clone(), old: "", new: app.Status})
	return app, nil
}

// ReviewApplication approves or rejects a WAITING application.
func (s *WorkflowService) ReviewApplication(ctx context.Context, appID uuid.UUID, approve bool, reason string, actor Actor) (*models.Application, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	app, change, err := s.mutate(ctx, appID, actor, models.AuditActionReview,
		func(_ repositories.Repos, app *models.Application) (map[string]any, error) {
			if app.Status != models.ApplicationStatusWaiting {
				return nil, fmt.Errorf("%w: review requires %s, application is %s",
					models.ErrInvalidStageTransition, models.ApplicationStatusWaiting, app.Status)
			}
			if approve {
				app.Status = models.ApplicationStatusApproved
			} else {
				app.Status = models.ApplicationStatusRejected
			}
			return map[string]any{"approved": approve, "reason": reason}, nil
		})
	if err != nil {
		return nil, err
	}
	s.notifyChange(ctx, change)
	return app, nil
}

// StartWork moves an APPROVED application to WORK_IN_PROGRESS.
func (s *WorkflowService) StartWork(ctx context.Context, appID uuid.UUID, actor Actor) (*models.Application, error) {
	app, change, err := s.mutate(ctx, appID, actor, models.AuditActionStartWork,
		func(_ repositories.Repos, app *models.Application) (map[string]any, error) {
			if err := requireOwnerOrAdmin(actor, app); err != nil {
				return nil, err
			}
			if app.Status != models.ApplicationStatusApproved {
				return nil, fmt.Errorf("%w: start requires %s, application is %s",
					models.ErrInvalidStageTransition, models.ApplicationStatusApproved, app.Status)
			}
			app.Status = models.ApplicationStatusWorkInProgress
			return nil, nil
		})
	if err != nil {
		return nil, err
	}
	s.notifyChange(ctx, change)
	return app, nil
}

type SubmitWorkInput struct {
	ApplicationID uuid.UUID
	Stage         models.Stage
	Link          string
	Notes         string
	// Insight only
	Image string
	Files []string
}

type SubmitResult struct {
	Application *models.Application `json:"application"`
	// Round is nil for the insight stage.
	Round *models.Round `json:"round,omitempty"`
}

// SubmitWork records a participant submission for a stage. Script, draft and
// final append a round (at most MaxRevisionRounds); insight overwrites its slot.
func (s *WorkflowService) SubmitWork(ctx context.Context, in SubmitWorkInput, actor Actor) (*SubmitResult, error) {
	rule, ok := models.StageRules[in.Stage]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidStage, in.Stage)
	}
	link := strings.TrimSpace(in.Link)
	if in.Stage.HasRevisions() && link == "" {
		return nil, fmt.Errorf("%w: %s submission requires a link", models.ErrInvalidSubmission, in.Stage)
	}
	if in.Stage == models.StageInsight && strings.TrimSpace(in.Image) == "" && len(in.Files) == 0 {
		return nil, fmt.Errorf("%w: insight submission requires an image or files", models.ErrInvalidSubmission)
	}

	var round *models.Round
	app, change, err := s.mutate(ctx, in.ApplicationID, actor, models.AuditActionSubmitWork,
		func(_ repositories.Repos, app *models.Application) (map[string]any, error) {
			if err := requireOwnerOrAdmin(actor, app); err != nil {
				return nil, err
			}
			if !models.CanSubmit(in.Stage, app.Status) {
				return nil, fmt.Errorf("%w: cannot submit %s while %s",
					models.ErrInvalidStageTransition, in.Stage, app.Status)
			}
			meta := map[string]any{"stage": string(in.Stage)}

			if in.Stage.HasRevisions() {
				history, err := app.Submissions.History(in.Stage)
				if err != nil {
					return nil, err
				}
				r, err := history.Append(link, strings.TrimSpace(in.Notes), s.now())
				if err != nil {
					return nil, err
				}
				round = &r
				meta["round"] = r.Round
			} else {
				app.Insight.Submit(strings.TrimSpace(in.Image), in.Files, strings.TrimSpace(in.Notes), s.now())
			}

			app.Status = rule.Submitted
			return meta, nil
		})
	if err != nil {
		if errors.Is(err, models.ErrMaxAttemptsExceeded) {
			s.log.Info("submission rejected, round cap reached",
				zap.String("application_id", in.ApplicationID.String()),
				zap.String("stage", string(in.Stage)))
		}
		return nil, err
	}
	s.notifyChange(ctx, change)
	return &SubmitResult{Application: app, Round: round}, nil
}

// ApproveStage accepts the pending submission of a stage.
func (s *WorkflowService) ApproveStage(ctx context.Context, appID uuid.UUID, stage models.Stage, feedback string, actor Actor) (*models.Application, error) {
	return s.review(ctx, appID, stage, feedback, actor, true)
}

// RequestRevision sends the pending submission of a stage back to the participant.
func (s *WorkflowService) RequestRevision(ctx context.Context, appID uuid.UUID, stage models.Stage, feedback string, actor Actor) (*models.Application, error) {
	return s.review(ctx, appID, stage, feedback, actor, false)
}

func (s *WorkflowService) review(ctx context.Context, appID uuid.UUID, stage models.Stage, feedback string, actor Actor, approve bool) (*models.Application, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	rule, ok := models.StageRules[stage]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidStage, stage)
	}
	action := models.AuditActionRequestRevision
	if approve {
		action = models.AuditActionApproveStage
	}
	feedback = strings.TrimSpace(feedback)

	app, change, err := s.mutate(ctx, appID, actor, action,
		func(_ repositories.Repos, app *models.Application) (map[string]any, error) {
			if !models.CanReview(stage, app.Status) {
				return nil, fmt.Errorf("%w: %s has no pending %s submission (status %s)",
					models.ErrInvalidStageTransition, app.ID, stage, app.Status)
			}

			if stage.HasRevisions() {
				history, err := app.Submissions.History(stage)
				if err != nil {
					return nil, err
				}
				status := models.RoundRevisionRequested
				if approve {
					status = models.RoundApproved
				}
				if err := history.Review(status, feedback, s.now()); err != nil {
					return nil, err
				}
			} else {
				app.Insight.Review(feedback)
			}

			if approve {
				app.Status = rule.Approved
			} else {
				app.Status = rule.Revise
			}
			return map[string]any{"stage": string(stage), "feedback": feedback}, nil
		})
	if err != nil {
		return nil, err
	}
	s.notifyChange(ctx, change)
	return app, nil
}

// UpdateAdminNotes replaces the internal notes on an application.
func (s *WorkflowService) UpdateAdminNotes(ctx context.Context, appID uuid.UUID, notes string, actor Actor) (*models.Application, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	app, _, err := s.mutate(ctx, appID, actor, models.AuditActionUpdateNotes,
		func(_ repositories.Repos, app *models.Application) (map[string]any, error) {
			app.AdminNotes = strings.TrimSpace(notes)
			return nil, nil
		})
	return app, err
}

// DeleteApplication removes an application that owns no ledger entries.
func (s *WorkflowService) DeleteApplication(ctx context.Context, appID uuid.UUID, actor Actor) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	err := s.store.InTx(ctx, func(tx repositories.Repos) error {
		app, err := tx.Applications().GetForUpdate(ctx, appID)
		if err != nil {
			return err
		}
		if err := tx.Applications().Delete(ctx, appID); err != nil {
			return err
		}
		return tx.Audit().Log(ctx, auditEntry(actor, models.AuditActionDelete, "application", appID,
			map[string]any{"status": app.Status, "campaign_id": app.CampaignID.String()}))
	})
	if errors.Is(err, models.ErrImmutableLedgerViolation) {
		s.log.Error("ledger integrity: delete of application with ledger entries refused",
			zap.String("application_id", appID.String()),
			zap.String("actor_id", actor.UserID.String()),
			zap.Error(err))
	}
	return err
}

// GetApplication returns an application visible to actor.
func (s *WorkflowService) GetApplication(ctx context.Context, appID uuid.UUID, actor Actor) (*models.Application, error) {
	app, err := s.store.Applications().GetByID(ctx, appID)
	if err != nil {
		return nil, err
	}
	if err := requireOwnerOrAdmin(actor, app); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *WorkflowService) ListApplications(ctx context.Context, f models.ApplicationFilter) ([]models.ApplicationWithCampaign, error) {
	return s.store.Applications().List(ctx, f)
}

func (s *WorkflowService) ListMyApplications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.ApplicationWithCampaign, error) {
	return s.store.Applications().List(ctx, models.ApplicationFilter{UserID: &userID, Limit: limit, Offset: offset})
}

// RevisionHistory is the full submission record of one application.
type RevisionHistory struct {
	ApplicationID uuid.UUID                   `json:"application_id"`
	Status        string                      `json:"status"`
	CurrentStage  string                      `json:"current_stage"`
	Submissions   models.Submissions          `json:"submission_data"`
	Insight       models.SingleSlotSubmission `json:"insight"`
}

func (s *WorkflowService) GetRevisionHistory(ctx context.Context, appID uuid.UUID, actor Actor) (*RevisionHistory, error) {
	app, err := s.GetApplication(ctx, appID, actor)
	if err != nil {
		return nil, err
	}
	return &RevisionHistory{
		ApplicationID: app.ID,
		Status:        app.Status,
		CurrentStage:  app.CurrentStage(),
		Submissions:   app.Submissions,
		Insight:       app.Insight,
	}, nil
}

// GetHistory returns the audit trail of an application, newest first.
func (s *WorkflowService) GetHistory(ctx context.Context, appID uuid.UUID, actor Actor) ([]models.AuditLog, error) {
	if _, err := s.GetApplication(ctx, appID, actor); err != nil {
		return nil, err
	}
	return s.store.Audit().GetByEntity(ctx, "application", appID, 100, 0)
}
