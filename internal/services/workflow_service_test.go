package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/influencer-campaigns/backend/internal/models"
	"github.com/influencer-campaigns/backend/internal/notify"
	"github.com/influencer-campaigns/backend/internal/repositories/memstore"
)

type sentNotification struct {
	appID    uuid.UUID
	old, new string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	fail error
}

func (n *recordingNotifier) Notify(_ context.Context, app *models.Application, oldStatus, newStatus string) notify.Result {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{appID: app.ID, old: oldStatus, new: newStatus})
	if n.fail != nil {
		return notify.Result{Error: n.fail}
	}
	return notify.Result{Success: true}
}

func (n *recordingNotifier) last() sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return sentNotification{}
	}
	return n.sent[len(n.sent)-1]
}

type fixture struct {
	ctx      context.Context
	store    *memstore.Store
	notifier *recordingNotifier
	workflow *WorkflowService
	admin    Actor
	user     Actor
	campaign *models.Campaign
}

func newFixture(t *testing.T, budget string) *fixture {
	t.Helper()
	f := &fixture{
		ctx:      context.Background(),
		store:    memstore.New(),
		notifier: &recordingNotifier{},
		admin:    Actor{UserID: uuid.New(), Role: models.RoleAdmin},
		user:     Actor{UserID: uuid.New(), Role: models.RoleInfluencer},
	}
	f.workflow = NewWorkflowService(f.store, f.notifier, zap.NewNop())
	f.campaign = &models.Campaign{
		Title:  "Summer Launch",
		Budget: decimal.RequireFromString(budget),
		Status: models.CampaignStatusOpen,
	}
	require.NoError(t, f.store.Campaigns().Create(f.ctx, f.campaign))
	return f
}

// apply creates a WAITING application for the fixture user.
func (f *fixture) apply(t *testing.T) *models.Application {
	t.Helper()
	app, err := f.workflow.Apply(f.ctx, f.campaign.ID, f.user.UserID, "hello")
	require.NoError(t, err)
	return app
}

func (f *fixture) submit(stage models.Stage, appID uuid.UUID) (*SubmitResult, error) {
	in := SubmitWorkInput{ApplicationID: appID, Stage: stage, Link: "https://example.com/" + string(stage), Notes: "v"}
	if stage == models.StageInsight {
		in = SubmitWorkInput{ApplicationID: appID, Stage: stage, Image: "https://cdn.example.com/insight.png"}
	}
	return f.workflow.SubmitWork(f.ctx, in, f.user)
}

// completed walks a fresh application through every stage to COMPLETED.
func (f *fixture) completed(t *testing.T) *models.Application {
	t.Helper()
	app := f.apply(t)
	_, err := f.workflow.ReviewApplication(f.ctx, app.ID, true, "", f.admin)
	require.NoError(t, err)
	for _, stage := range models.AllStages {
		_, err := f.submit(stage, app.ID)
		require.NoError(t, err, stage)
		_, err = f.workflow.ApproveStage(f.ctx, app.ID, stage, "ok", f.admin)
		require.NoError(t, err, stage)
	}
	got, err := f.store.Applications().GetByID(f.ctx, app.ID)
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusCompleted, got.Status)
	return got
}

func TestApplyRequiresOpenCampaign(t *testing.T) {
	f := newFixture(t, "1000")
	closed := &models.Campaign{Title: "Old", Budget: decimal.NewFromInt(1), Status: models.CampaignStatusClosed}
	require.NoError(t, f.store.Campaigns().Create(f.ctx, closed))

	_, err := f.workflow.Apply(f.ctx, closed.ID, f.user.UserID, "")
	assert.ErrorIs(t, err, models.ErrCampaignNotOpen)

	app := f.apply(t)
	assert.Equal(t, models.ApplicationStatusWaiting, app.Status)

	_, err = f.workflow.Apply(f.ctx, f.campaign.ID, f.user.UserID, "again")
	assert.ErrorIs(t, err, models.ErrDuplicateApplication)
}

func TestReviewApplication(t *testing.T) {
	tests := []struct {
		name    string
		approve bool
		want    string
	}{
		{"approve", true, models.ApplicationStatusApproved},
		{"reject", false, models.ApplicationStatusRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "1000")
			app := f.apply(t)

			_, err := f.workflow.ReviewApplication(f.ctx, app.ID, tt.approve, "", f.user)
			assert.ErrorIs(t, err, models.ErrForbidden)

			got, err := f.workflow.ReviewApplication(f.ctx, app.ID, tt.approve, "fit", f.admin)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, sentNotification{appID: app.ID, old: models.ApplicationStatusWaiting, new: tt.want}, f.notifier.last())

			_, err = f.workflow.ReviewApplication(f.ctx, app.ID, tt.approve, "", f.admin)
			assert.ErrorIs(t, err, models.ErrInvalidStageTransition)
		})
	}
}

// advanceTo approves every stage before target so target can be submitted.
func (f *fixture) advanceTo(t *testing.T, appID uuid.UUID, target models.Stage) {
	t.Helper()
	for _, stage := range models.AllStages {
		if stage == target {
			return
		}
		_, err := f.submit(stage, appID)
		require.NoError(t, err, stage)
		_, err = f.workflow.ApproveStage(f.ctx, appID, stage, "ok", f.admin)
		require.NoError(t, err, stage)
	}
}

func TestSubmitWorkRoundCap(t *testing.T) {
	for _, stage := range models.RevisionedStages {
		t.Run(string(stage), func(t *testing.T) {
			f := newFixture(t, "1000")
			app := f.apply(t)
			_, err := f.workflow.ReviewApplication(f.ctx, app.ID, true, "", f.admin)
			require.NoError(t, err)
			f.advanceTo(t, app.ID, stage)
			rule := models.StageRules[stage]

			for i := 1; i <= models.MaxRevisionRounds; i++ {
				res, err := f.submit(stage, app.ID)
				require.NoError(t, err)
				assert.Equal(t, i, res.Round.Round)
				assert.Equal(t, rule.Submitted, res.Application.Status)

				_, err = f.workflow.RequestRevision(f.ctx, app.ID, stage, "again", f.admin)
				require.NoError(t, err)
			}

			_, err = f.submit(stage, app.ID)
			assert.ErrorIs(t, err, models.ErrMaxAttemptsExceeded)

			got, err := f.store.Applications().GetByID(f.ctx, app.ID)
			require.NoError(t, err)
			assert.Equal(t, rule.Revise, got.Status)
			history, err := got.Submissions.History(stage)
			require.NoError(t, err)
			assert.Equal(t, models.MaxRevisionRounds, history.Len())
			for _, r := range history.Rounds {
				assert.Equal(t, models.RoundRevisionRequested, r.Status)
				require.NotNil(t, r.Feedback)
				assert.Equal(t, "again", *r.Feedback)
			}
		})
	}
}

func TestInsightHasNoRoundCap(t *testing.T) {
	f := newFixture(t, "1000")
	app := f.apply(t)
	_, err := f.workflow.ReviewApplication(f.ctx, app.ID, true, "", f.admin)
	require.NoError(t, err)
	f.advanceTo(t, app.ID, models.StageInsight)

	for i := 0; i < models.MaxRevisionRounds+2; i++ {
		res, err := f.submit(models.StageInsight, app.ID)
		require.NoError(t, err, "resubmit %d", i+1)
		assert.Nil(t, res.Round)
		_, err = f.workflow.RequestRevision(f.ctx, app.ID, models.StageInsight, "crop it", f.admin)
		require.NoError(t, err)
	}
}

func TestSubmitWorkRequiresContent(t *testing.T) {
	f := newFixture(t, "1000")
	app := f.apply(t)
	_, err := f.workflow.ReviewApplication(f.ctx, app.ID, true, "", f.admin)
	require.NoError(t, err)

	_, err = f.workflow.SubmitWork(f.ctx, SubmitWorkInput{ApplicationID: app.ID, Stage: models.StageScript, Link: "  "}, f.user)
	assert.ErrorIs(t, err, models.ErrInvalidSubmission)

	_, err = f.workflow.SubmitWork(f.ctx, SubmitWorkInput{ApplicationID: app.ID, Stage: models.StageInsight}, f.user)
	assert.ErrorIs(t, err, models.ErrInvalidSubmission)

	got, err := f.store.Applications().GetByID(f.ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusApproved, got.Status)
	assert.Zero(t, got.Submissions.Script.Len())
}

func TestSubmitWorkWrongStage(t *testing.T) {
	f := newFixture(t, "1000")
	app := f.apply(t)

	_, err := f.submit(models.StageScript, app.ID)
	assert.ErrorIs(t, err, models.ErrInvalidStageTransition)

	_, err = f.workflow.ReviewApplication(f.ctx, app.ID, true, "", f.admin)
	require.NoError(t, err)
	_, err = f.submit(models.StageDraft, app.ID)
	assert.ErrorIs(t, err, models.ErrInvalidStageTransition)

	got, err := f.store.Applications().GetByID(f.ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusApproved, got.Status)
	assert.Zero(t, got.Submissions.Draft.Len())
}

func TestSubmitWorkOwnership(t *testing.T) {
	f := newFixture(t, "1000")
	app := f.apply(t)
	_, err := f.workflow.StartWork(f.ctx, app.ID, f.admin)
	assert.ErrorIs(t, err, models.ErrInvalidStageTransition)

	_, err = f.workflow.ReviewApplication(f.ctx, app.ID, true, "", f.admin)
	require.NoError(t, err)

	stranger := Actor{UserID: uuid.New(), Role: models.RoleInfluencer}
	_, err = f.workflow.StartWork(f.ctx, app.ID, stranger)
	assert.ErrorIs(t, err, models.ErrForbidden)

	got, err := f.workflow.StartWork(f.ctx, app.ID, f.user)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusWorkInProgress, got.Status)

	_, err = f.workflow.SubmitWork(f.ctx, SubmitWorkInput{ApplicationID: app.ID, Stage: models.StageScript, Link: "x"}, stranger)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestReviewOnlyPendingSubmission(t *testing.T) {
	f := newFixture(t, "1000")
	app := f.apply(t)
	_, err := f.workflow.ReviewApplication(f.ctx, app.ID, true, "", f.admin)
	require.NoError(t, err)

	_, err = f.workflow.ApproveStage(f.ctx, app.ID, models.StageScript, "", f.admin)
	assert.ErrorIs(t, err, models.ErrInvalidStageTransition)

	_, err = f.submit(models.StageScript, app.ID)
	require.NoError(t, err)

	_, err = f.workflow.ApproveStage(f.ctx, app.ID, models.StageDraft, "", f.admin)
	assert.ErrorIs(t, err, models.ErrInvalidStageTransition)
	_, err = f.workflow.ApproveStage(f.ctx, app.ID, models.StageScript, "", f.user)
	assert.ErrorIs(t, err, models.ErrForbidden)

	got, err := f.workflow.ApproveStage(f.ctx, app.ID, models.StageScript, "great", f.admin)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusScriptApproved, got.Status)
	assert.Equal(t, models.RoundApproved, got.Submissions.Script.Latest().Status)
}

func TestInsightOverwritesSlot(t *testing.T) {
	f := newFixture(t, "1000")
	app := f.apply(t)
	_, err := f.workflow.ReviewApplication(f.ctx, app.ID, true, "", f.admin)
	require.NoError(t, err)
	for _, stage := range models.RevisionedStages {
		_, err := f.submit(stage, app.ID)
		require.NoError(t, err)
		_, err = f.workflow.ApproveStage(f.ctx, app.ID, stage, "", f.admin)
		require.NoError(t, err)
	}

	// insight has no round cap
	for i := 0; i < models.MaxRevisionRounds+1; i++ {
		res, err := f.submit(models.StageInsight, app.ID)
		require.NoError(t, err)
		assert.Nil(t, res.Round)
		_, err = f.workflow.RequestRevision(f.ctx, app.ID, models.StageInsight, "blurry", f.admin)
		require.NoError(t, err)
	}

	got, err := f.store.Applications().GetByID(f.ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusReviseInsight, got.Status)
	assert.Equal(t, "blurry", got.Insight.Feedback)
}

func TestFullWorkflowReachesCompleted(t *testing.T) {
	f := newFixture(t, "1000")
	app := f.completed(t)

	hist, err := f.workflow.GetRevisionHistory(f.ctx, app.ID, f.user)
	require.NoError(t, err)
	assert.Equal(t, "payment", hist.CurrentStage)
	assert.Equal(t, 1, hist.Submissions.Final.Len())

	logs, err := f.workflow.GetHistory(f.ctx, app.ID, f.admin)
	require.NoError(t, err)
	// apply, review, 4 submits, 4 approvals
	assert.Len(t, logs, 10)
}

func TestConcurrentSubmitsRespectCap(t *testing.T) {
	f := newFixture(t, "1000")
	app := f.apply(t)
	_, err := f.workflow.ReviewApplication(f.ctx, app.ID, true, "", f.admin)
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok int
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.submit(models.StageScript, app.ID); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// only one submission is accepted while the first awaits review
	assert.Equal(t, 1, ok)
	got, err := f.store.Applications().GetByID(f.ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Submissions.Script.Len())
}

func TestNotifierFailureIsSwallowed(t *testing.T) {
	f := newFixture(t, "1000")
	f.notifier.fail = errors.New("line down")
	app := f.apply(t)

	got, err := f.workflow.ReviewApplication(f.ctx, app.ID, true, "", f.admin)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusApproved, got.Status)
}

func TestFailedSaveLeavesNoTrace(t *testing.T) {
	f := newFixture(t, "1000")
	app := f.apply(t)
	_, err := f.workflow.ReviewApplication(f.ctx, app.ID, true, "", f.admin)
	require.NoError(t, err)
	sent := len(f.notifier.sent)

	boom := errors.New("connection reset")
	f.store.FailOn("applications.save", boom)
	_, err = f.submit(models.StageScript, app.ID)
	require.ErrorIs(t, err, boom)

	got, err := f.store.Applications().GetByID(f.ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusApproved, got.Status)
	assert.Zero(t, got.Submissions.Script.Len())
	assert.Len(t, f.notifier.sent, sent)
}

func TestDeleteApplication(t *testing.T) {
	f := newFixture(t, "1000")
	app := f.apply(t)

	assert.ErrorIs(t, f.workflow.DeleteApplication(f.ctx, app.ID, f.user), models.ErrForbidden)
	require.NoError(t, f.workflow.DeleteApplication(f.ctx, app.ID, f.admin))

	_, err := f.workflow.GetApplication(f.ctx, app.ID, f.admin)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateAdminNotesKeepsStatus(t *testing.T) {
	f := newFixture(t, "1000")
	app := f.apply(t)

	got, err := f.workflow.UpdateAdminNotes(f.ctx, app.ID, "  strong profile ", f.admin)
	require.NoError(t, err)
	assert.Equal(t, "strong profile", got.AdminNotes)
	assert.Equal(t, models.ApplicationStatusWaiting, got.Status)
}
