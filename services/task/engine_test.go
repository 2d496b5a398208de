package task

import (
	"context"
	"testing"

	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/errutil"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/middleware"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/notification"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/stage"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestTransitionPublish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createDraft(t)

	updated, err := f.engine.Transition(ctx, f.supplier, task.TaskID, TransitionRequest{Target: stage.Published})
	require.NoError(t, err)
	require.Equal(t, stage.Published, updated.Status)
	require.Equal(t, task.Version+1, updated.Version)

	history, err := f.svc.History(ctx, task.TaskID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, stage.Draft, history[0].Stage)
	require.NotNil(t, history[0].LeftAt)
	require.NotNil(t, history[0].DurationSeconds)
	require.Equal(t, stage.Published, history[1].Stage)
	require.Nil(t, history[1].LeftAt)

	require.Len(t, f.enqueuer.tasks, 1)
	require.Equal(t, notification.TypeTaskStageChanged, f.enqueuer.tasks[0].Type())
}

func TestTransitionPublishIncomplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task, err := f.svc.Create(ctx, f.supplier, CreateRequest{
		EntityID: f.entityID,
		Title:    "bare draft",
	})
	require.NoError(t, err)

	_, err = f.engine.Transition(ctx, f.supplier, task.TaskID, TransitionRequest{Target: stage.Published})
	requireCode(t, err, errutil.StatusPreconditionNotMet)

	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	fields := make([]string, 0, len(be.Details))
	for _, d := range be.Details {
		fields = append(fields, d.Field)
	}
	require.Contains(t, fields, "description")
	require.Contains(t, fields, "deadline")

	// nothing moved
	current, err := f.svc.Get(ctx, task.TaskID)
	require.NoError(t, err)
	require.Equal(t, stage.Draft, current.Status)
}

func TestTransitionUnknownTarget(t *testing.T) {
	f := newFixture(t)

	task := f.createDraft(t)

	_, err := f.engine.Transition(context.Background(), f.supplier, task.TaskID, TransitionRequest{Target: "launching"})
	requireCode(t, err, errutil.StatusBadRequest)
}

func TestTransitionOffTable(t *testing.T) {
	f := newFixture(t)

	task := f.createDraft(t)

	_, err := f.engine.Transition(context.Background(), f.supplier, task.TaskID, TransitionRequest{Target: stage.Reviewing})
	requireCode(t, err, errutil.StatusInvalidState)
}

func TestTransitionByStranger(t *testing.T) {
	f := newFixture(t)

	task := f.createDraft(t)

	_, err := f.engine.Transition(context.Background(), middleware.Actor{UserID: "stranger"}, task.TaskID, TransitionRequest{Target: stage.Published})
	requireCode(t, err, errutil.StatusForbidden)
}

func TestTransitionInProgressRequiresAcceptedApplication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createDraft(t)
	_, err := f.engine.Transition(ctx, f.supplier, task.TaskID, TransitionRequest{Target: stage.Published})
	require.NoError(t, err)

	_, err = f.engine.Transition(ctx, f.supplier, task.TaskID, TransitionRequest{Target: stage.InProgress})
	requireCode(t, err, errutil.StatusPreconditionNotMet)
}

func TestTransitionInProgressAutoRejectsPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.apps.AcceptedCountFn = func(ctx context.Context, taskID string) (int64, error) { return 1, nil }
	var rejectedFor string
	f.apps.RejectPendingInTxFn = func(ctx context.Context, tx *gorm.DB, taskID, actorID string) error {
		rejectedFor = taskID
		return nil
	}

	task := f.createDraft(t)
	_, err := f.engine.Transition(ctx, f.supplier, task.TaskID, TransitionRequest{Target: stage.Published})
	require.NoError(t, err)

	updated, err := f.engine.Transition(ctx, f.supplier, task.TaskID, TransitionRequest{Target: stage.InProgress})
	require.NoError(t, err)
	require.Equal(t, stage.InProgress, updated.Status)
	require.Equal(t, task.TaskID, rejectedFor)
}

func TestTransitionReviewingRequiresSubmittedWork(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.apps.AcceptedCountFn = func(ctx context.Context, taskID string) (int64, error) { return 1, nil }

	task := f.createDraft(t)
	for _, target := range []stage.Stage{stage.Published, stage.InProgress} {
		_, err := f.engine.Transition(ctx, f.supplier, task.TaskID, TransitionRequest{Target: target})
		require.NoError(t, err)
	}

	_, err := f.engine.Transition(ctx, f.supplier, task.TaskID, TransitionRequest{Target: stage.Reviewing})
	requireCode(t, err, errutil.StatusPreconditionNotMet)
}

func TestAdminReverseTransitionWithoutReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createDraft(t)
	_, err := f.engine.Transition(ctx, f.supplier, task.TaskID, TransitionRequest{Target: stage.Published})
	require.NoError(t, err)

	// published -> draft is off the forward table; admins may take it anyway
	updated, err := f.engine.Transition(ctx, testAdmin, task.TaskID, TransitionRequest{Target: stage.Draft})
	require.NoError(t, err)
	require.Equal(t, stage.Draft, updated.Status)

	history, err := f.svc.History(ctx, task.TaskID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.Equal(t, stage.Draft, history[2].Stage)
	require.Nil(t, history[2].LeftAt)

	// a supplier still cannot
	_, err = f.engine.Transition(ctx, f.supplier, updated.TaskID, TransitionRequest{Target: stage.Reviewing})
	requireCode(t, err, errutil.StatusInvalidState)
}

func TestOverrideUrgentSkip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createDraft(t)

	// no accepted application exists; the override legitimizes the jump anyway
	updated, err := f.engine.Transition(ctx, testAdmin, task.TaskID, TransitionRequest{
		Target: stage.InProgress,
		Reason: stage.OverrideUrgentTaskSkip,
	})
	require.NoError(t, err)
	require.Equal(t, stage.InProgress, updated.Status)

	history, err := f.svc.History(ctx, task.TaskID)
	require.NoError(t, err)
	require.Equal(t, string(stage.OverrideUrgentTaskSkip), history[len(history)-1].Reason)
}

func TestOverrideUnknownReason(t *testing.T) {
	f := newFixture(t)

	task := f.createDraft(t)

	_, err := f.engine.Transition(context.Background(), testAdmin, task.TaskID, TransitionRequest{
		Target: stage.InProgress,
		Reason: "because_i_said_so",
	})
	requireCode(t, err, errutil.StatusValidationFailed)
}

func TestOverrideWrongPair(t *testing.T) {
	f := newFixture(t)

	task := f.createDraft(t)

	// urgent_task_skip is bound to draft -> in_progress, not draft -> publishing
	_, err := f.engine.Transition(context.Background(), testAdmin, task.TaskID, TransitionRequest{
		Target: stage.Publishing,
		Reason: stage.OverrideUrgentTaskSkip,
	})
	requireCode(t, err, errutil.StatusInvalidState)
}

func TestOverrideByStranger(t *testing.T) {
	f := newFixture(t)

	task := f.createDraft(t)

	_, err := f.engine.Transition(context.Background(), middleware.Actor{UserID: "stranger"}, task.TaskID, TransitionRequest{
		Target: stage.InProgress,
		Reason: stage.OverrideUrgentTaskSkip,
	})
	requireCode(t, err, errutil.StatusForbidden)
}

func TestProgressOverrideOnRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createDraft(t)

	override := 75
	updated, err := f.engine.Transition(ctx, testAdmin, task.TaskID, TransitionRequest{
		Target:           stage.InProgress,
		Reason:           stage.OverrideUrgentTaskSkip,
		ProgressOverride: &override,
	})
	require.NoError(t, err)

	progress, err := f.svc.Progress(ctx, updated)
	require.NoError(t, err)
	require.Equal(t, 75, progress)
}

func TestTransitionSameStage(t *testing.T) {
	f := newFixture(t)

	task := f.createDraft(t)

	_, err := f.engine.Transition(context.Background(), f.supplier, task.TaskID, TransitionRequest{Target: stage.Draft})
	requireCode(t, err, errutil.StatusInvalidState)
}
