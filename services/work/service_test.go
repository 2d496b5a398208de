package work

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/errutil"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/middleware"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/repository"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/permission"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/stage"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/task"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeSequence struct {
	counter atomic.Int64
}

func (f *fakeSequence) NextTaskCode(ctx context.Context, entityID string) (string, error) {
	return fmt.Sprintf("TSK-TEST-%03d", f.counter.Add(1)), nil
}

func (f *fakeSequence) NextApplicationCode(ctx context.Context, entityID string) (string, error) {
	return fmt.Sprintf("APP-TEST-%03d", f.counter.Add(1)), nil
}

type fixture struct {
	db       *gorm.DB
	svc      *Service
	tasks    *task.Service
	entityID string
	supplier middleware.Actor
	creator  middleware.Actor
}

var testAdmin = middleware.Actor{UserID: "admin-1", Role: middleware.RoleAdmin}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t,
		&permission.BusinessEntity{},
		&permission.UserBusinessPermission{},
		&task.Task{},
		&task.StageRecord{},
		&Asset{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	perms := permission.NewService(permission.ServiceParams{
		Node:        node,
		Entities:    repository.ProvideStore[permission.BusinessEntity](db),
		Permissions: repository.ProvideStore[permission.UserBusinessPermission](db),
	})

	tasks := task.NewService(task.ServiceParams{
		DB:          db,
		Node:        node,
		Sequence:    &fakeSequence{},
		Registry:    stage.NewRegistry(),
		Permissions: perms,
		Tasks:       repository.ProvideStore[task.Task](db),
		Records:     repository.ProvideStore[task.StageRecord](db),
	})

	svc := NewService(ServiceParams{
		DB:          db,
		Node:        node,
		Permissions: perms,
		Tasks:       tasks,
		Assets:      repository.ProvideStore[Asset](db),
	})

	ctx := context.Background()
	entity, err := perms.CreateEntity(ctx, permission.CreateEntityRequest{Type: "supplier", Name: "Sun Coast Tours"})
	require.NoError(t, err)

	supplier := middleware.Actor{UserID: "supplier-1"}
	_, err = perms.Grant(ctx, testAdmin, permission.GrantRequest{
		UserID:   supplier.UserID,
		EntityID: entity.EntityID,
		Level:    "manager",
	})
	require.NoError(t, err)

	return &fixture{
		db:       db,
		svc:      svc,
		tasks:    tasks,
		entityID: entity.EntityID,
		supplier: supplier,
		creator:  middleware.Actor{UserID: "creator-1"},
	}
}

// createRunningTask sets up a task in in_progress bound to f.creator.
func (f *fixture) createRunningTask(t *testing.T) *task.Task {
	t.Helper()
	ctx := context.Background()

	deadline := time.Now().Add(14 * 24 * time.Hour)
	created, err := f.tasks.Create(ctx, f.supplier, task.CreateRequest{
		EntityID:     f.entityID,
		Title:        "Coastal food tour reel",
		Description:  "Short-form video covering the harbor food walk",
		Requirements: "60-90s vertical video",
		BudgetMin:    15000,
		BudgetMax:    25000,
		Deadline:     &deadline,
	})
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&task.Task{}).
		Where("task_id = ?", created.TaskID).
		Updates(map[string]any{
			"status":              stage.InProgress,
			"accepted_creator_id": f.creator.UserID,
		}).Error)

	got, err := f.tasks.Get(ctx, created.TaskID)
	require.NoError(t, err)
	return got
}

func (f *fixture) submit(t *testing.T, taskID string) *Asset {
	t.Helper()

	asset, err := f.svc.Submit(context.Background(), f.creator, SubmitRequest{
		TaskID:     taskID,
		Type:       "video",
		Title:      "Harbor food walk, cut 1",
		ContentURL: "https://cdn.example.com/assets/harbor-cut-1.mp4",
	})
	require.NoError(t, err)
	return asset
}

func requireCode(t *testing.T, err error, code errutil.CoreStatus) {
	t.Helper()

	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, code, be.Code)
}

func TestSubmit(t *testing.T) {
	f := newFixture(t)

	running := f.createRunningTask(t)
	asset := f.submit(t, running.TaskID)

	require.Equal(t, StatusSubmitted, asset.Status)
	require.Equal(t, AssetVideo, asset.Type)
	require.Equal(t, f.creator.UserID, asset.CreatorID)
}

func TestSubmitUnknownType(t *testing.T) {
	f := newFixture(t)

	running := f.createRunningTask(t)

	_, err := f.svc.Submit(context.Background(), f.creator, SubmitRequest{
		TaskID:     running.TaskID,
		Type:       "hologram",
		ContentURL: "https://cdn.example.com/x",
	})
	requireCode(t, err, errutil.StatusValidationFailed)
}

func TestSubmitByNonAcceptedCreator(t *testing.T) {
	f := newFixture(t)

	running := f.createRunningTask(t)

	_, err := f.svc.Submit(context.Background(), middleware.Actor{UserID: "creator-2"}, SubmitRequest{
		TaskID:     running.TaskID,
		Type:       "video",
		ContentURL: "https://cdn.example.com/x",
	})
	requireCode(t, err, errutil.StatusForbidden)
}

func TestSubmitWrongStage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	running := f.createRunningTask(t)
	require.NoError(t, f.db.Model(&task.Task{}).
		Where("task_id = ?", running.TaskID).
		Update("status", stage.Reviewing).Error)

	_, err := f.svc.Submit(ctx, f.creator, SubmitRequest{
		TaskID:     running.TaskID,
		Type:       "video",
		ContentURL: "https://cdn.example.com/x",
	})
	requireCode(t, err, errutil.StatusInvalidState)
}

func TestReviewApprove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	running := f.createRunningTask(t)
	asset := f.submit(t, running.TaskID)

	reviewed, err := f.svc.Review(ctx, f.supplier, asset.AssetID, ReviewRequest{
		Decision: StatusApproved,
		Feedback: "great pacing",
	})
	require.NoError(t, err)
	require.Equal(t, StatusApproved, reviewed.Status)
	require.Equal(t, "great pacing", reviewed.Feedback)

	// review does not move the task
	current, err := f.tasks.Get(ctx, running.TaskID)
	require.NoError(t, err)
	require.Equal(t, stage.InProgress, current.Status)
}

func TestReviewByStranger(t *testing.T) {
	f := newFixture(t)

	running := f.createRunningTask(t)
	asset := f.submit(t, running.TaskID)

	_, err := f.svc.Review(context.Background(), middleware.Actor{UserID: "stranger"}, asset.AssetID, ReviewRequest{Decision: StatusApproved})
	requireCode(t, err, errutil.StatusForbidden)
}

func TestReviewTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	running := f.createRunningTask(t)
	asset := f.submit(t, running.TaskID)

	_, err := f.svc.Review(ctx, f.supplier, asset.AssetID, ReviewRequest{Decision: StatusApproved})
	require.NoError(t, err)

	_, err = f.svc.Review(ctx, f.supplier, asset.AssetID, ReviewRequest{Decision: StatusRevisionRequired})
	requireCode(t, err, errutil.StatusInvalidState)
}

func TestResubmissionTrail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	running := f.createRunningTask(t)
	first := f.submit(t, running.TaskID)

	_, err := f.svc.Review(ctx, f.supplier, first.AssetID, ReviewRequest{
		Decision: StatusRevisionRequired,
		Feedback: "tighten the intro",
	})
	require.NoError(t, err)

	second, err := f.svc.Submit(ctx, f.creator, SubmitRequest{
		TaskID:         running.TaskID,
		Type:           "video",
		Title:          "Harbor food walk, cut 2",
		ContentURL:     "https://cdn.example.com/assets/harbor-cut-2.mp4",
		ResubmissionOf: first.AssetID,
	})
	require.NoError(t, err)
	require.Equal(t, first.AssetID, second.ResubmissionOf)

	// the trail is append-only: the first asset keeps its decision
	trail, err := f.svc.ListByTask(ctx, running.TaskID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	require.Equal(t, StatusRevisionRequired, trail[0].Status)
	require.Equal(t, StatusSubmitted, trail[1].Status)
}

func TestResubmissionOfUndecidedAsset(t *testing.T) {
	f := newFixture(t)

	running := f.createRunningTask(t)
	first := f.submit(t, running.TaskID)

	_, err := f.svc.Submit(context.Background(), f.creator, SubmitRequest{
		TaskID:         running.TaskID,
		Type:           "video",
		ContentURL:     "https://cdn.example.com/assets/harbor-cut-2.mp4",
		ResubmissionOf: first.AssetID,
	})
	requireCode(t, err, errutil.StatusInvalidState)
}

func TestCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	running := f.createRunningTask(t)
	first := f.submit(t, running.TaskID)
	f.submit(t, running.TaskID)

	submitted, err := f.svc.SubmittedCount(ctx, running.TaskID)
	require.NoError(t, err)
	require.Equal(t, int64(2), submitted)

	_, err = f.svc.Review(ctx, f.supplier, first.AssetID, ReviewRequest{Decision: StatusApproved})
	require.NoError(t, err)

	approved, err := f.svc.ApprovedCount(ctx, running.TaskID)
	require.NoError(t, err)
	require.Equal(t, int64(1), approved)
}
