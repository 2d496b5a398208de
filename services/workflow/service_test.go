package workflow

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/errutil"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/middleware"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/repository"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/application"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/permission"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/rating"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/stage"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/task"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/testutil"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/work"

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
	apps     *application.Service
	ratings  *rating.Service
	entityID string
	supplier middleware.Actor
	creator  middleware.Actor
	creator2 middleware.Actor
}

var testAdmin = middleware.Actor{UserID: "admin-1", Role: middleware.RoleAdmin}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t,
		&permission.BusinessEntity{},
		&permission.UserBusinessPermission{},
		&task.Task{},
		&task.StageRecord{},
		&application.Application{},
		&work.Asset{},
		&rating.Rating{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	perms := permission.NewService(permission.ServiceParams{
		Node:        node,
		Entities:    repository.ProvideStore[permission.BusinessEntity](db),
		Permissions: repository.ProvideStore[permission.UserBusinessPermission](db),
	})

	seq := &fakeSequence{}
	registry := stage.NewRegistry()

	tasks := task.NewService(task.ServiceParams{
		DB:          db,
		Node:        node,
		Sequence:    seq,
		Registry:    registry,
		Permissions: perms,
		Tasks:       repository.ProvideStore[task.Task](db),
		Records:     repository.ProvideStore[task.StageRecord](db),
	})

	apps := application.NewService(application.ServiceParams{
		DB:           db,
		Node:         node,
		Sequence:     seq,
		Permissions:  perms,
		Tasks:        tasks,
		Applications: repository.ProvideStore[application.Application](db),
	})

	workSvc := work.NewService(work.ServiceParams{
		DB:          db,
		Node:        node,
		Permissions: perms,
		Tasks:       tasks,
		Assets:      repository.ProvideStore[work.Asset](db),
	})

	ratings := rating.NewService(rating.ServiceParams{
		DB:          db,
		Node:        node,
		Permissions: perms,
		Tasks:       tasks,
		Ratings:     repository.ProvideStore[rating.Rating](db),
	})

	engine := task.NewEngine(task.EngineParams{
		DB:           db,
		Node:         node,
		Registry:     registry,
		Permissions:  perms,
		Service:      tasks,
		Records:      repository.ProvideStore[task.StageRecord](db),
		Applications: apps,
		Assets:       workSvc,
	})

	svc := NewService(ServiceParams{
		Tasks:        tasks,
		Engine:       engine,
		Applications: apps,
		Work:         workSvc,
		Ratings:      ratings,
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
		apps:     apps,
		ratings:  ratings,
		entityID: entity.EntityID,
		supplier: supplier,
		creator:  middleware.Actor{UserID: "creator-1"},
		creator2: middleware.Actor{UserID: "creator-2"},
	}
}

func (f *fixture) createTask(t *testing.T) *task.Task {
	t.Helper()

	deadline := time.Now().Add(14 * 24 * time.Hour)
	created, err := f.svc.CreateTask(context.Background(), f.supplier, task.CreateRequest{
		EntityID:     f.entityID,
		Title:        "Coastal food tour reel",
		Description:  "Short-form video covering the harbor food walk",
		Requirements: "60-90s vertical video",
		BudgetMin:    15000,
		BudgetMax:    25000,
		Deadline:     &deadline,
	})
	require.NoError(t, err)
	return created
}

func requireCode(t *testing.T, err error, code errutil.CoreStatus) {
	t.Helper()

	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, code, be.Code)
}

func TestRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.createTask(t)

	published, err := f.svc.PublishTask(ctx, f.supplier, created.TaskID)
	require.NoError(t, err)
	require.Equal(t, stage.Published, published.Status)

	first, err := f.svc.SubmitApplication(ctx, f.creator, created.TaskID, application.SubmitRequest{
		Proposal:    "Two-day shoot plus edit",
		QuoteAmount: 18000,
	})
	require.NoError(t, err)
	second, err := f.svc.SubmitApplication(ctx, f.creator2, created.TaskID, application.SubmitRequest{
		Proposal:    "One-day shoot",
		QuoteAmount: 16000,
	})
	require.NoError(t, err)

	accepted, err := f.svc.ReviewApplication(ctx, f.supplier, first.ApplicationID, application.ReviewRequest{
		Decision: application.StatusAccepted,
		Notes:    "strong portfolio",
	})
	require.NoError(t, err)
	require.Equal(t, application.StatusAccepted, accepted.Status)

	// accepting started the task and auto-rejected the sibling
	started, err := f.tasks.Get(ctx, created.TaskID)
	require.NoError(t, err)
	require.Equal(t, stage.InProgress, started.Status)
	require.Equal(t, f.creator.UserID, started.AcceptedCreatorID)

	sibling, err := f.apps.Get(ctx, second.ApplicationID)
	require.NoError(t, err)
	require.Equal(t, application.StatusRejected, sibling.Status)
	require.True(t, sibling.AutoRejected)

	asset, err := f.svc.SubmitWork(ctx, f.creator, created.TaskID, work.SubmitRequest{
		Type:       "video",
		Title:      "Harbor food walk, cut 1",
		ContentURL: "https://cdn.example.com/assets/harbor-cut-1.mp4",
	})
	require.NoError(t, err)

	approved, err := f.svc.ReviewWork(ctx, f.supplier, asset.AssetID, work.ReviewRequest{
		Decision: work.StatusApproved,
		Feedback: "great pacing",
	})
	require.NoError(t, err)
	require.Equal(t, work.StatusApproved, approved.Status)

	inPublishing, err := f.tasks.Get(ctx, created.TaskID)
	require.NoError(t, err)
	require.Equal(t, stage.Publishing, inPublishing.Status)

	completed, err := f.svc.CompleteTask(ctx, f.supplier, created.TaskID)
	require.NoError(t, err)
	require.Equal(t, stage.Completed, completed.Status)

	_, err = f.svc.SubmitRating(ctx, f.supplier, created.TaskID, f.creator.UserID, rating.RateRequest{Score: 5})
	require.NoError(t, err)
	_, err = f.svc.SubmitRating(ctx, f.creator, created.TaskID, f.supplier.UserID, rating.RateRequest{Score: 4})
	require.NoError(t, err)

	snapshot, err := f.svc.Status(ctx, created.TaskID)
	require.NoError(t, err)
	require.Equal(t, stage.Completed, snapshot.Task.Status)
	require.Equal(t, 100, snapshot.Progress)
	require.Len(t, snapshot.Applications, 2)
	require.Len(t, snapshot.Assets, 1)
	require.Len(t, snapshot.Ratings, 2)

	wantSequence := []stage.Stage{
		stage.Draft, stage.Published, stage.InProgress,
		stage.Reviewing, stage.Publishing, stage.Completed,
	}
	require.Len(t, snapshot.Stages, len(wantSequence))
	for i, record := range snapshot.Stages {
		require.Equal(t, wantSequence[i], record.Stage)
		if i < len(wantSequence)-1 {
			require.NotNil(t, record.LeftAt, "record %d should be closed", i)
		} else {
			require.Nil(t, record.LeftAt, "final record should be open")
		}
	}
}

func TestReviewWorkRevisionKeepsStage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.createTask(t)
	_, err := f.svc.PublishTask(ctx, f.supplier, created.TaskID)
	require.NoError(t, err)

	app, err := f.svc.SubmitApplication(ctx, f.creator, created.TaskID, application.SubmitRequest{Proposal: "proposal"})
	require.NoError(t, err)
	_, err = f.svc.ReviewApplication(ctx, f.supplier, app.ApplicationID, application.ReviewRequest{Decision: application.StatusAccepted})
	require.NoError(t, err)

	asset, err := f.svc.SubmitWork(ctx, f.creator, created.TaskID, work.SubmitRequest{
		Type:       "video",
		ContentURL: "https://cdn.example.com/assets/cut-1.mp4",
	})
	require.NoError(t, err)

	_, err = f.svc.ReviewWork(ctx, f.supplier, asset.AssetID, work.ReviewRequest{
		Decision: work.StatusRevisionRequired,
		Feedback: "tighten the intro",
	})
	require.NoError(t, err)

	current, err := f.tasks.Get(ctx, created.TaskID)
	require.NoError(t, err)
	require.Equal(t, stage.InProgress, current.Status)
}

func TestCompleteRequiresPublishing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.createTask(t)
	_, err := f.svc.PublishTask(ctx, f.supplier, created.TaskID)
	require.NoError(t, err)

	_, err = f.svc.CompleteTask(ctx, f.supplier, created.TaskID)
	requireCode(t, err, errutil.StatusInvalidState)
}

func TestRatingBeforeCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.createTask(t)

	_, err := f.svc.SubmitRating(ctx, f.supplier, created.TaskID, f.creator.UserID, rating.RateRequest{Score: 5})
	requireCode(t, err, errutil.StatusInvalidState)
}

func TestStatusMissingTask(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Status(context.Background(), "no-such-task")
	requireCode(t, err, errutil.StatusNotFound)
}
