package workflow

import (
	"context"

	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/middleware"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/application"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/rating"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/stage"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/task"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/work"

	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
)

type ServiceParams struct {
	fx.In

	Tasks        *task.Service
	Engine       *task.Engine
	Applications *application.Service
	Work         *work.Service
	Ratings      *rating.Service
}

// Service is the stateless orchestration layer behind the REST surface. It
// sequences subsystem calls; all rules live in the subsystems themselves.
type Service struct {
	tasks        *task.Service
	engine       *task.Engine
	applications *application.Service
	work         *work.Service
	ratings      *rating.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		tasks:        p.Tasks,
		engine:       p.Engine,
		applications: p.Applications,
		work:         p.Work,
		ratings:      p.Ratings,
	}
}

func (s *Service) CreateTask(ctx context.Context, actor middleware.Actor, req task.CreateRequest) (*task.Task, error) {
	return s.tasks.Create(ctx, actor, req)
}

func (s *Service) PublishTask(ctx context.Context, actor middleware.Actor, taskID string) (*task.Task, error) {
	return s.engine.Transition(ctx, actor, taskID, task.TransitionRequest{Target: stage.Published})
}

func (s *Service) SubmitApplication(ctx context.Context, actor middleware.Actor, taskID string, req application.SubmitRequest) (*application.Application, error) {
	req.TaskID = taskID
	return s.applications.Submit(ctx, actor, req)
}

// ReviewApplication decides an application. An accept also starts the task:
// the engine moves it to in_progress, which auto-rejects the remaining
// pending applications.
func (s *Service) ReviewApplication(ctx context.Context, actor middleware.Actor, applicationID string, req application.ReviewRequest) (*application.Application, error) {
	decided, err := s.applications.Review(ctx, actor, applicationID, req)
	if err != nil {
		return nil, err
	}

	if decided.Status == application.StatusAccepted {
		if _, err := s.engine.Transition(ctx, actor, decided.TaskID, task.TransitionRequest{Target: stage.InProgress}); err != nil {
			return nil, err
		}
	}

	return decided, nil
}

func (s *Service) SubmitWork(ctx context.Context, actor middleware.Actor, taskID string, req work.SubmitRequest) (*work.Asset, error) {
	req.TaskID = taskID
	return s.work.Submit(ctx, actor, req)
}

// ReviewWork decides an asset. The first approval moves an in_progress task
// through reviewing into publishing; a revision_required decision leaves the
// stage alone.
func (s *Service) ReviewWork(ctx context.Context, actor middleware.Actor, assetID string, req work.ReviewRequest) (*work.Asset, error) {
	reviewed, err := s.work.Review(ctx, actor, assetID, req)
	if err != nil {
		return nil, err
	}

	if reviewed.Status == work.StatusApproved {
		t, err := s.tasks.Get(ctx, reviewed.TaskID)
		if err != nil {
			return nil, err
		}
		for _, target := range []stage.Stage{stage.Reviewing, stage.Publishing} {
			if !stepTowards(t.Status, target) {
				continue
			}
			t, err = s.engine.Transition(ctx, actor, t.TaskID, task.TransitionRequest{Target: target})
			if err != nil {
				return nil, err
			}
		}
	}

	return reviewed, nil
}

// stepTowards reports whether moving to target is the expected next hop for
// the approval flow.
func stepTowards(current, target stage.Stage) bool {
	switch target {
	case stage.Reviewing:
		return current == stage.InProgress
	case stage.Publishing:
		return current == stage.Reviewing
	}
	return false
}

func (s *Service) CompleteTask(ctx context.Context, actor middleware.Actor, taskID string) (*task.Task, error) {
	return s.engine.Transition(ctx, actor, taskID, task.TransitionRequest{Target: stage.Completed})
}

func (s *Service) SubmitRating(ctx context.Context, actor middleware.Actor, taskID, toUserID string, req rating.RateRequest) (*rating.Rating, error) {
	req.TaskID = taskID
	req.ToUserID = toUserID
	return s.ratings.Rate(ctx, actor, req)
}

func (s *Service) Transition(ctx context.Context, actor middleware.Actor, taskID string, req task.TransitionRequest) (*task.Task, error) {
	return s.engine.Transition(ctx, actor, taskID, req)
}

// Snapshot is the full workflow status of one task.
type Snapshot struct {
	Task         *task.Task                 `json:"task"`
	Progress     int                        `json:"progress"`
	Stages       []*task.StageRecord        `json:"stages"`
	Applications []*application.Application `json:"applications"`
	Assets       []*work.Asset              `json:"assets"`
	Ratings      []*rating.Rating           `json:"ratings"`
}

// Status assembles the snapshot; the four collections load concurrently.
func (s *Service) Status(ctx context.Context, taskID string) (*Snapshot, error) {
	t, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	progress, err := s.tasks.Progress(ctx, t)
	if err != nil {
		return nil, err
	}

	snapshot := &Snapshot{Task: t, Progress: progress}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snapshot.Stages, err = s.tasks.History(gctx, taskID)
		return err
	})
	g.Go(func() error {
		var err error
		snapshot.Applications, err = s.applications.ListByTask(gctx, taskID)
		return err
	})
	g.Go(func() error {
		var err error
		snapshot.Assets, err = s.work.ListByTask(gctx, taskID)
		return err
	})
	g.Go(func() error {
		var err error
		snapshot.Ratings, err = s.ratings.ListByTask(gctx, taskID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return snapshot, nil
}
