package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgasynq "github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/asynq"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/errutil"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/middleware"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/repository"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/notification"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/permission"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/stage"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type EngineParams struct {
	fx.In

	DB           *gorm.DB
	Node         *snowflake.Node
	Registry     *stage.Registry
	Permissions  *permission.Service
	Service      *Service
	Records      repository.Repository[StageRecord]
	Applications ApplicationGate
	Assets       AssetGate
	Enqueuer     pkgasynq.Enqueuer `optional:"true"`
}

// Engine executes stage transitions: authorization, precondition checks, the
// guarded status swap and the history bookkeeping, all in one transaction.
type Engine struct {
	db           *gorm.DB
	node         *snowflake.Node
	registry     *stage.Registry
	permissions  *permission.Service
	service      *Service
	records      repository.Repository[StageRecord]
	applications ApplicationGate
	assets       AssetGate
	enqueuer     pkgasynq.Enqueuer
}

func NewEngine(p EngineParams) *Engine {
	return &Engine{
		db:           p.DB,
		node:         p.Node,
		registry:     p.Registry,
		permissions:  p.Permissions,
		service:      p.Service,
		records:      p.Records,
		applications: p.Applications,
		assets:       p.Assets,
		enqueuer:     p.Enqueuer,
	}
}

type TransitionRequest struct {
	Target stage.Stage          `json:"target"`
	Reason stage.OverrideReason `json:"reason,omitempty"`
	Note   string               `json:"note,omitempty"`

	// ProgressOverride pins the dashboard percentage for the new stage
	// record. Nil derives it from stage order.
	ProgressOverride *int `json:"progress_override,omitempty"`
}

// Transition moves a task to the target stage. A recognized override reason
// legitimizes its bound (from, to) pair and skips target preconditions, and
// an admin may take any known pair without a reason; everything else must
// follow the forward table and pass them.
func (e *Engine) Transition(ctx context.Context, actor middleware.Actor, taskID string, req TransitionRequest) (*Task, error) {
	t, err := e.service.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !e.registry.IsKnown(req.Target) {
		return nil, errutil.BadRequest(fmt.Sprintf("unknown stage %s", req.Target))
	}
	if req.Target == t.Status {
		return nil, errutil.InvalidState(fmt.Sprintf("task already in stage %s", t.Status))
	}

	roles, err := e.service.ActorRoles(ctx, actor, t)
	if err != nil {
		return nil, err
	}

	if req.Reason != "" {
		if err := e.checkOverride(t, req, actor, roles); err != nil {
			return nil, err
		}
	} else if actor.IsAdmin() && !e.registry.IsForwardTarget(t.Status, req.Target) {
		// admins may move a task between any two known stages without a
		// reason; preconditions do not apply to the corrective move
	} else {
		if err := e.checkForward(ctx, t, req.Target, actor, roles); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Task{}).
			Where("task_id = ? AND status = ? AND version = ?", t.TaskID, t.Status, t.Version).
			Updates(map[string]any{
				"status":  req.Target,
				"version": gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errutil.Conflict("task moved concurrently, retry from current state")
		}

		if err := e.closeOpenRecord(ctx, tx, t.TaskID, now); err != nil {
			return err
		}

		if err := e.records.WithTrx(tx).Create(ctx, &StageRecord{
			RecordID:         e.node.Generate().String(),
			TaskID:           t.TaskID,
			Stage:            req.Target,
			EnteredAt:        now,
			ActorID:          actor.UserID,
			Reason:           string(req.Reason),
			Note:             req.Note,
			ProgressOverride: req.ProgressOverride,
		}); err != nil {
			return err
		}

		// starting work closes the application window
		if req.Target == stage.InProgress {
			return e.applications.RejectPendingInTx(ctx, tx, t.TaskID, actor.UserID)
		}
		return nil
	})
	if err != nil {
		var be errutil.BaseError
		if errors.As(err, &be) {
			return nil, err
		}
		return nil, errutil.Internal("apply transition", errutil.WithErr(err))
	}

	updated, err := e.service.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	zap.L().Info("task stage changed",
		zap.String("task_id", t.TaskID),
		zap.String("from", string(t.Status)),
		zap.String("to", string(req.Target)),
		zap.String("reason", string(req.Reason)),
		zap.String("actor_id", actor.UserID),
	)

	e.notifyStageChanged(t, req, actor, now)

	return updated, nil
}

func (e *Engine) checkOverride(t *Task, req TransitionRequest, actor middleware.Actor, roles []stage.Role) error {
	from, to, ok := e.registry.OverrideTarget(req.Reason)
	if !ok {
		return errutil.ValidationFailed(fmt.Sprintf("unrecognized override reason %s", req.Reason))
	}
	if from != t.Status || to != req.Target {
		return errutil.InvalidState(fmt.Sprintf("override %s applies to %s -> %s only", req.Reason, from, to))
	}
	if !actor.IsAdmin() && !roleOverlap(roles, []stage.Role{stage.RoleSupplier}) {
		return errutil.NotAuthorized("override transitions require the supplier or an admin")
	}
	return nil
}

func (e *Engine) checkForward(ctx context.Context, t *Task, target stage.Stage, actor middleware.Actor, roles []stage.Role) error {
	if !e.registry.IsForwardTarget(t.Status, target) {
		return errutil.InvalidState(fmt.Sprintf("cannot move %s -> %s, allowed: %v",
			t.Status, target, e.registry.AllowedForwardTargets(t.Status)))
	}
	if !actor.IsAdmin() && !roleOverlap(roles, e.registry.EditableBy(target)) {
		return errutil.NotAuthorized(fmt.Sprintf("actor may not move a task into stage %s", target))
	}
	return e.checkPreconditions(ctx, t, target)
}

func (e *Engine) checkPreconditions(ctx context.Context, t *Task, target stage.Stage) error {
	switch target {
	case stage.Published, stage.Collecting:
		missing := t.MissingFields(e.registry.RequiredFields(stage.Draft))
		if len(missing) > 0 {
			details := make([]errutil.Detail, 0, len(missing))
			for _, field := range missing {
				details = append(details, errutil.Detail{Field: field, Message: "required before publishing"})
			}
			return errutil.PreconditionNotMet("task content incomplete", errutil.WithDetails(details...))
		}

	case stage.Evaluating:
		open, err := e.applications.OpenCount(ctx, t.TaskID)
		if err != nil {
			return errutil.Internal("count applications", errutil.WithErr(err))
		}
		if open < 1 {
			return errutil.PreconditionNotMet("no applications to evaluate")
		}

	case stage.InProgress:
		accepted, err := e.applications.AcceptedCount(ctx, t.TaskID)
		if err != nil {
			return errutil.Internal("count accepted applications", errutil.WithErr(err))
		}
		if accepted != 1 {
			return errutil.PreconditionNotMet("exactly one accepted application is required to start work")
		}

	case stage.Reviewing:
		submitted, err := e.assets.SubmittedCount(ctx, t.TaskID)
		if err != nil {
			return errutil.Internal("count submitted assets", errutil.WithErr(err))
		}
		if submitted < 1 {
			return errutil.PreconditionNotMet("no submitted work to review")
		}

	case stage.Publishing:
		approved, err := e.assets.ApprovedCount(ctx, t.TaskID)
		if err != nil {
			return errutil.Internal("count approved assets", errutil.WithErr(err))
		}
		if approved < 1 {
			return errutil.PreconditionNotMet("no approved work to publish")
		}
	}
	return nil
}

func (e *Engine) closeOpenRecord(ctx context.Context, tx *gorm.DB, taskID string, closedAt time.Time) error {
	open, err := e.records.WithTrx(tx).FindOne(ctx, &StageRecord{TaskID: taskID},
		func(q *gorm.DB) *gorm.DB { return q.Where("left_at IS NULL").Order("entered_at DESC") })
	if err != nil {
		return err
	}
	if open == nil {
		return nil
	}

	duration := int64(closedAt.Sub(open.EnteredAt).Seconds())
	return e.records.WithTrx(tx).Update(ctx, &StageRecord{RecordID: open.RecordID}, map[string]any{
		"left_at":          closedAt,
		"duration_seconds": duration,
	})
}

func (e *Engine) notifyStageChanged(t *Task, req TransitionRequest, actor middleware.Actor, at time.Time) {
	if e.enqueuer == nil {
		return
	}

	job, err := notification.NewStageChangedTask(notification.StageChangedPayload{
		TaskID:     t.TaskID,
		Code:       t.Code,
		EntityID:   t.EntityID,
		From:       string(t.Status),
		To:         string(req.Target),
		Reason:     string(req.Reason),
		ActorID:    actor.UserID,
		OccurredAt: at,
	})
	if err != nil {
		zap.L().Warn("build stage-changed notification", zap.Error(err))
		return
	}
	if _, err := e.enqueuer.Enqueue(job); err != nil {
		zap.L().Warn("enqueue stage-changed notification",
			zap.String("task_id", t.TaskID),
			zap.Error(err),
		)
	}
}
