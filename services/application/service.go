package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgasynq "github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/asynq"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/db/option"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/errutil"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/middleware"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/repository"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/sequence"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/notification"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/permission"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/stage"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/task"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParams struct {
	fx.In

	DB           *gorm.DB
	Node         *snowflake.Node
	Sequence     sequence.Generator
	Permissions  *permission.Service
	Tasks        *task.Service
	Applications repository.Repository[Application]
	Enqueuer     pkgasynq.Enqueuer `optional:"true"`
}

// Service manages creator proposals against open tasks.
type Service struct {
	db           *gorm.DB
	node         *snowflake.Node
	sequence     sequence.Generator
	permissions  *permission.Service
	tasks        *task.Service
	applications repository.Repository[Application]
	enqueuer     pkgasynq.Enqueuer
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:           p.DB,
		node:         p.Node,
		sequence:     p.Sequence,
		permissions:  p.Permissions,
		tasks:        p.Tasks,
		applications: p.Applications,
		enqueuer:     p.Enqueuer,
	}
}

type SubmitRequest struct {
	TaskID      string `json:"task_id"`
	Proposal    string `json:"proposal"`
	QuoteAmount int64  `json:"quote_amount"`
}

// Submit files a proposal. Tasks accept applications in published and
// collecting only, and a creator holds at most one live proposal per task.
func (s *Service) Submit(ctx context.Context, actor middleware.Actor, req SubmitRequest) (*Application, error) {
	if req.Proposal == "" {
		return nil, errutil.ValidationFailed("proposal is required")
	}
	if req.QuoteAmount < 0 {
		return nil, errutil.ValidationFailed("quote_amount must not be negative")
	}

	t, err := s.tasks.Get(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}
	if t.Status != stage.Published && t.Status != stage.Collecting {
		return nil, errutil.InvalidState(fmt.Sprintf("task in stage %s does not accept applications", t.Status))
	}

	var live int64
	err = s.db.WithContext(ctx).Model(&Application{}).
		Where("task_id = ? AND applicant_id = ? AND status <> ?", req.TaskID, actor.UserID, StatusWithdrawn).
		Count(&live).Error
	if err != nil {
		return nil, errutil.Internal("count applications", errutil.WithErr(err))
	}
	if live > 0 {
		return nil, errutil.Conflict("creator already has a live application for this task")
	}

	code, err := s.sequence.NextApplicationCode(ctx, t.EntityID)
	if err != nil {
		return nil, errutil.Internal("issue application code", errutil.WithErr(err))
	}

	app := &Application{
		ApplicationID: s.node.Generate().String(),
		Code:          code,
		TaskID:        req.TaskID,
		ApplicantID:   actor.UserID,
		Proposal:      req.Proposal,
		QuoteAmount:   req.QuoteAmount,
		Status:        StatusPending,
	}
	if err := s.applications.Create(ctx, app); err != nil {
		return nil, errutil.Internal("create application", errutil.WithErr(err))
	}

	zap.L().Info("application submitted",
		zap.String("application_id", app.ApplicationID),
		zap.String("task_id", app.TaskID),
		zap.String("applicant_id", app.ApplicantID),
	)

	return app, nil
}

type ReviewRequest struct {
	Decision Status `json:"decision"`
	Notes    string `json:"notes"`
}

// Review decides a pending application. Accepting binds the creator to the
// task under the task's version guard, so two concurrent accepts cannot both
// win. Accepting does not touch the siblings; they stay pending until the
// task starts.
func (s *Service) Review(ctx context.Context, actor middleware.Actor, applicationID string, req ReviewRequest) (*Application, error) {
	if req.Decision != StatusAccepted && req.Decision != StatusRejected {
		return nil, errutil.ValidationFailed("decision must be accepted or rejected")
	}

	app, err := s.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	t, err := s.tasks.Get(ctx, app.TaskID)
	if err != nil {
		return nil, err
	}
	if err := s.permissions.Allow(ctx, actor, t.EntityID, permission.CapManageContent); err != nil {
		return nil, err
	}
	if app.Status != StatusPending {
		return nil, errutil.InvalidState(fmt.Sprintf("application already %s", app.Status))
	}

	now := time.Now()
	values := map[string]any{
		"status":       req.Decision,
		"review_notes": req.Notes,
		"reviewed_by":  actor.UserID,
		"reviewed_at":  now,
	}

	if req.Decision == StatusAccepted {
		if t.AcceptedCreatorID != "" {
			return nil, errutil.Conflict("task already has an accepted application")
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&task.Task{}).
				Where("task_id = ? AND version = ? AND accepted_creator_id = ''", t.TaskID, t.Version).
				Updates(map[string]any{
					"accepted_creator_id": app.ApplicantID,
					"version":             gorm.Expr("version + 1"),
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errutil.Conflict("task changed concurrently, re-read and retry")
			}

			return s.decideInTx(ctx, tx, applicationID, values)
		})
	} else {
		err = s.decideInTx(ctx, s.db.WithContext(ctx), applicationID, values)
	}
	if err != nil {
		var be errutil.BaseError
		if errors.As(err, &be) {
			return nil, err
		}
		return nil, errutil.Internal("review application", errutil.WithErr(err))
	}

	zap.L().Info("application reviewed",
		zap.String("application_id", applicationID),
		zap.String("task_id", app.TaskID),
		zap.String("decision", string(req.Decision)),
		zap.String("reviewed_by", actor.UserID),
	)

	s.notifyDecision(app, string(req.Decision), actor.UserID, now)

	return s.Get(ctx, applicationID)
}

// decideInTx flips a pending application; losing a race to another decision
// surfaces as a conflict.
func (s *Service) decideInTx(ctx context.Context, tx *gorm.DB, applicationID string, values map[string]any) error {
	res := tx.WithContext(ctx).Model(&Application{}).
		Where("application_id = ? AND status = ?", applicationID, StatusPending).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errutil.Conflict("application decided concurrently")
	}
	return nil
}

// Withdraw retracts the caller's own pending application.
func (s *Service) Withdraw(ctx context.Context, actor middleware.Actor, applicationID string) (*Application, error) {
	app, err := s.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.ApplicantID != actor.UserID {
		return nil, errutil.NotAuthorized("only the submitting creator may withdraw")
	}
	if app.Status != StatusPending {
		return nil, errutil.InvalidState(fmt.Sprintf("cannot withdraw an application that is %s", app.Status))
	}

	res := s.db.WithContext(ctx).Model(&Application{}).
		Where("application_id = ? AND status = ?", applicationID, StatusPending).
		Update("status", StatusWithdrawn)
	if res.Error != nil {
		return nil, errutil.Internal("withdraw application", errutil.WithErr(res.Error))
	}
	if res.RowsAffected == 0 {
		return nil, errutil.Conflict("application decided concurrently")
	}

	return s.Get(ctx, applicationID)
}

// Get loads an application by id.
func (s *Service) Get(ctx context.Context, applicationID string) (*Application, error) {
	app, err := s.applications.FindOne(ctx, &Application{ApplicationID: applicationID})
	if err != nil {
		return nil, errutil.Internal("lookup application", errutil.WithErr(err))
	}
	if app == nil {
		return nil, errutil.NotFound("application not found")
	}
	return app, nil
}

// ListByTask returns every application for a task, oldest first.
func (s *Service) ListByTask(ctx context.Context, taskID string) ([]*Application, error) {
	apps, err := s.applications.Find(ctx, &Application{TaskID: taskID},
		option.WithOrder("created_at ASC, application_id ASC"))
	if err != nil {
		return nil, errutil.Internal("list applications", errutil.WithErr(err))
	}
	return apps, nil
}

// OpenCount counts non-withdrawn applications, the evaluating precondition.
func (s *Service) OpenCount(ctx context.Context, taskID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Application{}).
		Where("task_id = ? AND status <> ?", taskID, StatusWithdrawn).
		Count(&count).Error
	return count, err
}

// AcceptedCount counts accepted applications for a task.
func (s *Service) AcceptedCount(ctx context.Context, taskID string) (int64, error) {
	return s.applications.Count(ctx, &Application{TaskID: taskID, Status: StatusAccepted})
}

// RejectPendingInTx auto-rejects the applications still pending when a task
// starts, inside the transition's transaction.
func (s *Service) RejectPendingInTx(ctx context.Context, tx *gorm.DB, taskID, actorID string) error {
	return tx.WithContext(ctx).Model(&Application{}).
		Where("task_id = ? AND status = ?", taskID, StatusPending).
		Updates(map[string]any{
			"status":        StatusRejected,
			"auto_rejected": true,
			"review_notes":  "auto-rejected: task entered in_progress",
			"reviewed_by":   actorID,
			"reviewed_at":   time.Now(),
		}).Error
}

func (s *Service) notifyDecision(app *Application, decision, decidedBy string, at time.Time) {
	if s.enqueuer == nil {
		return
	}

	job, err := notification.NewApplicationDecidedTask(notification.ApplicationDecidedPayload{
		ApplicationID: app.ApplicationID,
		TaskID:        app.TaskID,
		ApplicantID:   app.ApplicantID,
		Decision:      decision,
		DecidedBy:     decidedBy,
		OccurredAt:    at,
	})
	if err != nil {
		zap.L().Warn("build application-decided notification", zap.Error(err))
		return
	}
	if _, err := s.enqueuer.Enqueue(job); err != nil {
		zap.L().Warn("enqueue application-decided notification",
			zap.String("application_id", app.ApplicationID),
			zap.Error(err),
		)
	}
}
