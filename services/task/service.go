package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/db/option"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/db/pagination"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/errutil"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/middleware"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/repository"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/sequence"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/permission"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/stage"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParams struct {
	fx.In

	DB          *gorm.DB
	Node        *snowflake.Node
	Sequence    sequence.Generator
	Registry    *stage.Registry
	Permissions *permission.Service
	Tasks       repository.Repository[Task]
	Records     repository.Repository[StageRecord]
}

// Service owns task content: creation, stage-gated edits, reads and the
// stage history. Transitions live on the Engine.
type Service struct {
	db          *gorm.DB
	node        *snowflake.Node
	sequence    sequence.Generator
	registry    *stage.Registry
	permissions *permission.Service
	tasks       repository.Repository[Task]
	records     repository.Repository[StageRecord]
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:          p.DB,
		node:        p.Node,
		sequence:    p.Sequence,
		registry:    p.Registry,
		permissions: p.Permissions,
		tasks:       p.Tasks,
		records:     p.Records,
	}
}

type CreateRequest struct {
	EntityID     string     `json:"entity_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Requirements string     `json:"requirements"`
	BudgetMin    int64      `json:"budget_min"`
	BudgetMax    int64      `json:"budget_max"`
	Deadline     *time.Time `json:"deadline"`
	Latitude     *float64   `json:"latitude"`
	Longitude    *float64   `json:"longitude"`
	Tags         []string   `json:"tags"`
}

// Create opens a task in draft. Drafts may be incomplete; the completeness
// checklist is enforced on publish, not here.
func (s *Service) Create(ctx context.Context, actor middleware.Actor, req CreateRequest) (*Task, error) {
	if req.EntityID == "" {
		return nil, errutil.ValidationFailed("entity_id is required")
	}
	if req.Title == "" {
		return nil, errutil.ValidationFailed("title is required")
	}
	if req.BudgetMin > 0 && req.BudgetMax > 0 && req.BudgetMin > req.BudgetMax {
		return nil, errutil.ValidationFailed("budget_min exceeds budget_max")
	}
	if req.Deadline != nil && req.Deadline.Before(time.Now()) {
		return nil, errutil.ValidationFailed("deadline is in the past")
	}

	if err := s.permissions.Allow(ctx, actor, req.EntityID, permission.CapManageContent); err != nil {
		return nil, err
	}

	code, err := s.sequence.NextTaskCode(ctx, req.EntityID)
	if err != nil {
		return nil, errutil.Internal("issue task code", errutil.WithErr(err))
	}

	now := time.Now()
	t := &Task{
		TaskID:       s.node.Generate().String(),
		Code:         code,
		Slug:         slug.Make(req.Title),
		EntityID:     req.EntityID,
		Title:        req.Title,
		Description:  req.Description,
		Requirements: req.Requirements,
		BudgetMin:    req.BudgetMin,
		BudgetMax:    req.BudgetMax,
		Deadline:     req.Deadline,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Status:       stage.Draft,
		Version:      1,
		CreatedBy:    actor.UserID,
	}
	if len(req.Tags) > 0 {
		tags, err := json.Marshal(req.Tags)
		if err != nil {
			return nil, errutil.Internal("encode tags", errutil.WithErr(err))
		}
		t.Tags = datatypes.JSON(tags)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.tasks.WithTrx(tx).Create(ctx, t); err != nil {
			return err
		}
		return s.records.WithTrx(tx).Create(ctx, &StageRecord{
			RecordID:  s.node.Generate().String(),
			TaskID:    t.TaskID,
			Stage:     stage.Draft,
			EnteredAt: now,
			ActorID:   actor.UserID,
		})
	})
	if err != nil {
		return nil, errutil.Internal("create task", errutil.WithErr(err))
	}

	zap.L().Info("task created",
		zap.String("task_id", t.TaskID),
		zap.String("code", t.Code),
		zap.String("entity_id", t.EntityID),
	)

	return t, nil
}

type UpdateRequest struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	Requirements *string    `json:"requirements"`
	BudgetMin    *int64     `json:"budget_min"`
	BudgetMax    *int64     `json:"budget_max"`
	Deadline     *time.Time `json:"deadline"`
	Latitude     *float64   `json:"latitude"`
	Longitude    *float64   `json:"longitude"`

	// Version is the version the caller read. The update fails with a
	// conflict when the task moved on since.
	Version int64 `json:"version"`
}

// Update edits task content when the current stage permits the actor's role.
func (s *Service) Update(ctx context.Context, actor middleware.Actor, taskID string, req UpdateRequest) (*Task, error) {
	// a zero version would vanish from the struct condition below and skip
	// the optimistic check entirely
	if req.Version < 1 {
		return nil, errutil.ValidationFailed("version is required")
	}

	t, err := s.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !actor.IsAdmin() {
		roles, err := s.ActorRoles(ctx, actor, t)
		if err != nil {
			return nil, err
		}
		if !roleOverlap(roles, s.registry.EditableBy(t.Status)) {
			return nil, errutil.NotAuthorized(fmt.Sprintf("task in stage %s is not editable by actor", t.Status))
		}
	}

	values := map[string]any{"version": gorm.Expr("version + 1")}
	if req.Title != nil {
		values["title"] = *req.Title
		values["slug"] = slug.Make(*req.Title)
	}
	if req.Description != nil {
		values["description"] = *req.Description
	}
	if req.Requirements != nil {
		values["requirements"] = *req.Requirements
	}
	if req.BudgetMin != nil {
		values["budget_min"] = *req.BudgetMin
	}
	if req.BudgetMax != nil {
		values["budget_max"] = *req.BudgetMax
	}
	if req.Deadline != nil {
		values["deadline"] = *req.Deadline
	}
	if req.Latitude != nil {
		values["latitude"] = *req.Latitude
	}
	if req.Longitude != nil {
		values["longitude"] = *req.Longitude
	}

	err = s.tasks.Update(ctx, &Task{TaskID: taskID, Version: req.Version}, values)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errutil.Conflict("task changed since read, retry with current version")
	}
	if err != nil {
		return nil, errutil.Internal("update task", errutil.WithErr(err))
	}

	return s.Get(ctx, taskID)
}

// Get loads a task by id.
func (s *Service) Get(ctx context.Context, taskID string) (*Task, error) {
	t, err := s.tasks.FindOne(ctx, &Task{TaskID: taskID})
	if err != nil {
		return nil, errutil.Internal("lookup task", errutil.WithErr(err))
	}
	if t == nil {
		return nil, errutil.NotFound("task not found")
	}
	return t, nil
}

type ListRequest struct {
	EntityID string      `form:"entity_id"`
	Status   stage.Stage `form:"status"`
	pagination.Pagination
}

// List returns tasks newest first with keyset pagination.
func (s *Service) List(ctx context.Context, req ListRequest) ([]*Task, *pagination.PageInfo, error) {
	if req.Limit <= 0 {
		req.Limit = 10
	}
	if req.Status != "" && !s.registry.IsKnown(req.Status) {
		return nil, nil, errutil.BadRequest(fmt.Sprintf("unknown stage %s", req.Status))
	}

	opts := []option.QueryOption{
		option.WithOrder("created_at DESC, task_id DESC"),
		option.WithLimit(req.Limit + 1),
	}
	if req.Cursor != "" {
		cursor, err := pagination.DecodeCursor(req.Cursor)
		if err != nil {
			return nil, nil, errutil.BadRequest("malformed cursor", errutil.WithErr(err))
		}
		after, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, nil, errutil.BadRequest("malformed cursor", errutil.WithErr(err))
		}
		opts = append(opts, option.WithCursor(after, "task_id", cursor.ID))
	}

	tasks, err := s.tasks.Find(ctx, &Task{EntityID: req.EntityID, Status: req.Status}, opts...)
	if err != nil {
		return nil, nil, errutil.Internal("list tasks", errutil.WithErr(err))
	}

	tasks, pageInfo := pagination.BuildCursorPageInfo(tasks, req.Limit, func(t *Task) pagination.Cursor {
		return pagination.Cursor{
			CreatedAt: t.CreatedAt.Format(time.RFC3339Nano),
			ID:        t.TaskID,
		}
	})
	return tasks, pageInfo, nil
}

// History returns the full stage trail, oldest first.
func (s *Service) History(ctx context.Context, taskID string) ([]*StageRecord, error) {
	if _, err := s.Get(ctx, taskID); err != nil {
		return nil, err
	}

	records, err := s.records.Find(ctx, &StageRecord{TaskID: taskID},
		option.WithOrder("entered_at ASC, record_id ASC"))
	if err != nil {
		return nil, errutil.Internal("load stage history", errutil.WithErr(err))
	}
	return records, nil
}

// CurrentRecord returns the open stage record for a task.
func (s *Service) CurrentRecord(ctx context.Context, taskID string) (*StageRecord, error) {
	records, err := s.records.Find(ctx, &StageRecord{TaskID: taskID},
		option.WithOrder("entered_at DESC, record_id DESC"), option.WithLimit(1))
	if err != nil {
		return nil, errutil.Internal("load stage record", errutil.WithErr(err))
	}
	if len(records) == 0 {
		return nil, errutil.NotFound("no stage record for task")
	}
	return records[0], nil
}

// Progress derives the dashboard percentage for a task, honoring a manual
// override on the open stage record.
func (s *Service) Progress(ctx context.Context, t *Task) (int, error) {
	record, err := s.CurrentRecord(ctx, t.TaskID)
	if err != nil {
		return 0, err
	}
	return s.registry.ProgressPercent(t.Status, record.ProgressOverride), nil
}

// ActorRoles resolves which lifecycle roles the actor plays for a task:
// supplier when holding manage_content on the owning entity, creator when the
// accepted creator.
func (s *Service) ActorRoles(ctx context.Context, actor middleware.Actor, t *Task) ([]stage.Role, error) {
	var roles []stage.Role
	if s.permissions.Holds(ctx, actor, t.EntityID, permission.CapManageContent) {
		roles = append(roles, stage.RoleSupplier)
	}
	if t.AcceptedCreatorID != "" && t.AcceptedCreatorID == actor.UserID {
		roles = append(roles, stage.RoleCreator)
	}
	return roles, nil
}

func roleOverlap(have, want []stage.Role) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}
