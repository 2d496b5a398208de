package rating

import (
	"context"
	"fmt"

	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/db/option"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/errutil"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/middleware"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/repository"
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

	DB          *gorm.DB
	Node        *snowflake.Node
	Permissions *permission.Service
	Tasks       *task.Service
	Ratings     repository.Repository[Rating]
}

// Service records post-completion feedback between task parties.
type Service struct {
	db          *gorm.DB
	node        *snowflake.Node
	permissions *permission.Service
	tasks       *task.Service
	ratings     repository.Repository[Rating]
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:          p.DB,
		node:        p.Node,
		permissions: p.Permissions,
		tasks:       p.Tasks,
		ratings:     p.Ratings,
	}
}

type RateRequest struct {
	TaskID    string `json:"task_id"`
	ToUserID  string `json:"to_user_id"`
	Score     int    `json:"score"`
	Comment   string `json:"comment"`
	Dimension string `json:"dimension"`
}

// Rate files feedback on a completed task. Both ends of the rating must be
// parties to the task: the owner side or the accepted creator.
func (s *Service) Rate(ctx context.Context, actor middleware.Actor, req RateRequest) (*Rating, error) {
	if req.Score < 1 || req.Score > 5 {
		return nil, errutil.ValidationFailed("score must be between 1 and 5")
	}
	if req.ToUserID == "" {
		return nil, errutil.ValidationFailed("to_user_id is required")
	}
	if req.ToUserID == actor.UserID {
		return nil, errutil.ValidationFailed("cannot rate yourself")
	}

	t, err := s.tasks.Get(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}
	if t.Status != stage.Completed {
		return nil, errutil.InvalidState(fmt.Sprintf("ratings open once a task completes, task is %s", t.Status))
	}

	if !s.isParty(ctx, actor.UserID, t) {
		return nil, errutil.NotAuthorized("only parties to the task may rate")
	}
	if !s.isParty(ctx, req.ToUserID, t) {
		return nil, errutil.BadRequest("to_user_id is not a party to the task")
	}

	existing, err := s.ratings.FindOne(ctx, &Rating{
		TaskID:     req.TaskID,
		FromUserID: actor.UserID,
		ToUserID:   req.ToUserID,
	})
	if err != nil {
		return nil, errutil.Internal("lookup rating", errutil.WithErr(err))
	}
	if existing != nil {
		return nil, errutil.Conflict("rating already submitted for this pair")
	}

	dimension := req.Dimension
	if dimension == "" {
		dimension = "overall"
	}

	r := &Rating{
		RatingID:   s.node.Generate().String(),
		TaskID:     req.TaskID,
		FromUserID: actor.UserID,
		ToUserID:   req.ToUserID,
		Score:      req.Score,
		Comment:    req.Comment,
		Dimension:  dimension,
	}
	if err := s.ratings.Create(ctx, r); err != nil {
		return nil, errutil.Internal("create rating", errutil.WithErr(err))
	}

	zap.L().Info("rating submitted",
		zap.String("rating_id", r.RatingID),
		zap.String("task_id", r.TaskID),
		zap.String("from_user_id", r.FromUserID),
		zap.String("to_user_id", r.ToUserID),
		zap.Int("score", r.Score),
	)

	return r, nil
}

// ListByTask returns the ratings filed against a task.
func (s *Service) ListByTask(ctx context.Context, taskID string) ([]*Rating, error) {
	ratings, err := s.ratings.Find(ctx, &Rating{TaskID: taskID},
		option.WithOrder("created_at ASC, rating_id ASC"))
	if err != nil {
		return nil, errutil.Internal("list ratings", errutil.WithErr(err))
	}
	return ratings, nil
}

// SummaryFor aggregates the ratings received by a user.
func (s *Service) SummaryFor(ctx context.Context, userID string) (*Summary, error) {
	var row struct {
		Count   int64
		Average float64
	}
	err := s.db.WithContext(ctx).Model(&Rating{}).
		Select("COUNT(*) AS count, COALESCE(AVG(score), 0) AS average").
		Where("to_user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return nil, errutil.Internal("aggregate ratings", errutil.WithErr(err))
	}

	return &Summary{UserID: userID, Count: row.Count, Average: row.Average}, nil
}

// isParty reports whether a user is either the accepted creator or on the
// owner side (manage_content on the owning entity).
func (s *Service) isParty(ctx context.Context, userID string, t *task.Task) bool {
	if t.AcceptedCreatorID != "" && t.AcceptedCreatorID == userID {
		return true
	}
	grant, err := s.permissions.Resolve(ctx, userID, t.EntityID)
	if err != nil {
		return false
	}
	return grant.Allows(permission.CapManageContent)
}

var Module = fx.Module("service.rating",
	fx.Provide(
		func(db *gorm.DB) repository.Repository[Rating] {
			return repository.ProvideStore[Rating](db)
		},
		NewService,
	),
)
