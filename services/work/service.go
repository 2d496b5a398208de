package work

import (
	"context"
	"fmt"
	"time"

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
	Assets      repository.Repository[Asset]
}

// Service manages submitted work and its review trail.
type Service struct {
	db          *gorm.DB
	node        *snowflake.Node
	permissions *permission.Service
	tasks       *task.Service
	assets      repository.Repository[Asset]
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:          p.DB,
		node:        p.Node,
		permissions: p.Permissions,
		tasks:       p.Tasks,
		assets:      p.Assets,
	}
}

type SubmitRequest struct {
	TaskID      string `json:"task_id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	ContentURL  string `json:"content_url"`
	Description string `json:"description"`

	// ResubmissionOf points at a revision_required asset this one replaces.
	ResubmissionOf string `json:"resubmission_of,omitempty"`
}

// Submit files a deliverable. Only the accepted creator may submit, only
// while the task is in progress.
func (s *Service) Submit(ctx context.Context, actor middleware.Actor, req SubmitRequest) (*Asset, error) {
	assetType, ok := ParseAssetType(req.Type)
	if !ok {
		return nil, errutil.ValidationFailed("unknown asset type",
			errutil.WithDetails(errutil.Detail{Field: "type", Message: fmt.Sprintf("%q is not a recognized asset type", req.Type)}))
	}
	if req.ContentURL == "" {
		return nil, errutil.ValidationFailed("content_url is required")
	}

	t, err := s.tasks.Get(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}
	if t.Status != stage.InProgress {
		return nil, errutil.InvalidState(fmt.Sprintf("task in stage %s does not accept work", t.Status))
	}
	if t.AcceptedCreatorID == "" || t.AcceptedCreatorID != actor.UserID {
		return nil, errutil.NotAuthorized("only the accepted creator may submit work")
	}

	if req.ResubmissionOf != "" {
		prev, err := s.Get(ctx, req.ResubmissionOf)
		if err != nil {
			return nil, err
		}
		if prev.TaskID != req.TaskID || prev.CreatorID != actor.UserID {
			return nil, errutil.BadRequest("resubmission_of references an asset outside this task")
		}
		if prev.Status != StatusRevisionRequired {
			return nil, errutil.InvalidState("only revision_required assets can be resubmitted")
		}
	}

	asset := &Asset{
		AssetID:        s.node.Generate().String(),
		TaskID:         req.TaskID,
		CreatorID:      actor.UserID,
		Type:           assetType,
		Title:          req.Title,
		ContentURL:     req.ContentURL,
		Description:    req.Description,
		Status:         StatusSubmitted,
		ResubmissionOf: req.ResubmissionOf,
	}
	if err := s.assets.Create(ctx, asset); err != nil {
		return nil, errutil.Internal("create asset", errutil.WithErr(err))
	}

	zap.L().Info("work submitted",
		zap.String("asset_id", asset.AssetID),
		zap.String("task_id", asset.TaskID),
		zap.String("creator_id", asset.CreatorID),
		zap.String("type", string(asset.Type)),
	)

	return asset, nil
}

type ReviewRequest struct {
	Decision Status `json:"decision"`
	Feedback string `json:"feedback"`
}

// Review decides a submitted asset. A revision_required decision leaves the
// task stage alone; the creator resubmits a fresh asset against it.
func (s *Service) Review(ctx context.Context, actor middleware.Actor, assetID string, req ReviewRequest) (*Asset, error) {
	if req.Decision != StatusApproved && req.Decision != StatusRevisionRequired {
		return nil, errutil.ValidationFailed("decision must be approved or revision_required")
	}

	asset, err := s.Get(ctx, assetID)
	if err != nil {
		return nil, err
	}

	t, err := s.tasks.Get(ctx, asset.TaskID)
	if err != nil {
		return nil, err
	}
	if err := s.permissions.Allow(ctx, actor, t.EntityID, permission.CapManageContent); err != nil {
		return nil, err
	}
	if asset.Status != StatusSubmitted {
		return nil, errutil.InvalidState(fmt.Sprintf("asset already %s", asset.Status))
	}

	res := s.db.WithContext(ctx).Model(&Asset{}).
		Where("asset_id = ? AND status = ?", assetID, StatusSubmitted).
		Updates(map[string]any{
			"status":      req.Decision,
			"feedback":    req.Feedback,
			"reviewed_by": actor.UserID,
			"reviewed_at": time.Now(),
		})
	if res.Error != nil {
		return nil, errutil.Internal("review asset", errutil.WithErr(res.Error))
	}
	if res.RowsAffected == 0 {
		return nil, errutil.Conflict("asset reviewed concurrently")
	}

	zap.L().Info("work reviewed",
		zap.String("asset_id", assetID),
		zap.String("task_id", asset.TaskID),
		zap.String("decision", string(req.Decision)),
		zap.String("reviewed_by", actor.UserID),
	)

	return s.Get(ctx, assetID)
}

// Get loads an asset by id.
func (s *Service) Get(ctx context.Context, assetID string) (*Asset, error) {
	asset, err := s.assets.FindOne(ctx, &Asset{AssetID: assetID})
	if err != nil {
		return nil, errutil.Internal("lookup asset", errutil.WithErr(err))
	}
	if asset == nil {
		return nil, errutil.NotFound("asset not found")
	}
	return asset, nil
}

// ListByTask returns every asset for a task, oldest first.
func (s *Service) ListByTask(ctx context.Context, taskID string) ([]*Asset, error) {
	assets, err := s.assets.Find(ctx, &Asset{TaskID: taskID},
		option.WithOrder("created_at ASC, asset_id ASC"))
	if err != nil {
		return nil, errutil.Internal("list assets", errutil.WithErr(err))
	}
	return assets, nil
}

// SubmittedCount counts assets still counting toward review, the reviewing
// precondition. Superseded revision_required rows do not count.
func (s *Service) SubmittedCount(ctx context.Context, taskID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Asset{}).
		Where("task_id = ? AND status IN ?", taskID, []Status{StatusSubmitted, StatusApproved}).
		Count(&count).Error
	return count, err
}

// ApprovedCount counts approved assets, the publishing precondition.
func (s *Service) ApprovedCount(ctx context.Context, taskID string) (int64, error) {
	return s.assets.Count(ctx, &Asset{TaskID: taskID, Status: StatusApproved})
}
