package permission

import (
	"context"
	"fmt"
	"time"

	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/errutil"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/middleware"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParams struct {
	fx.In

	Node        *snowflake.Node
	Entities    repository.Repository[BusinessEntity]
	Permissions repository.Repository[UserBusinessPermission]
}

// Service resolves and administers user grants on business entities.
type Service struct {
	node        *snowflake.Node
	entities    repository.Repository[BusinessEntity]
	permissions repository.Repository[UserBusinessPermission]
}

func NewService(p ServiceParams) *Service {
	return &Service{
		node:        p.Node,
		entities:    p.Entities,
		permissions: p.Permissions,
	}
}

type CreateEntityRequest struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Service) CreateEntity(ctx context.Context, req CreateEntityRequest) (*BusinessEntity, error) {
	switch EntityType(req.Type) {
	case EntitySupplier, EntityCreator, EntityMedia:
	default:
		return nil, errutil.ValidationFailed("unknown entity type",
			errutil.WithDetails(errutil.Detail{Field: "type", Message: fmt.Sprintf("%q is not a recognized entity type", req.Type)}))
	}
	if req.Name == "" {
		return nil, errutil.ValidationFailed("name is required")
	}

	entity := &BusinessEntity{
		EntityID:    s.node.Generate().String(),
		Type:        EntityType(req.Type),
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.entities.Create(ctx, entity); err != nil {
		return nil, errutil.Internal("create entity", errutil.WithErr(err))
	}

	zap.L().Info("business entity created",
		zap.String("entity_id", entity.EntityID),
		zap.String("type", string(entity.Type)),
	)

	return entity, nil
}

func (s *Service) GetEntity(ctx context.Context, entityID string) (*BusinessEntity, error) {
	entity, err := s.entities.FindOne(ctx, &BusinessEntity{EntityID: entityID})
	if err != nil {
		return nil, errutil.Internal("lookup entity", errutil.WithErr(err))
	}
	if entity == nil {
		return nil, errutil.NotFound("entity not found")
	}
	return entity, nil
}

// Resolve returns the usable grant binding user to entity, or a forbidden
// error when no such grant exists. Expired and deactivated grants never
// resolve.
func (s *Service) Resolve(ctx context.Context, userID, entityID string) (*UserBusinessPermission, error) {
	grant, err := s.permissions.FindOne(ctx, &UserBusinessPermission{
		UserID:   userID,
		EntityID: entityID,
		Active:   true,
	})
	if err != nil {
		return nil, errutil.Internal("lookup permission", errutil.WithErr(err))
	}
	if grant == nil || !grant.Usable(time.Now()) {
		return nil, errutil.NotAuthorized("no active permission on entity")
	}
	return grant, nil
}

// Allow checks that the actor may exercise a capability on the entity.
// Platform admins bypass the grant table.
func (s *Service) Allow(ctx context.Context, actor middleware.Actor, entityID string, c Capability) error {
	if actor.IsAdmin() {
		return nil
	}

	grant, err := s.Resolve(ctx, actor.UserID, entityID)
	if err != nil {
		return err
	}
	if !grant.Allows(c) {
		return errutil.NotAuthorized(fmt.Sprintf("capability %s not granted", c))
	}
	return nil
}

// Holds reports whether the actor holds a capability on the entity, without
// surfacing the forbidden error. Used where access shapes behavior instead of
// gating it.
func (s *Service) Holds(ctx context.Context, actor middleware.Actor, entityID string, c Capability) bool {
	return s.Allow(ctx, actor, entityID, c) == nil
}

type GrantRequest struct {
	UserID       string     `json:"user_id"`
	EntityID     string     `json:"entity_id"`
	Level        string     `json:"level"`
	Capabilities []string   `json:"capabilities"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

// Grant issues a permission on an entity. The granter must be a platform
// admin or hold manage_users on the same entity.
func (s *Service) Grant(ctx context.Context, actor middleware.Actor, req GrantRequest) (*UserBusinessPermission, error) {
	if req.UserID == "" || req.EntityID == "" {
		return nil, errutil.ValidationFailed("user_id and entity_id are required")
	}

	level, ok := ParseLevel(req.Level)
	if !ok {
		return nil, errutil.ValidationFailed("unknown permission level",
			errutil.WithDetails(errutil.Detail{Field: "level", Message: fmt.Sprintf("%q is not a recognized level", req.Level)}))
	}

	grant := &UserBusinessPermission{
		PermissionID: s.node.Generate().String(),
		UserID:       req.UserID,
		EntityID:     req.EntityID,
		Level:        level,
		Active:       true,
		ExpiresAt:    req.ExpiresAt,
		GrantedBy:    actor.UserID,
	}

	for _, name := range req.Capabilities {
		c, ok := ParseCapability(name)
		if !ok {
			return nil, errutil.ValidationFailed("unknown capability",
				errutil.WithDetails(errutil.Detail{Field: "capabilities", Message: fmt.Sprintf("%q is not a recognized capability", name)}))
		}
		switch c {
		case CapManageUsers:
			grant.ManageUsers = true
		case CapManageContent:
			grant.ManageContent = true
		case CapManageFinance:
			grant.ManageFinance = true
		case CapViewAnalytics:
			grant.ViewAnalytics = true
		case CapEditProfile:
			grant.EditProfile = true
		}
	}

	if err := s.Allow(ctx, actor, req.EntityID, CapManageUsers); err != nil {
		return nil, err
	}

	entity, err := s.entities.FindOne(ctx, &BusinessEntity{EntityID: req.EntityID})
	if err != nil {
		return nil, errutil.Internal("lookup entity", errutil.WithErr(err))
	}
	if entity == nil {
		return nil, errutil.NotFound("entity not found")
	}

	existing, err := s.permissions.FindOne(ctx, &UserBusinessPermission{
		UserID:   req.UserID,
		EntityID: req.EntityID,
		Active:   true,
	})
	if err != nil {
		return nil, errutil.Internal("lookup permission", errutil.WithErr(err))
	}
	if existing != nil {
		return nil, errutil.Conflict("user already holds an active permission on entity")
	}

	if err := s.permissions.Create(ctx, grant); err != nil {
		return nil, errutil.Internal("create permission", errutil.WithErr(err))
	}

	zap.L().Info("permission granted",
		zap.String("permission_id", grant.PermissionID),
		zap.String("user_id", grant.UserID),
		zap.String("entity_id", grant.EntityID),
		zap.String("level", string(grant.Level)),
		zap.String("granted_by", actor.UserID),
	)

	return grant, nil
}

// Revoke deactivates a grant. The record is kept for audit.
func (s *Service) Revoke(ctx context.Context, actor middleware.Actor, permissionID string) error {
	grant, err := s.permissions.FindOne(ctx, &UserBusinessPermission{PermissionID: permissionID})
	if err != nil {
		return errutil.Internal("lookup permission", errutil.WithErr(err))
	}
	if grant == nil {
		return errutil.NotFound("permission not found")
	}

	if err := s.Allow(ctx, actor, grant.EntityID, CapManageUsers); err != nil {
		return err
	}
	if !grant.Active {
		return errutil.InvalidState("permission already revoked")
	}

	if err := s.permissions.Update(ctx, &UserBusinessPermission{PermissionID: permissionID}, map[string]any{
		"active": false,
	}); err != nil {
		return errutil.Internal("revoke permission", errutil.WithErr(err))
	}

	zap.L().Info("permission revoked",
		zap.String("permission_id", permissionID),
		zap.String("revoked_by", actor.UserID),
	)

	return nil
}

// ListForUser returns the active grants a user holds, across entities.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*UserBusinessPermission, error) {
	grants, err := s.permissions.Find(ctx, &UserBusinessPermission{UserID: userID, Active: true})
	if err != nil {
		return nil, errutil.Internal("list permissions", errutil.WithErr(err))
	}
	return grants, nil
}
