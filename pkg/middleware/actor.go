package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
)

// Actor identity arrives via trusted headers set by the upstream auth
// gateway. Token verification is not this service's concern.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	RoleAdmin = "admin"
)

type actorKey struct{}

// ActorContextKey keys the actor value in a request context.
var ActorContextKey = actorKey{}

type Actor struct {
	UserID string
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// WithActor reads the identity headers into the request context.
func WithActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := Actor{
			UserID: c.GetHeader(HeaderUserID),
			Role:   c.GetHeader(HeaderUserRole),
		}

		ctx := context.WithValue(c.Request.Context(), ActorContextKey, actor)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ActorFrom returns the actor stored on the context, if any.
func ActorFrom(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(ActorContextKey).(Actor)
	return actor, ok && actor.UserID != ""
}
