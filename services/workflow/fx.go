package workflow

import (
	"net/http"

	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/config"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/health"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("service.workflow",
	fx.Provide(
		NewService,
		NewHandler,
		NewRouter,
	),
)

// NewRouter assembles the gin engine: recovery, actor extraction and the
// error envelope around every route.
func NewRouter(cfg *config.Config, h *Handler, hc health.HealthService) http.Handler {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logging(), middleware.WithActor(), middleware.Error())

	r.GET("/healthz", hc.Liveness)
	r.GET("/readyz", hc.Readiness)

	h.Register(r)
	return r
}
