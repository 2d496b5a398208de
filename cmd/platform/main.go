package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	pkgasynq "github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/asynq"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/config"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/db"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/health"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/logger"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/redis"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/sequence"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/server"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/application"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/permission"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/rating"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/stage"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/task"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/work"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/workflow"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		sequence.Module,
		pkgasynq.Client,
		health.Module,

		stage.Module,
		permission.Module,
		task.Module,
		application.Module,
		work.Module,
		rating.Module,
		workflow.Module,

		server.Module,
		fxLogger,
	)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})
