package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	pkgasynq "github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/asynq"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/config"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/logger"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/notification"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		pkgasynq.Server,
		notification.Module,
		fxLogger,
	)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})
