package main

import (
	"context"
	"log"

	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/config"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/db"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/logger"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/application"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/permission"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/rating"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/task"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/work"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		fx.Invoke(migrate),
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

func migrate(lc fx.Lifecycle, shutdowner fx.Shutdowner, gdb *gorm.DB) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			err := gdb.WithContext(ctx).AutoMigrate(
				&permission.BusinessEntity{},
				&permission.UserBusinessPermission{},
				&task.Task{},
				&task.StageRecord{},
				&application.Application{},
				&work.Asset{},
				&rating.Rating{},
			)
			if err != nil {
				return err
			}

			zap.L().Info("schema migrated")
			return shutdowner.Shutdown()
		},
	})
}
