package task

import (
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/repository"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("service.task",
	fx.Provide(
		func(db *gorm.DB) repository.Repository[Task] {
			return repository.ProvideStore[Task](db)
		},
		func(db *gorm.DB) repository.Repository[StageRecord] {
			return repository.ProvideStore[StageRecord](db)
		},
		NewService,
		NewEngine,
	),
)
