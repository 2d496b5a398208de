package application

import (
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/repository"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/task"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("service.application",
	fx.Provide(
		func(db *gorm.DB) repository.Repository[Application] {
			return repository.ProvideStore[Application](db)
		},
		NewService,
		func(s *Service) task.ApplicationGate { return s },
	),
)
