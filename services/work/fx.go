package work

import (
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/repository"
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/services/task"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("service.work",
	fx.Provide(
		func(db *gorm.DB) repository.Repository[Asset] {
			return repository.ProvideStore[Asset](db)
		},
		NewService,
		func(s *Service) task.AssetGate { return s },
	),
)
