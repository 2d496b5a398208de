package permission

import (
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/repository"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("service.permission",
	fx.Provide(
		func(db *gorm.DB) repository.Repository[BusinessEntity] {
			return repository.ProvideStore[BusinessEntity](db)
		},
		func(db *gorm.DB) repository.Repository[UserBusinessPermission] {
			return repository.ProvideStore[UserBusinessPermission](db)
		},
		NewService,
	),
)
