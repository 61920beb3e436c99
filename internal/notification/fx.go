package notification

import (
	"github.com/teamlane/teamlane/internal/notification/repository"
	"github.com/teamlane/teamlane/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
