package team

import (
	"github.com/teamlane/teamlane/internal/team/event"
	"github.com/teamlane/teamlane/internal/team/repository"
	"github.com/teamlane/teamlane/internal/team/service"
	"go.uber.org/fx"
)

var Module = fx.Module("team.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(event.NewOutboxPublisher),
	fx.Provide(service.NewService),
)
