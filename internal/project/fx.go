package project

import (
	"github.com/teamlane/teamlane/internal/project/repository"
	"github.com/teamlane/teamlane/internal/project/service"
	"go.uber.org/fx"
)

var Module = fx.Module("project.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
