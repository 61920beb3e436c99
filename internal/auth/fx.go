package auth

import (
	"github.com/teamlane/teamlane/internal/auth/repository"
	"github.com/teamlane/teamlane/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
