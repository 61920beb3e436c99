package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/teamlane/teamlane/internal/auth"
	"github.com/teamlane/teamlane/internal/auth/session"
	"github.com/teamlane/teamlane/internal/authorization"
	"github.com/teamlane/teamlane/internal/clock"
	"github.com/teamlane/teamlane/internal/config"
	"github.com/teamlane/teamlane/internal/migration"
	"github.com/teamlane/teamlane/internal/notification"
	"github.com/teamlane/teamlane/internal/observability"
	"github.com/teamlane/teamlane/internal/project"
	"github.com/teamlane/teamlane/internal/ratelimit"
	"github.com/teamlane/teamlane/internal/server"
	"github.com/teamlane/teamlane/internal/team"
	"github.com/teamlane/teamlane/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		auth.Module,
		session.Module,
		authorization.Module,
		notification.Module,
		team.Module,
		project.Module,
		ratelimit.Module,

		fx.Provide(server.NewEngine),
		fx.Invoke(server.NewServer),
		fx.Invoke(server.RunHTTP),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
