package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	authdomain "github.com/teamlane/teamlane/internal/auth/domain"
	"github.com/teamlane/teamlane/internal/auth/session"
	"github.com/teamlane/teamlane/internal/authorization"
	"github.com/teamlane/teamlane/internal/config"
	notificationdomain "github.com/teamlane/teamlane/internal/notification/domain"
	"github.com/teamlane/teamlane/internal/observability"
	obsmiddleware "github.com/teamlane/teamlane/internal/observability/logger"
	obsmetrics "github.com/teamlane/teamlane/internal/observability/metrics"
	obstracing "github.com/teamlane/teamlane/internal/observability/tracing"
	projectdomain "github.com/teamlane/teamlane/internal/project/domain"
	"github.com/teamlane/teamlane/internal/ratelimit"
	teamdomain "github.com/teamlane/teamlane/internal/team/domain"
)

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	authsvc         authdomain.Service
	sessions        *session.Manager
	genID           *snowflake.Node
	authzSvc        authorization.Service
	teamSvc         teamdomain.Service
	projectSvc      projectdomain.Service
	notificationSvc notificationdomain.Service
	loginLimiter    *ratelimit.LoginLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	Authsvc         authdomain.Service
	Sessions        *session.Manager
	GenID           *snowflake.Node
	AuthzSvc        authorization.Service
	TeamSvc         teamdomain.Service
	ProjectSvc      projectdomain.Service
	NotificationSvc notificationdomain.Service
	LoginLimiter    *ratelimit.LoginLimiter `optional:"true"`
}

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		authsvc:         p.Authsvc,
		sessions:        p.Sessions,
		genID:           p.GenID,
		authzSvc:        p.AuthzSvc,
		teamSvc:         p.TeamSvc,
		projectSvc:      p.ProjectSvc,
		notificationSvc: p.NotificationSvc,
		loginLimiter:    p.LoginLimiter,
	}

	svc.registerAuthRoutes()
	svc.registerTeamRoutes()
	svc.registerInvitationRoutes()
	svc.registerProjectRoutes()
	svc.registerTaskRoutes()
	svc.registerNotificationRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/v1/auth")

	auth.POST("/register", s.Register)
	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.AuthRequired(), s.Me)
	auth.PATCH("/me", s.AuthRequired(), s.UpdateProfile)
}

func (s *Server) registerTeamRoutes() {
	teams := s.engine.Group("/v1/teams", s.AuthRequired())

	teams.POST("", s.CreateTeam)
	teams.GET("", s.ListTeams)

	team := teams.Group("/:teamID")
	{
		team.GET("", s.authorizeTeamAction(authorization.ObjectTeam, authorization.ActionTeamView), s.GetTeam)
		team.PATCH("", s.authorizeTeamAction(authorization.ObjectTeam, authorization.ActionTeamUpdate), s.UpdateTeam)
		team.DELETE("", s.authorizeTeamAction(authorization.ObjectTeam, authorization.ActionTeamDelete), s.DeleteTeam)

		team.GET("/members", s.authorizeTeamAction(authorization.ObjectMember, authorization.ActionMemberView), s.ListTeamMembers)
		team.PATCH("/members/:memberID", s.authorizeTeamAction(authorization.ObjectMember, authorization.ActionMemberUpdate), s.UpdateTeamMemberRole)
		team.DELETE("/members/:memberID", s.authorizeTeamAction(authorization.ObjectMember, authorization.ActionMemberRemove), s.RemoveTeamMember)

		team.POST("/invitations", s.authorizeTeamAction(authorization.ObjectInvitation, authorization.ActionInvitationCreate), s.InviteTeamMember)

		team.POST("/projects", s.authorizeTeamAction(authorization.ObjectProject, authorization.ActionProjectCreate), s.CreateProject)
		team.GET("/projects", s.authorizeTeamAction(authorization.ObjectProject, authorization.ActionProjectView), s.ListProjects)
	}
}

func (s *Server) registerInvitationRoutes() {
	// Invitee-scoped routes. Ownership is checked by the service against the
	// invited user, not by team role.
	invitations := s.engine.Group("/v1/invitations", s.AuthRequired())

	invitations.GET("", s.ListPendingInvitations)
	invitations.POST("/:invitationID/accept", s.AcceptInvitation)
	invitations.POST("/:invitationID/decline", s.DeclineInvitation)
}

func (s *Server) registerProjectRoutes() {
	projects := s.engine.Group("/v1/projects", s.AuthRequired())

	project := projects.Group("/:projectID")
	{
		project.GET("", s.GetProject)
		project.PATCH("", s.UpdateProject)
		project.DELETE("", s.DeleteProject)
		project.POST("/members", s.AddProjectMember)

		project.POST("/tasks", s.CreateTask)
		project.GET("/tasks", s.ListTasks)
	}
}

func (s *Server) registerTaskRoutes() {
	tasks := s.engine.Group("/v1/tasks", s.AuthRequired())

	task := tasks.Group("/:taskID")
	{
		task.GET("", s.GetTask)
		task.PATCH("", s.UpdateTask)
		task.DELETE("", s.DeleteTask)

		task.POST("/comments", s.CreateComment)
		task.GET("/comments", s.ListComments)
	}

	comments := s.engine.Group("/v1/comments", s.AuthRequired())
	comments.DELETE("/:commentID", s.DeleteComment)
}

func (s *Server) registerNotificationRoutes() {
	notifications := s.engine.Group("/v1/notifications", s.AuthRequired())

	notifications.GET("", s.ListNotifications)
	notifications.PATCH("/:notificationID/read", s.MarkNotificationRead)
}

func RunHTTP(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
