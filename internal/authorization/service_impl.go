package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectTeam         = "team"
	ObjectMember       = "member"
	ObjectInvitation   = "invitation"
	ObjectProject      = "project"
	ObjectTask         = "task"
	ObjectComment      = "comment"
	ObjectNotification = "notification"
)

const (
	ActionTeamView   = "team.view"
	ActionTeamUpdate = "team.update"
	ActionTeamDelete = "team.delete"

	ActionMemberView   = "member.view"
	ActionMemberUpdate = "member.update"
	ActionMemberRemove = "member.remove"

	ActionInvitationCreate = "invitation.create"
	ActionInvitationView   = "invitation.view"

	ActionProjectView   = "project.view"
	ActionProjectCreate = "project.create"
	ActionProjectUpdate = "project.update"
	ActionProjectDelete = "project.delete"

	ActionTaskView   = "task.view"
	ActionTaskCreate = "task.create"
	ActionTaskUpdate = "task.update"
	ActionTaskDelete = "task.delete"

	ActionCommentView   = "comment.view"
	ActionCommentCreate = "comment.create"

	ActionNotificationView = "notification.view"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

// Authorize checks whether the actor may perform action on object within
// the given team. Non-members are rejected with ErrForbidden before any
// policy evaluation happens.
func (s *ServiceImpl) Authorize(ctx context.Context, actor string, teamID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return ErrInvalidTeam
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := s.resolveActor(ctx, actor, teamID)
	if err != nil {
		return err
	}

	domain := fmt.Sprintf("team:%s", teamID)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("subject", subject),
			zap.String("team_id", teamID),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor string, teamID string) (string, string, error) {
	if actor == "system" {
		return actor, "role:system", nil
	}
	if strings.HasPrefix(actor, "user:") {
		userIDRaw := strings.TrimPrefix(actor, "user:")
		userID, err := snowflake.ParseString(userIDRaw)
		if err != nil || userID == 0 {
			return "", "", ErrInvalidActor
		}
		parsedTeamID, err := snowflake.ParseString(teamID)
		if err != nil || parsedTeamID == 0 {
			return "", "", ErrInvalidTeam
		}
		role, err := s.roleForUser(ctx, parsedTeamID, userID)
		if err != nil {
			return "", "", err
		}
		return actor, fmt.Sprintf("role:%s", strings.ToLower(role)), nil
	}
	return "", "", ErrInvalidActor
}

func (s *ServiceImpl) roleForUser(ctx context.Context, teamID snowflake.ID, userID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM team_members
		 WHERE team_id = ? AND user_id = ?
		 LIMIT 1`,
		teamID,
		userID,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role := strings.TrimSpace(row.Role)
	if role == "" {
		return "", ErrForbidden
	}
	return role, nil
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	// Project and task mutation stays open to every team role; the
	// project service narrows it further to creator-or-project-member.
	memberRead := [][2]string{
		{ObjectTeam, ActionTeamView},
		{ObjectMember, ActionMemberView},
		{ObjectProject, ActionProjectView},
		{ObjectProject, ActionProjectCreate},
		{ObjectProject, ActionProjectUpdate},
		{ObjectProject, ActionProjectDelete},
		{ObjectTask, ActionTaskView},
		{ObjectTask, ActionTaskCreate},
		{ObjectTask, ActionTaskUpdate},
		{ObjectTask, ActionTaskDelete},
		{ObjectComment, ActionCommentView},
		{ObjectComment, ActionCommentCreate},
		{ObjectNotification, ActionNotificationView},
	}

	adminExtra := [][2]string{
		{ObjectTeam, ActionTeamUpdate},
		{ObjectMember, ActionMemberUpdate},
		{ObjectMember, ActionMemberRemove},
		{ObjectInvitation, ActionInvitationCreate},
		{ObjectInvitation, ActionInvitationView},
	}

	ownerExtra := [][2]string{
		{ObjectTeam, ActionTeamDelete},
	}

	policies := make([][]string, 0, 3*len(memberRead)+2*len(adminExtra)+len(ownerExtra))
	for _, role := range []string{"role:member", "role:admin", "role:owner"} {
		for _, p := range memberRead {
			policies = append(policies, []string{role, "*", p[0], p[1]})
		}
	}
	for _, role := range []string{"role:admin", "role:owner"} {
		for _, p := range adminExtra {
			policies = append(policies, []string{role, "*", p[0], p[1]})
		}
	}
	for _, p := range ownerExtra {
		policies = append(policies, []string{"role:owner", "*", p[0], p[1]})
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
