package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type TeamRow struct {
	ID          snowflake.ID
	Name        string
	Slug        string
	Role        string
	MemberCount int64
	CreatedAt   time.Time
}

type MemberRow struct {
	ID        snowflake.ID
	UserID    snowflake.ID
	Name      string
	Email     string
	Role      string
	CreatedAt time.Time
}

type PendingInvitationRow struct {
	ID          snowflake.ID
	TeamID      snowflake.ID
	TeamName    string
	InviterName string
	Role        string
	CreatedAt   time.Time
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateTeam(ctx context.Context, team Team) error
	GetTeam(ctx context.Context, teamID snowflake.ID) (*Team, error)
	UpdateTeam(ctx context.Context, teamID snowflake.ID, fields map[string]any) error
	DeleteTeam(ctx context.Context, teamID snowflake.ID) error
	ListTeamsByUser(ctx context.Context, userID snowflake.ID) ([]TeamRow, error)

	AddMember(ctx context.Context, member TeamMember) error
	GetMember(ctx context.Context, teamID snowflake.ID, userID snowflake.ID) (*TeamMember, error)
	GetMemberByID(ctx context.Context, memberID snowflake.ID) (*TeamMember, error)
	ListMembers(ctx context.Context, teamID snowflake.ID) ([]MemberRow, error)
	CountMembers(ctx context.Context, teamID snowflake.ID) (int64, error)
	UpdateMemberRole(ctx context.Context, memberID snowflake.ID, role string, updatedAt time.Time) error
	RemoveMember(ctx context.Context, memberID snowflake.ID) error

	CreateInvitation(ctx context.Context, invite TeamInvitation) error
	GetPendingInvitation(ctx context.Context, id snowflake.ID, userID snowflake.ID) (*TeamInvitation, error)
	FindPendingInvitation(ctx context.Context, teamID snowflake.ID, userID snowflake.ID) (*TeamInvitation, error)
	UpdateInvitationStatus(ctx context.Context, id snowflake.ID, status string, updatedAt time.Time) error
	ListPendingInvitationsByUser(ctx context.Context, userID snowflake.ID) ([]PendingInvitationRow, error)
	CountPendingInvitations(ctx context.Context, teamID snowflake.ID) (int64, error)
}
