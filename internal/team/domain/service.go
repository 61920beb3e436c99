package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidUser        = errors.New("invalid_user")
	ErrInvalidTeam        = errors.New("invalid_team")
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrInvalidRole        = errors.New("invalid_role")
	ErrTeamNotFound       = errors.New("team_not_found")
	ErrUserNotFound       = errors.New("user_not_found")
	ErrMemberNotFound     = errors.New("member_not_found")
	ErrInvitationNotFound = errors.New("invitation_not_found")
	ErrAlreadyMember      = errors.New("already_member")
	ErrInvitePending      = errors.New("invitation_pending")
	ErrTeamFull           = errors.New("team_full")
	ErrTooManyInvites     = errors.New("too_many_pending_invitations")
	ErrCannotModifyOwner  = errors.New("cannot_modify_owner_role")
	ErrCannotRemoveOwner  = errors.New("cannot_remove_owner")
)

type Service interface {
	Create(ctx context.Context, userID snowflake.ID, req CreateTeamRequest) (*TeamResponse, error)
	ListByUser(ctx context.Context, userID snowflake.ID) ([]TeamListItem, error)
	GetByID(ctx context.Context, teamID string) (*TeamDetail, error)
	Update(ctx context.Context, teamID string, req UpdateTeamRequest) (*TeamResponse, error)
	Delete(ctx context.Context, teamID string) error

	ListMembers(ctx context.Context, teamID string) ([]MemberItem, error)
	UpdateMemberRole(ctx context.Context, teamID string, memberID string, role string) (*MemberItem, error)
	RemoveMember(ctx context.Context, teamID string, memberID string) error

	InviteMember(ctx context.Context, inviterID snowflake.ID, teamID string, req InviteRequest) (*InvitationItem, error)
	AcceptInvitation(ctx context.Context, userID snowflake.ID, invitationID string) (*MemberItem, error)
	DeclineInvitation(ctx context.Context, userID snowflake.ID, invitationID string) error
	ListPendingInvitations(ctx context.Context, userID snowflake.ID) ([]PendingInvitationItem, error)
}

type CreateTeamRequest struct {
	Name        string
	Description string
}

type UpdateTeamRequest struct {
	Name        *string
	Description *string
}

type InviteRequest struct {
	Email string
	Role  string
}

type TeamResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type TeamListItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Role        string    `json:"role"`
	MemberCount int64     `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type TeamDetail struct {
	TeamResponse
	Members []MemberItem `json:"members"`
}

type MemberItem struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

type InvitationItem struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"team_id"`
	UserID    string    `json:"user_id"`
	InvitedBy string    `json:"invited_by"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type PendingInvitationItem struct {
	ID          string    `json:"id"`
	TeamID      string    `json:"team_id"`
	TeamName    string    `json:"team_name"`
	InviterName string    `json:"inviter_name"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}
