package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	authdomain "github.com/teamlane/teamlane/internal/auth/domain"
	"github.com/teamlane/teamlane/internal/clock"
	"github.com/teamlane/teamlane/internal/config"
	notificationdomain "github.com/teamlane/teamlane/internal/notification/domain"
	"github.com/teamlane/teamlane/internal/team/domain"
	"github.com/teamlane/teamlane/internal/team/event"
	"github.com/teamlane/teamlane/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type service struct {
	log       *zap.Logger
	db        *gorm.DB
	repo      domain.Repository
	users     authdomain.Repository
	notifier  notificationdomain.Service
	genID     *snowflake.Node
	clock     clock.Clock
	limits    *config.LimitsHolder
	publisher event.EventPublisher
}

func NewService(
	log *zap.Logger,
	dbConn *gorm.DB,
	repo domain.Repository,
	users authdomain.Repository,
	notifier notificationdomain.Service,
	genID *snowflake.Node,
	clk clock.Clock,
	limits *config.LimitsHolder,
	publisher event.EventPublisher,
) domain.Service {
	return &service{
		log:       log.Named("team.service"),
		db:        dbConn,
		repo:      repo,
		users:     users,
		notifier:  notifier,
		genID:     genID,
		clock:     clk,
		limits:    limits,
		publisher: publisher,
	}
}

func (s *service) Create(ctx context.Context, userID snowflake.ID, req domain.CreateTeamRequest) (*domain.TeamResponse, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := s.clock.Now()
	teamID := s.genID.Generate()
	team := domain.Team{
		ID:          teamID,
		Name:        name,
		Slug:        fmt.Sprintf("%s-%s", slug.Make(name), teamID.String()),
		Description: strings.TrimSpace(req.Description),
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateTeam(ctx, team); err != nil {
			return err
		}

		member := domain.TeamMember{
			ID:        s.genID.Generate(),
			TeamID:    teamID,
			UserID:    userID,
			Role:      domain.RoleOwner,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return repo.AddMember(ctx, member)
	})
	if err != nil {
		return nil, err
	}

	s.emitTeamEvent(ctx, event.TeamCreatedTopic, team)

	return teamResponse(&team), nil
}

func (s *service) ListByUser(ctx context.Context, userID snowflake.ID) ([]domain.TeamListItem, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	rows, err := s.repo.ListTeamsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]domain.TeamListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.TeamListItem{
			ID:          row.ID.String(),
			Name:        row.Name,
			Slug:        row.Slug,
			Role:        row.Role,
			MemberCount: row.MemberCount,
			CreatedAt:   row.CreatedAt,
		})
	}
	return items, nil
}

func (s *service) GetByID(ctx context.Context, teamID string) (*domain.TeamDetail, error) {
	id, err := parseTeamID(teamID)
	if err != nil {
		return nil, err
	}

	team, err := s.repo.GetTeam(ctx, id)
	if err != nil {
		return nil, err
	}

	members, err := s.ListMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}

	return &domain.TeamDetail{
		TeamResponse: *teamResponse(team),
		Members:      members,
	}, nil
}

func (s *service) Update(ctx context.Context, teamID string, req domain.UpdateTeamRequest) (*domain.TeamResponse, error) {
	id, err := parseTeamID(teamID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{"updated_at": s.clock.Now()}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		fields["name"] = name
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}

	if err := s.repo.UpdateTeam(ctx, id, fields); err != nil {
		return nil, err
	}

	team, err := s.repo.GetTeam(ctx, id)
	if err != nil {
		return nil, err
	}
	return teamResponse(team), nil
}

func (s *service) Delete(ctx context.Context, teamID string) error {
	id, err := parseTeamID(teamID)
	if err != nil {
		return err
	}

	team, err := s.repo.GetTeam(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteTeam(ctx, id); err != nil {
		return err
	}

	s.emitTeamEvent(ctx, event.TeamDeletedTopic, *team)
	return nil
}

func (s *service) ListMembers(ctx context.Context, teamID string) ([]domain.MemberItem, error) {
	id, err := parseTeamID(teamID)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetTeam(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListMembers(ctx, id)
	if err != nil {
		return nil, err
	}

	items := make([]domain.MemberItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.MemberItem{
			ID:       row.ID.String(),
			UserID:   row.UserID.String(),
			Name:     row.Name,
			Email:    row.Email,
			Role:     row.Role,
			JoinedAt: row.CreatedAt,
		})
	}
	return items, nil
}

func (s *service) UpdateMemberRole(ctx context.Context, teamID string, memberID string, role string) (*domain.MemberItem, error) {
	id, err := parseTeamID(teamID)
	if err != nil {
		return nil, err
	}
	mid, err := snowflake.ParseString(strings.TrimSpace(memberID))
	if err != nil || mid == 0 {
		return nil, domain.ErrMemberNotFound
	}

	role = strings.ToUpper(strings.TrimSpace(role))
	if role != domain.RoleAdmin && role != domain.RoleMember {
		return nil, domain.ErrInvalidRole
	}

	member, err := s.repo.GetMemberByID(ctx, mid)
	if err != nil {
		return nil, err
	}
	if member.TeamID != id {
		return nil, domain.ErrMemberNotFound
	}
	if member.Role == domain.RoleOwner {
		return nil, domain.ErrCannotModifyOwner
	}

	if err := s.repo.UpdateMemberRole(ctx, mid, role, s.clock.Now()); err != nil {
		return nil, err
	}

	return s.memberItem(ctx, mid)
}

func (s *service) RemoveMember(ctx context.Context, teamID string, memberID string) error {
	id, err := parseTeamID(teamID)
	if err != nil {
		return err
	}
	mid, err := snowflake.ParseString(strings.TrimSpace(memberID))
	if err != nil || mid == 0 {
		return domain.ErrMemberNotFound
	}

	member, err := s.repo.GetMemberByID(ctx, mid)
	if err != nil {
		return err
	}
	if member.TeamID != id {
		return domain.ErrMemberNotFound
	}
	if member.Role == domain.RoleOwner {
		return domain.ErrCannotRemoveOwner
	}

	return s.repo.RemoveMember(ctx, mid)
}

func (s *service) InviteMember(ctx context.Context, inviterID snowflake.ID, teamID string, req domain.InviteRequest) (*domain.InvitationItem, error) {
	if inviterID == 0 {
		return nil, domain.ErrInvalidUser
	}
	id, err := parseTeamID(teamID)
	if err != nil {
		return nil, err
	}

	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role == "" {
		role = domain.RoleMember
	}
	if role != domain.RoleAdmin && role != domain.RoleMember {
		return nil, domain.ErrInvalidRole
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		return nil, domain.ErrInvalidEmail
	}

	team, err := s.repo.GetTeam(ctx, id)
	if err != nil {
		return nil, err
	}

	invitee, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if err == authdomain.ErrUserNotFound {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	if _, err := s.repo.GetMember(ctx, id, invitee.ID); err == nil {
		return nil, domain.ErrAlreadyMember
	} else if err != domain.ErrMemberNotFound {
		return nil, err
	}

	if _, err := s.repo.FindPendingInvitation(ctx, id, invitee.ID); err == nil {
		return nil, domain.ErrInvitePending
	} else if err != domain.ErrInvitationNotFound {
		return nil, err
	}

	limits := s.limits.Current()
	if limits.MaxMembers > 0 {
		memberCount, err := s.repo.CountMembers(ctx, id)
		if err != nil {
			return nil, err
		}
		if memberCount >= int64(limits.MaxMembers) {
			return nil, domain.ErrTeamFull
		}
	}
	if limits.MaxPendingInvites > 0 {
		pendingCount, err := s.repo.CountPendingInvitations(ctx, id)
		if err != nil {
			return nil, err
		}
		if pendingCount >= int64(limits.MaxPendingInvites) {
			return nil, domain.ErrTooManyInvites
		}
	}

	now := s.clock.Now()
	invite := domain.TeamInvitation{
		ID:        s.genID.Generate(),
		TeamID:    id,
		UserID:    invitee.ID,
		InvitedBy: inviterID,
		Role:      role,
		Status:    domain.InvitationPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateInvitation(ctx, invite); err != nil {
			return err
		}

		relatedID := invite.ID
		relatedType := "team_invitation"
		_, err := s.notifier.CreateTx(ctx, tx, notificationdomain.CreateRequest{
			UserID:      invitee.ID,
			Type:        notificationdomain.TypeTeamInvitation,
			Message:     fmt.Sprintf("You have been invited to join %s", team.Name),
			RelatedID:   &relatedID,
			RelatedType: &relatedType,
		})
		return err
	})
	if err != nil {
		// A concurrent invite for the same user races against the
		// partial unique index on PENDING rows.
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrInvitePending
		}
		return nil, err
	}

	return &domain.InvitationItem{
		ID:        invite.ID.String(),
		TeamID:    invite.TeamID.String(),
		UserID:    invite.UserID.String(),
		InvitedBy: invite.InvitedBy.String(),
		Role:      invite.Role,
		Status:    invite.Status,
		CreatedAt: invite.CreatedAt,
	}, nil
}

func (s *service) AcceptInvitation(ctx context.Context, userID snowflake.ID, invitationID string) (*domain.MemberItem, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}
	id, err := snowflake.ParseString(strings.TrimSpace(invitationID))
	if err != nil || id == 0 {
		return nil, domain.ErrInvitationNotFound
	}

	invite, err := s.repo.GetPendingInvitation(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	team, err := s.repo.GetTeam(ctx, invite.TeamID)
	if err != nil {
		return nil, err
	}
	accepter, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	member := domain.TeamMember{
		ID:        s.genID.Generate(),
		TeamID:    invite.TeamID,
		UserID:    userID,
		Role:      invite.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.AddMember(ctx, member); err != nil {
			return err
		}
		if err := repo.UpdateInvitationStatus(ctx, invite.ID, domain.InvitationAccepted, now); err != nil {
			return err
		}

		relatedID := invite.TeamID
		relatedType := "team"
		_, err := s.notifier.CreateTx(ctx, tx, notificationdomain.CreateRequest{
			UserID:      invite.InvitedBy,
			Type:        notificationdomain.TypeTeamInvitationAccepted,
			Message:     fmt.Sprintf("%s accepted your invitation to join %s", accepter.Name, team.Name),
			RelatedID:   &relatedID,
			RelatedType: &relatedType,
		})
		return err
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrAlreadyMember
		}
		return nil, err
	}

	return &domain.MemberItem{
		ID:       member.ID.String(),
		UserID:   member.UserID.String(),
		Name:     accepter.Name,
		Email:    accepter.Email,
		Role:     member.Role,
		JoinedAt: member.CreatedAt,
	}, nil
}

func (s *service) DeclineInvitation(ctx context.Context, userID snowflake.ID, invitationID string) error {
	if userID == 0 {
		return domain.ErrInvalidUser
	}
	id, err := snowflake.ParseString(strings.TrimSpace(invitationID))
	if err != nil || id == 0 {
		return domain.ErrInvitationNotFound
	}

	invite, err := s.repo.GetPendingInvitation(ctx, id, userID)
	if err != nil {
		return err
	}

	team, err := s.repo.GetTeam(ctx, invite.TeamID)
	if err != nil {
		return err
	}
	decliner, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateInvitationStatus(ctx, invite.ID, domain.InvitationDeclined, now); err != nil {
			return err
		}

		relatedID := invite.TeamID
		relatedType := "team"
		_, err := s.notifier.CreateTx(ctx, tx, notificationdomain.CreateRequest{
			UserID:      invite.InvitedBy,
			Type:        notificationdomain.TypeTeamInvitationDeclined,
			Message:     fmt.Sprintf("%s declined your invitation to join %s", decliner.Name, team.Name),
			RelatedID:   &relatedID,
			RelatedType: &relatedType,
		})
		return err
	})
}

func (s *service) ListPendingInvitations(ctx context.Context, userID snowflake.ID) ([]domain.PendingInvitationItem, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	rows, err := s.repo.ListPendingInvitationsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]domain.PendingInvitationItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.PendingInvitationItem{
			ID:          row.ID.String(),
			TeamID:      row.TeamID.String(),
			TeamName:    row.TeamName,
			InviterName: row.InviterName,
			Role:        row.Role,
			CreatedAt:   row.CreatedAt,
		})
	}
	return items, nil
}

func (s *service) memberItem(ctx context.Context, memberID snowflake.ID) (*domain.MemberItem, error) {
	member, err := s.repo.GetMemberByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, member.UserID)
	if err != nil {
		return nil, err
	}
	return &domain.MemberItem{
		ID:       member.ID.String(),
		UserID:   member.UserID.String(),
		Name:     user.Name,
		Email:    user.Email,
		Role:     member.Role,
		JoinedAt: member.CreatedAt,
	}, nil
}

func (s *service) emitTeamEvent(ctx context.Context, topic string, team domain.Team) {
	if s.publisher == nil {
		return
	}

	ev := event.TeamEvent{
		TeamID:    team.ID,
		OwnerID:   team.CreatedBy,
		CreatedAt: team.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, topic, ev); err != nil {
		s.log.Warn("failed to publish team event", zap.String("topic", topic), zap.Error(err))
	}
}

func teamResponse(team *domain.Team) *domain.TeamResponse {
	return &domain.TeamResponse{
		ID:          team.ID.String(),
		Name:        team.Name,
		Slug:        team.Slug,
		Description: team.Description,
		CreatedBy:   team.CreatedBy.String(),
		CreatedAt:   team.CreatedAt,
	}
}

func parseTeamID(raw string) (snowflake.ID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, domain.ErrInvalidTeam
	}
	id, err := snowflake.ParseString(trimmed)
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidTeam
	}
	return id, nil
}
