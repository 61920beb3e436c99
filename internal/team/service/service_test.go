package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/teamlane/teamlane/internal/auth/domain"
	authrepository "github.com/teamlane/teamlane/internal/auth/repository"
	"github.com/teamlane/teamlane/internal/clock"
	"github.com/teamlane/teamlane/internal/config"
	notificationdomain "github.com/teamlane/teamlane/internal/notification/domain"
	notificationrepository "github.com/teamlane/teamlane/internal/notification/repository"
	notificationservice "github.com/teamlane/teamlane/internal/notification/service"
	"github.com/teamlane/teamlane/internal/team/domain"
	"github.com/teamlane/teamlane/internal/team/event"
	"github.com/teamlane/teamlane/internal/team/repository"
	"github.com/teamlane/teamlane/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc      domain.Service
	notifier notificationdomain.Service
	users    authdomain.Repository
	db       *gorm.DB
	node     *snowflake.Node
	limits   *config.LimitsHolder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(
		&authdomain.User{},
		&domain.Team{},
		&domain.TeamMember{},
		&domain.TeamInvitation{},
		&notificationdomain.Notification{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	if err := dbConn.Exec(
		`CREATE UNIQUE INDEX ux_team_invitations_pending
		 ON team_invitations (team_id, user_id)
		 WHERE status = 'PENDING'`,
	).Error; err != nil {
		t.Fatalf("failed to create partial index: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	clk := &clock.SystemClock{}
	users, _ := authrepository.New(dbConn)
	notifyRepo := notificationrepository.NewRepository(dbConn)
	notifier := notificationservice.NewService(zap.NewNop(), notifyRepo, node, clk)

	limits := &config.LimitsHolder{}
	limits.Store(config.DefaultTeamLimits())

	repo := repository.NewRepository(dbConn)
	svc := NewService(zap.NewNop(), dbConn, repo, users, notifier, node, clk, limits, nil)

	return &fixture{
		svc:      svc,
		notifier: notifier,
		users:    users,
		db:       dbConn,
		node:     node,
		limits:   limits,
	}
}

func (f *fixture) createUser(t *testing.T, email, name string) *authdomain.User {
	t.Helper()
	user := &authdomain.User{
		ID:           f.node.Generate(),
		Email:        email,
		Name:         name,
		PasswordHash: "x",
	}
	if err := f.users.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func (f *fixture) createTeam(t *testing.T, ownerID snowflake.ID, name string) *domain.TeamResponse {
	t.Helper()
	team, err := f.svc.Create(context.Background(), ownerID, domain.CreateTeamRequest{Name: name})
	if err != nil {
		t.Fatalf("failed to create team: %v", err)
	}
	return team
}

type recordingPublisher struct {
	topics []string
	events []event.TeamEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, ev event.TeamEvent) error {
	_ = ctx
	p.topics = append(p.topics, topic)
	p.events = append(p.events, ev)
	return nil
}

func TestCreateTeamPublishesEvent(t *testing.T) {
	f := newFixture(t)
	publisher := &recordingPublisher{}
	svc := NewService(zap.NewNop(), f.db, repository.NewRepository(f.db), f.users, f.notifier, f.node, &clock.SystemClock{}, f.limits, publisher)

	owner := f.createUser(t, "owner@example.com", "Owner")
	team, err := svc.Create(context.Background(), owner.ID, domain.CreateTeamRequest{Name: "Acme"})
	if err != nil {
		t.Fatalf("failed to create team: %v", err)
	}

	if len(publisher.topics) != 1 || publisher.topics[0] != event.TeamCreatedTopic {
		t.Fatalf("expected one %s event, got %v", event.TeamCreatedTopic, publisher.topics)
	}
	if publisher.events[0].TeamID.String() != team.ID {
		t.Fatalf("expected event for team %s, got %s", team.ID, publisher.events[0].TeamID)
	}
	if publisher.events[0].OwnerID != owner.ID {
		t.Fatalf("expected owner %s on event, got %s", owner.ID, publisher.events[0].OwnerID)
	}
}

func TestCreateTeamOwnerMembership(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com", "Owner")

	team := f.createTeam(t, owner.ID, "Acme")

	members, err := f.svc.ListMembers(context.Background(), team.ID)
	if err != nil {
		t.Fatalf("failed to list members: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("expected 1 member, got %d", len(members))
	}
	if members[0].Role != domain.RoleOwner {
		t.Fatalf("expected OWNER role, got %s", members[0].Role)
	}
	if members[0].UserID != owner.ID.String() {
		t.Fatalf("expected creator as member")
	}
}

func TestInviteUnknownEmail(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com", "Owner")
	team := f.createTeam(t, owner.ID, "Acme")

	_, err := f.svc.InviteMember(context.Background(), owner.ID, team.ID, domain.InviteRequest{
		Email: "nobody@example.com",
	})
	if err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestInviteExistingMember(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com", "Owner")
	team := f.createTeam(t, owner.ID, "Acme")

	_, err := f.svc.InviteMember(context.Background(), owner.ID, team.ID, domain.InviteRequest{
		Email: "owner@example.com",
	})
	if err != domain.ErrAlreadyMember {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}
}

func TestInviteDuplicatePending(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com", "Owner")
	f.createUser(t, "bob@example.com", "Bob")
	team := f.createTeam(t, owner.ID, "Acme")

	if _, err := f.svc.InviteMember(context.Background(), owner.ID, team.ID, domain.InviteRequest{
		Email: "bob@example.com",
	}); err != nil {
		t.Fatalf("failed to invite: %v", err)
	}

	_, err := f.svc.InviteMember(context.Background(), owner.ID, team.ID, domain.InviteRequest{
		Email: "bob@example.com",
	})
	if err != domain.ErrInvitePending {
		t.Fatalf("expected ErrInvitePending, got %v", err)
	}
}

func TestInviteOwnerRoleRejected(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com", "Owner")
	f.createUser(t, "bob@example.com", "Bob")
	team := f.createTeam(t, owner.ID, "Acme")

	_, err := f.svc.InviteMember(context.Background(), owner.ID, team.ID, domain.InviteRequest{
		Email: "bob@example.com",
		Role:  domain.RoleOwner,
	})
	if err != domain.ErrInvalidRole {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestInviteCreatesNotification(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com", "Owner")
	bob := f.createUser(t, "bob@example.com", "Bob")
	team := f.createTeam(t, owner.ID, "Acme")

	if _, err := f.svc.InviteMember(context.Background(), owner.ID, team.ID, domain.InviteRequest{
		Email: "bob@example.com",
	}); err != nil {
		t.Fatalf("failed to invite: %v", err)
	}

	result, err := f.notifier.ListByUser(context.Background(), bob.ID)
	if err != nil {
		t.Fatalf("failed to list notifications: %v", err)
	}
	if len(result.Notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(result.Notifications))
	}
	if result.Notifications[0].Type != notificationdomain.TypeTeamInvitation {
		t.Fatalf("expected team_invitation notification, got %s", result.Notifications[0].Type)
	}
	if result.UnreadCount != 1 {
		t.Fatalf("expected 1 unread, got %d", result.UnreadCount)
	}
}

func TestInviteMemberLimit(t *testing.T) {
	f := newFixture(t)
	f.limits.Store(config.TeamLimits{MaxMembers: 1, MaxPendingInvites: 25})

	owner := f.createUser(t, "owner@example.com", "Owner")
	f.createUser(t, "bob@example.com", "Bob")
	team := f.createTeam(t, owner.ID, "Acme")

	_, err := f.svc.InviteMember(context.Background(), owner.ID, team.ID, domain.InviteRequest{
		Email: "bob@example.com",
	})
	if err != domain.ErrTeamFull {
		t.Fatalf("expected ErrTeamFull, got %v", err)
	}
}

func TestInvitePendingLimit(t *testing.T) {
	f := newFixture(t)
	f.limits.Store(config.TeamLimits{MaxMembers: 100, MaxPendingInvites: 1})

	owner := f.createUser(t, "owner@example.com", "Owner")
	f.createUser(t, "bob@example.com", "Bob")
	f.createUser(t, "carol@example.com", "Carol")
	team := f.createTeam(t, owner.ID, "Acme")

	if _, err := f.svc.InviteMember(context.Background(), owner.ID, team.ID, domain.InviteRequest{
		Email: "bob@example.com",
	}); err != nil {
		t.Fatalf("failed to invite: %v", err)
	}

	_, err := f.svc.InviteMember(context.Background(), owner.ID, team.ID, domain.InviteRequest{
		Email: "carol@example.com",
	})
	if err != domain.ErrTooManyInvites {
		t.Fatalf("expected ErrTooManyInvites, got %v", err)
	}
}

func TestAcceptInvitation(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com", "Owner")
	bob := f.createUser(t, "bob@example.com", "Bob")
	team := f.createTeam(t, owner.ID, "Acme")

	invite, err := f.svc.InviteMember(context.Background(), owner.ID, team.ID, domain.InviteRequest{
		Email: "bob@example.com",
		Role:  domain.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("failed to invite: %v", err)
	}

	member, err := f.svc.AcceptInvitation(context.Background(), bob.ID, invite.ID)
	if err != nil {
		t.Fatalf("failed to accept: %v", err)
	}
	if member.Role != domain.RoleAdmin {
		t.Fatalf("expected invited role ADMIN, got %s", member.Role)
	}

	members, err := f.svc.ListMembers(context.Background(), team.ID)
	if err != nil {
		t.Fatalf("failed to list members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}

	// Accepting twice must fail since the invitation left PENDING.
	if _, err := f.svc.AcceptInvitation(context.Background(), bob.ID, invite.ID); err != domain.ErrInvitationNotFound {
		t.Fatalf("expected ErrInvitationNotFound, got %v", err)
	}

	result, err := f.notifier.ListByUser(context.Background(), owner.ID)
	if err != nil {
		t.Fatalf("failed to list notifications: %v", err)
	}
	if len(result.Notifications) != 1 || result.Notifications[0].Type != notificationdomain.TypeTeamInvitationAccepted {
		t.Fatalf("expected accepted notification for inviter")
	}
}

func TestAcceptRolledBackWhenAlreadyMember(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com", "Owner")
	bob := f.createUser(t, "bob@example.com", "Bob")
	team := f.createTeam(t, owner.ID, "Acme")

	invite, err := f.svc.InviteMember(context.Background(), owner.ID, team.ID, domain.InviteRequest{
		Email: "bob@example.com",
	})
	if err != nil {
		t.Fatalf("failed to invite: %v", err)
	}

	// Bob joins through another path while the invitation is still open.
	teamID, err := snowflake.ParseString(team.ID)
	if err != nil {
		t.Fatalf("failed to parse team id: %v", err)
	}
	existing := domain.TeamMember{
		ID:     f.node.Generate(),
		TeamID: teamID,
		UserID: bob.ID,
		Role:   domain.RoleMember,
	}
	if err := f.db.Create(&existing).Error; err != nil {
		t.Fatalf("failed to insert membership: %v", err)
	}

	if _, err := f.svc.AcceptInvitation(context.Background(), bob.ID, invite.ID); err != domain.ErrAlreadyMember {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}

	inviteID, err := snowflake.ParseString(invite.ID)
	if err != nil {
		t.Fatalf("failed to parse invitation id: %v", err)
	}
	var stored domain.TeamInvitation
	if err := f.db.First(&stored, "id = ?", inviteID).Error; err != nil {
		t.Fatalf("failed to load invitation: %v", err)
	}
	if stored.Status != domain.InvitationPending {
		t.Fatalf("expected invitation to stay PENDING, got %s", stored.Status)
	}

	result, err := f.notifier.ListByUser(context.Background(), owner.ID)
	if err != nil {
		t.Fatalf("failed to list notifications: %v", err)
	}
	for _, n := range result.Notifications {
		if n.Type == notificationdomain.TypeTeamInvitationAccepted {
			t.Fatal("accepted notification must roll back with the membership")
		}
	}
}

func TestAcceptSomeoneElsesInvitation(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com", "Owner")
	f.createUser(t, "bob@example.com", "Bob")
	mallory := f.createUser(t, "mallory@example.com", "Mallory")
	team := f.createTeam(t, owner.ID, "Acme")

	invite, err := f.svc.InviteMember(context.Background(), owner.ID, team.ID, domain.InviteRequest{
		Email: "bob@example.com",
	})
	if err != nil {
		t.Fatalf("failed to invite: %v", err)
	}

	_, err = f.svc.AcceptInvitation(context.Background(), mallory.ID, invite.ID)
	if err != domain.ErrInvitationNotFound {
		t.Fatalf("expected ErrInvitationNotFound, got %v", err)
	}
}

func TestDeclineInvitation(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com", "Owner")
	bob := f.createUser(t, "bob@example.com", "Bob")
	team := f.createTeam(t, owner.ID, "Acme")

	invite, err := f.svc.InviteMember(context.Background(), owner.ID, team.ID, domain.InviteRequest{
		Email: "bob@example.com",
	})
	if err != nil {
		t.Fatalf("failed to invite: %v", err)
	}

	if err := f.svc.DeclineInvitation(context.Background(), bob.ID, invite.ID); err != nil {
		t.Fatalf("failed to decline: %v", err)
	}

	members, err := f.svc.ListMembers(context.Background(), team.ID)
	if err != nil {
		t.Fatalf("failed to list members: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("expected no new member after decline, got %d", len(members))
	}

	result, err := f.notifier.ListByUser(context.Background(), owner.ID)
	if err != nil {
		t.Fatalf("failed to list notifications: %v", err)
	}
	if len(result.Notifications) != 1 || result.Notifications[0].Type != notificationdomain.TypeTeamInvitationDeclined {
		t.Fatalf("expected declined notification for inviter")
	}

	// A declined invitation can no longer be accepted.
	if _, err := f.svc.AcceptInvitation(context.Background(), bob.ID, invite.ID); err != domain.ErrInvitationNotFound {
		t.Fatalf("expected ErrInvitationNotFound, got %v", err)
	}
}

func TestReinviteAfterDecline(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com", "Owner")
	bob := f.createUser(t, "bob@example.com", "Bob")
	team := f.createTeam(t, owner.ID, "Acme")

	invite, err := f.svc.InviteMember(context.Background(), owner.ID, team.ID, domain.InviteRequest{
		Email: "bob@example.com",
	})
	if err != nil {
		t.Fatalf("failed to invite: %v", err)
	}
	if err := f.svc.DeclineInvitation(context.Background(), bob.ID, invite.ID); err != nil {
		t.Fatalf("failed to decline: %v", err)
	}

	// Only PENDING rows are unique per (team, user).
	if _, err := f.svc.InviteMember(context.Background(), owner.ID, team.ID, domain.InviteRequest{
		Email: "bob@example.com",
	}); err != nil {
		t.Fatalf("expected reinvite to succeed, got %v", err)
	}
}

func TestListPendingInvitations(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com", "Owner")
	bob := f.createUser(t, "bob@example.com", "Bob")
	team := f.createTeam(t, owner.ID, "Acme")

	if _, err := f.svc.InviteMember(context.Background(), owner.ID, team.ID, domain.InviteRequest{
		Email: "bob@example.com",
	}); err != nil {
		t.Fatalf("failed to invite: %v", err)
	}

	items, err := f.svc.ListPendingInvitations(context.Background(), bob.ID)
	if err != nil {
		t.Fatalf("failed to list pending: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 pending invitation, got %d", len(items))
	}
	if items[0].TeamName != "Acme" {
		t.Fatalf("expected team name enrichment, got %q", items[0].TeamName)
	}
	if items[0].InviterName != "Owner" {
		t.Fatalf("expected inviter name enrichment, got %q", items[0].InviterName)
	}
}

func TestUpdateMemberRoleGuards(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com", "Owner")
	bob := f.createUser(t, "bob@example.com", "Bob")
	team := f.createTeam(t, owner.ID, "Acme")

	invite, err := f.svc.InviteMember(context.Background(), owner.ID, team.ID, domain.InviteRequest{
		Email: "bob@example.com",
	})
	if err != nil {
		t.Fatalf("failed to invite: %v", err)
	}
	bobMember, err := f.svc.AcceptInvitation(context.Background(), bob.ID, invite.ID)
	if err != nil {
		t.Fatalf("failed to accept: %v", err)
	}

	members, err := f.svc.ListMembers(context.Background(), team.ID)
	if err != nil {
		t.Fatalf("failed to list members: %v", err)
	}
	var ownerMemberID string
	for _, m := range members {
		if m.Role == domain.RoleOwner {
			ownerMemberID = m.ID
		}
	}

	if _, err := f.svc.UpdateMemberRole(context.Background(), team.ID, ownerMemberID, domain.RoleAdmin); err != domain.ErrCannotModifyOwner {
		t.Fatalf("expected ErrCannotModifyOwner, got %v", err)
	}

	if _, err := f.svc.UpdateMemberRole(context.Background(), team.ID, bobMember.ID, domain.RoleOwner); err != domain.ErrInvalidRole {
		t.Fatalf("expected ErrInvalidRole when promoting to OWNER, got %v", err)
	}

	updated, err := f.svc.UpdateMemberRole(context.Background(), team.ID, bobMember.ID, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("failed to update role: %v", err)
	}
	if updated.Role != domain.RoleAdmin {
		t.Fatalf("expected ADMIN, got %s", updated.Role)
	}
}

func TestRemoveMemberGuards(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com", "Owner")
	bob := f.createUser(t, "bob@example.com", "Bob")
	team := f.createTeam(t, owner.ID, "Acme")

	invite, err := f.svc.InviteMember(context.Background(), owner.ID, team.ID, domain.InviteRequest{
		Email: "bob@example.com",
	})
	if err != nil {
		t.Fatalf("failed to invite: %v", err)
	}
	bobMember, err := f.svc.AcceptInvitation(context.Background(), bob.ID, invite.ID)
	if err != nil {
		t.Fatalf("failed to accept: %v", err)
	}

	members, err := f.svc.ListMembers(context.Background(), team.ID)
	if err != nil {
		t.Fatalf("failed to list members: %v", err)
	}
	var ownerMemberID string
	for _, m := range members {
		if m.Role == domain.RoleOwner {
			ownerMemberID = m.ID
		}
	}

	if err := f.svc.RemoveMember(context.Background(), team.ID, ownerMemberID); err != domain.ErrCannotRemoveOwner {
		t.Fatalf("expected ErrCannotRemoveOwner, got %v", err)
	}

	if err := f.svc.RemoveMember(context.Background(), team.ID, bobMember.ID); err != nil {
		t.Fatalf("failed to remove member: %v", err)
	}

	members, err = f.svc.ListMembers(context.Background(), team.ID)
	if err != nil {
		t.Fatalf("failed to list members: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("expected 1 member after removal, got %d", len(members))
	}
}

func TestMemberFromOtherTeamNotFound(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com", "Owner")
	other := f.createUser(t, "other@example.com", "Other")
	teamA := f.createTeam(t, owner.ID, "Alpha")
	teamB := f.createTeam(t, other.ID, "Beta")

	members, err := f.svc.ListMembers(context.Background(), teamB.ID)
	if err != nil {
		t.Fatalf("failed to list members: %v", err)
	}

	if err := f.svc.RemoveMember(context.Background(), teamA.ID, members[0].ID); err != domain.ErrMemberNotFound {
		t.Fatalf("expected ErrMemberNotFound across teams, got %v", err)
	}
}
