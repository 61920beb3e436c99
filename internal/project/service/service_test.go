package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/teamlane/teamlane/internal/auth/domain"
	authrepository "github.com/teamlane/teamlane/internal/auth/repository"
	"github.com/teamlane/teamlane/internal/clock"
	notificationdomain "github.com/teamlane/teamlane/internal/notification/domain"
	notificationrepository "github.com/teamlane/teamlane/internal/notification/repository"
	notificationservice "github.com/teamlane/teamlane/internal/notification/service"
	"github.com/teamlane/teamlane/internal/project/domain"
	"github.com/teamlane/teamlane/internal/project/repository"
	teamdomain "github.com/teamlane/teamlane/internal/team/domain"
	teamrepository "github.com/teamlane/teamlane/internal/team/repository"
	"github.com/teamlane/teamlane/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc      domain.Service
	notifier notificationdomain.Service
	teams    teamdomain.Repository
	users    authdomain.Repository
	db       *gorm.DB
	node     *snowflake.Node
	teamID   snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(
		&authdomain.User{},
		&teamdomain.Team{},
		&teamdomain.TeamMember{},
		&domain.Project{},
		&domain.ProjectMember{},
		&domain.Task{},
		&domain.Comment{},
		&notificationdomain.Notification{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	clk := &clock.SystemClock{}
	users, _ := authrepository.New(dbConn)
	teams := teamrepository.NewRepository(dbConn)
	notifyRepo := notificationrepository.NewRepository(dbConn)
	notifier := notificationservice.NewService(zap.NewNop(), notifyRepo, node, clk)

	repo := repository.NewRepository(dbConn)
	svc := NewService(zap.NewNop(), dbConn, repo, teams, users, notifier, node, clk)

	return &fixture{
		svc:      svc,
		notifier: notifier,
		teams:    teams,
		users:    users,
		db:       dbConn,
		node:     node,
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

func (f *fixture) createTeamWith(t *testing.T, members map[snowflake.ID]string) snowflake.ID {
	t.Helper()
	teamID := f.node.Generate()
	if err := f.db.Exec(
		`INSERT INTO teams (id, name, slug, description, created_by, created_at, updated_at)
		 VALUES (?, 'Acme', 'acme', '', ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		teamID, teamID,
	).Error; err != nil {
		t.Fatalf("failed to create team: %v", err)
	}
	for userID, role := range members {
		member := teamdomain.TeamMember{
			ID:     f.node.Generate(),
			TeamID: teamID,
			UserID: userID,
			Role:   role,
		}
		if err := f.db.Create(&member).Error; err != nil {
			t.Fatalf("failed to add team member: %v", err)
		}
	}
	f.teamID = teamID
	return teamID
}

func TestCreateProjectCreatorHasAccess(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com", "Owner")
	teamID := f.createTeamWith(t, map[snowflake.ID]string{owner.ID: teamdomain.RoleOwner})

	project, err := f.svc.Create(context.Background(), owner.ID, teamID.String(), domain.CreateProjectRequest{Name: "Launch"})
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	detail, err := f.svc.Get(context.Background(), owner.ID, project.ID)
	if err != nil {
		t.Fatalf("expected creator access, got %v", err)
	}
	if len(detail.Members) != 1 {
		t.Fatalf("expected creator as project member, got %d members", len(detail.Members))
	}
}

func TestProjectAccessDeniedForNonMember(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com", "Owner")
	outsider := f.createUser(t, "outsider@example.com", "Outsider")
	teamID := f.createTeamWith(t, map[snowflake.ID]string{
		owner.ID:    teamdomain.RoleOwner,
		outsider.ID: teamdomain.RoleMember,
	})

	project, err := f.svc.Create(context.Background(), owner.ID, teamID.String(), domain.CreateProjectRequest{Name: "Launch"})
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	// Team membership alone is not enough, access needs project membership.
	_, err = f.svc.Get(context.Background(), outsider.ID, project.ID)
	if err != domain.ErrProjectAccessDenied {
		t.Fatalf("expected ErrProjectAccessDenied, got %v", err)
	}

	if err := f.svc.AddMember(context.Background(), owner.ID, project.ID, outsider.ID.String()); err != nil {
		t.Fatalf("failed to add project member: %v", err)
	}

	if _, err := f.svc.Get(context.Background(), outsider.ID, project.ID); err != nil {
		t.Fatalf("expected access after membership, got %v", err)
	}
}

func TestAddProjectMemberRequiresTeamMembership(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com", "Owner")
	stranger := f.createUser(t, "stranger@example.com", "Stranger")
	teamID := f.createTeamWith(t, map[snowflake.ID]string{owner.ID: teamdomain.RoleOwner})

	project, err := f.svc.Create(context.Background(), owner.ID, teamID.String(), domain.CreateProjectRequest{Name: "Launch"})
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	err = f.svc.AddMember(context.Background(), owner.ID, project.ID, stranger.ID.String())
	if err != domain.ErrNotTeamMember {
		t.Fatalf("expected ErrNotTeamMember, got %v", err)
	}
}

func TestTaskAssignmentNotification(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com", "Owner")
	bob := f.createUser(t, "bob@example.com", "Bob")
	teamID := f.createTeamWith(t, map[snowflake.ID]string{
		owner.ID: teamdomain.RoleOwner,
		bob.ID:   teamdomain.RoleMember,
	})

	project, err := f.svc.Create(context.Background(), owner.ID, teamID.String(), domain.CreateProjectRequest{Name: "Launch"})
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	assignee := bob.ID.String()
	task, err := f.svc.CreateTask(context.Background(), owner.ID, project.ID, domain.CreateTaskRequest{
		Title:      "Write docs",
		AssigneeID: &assignee,
	})
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	if task.Status != domain.TaskTodo {
		t.Fatalf("expected TODO status, got %s", task.Status)
	}

	result, err := f.notifier.ListByUser(context.Background(), bob.ID)
	if err != nil {
		t.Fatalf("failed to list notifications: %v", err)
	}
	if len(result.Notifications) != 1 || result.Notifications[0].Type != notificationdomain.TypeTaskAssigned {
		t.Fatalf("expected task_assigned notification for assignee")
	}
}

func TestTaskAssigneeMustBeTeamMember(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com", "Owner")
	stranger := f.createUser(t, "stranger@example.com", "Stranger")
	teamID := f.createTeamWith(t, map[snowflake.ID]string{owner.ID: teamdomain.RoleOwner})

	project, err := f.svc.Create(context.Background(), owner.ID, teamID.String(), domain.CreateProjectRequest{Name: "Launch"})
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	assignee := stranger.ID.String()
	_, err = f.svc.CreateTask(context.Background(), owner.ID, project.ID, domain.CreateTaskRequest{
		Title:      "Write docs",
		AssigneeID: &assignee,
	})
	if err != domain.ErrNotTeamMember {
		t.Fatalf("expected ErrNotTeamMember, got %v", err)
	}
}

func TestCommentNotifiesParticipantsExceptAuthor(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com", "Owner")
	bob := f.createUser(t, "bob@example.com", "Bob")
	teamID := f.createTeamWith(t, map[snowflake.ID]string{
		owner.ID: teamdomain.RoleOwner,
		bob.ID:   teamdomain.RoleMember,
	})

	project, err := f.svc.Create(context.Background(), owner.ID, teamID.String(), domain.CreateProjectRequest{Name: "Launch"})
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	if err := f.svc.AddMember(context.Background(), owner.ID, project.ID, bob.ID.String()); err != nil {
		t.Fatalf("failed to add project member: %v", err)
	}

	assignee := bob.ID.String()
	task, err := f.svc.CreateTask(context.Background(), owner.ID, project.ID, domain.CreateTaskRequest{
		Title:      "Write docs",
		AssigneeID: &assignee,
	})
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	if _, err := f.svc.CreateComment(context.Background(), bob.ID, task.ID, "On it"); err != nil {
		t.Fatalf("failed to comment: %v", err)
	}

	ownerResult, err := f.notifier.ListByUser(context.Background(), owner.ID)
	if err != nil {
		t.Fatalf("failed to list notifications: %v", err)
	}
	if len(ownerResult.Notifications) != 1 || ownerResult.Notifications[0].Type != notificationdomain.TypeComment {
		t.Fatalf("expected comment notification for task creator")
	}

	// Bob already has the assignment notification, but the comment he
	// wrote himself must not add another.
	bobResult, err := f.notifier.ListByUser(context.Background(), bob.ID)
	if err != nil {
		t.Fatalf("failed to list notifications: %v", err)
	}
	for _, n := range bobResult.Notifications {
		if n.Type == notificationdomain.TypeComment {
			t.Fatalf("author must not be notified about own comment")
		}
	}
}

func TestDeleteCommentAuthorOnly(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com", "Owner")
	bob := f.createUser(t, "bob@example.com", "Bob")
	teamID := f.createTeamWith(t, map[snowflake.ID]string{
		owner.ID: teamdomain.RoleOwner,
		bob.ID:   teamdomain.RoleMember,
	})

	project, err := f.svc.Create(context.Background(), owner.ID, teamID.String(), domain.CreateProjectRequest{Name: "Launch"})
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	if err := f.svc.AddMember(context.Background(), owner.ID, project.ID, bob.ID.String()); err != nil {
		t.Fatalf("failed to add project member: %v", err)
	}
	task, err := f.svc.CreateTask(context.Background(), owner.ID, project.ID, domain.CreateTaskRequest{Title: "Write docs"})
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	comment, err := f.svc.CreateComment(context.Background(), bob.ID, task.ID, "On it")
	if err != nil {
		t.Fatalf("failed to comment: %v", err)
	}

	if err := f.svc.DeleteComment(context.Background(), owner.ID, comment.ID); err != domain.ErrNotCommentAuthor {
		t.Fatalf("expected ErrNotCommentAuthor, got %v", err)
	}

	if err := f.svc.DeleteComment(context.Background(), bob.ID, comment.ID); err != nil {
		t.Fatalf("failed to delete own comment: %v", err)
	}
	if err := f.svc.DeleteComment(context.Background(), bob.ID, comment.ID); err != domain.ErrCommentNotFound {
		t.Fatalf("expected ErrCommentNotFound after delete, got %v", err)
	}
}

func TestUpdateTaskStatusValidation(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com", "Owner")
	teamID := f.createTeamWith(t, map[snowflake.ID]string{owner.ID: teamdomain.RoleOwner})

	project, err := f.svc.Create(context.Background(), owner.ID, teamID.String(), domain.CreateProjectRequest{Name: "Launch"})
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	task, err := f.svc.CreateTask(context.Background(), owner.ID, project.ID, domain.CreateTaskRequest{Title: "Write docs"})
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	bad := "BLOCKED"
	if _, err := f.svc.UpdateTask(context.Background(), owner.ID, task.ID, domain.UpdateTaskRequest{Status: &bad}); err != domain.ErrInvalidStatus {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}

	done := domain.TaskDone
	updated, err := f.svc.UpdateTask(context.Background(), owner.ID, task.ID, domain.UpdateTaskRequest{Status: &done})
	if err != nil {
		t.Fatalf("failed to update task: %v", err)
	}
	if updated.Status != domain.TaskDone {
		t.Fatalf("expected DONE, got %s", updated.Status)
	}
}
