package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/teamlane/teamlane/internal/auth/domain"
	"github.com/teamlane/teamlane/internal/clock"
	notificationdomain "github.com/teamlane/teamlane/internal/notification/domain"
	"github.com/teamlane/teamlane/internal/project/domain"
	teamdomain "github.com/teamlane/teamlane/internal/team/domain"
	"github.com/teamlane/teamlane/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type service struct {
	log      *zap.Logger
	db       *gorm.DB
	repo     domain.Repository
	teams    teamdomain.Repository
	users    authdomain.Repository
	notifier notificationdomain.Service
	genID    *snowflake.Node
	clock    clock.Clock
}

func NewService(
	log *zap.Logger,
	dbConn *gorm.DB,
	repo domain.Repository,
	teams teamdomain.Repository,
	users authdomain.Repository,
	notifier notificationdomain.Service,
	genID *snowflake.Node,
	clk clock.Clock,
) domain.Service {
	return &service{
		log:      log.Named("project.service"),
		db:       dbConn,
		repo:     repo,
		teams:    teams,
		users:    users,
		notifier: notifier,
		genID:    genID,
		clock:    clk,
	}
}

func (s *service) Create(ctx context.Context, userID snowflake.ID, teamID string, req domain.CreateProjectRequest) (*domain.ProjectResponse, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}
	tid, err := snowflake.ParseString(strings.TrimSpace(teamID))
	if err != nil || tid == 0 {
		return nil, domain.ErrInvalidProject
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := s.clock.Now()
	project := domain.Project{
		ID:          s.genID.Generate(),
		TeamID:      tid,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Status:      domain.ProjectActive,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateProject(ctx, project); err != nil {
			return err
		}
		return repo.AddProjectMember(ctx, domain.ProjectMember{
			ID:        s.genID.Generate(),
			ProjectID: project.ID,
			UserID:    userID,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	return projectResponse(&project), nil
}

func (s *service) ListByTeam(ctx context.Context, teamID string) ([]domain.ProjectResponse, error) {
	tid, err := snowflake.ParseString(strings.TrimSpace(teamID))
	if err != nil || tid == 0 {
		return nil, domain.ErrInvalidProject
	}

	projects, err := s.repo.ListProjectsByTeam(ctx, tid)
	if err != nil {
		return nil, err
	}

	items := make([]domain.ProjectResponse, 0, len(projects))
	for i := range projects {
		items = append(items, *projectResponse(&projects[i]))
	}
	return items, nil
}

func (s *service) Get(ctx context.Context, userID snowflake.ID, projectID string) (*domain.ProjectDetail, error) {
	project, err := s.accessibleProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListProjectMembers(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	members := make([]domain.ProjectMemberItem, 0, len(rows))
	for _, row := range rows {
		members = append(members, domain.ProjectMemberItem{
			UserID:  row.UserID.String(),
			Name:    row.Name,
			Email:   row.Email,
			AddedAt: row.CreatedAt,
		})
	}

	return &domain.ProjectDetail{
		ProjectResponse: *projectResponse(project),
		Members:         members,
	}, nil
}

func (s *service) Update(ctx context.Context, userID snowflake.ID, projectID string, req domain.UpdateProjectRequest) (*domain.ProjectResponse, error) {
	project, err := s.accessibleProject(ctx, userID, projectID)
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
	if req.Status != nil {
		status := strings.ToUpper(strings.TrimSpace(*req.Status))
		if status != domain.ProjectActive && status != domain.ProjectArchived {
			return nil, domain.ErrInvalidStatus
		}
		fields["status"] = status
	}

	if err := s.repo.UpdateProject(ctx, project.ID, fields); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetProject(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	return projectResponse(updated), nil
}

func (s *service) Delete(ctx context.Context, userID snowflake.ID, projectID string) error {
	project, err := s.accessibleProject(ctx, userID, projectID)
	if err != nil {
		return err
	}
	return s.repo.DeleteProject(ctx, project.ID)
}

func (s *service) AddMember(ctx context.Context, userID snowflake.ID, projectID string, memberUserID string) error {
	project, err := s.accessibleProject(ctx, userID, projectID)
	if err != nil {
		return err
	}

	uid, err := snowflake.ParseString(strings.TrimSpace(memberUserID))
	if err != nil || uid == 0 {
		return domain.ErrInvalidUser
	}

	// Project members must already belong to the owning team.
	if _, err := s.teams.GetMember(ctx, project.TeamID, uid); err != nil {
		if err == teamdomain.ErrMemberNotFound {
			return domain.ErrNotTeamMember
		}
		return err
	}

	err = s.repo.AddProjectMember(ctx, domain.ProjectMember{
		ID:        s.genID.Generate(),
		ProjectID: project.ID,
		UserID:    uid,
		CreatedAt: s.clock.Now(),
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrAlreadyProjectMember
		}
		return err
	}
	return nil
}

func (s *service) TeamIDForProject(ctx context.Context, projectID string) (string, error) {
	pid, err := snowflake.ParseString(strings.TrimSpace(projectID))
	if err != nil || pid == 0 {
		return "", domain.ErrProjectNotFound
	}
	project, err := s.repo.GetProject(ctx, pid)
	if err != nil {
		return "", err
	}
	return project.TeamID.String(), nil
}

func (s *service) TeamIDForTask(ctx context.Context, taskID string) (string, error) {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return "", err
	}
	project, err := s.repo.GetProject(ctx, task.ProjectID)
	if err != nil {
		return "", err
	}
	return project.TeamID.String(), nil
}

func (s *service) CreateTask(ctx context.Context, userID snowflake.ID, projectID string, req domain.CreateTaskRequest) (*domain.TaskResponse, error) {
	project, err := s.accessibleProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}

	priority := strings.ToUpper(strings.TrimSpace(req.Priority))
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !validPriority(priority) {
		return nil, domain.ErrInvalidPriority
	}

	var assigneeID *snowflake.ID
	if req.AssigneeID != nil {
		id, err := s.resolveAssignee(ctx, project.TeamID, *req.AssigneeID)
		if err != nil {
			return nil, err
		}
		assigneeID = id
	}

	now := s.clock.Now()
	task := domain.Task{
		ID:          s.genID.Generate(),
		ProjectID:   project.ID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Status:      domain.TaskTodo,
		Priority:    priority,
		AssigneeID:  assigneeID,
		DueDate:     req.DueDate,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateTask(ctx, task); err != nil {
			return err
		}
		if assigneeID != nil && *assigneeID != userID {
			return s.notifyAssigned(ctx, tx, *assigneeID, task)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return taskResponse(&task), nil
}

func (s *service) ListTasks(ctx context.Context, userID snowflake.ID, projectID string) ([]domain.TaskResponse, error) {
	project, err := s.accessibleProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.repo.ListTasksByProject(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	items := make([]domain.TaskResponse, 0, len(tasks))
	for i := range tasks {
		items = append(items, *taskResponse(&tasks[i]))
	}
	return items, nil
}

func (s *service) GetTask(ctx context.Context, userID snowflake.ID, taskID string) (*domain.TaskResponse, error) {
	task, err := s.accessibleTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	return taskResponse(task), nil
}

func (s *service) UpdateTask(ctx context.Context, userID snowflake.ID, taskID string, req domain.UpdateTaskRequest) (*domain.TaskResponse, error) {
	task, err := s.accessibleTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	project, err := s.repo.GetProject(ctx, task.ProjectID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{"updated_at": s.clock.Now()}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, domain.ErrInvalidTitle
		}
		fields["title"] = title
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		status := strings.ToUpper(strings.TrimSpace(*req.Status))
		if status != domain.TaskTodo && status != domain.TaskInProgress && status != domain.TaskDone {
			return nil, domain.ErrInvalidStatus
		}
		fields["status"] = status
	}
	if req.Priority != nil {
		priority := strings.ToUpper(strings.TrimSpace(*req.Priority))
		if !validPriority(priority) {
			return nil, domain.ErrInvalidPriority
		}
		fields["priority"] = priority
	}

	var newAssignee *snowflake.ID
	assigneeChanged := false
	if req.AssigneeID != nil {
		if strings.TrimSpace(*req.AssigneeID) == "" {
			fields["assignee_id"] = nil
			assigneeChanged = true
		} else {
			id, err := s.resolveAssignee(ctx, project.TeamID, *req.AssigneeID)
			if err != nil {
				return nil, err
			}
			if task.AssigneeID == nil || *task.AssigneeID != *id {
				assigneeChanged = true
			}
			newAssignee = id
			fields["assignee_id"] = *id
		}
	}
	if req.DueDate != nil {
		fields["due_date"] = *req.DueDate
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateTask(ctx, task.ID, fields); err != nil {
			return err
		}
		if assigneeChanged && newAssignee != nil && *newAssignee != userID {
			return s.notifyAssigned(ctx, tx, *newAssignee, *task)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.GetTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	return taskResponse(updated), nil
}

func (s *service) DeleteTask(ctx context.Context, userID snowflake.ID, taskID string) error {
	task, err := s.accessibleTask(ctx, userID, taskID)
	if err != nil {
		return err
	}
	return s.repo.DeleteTask(ctx, task.ID)
}

func (s *service) CreateComment(ctx context.Context, userID snowflake.ID, taskID string, content string) (*domain.CommentResponse, error) {
	task, err := s.accessibleTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.ErrInvalidContent
	}

	author, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	comment := domain.Comment{
		ID:        s.genID.Generate(),
		TaskID:    task.ID,
		UserID:    userID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateComment(ctx, comment); err != nil {
			return err
		}

		// Task creator and assignee hear about new comments, except
		// when they wrote it themselves.
		recipients := map[snowflake.ID]struct{}{task.CreatedBy: {}}
		if task.AssigneeID != nil {
			recipients[*task.AssigneeID] = struct{}{}
		}
		delete(recipients, userID)

		relatedID := task.ID
		relatedType := "task"
		for recipient := range recipients {
			_, err := s.notifier.CreateTx(ctx, tx, notificationdomain.CreateRequest{
				UserID:      recipient,
				Type:        notificationdomain.TypeComment,
				Message:     fmt.Sprintf("%s commented on %s", author.Name, task.Title),
				RelatedID:   &relatedID,
				RelatedType: &relatedType,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &domain.CommentResponse{
		ID:         comment.ID.String(),
		TaskID:     comment.TaskID.String(),
		UserID:     comment.UserID.String(),
		AuthorName: author.Name,
		Content:    comment.Content,
		CreatedAt:  comment.CreatedAt,
	}, nil
}

func (s *service) ListComments(ctx context.Context, userID snowflake.ID, taskID string) ([]domain.CommentResponse, error) {
	task, err := s.accessibleTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListCommentsByTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	items := make([]domain.CommentResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.CommentResponse{
			ID:         row.ID.String(),
			TaskID:     row.TaskID.String(),
			UserID:     row.UserID.String(),
			AuthorName: row.AuthorName,
			Content:    row.Content,
			CreatedAt:  row.CreatedAt,
		})
	}
	return items, nil
}

func (s *service) DeleteComment(ctx context.Context, userID snowflake.ID, commentID string) error {
	if userID == 0 {
		return domain.ErrInvalidUser
	}
	cid, err := snowflake.ParseString(strings.TrimSpace(commentID))
	if err != nil || cid == 0 {
		return domain.ErrCommentNotFound
	}

	comment, err := s.repo.GetComment(ctx, cid)
	if err != nil {
		return err
	}
	if _, err := s.accessibleTask(ctx, userID, comment.TaskID.String()); err != nil {
		return err
	}
	if comment.UserID != userID {
		return domain.ErrNotCommentAuthor
	}
	return s.repo.DeleteComment(ctx, cid)
}

func (s *service) accessibleProject(ctx context.Context, userID snowflake.ID, projectID string) (*domain.Project, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}
	pid, err := snowflake.ParseString(strings.TrimSpace(projectID))
	if err != nil || pid == 0 {
		return nil, domain.ErrProjectNotFound
	}

	project, err := s.repo.GetProject(ctx, pid)
	if err != nil {
		return nil, err
	}

	if project.CreatedBy == userID {
		return project, nil
	}
	isMember, err := s.repo.IsProjectMember(ctx, pid, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, domain.ErrProjectAccessDenied
	}
	return project, nil
}

func (s *service) accessibleTask(ctx context.Context, userID snowflake.ID, taskID string) (*domain.Task, error) {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.accessibleProject(ctx, userID, task.ProjectID.String()); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *service) findTask(ctx context.Context, taskID string) (*domain.Task, error) {
	tid, err := snowflake.ParseString(strings.TrimSpace(taskID))
	if err != nil || tid == 0 {
		return nil, domain.ErrTaskNotFound
	}
	return s.repo.GetTask(ctx, tid)
}

func (s *service) resolveAssignee(ctx context.Context, teamID snowflake.ID, raw string) (*snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return nil, domain.ErrInvalidUser
	}
	if _, err := s.teams.GetMember(ctx, teamID, id); err != nil {
		if err == teamdomain.ErrMemberNotFound {
			return nil, domain.ErrNotTeamMember
		}
		return nil, err
	}
	return &id, nil
}

func (s *service) notifyAssigned(ctx context.Context, tx *gorm.DB, assignee snowflake.ID, task domain.Task) error {
	relatedID := task.ID
	relatedType := "task"
	_, err := s.notifier.CreateTx(ctx, tx, notificationdomain.CreateRequest{
		UserID:      assignee,
		Type:        notificationdomain.TypeTaskAssigned,
		Message:     fmt.Sprintf("You have been assigned to %s", task.Title),
		RelatedID:   &relatedID,
		RelatedType: &relatedType,
	})
	return err
}

func projectResponse(project *domain.Project) *domain.ProjectResponse {
	return &domain.ProjectResponse{
		ID:          project.ID.String(),
		TeamID:      project.TeamID.String(),
		Name:        project.Name,
		Description: project.Description,
		Status:      project.Status,
		CreatedBy:   project.CreatedBy.String(),
		CreatedAt:   project.CreatedAt,
	}
}

func taskResponse(task *domain.Task) *domain.TaskResponse {
	resp := &domain.TaskResponse{
		ID:          task.ID.String(),
		ProjectID:   task.ProjectID.String(),
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		DueDate:     task.DueDate,
		CreatedBy:   task.CreatedBy.String(),
		CreatedAt:   task.CreatedAt,
	}
	if task.AssigneeID != nil {
		id := task.AssigneeID.String()
		resp.AssigneeID = &id
	}
	return resp
}

func validPriority(priority string) bool {
	switch priority {
	case domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh:
		return true
	}
	return false
}
