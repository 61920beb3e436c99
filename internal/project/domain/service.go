package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidUser          = errors.New("invalid_user")
	ErrInvalidProject       = errors.New("invalid_project")
	ErrInvalidName          = errors.New("invalid_name")
	ErrInvalidTitle         = errors.New("invalid_title")
	ErrInvalidStatus        = errors.New("invalid_status")
	ErrInvalidPriority      = errors.New("invalid_priority")
	ErrInvalidContent       = errors.New("invalid_content")
	ErrProjectNotFound      = errors.New("project_not_found")
	ErrTaskNotFound         = errors.New("task_not_found")
	ErrCommentNotFound      = errors.New("comment_not_found")
	ErrNotCommentAuthor     = errors.New("not_comment_author")
	ErrProjectAccessDenied  = errors.New("project_access_denied")
	ErrNotTeamMember        = errors.New("assignee_not_team_member")
	ErrAlreadyProjectMember = errors.New("already_project_member")
)

type Service interface {
	Create(ctx context.Context, userID snowflake.ID, teamID string, req CreateProjectRequest) (*ProjectResponse, error)
	ListByTeam(ctx context.Context, teamID string) ([]ProjectResponse, error)
	Get(ctx context.Context, userID snowflake.ID, projectID string) (*ProjectDetail, error)
	Update(ctx context.Context, userID snowflake.ID, projectID string, req UpdateProjectRequest) (*ProjectResponse, error)
	Delete(ctx context.Context, userID snowflake.ID, projectID string) error
	AddMember(ctx context.Context, userID snowflake.ID, projectID string, memberUserID string) error

	TeamIDForProject(ctx context.Context, projectID string) (string, error)
	TeamIDForTask(ctx context.Context, taskID string) (string, error)

	CreateTask(ctx context.Context, userID snowflake.ID, projectID string, req CreateTaskRequest) (*TaskResponse, error)
	ListTasks(ctx context.Context, userID snowflake.ID, projectID string) ([]TaskResponse, error)
	GetTask(ctx context.Context, userID snowflake.ID, taskID string) (*TaskResponse, error)
	UpdateTask(ctx context.Context, userID snowflake.ID, taskID string, req UpdateTaskRequest) (*TaskResponse, error)
	DeleteTask(ctx context.Context, userID snowflake.ID, taskID string) error

	CreateComment(ctx context.Context, userID snowflake.ID, taskID string, content string) (*CommentResponse, error)
	ListComments(ctx context.Context, userID snowflake.ID, taskID string) ([]CommentResponse, error)
	DeleteComment(ctx context.Context, userID snowflake.ID, commentID string) error
}

type CreateProjectRequest struct {
	Name        string
	Description string
}

type UpdateProjectRequest struct {
	Name        *string
	Description *string
	Status      *string
}

type CreateTaskRequest struct {
	Title       string
	Description string
	Priority    string
	AssigneeID  *string
	DueDate     *time.Time
}

type UpdateTaskRequest struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	AssigneeID  *string
	DueDate     *time.Time
}

type ProjectResponse struct {
	ID          string    `json:"id"`
	TeamID      string    `json:"team_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type ProjectMemberItem struct {
	UserID  string    `json:"user_id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	AddedAt time.Time `json:"added_at"`
}

type ProjectDetail struct {
	ProjectResponse
	Members []ProjectMemberItem `json:"members"`
}

type TaskResponse struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	AssigneeID  *string    `json:"assignee_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

type CommentResponse struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	UserID     string    `json:"user_id"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}
