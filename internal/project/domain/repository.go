package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ProjectMemberRow struct {
	UserID    snowflake.ID
	Name      string
	Email     string
	CreatedAt time.Time
}

type CommentRow struct {
	ID         snowflake.ID
	TaskID     snowflake.ID
	UserID     snowflake.ID
	AuthorName string
	Content    string
	CreatedAt  time.Time
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateProject(ctx context.Context, project Project) error
	GetProject(ctx context.Context, projectID snowflake.ID) (*Project, error)
	UpdateProject(ctx context.Context, projectID snowflake.ID, fields map[string]any) error
	DeleteProject(ctx context.Context, projectID snowflake.ID) error
	ListProjectsByTeam(ctx context.Context, teamID snowflake.ID) ([]Project, error)

	AddProjectMember(ctx context.Context, member ProjectMember) error
	IsProjectMember(ctx context.Context, projectID snowflake.ID, userID snowflake.ID) (bool, error)
	ListProjectMembers(ctx context.Context, projectID snowflake.ID) ([]ProjectMemberRow, error)

	CreateTask(ctx context.Context, task Task) error
	GetTask(ctx context.Context, taskID snowflake.ID) (*Task, error)
	UpdateTask(ctx context.Context, taskID snowflake.ID, fields map[string]any) error
	DeleteTask(ctx context.Context, taskID snowflake.ID) error
	ListTasksByProject(ctx context.Context, projectID snowflake.ID) ([]Task, error)

	CreateComment(ctx context.Context, comment Comment) error
	GetComment(ctx context.Context, commentID snowflake.ID) (*Comment, error)
	DeleteComment(ctx context.Context, commentID snowflake.ID) error
	ListCommentsByTask(ctx context.Context, taskID snowflake.ID) ([]CommentRow, error)
}
