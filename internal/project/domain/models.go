// Package domain contains persistence models for the project service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	ProjectActive   = "ACTIVE"
	ProjectArchived = "ARCHIVED"
)

const (
	TaskTodo       = "TODO"
	TaskInProgress = "IN_PROGRESS"
	TaskDone       = "DONE"
)

const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
)

// Project groups tasks within a team.
type Project struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	TeamID      snowflake.ID `gorm:"not null;index" json:"team_id"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	Status      string       `gorm:"type:text;not null" json:"status"`
	CreatedBy   snowflake.ID `gorm:"column:created_by;not null" json:"created_by"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Project) TableName() string { return "projects" }

// ProjectMember grants a team member access to a project.
type ProjectMember struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	ProjectID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_project_user,priority:1" json:"project_id"`
	UserID    snowflake.ID `gorm:"not null;index;uniqueIndex:ux_project_user,priority:2" json:"user_id"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (ProjectMember) TableName() string { return "project_members" }

// Task is a unit of work inside a project.
type Task struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	ProjectID   snowflake.ID  `gorm:"not null;index" json:"project_id"`
	Title       string        `gorm:"type:text;not null" json:"title"`
	Description string        `gorm:"type:text" json:"description"`
	Status      string        `gorm:"type:text;not null" json:"status"`
	Priority    string        `gorm:"type:text;not null" json:"priority"`
	AssigneeID  *snowflake.ID `gorm:"column:assignee_id;index" json:"assignee_id,omitempty"`
	DueDate     *time.Time    `gorm:"column:due_date" json:"due_date,omitempty"`
	CreatedBy   snowflake.ID  `gorm:"column:created_by;not null" json:"created_by"`
	CreatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Task) TableName() string { return "tasks" }

// Comment is a discussion entry on a task.
type Comment struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TaskID    snowflake.ID `gorm:"not null;index" json:"task_id"`
	UserID    snowflake.ID `gorm:"not null" json:"user_id"`
	Content   string       `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Comment) TableName() string { return "comments" }
