package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/teamlane/teamlane/internal/project/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) CreateProject(ctx context.Context, project domain.Project) error {
	return r.db.WithContext(ctx).Create(&project).Error
}

func (r *repository) GetProject(ctx context.Context, projectID snowflake.ID) (*domain.Project, error) {
	var project domain.Project
	err := r.db.WithContext(ctx).First(&project, "id = ?", projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *repository) UpdateProject(ctx context.Context, projectID snowflake.ID, fields map[string]any) error {
	tx := r.db.WithContext(ctx).Model(&domain.Project{}).Where("id = ?", projectID).Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

func (r *repository) DeleteProject(ctx context.Context, projectID snowflake.ID) error {
	tx := r.db.WithContext(ctx).Where("id = ?", projectID).Delete(&domain.Project{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

func (r *repository) ListProjectsByTeam(ctx context.Context, teamID snowflake.ID) ([]domain.Project, error) {
	var projects []domain.Project
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at ASC").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *repository) AddProjectMember(ctx context.Context, member domain.ProjectMember) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO project_members (id, project_id, user_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		member.ID,
		member.ProjectID,
		member.UserID,
		member.CreatedAt,
	).Error
}

func (r *repository) IsProjectMember(ctx context.Context, projectID snowflake.ID, userID snowflake.ID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) ListProjectMembers(ctx context.Context, projectID snowflake.ID) ([]domain.ProjectMemberRow, error) {
	var rows []domain.ProjectMemberRow
	err := r.db.WithContext(ctx).Raw(
		`SELECT m.user_id, u.name, u.email, m.created_at
		 FROM project_members m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.project_id = ?
		 ORDER BY m.created_at ASC`,
		projectID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CreateTask(ctx context.Context, task domain.Task) error {
	return r.db.WithContext(ctx).Create(&task).Error
}

func (r *repository) GetTask(ctx context.Context, taskID snowflake.ID) (*domain.Task, error) {
	var task domain.Task
	err := r.db.WithContext(ctx).First(&task, "id = ?", taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *repository) UpdateTask(ctx context.Context, taskID snowflake.ID, fields map[string]any) error {
	tx := r.db.WithContext(ctx).Model(&domain.Task{}).Where("id = ?", taskID).Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *repository) DeleteTask(ctx context.Context, taskID snowflake.ID) error {
	tx := r.db.WithContext(ctx).Where("id = ?", taskID).Delete(&domain.Task{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *repository) ListTasksByProject(ctx context.Context, projectID snowflake.ID) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *repository) CreateComment(ctx context.Context, comment domain.Comment) error {
	return r.db.WithContext(ctx).Create(&comment).Error
}

func (r *repository) GetComment(ctx context.Context, commentID snowflake.ID) (*domain.Comment, error) {
	var comment domain.Comment
	err := r.db.WithContext(ctx).First(&comment, "id = ?", commentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrCommentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *repository) DeleteComment(ctx context.Context, commentID snowflake.ID) error {
	result := r.db.WithContext(ctx).Delete(&domain.Comment{}, "id = ?", commentID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrCommentNotFound
	}
	return nil
}

func (r *repository) ListCommentsByTask(ctx context.Context, taskID snowflake.ID) ([]domain.CommentRow, error) {
	var rows []domain.CommentRow
	err := r.db.WithContext(ctx).Raw(
		`SELECT c.id, c.task_id, c.user_id, u.name AS author_name, c.content, c.created_at
		 FROM comments c
		 JOIN users u ON u.id = c.user_id
		 WHERE c.task_id = ?
		 ORDER BY c.created_at ASC`,
		taskID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
