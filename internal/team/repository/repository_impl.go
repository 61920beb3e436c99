package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/teamlane/teamlane/internal/team/domain"
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

func (r *repository) CreateTeam(ctx context.Context, team domain.Team) error {
	return r.db.WithContext(ctx).Create(&team).Error
}

func (r *repository) GetTeam(ctx context.Context, teamID snowflake.ID) (*domain.Team, error) {
	var team domain.Team
	err := r.db.WithContext(ctx).First(&team, "id = ?", teamID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTeamNotFound
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *repository) UpdateTeam(ctx context.Context, teamID snowflake.ID, fields map[string]any) error {
	tx := r.db.WithContext(ctx).Model(&domain.Team{}).Where("id = ?", teamID).Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrTeamNotFound
	}
	return nil
}

func (r *repository) DeleteTeam(ctx context.Context, teamID snowflake.ID) error {
	tx := r.db.WithContext(ctx).Where("id = ?", teamID).Delete(&domain.Team{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrTeamNotFound
	}
	return nil
}

func (r *repository) ListTeamsByUser(ctx context.Context, userID snowflake.ID) ([]domain.TeamRow, error) {
	var rows []domain.TeamRow
	err := r.db.WithContext(ctx).Raw(
		`SELECT t.id, t.name, t.slug, m.role, t.created_at,
		        (SELECT COUNT(*) FROM team_members c WHERE c.team_id = t.id) AS member_count
		 FROM teams t
		 JOIN team_members m ON m.team_id = t.id
		 WHERE m.user_id = ?
		 ORDER BY t.created_at ASC`,
		userID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) AddMember(ctx context.Context, member domain.TeamMember) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO team_members (id, team_id, user_id, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		member.ID,
		member.TeamID,
		member.UserID,
		member.Role,
		member.CreatedAt,
		member.UpdatedAt,
	).Error
}

func (r *repository) GetMember(ctx context.Context, teamID snowflake.ID, userID snowflake.ID) (*domain.TeamMember, error) {
	var member domain.TeamMember
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repository) GetMemberByID(ctx context.Context, memberID snowflake.ID) (*domain.TeamMember, error) {
	var member domain.TeamMember
	err := r.db.WithContext(ctx).First(&member, "id = ?", memberID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repository) ListMembers(ctx context.Context, teamID snowflake.ID) ([]domain.MemberRow, error) {
	var rows []domain.MemberRow
	err := r.db.WithContext(ctx).Raw(
		`SELECT m.id, m.user_id, u.name, u.email, m.role, m.created_at
		 FROM team_members m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.team_id = ?
		 ORDER BY m.created_at ASC`,
		teamID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CountMembers(ctx context.Context, teamID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.TeamMember{}).
		Where("team_id = ?", teamID).
		Count(&count).Error
	return count, err
}

func (r *repository) UpdateMemberRole(ctx context.Context, memberID snowflake.ID, role string, updatedAt time.Time) error {
	tx := r.db.WithContext(ctx).Model(&domain.TeamMember{}).
		Where("id = ?", memberID).
		Updates(map[string]any{"role": role, "updated_at": updatedAt})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *repository) RemoveMember(ctx context.Context, memberID snowflake.ID) error {
	tx := r.db.WithContext(ctx).Where("id = ?", memberID).Delete(&domain.TeamMember{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *repository) CreateInvitation(ctx context.Context, invite domain.TeamInvitation) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO team_invitations (id, team_id, user_id, invited_by, role, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		invite.ID,
		invite.TeamID,
		invite.UserID,
		invite.InvitedBy,
		invite.Role,
		invite.Status,
		invite.CreatedAt,
		invite.UpdatedAt,
	).Error
}

func (r *repository) GetPendingInvitation(ctx context.Context, id snowflake.ID, userID snowflake.ID) (*domain.TeamInvitation, error) {
	var invite domain.TeamInvitation
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, domain.InvitationPending).
		First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInvitationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

func (r *repository) FindPendingInvitation(ctx context.Context, teamID snowflake.ID, userID snowflake.ID) (*domain.TeamInvitation, error) {
	var invite domain.TeamInvitation
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ? AND status = ?", teamID, userID, domain.InvitationPending).
		First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInvitationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

func (r *repository) UpdateInvitationStatus(ctx context.Context, id snowflake.ID, status string, updatedAt time.Time) error {
	tx := r.db.WithContext(ctx).Model(&domain.TeamInvitation{}).
		Where("id = ? AND status = ?", id, domain.InvitationPending).
		Updates(map[string]any{"status": status, "updated_at": updatedAt})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrInvitationNotFound
	}
	return nil
}

func (r *repository) ListPendingInvitationsByUser(ctx context.Context, userID snowflake.ID) ([]domain.PendingInvitationRow, error) {
	var rows []domain.PendingInvitationRow
	err := r.db.WithContext(ctx).Raw(
		`SELECT i.id, i.team_id, t.name AS team_name, u.name AS inviter_name, i.role, i.created_at
		 FROM team_invitations i
		 JOIN teams t ON t.id = i.team_id
		 JOIN users u ON u.id = i.invited_by
		 WHERE i.user_id = ? AND i.status = ?
		 ORDER BY i.created_at DESC`,
		userID,
		domain.InvitationPending,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CountPendingInvitations(ctx context.Context, teamID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.TeamInvitation{}).
		Where("team_id = ? AND status = ?", teamID, domain.InvitationPending).
		Count(&count).Error
	return count, err
}
