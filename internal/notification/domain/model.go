// Package domain contains persistence models for the notification service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	TypeTeamInvitation         = "team_invitation"
	TypeTeamInvitationAccepted = "team_invitation_accepted"
	TypeTeamInvitationDeclined = "team_invitation_declined"
	TypeTaskAssigned           = "task_assigned"
	TypeComment                = "comment"
)

// Notification is a message delivered to a single user.
type Notification struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	UserID      snowflake.ID  `gorm:"not null;index" json:"user_id"`
	Type        string        `gorm:"type:text;not null" json:"type"`
	Message     string        `gorm:"type:text;not null" json:"message"`
	Read        bool          `gorm:"not null;default:false" json:"read"`
	RelatedID   *snowflake.ID `gorm:"column:related_id" json:"related_id,omitempty"`
	RelatedType *string       `gorm:"column:related_type;type:text" json:"related_type,omitempty"`
	CreatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Notification) TableName() string { return "notifications" }
