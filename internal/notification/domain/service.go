package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrInvalidUser          = errors.New("invalid_user")
	ErrInvalidType          = errors.New("invalid_type")
	ErrNotificationNotFound = errors.New("notification_not_found")
)

type CreateRequest struct {
	UserID      snowflake.ID
	Type        string
	Message     string
	RelatedID   *snowflake.ID
	RelatedType *string
}

type ListResult struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int64          `json:"unread_count"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Notification, error)
	CreateTx(ctx context.Context, tx *gorm.DB, req CreateRequest) (*Notification, error)
	ListByUser(ctx context.Context, userID snowflake.ID) (*ListResult, error)
	MarkRead(ctx context.Context, userID snowflake.ID, notificationID string, read bool) (*Notification, error)
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *Notification) error
	ListByUser(ctx context.Context, userID snowflake.ID) ([]Notification, error)
	CountUnread(ctx context.Context, userID snowflake.ID) (int64, error)
	FindByIDForUser(ctx context.Context, id snowflake.ID, userID snowflake.ID) (*Notification, error)
	SetRead(ctx context.Context, id snowflake.ID, read bool) error
}
