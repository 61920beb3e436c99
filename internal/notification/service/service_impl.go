package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/teamlane/teamlane/internal/clock"
	"github.com/teamlane/teamlane/internal/notification/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type service struct {
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(log *zap.Logger, repo domain.Repository, genID *snowflake.Node, clk clock.Clock) domain.Service {
	return &service{
		log:   log.Named("notification.service"),
		repo:  repo,
		genID: genID,
		clock: clk,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Notification, error) {
	return s.create(ctx, s.repo, req)
}

// CreateTx writes the notification inside an existing transaction so it
// commits or rolls back together with the event that produced it.
func (s *service) CreateTx(ctx context.Context, tx *gorm.DB, req domain.CreateRequest) (*domain.Notification, error) {
	return s.create(ctx, s.repo.WithTx(tx), req)
}

func (s *service) create(ctx context.Context, repo domain.Repository, req domain.CreateRequest) (*domain.Notification, error) {
	if req.UserID == 0 {
		return nil, domain.ErrInvalidUser
	}
	if strings.TrimSpace(req.Type) == "" {
		return nil, domain.ErrInvalidType
	}

	notification := &domain.Notification{
		ID:          s.genID.Generate(),
		UserID:      req.UserID,
		Type:        req.Type,
		Message:     strings.TrimSpace(req.Message),
		RelatedID:   req.RelatedID,
		RelatedType: req.RelatedType,
		CreatedAt:   s.clock.Now(),
	}
	if err := repo.Create(ctx, notification); err != nil {
		return nil, err
	}
	return notification, nil
}

func (s *service) ListByUser(ctx context.Context, userID snowflake.ID) (*domain.ListResult, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &domain.ListResult{
		Notifications: items,
		UnreadCount:   unread,
	}, nil
}

func (s *service) MarkRead(ctx context.Context, userID snowflake.ID, notificationID string, read bool) (*domain.Notification, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}
	id, err := snowflake.ParseString(strings.TrimSpace(notificationID))
	if err != nil || id == 0 {
		return nil, domain.ErrNotificationNotFound
	}

	// Ownership filter happens in the lookup, so another user's
	// notification is indistinguishable from a missing one.
	if _, err := s.repo.FindByIDForUser(ctx, id, userID); err != nil {
		return nil, err
	}

	if err := s.repo.SetRead(ctx, id, read); err != nil {
		return nil, err
	}

	return s.repo.FindByIDForUser(ctx, id, userID)
}
