package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	notificationdomain "github.com/teamlane/teamlane/internal/notification/domain"
)

type markNotificationRequest struct {
	Read *bool `json:"read"`
}

func (s *Server) ListNotifications(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	result, err := s.notificationSvc.ListByUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) MarkNotificationRead(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	notificationID := strings.TrimSpace(c.Param("notificationID"))
	if notificationID == "" {
		AbortWithError(c, notificationdomain.ErrNotificationNotFound)
		return
	}

	read := true
	var req markNotificationRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.Read != nil {
		read = *req.Read
	}

	notification, err := s.notificationSvc.MarkRead(c.Request.Context(), userID, notificationID, read)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, notification)
}

func isNotificationValidationError(err error) bool {
	switch err {
	case notificationdomain.ErrInvalidUser,
		notificationdomain.ErrInvalidType:
		return true
	default:
		return false
	}
}
