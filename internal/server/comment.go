package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/teamlane/teamlane/internal/authorization"
	projectdomain "github.com/teamlane/teamlane/internal/project/domain"
)

type createCommentRequest struct {
	Content string `json:"content"`
}

func (s *Server) CreateComment(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	taskID := strings.TrimSpace(c.Param("taskID"))
	if taskID == "" {
		AbortWithError(c, projectdomain.ErrTaskNotFound)
		return
	}
	if !s.authorizeTask(c, taskID, authorization.ObjectComment, authorization.ActionCommentCreate) {
		return
	}

	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	comment, err := s.projectSvc.CreateComment(c.Request.Context(), userID, taskID, strings.TrimSpace(req.Content))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}

func (s *Server) ListComments(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	taskID := strings.TrimSpace(c.Param("taskID"))
	if taskID == "" {
		AbortWithError(c, projectdomain.ErrTaskNotFound)
		return
	}
	if !s.authorizeTask(c, taskID, authorization.ObjectComment, authorization.ActionCommentView) {
		return
	}

	comments, err := s.projectSvc.ListComments(c.Request.Context(), userID, taskID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": comments})
}

// DeleteComment is author-scoped. Authorship is checked by the service,
// not by team role.
func (s *Server) DeleteComment(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	commentID := strings.TrimSpace(c.Param("commentID"))
	if commentID == "" {
		AbortWithError(c, projectdomain.ErrCommentNotFound)
		return
	}

	if err := s.projectSvc.DeleteComment(c.Request.Context(), userID, commentID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
