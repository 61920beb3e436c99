package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	teamdomain "github.com/teamlane/teamlane/internal/team/domain"
)

type inviteMemberRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (s *Server) InviteTeamMember(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	teamID := strings.TrimSpace(c.Param("teamID"))
	if teamID == "" {
		AbortWithError(c, teamdomain.ErrTeamNotFound)
		return
	}

	var req inviteMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	invitation, err := s.teamSvc.InviteMember(c.Request.Context(), userID, teamID, teamdomain.InviteRequest{
		Email: strings.TrimSpace(req.Email),
		Role:  strings.TrimSpace(req.Role),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, invitation)
}

func (s *Server) ListPendingInvitations(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	items, err := s.teamSvc.ListPendingInvitations(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) AcceptInvitation(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	invitationID := strings.TrimSpace(c.Param("invitationID"))
	if invitationID == "" {
		AbortWithError(c, teamdomain.ErrInvitationNotFound)
		return
	}

	member, err := s.teamSvc.AcceptInvitation(c.Request.Context(), userID, invitationID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, member)
}

func (s *Server) DeclineInvitation(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	invitationID := strings.TrimSpace(c.Param("invitationID"))
	if invitationID == "" {
		AbortWithError(c, teamdomain.ErrInvitationNotFound)
		return
	}

	if err := s.teamSvc.DeclineInvitation(c.Request.Context(), userID, invitationID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
