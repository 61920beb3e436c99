package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	teamdomain "github.com/teamlane/teamlane/internal/team/domain"
)

type updateMemberRoleRequest struct {
	Role string `json:"role"`
}

func (s *Server) ListTeamMembers(c *gin.Context) {
	teamID := strings.TrimSpace(c.Param("teamID"))
	if teamID == "" {
		AbortWithError(c, teamdomain.ErrTeamNotFound)
		return
	}

	members, err := s.teamSvc.ListMembers(c.Request.Context(), teamID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": members})
}

func (s *Server) UpdateTeamMemberRole(c *gin.Context) {
	teamID := strings.TrimSpace(c.Param("teamID"))
	memberID := strings.TrimSpace(c.Param("memberID"))
	if teamID == "" || memberID == "" {
		AbortWithError(c, teamdomain.ErrMemberNotFound)
		return
	}

	var req updateMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	member, err := s.teamSvc.UpdateMemberRole(c.Request.Context(), teamID, memberID, strings.TrimSpace(req.Role))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, member)
}

func (s *Server) RemoveTeamMember(c *gin.Context) {
	teamID := strings.TrimSpace(c.Param("teamID"))
	memberID := strings.TrimSpace(c.Param("memberID"))
	if teamID == "" || memberID == "" {
		AbortWithError(c, teamdomain.ErrMemberNotFound)
		return
	}

	if err := s.teamSvc.RemoveMember(c.Request.Context(), teamID, memberID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
