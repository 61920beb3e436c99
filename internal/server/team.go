package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	teamdomain "github.com/teamlane/teamlane/internal/team/domain"
)

type createTeamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type updateTeamRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (s *Server) CreateTeam(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.teamSvc.Create(c.Request.Context(), userID, teamdomain.CreateTeamRequest{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (s *Server) ListTeams(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	items, err := s.teamSvc.ListByUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) GetTeam(c *gin.Context) {
	teamID := strings.TrimSpace(c.Param("teamID"))
	if teamID == "" {
		AbortWithError(c, teamdomain.ErrTeamNotFound)
		return
	}

	detail, err := s.teamSvc.GetByID(c.Request.Context(), teamID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

func (s *Server) UpdateTeam(c *gin.Context) {
	teamID := strings.TrimSpace(c.Param("teamID"))
	if teamID == "" {
		AbortWithError(c, teamdomain.ErrTeamNotFound)
		return
	}

	var req updateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.teamSvc.Update(c.Request.Context(), teamID, teamdomain.UpdateTeamRequest{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) DeleteTeam(c *gin.Context) {
	teamID := strings.TrimSpace(c.Param("teamID"))
	if teamID == "" {
		AbortWithError(c, teamdomain.ErrTeamNotFound)
		return
	}

	if err := s.teamSvc.Delete(c.Request.Context(), teamID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func isTeamValidationError(err error) bool {
	switch err {
	case teamdomain.ErrInvalidName,
		teamdomain.ErrInvalidUser,
		teamdomain.ErrInvalidTeam,
		teamdomain.ErrInvalidEmail,
		teamdomain.ErrInvalidRole,
		teamdomain.ErrCannotModifyOwner,
		teamdomain.ErrCannotRemoveOwner:
		return true
	default:
		return false
	}
}
