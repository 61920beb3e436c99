package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/teamlane/teamlane/internal/authorization"
	projectdomain "github.com/teamlane/teamlane/internal/project/domain"
)

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type updateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

type addProjectMemberRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) CreateProject(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	teamID := strings.TrimSpace(c.Param("teamID"))
	if teamID == "" {
		AbortWithError(c, projectdomain.ErrProjectNotFound)
		return
	}

	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.projectSvc.Create(c.Request.Context(), userID, teamID, projectdomain.CreateProjectRequest{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (s *Server) ListProjects(c *gin.Context) {
	teamID := strings.TrimSpace(c.Param("teamID"))
	if teamID == "" {
		AbortWithError(c, projectdomain.ErrProjectNotFound)
		return
	}

	items, err := s.projectSvc.ListByTeam(c.Request.Context(), teamID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

// authorizeProject resolves the owning team of a project and checks the
// actor's capability within that team.
func (s *Server) authorizeProject(c *gin.Context, projectID string, object string, action string) bool {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return false
	}

	teamID, err := s.projectSvc.TeamIDForProject(c.Request.Context(), projectID)
	if err != nil {
		AbortWithError(c, err)
		return false
	}

	if err := s.authorizeForTeam(c, userID, teamID, object, action); err != nil {
		AbortWithError(c, err)
		return false
	}
	return true
}

func (s *Server) GetProject(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	projectID := strings.TrimSpace(c.Param("projectID"))
	if projectID == "" {
		AbortWithError(c, projectdomain.ErrProjectNotFound)
		return
	}
	if !s.authorizeProject(c, projectID, authorization.ObjectProject, authorization.ActionProjectView) {
		return
	}

	detail, err := s.projectSvc.Get(c.Request.Context(), userID, projectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

func (s *Server) UpdateProject(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	projectID := strings.TrimSpace(c.Param("projectID"))
	if projectID == "" {
		AbortWithError(c, projectdomain.ErrProjectNotFound)
		return
	}
	if !s.authorizeProject(c, projectID, authorization.ObjectProject, authorization.ActionProjectUpdate) {
		return
	}

	var req updateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.projectSvc.Update(c.Request.Context(), userID, projectID, projectdomain.UpdateProjectRequest{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) DeleteProject(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	projectID := strings.TrimSpace(c.Param("projectID"))
	if projectID == "" {
		AbortWithError(c, projectdomain.ErrProjectNotFound)
		return
	}
	if !s.authorizeProject(c, projectID, authorization.ObjectProject, authorization.ActionProjectDelete) {
		return
	}

	if err := s.projectSvc.Delete(c.Request.Context(), userID, projectID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) AddProjectMember(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	projectID := strings.TrimSpace(c.Param("projectID"))
	if projectID == "" {
		AbortWithError(c, projectdomain.ErrProjectNotFound)
		return
	}
	if !s.authorizeProject(c, projectID, authorization.ObjectProject, authorization.ActionProjectUpdate) {
		return
	}

	var req addProjectMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	memberUserID := strings.TrimSpace(req.UserID)
	if memberUserID == "" {
		AbortWithError(c, newValidationError("user_id", "required", "user id is required"))
		return
	}

	if err := s.projectSvc.AddMember(c.Request.Context(), userID, projectID, memberUserID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func isProjectValidationError(err error) bool {
	switch err {
	case projectdomain.ErrInvalidUser,
		projectdomain.ErrInvalidProject,
		projectdomain.ErrInvalidName,
		projectdomain.ErrInvalidTitle,
		projectdomain.ErrInvalidStatus,
		projectdomain.ErrInvalidPriority,
		projectdomain.ErrInvalidContent,
		projectdomain.ErrNotTeamMember:
		return true
	default:
		return false
	}
}
