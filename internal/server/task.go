package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/teamlane/teamlane/internal/authorization"
	projectdomain "github.com/teamlane/teamlane/internal/project/domain"
)

type createTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	AssigneeID  *string    `json:"assignee_id"`
	DueDate     *time.Time `json:"due_date"`
}

type updateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
	AssigneeID  *string    `json:"assignee_id"`
	DueDate     *time.Time `json:"due_date"`
}

// authorizeTask resolves the owning team of a task and checks the actor's
// capability within that team.
func (s *Server) authorizeTask(c *gin.Context, taskID string, object string, action string) bool {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return false
	}

	teamID, err := s.projectSvc.TeamIDForTask(c.Request.Context(), taskID)
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

func (s *Server) CreateTask(c *gin.Context) {
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
	if !s.authorizeProject(c, projectID, authorization.ObjectTask, authorization.ActionTaskCreate) {
		return
	}

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	task, err := s.projectSvc.CreateTask(c.Request.Context(), userID, projectID, projectdomain.CreateTaskRequest{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Priority:    strings.TrimSpace(req.Priority),
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, task)
}

func (s *Server) ListTasks(c *gin.Context) {
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
	if !s.authorizeProject(c, projectID, authorization.ObjectTask, authorization.ActionTaskView) {
		return
	}

	tasks, err := s.projectSvc.ListTasks(c.Request.Context(), userID, projectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tasks})
}

func (s *Server) GetTask(c *gin.Context) {
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
	if !s.authorizeTask(c, taskID, authorization.ObjectTask, authorization.ActionTaskView) {
		return
	}

	task, err := s.projectSvc.GetTask(c.Request.Context(), userID, taskID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

func (s *Server) UpdateTask(c *gin.Context) {
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
	if !s.authorizeTask(c, taskID, authorization.ObjectTask, authorization.ActionTaskUpdate) {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	task, err := s.projectSvc.UpdateTask(c.Request.Context(), userID, taskID, projectdomain.UpdateTaskRequest{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

func (s *Server) DeleteTask(c *gin.Context) {
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
	if !s.authorizeTask(c, taskID, authorization.ObjectTask, authorization.ActionTaskDelete) {
		return
	}

	if err := s.projectSvc.DeleteTask(c.Request.Context(), userID, taskID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
