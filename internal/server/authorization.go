package server

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

// authorizeTeamAction gates a team-scoped route on the actor's role within
// the team named by the :teamID path parameter.
func (s *Server) authorizeTeamAction(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := s.userIDFromSession(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		teamID := strings.TrimSpace(c.Param("teamID"))
		if teamID == "" {
			AbortWithError(c, ErrNotFound)
			return
		}

		if err := s.authorizeForTeam(c, userID, teamID, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) authorizeForTeam(c *gin.Context, userID snowflake.ID, teamID string, object string, action string) error {
	if s.authzSvc == nil {
		return ErrForbidden
	}
	subject := fmt.Sprintf("user:%s", userID.String())
	return s.authzSvc.Authorize(c.Request.Context(), subject, teamID, strings.TrimSpace(object), strings.TrimSpace(action))
}
