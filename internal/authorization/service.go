package authorization

import (
	"context"
	"errors"
)

var (
	ErrInvalidActor  = errors.New("invalid actor")
	ErrInvalidTeam   = errors.New("invalid team")
	ErrInvalidObject = errors.New("invalid object")
	ErrInvalidAction = errors.New("invalid action")
	ErrForbidden     = errors.New("forbidden")
)

// Service answers capability checks for an actor within a team.
type Service interface {
	Authorize(ctx context.Context, actor string, teamID string, object string, action string) error
}
