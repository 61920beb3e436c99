package event

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TeamCreatedTopic = "team.created"
	TeamDeletedTopic = "team.deleted"
)

type TeamEvent struct {
	TeamID    snowflake.ID `json:"team_id"`
	OwnerID   snowflake.ID `json:"owner_id"`
	CreatedAt time.Time    `json:"created_at"`
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, ev TeamEvent) error
}

// outboxPublisher stores events in the team_events table so delivery can
// be retried after a crash.
type outboxPublisher struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func NewOutboxPublisher(db *gorm.DB, genID *snowflake.Node) EventPublisher {
	return &outboxPublisher{
		db:    db,
		genID: genID,
	}
}

func (p *outboxPublisher) Publish(ctx context.Context, topic string, ev TeamEvent) error {
	if ev.TeamID == 0 {
		return errors.New("missing team_id")
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	return p.db.WithContext(ctx).Exec(
		`INSERT INTO team_events (id, team_id, event_type, payload, published, created_at)
		 VALUES (?, ?, ?, ?, false, ?)`,
		p.genID.Generate(),
		ev.TeamID,
		topic,
		datatypes.JSON(payload),
		now,
	).Error
}
