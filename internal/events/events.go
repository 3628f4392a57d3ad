package events

import (
	"time"

	"github.com/google/uuid"
)

// Type names follow a dotted "area.verb" convention and map 1:1 onto NATS
// subjects under the society.events.> stream.
type Type string

const (
	TypeAgentMoved         Type = "agent.moved"
	TypeAgentDecided       Type = "agent.decided"
	TypeAgentReacted       Type = "agent.reacted"
	TypeAgentReflected     Type = "agent.reflected"
	TypeAgentCreated       Type = "agent.created"
	TypeAgentLeft          Type = "agent.left"
	TypeChatRequested      Type = "chat.requested"
	TypeDailyPlanGenerated Type = "daily_plan.generated"
	TypeWorldTick          Type = "world.tick"
)

// Event is one domain occurrence. Data keys are event-type specific and
// consumed best-effort by dashboards and external subscribers.
type Event struct {
	ID        uuid.UUID      `json:"id"`
	Type      Type           `json:"type"`
	AgentID   uuid.UUID      `json:"agent_id,omitempty"`
	AgentName string         `json:"agent_name,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// New builds an event with a fresh id and wall-clock timestamp.
func New(typ Type, data map[string]any) Event {
	return Event{
		ID:        uuid.New(),
		Type:      typ,
		Data:      data,
		Timestamp: time.Now(),
	}
}
