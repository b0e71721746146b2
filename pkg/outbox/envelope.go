package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies the profile whose request produced the event.
type ActorRef struct {
	UserID    *uuid.UUID `json:"userId,omitempty"`
	ProfileID *uuid.UUID `json:"profileId,omitempty"`
	Role      string     `json:"role,omitempty"`
}

// PayloadEnvelope is the stored shape of outbox_events.payload.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
