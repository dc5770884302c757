package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies who produced the event. Anonymous owners carry no user id.
type ActorRef struct {
	OwnerKey string     `json:"ownerKey"`
	UserID   *uuid.UUID `json:"userId,omitempty"`
	StoreID  uuid.UUID  `json:"storeId"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
