package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// EventDescriptor routes one event type to a topic and decodes its payload.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	// decode unmarshals and checks the payload against the row's aggregate id.
	decode func(aggregateID uuid.UUID, data json.RawMessage) (any, error)
}

// ResolvedEvent is a routable outbox row with its typed payload.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry knows every event the storefront publishes.
type EventRegistry struct {
	byType map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks rows that will never publish and go straight to the DLQ.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "outbox: non-retryable"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, errors.New("outbox: orders topic required")
	}
	return &EventRegistry{byType: map[enums.OutboxEventType]EventDescriptor{
		enums.EventOrderCreated: {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			Topic:         cfg.OrdersTopic,
			decode:        decodeOrderCreated,
		},
	}}, nil
}

// decodeOrderCreated requires the payload to describe the row's order and to
// carry at least one line, since consumers reconcile stock from the items.
func decodeOrderCreated(aggregateID uuid.UUID, data json.RawMessage) (any, error) {
	var event payloads.OrderCreatedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("decode order_created: %w", err)
	}
	if event.OrderID != aggregateID {
		return nil, fmt.Errorf("order_created for %s stored under aggregate %s", event.OrderID, aggregateID)
	}
	if len(event.Items) == 0 {
		return nil, fmt.Errorf("order_created %s has no items", event.OrderNumber)
	}
	return &event, nil
}

// Resolve routes a row. Any failure is a NonRetryableError.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.byType[row.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("no route for event type %q", row.EventType))
	}
	switch {
	case row.AggregateType != desc.AggregateType:
		return nil, NewNonRetryableError(fmt.Errorf("%s must be a %s event, row says %s", row.EventType, desc.AggregateType, row.AggregateType))
	case row.AggregateID == uuid.Nil:
		return nil, NewNonRetryableError(fmt.Errorf("%s row has no aggregate id", row.EventType))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}
	if data := bytes.TrimSpace(envelope.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("%s envelope has no data", row.EventType))
	}

	payload, err := desc.decode(row.AggregateID, envelope.Data)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
