package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const envelopeVersion = 1

var (
	ErrNoTransaction   = errors.New("outbox: emit needs the caller's transaction")
	ErrInvalidEvent    = errors.New("outbox: invalid event")
	errMissingAggregID = fmt.Errorf("%w: aggregate id required", ErrInvalidEvent)
)

// DomainEvent is a fact to publish once the surrounding transaction commits.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	// Version and OccurredAt default to envelopeVersion and the service clock.
	Version    int
	OccurredAt time.Time
}

func (e DomainEvent) validate() error {
	switch {
	case !e.EventType.IsValid():
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidEvent, e.EventType)
	case !e.AggregateType.IsValid():
		return fmt.Errorf("%w: unknown aggregate type %q", ErrInvalidEvent, e.AggregateType)
	case e.AggregateID == uuid.Nil:
		return errMissingAggregID
	}
	return nil
}

// Service queues domain events in outbox_events for cmd/outbox-publisher.
type Service struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: func() time.Time { return time.Now().UTC() }}
}

// Emit inserts event through tx, so the row commits or rolls back with the
// order that produced it.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return ErrNoTransaction
	}
	if err := event.validate(); err != nil {
		return err
	}
	envelope, err := s.envelope(event)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", event.EventType, err)
	}

	if err := s.repo.Insert(tx, models.OutboxEvent{
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       encoded,
	}); err != nil {
		return fmt.Errorf("queue %s: %w", event.EventType, err)
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"event_id":       envelope.EventID,
			"event_type":     event.EventType,
			"aggregate_type": event.AggregateType,
			"aggregate_id":   event.AggregateID.String(),
		}), "outbox event queued")
	}
	return nil
}

func (s *Service) envelope(event DomainEvent) (PayloadEnvelope, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return PayloadEnvelope{}, fmt.Errorf("encode %s data: %w", event.EventType, err)
	}
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = s.now()
	}
	version := event.Version
	if version == 0 {
		version = envelopeVersion
	}
	return PayloadEnvelope{
		Version:    version,
		EventID:    uuid.NewString(),
		OccurredAt: occurred,
		Actor:      event.Actor,
		Data:       data,
	}, nil
}
