package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	DeadLetterTx(tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	DLQRepository    dlqRepository
	PublisherFactory publisherFactory
	Metrics          *metrics.OutboxMetrics
}

// Service drains outbox_events to Pub/Sub. Rows are claimed with SKIP LOCKED so
// several publishers can run side by side.
type Service struct {
	logg             *logger.Logger
	db               dbClient
	repo             outboxRepository
	pubsub           pubSubClient
	registry         registryResolver
	dlq              dlqRepository
	publisherFactory publisherFactory
	limiter          *rate.Limiter
	metrics          *metrics.OutboxMetrics
	batchSize        int
	maxAttempts      int
	pollInterval     time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.DLQRepository == nil:
		return nil, errors.New("dlq repository is required")
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = func(topic string) publisher {
			return newGCPPublisher(params.PubSub.Publisher(topic))
		}
	}

	cfg := params.Config.Outbox
	return &Service{
		logg:             params.Logger,
		db:               params.DB,
		repo:             params.Repository,
		pubsub:           params.PubSub,
		registry:         params.Registry,
		dlq:              params.DLQRepository,
		publisherFactory: factory,
		limiter:          newLimiter(params.Config.Eventing.PublishRatePerSecond),
		metrics:          params.Metrics,
		batchSize:        positiveOr(cfg.BatchSize, defaultBatchSize),
		maxAttempts:      positiveOr(cfg.MaxAttempts, defaultMaxAttempts),
		pollInterval:     time.Duration(positiveOr(cfg.PollIntervalMS, defaultPollMs)) * time.Millisecond,
	}, nil
}

// newLimiter returns nil (unlimited) for a non-positive rate.
func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

func positiveOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, dep := range []struct {
		name string
		ping func(context.Context) error
	}{
		{"database", s.db.Ping},
		{"pubsub", s.pubsub.Ping},
	} {
		if err := dep.ping(ctx); err != nil {
			s.logg.Error(ctx, dep.name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	return nil
}

// Run polls until ctx is canceled. Full batches are followed immediately by the
// next one; batch errors back off exponentially.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	backoff := s.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		claimed, err := s.processBatch(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			backoff = nextBackoff(backoff, s.pollInterval, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = s.pollInterval
		if claimed >= s.batchSize {
			continue
		}
		if err := s.sleep(ctx, withJitter(s.pollInterval)); err != nil {
			return err
		}
	}
}

// processBatch claims and handles one batch inside a single transaction and
// returns how many rows were claimed.
func (s *Service) processBatch(ctx context.Context) (int, error) {
	claimed := 0
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		claimed = len(events)
		s.metrics.ObserveBatch(claimed)

		for _, event := range events {
			if err := s.handle(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed, err
}

// handle publishes one row and records the result. Only bookkeeping failures
// are returned; publish failures are recorded on the row.
func (s *Service) handle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	eventType := string(event.EventType)

	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonUnroutable, err, s.eventFields(event, nil))
	}
	fields := s.eventFields(event, resolved)

	err = s.publish(ctx, event, resolved)
	if err == nil {
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.metrics.Record(metrics.PublishPublished, eventType)
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var nonRetry registry.NonRetryableError
	if errors.As(err, &nonRetry) {
		return s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, fields)
	}

	nextAttempt := event.AttemptCount + 1
	fields["attempt_count"] = nextAttempt
	if nextAttempt >= s.maxAttempts {
		event.AttemptCount = nextAttempt
		return s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", err), fields)
	}

	s.logg.Warn(s.logg.WithField(s.logg.WithFields(ctx, fields), "error", err.Error()), "outbox publish failed")
	if err := s.repo.MarkFailedTx(tx, event.ID, err); err != nil {
		return fmt.Errorf("mark failure %s: %w", event.ID, err)
	}
	s.metrics.Record(metrics.PublishRetried, eventType)
	return nil
}

func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, fields map[string]any) error {
	fields["error_reason"] = reason
	s.logg.Warn(s.logg.WithField(s.logg.WithFields(ctx, fields), "error", cause.Error()), "outbox event dead-lettered")

	if err := s.dlq.DeadLetterTx(tx, event, reason, cause); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	s.metrics.Record(metrics.PublishDeadLetter, string(event.EventType))
	return nil
}

func (s *Service) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.publisherFactory(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, &gcppubsub.Message{
		Data:       event.Payload,
		Attributes: messageAttributes(event, resolved.Envelope),
	})
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	_, err := result.Get(publishCtx)
	return err
}

func messageAttributes(event models.OutboxEvent, envelope outbox.PayloadEnvelope) map[string]string {
	attrs := map[string]string{
		"event_id":       envelope.EventID,
		"event_type":     string(event.EventType),
		"event_version":  fmt.Sprint(envelope.Version),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"occurred_at":    envelope.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
	if envelope.Actor != nil && envelope.Actor.StoreID != uuid.Nil {
		attrs["store_id"] = envelope.Actor.StoreID.String()
	}
	return attrs
}

func (s *Service) eventFields(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if resolved != nil {
		fields["event_id"] = resolved.Envelope.EventID
		fields["topic"] = resolved.Descriptor.Topic
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, ceiling time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	if next := current * 2; next < ceiling {
		return next
	}
	return ceiling
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func newGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{Publisher: p}
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}
