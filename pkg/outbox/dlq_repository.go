package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

const defaultDLQListLimit = 50

// DLQFilter narrows dead-letter listings.
type DLQFilter struct {
	EventType *enums.OutboxEventType
	Limit     int
}

// DLQRepository stores outbox rows the publisher gave up on.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// DeadLetterTx copies event into the dead-letter table with the failure reason.
// It must share the transaction that marks the source row terminal.
func (r *DLQRepository) DeadLetterTx(tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if !reason.IsValid() {
		return fmt.Errorf("invalid dlq reason %q", reason)
	}
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if cause != nil {
		msg := truncateError(cause)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// FindByEventID returns nil without error when the event was never dead-lettered.
func (r *DLQRepository) FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	var row models.OutboxDLQ
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns the newest dead letters first.
func (r *DLQRepository) List(ctx context.Context, filter DLQFilter) ([]models.OutboxDLQ, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultDLQListLimit
	}
	query := r.db.WithContext(ctx)
	if filter.EventType != nil {
		query = query.Where("event_type = ?", *filter.EventType)
	}
	var rows []models.OutboxDLQ
	err := query.
		Order("failed_at DESC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
