package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const defaultOutboxRetentionDays = 30

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxPruner
	Metrics    *metrics.CronJobMetrics
	// RetentionDays is how long published rows are kept.
	RetentionDays int
}

type outboxPruner interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NewOutboxRetentionJob prunes outbox rows that were published more than
// RetentionDays ago. Unpublished rows are never touched.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	days := params.RetentionDays
	if days <= 0 {
		days = defaultOutboxRetentionDays
	}
	return &outboxRetentionJob{
		logg:    params.Logger,
		db:      params.DB,
		repo:    params.Repository,
		metrics: params.Metrics,
		days:    days,
		now:     time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg    *logger.Logger
	db      txRunner
	repo    outboxPruner
	metrics *metrics.CronJobMetrics
	days    int
	now     func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.days)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeletePublishedBefore(tx, cutoff)
		deleted = rows
		return err
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	j.metrics.AddDeleted(j.Name(), deleted)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.days,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "cron.outbox_pruned")
	return nil
}
