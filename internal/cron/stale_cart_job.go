package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const (
	defaultStaleCartDays  = 30
	defaultStaleCartBatch = 500
	// maxStaleCartBatches bounds one run; the next cycle picks up the rest.
	maxStaleCartBatches = 20
)

type StaleCartJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository staleCartPruner
	Metrics    *metrics.CronJobMetrics
	IdleDays   int
	BatchSize  int
}

type staleCartPruner interface {
	DeleteStaleAnonymous(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) (int64, error)
}

// NewStaleCartJob deletes session-owned carts idle for IdleDays, in batches of
// BatchSize with one transaction per batch.
func NewStaleCartJob(params StaleCartJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	days := params.IdleDays
	if days <= 0 {
		days = defaultStaleCartDays
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultStaleCartBatch
	}
	return &staleCartJob{
		logg:    params.Logger,
		db:      params.DB,
		repo:    params.Repository,
		metrics: params.Metrics,
		days:    days,
		batch:   batch,
		now:     time.Now,
	}, nil
}

type staleCartJob struct {
	logg    *logger.Logger
	db      txRunner
	repo    staleCartPruner
	metrics *metrics.CronJobMetrics
	days    int
	batch   int
	now     func() time.Time
}

func (j *staleCartJob) Name() string { return "stale-carts" }

func (j *staleCartJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.days)
	var total int64
	for i := 0; i < maxStaleCartBatches; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		var deleted int64
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			rows, err := j.repo.DeleteStaleAnonymous(ctx, tx, cutoff, j.batch)
			deleted = rows
			return err
		})
		if err != nil {
			j.metrics.AddDeleted(j.Name(), total)
			return fmt.Errorf("stale carts batch %d: %w", i, err)
		}
		total += deleted
		if deleted < int64(j.batch) {
			break
		}
	}
	j.metrics.AddDeleted(j.Name(), total)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"idle_days":    j.days,
		"carts_pruned": total,
	})
	j.logg.Info(logCtx, "cron.stale_carts_pruned")
	return nil
}
