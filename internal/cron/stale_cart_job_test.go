package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type fakeStaleCartRepo struct {
	batches []int64
	cutoffs []time.Time
	limits  []int
	err     error
}

func (f *fakeStaleCartRepo) DeleteStaleAnonymous(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) (int64, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return 0, f.err
	}
	if len(f.batches) == 0 {
		return 0, nil
	}
	next := f.batches[0]
	f.batches = f.batches[1:]
	return next, nil
}

func newStaleCartJob(t *testing.T, repo *fakeStaleCartRepo, tx *passthroughTx, batch int) *staleCartJob {
	t.Helper()
	jobIface, err := NewStaleCartJob(StaleCartJobParams{
		Logger:     logger.Nop(),
		DB:         tx,
		Repository: repo,
		IdleDays:   14,
		BatchSize:  batch,
	})
	if err != nil {
		t.Fatalf("NewStaleCartJob: %v", err)
	}
	return jobIface.(*staleCartJob)
}

func TestStaleCartJobDrainsFullBatches(t *testing.T) {
	now := time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC)
	repo := &fakeStaleCartRepo{batches: []int64{10, 10, 3}}
	tx := &passthroughTx{}
	job := newStaleCartJob(t, repo, tx, 10)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(repo.cutoffs) != 3 || tx.calls != 3 {
		t.Fatalf("expected 3 batches in 3 transactions, got %d/%d", len(repo.cutoffs), tx.calls)
	}
	want := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for _, cutoff := range repo.cutoffs {
		if !cutoff.Equal(want) {
			t.Fatalf("expected cutoff %s, got %s", want, cutoff)
		}
	}
	for _, limit := range repo.limits {
		if limit != 10 {
			t.Fatalf("expected limit 10, got %d", limit)
		}
	}
}

func TestStaleCartJobStopsAtBatchCap(t *testing.T) {
	batches := make([]int64, maxStaleCartBatches+5)
	for i := range batches {
		batches[i] = 2
	}
	repo := &fakeStaleCartRepo{batches: batches}
	job := newStaleCartJob(t, repo, &passthroughTx{}, 2)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(repo.cutoffs) != maxStaleCartBatches {
		t.Fatalf("expected %d batches, got %d", maxStaleCartBatches, len(repo.cutoffs))
	}
}

func TestStaleCartJobPropagatesError(t *testing.T) {
	repo := &fakeStaleCartRepo{err: errors.New("locked")}
	job := newStaleCartJob(t, repo, &passthroughTx{}, 0)
	if job.batch != defaultStaleCartBatch {
		t.Fatalf("expected default batch, got %d", job.batch)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
