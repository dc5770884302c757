package cron

import (
	"context"

	"gorm.io/gorm"
)

// Job is one housekeeping task run by the cron worker each cycle.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Registry holds jobs in registration order. Jobs sharing a name are
// registered once.
type Registry struct {
	jobs []Job
	seen map[string]struct{}
}

func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{seen: map[string]struct{}{}}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register adds job unless it is nil or its name is taken. It reports whether
// the job was added.
func (r *Registry) Register(job Job) bool {
	if job == nil {
		return false
	}
	if _, dup := r.seen[job.Name()]; dup {
		return false
	}
	r.seen[job.Name()] = struct{}{}
	r.jobs = append(r.jobs, job)
	return true
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}
