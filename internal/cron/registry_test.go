package cron

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	registry := NewRegistry(jobA, jobB)

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != jobA || jobs[1] != jobB {
		t.Fatalf("jobs returned out of order")
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestRegistrySkipsNilAndDuplicates(t *testing.T) {
	registry := NewRegistry()
	if registry.Register(nil) {
		t.Fatal("nil job should be rejected")
	}
	if !registry.Register(&stubJob{name: "stale-carts"}) {
		t.Fatal("expected first registration to succeed")
	}
	if registry.Register(&stubJob{name: "stale-carts"}) {
		t.Fatal("duplicate name should be rejected")
	}
	if got := len(registry.Jobs()); got != 1 {
		t.Fatalf("expected 1 job, got %d", got)
	}
}
