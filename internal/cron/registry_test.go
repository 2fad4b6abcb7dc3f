package cron

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string                         { return s.name }
func (s *stubJob) Run(context.Context) (Summary, error) { return nil, nil }

func TestRegistryStoresJobs(t *testing.T) {
	registry := NewRegistry()
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	registry.Register(jobA)
	registry.Register(jobB)
	registry.Register(nil)
	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != jobA || jobs[1] != jobB {
		t.Fatalf("jobs returned out of order")
	}
	// ensure caller cannot mutate internal slice
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestRegistryLookup(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "sla-check"}, &stubJob{name: "collection-reminders"})
	if job, ok := registry.Lookup("collection-reminders"); !ok || job.Name() != "collection-reminders" {
		t.Fatalf("expected to find collection-reminders")
	}
	if _, ok := registry.Lookup("nope"); ok {
		t.Fatalf("unexpected job found")
	}
	names := registry.Names()
	if len(names) != 2 || names[0] != "sla-check" {
		t.Fatalf("unexpected names %v", names)
	}
}
