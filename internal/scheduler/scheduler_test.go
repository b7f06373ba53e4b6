package scheduler

import (
	"testing"
)

func TestAddJobAcceptsStandardExpressions(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	exprs := []string{
		"0 3 * * *",
		"*/5 * * * *",
		"30 2 1 * *",
	}
	for _, expr := range exprs {
		remove, err := s.AddJob("test-job", expr, func() {})
		if err != nil {
			t.Errorf("expected %q to be accepted: %v", expr, err)
			continue
		}
		remove()
	}
}

func TestAddJobRejectsInvalidExpressions(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	// Wrong field counts, out-of-range values, and garbage all fail parsing.
	exprs := []string{
		"",
		"not a cron line",
		"0 3 * *",
		"0 3 * * * *",
		"99 99 * * *",
	}
	for _, expr := range exprs {
		if _, err := s.AddJob("bad-job", expr, func() {}); err == nil {
			t.Errorf("expected %q to be rejected", expr)
		}
	}
}

func TestRemoveHandleIsIdempotent(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	remove, err := s.AddJob("removable", "0 3 * * *", func() {})
	if err != nil {
		t.Fatalf("add job failed: %v", err)
	}
	remove()
	remove()
}

func TestStopWaitsForScheduler(t *testing.T) {
	s := NewScheduler()
	if _, err := s.AddJob("noop", "0 3 * * *", func() {}); err != nil {
		t.Fatalf("add job failed: %v", err)
	}
	s.Stop()
}
