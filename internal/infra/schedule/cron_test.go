package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestCronSchedulerRunsJobs(t *testing.T) {
	s := NewCronScheduler(nil, time.Second)
	var runs atomic.Int64
	if err := s.Every("@every 10ms", "tick", func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("logged, not fatal")
	}); err != nil {
		t.Fatalf("every: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for runs.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if runs.Load() < 2 {
		t.Fatalf("expected repeated runs, got %d", runs.Load())
	}
}

func TestCronSchedulerRejectsBadSpec(t *testing.T) {
	s := NewCronScheduler(nil, 0)
	if err := s.Every("every now and then", "bad", func(context.Context) error { return nil }); err == nil {
		t.Fatalf("expected invalid spec to be rejected")
	}
}
