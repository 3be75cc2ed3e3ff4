package scheduler

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func newTestScheduler() *Scheduler {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(log)
}

func TestIntervalJobRuns(t *testing.T) {
	s := newTestScheduler()
	var runs atomic.Int32
	s.Every("tick", 10*time.Millisecond, func(context.Context) {
		runs.Add(1)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = s.Run(ctx)

	if got := runs.Load(); got < 2 {
		t.Fatalf("runs = %d, want at least 2", got)
	}
}

func TestPanickingJobIsRecovered(t *testing.T) {
	s := newTestScheduler()
	var after atomic.Bool
	s.Every("boom", 10*time.Millisecond, func(context.Context) {
		if after.Load() {
			return
		}
		after.Store(true)
		panic("broken job")
	})
	var runs atomic.Int32
	s.Every("steady", 15*time.Millisecond, func(context.Context) {
		runs.Add(1)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = s.Run(ctx)

	if runs.Load() == 0 {
		t.Fatal("panicking job starved the scheduler")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s := newTestScheduler()
	s.Every("tick", time.Hour, func(context.Context) {})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRunRequiresJobs(t *testing.T) {
	s := newTestScheduler()
	if err := s.Run(context.Background()); err == nil {
		t.Fatal("expected error with no jobs")
	}
}

func TestDailyJobScheduledForNextOccurrence(t *testing.T) {
	s := newTestScheduler()
	now := time.Date(2026, 8, 24, 9, 30, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return now }
	s.DailyAt("morning", 8, 0, func(context.Context) {})

	j := s.jobs[0]
	next := j.firstRun(now)
	want := time.Date(2026, 8, 25, 8, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("next = %v, want %v", next, want)
	}

	// Before the daily time, it fires the same day.
	early := time.Date(2026, 8, 24, 6, 0, 0, 0, time.UTC)
	next = j.firstRun(early)
	want = time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("next = %v, want %v", next, want)
	}
}
