// Package scheduler runs the periodic jobs on a single goroutine so two
// cycles of the same automation can never overlap.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

type job struct {
	name     string
	run      func(context.Context)
	next     time.Time
	interval time.Duration
	daily    bool
	hour     int
	minute   int
}

// Scheduler executes registered jobs at their due times, one at a time.
// A long job delays the others rather than racing them.
type Scheduler struct {
	log     *logrus.Logger
	jobs    []*job
	nowFunc func() time.Time
}

func New(log *logrus.Logger) *Scheduler {
	return &Scheduler{
		log:     log,
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// Every registers a job that runs at a fixed interval, first firing one
// interval after Run starts.
func (s *Scheduler) Every(name string, interval time.Duration, fn func(context.Context)) {
	s.jobs = append(s.jobs, &job{
		name:     name,
		run:      fn,
		interval: interval,
	})
}

// DailyAt registers a job that runs once a day at the given UTC time.
func (s *Scheduler) DailyAt(name string, hour, minute int, fn func(context.Context)) {
	s.jobs = append(s.jobs, &job{
		name:   name,
		run:    fn,
		daily:  true,
		hour:   hour,
		minute: minute,
	})
}

// Run blocks until the context is cancelled. Panicking jobs are recovered
// and rescheduled.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.jobs) == 0 {
		return fmt.Errorf("no jobs registered")
	}

	now := s.nowFunc()
	for _, j := range s.jobs {
		j.next = j.firstRun(now)
	}

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		j := s.earliest()
		wait := j.next.Sub(s.nowFunc())
		if wait < 0 {
			wait = 0
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		s.execute(ctx, j)
		j.next = j.nextRun(s.nowFunc())
	}
}

func (s *Scheduler) execute(ctx context.Context, j *job) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithFields(logrus.Fields{
				"job":   j.name,
				"panic": r,
			}).Error("scheduled job panicked")
		}
	}()
	s.log.WithField("job", j.name).Debug("running scheduled job")
	j.run(ctx)
}

func (s *Scheduler) earliest() *job {
	best := s.jobs[0]
	for _, j := range s.jobs[1:] {
		if j.next.Before(best.next) {
			best = j
		}
	}
	return best
}

func (j *job) firstRun(now time.Time) time.Time {
	if j.daily {
		return j.nextDaily(now)
	}
	return now.Add(j.interval)
}

func (j *job) nextRun(now time.Time) time.Time {
	if j.daily {
		return j.nextDaily(now)
	}
	return now.Add(j.interval)
}

func (j *job) nextDaily(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), j.hour, j.minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
