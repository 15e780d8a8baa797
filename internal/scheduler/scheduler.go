// Package scheduler runs named jobs on fixed intervals with at most one
// execution per job in flight.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ideaforge/internal/logger"
	"ideaforge/internal/metrics"
)

var (
	// ErrJobRunning is returned when a run is requested while the same job is in flight.
	ErrJobRunning = errors.New("job is already running")
	// ErrUnknownJob is returned for names that were never added.
	ErrUnknownJob = errors.New("unknown job")
	// ErrStarted is returned by Add after Start.
	ErrStarted = errors.New("scheduler already started")
)

// Job is one unit of scheduled work. It should honour ctx where it can.
type Job func(ctx context.Context) error

// Status is a point-in-time snapshot of one job.
type Status struct {
	Name      string     `json:"name"`
	Interval  string     `json:"interval"`
	Running   bool       `json:"running"`
	Runs      int        `json:"runs"`
	Skipped   int        `json:"skipped"`
	Failures  int        `json:"failures"`
	LastRun   *time.Time `json:"last_run"`
	NextRun   *time.Time `json:"next_run"`
	LastRunID string     `json:"last_run_id,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

type job struct {
	name     string
	interval time.Duration
	fn       Job
	running  atomic.Bool

	// guarded by Scheduler.mu
	runs      int
	skipped   int
	failures  int
	lastRun   *time.Time
	nextRun   *time.Time
	lastRunID string
	lastError string
}

// Scheduler owns its job loops. Start launches them and Stop cancels and waits.
type Scheduler struct {
	logger *slog.Logger

	mu      sync.RWMutex
	jobs    map[string]*job
	order   []string
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	wg      sync.WaitGroup
}

// New creates an empty scheduler.
func New(l *slog.Logger) *Scheduler {
	return &Scheduler{
		logger: logger.OrDiscard(l),
		jobs:   make(map[string]*job),
	}
}

// Add registers a job. Jobs must be added before Start.
func (s *Scheduler) Add(name string, interval time.Duration, fn Job) error {
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", name)
	}
	if fn == nil {
		return fmt.Errorf("job %s: nil job", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrStarted
	}
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already added", name)
	}
	s.jobs[name] = &job{name: name, interval: interval, fn: fn}
	s.order = append(s.order, name)
	s.logger.Info("job scheduled", "job", name, "interval", interval)
	return nil
}

// Start launches one ticker loop per job. The loops end when ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrStarted
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	for _, name := range s.order {
		j := s.jobs[name]
		next := time.Now().Add(j.interval)
		j.nextRun = &next
		s.wg.Add(1)
		go s.loop(j)
	}
	s.logger.Info("scheduler started", "jobs", len(s.order))
	return nil
}

// Stop cancels the job loops and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// RunNow starts the named job in the background under its single-flight guard.
// It requires a started scheduler.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	j, ok := s.jobs[name]
	ctx := s.ctx
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	if ctx == nil {
		return fmt.Errorf("run %s: scheduler not started", name)
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.execute(ctx, j, j.fn)
	}()
	return nil
}

// TryRun runs fn synchronously under the named job's single-flight guard, so a
// manual trigger can never overlap a scheduled run of the same job. It returns
// ErrJobRunning without calling fn when the job is in flight, and fn's error otherwise.
func (s *Scheduler) TryRun(ctx context.Context, name string, fn Job) error {
	s.mu.RLock()
	j, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	if fn == nil {
		fn = j.fn
	}
	return s.execute(ctx, j, fn)
}

// Status returns a snapshot of every job in the order they were added.
func (s *Scheduler) Status() []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Status, 0, len(s.order))
	for _, name := range s.order {
		j := s.jobs[name]
		out = append(out, Status{
			Name:      j.name,
			Interval:  j.interval.String(),
			Running:   j.running.Load(),
			Runs:      j.runs,
			Skipped:   j.skipped,
			Failures:  j.failures,
			LastRun:   copyTime(j.lastRun),
			NextRun:   copyTime(j.nextRun),
			LastRunID: j.lastRunID,
			LastError: j.lastError,
		})
	}
	return out
}

func (s *Scheduler) loop(j *job) {
	defer s.wg.Done()
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case t := <-ticker.C:
			s.mu.Lock()
			next := t.Add(j.interval)
			j.nextRun = &next
			s.mu.Unlock()
			_ = s.execute(s.ctx, j, j.fn)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, j *job, fn Job) error {
	if !j.running.CompareAndSwap(false, true) {
		s.mu.Lock()
		j.skipped++
		s.mu.Unlock()
		metrics.ObserveJob(j.name, "skipped", 0)
		s.logger.Info("job skipped, previous run still active", "job", j.name)
		return ErrJobRunning
	}
	defer j.running.Store(false)

	runID := uuid.NewString()
	start := time.Now()
	s.logger.Info("job started", "job", j.name, "run_id", runID)

	err := safeRun(ctx, fn)
	elapsed := time.Since(start)

	s.mu.Lock()
	j.runs++
	j.lastRun = &start
	j.lastRunID = runID
	if err != nil {
		j.failures++
		j.lastError = err.Error()
	} else {
		j.lastError = ""
	}
	failures := j.failures
	s.mu.Unlock()

	if err != nil {
		metrics.ObserveJob(j.name, "error", elapsed.Seconds())
		s.logger.Error("job failed", "job", j.name, "run_id", runID, "duration", elapsed, "failures", failures, "error", err)
		return err
	}
	metrics.ObserveJob(j.name, "ok", elapsed.Seconds())
	s.logger.Info("job completed", "job", j.name, "run_id", runID, "duration", elapsed)
	return nil
}

func safeRun(ctx context.Context, fn Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v\n%s", r, debug.Stack())
		}
	}()
	return fn(ctx)
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
