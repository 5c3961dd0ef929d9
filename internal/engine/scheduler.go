package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/donaldgifford/einvoice-tracker/internal/metrics"
	"github.com/donaldgifford/einvoice-tracker/internal/portal"
	domain "github.com/donaldgifford/einvoice-tracker/pkg/types"
)

// CycleRunner runs a single fetch cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context, trigger Trigger, tr domain.TimeRange) (*CycleResult, error)
}

// SchedulerConfig controls the two cycle producers.
type SchedulerConfig struct {
	MinInterval time.Duration
	MaxInterval time.Duration
	RunOnStart  bool
	// MonthlySpec is a cron expression for the previous-month sweep.
	// Empty disables it.
	MonthlySpec string
	ExitOnFatal bool
	Location    *time.Location
}

type job struct {
	trigger Trigger
	done    chan error
}

// Scheduler feeds cycle requests from a jittered interval loop and a
// monthly cron entry into a single-slot queue drained by one worker, so at
// most one cycle is ever in flight.
type Scheduler struct {
	runner CycleRunner
	cfg    SchedulerConfig
	cron   *cron.Cron
	queue  chan job
	log    *slog.Logger

	now    func() time.Time
	sleep  portal.Sleeper
	jitter func(lo, hi time.Duration) time.Duration

	mu        sync.Mutex
	ctx       context.Context
	monthlyID cron.EntryID
}

// SchedulerOption configures the Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerLogger sets a custom logger.
func WithSchedulerLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.log = l
	}
}

// WithSchedulerClock overrides the clock used to compute cycle ranges.
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithSchedulerSleeper overrides how the interval loop waits.
func WithSchedulerSleeper(sleep portal.Sleeper) SchedulerOption {
	return func(s *Scheduler) {
		s.sleep = sleep
	}
}

// WithJitter overrides the interval draw.
func WithJitter(fn func(lo, hi time.Duration) time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.jitter = fn
	}
}

// NewScheduler creates a Scheduler driving runner.
func NewScheduler(runner CycleRunner, cfg SchedulerConfig, opts ...SchedulerOption) (*Scheduler, error) {
	if cfg.MaxInterval < cfg.MinInterval {
		return nil, fmt.Errorf("max interval %s is below min interval %s", cfg.MaxInterval, cfg.MinInterval)
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	s := &Scheduler{
		runner: runner,
		cfg:    cfg,
		cron:   cron.New(cron.WithLocation(cfg.Location)),
		queue:  make(chan job, 1),
		log:    slog.Default(),
		now:    time.Now,
		sleep:  portal.Sleep,
		jitter: uniformJitter,
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.MonthlySpec != "" {
		id, err := s.cron.AddFunc(cfg.MonthlySpec, s.runMonthly)
		if err != nil {
			return nil, fmt.Errorf("parsing monthly schedule %q: %w", cfg.MonthlySpec, err)
		}
		s.monthlyID = id
	}

	return s, nil
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// Run blocks until ctx is done, or until a cycle fails while ExitOnFatal
// is set, in which case that cycle's error is returned.
func (s *Scheduler) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.work(ctx, cancel)
	}()

	s.cron.Start()
	s.syncMonthlyTimestamp()
	s.log.Info("scheduler started",
		"min_interval", s.cfg.MinInterval,
		"max_interval", s.cfg.MaxInterval,
		"monthly", s.cfg.MonthlySpec,
	)

	s.intervalLoop(ctx)

	<-s.cron.Stop().Done()
	wg.Wait()
	s.log.Info("scheduler stopped")

	if cause := context.Cause(ctx); cause != nil &&
		!errors.Is(cause, context.Canceled) && !errors.Is(cause, context.DeadlineExceeded) {
		return cause
	}
	return nil
}

func (s *Scheduler) work(ctx context.Context, fail context.CancelCauseFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			err := s.runJob(ctx, j.trigger)
			if j.done != nil {
				j.done <- err
			}
			if err != nil && ctx.Err() == nil && s.cfg.ExitOnFatal {
				fail(fmt.Errorf("%s cycle: %w", j.trigger, err))
				return
			}
		}
	}
}

func (s *Scheduler) runJob(ctx context.Context, trigger Trigger) error {
	tr, err := s.rangeFor(trigger)
	if errors.Is(err, domain.ErrEmptyRange) {
		s.log.Info("cycle skipped, empty range", "trigger", string(trigger))
		return nil
	}
	if err != nil {
		return err
	}

	_, err = s.runner.RunCycle(ctx, trigger, tr)
	return err
}

func (s *Scheduler) rangeFor(trigger Trigger) (domain.TimeRange, error) {
	now := s.now()
	if trigger == TriggerMonthly {
		return domain.PreviousMonthRange(now, s.cfg.Location)
	}
	return domain.CurrentMonthRange(now, s.cfg.Location)
}

// submit waits for the queue slot. It reports false when ctx ends first.
func (s *Scheduler) submit(ctx context.Context, j job) bool {
	select {
	case s.queue <- j:
		return true
	case <-ctx.Done():
		metrics.CyclesDroppedTotal.WithLabelValues(string(j.trigger)).Inc()
		return false
	}
}

func (s *Scheduler) intervalLoop(ctx context.Context) {
	if !s.cfg.RunOnStart {
		if !s.pause(ctx) {
			return
		}
	}

	for {
		done := make(chan error, 1)
		if !s.submit(ctx, job{trigger: TriggerInterval, done: done}) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-done:
		}

		if !s.pause(ctx) {
			return
		}
	}
}

// pause sleeps a jittered interval and reports whether ctx is still live.
func (s *Scheduler) pause(ctx context.Context) bool {
	d := s.jitter(s.cfg.MinInterval, s.cfg.MaxInterval)
	next := s.now().Add(d)
	metrics.SchedulerNextCycleTimestamp.WithLabelValues(string(TriggerInterval)).Set(float64(next.Unix()))
	s.log.Info("next interval cycle", "in", d.Round(time.Second), "at", next)
	return s.sleep(ctx, d) == nil
}

// runMonthly is the cron callback.
func (s *Scheduler) runMonthly() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		return
	}

	s.log.Info("monthly cycle requested")
	s.submit(ctx, job{trigger: TriggerMonthly})
	s.syncMonthlyTimestamp()
}

func (s *Scheduler) syncMonthlyTimestamp() {
	if s.monthlyID == 0 {
		return
	}
	if next := s.cron.Entry(s.monthlyID).Next; !next.IsZero() {
		metrics.SchedulerNextCycleTimestamp.WithLabelValues(string(TriggerMonthly)).Set(float64(next.Unix()))
	}
}

func uniformJitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}
