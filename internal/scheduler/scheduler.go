// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bartek5186/catalog2dw/internal/pipeline"
	"github.com/rs/zerolog"
)

// Runner is the part of pipeline.Runner the scheduler drives.
type Runner interface {
	Run(ctx context.Context, ev *pipeline.Event, names ...string) error
}

// Status is a snapshot of the scheduler state.
type Status struct {
	Running  bool          `json:"running"`
	Interval time.Duration `json:"interval"`
	Ticks    uint64        `json:"ticks"`
	LastRun  time.Time     `json:"last_run,omitempty"`
	LastErr  string        `json:"last_error,omitempty"`
}

// Scheduler runs the full pipeline right after Start and then every interval.
type Scheduler struct {
	log      zerolog.Logger
	runner   Runner
	mu       sync.Mutex
	interval time.Duration
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	ticks    uint64
	lastRun  time.Time
	lastErr  error
}

func New(log zerolog.Logger, runner Runner, interval time.Duration) *Scheduler {
	return &Scheduler{log: log, runner: runner, interval: interval}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	if s.interval <= 0 {
		return errors.New("scheduler: interval must be positive")
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.ticks = 0
	s.wg.Add(1)
	go s.loop(ctx, s.interval)

	s.log.Info().Dur("interval", s.interval).Msg("scheduler started")
	return nil
}

// Stop cancels the loop and waits for an in-flight run to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.log.Info().Msg("scheduler stopped")
}

// UpdateInterval restarts a running loop with the new interval.
func (s *Scheduler) UpdateInterval(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.interval = d
	isRunning := s.running
	s.mu.Unlock()

	if isRunning {
		s.Stop()
		return s.Start(ctx)
	}
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{Running: s.running, Interval: s.interval, Ticks: s.ticks, LastRun: s.lastRun}
	if s.lastErr != nil {
		st.LastErr = s.lastErr.Error()
	}
	return st
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration) {
	defer s.wg.Done()

	s.tickOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tickOnce(ctx)
		}
	}
}

func (s *Scheduler) tickOnce(ctx context.Context) {
	s.mu.Lock()
	s.ticks++
	n := s.ticks
	s.mu.Unlock()

	ev := &pipeline.Event{}
	err := s.runner.Run(ctx, ev, pipeline.Full...)
	switch {
	case errors.Is(err, pipeline.ErrBusy):
		s.log.Warn().Uint64("tick", n).Msg("previous run still in progress, tick skipped")
	case err != nil:
		s.log.Error().Err(err).Uint64("tick", n).Str("run_id", ev.RunID).Msg("scheduled run failed")
	default:
		s.log.Info().Uint64("tick", n).Str("run_id", ev.RunID).Int("loaded", ev.Loaded).Msg("scheduled run done")
	}

	s.mu.Lock()
	s.lastRun = time.Now()
	s.lastErr = err
	s.mu.Unlock()
}
