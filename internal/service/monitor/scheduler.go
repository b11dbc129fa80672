package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/KNICEX/price-alert/internal/repo"
	"go.uber.org/zap"
)

const (
	DefaultInterval    = 5 * time.Minute
	DefaultBackoff     = 60 * time.Second
	DefaultStopTimeout = 10 * time.Second
	MaxInterval        = 7 * 24 * time.Hour
)

var (
	ErrInvalidInterval = errors.New("interval must be positive and at most one week")
	// ErrSchedulerStopping is returned by Start while the previous loop has
	// not exited yet.
	ErrSchedulerStopping = errors.New("scheduler is still stopping")
)

type Status struct {
	Running        bool
	Interval       time.Duration
	StartedAt      time.Time
	Cycles         int64
	LastCycleAt    time.Time
	LastCycleError string
	LastReport     CycleReport
}

// Scheduler runs the alert check task in a single background loop.
type Scheduler struct {
	repo      repo.AlertRepo
	evaluator Evaluator
	task      *AlertCheckTask
	logger    *zap.Logger

	courtesyDelay   time.Duration
	backoff         time.Duration
	stopTimeout     time.Duration
	stopWhenDrained bool

	mu           sync.Mutex
	cancel       context.CancelFunc
	done         chan struct{}
	interval     time.Duration
	startedAt    time.Time
	cycles       int64
	lastCycleAt  time.Time
	lastCycleErr error
}

type SchedulerOption func(s *Scheduler)

func WithCourtesyDelay(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.courtesyDelay = d
	}
}

// WithBackoff sets the pause after a cycle that could not list the alerts.
func WithBackoff(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.backoff = d
	}
}

func WithStopTimeout(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.stopTimeout = d
	}
}

// WithStopWhenDrained ends the loop after a cycle that leaves no active alert.
func WithStopWhenDrained() SchedulerOption {
	return func(s *Scheduler) {
		s.stopWhenDrained = true
	}
}

func NewScheduler(alertRepo repo.AlertRepo, evaluator Evaluator, logger *zap.Logger, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		repo:          alertRepo,
		evaluator:     evaluator,
		logger:        logger,
		courtesyDelay: DefaultCourtesyDelay,
		backoff:       DefaultBackoff,
		stopTimeout:   DefaultStopTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.task = NewAlertCheckTask(alertRepo, evaluator, s.courtesyDelay, logger)
	return s
}

// Start launches the loop. It reports false without error when the loop is
// already running.
func (s *Scheduler) Start(interval time.Duration) (bool, error) {
	if interval <= 0 || interval > MaxInterval {
		return false, ErrInvalidInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return false, nil
	}
	if s.done != nil {
		return false, ErrSchedulerStopping
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.interval = interval
	s.startedAt = time.Now()
	s.cycles = 0
	s.lastCycleAt = time.Time{}
	s.lastCycleErr = nil

	go func() {
		defer s.exited(done)
		s.loop(ctx, interval)
	}()
	s.logger.Info("monitoring started", zap.Duration("interval", interval))
	return true, nil
}

// Stop cancels the loop and waits for it up to the stop timeout.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	select {
	case <-done:
		s.logger.Info("monitoring stopped")
	case <-time.After(s.stopTimeout):
		s.logger.Warn("timeout stopping monitoring loop", zap.Duration("timeout", s.stopTimeout))
	}
}

// Done is closed when the current loop exits. It is already closed when no
// loop runs.
func (s *Scheduler) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.done
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Running:     s.cancel != nil,
		Interval:    s.interval,
		StartedAt:   s.startedAt,
		Cycles:      s.cycles,
		LastCycleAt: s.lastCycleAt,
		LastReport:  s.task.LastReport(),
	}
	if s.lastCycleErr != nil {
		st.LastCycleError = s.lastCycleErr.Error()
	}
	return st
}

// CheckNow evaluates one alert immediately, whether or not the loop runs. It
// waits only if the loop is evaluating the same alert at that moment.
func (s *Scheduler) CheckNow(ctx context.Context, id int64) (bool, error) {
	alert, err := s.repo.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if !alert.IsActive {
		return false, repo.ErrAlertInactive
	}
	outcome, err := s.evaluator.Evaluate(ctx, alert)
	if err != nil {
		return false, err
	}
	return outcome == OutcomeTriggered, nil
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration) {
	for {
		err := s.task.Run(ctx)
		s.recordCycle(err)
		if ctx.Err() != nil {
			return
		}

		wait := interval
		if err != nil {
			s.logger.Error("monitoring cycle failed, backing off",
				zap.Error(err), zap.Duration("backoff", s.backoff))
			wait = s.backoff
		} else if s.stopWhenDrained && s.task.LastReport().Remaining() <= 0 {
			s.logger.Info("no active alerts left, monitoring finished")
			return
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (s *Scheduler) recordCycle(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycles++
	s.lastCycleAt = time.Now()
	s.lastCycleErr = err
}

// exited clears the loop state unless a newer loop already replaced it.
func (s *Scheduler) exited(done chan struct{}) {
	s.mu.Lock()
	if s.done == done {
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		s.done = nil
	}
	s.mu.Unlock()
	close(done)
}
