package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/KNICEX/price-alert/internal/entity"
	"github.com/KNICEX/price-alert/internal/repo"
	"github.com/KNICEX/price-alert/internal/schedule"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var _ schedule.Task = (*AlertCheckTask)(nil)

// DefaultCourtesyDelay spaces out price lookups within one cycle.
const DefaultCourtesyDelay = time.Second

// CycleReport summarises the last completed cycle.
type CycleReport struct {
	Id           string
	Active       int
	Triggered    int
	NotTriggered int
	Skipped      int
	Failed       int
	Interrupted  bool
	Duration     time.Duration
}

// Remaining is the number of alerts still active after the cycle.
func (r CycleReport) Remaining() int {
	return r.Active - r.Triggered
}

// AlertCheckTask is one pass over every active alert.
type AlertCheckTask struct {
	repo      repo.AlertRepo
	evaluator Evaluator
	limiter   *rate.Limiter
	logger    *zap.Logger

	mu   sync.Mutex
	last CycleReport
}

func NewAlertCheckTask(alertRepo repo.AlertRepo, evaluator Evaluator, delay time.Duration, logger *zap.Logger) *AlertCheckTask {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &AlertCheckTask{
		repo:      alertRepo,
		evaluator: evaluator,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger,
	}
}

func (t *AlertCheckTask) Name() string {
	return "price alert check task"
}

// Run evaluates the active alerts one after another. Only a failure to list
// the alerts is returned, per-alert problems are logged.
func (t *AlertCheckTask) Run(ctx context.Context) error {
	start := time.Now()
	report := CycleReport{Id: uuid.NewString()}
	logger := t.logger.With(zap.String("cycle_id", report.Id))

	alerts, err := t.repo.List(ctx, repo.ListFilter{ActiveOnly: true})
	if err != nil {
		cyclesTotal.WithLabelValues("storage_error").Inc()
		return fmt.Errorf("list active alerts: %w", err)
	}
	report.Active = len(alerts)
	logger.Info("monitoring cycle started", zap.Int("active_alerts", len(alerts)))

	for _, alert := range alerts {
		if ctx.Err() != nil {
			report.Interrupted = true
			break
		}
		if err = t.limiter.Wait(ctx); err != nil {
			report.Interrupted = true
			break
		}

		outcome, err := t.evaluateSafely(ctx, alert)
		if err != nil {
			report.Failed++
			logger.Error("evaluate alert failed", zap.Int64("alert_id", alert.Id), zap.Error(err))
		}
		switch outcome {
		case OutcomeTriggered:
			report.Triggered++
		case OutcomeNotTriggered:
			report.NotTriggered++
		default:
			report.Skipped++
		}
	}

	report.Duration = time.Since(start)
	cycleDurationSeconds.Observe(report.Duration.Seconds())
	if report.Interrupted {
		cyclesTotal.WithLabelValues("interrupted").Inc()
	} else {
		cyclesTotal.WithLabelValues("completed").Inc()
	}

	t.mu.Lock()
	t.last = report
	t.mu.Unlock()

	logger.Info("monitoring cycle finished",
		zap.Int("triggered", report.Triggered),
		zap.Int("not_triggered", report.NotTriggered),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Bool("interrupted", report.Interrupted),
		zap.Duration("duration", report.Duration))
	return nil
}

func (t *AlertCheckTask) LastReport() CycleReport {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// evaluateSafely keeps a panicking evaluation from ending the cycle.
func (t *AlertCheckTask) evaluateSafely(ctx context.Context, alert entity.Alert) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomeSkipped
			err = fmt.Errorf("panic evaluating alert %d: %v", alert.Id, r)
		}
	}()
	return t.evaluator.Evaluate(ctx, alert)
}
