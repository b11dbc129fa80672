package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/KNICEX/price-alert/internal/entity"
	"github.com/KNICEX/price-alert/internal/repo"
	"github.com/KNICEX/price-alert/internal/service/notification"
	"github.com/KNICEX/price-alert/internal/service/oracle"
	"github.com/KNICEX/price-alert/pkg/decimalx"
	"go.uber.org/zap"
)

var _ Evaluator = (*Engine)(nil)

// markTimeout bounds the trigger write-back once the notification is out.
const markTimeout = 5 * time.Second

// Engine evaluates single alerts. The monitoring loop and manual checks share
// one Engine; evaluations of the same alert never overlap, different alerts
// may be evaluated concurrently.
type Engine struct {
	locks      *alertLocks
	repo       repo.AlertRepo
	oracle     oracle.PriceOracle
	dispatcher notification.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

type EngineOption func(e *Engine)

func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(alertRepo repo.AlertRepo, priceOracle oracle.PriceOracle, dispatcher notification.Dispatcher,
	logger *zap.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		locks:      newAlertLocks(),
		repo:       alertRepo,
		oracle:     priceOracle,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate fetches the price for alert and, when the condition holds,
// dispatches the notification and deactivates the alert. The returned error is
// only set for store failures around the trigger transition.
func (e *Engine) Evaluate(ctx context.Context, alert entity.Alert) (Outcome, error) {
	unlock := e.locks.lock(alert.Id)
	defer unlock()

	outcome, err := e.evaluate(ctx, alert)
	evaluationsTotal.WithLabelValues(outcome.String()).Inc()
	return outcome, err
}

func (e *Engine) evaluate(ctx context.Context, alert entity.Alert) (Outcome, error) {
	logger := e.logger.With(zap.Int64("alert_id", alert.Id), zap.String("symbol", alert.Symbol))
	if !alert.IsActive {
		return OutcomeSkipped, nil
	}

	price, err := e.oracle.CurrentPrice(ctx, alert.Symbol, alert.AssetClass)
	if err != nil {
		logger.Warn("price unavailable, alert skipped", zap.Error(err))
		return OutcomeSkipped, nil
	}
	if !alert.Direction.Reached(price, alert.TargetPrice) {
		logger.Debug("condition not met",
			zap.String("price", decimalx.FormatPrice(price)),
			zap.String("direction", string(alert.Direction)),
			zap.String("target", decimalx.FormatPrice(alert.TargetPrice)))
		return OutcomeNotTriggered, nil
	}

	// the copy may predate a manual check or an update
	current, err := e.repo.Get(ctx, alert.Id)
	if err != nil {
		if errors.Is(err, repo.ErrAlertNotFound) {
			logger.Info("alert deleted before dispatch")
			return OutcomeSkipped, nil
		}
		return OutcomeSkipped, fmt.Errorf("reload alert %d: %w", alert.Id, err)
	}
	if !current.IsActive {
		return OutcomeSkipped, nil
	}
	if !current.Direction.Reached(price, current.TargetPrice) {
		return OutcomeNotTriggered, nil
	}

	// past this point a stop must not split the send from its write-back
	ctx = context.WithoutCancel(ctx)
	if err = e.dispatcher.Send(ctx, current, price); err != nil {
		dispatchFailuresTotal.WithLabelValues(dispatchFailureReason(err)).Inc()
		logger.Error("dispatch failed, alert stays active", zap.Error(err))
		return OutcomeNotTriggered, nil
	}

	markCtx, cancel := context.WithTimeout(ctx, markTimeout)
	defer cancel()
	err = e.repo.MarkTriggered(markCtx, current.Id, e.now())
	switch {
	case err == nil:
		logger.Info("alert triggered",
			zap.String("price", decimalx.FormatPrice(price)),
			zap.String("target", decimalx.FormatPrice(current.TargetPrice)))
		return OutcomeTriggered, nil
	case errors.Is(err, repo.ErrAlertInactive), errors.Is(err, repo.ErrAlertNotFound):
		logger.Warn("alert changed while dispatching", zap.Error(err))
		return OutcomeTriggered, nil
	default:
		logger.Error("notification sent but trigger not recorded", zap.Error(err))
		return OutcomeNotTriggered, fmt.Errorf("mark alert %d triggered: %w", current.Id, err)
	}
}

// alertLocks hands out one mutex per alert id, dropped when unused.
type alertLocks struct {
	mu    sync.Mutex
	locks map[int64]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newAlertLocks() *alertLocks {
	return &alertLocks{locks: make(map[int64]*refMutex)}
}

func (l *alertLocks) lock(id int64) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &refMutex{}
		l.locks[id] = m
	}
	m.refs++
	l.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		l.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
