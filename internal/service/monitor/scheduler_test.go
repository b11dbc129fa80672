package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KNICEX/price-alert/internal/entity"
	"github.com/KNICEX/price-alert/internal/repo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// evaluatorFunc adapts a function to Evaluator.
type evaluatorFunc func(ctx context.Context, alert entity.Alert) (Outcome, error)

func (f evaluatorFunc) Evaluate(ctx context.Context, alert entity.Alert) (Outcome, error) {
	return f(ctx, alert)
}

type countingEvaluator struct {
	calls    atomic.Int64
	inFlight atomic.Int64
	maxSeen  atomic.Int64
}

func (c *countingEvaluator) Evaluate(ctx context.Context, alert entity.Alert) (Outcome, error) {
	c.calls.Add(1)
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		seen := c.maxSeen.Load()
		if n <= seen || c.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	return OutcomeNotTriggered, nil
}

func seedAlerts(t *testing.T, alertRepo repo.AlertRepo, n int) []int64 {
	t.Helper()
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, newXAB(t, alertRepo).Id)
	}
	return ids
}

func TestScheduler_StartIsIdempotent(t *testing.T) {
	alertRepo := repo.NewMemoryAlertRepo()
	seedAlerts(t, alertRepo, 2)
	eval := &countingEvaluator{}
	s := NewScheduler(alertRepo, eval, zap.NewNop(), WithCourtesyDelay(0))

	started, err := s.Start(10 * time.Millisecond)
	require.NoError(t, err)
	assert.True(t, started)

	started, err = s.Start(10 * time.Millisecond)
	require.NoError(t, err)
	assert.False(t, started)

	require.Eventually(t, func() bool {
		return s.Status().Cycles >= 3
	}, 2*time.Second, 5*time.Millisecond)
	s.Stop()

	assert.Equal(t, int64(1), eval.maxSeen.Load())
	st := s.Status()
	assert.False(t, st.Running)
	assert.Equal(t, 10*time.Millisecond, st.Interval)
	assert.Empty(t, st.LastCycleError)
	assert.Equal(t, 2, st.LastReport.Active)
}

func TestScheduler_InvalidInterval(t *testing.T) {
	s := NewScheduler(repo.NewMemoryAlertRepo(), &countingEvaluator{}, zap.NewNop())
	_, err := s.Start(0)
	assert.ErrorIs(t, err, ErrInvalidInterval)
	_, err = s.Start(-time.Second)
	assert.ErrorIs(t, err, ErrInvalidInterval)
	_, err = s.Start(MaxInterval + time.Second)
	assert.ErrorIs(t, err, ErrInvalidInterval)
	assert.False(t, s.Status().Running)
}

func TestScheduler_StopIsResponsive(t *testing.T) {
	alertRepo := repo.NewMemoryAlertRepo()
	seedAlerts(t, alertRepo, 1)
	s := NewScheduler(alertRepo, &countingEvaluator{}, zap.NewNop(), WithCourtesyDelay(0))

	// never started
	s.Stop()

	_, err := s.Start(time.Hour)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return s.Status().Cycles >= 1
	}, 2*time.Second, 5*time.Millisecond)

	begin := time.Now()
	s.Stop()
	assert.Less(t, time.Since(begin), time.Second)
	s.Stop()

	select {
	case <-s.Done():
	default:
		t.Fatal("loop still running after Stop")
	}

	// can be started again
	started, err := s.Start(time.Hour)
	require.NoError(t, err)
	assert.True(t, started)
	s.Stop()
}

func TestScheduler_StartWhileStopping(t *testing.T) {
	alertRepo := repo.NewMemoryAlertRepo()
	seedAlerts(t, alertRepo, 1)

	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	eval := evaluatorFunc(func(ctx context.Context, alert entity.Alert) (Outcome, error) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		return OutcomeNotTriggered, nil
	})
	s := NewScheduler(alertRepo, eval, zap.NewNop(),
		WithCourtesyDelay(0), WithStopTimeout(20*time.Millisecond))

	_, err := s.Start(time.Hour)
	require.NoError(t, err)
	<-entered

	s.Stop()
	assert.False(t, s.Status().Running)
	_, err = s.Start(time.Hour)
	assert.ErrorIs(t, err, ErrSchedulerStopping)

	close(release)
	<-s.Done()
	started, err := s.Start(time.Hour)
	require.NoError(t, err)
	assert.True(t, started)
	s.Stop()
}

func TestScheduler_BacksOffOnStorageFailure(t *testing.T) {
	alertRepo := &failingRepo{AlertRepo: repo.NewMemoryAlertRepo(), listErr: repo.ErrStorage}
	s := NewScheduler(alertRepo, &countingEvaluator{}, zap.NewNop(), WithBackoff(time.Hour))

	_, err := s.Start(time.Millisecond)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return s.Status().Cycles >= 1
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	st := s.Status()
	assert.True(t, st.Running)
	assert.Equal(t, int64(1), st.Cycles)
	assert.Contains(t, st.LastCycleError, repo.ErrStorage.Error())
	s.Stop()
}

func TestScheduler_StopWhenDrained(t *testing.T) {
	alertRepo := repo.NewMemoryAlertRepo()
	alert := newXAB(t, alertRepo)

	o := &mockOracle{}
	o.On("CurrentPrice", mock.Anything, "XAB", entity.AssetClassCrypto).Return(decimal.NewFromInt(9), nil).Twice()
	o.On("CurrentPrice", mock.Anything, "XAB", entity.AssetClassCrypto).Return(decimal.NewFromInt(11), nil)
	d := &mockDispatcher{}
	d.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	engine := newTestEngine(alertRepo, o, d)
	s := NewScheduler(alertRepo, engine, zap.NewNop(), WithCourtesyDelay(0), WithStopWhenDrained())

	_, err := s.Start(5 * time.Millisecond)
	require.NoError(t, err)
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop after the alert triggered")
	}

	st := s.Status()
	assert.False(t, st.Running)
	assert.Equal(t, int64(3), st.Cycles)
	after, err := alertRepo.Get(context.Background(), alert.Id)
	require.NoError(t, err)
	assert.False(t, after.IsActive)
	d.AssertNumberOfCalls(t, "Send", 1)
}

func TestScheduler_CheckNow(t *testing.T) {
	ctx := context.Background()
	alertRepo := repo.NewMemoryAlertRepo()
	alert := newXAB(t, alertRepo)

	o := &mockOracle{}
	o.On("CurrentPrice", mock.Anything, mock.Anything, mock.Anything).Return(decimal.NewFromInt(12), nil)
	d := &mockDispatcher{}
	d.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	s := NewScheduler(alertRepo, newTestEngine(alertRepo, o, d), zap.NewNop())

	_, err := s.CheckNow(ctx, 404)
	assert.ErrorIs(t, err, repo.ErrAlertNotFound)

	triggered, err := s.CheckNow(ctx, alert.Id)
	require.NoError(t, err)
	assert.True(t, triggered)

	_, err = s.CheckNow(ctx, alert.Id)
	assert.ErrorIs(t, err, repo.ErrAlertInactive)
	d.AssertNumberOfCalls(t, "Send", 1)
}

func TestAlertCheckTask_IsolatesPanics(t *testing.T) {
	alertRepo := repo.NewMemoryAlertRepo()
	ids := seedAlerts(t, alertRepo, 3)

	var mu sync.Mutex
	var evaluated []int64
	eval := evaluatorFunc(func(ctx context.Context, alert entity.Alert) (Outcome, error) {
		mu.Lock()
		evaluated = append(evaluated, alert.Id)
		mu.Unlock()
		if alert.Id == ids[1] {
			panic("boom")
		}
		return OutcomeNotTriggered, nil
	})

	task := NewAlertCheckTask(alertRepo, eval, 0, zap.NewNop())
	require.NoError(t, task.Run(context.Background()))
	assert.ElementsMatch(t, ids, evaluated)

	report := task.LastReport()
	assert.Equal(t, 3, report.Active)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, report.NotTriggered)
	assert.Equal(t, 1, report.Skipped)
	assert.NotEmpty(t, report.Id)
}

func TestAlertCheckTask_CourtesyDelay(t *testing.T) {
	alertRepo := repo.NewMemoryAlertRepo()
	seedAlerts(t, alertRepo, 3)
	task := NewAlertCheckTask(alertRepo, &countingEvaluator{}, 30*time.Millisecond, zap.NewNop())

	begin := time.Now()
	require.NoError(t, task.Run(context.Background()))
	assert.GreaterOrEqual(t, time.Since(begin), 55*time.Millisecond)
}

func TestAlertCheckTask_Cancelled(t *testing.T) {
	alertRepo := repo.NewMemoryAlertRepo()
	seedAlerts(t, alertRepo, 3)
	eval := &countingEvaluator{}
	task := NewAlertCheckTask(alertRepo, eval, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	require.NoError(t, task.Run(ctx))
	assert.Equal(t, int64(1), eval.calls.Load())
	assert.True(t, task.LastReport().Interrupted)
}

func TestAlertCheckTask_ListFailure(t *testing.T) {
	alertRepo := &failingRepo{AlertRepo: repo.NewMemoryAlertRepo(), listErr: repo.ErrStorage}
	task := NewAlertCheckTask(alertRepo, &countingEvaluator{}, 0, zap.NewNop())
	assert.ErrorIs(t, task.Run(context.Background()), repo.ErrStorage)
	assert.Equal(t, "price alert check task", task.Name())
}
