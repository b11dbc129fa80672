package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/KNICEX/price-alert/internal/entity"
	"github.com/samber/lo"
)

// memoryAlertRepo keeps alerts in process memory. Nothing survives a restart,
// so it only backs the single-alert configuration.
type memoryAlertRepo struct {
	mu     sync.RWMutex
	alerts map[int64]entity.Alert
	nextId int64
	now    func() time.Time
}

func NewMemoryAlertRepo(opts ...Option) AlertRepo {
	// reuse the gorm repo options for the clock
	cfg := &alertRepo{now: time.Now}
	for _, opt := range opts {
		opt(cfg)
	}
	return &memoryAlertRepo{
		alerts: make(map[int64]entity.Alert),
		now:    cfg.now,
	}
}

func (r *memoryAlertRepo) Create(ctx context.Context, alert entity.Alert) (int64, error) {
	alert, err := prepareCreate(alert, r.now())
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextId++
	alert.Id = r.nextId
	r.alerts[alert.Id] = alert
	return alert.Id, nil
}

func (r *memoryAlertRepo) Get(ctx context.Context, id int64) (entity.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	alert, ok := r.alerts[id]
	if !ok {
		return entity.Alert{}, ErrAlertNotFound
	}
	return copyAlert(alert), nil
}

func (r *memoryAlertRepo) List(ctx context.Context, filter ListFilter) ([]entity.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	alerts := lo.Filter(lo.Values(r.alerts), func(item entity.Alert, index int) bool {
		if filter.Recipient != "" && item.Recipient != filter.Recipient {
			return false
		}
		if filter.ActiveOnly && !item.IsActive {
			return false
		}
		return true
	})
	sort.Slice(alerts, func(i, j int) bool {
		if !alerts[i].CreatedAt.Equal(alerts[j].CreatedAt) {
			return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
		}
		return alerts[i].Id > alerts[j].Id
	})
	return lo.Map(alerts, func(item entity.Alert, index int) entity.Alert {
		return copyAlert(item)
	}), nil
}

func (r *memoryAlertRepo) Update(ctx context.Context, id int64, patch entity.AlertPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	alert, ok := r.alerts[id]
	if !ok {
		return ErrAlertNotFound
	}
	r.alerts[id] = patch.Apply(alert)
	return nil
}

func (r *memoryAlertRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.alerts[id]; !ok {
		return ErrAlertNotFound
	}
	delete(r.alerts, id)
	return nil
}

func (r *memoryAlertRepo) MarkTriggered(ctx context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	alert, ok := r.alerts[id]
	if !ok {
		return ErrAlertNotFound
	}
	if !alert.IsActive {
		return ErrAlertInactive
	}
	alert.IsActive = false
	alert.TriggeredAt = &at
	r.alerts[id] = alert
	return nil
}

func (r *memoryAlertRepo) Statistics(ctx context.Context) (entity.AlertStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	alerts := lo.Values(r.alerts)
	since := r.now().Add(-RecentWindow)
	stats := entity.AlertStats{
		Total: int64(len(alerts)),
		Active: int64(lo.CountBy(alerts, func(item entity.Alert) bool {
			return item.IsActive
		})),
		Triggered: int64(lo.CountBy(alerts, func(item entity.Alert) bool {
			return item.TriggeredAt != nil
		})),
		RecentWindowCount: int64(lo.CountBy(alerts, func(item entity.Alert) bool {
			return !item.CreatedAt.Before(since)
		})),
		ByAssetClass: make(map[entity.AssetClass]int64),
	}
	for class, n := range lo.CountValuesBy(alerts, func(item entity.Alert) entity.AssetClass {
		return item.AssetClass
	}) {
		stats.ByAssetClass[class] = int64(n)
	}
	return stats, nil
}

// copyAlert detaches the triggered timestamp from the stored value.
func copyAlert(a entity.Alert) entity.Alert {
	if a.TriggeredAt != nil {
		t := *a.TriggeredAt
		a.TriggeredAt = &t
	}
	return a
}
