package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KNICEX/price-alert/internal/entity"
	"gorm.io/gorm"
)

// RecentWindow is the creation window counted by Statistics.
const RecentWindow = 7 * 24 * time.Hour

type ListFilter struct {
	Recipient  string
	ActiveOnly bool
}

type AlertRepo interface {
	Create(ctx context.Context, alert entity.Alert) (int64, error)
	Get(ctx context.Context, id int64) (entity.Alert, error)
	// List returns alerts most recently created first.
	List(ctx context.Context, filter ListFilter) ([]entity.Alert, error)
	Update(ctx context.Context, id int64, patch entity.AlertPatch) error
	Delete(ctx context.Context, id int64) error
	// MarkTriggered deactivates an active alert and records when it fired.
	MarkTriggered(ctx context.Context, id int64, at time.Time) error
	Statistics(ctx context.Context) (entity.AlertStats, error)
}

type Option func(r *alertRepo)

// WithClock replaces time.Now, used for created_at and the statistics window.
func WithClock(now func() time.Time) Option {
	return func(r *alertRepo) {
		r.now = now
	}
}

type alertRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAlertRepo(db *gorm.DB, opts ...Option) AlertRepo {
	r := &alertRepo{
		db:  db,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// prepareCreate normalises and validates a new alert and sets the fields the
// store owns.
func prepareCreate(alert entity.Alert, now time.Time) (entity.Alert, error) {
	alert.Normalize()
	if err := alert.Validate(); err != nil {
		return entity.Alert{}, err
	}
	alert.Id = 0
	alert.IsActive = true
	alert.TriggeredAt = nil
	alert.CreatedAt = now
	return alert, nil
}

func (r *alertRepo) Create(ctx context.Context, alert entity.Alert) (int64, error) {
	alert, err := prepareCreate(alert, r.now())
	if err != nil {
		return 0, err
	}
	if err = r.db.WithContext(ctx).Create(&alert).Error; err != nil {
		return 0, fmt.Errorf("%w: create alert: %w", ErrStorage, err)
	}
	return alert.Id, nil
}

func (r *alertRepo) Get(ctx context.Context, id int64) (entity.Alert, error) {
	var alert entity.Alert
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&alert).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.Alert{}, ErrAlertNotFound
		}
		return entity.Alert{}, fmt.Errorf("%w: get alert %d: %w", ErrStorage, id, err)
	}
	return alert, nil
}

func (r *alertRepo) List(ctx context.Context, filter ListFilter) ([]entity.Alert, error) {
	query := r.db.WithContext(ctx).Model(&entity.Alert{})
	if filter.Recipient != "" {
		query = query.Where("recipient = ?", filter.Recipient)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var alerts []entity.Alert
	err := query.Order("created_at DESC").Order("id DESC").Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list alerts: %w", ErrStorage, err)
	}
	return alerts, nil
}

func (r *alertRepo) Update(ctx context.Context, id int64, patch entity.AlertPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var alert entity.Alert
		if err := tx.Select("id").Where("id = ?", id).First(&alert).Error; err != nil {
			return err
		}
		return tx.Model(&entity.Alert{}).Where("id = ?", id).Updates(patch.Columns()).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAlertNotFound
		}
		return fmt.Errorf("%w: update alert %d: %w", ErrStorage, id, err)
	}
	return nil
}

func (r *alertRepo) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Alert{})
	if res.Error != nil {
		return fmt.Errorf("%w: delete alert %d: %w", ErrStorage, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAlertNotFound
	}
	return nil
}

func (r *alertRepo) MarkTriggered(ctx context.Context, id int64, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&entity.Alert{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]any{
			"is_active":    false,
			"triggered_at": at,
		})
	if res.Error != nil {
		return fmt.Errorf("%w: mark alert %d triggered: %w", ErrStorage, id, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// nothing updated, tell a missing alert apart from an inactive one
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return ErrAlertInactive
}

func (r *alertRepo) Statistics(ctx context.Context) (entity.AlertStats, error) {
	stats := entity.AlertStats{
		ByAssetClass: make(map[entity.AssetClass]int64),
	}
	db := r.db.WithContext(ctx).Model(&entity.Alert{})

	if err := db.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		return entity.AlertStats{}, fmt.Errorf("%w: count alerts: %w", ErrStorage, err)
	}
	if err := db.Session(&gorm.Session{}).Where("is_active = ?", true).Count(&stats.Active).Error; err != nil {
		return entity.AlertStats{}, fmt.Errorf("%w: count active alerts: %w", ErrStorage, err)
	}
	if err := db.Session(&gorm.Session{}).Where("triggered_at IS NOT NULL").Count(&stats.Triggered).Error; err != nil {
		return entity.AlertStats{}, fmt.Errorf("%w: count triggered alerts: %w", ErrStorage, err)
	}
	since := r.now().Add(-RecentWindow)
	if err := db.Session(&gorm.Session{}).Where("created_at >= ?", since).Count(&stats.RecentWindowCount).Error; err != nil {
		return entity.AlertStats{}, fmt.Errorf("%w: count recent alerts: %w", ErrStorage, err)
	}

	var groups []struct {
		AssetClass entity.AssetClass
		Count      int64
	}
	err := db.Session(&gorm.Session{}).
		Select("asset_class, COUNT(*) AS count").
		Group("asset_class").
		Scan(&groups).Error
	if err != nil {
		return entity.AlertStats{}, fmt.Errorf("%w: group alerts: %w", ErrStorage, err)
	}
	for _, g := range groups {
		stats.ByAssetClass[g.AssetClass] = g.Count
	}
	return stats, nil
}
