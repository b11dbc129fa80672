package web

import (
	"time"

	"github.com/KNICEX/price-alert/internal/entity"
	"github.com/KNICEX/price-alert/internal/service/monitor"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type CreateAlertReq struct {
	Symbol           string           `json:"symbol"`
	AssetClass       string           `json:"asset_class"`
	Direction        string           `json:"direction"`
	TargetPrice      *decimal.Decimal `json:"target_price"`
	Recipient        string           `json:"recipient"`
	SecondaryContact string           `json:"secondary_contact"`
	Message          string           `json:"message"`
}

func (r CreateAlertReq) toEntity() (entity.Alert, error) {
	if r.TargetPrice == nil {
		return entity.Alert{}, &entity.ValidationError{Field: "target_price", Reason: "is required"}
	}
	class := entity.AssetClassEquity
	if r.AssetClass != "" {
		var err error
		if class, err = entity.ParseAssetClass(r.AssetClass); err != nil {
			return entity.Alert{}, err
		}
	}
	direction, err := entity.ParseDirection(r.Direction)
	if err != nil {
		return entity.Alert{}, err
	}
	return entity.Alert{
		Symbol:           r.Symbol,
		AssetClass:       class,
		Direction:        direction,
		TargetPrice:      *r.TargetPrice,
		Recipient:        r.Recipient,
		SecondaryContact: r.SecondaryContact,
		Message:          r.Message,
	}, nil
}

type UpdateAlertReq struct {
	TargetPrice      *decimal.Decimal `json:"target_price"`
	Direction        *string          `json:"direction"`
	IsActive         *bool            `json:"is_active"`
	Message          *string          `json:"message"`
	SecondaryContact *string          `json:"secondary_contact"`
}

func (r UpdateAlertReq) toPatch() (entity.AlertPatch, error) {
	patch := entity.AlertPatch{
		TargetPrice:      r.TargetPrice,
		IsActive:         r.IsActive,
		Message:          r.Message,
		SecondaryContact: r.SecondaryContact,
	}
	if r.Direction != nil {
		direction, err := entity.ParseDirection(*r.Direction)
		if err != nil {
			return entity.AlertPatch{}, err
		}
		patch.Direction = &direction
	}
	return patch, nil
}

type AlertVO struct {
	Id               int64             `json:"id"`
	Symbol           string            `json:"symbol"`
	AssetClass       entity.AssetClass `json:"asset_class"`
	Direction        entity.Direction  `json:"direction"`
	TargetPrice      decimal.Decimal   `json:"target_price"`
	Recipient        string            `json:"recipient"`
	SecondaryContact string            `json:"secondary_contact,omitempty"`
	Message          string            `json:"message,omitempty"`
	IsActive         bool              `json:"is_active"`
	CreatedAt        time.Time         `json:"created_at"`
	TriggeredAt      *time.Time        `json:"triggered_at"`
}

func toAlertVO(a entity.Alert) AlertVO {
	return AlertVO{
		Id:               a.Id,
		Symbol:           a.Symbol,
		AssetClass:       a.AssetClass,
		Direction:        a.Direction,
		TargetPrice:      a.TargetPrice,
		Recipient:        a.Recipient,
		SecondaryContact: a.SecondaryContact,
		Message:          a.Message,
		IsActive:         a.IsActive,
		CreatedAt:        a.CreatedAt,
		TriggeredAt:      a.TriggeredAt,
	}
}

func toAlertVOs(alerts []entity.Alert) []AlertVO {
	return lo.Map(alerts, func(item entity.Alert, index int) AlertVO {
		return toAlertVO(item)
	})
}

type StartMonitoringReq struct {
	IntervalMinutes *float64 `json:"interval_minutes"`
}

type CycleVO struct {
	Id           string  `json:"id"`
	Active       int     `json:"active"`
	Triggered    int     `json:"triggered"`
	NotTriggered int     `json:"not_triggered"`
	Skipped      int     `json:"skipped"`
	Failed       int     `json:"failed"`
	Interrupted  bool    `json:"interrupted"`
	DurationSec  float64 `json:"duration_seconds"`
}

type StatusVO struct {
	Running         bool       `json:"running"`
	IntervalSeconds float64    `json:"interval_seconds"`
	StartedAt       *time.Time `json:"started_at"`
	Cycles          int64      `json:"cycles"`
	LastCycleAt     *time.Time `json:"last_cycle_at"`
	LastCycleError  string     `json:"last_cycle_error,omitempty"`
	LastCycle       *CycleVO   `json:"last_cycle,omitempty"`
}

func toStatusVO(st monitor.Status) StatusVO {
	vo := StatusVO{
		Running:         st.Running,
		IntervalSeconds: st.Interval.Seconds(),
		Cycles:          st.Cycles,
		LastCycleError:  st.LastCycleError,
	}
	if !st.StartedAt.IsZero() {
		vo.StartedAt = lo.ToPtr(st.StartedAt)
	}
	if !st.LastCycleAt.IsZero() {
		vo.LastCycleAt = lo.ToPtr(st.LastCycleAt)
	}
	if r := st.LastReport; r.Id != "" {
		vo.LastCycle = &CycleVO{
			Id:           r.Id,
			Active:       r.Active,
			Triggered:    r.Triggered,
			NotTriggered: r.NotTriggered,
			Skipped:      r.Skipped,
			Failed:       r.Failed,
			Interrupted:  r.Interrupted,
			DurationSec:  r.Duration.Seconds(),
		}
	}
	return vo
}
