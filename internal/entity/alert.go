package entity

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type AssetClass string

const (
	AssetClassEquity AssetClass = "equity"
	AssetClassCrypto AssetClass = "crypto"
)

// ParseAssetClass accepts "stock" as an alias of equity.
func ParseAssetClass(s string) (AssetClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "equity", "stock":
		return AssetClassEquity, nil
	case "crypto":
		return AssetClassCrypto, nil
	default:
		return "", &ValidationError{Field: "asset_class", Reason: fmt.Sprintf("unknown asset class %q", s)}
	}
}

func (c AssetClass) Valid() bool {
	return c == AssetClassEquity || c == AssetClassCrypto
}

type Direction string

const (
	DirectionAbove Direction = "above"
	DirectionBelow Direction = "below"
)

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "above":
		return DirectionAbove, nil
	case "below":
		return DirectionBelow, nil
	default:
		return "", &ValidationError{Field: "direction", Reason: fmt.Sprintf("unknown direction %q", s)}
	}
}

func (d Direction) Valid() bool {
	return d == DirectionAbove || d == DirectionBelow
}

// Reached reports whether price satisfies the trigger condition against target.
func (d Direction) Reached(price, target decimal.Decimal) bool {
	switch d {
	case DirectionAbove:
		return price.GreaterThanOrEqual(target)
	case DirectionBelow:
		return price.LessThanOrEqual(target)
	default:
		return false
	}
}

// symbolPattern covers exchange tickers such as BRK.B, ^GSPC, EURUSD=X and BTC/USDT.
var symbolPattern = regexp.MustCompile(`^[A-Z0-9.\-^=/]{1,20}$`)

// Alert 价格提醒
type Alert struct {
	Id               int64           `gorm:"primaryKey;autoIncrement"`
	Symbol           string          `gorm:"index;not null"`
	AssetClass       AssetClass      `gorm:"index;not null"`
	Direction        Direction       `gorm:"not null"`
	TargetPrice      decimal.Decimal `gorm:"not null"`
	Recipient        string          `gorm:"index;not null"`
	SecondaryContact string
	Message          string
	IsActive         bool       `gorm:"index"`
	CreatedAt        time.Time  `gorm:"index"`
	TriggeredAt      *time.Time // only set by a successful evaluation
}

func (Alert) TableName() string {
	return "alerts"
}

// Normalize upper-cases the symbol and trims free-text fields.
func (a *Alert) Normalize() {
	a.Symbol = strings.ToUpper(strings.TrimSpace(a.Symbol))
	a.Recipient = strings.TrimSpace(a.Recipient)
	a.SecondaryContact = strings.TrimSpace(a.SecondaryContact)
	a.Message = strings.TrimSpace(a.Message)
}

func (a *Alert) Validate() error {
	if a.Symbol == "" {
		return &ValidationError{Field: "symbol", Reason: "required"}
	}
	if !symbolPattern.MatchString(a.Symbol) {
		return &ValidationError{Field: "symbol", Reason: fmt.Sprintf("malformed symbol %q", a.Symbol)}
	}
	if !a.AssetClass.Valid() {
		return &ValidationError{Field: "asset_class", Reason: fmt.Sprintf("unknown asset class %q", a.AssetClass)}
	}
	if !a.Direction.Valid() {
		return &ValidationError{Field: "direction", Reason: fmt.Sprintf("unknown direction %q", a.Direction)}
	}
	if !a.TargetPrice.IsPositive() {
		return &ValidationError{Field: "target_price", Reason: "must be positive"}
	}
	if a.Recipient == "" {
		return &ValidationError{Field: "recipient", Reason: "required"}
	}
	return nil
}

// Triggered reports whether the alert was deactivated by a successful evaluation.
func (a *Alert) Triggered() bool {
	return !a.IsActive && a.TriggeredAt != nil
}

// AlertPatch 部分更新, nil 字段保持不变
type AlertPatch struct {
	TargetPrice      *decimal.Decimal
	Direction        *Direction
	IsActive         *bool
	Message          *string
	SecondaryContact *string
}

func (p AlertPatch) IsEmpty() bool {
	return p.TargetPrice == nil && p.Direction == nil && p.IsActive == nil &&
		p.Message == nil && p.SecondaryContact == nil
}

func (p AlertPatch) Validate() error {
	if p.IsEmpty() {
		return &ValidationError{Reason: "no fields to update"}
	}
	if p.TargetPrice != nil && !p.TargetPrice.IsPositive() {
		return &ValidationError{Field: "target_price", Reason: "must be positive"}
	}
	if p.Direction != nil && !p.Direction.Valid() {
		return &ValidationError{Field: "direction", Reason: fmt.Sprintf("unknown direction %q", *p.Direction)}
	}
	return nil
}

// Columns returns the column values the patch changes. Reactivating an alert
// clears triggered_at so that a triggered timestamp always implies inactive.
func (p AlertPatch) Columns() map[string]any {
	cols := make(map[string]any)
	if p.TargetPrice != nil {
		cols["target_price"] = *p.TargetPrice
	}
	if p.Direction != nil {
		cols["direction"] = *p.Direction
	}
	if p.IsActive != nil {
		cols["is_active"] = *p.IsActive
		if *p.IsActive {
			cols["triggered_at"] = nil
		}
	}
	if p.Message != nil {
		cols["message"] = strings.TrimSpace(*p.Message)
	}
	if p.SecondaryContact != nil {
		cols["secondary_contact"] = strings.TrimSpace(*p.SecondaryContact)
	}
	return cols
}

// Apply merges the patch into a copy of a.
func (p AlertPatch) Apply(a Alert) Alert {
	if p.TargetPrice != nil {
		a.TargetPrice = *p.TargetPrice
	}
	if p.Direction != nil {
		a.Direction = *p.Direction
	}
	if p.IsActive != nil {
		a.IsActive = *p.IsActive
		if a.IsActive {
			a.TriggeredAt = nil
		}
	}
	if p.Message != nil {
		a.Message = strings.TrimSpace(*p.Message)
	}
	if p.SecondaryContact != nil {
		a.SecondaryContact = strings.TrimSpace(*p.SecondaryContact)
	}
	return a
}

// AlertStats 提醒统计
type AlertStats struct {
	Total             int64                `json:"total"`
	Active            int64                `json:"active"`
	Triggered         int64                `json:"triggered"`
	ByAssetClass      map[AssetClass]int64 `json:"by_asset_class"`
	RecentWindowCount int64                `json:"recent_window_count"`
}
