package monitor

import (
	"context"

	"github.com/KNICEX/price-alert/internal/entity"
)

// Outcome is the result of evaluating one alert once.
type Outcome int

const (
	// OutcomeSkipped means no decision was possible: the alert was inactive,
	// gone, or the price could not be fetched.
	OutcomeSkipped Outcome = iota
	// OutcomeNotTriggered means the condition did not hold, or it held but the
	// notification could not be delivered.
	OutcomeNotTriggered
	// OutcomeTriggered means the notification was delivered and the alert
	// deactivated.
	OutcomeTriggered
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeNotTriggered:
		return "not_triggered"
	case OutcomeTriggered:
		return "triggered"
	default:
		return "unknown"
	}
}

type Evaluator interface {
	Evaluate(ctx context.Context, alert entity.Alert) (Outcome, error)
}
