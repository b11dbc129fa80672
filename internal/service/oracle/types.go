package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/KNICEX/price-alert/internal/entity"
	"github.com/shopspring/decimal"
)

// ErrPriceUnavailable wraps every lookup failure. Callers skip the alert for
// the current cycle and try again on the next one.
var ErrPriceUnavailable = errors.New("price unavailable")

type PriceOracle interface {
	CurrentPrice(ctx context.Context, symbol string, class entity.AssetClass) (decimal.Decimal, error)
}

func unavailable(symbol string, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrPriceUnavailable, symbol, fmt.Sprintf(format, args...))
}

// checkPrice rejects prices a feed should never report.
func checkPrice(symbol string, price decimal.Decimal) (decimal.Decimal, error) {
	if !price.IsPositive() {
		return decimal.Zero, unavailable(symbol, "non-positive price %s", price.String())
	}
	return price, nil
}
