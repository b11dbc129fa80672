package oracle

import (
	"context"

	"github.com/KNICEX/price-alert/internal/entity"
	"github.com/shopspring/decimal"
)

var _ PriceOracle = (*Router)(nil)

// Router sends each lookup to the oracle registered for the asset class.
type Router struct {
	oracles map[entity.AssetClass]PriceOracle
}

func NewRouter(oracles map[entity.AssetClass]PriceOracle) *Router {
	r := &Router{oracles: make(map[entity.AssetClass]PriceOracle, len(oracles))}
	for class, o := range oracles {
		if o != nil {
			r.oracles[class] = o
		}
	}
	return r
}

func (r *Router) CurrentPrice(ctx context.Context, symbol string, class entity.AssetClass) (decimal.Decimal, error) {
	o, ok := r.oracles[class]
	if !ok {
		return decimal.Zero, unavailable(symbol, "no price source for asset class %q", class)
	}
	return o.CurrentPrice(ctx, symbol, class)
}
