package oracle

import (
	"context"
	"strings"

	"github.com/KNICEX/price-alert/internal/entity"
	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
)

var _ PriceOracle = (*BinanceOracle)(nil)

const DefaultQuote = "USDT"

// BinanceOracle 币安现货最新成交价, 仅支持 crypto
type BinanceOracle struct {
	cli   *binance.Client
	quote string
}

func NewBinanceOracle(cli *binance.Client, quote string) *BinanceOracle {
	if quote == "" {
		quote = DefaultQuote
	}
	return &BinanceOracle{
		cli:   cli,
		quote: strings.ToUpper(quote),
	}
}

func (o *BinanceOracle) CurrentPrice(ctx context.Context, symbol string, class entity.AssetClass) (decimal.Decimal, error) {
	if class != entity.AssetClassCrypto {
		return decimal.Zero, unavailable(symbol, "binance only quotes crypto, got %q", class)
	}
	base := strings.ToUpper(symbol)
	pair := base + o.quote
	if strings.HasSuffix(base, o.quote) {
		// already a full trading pair, e.g. BTCUSDT
		pair = base
	}

	prices, err := o.cli.NewListPricesService().Symbol(pair).Do(ctx)
	if err != nil {
		return decimal.Zero, unavailable(symbol, "binance ticker %s: %v", pair, err)
	}
	if len(prices) == 0 {
		return decimal.Zero, unavailable(symbol, "symbol %s not found", pair)
	}
	price, err := decimal.NewFromString(prices[0].Price)
	if err != nil {
		return decimal.Zero, unavailable(symbol, "parse price %q: %v", prices[0].Price, err)
	}
	return checkPrice(symbol, price)
}
