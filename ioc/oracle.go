package ioc

import (
	"net/http"
	"time"

	"github.com/KNICEX/price-alert/internal/entity"
	"github.com/KNICEX/price-alert/internal/service/oracle"
	"github.com/spf13/viper"
)

func InitYahooOracle() *oracle.YahooOracle {
	type Config struct {
		BaseURL string        `mapstructure:"base_url"`
		Timeout time.Duration `mapstructure:"timeout"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("oracle.yahoo", &cfg); err != nil {
		panic(err)
	}

	opts := []oracle.YahooOption{
		oracle.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, oracle.WithBaseURL(cfg.BaseURL))
	}
	return oracle.NewYahooOracle(opts...)
}

func InitPriceOracle(crypto *oracle.BinanceOracle, equity *oracle.YahooOracle) oracle.PriceOracle {
	return oracle.NewRouter(map[entity.AssetClass]oracle.PriceOracle{
		entity.AssetClassCrypto: crypto,
		entity.AssetClassEquity: equity,
	})
}
