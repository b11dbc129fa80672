package ioc

import (
	"github.com/KNICEX/price-alert/internal/service/oracle"
	"github.com/adshao/go-binance/v2"
	"github.com/spf13/viper"
)

func InitBinanceOracle() *oracle.BinanceOracle {
	type Config struct {
		ApiKey    string `mapstructure:"api_key"`
		ApiSecret string `mapstructure:"api_secret"`
		BaseURL   string `mapstructure:"base_url"`
		Quote     string `mapstructure:"quote"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("oracle.binance", &cfg); err != nil {
		panic(err)
	}

	// ticker prices are public, keys may stay empty
	cli := binance.NewClient(cfg.ApiKey, cfg.ApiSecret)
	if cfg.BaseURL != "" {
		cli.BaseURL = cfg.BaseURL
	}
	return oracle.NewBinanceOracle(cli, cfg.Quote)
}
