package ioc

import (
	"github.com/KNICEX/price-alert/internal/entity"
	"github.com/KNICEX/price-alert/pkg/decimalx"
	"github.com/spf13/viper"
)

// InitSimpleAlert builds the single alert watched when simple mode is enabled.
func InitSimpleAlert() entity.Alert {
	type Config struct {
		Symbol      string `mapstructure:"symbol"`
		AssetClass  string `mapstructure:"asset_class"`
		Direction   string `mapstructure:"direction"`
		TargetPrice string `mapstructure:"target_price"`
		Recipient   string `mapstructure:"recipient"`
		Message     string `mapstructure:"message"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("simple", &cfg); err != nil {
		panic(err)
	}

	class, err := entity.ParseAssetClass(cfg.AssetClass)
	if err != nil {
		panic(err)
	}
	direction, err := entity.ParseDirection(cfg.Direction)
	if err != nil {
		panic(err)
	}
	target, err := decimalx.ParsePositive(cfg.TargetPrice)
	if err != nil {
		panic(err)
	}
	recipient := cfg.Recipient
	if recipient == "" {
		// defaults to the sender mailbox
		recipient = viper.GetString("smtp.sender")
	}
	return entity.Alert{
		Symbol:      cfg.Symbol,
		AssetClass:  class,
		Direction:   direction,
		TargetPrice: target,
		Recipient:   recipient,
		Message:     cfg.Message,
	}
}
