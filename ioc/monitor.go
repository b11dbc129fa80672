package ioc

import (
	"time"

	"github.com/KNICEX/price-alert/internal/repo"
	"github.com/KNICEX/price-alert/internal/service/monitor"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type MonitorConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	CourtesyDelay time.Duration `mapstructure:"courtesy_delay"`
	Backoff       time.Duration `mapstructure:"backoff"`
	StopTimeout   time.Duration `mapstructure:"stop_timeout"`
	Autostart     bool          `mapstructure:"autostart"`
}

func LoadMonitorConfig() MonitorConfig {
	var cfg MonitorConfig
	if err := viper.UnmarshalKey("monitor", &cfg); err != nil {
		panic(err)
	}
	if cfg.Interval <= 0 {
		panic("monitor.interval must be positive")
	}
	return cfg
}

func InitScheduler(cfg MonitorConfig, alertRepo repo.AlertRepo, engine *monitor.Engine, l *zap.Logger,
	opts ...monitor.SchedulerOption) *monitor.Scheduler {
	opts = append([]monitor.SchedulerOption{
		monitor.WithCourtesyDelay(cfg.CourtesyDelay),
		monitor.WithBackoff(cfg.Backoff),
		monitor.WithStopTimeout(cfg.StopTimeout),
	}, opts...)
	return monitor.NewScheduler(alertRepo, engine, l.Named("scheduler"), opts...)
}
