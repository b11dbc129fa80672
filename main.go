package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KNICEX/price-alert/internal/repo"
	"github.com/KNICEX/price-alert/internal/service/monitor"
	"github.com/KNICEX/price-alert/internal/service/notification"
	"github.com/KNICEX/price-alert/internal/web"
	"github.com/KNICEX/price-alert/ioc"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func initViper() {
	// a missing .env is fine, real deployments set the environment directly
	_ = godotenv.Load()

	// --config=./config/xxx.yaml
	file := pflag.String("config", "./config/config.dev.yaml", "specify config file")
	pflag.Bool("simple", false, "watch the single alert from the simple section and exit once it fires")
	pflag.Parse()
	if err := viper.BindPFlag("simple.enabled", pflag.Lookup("simple")); err != nil {
		panic(err)
	}

	setDefaults()
	viper.AutomaticEnv()
	bindEnv("smtp.host", "SMTP_SERVER")
	bindEnv("smtp.port", "SMTP_PORT")
	bindEnv("smtp.sender", "EMAIL")
	bindEnv("smtp.password", "APP_KEY")
	bindEnv("server.port", "PORT")

	viper.SetConfigFile(*file)
	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s \n", err))
	}
}

func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("db.dsn", "./price_alerts.db")
	viper.SetDefault("server.port", 5000)
	viper.SetDefault("server.mode", gin.ReleaseMode)
	viper.SetDefault("smtp.host", "smtp.gmail.com")
	viper.SetDefault("smtp.port", 587)
	viper.SetDefault("smtp.timeout", notification.DefaultSMTPTimeout)
	viper.SetDefault("oracle.binance.quote", "USDT")
	viper.SetDefault("oracle.yahoo.timeout", "10s")
	viper.SetDefault("monitor.interval", monitor.DefaultInterval)
	viper.SetDefault("monitor.courtesy_delay", monitor.DefaultCourtesyDelay)
	viper.SetDefault("monitor.backoff", monitor.DefaultBackoff)
	viper.SetDefault("monitor.stop_timeout", monitor.DefaultStopTimeout)
	viper.SetDefault("monitor.autostart", false)
	viper.SetDefault("simple.enabled", false)
	viper.SetDefault("simple.symbol", "CRO")
	viper.SetDefault("simple.asset_class", "crypto")
	viper.SetDefault("simple.direction", "above")
	viper.SetDefault("simple.target_price", "0.26")
	viper.SetDefault("simple.interval", 2*time.Minute)
}

func bindEnv(key, env string) {
	if err := viper.BindEnv(key, env); err != nil {
		panic(err)
	}
}

func main() {
	initViper()

	logger := ioc.InitLogger()
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if viper.GetBool("simple.enabled") {
		runSimple(ctx, logger)
		return
	}
	runServer(ctx, logger)
}

func newEngine(alertRepo repo.AlertRepo, logger *zap.Logger) *monitor.Engine {
	priceOracle := ioc.InitPriceOracle(ioc.InitBinanceOracle(), ioc.InitYahooOracle())
	dispatcher := ioc.InitDispatcher(ioc.InitEmailService(logger), logger)
	return monitor.NewEngine(alertRepo, priceOracle, dispatcher, logger.Named("engine"))
}

func runServer(ctx context.Context, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	db := ioc.InitDB(logger)
	alertRepo := repo.NewAlertRepo(db)
	engine := newEngine(alertRepo, logger)

	monitorCfg := ioc.LoadMonitorConfig()
	scheduler := ioc.InitScheduler(monitorCfg, alertRepo, engine, logger)
	defer scheduler.Stop()
	if monitorCfg.Autostart {
		if _, err := scheduler.Start(monitorCfg.Interval); err != nil {
			panic(err)
		}
	}

	gin.SetMode(viper.GetString("server.mode"))
	server := web.NewServer(alertRepo, scheduler, monitorCfg.Interval, logger.Named("web"))
	srv := &http.Server{
		Addr:              net.JoinHostPort("", viper.GetString("server.port")),
		Handler:           server.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", zap.Error(err))
	}
}

// runSimple watches one alert kept in memory and returns once it has fired.
func runSimple(ctx context.Context, logger *zap.Logger) {
	alertRepo := repo.NewMemoryAlertRepo()
	alert := ioc.InitSimpleAlert()
	id, err := alertRepo.Create(ctx, alert)
	if err != nil {
		panic(err)
	}
	engine := newEngine(alertRepo, logger)

	monitorCfg := ioc.LoadMonitorConfig()
	scheduler := ioc.InitScheduler(monitorCfg, alertRepo, engine, logger, monitor.WithStopWhenDrained())
	if _, err = scheduler.Start(viper.GetDuration("simple.interval")); err != nil {
		panic(err)
	}
	logger.Info("watching single alert",
		zap.Int64("alert_id", id),
		zap.String("symbol", alert.Symbol),
		zap.String("direction", string(alert.Direction)),
		zap.String("target", alert.TargetPrice.String()))

	select {
	case <-ctx.Done():
		scheduler.Stop()
	case <-scheduler.Done():
		logger.Info("alert fired, exiting", zap.Int64("alert_id", id))
	}
}
