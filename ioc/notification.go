package ioc

import (
	"github.com/KNICEX/price-alert/internal/service/notification"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// InitEmailService returns nil when SMTP credentials are missing. Alerts are
// still evaluated, dispatch then fails as not configured.
func InitEmailService(l *zap.Logger) notification.EmailService {
	// read key by key so env overrides of nested keys apply
	cfg := notification.SMTPConfig{
		Host:     viper.GetString("smtp.host"),
		Port:     viper.GetInt("smtp.port"),
		Sender:   viper.GetString("smtp.sender"),
		Password: viper.GetString("smtp.password"),
		Timeout:  viper.GetDuration("smtp.timeout"),
	}
	svc := notification.NewSMTPEmailService(cfg)
	if svc == nil {
		l.Warn("smtp credentials missing, email notifications disabled",
			zap.String("host", cfg.Host), zap.Int("port", cfg.Port))
	}
	return svc
}

func InitDispatcher(email notification.EmailService, l *zap.Logger) notification.Dispatcher {
	return notification.NewEmailDispatcher(email, l.Named("dispatcher"))
}
