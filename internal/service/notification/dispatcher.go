package notification

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/KNICEX/price-alert/internal/entity"
	"github.com/KNICEX/price-alert/pkg/decimalx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	noMessage  = "No additional message."
	timeLayout = "2006-01-02 15:04:05 MST"
)

type EmailDispatcher struct {
	email  EmailService
	logger *zap.Logger
	now    func() time.Time
}

type DispatcherOption func(d *EmailDispatcher)

func WithDispatchClock(now func() time.Time) DispatcherOption {
	return func(d *EmailDispatcher) {
		d.now = now
	}
}

// NewEmailDispatcher accepts a nil EmailService, every Send then fails with
// ErrNotConfigured.
func NewEmailDispatcher(email EmailService, logger *zap.Logger, opts ...DispatcherOption) *EmailDispatcher {
	d := &EmailDispatcher{
		email:  email,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *EmailDispatcher) Send(ctx context.Context, alert entity.Alert, price decimal.Decimal) error {
	if d.email == nil {
		d.logger.Warn("email channel not configured, notification dropped",
			zap.Int64("alert_id", alert.Id), zap.String("symbol", alert.Symbol))
		return ErrNotConfigured
	}
	to, err := validRecipient(alert.Recipient)
	if err != nil {
		return err
	}

	subject, body := Compose(alert, price, d.now())
	if err = d.email.SendText(ctx, to, subject, body); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: send to %s: %w", ErrTransport, to, err)
	}
	d.logger.Info("alert notification sent",
		zap.Int64("alert_id", alert.Id),
		zap.String("symbol", alert.Symbol),
		zap.String("recipient", to))
	return nil
}

func validRecipient(recipient string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(recipient))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidRecipient, recipient, err)
	}
	return addr.Address, nil
}

// Compose renders the subject and plain-text body of a trigger notification.
func Compose(alert entity.Alert, price decimal.Decimal, triggeredAt time.Time) (string, string) {
	subject := fmt.Sprintf("Price alert: %s is %s %s",
		alert.Symbol, alert.Direction, decimalx.FormatPrice(alert.TargetPrice))

	message := alert.Message
	if message == "" {
		message = noMessage
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Your price alert for %s has been triggered.\n\n", alert.Symbol)
	fmt.Fprintf(&sb, "Symbol:        %s\n", alert.Symbol)
	fmt.Fprintf(&sb, "Asset class:   %s\n", alert.AssetClass)
	fmt.Fprintf(&sb, "Condition:     price %s %s\n", alert.Direction, decimalx.FormatPrice(alert.TargetPrice))
	fmt.Fprintf(&sb, "Current price: %s\n", decimalx.FormatPrice(price))
	fmt.Fprintf(&sb, "Target price:  %s\n\n", decimalx.FormatPrice(alert.TargetPrice))
	fmt.Fprintf(&sb, "Message: %s\n\n", message)
	if alert.SecondaryContact != "" {
		fmt.Fprintf(&sb, "Secondary contact: %s\n", alert.SecondaryContact)
	}
	fmt.Fprintf(&sb, "Alert created: %s\n", alert.CreatedAt.Format(timeLayout))
	fmt.Fprintf(&sb, "Triggered at:  %s\n", triggeredAt.Format(timeLayout))
	sb.WriteString("\nThis alert is now inactive. Reactivate it to be notified again.\n")
	return subject, sb.String()
}
