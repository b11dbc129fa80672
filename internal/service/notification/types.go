package notification

import (
	"context"
	"errors"

	"github.com/KNICEX/price-alert/internal/entity"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured means no mail transport credentials were supplied.
	ErrNotConfigured = errors.New("notification channel not configured")
	// ErrInvalidRecipient means the alert recipient is not a deliverable address.
	ErrInvalidRecipient = errors.New("invalid recipient")
	// ErrTransport wraps failures reported by the mail server or the network.
	ErrTransport = errors.New("notification transport failure")
)

type EmailService interface {
	SendText(ctx context.Context, to, subject, body string) error
	SendHTML(ctx context.Context, to, subject, body string) error
}

// Dispatcher delivers the notification for a triggered alert.
type Dispatcher interface {
	Send(ctx context.Context, alert entity.Alert, price decimal.Decimal) error
}
