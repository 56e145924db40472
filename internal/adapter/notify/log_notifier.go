package notify

import (
	"context"
	"log/slog"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// LogNotifier writes notifications to the structured log. It is used when
// no broker is configured.
type LogNotifier struct {
	logger *slog.Logger
}

var _ port.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) OrderConfirmed(ctx context.Context, order domain.Order) error {
	return l.log(ctx, TypeOrderConfirmed, order)
}

func (l *LogNotifier) OrderStatusChanged(ctx context.Context, order domain.Order) error {
	return l.log(ctx, TypeOrderStatusChanged, order)
}

func (l *LogNotifier) OrderCancelled(ctx context.Context, order domain.Order) error {
	return l.log(ctx, TypeOrderCancelled, order)
}

func (l *LogNotifier) log(ctx context.Context, kind string, order domain.Order) error {
	msg, err := Render(kind, order)
	if err != nil {
		return err
	}
	l.logger.InfoContext(ctx, "Notification",
		"type", msg.Type,
		"to", msg.To,
		"subject", msg.Subject,
		"order_number", msg.OrderNumber,
	)
	return nil
}

func (l *LogNotifier) Close() error { return nil }
