package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

// Notifier delivers customer notifications. Callers treat failures as
// best-effort.
type Notifier interface {
	OrderConfirmed(ctx context.Context, order domain.Order) error
	OrderStatusChanged(ctx context.Context, order domain.Order) error
	OrderCancelled(ctx context.Context, order domain.Order) error
}
