package port

import (
	"context"
	"errors"

	"github.com/rl1809/storefront/internal/core/domain"
)

var ErrDuplicateOrderNumber = errors.New("order number already exists")

type CartRepository interface {
	// Get returns nil when the user has no cart or it has expired.
	Get(ctx context.Context, userID string) (*domain.Cart, error)

	// Save stores the cart and refreshes its expiry.
	Save(ctx context.Context, cart *domain.Cart) error
}

// SequenceRepository hands out per-day order sequence numbers.
type SequenceRepository interface {
	// Next atomically increments and returns the counter for day (YYMMDD).
	Next(ctx context.Context, day string) (int64, error)

	// Resync raises the counter for day to at least floor. It never lowers it.
	Resync(ctx context.Context, day string, floor int64) error
}

type IdempotencyRepository interface {
	// SetIdempotency claims key, returns false if it was already claimed.
	SetIdempotency(ctx context.Context, key string) (bool, error)
}
