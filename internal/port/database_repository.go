package port

import (
	"context"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
)

type ProductFilter struct {
	CategoryID string
	Featured   bool
	Offset     int
	Limit      int
}

// CatalogRepository is the catalog store. Stock is only written through
// AdjustStock.
type CatalogRepository interface {
	// FindByID returns nil when the product does not exist or is deleted.
	FindByID(ctx context.Context, id string) (*domain.Product, error)

	// StockFor returns the stock of one size, or a size-unavailable error.
	StockFor(ctx context.Context, productID, size string) (int, error)

	// AdjustStock atomically adds delta to one size and returns the new
	// stock. A change that would take stock below zero is rejected with an
	// insufficient-stock error and leaves stock unchanged.
	AdjustStock(ctx context.Context, productID, size string, delta int) (int, error)

	SaveProduct(ctx context.Context, product *domain.Product) error
	ListProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)
}

type OrderFilter struct {
	UserID string
	Status domain.OrderStatus
	Offset int
	Limit  int
}

type OrderRepository interface {
	// Create persists a new order. A taken order number yields ErrDuplicateOrderNumber.
	Create(ctx context.Context, order *domain.Order) error

	// FindByID returns nil when the order does not exist.
	FindByID(ctx context.Context, id string) (*domain.Order, error)

	// Update writes status, payment, tracking and cancellation fields and
	// appends new history entries. The write is conditional on order.Version;
	// on success order.Version is incremented.
	Update(ctx context.Context, order *domain.Order) error

	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)

	// LatestOrderNumber returns the highest order number starting with
	// prefix, or "" when there is none.
	LatestOrderNumber(ctx context.Context, prefix string) (string, error)

	// Totals returns (status, total) for every order created in [from, to].
	Totals(ctx context.Context, from, to time.Time) ([]domain.OrderTotal, error)
}
