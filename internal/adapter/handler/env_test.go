package handler

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

var (
	alice = domain.Actor{ID: "alice", Role: domain.RoleUser, Email: "alice@example.com"}
	bob   = domain.Actor{ID: "bob", Role: domain.RoleUser, Email: "bob@example.com"}
	admin = domain.Actor{ID: "admin", Role: domain.RoleAdmin}
)

type testEnv struct {
	store   *storage.SQLStore
	catalog *storage.CatalogStore
	orders  *service.OrderService
	carts   *service.CartService
	http    *HTTPHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store, err := storage.Open(ctx, storage.DialectSQLite, filepath.Join(t.TempDir(), "shop.db"), storage.PoolConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(ctx))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	catalog := storage.NewCatalogStore(store)
	cartStore := storage.NewCartStore(store)
	orders := service.NewOrderService(
		catalog,
		cartStore,
		storage.NewOrderStore(store),
		storage.NewSequenceStore(store),
		nil,
		service.WithIdempotency(storage.NewRedisAdapter(rdb)),
	)
	t.Cleanup(orders.Close)
	carts := service.NewCartService(catalog, cartStore, 0)

	return &testEnv{
		store:   store,
		catalog: catalog,
		orders:  orders,
		carts:   carts,
		http:    NewHTTPHandler(orders, carts, catalog, map[string]Pinger{"database": store}),
	}
}

// seedShirt stores an active product priced at 30.00 with sizes M and L.
func (e *testEnv) seedShirt(t *testing.T, stockM int) *domain.Product {
	t.Helper()
	p := &domain.Product{
		ID:         "shirt",
		Name:       "Linen Shirt",
		Price:      decimal.NewFromInt(30),
		CategoryID: "tops",
		Images:     []domain.ProductImage{{URL: "https://img.example/shirt.jpg", IsPrimary: true}},
		Sizes: []domain.SizeStock{
			{Size: "M", Stock: stockM, SKU: "LS-M"},
			{Size: "L", Stock: 1, SKU: "LS-L"},
		},
		IsActive: true,
	}
	require.NoError(t, e.catalog.SaveProduct(context.Background(), p))
	return p
}

func (e *testEnv) stock(t *testing.T, productID, size string) int {
	t.Helper()
	n, err := e.catalog.StockFor(context.Background(), productID, size)
	require.NoError(t, err)
	return n
}

func shippingAddress() domain.Address {
	return domain.Address{
		FullName:     "Alice Nguyen",
		AddressLine1: "12 Ly Thai To",
		City:         "Hanoi",
		State:        "HN",
		ZipCode:      "100000",
		Country:      "VN",
		Phone:        "+84 912 345 678",
	}
}
