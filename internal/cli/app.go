package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/storefront/internal/adapter/handler"
	"github.com/rl1809/storefront/internal/adapter/notify"
	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/config"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
)

type notifier interface {
	port.Notifier
	Close() error
}

// app is the wired service graph shared by the commands.
type app struct {
	store    *storage.SQLStore
	redis    *redis.Client
	notifier notifier

	catalog  *storage.CatalogStore
	sqlCarts *storage.CartStore
	orders   *service.OrderService
	carts    *service.CartService
	checks   map[string]handler.Pinger
}

func openStore(ctx context.Context, cfg *config.Config) (*storage.SQLStore, error) {
	dialect, err := storage.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	return storage.Open(ctx, dialect, cfg.Database.DSN, storage.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
}

// buildApp connects to every configured backend. Redis, when configured,
// holds carts, order sequences and idempotency keys; otherwise carts and
// sequences live in the database. Kafka, when configured, carries
// notifications; otherwise they are logged.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{
		store:   store,
		catalog: storage.NewCatalogStore(store),
		checks:  map[string]handler.Pinger{"database": store},
	}

	pricing, err := cfg.Pricing()
	if err != nil {
		a.Close()
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		a.Close()
		return nil, err
	}
	opts := []service.Option{
		service.WithPricing(pricing),
		service.WithLocation(loc),
		service.WithCartRetention(cfg.Cart.Retention),
		service.WithNotifyTimeout(cfg.Orders.NotifyTimeout),
	}

	var (
		carts    port.CartRepository
		sequence port.SequenceRepository
	)
	if cfg.Redis.Enabled() {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		redisAdapter := storage.NewRedisAdapter(a.redis)
		if err := redisAdapter.Ping(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		slog.Info("Redis connected", "addr", cfg.Redis.Addr)

		carts = storage.NewRedisCartStore(a.redis)
		sequence = redisAdapter
		opts = append(opts, service.WithIdempotency(redisAdapter))
		a.checks["redis"] = redisAdapter
	} else {
		a.sqlCarts = storage.NewCartStore(store)
		carts = a.sqlCarts
		sequence = storage.NewSequenceStore(store)
	}

	if cfg.Kafka.Enabled() {
		a.notifier = notify.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		slog.Info("Publishing notifications to Kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	} else {
		a.notifier = notify.NewLogNotifier(slog.Default())
	}

	a.orders = service.NewOrderService(a.catalog, carts, storage.NewOrderStore(store), sequence, a.notifier, opts...)
	a.carts = service.NewCartService(a.catalog, carts, cfg.Cart.Retention)
	return a, nil
}

// Close waits for pending notifications, then releases connections.
func (a *app) Close() {
	if a.orders != nil {
		a.orders.Close()
	}
	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			slog.Error("Failed to close notifier", "err", err)
		}
	}
	if a.redis != nil {
		a.redis.Close()
	}
	a.store.Close()
}
