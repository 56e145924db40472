package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/adapter/notify"
	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

const (
	productID     = "stress-tee"
	size          = "M"
	initialStock  = 20
	totalShoppers = 50
)

func main() {
	ctx := context.Background()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	dir, err := os.MkdirTemp("", "storefront-stress-")
	if err != nil {
		log.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	store, err := storage.Open(ctx, storage.DialectSQLite, filepath.Join(dir, "stress.db"), storage.PoolConfig{})
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	catalog := storage.NewCatalogStore(store)
	carts := storage.NewCartStore(store)
	if err := catalog.SaveProduct(ctx, &domain.Product{
		ID:       productID,
		Name:     "Stress Tee",
		Price:    decimal.RequireFromString("19.90"),
		Sizes:    []domain.SizeStock{{Size: size, Stock: initialStock}},
		IsActive: true,
	}); err != nil {
		log.Fatalf("failed to seed product: %v", err)
	}

	orderService := service.NewOrderService(
		catalog,
		carts,
		storage.NewOrderStore(store),
		storage.NewSequenceStore(store),
		notify.NewLogNotifier(slog.Default()),
	)
	defer orderService.Close()
	cartService := service.NewCartService(catalog, carts, 0)

	// Every shopper fills a cart first so checkouts race only on stock.
	for i := 0; i < totalShoppers; i++ {
		if _, err := cartService.AddItem(ctx, shopper(i), productID, size, 1); err != nil {
			log.Fatalf("failed to fill cart for %s: %v", shopper(i), err)
		}
	}

	var successCount, soldOutCount, errorCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalShoppers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			_, err := orderService.CreateOrder(ctx, service.CreateOrderInput{
				Actor:           domain.Actor{ID: shopper(i), Role: domain.RoleUser},
				ShippingAddress: address(i),
			})
			switch domain.KindOf(err) {
			case "":
				if err == nil {
					successCount.Add(1)
					return
				}
				errorCount.Add(1)
				fmt.Printf("%s: %v\n", shopper(i), err)
			case domain.KindInsufficientStock:
				soldOutCount.Add(1)
			default:
				errorCount.Add(1)
				fmt.Printf("%s: %v\n", shopper(i), err)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	soldOut := soldOutCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Shoppers:         %d\n", totalShoppers)
	fmt.Printf("Orders Created:   %d\n", success)
	fmt.Printf("Sold Out:         %d\n", soldOut)
	fmt.Printf("Errors:           %d\n", errorCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == initialStock && soldOut == totalShoppers-initialStock {
		fmt.Printf("PASS: Exactly %d orders succeeded, %d sold out\n", initialStock, totalShoppers-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d created/%d sold out, got %d/%d\n",
			initialStock, totalShoppers-initialStock, success, soldOut)
	}

	finalStock, err := catalog.StockFor(ctx, productID, size)
	if err != nil {
		log.Fatalf("failed to read stock: %v", err)
	}
	fmt.Printf("Final Stock:      %d\n", finalStock)
	if finalStock == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected stock 0, got %d\n", finalStock)
	}
}

func shopper(i int) string {
	return fmt.Sprintf("shopper-%d", i)
}

func address(i int) domain.Address {
	return domain.Address{
		FullName:     fmt.Sprintf("Shopper %d", i),
		AddressLine1: fmt.Sprintf("%d Market Street", i+1),
		City:         "Da Nang",
		State:        "DN",
		ZipCode:      "550000",
		Country:      "VN",
		Phone:        "+84 236 000 000",
	}
}
