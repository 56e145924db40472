package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// CartService validates cart changes against the catalog before persisting
// them.
type CartService struct {
	catalog   port.CatalogRepository
	carts     port.CartRepository
	retention time.Duration
	now       func() time.Time
}

func NewCartService(catalog port.CatalogRepository, carts port.CartRepository, retention time.Duration) *CartService {
	if retention <= 0 {
		retention = domain.DefaultCartRetention
	}
	return &CartService{
		catalog:   catalog,
		carts:     carts,
		retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GetCart returns the user's cart, creating an empty one on first access.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if cart != nil {
		return cart, nil
	}

	cart = domain.NewCart(userID, s.now())
	cart.Touch(s.now(), s.retention)
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return cart, nil
}

func (s *CartService) AddItem(ctx context.Context, userID, productID, size string, quantity int) (*domain.Cart, error) {
	if quantity < domain.MinCartItemQuantity || quantity > domain.MaxCartItemQuantity {
		return nil, domain.NewValidationError("quantity must be between %d and %d",
			domain.MinCartItemQuantity, domain.MaxCartItemQuantity)
	}
	if size == "" {
		return nil, domain.NewValidationError("size is required")
	}

	product, err := s.purchasable(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := checkSizeStock(product, size, quantity); err != nil {
		return nil, err
	}

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	item := cart.AddItem(product.ID, size, quantity, product.Price, s.now())
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}

	slog.Info("Service: Added to cart", "user_id", userID, "product_id", product.ID, "size", size, "quantity", item.Quantity)
	return cart, nil
}

func (s *CartService) UpdateItem(ctx context.Context, userID string, itemID, quantity int) (*domain.Cart, error) {
	if quantity < domain.MinCartItemQuantity {
		return nil, domain.NewValidationError("quantity must be at least %d", domain.MinCartItemQuantity)
	}

	cart, err := s.existing(ctx, userID)
	if err != nil {
		return nil, err
	}
	item, ok := cart.Item(itemID)
	if !ok {
		return nil, domain.ErrCartItemNotFound
	}

	product, err := s.purchasable(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	if err := checkSizeStock(product, item.Size, quantity); err != nil {
		return nil, err
	}

	cart.UpdateItemQuantity(itemID, quantity)
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID string, itemID int) (*domain.Cart, error) {
	cart, err := s.existing(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.RemoveItem(itemID)
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) Clear(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.existing(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.Clear()
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) existing(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if cart == nil {
		return nil, domain.ErrCartNotFound
	}
	return cart, nil
}

func (s *CartService) purchasable(ctx context.Context, productID string) (*domain.Product, error) {
	product, err := s.catalog.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load product %s: %w", productID, err)
	}
	if product == nil || !product.Purchasable() {
		return nil, domain.NewProductNotFoundError(productID)
	}
	return product, nil
}

func (s *CartService) save(ctx context.Context, cart *domain.Cart) error {
	cart.Touch(s.now(), s.retention)
	if err := s.carts.Save(ctx, cart); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func checkSizeStock(product *domain.Product, size string, quantity int) error {
	stock, ok := product.Size(size)
	if !ok {
		return domain.NewSizeUnavailableError(product.ID, size)
	}
	if stock.Stock < quantity {
		return domain.NewInsufficientStockError(product.ID, size, stock.Stock, quantity)
	}
	return nil
}
