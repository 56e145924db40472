package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// CartStore keeps carts in SQL; expired carts read as absent.
type CartStore struct {
	*SQLStore
	now func() time.Time
}

func NewCartStore(s *SQLStore) *CartStore {
	return &CartStore{SQLStore: s, now: time.Now}
}

var _ port.CartRepository = (*CartStore)(nil)

func (c *CartStore) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart
	err := c.db.QueryRowContext(ctx, c.q(`
		SELECT id, user_id, last_item_id, expires_at, created_at, updated_at
		FROM carts WHERE user_id = ?`), userID,
	).Scan(&cart.ID, &cart.UserID, &cart.LastItemID, &cart.ExpiresAt, &cart.CreatedAt, &cart.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}
	cart.ExpiresAt = cart.ExpiresAt.UTC()
	cart.CreatedAt = cart.CreatedAt.UTC()
	cart.UpdatedAt = cart.UpdatedAt.UTC()
	if cart.Expired(c.now()) {
		return nil, nil
	}

	rows, err := c.db.QueryContext(ctx, c.q(`
		SELECT item_id, product_id, size, quantity, price_snapshot, added_at
		FROM cart_items WHERE user_id = ? ORDER BY item_id`), userID)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	cart.Items = []domain.CartItem{}
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Size, &item.Quantity, &item.PriceSnapshot, &item.AddedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		item.AddedAt = item.AddedAt.UTC()
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	return &cart, nil
}

// Save replaces the stored cart and its items.
func (c *CartStore) Save(ctx context.Context, cart *domain.Cart) error {
	cols := []string{"user_id", "id", "last_item_id", "expires_at", "created_at", "updated_at"}
	stmt := c.upsert("carts", cols, []string{"user_id"}, []string{"id", "last_item_id", "expires_at", "created_at", "updated_at"})

	return c.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, c.q(stmt),
			cart.UserID, cart.ID, cart.LastItemID, dbTime(cart.ExpiresAt), dbTime(cart.CreatedAt), dbTime(cart.UpdatedAt))
		if err != nil {
			return fmt.Errorf("save cart: %w", err)
		}
		if _, err := tx.ExecContext(ctx, c.q(`DELETE FROM cart_items WHERE user_id = ?`), cart.UserID); err != nil {
			return fmt.Errorf("clear cart items: %w", err)
		}
		for _, item := range cart.Items {
			_, err := tx.ExecContext(ctx, c.q(`
				INSERT INTO cart_items (user_id, item_id, product_id, size, quantity, price_snapshot, added_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`),
				cart.UserID, item.ID, item.ProductID, item.Size, item.Quantity, item.PriceSnapshot, dbTime(item.AddedAt),
			)
			if err != nil {
				return fmt.Errorf("insert cart item %d: %w", item.ID, err)
			}
		}
		return nil
	})
}

// PurgeExpired deletes carts whose retention window has passed.
func (c *CartStore) PurgeExpired(ctx context.Context) (int64, error) {
	now := dbTime(c.now())
	if _, err := c.db.ExecContext(ctx, c.q(`
		DELETE FROM cart_items WHERE user_id IN (SELECT user_id FROM carts WHERE expires_at <= ?)`), now); err != nil {
		return 0, fmt.Errorf("purge cart items: %w", err)
	}
	result, err := c.db.ExecContext(ctx, c.q(`DELETE FROM carts WHERE expires_at <= ?`), now)
	if err != nil {
		return 0, fmt.Errorf("purge carts: %w", err)
	}
	return result.RowsAffected()
}
