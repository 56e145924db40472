package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MinCartItemQuantity = 1
	MaxCartItemQuantity = 10

	DefaultCartRetention = 7 * 24 * time.Hour
)

// CartItem is one (product, size) line. ID is only unique within its cart.
type CartItem struct {
	ID            int             `json:"id"`
	ProductID     string          `json:"product_id"`
	Size          string          `json:"size"`
	Quantity      int             `json:"quantity"`
	PriceSnapshot decimal.Decimal `json:"price_snapshot"`
	AddedAt       time.Time       `json:"added_at"`
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.PriceSnapshot.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Cart struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Items      []CartItem `json:"items"`
	LastItemID int        `json:"last_item_id"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func NewCart(userID string, now time.Time) *Cart {
	return &Cart{
		ID:        uuid.NewString(),
		UserID:    userID,
		Items:     []CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(DefaultCartRetention),
	}
}

// AddItem merges into the existing (product, size) line or appends a new one.
func (c *Cart) AddItem(productID, size string, quantity int, price decimal.Decimal, now time.Time) CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID && c.Items[i].Size == size {
			c.Items[i].Quantity = clampQuantity(c.Items[i].Quantity + quantity)
			return c.Items[i]
		}
	}

	c.LastItemID++
	item := CartItem{
		ID:            c.LastItemID,
		ProductID:     productID,
		Size:          size,
		Quantity:      clampQuantity(quantity),
		PriceSnapshot: price,
		AddedAt:       now,
	}
	c.Items = append(c.Items, item)
	return item
}

// UpdateItemQuantity is a no-op when itemID is not in the cart.
func (c *Cart) UpdateItemQuantity(itemID, quantity int) {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items[i].Quantity = clampQuantity(quantity)
			return
		}
	}
}

func (c *Cart) RemoveItem(itemID int) {
	kept := c.Items[:0]
	for _, item := range c.Items {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	c.Items = kept
}

func (c *Cart) Clear() {
	c.Items = []CartItem{}
}

func (c *Cart) Item(itemID int) (CartItem, bool) {
	for _, item := range c.Items {
		if item.ID == itemID {
			return item, true
		}
	}
	return CartItem{}, false
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func (c *Cart) TotalItems() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// Touch records a write and pushes the expiry out by retention.
func (c *Cart) Touch(now time.Time, retention time.Duration) {
	if retention <= 0 {
		retention = DefaultCartRetention
	}
	c.UpdatedAt = now
	c.ExpiresAt = now.Add(retention)
}

func (c *Cart) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

func clampQuantity(q int) int {
	return min(max(q, MinCartItemQuantity), MaxCartItemQuantity)
}
