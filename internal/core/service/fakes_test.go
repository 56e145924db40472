package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

var testNow = time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// memCatalog is an in-memory CatalogRepository.
type memCatalog struct {
	mu       sync.Mutex
	products map[string]*domain.Product

	// adjustErr, when set, is consulted before every stock change.
	adjustErr func(productID, size string, delta int) error
}

func newMemCatalog(products ...domain.Product) *memCatalog {
	c := &memCatalog{products: make(map[string]*domain.Product)}
	for i := range products {
		p := products[i]
		c.products[p.ID] = &p
	}
	return c
}

func (c *memCatalog) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.products[id]
	if !ok || p.IsDeleted {
		return nil, nil
	}
	cp := *p
	cp.Sizes = append([]domain.SizeStock(nil), p.Sizes...)
	cp.Images = append([]domain.ProductImage(nil), p.Images...)
	return &cp, nil
}

func (c *memCatalog) StockFor(ctx context.Context, productID, size string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.products[productID]
	if !ok {
		return 0, domain.NewProductNotFoundError(productID)
	}
	for _, s := range p.Sizes {
		if s.Size == size {
			return s.Stock, nil
		}
	}
	return 0, domain.NewSizeUnavailableError(productID, size)
}

func (c *memCatalog) AdjustStock(ctx context.Context, productID, size string, delta int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.adjustErr != nil {
		if err := c.adjustErr(productID, size, delta); err != nil {
			return 0, err
		}
	}
	p, ok := c.products[productID]
	if !ok {
		return 0, domain.NewProductNotFoundError(productID)
	}
	for i := range p.Sizes {
		if p.Sizes[i].Size != size {
			continue
		}
		if p.Sizes[i].Stock+delta < 0 {
			return 0, domain.NewInsufficientStockError(productID, size, p.Sizes[i].Stock, -delta)
		}
		p.Sizes[i].Stock += delta
		return p.Sizes[i].Stock, nil
	}
	return 0, domain.NewSizeUnavailableError(productID, size)
}

func (c *memCatalog) SaveProduct(ctx context.Context, product *domain.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *product
	c.products[product.ID] = &cp
	return nil
}

func (c *memCatalog) ListProducts(ctx context.Context, filter port.ProductFilter) ([]domain.Product, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Product
	for _, p := range c.products {
		if p.Purchasable() {
			out = append(out, *p)
		}
	}
	return out, len(out), nil
}

func (c *memCatalog) stock(productID, size string) int {
	n, err := c.StockFor(context.Background(), productID, size)
	if err != nil {
		panic(err)
	}
	return n
}

func (c *memCatalog) remove(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.products, productID)
}

type memCarts struct {
	mu      sync.Mutex
	carts   map[string]domain.Cart
	saveErr error
}

func newMemCarts() *memCarts {
	return &memCarts{carts: make(map[string]domain.Cart)}
}

func (m *memCarts) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.carts[userID]
	if !ok {
		return nil, nil
	}
	c.Items = append([]domain.CartItem{}, c.Items...)
	return &c, nil
}

func (m *memCarts) Save(ctx context.Context, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}
	c := *cart
	c.Items = append([]domain.CartItem{}, cart.Items...)
	m.carts[cart.UserID] = c
	return nil
}

func (m *memCarts) put(userID string, lines ...domain.CartItem) {
	cart := domain.NewCart(userID, testNow)
	for _, l := range lines {
		cart.AddItem(l.ProductID, l.Size, l.Quantity, l.PriceSnapshot, testNow)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[userID] = *cart
}

type memOrders struct {
	mu        sync.Mutex
	orders    map[string]domain.Order
	numbers   map[string]bool
	createErr error
}

func newMemOrders() *memOrders {
	return &memOrders{orders: make(map[string]domain.Order), numbers: make(map[string]bool)}
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem{}, o.Items...)
	o.StatusHistory = append([]domain.StatusChange{}, o.StatusHistory...)
	return o
}

func (m *memOrders) Create(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	if m.numbers[order.OrderNumber] {
		return port.ErrDuplicateOrderNumber
	}
	m.numbers[order.OrderNumber] = true
	m.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (m *memOrders) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	o = cloneOrder(o)
	return &o, nil
}

func (m *memOrders) Update(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.orders[order.ID]
	if !ok || stored.Version != order.Version {
		return domain.ErrOptimisticLock
	}
	order.Version++
	m.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (m *memOrders) List(ctx context.Context, filter port.OrderFilter) ([]domain.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []domain.Order
	for _, o := range m.orders {
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		matched = append(matched, cloneOrder(o))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].OrderNumber > matched[j].OrderNumber })

	total := len(matched)
	start := min(filter.Offset, total)
	end := min(start+filter.Limit, total)
	return matched[start:end], total, nil
}

func (m *memOrders) Totals(ctx context.Context, from, to time.Time) ([]domain.OrderTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var rows []domain.OrderTotal
	for _, o := range m.orders {
		if o.CreatedAt.Before(from) || o.CreatedAt.After(to) {
			continue
		}
		rows = append(rows, domain.OrderTotal{Status: o.Status, Total: o.Totals.Total})
	}
	return rows, nil
}

func (m *memOrders) LatestOrderNumber(ctx context.Context, prefix string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	latest := ""
	for n := range m.numbers {
		if !strings.HasPrefix(n, prefix) {
			continue
		}
		if len(n) > len(latest) || (len(n) == len(latest) && n > latest) {
			latest = n
		}
	}
	return latest, nil
}

func (m *memOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

type memSequence struct {
	mu  sync.Mutex
	seq map[string]int64
}

func newMemSequence() *memSequence {
	return &memSequence{seq: make(map[string]int64)}
}

func (s *memSequence) Next(ctx context.Context, day string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[day]++
	return s.seq[day], nil
}

func (s *memSequence) Resync(ctx context.Context, day string, floor int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq[day] < floor {
		s.seq[day] = floor
	}
	return nil
}

// reset drops every counter, as a restarted or flushed Redis would.
func (s *memSequence) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = make(map[string]int64)
}

type memIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{keys: make(map[string]bool)}
}

func (m *memIdempotency) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (n *recordingNotifier) record(kind string, order domain.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, kind+":"+order.OrderNumber)
	return n.err
}

func (n *recordingNotifier) OrderConfirmed(ctx context.Context, order domain.Order) error {
	return n.record("confirmed", order)
}

func (n *recordingNotifier) OrderStatusChanged(ctx context.Context, order domain.Order) error {
	return n.record("status:"+string(order.Status), order)
}

func (n *recordingNotifier) OrderCancelled(ctx context.Context, order domain.Order) error {
	return n.record("cancelled", order)
}

func (n *recordingNotifier) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

var errStoreDown = errors.New("store unavailable")

func testProduct(id string, price string, sizes ...domain.SizeStock) domain.Product {
	return domain.Product{
		ID:        id,
		Name:      "Product " + id,
		Slug:      domain.Slugify("Product " + id),
		Price:     decimal.RequireFromString(price),
		Images:    []domain.ProductImage{{URL: "https://img.example/" + id + ".jpg", IsPrimary: true}},
		Sizes:     sizes,
		IsActive:  true,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
}

func cartLine(productID, size string, quantity int, price string) domain.CartItem {
	return domain.CartItem{
		ProductID:     productID,
		Size:          size,
		Quantity:      quantity,
		PriceSnapshot: decimal.RequireFromString(price),
	}
}

func testAddress() domain.Address {
	return domain.Address{
		FullName:     "Jane Doe",
		AddressLine1: "1 Main St",
		City:         "Springfield",
		State:        "IL",
		ZipCode:      "62701",
		Country:      "US",
		Phone:        "+1-555-0100",
	}
}
