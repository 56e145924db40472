package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const (
	maxOrderNumberAttempts = 3
	defaultNotifyTimeout   = 10 * time.Second
	defaultUserOrdersLimit = 10
	defaultAdminOrderLimit = 20
)

type CreateOrderInput struct {
	Actor           domain.Actor
	RequestID       string
	ShippingAddress domain.Address
	BillingAddress  *domain.Address
	PaymentMethod   string
	Notes           string
}

type UpdateStatusInput struct {
	OrderID         string
	Status          string
	Note            string
	TrackingNumber  string
	TrackingCarrier string
	ActorID         string
}

type OrderList struct {
	Orders []domain.Order `json:"orders"`
	Page   domain.Page    `json:"pagination"`
}

// OrderService runs the order lifecycle: checkout, cancellation and status
// changes, keeping per-size stock in step with orders.
type OrderService struct {
	catalog     port.CatalogRepository
	carts       port.CartRepository
	orders      port.OrderRepository
	sequence    port.SequenceRepository
	notifier    port.Notifier
	idempotency port.IdempotencyRepository

	pricing       domain.Pricing
	location      *time.Location
	cartRetention time.Duration
	notifyTimeout time.Duration
	now           func() time.Time

	notifications sync.WaitGroup
}

type Option func(*OrderService)

func WithPricing(p domain.Pricing) Option {
	return func(s *OrderService) { s.pricing = p }
}

// WithLocation sets the time zone used for the date part of order numbers.
func WithLocation(loc *time.Location) Option {
	return func(s *OrderService) { s.location = loc }
}

func WithIdempotency(repo port.IdempotencyRepository) Option {
	return func(s *OrderService) { s.idempotency = repo }
}

func WithCartRetention(d time.Duration) Option {
	return func(s *OrderService) { s.cartRetention = d }
}

func WithNotifyTimeout(d time.Duration) Option {
	return func(s *OrderService) { s.notifyTimeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *OrderService) { s.now = now }
}

func NewOrderService(
	catalog port.CatalogRepository,
	carts port.CartRepository,
	orders port.OrderRepository,
	sequence port.SequenceRepository,
	notifier port.Notifier,
	opts ...Option,
) *OrderService {
	s := &OrderService{
		catalog:       catalog,
		carts:         carts,
		orders:        orders,
		sequence:      sequence,
		notifier:      notifier,
		pricing:       domain.DefaultPricing(),
		location:      time.UTC,
		cartRetention: domain.DefaultCartRetention,
		notifyTimeout: defaultNotifyTimeout,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder turns the actor's cart into a pending order. An empty cart is
// reported before the address and payment input are checked. Every line is
// validated before any stock moves; if a reservation or the insert fails,
// stock already taken is given back.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	if in.Actor.ID == "" {
		return nil, domain.NewValidationError("user is required")
	}

	if in.RequestID != "" && s.idempotency != nil {
		key := fmt.Sprintf("order:%s:%s", in.Actor.ID, in.RequestID)
		ok, err := s.idempotency.SetIdempotency(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return nil, domain.ErrDuplicateRequest
		}
	}

	cart, err := s.carts.Get(ctx, in.Actor.ID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart == nil || cart.IsEmpty() {
		return nil, domain.ErrEmptyCart
	}

	if err := in.ShippingAddress.Validate("shipping"); err != nil {
		return nil, err
	}
	billing := in.ShippingAddress
	if in.BillingAddress != nil && !in.BillingAddress.IsZero() {
		if err := in.BillingAddress.Validate("billing"); err != nil {
			return nil, err
		}
		billing = *in.BillingAddress
	}
	method, err := domain.ParsePaymentMethod(in.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(in.Notes) > domain.MaxOrderNotesLength {
		return nil, domain.NewValidationError("notes cannot exceed %d characters", domain.MaxOrderNotesLength)
	}

	slog.Info("Service: Placing order", "user_id", in.Actor.ID, "items", len(cart.Items))

	items, err := s.snapshotItems(ctx, cart)
	if err != nil {
		return nil, err
	}
	if err := s.reserveStock(ctx, items); err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal)
	}

	now := s.now()
	order := &domain.Order{
		ID:              uuid.NewString(),
		UserID:          in.Actor.ID,
		CustomerEmail:   in.Actor.Email,
		Items:           items,
		ShippingAddress: in.ShippingAddress,
		BillingAddress:  billing,
		Payment: domain.Payment{
			Method: method,
			Status: domain.PaymentStatusPending,
		},
		Totals:        s.pricing.Compute(subtotal),
		Status:        domain.OrderStatusPending,
		StatusHistory: []domain.StatusChange{},
		Notes:         in.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.insertOrder(ctx, order); err != nil {
		s.releaseStock(ctx, items)
		return nil, err
	}

	cart.Clear()
	cart.Touch(now, s.cartRetention)
	if err := s.carts.Save(ctx, cart); err != nil {
		slog.Error("Failed to clear cart after checkout", "user_id", in.Actor.ID, "order_number", order.OrderNumber, "err", err)
	}

	slog.Info("Order created", "order_id", order.ID, "order_number", order.OrderNumber, "total", order.Totals.Total.StringFixed(2))
	s.notify(notifyConfirmed, order)
	return order, nil
}

// snapshotItems re-reads every product and freezes the current price, image
// and SKU into order lines.
func (s *OrderService) snapshotItems(ctx context.Context, cart *domain.Cart) ([]domain.OrderItem, error) {
	items := make([]domain.OrderItem, 0, len(cart.Items))
	for i, line := range cart.Items {
		product, err := s.catalog.FindByID(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("load product %s: %w", line.ProductID, err)
		}
		if product == nil || !product.Purchasable() {
			return nil, domain.NewProductNotFoundError(line.ProductID)
		}

		size, ok := product.Size(line.Size)
		if !ok {
			return nil, domain.NewSizeUnavailableError(product.ID, line.Size)
		}
		if size.Stock < line.Quantity {
			return nil, domain.NewInsufficientStockError(product.ID, line.Size, size.Stock, line.Quantity)
		}

		items = append(items, domain.OrderItem{
			Line:      i + 1,
			ProductID: product.ID,
			Name:      product.Name,
			Image:     product.PrimaryImage(),
			SKU:       size.SKU,
			Size:      line.Size,
			Quantity:  line.Quantity,
			UnitPrice: product.Price,
			LineTotal: product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))),
		})
	}
	return items, nil
}

func (s *OrderService) reserveStock(ctx context.Context, items []domain.OrderItem) error {
	for i, item := range items {
		if _, err := s.catalog.AdjustStock(ctx, item.ProductID, item.Size, -item.Quantity); err != nil {
			s.releaseStock(ctx, items[:i])
			return fmt.Errorf("reserve stock for %s/%s: %w", item.ProductID, item.Size, err)
		}
	}
	return nil
}

// releaseStock gives back reserved stock after a failed checkout.
func (s *OrderService) releaseStock(ctx context.Context, items []domain.OrderItem) {
	ctx = context.WithoutCancel(ctx)
	for _, item := range items {
		if _, err := s.catalog.AdjustStock(ctx, item.ProductID, item.Size, item.Quantity); err != nil {
			slog.Error("CRITICAL stock rollback failed", "product_id", item.ProductID, "size", item.Size, "quantity", item.Quantity, "err", err)
			continue
		}
		slog.Info("Rolled back stock", "product_id", item.ProductID, "size", item.Size, "quantity", item.Quantity)
	}
}

func (s *OrderService) insertOrder(ctx context.Context, order *domain.Order) error {
	day := order.CreatedAt.In(s.location)
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		seq, err := s.sequence.Next(ctx, domain.SequenceDay(day))
		if err != nil {
			return fmt.Errorf("next order sequence: %w", err)
		}
		order.OrderNumber = domain.FormatOrderNumber(day, seq)

		err = s.orders.Create(ctx, order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, port.ErrDuplicateOrderNumber) {
			return fmt.Errorf("failed to save order: %w", err)
		}
		slog.Warn("Order number taken, resyncing sequence", "order_number", order.OrderNumber, "attempt", attempt)
		if err := s.resyncSequence(ctx, day); err != nil {
			return fmt.Errorf("failed to save order: %w", err)
		}
	}
	return fmt.Errorf("failed to save order: %w", port.ErrDuplicateOrderNumber)
}

// resyncSequence moves the day counter past the highest stored order number,
// which is needed after the counter was lost or the backend changed mid-day.
func (s *OrderService) resyncSequence(ctx context.Context, day time.Time) error {
	prefix := domain.OrderNumberPrefix(day)
	latest, err := s.orders.LatestOrderNumber(ctx, prefix)
	if err != nil {
		return err
	}
	seq, ok := domain.ParseOrderSequence(latest, prefix)
	if !ok {
		return nil
	}
	if err := s.sequence.Resync(ctx, domain.SequenceDay(day), seq); err != nil {
		return fmt.Errorf("resync order sequence: %w", err)
	}
	return nil
}

// CancelOrder cancels a pending or confirmed order on behalf of its owner or
// an admin and puts its stock back.
func (s *OrderService) CancelOrder(ctx context.Context, orderID string, actor domain.Actor, reason string) (*domain.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.CanBeAccessedBy(actor) {
		return nil, &domain.Error{Kind: domain.KindUnauthorized, Message: "not authorized to cancel this order"}
	}
	return s.cancel(ctx, order, reason, actor.ID)
}

func (s *OrderService) cancel(ctx context.Context, order *domain.Order, reason, actorID string) (*domain.Order, error) {
	if err := order.Cancel(reason, actorID, s.now()); err != nil {
		return nil, err
	}
	// The conditional update guards against a concurrent double cancel
	// restoring stock twice.
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to cancel order %s: %w", order.ID, err)
	}
	s.restoreStock(ctx, order)

	slog.Info("Order cancelled", "order_id", order.ID, "order_number", order.OrderNumber, "reason", order.CancellationReason)
	s.notify(notifyCancelled, order)
	return order, nil
}

// restoreStock is best-effort: lines whose product or size is gone are skipped.
func (s *OrderService) restoreStock(ctx context.Context, order *domain.Order) {
	ctx = context.WithoutCancel(ctx)
	for _, item := range order.Items {
		_, err := s.catalog.AdjustStock(ctx, item.ProductID, item.Size, item.Quantity)
		switch kind := domain.KindOf(err); {
		case err == nil:
		case kind == domain.KindNotFound || kind == domain.KindSizeUnavailable:
			slog.Warn("Skipping stock restore", "order_id", order.ID, "product_id", item.ProductID, "size", item.Size, "err", err)
		default:
			slog.Error("Failed to restore stock", "order_id", order.ID, "product_id", item.ProductID, "size", item.Size, "err", err)
		}
	}
}

// UpdateOrderStatus advances an order along its lifecycle. A cancelled
// target goes through the cancellation path so stock is restored.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, in UpdateStatusInput) (*domain.Order, error) {
	status, err := domain.ParseOrderStatus(in.Status)
	if err != nil {
		return nil, err
	}
	order, err := s.loadOrder(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if status == domain.OrderStatusCancelled {
		return s.cancel(ctx, order, in.Note, in.ActorID)
	}

	if err := order.Transition(status, in.Note, in.ActorID, s.now()); err != nil {
		return nil, err
	}
	order.SetTracking(in.TrackingNumber, in.TrackingCarrier)

	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to update order %s: %w", order.ID, err)
	}

	slog.Info("Order status updated", "order_id", order.ID, "status", order.Status, "by", in.ActorID)
	s.notify(notifyStatusChanged, order)
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string, actor domain.Actor) (*domain.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.CanBeAccessedBy(actor) {
		return nil, domain.ErrNotAuthorized
	}
	return order, nil
}

func (s *OrderService) ListUserOrders(ctx context.Context, actor domain.Actor, page, limit int) (*OrderList, error) {
	return s.list(ctx, port.OrderFilter{UserID: actor.ID}, page, limit, defaultUserOrdersLimit)
}

// ListOrders is the admin listing, optionally filtered by status.
func (s *OrderService) ListOrders(ctx context.Context, status string, page, limit int) (*OrderList, error) {
	filter := port.OrderFilter{}
	if status != "" {
		st, err := domain.ParseOrderStatus(status)
		if err != nil {
			return nil, err
		}
		filter.Status = st
	}
	return s.list(ctx, filter, page, limit, defaultAdminOrderLimit)
}

func (s *OrderService) list(ctx context.Context, filter port.OrderFilter, page, limit, defaultLimit int) (*OrderList, error) {
	page, limit, offset, err := domain.NormalizePaging(page, limit, defaultLimit)
	if err != nil {
		return nil, err
	}
	filter.Offset = offset
	filter.Limit = limit

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return &OrderList{Orders: orders, Page: domain.NewPage(page, limit, total)}, nil
}

// GetOrderStats aggregates orders created in [from, to]; either bound may be
// nil, defaulting to the last 30 days.
func (s *OrderService) GetOrderStats(ctx context.Context, from, to *time.Time) (*domain.StatsReport, error) {
	start, end := domain.StatsRange(from, to, s.now())
	if end.Before(start) {
		return nil, domain.NewValidationError("start date must not be after end date")
	}

	rows, err := s.orders.Totals(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load order totals: %w", err)
	}
	return &domain.StatsReport{
		From:         start,
		To:           end,
		Stats:        domain.ComputeStats(rows),
		StatusCounts: domain.ComputeStatusCounts(rows),
	}, nil
}

func (s *OrderService) loadOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", orderID, err)
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

type notification int

const (
	notifyConfirmed notification = iota
	notifyStatusChanged
	notifyCancelled
)

// notify sends in the background; failures are logged and dropped.
func (s *OrderService) notify(kind notification, order *domain.Order) {
	if s.notifier == nil {
		return
	}
	snapshot := *order

	s.notifications.Add(1)
	go func() {
		defer s.notifications.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()

		var err error
		switch kind {
		case notifyConfirmed:
			err = s.notifier.OrderConfirmed(ctx, snapshot)
		case notifyStatusChanged:
			err = s.notifier.OrderStatusChanged(ctx, snapshot)
		case notifyCancelled:
			err = s.notifier.OrderCancelled(ctx, snapshot)
		}
		if err != nil {
			slog.Error("Failed to send notification", "order_number", snapshot.OrderNumber, "kind", int(kind), "err", err)
		}
	}()
}

// Close waits for in-flight notifications.
func (s *OrderService) Close() {
	s.notifications.Wait()
}
