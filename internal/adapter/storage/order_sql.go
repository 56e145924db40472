package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

type OrderStore struct {
	*SQLStore
}

func NewOrderStore(s *SQLStore) *OrderStore {
	return &OrderStore{SQLStore: s}
}

var _ port.OrderRepository = (*OrderStore)(nil)

const orderColumns = `id, order_number, user_id, customer_email, shipping_address, billing_address,
	payment_method, payment_status, transaction_id, paid_at,
	subtotal, tax, shipping, discount, total, status,
	carrier, tracking_number, tracking_url, shipped_at, delivered_at,
	notes, cancelled_at, cancellation_reason, version, created_at, updated_at`

func (o *OrderStore) Create(ctx context.Context, order *domain.Order) error {
	shipping, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}
	billing, err := json.Marshal(order.BillingAddress)
	if err != nil {
		return fmt.Errorf("marshal billing address: %w", err)
	}

	return o.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, o.q(`
			INSERT INTO orders (`+orderColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			order.ID, order.OrderNumber, order.UserID, order.CustomerEmail, string(shipping), string(billing),
			order.Payment.Method, order.Payment.Status, order.Payment.TransactionID, nullTime(order.Payment.PaidAt),
			order.Totals.Subtotal, order.Totals.Tax, order.Totals.Shipping, order.Totals.Discount, order.Totals.Total,
			order.Status,
			order.Tracking.Carrier, order.Tracking.TrackingNumber, order.Tracking.TrackingURL,
			nullTime(order.Tracking.ShippedAt), nullTime(order.Tracking.DeliveredAt),
			order.Notes, nullTime(order.CancelledAt), order.CancellationReason, order.Version,
			dbTime(order.CreatedAt), dbTime(order.UpdatedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return port.ErrDuplicateOrderNumber
			}
			return fmt.Errorf("insert order: %w", err)
		}

		for _, item := range order.Items {
			_, err := tx.ExecContext(ctx, o.q(`
				INSERT INTO order_items (order_id, line, product_id, name, image, sku, size, quantity, unit_price, line_total)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
				order.ID, item.Line, item.ProductID, item.Name, item.Image, item.SKU, item.Size,
				item.Quantity, item.UnitPrice, item.LineTotal,
			)
			if err != nil {
				return fmt.Errorf("insert order item %d: %w", item.Line, err)
			}
		}
		return o.insertHistory(ctx, tx, order.ID, order.StatusHistory)
	})
}

func (o *OrderStore) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	row := o.db.QueryRowContext(ctx, o.q(`SELECT `+orderColumns+` FROM orders WHERE id = ?`), id)
	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	if err := o.loadChildren(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// Update is conditional on the version the order was read at.
func (o *OrderStore) Update(ctx context.Context, order *domain.Order) error {
	err := o.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, o.q(`
			UPDATE orders SET
				status = ?, payment_status = ?, transaction_id = ?, paid_at = ?,
				carrier = ?, tracking_number = ?, tracking_url = ?, shipped_at = ?, delivered_at = ?,
				cancelled_at = ?, cancellation_reason = ?,
				version = version + 1, updated_at = ?
			WHERE id = ? AND version = ?`),
			order.Status, order.Payment.Status, order.Payment.TransactionID, nullTime(order.Payment.PaidAt),
			order.Tracking.Carrier, order.Tracking.TrackingNumber, order.Tracking.TrackingURL,
			nullTime(order.Tracking.ShippedAt), nullTime(order.Tracking.DeliveredAt),
			nullTime(order.CancelledAt), order.CancellationReason,
			dbTime(order.UpdatedAt),
			order.ID, order.Version,
		)
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		if rows == 0 {
			return domain.ErrOptimisticLock
		}

		var stored int
		if err := tx.QueryRowContext(ctx, o.q(`SELECT COALESCE(MAX(seq), 0) FROM order_status_history WHERE order_id = ?`),
			order.ID).Scan(&stored); err != nil {
			return fmt.Errorf("query history: %w", err)
		}
		var fresh []domain.StatusChange
		for _, h := range order.StatusHistory {
			if h.Seq > stored {
				fresh = append(fresh, h)
			}
		}
		return o.insertHistory(ctx, tx, order.ID, fresh)
	})
	if err != nil {
		return err
	}
	order.Version++
	return nil
}

func (o *OrderStore) insertHistory(ctx context.Context, tx *sql.Tx, orderID string, entries []domain.StatusChange) error {
	for _, h := range entries {
		_, err := tx.ExecContext(ctx, o.q(`
			INSERT INTO order_status_history (order_id, seq, status, note, updated_by, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`),
			orderID, h.Seq, h.Status, h.Note, h.UpdatedBy, dbTime(h.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert status history: %w", err)
		}
	}
	return nil
}

// List returns full orders, newest first.
func (o *OrderStore) List(ctx context.Context, filter port.OrderFilter) ([]domain.Order, int, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := o.db.QueryRowContext(ctx, o.q(`SELECT COUNT(*) FROM orders`+cond), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	rows, err := o.db.QueryContext(ctx,
		o.q(`SELECT `+orderColumns+` FROM orders`+cond+` ORDER BY created_at DESC, order_number DESC LIMIT ? OFFSET ?`),
		append(args, filter.Limit, filter.Offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("query orders: %w", err)
	}
	rows.Close()

	for i := range orders {
		if err := o.loadChildren(ctx, &orders[i]); err != nil {
			return nil, 0, err
		}
	}
	return orders, total, nil
}

// LatestOrderNumber orders by length first so a sequence past 9999 still
// sorts above the four-digit ones.
func (o *OrderStore) LatestOrderNumber(ctx context.Context, prefix string) (string, error) {
	var number string
	err := o.db.QueryRowContext(ctx,
		o.q(`SELECT order_number FROM orders WHERE order_number LIKE ? ORDER BY LENGTH(order_number) DESC, order_number DESC LIMIT 1`),
		prefix+"%",
	).Scan(&number)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query latest order number: %w", err)
	}
	return number, nil
}

func (o *OrderStore) Totals(ctx context.Context, from, to time.Time) ([]domain.OrderTotal, error) {
	rows, err := o.db.QueryContext(ctx,
		o.q(`SELECT status, total FROM orders WHERE created_at >= ? AND created_at <= ?`),
		dbTime(from), dbTime(to),
	)
	if err != nil {
		return nil, fmt.Errorf("query order totals: %w", err)
	}
	defer rows.Close()

	var result []domain.OrderTotal
	for rows.Next() {
		var t domain.OrderTotal
		if err := rows.Scan(&t.Status, &t.Total); err != nil {
			return nil, fmt.Errorf("scan order total: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (o *OrderStore) loadChildren(ctx context.Context, order *domain.Order) error {
	rows, err := o.db.QueryContext(ctx, o.q(`
		SELECT line, product_id, name, image, sku, size, quantity, unit_price, line_total
		FROM order_items WHERE order_id = ? ORDER BY line`), order.ID)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	order.Items = []domain.OrderItem{}
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.Line, &it.ProductID, &it.Name, &it.Image, &it.SKU, &it.Size,
			&it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			rows.Close()
			return fmt.Errorf("scan order item: %w", err)
		}
		order.Items = append(order.Items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("query order items: %w", err)
	}

	rows, err = o.db.QueryContext(ctx, o.q(`
		SELECT seq, status, note, updated_by, updated_at
		FROM order_status_history WHERE order_id = ? ORDER BY seq`), order.ID)
	if err != nil {
		return fmt.Errorf("query status history: %w", err)
	}
	defer rows.Close()

	order.StatusHistory = []domain.StatusChange{}
	for rows.Next() {
		var h domain.StatusChange
		if err := rows.Scan(&h.Seq, &h.Status, &h.Note, &h.UpdatedBy, &h.UpdatedAt); err != nil {
			return fmt.Errorf("scan status history: %w", err)
		}
		h.UpdatedAt = h.UpdatedAt.UTC()
		order.StatusHistory = append(order.StatusHistory, h)
	}
	return rows.Err()
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o                                        domain.Order
		shipping, billing                        string
		paidAt, shippedAt, deliveredAt, cancelAt sql.NullTime
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.CustomerEmail, &shipping, &billing,
		&o.Payment.Method, &o.Payment.Status, &o.Payment.TransactionID, &paidAt,
		&o.Totals.Subtotal, &o.Totals.Tax, &o.Totals.Shipping, &o.Totals.Discount, &o.Totals.Total, &o.Status,
		&o.Tracking.Carrier, &o.Tracking.TrackingNumber, &o.Tracking.TrackingURL, &shippedAt, &deliveredAt,
		&o.Notes, &cancelAt, &o.CancellationReason, &o.Version, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(shipping), &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("decode shipping address of %s: %w", o.ID, err)
	}
	if err := json.Unmarshal([]byte(billing), &o.BillingAddress); err != nil {
		return nil, fmt.Errorf("decode billing address of %s: %w", o.ID, err)
	}
	o.Payment.PaidAt = timePtr(paidAt)
	o.Tracking.ShippedAt = timePtr(shippedAt)
	o.Tracking.DeliveredAt = timePtr(deliveredAt)
	o.CancelledAt = timePtr(cancelAt)
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return &o, nil
}
