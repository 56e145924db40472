package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

type CatalogStore struct {
	*SQLStore
	now func() time.Time
}

func NewCatalogStore(s *SQLStore) *CatalogStore {
	return &CatalogStore{SQLStore: s, now: time.Now}
}

var _ port.CatalogRepository = (*CatalogStore)(nil)

const productColumns = `id, name, slug, description, price, compare_at_price, category_id, brand,
	images, featured, is_active, is_deleted, created_at, updated_at`

func (c *CatalogStore) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	row := c.db.QueryRowContext(ctx, c.q(`SELECT `+productColumns+` FROM products WHERE id = ? AND is_deleted = ?`), id, false)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}

	sizes, err := c.loadSizes(ctx, c.db, p.ID)
	if err != nil {
		return nil, err
	}
	p.Sizes = sizes
	return p, nil
}

func (c *CatalogStore) StockFor(ctx context.Context, productID, size string) (int, error) {
	return c.stockFor(ctx, c.db, productID, size)
}

func (c *CatalogStore) stockFor(ctx context.Context, db querier, productID, size string) (int, error) {
	var stock int
	err := db.QueryRowContext(ctx, c.q(`SELECT stock FROM product_sizes WHERE product_id = ? AND size = ?`),
		productID, size).Scan(&stock)
	if err == nil {
		return stock, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("query stock: %w", err)
	}

	var n int
	if err := db.QueryRowContext(ctx, c.q(`SELECT COUNT(*) FROM products WHERE id = ?`), productID).Scan(&n); err != nil {
		return 0, fmt.Errorf("query product: %w", err)
	}
	if n == 0 {
		return 0, domain.NewProductNotFoundError(productID)
	}
	return 0, domain.NewSizeUnavailableError(productID, size)
}

// AdjustStock applies delta with a single conditional UPDATE so concurrent
// checkouts cannot take stock below zero.
func (c *CatalogStore) AdjustStock(ctx context.Context, productID, size string, delta int) (int, error) {
	if delta == 0 {
		return c.StockFor(ctx, productID, size)
	}

	var stock int
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, c.q(`
			UPDATE product_sizes
			SET stock = stock + ?
			WHERE product_id = ? AND size = ? AND stock + ? >= 0`),
			delta, productID, size, delta,
		)
		if err != nil {
			return fmt.Errorf("update stock: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("update stock: %w", err)
		}
		current, err := c.stockFor(ctx, tx, productID, size)
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.NewInsufficientStockError(productID, size, current, -delta)
		}
		stock = current
		return nil
	})
	if err != nil {
		return 0, err
	}
	return stock, nil
}

// SaveProduct inserts or replaces a product together with its sizes.
func (c *CatalogStore) SaveProduct(ctx context.Context, p *domain.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	now := dbTime(c.now())
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Slug == "" {
		p.Slug = domain.ProductSlug(p.Name, p.ID)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	images := p.Images
	if images == nil {
		images = []domain.ProductImage{}
	}
	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return fmt.Errorf("marshal images: %w", err)
	}

	cols := []string{"id", "name", "slug", "description", "price", "compare_at_price", "category_id", "brand",
		"images", "featured", "is_active", "is_deleted", "created_at", "updated_at"}
	updates := []string{"name", "slug", "description", "price", "compare_at_price", "category_id", "brand",
		"images", "featured", "is_active", "is_deleted", "updated_at"}
	stmt := c.upsert("products", cols, []string{"id"}, updates)

	return c.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, c.q(stmt),
			p.ID, p.Name, p.Slug, p.Description, p.Price, p.CompareAtPrice, p.CategoryID, p.Brand,
			string(imagesJSON), p.Featured, p.IsActive, p.IsDeleted, dbTime(p.CreatedAt), p.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.NewValidationError("slug %s is already taken", p.Slug)
			}
			return fmt.Errorf("save product: %w", err)
		}

		if _, err := tx.ExecContext(ctx, c.q(`DELETE FROM product_sizes WHERE product_id = ?`), p.ID); err != nil {
			return fmt.Errorf("clear sizes: %w", err)
		}
		for i, s := range p.Sizes {
			_, err := tx.ExecContext(ctx, c.q(`
				INSERT INTO product_sizes (product_id, size, position, stock, sku)
				VALUES (?, ?, ?, ?, ?)`),
				p.ID, s.Size, i, s.Stock, s.SKU,
			)
			if err != nil {
				return fmt.Errorf("insert size %s: %w", s.Size, err)
			}
		}
		return nil
	})
}

// ListProducts returns active products, newest first.
func (c *CatalogStore) ListProducts(ctx context.Context, filter port.ProductFilter) ([]domain.Product, int, error) {
	where := []string{"is_deleted = ?", "is_active = ?"}
	args := []any{false, true}
	if filter.CategoryID != "" {
		where = append(where, "category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if filter.Featured {
		where = append(where, "featured = ?")
		args = append(args, true)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := c.db.QueryRowContext(ctx, c.q(`SELECT COUNT(*) FROM products WHERE `+cond), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	rows, err := c.db.QueryContext(ctx,
		c.q(`SELECT `+productColumns+` FROM products WHERE `+cond+` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`),
		append(args, limit, filter.Offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("query products: %w", err)
	}

	for i := range products {
		sizes, err := c.loadSizes(ctx, c.db, products[i].ID)
		if err != nil {
			return nil, 0, err
		}
		products[i].Sizes = sizes
	}
	return products, total, nil
}

// SoftDelete hides a product from checkout and listings while keeping order
// history intact.
func (c *CatalogStore) SoftDelete(ctx context.Context, id string) error {
	result, err := c.db.ExecContext(ctx, c.q(`UPDATE products SET is_deleted = ?, updated_at = ? WHERE id = ?`),
		true, dbTime(c.now()), id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.NewProductNotFoundError(id)
	}
	return nil
}

func (c *CatalogStore) loadSizes(ctx context.Context, db querier, productID string) ([]domain.SizeStock, error) {
	rows, err := db.QueryContext(ctx,
		c.q(`SELECT size, stock, sku FROM product_sizes WHERE product_id = ? ORDER BY position`), productID)
	if err != nil {
		return nil, fmt.Errorf("query sizes: %w", err)
	}
	defer rows.Close()

	sizes := []domain.SizeStock{}
	for rows.Next() {
		var s domain.SizeStock
		if err := rows.Scan(&s.Size, &s.Stock, &s.SKU); err != nil {
			return nil, fmt.Errorf("scan size: %w", err)
		}
		sizes = append(sizes, s)
	}
	return sizes, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p      domain.Product
		images string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.CompareAtPrice, &p.CategoryID, &p.Brand,
		&images, &p.Featured, &p.IsActive, &p.IsDeleted, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(images), &p.Images); err != nil {
		return nil, fmt.Errorf("decode images of %s: %w", p.ID, err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}
