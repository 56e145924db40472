package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
)

const (
	maxBodyBytes        = 1 << 20
	healthCheckTimeout  = 2 * time.Second
	defaultProductLimit = 20
)

// Pinger is a dependency the health check pings.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HTTPHandler struct {
	orderService *service.OrderService
	cartService  *service.CartService
	catalog      port.CatalogRepository
	checks       map[string]Pinger
}

type envelope struct {
	Status  string            `json:"status"`
	Data    any               `json:"data,omitempty"`
	Kind    string            `json:"kind,omitempty"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

func NewHTTPHandler(
	orderService *service.OrderService,
	cartService *service.CartService,
	catalog port.CatalogRepository,
	checks map[string]Pinger,
) *HTTPHandler {
	return &HTTPHandler{
		orderService: orderService,
		cartService:  cartService,
		catalog:      catalog,
		checks:       checks,
	}
}

// Routes returns the full HTTP API.
func (h *HTTPHandler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.HealthCheck)

	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)

	mux.HandleFunc("GET /api/cart", requireUser(h.GetCart))
	mux.HandleFunc("POST /api/cart", requireUser(h.AddCartItem))
	mux.HandleFunc("DELETE /api/cart", requireUser(h.ClearCart))
	mux.HandleFunc("PUT /api/cart/{itemId}", requireUser(h.UpdateCartItem))
	mux.HandleFunc("DELETE /api/cart/{itemId}", requireUser(h.RemoveCartItem))

	mux.HandleFunc("POST /api/orders", requireUser(h.CreateOrder))
	mux.HandleFunc("GET /api/orders", requireUser(h.ListMyOrders))
	mux.HandleFunc("GET /api/orders/{id}", requireUser(h.GetOrder))
	mux.HandleFunc("PUT /api/orders/{id}/cancel", requireUser(h.CancelOrder))

	mux.HandleFunc("GET /api/admin/orders", requireAdmin(h.ListAllOrders))
	mux.HandleFunc("GET /api/admin/orders/stats", requireAdmin(h.OrderStats))
	mux.HandleFunc("PUT /api/admin/orders/{id}/status", requireAdmin(h.UpdateOrderStatus))

	return logRequests(mux)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, dep := range h.checks {
		if err := dep.Ping(ctx); err != nil {
			slog.Warn("Health check failed", "dependency", name, "err", err)
			results[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "up"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "unavailable"
	}
	writeJSON(w, status, map[string]any{"status": overall, "checks": results})
}

type productView struct {
	domain.Product
	TotalStock         int `json:"total_stock"`
	DiscountPercentage int `json:"discount_percentage"`
}

func newProductView(p domain.Product) productView {
	return productView{Product: p, TotalStock: p.TotalStock(), DiscountPercentage: p.DiscountPercentage()}
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pagingParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	page, limit, offset, err := domain.NormalizePaging(page, limit, defaultProductLimit)
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	products, total, err := h.catalog.ListProducts(r.Context(), port.ProductFilter{
		CategoryID: q.Get("category"),
		Featured:   q.Get("featured") == "true",
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		writeError(w, fmt.Errorf("failed to list products: %w", err))
		return
	}

	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, newProductView(p))
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"products":   views,
		"pagination": domain.NewPage(page, limit, total),
	})
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	product, err := h.catalog.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, fmt.Errorf("failed to load product %s: %w", id, err))
		return
	}
	if product == nil || !product.IsActive {
		writeError(w, domain.NewProductNotFoundError(id))
		return
	}
	writeSuccess(w, http.StatusOK, newProductView(*product))
}

// requireUser rejects requests without a forwarded identity.
func requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := newActor(r.Header.Get(headerUserID), r.Header.Get(headerUserRole), r.Header.Get(headerUserEmail))
		if !ok {
			writeJSON(w, http.StatusUnauthorized, envelope{
				Status:  "fail",
				Kind:    "UNAUTHENTICATED",
				Message: "authentication required",
			})
			return
		}
		next(w, r.WithContext(withActor(r.Context(), actor)))
	}
}

func requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return requireUser(func(w http.ResponseWriter, r *http.Request) {
		if !actorFrom(r.Context()).IsAdmin() {
			writeError(w, &domain.Error{Kind: domain.KindUnauthorized, Message: "admin access required"})
			return
		}
		next(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.NewValidationError("invalid request body")
	}
	return nil
}

func pagingParams(r *http.Request) (int, int, error) {
	page, err := intParam(r, "page")
	if err != nil {
		return 0, 0, err
	}
	limit, err := intParam(r, "limit")
	if err != nil {
		return 0, 0, err
	}
	return page, limit, nil
}

func intParam(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, domain.NewValidationError("%s must be an integer", name)
	}
	return n, nil
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Status: "success", Data: data})
}

// writeError maps domain kinds to status codes. Errors without a kind are
// infrastructure failures: logged, and reported without detail.
func writeError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	status := httpStatus(kind)
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "err", err)
		writeJSON(w, status, envelope{Status: "error", Kind: "INTERNAL", Message: "internal server error"})
		return
	}

	var de *domain.Error
	errors.As(err, &de)
	writeJSON(w, status, envelope{Status: "fail", Kind: string(kind), Message: de.Message, Details: de.Details})
}

func httpStatus(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation, domain.KindEmptyCart, domain.KindSizeUnavailable,
		domain.KindInsufficientStock, domain.KindNotCancellable, domain.KindIllegalTransition:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUnauthorized:
		return http.StatusForbidden
	case domain.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
