package handler

import (
	"net/http"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

const headerIdempotencyKey = "Idempotency-Key"

type createOrderRequest struct {
	RequestID       string          `json:"request_id"`
	ShippingAddress domain.Address  `json:"shipping_address"`
	BillingAddress  *domain.Address `json:"billing_address"`
	PaymentMethod   string          `json:"payment_method"`
	Notes           string          `json:"notes"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

type updateStatusRequest struct {
	Status         string `json:"status"`
	Note           string `json:"note"`
	TrackingNumber string `json:"tracking_number"`
	Carrier        string `json:"carrier"`
}

func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.RequestID == "" {
		req.RequestID = r.Header.Get(headerIdempotencyKey)
	}

	order, err := h.orderService.CreateOrder(r.Context(), service.CreateOrderInput{
		Actor:           actorFrom(r.Context()),
		RequestID:       req.RequestID,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, order)
}

func (h *HTTPHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pagingParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	list, err := h.orderService.ListUserOrders(r.Context(), actorFrom(r.Context()), page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, list)
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderService.GetOrder(r.Context(), r.PathValue("id"), actorFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, order)
}

func (h *HTTPHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelOrderRequest
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
	}

	order, err := h.orderService.CancelOrder(r.Context(), r.PathValue("id"), actorFrom(r.Context()), req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, order)
}

func (h *HTTPHandler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pagingParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	list, err := h.orderService.ListOrders(r.Context(), r.URL.Query().Get("status"), page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, list)
}

func (h *HTTPHandler) OrderStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parseDate(q.Get("start_date"), false)
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := parseDate(q.Get("end_date"), true)
	if err != nil {
		writeError(w, err)
		return
	}

	report, err := h.orderService.GetOrderStats(r.Context(), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, report)
}

func (h *HTTPHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	order, err := h.orderService.UpdateOrderStatus(r.Context(), service.UpdateStatusInput{
		OrderID:         r.PathValue("id"),
		Status:          req.Status,
		Note:            req.Note,
		TrackingNumber:  req.TrackingNumber,
		TrackingCarrier: req.Carrier,
		ActorID:         actorFrom(r.Context()).ID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, order)
}

// parseDate accepts RFC 3339 or a plain YYYY-MM-DD date. A plain end date
// covers the whole day.
func parseDate(v string, endOfDay bool) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, domain.NewValidationError("invalid date %q", v)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Microsecond)
	}
	return &t, nil
}
