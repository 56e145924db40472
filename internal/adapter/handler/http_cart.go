package handler

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
)

type cartView struct {
	*domain.Cart
	Subtotal   decimal.Decimal `json:"subtotal"`
	TotalItems int             `json:"total_items"`
}

func newCartView(c *domain.Cart) cartView {
	return cartView{Cart: c, Subtotal: c.Subtotal(), TotalItems: c.TotalItems()}
}

type addCartItemRequest struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.cartService.GetCart(r.Context(), actorFrom(r.Context()).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, newCartView(cart))
}

func (h *HTTPHandler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ProductID == "" {
		writeError(w, domain.NewValidationError("product_id is required"))
		return
	}

	cart, err := h.cartService.AddItem(r.Context(), actorFrom(r.Context()).ID, req.ProductID, req.Size, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, newCartView(cart))
}

func (h *HTTPHandler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := itemIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateCartItemRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	cart, err := h.cartService.UpdateItem(r.Context(), actorFrom(r.Context()).ID, itemID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, newCartView(cart))
}

func (h *HTTPHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := itemIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	cart, err := h.cartService.RemoveItem(r.Context(), actorFrom(r.Context()).ID, itemID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, newCartView(cart))
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.cartService.Clear(r.Context(), actorFrom(r.Context()).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, newCartView(cart))
}

func itemIDParam(r *http.Request) (int, error) {
	id, err := strconv.Atoi(r.PathValue("itemId"))
	if err != nil || id < 1 {
		return 0, domain.NewValidationError("invalid cart item id")
	}
	return id, nil
}
