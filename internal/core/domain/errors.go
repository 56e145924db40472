package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure so transports can map it to a status code.
type Kind string

const (
	KindValidation        Kind = "VALIDATION"
	KindNotFound          Kind = "NOT_FOUND"
	KindEmptyCart         Kind = "EMPTY_CART"
	KindSizeUnavailable   Kind = "SIZE_UNAVAILABLE"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindUnauthorized      Kind = "UNAUTHORIZED"
	KindNotCancellable    Kind = "NOT_CANCELLABLE"
	KindIllegalTransition Kind = "ILLEGAL_TRANSITION"
	KindConflict          Kind = "CONFLICT"
)

// Error is a domain failure with a stable kind and a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrEmptyCart           = &Error{Kind: KindEmptyCart, Message: "cart is empty"}
	ErrCartNotFound        = &Error{Kind: KindNotFound, Message: "cart not found"}
	ErrCartItemNotFound    = &Error{Kind: KindNotFound, Message: "item not found in cart"}
	ErrOrderNotFound       = &Error{Kind: KindNotFound, Message: "order not found"}
	ErrOrderNotCancellable = &Error{Kind: KindNotCancellable, Message: "order cannot be cancelled at this stage"}
	ErrNotAuthorized       = &Error{Kind: KindUnauthorized, Message: "not authorized to access this order"}
	ErrOptimisticLock      = &Error{Kind: KindConflict, Message: "order was modified concurrently"}
	ErrDuplicateRequest    = &Error{Kind: KindConflict, Message: "duplicate request"}
)

// KindOf returns the kind of the first *Error in err's chain, or "" for
// infrastructure failures.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func NewValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewProductNotFoundError(productID string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("product %s not found", productID),
		Details: map[string]string{"product_id": productID},
	}
}

func NewSizeUnavailableError(productID, size string) *Error {
	return &Error{
		Kind:    KindSizeUnavailable,
		Message: fmt.Sprintf("size %s not available for product %s", size, productID),
		Details: map[string]string{"product_id": productID, "size": size},
	}
}

func NewInsufficientStockError(productID, size string, available, requested int) *Error {
	return &Error{
		Kind: KindInsufficientStock,
		Message: fmt.Sprintf("insufficient stock for product %s size %s: only %d items available in stock",
			productID, size, available),
		Details: map[string]string{
			"product_id": productID,
			"size":       size,
			"available":  fmt.Sprint(available),
			"requested":  fmt.Sprint(requested),
		},
	}
}

func NewIllegalTransitionError(from, to OrderStatus) *Error {
	return &Error{
		Kind:    KindIllegalTransition,
		Message: fmt.Sprintf("cannot change order status from %s to %s", from, to),
		Details: map[string]string{"from": string(from), "to": string(to)},
	}
}
