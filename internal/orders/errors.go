package orders

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrMissingAddress   = errors.New("delivery address is required")
	ErrMissingPhone     = errors.New("delivery phone is required")
	ErrInvalidQty       = errors.New("quantity must be positive")
	ErrInvalidPayMethod = errors.New("unknown payment method")
	ErrOrderNotFound    = errors.New("order not found")
	ErrAlreadyPaid      = errors.New("order already paid")
	ErrEscrowReleased   = errors.New("escrow already released")
	ErrNotBuyer         = errors.New("only the order's buyer may do this")
	ErrUnauthorized     = errors.New("role not allowed for this transition")
)

type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ProductID)
}

// Shortage describes one product the cart asked too much of.
type Shortage struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
}

// InsufficientStockError aggregates every shortage in the cart, not just
// the first, so the buyer sees the full picture in one round trip.
type InsufficientStockError struct {
	Shortages []Shortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		name := s.ProductName
		if name == "" {
			name = s.ProductID
		}
		parts = append(parts, fmt.Sprintf("%q available %d, requested %d", name, s.Available, s.Requested))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order transition %s -> %s", e.From, e.To)
}

type PaymentFailedError struct {
	Reason string
}

func (e *PaymentFailedError) Error() string {
	return "payment failed: " + e.Reason
}
