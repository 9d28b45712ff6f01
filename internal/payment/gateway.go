// Package payment is the seam to mobile-money/card providers. Production
// swaps the simulator for a real integration without touching callers.
package payment

import (
	"context"

	"github.com/sahelcraft/marketplace/internal/orders"
)

// Result is the provider's answer to one payment attempt. Reason is set
// only when Success is false.
type Result struct {
	Success       bool
	TransactionID string
	Reason        string
}

// Gateway executes a payment attempt within the caller's context deadline.
// An error means the attempt could not be carried out (transport, timeout);
// a declined payment is a successful call with Success=false.
type Gateway interface {
	AttemptPayment(ctx context.Context, orderID string, method orders.PaymentMethod, phone string, amount int64) (Result, error)
}
