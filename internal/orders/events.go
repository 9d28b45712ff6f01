package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated   = "OrderCreated"
	EventOrderPaid      = "OrderPaid"
	EventPaymentFailed  = "PaymentFailed"
	EventOrderCancelled = "OrderCancelled"
	EventOrderRefunded  = "OrderRefunded"
	EventOrderDelivered = "OrderDelivered"
	EventOrderReceived  = "OrderReceived"
)

// Envelope is the wire format shared by every order event.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type ItemSnapshot struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	ArtisanID   string `json:"artisan_id"`
	Qty         int    `json:"qty"`
	UnitPrice   int64  `json:"unit_price"`
	LineTotal   int64  `json:"line_total"`
}

type ItemQty struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type OrderCreatedPayload struct {
	OrderID     string         `json:"order_id"`
	OrderNumber string         `json:"order_number"`
	BuyerID     string         `json:"buyer_id"`
	Items       []ItemSnapshot `json:"items"`
	Subtotal    int64          `json:"subtotal"`
	Shipping    int64          `json:"shipping"`
	Tax         int64          `json:"tax"`
	Total       int64          `json:"total"`
}

type OrderPaidPayload struct {
	OrderID       string        `json:"order_id"`
	TransactionID string        `json:"transaction_id"`
	Method        PaymentMethod `json:"method"`
	Amount        int64         `json:"amount"`
	ArtisanIDs    []string      `json:"artisan_ids,omitempty"`
}

type PaymentFailedPayload struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

type OrderCancelledPayload struct {
	OrderID   string    `json:"order_id"`
	Reason    string    `json:"reason,omitempty"`
	Restocked []ItemQty `json:"restocked,omitempty"`
	Refunded  bool      `json:"refunded"`
}

type OrderDeliveredPayload struct {
	OrderID        string `json:"order_id"`
	EscrowReleased bool   `json:"escrow_released"`
}

type OrderReceivedPayload struct {
	OrderID string `json:"order_id"`
}
