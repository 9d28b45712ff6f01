package httpx

import (
	"time"

	"github.com/sahelcraft/marketplace/internal/orders"
)

type orderView struct {
	ID              string     `json:"id"`
	Number          string     `json:"order_number"`
	BuyerID         string     `json:"buyer_id"`
	Status          string     `json:"status"`
	PaymentMethod   string     `json:"payment_method"`
	PaymentStatus   string     `json:"payment_status"`
	IsPaid          bool       `json:"is_paid"`
	TransactionID   string     `json:"transaction_id,omitempty"`
	Subtotal        int64      `json:"subtotal"`
	Shipping        int64      `json:"shipping"`
	Tax             int64      `json:"tax"`
	Total           int64      `json:"total"`
	DeliveryAddress string     `json:"delivery_address"`
	DeliveryPhone   string     `json:"delivery_phone"`
	BillingAddress  string     `json:"billing_address,omitempty"`
	TrackingNumber  string     `json:"tracking_number,omitempty"`
	Note            string     `json:"note,omitempty"`
	EscrowReleased  bool       `json:"escrow_released"`
	CreatedAt       time.Time  `json:"created_at"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
	DeliveredAt     *time.Time `json:"delivered_at,omitempty"`
	ReceivedAt      *time.Time `json:"received_at,omitempty"`
	Items           []itemView `json:"items"`
	Idempotent      bool       `json:"idempotent,omitempty"`
}

type itemView struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	ArtisanID   string `json:"artisan_id,omitempty"`
	Qty         int    `json:"qty"`
	UnitPrice   int64  `json:"unit_price"`
	LineTotal   int64  `json:"line_total"`
}

type productView struct {
	ID        string `json:"id"`
	ArtisanID string `json:"artisan_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Stock     int    `json:"stock"`
}

func orderResponse(o *orders.Order, idempotent bool) *orderView {
	v := &orderView{
		ID:              o.ID,
		Number:          o.Number,
		BuyerID:         o.BuyerID,
		Status:          string(o.Status),
		PaymentMethod:   string(o.PaymentMethod),
		PaymentStatus:   string(o.PaymentStatus),
		IsPaid:          o.IsPaid,
		TransactionID:   o.TransactionID,
		Subtotal:        o.Subtotal,
		Shipping:        o.Shipping,
		Tax:             o.Tax,
		Total:           o.Total,
		DeliveryAddress: o.DeliveryAddress,
		DeliveryPhone:   o.DeliveryPhone,
		BillingAddress:  o.BillingAddress,
		TrackingNumber:  o.TrackingNumber,
		Note:            o.Note,
		EscrowReleased:  o.EscrowReleased,
		CreatedAt:       o.CreatedAt,
		PaidAt:          o.PaidAt,
		DeliveredAt:     o.DeliveredAt,
		ReceivedAt:      o.ReceivedAt,
		Idempotent:      idempotent,
	}
	for _, it := range o.Items {
		v.Items = append(v.Items, itemView{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			ArtisanID:   it.ArtisanID,
			Qty:         it.Qty,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
		})
	}
	return v
}

// statusSummary is the small shape cached in Redis for hot status reads.
func statusSummary(o *orders.Order) map[string]any {
	return map[string]any{
		"id":             o.ID,
		"order_number":   o.Number,
		"status":         o.Status,
		"payment_status": o.PaymentStatus,
		"is_paid":        o.IsPaid,
		"total":          o.Total,
	}
}

func itemSnapshots(items []orders.OrderItem) []orders.ItemSnapshot {
	out := make([]orders.ItemSnapshot, 0, len(items))
	for _, it := range items {
		out = append(out, orders.ItemSnapshot{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			ArtisanID:   it.ArtisanID,
			Qty:         it.Qty,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
		})
	}
	return out
}

func restockedItems(items []orders.OrderItem) []orders.ItemQty {
	out := make([]orders.ItemQty, 0, len(items))
	for _, it := range items {
		out = append(out, orders.ItemQty{ProductID: it.ProductID, Qty: it.Qty})
	}
	return out
}
