package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type PaymentMethod string

const (
	PayOrangeMoney    PaymentMethod = "orange_money"
	PayMTNMoMo        PaymentMethod = "mtn_momo"
	PayWave           PaymentMethod = "wave"
	PayCard           PaymentMethod = "card"
	PayCashOnDelivery PaymentMethod = "delivery"
)

func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PayOrangeMoney, PayMTNMoMo, PayWave, PayCard, PayCashOnDelivery:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Product is the catalog row the core reads and adjusts. Stock is mutated
// only through the store's locked adjust operation.
type Product struct {
	ID        string
	ArtisanID string
	Name      string
	Price     int64 // minor units; the currency has no fractional subunits
	Stock     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartLine is one requested product+quantity, passed explicitly into
// checkout (no ambient session cart).
type CartLine struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type Order struct {
	ID      string
	Number  string // external order number, unique
	BuyerID string

	Status        Status
	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus
	IsPaid        bool
	TransactionID string

	Subtotal int64
	Shipping int64
	Tax      int64
	Total    int64

	DeliveryAddress string
	DeliveryPhone   string
	BillingAddress  string
	TrackingNumber  string
	Note            string

	EscrowReleased   bool
	EscrowReleasedAt *time.Time

	CreatedAt   time.Time
	UpdatedAt   time.Time
	PaidAt      *time.Time
	DeliveredAt *time.Time
	ReceivedAt  *time.Time

	Items []OrderItem
}

// OrderItem snapshots what was bought at checkout time. The snapshot
// fields never follow later product edits.
type OrderItem struct {
	ID          string
	OrderID     string
	ProductID   string
	ProductName string
	ArtisanID   string
	Qty         int
	UnitPrice   int64
	LineTotal   int64 // UnitPrice * Qty, fixed at checkout
}

// RecomputeTotal keeps total = subtotal + shipping + tax; callers never
// write Total directly.
func (o *Order) RecomputeTotal() {
	o.Total = o.Subtotal + o.Shipping + o.Tax
}

// AppendNote adds a line to the free-text note log.
func (o *Order) AppendNote(line string) {
	if line == "" {
		return
	}
	if o.Note == "" {
		o.Note = line
		return
	}
	o.Note += "\n" + line
}

// ArtisanIDs returns the distinct sellers with items on the order.
func (o *Order) ArtisanIDs() []string {
	seen := map[string]bool{}
	var out []string
	for _, it := range o.Items {
		if it.ArtisanID == "" || seen[it.ArtisanID] {
			continue
		}
		seen[it.ArtisanID] = true
		out = append(out, it.ArtisanID)
	}
	return out
}

// NewOrderNumber generates the externally visible order number.
func NewOrderNumber() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORD-" + strings.ToUpper(hex[:10])
}
