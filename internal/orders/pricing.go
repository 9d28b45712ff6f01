package orders

// ShippingPolicy decides the delivery fee for an order subtotal.
type ShippingPolicy interface {
	Cost(subtotal int64) int64
}

// FlatRateShipping charges Fee, waived once the subtotal reaches FreeAbove
// (FreeAbove <= 0 disables the waiver).
type FlatRateShipping struct {
	Fee       int64
	FreeAbove int64
}

func (p FlatRateShipping) Cost(subtotal int64) int64 {
	if p.FreeAbove > 0 && subtotal >= p.FreeAbove {
		return 0
	}
	return p.Fee
}

// TaxPolicy decides the tax/fee component of the order total.
type TaxPolicy interface {
	Tax(subtotal int64, method PaymentMethod) int64
}

// Provider transaction fees in basis points. Cash on delivery carries none.
var methodFeeBps = map[PaymentMethod]int64{
	PayOrangeMoney:    200,
	PayMTNMoMo:        200,
	PayWave:           100,
	PayCard:           250,
	PayCashOnDelivery: 0,
}

// MethodFeeTax applies the payment provider's transaction fee to the
// subtotal, rounded down to whole currency units.
type MethodFeeTax struct{}

func (MethodFeeTax) Tax(subtotal int64, method PaymentMethod) int64 {
	return subtotal * methodFeeBps[method] / 10000
}

// NoTax is for deployments that price fees into the catalog instead.
type NoTax struct{}

func (NoTax) Tax(int64, PaymentMethod) int64 { return 0 }
