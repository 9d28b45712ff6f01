package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlatRateShipping(t *testing.T) {
	p := FlatRateShipping{Fee: 1500, FreeAbove: 50000}

	assert.Equal(t, int64(1500), p.Cost(0))
	assert.Equal(t, int64(1500), p.Cost(49999))
	assert.Equal(t, int64(0), p.Cost(50000))
	assert.Equal(t, int64(0), p.Cost(120000))
}

func TestFlatRateShippingNoWaiver(t *testing.T) {
	p := FlatRateShipping{Fee: 2000}
	assert.Equal(t, int64(2000), p.Cost(1_000_000))
}

func TestMethodFeeTax(t *testing.T) {
	tax := MethodFeeTax{}
	tests := []struct {
		method PaymentMethod
		want   int64
	}{
		{PayOrangeMoney, 200},    // 2%
		{PayMTNMoMo, 200},        // 2%
		{PayWave, 100},           // 1%
		{PayCard, 250},           // 2.5%
		{PayCashOnDelivery, 0},   // settled at the door, no provider fee
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, tax.Tax(10000, tt.method), "method %s", tt.method)
	}
}

func TestMethodFeeTaxRoundsDown(t *testing.T) {
	// 2% of 99 is 1.98; whole currency units only.
	assert.Equal(t, int64(1), MethodFeeTax{}.Tax(99, PayOrangeMoney))
	assert.Equal(t, int64(0), MethodFeeTax{}.Tax(49, PayOrangeMoney))
}
