package orders

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecomputeTotal(t *testing.T) {
	o := Order{Subtotal: 2500, Shipping: 1500, Tax: 50}
	o.RecomputeTotal()
	assert.Equal(t, int64(4050), o.Total)

	o.Shipping = 0
	o.RecomputeTotal()
	assert.Equal(t, int64(2550), o.Total)
}

func TestAppendNote(t *testing.T) {
	var o Order
	o.AppendNote("please gift wrap")
	o.AppendNote("Annulation: changed my mind")
	o.AppendNote("")
	assert.Equal(t, "please gift wrap\nAnnulation: changed my mind", o.Note)
}

func TestArtisanIDsDistinct(t *testing.T) {
	o := Order{Items: []OrderItem{
		{ArtisanID: "a-awa"},
		{ArtisanID: "a-moussa"},
		{ArtisanID: "a-awa"},
		{ArtisanID: ""},
	}}
	assert.Equal(t, []string{"a-awa", "a-moussa"}, o.ArtisanIDs())
}

func TestNewOrderNumber(t *testing.T) {
	n := NewOrderNumber()
	require.True(t, strings.HasPrefix(n, "ORD-"))
	assert.Len(t, n, len("ORD-")+10)
	assert.NotEqual(t, n, NewOrderNumber())
}

func TestValidPaymentMethod(t *testing.T) {
	assert.True(t, ValidPaymentMethod(PayOrangeMoney))
	assert.True(t, ValidPaymentMethod(PayCashOnDelivery))
	assert.False(t, ValidPaymentMethod("paypal"))
	assert.False(t, ValidPaymentMethod(""))
}
