package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahelcraft/marketplace/internal/checkout"
	"github.com/sahelcraft/marketplace/internal/orders"
	"github.com/sahelcraft/marketplace/internal/payment"
	"github.com/sahelcraft/marketplace/internal/store"
)

type fakeGateway struct {
	results []payment.Result
	errs    []error
	calls   int
}

func (g *fakeGateway) AttemptPayment(ctx context.Context, orderID string, method orders.PaymentMethod, phone string, amount int64) (payment.Result, error) {
	i := g.calls
	g.calls++
	var res payment.Result
	var err error
	if i < len(g.results) {
		res = g.results[i]
	}
	if i < len(g.errs) {
		err = g.errs[i]
	}
	return res, err
}

type stuckGateway struct{}

func (stuckGateway) AttemptPayment(ctx context.Context, orderID string, method orders.PaymentMethod, phone string, amount int64) (payment.Result, error) {
	<-ctx.Done()
	return payment.Result{}, ctx.Err()
}

type recordingHooks struct {
	notified, refunded, released int
}

func (h *recordingHooks) NotifyArtisans(context.Context, *orders.Order) { h.notified++ }
func (h *recordingHooks) TransferRefund(context.Context, *orders.Order) { h.refunded++ }
func (h *recordingHooks) ReleaseFunds(context.Context, *orders.Order)   { h.released++ }

type fixture struct {
	mem     *store.Mem
	manager *Manager
	gateway *fakeGateway
	hooks   *recordingHooks
	order   *orders.Order
}

// newFixture seeds a catalog, checks out a two-line cart and wires a
// manager around the resulting pending order.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMem()
	mem.PutProduct(orders.Product{ID: "prod-a", ArtisanID: "art-1", Name: "Bogolan throw", Price: 1000, Stock: 5})
	mem.PutProduct(orders.Product{ID: "prod-b", ArtisanID: "art-2", Name: "Calabash bowl", Price: 500, Stock: 5})

	eng := &checkout.Engine{Store: mem, Shipping: orders.FlatRateShipping{}, Tax: orders.NoTax{}}
	o, err := eng.Checkout(context.Background(), checkout.Input{
		BuyerID: "buyer-1",
		Lines: []orders.CartLine{
			{ProductID: "prod-a", Qty: 2},
			{ProductID: "prod-b", Qty: 1},
		},
		DeliveryAddress: "12 Rue des Artisans, Bamako",
		DeliveryPhone:   "70000000",
		PaymentMethod:   orders.PayOrangeMoney,
	})
	require.NoError(t, err)

	gw := &fakeGateway{results: []payment.Result{{Success: true, TransactionID: "TXN_TEST00000001"}}}
	hooks := &recordingHooks{}
	return &fixture{
		mem:     mem,
		gateway: gw,
		hooks:   hooks,
		order:   o,
		manager: &Manager{
			Store:          mem,
			Gateway:        gw,
			Hooks:          hooks,
			PaymentTimeout: time.Second,
			Now:            func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) },
		},
	}
}

func (f *fixture) pay(t *testing.T) *orders.Order {
	t.Helper()
	o, err := f.manager.ProcessPayment(context.Background(), f.order.ID, "buyer-1", orders.PayOrangeMoney, "70000000")
	require.NoError(t, err)
	return o
}

func (f *fixture) advanceTo(t *testing.T, statuses ...orders.Status) *orders.Order {
	t.Helper()
	o := f.pay(t)
	for _, s := range statuses {
		var err error
		switch s {
		case orders.StatusPreparing, orders.StatusDelivering:
			o, err = f.manager.UpdateStatus(context.Background(), f.order.ID, "art-1", orders.RoleArtisan, s)
		case orders.StatusDelivered:
			o, err = f.manager.ConfirmDelivery(context.Background(), f.order.ID, "buyer-1")
		case orders.StatusReceived:
			o, err = f.manager.ConfirmReceived(context.Background(), f.order.ID, "buyer-1")
		}
		require.NoError(t, err)
	}
	return o
}

func (f *fixture) stock(t *testing.T, productID string) int {
	t.Helper()
	p, err := f.mem.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

func TestProcessPaymentSuccess(t *testing.T) {
	f := newFixture(t)

	o := f.pay(t)
	assert.True(t, o.IsPaid)
	assert.Equal(t, orders.StatusPaid, o.Status)
	assert.Equal(t, orders.PaymentPaid, o.PaymentStatus)
	assert.Equal(t, "TXN_TEST00000001", o.TransactionID)
	require.NotNil(t, o.PaidAt)
	assert.Equal(t, 1, f.hooks.notified)

	// Payment does not touch stock; it was reserved at checkout.
	assert.Equal(t, 3, f.stock(t, "prod-a"))
}

func TestProcessPaymentIdempotent(t *testing.T) {
	f := newFixture(t)
	f.gateway.results = append(f.gateway.results, payment.Result{Success: true, TransactionID: "TXN_OTHER"})

	first := f.pay(t)
	_, err := f.manager.ProcessPayment(context.Background(), f.order.ID, "buyer-1", orders.PayOrangeMoney, "70000000")
	assert.ErrorIs(t, err, orders.ErrAlreadyPaid)

	// The recorded transaction id is the first winner's.
	got, err := f.mem.GetOrder(context.Background(), f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, first.TransactionID, got.TransactionID)
}

func TestProcessPaymentDeclined(t *testing.T) {
	f := newFixture(t)
	f.gateway.results = []payment.Result{{Success: false, Reason: "transaction declined by provider"}}

	_, err := f.manager.ProcessPayment(context.Background(), f.order.ID, "buyer-1", orders.PayOrangeMoney, "70000000")
	var payErr *orders.PaymentFailedError
	require.ErrorAs(t, err, &payErr)
	assert.Equal(t, "transaction declined by provider", payErr.Reason)

	// Order stays pending and unpaid; a retry can succeed.
	got, _ := f.mem.GetOrder(context.Background(), f.order.ID)
	assert.Equal(t, orders.StatusPending, got.Status)
	assert.False(t, got.IsPaid)

	f.gateway.results = append(f.gateway.results, payment.Result{Success: true, TransactionID: "TXN_RETRY"})
	o := f.pay(t)
	assert.Equal(t, "TXN_RETRY", o.TransactionID)
}

func TestProcessPaymentTimeout(t *testing.T) {
	f := newFixture(t)
	f.manager.Gateway = stuckGateway{}
	f.manager.PaymentTimeout = 20 * time.Millisecond

	_, err := f.manager.ProcessPayment(context.Background(), f.order.ID, "buyer-1", orders.PayOrangeMoney, "70000000")
	var payErr *orders.PaymentFailedError
	require.ErrorAs(t, err, &payErr)

	got, _ := f.mem.GetOrder(context.Background(), f.order.ID)
	assert.Equal(t, orders.StatusPending, got.Status)
	assert.False(t, got.IsPaid)
}

func TestProcessPaymentWrongBuyer(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.ProcessPayment(context.Background(), f.order.ID, "someone-else", orders.PayOrangeMoney, "70000000")
	assert.ErrorIs(t, err, orders.ErrNotBuyer)
}

func TestProcessPaymentUnknownOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.ProcessPayment(context.Background(), "nope", "buyer-1", orders.PayOrangeMoney, "70000000")
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)
}

func TestCancelPendingRestoresStock(t *testing.T) {
	f := newFixture(t)

	o, err := f.manager.Cancel(context.Background(), f.order.ID, "buyer-1", "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCancelled, o.Status)
	assert.Contains(t, o.Note, "changed my mind")

	// Round-trip: stock back to its pre-checkout values.
	assert.Equal(t, 5, f.stock(t, "prod-a"))
	assert.Equal(t, 5, f.stock(t, "prod-b"))
}

func TestCancelPaidRefunds(t *testing.T) {
	f := newFixture(t)
	f.pay(t)

	o, err := f.manager.Cancel(context.Background(), f.order.ID, "buyer-1", "arrived too late")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusRefunded, o.Status)
	assert.Equal(t, orders.PaymentRefunded, o.PaymentStatus)
	assert.Equal(t, 1, f.hooks.refunded)
	assert.Equal(t, 5, f.stock(t, "prod-a"))
	assert.Equal(t, 5, f.stock(t, "prod-b"))
}

func TestCancelAfterDeliveryRejected(t *testing.T) {
	f := newFixture(t)
	f.advanceTo(t, orders.StatusPreparing, orders.StatusDelivering, orders.StatusDelivered)

	_, err := f.manager.Cancel(context.Background(), f.order.ID, "buyer-1", "")
	var transErr *orders.InvalidTransitionError
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, orders.StatusDelivered, transErr.From)

	// No stock came back.
	assert.Equal(t, 3, f.stock(t, "prod-a"))
}

func TestCancelWrongUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Cancel(context.Background(), f.order.ID, "art-1", "")
	assert.ErrorIs(t, err, orders.ErrNotBuyer)
}

func TestConfirmDeliveryReleasesEscrowOnce(t *testing.T) {
	f := newFixture(t)
	o := f.advanceTo(t, orders.StatusPreparing, orders.StatusDelivering, orders.StatusDelivered)

	assert.Equal(t, orders.StatusDelivered, o.Status)
	assert.True(t, o.EscrowReleased)
	require.NotNil(t, o.DeliveredAt)
	assert.Equal(t, 1, f.hooks.released)

	// A second release attempt is refused.
	_, err := f.manager.ReleaseEscrow(context.Background(), f.order.ID)
	assert.ErrorIs(t, err, orders.ErrEscrowReleased)
	assert.Equal(t, 1, f.hooks.released)
}

func TestConfirmDeliveryRequiresDelivering(t *testing.T) {
	f := newFixture(t)
	f.pay(t)

	_, err := f.manager.ConfirmDelivery(context.Background(), f.order.ID, "buyer-1")
	var transErr *orders.InvalidTransitionError
	require.ErrorAs(t, err, &transErr)
}

func TestConfirmReceived(t *testing.T) {
	f := newFixture(t)
	o := f.advanceTo(t, orders.StatusPreparing, orders.StatusDelivering, orders.StatusDelivered, orders.StatusReceived)

	assert.Equal(t, orders.StatusReceived, o.Status)
	require.NotNil(t, o.ReceivedAt)
	// Escrow release and receipt are recorded independently.
	assert.True(t, o.EscrowReleased)
}

func TestConfirmReceivedWrongBuyer(t *testing.T) {
	f := newFixture(t)
	f.advanceTo(t, orders.StatusPreparing, orders.StatusDelivering, orders.StatusDelivered)

	_, err := f.manager.ConfirmReceived(context.Background(), f.order.ID, "intruder")
	assert.ErrorIs(t, err, orders.ErrNotBuyer)
}

func TestUpdateStatusArtisanFlow(t *testing.T) {
	f := newFixture(t)
	f.pay(t)

	o, err := f.manager.UpdateStatus(context.Background(), f.order.ID, "art-1", orders.RoleArtisan, orders.StatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPreparing, o.Status)

	o, err = f.manager.UpdateStatus(context.Background(), f.order.ID, "art-1", orders.RoleArtisan, orders.StatusDelivering)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusDelivering, o.Status)

	// Artisans cannot confirm delivery; that is the buyer's move.
	_, err = f.manager.UpdateStatus(context.Background(), f.order.ID, "art-1", orders.RoleArtisan, orders.StatusDelivered)
	assert.ErrorIs(t, err, orders.ErrUnauthorized)
}

func TestUpdateStatusIllegalTransition(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.UpdateStatus(context.Background(), f.order.ID, "art-1", orders.RoleArtisan, orders.StatusDelivering)
	var transErr *orders.InvalidTransitionError
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, orders.StatusPending, transErr.From)
	assert.Equal(t, orders.StatusDelivering, transErr.To)
}

func TestUpdateStatusBuyerCannotDriveFulfilment(t *testing.T) {
	f := newFixture(t)
	f.pay(t)

	_, err := f.manager.UpdateStatus(context.Background(), f.order.ID, "buyer-1", orders.RoleBuyer, orders.StatusPreparing)
	assert.ErrorIs(t, err, orders.ErrUnauthorized)
}

func TestUpdateStatusBuyerCancelRestocks(t *testing.T) {
	f := newFixture(t)

	o, err := f.manager.UpdateStatus(context.Background(), f.order.ID, "buyer-1", orders.RoleBuyer, orders.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCancelled, o.Status)
	assert.Equal(t, 5, f.stock(t, "prod-a"))
}
