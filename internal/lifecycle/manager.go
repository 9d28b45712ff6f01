// Package lifecycle drives order status transitions and their side
// effects: payment recording, stock restoration on cancellation, refund
// bookkeeping, escrow release.
package lifecycle

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/sahelcraft/marketplace/internal/orders"
	"github.com/sahelcraft/marketplace/internal/payment"
	"github.com/sahelcraft/marketplace/internal/store"
)

// Hooks are the external effects the core declares but does not execute:
// notification fan-out, refund transfer, seller payout.
type Hooks interface {
	NotifyArtisans(ctx context.Context, o *orders.Order)
	TransferRefund(ctx context.Context, o *orders.Order)
	ReleaseFunds(ctx context.Context, o *orders.Order)
}

// NopHooks is the default wiring; real delivery lives outside the core.
type NopHooks struct{}

func (NopHooks) NotifyArtisans(context.Context, *orders.Order) {}
func (NopHooks) TransferRefund(context.Context, *orders.Order) {}
func (NopHooks) ReleaseFunds(context.Context, *orders.Order)   {}

type Manager struct {
	Store          store.Store
	Gateway        payment.Gateway
	Hooks          Hooks
	PaymentTimeout time.Duration // bound on the gateway call; default 10s
	Now            func() time.Time
}

func (m *Manager) hooks() Hooks {
	if m.Hooks != nil {
		return m.Hooks
	}
	return NopHooks{}
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now().UTC()
	}
	return time.Now().UTC()
}

// ProcessPayment attempts payment for a pending order. The gateway call
// runs under a bounded timeout and never while holding a lock; stock was
// already reserved at checkout, so retries after failure are safe.
func (m *Manager) ProcessPayment(ctx context.Context, orderID, buyerID string, method orders.PaymentMethod, phone string) (*orders.Order, error) {
	if !orders.ValidPaymentMethod(method) {
		return nil, orders.ErrInvalidPayMethod
	}

	o, err := m.Store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != buyerID {
		return nil, orders.ErrNotBuyer
	}
	if o.IsPaid {
		return nil, orders.ErrAlreadyPaid
	}
	if !orders.CanTransition(o.Status, orders.StatusPaid) {
		return nil, &orders.InvalidTransitionError{From: o.Status, To: orders.StatusPaid}
	}

	timeout := m.PaymentTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	payCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := m.Gateway.AttemptPayment(payCtx, o.ID, method, phone, o.Total)
	if err != nil {
		// Timeout or transport failure: order stays pending, caller may retry.
		return nil, &orders.PaymentFailedError{Reason: "provider unreachable: " + err.Error()}
	}
	if !res.Success {
		return nil, &orders.PaymentFailedError{Reason: res.Reason}
	}

	tx, err := m.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	o, err = tx.LockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.IsPaid {
		// Lost a race with a concurrent attempt; the recorded transaction
		// id stays as the winner wrote it.
		return nil, orders.ErrAlreadyPaid
	}
	if !orders.CanTransition(o.Status, orders.StatusPaid) {
		return nil, &orders.InvalidTransitionError{From: o.Status, To: orders.StatusPaid}
	}

	now := m.now()
	o.IsPaid = true
	o.PaymentStatus = orders.PaymentPaid
	o.Status = orders.StatusPaid
	o.PaymentMethod = method
	o.TransactionID = res.TransactionID
	o.PaidAt = &now

	if err := tx.UpdateOrder(ctx, o); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	m.hooks().NotifyArtisans(ctx, o)
	log.Printf("order %s paid via %s txn=%s", o.Number, method, res.TransactionID)
	return o, nil
}

// Cancel cancels the order in one atomic unit: stock restoration for every
// item plus the status change. A paid order continues into the refund
// sub-step and ends refunded.
func (m *Manager) Cancel(ctx context.Context, orderID, actingUserID, reason string) (*orders.Order, error) {
	tx, err := m.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	o, err := tx.LockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != actingUserID {
		return nil, orders.ErrNotBuyer
	}
	if !orders.CanCancel(o.Status) {
		return nil, &orders.InvalidTransitionError{From: o.Status, To: orders.StatusCancelled}
	}

	if err := restoreStock(ctx, tx, o); err != nil {
		return nil, err
	}

	o.Status = orders.StatusCancelled
	if reason != "" {
		o.AppendNote("Annulation: " + reason)
	}
	wasPaid := o.IsPaid
	if wasPaid {
		// Refund transfer itself is external; here it is terminal bookkeeping.
		o.Status = orders.StatusRefunded
		o.PaymentStatus = orders.PaymentRefunded
		o.AppendNote("Remboursement: " + o.TransactionID)
	}

	if err := tx.UpdateOrder(ctx, o); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if wasPaid {
		m.hooks().TransferRefund(ctx, o)
	}
	log.Printf("order %s cancelled (paid=%v), stock restored", o.Number, wasPaid)
	return o, nil
}

// restoreStock is the exact inverse of checkout's decrement, under the
// same per-product locking discipline and lock ordering.
func restoreStock(ctx context.Context, tx store.Tx, o *orders.Order) error {
	byProduct := map[string]int{}
	for _, it := range o.Items {
		byProduct[it.ProductID] += it.Qty
	}
	ids := make([]string, 0, len(byProduct))
	for id := range byProduct {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if _, err := tx.LockProduct(ctx, id); err != nil {
			// The product may have been deleted since purchase; the order
			// must survive that, so there is nothing to restock.
			var nf *orders.ProductNotFoundError
			if errors.As(err, &nf) {
				continue
			}
			return err
		}
		if err := tx.AdjustStock(ctx, id, byProduct[id]); err != nil {
			return err
		}
	}
	return nil
}

// ConfirmDelivery marks a delivering order delivered and releases escrow.
// Escrow release is one-time; a second release attempt fails.
func (m *Manager) ConfirmDelivery(ctx context.Context, orderID, actingUserID string) (*orders.Order, error) {
	tx, err := m.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	o, err := tx.LockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != actingUserID {
		return nil, orders.ErrNotBuyer
	}
	if !orders.CanTransition(o.Status, orders.StatusDelivered) {
		return nil, &orders.InvalidTransitionError{From: o.Status, To: orders.StatusDelivered}
	}

	now := m.now()
	o.Status = orders.StatusDelivered
	o.DeliveredAt = &now
	if err := releaseEscrow(o, now); err != nil {
		return nil, err
	}

	if err := tx.UpdateOrder(ctx, o); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	m.hooks().ReleaseFunds(ctx, o)
	log.Printf("order %s delivered, escrow released", o.Number)
	return o, nil
}

// ReleaseEscrow releases escrow for an already-delivered order, for flows
// where delivery was recorded without a payout (back-office correction).
func (m *Manager) ReleaseEscrow(ctx context.Context, orderID string) (*orders.Order, error) {
	tx, err := m.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	o, err := tx.LockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != orders.StatusDelivered && o.Status != orders.StatusReceived {
		return nil, &orders.InvalidTransitionError{From: o.Status, To: orders.StatusDelivered}
	}
	if err := releaseEscrow(o, m.now()); err != nil {
		return nil, err
	}
	if err := tx.UpdateOrder(ctx, o); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	m.hooks().ReleaseFunds(ctx, o)
	return o, nil
}

func releaseEscrow(o *orders.Order, now time.Time) error {
	if o.EscrowReleased {
		return orders.ErrEscrowReleased
	}
	o.EscrowReleased = true
	o.EscrowReleasedAt = &now
	return nil
}

// ConfirmReceived is the buyer's acknowledgment after delivery; it is
// recorded independently of escrow release.
func (m *Manager) ConfirmReceived(ctx context.Context, orderID, buyerID string) (*orders.Order, error) {
	tx, err := m.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	o, err := tx.LockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != buyerID {
		return nil, orders.ErrNotBuyer
	}
	if !orders.CanTransition(o.Status, orders.StatusReceived) {
		return nil, &orders.InvalidTransitionError{From: o.Status, To: orders.StatusReceived}
	}

	now := m.now()
	o.Status = orders.StatusReceived
	o.ReceivedAt = &now

	if err := tx.UpdateOrder(ctx, o); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	log.Printf("order %s received by buyer", o.Number)
	return o, nil
}

// UpdateStatus is the generic transition entry point for non-buyer actors.
// It validates the lifecycle table first, then the actor's authorization,
// then routes to the transition's side effects.
func (m *Manager) UpdateStatus(ctx context.Context, orderID, actingUserID string, role orders.Role, next orders.Status) (*orders.Order, error) {
	o, err := m.Store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !orders.CanTransition(o.Status, next) {
		return nil, &orders.InvalidTransitionError{From: o.Status, To: next}
	}
	if !orders.RoleAllows(role, o.Status, next) {
		return nil, orders.ErrUnauthorized
	}

	switch next {
	case orders.StatusCancelled:
		return m.Cancel(ctx, orderID, actingUserID, "")
	case orders.StatusDelivered:
		return m.ConfirmDelivery(ctx, orderID, actingUserID)
	case orders.StatusReceived:
		return m.ConfirmReceived(ctx, orderID, actingUserID)
	}

	// Fulfilment advance (paid -> preparing -> delivering).
	tx, err := m.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	o, err = tx.LockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	// Re-check under lock; the status may have moved since the read.
	if !orders.CanTransition(o.Status, next) {
		return nil, &orders.InvalidTransitionError{From: o.Status, To: next}
	}
	o.Status = next

	if err := tx.UpdateOrder(ctx, o); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	log.Printf("order %s -> %s by %s", o.Number, next, role)
	return o, nil
}
