// Package checkout turns a cart into a pending order: one transaction,
// pessimistic per-product locks, all-or-nothing stock reservation.
package checkout

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sahelcraft/marketplace/internal/orders"
	"github.com/sahelcraft/marketplace/internal/store"
)

type Engine struct {
	Store    store.Store
	Shipping orders.ShippingPolicy
	Tax      orders.TaxPolicy
	Now      func() time.Time // defaults to time.Now
}

type Input struct {
	BuyerID         string
	Lines           []orders.CartLine
	DeliveryAddress string
	DeliveryPhone   string
	BillingAddress  string
	PaymentMethod   orders.PaymentMethod
	Note            string
}

// Checkout validates the cart, reserves stock and persists the order in
// pending status. No payment is attempted here. On any failure the whole
// transaction rolls back: no partial order, no stock left decremented.
func (e *Engine) Checkout(ctx context.Context, in Input) (*orders.Order, error) {
	lines, err := validate(in)
	if err != nil {
		return nil, err
	}

	tx, err := e.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Lock rows in ascending product id so two carts sharing products in
	// different order cannot deadlock each other.
	ids := make([]string, 0, len(lines))
	for id := range lines {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	locked := make(map[string]*orders.Product, len(ids))
	var shortages []orders.Shortage
	for _, id := range ids {
		p, err := tx.LockProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		if p.Stock < lines[id] {
			shortages = append(shortages, orders.Shortage{
				ProductID:   p.ID,
				ProductName: p.Name,
				Requested:   lines[id],
				Available:   p.Stock,
			})
			continue
		}
		locked[id] = p
	}
	if len(shortages) > 0 {
		return nil, &orders.InsufficientStockError{Shortages: shortages}
	}

	now := e.now()
	o := &orders.Order{
		ID:              uuid.NewString(),
		Number:          orders.NewOrderNumber(),
		BuyerID:         in.BuyerID,
		Status:          orders.StatusPending,
		PaymentMethod:   in.PaymentMethod,
		PaymentStatus:   orders.PaymentUnpaid,
		DeliveryAddress: strings.TrimSpace(in.DeliveryAddress),
		DeliveryPhone:   strings.TrimSpace(in.DeliveryPhone),
		BillingAddress:  strings.TrimSpace(in.BillingAddress),
		Note:            strings.TrimSpace(in.Note),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// Decrement stock and snapshot items in the cart's original line order.
	seen := map[string]bool{}
	for _, l := range in.Lines {
		if seen[l.ProductID] {
			continue // coalesced into the first line for this product
		}
		seen[l.ProductID] = true
		qty := lines[l.ProductID]
		p := locked[l.ProductID]

		if err := tx.AdjustStock(ctx, p.ID, -qty); err != nil {
			return nil, err
		}
		it := orders.OrderItem{
			ID:          uuid.NewString(),
			OrderID:     o.ID,
			ProductID:   p.ID,
			ProductName: p.Name,
			ArtisanID:   p.ArtisanID,
			Qty:         qty,
			UnitPrice:   p.Price,
			LineTotal:   p.Price * int64(qty),
		}
		o.Items = append(o.Items, it)
		o.Subtotal += it.LineTotal
	}

	o.Shipping = e.Shipping.Cost(o.Subtotal)
	o.Tax = e.Tax.Tax(o.Subtotal, o.PaymentMethod)
	o.RecomputeTotal()

	if err := tx.InsertOrder(ctx, o); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

// validate rejects bad input before any lock is taken and coalesces
// duplicate product lines into a single quantity per product.
func validate(in Input) (map[string]int, error) {
	if len(in.Lines) == 0 {
		return nil, orders.ErrEmptyCart
	}
	if strings.TrimSpace(in.DeliveryAddress) == "" {
		return nil, orders.ErrMissingAddress
	}
	if strings.TrimSpace(in.DeliveryPhone) == "" {
		return nil, orders.ErrMissingPhone
	}
	if !orders.ValidPaymentMethod(in.PaymentMethod) {
		return nil, orders.ErrInvalidPayMethod
	}
	lines := make(map[string]int, len(in.Lines))
	for _, l := range in.Lines {
		if l.Qty <= 0 {
			return nil, orders.ErrInvalidQty
		}
		lines[l.ProductID] += l.Qty
	}
	return lines, nil
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}
