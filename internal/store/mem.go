package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sahelcraft/marketplace/internal/orders"
)

// Mem keeps everything in process. Row locks have the same blocking
// semantics as FOR UPDATE: a transaction that locked a row holds it until
// commit or rollback, and stock mutations made through it are undone on
// rollback. Used for local mode and the test suite.
type Mem struct {
	mu        sync.Mutex
	products  map[string]*productRow
	orderRows map[string]*orderRow
}

type productRow struct {
	mu sync.Mutex
	p  orders.Product
}

type orderRow struct {
	mu sync.Mutex
	o  orders.Order
}

func NewMem() *Mem {
	return &Mem{
		products:  map[string]*productRow{},
		orderRows: map[string]*orderRow{},
	}
}

// PutProduct seeds or replaces a catalog row.
func (m *Mem) PutProduct(p orders.Product) {
	m.mu.Lock()
	row, ok := m.products[p.ID]
	if !ok {
		m.products[p.ID] = &productRow{p: p}
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	row.mu.Lock()
	row.p = p
	row.mu.Unlock()
}

func (m *Mem) Begin(ctx context.Context) (Tx, error) {
	return &memTx{
		s:              m,
		lockedProducts: map[string]*productRow{},
		lockedOrders:   map[string]*orderRow{},
	}, nil
}

type memTx struct {
	s              *Mem
	lockedProducts map[string]*productRow
	lockedOrders   map[string]*orderRow
	undo           []func()         // reverses stock mutations on rollback
	stagedInserts  []orders.Order   // applied on commit
	stagedUpdates  []orders.Order   // applied on commit
	done           bool
}

func (t *memTx) LockProduct(ctx context.Context, productID string) (*orders.Product, error) {
	if row, ok := t.lockedProducts[productID]; ok {
		p := row.p
		return &p, nil
	}
	t.s.mu.Lock()
	row, ok := t.s.products[productID]
	t.s.mu.Unlock()
	if !ok {
		return nil, &orders.ProductNotFoundError{ProductID: productID}
	}
	row.mu.Lock() // blocks while another tx holds the row
	t.lockedProducts[productID] = row
	p := row.p
	return &p, nil
}

func (t *memTx) AdjustStock(ctx context.Context, productID string, delta int) error {
	row, ok := t.lockedProducts[productID]
	if !ok {
		return fmt.Errorf("adjust stock without lock: %s", productID)
	}
	if row.p.Stock+delta < 0 {
		return fmt.Errorf("stock would go negative for %s", productID)
	}
	row.p.Stock += delta
	row.p.UpdatedAt = time.Now().UTC()
	t.undo = append(t.undo, func() { row.p.Stock -= delta })
	return nil
}

func (t *memTx) InsertOrder(ctx context.Context, o *orders.Order) error {
	t.stagedInserts = append(t.stagedInserts, cloneOrder(o))
	return nil
}

func (t *memTx) LockOrder(ctx context.Context, orderID string) (*orders.Order, error) {
	if row, ok := t.lockedOrders[orderID]; ok {
		o := cloneOrder(&row.o)
		return &o, nil
	}
	t.s.mu.Lock()
	row, ok := t.s.orderRows[orderID]
	t.s.mu.Unlock()
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	row.mu.Lock()
	t.lockedOrders[orderID] = row
	o := cloneOrder(&row.o)
	return &o, nil
}

func (t *memTx) UpdateOrder(ctx context.Context, o *orders.Order) error {
	if _, ok := t.lockedOrders[o.ID]; !ok {
		return fmt.Errorf("update order without lock: %s", o.ID)
	}
	o.UpdatedAt = time.Now().UTC()
	t.stagedUpdates = append(t.stagedUpdates, cloneOrder(o))
	return nil
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.s.mu.Lock()
	for i := range t.stagedInserts {
		o := t.stagedInserts[i]
		t.s.orderRows[o.ID] = &orderRow{o: o}
	}
	t.s.mu.Unlock()
	for i := range t.stagedUpdates {
		o := t.stagedUpdates[i]
		if row, ok := t.lockedOrders[o.ID]; ok {
			row.o = o
		}
	}
	t.release()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.release()
	return nil
}

func (t *memTx) release() {
	for _, row := range t.lockedProducts {
		row.mu.Unlock()
	}
	for _, row := range t.lockedOrders {
		row.mu.Unlock()
	}
	t.lockedProducts = map[string]*productRow{}
	t.lockedOrders = map[string]*orderRow{}
}

// Reads take the row lock too, so a reader blocked behind an open
// transaction only ever observes its committed (or rolled-back) state.
// Row locks are never acquired while holding the map lock; Commit takes
// the map lock with row locks held, and the reverse order would deadlock.

func (m *Mem) GetOrder(ctx context.Context, orderID string) (*orders.Order, error) {
	m.mu.Lock()
	row, ok := m.orderRows[orderID]
	m.mu.Unlock()
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	row.mu.Lock()
	o := cloneOrder(&row.o)
	row.mu.Unlock()
	return &o, nil
}

func (m *Mem) GetProduct(ctx context.Context, productID string) (*orders.Product, error) {
	m.mu.Lock()
	row, ok := m.products[productID]
	m.mu.Unlock()
	if !ok {
		return nil, &orders.ProductNotFoundError{ProductID: productID}
	}
	row.mu.Lock()
	p := row.p
	row.mu.Unlock()
	return &p, nil
}

func (m *Mem) ListProducts(ctx context.Context) ([]orders.Product, error) {
	m.mu.Lock()
	rows := make([]*productRow, 0, len(m.products))
	for _, row := range m.products {
		rows = append(rows, row)
	}
	m.mu.Unlock()

	out := make([]orders.Product, 0, len(rows))
	for _, row := range rows {
		row.mu.Lock()
		out = append(out, row.p)
		row.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Mem) ListOrdersByBuyer(ctx context.Context, buyerID string, limit int) ([]orders.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	m.mu.Lock()
	rows := make([]*orderRow, 0, len(m.orderRows))
	for _, row := range m.orderRows {
		rows = append(rows, row)
	}
	m.mu.Unlock()

	var out []orders.Order
	for _, row := range rows {
		row.mu.Lock()
		if row.o.BuyerID == buyerID {
			out = append(out, cloneOrder(&row.o))
		}
		row.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneOrder(o *orders.Order) orders.Order {
	c := *o
	c.Items = append([]orders.OrderItem(nil), o.Items...)
	c.EscrowReleasedAt = cloneTime(o.EscrowReleasedAt)
	c.PaidAt = cloneTime(o.PaidAt)
	c.DeliveredAt = cloneTime(o.DeliveredAt)
	c.ReceivedAt = cloneTime(o.ReceivedAt)
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
