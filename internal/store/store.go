// Package store defines the persistence contract the order core runs on:
// atomic transactions with blocking per-product row locks. pg.go backs it
// with Postgres (SELECT ... FOR UPDATE); mem.go backs it with in-process
// mutexes for local mode and tests.
package store

import (
	"context"

	"github.com/sahelcraft/marketplace/internal/orders"
)

// Tx is one atomic unit of work. Everything done through it is committed
// or rolled back together; row locks are held until either call.
type Tx interface {
	// LockProduct takes an exclusive lock on the product row and returns
	// its current state. Blocks while another transaction holds the lock.
	// Returns *orders.ProductNotFoundError for unknown ids.
	LockProduct(ctx context.Context, productID string) (*orders.Product, error)

	// AdjustStock changes the product's stock by delta. Only legal while
	// this transaction holds the product's lock.
	AdjustStock(ctx context.Context, productID string, delta int) error

	// InsertOrder persists a new order together with its items.
	InsertOrder(ctx context.Context, o *orders.Order) error

	// LockOrder loads the order (items included) under an exclusive lock,
	// serializing concurrent lifecycle operations on the same order.
	// Returns orders.ErrOrderNotFound for unknown ids.
	LockOrder(ctx context.Context, orderID string) (*orders.Order, error)

	// UpdateOrder writes back the order header.
	UpdateOrder(ctx context.Context, o *orders.Order) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store is the read side plus the transaction entry point.
type Store interface {
	Begin(ctx context.Context) (Tx, error)

	GetOrder(ctx context.Context, orderID string) (*orders.Order, error)
	GetProduct(ctx context.Context, productID string) (*orders.Product, error)
	ListProducts(ctx context.Context) ([]orders.Product, error)
	ListOrdersByBuyer(ctx context.Context, buyerID string, limit int) ([]orders.Order, error)
}
