package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sahelcraft/marketplace/internal/orders"
)

// PG is the Postgres store.
type PG struct{ DB *pgxpool.Pool }

// ConnectPG dials Postgres with the pool settings used across services.
func ConnectPG(ctx context.Context, dsn string) (*PG, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 8
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PG{DB: pool}, nil
}

func (s *PG) Close() { s.DB.Close() }

func (s *PG) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: tx}, nil
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) LockProduct(ctx context.Context, productID string) (*orders.Product, error) {
	var p orders.Product
	err := t.tx.QueryRow(ctx, `
		SELECT id, artisan_id, name, price, stock, created_at, updated_at
		FROM products WHERE id=$1 FOR UPDATE`, productID).
		Scan(&p.ID, &p.ArtisanID, &p.Name, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &orders.ProductNotFoundError{ProductID: productID}
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *pgTx) AdjustStock(ctx context.Context, productID string, delta int) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id=$1`, productID, delta)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return &orders.ProductNotFoundError{ProductID: productID}
	}
	return nil
}

func (t *pgTx) InsertOrder(ctx context.Context, o *orders.Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders(
			id, order_number, buyer_id, status, payment_method, payment_status,
			is_paid, transaction_id, subtotal, shipping, tax, total,
			delivery_address, delivery_phone, billing_address, tracking_number,
			note, escrow_released, escrow_released_at,
			created_at, updated_at, paid_at, delivered_at, received_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)`,
		o.ID, o.Number, o.BuyerID, o.Status, o.PaymentMethod, o.PaymentStatus,
		o.IsPaid, o.TransactionID, o.Subtotal, o.Shipping, o.Tax, o.Total,
		o.DeliveryAddress, o.DeliveryPhone, o.BillingAddress, o.TrackingNumber,
		o.Note, o.EscrowReleased, o.EscrowReleasedAt,
		o.CreatedAt, o.UpdatedAt, o.PaidAt, o.DeliveredAt, o.ReceivedAt)
	if err != nil {
		return err
	}
	for _, it := range o.Items {
		_, err = t.tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, product_name, artisan_id, qty, unit_price, line_total)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			it.ID, it.OrderID, it.ProductID, it.ProductName, it.ArtisanID, it.Qty, it.UnitPrice, it.LineTotal)
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) LockOrder(ctx context.Context, orderID string) (*orders.Order, error) {
	o, err := scanOrder(ctx, t.tx, `WHERE id=$1 FOR UPDATE`, orderID)
	if err != nil {
		return nil, err
	}
	o.Items, err = scanItems(ctx, t.tx, orderID)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (t *pgTx) UpdateOrder(ctx context.Context, o *orders.Order) error {
	o.UpdatedAt = time.Now().UTC()
	ct, err := t.tx.Exec(ctx, `
		UPDATE orders SET
			status=$2, payment_method=$3, payment_status=$4, is_paid=$5,
			transaction_id=$6, subtotal=$7, shipping=$8, tax=$9, total=$10,
			tracking_number=$11, note=$12, escrow_released=$13, escrow_released_at=$14,
			updated_at=$15, paid_at=$16, delivered_at=$17, received_at=$18
		WHERE id=$1`,
		o.ID, o.Status, o.PaymentMethod, o.PaymentStatus, o.IsPaid,
		o.TransactionID, o.Subtotal, o.Shipping, o.Tax, o.Total,
		o.TrackingNumber, o.Note, o.EscrowReleased, o.EscrowReleasedAt,
		o.UpdatedAt, o.PaidAt, o.DeliveredAt, o.ReceivedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return orders.ErrOrderNotFound
	}
	return nil
}

func (t *pgTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *pgTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const orderColumns = `
	SELECT id, order_number, buyer_id, status, payment_method, payment_status,
	       is_paid, transaction_id, subtotal, shipping, tax, total,
	       delivery_address, delivery_phone, billing_address, tracking_number,
	       note, escrow_released, escrow_released_at,
	       created_at, updated_at, paid_at, delivered_at, received_at
	FROM orders `

func scanOrder(ctx context.Context, q pgQuerier, where string, args ...any) (*orders.Order, error) {
	var o orders.Order
	err := q.QueryRow(ctx, orderColumns+where, args...).Scan(
		&o.ID, &o.Number, &o.BuyerID, &o.Status, &o.PaymentMethod, &o.PaymentStatus,
		&o.IsPaid, &o.TransactionID, &o.Subtotal, &o.Shipping, &o.Tax, &o.Total,
		&o.DeliveryAddress, &o.DeliveryPhone, &o.BillingAddress, &o.TrackingNumber,
		&o.Note, &o.EscrowReleased, &o.EscrowReleasedAt,
		&o.CreatedAt, &o.UpdatedAt, &o.PaidAt, &o.DeliveredAt, &o.ReceivedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func scanItems(ctx context.Context, q pgQuerier, orderID string) ([]orders.OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, product_name, artisan_id, qty, unit_price, line_total
		FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.OrderItem
	for rows.Next() {
		var it orders.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
			&it.ArtisanID, &it.Qty, &it.UnitPrice, &it.LineTotal); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *PG) GetOrder(ctx context.Context, orderID string) (*orders.Order, error) {
	o, err := scanOrder(ctx, s.DB, `WHERE id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	o.Items, err = scanItems(ctx, s.DB, orderID)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *PG) GetProduct(ctx context.Context, productID string) (*orders.Product, error) {
	var p orders.Product
	err := s.DB.QueryRow(ctx, `
		SELECT id, artisan_id, name, price, stock, created_at, updated_at
		FROM products WHERE id=$1`, productID).
		Scan(&p.ID, &p.ArtisanID, &p.Name, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &orders.ProductNotFoundError{ProductID: productID}
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PG) ListProducts(ctx context.Context) ([]orders.Product, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, artisan_id, name, price, stock, created_at, updated_at
		FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Product
	for rows.Next() {
		var p orders.Product
		if err := rows.Scan(&p.ID, &p.ArtisanID, &p.Name, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PG) ListOrdersByBuyer(ctx context.Context, buyerID string, limit int) ([]orders.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.Query(ctx, orderColumns+`
		WHERE buyer_id=$1 ORDER BY created_at DESC LIMIT $2`, buyerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Order
	for rows.Next() {
		var o orders.Order
		if err := rows.Scan(
			&o.ID, &o.Number, &o.BuyerID, &o.Status, &o.PaymentMethod, &o.PaymentStatus,
			&o.IsPaid, &o.TransactionID, &o.Subtotal, &o.Shipping, &o.Tax, &o.Total,
			&o.DeliveryAddress, &o.DeliveryPhone, &o.BillingAddress, &o.TrackingNumber,
			&o.Note, &o.EscrowReleased, &o.EscrowReleasedAt,
			&o.CreatedAt, &o.UpdatedAt, &o.PaidAt, &o.DeliveredAt, &o.ReceivedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
