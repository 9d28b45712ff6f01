package redisx

import "time"

const (
	// Checkout idempotency: idem:checkout:{idempotency_key} -> order_id
	KeyIdemCheckout = "idem:checkout:%s"

	// Order status cache: order_status:{order_id} -> {"status":...,"payment_status":...}
	KeyOrderStatus = "order_status:%s"

	// Consumer-side event dedup: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
