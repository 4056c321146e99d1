package redisx

import "time"

const (
	// Cache order status, scoped to the owner so a cache hit implies
	// ownership: order_status:{user_id}:{order_id} -> {"status": "..."}
	KeyOrderStatus = "order_status:%s:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
