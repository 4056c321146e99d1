package orders

import "time"

type CartLine struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	BookID    int64     `json:"book_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stock is one row per book. Available = sellable units, Frozen = units
// committed to an order in fulfillment but not yet finalized. Both stay
// >= 0 at all times.
type Stock struct {
	ID        int64     `json:"id"`
	BookID    int64     `json:"book_id"`
	Available int       `json:"available_quantity"`
	Frozen    int       `json:"frozen_quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Order struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	Status     Status      `json:"status"`
	TotalCents int         `json:"total_cents"`
	Items      []OrderItem `json:"items,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// OrderItem snapshots the unit price at order-creation time; catalog price
// changes never touch it.
type OrderItem struct {
	ID         string `json:"id"`
	OrderID    string `json:"order_id"`
	BookID     int64  `json:"book_id"`
	Quantity   int    `json:"quantity"`
	PriceCents int    `json:"price_cents"`
}
