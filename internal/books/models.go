package books

import "time"

type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Book struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	CategoryID  int64     `json:"category_id"`
	Author      string    `json:"author"`
	Description string    `json:"description,omitempty"`
	PriceCents  int       `json:"price_cents"`
	Rating      float64   `json:"rating"`
	IconURL     string    `json:"icon_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Query holds the optional catalog filters. Zero values mean "no filter";
// MaxPriceCents and MinRating use pointers because 0 is a meaningful bound.
type Query struct {
	CategoryID    int64
	Title         string
	Author        string
	MaxPriceCents *int
	MinRating     *float64
	Page          int
	Limit         int
}
