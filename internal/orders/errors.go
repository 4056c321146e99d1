package orders

import "errors"

// Domain errors. All are deterministic validation failures; callers match
// with errors.Is and decide retry policy themselves.
var (
	ErrCartEmpty         = errors.New("cart is empty")
	ErrStockNotFound     = errors.New("stock not found")
	ErrBookNotFound      = errors.New("book not found")
	ErrInsufficientStock = errors.New("not enough stock")
	ErrOrderNotFound     = errors.New("order not found")

	// ErrInvalidStatus rejects PENDING (or an unknown status) as a
	// transition target, before the order is even looked up.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidTransition covers every (current, target) pair absent from
	// the transition table.
	ErrInvalidTransition = errors.New("invalid transition")
)
