package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Workflow orchestrates the order lifecycle: cart consumption at creation,
// and the PENDING -> DELIVERING -> SUCCESS / PENDING -> CANCELLED machine
// with its stock effects. Every multi-row step runs in one transaction.
type Workflow struct {
	DB    *pgxpool.Pool
	Stock *StockLedger
}

// CreateOrder converts the user's cart into a PENDING order. Validation
// only: stock rows are read, never written. Cart lines are consumed and
// unit prices snapshotted onto the items. Any failure rolls the whole unit
// back, cart included.
func (w *Workflow) CreateOrder(ctx context.Context, userID string) (*Order, error) {
	tx, err := w.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock the cart lines so a concurrent create for the same user can't
	// consume them twice.
	rows, err := tx.Query(ctx, `
		SELECT id, book_id, quantity FROM carts
		WHERE user_id=$1 FOR UPDATE`, userID)
	if err != nil {
		return nil, err
	}
	type line struct {
		id     int64
		bookID int64
		qty    int
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.id, &l.bookID, &l.qty); err != nil {
			rows.Close()
			return nil, err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrCartEmpty
	}

	total := 0
	items := make([]OrderItem, 0, len(lines))
	for _, l := range lines {
		var available int
		var priceCents *int
		err := tx.QueryRow(ctx, `
			SELECT s.available_quantity, b.price_cents
			FROM stocks s
			LEFT JOIN books b ON b.id = s.book_id AND b.deleted_at IS NULL
			WHERE s.book_id=$1`, l.bookID,
		).Scan(&available, &priceCents)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("book %d: %w", l.bookID, ErrStockNotFound)
		}
		if err != nil {
			return nil, err
		}
		if priceCents == nil {
			return nil, fmt.Errorf("book %d: %w", l.bookID, ErrBookNotFound)
		}
		if available < l.qty {
			return nil, fmt.Errorf("book %d: %w", l.bookID, ErrInsufficientStock)
		}

		total += *priceCents * l.qty
		items = append(items, OrderItem{
			ID:         uuid.NewString(),
			BookID:     l.bookID,
			Quantity:   l.qty,
			PriceCents: *priceCents,
		})
		if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE id=$1`, l.id); err != nil {
			return nil, err
		}
	}

	order := &Order{
		ID:         uuid.NewString(),
		UserID:     userID,
		Status:     StatusPending,
		TotalCents: total,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, user_id, status, total_cents)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		order.ID, order.UserID, order.Status, order.TotalCents,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].OrderID = order.ID
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, book_id, quantity, price_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			items[i].ID, order.ID, items[i].BookID, items[i].Quantity, items[i].PriceCents,
		); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

// UpdateOrder drives one transition. The target PENDING is rejected before
// anything is looked up; everything else is decided by the transition table
// against the current status, read under a row lock so two transitions on
// the same order serialize.
func (w *Workflow) UpdateOrder(ctx context.Context, orderID string, target Status, userID string) (*Order, error) {
	if target == StatusPending || !target.Valid() {
		return nil, ErrInvalidStatus
	}

	tx, err := w.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var order Order
	err = tx.QueryRow(ctx, `
		SELECT id, user_id, status, total_cents, created_at, updated_at
		FROM orders WHERE id=$1 AND user_id=$2 FOR UPDATE`,
		orderID, userID,
	).Scan(&order.ID, &order.UserID, &order.Status, &order.TotalCents, &order.CreatedAt, &order.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if !CanTransition(order.Status, target) {
		return nil, transitionError(target)
	}

	items, err := w.loadItems(ctx, tx, order.ID)
	if err != nil {
		return nil, err
	}

	switch target {
	case StatusDelivering:
		for _, it := range items {
			if err := w.Stock.Reserve(ctx, tx, it.BookID, it.Quantity); err != nil {
				return nil, err
			}
		}
	case StatusSuccess:
		for _, it := range items {
			if err := w.Stock.Consume(ctx, tx, it.BookID, it.Quantity); err != nil {
				return nil, err
			}
		}
	case StatusCancelled:
		// Stock was never touched for a PENDING order.
	}

	err = tx.QueryRow(ctx, `
		UPDATE orders SET status=$2, updated_at=now()
		WHERE id=$1 RETURNING updated_at`,
		order.ID, target,
	).Scan(&order.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	order.Status = target
	order.Items = items
	return &order, nil
}

// transitionError maps the rejected target to the message the API has
// always used for it.
func transitionError(target Status) error {
	switch target {
	case StatusDelivering:
		return fmt.Errorf("order cannot be delivered: %w", ErrInvalidTransition)
	case StatusSuccess:
		return fmt.Errorf("order still not confirmed: %w", ErrInvalidTransition)
	case StatusCancelled:
		return fmt.Errorf("order cannot be cancelled: %w", ErrInvalidTransition)
	}
	return ErrInvalidTransition
}

// GetOrder returns one order with its items, scoped to the owning user.
func (w *Workflow) GetOrder(ctx context.Context, orderID, userID string) (*Order, error) {
	var order Order
	err := w.DB.QueryRow(ctx, `
		SELECT id, user_id, status, total_cents, created_at, updated_at
		FROM orders WHERE id=$1 AND user_id=$2`,
		orderID, userID,
	).Scan(&order.ID, &order.UserID, &order.Status, &order.TotalCents, &order.CreatedAt, &order.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	items, err := w.loadItems(ctx, w.DB, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

// ListOrders returns every order in the system, newest first. Admin view.
func (w *Workflow) ListOrders(ctx context.Context) ([]Order, error) {
	return w.scanOrders(w.DB.Query(ctx, `
		SELECT id, user_id, status, total_cents, created_at, updated_at
		FROM orders ORDER BY created_at DESC`))
}

// ListUserOrders returns the user's orders with items, optionally filtered
// by status ("" means all).
func (w *Workflow) ListUserOrders(ctx context.Context, userID string, status Status) ([]Order, error) {
	var (
		out []Order
		err error
	)
	if status != "" {
		out, err = w.scanOrders(w.DB.Query(ctx, `
			SELECT id, user_id, status, total_cents, created_at, updated_at
			FROM orders WHERE user_id=$1 AND status=$2 ORDER BY created_at DESC`,
			userID, status))
	} else {
		out, err = w.scanOrders(w.DB.Query(ctx, `
			SELECT id, user_id, status, total_cents, created_at, updated_at
			FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID))
	}
	if err != nil {
		return nil, err
	}
	for i := range out {
		items, err := w.loadItems(ctx, w.DB, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (w *Workflow) loadItems(ctx context.Context, q querier, orderID string) ([]OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, book_id, quantity, price_cents
		FROM order_items WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.BookID, &it.Quantity, &it.PriceCents); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (w *Workflow) scanOrders(rows pgx.Rows, err error) ([]Order, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
