package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StockLedger owns the per-book available/frozen counters. Reserve and
// Consume run inside the caller's transaction and take the row lock
// themselves, so the check and the write can't be split by a concurrent
// reservation on the same book.
type StockLedger struct{ DB *pgxpool.Pool }

// Initialize creates the stock row for a new book. Runs on the caller's tx
// (book creation and its stock are one atomic unit).
func (l *StockLedger) Initialize(ctx context.Context, tx pgx.Tx, bookID int64, quantity int) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO stocks(book_id, available_quantity, frozen_quantity)
		VALUES ($1, $2, 0)`, bookID, quantity)
	return err
}

// Override absolute-sets available_quantity, bypassing the reservation
// invariants. Trusted-operator escape hatch: if units are frozen when this
// runs, a later consume can take more than was ever available.
func (l *StockLedger) Override(ctx context.Context, bookID int64, quantity int) error {
	ct, err := l.DB.Exec(ctx, `
		UPDATE stocks SET available_quantity=$2, updated_at=now()
		WHERE book_id=$1`, bookID, quantity)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrStockNotFound
	}
	return nil
}

// Reserve moves quantity units from available to frozen. The availability
// check is repeated here under FOR UPDATE: the caller's earlier validation
// happened outside the lock and may be stale.
func (l *StockLedger) Reserve(ctx context.Context, tx pgx.Tx, bookID int64, quantity int) error {
	var available int
	err := tx.QueryRow(ctx, `
		SELECT available_quantity FROM stocks WHERE book_id=$1 FOR UPDATE`,
		bookID,
	).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrStockNotFound
	}
	if err != nil {
		return err
	}
	if available < quantity {
		return ErrInsufficientStock
	}
	_, err = tx.Exec(ctx, `
		UPDATE stocks
		SET available_quantity = available_quantity - $2,
		    frozen_quantity    = frozen_quantity + $2,
		    updated_at         = now()
		WHERE book_id=$1`, bookID, quantity)
	return err
}

// Consume finalizes a reservation: frozen -= quantity. Available was already
// decremented at reserve time.
func (l *StockLedger) Consume(ctx context.Context, tx pgx.Tx, bookID int64, quantity int) error {
	var frozen int
	err := tx.QueryRow(ctx, `
		SELECT frozen_quantity FROM stocks WHERE book_id=$1 FOR UPDATE`,
		bookID,
	).Scan(&frozen)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrStockNotFound
	}
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE stocks
		SET frozen_quantity = frozen_quantity - $2,
		    updated_at      = now()
		WHERE book_id=$1`, bookID, quantity)
	return err
}

// Get returns the counters for one book.
func (l *StockLedger) Get(ctx context.Context, bookID int64) (*Stock, error) {
	var st Stock
	err := l.DB.QueryRow(ctx, `
		SELECT id, book_id, available_quantity, frozen_quantity, created_at, updated_at
		FROM stocks WHERE book_id=$1`, bookID,
	).Scan(&st.ID, &st.BookID, &st.Available, &st.Frozen, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStockNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}
