package orders

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type CartStore struct{ DB *pgxpool.Pool }

// SetCart upserts the (user, book) line. Quantity 0 deletes the line; a
// delete of an absent line is a no-op. Carts are provisional: no stock
// check happens here.
func (s *CartStore) SetCart(ctx context.Context, userID string, bookID int64, quantity int) (*CartLine, error) {
	if quantity == 0 {
		_, err := s.DB.Exec(ctx, `DELETE FROM carts WHERE user_id=$1 AND book_id=$2`, userID, bookID)
		return nil, err
	}

	var line CartLine
	err := s.DB.QueryRow(ctx, `
		INSERT INTO carts(user_id, book_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, book_id)
		DO UPDATE SET quantity = $3, updated_at = now()
		RETURNING id, user_id, book_id, quantity, created_at, updated_at`,
		userID, bookID, quantity,
	).Scan(&line.ID, &line.UserID, &line.BookID, &line.Quantity, &line.CreatedAt, &line.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (s *CartStore) GetCart(ctx context.Context, userID string) ([]CartLine, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, user_id, book_id, quantity, created_at, updated_at
		FROM carts WHERE user_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CartLine
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(&l.ID, &l.UserID, &l.BookID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
