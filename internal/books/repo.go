package books

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-bookstore.git/internal/orders"
)

var ErrNotFound = errors.New("book not found")

// Repo is the thin catalog. It owns books and categories; stock rows belong
// to the ledger, which is only borrowed here so book creation and its
// initial stock commit together.
type Repo struct {
	DB    *pgxpool.Pool
	Stock *orders.StockLedger
}

// CreateBook inserts the book and its initial stock row in one transaction.
func (r *Repo) CreateBook(ctx context.Context, b *Book, initialStock int) (*Book, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO books(title, category_id, author, description, price_cents, rating, icon_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		b.Title, b.CategoryID, b.Author, b.Description, b.PriceCents, b.Rating, b.IconURL,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := r.Stock.Initialize(ctx, tx, b.ID, initialStock); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// FindBooks applies the optional filters and returns a page of the catalog,
// newest first.
func (r *Repo) FindBooks(ctx context.Context, q Query) ([]Book, error) {
	where := []string{"deleted_at IS NULL"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if q.CategoryID != 0 {
		where = append(where, "category_id = "+arg(q.CategoryID))
	}
	if q.Title != "" {
		where = append(where, "title ILIKE "+arg("%"+q.Title+"%"))
	}
	if q.Author != "" {
		where = append(where, "author ILIKE "+arg("%"+q.Author+"%"))
	}
	if q.MaxPriceCents != nil {
		where = append(where, "price_cents <= "+arg(*q.MaxPriceCents))
	}
	if q.MinRating != nil {
		where = append(where, "rating >= "+arg(*q.MinRating))
	}

	sql := `SELECT id, title, category_id, author, description, price_cents, rating, icon_url, created_at, updated_at
		FROM books WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_at DESC`
	if q.Limit > 0 {
		sql += " LIMIT " + arg(q.Limit)
		if q.Page > 0 {
			sql += " OFFSET " + arg(q.Page*q.Limit)
		}
	}

	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.Title, &b.CategoryID, &b.Author, &b.Description,
			&b.PriceCents, &b.Rating, &b.IconURL, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repo) FindBook(ctx context.Context, id int64) (*Book, error) {
	var b Book
	err := r.DB.QueryRow(ctx, `
		SELECT id, title, category_id, author, description, price_cents, rating, icon_url, created_at, updated_at
		FROM books WHERE id=$1 AND deleted_at IS NULL`, id,
	).Scan(&b.ID, &b.Title, &b.CategoryID, &b.Author, &b.Description,
		&b.PriceCents, &b.Rating, &b.IconURL, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repo) UpdateBook(ctx context.Context, b *Book) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE books SET title=$2, category_id=$3, author=$4, description=$5,
			price_cents=$6, rating=$7, icon_url=$8, updated_at=now()
		WHERE id=$1 AND deleted_at IS NULL`,
		b.ID, b.Title, b.CategoryID, b.Author, b.Description, b.PriceCents, b.Rating, b.IconURL)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveBook soft-deletes; order items keep their snapshots either way.
func (r *Repo) RemoveBook(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE books SET deleted_at=now() WHERE id=$1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) CreateCategory(ctx context.Context, name string) (*Category, error) {
	var c Category
	err := r.DB.QueryRow(ctx, `
		INSERT INTO categories(name) VALUES ($1)
		RETURNING id, name, created_at, updated_at`, name,
	).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) UpdateCategory(ctx context.Context, id int64, name string) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE categories SET name=$2, updated_at=now() WHERE id=$1`, id, name)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, created_at, updated_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
