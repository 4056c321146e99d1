package orders

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// The tests in this package that touch Postgres run against the database in
// TEST_POSTGRES_DSN and skip when it is unset.

var schemaOnce sync.Once

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	schemaOnce.Do(func() {
		schema, err := os.ReadFile(filepath.Join("..", "..", "migrations", "0001_init.sql"))
		if err != nil {
			t.Fatalf("read schema: %v", err)
		}
		if _, err := pool.Exec(ctx, string(schema)); err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	})
	return pool
}

// newBook inserts a category, a book at the given price, and its stock row,
// returning the book id.
func newBook(t *testing.T, pool *pgxpool.Pool, priceCents, stock int) int64 {
	t.Helper()
	ctx := context.Background()

	var categoryID int64
	err := pool.QueryRow(ctx, `
		INSERT INTO categories(name) VALUES ('fiction') RETURNING id`).Scan(&categoryID)
	if err != nil {
		t.Fatalf("insert category: %v", err)
	}

	var bookID int64
	err = pool.QueryRow(ctx, `
		INSERT INTO books(title, category_id, author, price_cents)
		VALUES ('test book', $1, 'tester', $2) RETURNING id`,
		categoryID, priceCents).Scan(&bookID)
	if err != nil {
		t.Fatalf("insert book: %v", err)
	}

	ledger := &StockLedger{DB: pool}
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := ledger.Initialize(ctx, tx, bookID, stock); err != nil {
		t.Fatalf("initialize stock: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return bookID
}

func mustStock(t *testing.T, pool *pgxpool.Pool, bookID int64) (available, frozen int) {
	t.Helper()
	ledger := &StockLedger{DB: pool}
	st, err := ledger.Get(context.Background(), bookID)
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	return st.Available, st.Frozen
}
