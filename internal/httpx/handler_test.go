package httpx

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ariefcatur/go-bookstore.git/internal/books"
	"github.com/ariefcatur/go-bookstore.git/internal/orders"
)

func TestStatusFromError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want int
	}{
		{orders.ErrCartEmpty, http.StatusBadRequest},
		{orders.ErrInvalidStatus, http.StatusBadRequest},
		{orders.ErrStockNotFound, http.StatusNotFound},
		{orders.ErrBookNotFound, http.StatusNotFound},
		{orders.ErrOrderNotFound, http.StatusNotFound},
		{books.ErrNotFound, http.StatusNotFound},
		{orders.ErrInsufficientStock, http.StatusConflict},
		{orders.ErrInvalidTransition, http.StatusConflict},
		{fmt.Errorf("book 7: %w", orders.ErrInsufficientStock), http.StatusConflict},
		{fmt.Errorf("order cannot be delivered: %w", orders.ErrInvalidTransition), http.StatusConflict},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFromError(tc.err); got != tc.want {
			t.Errorf("statusFromError(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestUserIDRequiresUUID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		header string
		want   string
	}{
		{"valid", "6f1c9c74-9d3e-4a2b-8c11-0f5a2f9f3b60", "6f1c9c74-9d3e-4a2b-8c11-0f5a2f9f3b60"},
		{"uppercase normalized", "6F1C9C74-9D3E-4A2B-8C11-0F5A2F9F3B60", "6f1c9c74-9d3e-4a2b-8c11-0f5a2f9f3b60"},
		{"missing", "", ""},
		{"malformed", "alice'; DROP TABLE orders;--", ""},
		{"truncated", "6f1c9c74-9d3e", ""},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/orders/cart", nil)
		if tc.header != "" {
			r.Header.Set("X-User-Id", tc.header)
		}
		if got := userID(r); got != tc.want {
			t.Errorf("%s: userID = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestTraceIDComesFromRequestContext(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodPost, "/orders/order", nil)
	if got := traceID(r); got != "" {
		t.Errorf("traceID without middleware = %q, want empty", got)
	}

	ctx := context.WithValue(r.Context(), middleware.RequestIDKey, "req-42")
	if got := traceID(r.WithContext(ctx)); got != "req-42" {
		t.Errorf("traceID = %q, want req-42", got)
	}
}
