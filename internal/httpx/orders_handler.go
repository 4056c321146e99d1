package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-bookstore.git/internal/books"
	kafkax "github.com/ariefcatur/go-bookstore.git/internal/kafka"
	"github.com/ariefcatur/go-bookstore.git/internal/orders"
	"github.com/ariefcatur/go-bookstore.git/internal/redisx"
)

type OrdersHandler struct {
	Workflow *orders.Workflow
	Cart     *orders.CartStore
	Stock    *orders.StockLedger
	Redis    *redis.Client
	Producer *kafkax.Producer // bookstore.order.events
	Service  string
}

type SetCartReq struct {
	BookID   int64 `json:"book_id"`
	Quantity int   `json:"quantity"`
}

type OverrideStockReq struct {
	BookID   int64 `json:"book_id"`
	Quantity int   `json:"quantity"`
}

type UpdateOrderReq struct {
	Status orders.Status `json:"status"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders/cart", h.setCart)
	r.Get("/orders/cart", h.getCart)
	r.Patch("/orders/stock", h.overrideStock)
	r.Get("/orders/stock/{bookID}", h.getStock)
	r.Post("/orders/order", h.createOrder)
	r.Get("/orders/order/admin/query", h.listAllOrders)
	r.Get("/orders/order/query", h.listUserOrders)
	r.Get("/orders/order/query/{id}", h.getOrder)
	r.Get("/orders/order/{id}/status", h.getOrderStatus)
	r.Patch("/orders/order/{id}", h.updateOrder)
}

// statusFromError maps the domain errors onto HTTP codes. Anything unknown
// is a 500.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, orders.ErrCartEmpty),
		errors.Is(err, orders.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, orders.ErrStockNotFound),
		errors.Is(err, orders.ErrBookNotFound),
		errors.Is(err, orders.ErrOrderNotFound),
		errors.Is(err, books.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, orders.ErrInsufficientStock),
		errors.Is(err, orders.ErrInvalidTransition):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h *OrdersHandler) setCart(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing or invalid user")
		return
	}
	var req SetCartReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.BookID == 0 || req.Quantity < 0 {
		writeError(w, http.StatusBadRequest, "missing fields")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	line, err := h.Cart.SetCart(ctx, uid, req.BookID, req.Quantity)
	if err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}
	if line == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
		return
	}
	writeJSON(w, http.StatusOK, line)
}

func (h *OrdersHandler) getCart(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing or invalid user")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	lines, err := h.Cart.GetCart(ctx, uid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if lines == nil {
		lines = []orders.CartLine{}
	}
	writeJSON(w, http.StatusOK, lines)
}

func (h *OrdersHandler) overrideStock(w http.ResponseWriter, r *http.Request) {
	var req OverrideStockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.BookID == 0 || req.Quantity < 0 {
		writeError(w, http.StatusBadRequest, "missing fields")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Stock.Override(ctx, req.BookID, req.Quantity); err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *OrdersHandler) getStock(w http.ResponseWriter, r *http.Request) {
	bookID, err := strconv.ParseInt(chi.URLParam(r, "bookID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	st, err := h.Stock.Get(ctx, bookID)
	if err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing or invalid user")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	order, err := h.Workflow.CreateOrder(ctx, uid)
	if err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}

	h.cacheStatus(ctx, order.UserID, order.ID, order.Status)

	items := make([]orders.ItemQty, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, orders.ItemQty{BookID: it.BookID, Qty: it.Quantity})
	}
	h.publish(r, orders.EventOrderCreated, order.ID, orders.OrderCreatedPayload{
		OrderID:    order.ID,
		UserID:     order.UserID,
		Items:      items,
		TotalCents: order.TotalCents,
	})

	writeJSON(w, http.StatusCreated, order)
}

func (h *OrdersHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing or invalid user")
		return
	}
	orderID := chi.URLParam(r, "id")
	var req UpdateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	order, err := h.Workflow.UpdateOrder(ctx, orderID, req.Status, uid)
	if err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}

	h.cacheStatus(ctx, order.UserID, order.ID, order.Status)
	h.publish(r, orders.EventOrderStatusChanged, order.ID, orders.OrderStatusChangedPayload{
		OrderID: order.ID,
		UserID:  order.UserID,
		To:      order.Status,
	})

	writeJSON(w, http.StatusOK, order)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing or invalid user")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	order, err := h.Workflow.GetOrder(ctx, chi.URLParam(r, "id"), uid)
	if err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// getOrderStatus serves from the Redis cache first and falls back to the DB,
// refilling the cache on a miss. The cache key is scoped to the owning user,
// so a hit carries the same ownership check as the DB path.
func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing or invalid user")
		return
	}
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, uid, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(s))
		return
	}

	order, err := h.Workflow.GetOrder(ctx, orderID, uid)
	if err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}
	h.cacheStatus(ctx, order.UserID, order.ID, order.Status)
	writeJSON(w, http.StatusOK, map[string]orders.Status{"status": order.Status})
}

func (h *OrdersHandler) listAllOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Workflow.ListOrders(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if out == nil {
		out = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) listUserOrders(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing or invalid user")
		return
	}
	status := orders.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Workflow.ListUserOrders(ctx, uid, status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if out == nil {
		out = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, userID, orderID string, status orders.Status) {
	key := fmt.Sprintf(redisx.KeyOrderStatus, userID, orderID)
	val := fmt.Sprintf(`{"status":%q}`, status)
	_ = h.Redis.Set(ctx, key, val, redisx.TTLStatusCache).Err()
}

func (h *OrdersHandler) publish(r *http.Request, eventType, orderID string, payload any) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       traceID(r),
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	h.Producer.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
