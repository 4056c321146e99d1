package orders

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func newWorkflow(t *testing.T) (*Workflow, *CartStore) {
	t.Helper()
	pool := testPool(t)
	ledger := &StockLedger{DB: pool}
	return &Workflow{DB: pool, Stock: ledger}, &CartStore{DB: pool}
}

func TestCreateOrderSnapshotsPriceAndLeavesStockAlone(t *testing.T) {
	w, cart := newWorkflow(t)
	ctx := context.Background()
	bookID := newBook(t, w.DB, 1000, 100)
	user := uuid.NewString()

	if _, err := cart.SetCart(ctx, user, bookID, 10); err != nil {
		t.Fatalf("set cart: %v", err)
	}

	order, err := w.CreateOrder(ctx, user)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.Status != StatusPending {
		t.Errorf("status = %s, want PENDING", order.Status)
	}
	if order.TotalCents != 10000 {
		t.Errorf("total = %d, want 10000", order.TotalCents)
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 10 || order.Items[0].PriceCents != 1000 {
		t.Errorf("items = %+v, want one item qty=10 price=1000", order.Items)
	}

	// Cart consumed.
	lines, err := cart.GetCart(ctx, user)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("cart lines after create = %d, want 0", len(lines))
	}

	// Creation is validation only: counters untouched.
	if a, f := mustStock(t, w.DB, bookID); a != 100 || f != 0 {
		t.Errorf("stock after create = (%d, %d), want (100, 0)", a, f)
	}
}

func TestDeliverThenSuccessMovesStock(t *testing.T) {
	w, cart := newWorkflow(t)
	ctx := context.Background()
	bookID := newBook(t, w.DB, 1000, 100)
	user := uuid.NewString()

	if _, err := cart.SetCart(ctx, user, bookID, 10); err != nil {
		t.Fatalf("set cart: %v", err)
	}
	order, err := w.CreateOrder(ctx, user)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	order, err = w.UpdateOrder(ctx, order.ID, StatusDelivering, user)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if order.Status != StatusDelivering {
		t.Errorf("status = %s, want DELIVERING", order.Status)
	}
	if a, f := mustStock(t, w.DB, bookID); a != 90 || f != 10 {
		t.Errorf("stock after deliver = (%d, %d), want (90, 10)", a, f)
	}

	order, err = w.UpdateOrder(ctx, order.ID, StatusSuccess, user)
	if err != nil {
		t.Fatalf("success: %v", err)
	}
	if order.Status != StatusSuccess {
		t.Errorf("status = %s, want SUCCESS", order.Status)
	}
	if a, f := mustStock(t, w.DB, bookID); a != 90 || f != 0 {
		t.Errorf("stock after success = (%d, %d), want (90, 0)", a, f)
	}
}

func TestCancelFromPendingLeavesStockAlone(t *testing.T) {
	w, cart := newWorkflow(t)
	ctx := context.Background()
	bookID := newBook(t, w.DB, 500, 20)
	user := uuid.NewString()

	if _, err := cart.SetCart(ctx, user, bookID, 3); err != nil {
		t.Fatalf("set cart: %v", err)
	}
	order, err := w.CreateOrder(ctx, user)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	order, err = w.UpdateOrder(ctx, order.ID, StatusCancelled, user)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if order.Status != StatusCancelled {
		t.Errorf("status = %s, want CANCELLED", order.Status)
	}
	if a, f := mustStock(t, w.DB, bookID); a != 20 || f != 0 {
		t.Errorf("stock after cancel = (%d, %d), want (20, 0)", a, f)
	}
}

func TestCreateOrderEmptyCart(t *testing.T) {
	w, _ := newWorkflow(t)

	_, err := w.CreateOrder(context.Background(), uuid.NewString())
	if !errors.Is(err, ErrCartEmpty) {
		t.Errorf("err = %v, want ErrCartEmpty", err)
	}
}

func TestCreateOrderInsufficientStockRollsBack(t *testing.T) {
	w, cart := newWorkflow(t)
	ctx := context.Background()
	bookID := newBook(t, w.DB, 1000, 0)
	user := uuid.NewString()

	if _, err := cart.SetCart(ctx, user, bookID, 10); err != nil {
		t.Fatalf("set cart: %v", err)
	}

	_, err := w.CreateOrder(ctx, user)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}

	// Whole unit rolled back: the cart line survives.
	lines, err := cart.GetCart(ctx, user)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(lines) != 1 || lines[0].Quantity != 10 {
		t.Errorf("cart after failed create = %+v, want the original line", lines)
	}
}

func TestUpdateOrderToPendingAlwaysInvalid(t *testing.T) {
	w, cart := newWorkflow(t)
	ctx := context.Background()
	bookID := newBook(t, w.DB, 1000, 10)
	user := uuid.NewString()

	if _, err := cart.SetCart(ctx, user, bookID, 1); err != nil {
		t.Fatalf("set cart: %v", err)
	}
	order, err := w.CreateOrder(ctx, user)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if _, err := w.UpdateOrder(ctx, order.ID, StatusPending, user); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("target PENDING: err = %v, want ErrInvalidStatus", err)
	}
	// Rejected before lookup: a nonexistent order gives the same answer.
	if _, err := w.UpdateOrder(ctx, uuid.NewString(), StatusPending, user); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("target PENDING on missing order: err = %v, want ErrInvalidStatus", err)
	}
	if _, err := w.UpdateOrder(ctx, order.ID, Status("PAID"), user); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("unknown target: err = %v, want ErrInvalidStatus", err)
	}
}

func TestInvalidTransitions(t *testing.T) {
	w, cart := newWorkflow(t)
	ctx := context.Background()
	bookID := newBook(t, w.DB, 1000, 50)
	user := uuid.NewString()

	if _, err := cart.SetCart(ctx, user, bookID, 2); err != nil {
		t.Fatalf("set cart: %v", err)
	}
	order, err := w.CreateOrder(ctx, user)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	// SUCCESS straight from PENDING.
	if _, err := w.UpdateOrder(ctx, order.ID, StatusSuccess, user); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("PENDING->SUCCESS: err = %v, want ErrInvalidTransition", err)
	}

	if _, err := w.UpdateOrder(ctx, order.ID, StatusDelivering, user); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	// CANCELLED from DELIVERING has no transition defined.
	if _, err := w.UpdateOrder(ctx, order.ID, StatusCancelled, user); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("DELIVERING->CANCELLED: err = %v, want ErrInvalidTransition", err)
	}
	// DELIVERING again is not allowed either.
	if _, err := w.UpdateOrder(ctx, order.ID, StatusDelivering, user); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("DELIVERING->DELIVERING: err = %v, want ErrInvalidTransition", err)
	}
}

func TestUpdateOrderScopedToUser(t *testing.T) {
	w, cart := newWorkflow(t)
	ctx := context.Background()
	bookID := newBook(t, w.DB, 1000, 10)
	user := uuid.NewString()

	if _, err := cart.SetCart(ctx, user, bookID, 1); err != nil {
		t.Fatalf("set cart: %v", err)
	}
	order, err := w.CreateOrder(ctx, user)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if _, err := w.UpdateOrder(ctx, order.ID, StatusCancelled, uuid.NewString()); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("other user's order: err = %v, want ErrOrderNotFound", err)
	}
	if _, err := w.GetOrder(ctx, order.ID, uuid.NewString()); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("GetOrder other user: err = %v, want ErrOrderNotFound", err)
	}
}

// Two PENDING orders both hold a claim on the same five units; only one of
// the delivering transitions may win the reservation.
func TestConcurrentDeliverCannotOversell(t *testing.T) {
	w, cart := newWorkflow(t)
	ctx := context.Background()
	bookID := newBook(t, w.DB, 1000, 5)

	var orderIDs [2]string
	var users [2]string
	for i := range orderIDs {
		users[i] = uuid.NewString()
		if _, err := cart.SetCart(ctx, users[i], bookID, 5); err != nil {
			t.Fatalf("set cart: %v", err)
		}
		// Both creates succeed: creation validates but reserves nothing.
		order, err := w.CreateOrder(ctx, users[i])
		if err != nil {
			t.Fatalf("create order %d: %v", i, err)
		}
		orderIDs[i] = order.ID
	}

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = w.UpdateOrder(ctx, orderIDs[i], StatusDelivering, users[i])
		}(i)
	}
	wg.Wait()

	var okCount, shortCount int
	for _, err := range errs {
		switch {
		case err == nil:
			okCount++
		case errors.Is(err, ErrInsufficientStock):
			shortCount++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if okCount != 1 || shortCount != 1 {
		t.Fatalf("got %d successes and %d shortfalls, want exactly 1 of each", okCount, shortCount)
	}
	if a, f := mustStock(t, w.DB, bookID); a != 0 || f != 5 {
		t.Errorf("stock = (%d, %d), want (0, 5)", a, f)
	}
}

func TestListOrders(t *testing.T) {
	w, cart := newWorkflow(t)
	ctx := context.Background()
	bookID := newBook(t, w.DB, 1000, 100)
	user := uuid.NewString()

	for i := 0; i < 2; i++ {
		if _, err := cart.SetCart(ctx, user, bookID, 1); err != nil {
			t.Fatalf("set cart: %v", err)
		}
		if _, err := w.CreateOrder(ctx, user); err != nil {
			t.Fatalf("create order: %v", err)
		}
	}

	mine, err := w.ListUserOrders(ctx, user, "")
	if err != nil {
		t.Fatalf("list user orders: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("user orders = %d, want 2", len(mine))
	}
	for _, o := range mine {
		if len(o.Items) != 1 {
			t.Errorf("order %s items = %d, want 1", o.ID, len(o.Items))
		}
	}

	pending, err := w.ListUserOrders(ctx, user, StatusPending)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("pending orders = %d, want 2", len(pending))
	}
	cancelled, err := w.ListUserOrders(ctx, user, StatusCancelled)
	if err != nil {
		t.Fatalf("list cancelled: %v", err)
	}
	if len(cancelled) != 0 {
		t.Errorf("cancelled orders = %d, want 0", len(cancelled))
	}

	all, err := w.ListOrders(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) < 2 {
		t.Errorf("all orders = %d, want >= 2", len(all))
	}
}
