package orders

import (
	"context"
	"errors"
	"sync"

	"github.com/cupoftea4/pos-mysql/internal/apperr"
	"github.com/cupoftea4/pos-mysql/internal/model"
	"github.com/cupoftea4/pos-mysql/internal/store"
)

// memState is the content of the in-memory ledger.
type memState struct {
	items     map[int64]model.Item
	orders    map[int64]model.Order
	lines     []model.OrderLine
	nextOrder int64
}

func (s memState) clone() memState {
	c := memState{
		items:     make(map[int64]model.Item, len(s.items)),
		orders:    make(map[int64]model.Order, len(s.orders)),
		lines:     append([]model.OrderLine(nil), s.lines...),
		nextOrder: s.nextOrder,
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	return c
}

// memLedger is a serializable in-memory Ledger. Each transaction works on a
// copy that replaces the state only on success.
type memLedger struct {
	mu    sync.Mutex
	state memState

	// beforeTake runs once inside the next TakeStock, against the
	// transaction's view, to simulate a write that slipped in between the
	// stock check and the decrement.
	beforeTake func(*memState)
	// failLineAfter makes InsertOrderLine fail after that many lines.
	failLineAfter int
}

func newMemLedger(items ...model.Item) *memLedger {
	l := &memLedger{
		state: memState{
			items:     map[int64]model.Item{},
			orders:    map[int64]model.Order{},
			nextOrder: 1,
		},
		failLineAfter: -1,
	}
	for _, it := range items {
		l.state.items[it.ItemID] = it
	}
	return l
}

func (l *memLedger) InTx(ctx context.Context, fn func(Tx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	work := l.state.clone()
	if err := fn(&memTx{l: l, st: &work}); err != nil {
		return err
	}
	l.state = work
	return nil
}

func (l *memLedger) stock(id int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.items[id].StockQuantity
}

func (l *memLedger) orderCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.state.orders)
}

func (l *memLedger) order(id int64) model.Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	o := l.state.orders[id]
	for _, ln := range l.state.lines {
		if ln.OrderID == id {
			o.Lines = append(o.Lines, ln)
		}
	}
	return o
}

func (l *memLedger) setRetail(id int64, price int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	it := l.state.items[id]
	it.RetailPrice = dec(price)
	l.state.items[id] = it
}

type memTx struct {
	l        *memLedger
	st       *memState
	inserted int
}

func (t *memTx) ItemForSale(ctx context.Context, itemID int64) (model.Item, error) {
	it, ok := t.st.items[itemID]
	if !ok {
		return model.Item{}, apperr.E("mem.ItemForSale", apperr.NotFound, "Item not found")
	}
	return it, nil
}

func (t *memTx) InsertOrder(ctx context.Context, o *model.Order) error {
	o.OrderID = t.st.nextOrder
	t.st.nextOrder++
	t.st.orders[o.OrderID] = *o
	return nil
}

func (t *memTx) InsertOrderLine(ctx context.Context, line model.OrderLine) error {
	if t.l.failLineAfter >= 0 && t.inserted >= t.l.failLineAfter {
		return errors.New("disk full")
	}
	t.inserted++
	t.st.lines = append(t.st.lines, line)
	return nil
}

func (t *memTx) TakeStock(ctx context.Context, itemID int64, qty int) (bool, error) {
	if hook := t.l.beforeTake; hook != nil {
		t.l.beforeTake = nil
		hook(t.st)
	}
	it := t.st.items[itemID]
	if it.StockQuantity < qty {
		return false, nil
	}
	it.StockQuantity -= qty
	t.st.items[itemID] = it
	return true, nil
}

func (t *memTx) RestoreStock(ctx context.Context, itemID int64, qty int) error {
	it := t.st.items[itemID]
	it.StockQuantity += qty
	t.st.items[itemID] = it
	return nil
}

func (t *memTx) MarkRefunded(ctx context.Context, orderID int64) (bool, error) {
	o, ok := t.st.orders[orderID]
	if !ok || o.IsRefunded {
		return false, nil
	}
	o.IsRefunded = true
	t.st.orders[orderID] = o
	return true, nil
}

func (t *memTx) OrderLines(ctx context.Context, orderID int64) ([]model.OrderLine, error) {
	var out []model.OrderLine
	for _, ln := range t.st.lines {
		if ln.OrderID == orderID {
			out = append(out, ln)
		}
	}
	return out, nil
}

type stubReader struct {
	orders []model.Order
	total  int
	filter store.OrderFilter
	err    error
}

func (r *stubReader) ListOrders(ctx context.Context, f store.OrderFilter) ([]model.Order, int, error) {
	r.filter = f
	return r.orders, r.total, r.err
}

func (r *stubReader) GetOrder(ctx context.Context, orderID int64) (model.Order, error) {
	for _, o := range r.orders {
		if o.OrderID == orderID {
			return o, nil
		}
	}
	return model.Order{}, apperr.E("stub.GetOrder", apperr.NotFound, "Order not found")
}
