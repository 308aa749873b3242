package orders

import (
	"context"

	"github.com/cupoftea4/pos-mysql/internal/model"
	"github.com/cupoftea4/pos-mysql/internal/store"
)

// Tx is the order ledger and catalog stock path inside one transaction.
type Tx interface {
	ItemForSale(ctx context.Context, itemID int64) (model.Item, error)
	InsertOrder(ctx context.Context, o *model.Order) error
	InsertOrderLine(ctx context.Context, line model.OrderLine) error
	// TakeStock must decrement only when enough stock is left and report
	// whether it did.
	TakeStock(ctx context.Context, itemID int64, qty int) (bool, error)
	RestoreStock(ctx context.Context, itemID int64, qty int) error
	// MarkRefunded must flip the flag only for a not yet refunded order.
	MarkRefunded(ctx context.Context, orderID int64) (bool, error)
	OrderLines(ctx context.Context, orderID int64) ([]model.OrderLine, error)
}

// Ledger runs fn atomically: every write made through the Tx is kept when fn
// returns nil and discarded otherwise.
type Ledger interface {
	InTx(ctx context.Context, fn func(Tx) error) error
}

// Reader serves the read-only order queries.
type Reader interface {
	ListOrders(ctx context.Context, f store.OrderFilter) ([]model.Order, int, error)
	GetOrder(ctx context.Context, orderID int64) (model.Order, error)
}

type storeLedger struct {
	s *store.Store
}

// NewStoreLedger adapts a SQL store to the Ledger interface.
func NewStoreLedger(s *store.Store) Ledger {
	return storeLedger{s: s}
}

func (l storeLedger) InTx(ctx context.Context, fn func(Tx) error) error {
	return l.s.InTx(ctx, func(tx *store.Tx) error { return fn(tx) })
}

var _ Tx = (*store.Tx)(nil)
