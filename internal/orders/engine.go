// Package orders is the order lifecycle: creating an order against the
// catalog stock, refunding it, and reading orders back.
package orders

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cupoftea4/pos-mysql/internal/apperr"
	"github.com/cupoftea4/pos-mysql/internal/model"
	"github.com/cupoftea4/pos-mysql/internal/store"
)

// LineRequest asks for quantity units of one item.
type LineRequest struct {
	ItemID   int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

// CreateRequest is the payload of a new order. Enumerations arrive as raw
// strings and are parsed by CreateOrder.
type CreateRequest struct {
	Lines         []LineRequest `json:"items"`
	SellMode      string        `json:"sell_mode"`
	PaymentMethod string        `json:"payment_method"`
	DiscountMode  string        `json:"discount_mode"`
	DiscountValue DiscountValue `json:"discount_value"`
}

// Created is the result of CreateOrder.
type Created struct {
	ID         int64           `json:"id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
}

type Engine struct {
	ledger Ledger
	reader Reader
	log    logrus.FieldLogger
	tracer trace.Tracer
	now    func() time.Time
}

type Option func(*Engine)

// WithClock replaces the wall clock used to stamp new orders.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(ledger Ledger, reader Reader, log logrus.FieldLogger, opts ...Option) *Engine {
	e := &Engine{
		ledger: ledger,
		reader: reader,
		log:    log,
		tracer: otel.Tracer("github.com/cupoftea4/pos-mysql/internal/orders"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateOrder validates req, prices it at the requested sell mode, applies
// the discount and writes the order, its lines and the stock decrements in
// one transaction. Any failure leaves stock and the ledger untouched.
func (e *Engine) CreateOrder(ctx context.Context, who model.Identity, req CreateRequest) (Created, error) {
	const op = "orders.CreateOrder"
	ctx, span := e.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.Int64("pos.user_id", who.UserID),
		attribute.Int("pos.lines", len(req.Lines)),
	))
	defer span.End()

	parsed, err := parseCreate(op, req)
	if err != nil {
		return Created{}, spanError(span, err)
	}

	order := &model.Order{
		CreatedAt:     e.now().UTC().Truncate(time.Second),
		CreatedBy:     who.UserID,
		PaymentMethod: parsed.payment,
		SellMode:      parsed.sellMode,
	}

	err = e.ledger.InTx(ctx, func(tx Tx) error {
		items := make(map[int64]model.Item, len(parsed.want))
		lines := make([]model.OrderLine, 0, len(req.Lines))
		for _, lr := range req.Lines {
			item, seen := items[lr.ItemID]
			if !seen {
				fetched, err := tx.ItemForSale(ctx, lr.ItemID)
				if apperr.Is(err, apperr.NotFound) {
					return apperr.Ef(op, apperr.NotFound, "Item with ID %d not found", lr.ItemID)
				}
				if err != nil {
					return apperr.Wrap(op, err)
				}
				if fetched.StockQuantity < parsed.want[lr.ItemID] {
					return insufficient(op, fetched)
				}
				item = fetched
				items[lr.ItemID] = item
			}
			lines = append(lines, model.OrderLine{
				ItemID:   item.ItemID,
				Name:     item.Name,
				Quantity: lr.Quantity,
				Price:    item.PriceFor(parsed.sellMode),
			})
		}

		order.TotalPrice = ApplyDiscount(Subtotal(lines), parsed.discountMode, parsed.discount)
		if err := tx.InsertOrder(ctx, order); err != nil {
			return apperr.Wrap(op, err)
		}
		for _, l := range lines {
			l.OrderID = order.OrderID
			if err := tx.InsertOrderLine(ctx, l); err != nil {
				return apperr.Wrap(op, err)
			}
		}

		// Ascending item order keeps concurrent orders from deadlocking on
		// each other's rows.
		for _, id := range sortedIDs(parsed.want) {
			ok, err := tx.TakeStock(ctx, id, parsed.want[id])
			if err != nil {
				return apperr.Wrap(op, err)
			}
			if !ok {
				return insufficient(op, items[id])
			}
		}
		return nil
	})
	if err != nil {
		return Created{}, spanError(span, err)
	}

	span.SetAttributes(attribute.Int64("pos.order_id", order.OrderID))
	e.log.WithFields(logrus.Fields{
		"order_id": order.OrderID,
		"user_id":  who.UserID,
		"total":    order.TotalPrice.String(),
		"lines":    len(req.Lines),
	}).Info("order created")

	return Created{ID: order.OrderID, TotalPrice: order.TotalPrice, CreatedAt: order.CreatedAt}, nil
}

// RefundOrder marks an order refunded and puts the quantities of its lines
// back into stock. A missing or already refunded order is NotFound and
// changes nothing.
func (e *Engine) RefundOrder(ctx context.Context, who model.Identity, orderID int64) error {
	const op = "orders.RefundOrder"
	ctx, span := e.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.Int64("pos.user_id", who.UserID),
		attribute.Int64("pos.order_id", orderID),
	))
	defer span.End()

	err := e.ledger.InTx(ctx, func(tx Tx) error {
		ok, err := tx.MarkRefunded(ctx, orderID)
		if err != nil {
			return apperr.Wrap(op, err)
		}
		if !ok {
			return apperr.E(op, apperr.NotFound, "Order not found or already refunded")
		}

		lines, err := tx.OrderLines(ctx, orderID)
		if err != nil {
			return apperr.Wrap(op, err)
		}
		restore := make(map[int64]int, len(lines))
		for _, l := range lines {
			restore[l.ItemID] += l.Quantity
		}
		for _, id := range sortedIDs(restore) {
			if err := tx.RestoreStock(ctx, id, restore[id]); err != nil {
				return apperr.Wrap(op, err)
			}
		}
		return nil
	})
	if err != nil {
		return spanError(span, err)
	}

	e.log.WithFields(logrus.Fields{"order_id": orderID, "user_id": who.UserID}).Info("order refunded")
	return nil
}

// OrderPage is one page of the order history.
type OrderPage struct {
	Orders      []model.Order `json:"orders"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
}

// ListOrders returns the orders whose creator email or id contains search.
func (e *Engine) ListOrders(ctx context.Context, search string, page model.Page) (OrderPage, error) {
	page = page.Normalize()
	orders, total, err := e.reader.ListOrders(ctx, store.OrderFilter{Search: search, Page: page})
	if err != nil {
		return OrderPage{}, apperr.Wrap("orders.ListOrders", err)
	}
	return OrderPage{Orders: orders, TotalPages: page.TotalPages(total), CurrentPage: page.Number}, nil
}

// Receipt returns everything a printed receipt needs: the order header,
// the creator email and the lines in entry order.
func (e *Engine) Receipt(ctx context.Context, orderID int64) (model.Order, error) {
	o, err := e.reader.GetOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, apperr.Wrap("orders.Receipt", err)
	}
	return o, nil
}

type parsedCreate struct {
	sellMode     model.SellMode
	payment      model.PaymentMethod
	discountMode model.DiscountMode
	discount     decimal.Decimal
	want         map[int64]int // total quantity per item
}

func parseCreate(op string, req CreateRequest) (parsedCreate, error) {
	var p parsedCreate
	if len(req.Lines) == 0 {
		return p, apperr.E(op, apperr.Validation, "Order items are required")
	}
	if req.SellMode == "" || req.PaymentMethod == "" {
		return p, apperr.E(op, apperr.Validation, "Sell mode and payment method are required")
	}

	var err error
	if p.sellMode, err = model.ParseSellMode(req.SellMode); err != nil {
		return p, apperr.WrapKind(op, apperr.Validation, "Invalid sell mode", err)
	}
	if p.payment, err = model.ParsePaymentMethod(req.PaymentMethod); err != nil {
		return p, apperr.WrapKind(op, apperr.Validation, "Invalid payment method", err)
	}
	if p.discountMode, err = model.ParseDiscountMode(req.DiscountMode); err != nil {
		return p, apperr.WrapKind(op, apperr.Validation, "Invalid discount mode", err)
	}
	if p.discount, err = checkDiscount(op, p.discountMode, req.DiscountValue); err != nil {
		return p, err
	}

	p.want = make(map[int64]int, len(req.Lines))
	for _, l := range req.Lines {
		if l.ItemID <= 0 {
			return p, apperr.E(op, apperr.Validation, "Item id is required")
		}
		if l.Quantity <= 0 {
			return p, apperr.Ef(op, apperr.Validation, "Quantity for item %d must be positive", l.ItemID)
		}
		p.want[l.ItemID] += l.Quantity
	}
	return p, nil
}

func insufficient(op string, item model.Item) error {
	return apperr.Ef(op, apperr.InsufficientStock, "Insufficient stock for item: %s", item.Name)
}

func sortedIDs(m map[int64]int) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, apperr.KindOf(err).String())
	return err
}
