package store

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/cupoftea4/pos-mysql/internal/model"
)

// Tx is the order ledger inside one database transaction. It is only
// handed out by Store.InTx.
type Tx struct {
	tx      *sql.Tx
	dialect Dialect
	sb      sq.StatementBuilderType
}

// ItemForSale reads the pricing and stock of an item.
func (t *Tx) ItemForSale(ctx context.Context, itemID int64) (model.Item, error) {
	const op = "store.ItemForSale"
	var it model.Item
	b := t.sb.Select("id", "name", "retail_price", "wholesale_price", "stock_quantity").
		From("items").
		Where(sq.Eq{"id": itemID})
	if err := queryRow(ctx, t.tx, b, &it.ItemID, &it.Name, &it.RetailPrice, &it.WholesalePrice, &it.StockQuantity); err != nil {
		if isNoRows(err) {
			return model.Item{}, notFound(op, "Item not found")
		}
		return model.Item{}, classify(op, err)
	}
	return it, nil
}

// InsertOrder writes the order header and fills in its id.
func (t *Tx) InsertOrder(ctx context.Context, o *model.Order) error {
	b := t.sb.Insert("orders").
		Columns("created_at", "created_by", "total_price", "payment_method", "sell_mode", "is_refunded").
		Values(o.CreatedAt, o.CreatedBy, o.TotalPrice, string(o.PaymentMethod), string(o.SellMode), false)
	id, err := t.dialect.insertID(ctx, t.tx, b)
	if err != nil {
		return classify("store.InsertOrder", err)
	}
	o.OrderID = id
	return nil
}

func (t *Tx) InsertOrderLine(ctx context.Context, line model.OrderLine) error {
	b := t.sb.Insert("order_items").
		Columns("order_id", "item_id", "quantity", "price").
		Values(line.OrderID, line.ItemID, line.Quantity, line.Price)
	_, err := exec(ctx, t.tx, b)
	return classify("store.InsertOrderLine", err)
}

// TakeStock decrements the stock of an item by qty only if enough stock is
// left. It reports whether the decrement happened.
func (t *Tx) TakeStock(ctx context.Context, itemID int64, qty int) (bool, error) {
	b := t.sb.Update("items").
		Set("stock_quantity", sq.Expr("stock_quantity - ?", qty)).
		Where(sq.Eq{"id": itemID}).
		Where(sq.GtOrEq{"stock_quantity": qty})
	affected, err := exec(ctx, t.tx, b)
	if err != nil {
		return false, classify("store.TakeStock", err)
	}
	return affected == 1, nil
}

func (t *Tx) RestoreStock(ctx context.Context, itemID int64, qty int) error {
	b := t.sb.Update("items").
		Set("stock_quantity", sq.Expr("stock_quantity + ?", qty)).
		Where(sq.Eq{"id": itemID})
	_, err := exec(ctx, t.tx, b)
	return classify("store.RestoreStock", err)
}

// MarkRefunded flips the refunded flag of a not yet refunded order. It
// reports false when the order is missing or already refunded.
func (t *Tx) MarkRefunded(ctx context.Context, orderID int64) (bool, error) {
	b := t.sb.Update("orders").
		Set("is_refunded", true).
		Where(sq.Eq{"id": orderID, "is_refunded": false})
	affected, err := exec(ctx, t.tx, b)
	if err != nil {
		return false, classify("store.MarkRefunded", err)
	}
	return affected == 1, nil
}

func (t *Tx) OrderLines(ctx context.Context, orderID int64) ([]model.OrderLine, error) {
	lines, err := linesFor(ctx, t.tx, t.sb, []int64{orderID})
	if err != nil {
		return nil, classify("store.OrderLines", err)
	}
	return lines[orderID], nil
}

// OrderFilter narrows ListOrders. Search matches the creator email or the
// order id as a substring.
type OrderFilter struct {
	Search string
	Page   model.Page
}

// ListOrders returns one page of orders, newest first, each with its lines.
func (pdb *Store) ListOrders(ctx context.Context, f OrderFilter) ([]model.Order, int, error) {
	const op = "store.ListOrders"
	pattern := likePattern(f.Search)
	where := sq.Or{
		sq.Expr("LOWER(u.email) LIKE ?", pattern),
		sq.Expr(pdb.dialect.textExpr("o.id")+" LIKE ?", pattern),
	}

	b := orderSelect(pdb.sb).Where(where).OrderBy("o.created_at DESC", "o.id DESC")
	rows, err := query(ctx, pdb.db, limitOffset(b, f.Page))
	if err != nil {
		return nil, 0, classify(op, err)
	}
	defer rows.Close()

	orders := []model.Order{}
	var ids []int64
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, classify(op, err)
		}
		orders = append(orders, o)
		ids = append(ids, o.OrderID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, classify(op, err)
	}

	lines, err := linesFor(ctx, pdb.db, pdb.sb, ids)
	if err != nil {
		return nil, 0, classify(op, err)
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].OrderID]
		if orders[i].Lines == nil {
			orders[i].Lines = []model.OrderLine{}
		}
	}

	var total int
	count := pdb.sb.Select("COUNT(DISTINCT o.id)").From("orders o").Join("users u ON o.created_by = u.id").Where(where)
	if err := queryRow(ctx, pdb.db, count, &total); err != nil {
		return nil, 0, classify(op, err)
	}
	return orders, total, nil
}

// GetOrder returns one order with its creator email and lines.
func (pdb *Store) GetOrder(ctx context.Context, orderID int64) (model.Order, error) {
	const op = "store.GetOrder"
	sqlStr, args, err := orderSelect(pdb.sb).Where(sq.Eq{"o.id": orderID}).ToSql()
	if err != nil {
		return model.Order{}, classify(op, err)
	}
	o, err := scanOrder(pdb.db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		if isNoRows(err) {
			return model.Order{}, notFound(op, "Order not found")
		}
		return model.Order{}, classify(op, err)
	}

	lines, err := linesFor(ctx, pdb.db, pdb.sb, []int64{orderID})
	if err != nil {
		return model.Order{}, classify(op, err)
	}
	o.Lines = lines[orderID]
	return o, nil
}

func orderSelect(sb sq.StatementBuilderType) sq.SelectBuilder {
	return sb.Select("o.id", "o.created_at", "o.total_price", "o.payment_method", "o.sell_mode", "o.is_refunded", "o.created_by", "u.email").
		From("orders o").
		Join("users u ON o.created_by = u.id")
}

func scanOrder(s scanner) (model.Order, error) {
	var o model.Order
	var payment, mode string
	err := s.Scan(&o.OrderID, &o.CreatedAt, &o.TotalPrice, &payment, &mode, &o.IsRefunded, &o.CreatedBy, &o.CreatedByEmail)
	if err != nil {
		return model.Order{}, err
	}
	o.PaymentMethod = model.PaymentMethod(payment)
	o.SellMode = model.SellMode(mode)
	return o, nil
}

// linesFor loads the lines of the given orders keyed by order id, in
// insertion order.
func linesFor(ctx context.Context, q querier, sb sq.StatementBuilderType, orderIDs []int64) (map[int64][]model.OrderLine, error) {
	out := make(map[int64][]model.OrderLine, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}

	b := sb.Select("oi.order_id", "oi.item_id", "COALESCE(i.name, '')", "oi.quantity", "oi.price").
		From("order_items oi").
		LeftJoin("items i ON oi.item_id = i.id").
		Where(sq.Eq{"oi.order_id": orderIDs}).
		OrderBy("oi.order_id", "oi.id")
	rows, err := query(ctx, q, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var l model.OrderLine
		if err := rows.Scan(&l.OrderID, &l.ItemID, &l.Name, &l.Quantity, &l.Price); err != nil {
			return nil, err
		}
		out[l.OrderID] = append(out[l.OrderID], l)
	}
	return out, rows.Err()
}
