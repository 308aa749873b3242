package store

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/cupoftea4/pos-mysql/internal/model"
)

// SalesByBucket sums non-refunded orders created at or after since, grouped
// by calendar month or year, most recent bucket first.
func (pdb *Store) SalesByBucket(ctx context.Context, period model.Period, since time.Time) ([]model.SalesBucket, error) {
	const op = "store.SalesByBucket"
	bucket := pdb.dialect.bucketExpr("created_at", period)
	b := pdb.sb.Select(bucket+" AS bucket", "SUM(total_price) AS total_sales", "COUNT(*) AS order_count").
		From("orders").
		Where(sq.GtOrEq{"created_at": since}).
		Where(sq.Eq{"is_refunded": false}).
		GroupBy(bucket).
		OrderBy("bucket DESC")

	rows, err := query(ctx, pdb.db, b)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	buckets := []model.SalesBucket{}
	for rows.Next() {
		var sb model.SalesBucket
		if err := rows.Scan(&sb.Bucket, &sb.TotalSales, &sb.OrderCount); err != nil {
			return nil, classify(op, err)
		}
		buckets = append(buckets, sb)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return buckets, nil
}

// SalesByItem aggregates the lines of non-refunded orders created in
// [from, to) per item, highest revenue first.
func (pdb *Store) SalesByItem(ctx context.Context, from, to time.Time) ([]model.ItemSales, error) {
	const op = "store.SalesByItem"
	b := pdb.sb.Select(
		"i.id",
		"i.name AS item_name",
		"COUNT(DISTINCT o.id) AS order_count",
		"SUM(oi.quantity) AS total_quantity",
		"SUM(oi.price * oi.quantity) AS total_sales",
	).
		From("orders o").
		Join("order_items oi ON o.id = oi.order_id").
		Join("items i ON oi.item_id = i.id").
		Where(sq.GtOrEq{"o.created_at": from}).
		Where(sq.Lt{"o.created_at": to}).
		Where(sq.Eq{"o.is_refunded": false}).
		GroupBy("i.id", "i.name").
		OrderBy("total_sales DESC", "i.id")

	rows, err := query(ctx, pdb.db, b)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	sales := []model.ItemSales{}
	for rows.Next() {
		var s model.ItemSales
		if err := rows.Scan(&s.ItemID, &s.ItemName, &s.OrderCount, &s.TotalQuantity, &s.TotalSales); err != nil {
			return nil, classify(op, err)
		}
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return sales, nil
}
