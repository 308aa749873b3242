package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"github.com/cupoftea4/pos-mysql/internal/apperr"
	"github.com/cupoftea4/pos-mysql/internal/model"
)

// ListItems returns one page of items whose name contains search, newest
// first, and the total number of matches. The original cost is only read
// when includeOriginalPrice is set.
func (pdb *Store) ListItems(ctx context.Context, search string, page model.Page, includeOriginalPrice bool) ([]model.Item, int, error) {
	const op = "store.ListItems"
	where := sq.Expr("LOWER(name) LIKE ?", likePattern(search))

	cols := []string{"id", "name", "retail_price", "wholesale_price", "category_id", "stock_quantity", "created_by"}
	if includeOriginalPrice {
		cols = append(cols, "original_price")
	}
	b := pdb.sb.Select(cols...).From("items").Where(where).OrderBy("id DESC")

	rows, err := query(ctx, pdb.db, limitOffset(b, page))
	if err != nil {
		return nil, 0, classify(op, err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		var it model.Item
		var createdBy *int64
		dest := []any{&it.ItemID, &it.Name, &it.RetailPrice, &it.WholesalePrice, &it.CategoryID, &it.StockQuantity, &createdBy}
		var cost decimal.Decimal
		if includeOriginalPrice {
			dest = append(dest, &cost)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, classify(op, err)
		}
		if includeOriginalPrice {
			it.OriginalPrice = &cost
		}
		if createdBy != nil {
			it.CreatedBy = *createdBy
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, classify(op, err)
	}

	var total int
	if err := queryRow(ctx, pdb.db, pdb.sb.Select("COUNT(*)").From("items").Where(where), &total); err != nil {
		return nil, 0, classify(op, err)
	}
	return items, total, nil
}

func (pdb *Store) GetItem(ctx context.Context, itemID int64) (model.Item, error) {
	const op = "store.GetItem"
	var it model.Item
	var cost decimal.Decimal
	var createdBy *int64
	b := pdb.sb.Select("id", "name", "original_price", "retail_price", "wholesale_price", "category_id", "stock_quantity", "created_by").
		From("items").
		Where(sq.Eq{"id": itemID})
	err := queryRow(ctx, pdb.db, b, &it.ItemID, &it.Name, &cost, &it.RetailPrice, &it.WholesalePrice, &it.CategoryID, &it.StockQuantity, &createdBy)
	if err != nil {
		if isNoRows(err) {
			return model.Item{}, notFound(op, "Item not found")
		}
		return model.Item{}, classify(op, err)
	}
	it.OriginalPrice = &cost
	if createdBy != nil {
		it.CreatedBy = *createdBy
	}
	return it, nil
}

// CreateItem inserts the item and fills in its id.
func (pdb *Store) CreateItem(ctx context.Context, it *model.Item) error {
	const op = "store.CreateItem"
	b := pdb.sb.Insert("items").
		Columns("name", "original_price", "retail_price", "wholesale_price", "category_id", "stock_quantity", "created_by").
		Values(it.Name, costOf(it), it.RetailPrice, it.WholesalePrice, it.CategoryID, it.StockQuantity, nullID(it.CreatedBy))

	id, err := pdb.dialect.insertID(ctx, pdb.db, b)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperr.WrapKind(op, apperr.Reference, "Invalid category ID", err)
		}
		return classify(op, err)
	}
	it.ItemID = id
	return nil
}

func (pdb *Store) UpdateItem(ctx context.Context, itemID int64, it model.Item) error {
	const op = "store.UpdateItem"
	b := pdb.sb.Update("items").
		Set("name", it.Name).
		Set("original_price", costOf(&it)).
		Set("retail_price", it.RetailPrice).
		Set("wholesale_price", it.WholesalePrice).
		Set("category_id", it.CategoryID).
		Set("stock_quantity", it.StockQuantity).
		Where(sq.Eq{"id": itemID})

	affected, err := exec(ctx, pdb.db, b)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperr.WrapKind(op, apperr.Reference, "Invalid category ID", err)
		}
		return classify(op, err)
	}
	if affected == 0 {
		return notFound(op, "Item not found")
	}
	return nil
}

// DeleteItem removes an item that no order line references.
func (pdb *Store) DeleteItem(ctx context.Context, itemID int64) error {
	const op = "store.DeleteItem"
	return pdb.InTx(ctx, func(tx *Tx) error {
		var refs int
		b := tx.sb.Select("COUNT(*)").From("order_items").Where(sq.Eq{"item_id": itemID})
		if err := queryRow(ctx, tx.tx, b, &refs); err != nil {
			return classify(op, err)
		}
		if refs > 0 {
			return apperr.Ef(op, apperr.Reference, "Item %d is referenced by %d order line(s)", itemID, refs)
		}

		affected, err := exec(ctx, tx.tx, tx.sb.Delete("items").Where(sq.Eq{"id": itemID}))
		if err != nil {
			return classify(op, err)
		}
		if affected == 0 {
			return notFound(op, "Item not found")
		}
		return nil
	})
}

func costOf(it *model.Item) decimal.Decimal {
	if it.OriginalPrice == nil {
		return decimal.Zero
	}
	return *it.OriginalPrice
}
