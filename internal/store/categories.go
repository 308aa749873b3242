package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/cupoftea4/pos-mysql/internal/model"
)

func (pdb *Store) ListCategories(ctx context.Context, search string, page model.Page) ([]model.Category, int, error) {
	const op = "store.ListCategories"
	where := sq.Expr("LOWER(name) LIKE ?", likePattern(search))

	b := pdb.sb.Select("id", "name", "created_by").From("categories").Where(where).OrderBy("id DESC")
	rows, err := query(ctx, pdb.db, limitOffset(b, page))
	if err != nil {
		return nil, 0, classify(op, err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, 0, classify(op, err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, classify(op, err)
	}

	var total int
	if err := queryRow(ctx, pdb.db, pdb.sb.Select("COUNT(*)").From("categories").Where(where), &total); err != nil {
		return nil, 0, classify(op, err)
	}
	return categories, total, nil
}

func (pdb *Store) GetCategory(ctx context.Context, categoryID int64) (model.Category, error) {
	const op = "store.GetCategory"
	b := pdb.sb.Select("id", "name", "created_by").From("categories").Where(sq.Eq{"id": categoryID})
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return model.Category{}, classify(op, err)
	}
	c, err := scanCategory(pdb.db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		if isNoRows(err) {
			return model.Category{}, notFound(op, "Category not found")
		}
		return model.Category{}, classify(op, err)
	}
	return c, nil
}

func (pdb *Store) CreateCategory(ctx context.Context, c *model.Category) error {
	const op = "store.CreateCategory"
	b := pdb.sb.Insert("categories").Columns("name", "created_by").Values(c.Name, nullID(c.CreatedBy))
	id, err := pdb.dialect.insertID(ctx, pdb.db, b)
	if err != nil {
		return classify(op, err)
	}
	c.CategoryID = id
	return nil
}

func (pdb *Store) UpdateCategory(ctx context.Context, categoryID int64, name string) error {
	const op = "store.UpdateCategory"
	affected, err := exec(ctx, pdb.db, pdb.sb.Update("categories").Set("name", name).Where(sq.Eq{"id": categoryID}))
	if err != nil {
		return classify(op, err)
	}
	if affected == 0 {
		return notFound(op, "Category not found")
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCategory(s scanner) (model.Category, error) {
	var c model.Category
	var createdBy *int64
	if err := s.Scan(&c.CategoryID, &c.Name, &createdBy); err != nil {
		return model.Category{}, err
	}
	if createdBy != nil {
		c.CreatedBy = *createdBy
	}
	return c, nil
}
