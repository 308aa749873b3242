// Package catalog serves items and categories: input validation, the
// role-based projection of the original cost, and pagination.
package catalog

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cupoftea4/pos-mysql/internal/apperr"
	"github.com/cupoftea4/pos-mysql/internal/model"
)

// Store is the catalog persistence the service needs.
type Store interface {
	ListItems(ctx context.Context, search string, page model.Page, includeOriginalPrice bool) ([]model.Item, int, error)
	GetItem(ctx context.Context, itemID int64) (model.Item, error)
	CreateItem(ctx context.Context, it *model.Item) error
	UpdateItem(ctx context.Context, itemID int64, it model.Item) error
	DeleteItem(ctx context.Context, itemID int64) error

	ListCategories(ctx context.Context, search string, page model.Page) ([]model.Category, int, error)
	GetCategory(ctx context.Context, categoryID int64) (model.Category, error)
	CreateCategory(ctx context.Context, c *model.Category) error
	UpdateCategory(ctx context.Context, categoryID int64, name string) error
}

type Service struct {
	store Store
	log   logrus.FieldLogger
}

func NewService(store Store, log logrus.FieldLogger) *Service {
	return &Service{store: store, log: log}
}

type ItemPage struct {
	Items       []model.Item `json:"items"`
	TotalPages  int          `json:"totalPages"`
	CurrentPage int          `json:"currentPage"`
}

type CategoryPage struct {
	Categories  []model.Category `json:"categories"`
	TotalPages  int              `json:"totalPages"`
	CurrentPage int              `json:"currentPage"`
}

// ListItems returns one page of items matching search. Only administrators
// see the original cost.
func (s *Service) ListItems(ctx context.Context, who model.Identity, search string, page model.Page) (ItemPage, error) {
	page = page.Normalize()
	items, total, err := s.store.ListItems(ctx, strings.TrimSpace(search), page, who.IsAdmin())
	if err != nil {
		return ItemPage{}, apperr.Wrap("catalog.ListItems", err)
	}
	return ItemPage{Items: items, TotalPages: page.TotalPages(total), CurrentPage: page.Number}, nil
}

func (s *Service) GetItem(ctx context.Context, who model.Identity, itemID int64) (model.Item, error) {
	it, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return model.Item{}, apperr.Wrap("catalog.GetItem", err)
	}
	if !who.IsAdmin() {
		it = it.WithoutOriginalPrice()
	}
	return it, nil
}

func (s *Service) CreateItem(ctx context.Context, who model.Identity, in model.ItemInput) (model.Item, error) {
	const op = "catalog.CreateItem"
	it, err := itemFromInput(op, in)
	if err != nil {
		return model.Item{}, err
	}
	it.CreatedBy = who.UserID
	if err := s.store.CreateItem(ctx, &it); err != nil {
		return model.Item{}, apperr.Wrap(op, err)
	}
	s.log.WithFields(logrus.Fields{"item_id": it.ItemID, "user_id": who.UserID}).Info("item created")
	return it, nil
}

func (s *Service) UpdateItem(ctx context.Context, itemID int64, in model.ItemInput) (model.Item, error) {
	const op = "catalog.UpdateItem"
	it, err := itemFromInput(op, in)
	if err != nil {
		return model.Item{}, err
	}
	if err := s.store.UpdateItem(ctx, itemID, it); err != nil {
		return model.Item{}, apperr.Wrap(op, err)
	}
	it.ItemID = itemID
	return it, nil
}

// DeleteItem removes an item that no order line references.
func (s *Service) DeleteItem(ctx context.Context, itemID int64) error {
	if err := s.store.DeleteItem(ctx, itemID); err != nil {
		return apperr.Wrap("catalog.DeleteItem", err)
	}
	s.log.WithField("item_id", itemID).Info("item deleted")
	return nil
}

func (s *Service) ListCategories(ctx context.Context, search string, page model.Page) (CategoryPage, error) {
	page = page.Normalize()
	cats, total, err := s.store.ListCategories(ctx, strings.TrimSpace(search), page)
	if err != nil {
		return CategoryPage{}, apperr.Wrap("catalog.ListCategories", err)
	}
	return CategoryPage{Categories: cats, TotalPages: page.TotalPages(total), CurrentPage: page.Number}, nil
}

func (s *Service) GetCategory(ctx context.Context, categoryID int64) (model.Category, error) {
	c, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		return model.Category{}, apperr.Wrap("catalog.GetCategory", err)
	}
	return c, nil
}

func (s *Service) CreateCategory(ctx context.Context, who model.Identity, name string) (model.Category, error) {
	const op = "catalog.CreateCategory"
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Category{}, apperr.E(op, apperr.Validation, "Category name is required")
	}
	c := model.Category{Name: name, CreatedBy: who.UserID}
	if err := s.store.CreateCategory(ctx, &c); err != nil {
		return model.Category{}, apperr.Wrap(op, err)
	}
	return c, nil
}

func (s *Service) UpdateCategory(ctx context.Context, categoryID int64, name string) error {
	const op = "catalog.UpdateCategory"
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.E(op, apperr.Validation, "Category name is required")
	}
	if err := s.store.UpdateCategory(ctx, categoryID, name); err != nil {
		return apperr.Wrap(op, err)
	}
	return nil
}

// itemFromInput requires every field to be present. Zero prices and zero
// stock are accepted, negative values are not.
func itemFromInput(op string, in model.ItemInput) (model.Item, error) {
	if in.Name == nil || in.OriginalPrice == nil || in.RetailPrice == nil ||
		in.WholesalePrice == nil || in.CategoryID == nil || in.StockQuantity == nil {
		return model.Item{}, apperr.E(op, apperr.Validation, "All fields are required")
	}
	name := strings.TrimSpace(*in.Name)
	if name == "" {
		return model.Item{}, apperr.E(op, apperr.Validation, "All fields are required")
	}
	if in.OriginalPrice.IsNegative() || in.RetailPrice.IsNegative() || in.WholesalePrice.IsNegative() {
		return model.Item{}, apperr.E(op, apperr.Validation, "Prices must not be negative")
	}
	if *in.StockQuantity < 0 {
		return model.Item{}, apperr.E(op, apperr.Validation, "Stock quantity must not be negative")
	}
	if *in.CategoryID <= 0 {
		return model.Item{}, apperr.E(op, apperr.Reference, "Invalid category ID")
	}

	cost := *in.OriginalPrice
	return model.Item{
		Name:           name,
		OriginalPrice:  &cost,
		RetailPrice:    *in.RetailPrice,
		WholesalePrice: *in.WholesalePrice,
		CategoryID:     *in.CategoryID,
		StockQuantity:  *in.StockQuantity,
	}, nil
}
