package model

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

type Item struct {
	ItemID         int64            `json:"id"`
	Name           string           `json:"name"`
	OriginalPrice  *decimal.Decimal `json:"original_price,omitempty"`
	RetailPrice    decimal.Decimal  `json:"retail_price"`
	WholesalePrice decimal.Decimal  `json:"wholesale_price"`
	CategoryID     int64            `json:"category_id"`
	StockQuantity  int              `json:"stock_quantity"`
	CreatedBy      int64            `json:"created_by,omitempty"`
}

// PriceFor returns the unit price of the item at the given sell mode.
func (i Item) PriceFor(mode SellMode) decimal.Decimal {
	if mode == SellWholesale {
		return i.WholesalePrice
	}
	return i.RetailPrice
}

// WithoutOriginalPrice returns a copy of the item with the original cost
// removed.
func (i Item) WithoutOriginalPrice() Item {
	i.OriginalPrice = nil
	return i
}

// ItemInput carries the fields of an item create or update. Pointers
// distinguish an absent field from a present zero.
type ItemInput struct {
	Name           *string          `json:"name"`
	OriginalPrice  *decimal.Decimal `json:"original_price"`
	RetailPrice    *decimal.Decimal `json:"retail_price"`
	WholesalePrice *decimal.Decimal `json:"wholesale_price"`
	CategoryID     *int64           `json:"category_id"`
	StockQuantity  *int             `json:"stock_quantity"`
}

type Category struct {
	CategoryID int64  `json:"id"`
	Name       string `json:"name"`
	CreatedBy  int64  `json:"created_by,omitempty"`
}

type Order struct {
	OrderID        int64           `json:"id"`
	CreatedAt      time.Time       `json:"created_at"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	PaymentMethod  PaymentMethod   `json:"payment_method"`
	SellMode       SellMode        `json:"sell_mode"`
	IsRefunded     bool            `json:"is_refunded"`
	CreatedBy      int64           `json:"-"`
	CreatedByEmail string          `json:"created_by_email,omitempty"`
	Lines          []OrderLine     `json:"items"`
}

// OrderLine is one immutable line of an order. Price is the unit price
// captured when the order was created.
type OrderLine struct {
	OrderID  int64           `json:"-"`
	ItemID   int64           `json:"id"`
	Name     string          `json:"name,omitempty"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Subtotal is the line price times the quantity.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type User struct {
	UserID   int64  `json:"id"`
	Email    string `json:"email"`
	Password string `json:"-"` // bcrypt hash
	Role     Role   `json:"role"`
}

// Identity is the resolved caller of a request.
type Identity struct {
	UserID int64
	Email  string
	Role   Role
}

// IsAdmin reports whether the caller holds the administrator role.
func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin
}

// SalesBucket is one row of a sales report.
type SalesBucket struct {
	Bucket     string          `json:"bucket"`
	TotalSales decimal.Decimal `json:"total_sales"`
	OrderCount int             `json:"order_count"`
}

// ItemSales aggregates the sales of one item within a bucket.
type ItemSales struct {
	ItemID        int64           `json:"item_id"`
	ItemName      string          `json:"item_name"`
	OrderCount    int             `json:"order_count"`
	TotalQuantity int             `json:"total_quantity"`
	TotalSales    decimal.Decimal `json:"total_sales"`
}

// Page is a pagination request. Page numbers start at 1.
type Page struct {
	Number int
	Limit  int
}

// Offset returns the row offset of the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// TotalPages returns the number of pages needed for total rows.
func (p Page) TotalPages(total int) int {
	if p.Limit <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
	// MaxPageNumber keeps Offset within 32 bits.
	MaxPageNumber = math.MaxInt32 / MaxPageLimit
)

// Normalize applies the default page (1) and limit (10) to unset values and
// caps both.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Number > MaxPageNumber {
		p.Number = MaxPageNumber
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}
