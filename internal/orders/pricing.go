package orders

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cupoftea4/pos-mysql/internal/apperr"
	"github.com/cupoftea4/pos-mysql/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Subtotal sums price times quantity over lines.
func Subtotal(lines []model.OrderLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}

// ApplyDiscount reduces subtotal by the discount. The result is rounded to
// two places and never below zero.
func ApplyDiscount(subtotal decimal.Decimal, mode model.DiscountMode, value decimal.Decimal) decimal.Decimal {
	total := subtotal
	switch mode {
	case model.DiscountPercentage:
		total = subtotal.Sub(subtotal.Mul(value).Div(hundred))
	case model.DiscountAmount:
		total = subtotal.Sub(value)
	}
	if total.IsNegative() {
		return decimal.Zero
	}
	return total.Round(2)
}

// DiscountValue is the optional discount of an order request. It decodes
// from a JSON number or a numeric string; null and "" leave it unset.
// Text that is not a number is kept and rejected only when a discount
// mode needs the value.
type DiscountValue struct {
	Value decimal.Decimal
	Set   bool
	text  string
}

// Discount returns a set DiscountValue.
func Discount(v decimal.Decimal) DiscountValue {
	return DiscountValue{Value: v, Set: true}
}

func (d *DiscountValue) UnmarshalJSON(b []byte) error {
	*d = DiscountValue{}
	raw := bytes.TrimSpace(b)
	if bytes.Equal(raw, []byte("null")) {
		return nil
	}
	s := string(raw)
	if len(raw) > 0 && raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		d.text = s
		return nil
	}
	d.Value, d.Set = v, true
	return nil
}

func (d DiscountValue) MarshalJSON() ([]byte, error) {
	if !d.Set {
		return []byte("null"), nil
	}
	return d.Value.MarshalJSON()
}

// checkDiscount validates the discount value against its mode.
func checkDiscount(op string, mode model.DiscountMode, d DiscountValue) (decimal.Decimal, error) {
	if mode == model.DiscountNone {
		return decimal.Zero, nil
	}
	if d.text != "" {
		return decimal.Zero, apperr.Ef(op, apperr.Validation, "Discount value %q is not a number", d.text)
	}
	if !d.Set {
		return decimal.Zero, apperr.E(op, apperr.Validation, "Discount value is required")
	}
	value := d.Value
	if value.IsNegative() {
		return decimal.Zero, apperr.E(op, apperr.Validation, "Discount value must not be negative")
	}
	if mode == model.DiscountPercentage && value.GreaterThan(hundred) {
		return decimal.Zero, apperr.E(op, apperr.Validation, "Percentage discount must not exceed 100")
	}
	return value, nil
}
