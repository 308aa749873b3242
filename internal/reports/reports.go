// Package reports aggregates sales over calendar months and years.
package reports

import (
	"context"
	"strings"
	"time"

	"github.com/cupoftea4/pos-mysql/internal/apperr"
	"github.com/cupoftea4/pos-mysql/internal/model"
)

type Store interface {
	SalesByBucket(ctx context.Context, period model.Period, since time.Time) ([]model.SalesBucket, error)
	SalesByItem(ctx context.Context, from, to time.Time) ([]model.ItemSales, error)
}

type Aggregator struct {
	store Store
	now   func() time.Time
}

type Option func(*Aggregator)

// WithClock replaces the wall clock that anchors the trailing window.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func NewAggregator(store Store, opts ...Option) *Aggregator {
	a := &Aggregator{store: store, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Details is the per-item breakdown of one bucket.
type Details struct {
	ItemSales []model.ItemSales `json:"itemSales"`
}

// SalesReport buckets the non-refunded orders of the trailing month
// (monthly) or year (yearly), most recent bucket first.
func (a *Aggregator) SalesReport(ctx context.Context, period string) ([]model.SalesBucket, error) {
	const op = "reports.SalesReport"
	p, err := model.ParsePeriod(period)
	if err != nil {
		return nil, apperr.WrapKind(op, apperr.Validation, "Invalid period", err)
	}

	now := a.now().UTC()
	since := now.AddDate(0, -1, 0)
	if p == model.PeriodYearly {
		since = now.AddDate(-1, 0, 0)
	}

	buckets, err := a.store.SalesByBucket(ctx, p, since)
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}
	return buckets, nil
}

// SalesDetails breaks one bucket down per item. date is the bucket label:
// YYYY-MM for monthly, YYYY for yearly.
func (a *Aggregator) SalesDetails(ctx context.Context, period, date string) (Details, error) {
	const op = "reports.SalesDetails"
	p, err := model.ParsePeriod(period)
	if err != nil {
		return Details{}, apperr.WrapKind(op, apperr.Validation, "Invalid period", err)
	}
	from, to, err := BucketRange(p, date)
	if err != nil {
		return Details{}, apperr.WrapKind(op, apperr.Validation, "Invalid date", err)
	}

	sales, err := a.store.SalesByItem(ctx, from, to)
	if err != nil {
		return Details{}, apperr.Wrap(op, err)
	}
	return Details{ItemSales: sales}, nil
}

// BucketRange returns the half-open UTC interval [from, to) covered by a
// bucket label.
func BucketRange(p model.Period, date string) (time.Time, time.Time, error) {
	layout := "2006-01"
	if p == model.PeriodYearly {
		layout = "2006"
	}
	from, err := time.ParseInLocation(layout, strings.TrimSpace(date), time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if p == model.PeriodYearly {
		return from, from.AddDate(1, 0, 0), nil
	}
	return from, from.AddDate(0, 1, 0), nil
}
