package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/cupoftea4/pos-mysql/internal/model"
)

// Dialect captures the SQL differences between the supported databases.
type Dialect struct {
	Name        string
	driverName  string
	placeholder sq.PlaceholderFormat
}

var (
	MySQL    = Dialect{Name: "mysql", driverName: "mysql", placeholder: sq.Question}
	Postgres = Dialect{Name: "postgres", driverName: "postgres", placeholder: sq.Dollar}
)

// DialectFor returns the dialect for a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "mysql", "":
		return MySQL, nil
	case "postgres":
		return Postgres, nil
	}
	return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
}

func (d Dialect) builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(d.placeholder)
}

// bucketExpr formats a timestamp column as a reporting bucket label:
// YYYY-MM for monthly, YYYY for yearly.
func (d Dialect) bucketExpr(col string, period model.Period) string {
	if d.Name == "postgres" {
		if period == model.PeriodYearly {
			return fmt.Sprintf("to_char(%s, 'YYYY')", col)
		}
		return fmt.Sprintf("to_char(%s, 'YYYY-MM')", col)
	}
	if period == model.PeriodYearly {
		return fmt.Sprintf("DATE_FORMAT(%s, '%%Y')", col)
	}
	return fmt.Sprintf("DATE_FORMAT(%s, '%%Y-%%m')", col)
}

// textExpr casts a column to text so it can be matched with LIKE.
func (d Dialect) textExpr(col string) string {
	if d.Name == "postgres" {
		return fmt.Sprintf("CAST(%s AS TEXT)", col)
	}
	return fmt.Sprintf("CAST(%s AS CHAR)", col)
}

// insertID runs an INSERT and returns the generated id.
func (d Dialect) insertID(ctx context.Context, q querier, b sq.InsertBuilder) (int64, error) {
	if d.Name == "postgres" {
		query, args, err := b.Suffix("RETURNING id").ToSql()
		if err != nil {
			return 0, err
		}
		var id int64
		err = q.QueryRowContext(ctx, query, args...).Scan(&id)
		return id, err
	}

	query, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}
