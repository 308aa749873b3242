// Package store is the SQL access layer: the item catalog, categories,
// users, the order ledger and the report queries. One Store wraps the
// process-wide connection pool and is shared by every request.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/sirupsen/logrus"

	"github.com/cupoftea4/pos-mysql/internal/apperr"
	"github.com/cupoftea4/pos-mysql/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db      *sql.DB
	dialect Dialect
	sb      sq.StatementBuilderType
	log     logrus.FieldLogger
}

// PoolOptions sizes the connection pool.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to the database named by driver and dsn.
func Open(ctx context.Context, driver, dsn string, pool PoolOptions, log logrus.FieldLogger) (*Store, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(dialect.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name, err)
	}
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.Name, err)
	}
	return NewStore(db, dialect, log), nil
}

func NewStore(db *sql.DB, dialect Dialect, log logrus.FieldLogger) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		sb:      dialect.builder(),
		log:     log,
	}
}

func (pdb *Store) Dialect() Dialect { return pdb.dialect }

func (pdb *Store) Ping(ctx context.Context) error {
	return classify("store.Ping", pdb.db.PingContext(ctx))
}

func (pdb *Store) Close() error {
	return pdb.db.Close()
}

// InTx runs fn inside one database transaction. The transaction commits
// when fn returns nil and rolls back otherwise.
func (pdb *Store) InTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := pdb.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("store.InTx", err)
	}

	if err := fn(&Tx{tx: tx, dialect: pdb.dialect, sb: pdb.sb}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			pdb.log.WithError(rbErr).Warn("rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify("store.InTx", err)
	}
	return nil
}

// queryRow builds b and scans the single result row into dest.
func queryRow(ctx context.Context, q querier, b sq.Sqlizer, dest ...any) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	return q.QueryRowContext(ctx, query, args...).Scan(dest...)
}

// exec builds b, runs it and returns the number of affected rows.
func exec(ctx context.Context, q querier, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func query(ctx context.Context, q querier, b sq.Sqlizer) (*sql.Rows, error) {
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	return q.QueryContext(ctx, sqlStr, args...)
}

// likePattern builds a case-insensitive substring pattern for LOWER(col) LIKE ?.
func likePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(search)) + "%"
}

func limitOffset(b sq.SelectBuilder, page model.Page) sq.SelectBuilder {
	page = page.Normalize()
	return b.Limit(uint64(page.Limit)).Offset(uint64(page.Offset()))
}

func notFound(op, msg string) error {
	return apperr.E(op, apperr.NotFound, msg)
}

// nullID stores an unset (zero) reference as NULL.
func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
