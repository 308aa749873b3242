package store

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/cupoftea4/pos-mysql/internal/apperr"
)

const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
)

// classify turns a driver error into a classified application error.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apperr.WrapKind(op, apperr.NotFound, "Not found", err)
	case isForeignKeyViolation(err):
		return apperr.WrapKind(op, apperr.Reference, "Invalid reference", err)
	case isUniqueViolation(err):
		return apperr.WrapKind(op, apperr.Conflict, "Already exists", err)
	case isTransientError(err):
		return apperr.WrapKind(op, apperr.Unavailable, "Database temporarily unavailable", err)
	}
	return apperr.Wrap(op, err)
}

func isForeignKeyViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1216, // ER_NO_REFERENCED_ROW
			1217, // ER_ROW_IS_REFERENCED
			1451, // ER_ROW_IS_REFERENCED_2
			1452: // ER_NO_REFERENCED_ROW_2
			return true
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pqForeignKeyViolation
	}
	return false
}

func isUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062 // ER_DUP_ENTRY
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pqUniqueViolation
	}
	return false
}

// isTransientError checks if the error is a transient MySQL error.
func isTransientError(err error) bool {
	if errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var driverErr *mysql.MySQLError
	if errors.As(err, &driverErr) {
		switch driverErr.Number {
		case 1040, // ER_CON_COUNT_ERROR: Too many connections
			1205, // ER_LOCK_WAIT_TIMEOUT: Lock wait timeout exceeded
			1213, // ER_LOCK_DEADLOCK: Deadlock found
			2003, // CR_CONN_HOST_ERROR: Can't connect to MySQL server on 'host'
			2006, // CR_SERVER_GONE_ERROR: MySQL server has gone away
			2013: // CR_SERVER_LOST: Lost connection to MySQL server during query
			return true
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// connection exceptions, deadlock, serialization failure
		return pqErr.Code.Class() == "08" || pqErr.Code == "40P01" || pqErr.Code == "40001"
	}
	return false
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
