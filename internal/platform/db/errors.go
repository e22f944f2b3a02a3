package db

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	// mysqlOutOfRange is ER_WARN_DATA_OUT_OF_RANGE.
	mysqlOutOfRange = 1264
	// pgNumericOutOfRange is SQLSTATE numeric_value_out_of_range.
	pgNumericOutOfRange = "22003"
)

// IsValueOutOfRange reports whether err is a numeric overflow rejected by
// MySQL or PostgreSQL.
func IsValueOutOfRange(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlOutOfRange
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgNumericOutOfRange
	}
	return false
}
