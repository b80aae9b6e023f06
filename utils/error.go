package utils

import (
	"errors"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

var (
	ErrorRecordNotFound    = errors.New("record not found")
	ErrorInsufficientStock = errors.New("insufficient stock")
	ErrorQuantityMismatch  = errors.New("received quantity does not match declared total")
	ErrorUnauthorized      = errors.New("unauthorized")
)

// IsDuplicateKeyErr reports whether err is a MySQL duplicate-entry error
// (1062). Unique-column inserts race against the pre-insert existence
// check, so callers map this to a friendly message instead of leaking
// the driver error.
func IsDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
