// Package repository contains data access logic separated from HTTP
// handlers and services.  Each repository wraps a *sql.DB and joins the
// transaction carried by the context when there is one.
//
// Lookups return model.ErrNotFound for missing rows and model.ErrConflict
// for uniqueness violations.  Everything else is the driver's error,
// which callers can classify with IsRetryable.
package repository

import (
	"database/sql/driver"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers.
const (
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
	errDuplicateEntry  = 1062
)

// IsRetryable reports whether err is a transient serialization failure
// after which the whole transaction can be run again.
func IsRetryable(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == errDeadlock || me.Number == errLockWaitTimeout
	}
	return errors.Is(err, driver.ErrBadConn)
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDuplicateEntry
}
