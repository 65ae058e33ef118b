package database

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Driver names as registered with database/sql.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// MySQL server error numbers we classify.
const (
	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// Dialect hides the few statements that differ between MySQL and sqlite.
type Dialect struct {
	Driver string
}

// DialectOf returns the dialect for a driver name as reported by sqlx.DB.DriverName.
func DialectOf(driver string) Dialect { return Dialect{Driver: driver} }

// ForUpdate returns the locking clause appended to SELECTs that must hold
// row locks until commit. sqlite has no row locks; its immediate
// transactions already hold the database write lock.
func (d Dialect) ForUpdate() string {
	if d.Driver == DriverSQLite {
		return ""
	}
	return " FOR UPDATE"
}

// InsertIgnore returns the INSERT prefix that turns a unique-key collision
// into a zero-row insert instead of an error.
func (d Dialect) InsertIgnore() string {
	if d.Driver == DriverSQLite {
		return "INSERT OR IGNORE"
	}
	return "INSERT IGNORE"
}

// TxOptions returns the isolation used for every core transaction. MySQL
// runs READ COMMITTED so each statement sees the latest committed ledger
// rows once the account locks are held. sqlite is always serializable.
func (d Dialect) TxOptions() *sql.TxOptions {
	if d.Driver == DriverSQLite {
		return nil
	}
	return &sql.TxOptions{Isolation: sql.LevelReadCommitted}
}

// IsDuplicate reports whether err is a unique-constraint violation.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY ||
			strings.Contains(se.Error(), "UNIQUE constraint failed")
	}
	return strings.Contains(err.Error(), "1062") || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsConflict reports whether err is a commit/lock failure that the caller
// may resolve by retrying the whole operation.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDeadlock || me.Number == mysqlLockWaitTimeout
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		primary := se.Code() & 0xff
		return primary == sqlite3.SQLITE_BUSY || primary == sqlite3.SQLITE_LOCKED
	}
	return false
}
