// Package repository holds the MySQL and in-memory stores for users and
// sessions.  Store failures are translated here into apperr kinds so that
// callers never see raw driver errors such as constraint violations.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/hybrid-auth/internal/apperr"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// duplicateKind inspects err for a unique-key violation and reports which
// user column collided.  ok is false for any other error.
func duplicateKind(err error) (kind error, ok bool) {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != mysqlDuplicateEntry {
		return nil, false
	}
	msg := strings.ToLower(me.Message)
	switch {
	case strings.Contains(msg, "username"):
		return apperr.ErrDuplicateUsername, true
	case strings.Contains(msg, "email"):
		return apperr.ErrDuplicateEmail, true
	}
	return nil, false
}
