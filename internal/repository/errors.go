// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow handlers to translate storage
// outcomes into HTTP responses without inspecting driver errors.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an update cannot be applied because of the
// current state of the row, e.g. re-opening a cancelled order.  Handlers
// should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned when an email is already registered.
var ErrEmailExists = errors.New("email already exists")

// ErrSoldOut is returned by checkout when a ticket type has fewer tickets
// left than requested.
var ErrSoldOut = errors.New("sold out")

// ErrUnknownTicketType is returned by checkout for missing or inactive
// ticket types.
var ErrUnknownTicketType = errors.New("unknown ticket type")

// duplicateKey reports whether err is a MySQL unique violation (1062) and,
// when key is non-empty, whether it concerns that index.
func duplicateKey(err error, key string) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != 1062 {
		return false
	}
	return key == "" || strings.Contains(me.Message, key)
}

// placeholders returns "?,?,?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
