package repository

import (
	"context"
	"database/sql"
	"strings"
)

// upsertUserTx records a buyer by email and returns the user ID.  Name and
// phone are refreshed from the latest purchase.
func upsertUserTx(ctx context.Context, tx *sql.Tx, name, email, phone string) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var ph any
	if p := strings.TrimSpace(phone); p != "" {
		ph = p
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO users (name, email, phone) VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE name = VALUES(name), phone = COALESCE(VALUES(phone), phone), id = LAST_INSERT_ID(id)`,
		strings.TrimSpace(name), email, ph)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}
