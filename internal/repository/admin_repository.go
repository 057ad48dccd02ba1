package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// AdminRepo loads dashboard operators for login and session checks.
type AdminRepo struct{ db *sql.DB }

func NewAdminRepo(db *sql.DB) *AdminRepo { return &AdminRepo{db: db} }

const adminColumns = `id, name, email, password_hash, created_at`

func scanAdmin(row *sql.Row) (*model.Admin, error) {
	var a model.Admin
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// GetByEmail fetches an admin by normalized email.
func (r *AdminRepo) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanAdmin(r.db.QueryRowContext(ctx,
		"SELECT "+adminColumns+" FROM admins WHERE email = ? LIMIT 1", email))
}

// GetByID fetches an admin by id.
func (r *AdminRepo) GetByID(ctx context.Context, id uint64) (*model.Admin, error) {
	return scanAdmin(r.db.QueryRowContext(ctx,
		"SELECT "+adminColumns+" FROM admins WHERE id = ? LIMIT 1", id))
}

// Upsert creates an admin or resets the name and password of an existing
// one.  Only the seed command calls it.
func (r *AdminRepo) Upsert(ctx context.Context, name, email, passwordHash string) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO admins (name, email, password_hash) VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE name = VALUES(name), password_hash = VALUES(password_hash), id = LAST_INSERT_ID(id)`,
		name, email, passwordHash)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}
