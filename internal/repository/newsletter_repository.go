package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/event-ticketing/internal/model"
)

type NewsletterRepo struct{ db *sql.DB }

func NewNewsletterRepo(db *sql.DB) *NewsletterRepo { return &NewsletterRepo{db: db} }

// Subscribe stores email and reports whether it was new.  Subscribing twice
// is not an error.
func (r *NewsletterRepo) Subscribe(ctx context.Context, email, source string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var src any
	if s := strings.TrimSpace(source); s != "" {
		src = s
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO newsletter_subscribers (email, source) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE id = id`, email, src)
	if err != nil {
		return false, err
	}
	// MySQL reports 1 for an insert and 0 when the duplicate row is untouched.
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// List returns subscribers newest first.
func (r *NewsletterRepo) List(ctx context.Context) ([]model.NewsletterSubscriber, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, email, COALESCE(source, ''), created_at FROM newsletter_subscribers ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.NewsletterSubscriber, 0)
	for rows.Next() {
		var s model.NewsletterSubscriber
		if err := rows.Scan(&s.ID, &s.Email, &s.Source, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
