package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// TicketTypeRepo serves the public catalog and the seed command.
type TicketTypeRepo struct{ db *sql.DB }

func NewTicketTypeRepo(db *sql.DB) *TicketTypeRepo { return &TicketTypeRepo{db: db} }

// soldExpr counts tickets that still hold a place: active items on orders
// that are not cancelled.
const soldExpr = `COALESCE(SUM(CASE WHEN o.status <> 'CANCELLED' AND oi.is_active = 1 THEN oi.quantity END), 0)`

// ListActive returns purchasable ticket types in display order, each with
// the number of tickets sold so far.
func (r *TicketTypeRepo) ListActive(ctx context.Context) ([]model.TicketType, error) {
	q := `SELECT t.id, t.name, COALESCE(t.description, ''), t.price, t.capacity, t.is_active, t.sort_order,
	             ` + soldExpr + `
	      FROM ticket_types t
	      LEFT JOIN order_items oi ON oi.ticket_type_id = t.id
	      LEFT JOIN orders o ON o.id = oi.order_id
	      WHERE t.is_active = 1
	      GROUP BY t.id
	      ORDER BY t.sort_order, t.id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.TicketType, 0)
	for rows.Next() {
		var (
			t        model.TicketType
			capacity sql.NullInt64
			sold     int64
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Price, &capacity, &t.IsActive, &t.SortOrder, &sold); err != nil {
			return nil, err
		}
		if capacity.Valid {
			c := uint32(capacity.Int64)
			t.Capacity = &c
		}
		t.Sold = uint32(sold)
		out = append(out, t)
	}
	return out, rows.Err()
}

// Upsert inserts a ticket type or updates the existing one with the same
// name.  It is used by cmd/seed so catalog files can be re-applied.
func (r *TicketTypeRepo) Upsert(ctx context.Context, t *model.TicketType) error {
	var capacity any
	if t.Capacity != nil {
		capacity = *t.Capacity
	}
	const q = `INSERT INTO ticket_types (name, description, price, capacity, is_active, sort_order)
	           VALUES (?, ?, ?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE description = VALUES(description), price = VALUES(price),
	               capacity = VALUES(capacity), is_active = VALUES(is_active),
	               sort_order = VALUES(sort_order), id = LAST_INSERT_ID(id)`
	res, err := r.db.ExecContext(ctx, q, t.Name, t.Description, t.Price, capacity, t.IsActive, t.SortOrder)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}
