package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// CommissionRepo reads affiliate commissions joined with their orders so
// callers can classify each one as earned, pending or void.
type CommissionRepo struct{ db *sql.DB }

func NewCommissionRepo(db *sql.DB) *CommissionRepo { return &CommissionRepo{db: db} }

const commissionSelect = `SELECT ac.id, ac.affiliate_id, ac.order_id, o.order_number, ac.rate, ac.amount,
       o.total_amount, o.status, o.payment_status, ac.created_at
FROM affiliate_commissions ac
JOIN orders o ON o.id = ac.order_id`

func scanCommissions(rows *sql.Rows) ([]model.AffiliateCommission, error) {
	defer rows.Close()
	out := make([]model.AffiliateCommission, 0)
	for rows.Next() {
		var c model.AffiliateCommission
		if err := rows.Scan(&c.ID, &c.AffiliateID, &c.OrderID, &c.OrderNumber, &c.Rate, &c.Amount,
			&c.OrderTotal, &c.OrderStatus, &c.PaymentStatus, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListByAffiliate returns one affiliate's commissions, newest first.
func (r *CommissionRepo) ListByAffiliate(ctx context.Context, affiliateID uint64) ([]model.AffiliateCommission, error) {
	rows, err := r.db.QueryContext(ctx, commissionSelect+` WHERE ac.affiliate_id = ? ORDER BY ac.created_at DESC, ac.id DESC`, affiliateID)
	if err != nil {
		return nil, err
	}
	return scanCommissions(rows)
}

// ListAll returns every commission; the admin affiliate list groups them.
func (r *CommissionRepo) ListAll(ctx context.Context) ([]model.AffiliateCommission, error) {
	rows, err := r.db.QueryContext(ctx, commissionSelect+` ORDER BY ac.affiliate_id, ac.id`)
	if err != nil {
		return nil, err
	}
	return scanCommissions(rows)
}

// GetByOrder returns the commission attached to an order or ErrNotFound.
func (r *CommissionRepo) GetByOrder(ctx context.Context, orderID uint64) (*model.AffiliateCommission, error) {
	rows, err := r.db.QueryContext(ctx, commissionSelect+` WHERE ac.order_id = ? LIMIT 1`, orderID)
	if err != nil {
		return nil, err
	}
	list, err := scanCommissions(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}
