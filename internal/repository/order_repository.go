package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/utils"
)

// OrderRepo provides the checkout transaction and the admin order queries.
// Orders group one or more items; each item is an admission ticket that an
// admin can deactivate.  All timestamps are stored in UTC.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// DB exposes the handle for callers that need their own transaction.
func (r *OrderRepo) DB() *sql.DB { return r.db }

// LineItem is one requested ticket type in a checkout.
type LineItem struct {
	TicketTypeID uint64 `json:"ticket_type_id"`
	Quantity     uint32 `json:"quantity"`
}

// PlaceOrderInput carries the buyer details collected by the purchase form.
type PlaceOrderInput struct {
	Name         string
	Email        string
	Phone        string
	Items        []LineItem
	ReferralCode string
}

// OrderFilter narrows the admin order list.  Empty fields are ignored.
type OrderFilter struct {
	Search        string
	Status        model.OrderStatus
	PaymentStatus model.PaymentStatus
	PendingOnly   bool
	Limit         int
}

// StatusChange is the before/after pair returned by UpdateStatus so the
// caller can react to an order becoming settled.
type StatusChange struct {
	Before model.Order
	After  model.Order
}

// BecameSettled reports whether the update moved the order into PAID and
// CONFIRMED.
func (s StatusChange) BecameSettled() bool {
	return !s.Before.Settled() && s.After.Settled()
}

const orderColumns = `o.id, o.order_number, o.user_id, o.customer_name, o.customer_email, o.status,
       o.payment_status, o.total_amount, o.affiliate_id, o.referral_code, o.created_at, o.updated_at`

func scanOrder(row rowScanner) (model.Order, error) {
	var (
		o           model.Order
		affiliateID sql.NullInt64
		code        sql.NullString
	)
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.CustomerName, &o.CustomerEmail, &o.Status,
		&o.PaymentStatus, &o.TotalAmount, &affiliateID, &code, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return o, err
	}
	if affiliateID.Valid {
		id := uint64(affiliateID.Int64)
		o.AffiliateID = &id
	}
	if code.Valid {
		c := code.String
		o.ReferralCode = &c
	}
	o.Items = []model.OrderItem{}
	return o, nil
}

// Place runs the checkout: it locks the requested ticket types, checks
// capacity, records the buyer, attributes the referral code and inserts the
// order, its items and the affiliate commission in one transaction.  Prices
// always come from the database.  Unknown or inactive referral codes are
// ignored so a stale link never blocks a purchase.
func (r *OrderRepo) Place(ctx context.Context, in PlaceOrderInput) (*model.Order, error) {
	items := mergeLineItems(in.Items)
	if len(items) == 0 {
		return nil, ErrUnknownTicketType
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	types, err := lockTicketTypesTx(ctx, tx, items)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, it := range items {
		tt, ok := types[it.TicketTypeID]
		if !ok || !tt.IsActive {
			return nil, fmt.Errorf("%w: %d", ErrUnknownTicketType, it.TicketTypeID)
		}
		if left, limited := tt.Remaining(); limited && left < it.Quantity {
			return nil, fmt.Errorf("%w: %s", ErrSoldOut, tt.Name)
		}
		total = total.Add(tt.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	userID, err := upsertUserTx(ctx, tx, in.Name, in.Email, in.Phone)
	if err != nil {
		return nil, err
	}

	var affiliate *model.Affiliate
	if code := utils.NormalizeReferralCode(in.ReferralCode); code != "" {
		affiliate, err = activeByCodeTx(ctx, tx, code)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	var affiliateID, referral any
	if affiliate != nil {
		affiliateID = affiliate.ID
		referral = affiliate.ReferralCode
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (order_number, user_id, customer_name, customer_email, status, payment_status,
		                     total_amount, affiliate_id, referral_code)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		utils.NewOrderNumber(), userID, strings.TrimSpace(in.Name), strings.ToLower(strings.TrimSpace(in.Email)),
		model.OrderPending, model.PaymentPending, total, affiliateID, referral)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	orderID := uint64(id)

	query := `INSERT INTO order_items (order_id, ticket_type_id, ticket_type_name, quantity, unit_price, ticket_code) VALUES `
	args := make([]any, 0, len(items)*6)
	for i, it := range items {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?)"
		tt := types[it.TicketTypeID]
		args = append(args, orderID, tt.ID, tt.Name, it.Quantity, tt.Price, utils.NewTicketCode())
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, err
	}

	if affiliate != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO affiliate_commissions (affiliate_id, order_id, rate, amount) VALUES (?, ?, ?, ?)`,
			affiliate.ID, orderID, affiliate.CommissionRate, model.CommissionFor(total, affiliate.CommissionRate)); err != nil {
			return nil, err
		}
	}

	order, err := getOrderTx(ctx, tx, "o.id = ?", orderID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return order, nil
}

// mergeLineItems folds repeated ticket types together and drops empty lines.
func mergeLineItems(in []LineItem) []LineItem {
	out := make([]LineItem, 0, len(in))
	index := make(map[uint64]int, len(in))
	for _, it := range in {
		if it.TicketTypeID == 0 || it.Quantity == 0 {
			continue
		}
		if i, ok := index[it.TicketTypeID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		index[it.TicketTypeID] = len(out)
		out = append(out, it)
	}
	return out
}

// lockTicketTypesTx loads the requested ticket types FOR UPDATE together with
// the number of tickets already sold, so concurrent checkouts for the same
// tier serialize on the ticket_types rows.
func lockTicketTypesTx(ctx context.Context, tx *sql.Tx, items []LineItem) (map[uint64]model.TicketType, error) {
	ids := make([]any, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.TicketTypeID)
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT id, name, price, capacity, is_active FROM ticket_types WHERE id IN (`+placeholders(len(ids))+`) FOR UPDATE`,
		ids...)
	if err != nil {
		return nil, err
	}
	types := make(map[uint64]model.TicketType, len(ids))
	limited := false
	for rows.Next() {
		var (
			t        model.TicketType
			capacity sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Price, &capacity, &t.IsActive); err != nil {
			rows.Close()
			return nil, err
		}
		if capacity.Valid {
			c := uint32(capacity.Int64)
			t.Capacity = &c
			limited = true
		}
		types[t.ID] = t
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !limited {
		return types, nil
	}

	sold, err := tx.QueryContext(ctx,
		`SELECT oi.ticket_type_id, COALESCE(SUM(oi.quantity), 0)
		 FROM order_items oi
		 JOIN orders o ON o.id = oi.order_id
		 WHERE oi.ticket_type_id IN (`+placeholders(len(ids))+`) AND oi.is_active = 1 AND o.status <> 'CANCELLED'
		 GROUP BY oi.ticket_type_id`, ids...)
	if err != nil {
		return nil, err
	}
	defer sold.Close()
	for sold.Next() {
		var (
			id uint64
			n  int64
		)
		if err := sold.Scan(&id, &n); err != nil {
			return nil, err
		}
		if t, ok := types[id]; ok {
			t.Sold = uint32(n)
			types[id] = t
		}
	}
	return types, sold.Err()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func getOrderTx(ctx context.Context, q queryer, cond string, arg any) (*model.Order, error) {
	o, err := scanOrder(q.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders o WHERE "+cond+" LIMIT 1", arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	list := []model.Order{o}
	if err := loadItems(ctx, q, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// loadItems populates Items on every order with a single IN query.
func loadItems(ctx context.Context, q queryer, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]any, 0, len(orders))
	index := make(map[uint64]int, len(orders))
	for i, o := range orders {
		ids = append(ids, o.ID)
		index[o.ID] = i
	}
	rows, err := q.QueryContext(ctx,
		`SELECT id, order_id, ticket_type_id, ticket_type_name, quantity, unit_price, ticket_code, is_active, created_at
		 FROM order_items WHERE order_id IN (`+placeholders(len(ids))+`) ORDER BY order_id, id`, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.TicketTypeID, &it.TicketTypeName, &it.Quantity,
			&it.UnitPrice, &it.TicketCode, &it.IsActive, &it.CreatedAt); err != nil {
			return err
		}
		if i, ok := index[it.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	return rows.Err()
}

// GetByID returns an order with its items.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	return getOrderTx(ctx, r.db, "o.id = ?", id)
}

// GetByNumber returns an order by its public order number.
func (r *OrderRepo) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	return getOrderTx(ctx, r.db, "o.order_number = ?", strings.TrimSpace(number))
}

// List returns orders newest first with their items.
func (r *OrderRepo) List(ctx context.Context, f OrderFilter) ([]model.Order, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.PendingOnly {
		where = append(where, "NOT (o.payment_status = 'PAID' AND o.status = 'CONFIRMED')")
	}
	if f.Status != "" {
		where = append(where, "o.status = ?")
		args = append(args, f.Status)
	}
	if f.PaymentStatus != "" {
		where = append(where, "o.payment_status = ?")
		args = append(args, f.PaymentStatus)
	}
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		like := "%" + s + "%"
		where = append(where, "(LOWER(o.order_number) LIKE ? OR LOWER(o.customer_name) LIKE ? OR LOWER(o.customer_email) LIKE ?)")
		args = append(args, like, like, like)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders o WHERE "+strings.Join(where, " AND ")+
			" ORDER BY o.created_at DESC, o.id DESC LIMIT ?", args...)
	if err != nil {
		return nil, err
	}
	orders := make([]model.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := loadItems(ctx, r.db, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListPending returns every order that is not both PAID and CONFIRMED.
func (r *OrderRepo) ListPending(ctx context.Context) ([]model.Order, error) {
	return r.List(ctx, OrderFilter{PendingOnly: true})
}

// UpdateStatus changes the order and/or payment status.  Nil arguments keep
// the current value.  Cancelled orders cannot be re-opened (ErrConflict).
func (r *OrderRepo) UpdateStatus(ctx context.Context, id uint64, status *model.OrderStatus, payment *model.PaymentStatus) (*StatusChange, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	before, err := scanOrder(tx.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders o WHERE o.id = ? FOR UPDATE", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	nextStatus, nextPayment := before.Status, before.PaymentStatus
	if status != nil {
		nextStatus = *status
	}
	if payment != nil {
		nextPayment = *payment
	}
	if !model.CanTransition(before.Status, nextStatus) || !nextPayment.Valid() {
		return nil, ErrConflict
	}
	if _, err := tx.ExecContext(ctx, "UPDATE orders SET status = ?, payment_status = ? WHERE id = ?",
		nextStatus, nextPayment, id); err != nil {
		return nil, err
	}
	after, err := getOrderTx(ctx, tx, "o.id = ?", id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return &StatusChange{Before: before, After: *after}, nil
}

// DeactivateTicket voids one order item.  It returns the item and whether
// this call changed it; deactivating an inactive ticket is a no-op.
func (r *OrderRepo) DeactivateTicket(ctx context.Context, itemID uint64) (*model.OrderItem, bool, error) {
	res, err := r.db.ExecContext(ctx, "UPDATE order_items SET is_active = 0 WHERE id = ? AND is_active = 1", itemID)
	if err != nil {
		return nil, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	var it model.OrderItem
	err = r.db.QueryRowContext(ctx,
		`SELECT id, order_id, ticket_type_id, ticket_type_name, quantity, unit_price, ticket_code, is_active, created_at
		 FROM order_items WHERE id = ?`, itemID).Scan(&it.ID, &it.OrderID, &it.TicketTypeID, &it.TicketTypeName,
		&it.Quantity, &it.UnitPrice, &it.TicketCode, &it.IsActive, &it.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, ErrNotFound
		}
		return nil, false, err
	}
	return &it, n > 0, nil
}
