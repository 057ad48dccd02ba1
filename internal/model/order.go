package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// PaymentStatus is the payment state of an order, tracked independently of
// OrderStatus because payment confirmations arrive out of band.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderCancelled:
		return true
	}
	return false
}

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// CanTransition reports whether an order may move from one status to
// another.  Staying put is always allowed; cancelled orders are final.
func CanTransition(from, to OrderStatus) bool {
	if from == to {
		return true
	}
	return from != OrderCancelled && to.Valid()
}

// Settled reports whether the status pair represents a completed sale:
// payment received and the order confirmed.  Everything else still needs
// attention from an admin.
func Settled(payment PaymentStatus, status OrderStatus) bool {
	return payment == PaymentPaid && status == OrderConfirmed
}

// Dead reports whether the order can never settle, so commissions tied to
// it are neither earned nor pending.
func Dead(payment PaymentStatus, status OrderStatus) bool {
	return status == OrderCancelled || payment == PaymentFailed || payment == PaymentRefunded
}

// Order mirrors the `orders` table.  Items is populated by repository
// methods that load the order's tickets.
type Order struct {
	ID            uint64          `json:"id"`
	OrderNumber   string          `json:"order_number"`
	UserID        uint64          `json:"user_id"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	Status        OrderStatus     `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	AffiliateID   *uint64         `json:"affiliate_id,omitempty"`
	ReferralCode  *string         `json:"referral_code,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Items         []OrderItem     `json:"items"`
}

// Settled reports whether the order is paid and confirmed.
func (o Order) Settled() bool { return Settled(o.PaymentStatus, o.Status) }

// TicketCount sums item quantities.
func (o Order) TicketCount() int {
	n := 0
	for _, it := range o.Items {
		n += int(it.Quantity)
	}
	return n
}

// OrderItem is one line of an order and doubles as the admission ticket:
// TicketCode is printed on the ticket and IsActive=false voids it.
type OrderItem struct {
	ID             uint64          `json:"id"`
	OrderID        uint64          `json:"order_id"`
	TicketTypeID   uint64          `json:"ticket_type_id"`
	TicketTypeName string          `json:"ticket_type_name"`
	Quantity       uint32          `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	TicketCode     string          `json:"ticket_code"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Subtotal is UnitPrice × Quantity.
func (it OrderItem) Subtotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}
