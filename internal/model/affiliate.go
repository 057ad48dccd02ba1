package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Affiliate is a referral partner.  Orders placed with ReferralCode are
// attributed to the affiliate and earn CommissionRate of the order total.
type Affiliate struct {
	ID             uint64          `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	PasswordHash   string          `json:"-"`
	ReferralCode   string          `json:"referral_code"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// AffiliateCommission records what an affiliate earns for one order.  The
// order's statuses are joined in so aggregation can decide whether the
// commission is earned, pending or void.
type AffiliateCommission struct {
	ID            uint64          `json:"id"`
	AffiliateID   uint64          `json:"affiliate_id"`
	OrderID       uint64          `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	Rate          decimal.Decimal `json:"rate"`
	Amount        decimal.Decimal `json:"amount"`
	OrderTotal    decimal.Decimal `json:"order_total"`
	OrderStatus   OrderStatus     `json:"order_status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// CommissionFor computes the commission on total at rate, rounded to cents.
func CommissionFor(total, rate decimal.Decimal) decimal.Decimal {
	return total.Mul(rate).Round(2)
}
