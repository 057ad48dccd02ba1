// Package report holds the aggregation rules behind the admin and affiliate
// dashboards.  The repository layer applies the same rules in SQL for the
// list endpoints; these functions are used when data is already loaded.
package report

import (
	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// PendingTickets returns the orders that still need admin attention: every
// order except those that are both PAID and CONFIRMED.  Input order is kept.
func PendingTickets(orders []model.Order) []model.Order {
	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if !o.Settled() {
			out = append(out, o)
		}
	}
	return out
}

// CommissionSummary is what an affiliate sees at the top of the portal.
type CommissionSummary struct {
	Earned           decimal.Decimal `json:"earned"`
	Pending          decimal.Decimal `json:"pending"`
	Referrals        int             `json:"referrals"`
	SettledReferrals int             `json:"settled_referrals"`
	RevenueSettled   decimal.Decimal `json:"revenue_settled"`
}

// SummarizeCommissions totals commissions by the state of their order.
// Earned only counts orders that are PAID and CONFIRMED; Pending counts
// orders that may still settle.  Cancelled, failed and refunded orders
// contribute to Referrals but to neither amount.
func SummarizeCommissions(commissions []model.AffiliateCommission) CommissionSummary {
	s := CommissionSummary{
		Earned:         decimal.Zero,
		Pending:        decimal.Zero,
		RevenueSettled: decimal.Zero,
	}
	for _, c := range commissions {
		s.Referrals++
		switch {
		case model.Settled(c.PaymentStatus, c.OrderStatus):
			s.SettledReferrals++
			s.Earned = s.Earned.Add(c.Amount)
			s.RevenueSettled = s.RevenueSettled.Add(c.OrderTotal)
		case model.Dead(c.PaymentStatus, c.OrderStatus):
		default:
			s.Pending = s.Pending.Add(c.Amount)
		}
	}
	return s
}
