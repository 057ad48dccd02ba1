package report

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/model"
)

func order(id uint64, p model.PaymentStatus, s model.OrderStatus) model.Order {
	return model.Order{ID: id, PaymentStatus: p, Status: s}
}

func TestPendingTicketsExcludesOnlyPaidConfirmed(t *testing.T) {
	orders := []model.Order{
		order(1, model.PaymentPaid, model.OrderConfirmed),
		order(2, model.PaymentPaid, model.OrderPending),
		order(3, model.PaymentPending, model.OrderConfirmed),
		order(4, model.PaymentPending, model.OrderPending),
		order(5, model.PaymentFailed, model.OrderCancelled),
		order(6, model.PaymentPaid, model.OrderConfirmed),
	}

	pending := PendingTickets(orders)
	require.Len(t, pending, 4)
	ids := make([]uint64, 0, len(pending))
	for _, o := range pending {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []uint64{2, 3, 4, 5}, ids)
}

func TestPendingTicketsEmpty(t *testing.T) {
	assert.Empty(t, PendingTickets(nil))
	assert.NotNil(t, PendingTickets(nil))
}

func commission(amount, total string, p model.PaymentStatus, s model.OrderStatus) model.AffiliateCommission {
	return model.AffiliateCommission{
		Amount:        decimal.RequireFromString(amount),
		OrderTotal:    decimal.RequireFromString(total),
		PaymentStatus: p,
		OrderStatus:   s,
	}
}

func TestSummarizeCommissionsCountsOnlySettledAsEarned(t *testing.T) {
	summary := SummarizeCommissions([]model.AffiliateCommission{
		commission("10.00", "100.00", model.PaymentPaid, model.OrderConfirmed),
		commission("5.50", "55.00", model.PaymentPaid, model.OrderConfirmed),
		commission("7.00", "70.00", model.PaymentPaid, model.OrderPending),
		commission("3.00", "30.00", model.PaymentPending, model.OrderConfirmed),
		commission("9.00", "90.00", model.PaymentRefunded, model.OrderConfirmed),
		commission("4.00", "40.00", model.PaymentPending, model.OrderCancelled),
	})

	assert.Equal(t, "15.50", summary.Earned.StringFixed(2))
	assert.Equal(t, "10.00", summary.Pending.StringFixed(2))
	assert.Equal(t, "155.00", summary.RevenueSettled.StringFixed(2))
	assert.Equal(t, 6, summary.Referrals)
	assert.Equal(t, 2, summary.SettledReferrals)
}

func TestSummarizeCommissionsZeroValue(t *testing.T) {
	summary := SummarizeCommissions(nil)
	assert.True(t, summary.Earned.IsZero())
	assert.True(t, summary.Pending.IsZero())
	assert.Zero(t, summary.Referrals)
}
