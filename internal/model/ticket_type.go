package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketType is a purchasable ticket tier (general admission, VIP, ...).
// Capacity is nil for unlimited tiers.
type TicketType struct {
	ID          uint64          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Capacity    *uint32         `json:"capacity,omitempty"`
	Sold        uint32          `json:"sold"`
	IsActive    bool            `json:"is_active"`
	SortOrder   int             `json:"sort_order"`
	CreatedAt   time.Time       `json:"-"`
	UpdatedAt   time.Time       `json:"-"`
}

// Remaining returns the number of tickets still available and whether the
// tier is limited at all.
func (t TicketType) Remaining() (uint32, bool) {
	if t.Capacity == nil {
		return 0, false
	}
	if t.Sold >= *t.Capacity {
		return 0, true
	}
	return *t.Capacity - t.Sold, true
}
