package domain

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// PartUsed is a part consumed by one ticket. Parts are owned exclusively by
// their ticket; cost is a unit price and quantity is always at least one.
type PartUsed struct {
	ID       string
	TicketID string
	Name     *string
	SKU      *string
	Quantity int
	Cost     decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Total returns quantity times unit cost for this part line.
func (p *PartUsed) Total() decimal.Decimal {
	return p.Cost.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

// DisplayName returns the part name, falling back to SKU then a placeholder.
func (p *PartUsed) DisplayName(index int) string {
	if p.Name != nil && *p.Name != "" {
		return *p.Name
	}
	if p.SKU != nil && *p.SKU != "" {
		return *p.SKU
	}
	return "Part " + strconv.Itoa(index+1)
}
