// Package ledger derives the remaining balance of a ticket from its quote,
// parts cost, and deposit. It is pure computation: no I/O, no side effects.
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/spec-kit/repair-pilot/internal/domain"
)

// PartsTotal sums quantity times unit cost over the given parts.
func PartsTotal(parts []domain.PartUsed) decimal.Decimal {
	total := decimal.Zero
	for i := range parts {
		total = total.Add(parts[i].Total())
	}
	return total
}

// Remaining computes the remaining balance:
//
//	max(0, (quoted ?? 0) + partsTotal - deposit)
//
// A CLOSED ticket always has a zero balance, irrespective of the inputs.
// Negative intermediate results clamp to zero and never propagate.
func Remaining(quoted *decimal.Decimal, partsTotal, deposit decimal.Decimal, status domain.TicketStatus) decimal.Decimal {
	if status == domain.TicketStatusClosed {
		return decimal.Zero
	}
	quotedAmount := decimal.Zero
	if quoted != nil {
		quotedAmount = *quoted
	}
	remaining := quotedAmount.Add(partsTotal).Sub(deposit)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}
