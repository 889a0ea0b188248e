package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/repair-pilot/internal/domain"
)

func money(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func moneyPtr(s string) *decimal.Decimal {
	d := money(s)
	return &d
}

func part(quantity int, cost string) domain.PartUsed {
	return domain.PartUsed{Quantity: quantity, Cost: money(cost)}
}

func TestRemaining(t *testing.T) {
	tests := []struct {
		name       string
		quoted     *decimal.Decimal
		parts      []domain.PartUsed
		deposit    string
		status     domain.TicketStatus
		wantAmount string
	}{
		{
			name:       "quote minus deposit",
			quoted:     moneyPtr("200.00"),
			deposit:    "50.00",
			status:     domain.TicketStatusIntake,
			wantAmount: "150.00",
		},
		{
			name:       "parts included",
			quoted:     moneyPtr("200.00"),
			parts:      []domain.PartUsed{part(2, "30.00")},
			deposit:    "50.00",
			status:     domain.TicketStatusInProgress,
			wantAmount: "210.00",
		},
		{
			name:       "nil quote treated as zero",
			quoted:     nil,
			parts:      []domain.PartUsed{part(1, "25.50")},
			deposit:    "10.00",
			status:     domain.TicketStatusDiagnosing,
			wantAmount: "15.50",
		},
		{
			name:       "deposit exceeding total clamps to zero",
			quoted:     moneyPtr("40.00"),
			deposit:    "100.00",
			status:     domain.TicketStatusIntake,
			wantAmount: "0",
		},
		{
			name:       "closed forces zero regardless of inputs",
			quoted:     moneyPtr("500.00"),
			parts:      []domain.PartUsed{part(3, "75.00")},
			deposit:    "0.00",
			status:     domain.TicketStatusClosed,
			wantAmount: "0",
		},
		{
			name:       "everything zero",
			quoted:     nil,
			deposit:    "0.00",
			status:     domain.TicketStatusIntake,
			wantAmount: "0",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Remaining(tc.quoted, PartsTotal(tc.parts), money(tc.deposit), tc.status)
			assert.True(t, got.Equal(money(tc.wantAmount)), "got %s want %s", got, tc.wantAmount)
		})
	}
}

func TestPartsTotal(t *testing.T) {
	parts := []domain.PartUsed{
		part(2, "30.00"),
		part(1, "12.49"),
		part(4, "0.25"),
	}
	assert.True(t, PartsTotal(parts).Equal(money("73.49")))
	assert.True(t, PartsTotal(nil).Equal(decimal.Zero))
}

func TestRemainingRepeatedRecomputeIsStable(t *testing.T) {
	// Fixed-point arithmetic must not drift across repeated recomputation.
	quoted := moneyPtr("199.99")
	parts := []domain.PartUsed{part(3, "33.33"), part(1, "0.01")}
	deposit := money("149.99")

	first := Remaining(quoted, PartsTotal(parts), deposit, domain.TicketStatusQA)
	for i := 0; i < 1000; i++ {
		again := Remaining(quoted, PartsTotal(parts), deposit, domain.TicketStatusQA)
		assert.True(t, first.Equal(again))
	}
	assert.True(t, first.Equal(money("150.00")))
}
