package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/repair-pilot/internal/domain"
	apperrors "github.com/spec-kit/repair-pilot/pkg/util"
)

func TestAddPartRecomputesBalance(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t, "200", "50")

	name := "Display assembly"
	result, err := f.partsSvc.AddPart(context.Background(), testShop, "tech@fixit", ticket.ID, PartInput{
		Name:     &name,
		Quantity: 2,
		Cost:     decimal.RequireFromString("30"),
	})
	require.NoError(t, err)
	// 200 + 2*30 - 50
	assert.True(t, result.RemainingAmount.Equal(decimal.RequireFromString("210")))
	assert.Equal(t, 1, f.audit.countByAction(ticket.ID, domain.AuditPartAdded))

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.True(t, stored.RemainingAmount.Equal(decimal.RequireFromString("210")))
}

func TestAddPartValidationLeavesStateUntouched(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t, "200", "50")

	_, err := f.partsSvc.AddPart(context.Background(), testShop, "tech@fixit", ticket.ID, PartInput{
		Quantity: 0,
		Cost:     decimal.RequireFromString("30"),
	})
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)

	_, err = f.partsSvc.AddPart(context.Background(), testShop, "tech@fixit", ticket.ID, PartInput{
		Quantity: 1,
		Cost:     decimal.RequireFromString("-5"),
	})
	require.Error(t, err)

	parts, err := f.partsSvc.ListParts(context.Background(), testShop, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, parts)

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.True(t, stored.RemainingAmount.Equal(decimal.RequireFromString("150")))
}

func TestUpdatePartRecomputesBalance(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t, "200", "50")

	added, err := f.partsSvc.AddPart(context.Background(), testShop, "tech@fixit", ticket.ID, PartInput{
		Quantity: 1,
		Cost:     decimal.RequireFromString("30"),
	})
	require.NoError(t, err)

	updated, err := f.partsSvc.UpdatePart(context.Background(), testShop, "tech@fixit", ticket.ID, added.Part.ID, PartInput{
		Quantity: 3,
		Cost:     decimal.RequireFromString("25"),
	})
	require.NoError(t, err)
	// 200 + 3*25 - 50
	assert.True(t, updated.RemainingAmount.Equal(decimal.RequireFromString("225")))
	assert.Equal(t, 1, f.audit.countByAction(ticket.ID, domain.AuditPartUpdated))
}

func TestRemovePartRecomputesBalance(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t, "200", "50")

	added, err := f.partsSvc.AddPart(context.Background(), testShop, "tech@fixit", ticket.ID, PartInput{
		Quantity: 2,
		Cost:     decimal.RequireFromString("30"),
	})
	require.NoError(t, err)

	removed, err := f.partsSvc.RemovePart(context.Background(), testShop, "tech@fixit", ticket.ID, added.Part.ID)
	require.NoError(t, err)
	assert.True(t, removed.RemainingAmount.Equal(decimal.RequireFromString("150")))
	assert.Equal(t, 1, f.audit.countByAction(ticket.ID, domain.AuditPartRemoved))

	parts, err := f.partsSvc.ListParts(context.Background(), testShop, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestPartFromAnotherTicketReportsNotFound(t *testing.T) {
	f := newTicketFixture(t)
	first := f.createTicket(t, "200", "50")
	second := f.createTicket(t, "100", "0")

	added, err := f.partsSvc.AddPart(context.Background(), testShop, "tech@fixit", first.ID, PartInput{
		Quantity: 1,
		Cost:     decimal.RequireFromString("10"),
	})
	require.NoError(t, err)

	_, err = f.partsSvc.RemovePart(context.Background(), testShop, "tech@fixit", second.ID, added.Part.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestPartMutationOnClosedTicketKeepsZeroBalance(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t, "200", "50")
	f.setStatus(t, ticket.ID, domain.TicketStatusClosed)

	result, err := f.partsSvc.AddPart(context.Background(), testShop, "tech@fixit", ticket.ID, PartInput{
		Quantity: 1,
		Cost:     decimal.RequireFromString("99"),
	})
	require.NoError(t, err)
	assert.True(t, result.RemainingAmount.IsZero())
}

func TestPartsCrossTenantReportsNotFound(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t, "200", "50")

	_, err := f.partsSvc.AddPart(context.Background(), "other.example.com", "tech@fixit", ticket.ID, PartInput{
		Quantity: 1,
		Cost:     decimal.RequireFromString("10"),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}
