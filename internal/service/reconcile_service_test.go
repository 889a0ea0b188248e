package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-pilot/internal/domain"
	"github.com/spec-kit/repair-pilot/internal/events"
	"github.com/spec-kit/repair-pilot/internal/observability"
)

type reconcileFixture struct {
	*ticketFixture
	svc *ReconcileService
}

func newReconcileFixture(t *testing.T) *reconcileFixture {
	t.Helper()
	base := newTicketFixture(t)
	return &reconcileFixture{
		ticketFixture: base,
		svc: NewReconcileService(
			base.tickets,
			base.audit,
			events.NewInMemoryDispatcher(),
			NewTicketLocks(),
			observability.NewMetrics(),
			zap.NewNop(),
		),
	}
}

func orderPaidBody(ticketID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": 4477,
		"admin_graphql_api_id": "gid://commerce/Order/4477",
		"name": "#1042",
		"source_name": "web",
		"payment_gateway_names": ["manual", "gift_card"],
		"processed_at": "2026-03-01T10:30:00Z",
		"note_attributes": [
			{"name": "repairpilot_ticket_id", "value": %q}
		],
		"line_items": [
			{
				"title": "Repair Deposit",
				"quantity": 1,
				"price": "50.00",
				"price_set": {"shop_money": {"amount": "50.00", "currency_code": "USD"}},
				"properties": [
					{"name": "repairpilot_payment_type", "value": "deposit"}
				]
			}
		],
		"total_price": "50.00"
	}`, ticketID))
}

func TestProcessOrderPaidRecordsDeposit(t *testing.T) {
	f := newReconcileFixture(t)
	ticket := f.createTicket(t, "200", "50")

	outcome, err := f.svc.ProcessOrderPaid(context.Background(), testShop, orderPaidBody(ticket.ID))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRecorded, outcome)

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.DepositPaymentOrderID)
	assert.Equal(t, "gid://commerce/Order/4477", *stored.DepositPaymentOrderID)
	require.NotNil(t, stored.DepositPaymentOrderName)
	assert.Equal(t, "#1042", *stored.DepositPaymentOrderName)
	require.NotNil(t, stored.DepositPaymentMethod)
	assert.Equal(t, "manual, gift_card", *stored.DepositPaymentMethod)
	require.NotNil(t, stored.DepositCollectedAmount)
	assert.True(t, stored.DepositCollectedAmount.Equal(decimal.RequireFromString("50.00")))
	require.NotNil(t, stored.DepositCollectedAt)
	assert.Equal(t, "2026-03-01T10:30:00Z", stored.DepositCollectedAt.UTC().Format("2006-01-02T15:04:05Z"))

	entry := f.audit.lastByAction(ticket.ID, domain.AuditDepositCollected)
	require.NotNil(t, entry)
	assert.Equal(t, domain.SystemActor, entry.Actor)
}

func TestDuplicateDeliveryIsNoOp(t *testing.T) {
	f := newReconcileFixture(t)
	ticket := f.createTicket(t, "200", "50")
	body := orderPaidBody(ticket.ID)

	outcome, err := f.svc.ProcessOrderPaid(context.Background(), testShop, body)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRecorded, outcome)

	outcome, err = f.svc.ProcessOrderPaid(context.Background(), testShop, body)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)

	assert.Equal(t, 1, f.audit.countByAction(ticket.ID, domain.AuditDepositCollected))
}

func TestUnrelatedOrderIsIgnored(t *testing.T) {
	f := newReconcileFixture(t)

	outcome, err := f.svc.ProcessOrderPaid(context.Background(), testShop, []byte(`{
		"id": 99, "name": "#2001", "total_price": "19.99", "line_items": []
	}`))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoTicketRef, outcome)
}

func TestUnknownTicketIsIgnored(t *testing.T) {
	f := newReconcileFixture(t)

	outcome, err := f.svc.ProcessOrderPaid(context.Background(), testShop, orderPaidBody("no-such-ticket"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnknownTicket, outcome)
}

func TestWrongShopIsIgnored(t *testing.T) {
	f := newReconcileFixture(t)
	ticket := f.createTicket(t, "200", "50")

	outcome, err := f.svc.ProcessOrderPaid(context.Background(), "other.example.com", orderPaidBody(ticket.ID))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnknownTicket, outcome)

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.DepositPaymentOrderID)
}

func TestMalformedBodyIsAcknowledged(t *testing.T) {
	f := newReconcileFixture(t)

	outcome, err := f.svc.ProcessOrderPaid(context.Background(), testShop, []byte(`{not json`))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnparseable, outcome)
}

func TestLineItemPropertyCarriesTicketRef(t *testing.T) {
	f := newReconcileFixture(t)
	ticket := f.createTicket(t, "200", "50")

	body := []byte(fmt.Sprintf(`{
		"id": 512,
		"name": "#1050",
		"processed_at": "2026-03-02T08:00:00Z",
		"line_items": [
			{
				"title": "Repair Deposit",
				"quantity": 1,
				"price": "50.00",
				"properties": [
					{"key": "Repairpilot_Ticket_Id", "val": %q},
					{"name": "repairpilot_payment_type", "value": "deposit"}
				]
			}
		],
		"total_price": "50.00"
	}`, ticket.ID))

	outcome, err := f.svc.ProcessOrderPaid(context.Background(), testShop, body)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRecorded, outcome)

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.DepositPaymentOrderID)
	assert.Equal(t, "gid://commerce/Order/512", *stored.DepositPaymentOrderID)
}
