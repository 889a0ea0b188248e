package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-pilot/internal/domain"
	"github.com/spec-kit/repair-pilot/internal/events"
	apperrors "github.com/spec-kit/repair-pilot/pkg/util"
)

const testShop = "fixit.example.com"

type ticketFixture struct {
	tickets  *memTicketRepo
	parts    *memPartRepo
	quotes   *memQuoteRepo
	audit    *memAuditRepo
	commerce *fakeCommerce
	svc      *TicketService
	partsSvc *PartsService
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()
	tickets := newMemTicketRepo()
	parts := newMemPartRepo()
	quotes := newMemQuoteRepo()
	audit := newMemAuditRepo()
	fake := &fakeCommerce{}
	locks := NewTicketLocks()
	logger := zap.NewNop()

	svc := NewTicketService(TicketDependencies{
		TicketRepo:    tickets,
		PartRepo:      parts,
		QuoteItemRepo: quotes,
		AuditRepo:     audit,
		Orders:        NewOrderService(fake, logger),
		Dispatcher:    events.NewInMemoryDispatcher(),
		Locks:         locks,
		Logger:        logger,
	})
	return &ticketFixture{
		tickets:  tickets,
		parts:    parts,
		quotes:   quotes,
		audit:    audit,
		commerce: fake,
		svc:      svc,
		partsSvc: NewPartsService(tickets, parts, audit, locks, logger),
	}
}

func (f *ticketFixture) createTicket(t *testing.T, quoted, deposit string) *domain.Ticket {
	t.Helper()
	quotedAmount := decimal.RequireFromString(quoted)
	result, err := f.svc.CreateTicket(context.Background(), testShop, "tech@fixit", TicketCreateInput{
		CustomerID:    "cust-1",
		QuotedAmount:  &quotedAmount,
		DepositAmount: decimal.RequireFromString(deposit),
		PaymentMode:   PaymentModePOS,
	})
	require.NoError(t, err)
	return result.Ticket
}

func (f *ticketFixture) setStatus(t *testing.T, ticketID string, status domain.TicketStatus) *StatusUpdateResult {
	t.Helper()
	result, err := f.svc.UpdateStatus(context.Background(), testShop, "tech@fixit", ticketID, StatusUpdateInput{Status: &status})
	require.NoError(t, err)
	return result
}

func TestCreateTicketComputesBalance(t *testing.T) {
	f := newTicketFixture(t)

	ticket := f.createTicket(t, "200", "50")
	assert.Equal(t, domain.TicketStatusIntake, ticket.Status)
	assert.True(t, ticket.RemainingAmount.Equal(decimal.RequireFromString("150")))
	assert.Equal(t, 1, f.audit.countByAction(ticket.ID, domain.AuditTicketCreated))
}

func TestCreateTicketInvoiceModeCreatesIntakeOrder(t *testing.T) {
	f := newTicketFixture(t)

	quoted := decimal.RequireFromString("200")
	result, err := f.svc.CreateTicket(context.Background(), testShop, "tech@fixit", TicketCreateInput{
		CustomerID:    "cust-1",
		QuotedAmount:  &quoted,
		DepositAmount: decimal.RequireFromString("50"),
		PaymentMode:   PaymentModeInvoice,
	})
	require.NoError(t, err)
	require.NotNil(t, result.IntakeOrderID)
	assert.Equal(t, 1, f.commerce.orderCount())
	assert.NotNil(t, result.IntakeInvoiceURL)

	stored, err := f.tickets.GetByID(context.Background(), result.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, result.IntakeOrderID, stored.IntakeOrderID)
}

func TestCreateTicketPOSModeSkipsIntakeOrder(t *testing.T) {
	f := newTicketFixture(t)

	ticket := f.createTicket(t, "200", "50")
	assert.Zero(t, f.commerce.orderCount())
	assert.Nil(t, ticket.IntakeOrderID)
}

func TestCreateTicketRejectsNegativeDeposit(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.svc.CreateTicket(context.Background(), testShop, "tech@fixit", TicketCreateInput{
		CustomerID:    "cust-1",
		DepositAmount: decimal.RequireFromString("-1"),
	})
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t, "200", "50")

	bogus := domain.TicketStatus("SHIPPED")
	_, err := f.svc.UpdateStatus(context.Background(), testShop, "tech@fixit", ticket.ID, StatusUpdateInput{Status: &bogus})
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusIntake, stored.Status)
}

func TestUpdateStatusWritesAuditEntry(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t, "200", "50")

	f.setStatus(t, ticket.ID, domain.TicketStatusDiagnosing)

	entry := f.audit.lastByAction(ticket.ID, domain.AuditStatusUpdated)
	require.NotNil(t, entry)
	meta, ok := entry.Meta.(domain.StatusUpdatedMeta)
	require.True(t, ok)
	assert.Equal(t, domain.TicketStatusIntake, meta.OldStatus)
	assert.Equal(t, domain.TicketStatusDiagnosing, meta.NewStatus)
}

func TestTechnicianOnlyChange(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t, "200", "50")

	tech := "op-9"
	result, err := f.svc.UpdateStatus(context.Background(), testShop, "tech@fixit", ticket.ID, StatusUpdateInput{
		TechnicianSet: true,
		TechnicianID:  &tech,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Ticket.TechnicianID)
	assert.Equal(t, tech, *result.Ticket.TechnicianID)
	assert.Equal(t, 1, f.audit.countByAction(ticket.ID, domain.AuditTechnicianUpdated))
	assert.Zero(t, f.audit.countByAction(ticket.ID, domain.AuditStatusUpdated))
}

func TestStatusChangeRecomputesBalanceFromParts(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t, "200", "50")

	for i := 0; i < 2; i++ {
		_, err := f.partsSvc.AddPart(context.Background(), testShop, "tech@fixit", ticket.ID, PartInput{
			Quantity: 1,
			Cost:     decimal.RequireFromString("30"),
		})
		require.NoError(t, err)
	}

	result := f.setStatus(t, ticket.ID, domain.TicketStatusInProgress)
	// 200 quoted + 60 parts - 50 deposit
	assert.True(t, result.Ticket.RemainingAmount.Equal(decimal.RequireFromString("210")))
}

func TestReadyTransitionCreatesFinalOrderOnce(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t, "200", "50")

	result := f.setStatus(t, ticket.ID, domain.TicketStatusReady)
	require.NotNil(t, result.FinalOrderID)
	assert.Equal(t, 1, f.commerce.orderCount())
	assert.Equal(t, 1, f.audit.countByAction(ticket.ID, domain.AuditFinalOrderCreated))

	entry := f.audit.lastByAction(ticket.ID, domain.AuditFinalOrderCreated)
	require.NotNil(t, entry)
	meta, ok := entry.Meta.(domain.FinalOrderCreatedMeta)
	require.True(t, ok)
	assert.True(t, meta.RemainingAmount.Equal(decimal.RequireFromString("150")))

	// Leaving READY and re-entering must not create a second order.
	f.setStatus(t, ticket.ID, domain.TicketStatusQA)
	f.setStatus(t, ticket.ID, domain.TicketStatusReady)
	assert.Equal(t, 1, f.commerce.orderCount())
	assert.Equal(t, 1, f.audit.countByAction(ticket.ID, domain.AuditFinalOrderCreated))
}

func TestReadyWithZeroBalanceSkipsOrder(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t, "50", "50")

	result := f.setStatus(t, ticket.ID, domain.TicketStatusReady)
	assert.Nil(t, result.FinalOrderID)
	assert.Zero(t, f.commerce.orderCount())
}

func TestReadyOrderFailureKeepsStatusChange(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t, "200", "50")
	f.commerce.createErr = errors.New("upstream 503")

	result := f.setStatus(t, ticket.ID, domain.TicketStatusReady)
	assert.Equal(t, domain.TicketStatusReady, result.Ticket.Status)
	assert.Nil(t, result.FinalOrderID)
	assert.Contains(t, result.Warnings, "final order creation failed")

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusReady, stored.Status)
	assert.Nil(t, stored.FinalOrderID)
}

func TestReadyInvoiceFailureIsPartialSuccess(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t, "200", "50")
	f.commerce.invoiceErr = errors.New("smtp down")

	result := f.setStatus(t, ticket.ID, domain.TicketStatusReady)
	require.NotNil(t, result.FinalOrderID)
	assert.Contains(t, result.Warnings, "final invoice send failed")
	assert.Equal(t, 1, f.audit.countByAction(ticket.ID, domain.AuditFinalOrderCreated))
}

func TestConcurrentReadyCreatesExactlyOneOrder(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t, "200", "50")

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status := domain.TicketStatusReady
			_, err := f.svc.UpdateStatus(context.Background(), testShop, "tech@fixit", ticket.ID, StatusUpdateInput{Status: &status})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.commerce.orderCount())
	assert.Equal(t, 1, f.audit.countByAction(ticket.ID, domain.AuditFinalOrderCreated))

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.FinalOrderID)
}

func TestCloseForcesZeroBalance(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t, "200", "50")
	f.setStatus(t, ticket.ID, domain.TicketStatusReady)

	result := f.setStatus(t, ticket.ID, domain.TicketStatusClosed)
	assert.True(t, result.Ticket.RemainingAmount.IsZero())

	entry := f.audit.lastByAction(ticket.ID, domain.AuditTicketClosed)
	require.NotNil(t, entry)
	meta, ok := entry.Meta.(domain.TicketClosedMeta)
	require.True(t, ok)
	require.NotNil(t, meta.FinalOrderID)
	assert.True(t, meta.RemainingAmount.Equal(decimal.RequireFromString("150")))
}

func TestCrossTenantLookupReportsNotFound(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t, "200", "50")

	status := domain.TicketStatusReady
	_, err := f.svc.UpdateStatus(context.Background(), "other.example.com", "tech@fixit", ticket.ID, StatusUpdateInput{Status: &status})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = f.svc.GetTicket(context.Background(), "other.example.com", ticket.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGetTicketAggregatesDetail(t *testing.T) {
	f := newTicketFixture(t)

	quoted := decimal.RequireFromString("120")
	created, err := f.svc.CreateTicket(context.Background(), testShop, "tech@fixit", TicketCreateInput{
		CustomerID:    "cust-7",
		QuotedAmount:  &quoted,
		DepositAmount: decimal.RequireFromString("20"),
		PaymentMode:   PaymentModePOS,
		QuoteItems: []QuoteItemInput{
			{Type: domain.QuoteItemDiagnostic, Description: "Diagnostic fee", Amount: decimal.RequireFromString("40")},
			{Type: domain.QuoteItemLabor, Description: "Screen swap", Amount: decimal.RequireFromString("80")},
		},
	})
	require.NoError(t, err)

	detail, err := f.svc.GetTicket(context.Background(), testShop, created.Ticket.ID)
	require.NoError(t, err)
	assert.Len(t, detail.QuoteItems, 2)
	assert.Len(t, detail.AuditTrail, 1)
	assert.Empty(t, detail.Parts)
}

func TestPhotoAddAndRemove(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t, "200", "50")

	updated, err := f.svc.AddPhotos(context.Background(), testShop, "tech@fixit", ticket.ID, []string{"https://cdn/a.jpg", "https://cdn/b.jpg"})
	require.NoError(t, err)
	assert.Len(t, updated.Photos, 2)

	// Duplicates are skipped without an extra audit entry.
	updated, err = f.svc.AddPhotos(context.Background(), testShop, "tech@fixit", ticket.ID, []string{"https://cdn/a.jpg"})
	require.NoError(t, err)
	assert.Len(t, updated.Photos, 2)
	assert.Equal(t, 1, f.audit.countByAction(ticket.ID, domain.AuditPhotosUpdated))

	updated, err = f.svc.RemovePhoto(context.Background(), testShop, "tech@fixit", ticket.ID, "https://cdn/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn/b.jpg"}, updated.Photos)

	_, err = f.svc.RemovePhoto(context.Background(), testShop, "tech@fixit", ticket.ID, "https://cdn/missing.jpg")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}
