package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-pilot/internal/domain"
	"github.com/spec-kit/repair-pilot/internal/events"
	"github.com/spec-kit/repair-pilot/internal/ledger"
	"github.com/spec-kit/repair-pilot/internal/repository"
	apperrors "github.com/spec-kit/repair-pilot/pkg/util"
)

// PaymentMode selects how the intake deposit is collected.
type PaymentMode string

const (
	PaymentModeInvoice PaymentMode = "invoice"
	PaymentModePOS     PaymentMode = "pos"
)

// TicketService drives the ticket lifecycle: creation, status and technician
// transitions, and their side effects. All mutations run under the ticket's
// lock so the ledger recompute and the final-order check-and-set never race.
type TicketService struct {
	tickets    repository.TicketRepository
	parts      repository.PartRepository
	quotes     repository.QuoteItemRepository
	audit      repository.AuditLogRepository
	orders     *OrderService
	dispatcher events.Dispatcher
	locks      *TicketLocks
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo    repository.TicketRepository
	PartRepo      repository.PartRepository
	QuoteItemRepo repository.QuoteItemRepository
	AuditRepo     repository.AuditLogRepository
	Orders        *OrderService
	Dispatcher    events.Dispatcher
	Locks         *TicketLocks
	Logger        *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	locks := deps.Locks
	if locks == nil {
		locks = NewTicketLocks()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		parts:      deps.PartRepo,
		quotes:     deps.QuoteItemRepo,
		audit:      deps.AuditRepo,
		orders:     deps.Orders,
		dispatcher: deps.Dispatcher,
		locks:      locks,
		logger:     logger,
	}
}

// QuoteItemInput describes one quote line on intake.
type QuoteItemInput struct {
	Type        domain.QuoteItemType
	Description string
	Amount      decimal.Decimal
}

// TicketCreateInput describes intake payload from the point-of-sale front end.
type TicketCreateInput struct {
	CustomerID       string
	TechnicianID     *string
	DeviceType       *string
	DeviceBrand      *string
	DeviceModel      *string
	Serial           *string
	IssueDescription *string
	QuotedAmount     *decimal.Decimal
	DepositAmount    decimal.Decimal
	QuoteItems       []QuoteItemInput
	PaymentMode      PaymentMode
}

// TicketCreateResult reports the created ticket and intake-order outcome.
type TicketCreateResult struct {
	Ticket           *domain.Ticket
	IntakeOrderID    *string
	IntakeInvoiceURL *string
	Warnings         []string
}

// StatusUpdateInput carries a status and/or technician change. TechnicianSet
// distinguishes "leave unchanged" from "clear" (nil with TechnicianSet).
type StatusUpdateInput struct {
	Status        *domain.TicketStatus
	TechnicianSet bool
	TechnicianID  *string
	Notes         string
}

// StatusUpdateResult reports the updated ticket, any order created during the
// call, and soft warnings from external-effect failures.
type StatusUpdateResult struct {
	Ticket       *domain.Ticket
	FinalOrderID *string
	Warnings     []string
}

// TicketDetail aggregates a ticket with its owned collections.
type TicketDetail struct {
	Ticket     *domain.Ticket
	Parts      []domain.PartUsed
	QuoteItems []domain.QuoteItem
	AuditTrail []domain.AuditLogEntry
}

// CreateTicket creates an intake ticket, writes its audit entry, and, for
// invoice payment mode with a positive deposit, creates the intake payment
// order. Order or invoice failure never fails the creation.
func (s *TicketService) CreateTicket(ctx context.Context, shopDomain, actor string, input TicketCreateInput) (*TicketCreateResult, error) {
	if strings.TrimSpace(input.CustomerID) == "" {
		return nil, apperrors.NewValidationError("customer_id required", nil)
	}
	if input.DepositAmount.IsNegative() {
		return nil, apperrors.NewValidationError("deposit amount must be non-negative", nil)
	}
	if input.QuotedAmount != nil && input.QuotedAmount.IsNegative() {
		return nil, apperrors.NewValidationError("quoted amount must be non-negative", nil)
	}
	for _, item := range input.QuoteItems {
		if !domain.IsValidQuoteItemType(item.Type) {
			return nil, apperrors.NewValidationError("invalid quote item type", map[string]any{"type": item.Type})
		}
	}
	mode := input.PaymentMode
	if mode != PaymentModePOS {
		mode = PaymentModeInvoice
	}

	ticket := &domain.Ticket{
		ShopDomain:       shopDomain,
		Status:           domain.TicketStatusIntake,
		CustomerID:       input.CustomerID,
		TechnicianID:     input.TechnicianID,
		DeviceType:       input.DeviceType,
		DeviceBrand:      input.DeviceBrand,
		DeviceModel:      input.DeviceModel,
		Serial:           input.Serial,
		IssueDescription: input.IssueDescription,
		Photos:           []string{},
		QuotedAmount:     input.QuotedAmount,
		DepositAmount:    input.DepositAmount,
		RemainingAmount:  ledger.Remaining(input.QuotedAmount, decimal.Zero, input.DepositAmount, domain.TicketStatusIntake),
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if len(input.QuoteItems) > 0 {
		items := make([]domain.QuoteItem, 0, len(input.QuoteItems))
		for i, item := range input.QuoteItems {
			items = append(items, domain.QuoteItem{
				TicketID:     ticket.ID,
				Type:         item.Type,
				Description:  item.Description,
				Amount:       item.Amount,
				DisplayOrder: i,
			})
		}
		if err := s.quotes.CreateMany(ctx, items); err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	if err := s.audit.Create(ctx, &domain.AuditLogEntry{
		TicketID: ticket.ID,
		Actor:    actor,
		Action:   domain.AuditTicketCreated,
		Meta: domain.TicketCreatedMeta{
			CustomerID:    ticket.CustomerID,
			QuotedAmount:  ticket.QuotedAmount,
			DepositAmount: ticket.DepositAmount,
		},
	}); err != nil {
		return nil, apperrors.MapError(err)
	}

	result := &TicketCreateResult{Ticket: ticket}

	if mode == PaymentModeInvoice && ticket.DepositAmount.IsPositive() {
		title := fmt.Sprintf("Repair Deposit - Ticket #%s", ticket.ShortRef())
		note := fmt.Sprintf("Repair ticket deposit. Ticket ID: %s", ticket.ID)
		order, err := s.orders.CreatePaymentOrder(ctx, ticket.CustomerID, title, ticket.DepositAmount, note)
		if err != nil {
			s.logger.Warn("intake order creation failed",
				zap.String("ticket_id", ticket.ID), zap.Error(err))
			result.Warnings = append(result.Warnings, "intake order creation failed")
		} else {
			claimed, err := s.tickets.SetIntakeOrderID(ctx, ticket.ID, order.OrderID)
			if err != nil {
				return nil, apperrors.MapError(err)
			}
			if claimed {
				ticket.IntakeOrderID = &order.OrderID
				result.IntakeOrderID = &order.OrderID
				if order.InvoiceURL != "" {
					result.IntakeInvoiceURL = &order.InvoiceURL
				}
			}
			if order.InvoiceErr != nil {
				result.Warnings = append(result.Warnings, "deposit invoice send failed")
			}
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketCreatedPayload{
			CustomerID:    ticket.CustomerID,
			QuotedAmount:  ticket.QuotedAmount,
			DepositAmount: ticket.DepositAmount,
			IntakeOrderID: ticket.IntakeOrderID,
		},
	})
	return result, nil
}

// UpdateStatus applies a status and/or technician change, recomputes the
// ledger from a fresh read, and runs the READY and CLOSED side effects.
// External-effect failures surface as warnings, never as errors: by the time
// they run, the transition itself is already committed.
func (s *TicketService) UpdateStatus(ctx context.Context, shopDomain, actor, ticketID string, input StatusUpdateInput) (*StatusUpdateResult, error) {
	if input.Status == nil && !input.TechnicianSet {
		return nil, apperrors.NewValidationError("status or technician_id required", nil)
	}
	if input.Status != nil && !domain.IsValidTicketStatus(*input.Status) {
		return nil, apperrors.NewValidationError("invalid ticket status", map[string]any{"status": *input.Status})
	}

	unlock := s.locks.Lock(ticketID)
	defer unlock()

	ticket, err := s.loadOwnedTicket(ctx, shopDomain, ticketID)
	if err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	oldTechnician := ticket.TechnicianID

	if input.Status != nil {
		ticket.Status = *input.Status
	}
	if input.TechnicianSet {
		ticket.TechnicianID = input.TechnicianID
	}

	statusChanged := ticket.Status != oldStatus
	technicianChanged := input.TechnicianSet && !equalPtr(oldTechnician, ticket.TechnicianID)

	parts, err := s.parts.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	partsTotal := ledger.PartsTotal(parts)
	ticket.RemainingAmount = ledger.Remaining(ticket.QuotedAmount, partsTotal, ticket.DepositAmount, ticket.Status)

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if statusChanged {
		if err := s.audit.Create(ctx, &domain.AuditLogEntry{
			TicketID: ticket.ID,
			Actor:    actor,
			Action:   domain.AuditStatusUpdated,
			Meta: domain.StatusUpdatedMeta{
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
				Notes:     input.Notes,
			},
		}); err != nil {
			return nil, apperrors.MapError(err)
		}
	} else if technicianChanged {
		if err := s.audit.Create(ctx, &domain.AuditLogEntry{
			TicketID: ticket.ID,
			Actor:    actor,
			Action:   domain.AuditTechnicianUpdated,
			Meta: domain.TechnicianUpdatedMeta{
				OldTechnicianID: oldTechnician,
				NewTechnicianID: ticket.TechnicianID,
				Notes:           input.Notes,
			},
		}); err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	result := &StatusUpdateResult{Ticket: ticket}

	if statusChanged && ticket.Status == domain.TicketStatusReady {
		s.runReadyTransition(ctx, actor, ticket, parts, partsTotal, result)
	}

	if statusChanged && ticket.Status == domain.TicketStatusClosed {
		balanceAtClosure := ledger.Remaining(ticket.QuotedAmount, partsTotal, ticket.DepositAmount, oldStatus)
		if err := s.audit.Create(ctx, &domain.AuditLogEntry{
			TicketID: ticket.ID,
			Actor:    actor,
			Action:   domain.AuditTicketClosed,
			Meta: domain.TicketClosedMeta{
				FinalOrderID:    ticket.FinalOrderID,
				RemainingAmount: balanceAtClosure,
			},
		}); err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	if statusChanged {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventStatusChanged,
			TicketID: ticket.ID,
			Actor:    actor,
			Payload: events.StatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
				Notes:     input.Notes,
			},
		})
	} else if technicianChanged {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTechnicianChanged,
			TicketID: ticket.ID,
			Actor:    actor,
			Payload: events.TechnicianChangedPayload{
				OldTechnicianID: oldTechnician,
				NewTechnicianID: ticket.TechnicianID,
			},
		})
	}

	return result, nil
}

// runReadyTransition creates the final payment order when the ticket enters
// READY with a positive balance and no final order yet. The status change is
// already committed; every failure here degrades to a warning.
func (s *TicketService) runReadyTransition(ctx context.Context, actor string, ticket *domain.Ticket, parts []domain.PartUsed, partsTotal decimal.Decimal, result *StatusUpdateResult) {
	if !ticket.RemainingAmount.IsPositive() || ticket.FinalOrderID != nil {
		return
	}

	title := fmt.Sprintf("Repair Balance - Ticket #%s", ticket.ShortRef())
	note := buildFinalOrderNote(ticket, parts, partsTotal)

	order, err := s.orders.CreatePaymentOrder(ctx, ticket.CustomerID, title, ticket.RemainingAmount, note)
	if err != nil {
		s.logger.Warn("final order creation failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
		result.Warnings = append(result.Warnings, "final order creation failed")
		return
	}

	claimed, err := s.tickets.SetFinalOrderID(ctx, ticket.ID, order.OrderID)
	if err != nil {
		s.logger.Error("final order id write failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("order_id", order.OrderID),
			zap.Error(err))
		result.Warnings = append(result.Warnings, "final order created but not recorded")
		return
	}
	if !claimed {
		// A concurrent transition won the claim; this order is stray.
		s.logger.Warn("final order already recorded for ticket; skipping",
			zap.String("ticket_id", ticket.ID),
			zap.String("stray_order_id", order.OrderID))
		return
	}

	ticket.FinalOrderID = &order.OrderID
	result.FinalOrderID = &order.OrderID
	if order.InvoiceErr != nil {
		result.Warnings = append(result.Warnings, "final invoice send failed")
	}

	quoted := decimal.Zero
	if ticket.QuotedAmount != nil {
		quoted = *ticket.QuotedAmount
	}
	if err := s.audit.Create(ctx, &domain.AuditLogEntry{
		TicketID: ticket.ID,
		Actor:    actor,
		Action:   domain.AuditFinalOrderCreated,
		Meta: domain.FinalOrderCreatedMeta{
			FinalOrderID:    order.OrderID,
			RemainingAmount: ticket.RemainingAmount,
			QuotedAmount:    quoted,
			PartsTotal:      partsTotal,
			PartsCount:      len(parts),
			DepositAmount:   ticket.DepositAmount,
		},
	}); err != nil {
		s.logger.Error("final order audit write failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
		result.Warnings = append(result.Warnings, "final order audit entry failed")
		return
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventFinalOrderCreated,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.FinalOrderCreatedPayload{
			FinalOrderID:    order.OrderID,
			RemainingAmount: ticket.RemainingAmount,
			InvoiceSent:     order.InvoiceSent,
		},
	})
}

// GetTicket loads a ticket with its parts, quote items, and audit trail.
func (s *TicketService) GetTicket(ctx context.Context, shopDomain, ticketID string) (*TicketDetail, error) {
	ticket, err := s.loadOwnedTicket(ctx, shopDomain, ticketID)
	if err != nil {
		return nil, err
	}
	parts, err := s.parts.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	quoteItems, err := s.quotes.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	trail, err := s.audit.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &TicketDetail{
		Ticket:     ticket,
		Parts:      parts,
		QuoteItems: quoteItems,
		AuditTrail: trail,
	}, nil
}

// ListTickets returns tickets for the shop, optionally filtered by status.
func (s *TicketService) ListTickets(ctx context.Context, shopDomain string, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListByShop(ctx, shopDomain, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// AddPhotos appends photo URLs to a ticket.
func (s *TicketService) AddPhotos(ctx context.Context, shopDomain, actor, ticketID string, urls []string) (*domain.Ticket, error) {
	if len(urls) == 0 {
		return nil, apperrors.NewValidationError("photos required", nil)
	}

	unlock := s.locks.Lock(ticketID)
	defer unlock()

	ticket, err := s.loadOwnedTicket(ctx, shopDomain, ticketID)
	if err != nil {
		return nil, err
	}

	existing := make(map[string]struct{}, len(ticket.Photos))
	for _, url := range ticket.Photos {
		existing[url] = struct{}{}
	}
	added := []string{}
	for _, url := range urls {
		if _, ok := existing[url]; ok {
			continue
		}
		ticket.Photos = append(ticket.Photos, url)
		existing[url] = struct{}{}
		added = append(added, url)
	}
	if len(added) == 0 {
		return ticket, nil
	}

	if err := s.tickets.SetPhotos(ctx, ticket.ID, ticket.Photos); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.audit.Create(ctx, &domain.AuditLogEntry{
		TicketID: ticket.ID,
		Actor:    actor,
		Action:   domain.AuditPhotosUpdated,
		Meta: domain.PhotosUpdatedMeta{
			Added: added,
			Count: len(ticket.Photos),
		},
	}); err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// RemovePhoto removes one photo URL from a ticket.
func (s *TicketService) RemovePhoto(ctx context.Context, shopDomain, actor, ticketID, url string) (*domain.Ticket, error) {
	unlock := s.locks.Lock(ticketID)
	defer unlock()

	ticket, err := s.loadOwnedTicket(ctx, shopDomain, ticketID)
	if err != nil {
		return nil, err
	}

	filtered := make([]string, 0, len(ticket.Photos))
	found := false
	for _, photo := range ticket.Photos {
		if photo == url {
			found = true
			continue
		}
		filtered = append(filtered, photo)
	}
	if !found {
		return nil, apperrors.NewNotFound("photo", nil)
	}
	ticket.Photos = filtered

	if err := s.tickets.SetPhotos(ctx, ticket.ID, ticket.Photos); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.audit.Create(ctx, &domain.AuditLogEntry{
		TicketID: ticket.ID,
		Actor:    actor,
		Action:   domain.AuditPhotosUpdated,
		Meta: domain.PhotosUpdatedMeta{
			Removed: []string{url},
			Count:   len(ticket.Photos),
		},
	}); err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// loadOwnedTicket fetches a ticket and enforces tenancy. Cross-tenant access
// reports NotFound, not Forbidden, to avoid existence leakage.
func (s *TicketService) loadOwnedTicket(ctx context.Context, shopDomain, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, apperrors.MapError(err)
	}
	if ticket.ShopDomain != shopDomain {
		return nil, apperrors.NewNotFound("ticket", nil)
	}
	return ticket, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// buildFinalOrderNote renders the line-item breakdown for the final payment
// order: quote, itemized parts, deposit paid, and total balance due.
func buildFinalOrderNote(ticket *domain.Ticket, parts []domain.PartUsed, partsTotal decimal.Decimal) string {
	noteParts := []string{
		fmt.Sprintf("Repair ticket final payment. Ticket ID: %s", ticket.ID),
	}

	quoted := decimal.Zero
	if ticket.QuotedAmount != nil {
		quoted = *ticket.QuotedAmount
	}
	if quoted.IsPositive() {
		noteParts = append(noteParts, fmt.Sprintf("Quoted Amount: %s", formatMoney(quoted)))
	}
	if partsTotal.IsPositive() {
		noteParts = append(noteParts, fmt.Sprintf("Parts Cost: %s", formatMoney(partsTotal)))
		for i := range parts {
			part := &parts[i]
			noteParts = append(noteParts, fmt.Sprintf("  - %s: %d x %s = %s",
				part.DisplayName(i), part.Quantity, formatMoney(part.Cost), formatMoney(part.Total())))
		}
	}
	if ticket.DepositAmount.IsPositive() {
		noteParts = append(noteParts, fmt.Sprintf("Deposit Paid: %s", formatMoney(ticket.DepositAmount)))
	}
	noteParts = append(noteParts, fmt.Sprintf("Total Balance Due: %s", formatMoney(ticket.RemainingAmount)))

	return strings.Join(noteParts, "\n")
}

func formatMoney(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
