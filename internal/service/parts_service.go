package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-pilot/internal/domain"
	"github.com/spec-kit/repair-pilot/internal/ledger"
	"github.com/spec-kit/repair-pilot/internal/repository"
	apperrors "github.com/spec-kit/repair-pilot/pkg/util"
)

// PartsService mutates a ticket's parts register. Every mutation re-reads the
// full parts list afterward and recomputes the ticket's remaining balance, so
// the stored ledger never drifts from its inputs.
type PartsService struct {
	tickets repository.TicketRepository
	parts   repository.PartRepository
	audit   repository.AuditLogRepository
	locks   *TicketLocks
	logger  *zap.Logger
}

// NewPartsService constructs the service.
func NewPartsService(tickets repository.TicketRepository, parts repository.PartRepository, audit repository.AuditLogRepository, locks *TicketLocks, logger *zap.Logger) *PartsService {
	if locks == nil {
		locks = NewTicketLocks()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PartsService{
		tickets: tickets,
		parts:   parts,
		audit:   audit,
		locks:   locks,
		logger:  logger,
	}
}

// PartInput carries a part's mutable fields.
type PartInput struct {
	Name     *string
	SKU      *string
	Quantity int
	Cost     decimal.Decimal
}

// PartMutationResult reports the affected part and the recomputed balance.
type PartMutationResult struct {
	Part            *domain.PartUsed
	RemainingAmount decimal.Decimal
}

func validatePartInput(input PartInput) error {
	if input.Quantity < 1 {
		return apperrors.NewValidationError("quantity must be at least 1", map[string]any{"quantity": input.Quantity})
	}
	if input.Cost.IsNegative() {
		return apperrors.NewValidationError("cost must be non-negative", map[string]any{"cost": input.Cost.String()})
	}
	return nil
}

// AddPart records a part against the ticket and recomputes the balance.
func (s *PartsService) AddPart(ctx context.Context, shopDomain, actor, ticketID string, input PartInput) (*PartMutationResult, error) {
	if err := validatePartInput(input); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(ticketID)
	defer unlock()

	ticket, err := s.loadOwnedTicket(ctx, shopDomain, ticketID)
	if err != nil {
		return nil, err
	}

	part := &domain.PartUsed{
		TicketID: ticket.ID,
		Name:     trimPtr(input.Name),
		SKU:      trimPtr(input.SKU),
		Quantity: input.Quantity,
		Cost:     input.Cost,
	}
	if err := s.parts.Create(ctx, part); err != nil {
		return nil, apperrors.MapError(err)
	}

	remaining, err := s.recomputeBalance(ctx, ticket)
	if err != nil {
		return nil, err
	}

	if err := s.audit.Create(ctx, &domain.AuditLogEntry{
		TicketID: ticket.ID,
		Actor:    actor,
		Action:   domain.AuditPartAdded,
		Meta: domain.PartChangedMeta{
			PartID:          part.ID,
			Name:            part.Name,
			SKU:             part.SKU,
			Quantity:        part.Quantity,
			Cost:            part.Cost,
			RemainingAmount: remaining,
		}.WithAction(domain.AuditPartAdded),
	}); err != nil {
		return nil, apperrors.MapError(err)
	}

	return &PartMutationResult{Part: part, RemainingAmount: remaining}, nil
}

// UpdatePart replaces a part's fields and recomputes the balance.
func (s *PartsService) UpdatePart(ctx context.Context, shopDomain, actor, ticketID, partID string, input PartInput) (*PartMutationResult, error) {
	if err := validatePartInput(input); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(ticketID)
	defer unlock()

	ticket, err := s.loadOwnedTicket(ctx, shopDomain, ticketID)
	if err != nil {
		return nil, err
	}

	part, err := s.loadTicketPart(ctx, ticket.ID, partID)
	if err != nil {
		return nil, err
	}

	part.Name = trimPtr(input.Name)
	part.SKU = trimPtr(input.SKU)
	part.Quantity = input.Quantity
	part.Cost = input.Cost
	if err := s.parts.Update(ctx, part); err != nil {
		return nil, apperrors.MapError(err)
	}

	remaining, err := s.recomputeBalance(ctx, ticket)
	if err != nil {
		return nil, err
	}

	if err := s.audit.Create(ctx, &domain.AuditLogEntry{
		TicketID: ticket.ID,
		Actor:    actor,
		Action:   domain.AuditPartUpdated,
		Meta: domain.PartChangedMeta{
			PartID:          part.ID,
			Name:            part.Name,
			SKU:             part.SKU,
			Quantity:        part.Quantity,
			Cost:            part.Cost,
			RemainingAmount: remaining,
		}.WithAction(domain.AuditPartUpdated),
	}); err != nil {
		return nil, apperrors.MapError(err)
	}

	return &PartMutationResult{Part: part, RemainingAmount: remaining}, nil
}

// RemovePart deletes a part and recomputes the balance.
func (s *PartsService) RemovePart(ctx context.Context, shopDomain, actor, ticketID, partID string) (*PartMutationResult, error) {
	unlock := s.locks.Lock(ticketID)
	defer unlock()

	ticket, err := s.loadOwnedTicket(ctx, shopDomain, ticketID)
	if err != nil {
		return nil, err
	}

	part, err := s.loadTicketPart(ctx, ticket.ID, partID)
	if err != nil {
		return nil, err
	}

	if err := s.parts.Delete(ctx, part.ID, ticket.ID); err != nil {
		return nil, apperrors.MapError(err)
	}

	remaining, err := s.recomputeBalance(ctx, ticket)
	if err != nil {
		return nil, err
	}

	if err := s.audit.Create(ctx, &domain.AuditLogEntry{
		TicketID: ticket.ID,
		Actor:    actor,
		Action:   domain.AuditPartRemoved,
		Meta: domain.PartChangedMeta{
			PartID:          part.ID,
			Name:            part.Name,
			SKU:             part.SKU,
			Quantity:        part.Quantity,
			Cost:            part.Cost,
			RemainingAmount: remaining,
		}.WithAction(domain.AuditPartRemoved),
	}); err != nil {
		return nil, apperrors.MapError(err)
	}

	return &PartMutationResult{Part: part, RemainingAmount: remaining}, nil
}

// ListParts returns the ticket's parts register.
func (s *PartsService) ListParts(ctx context.Context, shopDomain, ticketID string) ([]domain.PartUsed, error) {
	ticket, err := s.loadOwnedTicket(ctx, shopDomain, ticketID)
	if err != nil {
		return nil, err
	}
	parts, err := s.parts.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return parts, nil
}

// recomputeBalance re-reads all parts and persists the derived balance.
func (s *PartsService) recomputeBalance(ctx context.Context, ticket *domain.Ticket) (decimal.Decimal, error) {
	parts, err := s.parts.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return decimal.Zero, apperrors.MapError(err)
	}
	remaining := ledger.Remaining(ticket.QuotedAmount, ledger.PartsTotal(parts), ticket.DepositAmount, ticket.Status)
	if err := s.tickets.SetRemainingAmount(ctx, ticket.ID, remaining); err != nil {
		return decimal.Zero, apperrors.MapError(err)
	}
	ticket.RemainingAmount = remaining
	return remaining, nil
}

func (s *PartsService) loadOwnedTicket(ctx context.Context, shopDomain, ticketID string) (*domain.Ticket, error) {
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

// loadTicketPart fetches a part and checks it belongs to the ticket.
func (s *PartsService) loadTicketPart(ctx context.Context, ticketID, partID string) (*domain.PartUsed, error) {
	part, err := s.parts.GetByID(ctx, partID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("part", nil)
		}
		return nil, apperrors.MapError(err)
	}
	if part.TicketID != ticketID {
		return nil, apperrors.NewNotFound("part", nil)
	}
	return part, nil
}

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
