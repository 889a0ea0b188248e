package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-pilot/internal/domain"
	"github.com/spec-kit/repair-pilot/internal/events"
	"github.com/spec-kit/repair-pilot/internal/observability"
	"github.com/spec-kit/repair-pilot/internal/repository"
	"github.com/spec-kit/repair-pilot/internal/webhook"
	apperrors "github.com/spec-kit/repair-pilot/pkg/util"
)

// ReconcileService applies orders-paid webhook deliveries to tickets. It is
// tolerant by design: orders without a ticket reference, unknown tickets, and
// duplicate deliveries all resolve to a successful no-op, because the webhook
// sender retries on failure and most paid orders are unrelated to repairs.
// Only a store failure is reported as an error so the delivery gets retried.
type ReconcileService struct {
	tickets    repository.TicketRepository
	audit      repository.AuditLogRepository
	dispatcher events.Dispatcher
	locks      *TicketLocks
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewReconcileService constructs the processor.
func NewReconcileService(tickets repository.TicketRepository, audit repository.AuditLogRepository, dispatcher events.Dispatcher, locks *TicketLocks, metrics *observability.Metrics, logger *zap.Logger) *ReconcileService {
	if locks == nil {
		locks = NewTicketLocks()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileService{
		tickets:    tickets,
		audit:      audit,
		dispatcher: dispatcher,
		locks:      locks,
		metrics:    metrics,
		logger:     logger,
	}
}

// ReconcileOutcome labels how a delivery was resolved.
type ReconcileOutcome string

const (
	OutcomeRecorded      ReconcileOutcome = "recorded"
	OutcomeNoTicketRef   ReconcileOutcome = "no_ticket_ref"
	OutcomeUnknownTicket ReconcileOutcome = "unknown_ticket"
	OutcomeDuplicate     ReconcileOutcome = "duplicate"
	OutcomeUnparseable   ReconcileOutcome = "unparseable"
)

// ProcessOrderPaid handles one orders-paid delivery for the shop.
func (s *ReconcileService) ProcessOrderPaid(ctx context.Context, shopDomain string, body []byte) (ReconcileOutcome, error) {
	var payload webhook.OrderPaidPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		// Malformed bodies are acknowledged; retrying cannot fix them.
		s.logger.Warn("orders-paid payload unparseable",
			zap.String("shop_domain", shopDomain), zap.Error(err))
		s.recordOutcome(OutcomeUnparseable)
		return OutcomeUnparseable, nil
	}

	ticketID, ok := webhook.TicketID(&payload)
	if !ok {
		s.recordOutcome(OutcomeNoTicketRef)
		return OutcomeNoTicketRef, nil
	}
	orderID, ok := webhook.OrderID(&payload)
	if !ok {
		s.logger.Warn("orders-paid payload missing order id",
			zap.String("shop_domain", shopDomain),
			zap.String("ticket_id", ticketID))
		s.recordOutcome(OutcomeUnparseable)
		return OutcomeUnparseable, nil
	}

	unlock := s.locks.Lock(ticketID)
	defer unlock()

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Info("orders-paid references unknown ticket",
				zap.String("shop_domain", shopDomain),
				zap.String("ticket_id", ticketID))
			s.recordOutcome(OutcomeUnknownTicket)
			return OutcomeUnknownTicket, nil
		}
		return "", apperrors.MapError(err)
	}
	if ticket.ShopDomain != shopDomain {
		s.recordOutcome(OutcomeUnknownTicket)
		return OutcomeUnknownTicket, nil
	}

	if ticket.DepositPaymentOrderID != nil && *ticket.DepositPaymentOrderID == orderID && ticket.DepositCollectedAt != nil {
		s.recordOutcome(OutcomeDuplicate)
		return OutcomeDuplicate, nil
	}

	collectedAt := time.Now()
	if eventTime := webhook.EventTime(&payload); eventTime != nil {
		collectedAt = *eventTime
	}
	amount := webhook.DepositAmount(&payload)
	method := webhook.PaymentMethod(&payload)
	var orderName *string
	if payload.Name != "" {
		orderName = &payload.Name
	}

	if err := s.tickets.SetDepositCollection(ctx, ticket.ID, repository.DepositCollection{
		OrderID:       orderID,
		OrderName:     orderName,
		PaymentMethod: method,
		CollectedAt:   collectedAt,
		Amount:        amount,
	}); err != nil {
		return "", apperrors.MapError(err)
	}

	if err := s.audit.Create(ctx, &domain.AuditLogEntry{
		TicketID: ticket.ID,
		Actor:    domain.SystemActor,
		Action:   domain.AuditDepositCollected,
		Meta: domain.DepositCollectedMeta{
			ShopDomain:    shopDomain,
			OrderID:       orderID,
			OrderName:     orderName,
			PaymentMethod: method,
			DepositAmount: amount,
			SourceName:    payload.SourceName,
			ProcessedAt:   &collectedAt,
		},
	}); err != nil {
		return "", apperrors.MapError(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventDepositCollected,
			TicketID:  ticket.ID,
			Actor:     domain.SystemActor,
			Timestamp: time.Now(),
			Payload: events.DepositCollectedPayload{
				OrderID:       orderID,
				OrderName:     orderName,
				PaymentMethod: method,
				Amount:        amount,
			},
		})
	}

	s.logger.Info("deposit payment recorded",
		zap.String("shop_domain", shopDomain),
		zap.String("ticket_id", ticket.ID),
		zap.String("order_id", orderID))
	s.recordOutcome(OutcomeRecorded)
	return OutcomeRecorded, nil
}

func (s *ReconcileService) recordOutcome(outcome ReconcileOutcome) {
	if s.metrics != nil {
		s.metrics.RecordWebhook("orders/paid", string(outcome))
	}
}
