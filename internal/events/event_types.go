package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/repair-pilot/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated     EventType = "ticket_created"
	EventStatusChanged     EventType = "ticket_status_changed"
	EventTechnicianChanged EventType = "ticket_technician_changed"
	EventFinalOrderCreated EventType = "final_order_created"
	EventDepositCollected  EventType = "deposit_collected"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CustomerID    string           `json:"customer_id"`
	QuotedAmount  *decimal.Decimal `json:"quoted_amount,omitempty"`
	DepositAmount decimal.Decimal  `json:"deposit_amount"`
	IntakeOrderID *string          `json:"intake_order_id,omitempty"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Notes     string              `json:"notes,omitempty"`
}

// TechnicianChangedPayload payload.
type TechnicianChangedPayload struct {
	OldTechnicianID *string `json:"old_technician_id,omitempty"`
	NewTechnicianID *string `json:"new_technician_id,omitempty"`
}

// FinalOrderCreatedPayload payload.
type FinalOrderCreatedPayload struct {
	FinalOrderID    string          `json:"final_order_id"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	InvoiceSent     bool            `json:"invoice_sent"`
}

// DepositCollectedPayload payload.
type DepositCollectedPayload struct {
	OrderID       string           `json:"order_id"`
	OrderName     *string          `json:"order_name,omitempty"`
	PaymentMethod *string          `json:"payment_method,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
}
