package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketStatus enumerates lifecycle states for repair tickets.
type TicketStatus string

const (
	TicketStatusIntake        TicketStatus = "INTAKE"
	TicketStatusDiagnosing    TicketStatus = "DIAGNOSING"
	TicketStatusAwaitingParts TicketStatus = "AWAITING_PARTS"
	TicketStatusInProgress    TicketStatus = "IN_PROGRESS"
	TicketStatusQA            TicketStatus = "QA"
	TicketStatusReady         TicketStatus = "READY"
	TicketStatusClosed        TicketStatus = "CLOSED"
	TicketStatusOnHold        TicketStatus = "ON_HOLD"
	TicketStatusRefunded      TicketStatus = "REFUNDED"
)

// AllTicketStatuses lists every valid status value. Any status may follow any
// other; the lifecycle is a labeled graph whose edges carry side effects, not
// a restricted transition table.
var AllTicketStatuses = []TicketStatus{
	TicketStatusIntake,
	TicketStatusDiagnosing,
	TicketStatusAwaitingParts,
	TicketStatusInProgress,
	TicketStatusQA,
	TicketStatusReady,
	TicketStatusClosed,
	TicketStatusOnHold,
	TicketStatusRefunded,
}

// IsValidTicketStatus reports whether the value is a known status.
func IsValidTicketStatus(status TicketStatus) bool {
	for _, candidate := range AllTicketStatuses {
		if candidate == status {
			return true
		}
	}
	return false
}

// IsCompletedStatus reports whether the status is conventionally terminal.
func IsCompletedStatus(status TicketStatus) bool {
	return status == TicketStatusClosed || status == TicketStatusRefunded
}

// Ticket is the repair work-order aggregate. RemainingAmount is derived and
// never set directly by callers; IntakeOrderID and FinalOrderID are each set
// at most once per ticket lifetime.
type Ticket struct {
	ID               string
	ShopDomain       string
	Status           TicketStatus
	CustomerID       string
	TechnicianID     *string
	DeviceType       *string
	DeviceBrand      *string
	DeviceModel      *string
	Serial           *string
	IssueDescription *string
	Photos           []string

	QuotedAmount    *decimal.Decimal
	DepositAmount   decimal.Decimal
	RemainingAmount decimal.Decimal

	IntakeOrderID *string
	FinalOrderID  *string

	DepositPaymentOrderID   *string
	DepositPaymentOrderName *string
	DepositPaymentMethod    *string
	DepositCollectedAt      *time.Time
	DepositCollectedAmount  *decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ShortRef returns the trailing ticket id fragment used in order titles.
func (t *Ticket) ShortRef() string {
	if len(t.ID) <= 8 {
		return t.ID
	}
	return t.ID[len(t.ID)-8:]
}
