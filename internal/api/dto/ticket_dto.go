package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/repair-pilot/internal/domain"
)

// QuoteItemRequest is one quote line submitted on intake.
type QuoteItemRequest struct {
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// CreateTicketRequest is the intake payload.
type CreateTicketRequest struct {
	CustomerID       string             `json:"customer_id"`
	TechnicianID     *string            `json:"technician_id"`
	DeviceType       *string            `json:"device_type"`
	DeviceBrand      *string            `json:"device_brand"`
	DeviceModel      *string            `json:"device_model"`
	Serial           *string            `json:"serial"`
	IssueDescription *string            `json:"issue_description"`
	QuotedAmount     *decimal.Decimal   `json:"quoted_amount"`
	DepositAmount    decimal.Decimal    `json:"deposit_amount"`
	QuoteItems       []QuoteItemRequest `json:"quote_items"`
	PaymentMode      string             `json:"payment_mode"`
}

// UpdateStatusRequest carries a status and/or technician change.
// ClearTechnician unassigns; a non-nil TechnicianID reassigns.
type UpdateStatusRequest struct {
	Status          *string `json:"status"`
	TechnicianID    *string `json:"technician_id"`
	ClearTechnician bool    `json:"clear_technician"`
	Notes           string  `json:"notes"`
}

// PartRequest carries a part's fields for add and update.
type PartRequest struct {
	Name     *string         `json:"name"`
	SKU      *string         `json:"sku"`
	Quantity int             `json:"quantity"`
	Cost     decimal.Decimal `json:"cost"`
}

// PhotosRequest adds photo URLs to a ticket.
type PhotosRequest struct {
	Photos []string `json:"photos"`
}

// RemovePhotoRequest removes one photo URL.
type RemovePhotoRequest struct {
	URL string `json:"url"`
}

// TicketSummary is the board listing shape.
type TicketSummary struct {
	ID              string              `json:"id"`
	Status          domain.TicketStatus `json:"status"`
	CustomerID      string              `json:"customer_id"`
	TechnicianID    *string             `json:"technician_id,omitempty"`
	DeviceType      *string             `json:"device_type,omitempty"`
	DeviceBrand     *string             `json:"device_brand,omitempty"`
	DeviceModel     *string             `json:"device_model,omitempty"`
	QuotedAmount    *decimal.Decimal    `json:"quoted_amount,omitempty"`
	DepositAmount   decimal.Decimal     `json:"deposit_amount"`
	RemainingAmount decimal.Decimal     `json:"remaining_amount"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// TicketDetailResponse is the full ticket shape with owned collections.
type TicketDetailResponse struct {
	ID               string              `json:"id"`
	Status           domain.TicketStatus `json:"status"`
	CustomerID       string              `json:"customer_id"`
	TechnicianID     *string             `json:"technician_id,omitempty"`
	DeviceType       *string             `json:"device_type,omitempty"`
	DeviceBrand      *string             `json:"device_brand,omitempty"`
	DeviceModel      *string             `json:"device_model,omitempty"`
	Serial           *string             `json:"serial,omitempty"`
	IssueDescription *string             `json:"issue_description,omitempty"`
	Photos           []string            `json:"photos"`

	QuotedAmount    *decimal.Decimal `json:"quoted_amount,omitempty"`
	DepositAmount   decimal.Decimal  `json:"deposit_amount"`
	RemainingAmount decimal.Decimal  `json:"remaining_amount"`

	IntakeOrderID *string `json:"intake_order_id,omitempty"`
	FinalOrderID  *string `json:"final_order_id,omitempty"`

	DepositPaymentOrderID   *string          `json:"deposit_payment_order_id,omitempty"`
	DepositPaymentOrderName *string          `json:"deposit_payment_order_name,omitempty"`
	DepositPaymentMethod    *string          `json:"deposit_payment_method,omitempty"`
	DepositCollectedAt      *time.Time       `json:"deposit_collected_at,omitempty"`
	DepositCollectedAmount  *decimal.Decimal `json:"deposit_collected_amount,omitempty"`

	Parts      []PartResponse      `json:"parts"`
	QuoteItems []QuoteItemResponse `json:"quote_items"`
	AuditTrail []AuditResponse     `json:"audit_trail"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PartResponse is one parts-register row.
type PartResponse struct {
	ID        string          `json:"id"`
	Name      *string         `json:"name,omitempty"`
	SKU       *string         `json:"sku,omitempty"`
	Quantity  int             `json:"quantity"`
	Cost      decimal.Decimal `json:"cost"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

// QuoteItemResponse is one quote line.
type QuoteItemResponse struct {
	ID          string               `json:"id"`
	Type        domain.QuoteItemType `json:"type"`
	Description string               `json:"description"`
	Amount      decimal.Decimal      `json:"amount"`
}

// AuditResponse is one audit-trail entry.
type AuditResponse struct {
	ID        string             `json:"id"`
	Actor     string             `json:"actor"`
	Action    domain.AuditAction `json:"action"`
	Meta      domain.AuditMeta   `json:"meta"`
	CreatedAt time.Time          `json:"created_at"`
}

// PartMutationResponse reports the affected part plus the rederived balance.
type PartMutationResponse struct {
	Part            PartResponse    `json:"part"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
}

// StatusUpdateResponse reports the transitioned ticket.
type StatusUpdateResponse struct {
	Ticket       TicketSummary `json:"ticket"`
	FinalOrderID *string       `json:"final_order_id,omitempty"`
	Warnings     []string      `json:"warnings,omitempty"`
}

// CreateTicketResponse reports the created ticket and intake order.
type CreateTicketResponse struct {
	Ticket           TicketSummary `json:"ticket"`
	IntakeOrderID    *string       `json:"intake_order_id,omitempty"`
	IntakeInvoiceURL *string       `json:"intake_invoice_url,omitempty"`
	Warnings         []string      `json:"warnings,omitempty"`
}
