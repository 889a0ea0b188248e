package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AuditAction tags an audit log entry with the operation that produced it.
type AuditAction string

const (
	AuditTicketCreated     AuditAction = "ticket_created"
	AuditStatusUpdated     AuditAction = "status_updated"
	AuditTechnicianUpdated AuditAction = "technician_updated"
	AuditFinalOrderCreated AuditAction = "final_order_created"
	AuditTicketClosed      AuditAction = "ticket_closed"
	AuditDepositCollected  AuditAction = "deposit_collected"
	AuditPartAdded         AuditAction = "part_added"
	AuditPartUpdated       AuditAction = "part_updated"
	AuditPartRemoved       AuditAction = "part_removed"
	AuditPhotosUpdated     AuditAction = "photos_updated"
)

// SystemActor identifies entries written by the service itself rather than an
// authenticated operator.
const SystemActor = "system"

// AuditMeta is the tagged metadata union: each action has exactly one payload
// shape, keyed by the entry's action tag.
type AuditMeta interface {
	AuditAction() AuditAction
}

// AuditLogEntry is an immutable record of one state-affecting operation.
// Entries are append-only and never mutated or deleted.
type AuditLogEntry struct {
	ID        string
	TicketID  string
	Actor     string
	Action    AuditAction
	Meta      AuditMeta
	CreatedAt time.Time
}

// TicketCreatedMeta payload.
type TicketCreatedMeta struct {
	CustomerID    string           `json:"customer_id"`
	QuotedAmount  *decimal.Decimal `json:"quoted_amount,omitempty"`
	DepositAmount decimal.Decimal  `json:"deposit_amount"`
}

func (TicketCreatedMeta) AuditAction() AuditAction { return AuditTicketCreated }

// StatusUpdatedMeta payload.
type StatusUpdatedMeta struct {
	OldStatus TicketStatus `json:"old_status"`
	NewStatus TicketStatus `json:"new_status"`
	Notes     string       `json:"notes,omitempty"`
}

func (StatusUpdatedMeta) AuditAction() AuditAction { return AuditStatusUpdated }

// TechnicianUpdatedMeta payload.
type TechnicianUpdatedMeta struct {
	OldTechnicianID *string `json:"old_technician_id"`
	NewTechnicianID *string `json:"new_technician_id"`
	Notes           string  `json:"notes,omitempty"`
}

func (TechnicianUpdatedMeta) AuditAction() AuditAction { return AuditTechnicianUpdated }

// FinalOrderCreatedMeta payload.
type FinalOrderCreatedMeta struct {
	FinalOrderID    string          `json:"final_order_id"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	QuotedAmount    decimal.Decimal `json:"quoted_amount"`
	PartsTotal      decimal.Decimal `json:"parts_total"`
	PartsCount      int             `json:"parts_count"`
	DepositAmount   decimal.Decimal `json:"deposit_amount"`
}

func (FinalOrderCreatedMeta) AuditAction() AuditAction { return AuditFinalOrderCreated }

// TicketClosedMeta payload, capturing the balance at closure time.
type TicketClosedMeta struct {
	FinalOrderID    *string         `json:"final_order_id"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
}

func (TicketClosedMeta) AuditAction() AuditAction { return AuditTicketClosed }

// DepositCollectedMeta payload, written by webhook reconciliation.
type DepositCollectedMeta struct {
	ShopDomain    string           `json:"shop_domain"`
	OrderID       string           `json:"order_id"`
	OrderName     *string          `json:"order_name,omitempty"`
	PaymentMethod *string          `json:"payment_method,omitempty"`
	DepositAmount *decimal.Decimal `json:"deposit_amount,omitempty"`
	SourceName    string           `json:"source_name,omitempty"`
	ProcessedAt   *time.Time       `json:"processed_at,omitempty"`
}

func (DepositCollectedMeta) AuditAction() AuditAction { return AuditDepositCollected }

// PartChangedMeta payload shared by part add/update/remove entries.
type PartChangedMeta struct {
	PartID          string          `json:"part_id"`
	Name            *string         `json:"name,omitempty"`
	SKU             *string         `json:"sku,omitempty"`
	Quantity        int             `json:"quantity"`
	Cost            decimal.Decimal `json:"cost"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`

	action AuditAction
}

func (m PartChangedMeta) AuditAction() AuditAction { return m.action }

// WithAction binds a part-change payload to one of the part action tags.
func (m PartChangedMeta) WithAction(action AuditAction) PartChangedMeta {
	m.action = action
	return m
}

// PhotosUpdatedMeta payload.
type PhotosUpdatedMeta struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
	Count   int      `json:"count"`
}

func (PhotosUpdatedMeta) AuditAction() AuditAction { return AuditPhotosUpdated }

// DecodeAuditMeta unmarshals a stored metadata document into the payload type
// matching the action tag.
func DecodeAuditMeta(action AuditAction, raw []byte) (AuditMeta, error) {
	switch action {
	case AuditTicketCreated:
		var meta TicketCreatedMeta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, err
		}
		return meta, nil
	case AuditStatusUpdated:
		var meta StatusUpdatedMeta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, err
		}
		return meta, nil
	case AuditTechnicianUpdated:
		var meta TechnicianUpdatedMeta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, err
		}
		return meta, nil
	case AuditFinalOrderCreated:
		var meta FinalOrderCreatedMeta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, err
		}
		return meta, nil
	case AuditTicketClosed:
		var meta TicketClosedMeta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, err
		}
		return meta, nil
	case AuditDepositCollected:
		var meta DepositCollectedMeta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, err
		}
		return meta, nil
	case AuditPartAdded, AuditPartUpdated, AuditPartRemoved:
		var meta PartChangedMeta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, err
		}
		return meta.WithAction(action), nil
	case AuditPhotosUpdated:
		var meta PhotosUpdatedMeta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, err
		}
		return meta, nil
	default:
		return nil, fmt.Errorf("unknown audit action %q", action)
	}
}
