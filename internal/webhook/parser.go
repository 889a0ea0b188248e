// Package webhook parses order-paid event payloads. The extraction heuristics
// live here, isolated from reconciliation, so they can change without
// touching the invariant-bearing update logic.
package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Property keys stamped onto orders created by this app.
const (
	TicketIDAttributeKey    = "repairpilot_ticket_id"
	PaymentTypeAttributeKey = "repairpilot_payment_type"
	PaymentTypeDeposit      = "deposit"
)

// AttributeValue searches note attributes first, then order attributes, for a
// case-insensitive key match and returns the value as a string.
func AttributeValue(payload *OrderPaidPayload, key string) (string, bool) {
	combined := make([]Attribute, 0, len(payload.NoteAttributes)+len(payload.Attributes))
	combined = append(combined, payload.NoteAttributes...)
	combined = append(combined, payload.Attributes...)

	for _, attribute := range combined {
		if value, ok := matchAttribute(attribute, key); ok {
			return value, true
		}
	}
	return "", false
}

// TicketID extracts the ticket reference, checking note attributes and every
// line item's properties. Absence is common: most orders are unrelated.
func TicketID(payload *OrderPaidPayload) (string, bool) {
	if id, ok := AttributeValue(payload, TicketIDAttributeKey); ok {
		return id, true
	}
	for _, item := range payload.LineItems {
		for _, property := range item.Properties {
			if value, ok := matchAttribute(property, TicketIDAttributeKey); ok {
				return value, true
			}
		}
	}
	return "", false
}

// OrderID returns the canonical order reference: the global API id when
// present, otherwise one derived from the numeric id.
func OrderID(payload *OrderPaidPayload) (string, bool) {
	if payload.AdminGraphQLAPIID != "" {
		return payload.AdminGraphQLAPIID, true
	}
	if payload.ID != 0 {
		return fmt.Sprintf("gid://commerce/Order/%d", payload.ID), true
	}
	return "", false
}

// PaymentMethod joins the order's payment gateway labels.
func PaymentMethod(payload *OrderPaidPayload) *string {
	if len(payload.PaymentGatewayNames) == 0 {
		return nil
	}
	method := strings.Join(payload.PaymentGatewayNames, ", ")
	return &method
}

// DepositLine finds the line item carrying the deposit payment-type property.
func DepositLine(payload *OrderPaidPayload) *LineItem {
	for i := range payload.LineItems {
		for _, property := range payload.LineItems[i].Properties {
			value, ok := matchAttribute(property, PaymentTypeAttributeKey)
			if ok && strings.EqualFold(value, PaymentTypeDeposit) {
				return &payload.LineItems[i]
			}
		}
	}
	return nil
}

// DepositAmount resolves the best-effort collected amount. Candidates are
// tried in priority order: deposit line price (shop money, presentment money,
// bare price), then order current total, total, and subtotal. The first value
// that parses to a non-negative decimal wins.
func DepositAmount(payload *OrderPaidPayload) *decimal.Decimal {
	candidates := []string{}
	if line := DepositLine(payload); line != nil {
		if line.PriceSet != nil && line.PriceSet.ShopMoney != nil {
			candidates = append(candidates, line.PriceSet.ShopMoney.Amount)
		}
		if line.PriceSet != nil && line.PriceSet.PresentmentMoney != nil {
			candidates = append(candidates, line.PriceSet.PresentmentMoney.Amount)
		}
		candidates = append(candidates, line.Price)
	}
	if payload.CurrentTotalPriceSet != nil && payload.CurrentTotalPriceSet.ShopMoney != nil {
		candidates = append(candidates, payload.CurrentTotalPriceSet.ShopMoney.Amount)
	}
	if payload.TotalPriceSet != nil && payload.TotalPriceSet.ShopMoney != nil {
		candidates = append(candidates, payload.TotalPriceSet.ShopMoney.Amount)
	}
	candidates = append(candidates, payload.TotalPrice, payload.SubtotalPrice)

	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		amount, err := decimal.NewFromString(candidate)
		if err != nil || amount.IsNegative() {
			continue
		}
		return &amount
	}
	return nil
}

// EventTime resolves the payment timestamp: processed_at, then closed_at,
// then created_at. Nil when none parse.
func EventTime(payload *OrderPaidPayload) *time.Time {
	for _, candidate := range []string{payload.ProcessedAt, payload.ClosedAt, payload.CreatedAt} {
		if candidate == "" {
			continue
		}
		if ts, err := time.Parse(time.RFC3339, candidate); err == nil {
			return &ts
		}
	}
	return nil
}

func matchAttribute(attribute Attribute, key string) (string, bool) {
	name := attribute.Name
	if name == "" {
		name = attribute.Key
	}
	if !strings.EqualFold(name, key) {
		return "", false
	}
	raw := attribute.Value
	if len(raw) == 0 {
		raw = attribute.Val
	}
	if len(raw) == 0 {
		return "", false
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, true
	}
	// Non-string values (numbers, booleans) are used verbatim.
	return strings.TrimSpace(string(raw)), true
}
