package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteItemType categorizes a quote line.
type QuoteItemType string

const (
	QuoteItemDiagnostic QuoteItemType = "DIAGNOSTIC"
	QuoteItemParts      QuoteItemType = "PARTS"
	QuoteItemLabor      QuoteItemType = "LABOR"
	QuoteItemAdditional QuoteItemType = "ADDITIONAL"
)

// IsValidQuoteItemType reports whether the value is a known quote line type.
func IsValidQuoteItemType(itemType QuoteItemType) bool {
	switch itemType {
	case QuoteItemDiagnostic, QuoteItemParts, QuoteItemLabor, QuoteItemAdditional:
		return true
	}
	return false
}

// QuoteItem is an ordered, informational itemization of a ticket's quote.
// The ticket's QuotedAmount remains the authoritative total.
type QuoteItem struct {
	ID           string
	TicketID     string
	Type         QuoteItemType
	Description  string
	Amount       decimal.Decimal
	DisplayOrder int
	CreatedAt    time.Time
}
