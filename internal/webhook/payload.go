package webhook

import "encoding/json"

// Attribute is a key/value pair attached to an order or line item. The
// commerce platform emits either name/value or key/val depending on surface.
type Attribute struct {
	Name  string          `json:"name"`
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
	Val   json.RawMessage `json:"val"`
}

// Money is an amount/currency pair.
type Money struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currency_code"`
}

// MoneySet carries an amount in shop and presentment currencies.
type MoneySet struct {
	ShopMoney        *Money `json:"shop_money"`
	PresentmentMoney *Money `json:"presentment_money"`
}

// LineItem is one order line with its optional custom properties.
type LineItem struct {
	ID         int64       `json:"id"`
	Title      string      `json:"title"`
	Quantity   int         `json:"quantity"`
	Price      string      `json:"price"`
	PriceSet   *MoneySet   `json:"price_set"`
	Properties []Attribute `json:"properties"`
}

// OrderPaidPayload is the order-paid event body delivered by the commerce
// platform. Delivery is at-least-once with no ordering guarantee.
type OrderPaidPayload struct {
	ID                  int64       `json:"id"`
	AdminGraphQLAPIID   string      `json:"admin_graphql_api_id"`
	Name                string      `json:"name"`
	SourceName          string      `json:"source_name"`
	PaymentGatewayNames []string    `json:"payment_gateway_names"`
	ProcessedAt         string      `json:"processed_at"`
	ClosedAt            string      `json:"closed_at"`
	CreatedAt           string      `json:"created_at"`
	NoteAttributes      []Attribute `json:"note_attributes"`
	Attributes          []Attribute `json:"attributes"`
	LineItems           []LineItem  `json:"line_items"`

	TotalPrice           string    `json:"total_price"`
	SubtotalPrice        string    `json:"subtotal_price"`
	CurrentTotalPriceSet *MoneySet `json:"current_total_price_set"`
	TotalPriceSet        *MoneySet `json:"total_price_set"`
}
