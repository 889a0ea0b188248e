// Package commerce wraps the commerce-platform API surface the core consumes:
// payment order creation, invoice dispatch, and order-status reads. Customer
// and staff lookups are out of scope.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/repair-pilot/internal/config"
)

// LineItem is one line of a payment order.
type LineItem struct {
	Title    string          `json:"title"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// OrderInput describes a payment order to create.
type OrderInput struct {
	CustomerID string     `json:"customer_id"`
	LineItems  []LineItem `json:"line_items"`
	Note       string     `json:"note"`
}

// Order is a created payment order.
type Order struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	InvoiceURL string `json:"invoice_url,omitempty"`
}

// OrderStatus is the read-path view of an order.
type OrderStatus struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	IsPaid          bool   `json:"is_paid"`
	FinancialStatus string `json:"financial_status"`
	OrderName       string `json:"order_name"`
}

// Client is the commerce-platform API consumed by the order orchestrator and
// the order-status read path.
type Client interface {
	CreateOrder(ctx context.Context, input OrderInput) (*Order, error)
	SendInvoice(ctx context.Context, orderID string) error
	GetOrderStatus(ctx context.Context, orderID string) (*OrderStatus, error)
}

type httpClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient builds the HTTP-backed client. Every call carries the
// configured request timeout; a timed-out call behaves as a failing external
// service and never blocks the triggering mutation indefinitely.
func NewHTTPClient(cfg config.CommerceConfig) Client {
	return &httpClient{
		baseURL: cfg.BaseURL,
		token:   cfg.AccessToken,
		client:  &http.Client{Timeout: cfg.RequestTimeout()},
	}
}

func (c *httpClient) CreateOrder(ctx context.Context, input OrderInput) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodPost, "/orders", input, &order); err != nil {
		return nil, err
	}
	if order.ID == "" {
		return nil, fmt.Errorf("commerce API returned order without id")
	}
	return &order, nil
}

func (c *httpClient) SendInvoice(ctx context.Context, orderID string) error {
	path := fmt.Sprintf("/orders/%s/invoice", orderID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

func (c *httpClient) GetOrderStatus(ctx context.Context, orderID string) (*OrderStatus, error) {
	var status OrderStatus
	path := fmt.Sprintf("/orders/%s/status", orderID)
	if err := c.do(ctx, http.MethodGet, path, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *httpClient) do(ctx context.Context, method, path string, body, out any) error {
	var payload *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(encoded)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("commerce API %s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
