package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-pilot/internal/commerce"
)

// OrderService wraps payment-order creation and invoice dispatch behind one
// idempotent-by-caller contract: the orchestrator itself keeps no idempotency
// state. Callers guard with the stored intake/final order id before invoking
// it. Invoice failure does not undo order creation; it is reported as a
// partial success.
type OrderService struct {
	client commerce.Client
	logger *zap.Logger
}

// NewOrderService constructs the orchestrator.
func NewOrderService(client commerce.Client, logger *zap.Logger) *OrderService {
	return &OrderService{client: client, logger: logger}
}

// OrderResult reports the created order and whether its invoice went out.
type OrderResult struct {
	OrderID     string
	OrderName   string
	InvoiceURL  string
	InvoiceSent bool
	InvoiceErr  error
}

// CreatePaymentOrder creates a payment order for the amount and sends its
// invoice. Returns an error only when order creation itself fails.
func (s *OrderService) CreatePaymentOrder(ctx context.Context, customerID, title string, amount decimal.Decimal, note string) (*OrderResult, error) {
	order, err := s.client.CreateOrder(ctx, commerce.OrderInput{
		CustomerID: customerID,
		LineItems: []commerce.LineItem{{
			Title:    title,
			Quantity: 1,
			Price:    amount,
		}},
		Note: note,
	})
	if err != nil {
		return nil, err
	}

	result := &OrderResult{
		OrderID:    order.ID,
		OrderName:  order.Name,
		InvoiceURL: order.InvoiceURL,
	}

	if err := s.client.SendInvoice(ctx, order.ID); err != nil {
		s.logger.Warn("invoice send failed",
			zap.String("order_id", order.ID),
			zap.Error(err))
		result.InvoiceErr = err
		return result, nil
	}
	result.InvoiceSent = true
	return result, nil
}

// OrderStatus proxies the read path for an existing order.
func (s *OrderService) OrderStatus(ctx context.Context, orderID string) (*commerce.OrderStatus, error) {
	return s.client.GetOrderStatus(ctx, orderID)
}
