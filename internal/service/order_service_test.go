package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCreatePaymentOrderSendsInvoice(t *testing.T) {
	fake := &fakeCommerce{}
	svc := NewOrderService(fake, zap.NewNop())

	result, err := svc.CreatePaymentOrder(context.Background(), "cust-1", "Repair Balance - Ticket #abc12345", decimal.RequireFromString("150"), "note")
	require.NoError(t, err)
	assert.True(t, result.InvoiceSent)
	assert.NoError(t, result.InvoiceErr)
	assert.Equal(t, []string{result.OrderID}, fake.invoices)
}

func TestCreatePaymentOrderInvoiceFailureIsPartial(t *testing.T) {
	fake := &fakeCommerce{invoiceErr: errors.New("mail gateway down")}
	svc := NewOrderService(fake, zap.NewNop())

	result, err := svc.CreatePaymentOrder(context.Background(), "cust-1", "Repair Balance", decimal.RequireFromString("150"), "note")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.InvoiceSent)
	assert.Error(t, result.InvoiceErr)
	assert.NotEmpty(t, result.OrderID)
}

func TestCreatePaymentOrderFailurePropagates(t *testing.T) {
	fake := &fakeCommerce{createErr: errors.New("upstream 500")}
	svc := NewOrderService(fake, zap.NewNop())

	_, err := svc.CreatePaymentOrder(context.Background(), "cust-1", "Repair Balance", decimal.RequireFromString("150"), "note")
	require.Error(t, err)
}
