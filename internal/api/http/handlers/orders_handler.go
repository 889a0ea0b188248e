package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-pilot/internal/auth"
	"github.com/spec-kit/repair-pilot/internal/service"
	apperrors "github.com/spec-kit/repair-pilot/pkg/util"
)

// OrdersHandler exposes the payment-order read path.
type OrdersHandler struct {
	orders *service.OrderService
}

// NewOrdersHandler constructs handler.
func NewOrdersHandler(orders *service.OrderService) *OrdersHandler {
	return &OrdersHandler{orders: orders}
}

// GetStatus GET /orders/:id/status.
func (h *OrdersHandler) GetStatus(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	orderID := strings.TrimSpace(c.Params("id"))
	if orderID == "" {
		return apperrors.NewValidationError("order id required", nil)
	}

	status, err := h.orders.OrderStatus(c.UserContext(), orderID)
	if err != nil {
		return apperrors.NewExternalServiceError("order status", err)
	}
	return c.JSON(fiber.Map{"data": status})
}
