package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-pilot/internal/service"
	apperrors "github.com/spec-kit/repair-pilot/pkg/util"
)

// Webhook headers set by the commerce platform on every delivery.
const (
	HeaderWebhookHMAC = "X-Commerce-Hmac-Sha256"
	HeaderShopDomain  = "X-Commerce-Shop-Domain"
)

// WebhooksHandler receives commerce-platform webhook deliveries. It sits
// outside operator auth; authenticity comes from the HMAC signature.
type WebhooksHandler struct {
	reconcile *service.ReconcileService
	secret    []byte
	logger    *zap.Logger
}

// NewWebhooksHandler constructs handler.
func NewWebhooksHandler(reconcile *service.ReconcileService, secret string, logger *zap.Logger) *WebhooksHandler {
	return &WebhooksHandler{reconcile: reconcile, secret: []byte(secret), logger: logger}
}

// OrdersPaid POST /webhooks/orders-paid. Always answers 200 for deliveries
// that cannot be applied (unrelated order, unknown ticket, duplicate); a
// non-2xx response would only trigger pointless retries. Store failures
// return 500 so the delivery is retried.
func (h *WebhooksHandler) OrdersPaid(c *fiber.Ctx) error {
	body := c.Body()
	if !h.verifySignature(body, c.Get(HeaderWebhookHMAC)) {
		return apperrors.NewUnauthorized("invalid webhook signature")
	}

	shopDomain := c.Get(HeaderShopDomain)
	if shopDomain == "" {
		return apperrors.NewValidationError("missing shop domain header", nil)
	}

	outcome, err := h.reconcile.ProcessOrderPaid(c.UserContext(), shopDomain, body)
	if err != nil {
		h.logger.Error("orders-paid processing failed",
			zap.String("shop_domain", shopDomain), zap.Error(err))
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"outcome": outcome}})
}

func (h *WebhooksHandler) verifySignature(body []byte, signature string) bool {
	if len(h.secret) == 0 {
		// No secret configured: dev mode, accept everything.
		return true
	}
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
