package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-pilot/internal/api/dto"
	"github.com/spec-kit/repair-pilot/internal/auth"
	"github.com/spec-kit/repair-pilot/internal/service"
	apperrors "github.com/spec-kit/repair-pilot/pkg/util"
)

// PartsHandler manages the per-ticket parts register endpoints.
type PartsHandler struct {
	service *service.PartsService
}

// NewPartsHandler constructs handler.
func NewPartsHandler(partsService *service.PartsService) *PartsHandler {
	return &PartsHandler{service: partsService}
}

// ListParts GET /tickets/:id/parts.
func (h *PartsHandler) ListParts(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	parts, err := h.service.ListParts(c.Context(), principal.ShopDomain(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.PartResponse, 0, len(parts))
	for i := range parts {
		items = append(items, partResponse(&parts[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddPart POST /tickets/:id/parts.
func (h *PartsHandler) AddPart(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	var req dto.PartRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.service.AddPart(c.Context(), principal.ShopDomain(), principal.Actor(), c.Params("id"), service.PartInput{
		Name:     req.Name,
		SKU:      req.SKU,
		Quantity: req.Quantity,
		Cost:     req.Cost,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.PartMutationResponse{
		Part:            partResponse(result.Part),
		RemainingAmount: result.RemainingAmount,
	}})
}

// UpdatePart PUT /tickets/:id/parts/:partId.
func (h *PartsHandler) UpdatePart(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	var req dto.PartRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.service.UpdatePart(c.Context(), principal.ShopDomain(), principal.Actor(), c.Params("id"), c.Params("partId"), service.PartInput{
		Name:     req.Name,
		SKU:      req.SKU,
		Quantity: req.Quantity,
		Cost:     req.Cost,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.PartMutationResponse{
		Part:            partResponse(result.Part),
		RemainingAmount: result.RemainingAmount,
	}})
}

// RemovePart DELETE /tickets/:id/parts/:partId.
func (h *PartsHandler) RemovePart(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	result, err := h.service.RemovePart(c.Context(), principal.ShopDomain(), principal.Actor(), c.Params("id"), c.Params("partId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"removed":          true,
		"remaining_amount": result.RemainingAmount,
	}})
}
