package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-pilot/internal/api/dto"
	"github.com/spec-kit/repair-pilot/internal/auth"
	"github.com/spec-kit/repair-pilot/internal/domain"
	"github.com/spec-kit/repair-pilot/internal/repository"
	"github.com/spec-kit/repair-pilot/internal/service"
	apperrors "github.com/spec-kit/repair-pilot/pkg/util"
)

// TicketsHandler manages operator ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.CustomerID) == "" {
		return apperrors.NewValidationError("customer_id required", nil)
	}

	quoteItems := make([]service.QuoteItemInput, 0, len(req.QuoteItems))
	for _, item := range req.QuoteItems {
		quoteItems = append(quoteItems, service.QuoteItemInput{
			Type:        domain.QuoteItemType(strings.ToUpper(item.Type)),
			Description: item.Description,
			Amount:      item.Amount,
		})
	}

	input := service.TicketCreateInput{
		CustomerID:       req.CustomerID,
		TechnicianID:     req.TechnicianID,
		DeviceType:       req.DeviceType,
		DeviceBrand:      req.DeviceBrand,
		DeviceModel:      req.DeviceModel,
		Serial:           req.Serial,
		IssueDescription: req.IssueDescription,
		QuotedAmount:     req.QuotedAmount,
		DepositAmount:    req.DepositAmount,
		QuoteItems:       quoteItems,
		PaymentMode:      service.PaymentMode(req.PaymentMode),
	}
	result, err := h.service.CreateTicket(c.Context(), principal.ShopDomain(), principal.Actor(), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.CreateTicketResponse{
		Ticket:           ticketSummary(result.Ticket),
		IntakeOrderID:    result.IntakeOrderID,
		IntakeInvoiceURL: result.IntakeInvoiceURL,
		Warnings:         result.Warnings,
	}})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	tickets, err := h.service.ListTickets(c.Context(), principal.ShopDomain(), parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	detail, err := h.service.GetTicket(c.Context(), principal.ShopDomain(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(detail)})
}

// UpdateStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.StatusUpdateInput{Notes: req.Notes}
	if req.Status != nil {
		status := domain.TicketStatus(strings.ToUpper(strings.TrimSpace(*req.Status)))
		input.Status = &status
	}
	if req.TechnicianID != nil {
		input.TechnicianSet = true
		input.TechnicianID = req.TechnicianID
	} else if req.ClearTechnician {
		input.TechnicianSet = true
	}

	result, err := h.service.UpdateStatus(c.Context(), principal.ShopDomain(), principal.Actor(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StatusUpdateResponse{
		Ticket:       ticketSummary(result.Ticket),
		FinalOrderID: result.FinalOrderID,
		Warnings:     result.Warnings,
	}})
}

// AddPhotos POST /tickets/:id/photos.
func (h *TicketsHandler) AddPhotos(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	var req dto.PhotosRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.AddPhotos(c.Context(), principal.ShopDomain(), principal.Actor(), c.Params("id"), req.Photos)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"photos": ticket.Photos}})
}

// RemovePhoto DELETE /tickets/:id/photos.
func (h *TicketsHandler) RemovePhoto(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	var req dto.RemovePhotoRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.URL) == "" {
		return apperrors.NewValidationError("url required", nil)
	}
	ticket, err := h.service.RemovePhoto(c.Context(), principal.ShopDomain(), principal.Actor(), c.Params("id"), req.URL)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"photos": ticket.Photos}})
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(strings.TrimSpace(part))))
		}
	}
	if technician := c.Query("technician_id"); technician != "" {
		filter.TechnicianID = &technician
	}
	if customer := c.Query("customer_id"); customer != "" {
		filter.CustomerID = &customer
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:              ticket.ID,
		Status:          ticket.Status,
		CustomerID:      ticket.CustomerID,
		TechnicianID:    ticket.TechnicianID,
		DeviceType:      ticket.DeviceType,
		DeviceBrand:     ticket.DeviceBrand,
		DeviceModel:     ticket.DeviceModel,
		QuotedAmount:    ticket.QuotedAmount,
		DepositAmount:   ticket.DepositAmount,
		RemainingAmount: ticket.RemainingAmount,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
	}
}

func ticketDetail(detail *service.TicketDetail) dto.TicketDetailResponse {
	ticket := detail.Ticket

	parts := make([]dto.PartResponse, 0, len(detail.Parts))
	for i := range detail.Parts {
		parts = append(parts, partResponse(&detail.Parts[i]))
	}
	quoteItems := make([]dto.QuoteItemResponse, 0, len(detail.QuoteItems))
	for _, item := range detail.QuoteItems {
		quoteItems = append(quoteItems, dto.QuoteItemResponse{
			ID:          item.ID,
			Type:        item.Type,
			Description: item.Description,
			Amount:      item.Amount,
		})
	}
	trail := make([]dto.AuditResponse, 0, len(detail.AuditTrail))
	for _, entry := range detail.AuditTrail {
		trail = append(trail, dto.AuditResponse{
			ID:        entry.ID,
			Actor:     entry.Actor,
			Action:    entry.Action,
			Meta:      entry.Meta,
			CreatedAt: entry.CreatedAt,
		})
	}

	return dto.TicketDetailResponse{
		ID:               ticket.ID,
		Status:           ticket.Status,
		CustomerID:       ticket.CustomerID,
		TechnicianID:     ticket.TechnicianID,
		DeviceType:       ticket.DeviceType,
		DeviceBrand:      ticket.DeviceBrand,
		DeviceModel:      ticket.DeviceModel,
		Serial:           ticket.Serial,
		IssueDescription: ticket.IssueDescription,
		Photos:           ticket.Photos,

		QuotedAmount:    ticket.QuotedAmount,
		DepositAmount:   ticket.DepositAmount,
		RemainingAmount: ticket.RemainingAmount,

		IntakeOrderID: ticket.IntakeOrderID,
		FinalOrderID:  ticket.FinalOrderID,

		DepositPaymentOrderID:   ticket.DepositPaymentOrderID,
		DepositPaymentOrderName: ticket.DepositPaymentOrderName,
		DepositPaymentMethod:    ticket.DepositPaymentMethod,
		DepositCollectedAt:      ticket.DepositCollectedAt,
		DepositCollectedAmount:  ticket.DepositCollectedAmount,

		Parts:      parts,
		QuoteItems: quoteItems,
		AuditTrail: trail,

		CreatedAt: ticket.CreatedAt,
		UpdatedAt: ticket.UpdatedAt,
	}
}

func partResponse(part *domain.PartUsed) dto.PartResponse {
	return dto.PartResponse{
		ID:        part.ID,
		Name:      part.Name,
		SKU:       part.SKU,
		Quantity:  part.Quantity,
		Cost:      part.Cost,
		Total:     part.Total(),
		CreatedAt: part.CreatedAt,
	}
}
