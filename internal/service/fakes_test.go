package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/repair-pilot/internal/commerce"
	"github.com/spec-kit/repair-pilot/internal/domain"
	"github.com/spec-kit/repair-pilot/internal/repository"
)

type memTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *stored
	return &copied, nil
}

func (r *memTicketRepo) ListByShop(_ context.Context, shopDomain string, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Ticket{}
	for _, ticket := range r.tickets {
		if ticket.ShopDomain != shopDomain {
			continue
		}
		if len(filter.Statuses) > 0 {
			matched := false
			for _, status := range filter.Statuses {
				if ticket.Status == status {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		out = append(out, *ticket)
	}
	return out, nil
}

func (r *memTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	copied := *ticket
	// Order-id claims go through the conditional setters only.
	copied.IntakeOrderID = stored.IntakeOrderID
	copied.FinalOrderID = stored.FinalOrderID
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *memTicketRepo) SetRemainingAmount(_ context.Context, id string, amount decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.RemainingAmount = amount
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *memTicketRepo) SetIntakeOrderID(_ context.Context, id, orderID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if stored.IntakeOrderID != nil {
		return false, nil
	}
	stored.IntakeOrderID = &orderID
	return true, nil
}

func (r *memTicketRepo) SetFinalOrderID(_ context.Context, id, orderID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if stored.FinalOrderID != nil {
		return false, nil
	}
	stored.FinalOrderID = &orderID
	return true, nil
}

func (r *memTicketRepo) SetPhotos(_ context.Context, id string, photos []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Photos = append([]string{}, photos...)
	return nil
}

func (r *memTicketRepo) SetDepositCollection(_ context.Context, id string, collection repository.DepositCollection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.DepositPaymentOrderID = &collection.OrderID
	stored.DepositPaymentOrderName = collection.OrderName
	stored.DepositPaymentMethod = collection.PaymentMethod
	collectedAt := collection.CollectedAt
	stored.DepositCollectedAt = &collectedAt
	if collection.Amount != nil {
		amount := *collection.Amount
		stored.DepositCollectedAmount = &amount
	}
	return nil
}

type memPartRepo struct {
	mu    sync.Mutex
	parts map[string]*domain.PartUsed
}

func newMemPartRepo() *memPartRepo {
	return &memPartRepo{parts: make(map[string]*domain.PartUsed)}
}

func (r *memPartRepo) Create(_ context.Context, part *domain.PartUsed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if part.ID == "" {
		part.ID = uuid.NewString()
	}
	part.CreatedAt = time.Now()
	copied := *part
	r.parts[part.ID] = &copied
	return nil
}

func (r *memPartRepo) Update(_ context.Context, part *domain.PartUsed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.parts[part.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *part
	r.parts[part.ID] = &copied
	return nil
}

func (r *memPartRepo) Delete(_ context.Context, id, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.parts[id]
	if !ok || stored.TicketID != ticketID {
		return pgx.ErrNoRows
	}
	delete(r.parts, id)
	return nil
}

func (r *memPartRepo) GetByID(_ context.Context, id string) (*domain.PartUsed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.parts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *stored
	return &copied, nil
}

func (r *memPartRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.PartUsed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.PartUsed{}
	for _, part := range r.parts {
		if part.TicketID == ticketID {
			out = append(out, *part)
		}
	}
	return out, nil
}

type memAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditLogEntry
}

func newMemAuditRepo() *memAuditRepo {
	return &memAuditRepo{}
}

func (r *memAuditRepo) Create(_ context.Context, entry *domain.AuditLogEntry) error {
	if entry.Meta == nil {
		return errors.New("audit meta required")
	}
	if entry.Meta.AuditAction() != entry.Action {
		return fmt.Errorf("audit meta tag %q does not match action %q", entry.Meta.AuditAction(), entry.Action)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memAuditRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.AuditLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.AuditLogEntry{}
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *memAuditRepo) countByAction(ticketID string, action domain.AuditAction) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, entry := range r.entries {
		if entry.TicketID == ticketID && entry.Action == action {
			count++
		}
	}
	return count
}

func (r *memAuditRepo) lastByAction(ticketID string, action domain.AuditAction) *domain.AuditLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].TicketID == ticketID && r.entries[i].Action == action {
			entry := r.entries[i]
			return &entry
		}
	}
	return nil
}

type memQuoteRepo struct {
	mu    sync.Mutex
	items []domain.QuoteItem
}

func newMemQuoteRepo() *memQuoteRepo {
	return &memQuoteRepo{}
}

func (r *memQuoteRepo) CreateMany(_ context.Context, items []domain.QuoteItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		item.ID = uuid.NewString()
		item.CreatedAt = time.Now()
		r.items = append(r.items, item)
	}
	return nil
}

func (r *memQuoteRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.QuoteItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.QuoteItem{}
	for _, item := range r.items {
		if item.TicketID == ticketID {
			out = append(out, item)
		}
	}
	return out, nil
}

// fakeCommerce counts order creations and can fail on demand.
type fakeCommerce struct {
	mu          sync.Mutex
	createCalls int
	invoices    []string
	createErr   error
	invoiceErr  error
	status      *commerce.OrderStatus
}

func (f *fakeCommerce) CreateOrder(_ context.Context, input commerce.OrderInput) (*commerce.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.createCalls++
	id := fmt.Sprintf("gid://commerce/Order/%d", f.createCalls)
	return &commerce.Order{
		ID:         id,
		Name:       fmt.Sprintf("#%d", 1000+f.createCalls),
		InvoiceURL: "https://pay.example.com/" + id,
	}, nil
}

func (f *fakeCommerce) SendInvoice(_ context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.invoiceErr != nil {
		return f.invoiceErr
	}
	f.invoices = append(f.invoices, orderID)
	return nil
}

func (f *fakeCommerce) GetOrderStatus(_ context.Context, orderID string) (*commerce.OrderStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != nil {
		return f.status, nil
	}
	return &commerce.OrderStatus{ID: orderID, Status: "open"}, nil
}

func (f *fakeCommerce) orderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls
}
