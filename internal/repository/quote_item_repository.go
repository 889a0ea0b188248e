package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repair-pilot/internal/domain"
)

// QuoteItemRepository persists the informational quote itemization.
type QuoteItemRepository interface {
	CreateMany(ctx context.Context, items []domain.QuoteItem) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.QuoteItem, error)
}

type quoteItemRepository struct {
	pool *pgxpool.Pool
}

// NewQuoteItemRepository constructs repository.
func NewQuoteItemRepository(pool *pgxpool.Pool) QuoteItemRepository {
	return &quoteItemRepository{pool: pool}
}

func (r *quoteItemRepository) CreateMany(ctx context.Context, items []domain.QuoteItem) error {
	const query = `
        INSERT INTO quote_items (ticket_id, item_type, description, amount, display_order)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	for i := range items {
		item := &items[i]
		if err := r.pool.QueryRow(ctx, query,
			item.TicketID,
			item.Type,
			item.Description,
			item.Amount,
			item.DisplayOrder,
		).Scan(&item.ID, &item.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

func (r *quoteItemRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.QuoteItem, error) {
	const query = `
        SELECT id, ticket_id, item_type, description, amount, display_order, created_at
        FROM quote_items WHERE ticket_id=$1 ORDER BY display_order ASC, created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.QuoteItem
	for rows.Next() {
		var item domain.QuoteItem
		if err := rows.Scan(
			&item.ID,
			&item.TicketID,
			&item.Type,
			&item.Description,
			&item.Amount,
			&item.DisplayOrder,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}
