package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repair-pilot/internal/domain"
)

// PartRepository persists parts used by tickets.
type PartRepository interface {
	Create(ctx context.Context, part *domain.PartUsed) error
	Update(ctx context.Context, part *domain.PartUsed) error
	Delete(ctx context.Context, id, ticketID string) error
	GetByID(ctx context.Context, id string) (*domain.PartUsed, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.PartUsed, error)
}

type partRepository struct {
	pool *pgxpool.Pool
}

// NewPartRepository constructs repository.
func NewPartRepository(pool *pgxpool.Pool) PartRepository {
	return &partRepository{pool: pool}
}

func (r *partRepository) Create(ctx context.Context, part *domain.PartUsed) error {
	const query = `
        INSERT INTO parts_used (ticket_id, name, sku, quantity, cost)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		part.TicketID,
		part.Name,
		part.SKU,
		part.Quantity,
		part.Cost,
	).Scan(&part.ID, &part.CreatedAt, &part.UpdatedAt)
}

func (r *partRepository) Update(ctx context.Context, part *domain.PartUsed) error {
	const query = `
        UPDATE parts_used SET name=$1, sku=$2, quantity=$3, cost=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		part.Name,
		part.SKU,
		part.Quantity,
		part.Cost,
		part.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *partRepository) Delete(ctx context.Context, id, ticketID string) error {
	const query = `DELETE FROM parts_used WHERE id=$1 AND ticket_id=$2`
	cmd, err := r.pool.Exec(ctx, query, id, ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *partRepository) GetByID(ctx context.Context, id string) (*domain.PartUsed, error) {
	const query = `
        SELECT id, ticket_id, name, sku, quantity, cost, created_at, updated_at
        FROM parts_used WHERE id=$1`
	var part domain.PartUsed
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&part.ID,
		&part.TicketID,
		&part.Name,
		&part.SKU,
		&part.Quantity,
		&part.Cost,
		&part.CreatedAt,
		&part.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &part, nil
}

func (r *partRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.PartUsed, error) {
	const query = `
        SELECT id, ticket_id, name, sku, quantity, cost, created_at, updated_at
        FROM parts_used WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PartUsed
	for rows.Next() {
		var part domain.PartUsed
		if err := rows.Scan(
			&part.ID,
			&part.TicketID,
			&part.Name,
			&part.SKU,
			&part.Quantity,
			&part.Cost,
			&part.CreatedAt,
			&part.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, part)
	}
	return result, rows.Err()
}
