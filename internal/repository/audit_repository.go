package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repair-pilot/internal/domain"
)

// AuditLogRepository stores the append-only audit trail. Entries are never
// updated or deleted.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *domain.AuditLogEntry) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.AuditLogEntry, error)
}

type auditLogRepository struct {
	pool *pgxpool.Pool
}

// NewAuditLogRepository builds repository.
func NewAuditLogRepository(pool *pgxpool.Pool) AuditLogRepository {
	return &auditLogRepository{pool: pool}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *domain.AuditLogEntry) error {
	if entry.Meta == nil {
		return fmt.Errorf("audit entry for %s missing metadata", entry.Action)
	}
	if entry.Meta.AuditAction() != entry.Action {
		return fmt.Errorf("audit metadata tag %s does not match action %s",
			entry.Meta.AuditAction(), entry.Action)
	}
	meta, err := json.Marshal(entry.Meta)
	if err != nil {
		return fmt.Errorf("encode audit metadata: %w", err)
	}

	const query = `
        INSERT INTO audit_log (ticket_id, actor, action, meta)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.Actor,
		entry.Action,
		meta,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *auditLogRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.AuditLogEntry, error) {
	const query = `
        SELECT id, ticket_id, actor, action, meta, created_at
        FROM audit_log WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditLogEntry
	for rows.Next() {
		var entry domain.AuditLogEntry
		var raw []byte
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.Actor,
			&entry.Action,
			&raw,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		meta, err := domain.DecodeAuditMeta(entry.Action, raw)
		if err != nil {
			return nil, fmt.Errorf("decode audit metadata for entry %s: %w", entry.ID, err)
		}
		entry.Meta = meta
		result = append(result, entry)
	}
	return result, rows.Err()
}
