package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/repair-pilot/internal/domain"
)

// TicketFilter captures board listing parameters.
type TicketFilter struct {
	Statuses     []domain.TicketStatus
	TechnicianID *string
	CustomerID   *string
	Limit        int
	Offset       int
}

// DepositCollection carries the payment-collection fields written by webhook
// reconciliation.
type DepositCollection struct {
	OrderID       string
	OrderName     *string
	PaymentMethod *string
	CollectedAt   time.Time
	Amount        *decimal.Decimal
}

// TicketRepository encapsulates ticket persistence. SetIntakeOrderID and
// SetFinalOrderID are conditional writes: they claim the column only when it
// is still NULL and report whether this caller won the claim.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListByShop(ctx context.Context, shopDomain string, filter TicketFilter) ([]domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) error
	SetRemainingAmount(ctx context.Context, id string, amount decimal.Decimal) error
	SetIntakeOrderID(ctx context.Context, id, orderID string) (bool, error)
	SetFinalOrderID(ctx context.Context, id, orderID string) (bool, error)
	SetPhotos(ctx context.Context, id string, photos []string) error
	SetDepositCollection(ctx context.Context, id string, collection DepositCollection) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, shop_domain, status, customer_id, technician_id,
        device_type, device_brand, device_model, serial, issue_description, photos,
        quoted_amount, deposit_amount, remaining_amount,
        intake_order_id, final_order_id,
        deposit_payment_order_id, deposit_payment_order_name, deposit_payment_method,
        deposit_collected_at, deposit_collected_amount,
        created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (shop_domain, status, customer_id, technician_id,
            device_type, device_brand, device_model, serial, issue_description, photos,
            quoted_amount, deposit_amount, remaining_amount)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ShopDomain,
		ticket.Status,
		ticket.CustomerID,
		ticket.TechnicianID,
		ticket.DeviceType,
		ticket.DeviceBrand,
		ticket.DeviceModel,
		ticket.Serial,
		ticket.IssueDescription,
		ticket.Photos,
		nullDecimal(ticket.QuotedAmount),
		ticket.DepositAmount,
		ticket.RemainingAmount,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanTicket(row)
}

func (r *ticketRepository) ListByShop(ctx context.Context, shopDomain string, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"shop_domain=$1"}
	args := []any{shopDomain}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.TechnicianID != nil {
		args = append(args, *filter.TechnicianID)
		clauses = append(clauses, fmt.Sprintf("technician_id=$%d", len(args)))
	}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, technician_id=$2, device_type=$3, device_brand=$4,
            device_model=$5, serial=$6, issue_description=$7,
            quoted_amount=$8, deposit_amount=$9, remaining_amount=$10, updated_at=NOW()
        WHERE id=$11`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Status,
		ticket.TechnicianID,
		ticket.DeviceType,
		ticket.DeviceBrand,
		ticket.DeviceModel,
		ticket.Serial,
		ticket.IssueDescription,
		nullDecimal(ticket.QuotedAmount),
		ticket.DepositAmount,
		ticket.RemainingAmount,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) SetRemainingAmount(ctx context.Context, id string, amount decimal.Decimal) error {
	const query = `UPDATE tickets SET remaining_amount=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, amount, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) SetIntakeOrderID(ctx context.Context, id, orderID string) (bool, error) {
	const query = `
        UPDATE tickets SET intake_order_id=$1, updated_at=NOW()
        WHERE id=$2 AND intake_order_id IS NULL`
	cmd, err := r.pool.Exec(ctx, query, orderID, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *ticketRepository) SetFinalOrderID(ctx context.Context, id, orderID string) (bool, error) {
	const query = `
        UPDATE tickets SET final_order_id=$1, updated_at=NOW()
        WHERE id=$2 AND final_order_id IS NULL`
	cmd, err := r.pool.Exec(ctx, query, orderID, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *ticketRepository) SetPhotos(ctx context.Context, id string, photos []string) error {
	const query = `UPDATE tickets SET photos=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, photos, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) SetDepositCollection(ctx context.Context, id string, collection DepositCollection) error {
	const query = `
        UPDATE tickets SET deposit_payment_order_id=$1, deposit_payment_order_name=$2,
            deposit_payment_method=$3, deposit_collected_at=$4,
            deposit_collected_amount=COALESCE($5, deposit_collected_amount), updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		collection.OrderID,
		collection.OrderName,
		collection.PaymentMethod,
		collection.CollectedAt,
		nullDecimal(collection.Amount),
		id,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	var quoted, collected decimal.NullDecimal
	if err := row.Scan(
		&ticket.ID,
		&ticket.ShopDomain,
		&ticket.Status,
		&ticket.CustomerID,
		&ticket.TechnicianID,
		&ticket.DeviceType,
		&ticket.DeviceBrand,
		&ticket.DeviceModel,
		&ticket.Serial,
		&ticket.IssueDescription,
		&ticket.Photos,
		&quoted,
		&ticket.DepositAmount,
		&ticket.RemainingAmount,
		&ticket.IntakeOrderID,
		&ticket.FinalOrderID,
		&ticket.DepositPaymentOrderID,
		&ticket.DepositPaymentOrderName,
		&ticket.DepositPaymentMethod,
		&ticket.DepositCollectedAt,
		&collected,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if quoted.Valid {
		ticket.QuotedAmount = &quoted.Decimal
	}
	if collected.Valid {
		ticket.DepositCollectedAmount = &collected.Decimal
	}
	return &ticket, nil
}

func nullDecimal(value *decimal.Decimal) decimal.NullDecimal {
	if value == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *value, Valid: true}
}
