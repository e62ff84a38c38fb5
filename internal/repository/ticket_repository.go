package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/resolution-engine/internal/domain"
)

const ticketColumns = `id, category, status, requester_name, requester_email, assigned_team,
               manager_email, description, invoice_number, po_number, vendor, amount,
               created_at, updated_at, closed_at`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the Postgres-backed ticket store.
func NewTicketRepository(pool *pgxpool.Pool) TicketStore {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) ListOpenTickets(ctx context.Context) ([]domain.Ticket, error) {
	const query = `
        SELECT ` + ticketColumns + `
        FROM tickets WHERE status=$1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, domain.TicketStatusOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT ` + ticketColumns + `
        FROM tickets WHERE id=$1`
	row := r.pool.QueryRow(ctx, query, id)
	ticket, err := scanTicket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) UpdateTicketStatus(ctx context.Context, id string, expected, next domain.TicketStatus) error {
	cmd, err := r.pool.Exec(ctx, statusUpdateSQL, next, closedAtFor(next), id, expected)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// statusUpdateSQL only matches when the caller's expected status still holds,
// which is what makes concurrent transitions detectable.
const statusUpdateSQL = `
        UPDATE tickets SET status=$1, closed_at=$2, updated_at=NOW()
        WHERE id=$3 AND status=$4`

func (r *ticketRepository) ApplyResolution(ctx context.Context, id string, expected, next domain.TicketStatus, res *domain.Resolution) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx, statusUpdateSQL, next, closedAtFor(next), id, expected)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrConflict
	}
	if err := insertResolution(ctx, tx, res); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ticketRepository) AppendResolution(ctx context.Context, res *domain.Resolution) error {
	return insertResolution(ctx, r.pool, res)
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx so the resolution
// insert can run standalone or inside the status transaction.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func insertResolution(ctx context.Context, db execer, res *domain.Resolution) error {
	const query = `
        INSERT INTO resolutions (id, ticket_id, outcome, record_id, rationale, decided_by, decided_at, delivery, delivery_attempts)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := db.Exec(ctx, query,
		res.ID,
		res.TicketID,
		res.Outcome,
		res.RecordID,
		res.Rationale,
		res.DecidedBy,
		res.DecidedAt,
		res.Delivery,
		res.DeliveryAttempts,
	)
	return err
}

func (r *ticketRepository) LatestResolution(ctx context.Context, ticketID string) (*domain.Resolution, error) {
	const query = `
        SELECT id, ticket_id, outcome, record_id, rationale, decided_by, decided_at, delivery, delivery_attempts
        FROM resolutions WHERE ticket_id=$1 ORDER BY decided_at DESC LIMIT 1`
	var res domain.Resolution
	err := r.pool.QueryRow(ctx, query, ticketID).Scan(
		&res.ID,
		&res.TicketID,
		&res.Outcome,
		&res.RecordID,
		&res.Rationale,
		&res.DecidedBy,
		&res.DecidedAt,
		&res.Delivery,
		&res.DeliveryAttempts,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *ticketRepository) UpdateDelivery(ctx context.Context, resolutionID string, status domain.DeliveryStatus, attempts int) error {
	const query = `
        UPDATE resolutions SET delivery=$1, delivery_attempts=$2 WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, status, attempts, resolutionID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func closedAtFor(next domain.TicketStatus) *time.Time {
	if next != domain.TicketStatusClosed {
		return nil
	}
	now := time.Now()
	return &now
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Category,
		&ticket.Status,
		&ticket.RequesterName,
		&ticket.RequesterEmail,
		&ticket.AssignedTeam,
		&ticket.ManagerEmail,
		&ticket.Description,
		&ticket.References.InvoiceNumber,
		&ticket.References.PONumber,
		&ticket.References.Vendor,
		&ticket.References.Amount,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
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
