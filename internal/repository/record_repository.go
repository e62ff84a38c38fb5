package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/resolution-engine/internal/domain"
)

type recordRepository struct {
	pool *pgxpool.Pool
}

// NewRecordRepository instantiates the Postgres-backed financial record store.
func NewRecordRepository(pool *pgxpool.Pool) RecordStore {
	return &recordRepository{pool: pool}
}

func (r *recordRepository) SearchRecords(ctx context.Context, filter RecordFilter) ([]domain.FinancialRecord, error) {
	base := `SELECT id, kind, vendor, amount, payment_status, cross_ref, updated_at
             FROM financial_records`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Identifier != nil {
		args = append(args, strings.TrimSpace(*filter.Identifier))
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(id=%s OR cross_ref=%s)", placeholder, placeholder))
	}
	if filter.Vendor != nil {
		args = append(args, strings.TrimSpace(*filter.Vendor))
		clauses = append(clauses, fmt.Sprintf("LOWER(vendor)=LOWER($%d)", len(args)))
	}
	if filter.Amount != nil {
		args = append(args, *filter.Amount)
		clauses = append(clauses, fmt.Sprintf("ROUND(amount::numeric,2)=ROUND($%d::numeric,2)", len(args)))
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY id", base, strings.Join(clauses, " AND "))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows pgx.Rows) ([]domain.FinancialRecord, error) {
	var result []domain.FinancialRecord
	for rows.Next() {
		var rec domain.FinancialRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.Kind,
			&rec.Vendor,
			&rec.Amount,
			&rec.PaymentStatus,
			&rec.CrossRef,
			&rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}
