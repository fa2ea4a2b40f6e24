package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-engine/internal/domain"
)

// RenewalRepository encapsulates renewal-request persistence.
type RenewalRepository interface {
	Create(ctx context.Context, req *domain.RenewalRequest) error
	GetByID(ctx context.Context, id string) (*domain.RenewalRequest, error)
	ListByStatus(ctx context.Context, statuses []domain.RenewalStatus, limit, offset int) ([]domain.RenewalRequest, error)
	// Decide atomically moves an undecided request (PENDING or
	// CONTESTED) to the given status. It returns false when the request
	// was already terminal, so the caller can surface AlreadyTerminal
	// without a separate read-modify-write race.
	Decide(ctx context.Context, id string, to domain.RenewalStatus, operatorID int64, notes *string, processedAt time.Time) (bool, error)
	// Approve runs the terminal-status CAS and the subscription expiry
	// extension in one transaction, so a storage fault rolls both back
	// and the request stays retryable. The subscription is created when
	// absent, owned by the requester. Returns the new expiry and
	// whether the CAS won.
	Approve(ctx context.Context, req *domain.RenewalRequest, operatorID int64, notes *string, processedAt time.Time, extensionDays int) (time.Time, bool, error)
}

type renewalRepository struct {
	pool *pgxpool.Pool
}

// NewRenewalRepository instantiates repository.
func NewRenewalRepository(pool *pgxpool.Pool) RenewalRepository {
	return &renewalRepository{pool: pool}
}

func (r *renewalRepository) Create(ctx context.Context, req *domain.RenewalRequest) error {
	const query = `
        INSERT INTO renewal_requests (requester_id, subscription_name, months, cost, status)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		req.RequesterID,
		req.SubscriptionName,
		req.Months,
		req.Cost,
		req.Status,
	).Scan(&req.ID, &req.CreatedAt)
}

func (r *renewalRepository) GetByID(ctx context.Context, id string) (*domain.RenewalRequest, error) {
	const query = `
        SELECT id, requester_id, subscription_name, months, cost, status, operator_notes, created_at, processed_at, processed_by
        FROM renewal_requests WHERE id=$1`
	var req domain.RenewalRequest
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&req.ID,
		&req.RequesterID,
		&req.SubscriptionName,
		&req.Months,
		&req.Cost,
		&req.Status,
		&req.OperatorNotes,
		&req.CreatedAt,
		&req.ProcessedAt,
		&req.ProcessedBy,
	); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *renewalRepository) ListByStatus(ctx context.Context, statuses []domain.RenewalStatus, limit, offset int) ([]domain.RenewalRequest, error) {
	const query = `
        SELECT id, requester_id, subscription_name, months, cost, status, operator_notes, created_at, processed_at, processed_by
        FROM renewal_requests WHERE status = ANY($1) ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	values := make([]string, len(statuses))
	for i, status := range statuses {
		values[i] = string(status)
	}
	rows, err := r.pool.Query(ctx, query, values, normalizeLimit(limit), normalizeOffset(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRenewals(rows)
}

func (r *renewalRepository) Decide(ctx context.Context, id string, to domain.RenewalStatus, operatorID int64, notes *string, processedAt time.Time) (bool, error) {
	const query = `
        UPDATE renewal_requests
        SET status=$1, processed_at=$2, processed_by=$3, operator_notes=COALESCE($4, operator_notes)
        WHERE id=$5 AND status IN ('PENDING','CONTESTED')`
	cmd, err := r.pool.Exec(ctx, query, to, processedAt, operatorID, notes, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *renewalRepository) Approve(ctx context.Context, req *domain.RenewalRequest, operatorID int64, notes *string, processedAt time.Time, extensionDays int) (time.Time, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return time.Time{}, false, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const decide = `
        UPDATE renewal_requests
        SET status='APPROVED', processed_at=$1, processed_by=$2, operator_notes=COALESCE($3, operator_notes)
        WHERE id=$4 AND status IN ('PENDING','CONTESTED')`
	cmd, err := tx.Exec(ctx, decide, processedAt, operatorID, notes, req.ID)
	if err != nil {
		return time.Time{}, false, err
	}
	if cmd.RowsAffected() == 0 {
		return time.Time{}, false, nil
	}

	var current *time.Time
	err = tx.QueryRow(ctx,
		`SELECT expires_at FROM subscriptions WHERE name=$1 FOR UPDATE`,
		req.SubscriptionName,
	).Scan(&current)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		expiry := processedAt.AddDate(0, 0, extensionDays)
		if _, err := tx.Exec(ctx,
			`INSERT INTO subscriptions (name, owner_id, cost, expires_at) VALUES ($1,$2,$3,$4)`,
			req.SubscriptionName, req.RequesterID, req.Cost, expiry,
		); err != nil {
			return time.Time{}, false, err
		}
		return expiry, true, tx.Commit(ctx)
	case err != nil:
		return time.Time{}, false, err
	}

	base := processedAt
	if current != nil && current.After(processedAt) {
		base = *current
	}
	expiry := base.AddDate(0, 0, extensionDays)
	if _, err := tx.Exec(ctx,
		`UPDATE subscriptions SET expires_at=$1 WHERE name=$2`,
		expiry, req.SubscriptionName,
	); err != nil {
		return time.Time{}, false, err
	}
	return expiry, true, tx.Commit(ctx)
}

func scanRenewals(rows pgx.Rows) ([]domain.RenewalRequest, error) {
	var result []domain.RenewalRequest
	for rows.Next() {
		var req domain.RenewalRequest
		if err := rows.Scan(
			&req.ID,
			&req.RequesterID,
			&req.SubscriptionName,
			&req.Months,
			&req.Cost,
			&req.Status,
			&req.OperatorNotes,
			&req.CreatedAt,
			&req.ProcessedAt,
			&req.ProcessedBy,
		); err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	return result, rows.Err()
}
