package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-engine/internal/domain"
)

// SubscriptionRepository encapsulates subscription persistence.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *domain.Subscription) error
	GetByName(ctx context.Context, name string) (*domain.Subscription, error)
	UpdateExpiry(ctx context.Context, name string, expiresAt time.Time) error
	ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]domain.Subscription, error)
	TouchReminder(ctx context.Context, id string, at time.Time) error
}

type subscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepository instantiates repository.
func NewSubscriptionRepository(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepository{pool: pool}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	const query = `
        INSERT INTO subscriptions (name, owner_id, cost, expires_at, notes)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		sub.Name,
		sub.OwnerID,
		sub.Cost,
		sub.ExpiresAt,
		sub.Notes,
	).Scan(&sub.ID, &sub.CreatedAt)
}

func (r *subscriptionRepository) GetByName(ctx context.Context, name string) (*domain.Subscription, error) {
	const query = `
        SELECT id, name, owner_id, cost, expires_at, notes, last_reminder_at, created_at
        FROM subscriptions WHERE name=$1`
	var sub domain.Subscription
	if err := r.pool.QueryRow(ctx, query, name).Scan(
		&sub.ID,
		&sub.Name,
		&sub.OwnerID,
		&sub.Cost,
		&sub.ExpiresAt,
		&sub.Notes,
		&sub.LastReminderAt,
		&sub.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) UpdateExpiry(ctx context.Context, name string, expiresAt time.Time) error {
	const query = `UPDATE subscriptions SET expires_at=$1 WHERE name=$2`
	cmd, err := r.pool.Exec(ctx, query, expiresAt, name)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *subscriptionRepository) ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]domain.Subscription, error) {
	const query = `
        SELECT id, name, owner_id, cost, expires_at, notes, last_reminder_at, created_at
        FROM subscriptions WHERE expires_at IS NOT NULL AND expires_at <= $1
        ORDER BY expires_at ASC`
	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Subscription
	for rows.Next() {
		var sub domain.Subscription
		if err := rows.Scan(
			&sub.ID,
			&sub.Name,
			&sub.OwnerID,
			&sub.Cost,
			&sub.ExpiresAt,
			&sub.Notes,
			&sub.LastReminderAt,
			&sub.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, sub)
	}
	return result, rows.Err()
}

func (r *subscriptionRepository) TouchReminder(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE subscriptions SET last_reminder_at=$1 WHERE id=$2`
	_, err := r.pool.Exec(ctx, query, at, id)
	return err
}
