package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flyerapp/fulfillment/internal/fulfillment"
)

var _ fulfillment.Repository = (*FulfillmentRepository)(nil)

// FulfillmentRepository implements fulfillment.Repository backed by
// PostgreSQL.
type FulfillmentRepository struct {
	pool *pgxpool.Pool
}

// NewFulfillmentRepository returns a FulfillmentRepository that uses the
// given pool.
func NewFulfillmentRepository(pool *pgxpool.Pool) *FulfillmentRepository {
	return &FulfillmentRepository{pool: pool}
}

// Get loads the fulfillment record for a payment session.
func (r *FulfillmentRepository) Get(ctx context.Context, sessionID string) (*fulfillment.Record, error) {
	const q = `SELECT session_id, order_ids, user_id, total, created_at
FROM fulfillments WHERE session_id = $1`

	var rec fulfillment.Record
	err := r.pool.QueryRow(ctx, q, sessionID).Scan(
		&rec.SessionID, &rec.OrderIDs, &rec.UserID, &rec.Total, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fulfillment.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get fulfillment %q", sessionID)
	}
	return &rec, nil
}

// Create persists a fulfillment record. Creating the same session twice is a
// conflict; the record for a session is written exactly once.
func (r *FulfillmentRepository) Create(ctx context.Context, rec *fulfillment.Record) error {
	const q = `INSERT INTO fulfillments (session_id, order_ids, user_id, total)
VALUES ($1, $2, $3, $4)`

	if _, err := r.pool.Exec(ctx, q,
		rec.SessionID, rec.OrderIDs, rec.UserID, rec.Total); err != nil {
		return errors.Wrapf(err, "create fulfillment %q", rec.SessionID)
	}
	return nil
}
