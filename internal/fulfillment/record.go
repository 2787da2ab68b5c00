// Package fulfillment turns a completed payment session into created orders.
package fulfillment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by Repository.Get when no record exists for the
// session.
var ErrNotFound = errors.New("fulfillment record not found")

// Record is the durable outcome of one fulfilled payment session. Its
// presence makes replays of the success redirect idempotent.
type Record struct {
	SessionID string
	OrderIDs  []string
	UserID    string
	Total     decimal.Decimal
	CreatedAt time.Time
}

// Repository stores fulfillment records keyed by payment session ID.
type Repository interface {
	Get(ctx context.Context, sessionID string) (*Record, error)
	Create(ctx context.Context, r *Record) error
}
