// Command fulfillment-export dumps the fulfillments table as gzip-compressed
// JSON lines, one record per line, for reconciliation against the order
// backend and the payment provider dashboard.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/flyerapp/fulfillment/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		outPath     string
		sinceDays   int
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&outPath, "out", "fulfillments.jsonl.gz", "output file path")
	flag.IntVar(&sinceDays, "since-days", 0, "export only records newer than N days (0 = all)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, outPath, sinceDays); err != nil {
		slog.Error("fulfillment export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("fulfillment export completed successfully")
}

func run(ctx context.Context, databaseURL, outPath string, sinceDays int) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	cutoff := time.Time{}
	if sinceDays > 0 {
		cutoff = time.Now().AddDate(0, 0, -sinceDays)
	}

	rows, err := pool.Query(ctx, `SELECT session_id, order_ids, user_id, total, created_at
FROM fulfillments WHERE created_at >= $1 ORDER BY created_at`, cutoff)
	if err != nil {
		return errors.Wrap(err, "query fulfillments")
	}
	defer rows.Close()

	f, err := os.Create(outPath)
	if err != nil {
		return errors.Wrapf(err, "create %s", outPath)
	}
	defer func() { _ = f.Close() }()

	gz := pgzip.NewWriter(f)

	var (
		enc   jx.Encoder
		count int
	)
	for rows.Next() {
		var (
			sessionID string
			orderIDs  []string
			userID    string
			total     decimal.Decimal
			createdAt time.Time
		)
		if err := rows.Scan(&sessionID, &orderIDs, &userID, &total, &createdAt); err != nil {
			return errors.Wrap(err, "scan row")
		}

		enc.Reset()
		enc.Obj(func(e *jx.Encoder) {
			e.Field("session_id", func(e *jx.Encoder) { e.Str(sessionID) })
			e.Field("order_ids", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, id := range orderIDs {
						e.Str(id)
					}
				})
			})
			e.Field("user_id", func(e *jx.Encoder) { e.Str(userID) })
			e.Field("total", func(e *jx.Encoder) { e.Str(total.String()) })
			e.Field("created_at", func(e *jx.Encoder) { e.Str(createdAt.UTC().Format(time.RFC3339)) })
		})
		if _, err := gz.Write(append(enc.Bytes(), '\n')); err != nil {
			return errors.Wrap(err, "write record")
		}
		count++

		if count%10_000 == 0 {
			slog.Info("export progress", slog.Int("records", count))
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "iterate fulfillments")
	}

	if err := gz.Close(); err != nil {
		return errors.Wrap(err, "finalize gzip stream")
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "close %s", outPath)
	}

	slog.Info("export written", slog.String("path", outPath), slog.Int("records", count))
	return nil
}
