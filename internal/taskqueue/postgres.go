package taskqueue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SQL statements kept as constants for clarity and reuse
const (
	createTableSQL = `
CREATE TABLE IF NOT EXISTS index_tasks (
    id           BIGSERIAL PRIMARY KEY,
    body         BYTEA       NOT NULL,
    leased_until TIMESTAMPTZ NOT NULL DEFAULT to_timestamp(0),
    enqueued_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	enqueueSQL = `INSERT INTO index_tasks (body) VALUES ($1)`

	// Leasing re-uses the outbox trick: lock ready rows with SKIP LOCKED so
	// concurrent receivers never hand out the same message twice, then push
	// the visibility horizon forward.
	receiveSQL = `
UPDATE index_tasks
SET leased_until = now() + make_interval(secs => $2)
WHERE id IN (
    SELECT id FROM index_tasks
    WHERE leased_until <= now()
    ORDER BY id ASC
    FOR UPDATE SKIP LOCKED
    LIMIT $1
)
RETURNING id, body`

	deleteSQL = `DELETE FROM index_tasks WHERE id = $1`
)

// PostgresQueue stores tasks in a single table and models the visibility
// timeout with a leased_until column.
type PostgresQueue struct {
	pool       *pgxpool.Pool
	visibility time.Duration
}

// NewPostgres constructs a queue over an existing pool.
func NewPostgres(pool *pgxpool.Pool, visibility time.Duration) *PostgresQueue {
	if visibility <= 0 {
		visibility = time.Minute
	}
	return &PostgresQueue{pool: pool, visibility: visibility}
}

// Bootstrap creates the queue table. Safe to call repeatedly.
func (q *PostgresQueue) Bootstrap(ctx context.Context) error {
	_, err := q.pool.Exec(ctx, createTableSQL)
	return err
}

func (q *PostgresQueue) Enqueue(ctx context.Context, body []byte) error {
	_, err := q.pool.Exec(ctx, enqueueSQL, body)
	return err
}

func (q *PostgresQueue) Receive(ctx context.Context, max int) ([]Message, error) {
	rows, err := q.pool.Query(ctx, receiveSQL, max, q.visibility.Seconds())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var id int64
		var body []byte
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}
		msgs = append(msgs, Message{ReceiptHandle: strconv.FormatInt(id, 10), Body: body})
	}
	return msgs, rows.Err()
}

func (q *PostgresQueue) Delete(ctx context.Context, receiptHandle string) error {
	id, err := strconv.ParseInt(receiptHandle, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid receipt handle %q: %w", receiptHandle, err)
	}
	_, err = q.pool.Exec(ctx, deleteSQL, id)
	return err
}

// HealthPing implements health.Pinger for the Postgres-backed queue.
func (q *PostgresQueue) HealthPing(ctx context.Context) error {
	return q.pool.Ping(ctx)
}
