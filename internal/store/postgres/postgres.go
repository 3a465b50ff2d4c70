package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maddiesch/project-orwell/internal/model"
	"github.com/maddiesch/project-orwell/internal/store"
)

const (
	createIdentitiesSQL = `
CREATE TABLE IF NOT EXISTS identities (
    key        TEXT PRIMARY KEY,
    identifier TEXT        NOT NULL,
    context    TEXT        NOT NULL,
    face_ids   TEXT[]      NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`

	createTransactionsSQL = `
CREATE TABLE IF NOT EXISTS transactions (
    transaction_id UUID PRIMARY KEY,
    identifier     TEXT   NOT NULL,
    context        TEXT   NOT NULL,
    ttl            BIGINT NOT NULL
)`

	// mergeIdentitySQL collapses the conditional-insert-then-update pair into
	// one upsert. DO UPDATE never touches created_at, so the first write wins
	// for the creation timestamp; face_ids accumulates as a distinct set.
	mergeIdentitySQL = `
INSERT INTO identities (key, identifier, context, face_ids, created_at, updated_at)
VALUES ($1, $2, $3, $4, now(), now())
ON CONFLICT (key) DO UPDATE SET
    face_ids   = (SELECT COALESCE(array_agg(DISTINCT f ORDER BY f), '{}')
                  FROM unnest(identities.face_ids || EXCLUDED.face_ids) AS f),
    identifier = EXCLUDED.identifier,
    context    = EXCLUDED.context,
    updated_at = now()`

	batchGetIdentitiesSQL = `
SELECT key, identifier, context, face_ids, created_at, updated_at
FROM identities
WHERE key = ANY($1)
ORDER BY key ASC`

	putTransactionSQL = `
INSERT INTO transactions (transaction_id, identifier, context, ttl)
VALUES ($1, $2, $3, $4)
ON CONFLICT (transaction_id) DO UPDATE SET
    identifier = EXCLUDED.identifier,
    context    = EXCLUDED.context,
    ttl        = EXCLUDED.ttl`
)

// Open opens a pgx pool and verifies connectivity.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// NewWithPool constructs a Postgres store backed by an existing pool.
func NewWithPool(pool *pgxpool.Pool) store.Store { return &pgStore{pool: pool} }

type pgStore struct{ pool *pgxpool.Pool }

func (s *pgStore) Identities() store.Identities     { return &identities{pool: s.pool} }
func (s *pgStore) Transactions() store.Transactions { return &transactions{pool: s.pool} }

// HealthPing implements health.Pinger for the Postgres-backed store.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Bootstrap creates the metadata tables. Safe to call repeatedly.
func Bootstrap(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, createIdentitiesSQL); err != nil {
		return err
	}
	_, err := pool.Exec(ctx, createTransactionsSQL)
	return err
}

// --- Identities ---

type identities struct{ pool *pgxpool.Pool }

func (i *identities) Merge(ctx context.Context, contextKey, identifier string, faceIDs []string) error {
	key := model.MetadataKey(contextKey, identifier)
	if faceIDs == nil {
		faceIDs = []string{}
	}
	_, err := i.pool.Exec(ctx, mergeIdentitySQL, key, identifier, contextKey, faceIDs)
	return err
}

func (i *identities) BatchGet(ctx context.Context, keys []string) ([]*model.IdentityMetadata, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	rows, err := i.pool.Query(ctx, batchGetIdentitiesSQL, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.IdentityMetadata
	for rows.Next() {
		var md model.IdentityMetadata
		if err := rows.Scan(&md.Key, &md.Identifier, &md.Context, &md.FaceIDs, &md.CreatedAt, &md.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &md)
	}
	return out, rows.Err()
}

// --- Transactions ---

type transactions struct{ pool *pgxpool.Pool }

func (t *transactions) Put(ctx context.Context, txn *model.Transaction) error {
	_, err := t.pool.Exec(ctx, putTransactionSQL, txn.TransactionID, txn.Identifier, txn.Context, txn.TTL)
	return err
}
