// Package store exposes the metadata persistence operations required by the
// indexing and matching pipelines. Implementations live under
// internal/store/<driver>/ (currently postgres).
package store

import (
	"context"

	"github.com/maddiesch/project-orwell/internal/model"
)

// Store groups the per-aggregate persistence capabilities.
type Store interface {
	Identities() Identities
	Transactions() Transactions
}

// Identities owns the per-identity aggregate records. The indexing worker is
// the only writer; the matching pipeline only reads.
type Identities interface {
	// Merge upserts one identity record with merge semantics: the creation
	// timestamp is written exactly once (first write wins), the face-id set
	// grows by union, and the denormalized identifier/context plus the update
	// timestamp are refreshed on every call. Calling Merge repeatedly with
	// the same face ids is a no-op beyond the timestamp refresh.
	Merge(ctx context.Context, contextKey, identifier string, faceIDs []string) error

	// BatchGet fetches the records for exactly the given keys, in ascending
	// key order. Missing keys are silently absent from the result.
	BatchGet(ctx context.Context, keys []string) ([]*model.IdentityMetadata, error)
}

// Transactions writes the durable match transaction records. Put is a
// conditionless last-writer-wins write; transaction ids are generated
// uniquely upstream so no idempotency guard is needed here.
type Transactions interface {
	Put(ctx context.Context, t *model.Transaction) error
}
