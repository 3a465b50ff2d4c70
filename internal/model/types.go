package model

import (
	"fmt"
	"time"
)

// TransactionTTL is how long a transaction record stays readable after creation.
const TransactionTTL = 48 * time.Hour

// IndexTask is the queue message body produced by the indexing endpoint and
// consumed by the indexing worker.
type IndexTask struct {
	Identifier string `json:"identifier"`
	Context    string `json:"context"`
	ImageKey   string `json:"imageKey"`
}

// Validate reports the first missing field. A task that fails validation is
// never deleted from the queue; the transport redelivers it.
func (t IndexTask) Validate() error {
	if t.Identifier == "" {
		return fmt.Errorf("%w: missing identifier", ErrValidation)
	}
	if t.ImageKey == "" {
		return fmt.Errorf("%w: missing imageKey", ErrValidation)
	}
	if t.Context == "" {
		return fmt.Errorf("%w: missing context", ErrValidation)
	}
	return nil
}

// MetadataKey derives the storage key for an identity within a context.
func MetadataKey(context, identifier string) string {
	return context + "-" + identifier
}

// IdentityMetadata aggregates every face indexed for one identity.
// CreatedAt is written exactly once; FaceIDs only grows across repeated
// indexing of the same identity.
type IdentityMetadata struct {
	Key        string    `json:"key"`
	Identifier string    `json:"identifier"`
	Context    string    `json:"context"`
	FaceIDs    []string  `json:"faceIds"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// MatchCandidate is an ephemeral computed match between a probe image and a
// previously indexed identity. One identity can contribute several candidates
// when more than one of its faces matched.
type MatchCandidate struct {
	Identifier string    `json:"identifier"`
	Context    string    `json:"context"`
	Similarity float64   `json:"similarity"`
	Confidence float64   `json:"confidence"`
	FacesCount int       `json:"faces_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// MatchResult is the outcome of one matching request. Best is nil when no
// candidate cleared the similarity threshold; that is a valid "no match"
// outcome, not an error.
type MatchResult struct {
	Best    *MatchCandidate  `json:"best"`
	Matches []MatchCandidate `json:"matches"`
}

// Transaction links a successful match to its originating probe payload.
// Created once, read-only afterward; the store reclaims it after TTL.
type Transaction struct {
	TransactionID string `json:"transactionId"`
	Identifier    string `json:"identifier"`
	Context       string `json:"context"`
	TTL           int64  `json:"ttl"` // epoch seconds
}
