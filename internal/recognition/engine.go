// Package recognition provides the face index capability: per-context
// collections of indexed faces, plus similarity search against them.
package recognition

import (
	"context"
	"strings"
)

const idMarker = "{{id}}"

// CollectionID substitutes the context into the collection-name template.
func CollectionID(template, contextKey string) string {
	return strings.ReplaceAll(template, idMarker, contextKey)
}

// FaceRecord describes one face stored into a collection by IndexFaces.
type FaceRecord struct {
	FaceID     string
	Confidence float64
}

// FaceMatch is one candidate face returned by SearchByImage.
type FaceMatch struct {
	FaceID     string
	ExternalID string  // identity key assigned at indexing time
	Similarity float64 // 0..100
	Confidence float64
}

// Engine is the recognition capability consumed by the indexing worker and
// the matching pipeline.
type Engine interface {
	// CreateCollection ensures the collection exists. Idempotent: an
	// already-existing collection is not an error.
	CreateCollection(ctx context.Context, collectionID string) error

	// IndexFaces indexes the image stored under imageKey into the collection,
	// tagging the stored faces with externalID.
	IndexFaces(ctx context.Context, collectionID, externalID, imageKey string) ([]FaceRecord, error)

	// SearchByImage returns up to maxFaces faces whose similarity to the
	// probe image meets the threshold (0..100 scale).
	SearchByImage(ctx context.Context, collectionID string, image []byte, threshold float64, maxFaces int) ([]FaceMatch, error)
}
