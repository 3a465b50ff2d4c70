// Package faceprint produces fixed-length face embedding vectors for images.
package faceprint

import "context"

// Faceprint is the embedding of the most prominent face in an image.
type Faceprint struct {
	Vector     []float32
	Confidence float64 // detector confidence for the face, 0..100
}

// Provider computes faceprints. Implementations call an external
// face-embedding service.
type Provider interface {
	Embed(ctx context.Context, image []byte) (Faceprint, error)
}
