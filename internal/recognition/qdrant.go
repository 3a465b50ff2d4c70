package recognition

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog"

	"github.com/maddiesch/project-orwell/internal/blob"
	"github.com/maddiesch/project-orwell/internal/faceprint"
)

const (
	payloadExternalID = "external_id"
	payloadConfidence = "confidence"
)

// vectorClient is the slice of qdrant.Client the engine uses.
type vectorClient interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error
	Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	HealthCheck(ctx context.Context) (*qdrant.HealthCheckReply, error)
}

// QdrantEngine keeps one Qdrant collection per context. Faces are stored as
// points carrying the faceprint vector plus the owning identity key; cosine
// scores are mapped onto the 0..100 similarity scale.
type QdrantEngine struct {
	client     vectorClient
	faceprints faceprint.Provider
	blobs      blob.Store
	dimension  uint64
	log        zerolog.Logger
}

// NewQdrantEngine connects to Qdrant and returns the engine.
func NewQdrantEngine(host string, port int, faceprints faceprint.Provider, blobs blob.Store, dimension int, log zerolog.Logger) (*QdrantEngine, error) {
	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, fmt.Errorf("qdrant client: %w", err)
	}
	return &QdrantEngine{
		client:     client,
		faceprints: faceprints,
		blobs:      blobs,
		dimension:  uint64(dimension),
		log:        log,
	}, nil
}

// CreateCollection ensures the collection exists; an "already exists"
// response from a concurrent creator is treated as success.
func (e *QdrantEngine) CreateCollection(ctx context.Context, collectionID string) error {
	exists, err := e.client.CollectionExists(ctx, collectionID)
	if err != nil {
		return fmt.Errorf("collection exists check: %w", err)
	}
	if exists {
		return nil
	}

	err = e.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionID,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     e.dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil && strings.Contains(err.Error(), "already exists") {
		return nil
	}
	return err
}

func (e *QdrantEngine) IndexFaces(ctx context.Context, collectionID, externalID, imageKey string) ([]FaceRecord, error) {
	image, err := e.blobs.Get(ctx, imageKey)
	if err != nil {
		return nil, fmt.Errorf("fetch source image: %w", err)
	}

	fp, err := e.faceprints.Embed(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("faceprint: %w", err)
	}

	faceID := uuid.NewString()
	wait := true
	_, err = e.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collectionID,
		Wait:           &wait,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(faceID),
				Vectors: qdrant.NewVectors(fp.Vector...),
				Payload: qdrant.NewValueMap(map[string]any{
					payloadExternalID: externalID,
					payloadConfidence: fp.Confidence,
				}),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upsert face: %w", err)
	}

	e.log.Debug().
		Str("collection", collectionID).
		Str("face_id", faceID).
		Str("external_id", externalID).
		Msg("face indexed")

	return []FaceRecord{{FaceID: faceID, Confidence: fp.Confidence}}, nil
}

func (e *QdrantEngine) SearchByImage(ctx context.Context, collectionID string, image []byte, threshold float64, maxFaces int) ([]FaceMatch, error) {
	fp, err := e.faceprints.Embed(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("faceprint: %w", err)
	}

	limit := uint64(maxFaces)
	scoreThreshold := float32(threshold / 100)
	points, err := e.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collectionID,
		Query:          qdrant.NewQuery(fp.Vector...),
		Limit:          &limit,
		ScoreThreshold: &scoreThreshold,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query faces: %w", err)
	}

	matches := make([]FaceMatch, 0, len(points))
	for _, p := range points {
		matches = append(matches, FaceMatch{
			FaceID:     p.GetId().GetUuid(),
			ExternalID: p.GetPayload()[payloadExternalID].GetStringValue(),
			Similarity: float64(p.GetScore()) * 100,
			Confidence: p.GetPayload()[payloadConfidence].GetDoubleValue(),
		})
	}
	return matches, nil
}

// HealthPing implements health.Pinger for the recognition engine.
func (e *QdrantEngine) HealthPing(ctx context.Context) error {
	_, err := e.client.HealthCheck(ctx)
	return err
}
