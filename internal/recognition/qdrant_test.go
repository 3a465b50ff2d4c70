package recognition

import (
	"context"
	"errors"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maddiesch/project-orwell/internal/faceprint"
)

// fakeVectorClient keeps collection state in memory and records calls.
type fakeVectorClient struct {
	collections map[string]bool
	creates     []string
	createErr   error
	upserts     []*qdrant.UpsertPoints
	queried     []*qdrant.QueryPoints
	points      []*qdrant.ScoredPoint
}

func newFakeVectorClient() *fakeVectorClient {
	return &fakeVectorClient{collections: map[string]bool{}}
}

func (c *fakeVectorClient) CollectionExists(ctx context.Context, collectionName string) (bool, error) {
	return c.collections[collectionName], nil
}

func (c *fakeVectorClient) CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error {
	c.creates = append(c.creates, req.CollectionName)
	if c.createErr != nil {
		return c.createErr
	}
	c.collections[req.CollectionName] = true
	return nil
}

func (c *fakeVectorClient) Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
	c.upserts = append(c.upserts, req)
	return &qdrant.UpdateResult{}, nil
}

func (c *fakeVectorClient) Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
	c.queried = append(c.queried, req)
	return c.points, nil
}

func (c *fakeVectorClient) HealthCheck(ctx context.Context) (*qdrant.HealthCheckReply, error) {
	return &qdrant.HealthCheckReply{}, nil
}

type staticProvider struct {
	fp  faceprint.Faceprint
	err error
}

func (p staticProvider) Embed(ctx context.Context, image []byte) (faceprint.Faceprint, error) {
	return p.fp, p.err
}

type memBlobs struct {
	data map[string][]byte
}

func (b memBlobs) Put(ctx context.Context, key string, data []byte) error { return nil }

func (b memBlobs) Get(ctx context.Context, key string) ([]byte, error) {
	d, ok := b.data[key]
	if !ok {
		return nil, errors.New("missing blob")
	}
	return d, nil
}

func (b memBlobs) Delete(ctx context.Context, key string) error { return nil }

func newTestEngine(client *fakeVectorClient) *QdrantEngine {
	return &QdrantEngine{
		client:     client,
		faceprints: staticProvider{fp: faceprint.Faceprint{Vector: []float32{0.1, 0.2}, Confidence: 99.5}},
		blobs:      memBlobs{data: map[string][]byte{"uploads/1.jpg": []byte("jpeg")}},
		dimension:  2,
		log:        zerolog.Nop(),
	}
}

func TestCreateCollectionTwice(t *testing.T) {
	client := newFakeVectorClient()
	e := newTestEngine(client)

	require.NoError(t, e.CreateCollection(context.Background(), "orwell-faces-teamA"))
	require.NoError(t, e.CreateCollection(context.Background(), "orwell-faces-teamA"))

	// The second call sees the collection and never re-creates it.
	assert.Equal(t, []string{"orwell-faces-teamA"}, client.creates)
}

func TestCreateCollectionConcurrentCreator(t *testing.T) {
	client := newFakeVectorClient()
	client.createErr = errors.New("collection orwell-faces-teamA already exists")
	e := newTestEngine(client)

	// Losing the creation race is not an error.
	require.NoError(t, e.CreateCollection(context.Background(), "orwell-faces-teamA"))
}

func TestIndexFaces(t *testing.T) {
	client := newFakeVectorClient()
	e := newTestEngine(client)

	records, err := e.IndexFaces(context.Background(), "orwell-faces-teamA", "teamA-alice", "uploads/1.jpg")

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.NotEmpty(t, records[0].FaceID)
	assert.Equal(t, 99.5, records[0].Confidence)

	require.Len(t, client.upserts, 1)
	up := client.upserts[0]
	assert.Equal(t, "orwell-faces-teamA", up.CollectionName)
	require.Len(t, up.Points, 1)
	assert.Equal(t, "teamA-alice", up.Points[0].Payload[payloadExternalID].GetStringValue())
	assert.Equal(t, 99.5, up.Points[0].Payload[payloadConfidence].GetDoubleValue())
}

func TestIndexFacesMissingBlob(t *testing.T) {
	client := newFakeVectorClient()
	e := newTestEngine(client)

	_, err := e.IndexFaces(context.Background(), "orwell-faces-teamA", "teamA-alice", "uploads/nope.jpg")

	require.Error(t, err)
	assert.Empty(t, client.upserts)
}

func TestSearchByImage(t *testing.T) {
	client := newFakeVectorClient()
	client.points = []*qdrant.ScoredPoint{
		{
			Id:    qdrant.NewID("face-uuid-1"),
			Score: 0.955,
			Payload: qdrant.NewValueMap(map[string]any{
				payloadExternalID: "teamA-alice",
				payloadConfidence: 98.5,
			}),
		},
	}
	e := newTestEngine(client)

	matches, err := e.SearchByImage(context.Background(), "orwell-faces-teamA", []byte("jpeg"), 90, 5)

	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "face-uuid-1", matches[0].FaceID)
	assert.Equal(t, "teamA-alice", matches[0].ExternalID)
	assert.InDelta(t, 95.5, matches[0].Similarity, 0.001)
	assert.Equal(t, 98.5, matches[0].Confidence)

	// Threshold and cap are translated onto the qdrant query.
	require.Len(t, client.queried, 1)
	q := client.queried[0]
	assert.InDelta(t, 0.9, *q.ScoreThreshold, 0.0001)
	assert.Equal(t, uint64(5), *q.Limit)
}
