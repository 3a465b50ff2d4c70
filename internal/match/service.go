// Package match implements the probe matching pipeline and the transaction
// creator that fires on a successful match.
package match

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/maddiesch/project-orwell/internal/api/respond"
	"github.com/maddiesch/project-orwell/internal/model"
	"github.com/maddiesch/project-orwell/internal/recognition"
	"github.com/maddiesch/project-orwell/internal/store"
	"github.com/maddiesch/project-orwell/internal/transactions"
)

const (
	faceMatchThreshold = 90
	maxFaces           = 5
)

// supportedTypes lists the accepted probe image encodings.
var supportedTypes = []string{"base64-jpeg"}

// Image is the probe image envelope of a find request.
type Image struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// Request carries the probe image and the target context for one find call.
// Image is a pointer so an absent attribute is distinguishable from an empty
// one.
type Request struct {
	Context string `json:"context"`
	Image   *Image `json:"image"`
}

// Result is the find response: the match result plus the transaction id when
// a transaction was created.
type Result struct {
	model.MatchResult
	TransactionID string `json:"transactionID,omitempty"`
}

// Service runs the matching pipeline. The probe bytes are threaded through
// the call explicitly; no state outlives a single request.
type Service struct {
	engine     recognition.Engine
	identities store.Identities
	publisher  transactions.Publisher
	template   string
	newID      func() string
	log        zerolog.Logger
}

// NewService constructs a Service from dependencies.
func NewService(engine recognition.Engine, identities store.Identities, publisher transactions.Publisher, template string, log zerolog.Logger) *Service {
	return &Service{
		engine:     engine,
		identities: identities,
		publisher:  publisher,
		template:   template,
		newID:      uuid.NewString,
		log:        log,
	}
}

// Find matches the probe image against the context's collection. A request
// that matches nothing returns an empty result, not an error.
func (s *Service) Find(ctx context.Context, req Request) (*Result, error) {
	probe, err := parseRequest(req)
	if err != nil {
		return nil, err
	}

	collectionID := recognition.CollectionID(s.template, req.Context)
	faces, err := s.engine.SearchByImage(ctx, collectionID, probe, faceMatchThreshold, maxFaces)
	if err != nil {
		return nil, respond.NewAPIError(http.StatusBadGateway, "Recognition engine failed to search").
			WithDetail("The recognition engine failed to search the face index using the image provided").
			WithCode("RECOGNITION_SEARCH").
			WithMeta("underlying", err.Error())
	}

	keys := identityKeys(faces)
	var records []*model.IdentityMetadata
	if len(keys) > 0 {
		records, err = s.identities.BatchGet(ctx, keys)
		if err != nil {
			return nil, respond.NewAPIError(http.StatusBadGateway, "Metadata store failed to find matches").
				WithDetail("Facial matching was successful, but querying match metadata failed").
				WithCode("METADATA_BATCH_GET").
				WithMeta("underlying", err.Error())
		}
	}

	result := buildResult(records, faces)
	out := &Result{MatchResult: result}

	if result.Best != nil {
		out.TransactionID = s.createTransaction(ctx, result.Best, probe)
	}
	return out, nil
}

// createTransaction publishes the creation event. Publishing is best effort:
// a failure is logged and the match response still succeeds.
func (s *Service) createTransaction(ctx context.Context, best *model.MatchCandidate, probe []byte) string {
	id := s.newID()
	ev := transactions.CreationEvent{
		ID:         id,
		Context:    best.Context,
		Identifier: best.Identifier,
		Payload:    probe,
	}
	if err := s.publisher.Publish(ctx, transactions.SubjectCreate, ev); err != nil {
		s.log.Error().Err(err).Str("transaction_id", id).Msg("transaction publish failed")
	} else {
		s.log.Info().Str("transaction_id", id).Msg("published transaction")
	}
	return id
}

// parseRequest validates the find request and decodes the probe bytes.
func parseRequest(req Request) ([]byte, error) {
	if req.Context == "" {
		return nil, respond.NewAPIError(http.StatusBadRequest, "Payload missing attribute `context`").
			WithDetail("Must specify a context for searching within")
	}
	if req.Image == nil {
		return nil, respond.NewAPIError(http.StatusBadRequest, "Payload missing attribute `image`")
	}
	if req.Image.Type == "" {
		return nil, respond.NewAPIError(http.StatusBadRequest, "Payload missing attribute `image.type`")
	}
	if !isSupportedType(req.Image.Type) {
		return nil, respond.NewAPIError(http.StatusBadRequest, "Unsupported image type")
	}
	if req.Image.Data == "" {
		return nil, respond.NewAPIError(http.StatusBadRequest, "Payload missing attribute `image.data`")
	}
	probe, err := base64.StdEncoding.DecodeString(req.Image.Data)
	if err != nil {
		return nil, respond.NewAPIError(http.StatusBadRequest, "Attribute `image.data` is not valid base64")
	}
	return probe, nil
}

func isSupportedType(t string) bool {
	for _, s := range supportedTypes {
		if s == t {
			return true
		}
	}
	return false
}

// identityKeys collects the distinct identity keys referenced by the face
// matches, preserving first-seen order.
func identityKeys(faces []recognition.FaceMatch) []string {
	seen := make(map[string]bool, len(faces))
	keys := make([]string, 0, len(faces))
	for _, f := range faces {
		if f.ExternalID == "" || seen[f.ExternalID] {
			continue
		}
		seen[f.ExternalID] = true
		keys = append(keys, f.ExternalID)
	}
	return keys
}

// buildResult materializes one candidate per (record, matching face) pair and
// tracks the maximum-similarity candidate. A tie keeps the first-seen
// candidate; record order is deterministic (ascending key), so the rule is
// stable across runs.
func buildResult(records []*model.IdentityMetadata, faces []recognition.FaceMatch) model.MatchResult {
	matches := make([]model.MatchCandidate, 0)
	bestIdx := -1

	for _, md := range records {
		owned := make(map[string]bool, len(md.FaceIDs))
		for _, id := range md.FaceIDs {
			owned[id] = true
		}
		for _, f := range faces {
			if !owned[f.FaceID] {
				continue
			}
			matches = append(matches, model.MatchCandidate{
				Identifier: md.Identifier,
				Context:    md.Context,
				Similarity: f.Similarity,
				Confidence: f.Confidence,
				FacesCount: len(md.FaceIDs),
				CreatedAt:  md.CreatedAt,
				UpdatedAt:  md.UpdatedAt,
			})
			if bestIdx < 0 || matches[bestIdx].Similarity < f.Similarity {
				bestIdx = len(matches) - 1
			}
		}
	}

	result := model.MatchResult{Matches: matches}
	if bestIdx >= 0 {
		best := matches[bestIdx]
		result.Best = &best
	}
	return result
}
