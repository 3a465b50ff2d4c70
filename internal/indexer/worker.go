// Package indexer contains the indexing worker and the fanout dispatcher
// that drains the task queue.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/maddiesch/project-orwell/internal/blob"
	"github.com/maddiesch/project-orwell/internal/model"
	"github.com/maddiesch/project-orwell/internal/recognition"
	"github.com/maddiesch/project-orwell/internal/store"
	"github.com/maddiesch/project-orwell/internal/taskqueue"
)

// Worker processes one IndexTask end to end. Every step before the final
// queue delete is safe to repeat, so a failure anywhere simply leaves the
// message for redelivery.
type Worker struct {
	queue      taskqueue.Queue
	engine     recognition.Engine
	identities store.Identities
	blobs      blob.Store
	template   string
	log        zerolog.Logger
}

// NewWorker constructs a Worker from dependencies.
func NewWorker(queue taskqueue.Queue, engine recognition.Engine, identities store.Identities, blobs blob.Store, template string, log zerolog.Logger) *Worker {
	return &Worker{
		queue:      queue,
		engine:     engine,
		identities: identities,
		blobs:      blobs,
		template:   template,
		log:        log,
	}
}

// Process runs the sequential indexing steps for one queue message. The
// message is deleted only after everything else succeeded.
func (w *Worker) Process(ctx context.Context, msg taskqueue.Message) error {
	var task model.IndexTask
	if err := json.Unmarshal(msg.Body, &task); err != nil {
		return fmt.Errorf("parse task %s: %w", msg.ReceiptHandle, err)
	}
	if err := task.Validate(); err != nil {
		return fmt.Errorf("task %s: %w", msg.ReceiptHandle, err)
	}

	collectionID := recognition.CollectionID(w.template, task.Context)
	if err := w.engine.CreateCollection(ctx, collectionID); err != nil {
		return fmt.Errorf("create collection %s: %w", collectionID, err)
	}

	externalID := model.MetadataKey(task.Context, task.Identifier)
	records, err := w.engine.IndexFaces(ctx, collectionID, externalID, task.ImageKey)
	if err != nil {
		return fmt.Errorf("index faces: %w", err)
	}

	faceIDs := make([]string, 0, len(records))
	for _, r := range records {
		faceIDs = append(faceIDs, r.FaceID)
	}
	if err := w.identities.Merge(ctx, task.Context, task.Identifier, faceIDs); err != nil {
		return fmt.Errorf("merge identity metadata: %w", err)
	}

	// Best effort: an orphaned source blob is cheaper than re-running the
	// recognition indexing.
	if err := w.blobs.Delete(ctx, task.ImageKey); err != nil {
		w.log.Warn().Err(err).Str("image_key", task.ImageKey).Msg("source blob delete failed")
	}

	if err := w.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		return fmt.Errorf("delete message %s: %w", msg.ReceiptHandle, err)
	}

	w.log.Info().
		Str("context", task.Context).
		Str("identifier", task.Identifier).
		Int("faces", len(faceIDs)).
		Msg("task indexed")
	return nil
}
