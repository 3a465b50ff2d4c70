package transactions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/maddiesch/project-orwell/internal/blob"
	"github.com/maddiesch/project-orwell/internal/model"
	"github.com/maddiesch/project-orwell/internal/store"
)

const blobPutAttempts = 3

// Event is one received topic message: the subject discriminator plus the
// raw JSON value.
type Event struct {
	Subject string
	Value   []byte
}

// Persister consumes creation events: it retains the raw probe payload in
// blob storage and then writes the time-bounded transaction record.
type Persister struct {
	blobs blob.Store
	txns  store.Transactions
	now   func() time.Time
	log   zerolog.Logger
}

// NewPersister constructs a Persister from dependencies.
func NewPersister(blobs blob.Store, txns store.Transactions, log zerolog.Logger) *Persister {
	return &Persister{blobs: blobs, txns: txns, now: time.Now, log: log}
}

// HandleBatch processes a batch of events concurrently. The batch succeeds
// only if every event's pipeline succeeds; the transport's retry policy
// governs redelivery of a failed batch.
func (p *Persister) HandleBatch(ctx context.Context, events []Event) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, ev := range events {
		g.Go(func() error {
			return p.Handle(gctx, ev)
		})
	}
	return g.Wait()
}

// Handle processes one creation event. An unexpected subject is rejected
// before any write happens.
func (p *Persister) Handle(ctx context.Context, ev Event) error {
	if ev.Subject != SubjectCreate {
		return fmt.Errorf("invalid subject %s", ev.Subject)
	}

	var ce CreationEvent
	if err := json.Unmarshal(ev.Value, &ce); err != nil {
		return fmt.Errorf("parse creation event: %w", err)
	}
	if ce.ID == "" {
		return fmt.Errorf("creation event missing id")
	}

	// Payload first; the transaction record must never point at a blob that
	// was not written.
	put := func() error {
		return p.blobs.Put(ctx, PayloadKey(ce.ID), ce.Payload)
	}
	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), blobPutAttempts-1)
	if err := backoff.Retry(put, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("retain payload: %w", err)
	}

	txn := &model.Transaction{
		TransactionID: ce.ID,
		Identifier:    ce.Identifier,
		Context:       ce.Context,
		TTL:           p.now().Add(model.TransactionTTL).Unix(),
	}
	if err := p.txns.Put(ctx, txn); err != nil {
		return fmt.Errorf("put transaction: %w", err)
	}

	p.log.Info().
		Str("transaction_id", ce.ID).
		Str("context", ce.Context).
		Str("identifier", ce.Identifier).
		Msg("transaction persisted")
	return nil
}
