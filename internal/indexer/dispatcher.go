package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/maddiesch/project-orwell/internal/taskqueue"
)

const (
	// receiveBatchSize is the maximum messages per queue poll. A full batch
	// signals that more work is likely waiting.
	receiveBatchSize = 10

	// safetyMargin stops the drain loop before the time budget runs out, so
	// accepted invocations are never stranded by the dispatcher's own death.
	safetyMargin = 5 * time.Second
)

// Invoker accepts one unit of work for asynchronous execution. Invoke returns
// once the work is accepted, not when it completes.
type Invoker interface {
	Invoke(ctx context.Context, msg taskqueue.Message) error
}

// Dispatcher drains the task queue in bounded batches and hands each message
// to the Invoker. It loops while polls come back full and the remaining time
// budget exceeds the safety margin.
type Dispatcher struct {
	queue   taskqueue.Queue
	invoker Invoker
	now     func() time.Time
	log     zerolog.Logger
}

// NewDispatcher constructs a Dispatcher from dependencies.
func NewDispatcher(queue taskqueue.Queue, invoker Invoker, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{queue: queue, invoker: invoker, now: time.Now, log: log}
}

// RunOnce performs one drain cycle bounded by the given deadline. A receive
// or invoke failure is fatal for the cycle; queue semantics guarantee
// redelivery of anything left behind.
func (d *Dispatcher) RunOnce(ctx context.Context, deadline time.Time) error {
	for {
		msgs, err := d.queue.Receive(ctx, receiveBatchSize)
		if err != nil {
			return fmt.Errorf("receive: %w", err)
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, msg := range msgs {
			g.Go(func() error {
				return d.invoker.Invoke(gctx, msg)
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("invoke: %w", err)
		}

		d.log.Debug().Int("dispatched", len(msgs)).Msg("batch dispatched")

		if len(msgs) < receiveBatchSize {
			return nil
		}
		if deadline.Sub(d.now()) < safetyMargin {
			d.log.Info().Msg("time budget low; stopping drain")
			return nil
		}
	}
}

// Run triggers a drain cycle on every tick until ctx is canceled; each cycle
// gets a fresh time budget.
func (d *Dispatcher) Run(ctx context.Context, interval, budget time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("dispatcher stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := d.RunOnce(ctx, d.now().Add(budget)); err != nil {
				d.log.Error().Err(err).Msg("dispatch cycle failed")
			}
		}
	}
}
