package indexer

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/maddiesch/project-orwell/internal/taskqueue"
)

// WorkerInvoker runs each accepted message on its own goroutine. The worker's
// failure is logged, never propagated: the undeleted queue message is the
// retry mechanism.
type WorkerInvoker struct {
	worker *Worker
	log    zerolog.Logger
	wg     sync.WaitGroup
}

// NewWorkerInvoker constructs an invoker around the given worker.
func NewWorkerInvoker(worker *Worker, log zerolog.Logger) *WorkerInvoker {
	return &WorkerInvoker{worker: worker, log: log}
}

// Invoke accepts the message and returns immediately. The processing context
// is detached from the dispatcher's so an ending drain cycle does not cancel
// in-flight work.
func (i *WorkerInvoker) Invoke(ctx context.Context, msg taskqueue.Message) error {
	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		if err := i.worker.Process(context.WithoutCancel(ctx), msg); err != nil {
			i.log.Error().Err(err).Msg("indexing task failed; message left for redelivery")
		}
	}()
	return nil
}

// Wait blocks until all accepted work has finished. Used during shutdown.
func (i *WorkerInvoker) Wait() {
	i.wg.Wait()
}
