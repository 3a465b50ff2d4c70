package transactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	kafka "github.com/segmentio/kafka-go"
)

const (
	// batchMax bounds one HandleBatch call.
	batchMax = 10

	// batchWait is how long a started batch waits for more messages.
	batchWait = 250 * time.Millisecond

	// reopenDelay throttles reader reopens after a failed batch.
	reopenDelay = 2 * time.Second
)

// messageReader is the slice of kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads the transaction topic in bounded batches and feeds them to
// the Persister. Offsets are committed only after the whole batch succeeded;
// a failed batch is never committed, the reader is reopened at the last
// committed offset and every event of the failed batch is redelivered.
type Consumer struct {
	newReader func() messageReader
	persister *Persister
	log       zerolog.Logger
}

// NewConsumer builds a group consumer for the transaction topic.
func NewConsumer(brokers []string, topic, groupID string, persister *Persister, log zerolog.Logger) *Consumer {
	config := kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	}
	return &Consumer{
		newReader: func() messageReader { return kafka.NewReader(config) },
		persister: persister,
		log:       log,
	}
}

// Run consumes until ctx is canceled. Any consume failure reopens the reader;
// rejoining the group resumes from the last committed offset.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		reader := c.newReader()
		err := c.consume(ctx, reader)
		_ = reader.Close()

		if errors.Is(err, context.Canceled) {
			return ctx.Err()
		}
		c.log.Error().Err(err).Msg("consume failed; reopening at last committed offset")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reopenDelay):
		}
	}
}

// consume processes batches until an error. Commit happens strictly after the
// batch succeeded, so no offset ever moves past an unprocessed event.
func (c *Consumer) consume(ctx context.Context, reader messageReader) error {
	for {
		msgs, err := c.fetchBatch(ctx, reader)
		if err != nil {
			return err
		}

		events := make([]Event, 0, len(msgs))
		for _, msg := range msgs {
			events = append(events, Event{
				Subject: headerValue(msg.Headers, subjectHeader),
				Value:   msg.Value,
			})
		}
		if err := c.persister.HandleBatch(ctx, events); err != nil {
			return fmt.Errorf("handle batch: %w", err)
		}

		if err := reader.CommitMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
		c.log.Debug().Int("events", len(msgs)).Msg("batch committed")
	}
}

// fetchBatch blocks for the first message, then drains whatever else arrives
// within the wait window, up to batchMax. Errors during the window only end
// the batch; a transport failure resurfaces on the next blocking fetch.
func (c *Consumer) fetchBatch(ctx context.Context, reader messageReader) ([]kafka.Message, error) {
	first, err := reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	msgs := []kafka.Message{first}

	waitCtx, cancel := context.WithTimeout(ctx, batchWait)
	defer cancel()
	for len(msgs) < batchMax {
		msg, err := reader.FetchMessage(waitCtx)
		if err != nil {
			break
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
