package transactions

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	kafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNoMoreMessages = errors.New("no more messages")

// scriptedReader hands out a fixed message sequence and records commits.
type scriptedReader struct {
	msgs      []kafka.Message
	next      int
	committed []int64
	closed    bool
}

func (r *scriptedReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if err := ctx.Err(); err != nil {
		return kafka.Message{}, err
	}
	if r.next >= len(r.msgs) {
		return kafka.Message{}, errNoMoreMessages
	}
	msg := r.msgs[r.next]
	r.next++
	return msg, nil
}

func (r *scriptedReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *scriptedReader) Close() error {
	r.closed = true
	return nil
}

func topicMessage(t *testing.T, offset int64, subject string, ev CreationEvent) kafka.Message {
	t.Helper()
	return kafka.Message{
		Offset:  offset,
		Key:     []byte(ev.ID),
		Value:   creationEventJSON(t, ev),
		Headers: []kafka.Header{{Key: subjectHeader, Value: []byte(subject)}},
	}
}

func TestConsumeCommitsSucceededBatch(t *testing.T) {
	blobs := &fakeBlobs{}
	txns := &fakeTxns{}
	c := &Consumer{persister: NewPersister(blobs, txns, zerolog.Nop()), log: zerolog.Nop()}

	reader := &scriptedReader{msgs: []kafka.Message{
		topicMessage(t, 0, SubjectCreate, CreationEvent{ID: "txn-1", Payload: []byte("a")}),
		topicMessage(t, 1, SubjectCreate, CreationEvent{ID: "txn-2", Payload: []byte("b")}),
	}}

	err := c.consume(context.Background(), reader)

	// The stream ran dry after the batch was handled and committed.
	require.ErrorIs(t, err, errNoMoreMessages)
	assert.Equal(t, []int64{0, 1}, reader.committed)
	assert.Len(t, txns.puts, 2)
}

func TestConsumeFailedBatchIsNotCommitted(t *testing.T) {
	blobs := &fakeBlobs{}
	txns := &fakeTxns{}
	c := &Consumer{persister: NewPersister(blobs, txns, zerolog.Nop()), log: zerolog.Nop()}

	reader := &scriptedReader{msgs: []kafka.Message{
		topicMessage(t, 0, SubjectCreate, CreationEvent{ID: "txn-1", Payload: []byte("a")}),
		topicMessage(t, 1, "BOGUS", CreationEvent{ID: "txn-2", Payload: []byte("b")}),
	}}

	err := c.consume(context.Background(), reader)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "handle batch")

	// No offset moved past the failed event; the whole batch stays
	// uncommitted for redelivery.
	assert.Empty(t, reader.committed)
}

func TestConsumeRecordWriteFailureIsNotCommitted(t *testing.T) {
	blobs := &fakeBlobs{}
	txns := &fakeTxns{putErr: errors.New("pool closed")}
	c := &Consumer{persister: NewPersister(blobs, txns, zerolog.Nop()), log: zerolog.Nop()}

	reader := &scriptedReader{msgs: []kafka.Message{
		topicMessage(t, 5, SubjectCreate, CreationEvent{ID: "txn-1", Payload: []byte("a")}),
	}}

	err := c.consume(context.Background(), reader)

	require.Error(t, err)
	assert.Empty(t, reader.committed)
}

func TestFetchBatchBoundsSize(t *testing.T) {
	msgs := make([]kafka.Message, 0, batchMax+3)
	for i := int64(0); i < batchMax+3; i++ {
		msgs = append(msgs, topicMessage(t, i, SubjectCreate, CreationEvent{ID: "txn"}))
	}
	reader := &scriptedReader{msgs: msgs}
	c := &Consumer{log: zerolog.Nop()}

	batch, err := c.fetchBatch(context.Background(), reader)

	require.NoError(t, err)
	assert.Len(t, batch, batchMax)
}

func TestFetchBatchPropagatesBlockedFetchError(t *testing.T) {
	reader := &scriptedReader{}
	c := &Consumer{log: zerolog.Nop()}

	_, err := c.fetchBatch(context.Background(), reader)
	require.ErrorIs(t, err, errNoMoreMessages)
}

func TestRunStopsOnCancel(t *testing.T) {
	reader := &scriptedReader{}
	c := &Consumer{
		newReader: func() messageReader { return reader },
		persister: NewPersister(&fakeBlobs{}, &fakeTxns{}, zerolog.Nop()),
		log:       zerolog.Nop(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, reader.closed)
}
