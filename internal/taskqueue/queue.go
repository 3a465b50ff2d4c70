// Package taskqueue provides the indexing task transport: at-least-once
// delivery, bounded receive batches, explicit delete after success.
package taskqueue

import "context"

// Message is one leased queue entry. ReceiptHandle identifies the lease and
// must be passed to Delete once processing succeeded.
type Message struct {
	ReceiptHandle string
	Body          []byte
}

// Queue is the task transport capability. A message that is received but
// never deleted becomes visible again after the visibility timeout expires.
type Queue interface {
	Enqueue(ctx context.Context, body []byte) error
	Receive(ctx context.Context, max int) ([]Message, error)
	Delete(ctx context.Context, receiptHandle string) error
}
