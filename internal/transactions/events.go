// Package transactions creates and persists match transaction records. The
// matching pipeline publishes a creation event; the persister consumes it,
// retains the probe payload and writes a time-bounded transaction record.
package transactions

import "context"

// SubjectCreate is the only event subject the persister accepts.
const SubjectCreate = "CREATE_TRANSACTION"

// CreationEvent is the payload published to the transaction topic. Payload
// carries the raw probe bytes (base64 on the wire via JSON encoding).
type CreationEvent struct {
	ID         string `json:"id"`
	Context    string `json:"ctx"`
	Identifier string `json:"idnt"`
	Payload    []byte `json:"payload"`
}

// PayloadKey is the blob key the probe payload is retained under.
func PayloadKey(transactionID string) string {
	return "transaction-" + transactionID + ".dat"
}

// Publisher emits transaction creation events to the transaction topic.
type Publisher interface {
	Publish(ctx context.Context, subject string, ev CreationEvent) error
}
