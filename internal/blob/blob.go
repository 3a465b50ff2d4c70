// Package blob provides the binary payload capability: transient source
// images waiting to be indexed and retained transaction payloads.
package blob

import "context"

// Store reads and writes opaque byte payloads by key.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
