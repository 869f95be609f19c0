package ports

import "context"

// BlobStore persists named byte payloads and returns a resolvable address.
// Keys are namespaced "orders/<orderID>/..." so inspecting the bucket reveals
// order grouping.
type BlobStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}
