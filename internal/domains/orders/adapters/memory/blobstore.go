package memory

import (
	"context"
	"sync"

	"github.com/Apurer/photo-orders/internal/domains/orders/ports"
)

var _ ports.BlobStore = (*BlobStore)(nil)

// Blob is a stored payload plus its content type.
type Blob struct {
	Data        []byte
	ContentType string
}

// BlobStore keeps uploads in memory for development and tests. Addresses use
// the mem:// scheme so they are recognizably non-resolvable.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string]Blob
}

func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: map[string]Blob{}}
}

func (s *BlobStore) Put(_ context.Context, key string, body []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = Blob{Data: append([]byte{}, body...), ContentType: contentType}
	return "mem://" + key, nil
}

// Get returns the stored blob, for test assertions.
func (s *BlobStore) Get(key string) (Blob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[key]
	return blob, ok
}

// Len reports the number of stored blobs.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
