package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
)

// Store is a content-addressed blob store. Put is idempotent: identical
// bytes always map to the same address and a repeat put is a no-op success.
type Store interface {
	Put(ctx context.Context, data []byte, ext string) (string, error)
	Exists(ctx context.Context, address string) (bool, error)
}

// ContentAddress derives the storage key for a blob. The two-level prefix
// fans files out so no single directory or index range carries the whole
// corpus. ext is expected to carry its dot ("" is fine).
func ContentAddress(data []byte, ext string) string {
	digest := sha256.Sum256(data)
	hash := hex.EncodeToString(digest[:])
	return fmt.Sprintf("media/%s/%s/%s%s", hash[:2], hash[2:4], hash, ext)
}

// MemoryStore keeps blobs in process memory. Writes counts distinct physical
// writes, which the content-addressing tests assert on; it also serves as a
// store for local development without MongoDB.
type MemoryStore struct {
	mu     sync.Mutex
	blobs  map[string][]byte
	writes int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, data []byte, ext string) (string, error) {
	address := ContentAddress(data, ext)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[address]; ok {
		return address, nil
	}

	s.blobs[address] = append([]byte(nil), data...)
	s.writes++
	return address, nil
}

func (s *MemoryStore) Exists(_ context.Context, address string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.blobs[address]
	return ok, nil
}

// Writes reports how many distinct blobs have been physically written.
func (s *MemoryStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writes
}
