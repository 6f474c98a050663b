package contentstore

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/ipfs/go-cid"
)

// MemoryStore is an in-process content store keyed by CIDv1 raw/sha2-256.
// Add is idempotent and stored bytes are immutable.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	names []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Add(ctx context.Context, name string, r io.Reader) (AddResult, error) {
	if err := ctx.Err(); err != nil {
		return AddResult{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return AddResult{}, err
	}
	id, err := CIDv1Raw(data)
	if err != nil {
		return AddResult{}, err
	}
	key := id.String()

	m.mu.Lock()
	if _, ok := m.blobs[key]; !ok {
		m.blobs[key] = bytes.Clone(data)
	}
	m.names = append(m.names, name)
	m.mu.Unlock()

	return AddResult{Path: key, CID: id, Size: int64(len(data))}, nil
}

func (m *MemoryStore) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, ErrInvalidCID
	}
	m.mu.RLock()
	data, ok := m.blobs[id.String()]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(data), nil
}

func (m *MemoryStore) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[id.String()]
	return ok
}

// Uploads returns the names passed to Add, in call order.
func (m *MemoryStore) Uploads() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.names...)
}
