package gateway

import (
	"context"
	"sync"
)

// MemoryStore is an in-process DocStore for tests and local runs. Errors can be injected for
// reads and writes.
type MemoryStore struct {
	mu     sync.Mutex
	docs   map[string][]byte
	getErr error
	putErr error
	puts   int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (m *MemoryStore) Get(ctx context.Context, collection, userID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	b, ok := m.docs[collection+"/"+userID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *MemoryStore) Put(ctx context.Context, collection, userID string, doc []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.docs[collection+"/"+userID] = append([]byte(nil), doc...)
	m.puts++
	return nil
}

// SetGetErr makes every Get fail with err until cleared with nil.
func (m *MemoryStore) SetGetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
}

// SetPutErr makes every Put fail with err until cleared with nil.
func (m *MemoryStore) SetPutErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putErr = err
}

// Puts returns the number of successful writes.
func (m *MemoryStore) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}
