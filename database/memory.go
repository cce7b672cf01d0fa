package database

import (
	"context"
	"sync"
)

type memCollection struct {
	order []string
	data  map[string][]byte
}

// MemoryStore keeps collections in process memory, preserving insertion order.
type MemoryStore struct {
	mu          sync.RWMutex
	txMu        sync.Mutex
	collections map[Collection]*memCollection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[Collection]*memCollection)}
}

func (m *MemoryStore) GetAll(ctx context.Context, c Collection) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, newStorageError("get_all", c, "", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	col, ok := m.collections[c]
	if !ok {
		return []Entry{}, nil
	}
	out := make([]Entry, 0, len(col.order))
	for _, id := range col.order {
		out = append(out, Entry{ID: id, Data: append([]byte(nil), col.data[id]...)})
	}
	return out, nil
}

func (m *MemoryStore) SaveOne(ctx context.Context, c Collection, id string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return newStorageError("save", c, id, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	col, ok := m.collections[c]
	if !ok {
		col = &memCollection{data: make(map[string][]byte)}
		m.collections[c] = col
	}
	if _, exists := col.data[id]; !exists {
		col.order = append(col.order, id)
	}
	col.data[id] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) DeleteOne(ctx context.Context, c Collection, id string) error {
	if err := ctx.Err(); err != nil {
		return newStorageError("delete", c, id, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	col, ok := m.collections[c]
	if !ok {
		return nil
	}
	if _, exists := col.data[id]; !exists {
		return nil
	}
	delete(col.data, id)
	for i, existing := range col.order {
		if existing == id {
			col.order = append(col.order[:i], col.order[i+1:]...)
			break
		}
	}
	return nil
}

// Tx snapshots every collection and restores the snapshot when fn fails.
// Transactions are serialised with each other but not with plain writes.
func (m *MemoryStore) Tx(ctx context.Context, fn func(Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snapshot := m.snapshot()
	if err := fn(m); err != nil {
		m.mu.Lock()
		m.collections = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (m *MemoryStore) snapshot() map[Collection]*memCollection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[Collection]*memCollection, len(m.collections))
	for name, col := range m.collections {
		cp := &memCollection{
			order: append([]string(nil), col.order...),
			data:  make(map[string][]byte, len(col.data)),
		}
		for id, d := range col.data {
			cp.data[id] = d
		}
		out[name] = cp
	}
	return out
}
