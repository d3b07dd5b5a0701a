package records

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Memory keeps documents in process memory. Documents go through a JSON round trip on
// the way in so readers see the same value shapes the postgres store produces.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	raw, ok := m.collections[collection][id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decode(raw)
}

func (m *Memory) Set(_ context.Context, collection, id string, doc Document) error {
	if collection == "" || id == "" {
		return fmt.Errorf("collection and id are required")
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("[records Memory.Set] encode %s/%s: %w", collection, id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[collection]; !ok {
		m.collections[collection] = make(map[string][]byte)
	}
	m.collections[collection][id] = raw
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs, ok := m.collections[collection]
	if !ok {
		return nil
	}
	delete(docs, id)
	if len(docs) == 0 {
		delete(m.collections, collection)
	}
	return nil
}

func (m *Memory) List(_ context.Context, collection string) (map[string]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]Document, len(m.collections[collection]))
	for id, raw := range m.collections[collection] {
		doc, err := decode(raw)
		if err != nil {
			return nil, err
		}
		out[id] = doc
	}
	return out, nil
}

func decode(raw []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}
