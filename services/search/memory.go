package search

import (
	"context"
	"sync"
)

// MemoryBackend holds indices in process. The replay command uses it when no
// search service is configured.
type MemoryBackend struct {
	mu      sync.Mutex
	indices map[string]*MemoryIndex
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{indices: make(map[string]*MemoryIndex)}
}

func (b *MemoryBackend) Index(name string) Index {
	return b.Memory(name)
}

// Memory returns the concrete index so callers can inspect it.
func (b *MemoryBackend) Memory(name string) *MemoryIndex {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx, ok := b.indices[name]
	if !ok {
		idx = &MemoryIndex{docs: make(map[string]Document)}
		b.indices[name] = idx
	}
	return idx
}

type MemoryIndex struct {
	mu   sync.RWMutex
	docs map[string]Document
}

func (m *MemoryIndex) Upsert(_ context.Context, id string, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[id] = copyDocument(doc)
	return nil
}

func (m *MemoryIndex) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

// Get returns a copy of the document stored under id, exactly as upserted.
func (m *MemoryIndex) Get(id string) (Document, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, false
	}
	return copyDocument(doc), true
}

func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func copyDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
