package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// MemoryStore is an in-process JSON tree with realtime-database path
// semantics. The replay command and tests run against it.
type MemoryStore struct {
	mu   sync.RWMutex
	root map[string]interface{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{root: map[string]interface{}{}}
}

// LoadJSON replaces the whole tree with the given JSON object.
func (s *MemoryStore) LoadJSON(data []byte) error {
	var root map[string]interface{}
	if err := json.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("MemoryStore.LoadJSON: %w", err)
	}
	if root == nil {
		root = map[string]interface{}{}
	}
	s.mu.Lock()
	s.root = root
	s.mu.Unlock()
	return nil
}

// Set stores value at path, creating intermediate nodes.
func (s *MemoryStore) Set(path string, value interface{}) error {
	normalized, err := normalize(value)
	if err != nil {
		return fmt.Errorf("MemoryStore.Set %s: %w", path, err)
	}
	segs := segments(path)
	if len(segs) == 0 {
		obj, ok := normalized.(map[string]interface{})
		if !ok {
			return fmt.Errorf("MemoryStore.Set: root must be an object")
		}
		s.mu.Lock()
		s.root = obj
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	node := s.root
	for _, seg := range segs[:len(segs)-1] {
		child, ok := node[seg].(map[string]interface{})
		if !ok {
			child = map[string]interface{}{}
			node[seg] = child
		}
		node = child
	}
	node[segs[len(segs)-1]] = normalized
	return nil
}

func (s *MemoryStore) Get(_ context.Context, path string, v interface{}) error {
	s.mu.RLock()
	value := s.lookup(segments(path))
	data, err := json.Marshal(value)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("MemoryStore.Get %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("MemoryStore.Get %s: %w", path, err)
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, path string) error {
	segs := segments(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(segs) == 0 {
		s.root = map[string]interface{}{}
		return nil
	}
	last := segs[len(segs)-1]
	switch parent := s.lookup(segs[:len(segs)-1]).(type) {
	case map[string]interface{}:
		delete(parent, last)
	case []interface{}:
		// Arrays are objects keyed by index, so removing a child leaves a hole.
		if i, ok := arrayIndex(parent, last); ok {
			parent[i] = nil
		}
	}
	return nil
}

// Exists reports whether a value is stored at path.
func (s *MemoryStore) Exists(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(segments(path)) != nil
}

// lookup must be called with mu held.
func (s *MemoryStore) lookup(segs []string) interface{} {
	var node interface{} = s.root
	for _, seg := range segs {
		switch n := node.(type) {
		case map[string]interface{}:
			child, ok := n[seg]
			if !ok {
				return nil
			}
			node = child
		case []interface{}:
			i, ok := arrayIndex(n, seg)
			if !ok {
				return nil
			}
			node = n[i]
		default:
			return nil
		}
	}
	return node
}

func arrayIndex(arr []interface{}, seg string) (int, bool) {
	i, err := strconv.Atoi(seg)
	if err != nil || i < 0 || i >= len(arr) {
		return 0, false
	}
	return i, true
}

func segments(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// normalize converts arbitrary Go values into the generic JSON shapes the
// tree stores.
func normalize(value interface{}) (interface{}, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
