package repo

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore — хранилище в памяти процесса.
//
// Записи и документы копируются через JSON, поэтому хранимые
// данные не разделяют память с вызывающим кодом.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]map[string]any
	documents   map[string]map[string]map[string]any
}

// NewMemoryStore создаёт пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string][]map[string]any),
		documents:   make(map[string]map[string]map[string]any),
	}
}

// AppendToCollection добавляет запись в коллекцию.
func (s *MemoryStore) AppendToCollection(_ context.Context, collection string, entry map[string]any) error {
	c, err := clone(entry)
	if err != nil {
		return persistenceError("append", collection, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = append(s.collections[collection], c)
	return nil
}

// WriteDocument записывает документ с merge поверх существующего.
func (s *MemoryStore) WriteDocument(_ context.Context, collection, id string, data map[string]any) error {
	c, err := clone(data)
	if err != nil {
		return persistenceError("write", collection+"/"+id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.documents[collection]
	if !ok {
		docs = make(map[string]map[string]any)
		s.documents[collection] = docs
	}

	doc, ok := docs[id]
	if !ok {
		doc = make(map[string]any, len(c))
		docs[id] = doc
	}
	for k, v := range c {
		doc[k] = v
	}
	return nil
}

// GetDocument возвращает копию документа.
func (s *MemoryStore) GetDocument(_ context.Context, collection, id string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(doc)
}

// ListCollection возвращает копии записей коллекции.
func (s *MemoryStore) ListCollection(_ context.Context, collection string) ([]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.collections[collection]
	result := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		c, err := clone(e)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, nil
}

// Close ничего не делает.
func (s *MemoryStore) Close() error {
	return nil
}

func clone(v map[string]any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = make(map[string]any)
	}
	return result, nil
}
