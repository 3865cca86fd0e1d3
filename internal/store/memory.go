package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	body      []byte
	etag      string
	createdAt time.Time
	updatedAt time.Time
}

type memoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]*memoryEntry
}

// NewMemory creates a concurrency-safe in-memory document store useful for
// unit tests and dev mode. It honors the same ETag semantics as the
// Postgres adapter.
func NewMemory() Store {
	return &memoryStore{docs: make(map[string]map[string]*memoryEntry)}
}

func (s *memoryStore) Get(_ context.Context, docType, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.docs[docType][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return toDocument(docType, id, entry), nil
}

func (s *memoryStore) Query(_ context.Context, q Query) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.match(q)
	if q.NewestFirst {
		sort.Slice(matched, func(i, j int) bool {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		})
	} else {
		sort.Slice(matched, func(i, j int) bool {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		})
	}

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func (s *memoryStore) Count(_ context.Context, q Query) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.match(q)), nil
}

func (s *memoryStore) Create(_ context.Context, docType, id string, body any) (string, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[docType][id]; exists {
		return "", ErrConflict
	}
	now := time.Now().UTC()
	entry := &memoryEntry{body: raw, etag: uuid.NewString(), createdAt: now, updatedAt: now}
	s.put(docType, id, entry)
	return entry.etag, nil
}

func (s *memoryStore) Replace(_ context.Context, docType, id string, body any, etag string) (string, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.docs[docType][id]
	if !ok {
		return "", ErrNotFound
	}
	if entry.etag != etag {
		return "", ErrETagMismatch
	}
	entry.body = raw
	entry.etag = uuid.NewString()
	entry.updatedAt = time.Now().UTC()
	return entry.etag, nil
}

func (s *memoryStore) Upsert(_ context.Context, docType, id string, body any) (string, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	entry, ok := s.docs[docType][id]
	if !ok {
		entry = &memoryEntry{createdAt: now}
		s.put(docType, id, entry)
	}
	entry.body = raw
	entry.etag = uuid.NewString()
	entry.updatedAt = now
	return entry.etag, nil
}

// Batch applies operations sequentially. The in-memory backend has no
// transaction primitive, matching the weakest store the contract allows.
func (s *memoryStore) Batch(ctx context.Context, ops []Op) error {
	for _, op := range ops {
		var err error
		switch op.Kind {
		case OpCreate:
			_, err = s.Create(ctx, op.Type, op.ID, op.Body)
		case OpReplace:
			_, err = s.Replace(ctx, op.Type, op.ID, op.Body, op.ETag)
		case OpUpsert:
			_, err = s.Upsert(ctx, op.Type, op.ID, op.Body)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *memoryStore) put(docType, id string, entry *memoryEntry) {
	if s.docs[docType] == nil {
		s.docs[docType] = make(map[string]*memoryEntry)
	}
	s.docs[docType][id] = entry
}

// match assumes the read lock is held.
func (s *memoryStore) match(q Query) []Document {
	var out []Document
	for id, entry := range s.docs[q.Type] {
		if !q.CreatedAfter.IsZero() && !entry.createdAt.After(q.CreatedAfter) {
			continue
		}
		if !matchesFilters(entry.body, q.Filters) {
			continue
		}
		out = append(out, toDocument(q.Type, id, entry))
	}
	return out
}

func matchesFilters(body []byte, filters []Filter) bool {
	if len(filters) == 0 {
		return true
	}
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return false
	}
	for _, f := range filters {
		value, ok := fields[f.Field].(string)
		if !ok || value != f.Value {
			return false
		}
	}
	return true
}

func toDocument(docType, id string, entry *memoryEntry) Document {
	body := make(json.RawMessage, len(entry.body))
	copy(body, entry.body)
	return Document{
		ID:        id,
		Type:      docType,
		ETag:      entry.etag,
		Body:      body,
		CreatedAt: entry.createdAt,
		UpdatedAt: entry.updatedAt,
	}
}
