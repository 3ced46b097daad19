package collab

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// EchoCompleter answers every prompt with "Re: <subject>" and marks it
// done. It stands in for a model when none is configured.
type EchoCompleter struct{}

// Complete implements Completer.
func (EchoCompleter) Complete(_ context.Context, p Prompt) (Completion, error) {
	return Completion{Text: "Re: " + p.Subject, Done: true}, nil
}

// InMemoryStore is a MemoryStore backed by a map. Search matches
// case-insensitive substrings of content and tags and returns matches in
// insertion order.
type InMemoryStore struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]Memory
}

// NewInMemoryStore returns an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byID: make(map[string]Memory)}
}

// Store implements MemoryStore. Storing an existing id replaces it.
func (s *InMemoryStore) Store(_ context.Context, m Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[m.ID]; !ok {
		s.order = append(s.order, m.ID)
	}
	m.Tags = slices.Clone(m.Tags)
	s.byID[m.ID] = m
	return nil
}

// Retrieve implements MemoryStore.
func (s *InMemoryStore) Retrieve(_ context.Context, id string) (Memory, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byID[id]
	return m, ok, nil
}

// Search implements MemoryStore.
func (s *InMemoryStore) Search(_ context.Context, query string, limit int) ([]Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := strings.ToLower(strings.TrimSpace(query))
	out := []Memory{}
	for _, id := range s.order {
		if limit > 0 && len(out) >= limit {
			break
		}
		m := s.byID[id]
		if Matches(m, q) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Matches reports whether m matches the lower-cased query. Any query word
// found in the content or a tag is a match; an empty query matches
// nothing.
func Matches(m Memory, query string) bool {
	words := strings.Fields(query)
	if len(words) == 0 {
		return false
	}
	content := strings.ToLower(m.Content)
	for _, w := range words {
		if strings.Contains(content, w) {
			return true
		}
		for _, t := range m.Tags {
			if strings.EqualFold(t, w) {
				return true
			}
		}
	}
	return false
}
