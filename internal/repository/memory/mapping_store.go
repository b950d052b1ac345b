// Package memory holds process-local implementations of the storage ports.
package memory

import (
	"context"
	"sort"
	"sync"

	"schedex/internal/domain"
	"schedex/internal/port"
)

type mappingKey struct {
	header     string
	entityType domain.EntityType
	field      string
}

type mappingEntry struct {
	prior    port.MappingPrior
	contexts map[string]bool
}

// MappingStore is an in-memory learning store. It is safe for concurrent use.
type MappingStore struct {
	mu      sync.RWMutex
	entries map[mappingKey]*mappingEntry
}

// NewMappingStore creates an empty store.
func NewMappingStore() *MappingStore {
	return &MappingStore{entries: make(map[mappingKey]*mappingEntry)}
}

// Write records a mapping, keeping the highest confidence seen for it.
func (s *MappingStore) Write(_ context.Context, rec port.MappingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := mappingKey{header: rec.Header, entityType: rec.EntityType, field: rec.Field}
	e, ok := s.entries[k]
	if !ok {
		e = &mappingEntry{
			prior:    port.MappingPrior{Field: rec.Field, EntityType: rec.EntityType},
			contexts: make(map[string]bool),
		}
		s.entries[k] = e
	}
	e.prior.Confidence = max(e.prior.Confidence, rec.Confidence)
	e.prior.Uses++
	if rec.Context != "" {
		e.contexts[rec.Context] = true
	}
	return nil
}

// Query returns up to topK priors for header. Priors learned under the same
// sheet context rank first, then by confidence and use count.
func (s *MappingStore) Query(_ context.Context, header, sheetContext string, topK int) ([]port.MappingPrior, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type ranked struct {
		prior       port.MappingPrior
		sameContext bool
	}
	var hits []ranked
	for k, e := range s.entries {
		if k.header != header {
			continue
		}
		hits = append(hits, ranked{prior: e.prior, sameContext: e.contexts[sheetContext]})
	}
	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.sameContext != b.sameContext {
			return a.sameContext
		}
		if a.prior.Confidence != b.prior.Confidence {
			return a.prior.Confidence > b.prior.Confidence
		}
		if a.prior.Uses != b.prior.Uses {
			return a.prior.Uses > b.prior.Uses
		}
		return a.prior.Field < b.prior.Field
	})

	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	out := make([]port.MappingPrior, len(hits))
	for i, h := range hits {
		out[i] = h.prior
	}
	return out, nil
}

// Len returns the number of distinct mappings held.
func (s *MappingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
