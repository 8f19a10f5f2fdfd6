package tick

import (
	"sync"

	"tickflow/internal/model"
)

// Store maps tokens to their latest reconstructed record. It is owned
// and mutated exclusively by the Normalizer; everything else reads
// clones. Presence of a token is the "established" state, there are no
// half-built records.
type Store struct {
	mu      sync.RWMutex
	records map[model.Token]*model.Record
}

// NewStore allocates an empty store.
func NewStore() *Store {
	return &Store{records: make(map[model.Token]*model.Record)}
}

// Get returns a clone of the record for token.
func (s *Store) Get(token model.Token) (model.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[token]
	if !ok {
		return model.Record{}, false
	}
	return rec.Clone(), true
}

// Len reports the number of established tokens.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Snapshot clones the full store, for inspection and replay
// verification only.
func (s *Store) Snapshot() map[model.Token]model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[model.Token]model.Record, len(s.records))
	for token, rec := range s.records {
		out[token] = rec.Clone()
	}
	return out
}

// replace installs a freshly built record, displacing any prior state.
func (s *Store) replace(rec model.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := rec.Clone()
	s.records[rec.Token] = &stored
}

// update mutates an established record in place under the write lock.
// It reports false, without calling fn, when the token is unknown.
func (s *Store) update(token model.Token, fn func(*model.Record)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[token]
	if !ok {
		return false
	}
	fn(rec)
	return true
}
