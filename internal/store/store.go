package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wsdottie/dottie-go/internal/models"
	"github.com/wsdottie/dottie-go/internal/value"
)

// Entry is one cached upstream response
type Entry struct {
	Key       string        `json:"key"`
	API       string        `json:"api"`
	Function  string        `json:"function"`
	Params    models.Params `json:"params,omitempty"`
	Value     value.Value   `json:"value"`
	FetchedAt time.Time     `json:"fetched_at"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// Fresh reports whether the entry is still within its TTL at now
func (e Entry) Fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Store manages cached responses in memory
type Store struct {
	mu         sync.RWMutex
	entries    map[string]*Entry
	flushDates map[string]time.Time
	lastUpdate time.Time
	now        func() time.Time
}

// NewStore creates a new store instance
func NewStore() *Store {
	return &Store{
		entries:    make(map[string]*Entry),
		flushDates: make(map[string]time.Time),
		now:        time.Now,
	}
}

// Put caches v for ep called with params. The entry expires after the
// endpoint's cache strategy TTL.
func (s *Store) Put(ep models.Endpoint, params models.Params, v value.Value) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e := &Entry{
		Key:       params.CacheKey(ep.Key()),
		API:       ep.API,
		Function:  ep.Function,
		Params:    params,
		Value:     v,
		FetchedAt: now,
		ExpiresAt: now.Add(ep.Cache.TTL()),
	}
	s.entries[e.Key] = e
	s.lastUpdate = now
	return *e
}

// Get returns the entry under key if it is still fresh
func (s *Store) Get(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || !e.Fresh(s.now()) {
		return Entry{}, false
	}
	return *e, true
}

// Peek returns the entry under key regardless of age
func (s *Store) Peek(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// InvalidateAPI drops every entry of an API and returns how many were removed
func (s *Store) InvalidateAPI(api string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key, e := range s.entries {
		if e.API == api {
			delete(s.entries, key)
			n++
		}
	}
	return n
}

// SetFlushDate records the cacheflushdate last seen for a WSF API and
// reports whether it differs from the previous one. The first date seen
// for an API is not a change.
func (s *Store) SetFlushDate(api string, t time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.flushDates[api]
	s.flushDates[api] = t
	return ok && !prev.Equal(t)
}

// FlushDate returns the cacheflushdate last seen for an API
func (s *Store) FlushDate(api string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.flushDates[api]
	if !ok {
		return time.Time{}, fmt.Errorf("no flush date recorded for %s", api)
	}
	return t, nil
}

// Keys returns the cache keys in sorted order
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of cached entries
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// GetLastUpdate returns the last update time
func (s *Store) GetLastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate
}
