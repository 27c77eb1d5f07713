// Package cache implements the persistent geocoding proximity cache: a
// geohash-keyed map of reverse-geocoding results with TTL expiry, saved as
// one JSON blob. One process writes a given store at a time; concurrent
// writers lose updates at whole-blob granularity, and nothing here guards
// against that.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/location-enrichment/internal/blob"
	"github.com/couchcryptid/location-enrichment/internal/domain"
)

// DefaultTTL keeps cached provider results no longer than the provider's
// terms of service allow.
const DefaultTTL = 30 * 24 * time.Hour

// Entry is one cached geocoding result. The JSON field names are the
// persisted blob format and must not change without a migration.
type Entry struct {
	Geohash     string                `json:"geohash"`
	Coordinates domain.Coordinate     `json:"coordinates"`
	Data        *domain.GeocodingData `json:"geocoding_data"`
	CachedAt    time.Time             `json:"cached_at"`
	ExpiresAt   time.Time             `json:"expires_at"`
}

// Valid reports whether the entry is still usable at now. An entry exactly
// at its expiry is invalid.
func (e Entry) Valid(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Stats summarizes the cache contents for operators.
type Stats struct {
	TotalEntries   int           `json:"total_entries"`
	ValidEntries   int           `json:"valid_entries"`
	ExpiredEntries int           `json:"expired_entries"`
	TTL            time.Duration `json:"ttl"`
	Location       string        `json:"location"`
}

// Store maps geohash keys to cached geocoding results, backed by a blob.
// A mutex keeps operator reads (stats endpoint, CLI) safe alongside the
// single pipeline writer; it does not make concurrent writers safe — those
// still lose updates at whole-blob granularity.
type Store struct {
	mu      sync.Mutex
	blob    blob.Store
	ttl     time.Duration
	clock   clockwork.Clock
	logger  *slog.Logger
	entries map[string]Entry
	loaded  bool
	dirty   bool
}

// NewStore creates a Store over the given blob backend. A nil clock uses
// real time; non-positive ttl falls back to DefaultTTL.
func NewStore(b blob.Store, ttl time.Duration, clock clockwork.Clock, logger *slog.Logger) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		blob:    b,
		ttl:     ttl,
		clock:   clock,
		logger:  logger,
		entries: make(map[string]Entry),
	}
}

// TTL returns the configured entry lifetime.
func (s *Store) TTL() time.Duration { return s.ttl }

// Now returns the store's current time. Lookups use this so tests can
// drive expiry with a fake clock.
func (s *Store) Now() time.Time { return s.clock.Now() }

// Load populates the store from the persisted blob, dropping entries that
// have already expired. A missing blob means an empty cache; an unreadable
// or corrupt blob also degrades to an empty cache with a warning, because a
// cold cache only costs provider calls while a failed startup costs the
// batch. Load is idempotent: after the first call it is a no-op.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return
	}
	s.loaded = true

	data, err := s.blob.Read(ctx)
	if errors.Is(err, blob.ErrNotExist) {
		s.logger.Info("no cache blob found, starting empty", "location", s.blob.Location())
		return
	}
	if err != nil {
		s.logger.Warn("cache blob unreadable, starting empty", "location", s.blob.Location(), "error", err)
		return
	}

	var persisted map[string]Entry
	if err := json.Unmarshal(data, &persisted); err != nil {
		s.logger.Warn("cache blob corrupt, starting empty", "location", s.blob.Location(), "error", err)
		return
	}

	now := s.clock.Now()
	dropped := 0
	for key, entry := range persisted {
		if !entry.Valid(now) {
			dropped++
			continue
		}
		s.entries[key] = entry
	}
	s.logger.Info("cache loaded",
		"location", s.blob.Location(),
		"entries", len(s.entries),
		"expired_dropped", dropped,
	)
}

// Get returns the entry stored under key, valid or not. Callers decide
// what expiry means for them (the engine evicts lazily during scans).
func (s *Store) Get(key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	return entry, ok
}

// Put inserts or overwrites the entry under key.
func (s *Store) Put(key string, entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
	s.dirty = true
}

// Remove deletes the entry under key, if any.
func (s *Store) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; ok {
		delete(s.entries, key)
		s.dirty = true
	}
}

// Dirty reports whether the in-memory cache has diverged from the last
// persisted state.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Len returns the number of entries currently held, including any that
// have expired since insertion.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// NewEntry stamps a fresh entry with the store clock and TTL, keeping the
// expires_at = cached_at + ttl invariant in one place.
func (s *Store) NewEntry(key string, coord domain.Coordinate, data *domain.GeocodingData) Entry {
	now := s.clock.Now().UTC()
	return Entry{
		Geohash:     key,
		Coordinates: coord,
		Data:        data,
		CachedAt:    now,
		ExpiresAt:   now.Add(s.ttl),
	}
}

// Save serializes the whole cache and overwrites the persisted blob.
// Unlike Load, failures propagate: a silently dropped save discards paid
// provider results.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx)
}

func (s *Store) saveLocked(ctx context.Context) error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize cache: %w", err)
	}
	if err := s.blob.Write(ctx, data); err != nil {
		return fmt.Errorf("save cache: %w", err)
	}
	s.dirty = false
	s.logger.Info("cache saved", "location", s.blob.Location(), "entries", len(s.entries))
	return nil
}

// EvictExpired removes every expired entry and persists the cache when at
// least one was removed. It returns the number of removed entries.
func (s *Store) EvictExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	removed := 0
	for key, entry := range s.entries {
		if !entry.Valid(now) {
			delete(s.entries, key)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := s.saveLocked(ctx); err != nil {
		return removed, err
	}
	s.logger.Info("expired cache entries evicted", "count", removed)
	return removed, nil
}

// Stats reports entry counts against the store clock.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	stats := Stats{
		TotalEntries: len(s.entries),
		TTL:          s.ttl,
		Location:     s.blob.Location(),
	}
	for _, entry := range s.entries {
		if entry.Valid(now) {
			stats.ValidEntries++
		} else {
			stats.ExpiredEntries++
		}
	}
	return stats
}
