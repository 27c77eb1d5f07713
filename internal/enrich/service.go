package enrich

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/location-enrichment/internal/blob"
	"github.com/couchcryptid/location-enrichment/internal/cache"
	"github.com/couchcryptid/location-enrichment/internal/config"
	"github.com/couchcryptid/location-enrichment/internal/domain"
	"github.com/couchcryptid/location-enrichment/internal/geoindex"
	"github.com/couchcryptid/location-enrichment/internal/observability"
)

// Service owns the cache store and geocoding provider for the process
// lifetime and hands out the enrichment engine built over them. Lifecycle
// is explicit: NewService → Start (loads the cache) → any number of
// batches → Close (final save).
type Service struct {
	store  *cache.Store
	engine *Engine
	logger *slog.Logger
}

// NewService assembles the storage backend, cache store, spatial indexer,
// and engine from configuration. The geocoder may be nil for cache-only
// operation; ownership transfers to the service either way.
func NewService(ctx context.Context, cfg *config.Config, geocoder domain.Geocoder, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) (*Service, error) {
	backend, err := blob.Open(ctx, cfg.CacheStorageLocation)
	if err != nil {
		return nil, fmt.Errorf("open cache storage: %w", err)
	}

	store := cache.NewStore(backend, cfg.CacheTTL(), clock, logger)
	indexer := geoindex.NewIndexer(cfg.CachePrecision)

	return &Service{
		store:  store,
		engine: NewEngine(indexer, store, geocoder, logger, metrics),
		logger: logger,
	}, nil
}

// Start loads the persisted cache. Safe to call more than once.
func (s *Service) Start(ctx context.Context) {
	s.store.Load(ctx)
	s.logger.Info("enrichment service started", "cached_locations", s.store.Len())
}

// Engine returns the enrichment engine.
func (s *Service) Engine() *Engine { return s.engine }

// Store returns the cache store for maintenance operations.
func (s *Service) Store() *cache.Store { return s.store }

// Close persists any cache state that has not reached storage yet. Batches
// save as they go, so this usually writes nothing.
func (s *Service) Close(ctx context.Context) error {
	if !s.store.Dirty() {
		return nil
	}
	return s.store.Save(ctx)
}
