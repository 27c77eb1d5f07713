// Package enrich joins human-readable address data onto tabular location
// records while keeping calls to the paid geocoding provider to a minimum.
// Unique coordinate pairs are resolved through a geohash proximity cache;
// only genuine misses reach the provider, strictly one at a time.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/location-enrichment/internal/cache"
	"github.com/couchcryptid/location-enrichment/internal/domain"
	"github.com/couchcryptid/location-enrichment/internal/geoindex"
	"github.com/couchcryptid/location-enrichment/internal/observability"
)

// Options controls one enrichment batch. Zero values select the defaults.
type Options struct {
	LatColumn string   // input latitude column, default "latitude"
	LngColumn string   // input longitude column, default "longitude"
	Fields    []string // requested enrichment fields, default DefaultFields
}

func (o Options) withDefaults() Options {
	if o.LatColumn == "" {
		o.LatColumn = DefaultLatColumn
	}
	if o.LngColumn == "" {
		o.LngColumn = DefaultLngColumn
	}
	if len(o.Fields) == 0 {
		o.Fields = DefaultFields
	}
	return o
}

// Engine resolves coordinate pairs against the proximity cache and the
// geocoding provider, and materializes the results as row columns.
type Engine struct {
	indexer  *geoindex.Indexer
	store    *cache.Store
	geocoder domain.Geocoder
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewEngine creates an enrichment engine. A nil geocoder runs the engine
// in cache-only mode: misses stay unresolved instead of reaching a
// provider.
func NewEngine(indexer *geoindex.Indexer, store *cache.Store, geocoder domain.Geocoder, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		indexer:  indexer,
		store:    store,
		geocoder: geocoder,
		logger:   logger,
		metrics:  metrics,
	}
}

// EnrichRows adds geocoding columns to rows. Every input row appears in
// the output, in order; rows sharing a coordinate pair get identical
// enrichment; rows whose pair could not be resolved carry the enrichment
// columns as nil. A provider failure aborts the whole batch — results
// fetched earlier in the batch are not persisted and will be re-fetched on
// the next run.
func (e *Engine) EnrichRows(ctx context.Context, rows []Row, opts Options) ([]Row, error) {
	opts = opts.withDefaults()

	pairs := uniquePairs(rows, opts.LatColumn, opts.LngColumn)
	e.logger.Info("enriching batch", "rows", len(rows), "unique_pairs", len(pairs))

	resolved := make(map[domain.Coordinate]*domain.GeocodingData, len(pairs))
	added := 0
	hits := 0

	for _, coord := range pairs {
		key, err := e.indexer.Encode(coord.Lat, coord.Lng)
		if err != nil {
			// A bad pair skips its rows, never the batch.
			e.logger.Warn("skipping unresolvable coordinate pair",
				"lat", coord.Lat, "lng", coord.Lng, "error", err)
			e.metrics.GeocodeSkipped.Inc()
			continue
		}

		if data, ok := e.cachedData(key); ok {
			e.metrics.GeocodeCache.WithLabelValues("hit").Inc()
			resolved[coord] = data
			hits++
			continue
		}
		e.metrics.GeocodeCache.WithLabelValues("miss").Inc()

		if e.geocoder == nil {
			continue
		}

		data, err := e.reverseGeocode(ctx, coord)
		if err != nil {
			return nil, fmt.Errorf("reverse geocode (%v, %v): %w", coord.Lat, coord.Lng, err)
		}
		if data == nil {
			// Provider had no match; the pair's rows keep nil columns and
			// nothing is cached, so a later run can try again.
			continue
		}

		e.store.Put(key, e.store.NewEntry(key, coord, data))
		resolved[coord] = data
		added++
	}

	// One save per batch, and only when the batch bought something new.
	if added > 0 {
		if err := e.store.Save(ctx); err != nil {
			return nil, err
		}
		e.metrics.CacheSaves.Inc()
	}
	e.metrics.CacheEntries.Set(float64(e.store.Len()))

	e.logger.Info("batch resolved",
		"cache_hits", hits,
		"provider_fetches", added,
		"unresolved", len(pairs)-len(resolved),
	)

	return e.join(rows, resolved, opts), nil
}

// Address returns the formatted address for a single coordinate, serving
// from the cache when possible and persisting a fresh provider result.
// An empty string with a nil error means no address could be resolved.
func (e *Engine) Address(ctx context.Context, lat, lng float64) (string, error) {
	key, err := e.indexer.Encode(lat, lng)
	if err != nil {
		return "", err
	}

	if data, ok := e.cachedData(key); ok {
		e.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return data.FormattedAddress, nil
	}
	e.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	if e.geocoder == nil {
		return "", nil
	}

	coord := domain.Coordinate{Lat: lat, Lng: lng}
	data, err := e.reverseGeocode(ctx, coord)
	if err != nil {
		return "", fmt.Errorf("reverse geocode (%v, %v): %w", lat, lng, err)
	}
	if data == nil {
		return "", nil
	}

	e.store.Put(key, e.store.NewEntry(key, coord, data))
	if err := e.store.Save(ctx); err != nil {
		return "", err
	}
	e.metrics.CacheSaves.Inc()
	return data.FormattedAddress, nil
}

// Coordinates forward-geocodes an address. Forward lookups bypass the
// proximity cache: they are keyed by text, not by cell.
func (e *Engine) Coordinates(ctx context.Context, address string) (*domain.Coordinate, error) {
	if e.geocoder == nil {
		return nil, nil
	}

	start := time.Now()
	coord, err := e.geocoder.ForwardGeocode(ctx, address)
	e.metrics.GeocodeAPIDuration.WithLabelValues("forward").Observe(time.Since(start).Seconds())
	e.metrics.GeocodeRequests.WithLabelValues("forward", outcomeLabel(coord == nil, err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("forward geocode %q: %w", address, err)
	}
	return coord, nil
}

// cachedData scans the candidate cells for key in fixed order — the cell
// itself, then cardinal neighbors, then diagonals — returning the first
// valid entry. Expired entries encountered during the scan are evicted.
func (e *Engine) cachedData(key string) (*domain.GeocodingData, bool) {
	now := e.store.Now()
	for _, candidate := range e.indexer.Neighbors(key) {
		entry, ok := e.store.Get(candidate)
		if !ok {
			continue
		}
		if !entry.Valid(now) {
			e.store.Remove(candidate)
			continue
		}
		return entry.Data, true
	}
	return nil, false
}

func (e *Engine) reverseGeocode(ctx context.Context, coord domain.Coordinate) (*domain.GeocodingData, error) {
	start := time.Now()
	data, err := e.geocoder.ReverseGeocode(ctx, coord.Lat, coord.Lng)
	e.metrics.GeocodeAPIDuration.WithLabelValues("reverse").Observe(time.Since(start).Seconds())
	e.metrics.GeocodeRequests.WithLabelValues("reverse", outcomeLabel(data == nil, err)).Inc()
	return data, err
}

// join left-joins the resolved payloads back onto the original rows,
// preserving row order and count. Unresolved rows still carry every
// enrichment column, as nil, so the output shape is uniform.
func (e *Engine) join(rows []Row, resolved map[domain.Coordinate]*domain.GeocodingData, opts Options) []Row {
	enrichment := make(map[domain.Coordinate]Row, len(resolved))
	for coord, data := range resolved {
		enrichment[coord] = extractFields(data, opts.Fields)
	}
	columns := enrichmentColumns(opts.Fields)

	out := make([]Row, len(rows))
	for i, row := range rows {
		merged := row.Clone()
		coord, ok := coordinateOf(row, opts.LatColumn, opts.LngColumn)
		if ok {
			if enriched, found := enrichment[coord]; found {
				for k, v := range enriched {
					merged[k] = v
				}
				out[i] = merged
				continue
			}
		}
		for _, col := range columns {
			if _, exists := merged[col]; !exists {
				merged[col] = nil
			}
		}
		out[i] = merged
	}
	return out
}

// uniquePairs extracts the distinct usable coordinate pairs in first-seen
// order, so provider calls happen in a deterministic sequence.
func uniquePairs(rows []Row, latCol, lngCol string) []domain.Coordinate {
	pairs := make([]domain.Coordinate, 0, len(rows))
	seen := make(map[domain.Coordinate]bool, len(rows))
	for _, row := range rows {
		coord, ok := coordinateOf(row, latCol, lngCol)
		if !ok || seen[coord] {
			continue
		}
		seen[coord] = true
		pairs = append(pairs, coord)
	}
	return pairs
}

func outcomeLabel(empty bool, err error) string {
	switch {
	case err != nil:
		return "error"
	case empty:
		return "empty"
	default:
		return "success"
	}
}
