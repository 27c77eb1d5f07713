// Package geoindex converts coordinates into fixed-precision geohash keys
// for the proximity cache. A geohash cell at precision 6 is roughly
// 1.2 km × 0.6 km, so nearby fixes usually land in the same cell — and when
// they straddle a cell boundary, the neighbor set catches them.
package geoindex

import (
	geohash "github.com/TomiHiltunen/geohash-golang"

	"github.com/couchcryptid/location-enrichment/internal/domain"
)

// DefaultPrecision trades cell size against hit rate. Six characters keeps
// the cell within walking distance of its center.
const DefaultPrecision = 6

var cardinalDirections = []string{"top", "bottom", "right", "left"}

// diagonals are composed from two cardinal moves, e.g. top-then-right.
var diagonals = [][2]string{
	{"top", "right"},
	{"top", "left"},
	{"bottom", "right"},
	{"bottom", "left"},
}

// Indexer produces spatial cache keys at a fixed geohash precision.
type Indexer struct {
	precision int
}

// NewIndexer creates an Indexer. Non-positive precision falls back to
// DefaultPrecision.
func NewIndexer(precision int) *Indexer {
	if precision <= 0 {
		precision = DefaultPrecision
	}
	return &Indexer{precision: precision}
}

// Precision returns the configured geohash length.
func (ix *Indexer) Precision() int { return ix.precision }

// Encode returns the geohash cell key for a coordinate. Encoding is
// deterministic: the same coordinate always produces the same key. Out of
// range coordinates return a *domain.ValidationError before any cache or
// provider interaction.
func (ix *Indexer) Encode(lat, lng float64) (string, error) {
	coord := domain.Coordinate{Lat: lat, Lng: lng}
	if err := coord.Validate(); err != nil {
		return "", err
	}
	return geohash.EncodeWithPrecision(lat, lng, ix.precision), nil
}

// Neighbors returns the candidate lookup keys for key in fixed scan order:
// the cell itself, then the four cardinal neighbors, then the four
// diagonals. Adjacency lookups that degenerate at the poles or the
// antimeridian are dropped rather than failing the set, so the result holds
// 1 to 9 unique keys and always contains key.
func (ix *Indexer) Neighbors(key string) []string {
	keys := make([]string, 0, 9)
	seen := make(map[string]bool, 9)
	add := func(k string) {
		if k != "" && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	add(key)

	cardinal := make(map[string]string, len(cardinalDirections))
	for _, dir := range cardinalDirections {
		adjacent := geohash.CalculateAdjacent(key, dir)
		cardinal[dir] = adjacent
		add(adjacent)
	}

	for _, diag := range diagonals {
		first := cardinal[diag[0]]
		if first == "" {
			continue
		}
		add(geohash.CalculateAdjacent(first, diag[1]))
	}

	return keys
}
