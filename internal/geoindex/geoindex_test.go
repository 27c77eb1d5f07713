package geoindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/location-enrichment/internal/domain"
)

func TestEncode_Deterministic(t *testing.T) {
	ix := NewIndexer(6)

	first, err := ix.Encode(37.7749, -122.4194)
	require.NoError(t, err)
	require.Len(t, first, 6)

	for range 10 {
		key, err := ix.Encode(37.7749, -122.4194)
		require.NoError(t, err)
		assert.Equal(t, first, key)
	}
}

func TestEncode_NearbyCoordinatesShareCell(t *testing.T) {
	ix := NewIndexer(6)

	a, err := ix.Encode(37.7749, -122.4194)
	require.NoError(t, err)
	b, err := ix.Encode(37.7750, -122.4195)
	require.NoError(t, err)

	assert.Equal(t, a, b, "coordinates ~15m apart should share a precision-6 cell")
}

func TestEncode_PrecisionControlsKeyLength(t *testing.T) {
	for _, precision := range []int{1, 4, 6, 7, 12} {
		ix := NewIndexer(precision)
		key, err := ix.Encode(51.5074, -0.1278)
		require.NoError(t, err)
		assert.Len(t, key, precision)
	}
}

func TestEncode_RejectsOutOfRange(t *testing.T) {
	ix := NewIndexer(6)

	tests := []struct {
		name     string
		lat, lng float64
	}{
		{"latitude too high", 91, 0},
		{"latitude too low", -90.0001, 0},
		{"longitude too high", 0, 181},
		{"longitude too low", 0, -180.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ix.Encode(tt.lat, tt.lng)
			require.Error(t, err)

			var verr *domain.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestEncode_AcceptsExactBoundaries(t *testing.T) {
	ix := NewIndexer(6)

	for _, c := range []domain.Coordinate{
		{Lat: 90, Lng: 0},
		{Lat: -90, Lng: 0},
		{Lat: 0, Lng: 180},
		{Lat: 0, Lng: -180},
		{Lat: 90, Lng: 180},
	} {
		_, err := ix.Encode(c.Lat, c.Lng)
		assert.NoError(t, err, "lat=%v lng=%v", c.Lat, c.Lng)
	}
}

func TestNeighbors_ContainsSelfFirst(t *testing.T) {
	ix := NewIndexer(6)

	key, err := ix.Encode(37.7749, -122.4194)
	require.NoError(t, err)

	neighbors := ix.Neighbors(key)
	require.NotEmpty(t, neighbors)
	assert.Equal(t, key, neighbors[0], "scan order starts with the cell itself")
}

func TestNeighbors_SizeAndUniqueness(t *testing.T) {
	ix := NewIndexer(6)

	coords := []domain.Coordinate{
		{Lat: 37.7749, Lng: -122.4194}, // San Francisco
		{Lat: 0, Lng: 0},               // equator/prime meridian
		{Lat: 89.9999, Lng: 10},        // near the north pole
		{Lat: -89.9999, Lng: -170},     // near the south pole
		{Lat: 45, Lng: 179.9999},       // near the antimeridian
	}
	for _, c := range coords {
		key, err := ix.Encode(c.Lat, c.Lng)
		require.NoError(t, err)

		neighbors := ix.Neighbors(key)
		assert.GreaterOrEqual(t, len(neighbors), 1)
		assert.LessOrEqual(t, len(neighbors), 9)

		seen := make(map[string]bool)
		for _, n := range neighbors {
			assert.False(t, seen[n], "duplicate neighbor %q for %v", n, c)
			seen[n] = true
		}
		assert.True(t, seen[key], "neighbor set must include the center cell")
	}
}

func TestNeighbors_InteriorCellHasNine(t *testing.T) {
	ix := NewIndexer(6)

	key, err := ix.Encode(37.7749, -122.4194)
	require.NoError(t, err)

	// An ordinary mid-latitude cell has a full 3x3 neighborhood.
	assert.Len(t, ix.Neighbors(key), 9)
}

func TestNewIndexer_DefaultsPrecision(t *testing.T) {
	ix := NewIndexer(0)
	assert.Equal(t, DefaultPrecision, ix.Precision())

	ix = NewIndexer(-3)
	assert.Equal(t, DefaultPrecision, ix.Precision())
}
