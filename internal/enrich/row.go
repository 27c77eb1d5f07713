package enrich

import (
	"encoding/json"

	"github.com/couchcryptid/location-enrichment/internal/domain"
)

// Default column names for the coordinate inputs.
const (
	DefaultLatColumn = "latitude"
	DefaultLngColumn = "longitude"
)

// Row is one tabular record. Enrichment adds columns; it never removes or
// reorders the caller's.
type Row map[string]any

// Clone returns a shallow copy so enrichment never mutates caller rows.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// coordinateOf extracts the (lat,lng) pair from a row. It reports false
// when either column is missing, null, or not numeric — such rows pass
// through enrichment untouched.
func coordinateOf(row Row, latCol, lngCol string) (domain.Coordinate, bool) {
	lat, ok := numericValue(row[latCol])
	if !ok {
		return domain.Coordinate{}, false
	}
	lng, ok := numericValue(row[lngCol])
	if !ok {
		return domain.Coordinate{}, false
	}
	return domain.Coordinate{Lat: lat, Lng: lng}, true
}

// numericValue coerces the loose types JSON and CSV loaders produce.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
