package domain

import "fmt"

// Latitude and longitude bounds in decimal degrees (WGS-84).
const (
	MaxLatitude  = 90.0
	MaxLongitude = 180.0
)

// Coordinate is a WGS-84 latitude/longitude pair. The JSON field names
// match the persisted cache format.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ValidationError reports a coordinate component outside its legal range.
type ValidationError struct {
	Field string
	Value float64
}

func (e *ValidationError) Error() string {
	switch e.Field {
	case "latitude":
		return fmt.Sprintf("invalid latitude %v: must be between -90 and 90", e.Value)
	default:
		return fmt.Sprintf("invalid longitude %v: must be between -180 and 180", e.Value)
	}
}

// Validate checks that the coordinate lies within WGS-84 bounds. The exact
// boundaries (±90, ±180) are valid. The checks are written so that NaN
// fails them; NaN compares false against every bound.
func (c Coordinate) Validate() error {
	if !(c.Lat >= -MaxLatitude && c.Lat <= MaxLatitude) {
		return &ValidationError{Field: "latitude", Value: c.Lat}
	}
	if !(c.Lng >= -MaxLongitude && c.Lng <= MaxLongitude) {
		return &ValidationError{Field: "longitude", Value: c.Lng}
	}
	return nil
}
