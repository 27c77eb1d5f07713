package domain

import (
	"context"
	"encoding/json"
)

// AddressComponent is one element of a provider's address breakdown, e.g.
// a country, postal code, or administrative area. A component can carry
// several types ("locality" and "political" on the same element is common).
type AddressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

// GeocodingData is a provider-agnostic reverse-geocoding payload. The typed
// fields cover everything the enrichment engine extracts; Raw keeps the
// provider's first result verbatim so cached entries remain useful if a
// consumer needs a field this struct does not model.
type GeocodingData struct {
	FormattedAddress string             `json:"formatted_address,omitempty"`
	PlaceID          string             `json:"place_id,omitempty"`
	Components       []AddressComponent `json:"address_components,omitempty"`
	Raw              json.RawMessage    `json:"raw,omitempty"`
}

// ComponentIndex maps each component type to its component, so field
// extraction can resolve "country" or "postal_code" in one lookup. Later
// components of the same type overwrite earlier ones.
func (d *GeocodingData) ComponentIndex() map[string]AddressComponent {
	idx := make(map[string]AddressComponent, len(d.Components))
	for _, comp := range d.Components {
		for _, typ := range comp.Types {
			idx[typ] = comp
		}
	}
	return idx
}

// Geocoder resolves coordinates and addresses through an external provider.
// A nil result with a nil error means the provider had no match; transport,
// auth, and rate-limit failures are returned as errors.
type Geocoder interface {
	// ReverseGeocode converts a coordinate to address data.
	ReverseGeocode(ctx context.Context, lat, lng float64) (*GeocodingData, error)

	// ForwardGeocode converts an address string to a coordinate.
	ForwardGeocode(ctx context.Context, address string) (*Coordinate, error)
}
