// Package googlemaps implements domain.Geocoder using the Google Geocoding
// API. The client enforces the configured requests-per-second ceiling
// itself, so callers can issue lookups back to back without tracking quota.
package googlemaps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/location-enrichment/internal/domain"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Google Geocoding API status strings the client branches on; everything
// else is treated as a provider error.
const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

// Client implements domain.Geocoder using the Google Geocoding API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a Google geocoding client capped at queriesPerSecond
// requests per second.
func NewClient(apiKey string, timeout time.Duration, queriesPerSecond int, logger *slog.Logger) *Client {
	if queriesPerSecond <= 0 {
		queriesPerSecond = 40
	}
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: defaultBaseURL,
		limiter: rate.NewLimiter(rate.Limit(queriesPerSecond), 1),
		logger:  logger,
	}
}

// ReverseGeocode converts a coordinate to address data. A nil result with
// a nil error means Google had no match for the coordinate.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (*domain.GeocodingData, error) {
	params := url.Values{
		"latlng": {fmt.Sprintf("%.7f,%.7f", lat, lng)},
		"key":    {c.apiKey},
	}

	results, err := c.doRequest(ctx, params, "reverse")
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	// Only the first (most specific) result is kept; it is also preserved
	// verbatim in Raw for consumers that need unmapped fields.
	var first struct {
		FormattedAddress  string                    `json:"formatted_address"`
		PlaceID           string                    `json:"place_id"`
		AddressComponents []domain.AddressComponent `json:"address_components"`
	}
	if err := json.Unmarshal(results[0], &first); err != nil {
		return nil, fmt.Errorf("decode geocoding result: %w", err)
	}

	return &domain.GeocodingData{
		FormattedAddress: first.FormattedAddress,
		PlaceID:          first.PlaceID,
		Components:       first.AddressComponents,
		Raw:              results[0],
	}, nil
}

// ForwardGeocode converts an address string to a coordinate. A nil result
// with a nil error means no match.
func (c *Client) ForwardGeocode(ctx context.Context, address string) (*domain.Coordinate, error) {
	params := url.Values{
		"address": {address},
		"key":     {c.apiKey},
	}

	results, err := c.doRequest(ctx, params, "forward")
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	var first struct {
		Geometry struct {
			Location domain.Coordinate `json:"location"`
		} `json:"geometry"`
	}
	if err := json.Unmarshal(results[0], &first); err != nil {
		return nil, fmt.Errorf("decode geocoding result: %w", err)
	}
	loc := first.Geometry.Location
	return &loc, nil
}

// response is the Google Geocoding API envelope. Results stay raw until a
// caller picks the fields it needs.
type response struct {
	Status       string            `json:"status"`
	ErrorMessage string            `json:"error_message"`
	Results      []json.RawMessage `json:"results"`
}

func (c *Client) doRequest(ctx context.Context, params url.Values, source string) ([]json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s geocode request: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("geocoding API error: status %d: %s", resp.StatusCode, body)
	}

	var envelope response
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	switch envelope.Status {
	case statusOK:
		return envelope.Results, nil
	case statusZeroResults:
		return nil, nil
	default:
		// OVER_QUERY_LIMIT, REQUEST_DENIED, INVALID_REQUEST, etc.
		return nil, fmt.Errorf("geocoding API error: %s: %s", envelope.Status, envelope.ErrorMessage)
	}
}
