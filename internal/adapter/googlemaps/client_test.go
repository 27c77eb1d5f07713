package googlemaps

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const (
	testKey           = "AIza-test-key"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string) *Client {
	return &Client{
		apiKey:     testKey,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

const reverseResultJSON = `{
	"formatted_address": "1 Dr Carlton B Goodlett Pl, San Francisco, CA 94102, USA",
	"place_id": "ChIJIQBpAG2ahYAR_6128GcTUEo",
	"address_components": [
		{"long_name": "San Francisco", "short_name": "SF", "types": ["locality", "political"]},
		{"long_name": "California", "short_name": "CA", "types": ["administrative_area_level_1", "political"]},
		{"long_name": "United States", "short_name": "US", "types": ["country", "political"]},
		{"long_name": "94102", "short_name": "94102", "types": ["postal_code"]}
	],
	"geometry": {"location": {"lat": 37.7792808, "lng": -122.4192363}}
}`

func TestClient_ReverseGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testKey, r.URL.Query().Get("key"))
		assert.Equal(t, "37.7749000,-122.4194000", r.URL.Query().Get("latlng"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"status":"OK","results":[` + reverseResultJSON + `]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	data, err := c.ReverseGeocode(context.Background(), 37.7749, -122.4194)
	require.NoError(t, err)
	require.NotNil(t, data)

	assert.Equal(t, "1 Dr Carlton B Goodlett Pl, San Francisco, CA 94102, USA", data.FormattedAddress)
	assert.Equal(t, "ChIJIQBpAG2ahYAR_6128GcTUEo", data.PlaceID)
	require.Len(t, data.Components, 4)
	assert.Equal(t, "San Francisco", data.Components[0].LongName)
	assert.Equal(t, "SF", data.Components[0].ShortName)
	assert.NotEmpty(t, data.Raw, "raw provider result should be preserved")

	// Raw must stay valid JSON carrying fields the struct does not model.
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data.Raw, &raw))
	assert.Contains(t, raw, "geometry")
}

func TestClient_ReverseGeocode_ZeroResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	data, err := c.ReverseGeocode(context.Background(), 0.0, 0.0)
	require.NoError(t, err, "no result is not an error")
	assert.Nil(t, data)
}

func TestClient_ReverseGeocode_ProviderStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid.","results":[]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.ReverseGeocode(context.Background(), 37.7749, -122.4194)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_DENIED")
	assert.Contains(t, err.Error(), "API key is invalid")
}

func TestClient_ReverseGeocode_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("upstream broke"))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.ReverseGeocode(context.Background(), 37.7749, -122.4194)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestClient_ForwardGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "San Francisco City Hall", r.URL.Query().Get("address"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"status":"OK","results":[` + reverseResultJSON + `]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	coord, err := c.ForwardGeocode(context.Background(), "San Francisco City Hall")
	require.NoError(t, err)
	require.NotNil(t, coord)
	assert.InDelta(t, 37.7792808, coord.Lat, 1e-9)
	assert.InDelta(t, -122.4192363, coord.Lng, 1e-9)
}

func TestClient_ForwardGeocode_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	coord, err := c.ForwardGeocode(context.Background(), "XYZNONEXISTENT99")
	require.NoError(t, err)
	assert.Nil(t, coord)
}

func TestClient_ReverseGeocode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}

	_, err := c.ReverseGeocode(context.Background(), 37.7749, -122.4194)
	require.Error(t, err)
}

func TestClient_RateLimiterHonorsContext(t *testing.T) {
	c := testClient("http://unused.invalid")
	// Zero-rate limiter never admits a request; a cancelled context must
	// surface instead of blocking forever.
	c.limiter = rate.NewLimiter(0, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.ReverseGeocode(ctx, 37.7749, -122.4194)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}
