// Command cachectl inspects and maintains the geocoding proximity cache
// from the command line, using the same configuration as the service.
//
// Usage:
//
//	cachectl -stats
//	cachectl -evict
//	cachectl -lookup "37.7749,-122.4194"
//	cachectl -geocode "1 Dr Carlton B Goodlett Pl, San Francisco"
//
// -lookup serves from the cache when it can and falls back to the provider
// when geocoding is enabled; -geocode always asks the provider.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/location-enrichment/internal/adapter/googlemaps"
	"github.com/couchcryptid/location-enrichment/internal/config"
	"github.com/couchcryptid/location-enrichment/internal/domain"
	"github.com/couchcryptid/location-enrichment/internal/enrich"
	"github.com/couchcryptid/location-enrichment/internal/observability"
)

func main() {
	stats := flag.Bool("stats", false, "print cache statistics")
	evict := flag.Bool("evict", false, "remove expired entries and persist the cache")
	lookup := flag.String("lookup", "", `reverse-geocode a "lat,lng" pair`)
	geocode := flag.String("geocode", "", "forward-geocode an address")
	flag.Parse()

	if !*stats && !*evict && *lookup == "" && *geocode == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*stats, *evict, *lookup, *geocode); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(stats, evict bool, lookup, geocode string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Warn-level logging keeps command output pipeable.
	logger := observability.NewLogger("warn", "text")
	metrics := observability.NewMetrics()

	ctx := context.Background()

	var geocoder domain.Geocoder
	if cfg.GeocodeEnabled {
		geocoder = googlemaps.NewClient(cfg.GoogleMapsAPIKey, cfg.GeocodeTimeout, cfg.QueriesPerSecond, logger)
	}

	svc, err := enrich.NewService(ctx, cfg, geocoder, logger, metrics, clockwork.NewRealClock())
	if err != nil {
		return err
	}
	svc.Start(ctx)

	if stats {
		s := svc.Store().Stats()
		fmt.Printf("location:        %s\n", s.Location)
		fmt.Printf("ttl:             %s\n", s.TTL)
		fmt.Printf("total entries:   %d\n", s.TotalEntries)
		fmt.Printf("valid entries:   %d\n", s.ValidEntries)
		fmt.Printf("expired entries: %d\n", s.ExpiredEntries)
	}

	if evict {
		removed, err := svc.Store().EvictExpired(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("evicted %d expired entries\n", removed)
	}

	if lookup != "" {
		lat, lng, err := parseLatLng(lookup)
		if err != nil {
			return err
		}
		addr, err := svc.Engine().Address(ctx, lat, lng)
		if err != nil {
			return err
		}
		if addr == "" {
			fmt.Println("no address found")
		} else {
			fmt.Println(addr)
		}
	}

	if geocode != "" {
		coord, err := svc.Engine().Coordinates(ctx, geocode)
		if err != nil {
			return err
		}
		if coord == nil {
			fmt.Println("no match found (is geocoding enabled?)")
		} else {
			fmt.Printf("%.7f,%.7f\n", coord.Lat, coord.Lng)
		}
	}

	return svc.Close(ctx)
}

func parseLatLng(s string) (float64, float64, error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf(`invalid coordinate %q: want "lat,lng"`, s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q: %w", parts[0], err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q: %w", parts[1], err)
	}
	return lat, lng, nil
}
