// Command genmock generates mock tracker messages for exercising the
// pipeline without a real phone: a random walk of GeoJSON Feature events
// around a starting coordinate, one JSON object per line, ready to pipe
// into a Kafka console producer against the source topic.
//
// Usage:
//
//	go run ./cmd/genmock -count 200 -device pixel-8 -out data/mock/locations.jsonl
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"
)

// Step size of the random walk, roughly 10m per fix at mid latitudes. Small
// enough that consecutive fixes usually share a geohash cell, which is the
// access pattern the proximity cache is built for.
const stepDegrees = 0.0001

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	count := flag.Int("count", 100, "number of location events to generate")
	device := flag.String("device", "mock-device", "device_id stamped on every event")
	lat := flag.Float64("lat", 37.7749, "walk starting latitude")
	lng := flag.Float64("lng", -122.4194, "walk starting longitude")
	seed := flag.Int64("seed", 1, "random seed, fixed for reproducible fixtures")
	out := flag.String("out", "", "output path (default stdout)")
	flag.Parse()

	if *count <= 0 {
		return fmt.Errorf("-count must be positive, got %d", *count)
	}

	w := os.Stdout
	if *out != "" {
		if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
			return err
		}
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	rng := rand.New(rand.NewSource(*seed))
	buf := bufio.NewWriter(w)
	defer buf.Flush()

	// Fixed base time keeps fixtures byte-stable across runs.
	ts := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	curLat, curLng := *lat, *lng

	for i := 0; i < *count; i++ {
		event := map[string]any{
			"type": "Feature",
			"geometry": map[string]any{
				"type":        "Point",
				"coordinates": []float64{round7(curLng), round7(curLat)},
			},
			"properties": map[string]any{
				"timestamp":           ts.Format(time.RFC3339),
				"device_id":           *device,
				"altitude":            10.0 + rng.Float64()*5,
				"speed":               rng.Float64() * 2,
				"horizontal_accuracy": 5.0,
				"vertical_accuracy":   3.0,
				"motion":              []string{"walking"},
				"battery_state":       "unplugged",
				"battery_level":       1.0 - float64(i)/float64(*count)*0.3,
				"wifi":                "",
			},
		}

		line, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if _, err := buf.Write(append(line, '\n')); err != nil {
			return err
		}

		curLat += (rng.Float64() - 0.5) * 2 * stepDegrees
		curLng += (rng.Float64() - 0.5) * 2 * stepDegrees
		ts = ts.Add(10 * time.Second)
	}

	return nil
}

func round7(v float64) float64 {
	const scale = 1e7
	return float64(int64(v*scale)) / scale
}
