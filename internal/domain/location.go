package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// LocationRecord is one GPS fix after flattening the tracker's GeoJSON
// Feature into tabular form. Speed, course, and their accuracies use -1 as
// the "unmeasured" sentinel.
type LocationRecord struct {
	Timestamp          time.Time `json:"timestamp"`
	DeviceID           string    `json:"device_id"`
	Latitude           float64   `json:"latitude"`
	Longitude          float64   `json:"longitude"`
	Altitude           float64   `json:"altitude"`
	Speed              float64   `json:"speed"`
	SpeedAccuracy      float64   `json:"speed_accuracy"`
	Course             float64   `json:"course"`
	CourseAccuracy     float64   `json:"course_accuracy"`
	HorizontalAccuracy float64   `json:"horizontal_accuracy"`
	VerticalAccuracy   float64   `json:"vertical_accuracy"`
	Motion             string    `json:"motion"` // comma-joined motion states
	BatteryState       string    `json:"battery_state"`
	BatteryLevel       float64   `json:"battery_level"`
	Wifi               string    `json:"wifi"`
}

// locationFeature mirrors the GeoJSON Feature published by the tracker.
// Pointer fields distinguish absent properties from real zeroes.
type locationFeature struct {
	Type     string `json:"type"`
	Geometry struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"` // [lng, lat]
	} `json:"geometry"`
	Properties struct {
		Timestamp          time.Time `json:"timestamp"`
		DeviceID           string    `json:"device_id"`
		Altitude           float64   `json:"altitude"`
		Speed              *float64  `json:"speed"`
		SpeedAccuracy      *float64  `json:"speed_accuracy"`
		Course             *float64  `json:"course"`
		CourseAccuracy     *float64  `json:"course_accuracy"`
		HorizontalAccuracy float64   `json:"horizontal_accuracy"`
		VerticalAccuracy   float64   `json:"vertical_accuracy"`
		Motion             []string  `json:"motion"`
		BatteryState       string    `json:"battery_state"`
		BatteryLevel       float64   `json:"battery_level"`
		Wifi               string    `json:"wifi"`
	} `json:"properties"`
}

// ParseLocationEvent decodes a raw tracker message into a LocationRecord.
// GeoJSON stores coordinates as [longitude, latitude]; anything without a
// two-element coordinate array is rejected.
func ParseLocationEvent(raw RawEvent) (LocationRecord, error) {
	var feature locationFeature
	if err := json.Unmarshal(raw.Value, &feature); err != nil {
		return LocationRecord{}, fmt.Errorf("parse location event: %w", err)
	}

	coords := feature.Geometry.Coordinates
	if len(coords) < 2 {
		return LocationRecord{}, fmt.Errorf("parse location event: geometry has %d coordinates, need 2", len(coords))
	}

	props := feature.Properties
	rec := LocationRecord{
		Timestamp:          props.Timestamp,
		DeviceID:           props.DeviceID,
		Longitude:          coords[0],
		Latitude:           coords[1],
		Altitude:           props.Altitude,
		Speed:              sentinelOr(props.Speed),
		SpeedAccuracy:      sentinelOr(props.SpeedAccuracy),
		Course:             sentinelOr(props.Course),
		CourseAccuracy:     sentinelOr(props.CourseAccuracy),
		HorizontalAccuracy: props.HorizontalAccuracy,
		VerticalAccuracy:   props.VerticalAccuracy,
		Motion:             strings.Join(props.Motion, ","),
		BatteryState:       props.BatteryState,
		BatteryLevel:       props.BatteryLevel,
		Wifi:               props.Wifi,
	}
	return rec, nil
}

// sentinelOr returns the tracker's -1 sentinel when the property was absent.
func sentinelOr(v *float64) float64 {
	if v == nil {
		return -1
	}
	return *v
}
