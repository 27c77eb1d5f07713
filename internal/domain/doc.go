// Package domain models personal location telemetry and the geocoding
// payloads used to enrich it.
//
// # Data Source
//
// Location fixes originate from a mobile tracker that publishes GeoJSON
// Feature objects, one per GPS fix. The geometry carries the coordinate in
// GeoJSON order ([longitude, latitude]); the properties carry device
// metadata such as device_id, speed, motion state, and battery level.
// The collector batches these features and publishes each one as a single
// JSON message to the Kafka source topic.
//
// # Sentinel Values
//
// The tracker reports -1 for speed, speed_accuracy, course, and
// course_accuracy when the sensor had no reading. Missing properties keep
// that convention during parsing so downstream consumers can tell
// "unmeasured" apart from a real zero.
//
// # Geocoding
//
// Reverse geocoding converts a coordinate into address data. Providers are
// paid and rate-limited, so results are cached by geohash cell (see the
// cache package) and reused for nearby fixes. [GeocodingData] is
// deliberately provider-agnostic: the typed fields cover what enrichment
// extracts, and Raw preserves the full provider response so cached entries
// outlive any one provider's JSON shape.
package domain
