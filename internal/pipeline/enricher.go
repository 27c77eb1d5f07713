package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/location-enrichment/internal/domain"
	"github.com/couchcryptid/location-enrichment/internal/enrich"
	"github.com/couchcryptid/location-enrichment/internal/observability"
)

// LocationEnricher implements BatchEnricher: it parses raw tracker
// messages, resolves addresses through the enrichment engine, and
// serializes the widened records for the sink topic.
type LocationEnricher struct {
	engine  *enrich.Engine
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewLocationEnricher creates the pipeline's enrichment stage.
func NewLocationEnricher(engine *enrich.Engine, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *LocationEnricher {
	return &LocationEnricher{
		engine:  engine,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// EnrichBatch parses every raw event, enriches the parseable ones in a
// single engine batch, and serializes the results. Unparseable messages
// land in Skipped; an engine error fails the whole batch so no offsets
// advance past unenriched data.
func (le *LocationEnricher) EnrichBatch(ctx context.Context, raws []domain.RawEvent) (Batch, error) {
	batch := Batch{
		Events:  make([]domain.OutputEvent, 0, len(raws)),
		Sources: make([]domain.RawEvent, 0, len(raws)),
	}

	rows := make([]enrich.Row, 0, len(raws))
	parsed := make([]domain.RawEvent, 0, len(raws))

	for _, raw := range raws {
		rec, err := domain.ParseLocationEvent(raw)
		if err != nil {
			le.logger.Warn("unparseable location event, skipping",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			le.metrics.ParseErrors.Inc()
			batch.Skipped = append(batch.Skipped, raw)
			continue
		}
		rows = append(rows, rowFromRecord(rec))
		parsed = append(parsed, raw)
	}

	if len(rows) == 0 {
		return batch, nil
	}

	enriched, err := le.engine.EnrichRows(ctx, rows, enrich.Options{})
	if err != nil {
		return Batch{}, err
	}

	processedAt := le.clock.Now().UTC().Format(time.RFC3339)
	for i, row := range enriched {
		value, err := json.Marshal(row)
		if err != nil {
			// Enriched rows hold only JSON-safe values; treat a failure
			// like a parse error rather than wedging the batch.
			le.logger.Warn("serialize enriched record failed, skipping",
				"error", err, "offset", parsed[i].Offset)
			le.metrics.ParseErrors.Inc()
			batch.Skipped = append(batch.Skipped, parsed[i])
			continue
		}

		deviceID, _ := row["device_id"].(string)
		batch.Events = append(batch.Events, domain.OutputEvent{
			Key:   []byte(deviceID),
			Value: value,
			Headers: map[string]string{
				"device_id":    deviceID,
				"processed_at": processedAt,
			},
		})
		batch.Sources = append(batch.Sources, parsed[i])
	}

	return batch, nil
}

// rowFromRecord widens a location record into the tabular form the
// enrichment engine joins against. Column names double as the sink
// topic's JSON field names.
func rowFromRecord(rec domain.LocationRecord) enrich.Row {
	return enrich.Row{
		"timestamp":           rec.Timestamp,
		"device_id":           rec.DeviceID,
		"latitude":            rec.Latitude,
		"longitude":           rec.Longitude,
		"altitude":            rec.Altitude,
		"speed":               rec.Speed,
		"speed_accuracy":      rec.SpeedAccuracy,
		"course":              rec.Course,
		"course_accuracy":     rec.CourseAccuracy,
		"horizontal_accuracy": rec.HorizontalAccuracy,
		"vertical_accuracy":   rec.VerticalAccuracy,
		"motion":              rec.Motion,
		"battery_state":       rec.BatteryState,
		"battery_level":       rec.BatteryLevel,
		"wifi":                rec.Wifi,
	}
}
