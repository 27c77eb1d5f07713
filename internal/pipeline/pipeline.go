// Package pipeline orchestrates the extract-enrich-load loop that moves
// location fixes from the raw topic to the enriched topic.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/location-enrichment/internal/domain"
	"github.com/couchcryptid/location-enrichment/internal/observability"
)

// BatchExtractor reads up to batchSize raw events from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Batch is the outcome of enriching one extracted batch. Events and
// Sources run in lockstep: Sources[i] is the raw event behind Events[i]
// and is committed once the batch has been loaded. Skipped events carry
// payloads that could not be parsed; they are committed without loading so
// a poison message never wedges the partition.
type Batch struct {
	Events  []domain.OutputEvent
	Sources []domain.RawEvent
	Skipped []domain.RawEvent
}

// BatchEnricher turns raw events into enriched output events. An error
// means nothing from the batch is committed or loaded; the pipeline keeps
// retrying the same batch with backoff.
type BatchEnricher interface {
	EnrichBatch(ctx context.Context, raws []domain.RawEvent) (Batch, error)
}

// BatchLoader writes output events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Pipeline runs the extract-enrich-load loop.
type Pipeline struct {
	extractor BatchExtractor
	enricher  BatchEnricher
	loader    BatchLoader
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	batchSize int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, en BatchEnricher, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor: e,
		enricher:  en,
		loader:    l,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// CheckReadiness returns nil once the pipeline has loaded at least one
// batch, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any messages yet")
	}
	return nil
}

// Run executes the batch loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	// Keeps retry storms short while avoiding tight loops during outages.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one extract-enrich-load cycle. Returns false if the
// pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.MessagesConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = 200 * time.Millisecond

	// The consumer's fetch position has already moved past these messages,
	// so an uncommitted failure is not redelivered until a rebalance or
	// restart. Retry the same in-memory batch here rather than extracting
	// a fresh one and losing these events.
	for {
		err := p.deliverBatch(ctx, rawBatch)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("batch delivery failed", "error", err, "batch_size", len(rawBatch))
		if !p.backoffOrStop(ctx, backoff, maxBackoff) {
			return false
		}
	}

	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	return true
}

// deliverBatch enriches one extracted batch, loads the results, and commits
// the source offsets. Skipped (unparseable) events are committed without
// loading. Safe to call again with the same batch after a failure:
// enrichment is idempotent through the geocoding cache and committing an
// offset twice is harmless.
func (p *Pipeline) deliverBatch(ctx context.Context, rawBatch []domain.RawEvent) error {
	batch, err := p.enricher.EnrichBatch(ctx, rawBatch)
	if err != nil {
		return fmt.Errorf("enrich batch: %w", err)
	}

	for _, raw := range batch.Skipped {
		p.commitOffset(ctx, raw)
	}

	if len(batch.Events) == 0 {
		return nil
	}

	if err := p.loader.LoadBatch(ctx, batch.Events); err != nil {
		return fmt.Errorf("load batch: %w", err)
	}

	p.metrics.MessagesProduced.Add(float64(len(batch.Events)))

	for _, raw := range batch.Sources {
		p.commitOffset(ctx, raw)
	}

	p.ready.Store(true)
	return nil
}

// backoffOrStop checks for context cancellation, sleeps with the current
// backoff, and advances the backoff. Returns false if the pipeline should
// stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
