// Package events handles event emission for resolved relationships and the
// review queue.
package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Mehrads/Brands-Relationships/pkg/kafka"
	"github.com/Mehrads/Brands-Relationships/pkg/models"
	"github.com/Mehrads/Brands-Relationships/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes analysis outcomes to the event stream. A nil producer
// disables emission entirely; every method is a no-op then.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// Enabled reports whether events will actually be published.
func (e *Emitter) Enabled() bool {
	return e != nil && e.producer != nil
}

// EmitRelationshipsResolved emits one relationship.resolved event per record
// from an analysis run. Store hits are not re-emitted; only records resolved
// this run carry new information.
func (e *Emitter) EmitRelationshipsResolved(ctx context.Context, records []models.RelationshipRecord) error {
	if !e.Enabled() {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRelationshipsResolved")
	defer span.End()

	events := make([]*kafka.RelationshipEvent, 0, len(records))
	for _, r := range records {
		if r.Provenance == models.ProvenanceStoreHit {
			continue
		}
		events = append(events, &kafka.RelationshipEvent{
			EventType:  "relationship.resolved",
			Source:     r.Key.Source,
			Target:     r.Key.Target,
			Category:   r.Key.Category,
			Context:    r.Key.Context,
			Kind:       r.Kind,
			Confidence: r.Confidence,
			Sentiment:  r.Sentiment,
			Provenance: r.Provenance,
			Flagged:    r.Flagged,
			Persisted:  r.Persisted,
		})
	}

	if err := e.producer.PublishRelationshipEvents(ctx, events); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit relationship.resolved events")
		return err
	}

	return nil
}

// EmitReviewFlagged emits a review.flagged event per quality gate item.
func (e *Emitter) EmitReviewFlagged(ctx context.Context, items []models.FlaggedItem) error {
	if !e.Enabled() {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitReviewFlagged")
	defer span.End()

	for _, item := range items {
		event := &kafka.ReviewEvent{
			EventType:  "review.flagged",
			ItemType:   string(item.Type),
			Source:     item.Name,
			Confidence: item.Confidence,
		}
		if item.Key != nil {
			event.Source = item.Key.Source
			event.Target = item.Key.Target
			event.Category = item.Key.Category
			event.Context = item.Key.Context
		}
		if err := e.producer.PublishReviewEvent(ctx, event); err != nil {
			e.logger.WithContext(ctx).WithError(err).Error("Failed to emit review.flagged event")
			return err
		}
	}

	return nil
}

// EmitReviewResolved emits a review.resolved event for a human decision.
func (e *Emitter) EmitReviewResolved(ctx context.Context, item *models.ReviewItem) error {
	if !e.Enabled() {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitReviewResolved")
	defer span.End()

	event := &kafka.ReviewEvent{
		EventType:  "review.resolved",
		ItemType:   item.ItemType,
		Source:     item.Source,
		Target:     item.Target,
		Category:   item.Category,
		Context:    item.Context,
		Confidence: item.Confidence,
		Status:     item.Status,
	}
	if err := e.producer.PublishReviewEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit review.resolved event")
		return err
	}

	return nil
}
