package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Mehrads/Brands-Relationships/pkg/models"
	"github.com/Mehrads/Brands-Relationships/pkg/tracing"
)

const timeLayout = "2006-01-02T15:04:05Z"

// RelationshipService handles relationship edge operations in the graph database.
// Edges are identified by the composite key (source, target, category, context);
// the same brand pair can hold independent edges under different combinations.
type RelationshipService struct {
	client *Client
	logger ectologger.Logger
}

// NewRelationshipService creates a new relationship service
func NewRelationshipService(client *Client, logger ectologger.Logger) *RelationshipService {
	return &RelationshipService{
		client: client,
		logger: logger,
	}
}

// Lookup performs an exact point read on the composite key. Returns (nil, nil)
// on a miss so callers can distinguish absence from store failure.
func (s *RelationshipService) Lookup(ctx context.Context, key models.RelationshipKey) (*models.RelationshipRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.RelationshipService.Lookup")
	defer span.End()

	cypher := `
		MATCH (source:Brand {name: $source})-[r:RELATES_TO {category: $category, relationship_context: $context}]->(target:Brand {name: $target})
		RETURN r
		LIMIT 1
	`

	res, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"source":   key.Source,
			"target":   key.Target,
			"category": key.Category,
			"context":  key.Context,
		})
		if err != nil {
			return nil, err
		}
		if !result.Next(ctx) {
			return nil, nil
		}
		record := result.Record()
		relNode, _ := record.Get("r")
		r := relNode.(neo4j.Relationship)
		return r.Props, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to lookup relationship %s: %w", key, err)
	}
	if res == nil {
		return nil, nil
	}

	rec := recordFromProps(key, res.(map[string]any))
	return &rec, nil
}

// Upsert MERGEs the edge on the composite key. An existing edge with the same
// key is replaced property-by-property; last-writer-wins, never an error on
// duplicate. A new (category, context) combination always creates a new edge.
func (s *RelationshipService) Upsert(ctx context.Context, record *models.RelationshipRecord) error {
	ctx, span := tracing.StartSpan(ctx, "graph.RelationshipService.Upsert")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"source":   record.Key.Source,
		"target":   record.Key.Target,
		"category": record.Key.Category,
		"context":  record.Key.Context,
		"kind":     record.Kind,
	})

	updatedAt := record.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	props := map[string]any{
		"kind":       string(record.Kind),
		"confidence": record.Confidence,
		"sentiment":  string(record.Sentiment),
		"evidence":   record.Evidence,
		"provenance": string(record.Provenance),
		"flagged":    record.Flagged,
		"rationale":  record.Rationale,
		"updated_at": updatedAt.UTC().Format(timeLayout),
	}

	cypher := `
		MATCH (source:Brand {name: $source})
		MATCH (target:Brand {name: $target})
		MERGE (source)-[r:RELATES_TO {category: $category, relationship_context: $context}]->(target)
		SET r += $props
		RETURN r
	`

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"source":   record.Key.Source,
			"target":   record.Key.Target,
			"category": record.Key.Category,
			"context":  record.Key.Context,
			"props":    props,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		log.WithError(err).Error("Failed to upsert relationship in graph")
		return fmt.Errorf("failed to upsert relationship %s: %w", record.Key, err)
	}

	log.Debug("Upserted relationship in graph")
	return nil
}

// AllForBrand returns every edge touching the brand in either direction,
// optionally filtered by category. Ordering is stable for pagination.
func (s *RelationshipService) AllForBrand(ctx context.Context, name string, categoryFilter string) ([]models.RelationshipRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.RelationshipService.AllForBrand")
	defer span.End()

	cypher := `
		MATCH (source:Brand)-[r:RELATES_TO]->(target:Brand)
		WHERE (source.name = $name OR target.name = $name)
	`
	params := map[string]any{"name": name}
	if categoryFilter != "" {
		cypher += " AND r.category = $category"
		params["category"] = categoryFilter
	}
	cypher += `
		RETURN source.name AS source, target.name AS target, r
		ORDER BY r.updated_at DESC, source.name, target.name, r.category, r.relationship_context
	`

	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}

		records := make([]models.RelationshipRecord, 0)
		for result.Next(ctx) {
			rec := result.Record()
			sourceVal, _ := rec.Get("source")
			targetVal, _ := rec.Get("target")
			relNode, _ := rec.Get("r")
			r := relNode.(neo4j.Relationship)

			key := models.RelationshipKey{
				Source:   sourceVal.(string),
				Target:   targetVal.(string),
				Category: stringProp(r.Props, "category"),
				Context:  stringProp(r.Props, "relationship_context"),
			}
			records = append(records, recordFromProps(key, r.Props))
		}
		return records, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get relationships for brand %q: %w", name, err)
	}

	return result.([]models.RelationshipRecord), nil
}

// AboveConfidence returns every edge in the store at or above the confidence floor.
func (s *RelationshipService) AboveConfidence(ctx context.Context, floor float64) ([]models.RelationshipRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.RelationshipService.AboveConfidence")
	defer span.End()

	cypher := `
		MATCH (source:Brand)-[r:RELATES_TO]->(target:Brand)
		WHERE r.confidence >= $floor
		RETURN source.name AS source, target.name AS target, r
		ORDER BY r.confidence DESC, source.name, target.name
	`

	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{"floor": floor})
		if err != nil {
			return nil, err
		}

		records := make([]models.RelationshipRecord, 0)
		for result.Next(ctx) {
			rec := result.Record()
			sourceVal, _ := rec.Get("source")
			targetVal, _ := rec.Get("target")
			relNode, _ := rec.Get("r")
			r := relNode.(neo4j.Relationship)

			key := models.RelationshipKey{
				Source:   sourceVal.(string),
				Target:   targetVal.(string),
				Category: stringProp(r.Props, "category"),
				Context:  stringProp(r.Props, "relationship_context"),
			}
			records = append(records, recordFromProps(key, r.Props))
		}
		return records, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get relationships above confidence %.2f: %w", floor, err)
	}

	return result.([]models.RelationshipRecord), nil
}

func recordFromProps(key models.RelationshipKey, props map[string]any) models.RelationshipRecord {
	record := models.RelationshipRecord{
		Key:        key,
		Kind:       models.ParseKind(stringProp(props, "kind")),
		Sentiment:  models.ParseSentiment(stringProp(props, "sentiment")),
		Evidence:   stringProp(props, "evidence"),
		Rationale:  stringProp(props, "rationale"),
		Provenance: models.Provenance(stringProp(props, "provenance")),
		Persisted:  true,
	}

	if v, ok := props["confidence"].(float64); ok {
		record.Confidence = v
	}
	if v, ok := props["flagged"].(bool); ok {
		record.Flagged = v
	}
	if v, ok := props["updated_at"].(string); ok {
		if ts, err := time.Parse(timeLayout, v); err == nil {
			record.UpdatedAt = ts
		}
	}

	return record
}

func stringProp(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}
