package graph

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Mehrads/Brands-Relationships/pkg/tracing"
)

// EntityService handles brand node operations in the graph database
type EntityService struct {
	client *Client
	logger ectologger.Logger
}

// NewEntityService creates a new entity service
func NewEntityService(client *Client, logger ectologger.Logger) *EntityService {
	return &EntityService{
		client: client,
		logger: logger,
	}
}

// Ensure idempotently creates the brand node. Aliases accumulate append-only:
// variants not already on the node are added, existing ones are kept.
func (s *EntityService) Ensure(ctx context.Context, name string, aliases []string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.EntityService.Ensure")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"brand": name,
	})

	if aliases == nil {
		aliases = []string{}
	}

	cypher := `
		MERGE (b:Brand {name: $name})
		ON CREATE SET b.aliases = $aliases, b.created_at = datetime()
		ON MATCH SET b.aliases = b.aliases + [a IN $aliases WHERE NOT a IN b.aliases]
		SET b.updated_at = datetime()
		RETURN b
	`

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"name":    name,
			"aliases": aliases,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		log.WithError(err).Error("Failed to ensure brand in graph")
		return fmt.Errorf("failed to ensure brand %q in graph: %w", name, err)
	}

	log.Debug("Ensured brand in graph")
	return nil
}

// Get retrieves a brand node by canonical name. Returns nil when absent.
func (s *EntityService) Get(ctx context.Context, name string) (map[string]any, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.EntityService.Get")
	defer span.End()

	cypher := `
		MATCH (b:Brand {name: $name})
		RETURN b
	`

	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{"name": name})
		if err != nil {
			return nil, err
		}

		if result.Next(ctx) {
			record := result.Record()
			node, ok := record.Get("b")
			if !ok {
				return nil, nil
			}
			n := node.(neo4j.Node)
			return n.Props, nil
		}
		return nil, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get brand from graph: %w", err)
	}

	if result == nil {
		return nil, nil
	}

	return result.(map[string]any), nil
}
