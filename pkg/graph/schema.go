package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Mehrads/Brands-Relationships/pkg/tracing"
)

// EnsureConstraints creates the uniqueness constraint and indexes the store
// relies on. Safe to run on every startup.
func (c *Client) EnsureConstraints(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Client.EnsureConstraints")
	defer span.End()

	statements := []string{
		"CREATE CONSTRAINT brand_name IF NOT EXISTS FOR (b:Brand) REQUIRE b.name IS UNIQUE",
		"CREATE INDEX rel_category IF NOT EXISTS FOR ()-[r:RELATES_TO]-() ON (r.category)",
	}

	for _, stmt := range statements {
		_, err := c.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			result, err := tx.Run(ctx, stmt, nil)
			if err != nil {
				return nil, err
			}
			return result.Consume(ctx)
		})
		if err != nil {
			c.logger.WithContext(ctx).WithError(err).Error("Failed to ensure graph constraints")
			return fmt.Errorf("failed to ensure graph constraints: %w", err)
		}
	}

	c.logger.WithContext(ctx).Debug("Graph constraints ensured")
	return nil
}
