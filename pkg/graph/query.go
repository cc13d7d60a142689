package graph

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Mehrads/Brands-Relationships/pkg/tracing"
)

// QueryService handles aggregate graph queries
type QueryService struct {
	client *Client
	logger ectologger.Logger
}

// NewQueryService creates a new query service
func NewQueryService(client *Client, logger ectologger.Logger) *QueryService {
	return &QueryService{
		client: client,
		logger: logger,
	}
}

// Stats holds store-wide counts
type Stats struct {
	Brands        int64 `json:"brands"`
	Relationships int64 `json:"relationships"`
}

// Stats returns total brand and relationship counts
func (s *QueryService) Stats(ctx context.Context) (*Stats, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.QueryService.Stats")
	defer span.End()

	cypher := `
		MATCH (b:Brand)
		OPTIONAL MATCH ()-[r:RELATES_TO]->()
		RETURN count(DISTINCT b) AS brands, count(DISTINCT r) AS relationships
	`

	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, nil)
		if err != nil {
			return nil, err
		}
		if !result.Next(ctx) {
			return &Stats{}, nil
		}
		record := result.Record()
		stats := &Stats{}
		if v, ok := record.Get("brands"); ok {
			stats.Brands, _ = v.(int64)
		}
		if v, ok := record.Get("relationships"); ok {
			stats.Relationships, _ = v.(int64)
		}
		return stats, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get graph stats: %w", err)
	}

	return result.(*Stats), nil
}

// GraphNode is a brand node in the visualization payload
type GraphNode struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
}

// GraphEdge is a relationship edge in the visualization payload
type GraphEdge struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Kind       string  `json:"kind"`
	Category   string  `json:"category"`
	Context    string  `json:"context"`
	Confidence float64 `json:"confidence"`
	Flagged    bool    `json:"flagged"`
}

// GraphData is the nodes + edges payload for visualization
type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// maxGraphEdges bounds the visualization payload
const maxGraphEdges = 1000

// GraphData returns the full graph for visualization, optionally filtered by category
func (s *QueryService) GraphData(ctx context.Context, categoryFilter string) (*GraphData, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.QueryService.GraphData")
	defer span.End()

	cypher := `
		MATCH (source:Brand)-[r:RELATES_TO]->(target:Brand)
	`
	params := map[string]any{"limit": maxGraphEdges}
	if categoryFilter != "" {
		cypher += " WHERE r.category = $category"
		params["category"] = categoryFilter
	}
	cypher += `
		RETURN source, target, r
		LIMIT $limit
	`

	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}

		data := &GraphData{
			Nodes: make([]GraphNode, 0),
			Edges: make([]GraphEdge, 0),
		}
		seen := make(map[string]bool)

		for result.Next(ctx) {
			record := result.Record()
			sourceVal, _ := record.Get("source")
			targetVal, _ := record.Get("target")
			relVal, _ := record.Get("r")

			source := sourceVal.(neo4j.Node)
			target := targetVal.(neo4j.Node)
			rel := relVal.(neo4j.Relationship)

			for _, node := range []neo4j.Node{source, target} {
				name := stringProp(node.Props, "name")
				if seen[name] {
					continue
				}
				seen[name] = true
				data.Nodes = append(data.Nodes, GraphNode{
					Name:    name,
					Aliases: stringSliceProp(node.Props, "aliases"),
				})
			}

			edge := GraphEdge{
				Source:   stringProp(source.Props, "name"),
				Target:   stringProp(target.Props, "name"),
				Kind:     stringProp(rel.Props, "kind"),
				Category: stringProp(rel.Props, "category"),
				Context:  stringProp(rel.Props, "relationship_context"),
			}
			if v, ok := rel.Props["confidence"].(float64); ok {
				edge.Confidence = v
			}
			if v, ok := rel.Props["flagged"].(bool); ok {
				edge.Flagged = v
			}
			data.Edges = append(data.Edges, edge)
		}
		return data, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get graph data: %w", err)
	}

	return result.(*GraphData), nil
}

func stringSliceProp(props map[string]any, key string) []string {
	raw, ok := props[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
