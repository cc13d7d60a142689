// Package discovery wraps the external web search service used to gather
// supporting evidence for a brand pair before classification.
package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/Mehrads/Brands-Relationships/pkg/models"
)

// Searcher returns a bounded, ranked list of text snippets for a query.
// Implementations must not error on zero results and must respect maxResults.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error)
}

// BuildQuery composes the discovery query for a brand pair. Category keywords
// narrow the search toward the facet of the relationship being resolved.
func BuildQuery(source, target, category, context string) string {
	parts := []string{
		fmt.Sprintf("%q %q relationship", source, target),
	}
	if category != "" {
		parts = append(parts, category)
	}
	if context != "" {
		parts = append(parts, strings.ReplaceAll(context, "_", " "))
	}
	return strings.Join(parts, " ")
}
