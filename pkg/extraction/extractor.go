// Package extraction identifies brands, the document category, citations, and
// candidate relationship pairs in unstructured text.
package extraction

import (
	"context"

	"github.com/Mehrads/Brands-Relationships/pkg/models"
)

// Extractor produces the candidate inputs for relationship resolution.
// Returned brand names are canonical and deduplicated; pairs are directed
// from the subject brand toward each other brand with a context qualifier
// per mention.
type Extractor interface {
	Extract(ctx context.Context, text string, subject string) (*models.ExtractionOutput, error)
}
