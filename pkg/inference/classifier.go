// Package inference wraps the external classification engine that turns
// accumulated evidence into a structured relationship judgment.
package inference

import (
	"context"
	"fmt"

	"github.com/Mehrads/Brands-Relationships/pkg/models"
)

// Classifier produces a relationship judgment for one brand pair.
type Classifier interface {
	Classify(ctx context.Context, input models.ClassifyInput) (*models.Judgment, error)
}

// rawJudgment is the classifier wire format before validation.
type rawJudgment struct {
	Kind       string  `json:"kind"`
	Confidence float64 `json:"confidence"`
	Sentiment  string  `json:"sentiment"`
	Rationale  string  `json:"rationale"`
	Evidence   string  `json:"evidence"`
}

// validate converts a raw response into a Judgment. Out-of-range confidence
// and missing required fields are malformed-response errors; unrecognized
// kind and sentiment labels degrade to unknown/neutral instead.
func (r rawJudgment) validate() (*models.Judgment, error) {
	if r.Confidence < 0 || r.Confidence > 1 {
		return nil, fmt.Errorf("confidence %f out of range [0,1]", r.Confidence)
	}
	if r.Kind == "" {
		return nil, fmt.Errorf("missing relationship kind")
	}
	if r.Rationale == "" {
		return nil, fmt.Errorf("missing rationale")
	}

	return &models.Judgment{
		Kind:       models.ParseKind(r.Kind),
		Confidence: r.Confidence,
		Sentiment:  models.ParseSentiment(r.Sentiment),
		Rationale:  r.Rationale,
		Evidence:   r.Evidence,
	}, nil
}
