package models

// Judgment is the structured classification the inference engine returns for
// one brand pair. Confidence is always in [0,1] after validation.
type Judgment struct {
	Kind       RelationshipKind `json:"kind"`
	Confidence float64          `json:"confidence"`
	Sentiment  Sentiment        `json:"sentiment"`
	Rationale  string           `json:"rationale"`
	Evidence   string           `json:"evidence,omitempty"`
}

// ClassifyInput carries the accumulated evidence for one pair resolution.
type ClassifyInput struct {
	Source      string              `json:"source"`
	Target      string              `json:"target"`
	Category    string              `json:"category"`
	Context     string              `json:"context"`
	Evidence    string              `json:"evidence"`
	Snippets    []SearchResult      `json:"snippets,omitempty"`
	PriorRecord *RelationshipRecord `json:"prior_record,omitempty"`
}
