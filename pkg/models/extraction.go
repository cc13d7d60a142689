package models

// BrandMention is one brand surfaced by extraction, with the text variants it
// appeared under and the passages that mention it.
type BrandMention struct {
	Name       string   `json:"name"`
	Aliases    []string `json:"aliases,omitempty"`
	Contexts   []string `json:"contexts,omitempty"`
	Confidence float64  `json:"confidence"`
}

// CitationType classifies where a citation points.
type CitationType string

const (
	CitationTypeArticle CitationType = "article"
	CitationTypeReport  CitationType = "report"
	CitationTypeSocial  CitationType = "social"
	CitationTypeOther   CitationType = "other"
)

// Citation is a reference found in the analyzed text, matched to a brand when
// the URL or surrounding text identifies one.
type Citation struct {
	URL        string       `json:"url"`
	Title      string       `json:"title,omitempty"`
	Brand      string       `json:"brand,omitempty"`
	Type       CitationType `json:"type"`
	Confidence float64      `json:"confidence"`
}

// CandidatePair is a (source, target) brand pair with the context qualifier
// inferred for one specific mention.
type CandidatePair struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Context  string `json:"context"`
	Evidence string `json:"evidence"`
}

// ExtractionOutput is everything extraction derives from one document.
type ExtractionOutput struct {
	Brands             []BrandMention  `json:"brands"`
	Category           string          `json:"category"`
	CategoryConfidence float64         `json:"category_confidence"`
	Citations          []Citation      `json:"citations,omitempty"`
	Pairs              []CandidatePair `json:"pairs"`
}
