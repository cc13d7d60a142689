package models

// AnalyzeRequest is the public entry point payload.
type AnalyzeRequest struct {
	Text         string `json:"text" validate:"required"`
	SubjectBrand string `json:"subject_brand" validate:"required"`
}

// UnresolvedPair reports a pair whose resolution failed outright.
type UnresolvedPair struct {
	Source  string `json:"source"`
	Target  string `json:"target"`
	Context string `json:"context"`
	Reason  string `json:"reason"`
}

// TierCounts breaks down how each resolved record was produced.
type TierCounts struct {
	StoreHits int `json:"store_hits"`
	Discovery int `json:"discovery_derived"`
	Inference int `json:"inference_only"`
}

// AnalysisResult is the full output of one analysis run. Partial failures are
// reported explicitly; a silent partial result is never returned.
type AnalysisResult struct {
	SubjectBrand  string               `json:"subject_brand"`
	Category      string               `json:"category"`
	Brands        []BrandMention       `json:"brands"`
	Relationships []RelationshipRecord `json:"relationships"`
	Citations     []Citation           `json:"citations,omitempty"`
	FlaggedItems  []FlaggedItem        `json:"flagged_items,omitempty"`
	Unresolved    []UnresolvedPair     `json:"unresolved_pairs,omitempty"`
	NotPersisted  []RelationshipKey    `json:"not_persisted,omitempty"`
	Tiers         TierCounts           `json:"tiers"`
	Warnings      []string             `json:"warnings,omitempty"`
}
