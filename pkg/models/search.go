package models

// SearchResult is one ranked snippet returned by the discovery service.
type SearchResult struct {
	SourceName string  `json:"source_name"`
	Snippet    string  `json:"snippet"`
	URL        string  `json:"url"`
	Score      float64 `json:"score,omitempty"`
}
