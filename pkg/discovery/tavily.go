package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Mehrads/Brands-Relationships/pkg/models"
	"github.com/Mehrads/Brands-Relationships/pkg/tracing"
)

// SearchError provides detailed error information for search failures
type SearchError struct {
	Query      string
	StatusCode int
	Message    string
	Err        error
}

func (e *SearchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("search %q: %s (status %d)", e.Query, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("search %q: %s", e.Query, e.Message)
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// TavilyConfig holds the Tavily API settings
type TavilyConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// TavilyClient is a Searcher over the Tavily search REST API
type TavilyClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  ectologger.Logger
}

// NewTavilyClient creates a new Tavily search client
func NewTavilyClient(cfg TavilyConfig, logger ectologger.Logger) *TavilyClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.tavily.com"
	}

	return &TavilyClient{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type tavilyRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
}

// Search queries Tavily and returns up to maxResults snippets. Zero results
// is a valid response, not an error.
func (t *TavilyClient) Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "discovery.TavilyClient.Search")
	defer span.End()

	if t.apiKey == "" {
		return nil, &SearchError{Query: query, Message: "missing api key"}
	}
	if maxResults < 1 {
		maxResults = 5
	}

	body, err := json.Marshal(tavilyRequest{
		APIKey:     t.apiKey,
		Query:      query,
		MaxResults: maxResults,
	})
	if err != nil {
		return nil, &SearchError{Query: query, Message: "failed to encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, &SearchError{Query: query, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &SearchError{Query: query, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &SearchError{
			Query:      query,
			StatusCode: resp.StatusCode,
			Message:    string(raw),
		}
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &SearchError{Query: query, Message: "failed to decode response", Err: err}
	}

	results := make([]models.SearchResult, 0, len(parsed.Results))
	for i, r := range parsed.Results {
		if i >= maxResults {
			break
		}
		results = append(results, models.SearchResult{
			SourceName: r.Title,
			Snippet:    r.Content,
			URL:        r.URL,
			Score:      r.Score,
		})
	}

	t.logger.WithContext(ctx).WithFields(map[string]any{
		"query":   query,
		"results": len(results),
	}).Debug("Discovery search completed")

	return results, nil
}
