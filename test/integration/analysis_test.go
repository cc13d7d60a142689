package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mehrads/Brands-Relationships/pkg/events"
	"github.com/Mehrads/Brands-Relationships/pkg/middleware"
	"github.com/Mehrads/Brands-Relationships/pkg/models"
	"github.com/Mehrads/Brands-Relationships/pkg/resolver"
	"github.com/Mehrads/Brands-Relationships/pkg/routes/analysis"
)

func newTestLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// memoryStore is an in-memory relationship store for end-to-end runs.
type memoryStore struct {
	mu      sync.Mutex
	records map[models.RelationshipKey]models.RelationshipRecord
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[models.RelationshipKey]models.RelationshipRecord{}}
}

func (s *memoryStore) EnsureEntity(_ context.Context, _ string, _ []string) error {
	return nil
}

func (s *memoryStore) Lookup(_ context.Context, key models.RelationshipKey) (*models.RelationshipRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	record.Persisted = true
	return &record, nil
}

func (s *memoryStore) Upsert(_ context.Context, record *models.RelationshipRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Key] = *record
	return nil
}

type scriptedSearcher struct {
	mu    sync.Mutex
	calls int
}

func (s *scriptedSearcher) Search(_ context.Context, _ string, _ int) ([]models.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return []models.SearchResult{
		{SourceName: "industry-news", Snippet: "Acme and Globex announced a packaging supply agreement.", URL: "https://example.com/news", Score: 0.9},
	}, nil
}

type scriptedClassifier struct {
	mu        sync.Mutex
	calls     int
	judgments map[string]models.Judgment
}

func (c *scriptedClassifier) Classify(_ context.Context, input models.ClassifyInput) (*models.Judgment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if judgment, ok := c.judgments[input.Target+"/"+input.Context]; ok {
		return &judgment, nil
	}
	return &models.Judgment{Kind: models.KindNeutral, Confidence: 0.9, Sentiment: models.SentimentNeutral, Rationale: "no signal"}, nil
}

type scriptedExtractor struct {
	output *models.ExtractionOutput
}

func (e *scriptedExtractor) Extract(_ context.Context, _ string, _ string) (*models.ExtractionOutput, error) {
	return e.output, nil
}

type harness struct {
	echo       *echo.Echo
	store      *memoryStore
	searcher   *scriptedSearcher
	classifier *scriptedClassifier
}

func newHarness(extracted *models.ExtractionOutput) *harness {
	log := newTestLogger()
	store := newMemoryStore()
	searcher := &scriptedSearcher{}
	classifier := &scriptedClassifier{judgments: map[string]models.Judgment{
		"globex/supply_chain":    {Kind: models.KindPartner, Confidence: 0.88, Sentiment: models.SentimentPositive, Rationale: "supply agreement"},
		"globex/consumer_market": {Kind: models.KindCompetitor, Confidence: 0.92, Sentiment: models.SentimentNegative, Rationale: "competing product lines"},
	}}

	engine := resolver.NewResolver(store, searcher, classifier, &scriptedExtractor{output: extracted}, log, resolver.Config{
		ConfidenceThreshold:    0.7,
		LowConfidenceThreshold: 0.5,
		WorkerCount:            2,
		MaxSearchResults:       5,
		WriteRetries:           3,
		RetryBackoffUnit:       time.Millisecond,
	})

	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(log)
	api := e.Group("/api/v1")
	analysis.NewHandler(engine, nil, events.NewEmitter(nil, log), log).RegisterRoutes(api)

	return &harness{echo: e, store: store, searcher: searcher, classifier: classifier}
}

func (h *harness) analyze(t *testing.T, body string) (*httptest.ResponseRecorder, *models.AnalysisResult) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	h.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		return rec, nil
	}
	var result models.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	return rec, &result
}

func acmeGlobexExtraction() *models.ExtractionOutput {
	return &models.ExtractionOutput{
		Brands: []models.BrandMention{
			{Name: "acme", Aliases: []string{"Acme Corp", "ACME"}, Confidence: 0.95},
			{Name: "globex", Aliases: []string{"Globex"}, Confidence: 0.9},
		},
		Category:           "retail",
		CategoryConfidence: 0.9,
		Pairs: []models.CandidatePair{
			{Source: "acme", Target: "globex", Context: "supply_chain", Evidence: "Acme sources packaging from Globex"},
			{Source: "acme", Target: "globex", Context: "consumer_market", Evidence: "Acme competes with Globex on shelves"},
		},
	}
}

const analyzeBody = `{"text": "Acme sources packaging from Globex but competes with it on shelves.", "subject_brand": "Acme Corp"}`

func TestAnalyzeEndpointResolvesTwoContexts(t *testing.T) {
	h := newHarness(acmeGlobexExtraction())

	rec, result := h.analyze(t, analyzeBody)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "acme", result.SubjectBrand)
	assert.Equal(t, "retail", result.Category)
	require.Len(t, result.Relationships, 2)

	// same pair, two contexts, two independent records
	assert.Equal(t, "supply_chain", result.Relationships[0].Key.Context)
	assert.Equal(t, models.KindPartner, result.Relationships[0].Kind)
	assert.Equal(t, "consumer_market", result.Relationships[1].Key.Context)
	assert.Equal(t, models.KindCompetitor, result.Relationships[1].Kind)

	for _, r := range result.Relationships {
		assert.True(t, r.Persisted)
		assert.Equal(t, models.ProvenanceDiscovery, r.Provenance)
	}
	assert.Equal(t, models.TierCounts{Discovery: 2}, result.Tiers)
	assert.Len(t, h.store.records, 2)
}

func TestAnalyzeEndpointSecondRunHitsStore(t *testing.T) {
	h := newHarness(acmeGlobexExtraction())

	rec, _ := h.analyze(t, analyzeBody)
	require.Equal(t, http.StatusOK, rec.Code)

	h.searcher.calls = 0
	h.classifier.calls = 0

	rec, result := h.analyze(t, analyzeBody)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, models.TierCounts{StoreHits: 2}, result.Tiers)
	assert.Zero(t, h.searcher.calls)
	assert.Zero(t, h.classifier.calls)
	for _, r := range result.Relationships {
		assert.Equal(t, models.ProvenanceStoreHit, r.Provenance)
	}
}

func TestAnalyzeEndpointRejectsMissingFields(t *testing.T) {
	h := newHarness(acmeGlobexExtraction())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(`{"text": "no subject"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	h.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
