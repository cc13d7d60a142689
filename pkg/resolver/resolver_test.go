package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mehrads/Brands-Relationships/pkg/models"
)

func newTestLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type fakeStore struct {
	mu       sync.Mutex
	records  map[models.RelationshipKey]models.RelationshipRecord
	entities map[string][]string
	lookups  int
	upserts  int

	lookupErr error
	upsertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:  map[models.RelationshipKey]models.RelationshipRecord{},
		entities: map[string][]string{},
	}
}

func (s *fakeStore) EnsureEntity(_ context.Context, name string, aliases []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[name] = aliases
	return nil
}

func (s *fakeStore) Lookup(_ context.Context, key models.RelationshipKey) (*models.RelationshipRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	record, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	record.Persisted = true
	return &record, nil
}

func (s *fakeStore) Upsert(_ context.Context, record *models.RelationshipRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.records[record.Key] = *record
	return nil
}

type fakeSearcher struct {
	mu      sync.Mutex
	calls   int
	results []models.SearchResult
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, _ string, maxResults int) ([]models.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) > maxResults {
		return f.results[:maxResults], nil
	}
	return f.results, nil
}

type fakeClassifier struct {
	mu        sync.Mutex
	calls     int
	inputs    []models.ClassifyInput
	judgments map[string]models.Judgment // keyed by target/context
	failFor   map[string]error
}

func (f *fakeClassifier) Classify(_ context.Context, input models.ClassifyInput) (*models.Judgment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.inputs = append(f.inputs, input)
	key := input.Target + "/" + input.Context
	if err, ok := f.failFor[key]; ok {
		return nil, err
	}
	if judgment, ok := f.judgments[key]; ok {
		return &judgment, nil
	}
	return &models.Judgment{
		Kind:       models.KindNeutral,
		Confidence: 0.9,
		Sentiment:  models.SentimentNeutral,
		Rationale:  "default judgment",
	}, nil
}

type fakeExtractor struct {
	output *models.ExtractionOutput
	err    error
}

func (f *fakeExtractor) Extract(_ context.Context, _ string, _ string) (*models.ExtractionOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

func twoContextExtraction() *models.ExtractionOutput {
	return &models.ExtractionOutput{
		Brands: []models.BrandMention{
			{Name: "acme", Aliases: []string{"Acme Corp", "Acme Inc."}, Confidence: 0.95},
			{Name: "globex", Aliases: []string{"Globex"}, Confidence: 0.9},
		},
		Category:           "retail",
		CategoryConfidence: 0.9,
		Pairs: []models.CandidatePair{
			{Source: "acme", Target: "globex", Context: "supply_chain", Evidence: "Acme sources packaging from Globex"},
			{Source: "acme", Target: "globex", Context: "consumer_market", Evidence: "Acme and Globex compete on shelves"},
		},
	}
}

func testConfig() Config {
	return Config{
		ConfidenceThreshold:    0.7,
		LowConfidenceThreshold: 0.5,
		WorkerCount:            2,
		MaxSearchResults:       5,
		WriteRetries:           3,
		RetryBackoffUnit:       time.Millisecond,
	}
}

func TestAnalyzeResolvesDistinctContextsIndependently(t *testing.T) {
	store := newFakeStore()
	searcher := &fakeSearcher{results: []models.SearchResult{{SourceName: "news", Snippet: "Acme and Globex", Score: 0.8}}}
	classifier := &fakeClassifier{judgments: map[string]models.Judgment{
		"globex/supply_chain":    {Kind: models.KindPartner, Confidence: 0.9, Sentiment: models.SentimentPositive, Rationale: "supplies packaging"},
		"globex/consumer_market": {Kind: models.KindCompetitor, Confidence: 0.85, Sentiment: models.SentimentNegative, Rationale: "competes on shelves"},
	}}
	extractor := &fakeExtractor{output: twoContextExtraction()}

	r := NewResolver(store, searcher, classifier, extractor, newTestLogger(), testConfig())

	result, err := r.Analyze(context.Background(), models.AnalyzeRequest{Text: "doc", SubjectBrand: "Acme Corp"})
	require.NoError(t, err)

	require.Len(t, result.Relationships, 2)
	assert.Equal(t, "acme", result.SubjectBrand)
	assert.Equal(t, models.KindPartner, result.Relationships[0].Kind)
	assert.Equal(t, models.KindCompetitor, result.Relationships[1].Kind)
	for _, rec := range result.Relationships {
		assert.True(t, rec.Persisted)
		assert.Equal(t, models.ProvenanceDiscovery, rec.Provenance)
		assert.False(t, rec.Flagged)
	}
	assert.Equal(t, models.TierCounts{Discovery: 2}, result.Tiers)
	assert.Empty(t, result.Unresolved)
	assert.Empty(t, result.NotPersisted)

	// two records under distinct composite keys, never merged
	assert.Len(t, store.records, 2)
	assert.Equal(t, []string{"Acme Corp", "Acme Inc."}, store.entities["acme"])
}

func TestAnalyzeSecondRunIsAllStoreHits(t *testing.T) {
	store := newFakeStore()
	searcher := &fakeSearcher{results: []models.SearchResult{{SourceName: "news", Snippet: "snippet", Score: 0.8}}}
	classifier := &fakeClassifier{judgments: map[string]models.Judgment{
		"globex/supply_chain":    {Kind: models.KindPartner, Confidence: 0.9, Sentiment: models.SentimentPositive, Rationale: "r"},
		"globex/consumer_market": {Kind: models.KindCompetitor, Confidence: 0.85, Sentiment: models.SentimentNegative, Rationale: "r"},
	}}
	extractor := &fakeExtractor{output: twoContextExtraction()}

	r := NewResolver(store, searcher, classifier, extractor, newTestLogger(), testConfig())

	_, err := r.Analyze(context.Background(), models.AnalyzeRequest{Text: "doc", SubjectBrand: "Acme"})
	require.NoError(t, err)

	searcher.calls = 0
	classifier.calls = 0

	result, err := r.Analyze(context.Background(), models.AnalyzeRequest{Text: "doc", SubjectBrand: "Acme"})
	require.NoError(t, err)

	assert.Equal(t, models.TierCounts{StoreHits: 2}, result.Tiers)
	assert.Zero(t, searcher.calls, "store hit must make no discovery calls")
	assert.Zero(t, classifier.calls, "store hit must make no inference calls")
	for _, rec := range result.Relationships {
		assert.Equal(t, models.ProvenanceStoreHit, rec.Provenance)
		assert.True(t, rec.Persisted)
	}
	assert.Len(t, store.records, 2)
}

func TestAnalyzeFlagsBelowConfidenceThreshold(t *testing.T) {
	store := newFakeStore()
	classifier := &fakeClassifier{judgments: map[string]models.Judgment{
		"globex/supply_chain":    {Kind: models.KindPartner, Confidence: 0.65, Sentiment: models.SentimentNeutral, Rationale: "thin evidence"},
		"globex/consumer_market": {Kind: models.KindCompetitor, Confidence: 0.7, Sentiment: models.SentimentNeutral, Rationale: "at threshold"},
	}}
	extractor := &fakeExtractor{output: twoContextExtraction()}

	r := NewResolver(store, &fakeSearcher{}, classifier, extractor, newTestLogger(), testConfig())

	result, err := r.Analyze(context.Background(), models.AnalyzeRequest{Text: "doc", SubjectBrand: "Acme"})
	require.NoError(t, err)

	require.Len(t, result.Relationships, 2)
	assert.True(t, result.Relationships[0].Flagged, "below threshold must be flagged")
	assert.True(t, result.Relationships[0].Persisted, "flagged records are still persisted")
	assert.False(t, result.Relationships[1].Flagged, "exactly at threshold is accepted")

	require.Len(t, result.FlaggedItems, 1)
	assert.Equal(t, models.FlaggedItemTypeRelationship, result.FlaggedItems[0].Type)
	assert.Equal(t, "supply_chain", result.FlaggedItems[0].Key.Context)
	assert.Equal(t, 0.65, result.FlaggedItems[0].Confidence)
}

func TestAnalyzePrepopulatedKeySkipsExternalCalls(t *testing.T) {
	store := newFakeStore()
	key := models.RelationshipKey{Source: "acme", Target: "globex", Category: "retail", Context: "supply_chain"}
	store.records[key] = models.RelationshipRecord{
		Key:        key,
		Kind:       models.KindSupplier,
		Confidence: 0.95,
		Sentiment:  models.SentimentPositive,
		Provenance: models.ProvenanceDiscovery,
	}

	searcher := &fakeSearcher{}
	classifier := &fakeClassifier{}
	extractor := &fakeExtractor{output: &models.ExtractionOutput{
		Brands: []models.BrandMention{
			{Name: "acme", Confidence: 0.9},
			{Name: "globex", Confidence: 0.9},
		},
		Category: "retail",
		Pairs: []models.CandidatePair{
			{Source: "acme", Target: "globex", Context: "supply_chain", Evidence: "e"},
		},
	}}

	r := NewResolver(store, searcher, classifier, extractor, newTestLogger(), testConfig())

	result, err := r.Analyze(context.Background(), models.AnalyzeRequest{Text: "doc", SubjectBrand: "Acme"})
	require.NoError(t, err)

	require.Len(t, result.Relationships, 1)
	assert.Equal(t, models.ProvenanceStoreHit, result.Relationships[0].Provenance)
	assert.Equal(t, models.KindSupplier, result.Relationships[0].Kind)
	assert.Zero(t, searcher.calls)
	assert.Zero(t, classifier.calls)
	assert.Zero(t, store.upserts, "store hit is not rewritten")
}

func TestAnalyzeDiscoveryFailureFallsThroughToInference(t *testing.T) {
	store := newFakeStore()
	searcher := &fakeSearcher{err: errors.New("search service unavailable")}
	classifier := &fakeClassifier{judgments: map[string]models.Judgment{
		"globex/supply_chain": {Kind: models.KindPartner, Confidence: 0.8, Sentiment: models.SentimentNeutral, Rationale: "r"},
	}}
	extractor := &fakeExtractor{output: &models.ExtractionOutput{
		Brands: []models.BrandMention{
			{Name: "acme", Confidence: 0.9},
			{Name: "globex", Confidence: 0.9},
		},
		Category: "retail",
		Pairs: []models.CandidatePair{
			{Source: "acme", Target: "globex", Context: "supply_chain", Evidence: "e"},
		},
	}}

	r := NewResolver(store, searcher, classifier, extractor, newTestLogger(), testConfig())

	result, err := r.Analyze(context.Background(), models.AnalyzeRequest{Text: "doc", SubjectBrand: "Acme"})
	require.NoError(t, err)

	require.Len(t, result.Relationships, 1)
	assert.Equal(t, models.ProvenanceInference, result.Relationships[0].Provenance)
	assert.True(t, result.Relationships[0].Persisted)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "discovery search failed")

	require.Len(t, classifier.inputs, 1)
	assert.Empty(t, classifier.inputs[0].Snippets)
}

func TestAnalyzePartialFailureIsolation(t *testing.T) {
	store := newFakeStore()
	classifier := &fakeClassifier{
		failFor: map[string]error{
			"initech/general": errors.New("model returned malformed output"),
		},
	}
	extractor := &fakeExtractor{output: &models.ExtractionOutput{
		Brands: []models.BrandMention{
			{Name: "acme", Confidence: 0.9},
			{Name: "globex", Confidence: 0.9},
			{Name: "initech", Confidence: 0.9},
			{Name: "hooli", Confidence: 0.9},
		},
		Category: "technology",
		Pairs: []models.CandidatePair{
			{Source: "acme", Target: "globex", Context: "general", Evidence: "e1"},
			{Source: "acme", Target: "initech", Context: "general", Evidence: "e2"},
			{Source: "acme", Target: "hooli", Context: "general", Evidence: "e3"},
		},
	}}

	r := NewResolver(store, &fakeSearcher{}, classifier, extractor, newTestLogger(), testConfig())

	result, err := r.Analyze(context.Background(), models.AnalyzeRequest{Text: "doc", SubjectBrand: "Acme"})
	require.NoError(t, err)

	assert.Len(t, result.Relationships, 2, "other pairs resolve despite one failure")
	require.Len(t, result.Unresolved, 1)
	assert.Equal(t, "initech", result.Unresolved[0].Target)
	assert.Contains(t, result.Unresolved[0].Reason, "classification failed")
	assert.Len(t, store.records, 2)
}

func TestAnalyzeCommitExhaustionKeepsRecordInMemory(t *testing.T) {
	store := newFakeStore()
	store.upsertErr = errors.New("connection refused")
	extractor := &fakeExtractor{output: &models.ExtractionOutput{
		Brands: []models.BrandMention{
			{Name: "acme", Confidence: 0.9},
			{Name: "globex", Confidence: 0.9},
		},
		Category: "retail",
		Pairs: []models.CandidatePair{
			{Source: "acme", Target: "globex", Context: "supply_chain", Evidence: "e"},
		},
	}}

	r := NewResolver(store, &fakeSearcher{}, &fakeClassifier{}, extractor, newTestLogger(), testConfig())

	result, err := r.Analyze(context.Background(), models.AnalyzeRequest{Text: "doc", SubjectBrand: "Acme"})
	require.NoError(t, err)

	require.Len(t, result.Relationships, 1)
	assert.False(t, result.Relationships[0].Persisted)
	require.Len(t, result.NotPersisted, 1)
	assert.Equal(t, "globex", result.NotPersisted[0].Target)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "failed to persist")
	assert.Equal(t, 3, store.upserts, "commit retries are bounded")
}

func TestAnalyzeStoreLookupFailureDegradesToMiss(t *testing.T) {
	store := newFakeStore()
	store.lookupErr = errors.New("session expired")
	classifier := &fakeClassifier{}
	extractor := &fakeExtractor{output: &models.ExtractionOutput{
		Brands: []models.BrandMention{
			{Name: "acme", Confidence: 0.9},
			{Name: "globex", Confidence: 0.9},
		},
		Category: "retail",
		Pairs: []models.CandidatePair{
			{Source: "acme", Target: "globex", Context: "supply_chain", Evidence: "e"},
		},
	}}

	r := NewResolver(store, &fakeSearcher{}, classifier, extractor, newTestLogger(), testConfig())

	result, err := r.Analyze(context.Background(), models.AnalyzeRequest{Text: "doc", SubjectBrand: "Acme"})
	require.NoError(t, err)

	require.Len(t, result.Relationships, 1)
	assert.Equal(t, 1, classifier.calls)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "store lookup failed")
}

func TestAnalyzeExtractionFailureIsFatal(t *testing.T) {
	extractor := &fakeExtractor{err: errors.New("model unavailable")}

	r := NewResolver(newFakeStore(), &fakeSearcher{}, &fakeClassifier{}, extractor, newTestLogger(), testConfig())

	_, err := r.Analyze(context.Background(), models.AnalyzeRequest{Text: "doc", SubjectBrand: "Acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to extract")
}

func TestAnalyzeCanceledContextReportsUnresolved(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	extractor := &fakeExtractor{output: twoContextExtraction()}
	classifier := &fakeClassifier{}

	r := NewResolver(newFakeStore(), &fakeSearcher{}, classifier, extractor, newTestLogger(), testConfig())

	result, err := r.Analyze(ctx, models.AnalyzeRequest{Text: "doc", SubjectBrand: "Acme"})
	require.NoError(t, err)

	assert.Empty(t, result.Relationships)
	assert.Len(t, result.Unresolved, 2)
	assert.Zero(t, classifier.calls)
}

func TestAnalyzeEmptySubjectBrand(t *testing.T) {
	r := NewResolver(newFakeStore(), &fakeSearcher{}, &fakeClassifier{}, &fakeExtractor{}, newTestLogger(), testConfig())

	_, err := r.Analyze(context.Background(), models.AnalyzeRequest{Text: "doc", SubjectBrand: "!!!"})
	require.Error(t, err)
}
