// Package resolver implements the tiered resolution engine: every candidate
// brand pair is answered from the relationship store when possible, enriched
// by discovery search otherwise, and classified by the inference engine as the
// final tier.
package resolver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Mehrads/Brands-Relationships/pkg/discovery"
	"github.com/Mehrads/Brands-Relationships/pkg/extraction"
	"github.com/Mehrads/Brands-Relationships/pkg/inference"
	"github.com/Mehrads/Brands-Relationships/pkg/models"
	"github.com/Mehrads/Brands-Relationships/pkg/normalizers"
	"github.com/Mehrads/Brands-Relationships/pkg/review"
	"github.com/Mehrads/Brands-Relationships/pkg/tracing"
)

// Store is the slice of the relationship store the engine depends on.
type Store interface {
	EnsureEntity(ctx context.Context, name string, aliases []string) error
	Lookup(ctx context.Context, key models.RelationshipKey) (*models.RelationshipRecord, error)
	Upsert(ctx context.Context, record *models.RelationshipRecord) error
}

// Config holds the resolution engine settings
type Config struct {
	// ConfidenceThreshold is the acceptance floor; records below it are
	// kept but flagged for review.
	ConfidenceThreshold    float64
	LowConfidenceThreshold float64
	WorkerCount            int
	MaxSearchResults       int
	// WriteRetries bounds store commit attempts per record.
	WriteRetries int
	// RetryBackoffUnit scales the fibonacci backoff between commit attempts.
	RetryBackoffUnit time.Duration
}

func (c *Config) applyDefaults() {
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = 0.7
	}
	if c.LowConfidenceThreshold <= 0 {
		c.LowConfidenceThreshold = 0.5
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = 4
	}
	if c.MaxSearchResults <= 0 {
		c.MaxSearchResults = 5
	}
	if c.WriteRetries <= 0 {
		c.WriteRetries = 3
	}
	if c.RetryBackoffUnit <= 0 {
		c.RetryBackoffUnit = time.Second
	}
}

// Resolver runs the full analysis pipeline over a document.
type Resolver struct {
	store      Store
	searcher   discovery.Searcher
	classifier inference.Classifier
	extractor  extraction.Extractor
	gate       *review.Gate
	logger     ectologger.Logger
	config     Config
}

// NewResolver creates the resolution engine
func NewResolver(
	store Store,
	searcher discovery.Searcher,
	classifier inference.Classifier,
	extractor extraction.Extractor,
	logger ectologger.Logger,
	config Config,
) *Resolver {
	config.applyDefaults()
	return &Resolver{
		store:      store,
		searcher:   searcher,
		classifier: classifier,
		extractor:  extractor,
		gate:       review.NewGate(config.LowConfidenceThreshold),
		logger:     logger,
		config:     config,
	}
}

// outcome is the result of resolving one candidate pair.
type outcome struct {
	record     *models.RelationshipRecord
	unresolved *models.UnresolvedPair
	warnings   []string
}

// Analyze extracts brands and candidate pairs from the text and resolves each
// pair through the store, discovery, and inference tiers. A failed pair never
// aborts the run; it is reported in the result's unresolved list.
func (r *Resolver) Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.AnalysisResult, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolver.Analyze")
	defer span.End()

	subject := normalizers.NormalizeBrandName(req.SubjectBrand)
	if subject == "" {
		return nil, fmt.Errorf("subject brand %q normalizes to empty", req.SubjectBrand)
	}

	extracted, err := r.extractor.Extract(ctx, req.Text, req.SubjectBrand)
	if err != nil {
		return nil, fmt.Errorf("failed to extract document: %w", err)
	}

	aliases := make(map[string][]string, len(extracted.Brands))
	for _, b := range extracted.Brands {
		aliases[b.Name] = b.Aliases
	}

	outcomes := r.resolveAll(ctx, extracted.Pairs, extracted.Category, aliases)

	result := &models.AnalysisResult{
		SubjectBrand: subject,
		Category:     extracted.Category,
		Brands:       extracted.Brands,
		Citations:    extracted.Citations,
	}

	records := make([]models.RelationshipRecord, 0, len(outcomes))
	for _, o := range outcomes {
		result.Warnings = append(result.Warnings, o.warnings...)
		if o.unresolved != nil {
			result.Unresolved = append(result.Unresolved, *o.unresolved)
			continue
		}
		if o.record == nil {
			continue
		}
		records = append(records, *o.record)
		switch o.record.Provenance {
		case models.ProvenanceStoreHit:
			result.Tiers.StoreHits++
		case models.ProvenanceDiscovery:
			result.Tiers.Discovery++
		case models.ProvenanceInference:
			result.Tiers.Inference++
		}
		if !o.record.Persisted {
			result.NotPersisted = append(result.NotPersisted, o.record.Key)
		}
	}
	result.Relationships = records

	result.FlaggedItems = append(r.gate.Flagged(records), r.gate.FromExtraction(extracted)...)

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"subject":       subject,
		"category":      result.Category,
		"pairs":         len(extracted.Pairs),
		"store_hits":    result.Tiers.StoreHits,
		"discovery":     result.Tiers.Discovery,
		"inference":     result.Tiers.Inference,
		"unresolved":    len(result.Unresolved),
		"not_persisted": len(result.NotPersisted),
		"flagged":       len(result.FlaggedItems),
	}).Info("Analysis complete")

	return result, nil
}

// resolveAll fans the candidate pairs out over a bounded worker pool. Outcomes
// land at the pair's input index so result ordering is deterministic.
func (r *Resolver) resolveAll(ctx context.Context, pairs []models.CandidatePair, category string, aliases map[string][]string) []outcome {
	outcomes := make([]outcome, len(pairs))
	if len(pairs) == 0 {
		return outcomes
	}

	workers := r.config.WorkerCount
	if workers > len(pairs) {
		workers = len(pairs)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = r.resolveOne(ctx, pairs[i], category, aliases)
			}
		}()
	}

	for i := range pairs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

// resolveOne runs the tier protocol for one pair: store lookup first, then
// discovery search, then classification, then commit. A store hit makes no
// external calls at all.
func (r *Resolver) resolveOne(ctx context.Context, pair models.CandidatePair, category string, aliases map[string][]string) outcome {
	key := models.RelationshipKey{
		Source:   pair.Source,
		Target:   pair.Target,
		Category: category,
		Context:  pair.Context,
	}

	if err := ctx.Err(); err != nil {
		return outcome{unresolved: &models.UnresolvedPair{
			Source:  pair.Source,
			Target:  pair.Target,
			Context: pair.Context,
			Reason:  fmt.Sprintf("run canceled before resolution: %v", err),
		}}
	}

	var warnings []string

	prior, err := r.store.Lookup(ctx, key)
	if err != nil {
		// a failed lookup degrades to a miss; resolution proceeds
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"key": key.String(),
		}).Warn("Store lookup failed, resolving from scratch")
		warnings = append(warnings, fmt.Sprintf("store lookup failed for %s: %v", key, err))
	}
	if prior != nil {
		record := *prior
		record.Provenance = models.ProvenanceStoreHit
		return outcome{record: &record, warnings: warnings}
	}

	snippets, err := r.searcher.Search(ctx, discovery.BuildQuery(pair.Source, pair.Target, category, pair.Context), r.config.MaxSearchResults)
	if err != nil {
		// discovery failures are never fatal; the pair falls through to
		// inference with no snippets
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"key": key.String(),
		}).Warn("Discovery search failed")
		warnings = append(warnings, fmt.Sprintf("discovery search failed for %s: %v", key, err))
		snippets = nil
	}

	judgment, err := r.classifier.Classify(ctx, models.ClassifyInput{
		Source:   pair.Source,
		Target:   pair.Target,
		Category: category,
		Context:  pair.Context,
		Evidence: pair.Evidence,
		Snippets: snippets,
	})
	if err != nil {
		return outcome{
			unresolved: &models.UnresolvedPair{
				Source:  pair.Source,
				Target:  pair.Target,
				Context: pair.Context,
				Reason:  fmt.Sprintf("classification failed: %v", err),
			},
			warnings: warnings,
		}
	}

	provenance := models.ProvenanceInference
	if len(snippets) > 0 {
		provenance = models.ProvenanceDiscovery
	}
	evidence := judgment.Evidence
	if evidence == "" {
		evidence = pair.Evidence
	}

	record := &models.RelationshipRecord{
		Key:        key,
		Kind:       judgment.Kind,
		Confidence: judgment.Confidence,
		Sentiment:  judgment.Sentiment,
		Evidence:   evidence,
		Provenance: provenance,
		Flagged:    judgment.Confidence < r.config.ConfidenceThreshold,
		Rationale:  judgment.Rationale,
		UpdatedAt:  time.Now().UTC(),
	}

	if err := r.commit(ctx, record, aliases); err != nil {
		record.Persisted = false
		warnings = append(warnings, fmt.Sprintf("failed to persist %s after %d attempts: %v", key, r.config.WriteRetries, err))
	} else {
		record.Persisted = true
	}

	return outcome{record: record, warnings: warnings}
}

// commit ensures both brand nodes exist and writes the record, retrying with
// fibonacci backoff up to the configured attempt bound.
func (r *Resolver) commit(ctx context.Context, record *models.RelationshipRecord, aliases map[string][]string) error {
	write := func() error {
		if err := r.store.EnsureEntity(ctx, record.Key.Source, aliases[record.Key.Source]); err != nil {
			return fmt.Errorf("failed to ensure source brand: %w", err)
		}
		if err := r.store.EnsureEntity(ctx, record.Key.Target, aliases[record.Key.Target]); err != nil {
			return fmt.Errorf("failed to ensure target brand: %w", err)
		}
		return r.store.Upsert(ctx, record)
	}

	var err error
	backoff, next := 1, 1
	for attempt := 1; attempt <= r.config.WriteRetries; attempt++ {
		if err = write(); err == nil {
			return nil
		}
		if attempt == r.config.WriteRetries {
			break
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"key":     record.Key.String(),
			"attempt": attempt,
		}).Warn("Store commit failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(backoff) * r.config.RetryBackoffUnit):
		}
		backoff, next = next, backoff+next
	}
	return err
}
