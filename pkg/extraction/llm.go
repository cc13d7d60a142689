package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/revrost/go-openrouter"
	"github.com/revrost/go-openrouter/jsonschema"

	"github.com/Mehrads/Brands-Relationships/pkg/models"
	"github.com/Mehrads/Brands-Relationships/pkg/normalizers"
	"github.com/Mehrads/Brands-Relationships/pkg/tracing"
)

const extractionPrompt = `You extract brand intelligence from a document.

Return:
- brands: every brand or organization mentioned, with the exact text variants it appears under, the passages mentioning it, and a confidence between 0 and 1.
- category: a single coarse industry/topic label for the document (for example retail, supply_chain, technology), with a confidence between 0 and 1.
- citations: URLs referenced in the text, each with a type (article, report, social, other), the brand it is about if identifiable, and a confidence.
- pairs: for the given subject brand, every other brand it is related to in the text. Each pair carries a short snake_case context qualifier describing the facet of the relationship that passage is about (for example supply_chain, consumer_market, investment) and the verbatim passage as evidence. Emit one pair per distinct context, not per sentence.`

// rawExtraction is the model wire format before normalization.
type rawExtraction struct {
	Brands []struct {
		Name       string   `json:"name"`
		Variants   []string `json:"variants"`
		Contexts   []string `json:"contexts"`
		Confidence float64  `json:"confidence"`
	} `json:"brands"`
	Category           string  `json:"category"`
	CategoryConfidence float64 `json:"category_confidence"`
	Citations          []struct {
		URL        string  `json:"url"`
		Title      string  `json:"title"`
		Brand      string  `json:"brand"`
		Type       string  `json:"type"`
		Confidence float64 `json:"confidence"`
	} `json:"citations"`
	Pairs []struct {
		Target   string `json:"target"`
		Context  string `json:"context"`
		Evidence string `json:"evidence"`
	} `json:"pairs"`
}

// LLMConfig holds the extraction engine settings
type LLMConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// LLMExtractor is an Extractor backed by an OpenRouter chat model.
type LLMExtractor struct {
	client  *openrouter.Client
	model   string
	timeout time.Duration
	logger  ectologger.Logger
}

// NewLLMExtractor creates a new LLM extractor
func NewLLMExtractor(cfg LLMConfig, logger ectologger.Logger) *LLMExtractor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	model := cfg.Model
	if model == "" {
		model = "openai/gpt-4o"
	}

	return &LLMExtractor{
		client:  openrouter.NewClient(cfg.APIKey),
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

// Extract runs the extraction model over the text and normalizes its output:
// brand variants that normalize identically collapse into one mention with
// accumulated aliases, and pair endpoints are rewritten to canonical names.
func (e *LLMExtractor) Extract(ctx context.Context, text string, subject string) (*models.ExtractionOutput, error) {
	ctx, span := tracing.StartSpan(ctx, "extraction.LLMExtractor.Extract")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	schema, err := jsonschema.GenerateSchemaForType(rawExtraction{})
	if err != nil {
		return nil, fmt.Errorf("failed to generate extraction schema: %w", err)
	}

	request := openrouter.ChatCompletionRequest{
		Model: e.model,
		Messages: []openrouter.ChatCompletionMessage{
			{
				Role:    openrouter.ChatMessageRoleSystem,
				Content: openrouter.Content{Text: extractionPrompt},
			},
			{
				Role:    openrouter.ChatMessageRoleUser,
				Content: openrouter.Content{Text: fmt.Sprintf("Subject brand: %s\n\nDocument:\n%s", subject, text)},
			},
		},
		ResponseFormat: &openrouter.ChatCompletionResponseFormat{
			Type: openrouter.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openrouter.ChatCompletionResponseFormatJSONSchema{
				Name:   "extraction",
				Schema: schema,
				Strict: false,
			},
		},
	}

	response, err := e.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no completion choices returned")
	}

	var raw rawExtraction
	if err := json.Unmarshal([]byte(response.Choices[0].Message.Content.Text), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode extraction response: %w", err)
	}

	output := normalizeExtraction(raw, subject)

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"subject":  subject,
		"brands":   len(output.Brands),
		"pairs":    len(output.Pairs),
		"category": output.Category,
	}).Debug("Extracted document")

	return output, nil
}

// normalizeExtraction collapses brand variants by canonical name and rewrites
// pair endpoints to canonical names. Pairs from the subject to itself and
// pairs whose target never appeared as a brand are dropped.
func normalizeExtraction(raw rawExtraction, subject string) *models.ExtractionOutput {
	subjectKey := normalizers.NormalizeBrandName(subject)

	type brandAgg struct {
		mention models.BrandMention
		aliases map[string]bool
	}
	byKey := make(map[string]*brandAgg)
	order := make([]string, 0, len(raw.Brands))

	for _, b := range raw.Brands {
		variants := append([]string{b.Name}, b.Variants...)
		for _, variant := range variants {
			variant = normalizers.CollapseWhitespace(variant)
			if variant == "" {
				continue
			}
			key := normalizers.NormalizeBrandName(variant)
			if key == "" {
				continue
			}
			agg, ok := byKey[key]
			if !ok {
				agg = &brandAgg{
					mention: models.BrandMention{
						Name:       key,
						Confidence: b.Confidence,
						Contexts:   b.Contexts,
					},
					aliases: map[string]bool{},
				}
				byKey[key] = agg
				order = append(order, key)
			}
			if !agg.aliases[variant] {
				agg.aliases[variant] = true
				agg.mention.Aliases = append(agg.mention.Aliases, variant)
			}
			if b.Confidence > agg.mention.Confidence {
				agg.mention.Confidence = b.Confidence
			}
		}
	}

	output := &models.ExtractionOutput{
		Category:           strings.ToLower(strings.TrimSpace(raw.Category)),
		CategoryConfidence: raw.CategoryConfidence,
	}

	for _, key := range order {
		output.Brands = append(output.Brands, byKey[key].mention)
	}

	for _, c := range raw.Citations {
		if c.URL == "" {
			continue
		}
		citation := models.Citation{
			URL:        c.URL,
			Title:      c.Title,
			Type:       parseCitationType(c.Type),
			Confidence: c.Confidence,
		}
		if brandKey := normalizers.NormalizeBrandName(c.Brand); brandKey != "" {
			citation.Brand = brandKey
		} else if matched := matchBrandInURL(c.URL, order); matched != "" {
			citation.Brand = matched
		}
		output.Citations = append(output.Citations, citation)
	}

	seenPairs := make(map[models.CandidatePair]bool)
	for _, p := range raw.Pairs {
		targetKey := normalizers.NormalizeBrandName(p.Target)
		if targetKey == "" || targetKey == subjectKey {
			continue
		}
		if _, known := byKey[targetKey]; !known {
			continue
		}
		pair := models.CandidatePair{
			Source:   subjectKey,
			Target:   targetKey,
			Context:  normalizeContext(p.Context),
			Evidence: p.Evidence,
		}
		dedupeKey := pair
		dedupeKey.Evidence = ""
		if seenPairs[dedupeKey] {
			// last mention wins within a document
			for i := range output.Pairs {
				if output.Pairs[i].Source == pair.Source && output.Pairs[i].Target == pair.Target && output.Pairs[i].Context == pair.Context {
					output.Pairs[i] = pair
				}
			}
			continue
		}
		seenPairs[dedupeKey] = true
		output.Pairs = append(output.Pairs, pair)
	}

	return output
}

func normalizeContext(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	if s == "" {
		return "general"
	}
	return s
}

func parseCitationType(s string) models.CitationType {
	switch models.CitationType(strings.ToLower(strings.TrimSpace(s))) {
	case models.CitationTypeArticle, models.CitationTypeReport, models.CitationTypeSocial:
		return models.CitationType(strings.ToLower(strings.TrimSpace(s)))
	default:
		return models.CitationTypeOther
	}
}

// matchBrandInURL looks for a canonical brand name inside a URL host or path.
func matchBrandInURL(url string, brandKeys []string) string {
	lower := strings.ToLower(url)
	for _, key := range brandKeys {
		compact := strings.ReplaceAll(key, " ", "")
		if compact == "" {
			continue
		}
		if strings.Contains(lower, compact) {
			return key
		}
	}
	return ""
}
