package inference

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
	"github.com/Mehrads/Brands-Relationships/pkg/tracing"
)

const systemPrompt = `You classify the business relationship between two brands.

You receive the source brand, the target brand, an industry category, a context qualifier, text evidence from a document, and optionally web snippets and a previously stored judgment.

Rules:
- kind is one of: competitor, partner, supplier, customer, subsidiary, parent, investor, neutral, unknown. The relationship is directed from source to target.
- confidence is a number between 0 and 1. Denials or retractions in the evidence must lower it.
- sentiment is one of: positive, negative, neutral, mixed.
- rationale is one or two sentences explaining the judgment.
- evidence is the verbatim passage that best supports the judgment.
- Judge only the relationship within the given context qualifier.`

// OpenRouterConfig holds the inference engine settings
type OpenRouterConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// OpenRouterClassifier is a Classifier backed by an OpenRouter chat model
// with JSON-schema structured output.
type OpenRouterClassifier struct {
	client  *openrouter.Client
	model   string
	timeout time.Duration
	logger  ectologger.Logger
}

// NewOpenRouterClassifier creates a new OpenRouter classifier
func NewOpenRouterClassifier(cfg OpenRouterConfig, logger ectologger.Logger) *OpenRouterClassifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	model := cfg.Model
	if model == "" {
		model = "openai/gpt-4o"
	}

	return &OpenRouterClassifier{
		client:  openrouter.NewClient(cfg.APIKey),
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

// Classify sends the accumulated evidence to the model and validates the
// structured response. A malformed response is an error for this pair only.
func (c *OpenRouterClassifier) Classify(ctx context.Context, input models.ClassifyInput) (*models.Judgment, error) {
	ctx, span := tracing.StartSpan(ctx, "inference.OpenRouterClassifier.Classify")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	schema, err := jsonschema.GenerateSchemaForType(rawJudgment{})
	if err != nil {
		return nil, fmt.Errorf("failed to generate judgment schema: %w", err)
	}

	request := openrouter.ChatCompletionRequest{
		Model: c.model,
		Messages: []openrouter.ChatCompletionMessage{
			{
				Role:    openrouter.ChatMessageRoleSystem,
				Content: openrouter.Content{Text: systemPrompt},
			},
			{
				Role:    openrouter.ChatMessageRoleUser,
				Content: openrouter.Content{Text: buildUserPrompt(input)},
			},
		},
		ResponseFormat: &openrouter.ChatCompletionResponseFormat{
			Type: openrouter.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openrouter.ChatCompletionResponseFormatJSONSchema{
				Name:   "judgment",
				Schema: schema,
				Strict: false,
			},
		},
	}

	response, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to create classification completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no completion choices returned")
	}

	var raw rawJudgment
	if err := json.Unmarshal([]byte(response.Choices[0].Message.Content.Text), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode classification response: %w", err)
	}

	judgment, err := raw.validate()
	if err != nil {
		return nil, fmt.Errorf("malformed classification response: %w", err)
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"source":     input.Source,
		"target":     input.Target,
		"kind":       judgment.Kind,
		"confidence": judgment.Confidence,
	}).Debug("Classified relationship")

	return judgment, nil
}

func buildUserPrompt(input models.ClassifyInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Source brand: %s\n", input.Source)
	fmt.Fprintf(&b, "Target brand: %s\n", input.Target)
	fmt.Fprintf(&b, "Category: %s\n", input.Category)
	fmt.Fprintf(&b, "Context: %s\n\n", input.Context)
	fmt.Fprintf(&b, "Document evidence:\n%s\n", input.Evidence)

	if len(input.Snippets) > 0 {
		b.WriteString("\nWeb snippets:\n")
		for i, s := range input.Snippets {
			fmt.Fprintf(&b, "%d. [%s] %s (%s)\n", i+1, s.SourceName, s.Snippet, s.URL)
		}
	}

	if input.PriorRecord != nil {
		fmt.Fprintf(&b, "\nPreviously stored judgment: kind=%s confidence=%.2f sentiment=%s rationale=%s\n",
			input.PriorRecord.Kind, input.PriorRecord.Confidence, input.PriorRecord.Sentiment, input.PriorRecord.Rationale)
	}

	b.WriteString("\nClassify the relationship.")
	return b.String()
}
