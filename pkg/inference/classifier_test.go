package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mehrads/Brands-Relationships/pkg/models"
)

func TestValidateJudgment(t *testing.T) {
	raw := rawJudgment{
		Kind:       "partner",
		Confidence: 0.85,
		Sentiment:  "positive",
		Rationale:  "announced a joint venture",
		Evidence:   "Acme and Globex announced a joint venture",
	}

	judgment, err := raw.validate()
	require.NoError(t, err)
	assert.Equal(t, models.KindPartner, judgment.Kind)
	assert.Equal(t, 0.85, judgment.Confidence)
	assert.Equal(t, models.SentimentPositive, judgment.Sentiment)
}

func TestValidateJudgmentConfidenceOutOfRange(t *testing.T) {
	for _, confidence := range []float64{-0.1, 1.5} {
		raw := rawJudgment{Kind: "partner", Confidence: confidence, Rationale: "r"}
		_, err := raw.validate()
		require.Error(t, err, "confidence %f", confidence)
	}
}

func TestValidateJudgmentMissingFields(t *testing.T) {
	_, err := rawJudgment{Confidence: 0.5, Rationale: "r"}.validate()
	require.Error(t, err)

	_, err = rawJudgment{Kind: "partner", Confidence: 0.5}.validate()
	require.Error(t, err)
}

func TestValidateJudgmentUnknownLabelsDegrade(t *testing.T) {
	raw := rawJudgment{
		Kind:       "frenemy",
		Confidence: 0.4,
		Sentiment:  "ambivalent",
		Rationale:  "unclear",
	}

	judgment, err := raw.validate()
	require.NoError(t, err)
	assert.Equal(t, models.KindUnknown, judgment.Kind)
	assert.Equal(t, models.SentimentNeutral, judgment.Sentiment)
}

func TestBuildUserPromptIncludesAllEvidence(t *testing.T) {
	prior := &models.RelationshipRecord{
		Kind:       models.KindCompetitor,
		Confidence: 0.9,
		Sentiment:  models.SentimentNegative,
		Rationale:  "head to head in retail",
	}

	prompt := buildUserPrompt(models.ClassifyInput{
		Source:   "Acme",
		Target:   "Globex",
		Category: "retail",
		Context:  "consumer_market",
		Evidence: "Acme competes with Globex",
		Snippets: []models.SearchResult{
			{SourceName: "Reuters", Snippet: "rivalry intensifies", URL: "https://example.com"},
		},
		PriorRecord: prior,
	})

	assert.Contains(t, prompt, "Acme")
	assert.Contains(t, prompt, "Globex")
	assert.Contains(t, prompt, "consumer_market")
	assert.Contains(t, prompt, "rivalry intensifies")
	assert.Contains(t, prompt, "Previously stored judgment")
}
