package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mehrads/Brands-Relationships/pkg/models"
)

func TestNormalizeExtractionDedupesBrandVariants(t *testing.T) {
	raw := rawExtraction{
		Brands: []struct {
			Name       string   `json:"name"`
			Variants   []string `json:"variants"`
			Contexts   []string `json:"contexts"`
			Confidence float64  `json:"confidence"`
		}{
			{Name: "Acme Corp", Variants: []string{"Acme Inc.", "ACME"}, Confidence: 0.9},
			{Name: "Globex", Confidence: 0.8},
		},
		Category:           "Retail",
		CategoryConfidence: 0.85,
	}

	out := normalizeExtraction(raw, "Acme Corp")

	require.Len(t, out.Brands, 2)
	assert.Equal(t, "acme", out.Brands[0].Name)
	assert.ElementsMatch(t, []string{"Acme Corp", "Acme Inc.", "ACME"}, out.Brands[0].Aliases)
	assert.Equal(t, "globex", out.Brands[1].Name)
	assert.Equal(t, "retail", out.Category)
}

func TestNormalizeExtractionPairs(t *testing.T) {
	raw := rawExtraction{
		Brands: []struct {
			Name       string   `json:"name"`
			Variants   []string `json:"variants"`
			Contexts   []string `json:"contexts"`
			Confidence float64  `json:"confidence"`
		}{
			{Name: "Acme Corp", Confidence: 0.9},
			{Name: "Globex", Confidence: 0.8},
		},
		Pairs: []struct {
			Target   string `json:"target"`
			Context  string `json:"context"`
			Evidence string `json:"evidence"`
		}{
			{Target: "Globex", Context: "Supply Chain", Evidence: "Acme partners with Globex for supply"},
			{Target: "Globex", Context: "consumer_market", Evidence: "Acme competes with Globex in retail"},
			// self pair must be dropped
			{Target: "Acme Inc.", Context: "general", Evidence: "Acme is Acme"},
			// unknown target must be dropped
			{Target: "Initech", Context: "general", Evidence: "unrelated"},
		},
	}

	out := normalizeExtraction(raw, "Acme Corp")

	require.Len(t, out.Pairs, 2)
	assert.Equal(t, models.CandidatePair{
		Source: "acme", Target: "globex", Context: "supply_chain",
		Evidence: "Acme partners with Globex for supply",
	}, out.Pairs[0])
	assert.Equal(t, "consumer_market", out.Pairs[1].Context)
}

func TestNormalizeExtractionLastMentionWins(t *testing.T) {
	raw := rawExtraction{
		Brands: []struct {
			Name       string   `json:"name"`
			Variants   []string `json:"variants"`
			Contexts   []string `json:"contexts"`
			Confidence float64  `json:"confidence"`
		}{
			{Name: "Acme", Confidence: 0.9},
			{Name: "Globex", Confidence: 0.8},
		},
		Pairs: []struct {
			Target   string `json:"target"`
			Context  string `json:"context"`
			Evidence string `json:"evidence"`
		}{
			{Target: "Globex", Context: "supply_chain", Evidence: "first mention"},
			{Target: "Globex", Context: "supply_chain", Evidence: "second mention"},
		},
	}

	out := normalizeExtraction(raw, "Acme")

	require.Len(t, out.Pairs, 1)
	assert.Equal(t, "second mention", out.Pairs[0].Evidence)
}

func TestNormalizeExtractionCitationBrandMatching(t *testing.T) {
	raw := rawExtraction{
		Brands: []struct {
			Name       string   `json:"name"`
			Variants   []string `json:"variants"`
			Contexts   []string `json:"contexts"`
			Confidence float64  `json:"confidence"`
		}{
			{Name: "Globex", Confidence: 0.8},
		},
		Citations: []struct {
			URL        string  `json:"url"`
			Title      string  `json:"title"`
			Brand      string  `json:"brand"`
			Type       string  `json:"type"`
			Confidence float64 `json:"confidence"`
		}{
			{URL: "https://news.globex.com/earnings", Type: "article", Confidence: 0.7},
			{URL: "https://example.com/report", Brand: "Globex Inc.", Type: "report", Confidence: 0.6},
			{URL: "https://example.com/misc", Type: "press release", Confidence: 0.5},
		},
	}

	out := normalizeExtraction(raw, "Acme")

	require.Len(t, out.Citations, 3)
	assert.Equal(t, "globex", out.Citations[0].Brand, "matched from URL")
	assert.Equal(t, "globex", out.Citations[1].Brand, "matched from explicit brand")
	assert.Equal(t, models.CitationTypeOther, out.Citations[2].Type, "unknown type degrades to other")
}
