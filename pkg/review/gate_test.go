package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mehrads/Brands-Relationships/pkg/models"
)

func record(source, target string, confidence float64, flagged bool) models.RelationshipRecord {
	return models.RelationshipRecord{
		Key: models.RelationshipKey{
			Source:   source,
			Target:   target,
			Category: "retail",
			Context:  "consumer_market",
		},
		Kind:       models.KindCompetitor,
		Confidence: confidence,
		Flagged:    flagged,
		Rationale:  "test rationale",
	}
}

func TestFlaggedCollectsOnlyFlaggedRecords(t *testing.T) {
	gate := NewGate(0.5)

	items := gate.Flagged([]models.RelationshipRecord{
		record("acme", "globex", 0.9, false),
		record("acme", "initech", 0.4, true),
		record("globex", "initech", 0.65, true),
	})

	require.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, models.FlaggedItemTypeRelationship, item.Type)
		require.NotNil(t, item.Key)
	}
	assert.Equal(t, "initech", items[0].Key.Target)
	assert.Equal(t, 0.4, items[0].Confidence)
	assert.Equal(t, "test rationale", items[0].Rationale)
}

func TestFlaggedEmptyInput(t *testing.T) {
	gate := NewGate(0.5)
	assert.Empty(t, gate.Flagged(nil))
}

func TestFromExtractionFlagsLowConfidence(t *testing.T) {
	gate := NewGate(0.5)

	items := gate.FromExtraction(&models.ExtractionOutput{
		Brands: []models.BrandMention{
			{Name: "acme", Confidence: 0.9},
			{Name: "globex", Confidence: 0.3},
		},
		Citations: []models.Citation{
			{URL: "https://example.com/a", Confidence: 0.8},
			{URL: "https://example.com/b", Confidence: 0.2},
		},
	})

	require.Len(t, items, 2)
	assert.Equal(t, models.FlaggedItemTypeBrand, items[0].Type)
	assert.Equal(t, "globex", items[0].Name)
	assert.Equal(t, models.FlaggedItemTypeCitation, items[1].Type)
	assert.Equal(t, "https://example.com/b", items[1].Name)
}

func TestFromExtractionNilOutput(t *testing.T) {
	gate := NewGate(0.5)
	assert.Empty(t, gate.FromExtraction(nil))
}
