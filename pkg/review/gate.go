// Package review implements the post-run quality gate that surfaces
// low-confidence output for human review.
package review

import (
	"github.com/Mehrads/Brands-Relationships/pkg/models"
)

// Gate collects flagged items from an analysis run. Pure pass over the
// output set; no side effects, no external calls.
type Gate struct {
	lowConfidenceThreshold float64
}

// NewGate creates a quality gate. The low threshold applies to extraction
// confidences (brands, citations); relationship records carry their own
// flagged bit set during resolution.
func NewGate(lowConfidenceThreshold float64) *Gate {
	return &Gate{lowConfidenceThreshold: lowConfidenceThreshold}
}

// Flagged returns a review item for every relationship record whose flagged
// bit is set, carrying its key, confidence, and rationale.
func (g *Gate) Flagged(records []models.RelationshipRecord) []models.FlaggedItem {
	items := make([]models.FlaggedItem, 0)
	for _, r := range records {
		if !r.Flagged {
			continue
		}
		key := r.Key
		items = append(items, models.FlaggedItem{
			Type:       models.FlaggedItemTypeRelationship,
			Key:        &key,
			Confidence: r.Confidence,
			Rationale:  r.Rationale,
		})
	}
	return items
}

// FromExtraction flags low-confidence brands and citations from the
// extraction stage.
func (g *Gate) FromExtraction(output *models.ExtractionOutput) []models.FlaggedItem {
	items := make([]models.FlaggedItem, 0)
	if output == nil {
		return items
	}

	for _, b := range output.Brands {
		if b.Confidence < g.lowConfidenceThreshold {
			items = append(items, models.FlaggedItem{
				Type:       models.FlaggedItemTypeBrand,
				Name:       b.Name,
				Confidence: b.Confidence,
				Rationale:  "brand extracted with low confidence",
			})
		}
	}

	for _, c := range output.Citations {
		if c.Confidence < g.lowConfidenceThreshold {
			items = append(items, models.FlaggedItem{
				Type:       models.FlaggedItemTypeCitation,
				Name:       c.URL,
				Confidence: c.Confidence,
				Rationale:  "citation matched with low confidence",
			})
		}
	}

	return items
}
