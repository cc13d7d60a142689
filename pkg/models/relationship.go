package models

import (
	"fmt"
	"strings"
	"time"
)

// RelationshipKind classifies how the source brand relates to the target.
type RelationshipKind string

const (
	KindCompetitor RelationshipKind = "competitor"
	KindPartner    RelationshipKind = "partner"
	KindSupplier   RelationshipKind = "supplier"
	KindCustomer   RelationshipKind = "customer"
	KindSubsidiary RelationshipKind = "subsidiary"
	KindParent     RelationshipKind = "parent"
	KindInvestor   RelationshipKind = "investor"
	KindNeutral    RelationshipKind = "neutral"
	KindUnknown    RelationshipKind = "unknown"
)

// ParseKind maps a raw label to a known kind. Anything unrecognized becomes
// KindUnknown rather than an error, since classifier output is open-ended.
func ParseKind(s string) RelationshipKind {
	switch RelationshipKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindCompetitor, KindPartner, KindSupplier, KindCustomer, KindSubsidiary, KindParent, KindInvestor, KindNeutral:
		return RelationshipKind(strings.ToLower(strings.TrimSpace(s)))
	default:
		return KindUnknown
	}
}

// Sentiment is the tone of the relationship as described by the evidence.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentMixed    Sentiment = "mixed"
)

func ParseSentiment(s string) Sentiment {
	switch Sentiment(strings.ToLower(strings.TrimSpace(s))) {
	case SentimentPositive, SentimentNegative, SentimentMixed:
		return Sentiment(strings.ToLower(strings.TrimSpace(s)))
	default:
		return SentimentNeutral
	}
}

// Provenance records which resolution tier produced a record.
type Provenance string

const (
	ProvenanceStoreHit  Provenance = "store_hit"
	ProvenanceDiscovery Provenance = "discovery_derived"
	ProvenanceInference Provenance = "inference_only"
)

// RelationshipKey is the identity of a relationship edge. The same brand pair
// can hold independent relationships under different (category, context)
// combinations, and direction matters.
type RelationshipKey struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Category string `json:"category"`
	Context  string `json:"context"`
}

func (k RelationshipKey) String() string {
	return fmt.Sprintf("%s->%s[%s/%s]", k.Source, k.Target, k.Category, k.Context)
}

// RelationshipRecord is a directed, context-scoped edge between two brands.
type RelationshipRecord struct {
	Key        RelationshipKey  `json:"key"`
	Kind       RelationshipKind `json:"kind"`
	Confidence float64          `json:"confidence"`
	Sentiment  Sentiment        `json:"sentiment"`
	Evidence   string           `json:"evidence"`
	Provenance Provenance       `json:"provenance"`
	Flagged    bool             `json:"flagged"`
	Rationale  string           `json:"rationale,omitempty"`
	Persisted  bool             `json:"persisted"`
	UpdatedAt  time.Time        `json:"updated_at"`
}
