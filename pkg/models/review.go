package models

import "time"

// FlaggedItemType says what kind of output tripped the quality gate.
type FlaggedItemType string

const (
	FlaggedItemTypeRelationship FlaggedItemType = "relationship"
	FlaggedItemTypeBrand        FlaggedItemType = "brand"
	FlaggedItemTypeCitation     FlaggedItemType = "citation"
)

// FlaggedItem is a low-confidence output surfaced for human review.
type FlaggedItem struct {
	Type       FlaggedItemType  `json:"type"`
	Key        *RelationshipKey `json:"key,omitempty"`
	Name       string           `json:"name,omitempty"`
	Confidence float64          `json:"confidence"`
	Rationale  string           `json:"rationale,omitempty"`
}

// Review queue statuses.
const (
	ReviewItemStatusPending  = "pending"
	ReviewItemStatusApproved = "approved"
	ReviewItemStatusRejected = "rejected"
)

// ReviewItem is a flagged item persisted to the review queue.
type ReviewItem struct {
	ID         string     `json:"id" db:"id"`
	ItemType   string     `json:"item_type" db:"item_type"`
	Source     string     `json:"source" db:"source"`
	Target     string     `json:"target" db:"target"`
	Category   string     `json:"category" db:"category"`
	Context    string     `json:"context" db:"context"`
	Confidence float64    `json:"confidence" db:"confidence"`
	Rationale  string     `json:"rationale" db:"rationale"`
	Status     string     `json:"status" db:"status"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolvedBy *string    `json:"resolved_by,omitempty" db:"resolved_by"`
}
