package models

import "time"

// Brand is a normalized brand/organization identity. The canonical name is
// the unique key; aliases accumulate and are never removed automatically.
type Brand struct {
	Name      string    `json:"name"`
	Aliases   []string  `json:"aliases,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
