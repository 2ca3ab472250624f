package model

import "time"

// Alias is an alternate surface form owned by exactly one canonical entity.
type Alias struct {
	Text      string    `json:"text"`
	Source    string    `json:"source,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// CanonicalEntity is the single authoritative node for one real-world
// referent. The UUID is stable and never reused; after a merge the losing
// UUID survives only as a redirect to the winner.
type CanonicalEntity struct {
	UUID          string                 `json:"uuid"`
	Type          string                 `json:"type"`
	Name          string                 `json:"name"`
	Aliases       []Alias                `json:"aliases,omitempty"`
	Attributes    map[string]interface{} `json:"attributes,omitempty"`
	NameEmbedding []float32              `json:"name_embedding,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	LastMergedAt  *time.Time             `json:"last_merged_at,omitempty"`

	// MergedInto is set only on merged-away nodes and points at the entity
	// that absorbed this one. Chains are followed to a fixed point before
	// any merge commits.
	MergedInto string `json:"merged_into,omitempty"`
}

// HasAlias reports whether text is already the primary name or a known alias.
func (e *CanonicalEntity) HasAlias(text string) bool {
	if e.Name == text {
		return true
	}
	for _, a := range e.Aliases {
		if a.Text == text {
			return true
		}
	}
	return false
}
