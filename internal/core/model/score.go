package model

// ComponentScores holds the independent similarity signals for one
// candidate/canonical pair. A nil pointer means the signal was unavailable
// (not zero) and is excluded from the weighted aggregate.
type ComponentScores struct {
	String    *float64 `json:"string,omitempty"`
	Phonetic  *float64 `json:"phonetic,omitempty"`
	Alias     *float64 `json:"alias,omitempty"`
	Embedding *float64 `json:"embedding,omitempty"`
}

// SimilarityScore is the scored comparison of a candidate against one
// canonical entity. Ephemeral: produced and consumed within a single
// resolution attempt.
type SimilarityScore struct {
	IngestionID string          `json:"ingestion_id"`
	Canonical   CanonicalEntity `json:"canonical"`
	Components  ComponentScores `json:"components"`
	Aggregate   float64         `json:"aggregate"`
	Degraded    bool            `json:"degraded"` // one or more signals were unavailable
}
