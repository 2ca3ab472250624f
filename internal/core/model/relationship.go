package model

import "time"

// Relationship is a typed edge between two resolved canonical entities.
// Creation is gated by the same three-tier policy as entity merges.
type Relationship struct {
	UUID        string    `json:"uuid"`
	SubjectUUID string    `json:"subject_uuid"`
	Predicate   string    `json:"predicate"`
	ObjectUUID  string    `json:"object_uuid"`
	Confidence  float64   `json:"confidence"`
	Provenance  string    `json:"provenance,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// InferredRelationship is the judge's wire schema for one extracted edge,
// keyed by entity name rather than UUID.
type InferredRelationship struct {
	Subject    string  `json:"subject"`
	Predicate  string  `json:"predicate"`
	Object     string  `json:"object"`
	Confidence float64 `json:"confidence"`
}

// InferredRelationships wraps the judge response for relationship inference.
type InferredRelationships struct {
	Relationships []InferredRelationship `json:"relationships"`
}
