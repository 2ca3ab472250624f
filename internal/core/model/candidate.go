package model

import (
	"errors"
	"fmt"
	"strings"
)

// CandidateEntity is an unresolved mention produced by the extraction stage.
// It lives only for the duration of one resolution attempt and is never
// written to the graph as-is.
type CandidateEntity struct {
	Name          string                 `json:"name"`
	Type          string                 `json:"type"`
	Attributes    map[string]interface{} `json:"attributes,omitempty"`
	SourceExcerpt string                 `json:"source_excerpt,omitempty"`
	IngestionID   string                 `json:"ingestion_id"`
	NameEmbedding []float32              `json:"name_embedding,omitempty"`
}

var ErrValidation = errors.New("invalid candidate")

// Validate enforces the intake contract before any scoring happens.
func (c *CandidateEntity) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrValidation)
	}
	if strings.TrimSpace(c.Type) == "" {
		return fmt.Errorf("%w: empty type", ErrValidation)
	}
	if c.IngestionID == "" {
		return fmt.Errorf("%w: missing ingestion id", ErrValidation)
	}
	return nil
}
