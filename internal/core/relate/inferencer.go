// Package relate infers typed edges between resolved canonical entities from
// their originating source context. Edge creation runs under the same
// three-tier confidence gate as entity merges.
package relate

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/nexus/internal/core/common"
	"github.com/agenthands/nexus/internal/core/decision"
	"github.com/agenthands/nexus/internal/core/model"
	"github.com/agenthands/nexus/internal/llm"
	"github.com/agenthands/nexus/internal/store"
	"github.com/rs/zerolog"
)

type Inferencer struct {
	LLM        llm.LLMClient
	Store      store.GraphStore
	Thresholds decision.Thresholds
	log        zerolog.Logger
}

func NewInferencer(client llm.LLMClient, s store.GraphStore, t decision.Thresholds, log zerolog.Logger) *Inferencer {
	return &Inferencer{
		LLM:        client,
		Store:      s,
		Thresholds: t,
		log:        log.With().Str("component", "relate").Logger(),
	}
}

// Infer extracts relationships between the given entities from the source
// text. Edges at or above the upper threshold are created immediately; edges
// at or below the lower threshold are discarded; the band between is
// returned for review. Reuses the Decision Engine's gate rather than its own
// thresholding.
func (i *Inferencer) Infer(ctx context.Context, sourceText, provenance string, entities []model.CanonicalEntity) (created, ambiguous []model.Relationship, err error) {
	if len(entities) < 2 || strings.TrimSpace(sourceText) == "" {
		return nil, nil, nil
	}

	response, err := i.LLM.Generate(ctx, buildPrompt(sourceText, entities))
	if err != nil {
		return nil, nil, fmt.Errorf("relationship inference failed: %w", err)
	}

	parsed, err := common.ParseJSON[model.InferredRelationships](response)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse inferred relationships: %w", err)
	}

	byName := indexByName(entities)

	for _, inferred := range parsed.Relationships {
		subject, okS := byName[strings.ToLower(inferred.Subject)]
		object, okO := byName[strings.ToLower(inferred.Object)]
		if !okS || !okO || subject == object || inferred.Predicate == "" {
			i.log.Debug().Str("subject", inferred.Subject).Str("object", inferred.Object).Msg("dropping edge with unresolvable endpoints")
			continue
		}

		rel := model.Relationship{
			SubjectUUID: subject,
			Predicate:   normalizePredicate(inferred.Predicate),
			ObjectUUID:  object,
			Confidence:  inferred.Confidence,
			Provenance:  provenance,
		}

		switch decision.GateConfidence(inferred.Confidence, i.Thresholds) {
		case model.OutcomeAutoMerge:
			if err := i.Store.CreateRelationship(ctx, rel); err != nil {
				return created, ambiguous, err
			}
			created = append(created, rel)
		case model.OutcomeAmbiguous:
			ambiguous = append(ambiguous, rel)
		default:
			// Below the lower threshold: discard.
		}
	}

	return created, ambiguous, nil
}

func buildPrompt(text string, entities []model.CanonicalEntity) string {
	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.Name
	}

	return fmt.Sprintf(`You are a relationship inference system. Analyze the text below together with the entities extracted from it, and identify relationships between those entities that the text explicitly supports (family, professional, personal, organizational).

Text:
%s

Available Entities: %s

Use the exact entity names as subject and object, choose a clear predicate (for example "works_for", "son_of"), and assign a confidence between 0 and 1.
Return a JSON object with key "relationships": a list of objects with "subject", "predicate", "object", and "confidence".
Only include relationships explicitly supported by the text. Do not output any other text.`,
		text, strings.Join(names, ", "))
}

func indexByName(entities []model.CanonicalEntity) map[string]string {
	byName := make(map[string]string, len(entities))
	for _, e := range entities {
		byName[strings.ToLower(e.Name)] = e.UUID
		for _, a := range e.Aliases {
			byName[strings.ToLower(a.Text)] = e.UUID
		}
	}
	return byName
}

func normalizePredicate(p string) string {
	p = strings.TrimSpace(strings.ToLower(p))
	return strings.ReplaceAll(p, " ", "_")
}
