package core

import (
	"context"
	"fmt"

	"github.com/agenthands/nexus/internal/core/model"
	"github.com/agenthands/nexus/internal/metrics"
)

// Candidate type used for relationship edges held in the review queue.
const relationshipCandidateType = "relationship"

// ApplyReviewResolution records an external actor's verdict on a pending
// item and hands the result to the merge executor exactly as an automatic
// decision would be. Attached near-duplicate candidates follow the primary
// candidate's resolution.
func (r *Resolver) ApplyReviewResolution(ctx context.Context, itemID int64, status model.ReviewStatus, targetUUID, actorID, rationale string) (*Resolution, error) {
	item, err := r.Review.Resolve(ctx, itemID, status, targetUUID, actorID, rationale)
	if err != nil {
		return nil, err
	}
	defer r.refreshReviewGauge(ctx)

	if item.Candidate.Type == relationshipCandidateType {
		return r.applyRelationshipResolution(ctx, item, status)
	}

	var res *Resolution
	if status == model.ReviewResolvedMerge {
		res, err = r.applyMerge(ctx, item.Candidate, item.TargetUUID, item.BlockingKey, item.Verdict)
	} else {
		res, err = r.applyDistinct(ctx, item.Candidate)
	}
	if err != nil {
		return nil, err
	}

	// Every attached candidate was judged near-identical to the primary;
	// merging them into the same survivor is idempotent no-op work when the
	// alias already exists.
	for _, attached := range item.Attached {
		if _, err := r.Executor.MergeCanonical(ctx, attached, res.CanonicalUUID); err != nil {
			r.log.Warn().Err(err).Str("candidate", attached.Name).Msg("failed to fold attached candidate into resolution")
		}
	}

	metrics.ResolutionsTotal.WithLabelValues(res.Status).Inc()
	return res, nil
}

// applyRelationshipResolution creates or discards an edge that was parked in
// the review queue by the relationship inferencer.
func (r *Resolver) applyRelationshipResolution(ctx context.Context, item *model.ReviewItem, status model.ReviewStatus) (*Resolution, error) {
	if status != model.ReviewResolvedMerge {
		metrics.RelationshipsTotal.WithLabelValues("discarded").Inc()
		return &Resolution{Status: StatusCreated, Reason: "relationship discarded"}, nil
	}

	rel, err := relationshipFromReviewItem(item)
	if err != nil {
		return nil, err
	}
	if err := r.Store.CreateRelationship(ctx, rel); err != nil {
		return nil, err
	}
	metrics.RelationshipsTotal.WithLabelValues("reviewed").Inc()
	return &Resolution{Status: StatusCreated, CanonicalUUID: rel.SubjectUUID}, nil
}

// InferRelationships runs post-hoc edge inference for entities resolved from
// one source context. Ambiguous edges are parked in the review queue under a
// synthetic relationship candidate.
func (r *Resolver) InferRelationships(ctx context.Context, sourceText, provenance string, entityUUIDs []string) ([]model.Relationship, error) {
	entities := make([]model.CanonicalEntity, 0, len(entityUUIDs))
	for _, id := range entityUUIDs {
		e, err := r.Store.GetCanonical(ctx, id)
		if err != nil {
			return nil, err
		}
		entities = append(entities, *e)
	}

	created, ambiguous, err := r.Inferencer.Infer(ctx, sourceText, provenance, entities)
	if err != nil {
		return nil, err
	}
	for range created {
		metrics.RelationshipsTotal.WithLabelValues("auto").Inc()
	}

	for _, rel := range ambiguous {
		item := reviewItemFromRelationship(rel, provenance)
		if _, err := r.Review.Enqueue(ctx, item); err != nil {
			r.log.Warn().Err(err).Str("predicate", rel.Predicate).Msg("failed to queue ambiguous relationship")
			continue
		}
		metrics.RelationshipsTotal.WithLabelValues("queued").Inc()
	}
	r.refreshReviewGauge(ctx)

	return created, nil
}

func reviewItemFromRelationship(rel model.Relationship, provenance string) model.ReviewItem {
	return model.ReviewItem{
		Candidate: model.CandidateEntity{
			Name: fmt.Sprintf("%s -[%s]-> %s", rel.SubjectUUID, rel.Predicate, rel.ObjectUUID),
			Type: relationshipCandidateType,
			Attributes: map[string]interface{}{
				"subject_uuid": rel.SubjectUUID,
				"predicate":    rel.Predicate,
				"object_uuid":  rel.ObjectUUID,
				"confidence":   rel.Confidence,
			},
			IngestionID: provenance,
		},
		Reason:      model.ReasonAmbiguous,
		BlockingKey: rel.SubjectUUID + "|" + rel.Predicate + "|" + rel.ObjectUUID,
	}
}

func relationshipFromReviewItem(item *model.ReviewItem) (model.Relationship, error) {
	attrs := item.Candidate.Attributes
	subject, _ := attrs["subject_uuid"].(string)
	predicate, _ := attrs["predicate"].(string)
	object, _ := attrs["object_uuid"].(string)
	if subject == "" || predicate == "" || object == "" {
		return model.Relationship{}, fmt.Errorf("review item %d is not a well-formed relationship candidate", item.ID)
	}
	confidence, _ := attrs["confidence"].(float64)

	return model.Relationship{
		SubjectUUID: subject,
		Predicate:   predicate,
		ObjectUUID:  object,
		Confidence:  confidence,
		Provenance:  item.Candidate.IngestionID,
	}, nil
}
