// Package decision holds the deterministic three-way policy that maps
// similarity scores onto {auto-merge, auto-distinct, ambiguous}. It is a
// pure function of its inputs so it can be tested without the adjudicator
// or the store.
package decision

import (
	"github.com/agenthands/nexus/internal/core/model"
)

type Thresholds struct {
	Upper      float64
	Lower      float64
	TieEpsilon float64
	TopK       int
}

// Decide applies the policy to score-ordered candidates (highest aggregate
// first, as the scorer emits them).
//
// An empty blocking set is trivially distinct. A top score at or above Upper
// auto-merges unless the runner-up sits within TieEpsilon of it, in which
// case top-1 selection is unreliable and the decision is forced ambiguous.
// At or below Lower the candidate is distinct. Everything between carries
// the top-k scores forward for adjudication.
func Decide(scores []model.SimilarityScore, t Thresholds) model.ResolutionDecision {
	if len(scores) == 0 {
		return model.ResolutionDecision{Outcome: model.OutcomeAutoDistinct, Reason: "no candidates in blocking set"}
	}

	top := scores[0]

	if top.Aggregate >= t.Upper {
		if len(scores) > 1 && top.Aggregate-scores[1].Aggregate <= t.TieEpsilon {
			return model.ResolutionDecision{
				Outcome:    model.OutcomeAmbiguous,
				Contenders: topK(scores, t.TopK),
				Reason:     model.ReasonTiedCandidates,
			}
		}
		return model.ResolutionDecision{
			Outcome:    model.OutcomeAutoMerge,
			TargetUUID: top.Canonical.UUID,
		}
	}

	if top.Aggregate <= t.Lower {
		return model.ResolutionDecision{Outcome: model.OutcomeAutoDistinct}
	}

	return model.ResolutionDecision{
		Outcome:    model.OutcomeAmbiguous,
		Contenders: topK(scores, t.TopK),
		Reason:     model.ReasonAmbiguous,
	}
}

// GateConfidence applies the same three-tier policy to a bare confidence
// value. The relationship inferencer reuses this instead of implementing its
// own thresholding.
func GateConfidence(confidence float64, t Thresholds) model.Outcome {
	if confidence >= t.Upper {
		return model.OutcomeAutoMerge
	}
	if confidence <= t.Lower {
		return model.OutcomeAutoDistinct
	}
	return model.OutcomeAmbiguous
}

func topK(scores []model.SimilarityScore, k int) []model.SimilarityScore {
	if k <= 0 || k > len(scores) {
		k = len(scores)
	}
	out := make([]model.SimilarityScore, k)
	copy(out, scores[:k])
	return out
}
