package decision

import (
	"testing"

	"github.com/agenthands/nexus/internal/core/model"
	"github.com/stretchr/testify/assert"
)

func testThresholds() Thresholds {
	return Thresholds{Upper: 0.9, Lower: 0.5, TieEpsilon: 0.05, TopK: 3}
}

func score(uuid string, aggregate float64) model.SimilarityScore {
	return model.SimilarityScore{
		Canonical: model.CanonicalEntity{UUID: uuid},
		Aggregate: aggregate,
	}
}

func TestDecide(t *testing.T) {
	cases := []struct {
		name    string
		scores  []model.SimilarityScore
		outcome model.Outcome
		target  string
		reason  string
	}{
		{
			name:    "empty blocking set is distinct",
			scores:  nil,
			outcome: model.OutcomeAutoDistinct,
		},
		{
			name:    "clear winner above upper merges",
			scores:  []model.SimilarityScore{score("u1", 0.95), score("u2", 0.6)},
			outcome: model.OutcomeAutoMerge,
			target:  "u1",
		},
		{
			name:    "exactly at upper merges",
			scores:  []model.SimilarityScore{score("u1", 0.9)},
			outcome: model.OutcomeAutoMerge,
			target:  "u1",
		},
		{
			name:    "tied winners force ambiguous",
			scores:  []model.SimilarityScore{score("u1", 0.95), score("u2", 0.93)},
			outcome: model.OutcomeAmbiguous,
			reason:  model.ReasonTiedCandidates,
		},
		{
			name:    "at lower is distinct",
			scores:  []model.SimilarityScore{score("u1", 0.5)},
			outcome: model.OutcomeAutoDistinct,
		},
		{
			name:    "below lower is distinct",
			scores:  []model.SimilarityScore{score("u1", 0.2)},
			outcome: model.OutcomeAutoDistinct,
		},
		{
			name:    "between thresholds is ambiguous",
			scores:  []model.SimilarityScore{score("u1", 0.7), score("u2", 0.55)},
			outcome: model.OutcomeAmbiguous,
			reason:  model.ReasonAmbiguous,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dec := Decide(tc.scores, testThresholds())
			assert.Equal(t, tc.outcome, dec.Outcome)
			if tc.target != "" {
				assert.Equal(t, tc.target, dec.TargetUUID)
			}
			if tc.reason != "" {
				assert.Equal(t, tc.reason, dec.Reason)
			}
		})
	}
}

func TestDecideContendersAreTopK(t *testing.T) {
	scores := []model.SimilarityScore{
		score("u1", 0.8), score("u2", 0.75), score("u3", 0.7), score("u4", 0.65),
	}
	dec := Decide(scores, testThresholds())

	assert.Equal(t, model.OutcomeAmbiguous, dec.Outcome)
	assert.Len(t, dec.Contenders, 3)
	assert.Equal(t, "u1", dec.Contenders[0].Canonical.UUID)
	assert.Equal(t, "u3", dec.Contenders[2].Canonical.UUID)
}

func TestDecideIsDeterministic(t *testing.T) {
	scores := []model.SimilarityScore{score("u1", 0.95), score("u2", 0.6)}
	first := Decide(scores, testThresholds())
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Decide(scores, testThresholds()))
	}
}

func TestGateConfidence(t *testing.T) {
	th := testThresholds()
	assert.Equal(t, model.OutcomeAutoMerge, GateConfidence(0.95, th))
	assert.Equal(t, model.OutcomeAutoMerge, GateConfidence(0.9, th))
	assert.Equal(t, model.OutcomeAmbiguous, GateConfidence(0.7, th))
	assert.Equal(t, model.OutcomeAutoDistinct, GateConfidence(0.5, th))
	assert.Equal(t, model.OutcomeAutoDistinct, GateConfidence(0.1, th))
}
