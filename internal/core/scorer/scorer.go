// Package scorer computes multi-signal similarity between a candidate
// mention and a blocking set of canonical entities. Scoring is read-only:
// it never mutates the index it scores against.
package scorer

import (
	"math"
	"sort"
	"strings"

	"github.com/agenthands/nexus/internal/config"
	"github.com/agenthands/nexus/internal/core/model"
	"github.com/antzucaro/matchr"
)

type Scorer struct {
	Weights config.ScorerWeights
}

func New(weights config.ScorerWeights) *Scorer {
	return &Scorer{Weights: weights}
}

// Score compares the candidate against every entity in the blocking set and
// returns the pairs ordered highest aggregate first. Missing signals are
// excluded and the remaining weights renormalized, so an absent embedding
// service lowers precision without biasing toward "distinct".
func (s *Scorer) Score(candidate model.CandidateEntity, blocking []model.CanonicalEntity) []model.SimilarityScore {
	scores := make([]model.SimilarityScore, 0, len(blocking))
	for _, canonical := range blocking {
		scores = append(scores, s.scorePair(candidate, canonical))
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Aggregate != scores[j].Aggregate {
			return scores[i].Aggregate > scores[j].Aggregate
		}
		return scores[i].Canonical.UUID < scores[j].Canonical.UUID
	})
	return scores
}

func (s *Scorer) scorePair(candidate model.CandidateEntity, canonical model.CanonicalEntity) model.SimilarityScore {
	score := model.SimilarityScore{
		IngestionID: candidate.IngestionID,
		Canonical:   canonical,
	}

	str := StringSimilarity(candidate.Name, canonical.Name)
	score.Components.String = &str

	ph := phoneticSimilarity(candidate.Name, canonical.Name)
	score.Components.Phonetic = &ph

	if alias, ok := aliasSimilarity(candidate.Name, canonical.Aliases); ok {
		score.Components.Alias = &alias
	}

	if emb, ok := embeddingSimilarity(candidate.NameEmbedding, canonical.NameEmbedding); ok {
		score.Components.Embedding = &emb
	}

	score.Aggregate, score.Degraded = s.aggregate(score.Components)
	return score
}

// aggregate is the weighted sum over available signals, renormalized so that
// the result stays in [0,1] however many signals are present.
func (s *Scorer) aggregate(c model.ComponentScores) (float64, bool) {
	type signal struct {
		value  *float64
		weight float64
	}
	signals := []signal{
		{c.String, s.Weights.String},
		{c.Phonetic, s.Weights.Phonetic},
		{c.Alias, s.Weights.Alias},
		{c.Embedding, s.Weights.Embedding},
	}

	var sum, weightSum float64
	degraded := false
	for _, sig := range signals {
		if sig.weight <= 0 {
			continue
		}
		if sig.value == nil {
			degraded = true
			continue
		}
		sum += sig.weight * clamp01(*sig.value)
		weightSum += sig.weight
	}

	if weightSum == 0 {
		return 0, degraded
	}
	return clamp01(sum / weightSum), degraded
}

// StringSimilarity is normalized edit distance over lowercased names.
func StringSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	dist := matchr.Levenshtein(a, b)
	return clamp01(1 - float64(dist)/float64(longest))
}

// phoneticSimilarity is coarse-bucketed: 1.0 for a primary double-metaphone
// match, 0.5 when only the secondary encodings agree, 0 otherwise.
func phoneticSimilarity(a, b string) float64 {
	p1, s1 := matchr.DoubleMetaphone(a)
	p2, s2 := matchr.DoubleMetaphone(b)

	if p1 != "" && p1 == p2 {
		return 1
	}
	if (s1 != "" && (s1 == p2 || s1 == s2)) || (s2 != "" && s2 == p1) {
		return 0.5
	}
	return 0
}

// aliasSimilarity is the best string similarity between the candidate name
// and any existing alias. Absent when the canonical has no aliases: no
// signal, not zero.
func aliasSimilarity(name string, aliases []model.Alias) (float64, bool) {
	if len(aliases) == 0 {
		return 0, false
	}
	best := 0.0
	for _, a := range aliases {
		if sim := StringSimilarity(name, a.Text); sim > best {
			best = sim
		}
	}
	return best, true
}

// embeddingSimilarity maps cosine similarity from [-1,1] to [0,1]. Absent
// when either vector is missing or dimensions disagree.
func embeddingSimilarity(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return clamp01((cos + 1) / 2), true
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
