package scorer

import (
	"testing"

	"github.com/agenthands/nexus/internal/config"
	"github.com/agenthands/nexus/internal/core/model"
	"github.com/stretchr/testify/assert"
)

func testWeights() config.ScorerWeights {
	return config.ScorerWeights{String: 0.4, Phonetic: 0.2, Alias: 0.2, Embedding: 0.2}
}

func TestStringSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, StringSimilarity("Alice Smith", "alice smith"))
	assert.Equal(t, 1.0, StringSimilarity("  Alice ", "alice"))

	// One edit over five runes.
	sim := StringSimilarity("alice", "alize")
	assert.InDelta(t, 0.8, sim, 1e-9)

	// Unrelated names score low but stay in range.
	sim = StringSimilarity("Alice Smith", "Zebra Quartz")
	assert.GreaterOrEqual(t, sim, 0.0)
	assert.Less(t, sim, 0.5)
}

func TestScoreOrdering(t *testing.T) {
	s := New(testWeights())

	candidate := model.CandidateEntity{Name: "Jon Smith", Type: "person", IngestionID: "ing-1"}
	blocking := []model.CanonicalEntity{
		{UUID: "u-far", Type: "person", Name: "Jennifer Smythe-Harrington"},
		{UUID: "u-near", Type: "person", Name: "John Smith"},
	}

	scores := s.Score(candidate, blocking)

	assert.Len(t, scores, 2)
	assert.Equal(t, "u-near", scores[0].Canonical.UUID)
	assert.Greater(t, scores[0].Aggregate, scores[1].Aggregate)
	for _, sc := range scores {
		assert.GreaterOrEqual(t, sc.Aggregate, 0.0)
		assert.LessOrEqual(t, sc.Aggregate, 1.0)
	}
}

func TestScoreTieBreaksByUUID(t *testing.T) {
	s := New(testWeights())

	candidate := model.CandidateEntity{Name: "Alice", Type: "person", IngestionID: "ing-1"}
	blocking := []model.CanonicalEntity{
		{UUID: "uuid-b", Type: "person", Name: "Alice"},
		{UUID: "uuid-a", Type: "person", Name: "Alice"},
	}

	scores := s.Score(candidate, blocking)
	assert.Equal(t, scores[0].Aggregate, scores[1].Aggregate)
	assert.Equal(t, "uuid-a", scores[0].Canonical.UUID)
}

func TestMissingSignalsRenormalize(t *testing.T) {
	s := New(testWeights())

	// No aliases, no embeddings: only string and phonetic contribute.
	candidate := model.CandidateEntity{Name: "Alice Smith", Type: "person", IngestionID: "ing-1"}
	canonical := model.CanonicalEntity{UUID: "u1", Type: "person", Name: "Alice Smith"}

	scores := s.Score(candidate, []model.CanonicalEntity{canonical})

	assert.Len(t, scores, 1)
	sc := scores[0]
	assert.True(t, sc.Degraded)
	assert.Nil(t, sc.Components.Alias)
	assert.Nil(t, sc.Components.Embedding)
	// Identical names: both present signals are 1.0, so renormalization
	// must still produce 1.0, not half of it.
	assert.InDelta(t, 1.0, sc.Aggregate, 1e-9)
}

func TestAliasSignal(t *testing.T) {
	s := New(testWeights())

	candidate := model.CandidateEntity{Name: "Bob", Type: "person", IngestionID: "ing-1"}
	canonical := model.CanonicalEntity{
		UUID: "u1", Type: "person", Name: "Robert Jones",
		Aliases: []model.Alias{{Text: "Bobby"}, {Text: "Bob"}},
	}

	scores := s.Score(candidate, []model.CanonicalEntity{canonical})
	sc := scores[0]

	assert.NotNil(t, sc.Components.Alias)
	assert.Equal(t, 1.0, *sc.Components.Alias)
}

func TestEmbeddingSignal(t *testing.T) {
	s := New(testWeights())

	candidate := model.CandidateEntity{
		Name: "ACME", Type: "org", IngestionID: "ing-1",
		NameEmbedding: []float32{1, 0, 0},
	}

	same := model.CanonicalEntity{UUID: "u1", Type: "org", Name: "ACME Corp", NameEmbedding: []float32{1, 0, 0}}
	opposite := model.CanonicalEntity{UUID: "u2", Type: "org", Name: "ACME Corp", NameEmbedding: []float32{-1, 0, 0}}
	mismatched := model.CanonicalEntity{UUID: "u3", Type: "org", Name: "ACME Corp", NameEmbedding: []float32{1, 0}}

	scores := s.Score(candidate, []model.CanonicalEntity{same, opposite, mismatched})
	byUUID := map[string]model.SimilarityScore{}
	for _, sc := range scores {
		byUUID[sc.Canonical.UUID] = sc
	}

	assert.InDelta(t, 1.0, *byUUID["u1"].Components.Embedding, 1e-9)
	assert.InDelta(t, 0.0, *byUUID["u2"].Components.Embedding, 1e-9)
	assert.Nil(t, byUUID["u3"].Components.Embedding)
	assert.True(t, byUUID["u3"].Degraded)
	assert.False(t, byUUID["u1"].Degraded)
}

func TestEmptyBlockingSet(t *testing.T) {
	s := New(testWeights())
	scores := s.Score(model.CandidateEntity{Name: "Alice", Type: "person", IngestionID: "i"}, nil)
	assert.Empty(t, scores)
}
