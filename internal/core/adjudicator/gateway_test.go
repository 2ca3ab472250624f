package adjudicator

import (
	"context"
	"errors"
	"testing"

	"github.com/agenthands/nexus/internal/config"
	"github.com/agenthands/nexus/internal/core/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type MockLLM struct {
	Response      string
	ResponseQueue []string
	Err           error
	Calls         int
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.ResponseQueue) > 0 {
		resp := m.ResponseQueue[0]
		m.ResponseQueue = m.ResponseQueue[1:]
		return resp, nil
	}
	return m.Response, nil
}

func testConfig() config.AdjudicatorConfig {
	return config.AdjudicatorConfig{
		MergeFloor:     0.85,
		DistinctFloor:  0.7,
		RetryCount:     1,
		TimeoutSeconds: 5,
		MaxInFlight:    2,
	}
}

func testContenders() []model.SimilarityScore {
	return []model.SimilarityScore{
		{Canonical: model.CanonicalEntity{UUID: "u1", Name: "John Smith"}},
		{Canonical: model.CanonicalEntity{UUID: "u2", Name: "Jon Smyth"}},
	}
}

func testCandidate() model.CandidateEntity {
	return model.CandidateEntity{Name: "J. Smith", Type: "person", IngestionID: "ing-1"}
}

func TestAdjudicateConfidentMatch(t *testing.T) {
	mockLLM := &MockLLM{Response: `{
		"verdicts": [
			{"canonical_uuid": "u1", "match": true, "confidence": 0.92, "reason": "same person, abbreviated first name"},
			{"canonical_uuid": "u2", "match": false, "confidence": 0.8, "reason": "different spelling lineage"}
		]
	}`}

	g := NewGateway(mockLLM, testConfig(), zerolog.Nop())
	verdict, err := g.Adjudicate(context.Background(), testCandidate(), testContenders())

	assert.NoError(t, err)
	assert.Equal(t, model.VerdictMatched, verdict.Kind)
	assert.Equal(t, "u1", verdict.TargetUUID)
	assert.Equal(t, 0.92, verdict.Confidence)
}

func TestAdjudicateMatchBelowFloorIsUndecided(t *testing.T) {
	mockLLM := &MockLLM{Response: `{
		"verdicts": [
			{"canonical_uuid": "u1", "match": true, "confidence": 0.6, "reason": "maybe"},
			{"canonical_uuid": "u2", "match": false, "confidence": 0.9, "reason": "no"}
		]
	}`}

	g := NewGateway(mockLLM, testConfig(), zerolog.Nop())
	verdict, err := g.Adjudicate(context.Background(), testCandidate(), testContenders())

	assert.NoError(t, err)
	assert.Equal(t, model.VerdictUndecided, verdict.Kind)
	assert.Equal(t, model.ReasonLowConfidence, verdict.Reason)
}

func TestAdjudicateConflictingMatchesNeverMerge(t *testing.T) {
	mockLLM := &MockLLM{Response: `{
		"verdicts": [
			{"canonical_uuid": "u1", "match": true, "confidence": 0.9, "reason": "match"},
			{"canonical_uuid": "u2", "match": true, "confidence": 0.95, "reason": "also match"}
		]
	}`}

	g := NewGateway(mockLLM, testConfig(), zerolog.Nop())
	verdict, err := g.Adjudicate(context.Background(), testCandidate(), testContenders())

	assert.NoError(t, err)
	assert.Equal(t, model.VerdictUndecided, verdict.Kind)
	assert.Equal(t, model.ReasonConflictingMatches, verdict.Reason)
}

func TestAdjudicateConfidentDistinct(t *testing.T) {
	mockLLM := &MockLLM{Response: `{
		"verdicts": [
			{"canonical_uuid": "u1", "match": false, "confidence": 0.88, "reason": "different employer"},
			{"canonical_uuid": "u2", "match": false, "confidence": 0.8, "reason": "different region"}
		]
	}`}

	g := NewGateway(mockLLM, testConfig(), zerolog.Nop())
	verdict, err := g.Adjudicate(context.Background(), testCandidate(), testContenders())

	assert.NoError(t, err)
	assert.Equal(t, model.VerdictUnmatched, verdict.Kind)
	assert.Equal(t, 0.8, verdict.Confidence)
}

func TestAdjudicateWeakDistinctIsUndecided(t *testing.T) {
	mockLLM := &MockLLM{Response: `{
		"verdicts": [
			{"canonical_uuid": "u1", "match": false, "confidence": 0.9, "reason": "no"},
			{"canonical_uuid": "u2", "match": false, "confidence": 0.4, "reason": "unsure"}
		]
	}`}

	g := NewGateway(mockLLM, testConfig(), zerolog.Nop())
	verdict, err := g.Adjudicate(context.Background(), testCandidate(), testContenders())

	assert.NoError(t, err)
	assert.Equal(t, model.VerdictUndecided, verdict.Kind)
	assert.Equal(t, model.ReasonLowConfidence, verdict.Reason)
}

func TestAdjudicateRetriesMalformedThenSucceeds(t *testing.T) {
	mockLLM := &MockLLM{ResponseQueue: []string{
		`not json at all`,
		`{"verdicts": [
			{"canonical_uuid": "u1", "match": true, "confidence": 0.9, "reason": "match"},
			{"canonical_uuid": "u2", "match": false, "confidence": 0.9, "reason": "no"}
		]}`,
	}}

	g := NewGateway(mockLLM, testConfig(), zerolog.Nop())
	verdict, err := g.Adjudicate(context.Background(), testCandidate(), testContenders())

	assert.NoError(t, err)
	assert.Equal(t, model.VerdictMatched, verdict.Kind)
	assert.Equal(t, 2, mockLLM.Calls)
}

func TestAdjudicateExhaustedRetriesFailSafe(t *testing.T) {
	mockLLM := &MockLLM{Err: errors.New("connection refused")}

	g := NewGateway(mockLLM, testConfig(), zerolog.Nop())
	verdict, err := g.Adjudicate(context.Background(), testCandidate(), testContenders())

	// A dead judge is a review-queue condition, never an error and never
	// a merge.
	assert.NoError(t, err)
	assert.Equal(t, model.VerdictUndecided, verdict.Kind)
	assert.Equal(t, model.ReasonAdjudicationFailed, verdict.Reason)
	assert.Equal(t, 2, mockLLM.Calls) // initial attempt plus one retry
}

func TestAdjudicateRejectsUnknownUUID(t *testing.T) {
	mockLLM := &MockLLM{Response: `{
		"verdicts": [
			{"canonical_uuid": "hallucinated-uuid", "match": true, "confidence": 0.99, "reason": "sure"}
		]
	}`}

	g := NewGateway(mockLLM, testConfig(), zerolog.Nop())
	verdict, err := g.Adjudicate(context.Background(), testCandidate(), testContenders())

	assert.NoError(t, err)
	assert.Equal(t, model.VerdictUndecided, verdict.Kind)
	assert.Equal(t, model.ReasonAdjudicationFailed, verdict.Reason)
}

func TestAdjudicateRejectsOutOfRangeConfidence(t *testing.T) {
	mockLLM := &MockLLM{Response: `{
		"verdicts": [
			{"canonical_uuid": "u1", "match": true, "confidence": 1.7, "reason": "very sure"}
		]
	}`}

	g := NewGateway(mockLLM, testConfig(), zerolog.Nop())
	verdict, err := g.Adjudicate(context.Background(), testCandidate(), testContenders())

	assert.NoError(t, err)
	assert.Equal(t, model.VerdictUndecided, verdict.Kind)
	assert.Equal(t, model.ReasonAdjudicationFailed, verdict.Reason)
}

func TestAdjudicateCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGateway(&MockLLM{Err: errors.New("unreachable")}, testConfig(), zerolog.Nop())
	_, err := g.Adjudicate(ctx, testCandidate(), testContenders())

	assert.ErrorIs(t, err, context.Canceled)
}
