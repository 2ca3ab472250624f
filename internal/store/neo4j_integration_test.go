//go:build integration

package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/agenthands/nexus/internal/core/model"
	"github.com/agenthands/nexus/internal/driver"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires a reachable neo4j/memgraph instance:
//
//	NEO4J_URI=bolt://localhost:7687 go test -tags integration ./internal/store/
func openIntegrationStore(t *testing.T) *Neo4jStore {
	t.Helper()

	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		t.Skip("NEO4J_URI not set")
	}

	d, err := driver.NewNeo4jDriver(uri, os.Getenv("NEO4J_USER"), os.Getenv("NEO4J_PASSWORD"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { d.Close(context.Background()) })
	require.NoError(t, d.BuildIndices(context.Background()))

	return NewNeo4jStore(d)
}

func TestNeo4jCanonicalRoundTrip(t *testing.T) {
	s := openIntegrationStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	id, err := s.CreateCanonical(ctx, model.CanonicalEntity{
		Type:       "person",
		Name:       "Integration Smith",
		Aliases:    []model.Alias{{Text: "I. Smith", Source: "ing-1"}},
		Attributes: map[string]interface{}{"role": "tester"},
		CreatedAt:  now,
	})
	require.NoError(t, err)

	got, err := s.GetCanonical(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Integration Smith", got.Name)
	assert.True(t, got.HasAlias("I. Smith"))
	assert.Equal(t, "tester", got.Attributes["role"])
	assert.Empty(t, got.MergedInto)

	found, err := s.FindByBlockingKey(ctx, "person", BlockingKey("Integration Smith"))
	require.NoError(t, err)
	uuids := make([]string, 0, len(found))
	for _, e := range found {
		uuids = append(uuids, e.UUID)
	}
	assert.Contains(t, uuids, id)
}

func TestNeo4jMergeRedirectAndRepoint(t *testing.T) {
	s := openIntegrationStore(t)
	ctx := context.Background()

	winner, err := s.CreateCanonical(ctx, model.CanonicalEntity{Type: "person", Name: "Redirect Winner"})
	require.NoError(t, err)
	loser, err := s.CreateCanonical(ctx, model.CanonicalEntity{Type: "person", Name: "Redirect Loser"})
	require.NoError(t, err)
	other, err := s.CreateCanonical(ctx, model.CanonicalEntity{Type: "org", Name: "Redirect Org"})
	require.NoError(t, err)

	require.NoError(t, s.CreateRelationship(ctx, model.Relationship{
		SubjectUUID: loser, Predicate: "works_for", ObjectUUID: other, Confidence: 0.95,
	}))

	require.NoError(t, s.MarkMergedInto(ctx, loser, winner))
	require.NoError(t, s.RepointRelationships(ctx, loser, winner))

	got, err := s.GetCanonical(ctx, loser)
	require.NoError(t, err)
	assert.Equal(t, winner, got.MergedInto)

	// Merged-away nodes disappear from blocking lookups.
	found, err := s.FindByBlockingKey(ctx, "person", BlockingKey("Redirect Loser"))
	require.NoError(t, err)
	for _, e := range found {
		assert.NotEqual(t, loser, e.UUID)
	}
}
