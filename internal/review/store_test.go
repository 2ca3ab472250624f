package review

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/agenthands/nexus/internal/core/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "review.db"), 0.8, zerolog.Nop())
	assert.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func pendingItem(name, key string) model.ReviewItem {
	return model.ReviewItem{
		Candidate: model.CandidateEntity{
			Name: name, Type: "person", IngestionID: "ing-1",
		},
		Contenders: []model.SimilarityScore{
			{Canonical: model.CanonicalEntity{UUID: "u1", Name: "John Smith"}, Aggregate: 0.7},
		},
		Reason:      model.ReasonAmbiguous,
		BlockingKey: key,
	}
}

func TestEnqueueAndListPending(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	queued, err := s.Enqueue(ctx, pendingItem("Jon Smith", "J525"))
	assert.NoError(t, err)
	assert.NotZero(t, queued.ID)
	assert.Equal(t, model.ReviewPending, queued.Status)
	assert.False(t, queued.CreatedAt.IsZero())

	items, err := s.ListPending(ctx)
	assert.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, "Jon Smith", items[0].Candidate.Name)
	assert.Len(t, items[0].Contenders, 1)
	assert.Equal(t, model.ReasonAmbiguous, items[0].Reason)

	n, err := s.PendingCount(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEnqueueSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "review.db")
	ctx := context.Background()

	s, err := Open(ctx, path, 0.8, zerolog.Nop())
	assert.NoError(t, err)
	queued, err := s.Enqueue(ctx, pendingItem("Jon Smith", "J525"))
	assert.NoError(t, err)
	assert.NoError(t, s.Close())

	reopened, err := Open(ctx, path, 0.8, zerolog.Nop())
	assert.NoError(t, err)
	defer reopened.Close()

	item, err := reopened.GetByID(ctx, queued.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Jon Smith", item.Candidate.Name)
	assert.Equal(t, model.ReviewPending, item.Status)
}

func TestEnqueueReattachesNearDuplicate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.Enqueue(ctx, pendingItem("Jon Smith", "J525"))
	assert.NoError(t, err)

	// Near-identical name in the same bucket attaches instead of queueing.
	second, err := s.Enqueue(ctx, pendingItem("Jon Smyth", "J525"))
	assert.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, second.Attached, 1)
	assert.Equal(t, "Jon Smyth", second.Attached[0].Name)

	n, _ := s.PendingCount(ctx)
	assert.Equal(t, 1, n)

	// A different name in the same bucket still gets its own item.
	third, err := s.Enqueue(ctx, pendingItem("Jane Smedley", "J525"))
	assert.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestResolveMerge(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	queued, _ := s.Enqueue(ctx, pendingItem("Jon Smith", "J525"))

	resolved, err := s.Resolve(ctx, queued.ID, model.ReviewResolvedMerge, "u1", "reviewer-7", "same person per employment records")
	assert.NoError(t, err)
	assert.Equal(t, model.ReviewResolvedMerge, resolved.Status)
	assert.Equal(t, "u1", resolved.TargetUUID)
	assert.Equal(t, "reviewer-7", resolved.ResolvedBy)
	assert.Equal(t, "same person per employment records", resolved.Rationale)
	assert.NotNil(t, resolved.ResolvedAt)

	n, _ := s.PendingCount(ctx)
	assert.Equal(t, 0, n)
}

func TestResolveIsTerminal(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	queued, _ := s.Enqueue(ctx, pendingItem("Jon Smith", "J525"))
	_, err := s.Resolve(ctx, queued.ID, model.ReviewResolvedDistinct, "", "reviewer-7", "")
	assert.NoError(t, err)

	_, err = s.Resolve(ctx, queued.ID, model.ReviewResolvedMerge, "u1", "reviewer-8", "")
	assert.ErrorIs(t, err, ErrAlreadyResolved)
}

func TestResolveValidation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	queued, _ := s.Enqueue(ctx, pendingItem("Jon Smith", "J525"))

	// Merge without a target is rejected.
	_, err := s.Resolve(ctx, queued.ID, model.ReviewResolvedMerge, "", "reviewer-7", "")
	assert.ErrorIs(t, err, ErrBadOutcome)

	// Pending is not a valid terminal status.
	_, err = s.Resolve(ctx, queued.ID, model.ReviewPending, "", "reviewer-7", "")
	assert.ErrorIs(t, err, ErrBadOutcome)

	// Unknown item.
	_, err = s.Resolve(ctx, 9999, model.ReviewResolvedDistinct, "", "reviewer-7", "")
	assert.ErrorIs(t, err, ErrItemNotFound)

	// The failed attempts left the item pending.
	item, err := s.GetByID(ctx, queued.ID)
	assert.NoError(t, err)
	assert.Equal(t, model.ReviewPending, item.Status)
}
