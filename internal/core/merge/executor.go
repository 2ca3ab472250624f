// Package merge applies resolution decisions to the graph exactly once,
// atomically with respect to the affected canonical entity.
package merge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agenthands/nexus/internal/config"
	"github.com/agenthands/nexus/internal/core/model"
	"github.com/agenthands/nexus/internal/llm"
	"github.com/agenthands/nexus/internal/store"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// ErrDeadLettered marks a candidate whose graph writes failed through all
// retries. The only failure class fatal to that candidate's resolution.
var ErrDeadLettered = errors.New("candidate dead-lettered")

type Executor struct {
	Store    store.GraphStore
	Embedder llm.EmbedderClient // may be nil; aliases are then stored without vectors
	cfg      config.MergeConfig
	log      zerolog.Logger
}

func NewExecutor(s store.GraphStore, embedder llm.EmbedderClient, cfg config.MergeConfig, log zerolog.Logger) *Executor {
	return &Executor{
		Store:    s,
		Embedder: embedder,
		cfg:      cfg,
		log:      log.With().Str("component", "merge").Logger(),
	}
}

// CreateDistinct materializes a new canonical entity from the candidate.
func (e *Executor) CreateDistinct(ctx context.Context, candidate model.CandidateEntity) (string, error) {
	entity := model.CanonicalEntity{
		Type:          candidate.Type,
		Name:          candidate.Name,
		Attributes:    candidate.Attributes,
		NameEmbedding: candidate.NameEmbedding,
		CreatedAt:     time.Now().UTC(),
	}
	if len(entity.NameEmbedding) == 0 && e.Embedder != nil {
		if vec, err := e.Embedder.Embed(ctx, candidate.Name); err == nil {
			entity.NameEmbedding = vec
		}
	}

	var id string
	err := e.withWriteRetry(ctx, func() error {
		var err error
		id, err = e.Store.CreateCanonical(ctx, entity)
		return err
	})
	if err != nil {
		return "", err
	}

	e.log.Info().Str("uuid", id).Str("name", entity.Name).Msg("created canonical entity")
	return id, nil
}

// MergeCanonical folds the candidate into the target entity under the
// target's lease. The target id is resolved through any merge-redirect chain
// first; the entity is re-validated under lock, so a stale scoring snapshot
// cannot corrupt the final state. Idempotent: a candidate whose name is
// already present on the survivor performs no duplicate work.
//
// Returns store.ErrLeaseTimeout when the lease cannot be acquired; callers
// route that to the review queue rather than failing the pipeline.
func (e *Executor) MergeCanonical(ctx context.Context, candidate model.CandidateEntity, targetUUID string) (string, error) {
	target, err := resolveSurvivor(ctx, e.Store, targetUUID)
	if err != nil {
		return "", err
	}

	lease, err := e.Store.AcquireLease(ctx, target.UUID, e.cfg.LeaseTimeout())
	if err != nil {
		return "", err
	}
	defer lease.Release()

	// Re-validate under lock: the target may itself have been merged away
	// between snapshot and lease. Follow the chain once more; if it moved,
	// retry against the new survivor (rare, bounded by chain length).
	fresh, err := resolveSurvivor(ctx, e.Store, target.UUID)
	if err != nil {
		return "", err
	}
	if fresh.UUID != target.UUID {
		lease.Release()
		return e.MergeCanonical(ctx, candidate, fresh.UUID)
	}
	target = fresh

	if target.HasAlias(candidate.Name) {
		e.log.Debug().Str("uuid", target.UUID).Str("name", candidate.Name).Msg("alias already present, merge is a no-op")
		return target.UUID, nil
	}

	// Mutation has started: run to completion even if the caller goes away,
	// so a half-applied merge is never left behind.
	writeCtx := context.WithoutCancel(ctx)

	alias := model.Alias{Text: candidate.Name, Source: candidate.IngestionID}
	if e.Embedder != nil {
		if vec, err := e.Embedder.Embed(writeCtx, candidate.Name); err == nil {
			alias.Embedding = vec
		}
	}

	// The longer surface form becomes the primary name; the shorter one
	// survives as an alias.
	if len(candidate.Name) > len(target.Name) {
		target.Aliases = append(target.Aliases, model.Alias{Text: target.Name})
		target.Name = candidate.Name
	} else {
		target.Aliases = append(target.Aliases, alias)
	}

	target.Attributes = reconcileAttributes(target.Attributes, candidate.Attributes)
	now := time.Now().UTC()
	target.LastMergedAt = &now

	if err := e.withWriteRetry(writeCtx, func() error {
		return e.Store.UpdateCanonical(writeCtx, *target)
	}); err != nil {
		return "", err
	}

	e.log.Info().Str("uuid", target.UUID).Str("candidate", candidate.Name).Msg("merged candidate into canonical entity")
	return target.UUID, nil
}

// AbsorbEntity merges one canonical entity into another, leaving a redirect
// behind and repointing relationship edges. Used when a duplicate canonical
// pair is discovered after the fact (the recovery path that makes erring
// toward "distinct" cheap).
func (e *Executor) AbsorbEntity(ctx context.Context, loserUUID, winnerUUID string) (string, error) {
	if loserUUID == winnerUUID {
		return winnerUUID, nil
	}

	winner, err := resolveSurvivor(ctx, e.Store, winnerUUID)
	if err != nil {
		return "", err
	}
	loser, err := e.Store.GetCanonical(ctx, loserUUID)
	if err != nil {
		return "", err
	}
	if loser.MergedInto != "" {
		// Already absorbed; just make sure the chains agree.
		return winner.UUID, nil
	}

	// Lease both sides in UUID order so concurrent absorbs cannot deadlock.
	first, second := winner.UUID, loser.UUID
	if second < first {
		first, second = second, first
	}
	leaseA, err := e.Store.AcquireLease(ctx, first, e.cfg.LeaseTimeout())
	if err != nil {
		return "", err
	}
	defer leaseA.Release()
	leaseB, err := e.Store.AcquireLease(ctx, second, e.cfg.LeaseTimeout())
	if err != nil {
		return "", err
	}
	defer leaseB.Release()

	writeCtx := context.WithoutCancel(ctx)

	// Union alias sets, including the loser's primary name.
	for _, a := range append([]model.Alias{{Text: loser.Name}}, loser.Aliases...) {
		if !winner.HasAlias(a.Text) {
			winner.Aliases = append(winner.Aliases, a)
		}
	}
	winner.Attributes = reconcileAttributes(winner.Attributes, loser.Attributes)
	now := time.Now().UTC()
	winner.LastMergedAt = &now

	err = e.withWriteRetry(writeCtx, func() error {
		if err := e.Store.UpdateCanonical(writeCtx, *winner); err != nil {
			return err
		}
		if err := e.Store.MarkMergedInto(writeCtx, loser.UUID, winner.UUID); err != nil {
			return err
		}
		return e.Store.RepointRelationships(writeCtx, loser.UUID, winner.UUID)
	})
	if err != nil {
		return "", err
	}

	e.log.Info().Str("loser", loser.UUID).Str("winner", winner.UUID).Msg("absorbed canonical entity")
	return winner.UUID, nil
}

// withWriteRetry retries store writes with bounded exponential backoff.
// Exhaustion dead-letters the operation for operator attention.
func (e *Executor) withWriteRetry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.cfg.WriteRetryBackoff()

	retries := e.cfg.WriteRetryCount
	if retries < 0 {
		retries = 0
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(retries)), ctx))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeadLettered, err)
	}
	return nil
}
