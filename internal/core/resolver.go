// Package core wires the resolution stages together: scoring, the decision
// policy, adjudication, merging, review, and relationship inference.
package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/agenthands/nexus/internal/config"
	"github.com/agenthands/nexus/internal/core/adjudicator"
	"github.com/agenthands/nexus/internal/core/decision"
	"github.com/agenthands/nexus/internal/core/merge"
	"github.com/agenthands/nexus/internal/core/model"
	"github.com/agenthands/nexus/internal/core/relate"
	"github.com/agenthands/nexus/internal/core/scorer"
	"github.com/agenthands/nexus/internal/llm"
	"github.com/agenthands/nexus/internal/metrics"
	"github.com/agenthands/nexus/internal/review"
	"github.com/agenthands/nexus/internal/store"
	"github.com/rs/zerolog"
)

// Disposition of one completed resolution attempt.
const (
	StatusMerged  = "merged"
	StatusCreated = "created"
	StatusQueued  = "queued"
)

// Resolution summarizes how a candidate was settled.
type Resolution struct {
	Status        string `json:"status"`
	CanonicalUUID string `json:"canonical_uuid,omitempty"`
	ReviewItemID  int64  `json:"review_item_id,omitempty"`
	Degraded      bool   `json:"degraded,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

type Resolver struct {
	Store       store.GraphStore
	Scorer      *scorer.Scorer
	Adjudicator *adjudicator.Gateway
	Executor    *merge.Executor
	Review      *review.Store
	Inferencer  *relate.Inferencer
	Embedder    llm.EmbedderClient
	Thresholds  decision.Thresholds

	log zerolog.Logger
}

func NewResolver(cfg *config.Config, s store.GraphStore, judge llm.LLMClient, embedder llm.EmbedderClient, reviewStore *review.Store, log zerolog.Logger) *Resolver {
	thresholds := decision.Thresholds{
		Upper:      cfg.Resolution.UpperThreshold,
		Lower:      cfg.Resolution.LowerThreshold,
		TieEpsilon: cfg.Resolution.TieEpsilon,
		TopK:       cfg.Resolution.TopK,
	}

	return &Resolver{
		Store:       s,
		Scorer:      scorer.New(cfg.Resolution.Weights),
		Adjudicator: adjudicator.NewGateway(judge, cfg.Adjudicator, log),
		Executor:    merge.NewExecutor(s, embedder, cfg.Merge, log),
		Review:      reviewStore,
		Inferencer:  relate.NewInferencer(judge, s, thresholds, log),
		Embedder:    embedder,
		Thresholds:  thresholds,
		log:         log.With().Str("component", "resolver").Logger(),
	}
}

// Resolve runs one candidate through the full pipeline. Validation failures
// are reported to the caller; every other failure class routes to the review
// queue or, for exhausted graph writes, dead-letters the candidate.
func (r *Resolver) Resolve(ctx context.Context, candidate model.CandidateEntity) (*Resolution, error) {
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	// Embedding is supplied by the extraction stage when available;
	// otherwise ask the embedder. Either being absent degrades scoring,
	// it never blocks resolution.
	if len(candidate.NameEmbedding) == 0 && r.Embedder != nil {
		vec, err := r.Embedder.Embed(ctx, candidate.Name)
		if err != nil {
			r.log.Warn().Err(err).Str("candidate", candidate.Name).Msg("embedding unavailable, scoring degraded")
		} else {
			candidate.NameEmbedding = vec
		}
	}

	blockingKey := store.BlockingKey(candidate.Name)
	blocking, err := r.Store.FindByBlockingKey(ctx, candidate.Type, blockingKey)
	if err != nil {
		return nil, fmt.Errorf("blocking lookup failed: %w", err)
	}

	scores := r.Scorer.Score(candidate, blocking)
	degraded := len(scores) > 0 && scores[0].Degraded
	if degraded {
		metrics.ScoringDegradedTotal.Inc()
	}

	dec := decision.Decide(scores, r.Thresholds)

	res, err := r.apply(ctx, candidate, dec, blockingKey)
	if err != nil {
		return nil, err
	}
	res.Degraded = degraded
	metrics.ResolutionsTotal.WithLabelValues(res.Status).Inc()
	return res, nil
}

func (r *Resolver) apply(ctx context.Context, candidate model.CandidateEntity, dec model.ResolutionDecision, blockingKey string) (*Resolution, error) {
	switch dec.Outcome {
	case model.OutcomeAutoMerge:
		return r.applyMerge(ctx, candidate, dec.TargetUUID, blockingKey, nil)

	case model.OutcomeAutoDistinct:
		return r.applyDistinct(ctx, candidate)

	case model.OutcomeAmbiguous:
		return r.adjudicate(ctx, candidate, dec, blockingKey)

	default:
		return nil, fmt.Errorf("unknown decision outcome %q", dec.Outcome)
	}
}

func (r *Resolver) adjudicate(ctx context.Context, candidate model.CandidateEntity, dec model.ResolutionDecision, blockingKey string) (*Resolution, error) {
	verdict, err := r.Adjudicator.Adjudicate(ctx, candidate, dec.Contenders)
	if err != nil {
		return nil, err
	}
	metrics.AdjudicationsTotal.WithLabelValues(string(verdict.Kind)).Inc()

	switch verdict.Kind {
	case model.VerdictMatched:
		return r.applyMerge(ctx, candidate, verdict.TargetUUID, blockingKey, &verdict)
	case model.VerdictUnmatched:
		return r.applyDistinct(ctx, candidate)
	default:
		return r.queueForReview(ctx, model.ReviewItem{
			Candidate:   candidate,
			Contenders:  dec.Contenders,
			Verdict:     &verdict,
			Reason:      verdict.Reason,
			BlockingKey: blockingKey,
		})
	}
}

func (r *Resolver) applyMerge(ctx context.Context, candidate model.CandidateEntity, targetUUID, blockingKey string, verdict *model.Verdict) (*Resolution, error) {
	id, err := r.Executor.MergeCanonical(ctx, candidate, targetUUID)
	if errors.Is(err, store.ErrLeaseTimeout) {
		return r.queueForReview(ctx, model.ReviewItem{
			Candidate:   candidate,
			Verdict:     verdict,
			Reason:      model.ReasonMergeLockTimeout,
			BlockingKey: blockingKey,
		})
	}
	if err != nil {
		if errors.Is(err, merge.ErrDeadLettered) {
			metrics.DeadLettersTotal.Inc()
		}
		return nil, err
	}
	return &Resolution{Status: StatusMerged, CanonicalUUID: id}, nil
}

func (r *Resolver) applyDistinct(ctx context.Context, candidate model.CandidateEntity) (*Resolution, error) {
	id, err := r.Executor.CreateDistinct(ctx, candidate)
	if err != nil {
		if errors.Is(err, merge.ErrDeadLettered) {
			metrics.DeadLettersTotal.Inc()
		}
		return nil, err
	}
	return &Resolution{Status: StatusCreated, CanonicalUUID: id}, nil
}

func (r *Resolver) queueForReview(ctx context.Context, item model.ReviewItem) (*Resolution, error) {
	queued, err := r.Review.Enqueue(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("failed to queue for review: %w", err)
	}
	r.refreshReviewGauge(ctx)
	return &Resolution{Status: StatusQueued, ReviewItemID: queued.ID, Reason: queued.Reason}, nil
}

func (r *Resolver) refreshReviewGauge(ctx context.Context) {
	if n, err := r.Review.PendingCount(ctx); err == nil {
		metrics.ReviewPending.Set(float64(n))
	}
}
