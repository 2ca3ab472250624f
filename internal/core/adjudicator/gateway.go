// Package adjudicator wraps the external judge. Its one hard rule: an
// unreliable response never mutates the graph. Anything that does not parse
// cleanly into a confident verdict fails toward the review queue.
package adjudicator

import (
	"context"
	"fmt"

	"github.com/agenthands/nexus/internal/config"
	"github.com/agenthands/nexus/internal/core/common"
	"github.com/agenthands/nexus/internal/core/model"
	"github.com/agenthands/nexus/internal/llm"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

type Gateway struct {
	LLM llm.LLMClient
	cfg config.AdjudicatorConfig
	sem *semaphore.Weighted
	log zerolog.Logger
}

func NewGateway(client llm.LLMClient, cfg config.AdjudicatorConfig, log zerolog.Logger) *Gateway {
	inFlight := cfg.MaxInFlight
	if inFlight <= 0 {
		inFlight = 1
	}
	return &Gateway{
		LLM: client,
		cfg: cfg,
		sem: semaphore.NewWeighted(inFlight),
		log: log.With().Str("component", "adjudicator").Logger(),
	}
}

// Adjudicate asks the judge whether the candidate matches any contender and
// interprets the response under the configured confidence floors. Call
// errors, timeouts, and malformed responses are retried a bounded number of
// times and then reported as an undecided verdict with reason
// "adjudication_failed" — never as a merge. The only returned error is
// context cancellation.
func (g *Gateway) Adjudicate(ctx context.Context, candidate model.CandidateEntity, contenders []model.SimilarityScore) (model.Verdict, error) {
	if len(contenders) == 0 {
		return model.Verdict{Kind: model.VerdictUndecided, Reason: model.ReasonAdjudicationFailed}, nil
	}

	// Concurrency ceiling on outstanding external calls. Upstream stages
	// keep running; ambiguous items queue here.
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return model.Verdict{}, err
	}
	defer g.sem.Release(1)

	prompt := buildPrompt(candidate, contenders)

	var result model.AdjudicationResult
	attempt := 0
	op := func() error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout())
		defer cancel()

		response, err := g.LLM.Generate(callCtx, prompt)
		if err != nil {
			g.log.Warn().Err(err).Int("attempt", attempt).Msg("judge call failed")
			return err
		}

		parsed, err := common.ParseJSON[model.AdjudicationResult](response)
		if err != nil {
			g.log.Warn().Err(err).Int("attempt", attempt).Msg("judge response malformed")
			return err
		}
		if err := validateResult(parsed, contenders); err != nil {
			g.log.Warn().Err(err).Int("attempt", attempt).Msg("judge response out of contract")
			return err
		}
		result = parsed
		return nil
	}

	retries := g.cfg.RetryCount
	if retries < 0 {
		retries = 0
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(retries)), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		if ctx.Err() != nil {
			return model.Verdict{}, ctx.Err()
		}
		return model.Verdict{Kind: model.VerdictUndecided, Reason: model.ReasonAdjudicationFailed}, nil
	}

	return g.interpret(result), nil
}

// interpret applies the confidence floors to a well-formed result.
func (g *Gateway) interpret(result model.AdjudicationResult) model.Verdict {
	var matched []model.AdjudicationResponse
	allDistinct := true
	minNoMatchConfidence := 1.0

	for _, v := range result.Verdicts {
		if v.Match {
			allDistinct = false
			if v.Confidence >= g.cfg.MergeFloor {
				matched = append(matched, v)
			}
		} else if v.Confidence < minNoMatchConfidence {
			minNoMatchConfidence = v.Confidence
		}
	}

	switch {
	case len(matched) == 1:
		return model.Verdict{
			Kind:       model.VerdictMatched,
			TargetUUID: matched[0].CanonicalUUID,
			Confidence: matched[0].Confidence,
			Reason:     matched[0].Reason,
		}
	case len(matched) > 1:
		// Two high-confidence matches cannot both be right. Never guess.
		return model.Verdict{Kind: model.VerdictUndecided, Reason: model.ReasonConflictingMatches}
	case allDistinct && minNoMatchConfidence >= g.cfg.DistinctFloor:
		return model.Verdict{
			Kind:       model.VerdictUnmatched,
			Confidence: minNoMatchConfidence,
		}
	default:
		return model.Verdict{Kind: model.VerdictUndecided, Reason: model.ReasonLowConfidence}
	}
}

func validateResult(result model.AdjudicationResult, contenders []model.SimilarityScore) error {
	if len(result.Verdicts) == 0 {
		return fmt.Errorf("empty verdict list")
	}

	known := make(map[string]bool, len(contenders))
	for _, c := range contenders {
		known[c.Canonical.UUID] = true
	}

	for _, v := range result.Verdicts {
		if !known[v.CanonicalUUID] {
			return fmt.Errorf("verdict references unknown canonical %q", v.CanonicalUUID)
		}
		if v.Confidence < 0 || v.Confidence > 1 {
			return fmt.Errorf("confidence %v out of [0,1]", v.Confidence)
		}
	}
	return nil
}
