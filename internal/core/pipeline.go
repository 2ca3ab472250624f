package core

import (
	"context"
	"errors"

	"github.com/agenthands/nexus/internal/core/model"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var ErrPipelineClosed = errors.New("pipeline closed")

// Pipeline runs resolutions on a fixed pool of workers fed by a bounded
// queue. A full queue blocks Submit, which is the backpressure mechanism:
// saturation downstream (the adjudicator's concurrency ceiling, a slow
// store) accumulates here instead of spawning unbounded work.
type Pipeline struct {
	resolver *Resolver
	in       chan model.CandidateEntity
	workers  int
	log      zerolog.Logger
}

func NewPipeline(resolver *Resolver, workers, bufferSize int, log zerolog.Logger) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Pipeline{
		resolver: resolver,
		in:       make(chan model.CandidateEntity, bufferSize),
		workers:  workers,
		log:      log.With().Str("component", "pipeline").Logger(),
	}
}

// Run processes candidates until the context is cancelled and Close has
// drained the queue. Individual resolution failures are logged, not fatal:
// the error taxonomy routes everything recoverable to the review queue
// before it reaches here.
func (p *Pipeline) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case candidate, ok := <-p.in:
					if !ok {
						return nil
					}
					res, err := p.resolver.Resolve(ctx, candidate)
					if err != nil {
						p.log.Error().Err(err).Str("candidate", candidate.Name).Str("ingestion_id", candidate.IngestionID).Msg("resolution failed")
						continue
					}
					p.log.Info().
						Str("candidate", candidate.Name).
						Str("status", res.Status).
						Str("uuid", res.CanonicalUUID).
						Msg("candidate resolved")
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		})
	}

	return g.Wait()
}

// Submit enqueues a candidate, blocking when the buffer is full. Returns the
// context's error if the caller gives up first.
func (p *Pipeline) Submit(ctx context.Context, candidate model.CandidateEntity) error {
	if err := candidate.Validate(); err != nil {
		return err
	}
	select {
	case p.in <- candidate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops intake; workers drain what is already queued and exit.
func (p *Pipeline) Close() {
	close(p.in)
}
