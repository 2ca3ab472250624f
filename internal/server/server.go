// Package server exposes the resolution core over HTTP: candidate intake,
// the review queue's external surface, entity lookup, and metrics.
package server

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/agenthands/nexus/internal/config"
	"github.com/agenthands/nexus/internal/core"
	"github.com/agenthands/nexus/internal/driver"
	"github.com/agenthands/nexus/internal/llm"
	"github.com/agenthands/nexus/internal/review"
	"github.com/agenthands/nexus/internal/store"
)

type Server struct {
	Resolver *core.Resolver
	Pipeline *core.Pipeline
	Review   *review.Store
	Store    store.GraphStore

	cfg *config.Config
	log zerolog.Logger
}

// New wires the full stack: graph driver, judge and embedder clients, review
// database, resolver, and worker pipeline.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Server, error) {
	d, err := driver.NewNeo4jDriver(cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to graph store: %w", err)
	}
	if err := d.BuildIndices(ctx); err != nil {
		return nil, fmt.Errorf("failed to build indices: %w", err)
	}
	graphStore := store.NewNeo4jStore(d)

	judge, embedder, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize llm client: %w", err)
	}

	reviewStore, err := review.Open(ctx, cfg.Review.DBPath, cfg.Review.ReattachThreshold, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open review store: %w", err)
	}

	resolver := core.NewResolver(cfg, graphStore, judge, embedder, reviewStore, log)
	pipeline := core.NewPipeline(resolver, cfg.Pipeline.Workers, cfg.Pipeline.BufferSize, log)

	return &Server{
		Resolver: resolver,
		Pipeline: pipeline,
		Review:   reviewStore,
		Store:    graphStore,
		cfg:      cfg,
		log:      log.With().Str("component", "server").Logger(),
	}, nil
}

// NewWithResolver builds a server around pre-wired components. Used by
// tests.
func NewWithResolver(cfg *config.Config, resolver *core.Resolver, pipeline *core.Pipeline, reviewStore *review.Store, graphStore store.GraphStore, log zerolog.Logger) *Server {
	return &Server{
		Resolver: resolver,
		Pipeline: pipeline,
		Review:   reviewStore,
		Store:    graphStore,
		cfg:      config.Default(),
		log:      log,
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.POST("/candidates", s.ResolveCandidate)
	r.POST("/candidates/async", s.SubmitCandidate)
	r.POST("/relationships/infer", s.InferRelationships)

	r.GET("/review/pending", s.ListPendingReviews)
	r.POST("/review/:id/resolve", s.ResolveReview)

	r.GET("/entities/:uuid", s.GetEntity)
	r.POST("/entities/absorb", s.AbsorbEntity)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
