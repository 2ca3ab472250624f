package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/nexus/internal/core/model"
	"github.com/agenthands/nexus/internal/review"
	"github.com/agenthands/nexus/internal/store"
)

// ResolveCandidate runs a single candidate through the pipeline synchronously
// and reports its disposition.
func (s *Server) ResolveCandidate(c *gin.Context) {
	var candidate model.CandidateEntity
	if err := c.ShouldBindJSON(&candidate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	res, err := s.Resolver.Resolve(c.Request.Context(), candidate)
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.log.Error().Err(err).Str("candidate", candidate.Name).Msg("resolution failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve candidate"})
		return
	}

	c.JSON(http.StatusOK, res)
}

// SubmitCandidate enqueues a candidate for the background workers. Blocks
// while the queue is full so callers feel downstream saturation.
func (s *Server) SubmitCandidate(c *gin.Context) {
	var candidate model.CandidateEntity
	if err := c.ShouldBindJSON(&candidate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := s.Pipeline.Submit(c.Request.Context(), candidate); err != nil {
		if errors.Is(err, model.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Queue unavailable"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

type InferRequest struct {
	SourceText  string   `json:"source_text"`
	Provenance  string   `json:"provenance"`
	EntityUUIDs []string `json:"entity_uuids"`
}

func (s *Server) InferRelationships(c *gin.Context) {
	var req InferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.SourceText == "" || len(req.EntityUUIDs) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source_text and at least two entity_uuids are required"})
		return
	}

	created, err := s.Resolver.InferRelationships(c.Request.Context(), req.SourceText, req.Provenance, req.EntityUUIDs)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown entity uuid"})
			return
		}
		s.log.Error().Err(err).Msg("relationship inference failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to infer relationships"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"relationships": created})
}

func (s *Server) ListPendingReviews(c *gin.Context) {
	items, err := s.Review.ListPending(c.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list pending reviews")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list pending items"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

type ResolveReviewRequest struct {
	Outcome    string `json:"outcome"` // "merge" or "distinct"
	TargetUUID string `json:"target_uuid"`
	ActorID    string `json:"actor_id"`
	Rationale  string `json:"rationale"`
}

func (s *Server) ResolveReview(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item id"})
		return
	}

	var req ResolveReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var status model.ReviewStatus
	switch req.Outcome {
	case "merge":
		status = model.ReviewResolvedMerge
	case "distinct":
		status = model.ReviewResolvedDistinct
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "outcome must be 'merge' or 'distinct'"})
		return
	}

	res, err := s.Resolver.ApplyReviewResolution(c.Request.Context(), id, status, req.TargetUUID, req.ActorID, req.Rationale)
	if err != nil {
		switch {
		case errors.Is(err, review.ErrItemNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Review item not found"})
		case errors.Is(err, review.ErrAlreadyResolved):
			c.JSON(http.StatusConflict, gin.H{"error": "Review item already resolved"})
		case errors.Is(err, review.ErrBadOutcome):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			s.log.Error().Err(err).Int64("item_id", id).Msg("failed to apply review resolution")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply resolution"})
		}
		return
	}

	c.JSON(http.StatusOK, res)
}

func (s *Server) GetEntity(c *gin.Context) {
	entity, err := s.Store.GetCanonical(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Entity not found"})
			return
		}
		s.log.Error().Err(err).Msg("entity lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch entity"})
		return
	}

	c.JSON(http.StatusOK, entity)
}

type AbsorbRequest struct {
	LoserUUID  string `json:"loser_uuid"`
	WinnerUUID string `json:"winner_uuid"`
}

// AbsorbEntity folds one canonical entity into another. Used when a review
// actor discovers two existing records describe the same entity.
func (s *Server) AbsorbEntity(c *gin.Context) {
	var req AbsorbRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.LoserUUID == "" || req.WinnerUUID == "" || req.LoserUUID == req.WinnerUUID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "loser_uuid and winner_uuid must be distinct non-empty uuids"})
		return
	}

	survivor, err := s.Resolver.Executor.AbsorbEntity(c.Request.Context(), req.LoserUUID, req.WinnerUUID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Entity not found"})
		case errors.Is(err, store.ErrLeaseTimeout):
			c.JSON(http.StatusConflict, gin.H{"error": "Entities are locked by a concurrent merge"})
		default:
			s.log.Error().Err(err).Msg("absorb failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to absorb entity"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"survivor_uuid": survivor})
}
