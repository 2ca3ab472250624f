// Package store defines the graph store contract the resolution core
// consumes, with a Neo4j-backed implementation and an in-memory fixture for
// tests. Reads are snapshot-based and may observe a slightly stale view;
// merges re-validate their target under a per-entity lease before committing.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/agenthands/nexus/internal/core/model"
)

var (
	ErrNotFound     = errors.New("canonical entity not found")
	ErrLeaseTimeout = errors.New("lease acquisition timed out")
	ErrGraphWrite   = errors.New("graph write failed")
)

// GraphStore is the injected abstraction over the canonical-entity index.
type GraphStore interface {
	// FindByBlockingKey returns live (non-merged-away) entities in one
	// blocking bucket. This is the cheap pre-filter before scoring.
	FindByBlockingKey(ctx context.Context, entityType, key string) ([]model.CanonicalEntity, error)

	// GetCanonical fetches one entity by UUID, merged-away or not.
	GetCanonical(ctx context.Context, uuid string) (*model.CanonicalEntity, error)

	// CreateCanonical persists a new canonical entity and returns its UUID.
	CreateCanonical(ctx context.Context, entity model.CanonicalEntity) (string, error)

	// UpdateCanonical overwrites an existing entity's mutable fields.
	UpdateCanonical(ctx context.Context, entity model.CanonicalEntity) error

	// MarkMergedInto records that loser was absorbed by winner.
	MarkMergedInto(ctx context.Context, loserUUID, winnerUUID string) error

	// RepointRelationships rewrites RELATED edges touching oldUUID onto
	// newUUID.
	RepointRelationships(ctx context.Context, oldUUID, newUUID string) error

	// CreateRelationship persists a typed edge between two live entities.
	CreateRelationship(ctx context.Context, rel model.Relationship) error

	// AcquireLease takes the per-entity mutual exclusion token. Returns
	// ErrLeaseTimeout when the lease cannot be acquired within timeout.
	AcquireLease(ctx context.Context, uuid string, timeout time.Duration) (*Lease, error)
}

// Lease is an exclusive hold over one canonical UUID.
type Lease struct {
	UUID    string
	release func()
}

func (l *Lease) Release() {
	if l.release != nil {
		l.release()
		l.release = nil
	}
}
