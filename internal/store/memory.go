package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agenthands/nexus/internal/core/model"
	"github.com/google/uuid"
)

// MemoryStore is the in-memory GraphStore used by tests and by deployments
// that have no graph server. Reads return copies, so scoring never observes
// a half-applied merge.
type MemoryStore struct {
	mu       sync.RWMutex
	entities map[string]model.CanonicalEntity
	rels     map[string]model.Relationship
	leases   *leaseManager

	// FailWrites makes every write fail; tests use it to exercise the
	// dead-letter path.
	FailWrites bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entities: make(map[string]model.CanonicalEntity),
		rels:     make(map[string]model.Relationship),
		leases:   newLeaseManager(),
	}
}

func (s *MemoryStore) FindByBlockingKey(ctx context.Context, entityType, key string) ([]model.CanonicalEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.CanonicalEntity
	for _, e := range s.entities {
		if e.Type == entityType && BlockingKey(e.Name) == key && e.MergedInto == "" {
			out = append(out, copyEntity(e))
		}
	}
	return out, nil
}

func (s *MemoryStore) GetCanonical(ctx context.Context, id string) (*model.CanonicalEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	c := copyEntity(e)
	return &c, nil
}

func (s *MemoryStore) CreateCanonical(ctx context.Context, entity model.CanonicalEntity) (string, error) {
	if s.FailWrites {
		return "", fmt.Errorf("%w: store unavailable", ErrGraphWrite)
	}
	if entity.UUID == "" {
		entity.UUID = uuid.New().String()
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[entity.UUID] = copyEntity(entity)
	return entity.UUID, nil
}

func (s *MemoryStore) UpdateCanonical(ctx context.Context, entity model.CanonicalEntity) error {
	if s.FailWrites {
		return fmt.Errorf("%w: store unavailable", ErrGraphWrite)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[entity.UUID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, entity.UUID)
	}
	s.entities[entity.UUID] = copyEntity(entity)
	return nil
}

func (s *MemoryStore) MarkMergedInto(ctx context.Context, loserUUID, winnerUUID string) error {
	if s.FailWrites {
		return fmt.Errorf("%w: store unavailable", ErrGraphWrite)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	loser, ok := s.entities[loserUUID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, loserUUID)
	}
	if _, ok := s.entities[winnerUUID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, winnerUUID)
	}
	loser.MergedInto = winnerUUID
	s.entities[loserUUID] = loser
	return nil
}

func (s *MemoryStore) RepointRelationships(ctx context.Context, oldUUID, newUUID string) error {
	if s.FailWrites {
		return fmt.Errorf("%w: store unavailable", ErrGraphWrite)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.rels {
		if r.SubjectUUID == oldUUID && r.ObjectUUID != newUUID {
			r.SubjectUUID = newUUID
		}
		if r.ObjectUUID == oldUUID && r.SubjectUUID != newUUID {
			r.ObjectUUID = newUUID
		}
		s.rels[id] = r
	}
	return nil
}

func (s *MemoryStore) CreateRelationship(ctx context.Context, rel model.Relationship) error {
	if s.FailWrites {
		return fmt.Errorf("%w: store unavailable", ErrGraphWrite)
	}
	if rel.UUID == "" {
		rel.UUID = uuid.New().String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[rel.SubjectUUID]; !ok {
		return fmt.Errorf("%w: subject %s", ErrNotFound, rel.SubjectUUID)
	}
	if _, ok := s.entities[rel.ObjectUUID]; !ok {
		return fmt.Errorf("%w: object %s", ErrNotFound, rel.ObjectUUID)
	}
	s.rels[rel.UUID] = rel
	return nil
}

func (s *MemoryStore) AcquireLease(ctx context.Context, id string, timeout time.Duration) (*Lease, error) {
	return s.leases.acquire(ctx, id, timeout)
}

// Relationships returns a snapshot of all stored edges. Test helper.
func (s *MemoryStore) Relationships() []model.Relationship {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Relationship, 0, len(s.rels))
	for _, r := range s.rels {
		out = append(out, r)
	}
	return out
}

// LiveCount returns how many entities have not been merged away. Test helper.
func (s *MemoryStore) LiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.entities {
		if e.MergedInto == "" {
			n++
		}
	}
	return n
}

func copyEntity(e model.CanonicalEntity) model.CanonicalEntity {
	c := e
	c.Aliases = append([]model.Alias(nil), e.Aliases...)
	if e.Attributes != nil {
		c.Attributes = make(map[string]interface{}, len(e.Attributes))
		for k, v := range e.Attributes {
			c.Attributes[k] = v
		}
	}
	c.NameEmbedding = append([]float32(nil), e.NameEmbedding...)
	return c
}
