package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agenthands/nexus/internal/core/model"
	"github.com/agenthands/nexus/internal/driver"
	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jStore implements GraphStore over a bolt connection. Leases are held
// in-process: a single daemon owns the graph (distributed deployment is out
// of scope), so per-UUID mutual exclusion inside the process is sufficient.
type Neo4jStore struct {
	Driver driver.GraphDriver
	leases *leaseManager
}

func NewNeo4jStore(d driver.GraphDriver) *Neo4jStore {
	return &Neo4jStore{
		Driver: d,
		leases: newLeaseManager(),
	}
}

func (s *Neo4jStore) FindByBlockingKey(ctx context.Context, entityType, key string) ([]model.CanonicalEntity, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.FindByBlockingKeyQuery, map[string]interface{}{
		"type":         entityType,
		"blocking_key": key,
	})
	if err != nil {
		return nil, fmt.Errorf("find by blocking key: %w", err)
	}

	var out []model.CanonicalEntity
	for _, rec := range res.Records {
		e, err := recordToEntity(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Neo4jStore) GetCanonical(ctx context.Context, id string) (*model.CanonicalEntity, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.GetCanonicalQuery, map[string]interface{}{"uuid": id})
	if err != nil {
		return nil, fmt.Errorf("get canonical: %w", err)
	}
	if len(res.Records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	e, err := recordToEntity(res.Records[0])
	if err != nil {
		return nil, err
	}
	if v, ok := res.Records[0].Get("merged_into"); ok && v != nil {
		e.MergedInto, _ = v.(string)
	}
	return &e, nil
}

func (s *Neo4jStore) CreateCanonical(ctx context.Context, entity model.CanonicalEntity) (string, error) {
	if entity.UUID == "" {
		entity.UUID = uuid.New().String()
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now().UTC()
	}
	if err := s.save(ctx, entity); err != nil {
		return "", err
	}
	return entity.UUID, nil
}

func (s *Neo4jStore) UpdateCanonical(ctx context.Context, entity model.CanonicalEntity) error {
	return s.save(ctx, entity)
}

func (s *Neo4jStore) save(ctx context.Context, entity model.CanonicalEntity) error {
	aliasesJSON, err := json.Marshal(entity.Aliases)
	if err != nil {
		return fmt.Errorf("marshal aliases: %w", err)
	}
	attrsJSON, err := json.Marshal(entity.Attributes)
	if err != nil {
		return fmt.Errorf("marshal attributes: %w", err)
	}

	var lastMerged interface{}
	if entity.LastMergedAt != nil {
		lastMerged = entity.LastMergedAt.Format(time.RFC3339Nano)
	}

	params := map[string]interface{}{
		"uuid":           entity.UUID,
		"type":           entity.Type,
		"name":           entity.Name,
		"blocking_key":   BlockingKey(entity.Name),
		"aliases":        string(aliasesJSON),
		"attributes":     string(attrsJSON),
		"name_embedding": embeddingParam(entity.NameEmbedding),
		"created_at":     entity.CreatedAt.Format(time.RFC3339Nano),
		"last_merged_at": lastMerged,
	}

	if _, err := s.Driver.ExecuteQuery(ctx, driver.SaveCanonicalQuery, params); err != nil {
		return fmt.Errorf("%w: save canonical %s: %v", ErrGraphWrite, entity.UUID, err)
	}
	return nil
}

func (s *Neo4jStore) MarkMergedInto(ctx context.Context, loserUUID, winnerUUID string) error {
	_, err := s.Driver.ExecuteQuery(ctx, driver.MarkMergedIntoQuery, map[string]interface{}{
		"loser_uuid":  loserUUID,
		"winner_uuid": winnerUUID,
		"merged_at":   time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("%w: mark merged %s -> %s: %v", ErrGraphWrite, loserUUID, winnerUUID, err)
	}
	return nil
}

func (s *Neo4jStore) RepointRelationships(ctx context.Context, oldUUID, newUUID string) error {
	_, err := s.Driver.ExecuteQuery(ctx, driver.RepointRelationshipsQuery, map[string]interface{}{
		"old_uuid": oldUUID,
		"new_uuid": newUUID,
	})
	if err != nil {
		return fmt.Errorf("%w: repoint relationships %s -> %s: %v", ErrGraphWrite, oldUUID, newUUID, err)
	}
	return nil
}

func (s *Neo4jStore) CreateRelationship(ctx context.Context, rel model.Relationship) error {
	if rel.UUID == "" {
		rel.UUID = uuid.New().String()
	}
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now().UTC()
	}

	_, err := s.Driver.ExecuteQuery(ctx, driver.SaveRelationshipQuery, map[string]interface{}{
		"uuid":         rel.UUID,
		"subject_uuid": rel.SubjectUUID,
		"object_uuid":  rel.ObjectUUID,
		"predicate":    rel.Predicate,
		"confidence":   rel.Confidence,
		"provenance":   rel.Provenance,
		"created_at":   rel.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("%w: save relationship %s: %v", ErrGraphWrite, rel.UUID, err)
	}
	return nil
}

func (s *Neo4jStore) AcquireLease(ctx context.Context, id string, timeout time.Duration) (*Lease, error) {
	return s.leases.acquire(ctx, id, timeout)
}

func recordToEntity(rec *neo4j.Record) (model.CanonicalEntity, error) {
	var e model.CanonicalEntity

	e.UUID = stringField(rec, "uuid")
	e.Type = stringField(rec, "type")
	e.Name = stringField(rec, "name")

	if raw := stringField(rec, "aliases"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &e.Aliases); err != nil {
			return e, fmt.Errorf("unmarshal aliases for %s: %w", e.UUID, err)
		}
	}
	if raw := stringField(rec, "attributes"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &e.Attributes); err != nil {
			return e, fmt.Errorf("unmarshal attributes for %s: %w", e.UUID, err)
		}
	}

	if v, ok := rec.Get("name_embedding"); ok && v != nil {
		if vals, ok := v.([]interface{}); ok {
			e.NameEmbedding = make([]float32, 0, len(vals))
			for _, f := range vals {
				if fv, ok := f.(float64); ok {
					e.NameEmbedding = append(e.NameEmbedding, float32(fv))
				}
			}
		}
	}

	if raw := stringField(rec, "created_at"); raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			e.CreatedAt = t
		}
	}
	if raw := stringField(rec, "last_merged_at"); raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			e.LastMergedAt = &t
		}
	}

	return e, nil
}

func stringField(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func embeddingParam(vec []float32) interface{} {
	if len(vec) == 0 {
		return nil
	}
	out := make([]float64, len(vec))
	for i, f := range vec {
		out[i] = float64(f)
	}
	return out
}
