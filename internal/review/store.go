// Package review is the durable holding area for candidates the automatic
// pipeline could not decide. Items leave Pending only through an external
// actor's resolution; the pipeline itself never transitions them.
package review

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/agenthands/nexus/internal/core/model"
	"github.com/agenthands/nexus/internal/core/scorer"
	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

var (
	ErrItemNotFound    = errors.New("review item not found")
	ErrAlreadyResolved = errors.New("review item already resolved")
	ErrBadOutcome      = errors.New("invalid review outcome")
)

type Store struct {
	db                *sql.DB
	reattachThreshold float64
	log               zerolog.Logger
}

// Open creates or opens the review database at path. reattachThreshold is
// the minimum name similarity for folding a near-identical pending candidate
// into an existing item instead of creating a duplicate entry.
func Open(ctx context.Context, path string, reattachThreshold float64, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open review db: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite: single writer

	s := &Store{
		db:                db,
		reattachThreshold: reattachThreshold,
		log:               log.With().Str("component", "review").Logger(),
	}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Enqueue files a candidate for external review. If a pending item in the
// same blocking bucket fuzzy-matches the candidate's name above the
// re-attach threshold, the candidate attaches to that item instead of
// flooding the queue with a near-duplicate.
func (s *Store) Enqueue(ctx context.Context, item model.ReviewItem) (*model.ReviewItem, error) {
	if existing, err := s.findReattachTarget(ctx, item); err != nil {
		return nil, err
	} else if existing != nil {
		return s.attach(ctx, existing, item.Candidate)
	}

	now := time.Now().UTC()
	item.Status = model.ReviewPending
	item.CreatedAt = now
	item.UpdatedAt = now

	candidateJSON, contendersJSON, verdictJSON, attachedJSON, err := marshalItem(item)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO review_items (
			candidate_json, contenders_json, verdict_json, status, reason,
			blocking_key, attached_json, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		candidateJSON, contendersJSON, verdictJSON, string(item.Status), item.Reason,
		item.BlockingKey, attachedJSON,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert review item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	s.log.Info().Int64("id", id).Str("reason", item.Reason).Str("candidate", item.Candidate.Name).Msg("queued for review")
	return s.GetByID(ctx, id)
}

func (s *Store) findReattachTarget(ctx context.Context, item model.ReviewItem) (*model.ReviewItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM review_items WHERE status = ? AND blocking_key = ?`,
		string(model.ReviewPending), item.BlockingKey,
	)
	if err != nil {
		return nil, fmt.Errorf("query re-attach candidates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		existing, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		if scorer.StringSimilarity(item.Candidate.Name, existing.Candidate.Name) >= s.reattachThreshold {
			return existing, nil
		}
	}
	return nil, rows.Err()
}

func (s *Store) attach(ctx context.Context, target *model.ReviewItem, candidate model.CandidateEntity) (*model.ReviewItem, error) {
	target.Attached = append(target.Attached, candidate)
	target.UpdatedAt = time.Now().UTC()

	attachedJSON, err := json.Marshal(target.Attached)
	if err != nil {
		return nil, fmt.Errorf("marshal attached: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE review_items SET attached_json = ?, updated_at = ? WHERE id = ?`,
		string(attachedJSON), target.UpdatedAt.Format(time.RFC3339Nano), target.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("attach candidate: %w", err)
	}

	s.log.Info().Int64("id", target.ID).Str("candidate", candidate.Name).Msg("attached near-duplicate candidate to pending item")
	return target, nil
}

// ListPending returns all pending items, oldest first.
func (s *Store) ListPending(ctx context.Context) ([]model.ReviewItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM review_items WHERE status = ? ORDER BY id`,
		string(model.ReviewPending),
	)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	var out []model.ReviewItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

// PendingCount reports the queue depth.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM review_items WHERE status = ?`, string(model.ReviewPending),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("pending count: %w", err)
	}
	return n, nil
}

// GetByID fetches one item.
func (s *Store) GetByID(ctx context.Context, id int64) (*model.ReviewItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM review_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrItemNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Resolve transitions a pending item to a terminal status, recording actor,
// timestamp, and rationale for audit. targetUUID is required for merge
// resolutions. The resolved item is returned so the caller can hand it to
// the merge executor.
func (s *Store) Resolve(ctx context.Context, id int64, status model.ReviewStatus, targetUUID, actorID, rationale string) (*model.ReviewItem, error) {
	if status != model.ReviewResolvedMerge && status != model.ReviewResolvedDistinct {
		return nil, fmt.Errorf("%w: %s", ErrBadOutcome, status)
	}
	if status == model.ReviewResolvedMerge && targetUUID == "" {
		return nil, fmt.Errorf("%w: merge resolution requires a target", ErrBadOutcome)
	}

	item, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status != model.ReviewPending {
		return nil, fmt.Errorf("%w: %d is %s", ErrAlreadyResolved, id, item.Status)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE review_items
		 SET status = ?, target_uuid = ?, resolved_by = ?, rationale = ?, resolved_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(status), targetUUID, actorID, rationale,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
		id, string(model.ReviewPending),
	)
	if err != nil {
		return nil, fmt.Errorf("resolve review item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: %d", ErrAlreadyResolved, id)
	}

	s.log.Info().Int64("id", id).Str("status", string(status)).Str("actor", actorID).Msg("review item resolved")
	return s.GetByID(ctx, id)
}
