package review

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agenthands/nexus/internal/core/model"
)

const itemColumns = "id, candidate_json, contenders_json, verdict_json, status, reason, blocking_key, attached_json, resolved_by, rationale, target_uuid, created_at, updated_at, resolved_at"

func marshalItem(item model.ReviewItem) (candidate, contenders, verdict, attached string, err error) {
	c, err := json.Marshal(item.Candidate)
	if err != nil {
		return "", "", "", "", fmt.Errorf("marshal candidate: %w", err)
	}
	candidate = string(c)

	if len(item.Contenders) > 0 {
		b, err := json.Marshal(item.Contenders)
		if err != nil {
			return "", "", "", "", fmt.Errorf("marshal contenders: %w", err)
		}
		contenders = string(b)
	}
	if item.Verdict != nil {
		b, err := json.Marshal(item.Verdict)
		if err != nil {
			return "", "", "", "", fmt.Errorf("marshal verdict: %w", err)
		}
		verdict = string(b)
	}
	if len(item.Attached) > 0 {
		b, err := json.Marshal(item.Attached)
		if err != nil {
			return "", "", "", "", fmt.Errorf("marshal attached: %w", err)
		}
		attached = string(b)
	}
	return candidate, contenders, verdict, attached, nil
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (*model.ReviewItem, error) {
	var (
		id             int64
		candidateJSON  string
		contendersJSON sql.NullString
		verdictJSON    sql.NullString
		status         string
		reason         string
		blockingKey    string
		attachedJSON   sql.NullString
		resolvedBy     sql.NullString
		rationale      sql.NullString
		targetUUID     sql.NullString
		createdRaw     string
		updatedRaw     string
		resolvedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id, &candidateJSON, &contendersJSON, &verdictJSON, &status, &reason,
		&blockingKey, &attachedJSON, &resolvedBy, &rationale, &targetUUID,
		&createdRaw, &updatedRaw, &resolvedRaw,
	); err != nil {
		return nil, err
	}

	item := &model.ReviewItem{
		ID:          id,
		Status:      model.ReviewStatus(status),
		Reason:      reason,
		BlockingKey: blockingKey,
		ResolvedBy:  resolvedBy.String,
		Rationale:   rationale.String,
		TargetUUID:  targetUUID.String,
	}

	if err := json.Unmarshal([]byte(candidateJSON), &item.Candidate); err != nil {
		return nil, fmt.Errorf("unmarshal candidate for item %d: %w", id, err)
	}
	if contendersJSON.Valid && contendersJSON.String != "" {
		if err := json.Unmarshal([]byte(contendersJSON.String), &item.Contenders); err != nil {
			return nil, fmt.Errorf("unmarshal contenders for item %d: %w", id, err)
		}
	}
	if verdictJSON.Valid && verdictJSON.String != "" {
		item.Verdict = &model.Verdict{}
		if err := json.Unmarshal([]byte(verdictJSON.String), item.Verdict); err != nil {
			return nil, fmt.Errorf("unmarshal verdict for item %d: %w", id, err)
		}
	}
	if attachedJSON.Valid && attachedJSON.String != "" {
		if err := json.Unmarshal([]byte(attachedJSON.String), &item.Attached); err != nil {
			return nil, fmt.Errorf("unmarshal attached for item %d: %w", id, err)
		}
	}

	if t, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		item.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		item.UpdatedAt = t
	}
	if resolvedRaw.Valid && resolvedRaw.String != "" {
		if t, err := time.Parse(time.RFC3339Nano, resolvedRaw.String); err == nil {
			item.ResolvedAt = &t
		}
	}

	return item, nil
}
