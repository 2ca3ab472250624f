package model

import "time"

// ReviewStatus is the review item state machine. There is no automatic
// transition out of Pending; only an external actor resolves an item.
type ReviewStatus string

const (
	ReviewPending          ReviewStatus = "pending"
	ReviewResolvedMerge    ReviewStatus = "resolved_merge"
	ReviewResolvedDistinct ReviewStatus = "resolved_distinct"
)

// Reasons a candidate lands in the review queue.
const (
	ReasonAmbiguous          = "ambiguous"
	ReasonTiedCandidates     = "tied_candidates"
	ReasonAdjudicationFailed = "adjudication_failed"
	ReasonLowConfidence      = "low_confidence"
	ReasonConflictingMatches = "conflicting_matches"
	ReasonMergeLockTimeout   = "merge_lock_timeout"
)

// ReviewItem is a durable record of an undecided candidate awaiting an
// external verdict.
type ReviewItem struct {
	ID          int64             `json:"id"`
	Candidate   CandidateEntity   `json:"candidate"`
	Contenders  []SimilarityScore `json:"contenders,omitempty"`
	Verdict     *Verdict          `json:"verdict,omitempty"`
	Status      ReviewStatus      `json:"status"`
	Reason      string            `json:"reason"`
	BlockingKey string            `json:"blocking_key"`
	Attached    []CandidateEntity `json:"attached,omitempty"` // near-identical candidates folded in
	ResolvedBy  string            `json:"resolved_by,omitempty"`
	Rationale   string            `json:"rationale,omitempty"`
	TargetUUID  string            `json:"target_uuid,omitempty"` // set on resolved_merge
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	ResolvedAt  *time.Time        `json:"resolved_at,omitempty"`
}
