package model

// Outcome is the three-way result of the deterministic decision policy.
type Outcome string

const (
	OutcomeAutoMerge    Outcome = "auto_merge"
	OutcomeAutoDistinct Outcome = "auto_distinct"
	OutcomeAmbiguous    Outcome = "ambiguous"
)

// ResolutionDecision is immutable once produced. TargetUUID is set only for
// OutcomeAutoMerge; Contenders carries the top-k scores forward only for
// OutcomeAmbiguous.
type ResolutionDecision struct {
	Outcome    Outcome           `json:"outcome"`
	TargetUUID string            `json:"target_uuid,omitempty"`
	Contenders []SimilarityScore `json:"contenders,omitempty"`
	Reason     string            `json:"reason,omitempty"`
}
