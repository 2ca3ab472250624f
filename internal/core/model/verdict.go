package model

// AdjudicationResponse is the strict wire schema expected from the external
// judge, one per contending canonical entity.
type AdjudicationResponse struct {
	CanonicalUUID string  `json:"canonical_uuid"`
	Match         bool    `json:"match"`
	Confidence    float64 `json:"confidence"`
	Reason        string  `json:"reason"`
}

// AdjudicationResult wraps the per-contender responses.
type AdjudicationResult struct {
	Verdicts []AdjudicationResponse `json:"verdicts"`
}

// VerdictKind is the tagged interpretation of a judge call. Raw judge output
// is never branched on directly; it is parsed into one of these first.
type VerdictKind string

const (
	VerdictMatched   VerdictKind = "matched"
	VerdictUnmatched VerdictKind = "unmatched"
	VerdictUndecided VerdictKind = "undecided"
)

// Verdict is the gateway's interpretation of the judge's responses after the
// confidence floors are applied.
type Verdict struct {
	Kind       VerdictKind `json:"kind"`
	TargetUUID string      `json:"target_uuid,omitempty"`
	Confidence float64     `json:"confidence,omitempty"`
	Reason     string      `json:"reason,omitempty"`
}
