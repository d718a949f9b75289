package ledger

import (
	"fmt"
	"strings"
	"time"
)

// ClaimStatus is the lifecycle state of a resource claim.
type ClaimStatus string

const (
	ClaimActive     ClaimStatus = "active"
	ClaimReleased   ClaimStatus = "released"
	ClaimConflicted ClaimStatus = "conflicted"
)

// ConflictKind distinguishes the two detectable conflict categories.
type ConflictKind string

const (
	ConflictOverlap           ConflictKind = "OVERLAP"
	ConflictBoundaryViolation ConflictKind = "BOUNDARY_VIOLATION"
)

// Resolution is the orchestrator's decision on a conflict. The value is
// supplied by the orchestrator (human or automated); arbitr never derives one.
type Resolution string

const (
	ResolutionPending    Resolution = "PENDING"
	ResolutionAgentAWins Resolution = "AGENT_A_WINS"
	ResolutionAgentBWins Resolution = "AGENT_B_WINS"
	ResolutionEscalated  Resolution = "ESCALATED"
	ResolutionAborted    Resolution = "ABORTED"
)

// ParseResolution parses a resolution string (case-insensitive).
// PENDING is not accepted: a conflict cannot be resolved back to pending.
func ParseResolution(s string) (Resolution, error) {
	switch Resolution(strings.ToUpper(s)) {
	case ResolutionAgentAWins:
		return ResolutionAgentAWins, nil
	case ResolutionAgentBWins:
		return ResolutionAgentBWins, nil
	case ResolutionEscalated:
		return ResolutionEscalated, nil
	case ResolutionAborted:
		return ResolutionAborted, nil
	default:
		return "", fmt.Errorf("invalid resolution: %s (must be agent_a_wins, agent_b_wins, escalated, or aborted)", s)
	}
}

// Recognized phase tags for decision log entries. Free-form phases are
// accepted; these are the ones the report renderer groups by.
const (
	PhasePrepare   = "PREPARE"
	PhaseArchitect = "ARCHITECT"
	PhaseCode      = "CODE"
	PhaseTest      = "TEST"
	PhaseReview    = "REVIEW"
	PhaseDone      = "DONE"
)

// Domain is a named ownership area over a set of resource-path patterns.
// Immutable during a session except through explicit re-registration.
type Domain struct {
	Name     string   `json:"name"`
	Patterns []string `json:"patterns"`
}

// Claim is one agent's edit lock on a resource path.
type Claim struct {
	ID         string      `json:"id"`
	AgentID    string      `json:"agent_id"`
	Path       string      `json:"path"`
	Domain     string      `json:"domain"`
	Status     ClaimStatus `json:"status"`
	AcquiredAt time.Time   `json:"acquired_at"`
	ReleasedAt time.Time   `json:"released_at,omitempty"`
}

// Conflict records a detected overlap or boundary violation.
// HolderClaimID is the claim that held the path (empty for boundary
// violations against an unclaimed path); AttemptClaimID is the rejected
// attempt. Immutable once resolved.
type Conflict struct {
	ID             string       `json:"id"`
	Kind           ConflictKind `json:"kind"`
	Path           string       `json:"path"`
	HolderClaimID  string       `json:"holder_claim_id,omitempty"`
	AttemptClaimID string       `json:"attempt_claim_id"`
	AgentID        string       `json:"agent_id"` // the agent whose attempt failed
	RightfulDomain string       `json:"rightful_domain,omitempty"`
	Resolution     Resolution   `json:"resolution"`
	CreatedAt      time.Time    `json:"created_at"`
	ResolvedAt     time.Time    `json:"resolved_at,omitempty"`
}

// Resolved reports whether the conflict has left the PENDING state.
func (c *Conflict) Resolved() bool {
	return c.Resolution != ResolutionPending
}

// LogEntry is one line in the decision log. Seq is dense and strictly
// increasing per session. Agent, Duration, Checkpoint and Findings are
// optional fields used by the full report format.
type LogEntry struct {
	Seq        int64     `json:"seq"`
	Phase      string    `json:"phase"`
	Decision   string    `json:"decision"`
	Rationale  string    `json:"rationale"`
	Agent      string    `json:"agent,omitempty"`
	Duration   string    `json:"duration,omitempty"`
	Checkpoint string    `json:"checkpoint,omitempty"`
	Findings   string    `json:"findings,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Signal is an algedonic or cross-agent notification recorded in the ledger.
// Kind is "pain", "pleasure" or "escalation".
type Signal struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Severity  string    `json:"severity,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// VarietyScore is the externally supplied complexity rating for a session.
// Each dimension is rated 1-5; the total selects the report format.
type VarietyScore struct {
	Novelty     int `json:"novelty"`
	Scope       int `json:"scope"`
	Uncertainty int `json:"uncertainty"`
	Risk        int `json:"risk"`
}

// Total returns the summed variety score.
func (v VarietyScore) Total() int {
	return v.Novelty + v.Scope + v.Uncertainty + v.Risk
}
