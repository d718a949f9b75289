package detector

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/arbitr/internal/ledger"
	"github.com/mark3labs/arbitr/internal/logger"
	"github.com/mark3labs/arbitr/internal/registry"
	"github.com/rs/xid"
)

// UnknownClaimError is returned when a claim ID or prefix matches nothing,
// or when the claim is already terminal: released and conflicted claims
// cannot be released again. Status carries the terminal state in that case
// and is empty when the ID simply matched nothing.
type UnknownClaimError struct {
	ID     string
	Status ledger.ClaimStatus
}

func (e *UnknownClaimError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("unknown claim: %s (already %s)", e.ID, e.Status)
	}
	return fmt.Sprintf("unknown claim: %s", e.ID)
}

// UnknownConflictError is returned when a conflict ID or prefix matches nothing.
type UnknownConflictError struct {
	ID string
}

func (e *UnknownConflictError) Error() string {
	return fmt.Sprintf("unknown conflict: %s", e.ID)
}

// AlreadyResolvedError is returned when resolving a conflict a second time.
// Resolved conflicts are immutable.
type AlreadyResolvedError struct {
	ID         string
	Resolution ledger.Resolution
}

func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("conflict %s already resolved: %s", e.ID, e.Resolution)
}

// TryClaimParams are the inputs to a claim attempt. Domain is the domain the
// agent is acting for; it may be empty when claiming unowned paths.
type TryClaimParams struct {
	AgentID string
	Path    string
	Domain  string
}

// ClaimResult is the outcome of a claim attempt. Exactly one of the two
// shapes occurs: Acquired with an active Claim, or rejected with the
// conflicted Claim record plus the Conflict that caused the rejection.
// A rejection is a normal result, not an error.
type ClaimResult struct {
	Acquired bool
	Claim    *ledger.Claim
	Conflict *ledger.Conflict
}

// Detector serializes resource claims and detects overlap and boundary
// violations. All mutations happen under one mutex, so concurrent claim
// attempts on the same path observe a single total order: exactly one wins.
type Detector struct {
	mu        sync.Mutex
	registry  *registry.Registry
	claims    map[string]*ledger.Claim
	conflicts map[string]*ledger.Conflict
	active    map[string]string   // path -> active claim ID
	blocked   map[string][]string // path -> pending conflict IDs
}

// New creates a detector backed by the given boundary registry.
func New(reg *registry.Registry) *Detector {
	return &Detector{
		registry:  reg,
		claims:    make(map[string]*ledger.Claim),
		conflicts: make(map[string]*ledger.Conflict),
		active:    make(map[string]string),
		blocked:   make(map[string][]string),
	}
}

// TryClaim attempts to acquire an exclusive claim on a path.
//
// Checks run in order: boundary first, then overlap. A path owned by a
// domain can only be claimed on that domain's behalf; claiming it for
// another domain (or none) is a BOUNDARY_VIOLATION even when the path is
// unclaimed. A path with an active claim, or one blocked by an unresolved
// conflict, rejects the attempt with OVERLAP.
//
// Every rejection records both a conflicted claim and a pending conflict;
// the path stays blocked until that conflict is resolved.
func (d *Detector) TryClaim(params TryClaimParams) (*ClaimResult, error) {
	if params.AgentID == "" {
		return nil, fmt.Errorf("agent ID is required")
	}
	path := registry.NormalizePath(params.Path)
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	claim := &ledger.Claim{
		ID:         xid.New().String(),
		AgentID:    params.AgentID,
		Path:       path,
		Domain:     params.Domain,
		AcquiredAt: now,
	}

	// Boundary check against the registry
	if owner := d.registry.OwnerOf(path); owner != nil && owner.Name != params.Domain {
		claim.Status = ledger.ClaimConflicted
		conflict := d.openConflictLocked(&ledger.Conflict{
			ID:             xid.New().String(),
			Kind:           ledger.ConflictBoundaryViolation,
			Path:           path,
			HolderClaimID:  d.active[path],
			AttemptClaimID: claim.ID,
			AgentID:        params.AgentID,
			RightfulDomain: owner.Name,
			Resolution:     ledger.ResolutionPending,
			CreatedAt:      now,
		}, claim)

		logger.Info("Boundary violation: agent=%s path=%s rightful=%s", params.AgentID, path, owner.Name)
		return &ClaimResult{Claim: claim, Conflict: conflict}, nil
	}

	// Overlap check: an active holder wins, and a path blocked by an
	// unresolved conflict stays unclaimable until resolution.
	if holderID, blocked := d.blockerLocked(path); blocked {
		claim.Status = ledger.ClaimConflicted
		conflict := d.openConflictLocked(&ledger.Conflict{
			ID:             xid.New().String(),
			Kind:           ledger.ConflictOverlap,
			Path:           path,
			HolderClaimID:  holderID,
			AttemptClaimID: claim.ID,
			AgentID:        params.AgentID,
			Resolution:     ledger.ResolutionPending,
			CreatedAt:      now,
		}, claim)

		logger.Info("Overlap: agent=%s path=%s holder=%s", params.AgentID, path, holderID)
		return &ClaimResult{Claim: claim, Conflict: conflict}, nil
	}

	claim.Status = ledger.ClaimActive
	d.claims[claim.ID] = claim
	d.active[path] = claim.ID

	logger.Debug("Claim acquired: agent=%s path=%s id=%s", params.AgentID, path, claim.ID)
	return &ClaimResult{Acquired: true, Claim: claim}, nil
}

// Release moves an active claim to released, freeing its path for new
// claims. ID prefixes of 8+ characters are accepted. Releasing a claim
// that does not exist or is already terminal fails with UnknownClaimError.
func (d *Detector) Release(claimID string) (*ledger.Claim, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, err := resolveID(d.claims, claimID, "claim")
	if errors.Is(err, errNotFound) {
		return nil, &UnknownClaimError{ID: claimID}
	} else if err != nil {
		return nil, err
	}

	claim := d.claims[id]
	if claim.Status != ledger.ClaimActive {
		return nil, &UnknownClaimError{ID: id, Status: claim.Status}
	}

	claim.Status = ledger.ClaimReleased
	claim.ReleasedAt = time.Now()
	delete(d.active, claim.Path)

	logger.Debug("Claim released: id=%s path=%s", id, claim.Path)
	return claim, nil
}

// Resolve records the orchestrator's decision on a pending conflict and
// unblocks the conflict's path. Resolving an already-resolved conflict
// fails with AlreadyResolvedError.
func (d *Detector) Resolve(conflictID string, resolution ledger.Resolution) (*ledger.Conflict, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, err := resolveID(d.conflicts, conflictID, "conflict")
	if errors.Is(err, errNotFound) {
		return nil, &UnknownConflictError{ID: conflictID}
	} else if err != nil {
		return nil, err
	}

	conflict := d.conflicts[id]
	if conflict.Resolved() {
		return nil, &AlreadyResolvedError{ID: id, Resolution: conflict.Resolution}
	}

	conflict.Resolution = resolution
	conflict.ResolvedAt = time.Now()
	d.unblockLocked(conflict.Path, id)

	logger.Info("Conflict resolved: id=%s path=%s resolution=%s", id, conflict.Path, resolution)
	return conflict, nil
}

// Claim returns a claim by ID or 8+ character prefix.
func (d *Detector) Claim(claimID string) (*ledger.Claim, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, err := resolveID(d.claims, claimID, "claim")
	if errors.Is(err, errNotFound) {
		return nil, &UnknownClaimError{ID: claimID}
	} else if err != nil {
		return nil, err
	}
	return d.claims[id], nil
}

// Conflict returns a conflict by ID or 8+ character prefix.
func (d *Detector) Conflict(conflictID string) (*ledger.Conflict, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, err := resolveID(d.conflicts, conflictID, "conflict")
	if errors.Is(err, errNotFound) {
		return nil, &UnknownConflictError{ID: conflictID}
	} else if err != nil {
		return nil, err
	}
	return d.conflicts[id], nil
}

// Load seeds the detector from replayed ledger state. Active claims and
// pending conflicts rebuild the path indexes.
func (d *Detector) Load(claims map[string]*ledger.Claim, conflicts map[string]*ledger.Conflict) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, c := range claims {
		d.claims[id] = c
		if c.Status == ledger.ClaimActive {
			d.active[c.Path] = id
		}
	}
	for id, c := range conflicts {
		d.conflicts[id] = c
		if !c.Resolved() {
			d.blocked[c.Path] = append(d.blocked[c.Path], id)
		}
	}
}

// openConflictLocked registers a rejected claim and its conflict, blocking
// the path until resolution.
func (d *Detector) openConflictLocked(c *ledger.Conflict, claim *ledger.Claim) *ledger.Conflict {
	d.claims[claim.ID] = claim
	d.conflicts[c.ID] = c
	d.blocked[c.Path] = append(d.blocked[c.Path], c.ID)
	return c
}

// blockerLocked reports whether a path is unclaimable, returning the claim
// standing in the way: the active holder, or for a conflict-blocked path
// the most recent rejected attempt.
func (d *Detector) blockerLocked(path string) (string, bool) {
	if holderID, ok := d.active[path]; ok {
		return holderID, true
	}
	if ids := d.blocked[path]; len(ids) > 0 {
		last := d.conflicts[ids[len(ids)-1]]
		return last.AttemptClaimID, true
	}
	return "", false
}

// unblockLocked removes a resolved conflict from the path's block list.
func (d *Detector) unblockLocked(path, conflictID string) {
	ids := d.blocked[path]
	out := ids[:0]
	for _, id := range ids {
		if id != conflictID {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		delete(d.blocked, path)
	} else {
		d.blocked[path] = out
	}
}

// errNotFound marks lookup failures that callers translate into their
// typed unknown-ID errors.
var errNotFound = errors.New("not found")

// resolveID resolves an ID or prefix to a full key of m.
// Supports prefix matching with minimum 8 characters.
// Returns an error if the prefix is ambiguous or not found.
func resolveID[V any](m map[string]V, idOrPrefix, kind string) (string, error) {
	if _, exists := m[idOrPrefix]; exists {
		return idOrPrefix, nil
	}

	if len(idOrPrefix) < 8 {
		return "", fmt.Errorf("%s ID prefix must be at least 8 characters (got %d)", kind, len(idOrPrefix))
	}

	var matches []string
	for id := range m {
		if strings.HasPrefix(id, idOrPrefix) {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s %w: %s", kind, errNotFound, idOrPrefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("ambiguous %s ID prefix: %s (matches %d)", kind, idOrPrefix, len(matches))
	}
}
