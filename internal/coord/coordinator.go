package coord

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gosimple/slug"
	"github.com/mark3labs/arbitr/internal/detector"
	"github.com/mark3labs/arbitr/internal/ledger"
	"github.com/mark3labs/arbitr/internal/logger"
	"github.com/mark3labs/arbitr/internal/registry"
	"github.com/rs/xid"
)

// Coordinator is the single writer for a session's coordination ledger.
// It fronts the boundary registry, the conflict detector and the decision
// log, publishing every accepted mutation as an event so state can be
// replayed. One mutex serializes all writes, which is what makes claim
// ordering and decision sequence numbers trustworthy.
type Coordinator struct {
	mu       sync.Mutex
	session  string
	store    *ledger.Store
	registry *registry.Registry
	detector *detector.Detector
	state    *ledger.State
}

// New loads the session's event history and rebuilds live state from it.
func New(ctx context.Context, store *ledger.Store, session string) (*Coordinator, error) {
	state, err := store.LoadState(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to load session state: %w", err)
	}

	reg := registry.New()
	reg.Load(state.Domains)

	det := detector.New(reg)
	det.Load(state.Claims, state.Conflicts)

	logger.Info("Coordinator ready: session=%s domains=%d claims=%d conflicts=%d decisions=%d",
		session, len(state.Domains), len(state.Claims), len(state.Conflicts), len(state.Decisions))

	return &Coordinator{
		session:  session,
		store:    store,
		registry: reg,
		detector: det,
		state:    state,
	}, nil
}

// Session returns the session name this coordinator serves.
func (c *Coordinator) Session() string {
	return c.session
}

// RegisterDomain adds or (with replace) overwrites a domain's ownership
// patterns and records the registration in the ledger.
func (c *Coordinator) RegisterDomain(ctx context.Context, name string, patterns []string, replace bool) (*ledger.Domain, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := c.registry.Register(name, patterns, replace)
	if err != nil {
		return nil, err
	}

	if err := c.store.PublishDomainRegister(ctx, c.session, d); err != nil {
		return nil, err
	}
	c.state.Domains[d.Name] = d
	return d, nil
}

// OwnerOf answers which domain owns a path; nil means unowned.
// Pure read, no event.
func (c *Coordinator) OwnerOf(path string) *ledger.Domain {
	return c.registry.OwnerOf(path)
}

// Domains lists registered domains sorted by name.
func (c *Coordinator) Domains() []*ledger.Domain {
	return c.registry.Domains()
}

// TryClaim attempts an exclusive claim on a path. Rejections come back as a
// conflict-bearing result, not an error; both outcomes are recorded in the
// ledger before the result is returned.
func (c *Coordinator) TryClaim(ctx context.Context, params detector.TryClaimParams) (*detector.ClaimResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.detector.TryClaim(params)
	if err != nil {
		return nil, err
	}

	if res.Acquired {
		if err := c.store.PublishClaimOpen(ctx, c.session, res.Claim); err != nil {
			// The claim never made the ledger, so undo the in-memory
			// acquisition or the path would stay held by a claim the
			// caller does not know about.
			if _, rbErr := c.detector.Release(res.Claim.ID); rbErr != nil {
				logger.Warn("Failed to roll back unpublished claim %s: %v", res.Claim.ID, rbErr)
			}
			return nil, err
		}
		c.state.Claims[res.Claim.ID] = res.Claim
		return res, nil
	}

	if err := c.store.PublishClaimConflicted(ctx, c.session, res.Claim); err != nil {
		return nil, err
	}
	if err := c.store.PublishConflictOpen(ctx, c.session, res.Conflict); err != nil {
		return nil, err
	}
	c.state.Claims[res.Claim.ID] = res.Claim
	c.state.Conflicts[res.Conflict.ID] = res.Conflict
	return res, nil
}

// Release frees an active claim. Accepts full IDs or 8+ character prefixes.
func (c *Coordinator) Release(ctx context.Context, claimID string) (*ledger.Claim, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	claim, err := c.detector.Release(claimID)
	if err != nil {
		return nil, err
	}

	if err := c.store.PublishClaimRelease(ctx, c.session, claim.ID, claim.ReleasedAt); err != nil {
		return nil, err
	}
	c.state.Claims[claim.ID] = claim
	return claim, nil
}

// ResolveConflict records the orchestrator's decision on a pending conflict.
// An ESCALATED resolution additionally emits an escalation signal so a
// watching orchestrator (or human) is paged.
func (c *Coordinator) ResolveConflict(ctx context.Context, conflictID string, resolution ledger.Resolution) (*ledger.Conflict, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conflict, err := c.detector.Resolve(conflictID, resolution)
	if err != nil {
		return nil, err
	}

	if err := c.store.PublishConflictResolve(ctx, c.session, conflict.ID, resolution, conflict.ResolvedAt); err != nil {
		return nil, err
	}
	c.state.Conflicts[conflict.ID] = conflict

	if resolution == ledger.ResolutionEscalated {
		sig := &ledger.Signal{
			ID:        xid.New().String(),
			Kind:      "escalation",
			Severity:  "high",
			Content:   fmt.Sprintf("conflict %s on %s escalated to orchestrator", conflict.ID, conflict.Path),
			CreatedAt: time.Now(),
		}
		if err := c.store.PublishSignal(ctx, c.session, sig); err != nil {
			return nil, err
		}
		c.state.Signals = append(c.state.Signals, sig)
	}

	return conflict, nil
}

// AppendParams are the inputs to a decision log append. Seq is assigned by
// the coordinator, never by the caller.
type AppendParams struct {
	Phase      string
	Decision   string
	Rationale  string
	Agent      string
	Duration   string
	Checkpoint string
	Findings   string
}

// AppendDecision appends an entry to the decision log with the next dense
// sequence number.
func (c *Coordinator) AppendDecision(ctx context.Context, params AppendParams) (*ledger.LogEntry, error) {
	if strings.TrimSpace(params.Decision) == "" {
		return nil, fmt.Errorf("decision text is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &ledger.LogEntry{
		Seq:        c.state.NextSeq(),
		Phase:      strings.ToUpper(strings.TrimSpace(params.Phase)),
		Decision:   params.Decision,
		Rationale:  params.Rationale,
		Agent:      params.Agent,
		Duration:   params.Duration,
		Checkpoint: params.Checkpoint,
		Findings:   params.Findings,
		Timestamp:  time.Now(),
	}

	if err := c.store.PublishDecision(ctx, c.session, entry); err != nil {
		return nil, err
	}
	c.state.Decisions = append(c.state.Decisions, entry)

	logger.Debug("Decision appended: seq=%d phase=%s", entry.Seq, entry.Phase)
	return entry, nil
}

// Query returns decision log entries, optionally filtered by phase and
// minimum sequence number.
func (c *Coordinator) Query(phase string, since int64) []*ledger.LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.QueryDecisions(strings.ToUpper(strings.TrimSpace(phase)), since)
}

// SendSignal records an algedonic signal (pain, pleasure) or escalation.
func (c *Coordinator) SendSignal(ctx context.Context, kind, severity, content string) (*ledger.Signal, error) {
	switch kind {
	case "pain", "pleasure", "escalation":
	default:
		return nil, fmt.Errorf("invalid signal kind: %s (must be pain, pleasure, or escalation)", kind)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("signal content is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sig := &ledger.Signal{
		ID:        xid.New().String(),
		Kind:      kind,
		Severity:  severity,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := c.store.PublishSignal(ctx, c.session, sig); err != nil {
		return nil, err
	}
	c.state.Signals = append(c.state.Signals, sig)
	return sig, nil
}

// SetVariety records the session's variety score. Each dimension is 1-5.
func (c *Coordinator) SetVariety(ctx context.Context, v ledger.VarietyScore) error {
	for _, dim := range []struct {
		name  string
		value int
	}{
		{"novelty", v.Novelty},
		{"scope", v.Scope},
		{"uncertainty", v.Uncertainty},
		{"risk", v.Risk},
	} {
		if dim.value < 1 || dim.value > 5 {
			return fmt.Errorf("variety %s must be 1-5, got %d", dim.name, dim.value)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.PublishVariety(ctx, c.session, v); err != nil {
		return err
	}
	c.state.Variety = &v
	return nil
}

// SetOutcome records the session outcome summary.
func (c *Coordinator) SetOutcome(ctx context.Context, outcome string) error {
	if strings.TrimSpace(outcome) == "" {
		return fmt.Errorf("outcome is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.PublishOutcome(ctx, c.session, outcome); err != nil {
		return err
	}
	c.state.Outcome = outcome
	return nil
}

// State returns a point-in-time snapshot of the session state. Callers get
// their own copy of every container, so reading it never races the
// coordinator's writes; the report renderer is the main consumer.
func (c *Coordinator) State() *ledger.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Snapshot()
}

// NormalizeSession turns a free-form session name into the slug used in
// ledger subjects. Subjects are dot-separated, so the name cannot contain
// dots or spaces.
func NormalizeSession(name string) (string, error) {
	s := slug.Make(name)
	if s == "" {
		return "", fmt.Errorf("invalid session name: %q", name)
	}
	return s, nil
}
