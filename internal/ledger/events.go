package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/arbitr/internal/nats"
)

// Typed event publishers. Each wraps a domain record into the generic Event
// envelope so State.Apply can reduce it back. The coordinator is the only
// caller; records are built there under its lock.

// PublishDomainRegister records a domain registration (or replacement).
func (s *Store) PublishDomainRegister(ctx context.Context, session string, d *Domain) error {
	meta, _ := json.Marshal(map[string]any{
		"patterns": d.Patterns,
	})

	_, err := s.PublishEvent(ctx, Event{
		Session: session,
		Type:    nats.EventTypeDomain,
		Action:  "register",
		Data:    d.Name,
		Meta:    meta,
	})
	return err
}

// PublishClaimOpen records a successfully acquired claim.
func (s *Store) PublishClaimOpen(ctx context.Context, session string, c *Claim) error {
	meta, _ := json.Marshal(c)

	_, err := s.PublishEvent(ctx, Event{
		ID:        c.ID,
		Timestamp: c.AcquiredAt,
		Session:   session,
		Type:      nats.EventTypeClaim,
		Action:    "open",
		Data:      c.Path,
		Meta:      meta,
	})
	return err
}

// PublishClaimConflicted records a rejected claim attempt in its terminal
// conflicted state.
func (s *Store) PublishClaimConflicted(ctx context.Context, session string, c *Claim) error {
	meta, _ := json.Marshal(c)

	_, err := s.PublishEvent(ctx, Event{
		ID:        c.ID,
		Timestamp: c.AcquiredAt,
		Session:   session,
		Type:      nats.EventTypeClaim,
		Action:    "conflicted",
		Data:      c.Path,
		Meta:      meta,
	})
	return err
}

// PublishClaimRelease records the release of an active claim.
func (s *Store) PublishClaimRelease(ctx context.Context, session, claimID string, at time.Time) error {
	meta, _ := json.Marshal(map[string]any{
		"claim_id": claimID,
	})

	_, err := s.PublishEvent(ctx, Event{
		Timestamp: at,
		Session:   session,
		Type:      nats.EventTypeClaim,
		Action:    "release",
		Data:      claimID,
		Meta:      meta,
	})
	return err
}

// PublishConflictOpen records a newly detected conflict (resolution PENDING).
func (s *Store) PublishConflictOpen(ctx context.Context, session string, c *Conflict) error {
	meta, _ := json.Marshal(c)

	_, err := s.PublishEvent(ctx, Event{
		ID:        c.ID,
		Timestamp: c.CreatedAt,
		Session:   session,
		Type:      nats.EventTypeConflict,
		Action:    "open",
		Data:      c.Path,
		Meta:      meta,
	})
	return err
}

// PublishConflictResolve records the orchestrator's decision on a conflict.
func (s *Store) PublishConflictResolve(ctx context.Context, session, conflictID string, res Resolution, at time.Time) error {
	meta, _ := json.Marshal(map[string]any{
		"conflict_id": conflictID,
		"resolution":  res,
	})

	_, err := s.PublishEvent(ctx, Event{
		Timestamp: at,
		Session:   session,
		Type:      nats.EventTypeConflict,
		Action:    "resolve",
		Data:      string(res),
		Meta:      meta,
	})
	return err
}

// PublishDecision appends an entry to the decision log.
func (s *Store) PublishDecision(ctx context.Context, session string, e *LogEntry) error {
	meta, _ := json.Marshal(e)

	_, err := s.PublishEvent(ctx, Event{
		Timestamp: e.Timestamp,
		Session:   session,
		Type:      nats.EventTypeDecision,
		Action:    "append",
		Data:      e.Decision,
		Meta:      meta,
	})
	return err
}

// PublishSignal records an algedonic or escalation signal.
func (s *Store) PublishSignal(ctx context.Context, session string, sig *Signal) error {
	meta, _ := json.Marshal(sig)

	_, err := s.PublishEvent(ctx, Event{
		ID:        sig.ID,
		Timestamp: sig.CreatedAt,
		Session:   session,
		Type:      nats.EventTypeSignal,
		Action:    "send",
		Data:      sig.Content,
		Meta:      meta,
	})
	return err
}

// PublishVariety records the session's variety score.
func (s *Store) PublishVariety(ctx context.Context, session string, v VarietyScore) error {
	meta, _ := json.Marshal(v)

	_, err := s.PublishEvent(ctx, Event{
		Session: session,
		Type:    nats.EventTypeControl,
		Action:  "variety",
		Data:    "variety score recorded",
		Meta:    meta,
	})
	return err
}

// PublishOutcome records the session outcome summary.
func (s *Store) PublishOutcome(ctx context.Context, session, outcome string) error {
	_, err := s.PublishEvent(ctx, Event{
		Session: session,
		Type:    nats.EventTypeControl,
		Action:  "outcome",
		Data:    outcome,
	})
	return err
}
