package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/mark3labs/arbitr/internal/logger"
	"github.com/mark3labs/arbitr/internal/nats"
	"github.com/nats-io/nats.go/jetstream"
)

// Event represents a generic event stored in the JetStream event log.
// All coordination operations (domain registrations, claims, conflicts,
// decisions, signals) are stored as events following an append-only event
// sourcing pattern.
type Event struct {
	ID        string          `json:"id"`        // Record ID (xid) or NATS sequence
	Timestamp time.Time       `json:"timestamp"` // When the event occurred
	Session   string          `json:"session"`   // Session name
	Type      string          `json:"type"`      // Event type: domain, claim, conflict, decision, signal, control
	Action    string          `json:"action"`    // Action type: register, open, release, resolve, append, send, etc.
	Meta      json.RawMessage `json:"meta"`      // Action-specific metadata
	Data      string          `json:"data"`      // Primary content (path, decision text, signal text)
}

// Store manages the coordination ledger through JetStream event sourcing.
// It provides methods for publishing events and loading state from the
// event stream.
type Store struct {
	js     jetstream.JetStream // JetStream context for operations
	stream jetstream.Stream    // The arbitr_events stream
}

// NewStore creates a new Store instance with the given JetStream context and stream.
func NewStore(js jetstream.JetStream, stream jetstream.Stream) *Store {
	return &Store{
		js:     js,
		stream: stream,
	}
}

// PublishEvent appends an event to the JetStream event log.
// Events are published to subjects following the pattern: arbitr.{session}.{type}
// Returns the published ACK or an error if publishing fails.
func (s *Store) PublishEvent(ctx context.Context, event Event) (*jetstream.PubAck, error) {
	// Set timestamp if not already set
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Marshal event to JSON
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal event: %v", err)
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	// Build subject: arbitr.{session}.{type}
	subject := nats.SubjectForEvent(event.Session, event.Type)

	logger.Debug("Publishing event: session=%s type=%s action=%s", event.Session, event.Type, event.Action)

	// Publish to JetStream
	ack, err := s.js.Publish(ctx, subject, data)
	if err != nil {
		logger.Error("Failed to publish event to subject %s: %v", subject, err)
		return nil, fmt.Errorf("failed to publish event: %w", err)
	}

	logger.Debug("Event published successfully: seq=%d", ack.Sequence)
	return ack, nil
}

// State represents the current state of a coordination session, reconstructed
// from events. It implements the reduce pattern by applying events to build up
// the current state.
type State struct {
	Session   string               `json:"session"`
	Domains   map[string]*Domain   `json:"domains"`   // Domain name -> Domain
	Claims    map[string]*Claim    `json:"claims"`    // Claim ID -> Claim
	Conflicts map[string]*Conflict `json:"conflicts"` // Conflict ID -> Conflict
	Decisions []*LogEntry          `json:"decisions"` // Decision log, ascending by Seq
	Signals   []*Signal            `json:"signals"`   // Chronological signal list
	Variety   *VarietyScore        `json:"variety"`   // nil until recorded
	Outcome   string               `json:"outcome"`   // Session outcome summary
}

// NewState returns an empty state for a session.
func NewState(session string) *State {
	return &State{
		Session:   session,
		Domains:   make(map[string]*Domain),
		Claims:    make(map[string]*Claim),
		Conflicts: make(map[string]*Conflict),
	}
}

// Snapshot returns a point-in-time copy of the state. Containers are fresh,
// and claim and conflict records are cloned because release and resolve
// mutate them in place. Decision and signal records are append-only, so the
// copied slices share them.
func (st *State) Snapshot() *State {
	out := &State{
		Session:   st.Session,
		Domains:   make(map[string]*Domain, len(st.Domains)),
		Claims:    make(map[string]*Claim, len(st.Claims)),
		Conflicts: make(map[string]*Conflict, len(st.Conflicts)),
		Decisions: append([]*LogEntry(nil), st.Decisions...),
		Signals:   append([]*Signal(nil), st.Signals...),
		Outcome:   st.Outcome,
	}
	for name, d := range st.Domains {
		dc := *d
		out.Domains[name] = &dc
	}
	for id, c := range st.Claims {
		cc := *c
		out.Claims[id] = &cc
	}
	for id, c := range st.Conflicts {
		cc := *c
		out.Conflicts[id] = &cc
	}
	if st.Variety != nil {
		v := *st.Variety
		out.Variety = &v
	}
	return out
}

// NextSeq returns the sequence number the next decision log entry will get.
func (st *State) NextSeq() int64 {
	return int64(len(st.Decisions)) + 1
}

// ActiveClaims returns all claims currently in the active state,
// ordered by acquisition time.
func (st *State) ActiveClaims() []*Claim {
	var out []*Claim
	for _, c := range st.Claims {
		if c.Status == ClaimActive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AcquiredAt.Before(out[j].AcquiredAt) })
	return out
}

// PendingConflicts returns all unresolved conflicts, ordered by creation time.
func (st *State) PendingConflicts() []*Conflict {
	var out []*Conflict
	for _, c := range st.Conflicts {
		if !c.Resolved() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// QueryDecisions returns decision log entries in ascending sequence order,
// optionally filtered by phase and by minimum sequence number.
// phase="" matches all phases; since=0 returns everything.
func (st *State) QueryDecisions(phase string, since int64) []*LogEntry {
	out := make([]*LogEntry, 0, len(st.Decisions))
	for _, e := range st.Decisions {
		if phase != "" && e.Phase != phase {
			continue
		}
		if e.Seq < since {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Apply applies an event to the state, implementing the reduce pattern.
// This method mutates the state based on the event type and action.
func (st *State) Apply(event Event) {
	switch event.Type {
	case nats.EventTypeDomain:
		st.applyDomainEvent(event)
	case nats.EventTypeClaim:
		st.applyClaimEvent(event)
	case nats.EventTypeConflict:
		st.applyConflictEvent(event)
	case nats.EventTypeDecision:
		st.applyDecisionEvent(event)
	case nats.EventTypeSignal:
		st.applySignalEvent(event)
	case nats.EventTypeControl:
		st.applyControlEvent(event)
	}
}

// applyDomainEvent handles boundary registry events.
func (st *State) applyDomainEvent(event Event) {
	switch event.Action {
	case "register":
		var meta struct {
			Patterns []string `json:"patterns"`
		}
		json.Unmarshal(event.Meta, &meta)

		st.Domains[event.Data] = &Domain{
			Name:     event.Data,
			Patterns: meta.Patterns,
		}
	}
}

// applyClaimEvent handles claim lifecycle events.
func (st *State) applyClaimEvent(event Event) {
	switch event.Action {
	case "open", "conflicted":
		var claim Claim
		if err := json.Unmarshal(event.Meta, &claim); err != nil {
			return
		}
		st.Claims[claim.ID] = &claim

	case "release":
		var meta struct {
			ClaimID string `json:"claim_id"`
		}
		json.Unmarshal(event.Meta, &meta)

		if claim, exists := st.Claims[meta.ClaimID]; exists {
			claim.Status = ClaimReleased
			claim.ReleasedAt = event.Timestamp
		}
	}
}

// applyConflictEvent handles conflict detection and resolution events.
func (st *State) applyConflictEvent(event Event) {
	switch event.Action {
	case "open":
		var conflict Conflict
		if err := json.Unmarshal(event.Meta, &conflict); err != nil {
			return
		}
		st.Conflicts[conflict.ID] = &conflict

	case "resolve":
		var meta struct {
			ConflictID string     `json:"conflict_id"`
			Resolution Resolution `json:"resolution"`
		}
		json.Unmarshal(event.Meta, &meta)

		if conflict, exists := st.Conflicts[meta.ConflictID]; exists {
			conflict.Resolution = meta.Resolution
			conflict.ResolvedAt = event.Timestamp
		}
	}
}

// applyDecisionEvent handles decision log appends.
func (st *State) applyDecisionEvent(event Event) {
	switch event.Action {
	case "append":
		var entry LogEntry
		if err := json.Unmarshal(event.Meta, &entry); err != nil {
			return
		}
		// Replay is the source of truth for ordering: events arrive in
		// stream order, so sequence numbers stay dense even if the
		// publisher's number drifted.
		entry.Seq = st.NextSeq()
		if entry.Timestamp.IsZero() {
			entry.Timestamp = event.Timestamp
		}
		st.Decisions = append(st.Decisions, &entry)
	}
}

// applySignalEvent handles algedonic and cross-agent signals.
func (st *State) applySignalEvent(event Event) {
	switch event.Action {
	case "send":
		var sig Signal
		if err := json.Unmarshal(event.Meta, &sig); err != nil {
			return
		}
		st.Signals = append(st.Signals, &sig)
	}
}

// applyControlEvent handles session-level control events.
func (st *State) applyControlEvent(event Event) {
	switch event.Action {
	case "variety":
		var v VarietyScore
		if err := json.Unmarshal(event.Meta, &v); err != nil {
			return
		}
		st.Variety = &v

	case "outcome":
		st.Outcome = event.Data
	}
}

// LoadState reconstructs the current state of a session by reading and reducing
// all events from the JetStream event log. This implements the event sourcing pattern.
func (s *Store) LoadState(ctx context.Context, session string) (*State, error) {
	logger.Debug("Loading state for session: %s", session)

	// Create a consumer filtered to this session's events
	consumer, err := s.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		FilterSubject: nats.SubjectForSession(session),
		DeliverPolicy: jetstream.DeliverAllPolicy, // Start from beginning
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		logger.Error("Failed to create consumer for session %s: %v", session, err)
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	// Initialize empty state
	state := NewState(session)

	// Fetch events in batches and reduce into state
	// Using a large batch size to minimize round trips
	const batchSize = 1000
	malformedCount := 0
	totalEvents := 0
	for {
		// Fetch with short timeout to avoid blocking forever
		msgs, err := consumer.FetchNoWait(batchSize)
		if err != nil {
			// No more messages or error - we've read everything
			logger.Debug("Finished reading events (batch fetch complete)")
			break
		}

		msgCount := 0
		for msg := range msgs.Messages() {
			msgCount++
			totalEvents++
			// Unmarshal event
			var event Event
			if err := json.Unmarshal(msg.Data(), &event); err != nil {
				// Log malformed event and skip (but acknowledge to prevent redelivery)
				malformedCount++
				meta, _ := msg.Metadata()
				logger.Warn("Skipping malformed event (seq=%d): %v", meta.Sequence.Stream, err)
				msg.Ack()
				continue
			}

			// Store the message sequence as ID if not set
			if event.ID == "" {
				meta, _ := msg.Metadata()
				event.ID = fmt.Sprintf("%d", meta.Sequence.Stream)
			}

			// Apply event to state (reduce)
			state.Apply(event)

			// Acknowledge message
			msg.Ack()
		}

		logger.Debug("Processed batch: %d events", msgCount)

		// If we got fewer messages than batch size, we've reached the end
		if msgCount < batchSize {
			break
		}
	}

	// Warn if we encountered malformed events
	if malformedCount > 0 {
		logger.Warn("Skipped %d malformed events while loading state", malformedCount)
		fmt.Fprintf(os.Stderr, "Warning: Skipped %d malformed events while loading state\n", malformedCount)
	}

	logger.Debug("State loaded: %d total events, %d domains, %d claims, %d conflicts, %d decisions",
		totalEvents, len(state.Domains), len(state.Claims), len(state.Conflicts), len(state.Decisions))

	return state, nil
}
