package ledger

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/arbitr/internal/nats"
)

func TestStateApply(t *testing.T) {
	t.Run("domain register", func(t *testing.T) {
		st := NewState("s")
		meta, _ := json.Marshal(map[string]any{"patterns": []string{"db/**", "*.sql"}})
		st.Apply(Event{Type: nats.EventTypeDomain, Action: "register", Data: "database", Meta: meta})

		d, ok := st.Domains["database"]
		if !ok {
			t.Fatal("expected domain to be registered")
		}
		if len(d.Patterns) != 2 {
			t.Errorf("expected 2 patterns, got %d", len(d.Patterns))
		}
	})

	t.Run("re-register replaces patterns", func(t *testing.T) {
		st := NewState("s")
		meta1, _ := json.Marshal(map[string]any{"patterns": []string{"db/**"}})
		meta2, _ := json.Marshal(map[string]any{"patterns": []string{"storage/**"}})
		st.Apply(Event{Type: nats.EventTypeDomain, Action: "register", Data: "database", Meta: meta1})
		st.Apply(Event{Type: nats.EventTypeDomain, Action: "register", Data: "database", Meta: meta2})

		if got := st.Domains["database"].Patterns[0]; got != "storage/**" {
			t.Errorf("expected replaced pattern, got %s", got)
		}
	})

	t.Run("claim open and release", func(t *testing.T) {
		st := NewState("s")
		claim := Claim{ID: "c1", AgentID: "a", Path: "x.go", Status: ClaimActive, AcquiredAt: time.Now()}
		meta, _ := json.Marshal(claim)
		st.Apply(Event{Type: nats.EventTypeClaim, Action: "open", Meta: meta})

		if len(st.ActiveClaims()) != 1 {
			t.Fatalf("expected 1 active claim, got %d", len(st.ActiveClaims()))
		}

		relMeta, _ := json.Marshal(map[string]any{"claim_id": "c1"})
		released := time.Now()
		st.Apply(Event{Type: nats.EventTypeClaim, Action: "release", Timestamp: released, Meta: relMeta})

		if st.Claims["c1"].Status != ClaimReleased {
			t.Errorf("expected released, got %s", st.Claims["c1"].Status)
		}
		if !st.Claims["c1"].ReleasedAt.Equal(released) {
			t.Error("expected ReleasedAt from event timestamp")
		}
		if len(st.ActiveClaims()) != 0 {
			t.Error("expected no active claims after release")
		}
	})

	t.Run("conflict open and resolve", func(t *testing.T) {
		st := NewState("s")
		conflict := Conflict{ID: "k1", Kind: ConflictOverlap, Path: "x.go", Resolution: ResolutionPending, CreatedAt: time.Now()}
		meta, _ := json.Marshal(conflict)
		st.Apply(Event{Type: nats.EventTypeConflict, Action: "open", Meta: meta})

		if len(st.PendingConflicts()) != 1 {
			t.Fatalf("expected 1 pending conflict, got %d", len(st.PendingConflicts()))
		}

		resMeta, _ := json.Marshal(map[string]any{"conflict_id": "k1", "resolution": ResolutionAgentAWins})
		st.Apply(Event{Type: nats.EventTypeConflict, Action: "resolve", Timestamp: time.Now(), Meta: resMeta})

		if st.Conflicts["k1"].Resolution != ResolutionAgentAWins {
			t.Errorf("expected AGENT_A_WINS, got %s", st.Conflicts["k1"].Resolution)
		}
		if len(st.PendingConflicts()) != 0 {
			t.Error("expected no pending conflicts after resolve")
		}
	})

	t.Run("decision seq stays dense on replay", func(t *testing.T) {
		st := NewState("s")
		for _, drifted := range []int64{5, 9, 2} {
			meta, _ := json.Marshal(LogEntry{Seq: drifted, Phase: PhaseCode, Decision: "d"})
			st.Apply(Event{Type: nats.EventTypeDecision, Action: "append", Meta: meta})
		}

		if len(st.Decisions) != 3 {
			t.Fatalf("expected 3 decisions, got %d", len(st.Decisions))
		}
		for i, e := range st.Decisions {
			if e.Seq != int64(i)+1 {
				t.Errorf("decision %d has seq %d, want %d", i, e.Seq, i+1)
			}
		}
		if st.NextSeq() != 4 {
			t.Errorf("NextSeq = %d, want 4", st.NextSeq())
		}
	})

	t.Run("control events", func(t *testing.T) {
		st := NewState("s")
		meta, _ := json.Marshal(VarietyScore{Novelty: 2, Scope: 2, Uncertainty: 2, Risk: 2})
		st.Apply(Event{Type: nats.EventTypeControl, Action: "variety", Meta: meta})
		st.Apply(Event{Type: nats.EventTypeControl, Action: "outcome", Data: "shipped"})

		if st.Variety == nil || st.Variety.Total() != 8 {
			t.Errorf("expected variety total 8, got %+v", st.Variety)
		}
		if st.Outcome != "shipped" {
			t.Errorf("expected outcome 'shipped', got %q", st.Outcome)
		}
	})

	t.Run("malformed meta is skipped", func(t *testing.T) {
		st := NewState("s")
		st.Apply(Event{Type: nats.EventTypeClaim, Action: "open", Meta: json.RawMessage(`{broken`)})
		if len(st.Claims) != 0 {
			t.Error("malformed claim event should not mutate state")
		}
	})
}

func TestQueryDecisions(t *testing.T) {
	st := NewState("s")
	entries := []LogEntry{
		{Phase: PhasePrepare, Decision: "scope the work"},
		{Phase: PhaseCode, Decision: "use event sourcing"},
		{Phase: PhaseCode, Decision: "single writer for seq"},
		{Phase: PhaseTest, Decision: "embedded broker in tests"},
	}
	for _, e := range entries {
		meta, _ := json.Marshal(e)
		st.Apply(Event{Type: nats.EventTypeDecision, Action: "append", Meta: meta})
	}

	if got := st.QueryDecisions("", 0); len(got) != 4 {
		t.Errorf("unfiltered query returned %d, want 4", len(got))
	}
	if got := st.QueryDecisions(PhaseCode, 0); len(got) != 2 {
		t.Errorf("phase filter returned %d, want 2", len(got))
	}
	got := st.QueryDecisions("", 3)
	if len(got) != 2 || got[0].Seq != 3 {
		t.Errorf("since filter returned %d entries starting at %d", len(got), got[0].Seq)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	ns, err := nats.StartEmbeddedNATS(t.TempDir())
	if err != nil {
		t.Fatalf("failed to start NATS: %v", err)
	}
	defer ns.Shutdown()

	nc, err := nats.ConnectInProcess(ns)
	if err != nil {
		t.Fatalf("failed to connect to NATS: %v", err)
	}
	defer nc.Close()

	js, err := nats.CreateJetStream(nc)
	if err != nil {
		t.Fatalf("failed to create JetStream: %v", err)
	}
	stream, err := nats.SetupStream(ctx, js)
	if err != nil {
		t.Fatalf("failed to setup stream: %v", err)
	}

	store := NewStore(js, stream)
	session := "round-trip"

	d := &Domain{Name: "database", Patterns: []string{"db/**"}}
	if err := store.PublishDomainRegister(ctx, session, d); err != nil {
		t.Fatalf("PublishDomainRegister failed: %v", err)
	}

	claim := &Claim{ID: "claim0000000000000001", AgentID: "a", Path: "db/schema.sql", Domain: "database", Status: ClaimActive, AcquiredAt: time.Now()}
	if err := store.PublishClaimOpen(ctx, session, claim); err != nil {
		t.Fatalf("PublishClaimOpen failed: %v", err)
	}

	entry := &LogEntry{Seq: 1, Phase: PhaseArchitect, Decision: "split schema per service", Rationale: "limits migration blast radius", Timestamp: time.Now()}
	if err := store.PublishDecision(ctx, session, entry); err != nil {
		t.Fatalf("PublishDecision failed: %v", err)
	}

	// Events for another session must not leak into this one
	if err := store.PublishOutcome(ctx, "other-session", "done"); err != nil {
		t.Fatalf("PublishOutcome failed: %v", err)
	}

	state, err := store.LoadState(ctx, session)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}

	if _, ok := state.Domains["database"]; !ok {
		t.Error("expected domain to survive round trip")
	}
	if c, ok := state.Claims[claim.ID]; !ok || c.Status != ClaimActive {
		t.Error("expected active claim to survive round trip")
	}
	if len(state.Decisions) != 1 || state.Decisions[0].Decision != "split schema per service" {
		t.Errorf("expected 1 decision, got %d", len(state.Decisions))
	}
	if state.Outcome != "" {
		t.Error("outcome from another session leaked into state")
	}
}

func TestStateSnapshot(t *testing.T) {
	st := NewState("snap")
	st.Domains["database"] = &Domain{Name: "database", Patterns: []string{"db/**"}}
	st.Claims["c1"] = &Claim{ID: "c1", Path: "db/schema.sql", Status: ClaimActive}
	st.Conflicts["x1"] = &Conflict{ID: "x1", Path: "db/schema.sql", Resolution: ResolutionPending}
	st.Decisions = append(st.Decisions, &LogEntry{Seq: 1, Phase: PhaseCode, Decision: "one"})
	v := VarietyScore{Novelty: 2, Scope: 2, Uncertainty: 2, Risk: 2}
	st.Variety = &v

	snap := st.Snapshot()
	snap.Claims["c1"].Status = ClaimReleased
	snap.Conflicts["x1"].Resolution = ResolutionAborted
	snap.Variety.Risk = 5
	delete(snap.Domains, "database")
	snap.Decisions = append(snap.Decisions, &LogEntry{Seq: 2, Decision: "two"})

	if st.Claims["c1"].Status != ClaimActive {
		t.Error("snapshot mutation leaked into claim record")
	}
	if st.Conflicts["x1"].Resolution != ResolutionPending {
		t.Error("snapshot mutation leaked into conflict record")
	}
	if st.Variety.Risk != 2 {
		t.Error("snapshot mutation leaked into variety score")
	}
	if _, ok := st.Domains["database"]; !ok {
		t.Error("snapshot map delete leaked into state")
	}
	if len(st.Decisions) != 1 {
		t.Errorf("snapshot append leaked into decision log: %d entries", len(st.Decisions))
	}
}
