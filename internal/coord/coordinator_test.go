package coord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/mark3labs/arbitr/internal/detector"
	"github.com/mark3labs/arbitr/internal/ledger"
	"github.com/mark3labs/arbitr/internal/nats"
	"github.com/mark3labs/arbitr/internal/registry"
)

// newTestStore spins up an embedded broker and returns a ledger store
// backed by it.
func newTestStore(t *testing.T) *ledger.Store {
	t.Helper()
	ctx := context.Background()

	ns, err := nats.StartEmbeddedNATS(t.TempDir())
	if err != nil {
		t.Fatalf("failed to start NATS: %v", err)
	}
	t.Cleanup(func() { ns.Shutdown() })

	nc, err := nats.ConnectInProcess(ns)
	if err != nil {
		t.Fatalf("failed to connect to NATS: %v", err)
	}
	t.Cleanup(nc.Close)

	js, err := nats.CreateJetStream(nc)
	if err != nil {
		t.Fatalf("failed to create JetStream: %v", err)
	}
	stream, err := nats.SetupStream(ctx, js)
	if err != nil {
		t.Fatalf("failed to setup stream: %v", err)
	}
	return ledger.NewStore(js, stream)
}

func TestCoordinatorLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	c, err := New(ctx, store, "lifecycle")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	t.Run("register and query domains", func(t *testing.T) {
		if _, err := c.RegisterDomain(ctx, "database", []string{"db/**"}, false); err != nil {
			t.Fatalf("RegisterDomain failed: %v", err)
		}

		_, err := c.RegisterDomain(ctx, "database", []string{"other/**"}, false)
		var dup *registry.DuplicateDomainError
		if !errors.As(err, &dup) {
			t.Fatalf("expected DuplicateDomainError, got %v", err)
		}

		if d := c.OwnerOf("db/schema.sql"); d == nil || d.Name != "database" {
			t.Errorf("OwnerOf(db/schema.sql) = %v, want database", d)
		}
		if d := c.OwnerOf("README.md"); d != nil {
			t.Errorf("expected unowned path, got %s", d.Name)
		}
	})

	t.Run("claim, overlap, resolve, reclaim", func(t *testing.T) {
		first, err := c.TryClaim(ctx, detector.TryClaimParams{AgentID: "a", Path: "db/schema.sql", Domain: "database"})
		if err != nil || !first.Acquired {
			t.Fatalf("expected acquisition, got res=%+v err=%v", first, err)
		}

		second, err := c.TryClaim(ctx, detector.TryClaimParams{AgentID: "b", Path: "db/schema.sql", Domain: "database"})
		if err != nil {
			t.Fatalf("TryClaim failed: %v", err)
		}
		if second.Acquired || second.Conflict.Kind != ledger.ConflictOverlap {
			t.Fatalf("expected OVERLAP rejection, got %+v", second)
		}

		if _, err := c.Release(ctx, first.Claim.ID); err != nil {
			t.Fatalf("Release failed: %v", err)
		}
		if _, err := c.ResolveConflict(ctx, second.Conflict.ID, ledger.ResolutionAgentAWins); err != nil {
			t.Fatalf("ResolveConflict failed: %v", err)
		}

		again, err := c.TryClaim(ctx, detector.TryClaimParams{AgentID: "b", Path: "db/schema.sql", Domain: "database"})
		if err != nil {
			t.Fatalf("TryClaim after resolve failed: %v", err)
		}
		if !again.Acquired {
			t.Error("path should be claimable after release and resolution")
		}
	})

	t.Run("escalation emits a signal", func(t *testing.T) {
		res, err := c.TryClaim(ctx, detector.TryClaimParams{AgentID: "x", Path: "db/schema.sql", Domain: "api"})
		if err != nil || res.Acquired {
			t.Fatalf("expected boundary rejection, got res=%+v err=%v", res, err)
		}

		before := len(c.State().Signals)
		if _, err := c.ResolveConflict(ctx, res.Conflict.ID, ledger.ResolutionEscalated); err != nil {
			t.Fatalf("ResolveConflict failed: %v", err)
		}
		signals := c.State().Signals
		if len(signals) != before+1 {
			t.Fatalf("expected escalation signal, have %d signals", len(signals))
		}
		if signals[len(signals)-1].Kind != "escalation" {
			t.Errorf("signal kind = %s, want escalation", signals[len(signals)-1].Kind)
		}
	})

	t.Run("decision log seq is dense", func(t *testing.T) {
		for _, d := range []string{"first", "second", "third"} {
			if _, err := c.AppendDecision(ctx, AppendParams{Phase: "code", Decision: d}); err != nil {
				t.Fatalf("AppendDecision failed: %v", err)
			}
		}
		entries := c.Query("", 0)
		if len(entries) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(entries))
		}
		for i, e := range entries {
			if e.Seq != int64(i)+1 {
				t.Errorf("entry %d has seq %d, want %d", i, e.Seq, i+1)
			}
			if e.Phase != ledger.PhaseCode {
				t.Errorf("phase = %s, want CODE", e.Phase)
			}
		}

		if got := c.Query("code", 2); len(got) != 2 {
			t.Errorf("filtered query returned %d, want 2", len(got))
		}
	})

	t.Run("rejects empty decision", func(t *testing.T) {
		if _, err := c.AppendDecision(ctx, AppendParams{Phase: "code"}); err == nil {
			t.Error("expected error for empty decision")
		}
	})

	t.Run("variety validation", func(t *testing.T) {
		if err := c.SetVariety(ctx, ledger.VarietyScore{Novelty: 0, Scope: 3, Uncertainty: 3, Risk: 3}); err == nil {
			t.Error("expected error for out-of-range dimension")
		}
		if err := c.SetVariety(ctx, ledger.VarietyScore{Novelty: 2, Scope: 2, Uncertainty: 2, Risk: 2}); err != nil {
			t.Errorf("SetVariety failed: %v", err)
		}
	})
}

func TestConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	c, err := New(ctx, store, "concurrent-appends")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := c.AppendDecision(ctx, AppendParams{Phase: "code", Decision: fmt.Sprintf("decision %d", i)}); err != nil {
				t.Errorf("AppendDecision failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	entries := c.Query("", 0)
	if len(entries) != n {
		t.Fatalf("expected %d entries, got %d", n, len(entries))
	}
	for i, e := range entries {
		if e.Seq != int64(i)+1 {
			t.Errorf("entry %d has seq %d, want %d: sequence must stay dense with no duplicates", i, e.Seq, i+1)
		}
	}
}

func TestTryClaimPublishFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	c, err := New(ctx, store, "rollback")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// A canceled context makes the ledger publish fail after the detector
	// accepted the claim.
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.TryClaim(canceled, detector.TryClaimParams{AgentID: "a", Path: "main.go"}); err == nil {
		t.Fatal("expected publish failure with canceled context")
	}

	// The path must not stay held by a claim that never made the ledger.
	res, err := c.TryClaim(ctx, detector.TryClaimParams{AgentID: "b", Path: "main.go"})
	if err != nil {
		t.Fatalf("TryClaim failed: %v", err)
	}
	if !res.Acquired {
		t.Error("path should be claimable after a failed publish")
	}
}

func TestCoordinatorReplay(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	session := "replay"

	// First coordinator writes some history
	c1, err := New(ctx, store, session)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := c1.RegisterDomain(ctx, "database", []string{"db/**"}, false); err != nil {
		t.Fatalf("RegisterDomain failed: %v", err)
	}
	held, err := c1.TryClaim(ctx, detector.TryClaimParams{AgentID: "a", Path: "db/schema.sql", Domain: "database"})
	if err != nil || !held.Acquired {
		t.Fatalf("TryClaim failed: %v", err)
	}
	if _, err := c1.AppendDecision(ctx, AppendParams{Phase: "architect", Decision: "one table per aggregate"}); err != nil {
		t.Fatalf("AppendDecision failed: %v", err)
	}

	// Second coordinator replays the ledger and sees identical state
	c2, err := New(ctx, store, session)
	if err != nil {
		t.Fatalf("replay New failed: %v", err)
	}

	if d := c2.OwnerOf("db/schema.sql"); d == nil || d.Name != "database" {
		t.Error("domain registration lost on replay")
	}
	res, err := c2.TryClaim(ctx, detector.TryClaimParams{AgentID: "b", Path: "db/schema.sql", Domain: "database"})
	if err != nil {
		t.Fatalf("TryClaim failed: %v", err)
	}
	if res.Acquired {
		t.Error("replayed active claim should still hold the path")
	}
	if got := c2.Query("", 0); len(got) != 1 || got[0].Seq != 1 {
		t.Errorf("decision log lost on replay: %+v", got)
	}
	if c2.State().NextSeq() != 2 {
		t.Errorf("NextSeq = %d, want 2", c2.State().NextSeq())
	}
}

func TestNormalizeSession(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"My Session", "my-session", false},
		{"refactor.api", "refactor-api", false},
		{"already-good", "already-good", false},
		{"???", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeSession(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeSession(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeSession(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
