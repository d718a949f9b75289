package nats

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// Subject pattern constants and helpers
const (
	streamName = "arbitr_events"

	// Event types
	EventTypeDomain   = "domain"
	EventTypeClaim    = "claim"
	EventTypeConflict = "conflict"
	EventTypeDecision = "decision"
	EventTypeSignal   = "signal"
	EventTypeControl  = "control"
)

// SubjectForSession returns the wildcard subject pattern for all events in a session.
// Example: "arbitr.mysession.>"
func SubjectForSession(session string) string {
	return fmt.Sprintf("arbitr.%s.>", session)
}

// SubjectForEvent returns the specific subject for an event type in a session.
// Example: "arbitr.mysession.claim"
func SubjectForEvent(session, eventType string) string {
	return fmt.Sprintf("arbitr.%s.%s", session, eventType)
}

// SetupStream creates or updates the JetStream stream for arbitr events.
// The stream captures all coordination events for all sessions. Retention is
// unlimited: the decision log is the system of record and is never aged out.
// Subject pattern: arbitr.> matches all sessions and event types.
func SetupStream(ctx context.Context, js jetstream.JetStream) (jetstream.Stream, error) {
	return js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"arbitr.>"}, // Match all arbitr events
		Storage:  jetstream.FileStorage,
	})
}

// CreateConsumer creates a durable consumer for reading event history.
// The consumer starts from the beginning and requires explicit acknowledgment.
func CreateConsumer(ctx context.Context, stream jetstream.Stream, name string) (jetstream.Consumer, error) {
	return stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       name,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy, // Start from beginning
	})
}
