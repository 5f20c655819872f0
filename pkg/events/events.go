// Package events carries assistant activity to observers.
//
// The assistant publishes an Event for every state transition, heard utterance,
// dispatched command and spoken line. Observers (dashboard, journal, NATS
// forwarder) subscribe to the in-process Bus and never block the assistant.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind identifies an event type.
type Kind string

const (
	KindReady       Kind = "assistant.ready"
	KindShutdown    Kind = "assistant.shutdown"
	KindActivated   Kind = "state.activated"
	KindDeactivated Kind = "state.deactivated"
	KindHeard       Kind = "utterance.heard"
	KindCommand     Kind = "command.dispatched"
	KindSpoken      Kind = "speech.spoken"
	KindDeliver     Kind = "robot.deliver"
	KindOrganize    Kind = "robot.organize"
)

// Event is a single observable assistant occurrence.
type Event struct {
	ID      string         `json:"id"`
	Kind    Kind           `json:"kind"`
	Time    time.Time      `json:"time"`
	Session string         `json:"session,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// New creates an event with a fresh id.
func New(kind Kind, at time.Time, session string, data map[string]any) Event {
	return Event{
		ID:      uuid.NewString(),
		Kind:    kind,
		Time:    at,
		Session: session,
		Data:    data,
	}
}

// Publisher accepts events. Implementations must not block for long.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

var _ Publisher = Nop{}
