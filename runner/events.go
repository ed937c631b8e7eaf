package runner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yamf-go/op-marker/types"
)

// EventPrefix marks console lines that carry a check lifecycle event
const EventPrefix = "##yamf "

// EventKind enumerates the check lifecycle events
type EventKind string

const (
	EventRunStarted    EventKind = "run-started"
	EventCheckSkipped  EventKind = "check-skipped"
	EventCheckStarted  EventKind = "check-started"
	EventCheckFinished EventKind = "check-finished"
	EventAttachment    EventKind = "attachment"
	EventRunFinished   EventKind = "run-finished"
)

// Node types reported by the runner
const (
	NodeTypeTest      = "test"
	NodeTypeContainer = "container"
)

// Event is one check lifecycle event. Which fields are set depends on Kind.
type Event struct {
	Kind      EventKind     `json:"event"`
	ID        types.CheckID `json:"id,omitempty"`
	Type      string        `json:"type,omitempty"`
	Status    string        `json:"status,omitempty"`    // check-finished
	Reason    string        `json:"reason,omitempty"`    // check-skipped
	Error     string        `json:"error,omitempty"`     // check-finished
	Name      string        `json:"name,omitempty"`      // attachment
	Path      string        `json:"path,omitempty"`      // attachment
	MediaType string        `json:"mediaType,omitempty"` // attachment
}

// IsLeaf reports whether the event is about an individual check rather than a container.
// Events without a type are classified by the shape of their identity.
func (e Event) IsLeaf() bool {
	if e.Type == NodeTypeContainer {
		return false
	}
	return e.ID.Validate() == nil
}

// Encode renders the event as a console protocol line, without a trailing newline
func (e Event) Encode() string {
	data, err := json.Marshal(e)
	if err != nil {
		// Event only holds strings, Marshal cannot fail
		panic(err)
	}
	return EventPrefix + string(data)
}

// DecodeEvent parses a console line. ok is false for lines that are not protocol lines.
func DecodeEvent(line string) (event Event, ok bool, err error) {
	payload, found := strings.CutPrefix(strings.TrimRight(line, "\r\n"), EventPrefix)
	if !found {
		return Event{}, false, nil
	}
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return Event{}, true, fmt.Errorf("malformed lifecycle event: %w", err)
	}
	switch event.Kind {
	case EventRunStarted, EventRunFinished:
	case EventCheckSkipped, EventCheckStarted, EventCheckFinished, EventAttachment:
		if event.ID == "" {
			return Event{}, true, fmt.Errorf("lifecycle event %q has no check id", event.Kind)
		}
	default:
		return Event{}, true, fmt.Errorf("unknown lifecycle event %q", event.Kind)
	}
	return event, true, nil
}

// EventHandler receives lifecycle events. Implementations must be safe for concurrent use.
type EventHandler func(Event)
