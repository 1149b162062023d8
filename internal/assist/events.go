package assist

import (
	"github.com/ciclismopt/assist/internal/action"
	"github.com/ciclismopt/assist/internal/trigger"
)

// EventType tags what happened on a session stream.
type EventType string

const (
	EventSuggestion   EventType = "suggestion"
	EventDismissed    EventType = "dismissed"
	EventExpandChat   EventType = "expand_chat"
	EventActionResult EventType = "action_result"
)

// Event is pushed to the session's subscriber (the SSE handler). Exactly one
// payload field is set depending on Type.
type Event struct {
	Type       EventType           `json:"type"`
	Suggestion *trigger.Suggestion `json:"suggestion,omitempty"`
	Kind       trigger.Kind        `json:"kind,omitempty"`
	Result     *action.Result      `json:"result,omitempty"`
}
