package transcript

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventContext carries the identity of the response being normalized and the
// effects used to stamp events. Callers build one per fragment; normalizers
// never keep it.
type EventContext struct {
	SessionID  string
	TurnID     string
	ResponseID string

	// GenerateEventID must return globally unique values.
	GenerateEventID func() string
	// Timestamp must not decrease within one response.
	Timestamp func() int64
}

// NewEventContext returns a context using UUIDs for ids and a monotonic
// millisecond clock.
func NewEventContext(sessionID, turnID, responseID string) EventContext {
	return EventContext{
		SessionID:       sessionID,
		TurnID:          turnID,
		ResponseID:      responseID,
		GenerateEventID: uuid.NewString,
		Timestamp:       NewMonotonicClock(nil),
	}
}

// NewMonotonicClock wraps now (time.Now when nil) so that successive calls
// never return a smaller unix-millisecond value.
func NewMonotonicClock(now func() time.Time) func() int64 {
	if now == nil {
		now = time.Now
	}
	var (
		mu   sync.Mutex
		last int64
	)
	return func() int64 {
		mu.Lock()
		defer mu.Unlock()
		ts := now().UnixMilli()
		if ts < last {
			ts = last
		}
		last = ts
		return ts
	}
}

func (c EventContext) newID() string {
	if c.GenerateEventID == nil {
		return uuid.NewString()
	}
	return c.GenerateEventID()
}

func (c EventContext) now() int64 {
	if c.Timestamp == nil {
		return time.Now().UnixMilli()
	}
	return c.Timestamp()
}

// event stamps a new canonical event with identity copied from the context.
func (c EventContext) event(t EventType, p Payload) Event {
	return Event{
		ID:         c.newID(),
		Timestamp:  c.now(),
		SessionID:  c.SessionID,
		TurnID:     c.TurnID,
		ResponseID: c.ResponseID,
		Type:       t,
		Payload:    p,
	}
}

func (c EventContext) text(t EventType, text string) Event {
	return c.event(t, TextPayload{Text: text})
}

func (c EventContext) toolCall(id, name string, args map[string]any) Event {
	if args == nil {
		args = map[string]any{}
	}
	return c.event(ToolCall, ToolCallPayload{ToolCallID: id, ToolName: name, Args: args})
}

func (c EventContext) toolResult(id string, result any) Event {
	return c.event(ToolResult, ToolResultPayload{ToolCallID: id, Result: result})
}
