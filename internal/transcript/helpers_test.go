package transcript

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// testContext returns a context with sequential ids (id-1, id-2, ...) and a
// clock that ticks once per event.
func testContext() EventContext {
	var n int
	var ts int64
	return EventContext{
		SessionID:  "session-1",
		TurnID:     "turn-1",
		ResponseID: "response-1",
		GenerateEventID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
		Timestamp: func() int64 {
			ts++
			return ts
		},
	}
}

func feedLines(t *testing.T, n Normalizer, ec EventContext, lines ...string) []Event {
	t.Helper()
	var events []Event
	for _, line := range lines {
		evs, err := n.NormalizeLine([]byte(line), ec)
		require.NoError(t, err, "line %s", line)
		events = append(events, evs...)
	}
	return events
}

func decodeChunk(t *testing.T, s string) map[string]any {
	t.Helper()
	var chunk map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &chunk))
	return chunk
}

func eventTypes(events []Event) []EventType {
	types := make([]EventType, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	return types
}

func texts(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Text())
	}
	return out
}

func filterType(events []Event, t EventType) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
