package agentevents_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/grovetools/agentevents/pkg/agentevents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline_PublicAPI(t *testing.T) {
	n := 0
	p, err := agentevents.NewPipeline(agentevents.ProviderCodex, "session-1",
		agentevents.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	)
	require.NoError(t, err)

	input := strings.Join([]string{
		`{"type":"item.completed","item":{"type":"agent_message","text":"hi"}}`,
	}, "\n")

	var events []agentevents.Event
	stats, err := p.Run(context.Background(), strings.NewReader(input), func(ev agentevents.Event) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, agentevents.AssistantChunk, events[0].Type)
	assert.Equal(t, agentevents.AssistantDone, events[1].Type)
	assert.Equal(t, "session-1", events[1].SessionID)
	assert.Equal(t, 1, stats.Responses)
}

func TestParseError_Is(t *testing.T) {
	_, err := agentevents.NewClaudeNormalizer().NormalizeLine([]byte("{oops"), agentevents.NewEventContext("s", "t", "r"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, agentevents.ErrMalformedLine))

	var perr *agentevents.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "claude", perr.Provider)
}
