// Package agentevents converts the streaming output of coding agents (Claude
// CLI, Codex CLI, OpenAI chat completions) into one canonical event stream.
package agentevents

import (
	"github.com/grovetools/agentevents/internal/transcript"
)

// Canonical event model.
type (
	Event             = transcript.Event
	EventType         = transcript.EventType
	Payload           = transcript.Payload
	TextPayload       = transcript.TextPayload
	ToolCallPayload   = transcript.ToolCallPayload
	ToolResultPayload = transcript.ToolResultPayload
	EventContext      = transcript.EventContext
)

// Event types.
const (
	AssistantChunk = transcript.AssistantChunk
	AssistantDone  = transcript.AssistantDone
	ThinkingChunk  = transcript.ThinkingChunk
	ThinkingDone   = transcript.ThinkingDone
	ToolCall       = transcript.ToolCall
	ToolResult     = transcript.ToolResult
)

// Normalizers.
type (
	Normalizer       = transcript.Normalizer
	ChunkNormalizer  = transcript.ChunkNormalizer
	Completer        = transcript.Completer
	ClaudeNormalizer = transcript.ClaudeNormalizer
	CodexNormalizer  = transcript.CodexNormalizer
	OpenAINormalizer = transcript.OpenAINormalizer
	ParseError       = transcript.ParseError
	Provider         = transcript.Provider
)

// Providers.
const (
	ProviderClaude = transcript.ProviderClaude
	ProviderCodex  = transcript.ProviderCodex
	ProviderOpenAI = transcript.ProviderOpenAI
)

// ErrMalformedLine is wrapped by every ParseError.
var ErrMalformedLine = transcript.ErrMalformedLine

// NewEventContext creates a context with uuid event ids and a monotonic clock.
func NewEventContext(sessionID, turnID, responseID string) EventContext {
	return transcript.NewEventContext(sessionID, turnID, responseID)
}

// NewClaudeNormalizer creates a normalizer for one Claude CLI response.
func NewClaudeNormalizer() *ClaudeNormalizer {
	return transcript.NewClaudeNormalizer()
}

// NewCodexNormalizer creates a normalizer for Codex CLI output.
func NewCodexNormalizer() *CodexNormalizer {
	return transcript.NewCodexNormalizer()
}

// NewOpenAINormalizer creates a normalizer for one OpenAI streaming response.
func NewOpenAINormalizer() *OpenAINormalizer {
	return transcript.NewOpenAINormalizer()
}

// ParseProvider validates a provider name.
func ParseProvider(name string) (Provider, error) {
	return transcript.ParseProvider(name)
}

// NewNormalizer creates a normalizer for the given provider.
func NewNormalizer(p Provider) (Normalizer, error) {
	return transcript.NewNormalizer(p)
}

// Pipeline and its options.
type (
	Pipeline       = transcript.Pipeline
	PipelineOption = transcript.PipelineOption
	Sink           = transcript.Sink
	Stats          = transcript.Stats
)

// NewPipeline creates a pipeline that manages normalizer lifecycle per response.
func NewPipeline(provider Provider, sessionID string, opts ...PipelineOption) (*Pipeline, error) {
	return transcript.NewPipeline(provider, sessionID, opts...)
}

var (
	WithLogger       = transcript.WithLogger
	WithMaxLineBytes = transcript.WithMaxLineBytes
	WithIDGenerator  = transcript.WithIDGenerator
	WithClock        = transcript.WithClock
)
