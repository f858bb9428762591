package transcript

import (
	"errors"
	"fmt"
)

// ErrMalformedLine reports a fragment that violates the provider's line protocol.
var ErrMalformedLine = errors.New("malformed provider line")

// ParseError is returned when a line cannot be parsed. It is fatal for the
// normalizer instance that produced it.
type ParseError struct {
	Provider string
	Line     string
	Err      error
}

func (e *ParseError) Error() string {
	line := e.Line
	if len(line) > 80 {
		line = line[:77] + "..."
	}
	return fmt.Sprintf("%s: %v: %q", e.Provider, e.Err, line)
}

func (e *ParseError) Unwrap() error { return e.Err }

func newParseError(provider string, line []byte, reason string) error {
	return &ParseError{
		Provider: provider,
		Line:     string(line),
		Err:      fmt.Errorf("%w: %s", ErrMalformedLine, reason),
	}
}

// Normalizer converts one raw provider line into zero or more canonical events.
// An instance is stateful and must only be fed fragments of a single response
// stream, in arrival order.
type Normalizer interface {
	// NormalizeLine normalizes a single JSON line. Blank lines yield no events.
	NormalizeLine(line []byte, ec EventContext) ([]Event, error)

	// Provider returns the provider name.
	Provider() string
}

// ChunkNormalizer converts an already decoded streaming chunk object.
type ChunkNormalizer interface {
	NormalizeChunk(chunk map[string]any, ec EventContext) []Event
	Provider() string
}

// Completer is implemented by normalizers that can tell when the response
// stream they were fed has reached its terminal event.
type Completer interface {
	Complete() bool
}
