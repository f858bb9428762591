package transcript

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultMaxLineBytes is the largest line the pipeline scanner accepts.
const DefaultMaxLineBytes = 1024 * 1024 // 1MB

// Sink receives events in emission order.
type Sink func(Event) error

// Stats summarizes a pipeline run. Responses counts responses that emitted at
// least one event.
type Stats struct {
	Lines     int               `json:"lines"`
	Responses int               `json:"responses"`
	Counts    map[EventType]int `json:"counts"`
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the logger used for pipeline diagnostics.
func WithLogger(log *logrus.Entry) PipelineOption {
	return func(p *Pipeline) { p.log = log }
}

// WithMaxLineBytes overrides DefaultMaxLineBytes.
func WithMaxLineBytes(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxLineBytes = n
		}
	}
}

// WithIDGenerator sets the generator for event, tool call and response ids.
func WithIDGenerator(gen func() string) PipelineOption {
	return func(p *Pipeline) { p.newID = gen }
}

// WithClock sets the event timestamp source.
func WithClock(clock func() int64) PipelineOption {
	return func(p *Pipeline) { p.clock = clock }
}

// Pipeline feeds the lines of one provider stream through normalizers and
// manages their lifecycle: a normalizer lives for exactly one response and
// is replaced once it reports completion.
type Pipeline struct {
	provider  Provider
	sessionID string

	normalizer Normalizer
	turn       int
	responseID string
	// counted is set once the current response has emitted an event.
	counted    bool

	newID        func() string
	clock        func() int64
	maxLineBytes int
	log          *logrus.Entry

	lineNum int
	stats   Stats
}

// NewPipeline creates a pipeline for the given provider and session.
func NewPipeline(provider Provider, sessionID string, opts ...PipelineOption) (*Pipeline, error) {
	if _, err := NewNormalizer(provider); err != nil {
		return nil, err
	}
	p := &Pipeline{
		provider:     provider,
		sessionID:    sessionID,
		newID:        uuid.NewString,
		clock:        NewMonotonicClock(nil),
		maxLineBytes: DefaultMaxLineBytes,
		log:          logrus.NewEntry(logrus.StandardLogger()),
		stats:        Stats{Counts: make(map[EventType]int)},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.WithFields(logrus.Fields{
		"provider":   provider,
		"session_id": sessionID,
	})
	return p, nil
}

// Stats returns a snapshot of the counters collected so far.
func (p *Pipeline) Stats() Stats {
	counts := make(map[EventType]int, len(p.stats.Counts))
	for k, v := range p.stats.Counts {
		counts[k] = v
	}
	return Stats{Lines: p.stats.Lines, Responses: p.stats.Responses, Counts: counts}
}

// Feed normalizes one line. A returned error is fatal for the current
// response; its partial state is dropped.
func (p *Pipeline) Feed(line []byte) ([]Event, error) {
	p.lineNum++
	p.stats.Lines++
	if p.normalizer == nil {
		p.startResponse()
	}

	events, err := p.normalizer.NormalizeLine(line, p.eventContext())
	if err != nil {
		p.log.WithError(err).WithField("line", p.lineNum).Error("Provider contract violated, dropping response")
		p.normalizer = nil
		return nil, fmt.Errorf("line %d: %w", p.lineNum, err)
	}

	for _, ev := range events {
		p.stats.Counts[ev.Type]++
	}
	if len(events) > 0 {
		if !p.counted {
			p.counted = true
			p.stats.Responses++
		}
		p.log.WithFields(logrus.Fields{
			"line":   p.lineNum,
			"events": len(events),
		}).Debug("Normalized line")
	}

	if c, ok := p.normalizer.(Completer); ok && c.Complete() {
		p.log.WithFields(logrus.Fields{
			"turn_id":     p.turnID(),
			"response_id": p.responseID,
		}).Debug("Response complete")
		p.normalizer = nil
	}
	return events, nil
}

// Run reads lines from r until EOF, a fatal parse error, a sink error or
// cancellation of ctx. Cancellation drops any partial response without
// emitting terminal events.
func (p *Pipeline) Run(ctx context.Context, r io.Reader, sink Sink) (Stats, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, min(64*1024, p.maxLineBytes))
	scanner.Buffer(buf, p.maxLineBytes)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return p.Stats(), err
		}
		events, err := p.Feed(scanner.Bytes())
		if err != nil {
			return p.Stats(), err
		}
		for _, ev := range events {
			if err := sink(ev); err != nil {
				return p.Stats(), fmt.Errorf("sink: %w", err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return p.Stats(), fmt.Errorf("scanner error after %d lines: %w", p.lineNum, err)
	}
	return p.Stats(), nil
}

func (p *Pipeline) startResponse() {
	// NewPipeline already validated the provider.
	p.normalizer, _ = NewNormalizer(p.provider)
	p.turn++
	p.responseID = p.newID()
	p.counted = false
}

func (p *Pipeline) turnID() string {
	return fmt.Sprintf("turn-%d", p.turn)
}

func (p *Pipeline) eventContext() EventContext {
	return EventContext{
		SessionID:       p.sessionID,
		TurnID:          p.turnID(),
		ResponseID:      p.responseID,
		GenerateEventID: p.newID,
		Timestamp:       p.clock,
	}
}
