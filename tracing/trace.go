package tracing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"wick_deep/agent"
)

// Span represents a single timed operation within a trace.
type Span struct {
	Name       string         `json:"name"`
	StartTime  time.Time      `json:"start_time"`
	EndTime    time.Time      `json:"end_time"`
	DurationMs float64        `json:"duration_ms"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Trace collects all spans for one top-level run, delegated runs included.
// Implements agent.TraceRecorder.
type Trace struct {
	mu         sync.Mutex
	TraceID    string         `json:"trace_id"`
	AgentID    string         `json:"agent_id"`
	ThreadID   string         `json:"thread_id"`
	Model      string         `json:"model"`
	Kind       string         `json:"kind"` // "invoke" or "cli"
	StartTime  time.Time      `json:"start_time"`
	EndTime    time.Time      `json:"end_time"`
	DurationMs float64        `json:"duration_ms"`
	Spans      []Span         `json:"spans"`
	Input      map[string]any `json:"input,omitempty"`
	Output     map[string]any `json:"output,omitempty"`
	Error      string         `json:"error,omitempty"`
}

var _ agent.TraceRecorder = (*Trace)(nil)

// NewTrace creates a new trace for a run.
func NewTrace(agentID, threadID, model, kind string, messageCount int) *Trace {
	return &Trace{
		TraceID:   uuid.NewString(),
		AgentID:   agentID,
		ThreadID:  threadID,
		Model:     model,
		Kind:      kind,
		StartTime: time.Now(),
		Spans:     []Span{},
		Input:     map[string]any{"message_count": messageCount},
	}
}

// SpanRecorder is the agent.SpanHandle returned by StartSpan.
type SpanRecorder struct {
	trace *Trace
	span  Span
}

var _ agent.SpanHandle = (*SpanRecorder)(nil)

// StartSpan begins recording a timed span.
func (t *Trace) StartSpan(name string) agent.SpanHandle {
	return &SpanRecorder{
		trace: t,
		span:  Span{Name: name, StartTime: time.Now(), Metadata: map[string]any{}},
	}
}

// RecordEvent records an instantaneous event.
func (t *Trace) RecordEvent(name string, metadata map[string]any) {
	now := time.Now()
	t.addSpan(Span{
		Name:      name,
		StartTime: now,
		EndTime:   now,
		Metadata:  metadata,
	})
}

// Set adds a metadata key-value pair.
func (sr *SpanRecorder) Set(key string, value any) agent.SpanHandle {
	sr.span.Metadata[key] = value
	return sr
}

// End finalizes the span and appends it to the trace.
func (sr *SpanRecorder) End() {
	sr.span.EndTime = time.Now()
	sr.span.DurationMs = float64(sr.span.EndTime.Sub(sr.span.StartTime)) / float64(time.Millisecond)
	sr.trace.addSpan(sr.span)
}

func (t *Trace) addSpan(s Span) {
	t.mu.Lock()
	t.Spans = append(t.Spans, s)
	t.mu.Unlock()
}

// Finish finalizes the trace with an optional error and output fields.
func (t *Trace) Finish(err error, output map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.EndTime = time.Now()
	t.DurationMs = float64(t.EndTime.Sub(t.StartTime)) / float64(time.Millisecond)
	t.Output = output
	if err != nil {
		t.Error = err.Error()
	}
}

// Snapshot returns a copy that is safe to serialize while spans may still be added.
func (t *Trace) Snapshot() *Trace {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := &Trace{
		TraceID:    t.TraceID,
		AgentID:    t.AgentID,
		ThreadID:   t.ThreadID,
		Model:      t.Model,
		Kind:       t.Kind,
		StartTime:  t.StartTime,
		EndTime:    t.EndTime,
		DurationMs: t.DurationMs,
		Spans:      make([]Span, len(t.Spans)),
		Input:      t.Input,
		Output:     t.Output,
		Error:      t.Error,
	}
	copy(cp.Spans, t.Spans)
	return cp
}

// Store holds recent traces in memory with bounded capacity.
type Store struct {
	mu     sync.RWMutex
	traces map[string]*Trace
	order  []string // FIFO order for eviction
	max    int
}

// NewStore creates a store that retains up to maxSize traces.
func NewStore(maxSize int) *Store {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &Store{
		traces: make(map[string]*Trace),
		order:  make([]string, 0, maxSize),
		max:    maxSize,
	}
}

// Put stores a trace, evicting the oldest if at capacity.
func (s *Store) Put(t *Trace) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.traces[t.TraceID]; ok {
		s.traces[t.TraceID] = t
		return
	}
	if len(s.order) >= s.max {
		oldest := s.order[0]
		delete(s.traces, oldest)
		s.order = s.order[1:]
	}
	s.traces[t.TraceID] = t
	s.order = append(s.order, t.TraceID)
}

// Get returns a trace by ID, or nil if not found.
func (s *Store) Get(traceID string) *Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.traces[traceID]
}

// List returns the most recent traces, newest first, up to limit.
func (s *Store) List(limit int) []*Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.order)
	if limit <= 0 || limit > n {
		limit = n
	}
	result := make([]*Trace, limit)
	for i := 0; i < limit; i++ {
		result[i] = s.traces[s.order[n-1-i]]
	}
	return result
}

// WithTrace stores the trace in context via agent.WithTraceRecorder.
func WithTrace(ctx context.Context, t *Trace) context.Context {
	return agent.WithTraceRecorder(ctx, t)
}

// FromContext extracts the concrete *Trace from context.
func FromContext(ctx context.Context) *Trace {
	switch tr := agent.TraceFromContext(ctx).(type) {
	case *Trace:
		return tr
	case *scoped:
		return FromContext(agent.WithTraceRecorder(ctx, tr.parent))
	}
	return nil
}

// Scoped returns a context whose recorder prefixes every span name with
// prefix + "/". Delegated runs use it so their spans stay distinguishable
// inside the parent's trace. Without a recorder ctx is returned unchanged.
func Scoped(ctx context.Context, prefix string) context.Context {
	tr := agent.TraceFromContext(ctx)
	if tr == nil {
		return ctx
	}
	return agent.WithTraceRecorder(ctx, &scoped{parent: tr, prefix: prefix + "/"})
}

type scoped struct {
	parent agent.TraceRecorder
	prefix string
}

func (s *scoped) StartSpan(name string) agent.SpanHandle {
	return s.parent.StartSpan(s.prefix + name)
}

func (s *scoped) RecordEvent(name string, metadata map[string]any) {
	s.parent.RecordEvent(s.prefix+name, metadata)
}
