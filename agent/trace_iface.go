package agent

import "context"

// TraceRecorder allows the agent loop to record spans without importing
// the tracing package.
type TraceRecorder interface {
	// StartSpan begins a timed span; call End() on the returned handle.
	StartSpan(name string) SpanHandle
	// RecordEvent records an instantaneous (zero-duration) event.
	RecordEvent(name string, metadata map[string]any)
}

// SpanHandle is a timed span that accumulates metadata.
type SpanHandle interface {
	Set(key string, value any) SpanHandle
	End()
}

type traceRecorderKey struct{}

// WithTraceRecorder stores a TraceRecorder in the context.
func WithTraceRecorder(ctx context.Context, tr TraceRecorder) context.Context {
	return context.WithValue(ctx, traceRecorderKey{}, tr)
}

// TraceFromContext extracts the TraceRecorder, or nil.
func TraceFromContext(ctx context.Context) TraceRecorder {
	tr, _ := ctx.Value(traceRecorderKey{}).(TraceRecorder)
	return tr
}

// StartSpan starts a span on the context's recorder. It returns a no-op
// handle when no recorder is installed.
func StartSpan(ctx context.Context, name string) SpanHandle {
	if tr := TraceFromContext(ctx); tr != nil {
		return tr.StartSpan(name)
	}
	return nopSpan{}
}

type nopSpan struct{}

func (s nopSpan) Set(string, any) SpanHandle { return s }
func (nopSpan) End()                         {}

type depthKey struct{}

// WithDepth records how many delegations deep the current run is.
func WithDepth(ctx context.Context, depth int) context.Context {
	return context.WithValue(ctx, depthKey{}, depth)
}

// DepthFromContext returns the delegation depth (0 for a top-level run).
func DepthFromContext(ctx context.Context) int {
	d, _ := ctx.Value(depthKey{}).(int)
	return d
}
