// Package metrics records Prometheus counters for agent runs, tool calls,
// delegations and content offloading.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the collectors. A nil *Recorder is valid and records nothing.
type Recorder struct {
	modelCalls      *prometheus.CounterVec
	toolCalls       *prometheus.CounterVec
	subagentRuns    *prometheus.CounterVec
	subagentLatency *prometheus.HistogramVec
	summaryBatches  *prometheus.CounterVec
	filesOffloaded  *prometheus.CounterVec
}

// NewRecorder registers the collectors on reg. Pass a fresh
// prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		modelCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_model_calls_total",
				Help: "Model calls made by the agent loop, by agent and status",
			},
			[]string{"agent", "status"},
		),
		toolCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_tool_calls_total",
				Help: "Tool calls executed by the agent loop",
			},
			[]string{"agent", "tool", "status"},
		),
		subagentRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_subagent_runs_total",
				Help: "Delegated sub-agent runs by worker name and outcome",
			},
			[]string{"subagent", "outcome"},
		),
		subagentLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agent_subagent_run_duration_seconds",
				Help:    "Wall time of delegated sub-agent runs",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"subagent"},
		),
		summaryBatches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_summary_batches_total",
				Help: "Summarization batches by path (model or fallback)",
			},
			[]string{"path"},
		),
		filesOffloaded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_files_offloaded_total",
				Help: "Files written to the virtual file store by offloading components",
			},
			[]string{"source"},
		),
	}
}

// ModelCall counts one model call.
func (r *Recorder) ModelCall(agentID, status string) {
	if r == nil {
		return
	}
	r.modelCalls.WithLabelValues(agentID, status).Inc()
}

// ToolCall counts one tool execution.
func (r *Recorder) ToolCall(agentID, tool, status string) {
	if r == nil {
		return
	}
	r.toolCalls.WithLabelValues(agentID, tool, status).Inc()
}

// SubagentRun records a finished delegation. outcome is "ok", "rejected" or "error".
func (r *Recorder) SubagentRun(name, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.subagentRuns.WithLabelValues(name, outcome).Inc()
	if outcome != "rejected" {
		r.subagentLatency.WithLabelValues(name).Observe(d.Seconds())
	}
}

// SummaryBatch counts a summarization batch by the path it took.
func (r *Recorder) SummaryBatch(path string) {
	if r == nil {
		return
	}
	r.summaryBatches.WithLabelValues(path).Inc()
}

// FilesOffloaded adds n offloaded files for source.
func (r *Recorder) FilesOffloaded(source string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.filesOffloaded.WithLabelValues(source).Add(float64(n))
}
