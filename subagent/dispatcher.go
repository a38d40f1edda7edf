package subagent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wick_deep/agent"
	"wick_deep/llm"
	"wick_deep/metrics"
	"wick_deep/tracing"
)

const taskDescriptionPrefix = `Delegate a task to a specialized sub-agent with an isolated context.

The sub-agent starts fresh: it sees only the description you give it plus the current
files and todo list, never this conversation. Write a complete, self-contained task
description. Only its final answer comes back to you, and files it writes are merged
into the shared file system.

Use it for independent sub-topics that would otherwise flood your context. Several
task calls in one turn run in parallel.

Available agent types:
%s`

// Config carries the dispatcher's collaborators.
type Config struct {
	// Client and Model are used for workers without a model override.
	Client llm.Client
	Model  string
	// Resolve builds clients for per-worker model overrides. Defaults to llm.Resolve.
	Resolve func(spec any) (llm.Client, string, error)
	// Hooks wrap every worker run (tracing, eviction). They must not keep per-run state.
	Hooks []agent.Hook
	// MaxDepth bounds nested delegation; 0 means unlimited.
	MaxDepth      int
	MaxIterations int
	Logger        *zap.Logger
	Metrics       *metrics.Recorder
}

type worker struct {
	def    Definition
	client llm.Client
	model  string
}

// Dispatcher runs delegated tasks on isolated workers.
type Dispatcher struct {
	registry *Registry
	tools    *agent.ToolSet
	workers  map[string]worker
	cfg      Config
	logger   *zap.Logger
}

// NewDispatcher builds a dispatcher over the base tool set (without the task
// tool). Model overrides are resolved here so a bad spec fails at startup.
func NewDispatcher(reg *Registry, tools *agent.ToolSet, cfg Config) (*Dispatcher, error) {
	if cfg.Resolve == nil {
		cfg.Resolve = llm.Resolve
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		registry: reg,
		tools:    tools,
		workers:  make(map[string]worker, reg.Len()),
		cfg:      cfg,
		logger:   logger,
	}
	for _, name := range reg.Names() {
		def, _ := reg.Get(name)
		w := worker{def: def, client: cfg.Client, model: cfg.Model}
		if def.Model != "" {
			client, model, err := cfg.Resolve(def.Model)
			if err != nil {
				return nil, fmt.Errorf("sub-agent %s model: %w", name, err)
			}
			w.client, w.model = client, model
		}
		d.workers[name] = w
	}
	return d, nil
}

// Run delegates description to the named worker. Failures come back as
// "Error: ..." text with an empty Update.
func (d *Dispatcher) Run(ctx context.Context, state *agent.State, description, subagentType string) (agent.Update, string) {
	w, ok := d.workers[subagentType]
	if !ok {
		d.cfg.Metrics.SubagentRun(subagentType, "rejected", 0)
		allowed := make([]string, 0, d.registry.Len())
		for _, name := range d.registry.Names() {
			allowed = append(allowed, "`"+name+"`")
		}
		return agent.Update{}, fmt.Sprintf("Error: invoked agent of type %s, the only allowed types are [%s]",
			subagentType, strings.Join(allowed, ", "))
	}
	if strings.TrimSpace(description) == "" {
		d.cfg.Metrics.SubagentRun(subagentType, "rejected", 0)
		return agent.Update{}, "Error: description is required"
	}
	depth := agent.DepthFromContext(ctx)
	if d.cfg.MaxDepth > 0 && depth >= d.cfg.MaxDepth {
		d.cfg.Metrics.SubagentRun(subagentType, "rejected", 0)
		return agent.Update{}, fmt.Sprintf("Error: maximum delegation depth %d reached, complete this task without delegating", d.cfg.MaxDepth)
	}

	runID := uuid.NewString()
	log := d.logger.With(
		zap.String("subagent", subagentType),
		zap.String("run_id", runID),
		zap.Int("depth", depth+1),
	)
	start := time.Now()
	span := agent.StartSpan(ctx, "subagent.run").
		Set("subagent", subagentType).
		Set("run_id", runID).
		Set("depth", depth+1)
	defer span.End()

	child := state.Fork(description)
	child.ThreadID = runID
	runCtx := agent.WithDepth(tracing.Scoped(ctx, "subagent/"+subagentType), depth+1)

	log.Info("sub-agent started")
	if err := d.newAgent(w).Run(runCtx, child); err != nil {
		outcome := "error"
		if errors.Is(err, agent.ErrIterationLimit) {
			outcome = "iteration_limit"
		}
		d.cfg.Metrics.SubagentRun(subagentType, outcome, time.Since(start))
		log.Warn("sub-agent failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		span.Set("error", err.Error())
		return agent.Update{}, fmt.Sprintf("Error: sub-agent %s failed: %v", subagentType, err)
	}

	delta := agent.DiffFiles(state.Files, child.Files)
	d.cfg.Metrics.SubagentRun(subagentType, "ok", time.Since(start))
	log.Info("sub-agent finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("files_changed", len(delta)),
		zap.Int("messages", len(child.Messages)),
	)
	span.Set("files_changed", len(delta))

	answer := agent.FinalAnswer(child)
	if len(delta) == 0 {
		return agent.Update{}, answer
	}
	return agent.Update{Files: delta}, answer
}

func (d *Dispatcher) newAgent(w worker) *agent.Agent {
	a := agent.NewAgent(w.def.Name, &agent.AgentConfig{
		Name:          w.def.Name,
		Model:         w.model,
		SystemPrompt:  w.def.Prompt,
		MaxIterations: d.cfg.MaxIterations,
	}, w.client, d.workerTools(w.def), d.cfg.Hooks)
	a.Logger = d.logger
	a.Metrics = d.cfg.Metrics
	return a
}

// workerTools resolves a definition's tool list. The task tool is only
// included when listed explicitly.
func (d *Dispatcher) workerTools(def Definition) []agent.Tool {
	if len(def.Tools) == 0 {
		return d.tools.All()
	}
	tools := make([]agent.Tool, 0, len(def.Tools))
	for _, name := range def.Tools {
		if name == TaskToolName {
			tools = append(tools, d.Tool())
			continue
		}
		if t := d.tools.Get(name); t != nil {
			tools = append(tools, t)
		}
	}
	return tools
}

// Tool returns the task tool.
func (d *Dispatcher) Tool() agent.Tool {
	return &agent.FuncTool{
		ToolName: TaskToolName,
		ToolDesc: fmt.Sprintf(taskDescriptionPrefix, d.registry.Catalog()),
		ToolParams: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"description": map[string]any{
					"type":        "string",
					"description": "Complete, self-contained description of the task for the sub-agent",
				},
				"subagent_type": map[string]any{
					"type":        "string",
					"enum":        d.registry.Names(),
					"description": "Which sub-agent to use",
				},
			},
			"required": []string{"description", "subagent_type"},
		},
		Fn: func(ctx context.Context, state *agent.State, args map[string]any) (agent.Update, string, error) {
			u, text := d.Run(ctx, state, agent.StringArg(args, "description"), agent.StringArg(args, "subagent_type"))
			return u, text, nil
		},
	}
}
