package wickdeep

import (
	"fmt"

	"go.uber.org/zap"

	"wick_deep/agent"
	"wick_deep/hooks"
	"wick_deep/llm"
	"wick_deep/metrics"
	"wick_deep/research"
	"wick_deep/subagent"
	"wick_deep/tracing"
)

// Builder turns agent configs into runnable agents: model client, hook
// chain, file/todo/research tools and the sub-agent dispatcher.
type Builder struct {
	Logger  *zap.Logger
	Metrics *metrics.Recorder
	// Resolve builds model clients. Defaults to llm.Resolve.
	Resolve func(spec any) (llm.Client, string, error)
	// Searcher replaces the Tavily client when set.
	Searcher research.Searcher
	// TavilyAPIKey is used when an agent's builtin_config has no tavily_api_key.
	TavilyAPIKey string
}

// Build implements agent.BuildFunc.
func (b *Builder) Build(agentID string, cfg *agent.AgentConfig) (*agent.Agent, error) {
	resolve := b.Resolve
	if resolve == nil {
		resolve = llm.Resolve
	}
	logger := b.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("agent", agentID))

	client, model, err := resolve(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("resolve model: %w", err)
	}

	traceHook := tracing.NewTracingHook()
	todoHook := hooks.NewTodoListHook()
	fsHook := hooks.NewFilesystemHook(logger, b.Metrics)
	summaryHook := hooks.NewSummarizationHook(client, cfg.ContextWindow, logger)

	base := agent.NewToolSet(fsHook.Tools()...)
	for _, t := range todoHook.Tools() {
		base.Add(t)
	}
	base.Add(research.ThinkTool())

	if searcher := b.searcher(cfg); searcher != nil {
		sumClient, sumModel := client, model
		concurrency := 0
		if cfg.Research != nil {
			concurrency = cfg.Research.Concurrency
			if cfg.Research.SummaryModel != "" {
				sumClient, sumModel, err = resolve(cfg.Research.SummaryModel)
				if err != nil {
					return nil, fmt.Errorf("resolve summary model: %w", err)
				}
			}
		}
		summarizer := research.NewSummarizer(sumClient, sumModel, concurrency, logger, b.Metrics)
		base.Add(research.NewPipeline(searcher, summarizer, cfg.Research, logger, b.Metrics).Tool())
	}

	agentHooks := []agent.Hook{traceHook, todoHook, fsHook}
	if cfg.Memory != nil && len(cfg.Memory.Paths) > 0 {
		agentHooks = append(agentHooks, hooks.NewMemoryHook(cfg.Memory.Paths, cfg.Memory.InitialContent))
	}
	if cfg.Skills != nil {
		agentHooks = append(agentHooks, hooks.NewSkillsHook(cfg.Skills.Paths))
	}
	agentHooks = append(agentHooks, summaryHook)

	available := base
	if len(cfg.Subagents) > 0 {
		reg, err := subagent.NewRegistry(subagent.FromConfig(cfg.Subagents), base)
		if err != nil {
			return nil, fmt.Errorf("subagents: %w", err)
		}
		d, err := subagent.NewDispatcher(reg, base, subagent.Config{
			Client:        client,
			Model:         model,
			Resolve:       resolve,
			Hooks:         []agent.Hook{traceHook, todoHook, fsHook, summaryHook},
			MaxDepth:      cfg.Depth(),
			MaxIterations: cfg.MaxIterations,
			Logger:        logger,
			Metrics:       b.Metrics,
		})
		if err != nil {
			return nil, err
		}
		available = agent.NewToolSet(append(base.All(), d.Tool())...)
	}

	tools, err := selectTools(available, cfg.Tools)
	if err != nil {
		return nil, err
	}

	a := agent.NewAgent(agentID, cfg, client, tools, agentHooks)
	a.Logger = logger
	a.Metrics = b.Metrics
	logger.Info("agent built",
		zap.String("model", cfg.ModelStr()),
		zap.Int("tools", len(tools)),
		zap.Int("subagents", len(cfg.Subagents)),
	)
	return a, nil
}

func (b *Builder) searcher(cfg *agent.AgentConfig) research.Searcher {
	if b.Searcher != nil {
		return b.Searcher
	}
	key := cfg.BuiltinConfig["tavily_api_key"]
	if key == "" {
		key = b.TavilyAPIKey
	}
	if key == "" {
		return nil
	}
	return research.NewTavilyClient(key, cfg.BuiltinConfig["tavily_base_url"])
}

// selectTools narrows the set to names. An empty list selects everything.
func selectTools(set *agent.ToolSet, names []string) ([]agent.Tool, error) {
	for _, name := range names {
		if !set.Has(name) {
			return nil, fmt.Errorf("unknown tool %q (available: %v)", name, set.Names())
		}
	}
	return set.Subset(names), nil
}
