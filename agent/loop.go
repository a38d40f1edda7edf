package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wick_deep/llm"
	"wick_deep/metrics"
)

// ErrIterationLimit is returned by Run when the model is still calling tools
// after the configured number of iterations.
var ErrIterationLimit = errors.New("iteration limit reached")

// Agent is a configured controller ready to run.
type Agent struct {
	ID      string
	Config  *AgentConfig
	LLM     llm.Client
	Tools   []Tool
	Hooks   []Hook
	Logger  *zap.Logger
	Metrics *metrics.Recorder
}

// NewAgent creates a new Agent with the given configuration.
func NewAgent(id string, cfg *AgentConfig, llmClient llm.Client, tools []Tool, hooks []Hook) *Agent {
	return &Agent{
		ID:     id,
		Config: cfg,
		LLM:    llmClient,
		Tools:  tools,
		Hooks:  hooks,
		Logger: zap.NewNop(),
	}
}

// Run drives the model/tool loop over state until the model stops calling
// tools. Hitting the iteration bound first returns ErrIterationLimit with the
// state left as it was. The caller appends the new input to state.Messages first. Tool updates are applied in call order after every
// call of a turn has returned.
func (a *Agent) Run(ctx context.Context, state *State) error {
	start := time.Now()
	log := a.logger().With(
		zap.String("agent", a.ID),
		zap.String("thread", state.ThreadID),
		zap.Int("depth", DepthFromContext(ctx)),
	)
	tr := TraceFromContext(ctx)

	if state.Files == nil {
		state.Files = make(map[string]string)
	}

	for _, hook := range a.Hooks {
		s := StartSpan(ctx, "hook.before_agent/"+hook.Name())
		if err := hook.BeforeAgent(ctx, state); err != nil {
			s.Set("error", err.Error()).End()
			return fmt.Errorf("hook %s BeforeAgent: %w", hook.Name(), err)
		}
		s.End()
	}

	toolMap := make(map[string]Tool, len(a.Tools))
	for _, t := range a.Tools {
		toolMap[t.Name()] = t
	}
	toolSchemas := buildToolSchemas(toolMap)
	if tr != nil {
		names := make([]string, 0, len(toolSchemas))
		for _, s := range toolSchemas {
			names = append(names, s.Name)
		}
		tr.RecordEvent("tools.available", map[string]any{"count": len(names), "tools": names})
	}
	modelCall := a.buildModelChain(toolSchemas)

	maxIter := a.Config.Iterations()
	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		msgs := make([]Message, len(state.Messages))
		copy(msgs, state.Messages)
		for _, hook := range a.Hooks {
			s := StartSpan(ctx, "hook.modify_request/"+hook.Name()).Set("iteration", iter)
			var err error
			msgs, err = hook.ModifyRequest(ctx, state, msgs)
			if err != nil {
				s.Set("error", err.Error()).End()
				return fmt.Errorf("hook %s ModifyRequest: %w", hook.Name(), err)
			}
			s.Set("message_count", len(msgs)).End()
		}

		if tr != nil {
			tr.RecordEvent("llm.input", map[string]any{
				"iteration":     iter,
				"message_count": len(msgs),
			})
		}

		resp, err := modelCall(ctx, msgs)
		if err != nil {
			a.Metrics.ModelCall(a.ID, "error")
			return fmt.Errorf("LLM call: %w", err)
		}
		a.Metrics.ModelCall(a.ID, "ok")

		calls := toToolCalls(resp.ToolCalls)
		state.Messages = append(state.Messages, AI(resp.Content, calls...))
		log.Debug("model turn", zap.Int("iteration", iter), zap.Int("tool_calls", len(calls)))

		if len(calls) == 0 {
			log.Debug("run finished", zap.Int("iterations", iter+1), zap.Duration("elapsed", time.Since(start)))
			return nil
		}

		results := a.executeTools(ctx, state, calls, toolMap)
		for _, r := range results {
			state.Messages = append(state.Messages, ToolMsg(r.ToolCallID, r.Name, r.Output))
			state.Apply(r.Update)
		}
	}

	log.Warn("iteration limit reached", zap.Int("max_iterations", maxIter), zap.Duration("elapsed", time.Since(start)))
	return fmt.Errorf("%w after %d model calls", ErrIterationLimit, maxIter)
}

// FinalAnswer returns the content of the last message in state.
func FinalAnswer(state *State) string {
	return Messages(state.Messages).LastContent()
}

// executeTools runs the calls of one turn concurrently and returns their
// results in call order.
func (a *Agent) executeTools(ctx context.Context, state *State, calls []ToolCall, toolMap map[string]Tool) []ToolResult {
	chain := a.buildToolCallChain(state, toolMap)
	results := make([]ToolResult, len(calls))

	var wg sync.WaitGroup
	for i, tc := range calls {
		wg.Add(1)
		go func(idx int, tc ToolCall) {
			defer wg.Done()
			wrapped, err := chain(ctx, tc)
			var result ToolResult
			switch {
			case err != nil:
				result = ToolResult{ToolCallID: tc.ID, Name: tc.Name, Error: err.Error(), Output: "Error: " + err.Error()}
			case wrapped != nil:
				result = *wrapped
			default:
				result = ToolResult{ToolCallID: tc.ID, Name: tc.Name}
			}
			status := "ok"
			if result.Error != "" {
				status = "error"
			}
			a.Metrics.ToolCall(a.ID, tc.Name, status)
			results[idx] = result
		}(i, tc)
	}
	wg.Wait()
	return results
}

func (a *Agent) executeTool(ctx context.Context, state *State, tc ToolCall, toolMap map[string]Tool) ToolResult {
	tool, ok := toolMap[tc.Name]
	if !ok {
		return ToolResult{
			ToolCallID: tc.ID,
			Name:       tc.Name,
			Error:      fmt.Sprintf("unknown tool: %s", tc.Name),
			Output:     fmt.Sprintf("Error: tool %q not found", tc.Name),
		}
	}

	update, output, err := tool.Execute(ctx, state, tc.Args)
	if err != nil {
		a.logger().Debug("tool failed", zap.String("tool", tc.Name), zap.Error(err))
		return ToolResult{
			ToolCallID: tc.ID,
			Name:       tc.Name,
			Error:      err.Error(),
			Output:     "Error: " + err.Error(),
		}
	}

	return ToolResult{
		ToolCallID: tc.ID,
		Name:       tc.Name,
		Output:     output,
		Update:     update,
	}
}

func (a *Agent) buildModelChain(toolSchemas []llm.ToolSchema) ModelCallWrapFunc {
	base := func(ctx context.Context, msgs []Message) (*llm.Response, error) {
		req := llm.Request{
			Model:        a.Config.ModelStr(),
			Messages:     convertMessages(msgs),
			Tools:        toolSchemas,
			SystemPrompt: a.Config.SystemPrompt,
			MaxTokens:    4096,
		}
		return a.LLM.Call(ctx, req)
	}

	// Reverse order so index-0 is outermost.
	fn := base
	for i := len(a.Hooks) - 1; i >= 0; i-- {
		hook := a.Hooks[i]
		prev := fn
		fn = func(ctx context.Context, msgs []Message) (*llm.Response, error) {
			resp, err := hook.WrapModelCall(ctx, msgs, prev)
			if err != nil {
				return nil, err
			}
			if resp == nil {
				return prev(ctx, msgs)
			}
			return resp, nil
		}
	}
	return fn
}

// buildToolCallChain wraps tool execution with all WrapToolCall hooks.
func (a *Agent) buildToolCallChain(state *State, toolMap map[string]Tool) ToolCallFunc {
	base := func(ctx context.Context, tc ToolCall) (*ToolResult, error) {
		r := a.executeTool(ctx, state, tc, toolMap)
		return &r, nil
	}

	fn := base
	for i := len(a.Hooks) - 1; i >= 0; i-- {
		hook := a.Hooks[i]
		prev := fn
		fn = func(ctx context.Context, tc ToolCall) (*ToolResult, error) {
			return hook.WrapToolCall(ctx, tc, prev)
		}
	}
	return fn
}

func (a *Agent) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

// toToolCalls converts model tool calls, filling in IDs some providers omit.
func toToolCalls(in []llm.ToolCallResult) []ToolCall {
	if len(in) == 0 {
		return nil
	}
	out := make([]ToolCall, len(in))
	for i, tc := range in {
		id := tc.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		args := tc.Args
		if args == nil {
			args = map[string]any{}
		}
		out[i] = ToolCall{ID: id, Name: tc.Name, Args: args}
	}
	return out
}

func convertMessages(msgs []Message) []llm.Message {
	out := make([]llm.Message, len(msgs))
	for i, m := range msgs {
		out[i] = llm.Message{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
		}
		for _, tc := range m.ToolCalls {
			out[i].ToolCalls = append(out[i].ToolCalls, llm.ToolCallInfo{
				ID:   tc.ID,
				Name: tc.Name,
				Args: tc.Args,
			})
		}
	}
	return out
}

func buildToolSchemas(toolMap map[string]Tool) []llm.ToolSchema {
	schemas := make([]llm.ToolSchema, 0, len(toolMap))
	for _, t := range toolMap {
		schemas = append(schemas, llm.ToolSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	sort.Slice(schemas, func(i, j int) bool { return schemas[i].Name < schemas[j].Name })
	return schemas
}
