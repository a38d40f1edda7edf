// Package wickdeep wires agents from agents.yaml into an HTTP server:
// thread-scoped state, traces, Prometheus metrics and the agent builder.
package wickdeep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"wick_deep/agent"
	"wick_deep/handlers"
	"wick_deep/llm"
	"wick_deep/metrics"
	"wick_deep/research"
	"wick_deep/tracing"
)

// Server is the main wick_deep instance. Create one with New(), register
// agents, then call Start() to run the HTTP server.
type Server struct {
	host       string
	port       int
	configFile string
	tavilyKey  string
	threadTTL  time.Duration
	traceSize  int
	logger     *zap.Logger
	resolve    func(spec any) (llm.Client, string, error)
	searcher   research.Searcher

	agents map[string]*agent.AgentConfig

	registry *agent.Registry
	threads  *agent.ThreadStore
	traces   *tracing.Store
	promReg  *prometheus.Registry
	metrics  *metrics.Recorder
	srv      *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithPort sets the listen port (default 8000).
func WithPort(port int) Option {
	return func(s *Server) { s.port = port }
}

// WithHost sets the listen host (default "0.0.0.0").
func WithHost(host string) Option {
	return func(s *Server) { s.host = host }
}

// WithConfigFile sets the path to an agents.yaml config file.
func WithConfigFile(path string) Option {
	return func(s *Server) { s.configFile = path }
}

// WithTavilyKey sets the default Tavily API key for the search tool.
func WithTavilyKey(key string) Option {
	return func(s *Server) { s.tavilyKey = key }
}

// WithThreadTTL sets how long idle thread state is kept.
func WithThreadTTL(ttl time.Duration) Option {
	return func(s *Server) { s.threadTTL = ttl }
}

// WithTraceStoreSize sets how many traces are retained.
func WithTraceStoreSize(n int) Option {
	return func(s *Server) { s.traceSize = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithModelResolver replaces llm.Resolve.
func WithModelResolver(fn func(spec any) (llm.Client, string, error)) Option {
	return func(s *Server) { s.resolve = fn }
}

// WithSearcher replaces the Tavily search client.
func WithSearcher(searcher research.Searcher) Option {
	return func(s *Server) { s.searcher = searcher }
}

// New creates a new Server with the given options.
func New(opts ...Option) *Server {
	s := &Server{
		host:      "0.0.0.0",
		port:      8000,
		threadTTL: time.Hour,
		traceSize: 100,
		logger:    zap.NewNop(),
		agents:    make(map[string]*agent.AgentConfig),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// RegisterAgent registers an agent template before Start().
func (s *Server) RegisterAgent(id string, cfg *agent.AgentConfig) {
	s.agents[id] = cfg
}

// Builder returns the agent builder wired to the server's metrics and options.
func (s *Server) Builder() *Builder {
	return &Builder{
		Logger:       s.logger,
		Metrics:      s.metrics,
		Resolve:      s.resolve,
		Searcher:     s.searcher,
		TavilyAPIKey: s.tavilyKey,
	}
}

// Handler initializes dependencies and returns the route handler. Call Close
// when done to stop background eviction.
func (s *Server) Handler() (http.Handler, error) {
	s.promReg = prometheus.NewRegistry()
	s.promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	s.metrics = metrics.NewRecorder(s.promReg)
	s.registry = agent.NewRegistry()
	s.traces = tracing.NewStore(s.traceSize)

	for id, cfg := range s.agents {
		s.registry.RegisterTemplate(id, cfg)
		s.logger.Info("registered agent", zap.String("agent", id), zap.String("name", cfg.Name))
	}

	if s.configFile != "" {
		s.logger.Info("loading config", zap.String("path", s.configFile))
		cfgs, err := LoadConfigFile(s.configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		for id, cfg := range cfgs {
			s.registry.RegisterTemplate(id, cfg)
			s.logger.Info("loaded agent", zap.String("agent", id), zap.String("model", cfg.ModelStr()))
		}
	}

	s.threads = agent.NewThreadStore(s.threadTTL)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":         "ok",
			"agents_loaded":  s.registry.TemplateCount(),
			"active_threads": s.threads.Len(),
		})
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{}))
	handlers.RegisterRoutes(mux, &handlers.Deps{
		Registry:   s.registry,
		Build:      s.Builder().Build,
		Threads:    s.threads,
		TraceStore: s.traces,
		Logger:     s.logger,
	})
	return corsMiddleware(mux), nil
}

// Start builds routes and runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}
	defer s.Close()

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // agent runs can be long
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("wick_deep starting", zap.String("addr", addr), zap.Strings("agents", s.registry.ListTemplates()))
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		if err := s.Shutdown(); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown() error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// Close stops background work started by Handler.
func (s *Server) Close() {
	if s.threads != nil {
		s.threads.Close()
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
