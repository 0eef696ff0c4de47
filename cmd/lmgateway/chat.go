package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/lmgateway/config"
	"github.com/BaSui01/lmgateway/internal/database"
	"github.com/BaSui01/lmgateway/internal/metrics"
	"github.com/BaSui01/lmgateway/internal/server"
	"github.com/BaSui01/lmgateway/internal/telemetry"
	"github.com/BaSui01/lmgateway/llm"
	"github.com/BaSui01/lmgateway/workflow"
	"github.com/BaSui01/lmgateway/workflow/nodes/lmgateway"
	"github.com/BaSui01/lmgateway/workflow/rundata"
)

const shutdownTimeout = 5 * time.Second

type chatOptions struct {
	configPath string
	prompt     string
	stream     bool
	rps        float64
	items      int
}

func parseChatFlags(args []string) (chatOptions, error) {
	var opts chatOptions
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "Path to config file")
	fs.StringVar(&opts.prompt, "prompt", "Hello!", "Prompt sent to the model")
	fs.BoolVar(&opts.stream, "stream", false, "Stream the answer")
	fs.Float64Var(&opts.rps, "rps", -1, "Client-side requests per second (overrides config)")
	fs.IntVar(&opts.items, "items", 1, "Number of items to supply")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.items <= 0 {
		return opts, fmt.Errorf("--items must be positive, got %d", opts.items)
	}
	return opts, nil
}

func runChat(ctx context.Context, args []string, w io.Writer) error {
	opts, err := parseChatFlags(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.rps >= 0 {
		cfg.Execution.RateLimitRPS = opts.rps
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("starting lmgateway chat",
		zap.String("version", Version),
		zap.String("git_commit", GitCommit),
	)
	return chat(ctx, cfg, opts, logger, w)
}

// chat supplies the gateway model for opts.items items and talks to item 0.
func chat(ctx context.Context, cfg *config.Config, opts chatOptions, logger *zap.Logger, w io.Writer) error {
	otelProviders, err := telemetry.Init(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := otelProviders.Shutdown(sctx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(cfg.Metrics.Namespace, reg, logger)

	if cfg.Metrics.Enabled {
		srv := server.NewManager(reg, server.Config{
			Addr:            cfg.Metrics.Addr,
			Path:            cfg.Metrics.Path,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: shutdownTimeout,
		}, logger)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer func() { _ = srv.Shutdown(context.WithoutCancel(ctx)) }()
	}

	store, err := rundata.Open(ctx, cfg.RunData, logger)
	if err != nil {
		return fmt.Errorf("open run data store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close run data store", zap.Error(err))
		}
	}()

	runner := workflow.NewRunner(
		newRegistry(newLimiter(cfg.Execution)),
		cfg.Execution.Concurrency,
		workflow.WithLogger(logger),
		workflow.WithStore(store),
		workflow.WithTracer(otelProviders.Tracer("github.com/BaSui01/lmgateway")),
		workflow.WithMetrics(collector),
	)

	node := &workflow.Node{
		ID:          uuid.NewString(),
		Name:        "LLM Gateway",
		Type:        lmgateway.NodeType,
		TypeVersion: 1,
		Parameters:  cfg.Gateway.Parameters(),
	}

	res, err := runner.Supply(ctx, node, opts.items)
	collector.RecordSupply(node.Type, err)
	if err != nil {
		return err
	}
	defer func() { _ = res.Close() }()

	model, ok := res.Items[0].Response.(llm.Provider)
	if !ok {
		return fmt.Errorf("node %q supplied %T, not a chat model", node.Name, res.Items[0].Response)
	}

	req := &llm.ChatRequest{
		TraceID:  res.Context.ExecutionID(),
		Messages: []llm.Message{{Role: llm.RoleUser, Content: opts.prompt}},
	}
	if opts.stream {
		err = streamAnswer(ctx, model, req, w)
	} else {
		err = completeAnswer(ctx, model, req, w)
	}
	if err != nil {
		return err
	}

	if s, ok := store.(interface{ Stats() database.PoolStats }); ok {
		stats := s.Stats()
		collector.RecordDBConnections("run_data", stats.OpenConnections, stats.Idle)
	}

	entries, err := store.List(ctx, res.Context.ExecutionID())
	if err != nil {
		return fmt.Errorf("list run data: %w", err)
	}
	fmt.Fprintf(w, "--- execution %s: %d run data entries\n", res.Context.ExecutionID(), len(entries))
	return nil
}

func completeAnswer(ctx context.Context, model llm.Provider, req *llm.ChatRequest, w io.Writer) error {
	resp, err := model.Completion(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, resp.FirstContent())
	return nil
}

func streamAnswer(ctx context.Context, model llm.Provider, req *llm.ChatRequest, w io.Writer) error {
	chunks, err := model.Stream(ctx, req)
	if err != nil {
		return err
	}
	for chunk := range chunks {
		if chunk.Err != nil {
			// 排空通道，让生产者退出
			for range chunks {
			}
			return chunk.Err
		}
		fmt.Fprint(w, chunk.Delta.Content)
	}
	fmt.Fprintln(w)
	return ctx.Err()
}

// newLimiter returns nil when rate limiting is off.
func newLimiter(cfg config.ExecutionConfig) *rate.Limiter {
	if cfg.RateLimitRPS <= 0 {
		return nil
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
}
