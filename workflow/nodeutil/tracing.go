package nodeutil

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/lmgateway/llm"
	"github.com/BaSui01/lmgateway/llm/tokenizer"
	"github.com/BaSui01/lmgateway/workflow"
)

// TokenUsage is the token accounting recorded with each output.
type TokenUsage struct {
	CompletionTokens int `json:"completionTokens"`
	PromptTokens     int `json:"promptTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// LLMTracing records every model run of a node as run data, AI events,
// spans and metrics.
type LLMTracing struct {
	fns       workflow.SupplyDataFunctions
	conn      workflow.ConnectionType
	itemIndex int
	tokenizer tokenizer.Tokenizer

	mu   sync.Mutex
	runs map[string]*tracedRun
}

type tracedRun struct {
	runIndex     int
	span         trace.Span
	started      time.Time
	promptTokens int
	messages     []llm.Message
}

// TracingOption configures LLMTracing.
type TracingOption func(*LLMTracing)

// WithItemIndex sets the item the recorded input belongs to.
func WithItemIndex(i int) TracingOption {
	return func(t *LLMTracing) { t.itemIndex = i }
}

// WithTokenizer replaces the per-model tokenizer used for estimates.
func WithTokenizer(tk tokenizer.Tokenizer) TracingOption {
	return func(t *LLMTracing) { t.tokenizer = tk }
}

// WithConnectionType overrides the ai_languageModel connection.
func WithConnectionType(c workflow.ConnectionType) TracingOption {
	return func(t *LLMTracing) { t.conn = c }
}

// NewLLMTracing binds a tracing callback to fns.
func NewLLMTracing(fns workflow.SupplyDataFunctions, opts ...TracingOption) *LLMTracing {
	t := &LLMTracing{
		fns:  fns,
		conn: workflow.ConnectionAILanguageModel,
		runs: make(map[string]*tracedRun),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *LLMTracing) tokenizerFor(model string) tokenizer.Tokenizer {
	if t.tokenizer != nil {
		return t.tokenizer
	}
	return tokenizer.ForModel(model)
}

func (t *LLMTracing) HandleLLMStart(ctx context.Context, run *llm.Run) {
	var messages []llm.Message
	if run.Request != nil {
		messages = run.Request.Messages
	}

	prompt, err := t.tokenizerFor(run.Model).CountMessages(toTokenizerMessages(messages))
	if err != nil {
		t.fns.Logger().Debug("prompt token estimate failed", zap.Error(err))
	}

	runIndex := t.fns.AddInputData(ctx, t.conn, t.itemIndex, map[string]any{
		"messages":        messages,
		"estimatedTokens": prompt,
		"options":         run.Options,
	})

	_, span := t.fns.Tracer().Start(ctx, "llm.chat",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.run_id", run.ID),
			attribute.String("llm.provider", run.Provider),
			attribute.String("llm.model", run.Model),
			attribute.Int("llm.messages", len(messages)),
			attribute.Int("llm.run_index", runIndex),
		))

	t.mu.Lock()
	t.runs[run.ID] = &tracedRun{
		runIndex:     runIndex,
		span:         span,
		started:      time.Now(),
		promptTokens: prompt,
		messages:     messages,
	}
	t.mu.Unlock()
}

func (t *LLMTracing) HandleLLMEnd(ctx context.Context, run *llm.Run, resp *llm.ChatResponse) {
	tr := t.take(run)

	usage, estimated := t.usage(run, tr, resp)
	usageKey := "tokenUsage"
	if estimated {
		usageKey = "tokenUsageEstimate"
	}

	generations := make([]string, 0, 1)
	if resp != nil {
		for _, c := range resp.Choices {
			generations = append(generations, c.Message.Content)
		}
	}
	response := map[string]any{"generations": generations}
	t.fns.AddOutputData(ctx, t.conn, tr.runIndex, map[string]any{
		"response": response,
		usageKey:   usage,
	}, nil)

	t.logEvent(workflow.AIEventLLMGeneratedOutput, map[string]any{
		"messages": tr.messages,
		"options":  run.Options,
		"response": response,
	})

	m := t.fns.Metrics()
	m.RecordLLMRequest(run.Provider, run.Model, "success", time.Since(tr.started))
	m.RecordTokens(run.Provider, run.Model, usage.PromptTokens, usage.CompletionTokens)

	if tr.span != nil {
		tr.span.SetAttributes(
			attribute.Int("llm.prompt_tokens", usage.PromptTokens),
			attribute.Int("llm.completion_tokens", usage.CompletionTokens),
			attribute.Bool("llm.usage_estimated", estimated),
		)
		tr.span.SetStatus(codes.Ok, "")
		tr.span.End()
	}
}

func (t *LLMTracing) HandleLLMError(ctx context.Context, run *llm.Run, err error) {
	tr := t.take(run)

	// 非 NodeAPIError 统一归为 configuration-node 错误
	recorded := err
	var apiErr *workflow.NodeAPIError
	if !errors.As(err, &apiErr) {
		recorded = workflow.NewNodeAPIError(t.fns.Node(), err,
			workflow.WithFunctionality(workflow.FunctionalityConfigurationNode))
	}
	t.fns.AddOutputData(ctx, t.conn, tr.runIndex, nil, recorded)

	t.logEvent(workflow.AIEventLLMErrored, map[string]any{
		"error": err.Error(),
		"runId": run.ID,
	})

	t.fns.Metrics().RecordLLMRequest(run.Provider, run.Model, "error", time.Since(tr.started))

	if tr.span != nil {
		tr.span.RecordError(err)
		tr.span.SetStatus(codes.Error, err.Error())
		tr.span.End()
	}
}

// take removes the state of run. A run that never started gets a fresh
// input record so its output still has a run index.
func (t *LLMTracing) take(run *llm.Run) *tracedRun {
	t.mu.Lock()
	tr, ok := t.runs[run.ID]
	delete(t.runs, run.ID)
	t.mu.Unlock()
	if ok {
		return tr
	}
	return &tracedRun{
		runIndex: t.fns.AddInputData(context.Background(), t.conn, t.itemIndex, nil),
		started:  time.Now(),
	}
}

// usage prefers what the upstream reported and estimates otherwise.
func (t *LLMTracing) usage(run *llm.Run, tr *tracedRun, resp *llm.ChatResponse) (TokenUsage, bool) {
	if resp != nil && !resp.Usage.IsZero() {
		total := resp.Usage.TotalTokens
		if total == 0 {
			total = resp.Usage.PromptTokens + resp.Usage.CompletionTokens
		}
		return TokenUsage{
			CompletionTokens: resp.Usage.CompletionTokens,
			PromptTokens:     resp.Usage.PromptTokens,
			TotalTokens:      total,
		}, false
	}

	completion, err := t.tokenizerFor(run.Model).CountTokens(resp.FirstContent())
	if err != nil {
		t.fns.Logger().Debug("completion token estimate failed", zap.Error(err))
	}
	return TokenUsage{
		CompletionTokens: completion,
		PromptTokens:     tr.promptTokens,
		TotalTokens:      completion + tr.promptTokens,
	}, true
}

func (t *LLMTracing) logEvent(event workflow.AIEvent, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		t.fns.Logger().Warn("ai event payload is not serializable", zap.Error(err))
		return
	}
	t.fns.LogAIEvent(event, string(data))
}

func toTokenizerMessages(messages []llm.Message) []tokenizer.Message {
	out := make([]tokenizer.Message, len(messages))
	for i, m := range messages {
		out[i] = tokenizer.Message{Role: string(m.Role), Content: m.Content}
	}
	return out
}

var _ llm.CallbackHandler = (*LLMTracing)(nil)
