package nodeutil

import (
	"sync"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/lmgateway/workflow"
	"github.com/BaSui01/lmgateway/workflow/rundata"
)

type recordedRequest struct {
	provider, model, status string
}

type fakeMetrics struct {
	mu       sync.Mutex
	requests []recordedRequest
	tokens   [][2]int
	failed   []bool
}

func (m *fakeMetrics) RecordLLMRequest(provider, model, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, recordedRequest{provider, model, status})
}

func (m *fakeMetrics) RecordTokens(_, _ string, prompt, completion int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = append(m.tokens, [2]int{prompt, completion})
}

func (m *fakeMetrics) RecordFailedAttempt(_ string, aborted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = append(m.failed, aborted)
}

type harness struct {
	ec      *workflow.ExecutionContext
	store   *rundata.MemoryStore
	spans   *tracetest.SpanRecorder
	metrics *fakeMetrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })

	h := &harness{
		store:   rundata.NewMemoryStore(),
		spans:   sr,
		metrics: &fakeMetrics{},
	}
	h.ec = workflow.NewExecutionContext(nil, &workflow.Node{Name: "LLM Gateway"},
		workflow.WithLogger(zaptest.NewLogger(t)),
		workflow.WithStore(h.store),
		workflow.WithTracer(tp.Tracer("test")),
		workflow.WithMetrics(h.metrics),
		workflow.WithExecutionID("exec"),
	)
	return h
}

func (h *harness) entries(t *testing.T) []rundata.Entry {
	t.Helper()
	got, err := h.store.List(t.Context(), "exec")
	if err != nil {
		t.Fatal(err)
	}
	return got
}
