package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/lmgateway/llm"
	"github.com/BaSui01/lmgateway/llm/retry"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func baseConfig(url string) Config {
	return Config{
		APIKey:     "secret",
		Model:      "hubgpt-chat-completions-4.0",
		BaseURL:    url,
		MaxRetries: 0,
		RetryDelay: time.Millisecond,
	}
}

func chatRequest() *llm.ChatRequest {
	return &llm.ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}}}
}

func okBody(content string) string {
	return fmt.Sprintf(`{"id":"chatcmpl-1","model":"hubgpt-chat-completions-4.0","created":1700000000,`+
		`"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":%q}}],`+
		`"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`, content)
}

// recorder captures callback events.
type recorder struct {
	mu     sync.Mutex
	starts []*llm.Run
	ends   []*llm.ChatResponse
	errs   []error
}

func (r *recorder) HandleLLMStart(_ context.Context, run *llm.Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts = append(r.starts, run)
}

func (r *recorder) HandleLLMEnd(_ context.Context, _ *llm.Run, resp *llm.ChatResponse) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ends = append(r.ends, resp)
}

func (r *recorder) HandleLLMError(_ context.Context, _ *llm.Run, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

// ---------------------------------------------------------------------------
// New() constructor
// ---------------------------------------------------------------------------

func TestNew_Defaults(t *testing.T) {
	p, err := New(baseConfig("https://example/gateway/v1"), nil)
	require.NoError(t, err)

	cfg := p.Config()
	assert.Equal(t, DefaultProviderName, p.Name())
	assert.Equal(t, DefaultEndpointPath, cfg.EndpointPath)
	assert.Equal(t, DefaultModelsEndpoint, cfg.ModelsEndpoint)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, time.Millisecond, cfg.RetryDelay)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing api key", func(c *Config) { c.APIKey = " " }, "api key is required"},
		{"missing model", func(c *Config) { c.Model = "" }, "model is required"},
		{"missing base url", func(c *Config) { c.BaseURL = "" }, "base url is required"},
		{"relative base url", func(c *Config) { c.BaseURL = "gateway/v1" }, "want absolute http(s) url"},
		{"unsupported scheme", func(c *Config) { c.BaseURL = "ftp://example/v1" }, "want absolute http(s) url"},
		{"unparsable base url", func(c *Config) { c.BaseURL = "http://[::1" }, "invalid base url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig("https://example/gateway/v1")
			tt.mutate(&cfg)
			p, err := New(cfg, zap.NewNop())
			require.Error(t, err)
			assert.Nil(t, p)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNew_NegativeRetriesClamped(t *testing.T) {
	cfg := baseConfig("http://localhost")
	cfg.MaxRetries = -3
	p, err := New(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Config().MaxRetries)
}

// ---------------------------------------------------------------------------
// Completion
// ---------------------------------------------------------------------------

func TestCompletion_RequestShape(t *testing.T) {
	var gotBody map[string]any
	var gotAuth, gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, okBody("hello"))
	}))
	defer srv.Close()

	cfg := baseConfig(srv.URL + "/gateway/v1")
	cfg.Temperature = floatPtr(0.2)
	cfg.MaxTokens = intPtr(128)
	cfg.ModelKwargs = map[string]any{
		"response_format":  map[string]any{"type": "json_object"},
		"reasoning_effort": "high",
	}
	p, err := New(cfg, zap.NewNop())
	require.NoError(t, err)

	req := chatRequest()
	req.Temperature = floatPtr(0.9)
	resp, err := p.Completion(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "/gateway/v1/chat/completions", gotPath)
	assert.Equal(t, "hubgpt-chat-completions-4.0", gotBody["model"])
	assert.Equal(t, 0.9, gotBody["temperature"], "request value wins over config")
	assert.Equal(t, float64(128), gotBody["max_tokens"])
	assert.Equal(t, map[string]any{"type": "json_object"}, gotBody["response_format"])
	assert.Equal(t, "high", gotBody["reasoning_effort"])
	assert.NotContains(t, gotBody, "stream")

	assert.Equal(t, "hello", resp.FirstContent())
	assert.Equal(t, 5, resp.Usage.TotalTokens)
	assert.Equal(t, DefaultProviderName, resp.Provider)
	assert.Equal(t, int64(1700000000), resp.CreatedAt.Unix())
}

func TestCompletion_NilRequest(t *testing.T) {
	p, err := New(baseConfig("http://localhost"), nil)
	require.NoError(t, err)

	_, err = p.Completion(context.Background(), nil)
	e, ok := llm.AsError(err)
	require.True(t, ok)
	assert.Equal(t, llm.ErrInvalidRequest, e.Code)
}

func TestCompletion_ErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCode  llm.ErrorCode
		retryable bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad token","type":"auth"}}`, llm.ErrUnauthorized, false},
		{"not found", http.StatusNotFound, `{"error":{"message":"no such model"}}`, llm.ErrNotFound, false},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down","code":"rate_limit_exceeded"}}`, llm.ErrRateLimited, true},
		{"quota", http.StatusTooManyRequests, `{"error":{"message":"no money","code":"insufficient_quota"}}`, llm.ErrQuotaExceeded, false},
		{"bad gateway", http.StatusBadGateway, `upstream down`, llm.ErrUpstreamError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			p, err := New(baseConfig(srv.URL), nil)
			require.NoError(t, err)

			_, err = p.Completion(context.Background(), chatRequest())
			require.Error(t, err)
			e, ok := llm.AsError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, e.Code)
			assert.Equal(t, tt.status, e.HTTPStatus)
			assert.Equal(t, tt.retryable, e.Retryable)
		})
	}
}

func TestCompletion_RetriesRetryableWithoutHook(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, okBody("ok"))
	}))
	defer srv.Close()

	cfg := baseConfig(srv.URL)
	cfg.MaxRetries = 2
	p, err := New(cfg, nil)
	require.NoError(t, err)

	resp, err := p.Completion(context.Background(), chatRequest())
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.FirstContent())
	assert.Equal(t, int32(3), calls.Load())
}

func TestCompletion_NonRetryableWithoutHook(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	cfg := baseConfig(srv.URL)
	cfg.MaxRetries = 4
	p, err := New(cfg, nil)
	require.NoError(t, err)

	_, err = p.Completion(context.Background(), chatRequest())
	require.Error(t, err)
	assert.False(t, errors.Is(err, retry.ErrRetriesExhausted))
	assert.Equal(t, int32(1), calls.Load())
}

func TestCompletion_FailedAttemptHook(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	t.Run("hook sees attempt numbers and retries left", func(t *testing.T) {
		calls.Store(0)
		var seen []llm.FailedAttempt
		cfg := baseConfig(srv.URL)
		cfg.MaxRetries = 2
		cfg.OnFailedAttempt = func(_ context.Context, a *llm.FailedAttempt) error {
			seen = append(seen, *a)
			return nil
		}
		p, err := New(cfg, nil)
		require.NoError(t, err)

		_, err = p.Completion(context.Background(), chatRequest())
		require.Error(t, err)
		assert.ErrorIs(t, err, retry.ErrRetriesExhausted)
		require.Len(t, seen, 3)
		for i, a := range seen {
			assert.Equal(t, i+1, a.AttemptNumber)
			assert.Equal(t, 2-i, a.RetriesLeft)
			assert.Equal(t, http.StatusInternalServerError, llm.HTTPStatusOf(a.Err))
		}
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("hook abort stops immediately", func(t *testing.T) {
		calls.Store(0)
		abort := errors.New("stop")
		cfg := baseConfig(srv.URL)
		cfg.MaxRetries = 5
		cfg.OnFailedAttempt = func(_ context.Context, a *llm.FailedAttempt) error { return abort }
		p, err := New(cfg, nil)
		require.NoError(t, err)

		_, err = p.Completion(context.Background(), chatRequest())
		assert.Same(t, abort, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("hook owns retry decision for non-retryable errors", func(t *testing.T) {
		var n atomic.Int32
		badReq := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n.Add(1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer badReq.Close()

		cfg := baseConfig(badReq.URL)
		cfg.MaxRetries = 1
		cfg.OnFailedAttempt = func(context.Context, *llm.FailedAttempt) error { return nil }
		p, err := New(cfg, nil)
		require.NoError(t, err)

		_, err = p.Completion(context.Background(), chatRequest())
		require.Error(t, err)
		assert.Equal(t, int32(2), n.Load())
	})
}

func TestCompletion_Callbacks(t *testing.T) {
	t.Run("start and end", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, okBody("done"))
		}))
		defer srv.Close()

		rec := &recorder{}
		cfg := baseConfig(srv.URL)
		cfg.Temperature = floatPtr(0.7)
		cfg.ModelKwargs = map[string]any{"reasoning_effort": "medium"}
		cfg.Callbacks = llm.Callbacks{rec}
		p, err := New(cfg, nil)
		require.NoError(t, err)

		_, err = p.Completion(context.Background(), chatRequest())
		require.NoError(t, err)

		require.Len(t, rec.starts, 1)
		run := rec.starts[0]
		assert.NotEmpty(t, run.ID)
		assert.Equal(t, "hubgpt-chat-completions-4.0", run.Model)
		assert.Equal(t, 0.7, run.Options["temperature"])
		assert.Equal(t, "medium", run.Options["reasoning_effort"])
		require.Len(t, rec.ends, 1)
		assert.Equal(t, "done", rec.ends[0].FirstContent())
		assert.Empty(t, rec.errs)
	})

	t.Run("error once per call", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		rec := &recorder{}
		cfg := baseConfig(srv.URL)
		cfg.MaxRetries = 2
		cfg.Callbacks = llm.Callbacks{rec, nil}
		p, err := New(cfg, nil)
		require.NoError(t, err)

		_, err = p.Completion(context.Background(), chatRequest())
		require.Error(t, err)
		assert.Len(t, rec.starts, 1)
		assert.Len(t, rec.errs, 1)
		assert.Empty(t, rec.ends)
	})
}

func TestCompletion_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	cfg := baseConfig(srv.URL)
	cfg.MaxRetries = 3
	var seen []error
	cfg.OnFailedAttempt = func(_ context.Context, a *llm.FailedAttempt) error {
		seen = append(seen, a.Err)
		return a.Err
	}
	p, err := New(cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = p.Completion(ctx, chatRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.Len(t, seen, 1)
}

func TestCompletion_AttemptTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	cfg := baseConfig(srv.URL)
	cfg.Timeout = 30 * time.Millisecond
	p, err := New(cfg, nil)
	require.NoError(t, err)

	_, err = p.Completion(context.Background(), chatRequest())
	e, ok := llm.AsError(err)
	require.True(t, ok)
	assert.Equal(t, llm.ErrUpstreamTimeout, e.Code)
}

func TestCompletion_Limiter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, okBody("ok"))
	}))
	defer srv.Close()

	p, err := New(baseConfig(srv.URL), nil)
	require.NoError(t, err)
	limited := p.WithLimiter(rate.NewLimiter(rate.Limit(1), 1))
	assert.Nil(t, p.Config().Limiter)

	_, err = limited.Completion(context.Background(), chatRequest())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = limited.Completion(ctx, chatRequest())
	require.Error(t, err, "second call cannot get a token before the deadline")
}

// ---------------------------------------------------------------------------
// Stream
// ---------------------------------------------------------------------------

func sseServer(t *testing.T, events ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["stream"])
		assert.Equal(t, map[string]any{"include_usage": true}, body["stream_options"])

		w.Header().Set("Content-Type", "text/event-stream")
		for _, ev := range events {
			_, _ = fmt.Fprintf(w, "data: %s\n\n", ev)
		}
	}))
}

func TestStream_AggregatesForCallbacks(t *testing.T) {
	srv := sseServer(t,
		`{"id":"s1","model":"m","choices":[{"index":0,"delta":{"role":"assistant","content":"Hel"}}]}`,
		`{"id":"s1","model":"m","choices":[{"index":0,"delta":{"content":"lo"},"finish_reason":"stop"}]}`,
		`{"id":"s1","model":"m","choices":[],"usage":{"prompt_tokens":4,"completion_tokens":2,"total_tokens":6}}`,
		`[DONE]`,
	)
	defer srv.Close()

	rec := &recorder{}
	cfg := baseConfig(srv.URL)
	cfg.Callbacks = llm.Callbacks{rec}
	p, err := New(cfg, nil)
	require.NoError(t, err)

	ch, err := p.Stream(context.Background(), chatRequest())
	require.NoError(t, err)

	var sb strings.Builder
	var usage *llm.ChatUsage
	for chunk := range ch {
		require.Nil(t, chunk.Err)
		sb.WriteString(chunk.Delta.Content)
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
	}

	assert.Equal(t, "Hello", sb.String())
	require.NotNil(t, usage)
	assert.Equal(t, 6, usage.TotalTokens)

	require.Len(t, rec.ends, 1)
	assert.Equal(t, "Hello", rec.ends[0].FirstContent())
	assert.Equal(t, "stop", rec.ends[0].Choices[0].FinishReason)
	assert.Equal(t, 6, rec.ends[0].Usage.TotalTokens)
	assert.Empty(t, rec.errs)
}

func TestStream_ToolCallArguments(t *testing.T) {
	srv := sseServer(t,
		`{"id":"s2","choices":[{"index":0,"delta":{"tool_calls":[{"id":"call_1","type":"function","function":{"name":"lookup","arguments":"{\"q\":"}}]}}]}`,
		`{"id":"s2","choices":[{"index":0,"delta":{"tool_calls":[{"function":{"arguments":"\"go\"}"}}]},"finish_reason":"tool_calls"}]}`,
		`[DONE]`,
	)
	defer srv.Close()

	rec := &recorder{}
	cfg := baseConfig(srv.URL)
	cfg.Callbacks = llm.Callbacks{rec}
	p, err := New(cfg, nil)
	require.NoError(t, err)

	ch, err := p.Stream(context.Background(), chatRequest())
	require.NoError(t, err)
	for range ch {
	}

	require.Len(t, rec.ends, 1)
	calls := rec.ends[0].Choices[0].Message.ToolCalls
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "lookup", calls[0].Name)
	assert.JSONEq(t, `{"q":"go"}`, string(calls[0].Arguments))
}

func TestStream_MalformedEvent(t *testing.T) {
	srv := sseServer(t, `{"choices":[{"index":0,"delta":{"content":"a"}}]}`, `not json`)
	defer srv.Close()

	rec := &recorder{}
	cfg := baseConfig(srv.URL)
	cfg.Callbacks = llm.Callbacks{rec}
	p, err := New(cfg, nil)
	require.NoError(t, err)

	ch, err := p.Stream(context.Background(), chatRequest())
	require.NoError(t, err)

	var last llm.StreamChunk
	for chunk := range ch {
		last = chunk
	}
	require.NotNil(t, last.Err)
	assert.Equal(t, llm.ErrUpstreamError, last.Err.Code)
	assert.Len(t, rec.errs, 1)
	assert.Empty(t, rec.ends)
}

func TestStream_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"nope"}}`)
	}))
	defer srv.Close()

	rec := &recorder{}
	cfg := baseConfig(srv.URL)
	cfg.Callbacks = llm.Callbacks{rec}
	p, err := New(cfg, nil)
	require.NoError(t, err)

	ch, err := p.Stream(context.Background(), chatRequest())
	assert.Nil(t, ch)
	e, ok := llm.AsError(err)
	require.True(t, ok)
	assert.Equal(t, llm.ErrUnauthorized, e.Code)
	assert.Equal(t, "nope", e.Message)
	assert.Len(t, rec.errs, 1)
}

func TestStream_OutlivesAttemptTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, part := range []string{"slow", "ly ", "reasoned"} {
			_, _ = fmt.Fprintf(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
			flusher.Flush()
			time.Sleep(40 * time.Millisecond)
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	cfg := baseConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	p, err := New(cfg, nil)
	require.NoError(t, err)

	ch, err := p.Stream(context.Background(), chatRequest())
	require.NoError(t, err)

	var sb strings.Builder
	for chunk := range ch {
		require.Nil(t, chunk.Err)
		sb.WriteString(chunk.Delta.Content)
	}
	assert.Equal(t, "slowly reasoned", sb.String())
}

func TestStream_HeaderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	cfg := baseConfig(srv.URL)
	cfg.Timeout = 30 * time.Millisecond
	p, err := New(cfg, nil)
	require.NoError(t, err)

	ch, err := p.Stream(context.Background(), chatRequest())
	assert.Nil(t, ch)
	e, ok := llm.AsError(err)
	require.True(t, ok)
	assert.Equal(t, llm.ErrUpstreamTimeout, e.Code)
	assert.Equal(t, http.StatusGatewayTimeout, e.HTTPStatus)
}

// ---------------------------------------------------------------------------
// HealthCheck / ListModels
// ---------------------------------------------------------------------------

func TestListModelsAndHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"object":"list","data":[{"id":"hubgpt-chat-completions-4.0","object":"model"}]}`)
	}))
	defer srv.Close()

	p, err := New(baseConfig(srv.URL+"/v1/"), nil)
	require.NoError(t, err)

	models, err := p.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "hubgpt-chat-completions-4.0", models[0].ID)

	status, err := p.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)
}

func TestHealthCheck_Unhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p, err := New(baseConfig(srv.URL), nil)
	require.NoError(t, err)

	status, err := p.HealthCheck(context.Background())
	require.Error(t, err)
	assert.False(t, status.Healthy)
}
