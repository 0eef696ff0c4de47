package lmgateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/time/rate"

	"github.com/BaSui01/lmgateway/llm"
	"github.com/BaSui01/lmgateway/llm/providers/openaicompat"
	"github.com/BaSui01/lmgateway/llm/tokenizer"
	"github.com/BaSui01/lmgateway/workflow"
	"github.com/BaSui01/lmgateway/workflow/nodeutil"
	"github.com/BaSui01/lmgateway/workflow/rundata"
)

func TestMain(m *testing.M) {
	// 测试环境不下载 BPE 文件
	tokenizer.Register("hubgpt", tokenizer.NewEstimator())
	os.Exit(m.Run())
}

func defaultParams() map[string]any {
	return map[string]any{
		"model":     map[string]any{"__rl": true, "mode": "id", "value": "hubgpt-chat-completions-4.0"},
		"baseUrl":   "https://example/gateway/v1",
		"authToken": "secret",
		"options":   map[string]any{},
	}
}

func execContext(t *testing.T, params map[string]any, opts ...workflow.ExecutionOption) *workflow.ExecutionContext {
	t.Helper()
	opts = append([]workflow.ExecutionOption{workflow.WithLogger(zaptest.NewLogger(t))}, opts...)
	return workflow.NewExecutionContext(description(), &workflow.Node{
		Name:        "LLM Gateway",
		Type:        NodeType,
		TypeVersion: 1,
		Parameters:  params,
	}, opts...)
}

func configFor(t *testing.T, options map[string]any) openaicompat.Config {
	t.Helper()
	params := defaultParams()
	params["options"] = options
	cfg, err := ClientConfig(execContext(t, params), 0)
	require.NoError(t, err)
	return cfg
}

func TestDescription(t *testing.T) {
	d := New().Description()
	require.NoError(t, d.Validate())

	assert.Equal(t, "lmChatGateway", d.Name)
	assert.Equal(t, "LLM Gateway", d.DisplayName)
	assert.Equal(t, []string{"transform"}, d.Group)
	assert.Equal(t, 1, d.Version)
	assert.Equal(t, "Internal LLM gateway using OpenAI-compatible API", d.Description)
	assert.Empty(t, d.Inputs)
	assert.Equal(t, []workflow.ConnectionType{workflow.ConnectionAILanguageModel}, d.Outputs)
	assert.Equal(t, []string{"Model"}, d.OutputNames)
	assert.Equal(t, []string{"AI"}, d.Codex.Categories)
	assert.Equal(t, []string{"Language Models", "Root Nodes"}, d.Codex.Subcategories["AI"])

	var names []string
	for _, p := range d.Properties {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"notice", "model", "authToken", "baseUrl", "options"}, names)

	notice := d.Properties[0]
	assert.Equal(t, workflow.PropertyNotice, notice.Type)
	assert.Contains(t, notice.DisplayName, "AI chain or AI agent")

	model, _ := d.Property("model")
	assert.True(t, model.Required)
	assert.Equal(t, map[string]any{"mode": "id", "value": DefaultModel}, model.Default)

	token, _ := d.Property("authToken")
	assert.True(t, token.Required)
	assert.True(t, token.TypeOptions.Password)

	options, _ := d.Property("options")
	var members []string
	for _, m := range options.Values {
		members = append(members, m.Name)
	}
	assert.Equal(t, []string{
		"temperature", "topP", "maxTokens", "presencePenalty", "frequencyPenalty",
		"timeout", "maxRetries", "responseFormat", "reasoningEffort",
	}, members)

	temp, ok := options.Member("temperature")
	require.True(t, ok)
	assert.Equal(t, 0.7, temp.Default)
	assert.Equal(t, 2.0, *temp.TypeOptions.MaxValue)

	timeout, _ := options.Member("timeout")
	assert.Equal(t, DefaultTimeoutMs, timeout.Default)
	retries, _ := options.Member("maxRetries")
	assert.Equal(t, DefaultMaxRetries, retries.Default)
}

func TestClientConfig_DefaultExample(t *testing.T) {
	cfg := configFor(t, map[string]any{})

	assert.Equal(t, "hubgpt-chat-completions-4.0", cfg.Model)
	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, "https://example/gateway/v1", cfg.BaseURL)
	assert.Equal(t, 60000*time.Millisecond, cfg.Timeout)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.NotNil(t, cfg.ModelKwargs)
	assert.Empty(t, cfg.ModelKwargs)
	assert.Nil(t, cfg.Temperature)
	assert.Nil(t, cfg.MaxTokens)
}

func TestClientConfig_ResponseFormat(t *testing.T) {
	cfg := configFor(t, map[string]any{"responseFormat": "json_object"})
	assert.Equal(t, map[string]any{"type": "json_object"}, cfg.ModelKwargs["response_format"])

	cfg = configFor(t, map[string]any{})
	assert.NotContains(t, cfg.ModelKwargs, "response_format")

	cfg = configFor(t, map[string]any{"responseFormat": ""})
	assert.NotContains(t, cfg.ModelKwargs, "response_format")
}

func TestClientConfig_ReasoningEffort(t *testing.T) {
	cfg := configFor(t, map[string]any{"reasoningEffort": "high"})
	assert.Equal(t, "high", cfg.ModelKwargs["reasoning_effort"])

	cfg = configFor(t, map[string]any{"responseFormat": "text"})
	assert.NotContains(t, cfg.ModelKwargs, "reasoning_effort")
	assert.Len(t, cfg.ModelKwargs, 1)
}

func TestClientConfig_TimeoutAndRetries(t *testing.T) {
	tests := []struct {
		name        string
		options     map[string]any
		wantTimeout time.Duration
		wantRetries int
	}{
		{"defaults", map[string]any{}, 60 * time.Second, 2},
		{"timeout passthrough", map[string]any{"timeout": 15000}, 15 * time.Second, 2},
		{"retries passthrough", map[string]any{"maxRetries": 5}, 60 * time.Second, 5},
		{"float shapes", map[string]any{"timeout": 1500.0, "maxRetries": 3.0}, 1500 * time.Millisecond, 3},
		{"explicit zero kept", map[string]any{"timeout": 0, "maxRetries": 0}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := configFor(t, tt.options)
			assert.Equal(t, tt.wantTimeout, cfg.Timeout)
			assert.Equal(t, tt.wantRetries, cfg.MaxRetries)
		})
	}
}

func TestClientConfig_SamplingOptionsCopied(t *testing.T) {
	cfg := configFor(t, map[string]any{
		"temperature":      0.2,
		"topP":             0.9,
		"maxTokens":        1024,
		"presencePenalty":  -1.5,
		"frequencyPenalty": 0.5,
	})
	require.NotNil(t, cfg.Temperature)
	assert.Equal(t, 0.2, *cfg.Temperature)
	assert.Equal(t, 0.9, *cfg.TopP)
	assert.Equal(t, 1024, *cfg.MaxTokens)
	assert.Equal(t, -1.5, *cfg.PresencePenalty)
	assert.Equal(t, 0.5, *cfg.FrequencyPenalty)
}

func TestClientConfig_WiresHostUtilities(t *testing.T) {
	cfg := configFor(t, map[string]any{})

	assert.Same(t, nodeutil.HTTPProxyTransport(), cfg.Transport)
	require.Len(t, cfg.Callbacks, 1)
	assert.IsType(t, &nodeutil.LLMTracing{}, cfg.Callbacks[0])
	assert.NotNil(t, cfg.OnFailedAttempt)
}

func TestClientConfig_FailedAttemptHandlerClassifiesQuota(t *testing.T) {
	cfg := configFor(t, map[string]any{})

	quota := &llm.Error{Code: llm.ErrQuotaExceeded, Message: "quota", HTTPStatus: 429, UpstreamCode: "insufficient_quota"}
	err := cfg.OnFailedAttempt(context.Background(), &llm.FailedAttempt{Err: quota, AttemptNumber: 1, RetriesLeft: 2})

	var apiErr *workflow.NodeAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, workflow.FunctionalityConfigurationNode, apiErr.Functionality)
	assert.Equal(t, 429, apiErr.HTTPCode)
	assert.Contains(t, apiErr.Message, "Insufficient quota")

	// 5xx 在还有重试次数时继续
	err = cfg.OnFailedAttempt(context.Background(), &llm.FailedAttempt{
		Err: &llm.Error{Code: llm.ErrUpstreamError, HTTPStatus: 502}, AttemptNumber: 1, RetriesLeft: 2,
	})
	assert.NoError(t, err)
}

func TestClientConfig_ParameterErrorsUnmodified(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p map[string]any)
		param  string
	}{
		{"empty token", func(p map[string]any) { p["authToken"] = "" }, "authToken"},
		{"missing token", func(p map[string]any) { delete(p, "authToken") }, "authToken"},
		{"empty model", func(p map[string]any) { p["model"] = "" }, "model.value"},
		{"base url not a string", func(p map[string]any) { p["baseUrl"] = 42 }, "baseUrl"},
		{"options not a collection", func(p map[string]any) { p["options"] = "x" }, "options"},
		{"bad temperature", func(p map[string]any) { p["options"] = map[string]any{"temperature": "hot"} }, "options.temperature"},
		{"fractional retries", func(p map[string]any) { p["options"] = map[string]any{"maxRetries": 1.5} }, "options.maxRetries"},
		{"format not a string", func(p map[string]any) { p["options"] = map[string]any{"responseFormat": 1} }, "options.responseFormat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := defaultParams()
			tt.mutate(params)
			_, err := New().SupplyData(context.Background(), workflow.SupplyInput{Functions: execContext(t, params), ItemIndex: 0})

			perr, ok := err.(*workflow.ParameterError)
			require.True(t, ok, "got %T: %v", err, err)
			assert.Equal(t, tt.param, perr.Parameter)
		})
	}
}

func TestSupplyData_MissingOptionsFallsBack(t *testing.T) {
	params := defaultParams()
	delete(params, "options")
	cfg, err := ClientConfig(execContext(t, params), 0)
	require.NoError(t, err)
	assert.Empty(t, cfg.ModelKwargs)
	assert.Equal(t, 2, cfg.MaxRetries)
}

func TestSupplyData_MalformedBaseURL(t *testing.T) {
	params := defaultParams()
	params["baseUrl"] = "not a url"
	_, err := New().SupplyData(context.Background(), workflow.SupplyInput{Functions: execContext(t, params)})
	require.Error(t, err)
	var perr *workflow.ParameterError
	assert.False(t, errors.As(err, &perr))
	assert.Contains(t, err.Error(), "base url")
}

func TestSupplyData_ReturnsProviderWithoutNetworkIO(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	params := defaultParams()
	params["baseUrl"] = srv.URL + "/gateway/v1"
	params["options"] = map[string]any{"timeout": 15000, "maxRetries": 5, "responseFormat": "json_object"}

	limiter := rate.NewLimiter(rate.Limit(10), 1)
	sd, err := New(WithLimiter(limiter)).SupplyData(context.Background(), workflow.SupplyInput{Functions: execContext(t, params)})
	require.NoError(t, err)
	assert.Nil(t, sd.CloseFunction)

	provider, ok := sd.Response.(*openaicompat.Provider)
	require.True(t, ok)
	var _ llm.Provider = provider

	cfg := provider.Config()
	assert.Equal(t, srv.URL+"/gateway/v1", cfg.BaseURL)
	assert.Same(t, nodeutil.HTTPProxyTransport(), cfg.Transport)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Same(t, limiter, cfg.Limiter)
	assert.Equal(t, map[string]any{"response_format": map[string]any{"type": "json_object"}}, cfg.ModelKwargs)

	assert.Zero(t, hits.Load())
}

func TestSupplyData_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gateway/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","model":"hubgpt-chat-completions-4.0","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"pong"}}],"usage":{"prompt_tokens":4,"completion_tokens":1,"total_tokens":5}}`))
	}))
	defer srv.Close()

	params := defaultParams()
	params["baseUrl"] = srv.URL + "/gateway/v1"
	store := rundata.NewMemoryStore()

	registry := workflow.NewRegistry()
	registry.MustRegister(New())
	runner := workflow.NewRunner(registry, 2, workflow.WithStore(store), workflow.WithExecutionID("exec"))

	res, err := runner.Supply(context.Background(), &workflow.Node{Name: "LLM Gateway", Type: NodeType, Parameters: params}, 2)
	require.NoError(t, err)
	defer res.Close()

	provider := res.Items[1].Response.(*openaicompat.Provider)
	resp, err := provider.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "ping"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "pong", resp.FirstContent())

	entries, err := store.List(context.Background(), "exec")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, rundata.KindInput, entries[0].Kind)
	assert.Equal(t, 1, entries[0].ItemIndex)
	assert.Equal(t, rundata.KindOutput, entries[1].Kind)
	assert.Contains(t, string(entries[1].Data), `"tokenUsage"`)
	assert.Equal(t, rundata.KindAIEvent, entries[2].Kind)
}

func TestSupplyData_EndToEndQuotaAbort(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"You exceeded your quota","type":"insufficient_quota","code":"insufficient_quota"}}`))
	}))
	defer srv.Close()

	params := defaultParams()
	params["baseUrl"] = srv.URL + "/gateway/v1"
	ec := execContext(t, params)

	sd, err := New().SupplyData(context.Background(), workflow.SupplyInput{Functions: ec})
	require.NoError(t, err)

	_, err = sd.Response.(*openaicompat.Provider).Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "ping"}},
	})
	var apiErr *workflow.NodeAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, workflow.FunctionalityConfigurationNode, apiErr.Functionality)
	assert.Contains(t, apiErr.Message, "Insufficient quota")
	assert.EqualValues(t, 1, hits.Load(), "quota errors are not retried")
}
