// =============================================================================
// OpenAI-Compatible Chat Model Client
// =============================================================================
// Chat-completion client for any gateway that speaks the OpenAI Chat
// Completions protocol. Owns request encoding, SSE decoding, the retry loop
// and callback dispatch; callers only supply a Config.
// =============================================================================

package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/lmgateway/internal/tlsutil"
	"github.com/BaSui01/lmgateway/llm"
	"github.com/BaSui01/lmgateway/llm/providers"
	"github.com/BaSui01/lmgateway/llm/retry"
)

const (
	DefaultProviderName   = "openai-compatible"
	DefaultEndpointPath   = "/chat/completions"
	DefaultModelsEndpoint = "/models"
	DefaultTimeout        = 60 * time.Second
	DefaultRetryDelay     = time.Second
	maxRetryDelay         = 30 * time.Second
)

// Config holds the constructor options of a chat-model client.
type Config struct {
	// ProviderName labels errors, logs and metrics. Defaults to DefaultProviderName.
	ProviderName string

	// APIKey is sent as a Bearer token.
	APIKey string

	// Model is used when a request does not name one.
	Model string

	// BaseURL is the API root including any version segment,
	// e.g. "https://gateway.internal/gateway/v1".
	BaseURL string

	// EndpointPath is appended to BaseURL for completions. Defaults to "/chat/completions".
	EndpointPath string

	// ModelsEndpoint is appended to BaseURL for model listing. Defaults to "/models".
	ModelsEndpoint string

	// Sampling defaults applied when a request leaves the field nil.
	Temperature      *float64
	TopP             *float64
	MaxTokens        *int
	PresencePenalty  *float64
	FrequencyPenalty *float64

	// Timeout bounds a single HTTP attempt. Zero means DefaultTimeout.
	// Streaming attempts are bounded only until the response headers
	// arrive; the event stream itself may run longer.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// RetryDelay is the first backoff delay. Zero means DefaultRetryDelay.
	RetryDelay time.Duration

	// Transport carries requests. Nil means a direct hardened transport.
	Transport http.RoundTripper

	// ModelKwargs are merged into the request body at the top level, for
	// gateway fields without a typed option (response_format, reasoning_effort).
	ModelKwargs map[string]any

	// Callbacks observe each logical call (spanning all attempts).
	Callbacks llm.Callbacks

	// OnFailedAttempt classifies failed attempts. When set it owns the retry
	// decision; when nil only errors marked Retryable are retried.
	OnFailedAttempt llm.FailedAttemptHandler

	// Limiter, when set, is waited on before every attempt.
	Limiter *rate.Limiter
}

// Provider is an OpenAI-compatible chat-model client.
type Provider struct {
	cfg          Config
	client       *http.Client
	streamClient *http.Client
	logger       *zap.Logger
}

var _ llm.Provider = (*Provider)(nil)

// New validates cfg and builds a client. No network I/O happens here.
func New(cfg Config, logger *zap.Logger) (*Provider, error) {
	if cfg.ProviderName == "" {
		cfg.ProviderName = DefaultProviderName
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%s: api key is required", cfg.ProviderName)
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("%s: model is required", cfg.ProviderName)
	}
	if err := validateBaseURL(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.ProviderName, err)
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = DefaultEndpointPath
	}
	if cfg.ModelsEndpoint == "" {
		cfg.ModelsEndpoint = DefaultModelsEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rt := cfg.Transport
	if rt == nil {
		rt = tlsutil.SecureTransport()
	}
	return &Provider{
		cfg:          cfg,
		client:       tlsutil.SecureHTTPClient(cfg.Timeout, rt),
		streamClient: tlsutil.SecureHTTPClient(0, rt),
		logger:       logger.With(zap.String("component", "chat_model"), zap.String("provider", cfg.ProviderName)),
	}, nil
}

func validateBaseURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("base url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base url %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid base url %q: want absolute http(s) url", raw)
	}
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string { return p.cfg.ProviderName }

// Config returns the effective configuration after defaults.
func (p *Provider) Config() Config { return p.cfg }

// WithLimiter returns a copy of p that waits on l before every attempt.
func (p *Provider) WithLimiter(l *rate.Limiter) *Provider {
	cp := *p
	cp.cfg.Limiter = l
	return &cp
}

func (p *Provider) endpoint(path string) string {
	return strings.TrimRight(p.cfg.BaseURL, "/") + path
}

// buildBody maps a request onto the wire format, falling back to the
// configured sampling defaults for fields the request leaves unset.
func (p *Provider) buildBody(req *llm.ChatRequest, stream bool) providers.OpenAICompatRequest {
	body := providers.OpenAICompatRequest{
		Model:            providers.ChooseModel(req, p.cfg.Model),
		Messages:         providers.ConvertMessagesToOpenAI(req.Messages),
		Tools:            providers.ConvertToolsToOpenAI(req.Tools),
		MaxTokens:        firstNonNil(req.MaxTokens, p.cfg.MaxTokens),
		Temperature:      firstNonNil(req.Temperature, p.cfg.Temperature),
		TopP:             firstNonNil(req.TopP, p.cfg.TopP),
		PresencePenalty:  firstNonNil(req.PresencePenalty, p.cfg.PresencePenalty),
		FrequencyPenalty: firstNonNil(req.FrequencyPenalty, p.cfg.FrequencyPenalty),
		Stop:             req.Stop,
		Stream:           stream,
		Extra:            p.cfg.ModelKwargs,
	}
	if req.ToolChoice != "" {
		body.ToolChoice = req.ToolChoice
	}
	if stream {
		body.StreamOptions = &providers.StreamOptions{IncludeUsage: true}
	}
	return body
}

func firstNonNil[T any](vals ...*T) *T {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func (p *Provider) newRun(req *llm.ChatRequest) *llm.Run {
	model := providers.ChooseModel(req, p.cfg.Model)
	opts := map[string]any{
		"model":       model,
		"timeout":     p.cfg.Timeout.Milliseconds(),
		"max_retries": p.cfg.MaxRetries,
	}
	if t := firstNonNil(req.Temperature, p.cfg.Temperature); t != nil {
		opts["temperature"] = *t
	}
	if t := firstNonNil(req.TopP, p.cfg.TopP); t != nil {
		opts["top_p"] = *t
	}
	if m := firstNonNil(req.MaxTokens, p.cfg.MaxTokens); m != nil {
		opts["max_tokens"] = *m
	}
	for k, v := range p.cfg.ModelKwargs {
		opts[k] = v
	}
	return &llm.Run{
		ID:        uuid.NewString(),
		Provider:  p.cfg.ProviderName,
		Model:     model,
		Request:   req,
		Options:   opts,
		StartedAt: time.Now(),
	}
}

// retryer builds the per-call retry loop. The failed-attempt hook sees the
// caller's ctx.
func (p *Provider) retryer(ctx context.Context) retry.Retryer {
	hook := p.cfg.OnFailedAttempt
	policy := &retry.RetryPolicy{
		MaxRetries:   p.cfg.MaxRetries,
		InitialDelay: p.cfg.RetryDelay,
		MaxDelay:     maxRetryDelay,
		Multiplier:   2.0,
		Jitter:       true,
		Retryable: func(err error) bool {
			if hook != nil {
				return true
			}
			return llm.IsRetryable(err)
		},
		OnFailedAttempt: func(attempt, retriesLeft int, err error) error {
			p.logger.Debug("attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("retries_left", retriesLeft),
				zap.Error(err))
			if hook == nil {
				return nil
			}
			return hook(ctx, &llm.FailedAttempt{Err: err, AttemptNumber: attempt, RetriesLeft: retriesLeft})
		},
	}
	return retry.NewBackoffRetryer(policy, p.logger)
}

func (p *Provider) wait(ctx context.Context) error {
	if p.cfg.Limiter == nil {
		return nil
	}
	return p.cfg.Limiter.Wait(ctx)
}

// post sends one attempt and returns the response when the status is < 400.
// A streaming attempt waits at most Timeout for the response headers; its
// body stays readable until closed.
func (p *Provider) post(ctx context.Context, body providers.OpenAICompatRequest) (*http.Response, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqCtx, client, cancel := ctx, p.client, context.CancelFunc(func() {})
	var headerTimer *time.Timer
	if body.Stream {
		reqCtx, cancel = context.WithCancel(ctx)
		headerTimer = time.AfterFunc(p.cfg.Timeout, cancel)
		client = p.streamClient
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, p.endpoint(p.cfg.EndpointPath), bytes.NewReader(payload))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	providers.BearerTokenHeaders(httpReq, p.cfg.APIKey)
	if body.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := client.Do(httpReq)
	if headerTimer != nil && !headerTimer.Stop() {
		cancel()
		if err == nil {
			resp.Body.Close()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, p.headerTimeout()
	}
	if err != nil {
		cancel()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, p.transportError(err)
	}
	if resp.StatusCode >= 400 {
		defer cancel()
		defer resp.Body.Close()
		return nil, providers.MapHTTPError(resp.StatusCode, providers.ReadError(resp.Body), p.Name())
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelOnClose releases the attempt context together with the body.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func (p *Provider) headerTimeout() *llm.Error {
	e := providers.NetworkError(fmt.Errorf("no response headers within %s", p.cfg.Timeout), p.Name())
	e.Code = llm.ErrUpstreamTimeout
	e.HTTPStatus = http.StatusGatewayTimeout
	return e
}

func (p *Provider) transportError(err error) *llm.Error {
	e := providers.NetworkError(err, p.Name())
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		e.Code = llm.ErrUpstreamTimeout
		e.HTTPStatus = http.StatusGatewayTimeout
	}
	return e
}

// Completion performs a non-streaming chat completion.
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if req == nil {
		return nil, &llm.Error{Code: llm.ErrInvalidRequest, Message: "request is nil", HTTPStatus: http.StatusBadRequest, Provider: p.Name()}
	}

	run := p.newRun(req)
	p.cfg.Callbacks.Start(ctx, run)

	resp, err := retry.DoWithResultTyped[*llm.ChatResponse](p.retryer(ctx), ctx, func() (*llm.ChatResponse, error) {
		return p.completeOnce(ctx, req)
	})
	if err != nil {
		p.cfg.Callbacks.Error(ctx, run, err)
		return nil, err
	}

	p.cfg.Callbacks.End(ctx, run, resp)
	return resp, nil
}

func (p *Provider) completeOnce(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	resp, err := p.post(ctx, p.buildBody(req, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var oaResp providers.OpenAICompatResponse
	if err := json.NewDecoder(resp.Body).Decode(&oaResp); err != nil {
		return nil, &llm.Error{
			Code: llm.ErrUpstreamError, Message: fmt.Sprintf("decode response: %v", err),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name(), Cause: err,
		}
	}

	result := providers.ToLLMChatResponse(oaResp, p.Name())
	if oaResp.Created != 0 {
		result.CreatedAt = time.Unix(oaResp.Created, 0)
	}
	return result, nil
}

// Stream performs a streaming chat completion via SSE. Only the connection
// phase is retried; mid-stream errors arrive as chunks with Err set.
func (p *Provider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	if req == nil {
		return nil, &llm.Error{Code: llm.ErrInvalidRequest, Message: "request is nil", HTTPStatus: http.StatusBadRequest, Provider: p.Name()}
	}

	run := p.newRun(req)
	p.cfg.Callbacks.Start(ctx, run)

	body, err := retry.DoWithResultTyped[io.ReadCloser](p.retryer(ctx), ctx, func() (io.ReadCloser, error) {
		resp, err := p.post(ctx, p.buildBody(req, true))
		if err != nil {
			return nil, err
		}
		return resp.Body, nil
	})
	if err != nil {
		p.cfg.Callbacks.Error(ctx, run, err)
		return nil, err
	}

	raw := StreamSSE(ctx, body, p.Name())
	out := make(chan llm.StreamChunk)
	go func() {
		defer close(out)
		agg := newAggregator(p.Name())
		for chunk := range raw {
			agg.add(chunk)
			select {
			case out <- chunk:
			case <-ctx.Done():
				p.cfg.Callbacks.Error(ctx, run, ctx.Err())
				return
			}
		}
		if agg.err != nil {
			p.cfg.Callbacks.Error(ctx, run, agg.err)
			return
		}
		if ctx.Err() != nil {
			p.cfg.Callbacks.Error(ctx, run, ctx.Err())
			return
		}
		p.cfg.Callbacks.End(ctx, run, agg.response())
	}()
	return out, nil
}

// HealthCheck verifies the gateway answers the models endpoint.
func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	start := time.Now()
	_, err := p.ListModels(ctx)
	latency := time.Since(start)
	if err != nil {
		return &llm.HealthStatus{Healthy: false, Latency: latency}, err
	}
	return &llm.HealthStatus{Healthy: true, Latency: latency}, nil
}

// ListModels returns the models the gateway advertises.
func (p *Provider) ListModels(ctx context.Context) ([]llm.Model, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint(p.cfg.ModelsEndpoint), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	providers.BearerTokenHeaders(httpReq, p.cfg.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, p.transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, providers.MapHTTPError(resp.StatusCode, providers.ReadError(resp.Body), p.Name())
	}

	var modelsResp struct {
		Object string      `json:"object"`
		Data   []llm.Model `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&modelsResp); err != nil {
		return nil, &llm.Error{
			Code: llm.ErrUpstreamError, Message: fmt.Sprintf("decode models: %v", err),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name(), Cause: err,
		}
	}
	return modelsResp.Data, nil
}
