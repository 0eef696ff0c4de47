package llm

import (
	"context"
	"encoding/json"
	"time"
)

// ErrorCode 统一的 LLM 错误码，用于对齐 HTTP 状态与可重试性。
type ErrorCode string

const (
	ErrInvalidRequest      ErrorCode = "LLM_INVALID_REQUEST"      // 参数/格式错误
	ErrUnauthorized        ErrorCode = "LLM_UNAUTHORIZED"         // 未授权或密钥失效
	ErrForbidden           ErrorCode = "LLM_FORBIDDEN"            // 权限或内容策略拒绝
	ErrNotFound            ErrorCode = "LLM_NOT_FOUND"            // 模型或路径不存在
	ErrRateLimited         ErrorCode = "LLM_RATE_LIMITED"         // 上游或本地限流
	ErrQuotaExceeded       ErrorCode = "LLM_QUOTA_EXCEEDED"       // 额度/配额用尽
	ErrModelOverloaded     ErrorCode = "LLM_MODEL_OVERLOADED"     // 模型过载
	ErrUpstreamTimeout     ErrorCode = "LLM_UPSTREAM_TIMEOUT"     // 上游超时
	ErrUpstreamError       ErrorCode = "LLM_UPSTREAM_ERROR"       // 上游 5xx/网络错误
	ErrProviderUnavailable ErrorCode = "LLM_PROVIDER_UNAVAILABLE" // Provider 不可用
)

// Error is the error type returned by providers for upstream failures.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	// Type and UpstreamCode carry the gateway's own error classification
	// (e.g. type "requests", code "rate_limit_exceeded").
	Type         string `json:"type,omitempty"`
	UpstreamCode string `json:"upstream_code,omitempty"`
	Cause        error  `json:"-"`
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Cause }

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema
}

// ChatRequest is a single chat-completion call. Sampling fields left nil
// fall back to the provider's configured defaults.
type ChatRequest struct {
	TraceID          string            `json:"trace_id,omitempty"`
	Model            string            `json:"model,omitempty"`
	Messages         []Message         `json:"messages"`
	MaxTokens        *int              `json:"max_tokens,omitempty"`
	Temperature      *float64          `json:"temperature,omitempty"`
	TopP             *float64          `json:"top_p,omitempty"`
	PresencePenalty  *float64          `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64          `json:"frequency_penalty,omitempty"`
	Stop             []string          `json:"stop,omitempty"`
	Tools            []ToolSchema      `json:"tools,omitempty"`
	ToolChoice       string            `json:"tool_choice,omitempty"` // auto/none/<tool name>
	Metadata         map[string]string `json:"metadata,omitempty"`
}

type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// IsZero reports whether the upstream reported no usage at all.
func (u ChatUsage) IsZero() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0
}

type ChatChoice struct {
	Index        int     `json:"index"`
	FinishReason string  `json:"finish_reason,omitempty"`
	Message      Message `json:"message"`
}

type ChatResponse struct {
	ID        string       `json:"id,omitempty"`
	Provider  string       `json:"provider,omitempty"`
	Model     string       `json:"model"`
	Choices   []ChatChoice `json:"choices"`
	Usage     ChatUsage    `json:"usage,omitempty"`
	CreatedAt time.Time    `json:"created_at,omitempty"`
}

// FirstContent returns the content of the first choice, or "".
func (r *ChatResponse) FirstContent() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

type StreamChunk struct {
	ID           string     `json:"id,omitempty"`
	Provider     string     `json:"provider,omitempty"`
	Model        string     `json:"model,omitempty"`
	Index        int        `json:"index,omitempty"`
	Delta        Message    `json:"delta"`
	FinishReason string     `json:"finish_reason,omitempty"`
	Usage        *ChatUsage `json:"usage,omitempty"`
	Err          *Error     `json:"error,omitempty"`
}

// HealthStatus 表示 Provider 健康检查结果。
type HealthStatus struct {
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency"`
}

// Model is one entry of an OpenAI-compatible /models listing.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object,omitempty"`
	Created int64  `json:"created,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`
}

// Provider 定义了统一的 LLM 适配接口。
type Provider interface {
	// Completion 发起同步聊天请求，返回完整响应
	Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Stream 发起流式聊天请求，返回增量响应通道
	Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error)

	// HealthCheck 执行轻量级健康检查
	HealthCheck(ctx context.Context) (*HealthStatus, error)

	// Name 返回 Provider 的唯一标识
	Name() string
}
