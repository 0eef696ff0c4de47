package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/BaSui01/lmgateway/llm"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// UpstreamError is the decoded body of an OpenAI-style error response.
type UpstreamError struct {
	Message string
	Type    string
	Code    string
}

// MapHTTPError 将 HTTP 状态码映射为带有合适重试标记的 llm.Error
func MapHTTPError(status int, upstream UpstreamError, provider string) *llm.Error {
	e := &llm.Error{
		Message:      upstream.Message,
		HTTPStatus:   status,
		Provider:     provider,
		Type:         upstream.Type,
		UpstreamCode: upstream.Code,
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("%s: upstream returned HTTP %d", provider, status)
	}

	switch status {
	case http.StatusUnauthorized:
		e.Code = llm.ErrUnauthorized
	case http.StatusForbidden:
		e.Code = llm.ErrForbidden
	case http.StatusNotFound:
		e.Code = llm.ErrNotFound
	case http.StatusTooManyRequests:
		if upstream.Code == "insufficient_quota" {
			e.Code = llm.ErrQuotaExceeded
		} else {
			e.Code = llm.ErrRateLimited
			e.Retryable = true
		}
	case http.StatusBadRequest:
		msgLower := strings.ToLower(upstream.Message)
		if upstream.Code == "insufficient_quota" ||
			strings.Contains(msgLower, "quota") ||
			strings.Contains(msgLower, "credit") {
			e.Code = llm.ErrQuotaExceeded
		} else {
			e.Code = llm.ErrInvalidRequest
		}
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		e.Code = llm.ErrUpstreamTimeout
		e.Retryable = true
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		e.Code = llm.ErrUpstreamError
		e.Retryable = true
	case 529: // model overloaded (used by some gateways)
		e.Code = llm.ErrModelOverloaded
		e.Retryable = true
	default:
		e.Code = llm.ErrUpstreamError
		e.Retryable = status >= 500
	}
	return e
}

// NetworkError wraps a transport-level failure as a retryable upstream error.
func NetworkError(err error, provider string) *llm.Error {
	return &llm.Error{
		Code:       llm.ErrUpstreamError,
		Message:    err.Error(),
		HTTPStatus: http.StatusBadGateway,
		Retryable:  true,
		Provider:   provider,
		Cause:      err,
	}
}

// ReadError 读取响应体中的错误信息
// 尝试解析 JSON 错误响应，失败则回退到原始文本
func ReadError(body io.Reader) UpstreamError {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil {
		return UpstreamError{Message: "failed to read error response"}
	}

	var errResp OpenAICompatErrorResp
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return UpstreamError{
			Message: errResp.Error.Message,
			Type:    errResp.Error.Type,
			Code:    codeString(errResp.Error.Code),
		}
	}

	return UpstreamError{Message: strings.TrimSpace(string(data))}
}

// codeString normalizes the "code" field, which gateways send as either a
// string or a number.
func codeString(code any) string {
	switch c := code.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return fmt.Sprintf("%d", int64(c))
	default:
		return fmt.Sprint(c)
	}
}

// OpenAI 兼容 API 通用类型

// OpenAICompatMessage 表示 OpenAI 兼容的消息格式.
type OpenAICompatMessage struct {
	Role       string                 `json:"role"`
	Content    string                 `json:"content,omitempty"`
	Name       string                 `json:"name,omitempty"`
	ToolCalls  []OpenAICompatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string                 `json:"tool_call_id,omitempty"`
}

// OpenAICompatToolCall 表示 OpenAI 兼容的工具调用.
type OpenAICompatToolCall struct {
	ID       string               `json:"id,omitempty"`
	Type     string               `json:"type,omitempty"`
	Function OpenAICompatFunction `json:"function"`
}

// OpenAICompatFunction carries either call arguments (string-encoded JSON)
// or, for tool definitions, a parameters schema.
type OpenAICompatFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Arguments   string          `json:"arguments,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// OpenAICompatTool 表示 OpenAI 兼容的工具定义.
type OpenAICompatTool struct {
	Type     string               `json:"type"`
	Function OpenAICompatFunction `json:"function"`
}

// StreamOptions asks the gateway to append a usage chunk to SSE streams.
type StreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// OpenAICompatRequest 表示 OpenAI 兼容的聊天完成请求.
// Extra holds provider-specific top-level fields (model kwargs); they are
// merged into the JSON object and win over typed fields of the same name.
type OpenAICompatRequest struct {
	Model            string                `json:"model"`
	Messages         []OpenAICompatMessage `json:"messages"`
	Tools            []OpenAICompatTool    `json:"tools,omitempty"`
	ToolChoice       any                   `json:"tool_choice,omitempty"`
	MaxTokens        *int                  `json:"max_tokens,omitempty"`
	Temperature      *float64              `json:"temperature,omitempty"`
	TopP             *float64              `json:"top_p,omitempty"`
	PresencePenalty  *float64              `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64              `json:"frequency_penalty,omitempty"`
	Stop             []string              `json:"stop,omitempty"`
	Stream           bool                  `json:"stream,omitempty"`
	StreamOptions    *StreamOptions        `json:"stream_options,omitempty"`
	Extra            map[string]any        `json:"-"`
}

// MarshalJSON encodes the typed fields and then overlays Extra.
func (r OpenAICompatRequest) MarshalJSON() ([]byte, error) {
	type plain OpenAICompatRequest
	base, err := json.Marshal(plain(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return base, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal extra field %q: %w", k, err)
		}
		merged[k] = raw
	}
	return json.Marshal(merged)
}

// OpenAICompatChoice 表示 OpenAI 兼容响应中的单个选项.
type OpenAICompatChoice struct {
	Index        int                  `json:"index"`
	FinishReason string               `json:"finish_reason"`
	Message      OpenAICompatMessage  `json:"message"`
	Delta        *OpenAICompatMessage `json:"delta,omitempty"`
}

// OpenAICompatUsage 表示 OpenAI 兼容响应中的 token 用量.
type OpenAICompatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// OpenAICompatResponse 表示 OpenAI 兼容的聊天完成响应.
type OpenAICompatResponse struct {
	ID      string               `json:"id"`
	Model   string               `json:"model"`
	Choices []OpenAICompatChoice `json:"choices"`
	Usage   *OpenAICompatUsage   `json:"usage,omitempty"`
	Created int64                `json:"created,omitempty"`
}

// OpenAICompatErrorResp 表示 OpenAI 兼容的错误响应.
type OpenAICompatErrorResp struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
		Param   string `json:"param"`
	} `json:"error"`
}

// ConvertMessagesToOpenAI 将 llm.Message 切片转换为 OpenAI 兼容格式.
func ConvertMessagesToOpenAI(msgs []llm.Message) []OpenAICompatMessage {
	out := make([]OpenAICompatMessage, 0, len(msgs))
	for _, m := range msgs {
		oa := OpenAICompatMessage{
			Role:       string(m.Role),
			Name:       m.Name,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		if len(m.ToolCalls) > 0 {
			oa.ToolCalls = make([]OpenAICompatToolCall, 0, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				oa.ToolCalls = append(oa.ToolCalls, OpenAICompatToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: OpenAICompatFunction{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				})
			}
		}
		out = append(out, oa)
	}
	return out
}

// ConvertToolsToOpenAI 将 llm.ToolSchema 切片转换为 OpenAI 兼容格式.
func ConvertToolsToOpenAI(tools []llm.ToolSchema) []OpenAICompatTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]OpenAICompatTool, 0, len(tools))
	for _, t := range tools {
		out = append(out, OpenAICompatTool{
			Type: "function",
			Function: OpenAICompatFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}

// ToLLMChatResponse 将 OpenAI 兼容的响应转换为 llm.ChatResponse.
func ToLLMChatResponse(oa OpenAICompatResponse, provider string) *llm.ChatResponse {
	choices := make([]llm.ChatChoice, 0, len(oa.Choices))
	for _, c := range oa.Choices {
		msg := llm.Message{
			Role:    llm.RoleAssistant,
			Content: c.Message.Content,
			Name:    c.Message.Name,
		}
		if len(c.Message.ToolCalls) > 0 {
			msg.ToolCalls = make([]llm.ToolCall, 0, len(c.Message.ToolCalls))
			for _, tc := range c.Message.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{
					ID:        tc.ID,
					Name:      tc.Function.Name,
					Arguments: json.RawMessage(tc.Function.Arguments),
				})
			}
		}
		choices = append(choices, llm.ChatChoice{
			Index:        c.Index,
			FinishReason: c.FinishReason,
			Message:      msg,
		})
	}
	resp := &llm.ChatResponse{
		ID:       oa.ID,
		Provider: provider,
		Model:    oa.Model,
		Choices:  choices,
	}
	if oa.Usage != nil {
		resp.Usage = llm.ChatUsage{
			PromptTokens:     oa.Usage.PromptTokens,
			CompletionTokens: oa.Usage.CompletionTokens,
			TotalTokens:      oa.Usage.TotalTokens,
		}
	}
	return resp
}

// ChooseModel 根据请求和默认值选择模型
func ChooseModel(req *llm.ChatRequest, defaultModel string) string {
	if req != nil && req.Model != "" {
		return req.Model
	}
	return defaultModel
}

// BearerTokenHeaders 是标准的 Bearer token 认证 header 构建函数。
func BearerTokenHeaders(r *http.Request, apiKey string) {
	r.Header.Set("Authorization", "Bearer "+apiKey)
	r.Header.Set("Content-Type", "application/json")
}
