package openaicompat

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/BaSui01/lmgateway/llm"
	"github.com/BaSui01/lmgateway/llm/providers"
)

// StreamSSE decodes an OpenAI-style SSE body into chunks. The channel is
// closed on [DONE], EOF, a decode error or ctx cancellation; body is
// always closed.
func StreamSSE(ctx context.Context, body io.ReadCloser, providerName string) <-chan llm.StreamChunk {
	ch := make(chan llm.StreamChunk)
	go func() {
		defer body.Close()
		defer close(ch)

		send := func(chunk llm.StreamChunk) bool {
			select {
			case <-ctx.Done():
				return false
			case ch <- chunk:
				return true
			}
		}
		streamErr := func(err error) llm.StreamChunk {
			return llm.StreamChunk{Provider: providerName, Err: &llm.Error{
				Code: llm.ErrUpstreamError, Message: err.Error(),
				HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: providerName, Cause: err,
			}}
		}

		reader := bufio.NewReader(body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil && (err != io.EOF || line == "") {
				if err != io.EOF && ctx.Err() == nil {
					send(streamErr(err))
				}
				return
			}
			line = strings.TrimSpace(line)
			if line == "" || !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}

			var oaResp providers.OpenAICompatResponse
			if err := json.Unmarshal([]byte(data), &oaResp); err != nil {
				send(streamErr(err))
				return
			}

			// usage-only trailer sent when stream_options.include_usage is set
			if len(oaResp.Choices) == 0 && oaResp.Usage != nil {
				if !send(llm.StreamChunk{
					ID:       oaResp.ID,
					Provider: providerName,
					Model:    oaResp.Model,
					Usage:    usageOf(oaResp.Usage),
				}) {
					return
				}
				continue
			}

			for _, choice := range oaResp.Choices {
				chunk := llm.StreamChunk{
					ID:           oaResp.ID,
					Provider:     providerName,
					Model:        oaResp.Model,
					Index:        choice.Index,
					FinishReason: choice.FinishReason,
					Delta:        llm.Message{Role: llm.RoleAssistant},
				}
				if choice.Delta != nil {
					chunk.Delta.Content = choice.Delta.Content
					for _, tc := range choice.Delta.ToolCalls {
						chunk.Delta.ToolCalls = append(chunk.Delta.ToolCalls, llm.ToolCall{
							ID:        tc.ID,
							Name:      tc.Function.Name,
							Arguments: json.RawMessage(tc.Function.Arguments),
						})
					}
				}
				if oaResp.Usage != nil {
					chunk.Usage = usageOf(oaResp.Usage)
				}
				if !send(chunk) {
					return
				}
			}
		}
	}()
	return ch
}

func usageOf(u *providers.OpenAICompatUsage) *llm.ChatUsage {
	return &llm.ChatUsage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

// aggregator folds stream chunks into the response handed to End callbacks.
type aggregator struct {
	provider string
	id       string
	model    string
	content  strings.Builder
	finish   string
	calls    []llm.ToolCall
	args     []string
	usage    llm.ChatUsage
	err      error
}

func newAggregator(provider string) *aggregator {
	return &aggregator{provider: provider}
}

func (a *aggregator) add(chunk llm.StreamChunk) {
	if chunk.Err != nil {
		a.err = chunk.Err
		return
	}
	if chunk.ID != "" {
		a.id = chunk.ID
	}
	if chunk.Model != "" {
		a.model = chunk.Model
	}
	if chunk.Usage != nil {
		a.usage = *chunk.Usage
	}
	if chunk.Index != 0 {
		// only the first choice is aggregated
		return
	}
	a.content.WriteString(chunk.Delta.Content)
	if chunk.FinishReason != "" {
		a.finish = chunk.FinishReason
	}
	for _, tc := range chunk.Delta.ToolCalls {
		if tc.ID != "" || len(a.calls) == 0 {
			a.calls = append(a.calls, llm.ToolCall{ID: tc.ID, Name: tc.Name})
			a.args = append(a.args, "")
		}
		last := len(a.calls) - 1
		if tc.Name != "" {
			a.calls[last].Name = tc.Name
		}
		a.args[last] += string(tc.Arguments)
	}
}

func (a *aggregator) response() *llm.ChatResponse {
	msg := llm.Message{Role: llm.RoleAssistant, Content: a.content.String()}
	for i, tc := range a.calls {
		tc.Arguments = json.RawMessage(a.args[i])
		msg.ToolCalls = append(msg.ToolCalls, tc)
	}
	return &llm.ChatResponse{
		ID:       a.id,
		Provider: a.provider,
		Model:    a.model,
		Choices:  []llm.ChatChoice{{Index: 0, FinishReason: a.finish, Message: msg}},
		Usage:    a.usage,
	}
}
