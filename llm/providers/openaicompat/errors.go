package openaicompat

import (
	"context"
	"net/http"

	"github.com/BaSui01/lmgateway/llm"
)

// 上游限流错误码对应的用户可读消息
var rateLimitMessages = map[string]string{
	"insufficient_quota":  "Insufficient quota detected. Check the plan and billing details of the gateway account",
	"rate_limit_exceeded": "Rate limit reached. Wait before sending more requests or lower the request rate",
}

// FailedAttemptHandler classifies OpenAI-style failures. HTTP 429 aborts the
// retry loop immediately: gateways use it both for quota exhaustion and for
// rate limits, and neither clears within the backoff window. Other errors
// are left to the default handler.
func FailedAttemptHandler(_ context.Context, attempt *llm.FailedAttempt) error {
	if attempt == nil || attempt.Err == nil {
		return nil
	}
	e, ok := llm.AsError(attempt.Err)
	if !ok || e.HTTPStatus != http.StatusTooManyRequests {
		return nil
	}

	cp := *e
	cp.Retryable = false
	if msg, ok := rateLimitMessages[e.UpstreamCode]; ok {
		cp.Message = msg
	} else if msg, ok := rateLimitMessages[e.Type]; ok {
		cp.Message = msg
	}
	if cp.Cause == nil {
		cp.Cause = e
	}
	return &cp
}
