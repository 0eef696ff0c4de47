// Package openaicompat implements the chat-model client used by the gateway
// node: a Provider that talks the OpenAI Chat Completions protocol to any
// compatible gateway.
//
// Every constructor option is explicit. Sampling defaults, per-attempt
// timeout, retry count, proxy transport and extra top-level body fields
// (model kwargs) live in Config; callers never mutate a Provider after New.
//
// Usage:
//
//	p, err := openaicompat.New(openaicompat.Config{
//	    APIKey:     token,
//	    Model:      "hubgpt-chat-completions-4.0",
//	    BaseURL:    "https://gateway.internal/gateway/v1",
//	    Timeout:    60 * time.Second,
//	    MaxRetries: 2,
//	    ModelKwargs: map[string]any{
//	        "response_format":  map[string]any{"type": "json_object"},
//	        "reasoning_effort": "medium",
//	    },
//	    OnFailedAttempt: openaicompat.FailedAttemptHandler,
//	}, logger)
//
// A retry loop wraps every call. The failed-attempt hook sees each failure
// with its attempt number and remaining retries and may abort the loop by
// returning an error.
package openaicompat
