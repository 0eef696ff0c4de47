package llm

import (
	"context"
	"time"
)

// Run identifies one logical LLM call as seen by callback handlers. A run
// spans every retry attempt of that call.
type Run struct {
	ID        string
	Provider  string
	Model     string
	Request   *ChatRequest
	Options   map[string]any
	StartedAt time.Time
}

// CallbackHandler observes the lifecycle of LLM runs. Handlers must not
// block; they are invoked synchronously on the calling goroutine.
type CallbackHandler interface {
	HandleLLMStart(ctx context.Context, run *Run)
	HandleLLMEnd(ctx context.Context, run *Run, resp *ChatResponse)
	HandleLLMError(ctx context.Context, run *Run, err error)
}

// Callbacks fans a run event out to several handlers in order.
type Callbacks []CallbackHandler

func (cs Callbacks) Start(ctx context.Context, run *Run) {
	for _, h := range cs {
		if h != nil {
			h.HandleLLMStart(ctx, run)
		}
	}
}

func (cs Callbacks) End(ctx context.Context, run *Run, resp *ChatResponse) {
	for _, h := range cs {
		if h != nil {
			h.HandleLLMEnd(ctx, run, resp)
		}
	}
}

func (cs Callbacks) Error(ctx context.Context, run *Run, err error) {
	for _, h := range cs {
		if h != nil {
			h.HandleLLMError(ctx, run, err)
		}
	}
}

// FailedAttempt describes one failed request attempt inside a retry loop.
// AttemptNumber starts at 1.
type FailedAttempt struct {
	Err           error
	AttemptNumber int
	RetriesLeft   int
}

// FailedAttemptHandler is consulted after every failed attempt. Returning
// nil lets the retry loop continue; returning an error stops it and that
// error becomes the result of the call.
type FailedAttemptHandler func(ctx context.Context, attempt *FailedAttempt) error
