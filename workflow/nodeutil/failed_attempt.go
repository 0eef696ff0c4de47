package nodeutil

import (
	"context"
	"errors"
	"net"

	"go.uber.org/zap"

	"github.com/BaSui01/lmgateway/llm"
	"github.com/BaSui01/lmgateway/workflow"
)

// 这些状态码重试也不会成功
var noRetryStatus = map[int]bool{
	400: true, 401: true, 402: true, 403: true, 404: true,
	405: true, 406: true, 407: true, 409: true,
}

// DefaultFailedAttemptHandler aborts the retry loop on cancellation,
// timeouts and client errors that a retry cannot fix.
func DefaultFailedAttemptHandler(_ context.Context, a *llm.FailedAttempt) error {
	if a == nil || a.Err == nil {
		return nil
	}
	err := a.Err

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return err
	}
	if le, ok := llm.AsError(err); ok {
		if le.Code == llm.ErrUpstreamTimeout || noRetryStatus[le.HTTPStatus] {
			return err
		}
	}
	return nil
}

// MakeFailedAttemptHandler combines custom (may be nil) with the default
// handler. An abort from either, or a failure on the last attempt, is
// returned as a *workflow.NodeAPIError attributed to the node of fns.
func MakeFailedAttemptHandler(fns workflow.SupplyDataFunctions, custom llm.FailedAttemptHandler) llm.FailedAttemptHandler {
	return func(ctx context.Context, a *llm.FailedAttempt) error {
		node := fns.Node()
		name := ""
		if node != nil {
			name = node.Name
		}

		abort := func(err error) error {
			fns.Metrics().RecordFailedAttempt(name, true)
			fns.Logger().Warn("llm call aborted",
				zap.Int("attempt", a.AttemptNumber),
				zap.Int("retries_left", a.RetriesLeft),
				zap.Error(err),
			)
			return asNodeAPIError(node, err)
		}

		if custom != nil {
			if err := custom(ctx, a); err != nil {
				return abort(err)
			}
		}
		if err := DefaultFailedAttemptHandler(ctx, a); err != nil {
			return abort(err)
		}

		if a.RetriesLeft > 0 {
			fns.Metrics().RecordFailedAttempt(name, false)
			fns.Logger().Debug("llm attempt failed, retrying",
				zap.Int("attempt", a.AttemptNumber),
				zap.Int("retries_left", a.RetriesLeft),
				zap.Error(a.Err),
			)
			return nil
		}
		return abort(a.Err)
	}
}

func asNodeAPIError(node *workflow.Node, err error) error {
	var apiErr *workflow.NodeAPIError
	if errors.As(err, &apiErr) {
		return err
	}
	return workflow.NewNodeAPIError(node, err,
		workflow.WithFunctionality(workflow.FunctionalityConfigurationNode))
}
