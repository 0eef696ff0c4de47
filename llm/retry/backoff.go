package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy 定义重试策略配置
type RetryPolicy struct {
	MaxRetries   int                  // 最大重试次数（0 表示不重试）
	InitialDelay time.Duration        // 初始延迟时间
	MaxDelay     time.Duration        // 最大延迟时间
	Multiplier   float64              // 延迟时间倍增因子（指数退避）
	Jitter       bool                 // 是否添加随机抖动
	Retryable    func(err error) bool // 可重试判定，为空时所有错误均重试

	// OnFailedAttempt runs after every failed attempt, including the last
	// one, before the retryability check. attempt starts at 1. A non-nil
	// return aborts the loop and is returned as-is.
	OnFailedAttempt func(attempt, retriesLeft int, err error) error
}

// Retryer 重试器接口
type Retryer interface {
	// DoWithResult 执行函数并返回结果，失败时根据策略重试
	DoWithResult(ctx context.Context, fn func() (any, error)) (any, error)
}

// ErrRetriesExhausted is wrapped into the error returned once every
// attempt has failed.
var ErrRetriesExhausted = errors.New("retries exhausted")

// backoffRetryer 基于指数退避的重试器实现
type backoffRetryer struct {
	policy *RetryPolicy
	logger *zap.Logger
}

// NewBackoffRetryer 创建指数退避重试器
func NewBackoffRetryer(policy *RetryPolicy, logger *zap.Logger) Retryer {
	if policy == nil {
		policy = &RetryPolicy{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := *policy
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 1 * time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.Multiplier < 1.0 {
		p.Multiplier = 2.0
	}

	return &backoffRetryer{
		policy: &p,
		logger: logger.With(zap.String("component", "retryer")),
	}
}

// DoWithResult 核心重试逻辑：指数退避 + 随机抖动 + 失败钩子 + 错误过滤
func (r *backoffRetryer) DoWithResult(ctx context.Context, fn func() (any, error)) (any, error) {
	var lastErr error
	total := r.policy.MaxRetries + 1

	for attempt := 1; attempt <= total; attempt++ {
		if attempt > 1 {
			delay := r.calculateDelay(attempt - 1)

			r.logger.Debug("retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", r.policy.MaxRetries),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, fmt.Errorf("retry canceled: %w", ctx.Err())
			case <-timer.C:
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 1 {
				r.logger.Debug("retry succeeded", zap.Int("attempt", attempt))
			}
			return result, nil
		}
		lastErr = err

		retriesLeft := total - attempt
		if r.policy.OnFailedAttempt != nil {
			if abortErr := r.policy.OnFailedAttempt(attempt, retriesLeft, err); abortErr != nil {
				return nil, abortErr
			}
		}

		if !r.isRetryable(err) {
			r.logger.Debug("error not retryable", zap.Error(err))
			return nil, err
		}
	}

	r.logger.Warn("retries exhausted",
		zap.Int("attempts", total),
		zap.Error(lastErr),
	)

	return nil, fmt.Errorf("%w after %d retries: %w", ErrRetriesExhausted, r.policy.MaxRetries, lastErr)
}

// calculateDelay delay = initial * multiplier^(retry-1)，可选 ±25% 抖动
func (r *backoffRetryer) calculateDelay(retry int) time.Duration {
	delay := float64(r.policy.InitialDelay) * math.Pow(r.policy.Multiplier, float64(retry-1))

	if delay > float64(r.policy.MaxDelay) {
		delay = float64(r.policy.MaxDelay)
	}

	if r.policy.Jitter {
		jitter := delay * 0.25
		delay = delay + (rand.Float64()*2-1)*jitter
	}

	if delay < float64(r.policy.InitialDelay) {
		delay = float64(r.policy.InitialDelay)
	}

	return time.Duration(delay)
}

func (r *backoffRetryer) isRetryable(err error) bool {
	if r.policy.Retryable != nil {
		return r.policy.Retryable(err)
	}
	return true
}
