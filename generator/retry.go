package generator

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy 非流式操作的重试策略：总尝试次数与指数退避参数。
type RetryPolicy struct {
	Attempts        uint          `mapstructure:"attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
}

// DefaultRetryPolicy 1 次初始请求 + 2 次重试，退避从 1s 开始翻倍。
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, InitialInterval: time.Second, Multiplier: 2}
}

// Retryable 缺少凭证、输入校验失败、调用方取消都不重试。
func Retryable(err error) bool {
	var verr *ValidationError
	switch {
	case IsCredentialError(err):
		return false
	case errors.As(err, &verr):
		return false
	case errors.Is(err, context.Canceled):
		return false
	}
	return true
}

// Retry 执行 op，失败且 retryable(err) 为真时按策略退避重试。attempt 从 1 开始。
func Retry[T any](ctx context.Context, policy RetryPolicy, retryable func(error) bool, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	if policy.Attempts == 0 {
		policy.Attempts = 1
	}
	if retryable == nil {
		retryable = Retryable
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = policy.InitialInterval
	if policy.Multiplier > 0 {
		eb.Multiplier = policy.Multiplier
	}
	eb.RandomizationFactor = 0

	attempt := 0
	v, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := op(ctx, attempt)
		if err != nil && !retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(eb), backoff.WithMaxTries(policy.Attempts))

	// 最后一次尝试时 backoff 不会拆开 PermanentError
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	return v, err
}
