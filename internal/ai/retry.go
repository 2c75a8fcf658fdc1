package ai

import (
	"context"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	retryInitialInterval = 500 * time.Millisecond
	retryMaxInterval     = 10 * time.Second
	retryMaxElapsed      = 2 * time.Minute
)

// withRetry runs call until it succeeds, returns a backoff.Permanent error,
// exhausts maxRetries or ctx is done.
func withRetry(ctx context.Context, logger *zap.Logger, maxRetries uint64, call func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitialInterval
	b.MaxInterval = retryMaxInterval
	b.MaxElapsedTime = retryMaxElapsed

	policy := backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx)

	return backoff.RetryNotify(call, policy, func(err error, wait time.Duration) {
		logger.Warn("Decision call failed, retrying", zap.Duration("wait", wait), zap.Error(err))
	})
}

// retryableStatus reports whether an HTTP status from a model API is worth retrying.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= http.StatusInternalServerError
}
