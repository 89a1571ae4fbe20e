// Package gateways provides implementations of domain gateway interfaces.
package gateways

import (
	"context"
	"math"
	"net/http"
	"time"
)

const (
	// Lookups run inside a hook with a tight deadline, so retry once and quickly
	defaultRetries = 1
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 1 * time.Second
)

// isRetryableError checks if an HTTP status code indicates a retryable error
func isRetryableError(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests, // 429
		http.StatusInternalServerError, // 500
		http.StatusBadGateway,          // 502
		http.StatusServiceUnavailable,  // 503
		http.StatusGatewayTimeout:      // 504
		return true
	default:
		return false
	}
}

// calculateBackoff calculates exponential backoff duration
func calculateBackoff(attempt int) time.Duration {
	backoff := float64(initialBackoff) * math.Pow(2, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}
	return time.Duration(backoff)
}

// doWithRetry executes a request with exponential backoff retry.
// newRequest is called per attempt so request bodies can be replayed.
func doWithRetry(ctx context.Context, client *http.Client, retries int, newRequest func() (*http.Request, error)) (*http.Response, error) {
	var (
		resp *http.Response
		err  error
	)

	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(calculateBackoff(attempt - 1)):
			}
		}

		req, reqErr := newRequest()
		if reqErr != nil {
			return nil, reqErr
		}

		resp, err = client.Do(req)
		if err != nil {
			// Network errors are retryable unless the caller gave up
			if ctx.Err() != nil {
				return nil, err
			}
			continue
		}

		if !isRetryableError(resp.StatusCode) || attempt == retries {
			return resp, nil
		}

		//nolint:errcheck,gosec // G104: Best effort close before retry
		resp.Body.Close()
	}

	return nil, err
}
