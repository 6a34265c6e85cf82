package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RetryPolicy describes how an upstream HTTP call is retried.
//
// Both API clients use the same loop; they differ only in which statuses are
// retryable and what happens between attempts (token re-exchange for Spotify,
// key rotation for YouTube).
type RetryPolicy struct {
	// MaxAttempts is the total number of requests issued, including the first.
	MaxAttempts int

	// Retryable reports whether the status code merits another attempt.
	Retryable func(status int) bool

	// Wait returns how long to pause before the next attempt. Returning
	// ok=false stops retrying and surfaces the response as-is.
	Wait func(resp *http.Response) (wait time.Duration, ok bool)

	// OnRetry runs before the next attempt. A non-nil error aborts the loop.
	OnRetry func(ctx context.Context, resp *http.Response) error
}

// Do runs fn up to MaxAttempts times, honoring the policy between attempts.
//
// The body of every non-final response is drained and closed here; the caller
// owns the body of the returned response.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) (*http.Response, error)) (*http.Response, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var resp *http.Response
	for attempt := 0; attempt < attempts; attempt++ {
		var err error
		resp, err = fn(ctx)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}
		if p.Retryable == nil || !p.Retryable(resp.StatusCode) || attempt == attempts-1 {
			return resp, nil
		}

		if p.Wait != nil {
			wait, ok := p.Wait(resp)
			if !ok {
				return resp, nil
			}
			discard(resp)
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
		} else {
			discard(resp)
		}

		if p.OnRetry != nil {
			if err := p.OnRetry(ctx, resp); err != nil {
				return nil, err
			}
		}
	}

	return resp, nil
}

// sleep blocks for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("wait interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func discard(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// retryAfter parses the Retry-After header as delay seconds.
func retryAfter(resp *http.Response) (time.Duration, bool) {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0, false
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}
