package breach

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const maxBodyBytes = 4 << 20

// StatusError is a non-2xx provider response.
type StatusError struct {
	Provider string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Provider, e.Code)
}

// statusErr wraps non-retryable statuses (4xx other than 429) as permanent so
// backoff stops at once.
func statusErr(provider string, code int) error {
	err := &StatusError{Provider: provider, Code: code}
	if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
		return backoff.Permanent(err)
	}
	return err
}

// get performs one GET and returns the status and the (bounded) body.
func get(ctx context.Context, client *http.Client, rawURL string, header http.Header) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, backoff.Permanent(err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		// The URL may carry an account identifier; keep it out of the error.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = fmt.Errorf("%s request: %w", uerr.Op, uerr.Err)
		}
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

// retry runs op at most tries times with a fresh timeout per attempt.
func retry[T any](ctx context.Context, tries uint, timeout time.Duration, b backoff.BackOff, op func(ctx context.Context) (T, error)) (T, error) {
	return backoff.Retry(ctx, func() (T, error) {
		actx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return op(actx)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(tries))
}
