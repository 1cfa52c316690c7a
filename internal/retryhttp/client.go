// Package retryhttp wraps outbound calls to the ASR and LLM backends with a
// per-attempt timeout, bounded retries and exponential backoff. Client errors
// (4xx) are never retried; timeouts, connection errors and 5xx responses are.
package retryhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/klangab/whisper-batch-worker/pkg/log"
)

// UnreachableError reports that an external dependency stayed unreachable
// after every configured attempt.
type UnreachableError struct {
	URL      string
	Attempts int
	Cause    error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("dependency unreachable after %d attempts: %s: %v", e.Attempts, e.URL, e.Cause)
}

func (e *UnreachableError) Unwrap() error {
	return e.Cause
}

// IsUnreachable reports whether err carries an UnreachableError.
func IsUnreachable(err error) bool {
	var unreachable *UnreachableError
	return errors.As(err, &unreachable)
}

// StatusError is a non-2xx HTTP response surfaced as an error.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client is a bounded-retry HTTP client shared by the retry-transcription and
// summary steps.
type Client struct {
	httpClient *http.Client
	attempts   int
	backoff    time.Duration
}

// NewClient builds a Client with the given per-attempt timeout, attempt count
// and base backoff delay (doubled after every failed attempt).
func NewClient(timeout time.Duration, attempts int, backoffBase time.Duration) *Client {
	if attempts < 1 {
		attempts = 1
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		attempts:   attempts,
		backoff:    backoffBase,
	}
}

// PostJSON sends payload as JSON to url and decodes the response body into
// out. It retries on transport errors and 5xx responses only.
func (c *Client) PostJSON(ctx context.Context, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.PostJSONWithHeaders(ctx, url, body, nil, out)
}

// PostJSONWithHeaders is PostJSON with pre-marshaled body and extra headers.
func (c *Client) PostJSONWithHeaders(ctx context.Context, url string, body []byte, headers map[string]string, out any) error {
	var responseBody []byte
	attempt := 0

	operation := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			responseBody = data
			return nil
		case resp.StatusCode >= 500:
			return &StatusError{StatusCode: resp.StatusCode, Body: truncateBody(data)}
		default:
			// 4xx is not transient, do not retry
			return backoff.Permanent(&StatusError{StatusCode: resp.StatusCode, Body: truncateBody(data)})
		}
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.backoff
	expo.Multiplier = 2
	expo.RandomizationFactor = 0
	expo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(c.attempts-1)), ctx)
	notify := func(err error, wait time.Duration) {
		log.Warn("Request to %s failed (attempt %d/%d): %v, retrying in %s", url, attempt, c.attempts, err, wait)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		var status *StatusError
		if errors.As(err, &status) && status.StatusCode < 500 {
			return status
		}
		return &UnreachableError{URL: url, Attempts: attempt, Cause: err}
	}

	if out != nil {
		if err := json.Unmarshal(responseBody, out); err != nil {
			return fmt.Errorf("decode response from %s: %w", url, err)
		}
	}
	return nil
}

func truncateBody(data []byte) string {
	const max = 512
	if len(data) > max {
		return string(data[:max])
	}
	return string(data)
}
