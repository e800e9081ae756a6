package feeds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"costa_listings/internal/adapters/observability"
	"costa_listings/internal/adapters/retry"
)

var (
	ErrAllSourcesFailed = errors.New("feeds: all sources failed")
	ErrEmpty            = errors.New("feeds: payload has no entries")
	ErrUnparsable       = errors.New("feeds: unparsable payload")
)

// StatusError is a non-2xx answer from a feed endpoint.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("feeds: bad status %d", e.Status)
	}
	return fmt.Sprintf("feeds: bad status %d: %s", e.Status, e.Body)
}

// Transport fetches raw feed bodies with a per-request timeout and a single
// bounded retry on network errors, 429 and 5xx.
type Transport struct {
	hc       *http.Client
	retries  int
	maxBytes int64
}

func NewTransport(timeout time.Duration, retries int) *Transport {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if retries < 0 {
		retries = 0
	}
	return &Transport{
		hc:       &http.Client{Timeout: timeout},
		retries:  retries,
		maxBytes: 256 << 20,
	}
}

func (t *Transport) get(ctx context.Context, source, url string) ([]byte, error) {
	var lastErr error
	for i := 0; i <= t.retries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json, application/xml;q=0.9, */*;q=0.1")
		req.Header.Set("User-Agent", "costa-listings/1.0")

		start := time.Now()
		resp, err := t.hc.Do(req)
		if err != nil {
			observability.ObserveExternal(source, "fetch", 0, time.Since(start))
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if i < t.retries && retry.Sleep(ctx, backoff(i)) {
				continue
			}
			return nil, lastErr
		}
		observability.ObserveExternal(source, "fetch", resp.StatusCode, time.Since(start))

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			b, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBytes))
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("feeds: read body: %w", err)
			}
			return b, nil

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			wait := retry.After(resp, 30*time.Second)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = &StatusError{Status: resp.StatusCode}
			if i < t.retries && retry.Sleep(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return nil, &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
		}
	}
	return nil, lastErr
}

func backoff(i int) time.Duration {
	return retry.Backoff(i, 250*time.Millisecond, false)
}
