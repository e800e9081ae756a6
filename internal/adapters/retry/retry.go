// Package retry holds the wait helpers shared by the outbound HTTP clients.
package retry

import (
	"context"
	crand "crypto/rand"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Sleep waits for d or returns false early if ctx is done.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// After parses the Retry-After header (seconds or HTTP-date), capped at limit.
// Returns 0 if absent, invalid or already past.
func After(resp *http.Response, limit time.Duration) time.Duration {
	h := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if h == "" {
		return 0
	}
	var d time.Duration
	if secs, err := strconv.Atoi(h); err == nil && secs >= 0 {
		d = time.Duration(secs) * time.Second
	} else if t, err := http.ParseTime(h); err == nil {
		d = time.Until(t)
	}
	if d < 0 {
		return 0
	}
	return min(d, limit)
}

// Backoff returns base, 2*base, 4*base... for attempt i, plus up to +50%
// jitter when jitter is set.
func Backoff(i int, base time.Duration, jitter bool) time.Duration {
	d := time.Duration(1<<i) * base
	if !jitter {
		return d
	}
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return d
	}
	f := float64(b[0]) / 255.0
	return d + time.Duration(0.5*f*float64(d))
}
