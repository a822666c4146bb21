package github

import (
	"io"
	"net/http"
	"strconv"
	"time"
)

func parseRateHeaders(h http.Header) (remaining int, reset time.Time, retryAfter int) {
	remaining = atoi(h.Get("X-RateLimit-Remaining"), -1)
	if sec := atoi(h.Get("X-RateLimit-Reset"), 0); sec > 0 {
		reset = time.Unix(int64(sec), 0).UTC()
	}
	retryAfter = atoi(h.Get("Retry-After"), 0)
	return
}

// isRateLimited treats 429 as rate limiting, and 403 only when the headers say
// so, since a plain 403 is a permissions problem that retrying will not fix
func isRateLimited(resp *http.Response, remaining, retryAfter int) bool {
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return true
	case http.StatusForbidden:
		return remaining == 0 || retryAfter > 0
	}
	return false
}

// computeWait decides how long to wait based on headers
func computeWait(remaining int, reset time.Time, retryAfter int, now time.Time) time.Duration {
	if retryAfter > 0 {
		return time.Duration(retryAfter) * time.Second
	}
	if remaining == 0 && !reset.IsZero() && reset.After(now) {
		return min(reset.Sub(now), maxBackoff)
	}
	return 0
}

func atoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 512))
	return rc.Close()
}
