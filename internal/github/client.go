// Package github is a small REST client for the three GitHub endpoints the
// standup digest reads: repository events, organization repositories and a
// single pull request.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	perr "github.com/Afrawles/standup/internal/errors"
	"github.com/Afrawles/standup/internal/logger"
)

const (
	baseURLDefault   = "https://api.github.com"
	defaultTimeout   = 30 * time.Second
	defaultUA        = "standup-digest"
	defaultMaxRetry  = 3
	defaultRetryBase = 500 * time.Millisecond
	maxBackoff       = 30 * time.Second
)

// Options configures the Client
type Options struct {
	BaseURL   string
	Token     string
	UserAgent string
	Timeout   time.Duration

	// RatePerSecond bounds outgoing requests across all workers, <= 0 disables it
	RatePerSecond float64

	MaxRetries int
	RetryBase  time.Duration
}

// Client issues authenticated requests with rate limiting and retries on
// transient and rate limited responses
type Client struct {
	http    *http.Client
	opts    Options
	limiter *rate.Limiter
	log     logger.Logger
	now     func() time.Time
	sleep   func(context.Context, time.Duration) error
}

func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	} else if o.MaxRetries == 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}

	limit := rate.Inf
	if o.RatePerSecond > 0 {
		limit = rate.Limit(o.RatePerSecond)
	}

	return &Client{
		http:    &http.Client{Timeout: o.Timeout},
		opts:    o,
		limiter: rate.NewLimiter(limit, 1),
		log:     *logger.Named("github"),
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

// ListRepoEvents returns one page of a repository's event stream, newest first
func (c *Client) ListRepoEvents(ctx context.Context, repo string, page, perPage int) ([]RawEvent, error) {
	var events []RawEvent
	err := c.getArray(ctx, "/repos/"+repo+"/events", pageQuery(page, perPage), &events)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ListOrgRepos returns one unfiltered page of an organization's repositories.
// The page length drives pagination, so archived entries are left to the caller.
func (c *Client) ListOrgRepos(ctx context.Context, org string, page, perPage int) ([]Repository, error) {
	var repos []Repository
	if err := c.getArray(ctx, "/orgs/"+url.PathEscape(org)+"/repos", pageQuery(page, perPage), &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

// GetPullRequest fetches the full pull request resource
func (c *Client) GetPullRequest(ctx context.Context, repo string, number int) (*PullRequest, error) {
	resp, err := c.do(ctx, fmt.Sprintf("/repos/%s/pulls/%d", repo, number), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var pr PullRequest
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeMalformedResponse, "decode pull request %s#%d", repo, number)
	}
	return &pr, nil
}

// getArray decodes a list endpoint; anything but a JSON array is MalformedResponse
func (c *Client) getArray(ctx context.Context, path string, q url.Values, out any) error {
	resp, err := c.do(ctx, path, q)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "read %s", path)
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return perr.Newf(perr.ErrorCodeMalformedResponse, "%s returned a non-array body", path)
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeMalformedResponse, "decode %s", path)
	}
	return nil
}

// do issues a GET with auth headers, rate limiting and retries. The caller
// owns the returned body.
func (c *Client) do(ctx context.Context, path string, q url.Values) (*http.Response, error) {
	target := c.opts.BaseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	attempts := 0
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "github %s cancelled", path)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "github new request failed")
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
		if c.opts.Token != "" {
			req.Header.Set("Authorization", "Bearer "+c.opts.Token)
		}

		start := c.now()
		resp, err := c.http.Do(req)
		lat := c.now().Sub(start)

		if err != nil {
			if ctx.Err() != nil || !c.shouldRetry(attempts) {
				return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "github %s failed", path)
			}
			back := c.backoff(attempts)
			c.log.Warn().Err(err).Dur("retry_in", back).Int("attempt", attempts).Msg("github transport error retrying")
			if err := c.sleep(ctx, back); err != nil {
				return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "github %s cancelled", path)
			}
			attempts++
			continue
		}

		rem, reset, retryAfter := parseRateHeaders(resp.Header)
		c.log.Debug().
			Str("path", path).
			Str("query", q.Encode()).
			Int("status", resp.StatusCode).
			Int("attempt", attempts).
			Dur("latency", lat).
			Int("rate_remaining", rem).
			Msg("github http response")

		switch {
		case resp.StatusCode == http.StatusOK:
			return resp, nil

		case isRateLimited(resp, rem, retryAfter):
			_ = drainAndClose(resp.Body)
			if !c.shouldRetry(attempts) {
				return nil, perr.Newf(perr.ErrorCodeTooManyRequests, "github rate limited on %s", path)
			}
			wait := computeWait(rem, reset, retryAfter, c.now())
			if wait <= 0 {
				wait = c.backoff(attempts)
			}
			c.log.Warn().Dur("sleep", wait).Str("path", path).Msg("github rate limited backing off")
			if err := c.sleep(ctx, wait); err != nil {
				return nil, perr.Wrapf(err, perr.ErrorCodeTooManyRequests, "github %s cancelled while rate limited", path)
			}
			attempts++
			continue

		case resp.StatusCode == http.StatusBadGateway,
			resp.StatusCode == http.StatusServiceUnavailable,
			resp.StatusCode == http.StatusGatewayTimeout:
			_ = drainAndClose(resp.Body)
			if !c.shouldRetry(attempts) {
				return nil, perr.Newf(perr.ErrorCodeUnavailable, "github transient server error %d on %s", resp.StatusCode, path)
			}
			back := c.backoff(attempts)
			c.log.Warn().Dur("retry_in", back).Int("attempt", attempts).Int("status", resp.StatusCode).Msg("github transient error retrying")
			if err := c.sleep(ctx, back); err != nil {
				return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "github %s cancelled", path)
			}
			attempts++
			continue

		case resp.StatusCode == http.StatusNotFound:
			_ = drainAndClose(resp.Body)
			return nil, perr.Newf(perr.ErrorCodeNotFound, "github %s not found", path)

		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			_ = resp.Body.Close()
			return nil, perr.Newf(perr.ErrorCodeUnknown, "github unexpected status %d on %s: %s", resp.StatusCode, path, strings.TrimSpace(string(body)))
		}
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.opts.RetryBase << uint(attempt)
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}

func (c *Client) shouldRetry(attempt int) bool {
	return attempt < c.opts.MaxRetries
}

func pageQuery(page, perPage int) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	return q
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
