package github

import (
	"context"
	"time"

	perr "github.com/Afrawles/standup/internal/errors"
)

// EventLister lists one page of a repository's events
type EventLister interface {
	ListRepoEvents(ctx context.Context, repo string, page, perPage int) ([]RawEvent, error)
}

// RepoLister lists one page of an organization's repositories
type RepoLister interface {
	ListOrgRepos(ctx context.Context, org string, page, perPage int) ([]Repository, error)
}

// PullRequestGetter fetches one pull request
type PullRequestGetter interface {
	GetPullRequest(ctx context.Context, repo string, number int) (*PullRequest, error)
}

// Why a Pager stopped
const (
	StopEmpty     = "empty_page"
	StopMalformed = "malformed_page"
	StopShort     = "short_page"
	StopCrossed   = "crossed_window"
	StopPageCap   = "page_cap"
	StopError     = "error"
)

// Pager walks a paginated endpoint lazily, one request per Next call, and
// stops as soon as no further page can be useful. Pages are 1-based.
type Pager[T any] struct {
	fetch    func(ctx context.Context, page int) ([]T, error)
	perPage  int
	maxPages int

	// exhausted reports whether the items on a page prove later pages are irrelevant
	exhausted func(items []T) bool

	page     int
	cur      []T
	err      error
	done     bool
	stop     string
	requests int
}

// NewEventPager pages a repository's events newest first and stops once a page
// reaches back past since
func NewEventPager(l EventLister, repo string, since time.Time, perPage, maxPages int) *Pager[RawEvent] {
	return &Pager[RawEvent]{
		fetch: func(ctx context.Context, page int) ([]RawEvent, error) {
			return l.ListRepoEvents(ctx, repo, page, perPage)
		},
		perPage:  perPage,
		maxPages: maxPages,
		exhausted: func(items []RawEvent) bool {
			return oldest(items).Before(since)
		},
	}
}

// NewRepoPager pages an organization's repositories
func NewRepoPager(l RepoLister, org string, perPage, maxPages int) *Pager[Repository] {
	return &Pager[Repository]{
		fetch: func(ctx context.Context, page int) ([]Repository, error) {
			return l.ListOrgRepos(ctx, org, page, perPage)
		},
		perPage:  perPage,
		maxPages: maxPages,
	}
}

// Next fetches the following page and reports whether one is available. A
// malformed page ends the walk like an empty one and is not an error.
func (p *Pager[T]) Next(ctx context.Context) bool {
	if p.done {
		p.cur = nil
		return false
	}
	if p.maxPages > 0 && p.page >= p.maxPages {
		p.finish(StopPageCap)
		return false
	}

	p.page++
	p.requests++
	items, err := p.fetch(ctx, p.page)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeMalformedResponse) {
			p.finish(StopMalformed)
			return false
		}
		p.err = err
		p.finish(StopError)
		return false
	}
	if len(items) == 0 {
		p.finish(StopEmpty)
		return false
	}

	p.cur = items
	switch {
	case len(items) < p.perPage:
		p.done, p.stop = true, StopShort
	case p.exhausted != nil && p.exhausted(items):
		p.done, p.stop = true, StopCrossed
	}
	return true
}

func (p *Pager[T]) finish(reason string) {
	p.cur = nil
	p.done = true
	p.stop = reason
}

// Page returns the items of the current page
func (p *Pager[T]) Page() []T { return p.cur }

// Err returns the first non-malformed fetch error, if any
func (p *Pager[T]) Err() error { return p.err }

// Requests is the number of page requests issued so far
func (p *Pager[T]) Requests() int { return p.requests }

// StopReason names the condition that ended the walk
func (p *Pager[T]) StopReason() string { return p.stop }

func oldest(events []RawEvent) time.Time {
	var t time.Time
	for i, e := range events {
		if i == 0 || e.CreatedAt.Before(t) {
			t = e.CreatedAt
		}
	}
	return t
}
