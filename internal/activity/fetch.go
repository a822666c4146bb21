package activity

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	perr "github.com/Afrawles/standup/internal/errors"
	"github.com/Afrawles/standup/internal/github"
	"github.com/Afrawles/standup/internal/logger"
	"github.com/Afrawles/standup/internal/workday"
)

const (
	orgPerPage  = 100
	orgMaxPages = 50
)

// Options bounds how the Fetcher walks GitHub
type Options struct {
	Org   string
	Repos []string // used when a request names no repositories

	PerPage     int
	MaxPages    int
	Workers     int
	RepoTimeout time.Duration

	// Progress, if set, is called once per repository as its walk finishes
	Progress func(repo string, err error)
}

// Fetcher retrieves and normalizes one workday of activity across repositories
type Fetcher struct {
	src  Source
	opts Options
	log  logger.Logger
}

func NewFetcher(src Source, opts Options) *Fetcher {
	if opts.PerPage <= 0 {
		opts.PerPage = 100
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 10
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.RepoTimeout <= 0 {
		opts.RepoTimeout = 60 * time.Second
	}
	return &Fetcher{src: src, opts: opts, log: *logger.Named("fetcher")}
}

// Request is one fetch: the window to cover, an optional actor filter and an
// optional explicit repository list
type Request struct {
	Window   workday.Window
	Username string
	Repos    []string

	// Seen is the run's commit registry; a fresh one is created when nil
	Seen *SeenCommits
}

// Fetch walks every target repository concurrently. A repository that fails or
// times out is logged and contributes nothing; only failing to determine the
// repository set, or the caller cancelling, fails the whole fetch.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*Activity, error) {
	repos, err := f.ResolveRepos(ctx, req.Repos)
	if err != nil {
		return nil, err
	}

	seen := req.Seen
	if seen == nil {
		seen = NewSeenCommits()
	}
	norm := NewNormalizer(seen, f.src, req.Username)

	results := make([][]Event, len(repos))
	failed := make([]bool, len(repos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.Workers)
	for i, repo := range repos {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			evs, err := f.walk(gctx, repo, req.Window, req.Username, norm)
			if f.opts.Progress != nil {
				f.opts.Progress(repo, err)
			}
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				failed[i] = true
				f.log.Warn().
					Err(err).
					Str("repo", repo).
					Str("code", perr.CodeOf(err).String()).
					Str("op", perr.OpOf(err)).
					Msg("repository skipped")
				return nil
			}
			results[i] = evs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "activity fetch cancelled")
	}

	act := &Activity{
		Date:     req.Window.Start.Format(workday.ISODate),
		Username: req.Username,
		Repos:    repos,
		Window:   req.Window,
		Events:   []Event{},
	}
	for i, evs := range results {
		if failed[i] {
			act.Failed = append(act.Failed, repos[i])
			continue
		}
		act.Events = append(act.Events, evs...)
	}
	sort.SliceStable(act.Events, func(i, j int) bool {
		return act.Events[i].CreatedAt.Before(act.Events[j].CreatedAt)
	})

	f.log.Info().
		Int("repos", len(repos)).
		Int("failed", len(act.Failed)).
		Int("events", len(act.Events)).
		Int("unique_commits", seen.Len()).
		Msg("activity fetched")

	return act, nil
}

// walk pages one repository under its own timeout. Events are normalized only
// once the walk has succeeded, oldest first, so a failed repository never
// registers commit keys and the earliest copy of a repeated commit is kept.
func (f *Fetcher) walk(ctx context.Context, repo string, w workday.Window, username string, norm *Normalizer) ([]Event, error) {
	rctx, cancel := context.WithTimeout(ctx, f.opts.RepoTimeout)
	defer cancel()

	p := github.NewEventPager(f.src, repo, w.Start, f.opts.PerPage, f.opts.MaxPages)
	var kept []github.RawEvent
	for p.Next(rctx) {
		for _, e := range p.Page() {
			if !w.Contains(e.CreatedAt) {
				continue
			}
			if username != "" && !strings.EqualFold(e.Actor.Login, username) {
				continue
			}
			if e.Repo.Name == "" {
				e.Repo.Name = repo
			}
			kept = append(kept, e)
		}
	}
	if err := p.Err(); err != nil {
		return nil, perr.WithOp(
			perr.Wrapf(err, perr.ErrorCodeRepositoryFetchFailed, "fetch events for %s", repo),
			"walk_repo")
	}

	f.log.Debug().
		Str("repo", repo).
		Int("pages", p.Requests()).
		Int("kept", len(kept)).
		Str("stop", p.StopReason()).
		Msg("repository walked")

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].CreatedAt.Before(kept[j].CreatedAt)
	})
	out := make([]Event, 0, len(kept))
	for _, e := range kept {
		out = append(out, norm.Normalize(rctx, e))
	}
	return out, nil
}

// ResolveRepos picks the repositories to walk: the explicit list, else the
// configured list, else every repository of the configured organization
func (f *Fetcher) ResolveRepos(ctx context.Context, explicit []string) ([]string, error) {
	if repos := cleanRepos(explicit); len(repos) > 0 {
		return repos, nil
	}
	if repos := cleanRepos(f.opts.Repos); len(repos) > 0 {
		return repos, nil
	}
	if f.opts.Org == "" {
		return nil, perr.New(perr.ErrorCodeConfigurationMissing,
			"no repositories to read: configure an organization or a repository list")
	}

	p := github.NewRepoPager(f.src, f.opts.Org, orgPerPage, orgMaxPages)
	var repos []string
	archived := 0
	for p.Next(ctx) {
		for _, r := range p.Page() {
			if r.Archived {
				archived++
				continue
			}
			repos = append(repos, r.FullName)
		}
	}
	if err := p.Err(); err != nil {
		return nil, perr.WithOp(
			perr.Wrapf(err, perr.ErrorCodeRepositoryFetchFailed, "list repositories of %s", f.opts.Org),
			"resolve_repos")
	}
	f.log.Debug().
		Str("org", f.opts.Org).
		Int("repos", len(repos)).
		Int("archived", archived).
		Int("requests", p.Requests()).
		Str("stop", p.StopReason()).
		Msg("organization repositories listed")
	return cleanRepos(repos), nil
}

// cleanRepos trims names and drops blanks and repeats, keeping first-seen order
func cleanRepos(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, r := range in {
		r = strings.TrimSpace(r)
		key := strings.ToLower(r)
		if r == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}
