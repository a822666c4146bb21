package activity

import "github.com/Afrawles/standup/internal/github"

// Source is everything the Fetcher needs from GitHub. *github.Client
// satisfies it; tests substitute in-memory fakes.
type Source interface {
	github.EventLister
	github.RepoLister
	github.PullRequestGetter
}

var _ Source = (*github.Client)(nil)
