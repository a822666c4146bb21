package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	perr "github.com/Afrawles/standup/internal/errors"
	"github.com/Afrawles/standup/internal/github"
)

type fakeCommit struct {
	sha, msg, name, email string
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func rawEvent(typ, repo, actor string, at time.Time, payload any) github.RawEvent {
	return github.RawEvent{
		ID:        fmt.Sprintf("%s-%d", typ, at.UnixNano()),
		Type:      typ,
		Actor:     github.EventActor{Login: actor},
		Repo:      github.EventRepo{Name: repo},
		Payload:   mustJSON(payload),
		CreatedAt: at,
	}
}

func rawPush(repo, actor string, at time.Time, branch string, commits ...fakeCommit) github.RawEvent {
	cs := make([]map[string]any, 0, len(commits))
	for _, c := range commits {
		cs = append(cs, map[string]any{
			"sha":     c.sha,
			"message": c.msg,
			"author":  map[string]string{"name": c.name, "email": c.email},
		})
	}
	return rawEvent(github.TypePush, repo, actor, at, map[string]any{
		"ref":     "refs/heads/" + branch,
		"size":    len(commits),
		"commits": cs,
	})
}

// fakeSource serves pre-built pages per repository
type fakeSource struct {
	mu       sync.Mutex
	pages    map[string][][]github.RawEvent
	fail     map[string]error
	block    map[string]bool
	orgRepos [][]github.Repository
	orgCalls int
	orgErr   error
	prs      map[string]*github.PullRequest
	calls    map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		pages: map[string][][]github.RawEvent{},
		fail:  map[string]error{},
		block: map[string]bool{},
		prs:   map[string]*github.PullRequest{},
		calls: map[string]int{},
	}
}

func (f *fakeSource) ListRepoEvents(ctx context.Context, repo string, page, perPage int) ([]github.RawEvent, error) {
	f.mu.Lock()
	f.calls[repo]++
	blocked := f.block[repo]
	err := f.fail[repo]
	pages := f.pages[repo]
	f.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return nil, perr.Wrap(ctx.Err(), perr.ErrorCodeUnavailable, "blocked")
	}
	if err != nil {
		return nil, err
	}
	if page > len(pages) {
		return []github.RawEvent{}, nil
	}
	return pages[page-1], nil
}

func (f *fakeSource) ListOrgRepos(_ context.Context, _ string, page, _ int) ([]github.Repository, error) {
	f.mu.Lock()
	f.orgCalls++
	f.mu.Unlock()
	if f.orgErr != nil {
		return nil, f.orgErr
	}
	if page > len(f.orgRepos) {
		return nil, nil
	}
	return f.orgRepos[page-1], nil
}

// orgPage builds a page of n repositories named prefix-<i>
func orgPage(prefix string, n int) []github.Repository {
	page := make([]github.Repository, n)
	for i := range page {
		page[i] = github.Repository{FullName: fmt.Sprintf("acme/%s-%d", prefix, i)}
	}
	return page
}

func (f *fakeSource) GetPullRequest(_ context.Context, repo string, number int) (*github.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pr, ok := f.prs[fmt.Sprintf("%s#%d", repo, number)]
	if !ok {
		return nil, perr.Newf(perr.ErrorCodeNotFound, "no pr %s#%d", repo, number)
	}
	return pr, nil
}

func (f *fakeSource) callCount(repo string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[repo]
}
