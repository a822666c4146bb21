package activity

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Afrawles/standup/internal/github"
)

var at = time.Date(2024, 7, 23, 15, 0, 0, 0, time.UTC)

func TestNormalize_PushDropsEmptyAndDedups(t *testing.T) {
	n := NewNormalizer(NewSeenCommits(), nil, "")

	first := n.Normalize(context.Background(), rawPush("acme/api", "octo", at, "feature/x",
		fakeCommit{sha: "aaaaaaaaaa", msg: "Add retries", name: "octo"},
		fakeCommit{sha: "bbbbbbbbbb", msg: "   ", name: "octo"},
		fakeCommit{sha: "cccccccccc", msg: "Fix typo", name: "octo"},
	))
	p, ok := first.Detail.(Push)
	if !ok {
		t.Fatalf("detail = %T", first.Detail)
	}
	if p.Branch != "feature/x" || p.URL != "https://github.com/acme/api/tree/feature/x" {
		t.Fatalf("unexpected push %+v", p)
	}
	if len(p.Commits) != 2 {
		t.Fatalf("commits = %+v", p.Commits)
	}
	if c := p.Commits[0]; c.ShortSHA != "aaaaaaa" || c.URL != "https://github.com/acme/api/commit/aaaaaaaaaa" {
		t.Fatalf("unexpected commit %+v", c)
	}

	// rebased copy with a fresh sha
	second := n.Normalize(context.Background(), rawPush("acme/api", "octo", at.Add(time.Hour), "feature/x",
		fakeCommit{sha: "dddddddddd", msg: "add retries", name: "octo"},
	))
	if got := second.Detail.(Push).Commits; len(got) != 0 {
		t.Fatalf("duplicate should be suppressed, got %+v", got)
	}
}

func TestNormalize_PushDropsCommitsWithoutSHA(t *testing.T) {
	seen := NewSeenCommits()
	n := NewNormalizer(seen, nil, "")

	ev := n.Normalize(context.Background(), rawPush("acme/api", "octo", at, "main",
		fakeCommit{sha: "", msg: "Orphan change", name: "octo"},
		fakeCommit{sha: "eeeeeeeeee", msg: "Real change", name: "octo"},
	))
	got := ev.Detail.(Push).Commits
	if len(got) != 1 || got[0].Message != "Real change" {
		t.Fatalf("commits = %+v", got)
	}
	for _, c := range got {
		if strings.HasSuffix(c.URL, "/commit/") {
			t.Fatalf("commit link without sha: %s", c.URL)
		}
	}
	if seen.Len() != 1 {
		t.Fatalf("registry size = %d, the sha-less commit must not be registered", seen.Len())
	}
}

func TestNormalize_AuthorFallbackKeepsAllCommits(t *testing.T) {
	n := NewNormalizer(NewSeenCommits(), nil, "octo")

	ev := n.Normalize(context.Background(), rawPush("acme/api", "octo", at, "main",
		fakeCommit{sha: "1111111", msg: "one", name: "Alice", email: "alice@example.com"},
		fakeCommit{sha: "2222222", msg: "two", name: "Bob", email: "bob@example.com"},
		fakeCommit{sha: "3333333", msg: "three", name: "Carol", email: "carol@example.com"},
	))
	p := ev.Detail.(Push)
	if len(p.Commits) != 3 {
		t.Fatalf("expected all 3 commits, got %d", len(p.Commits))
	}
	if !p.AuthorFallback {
		t.Fatalf("fallback flag should be set")
	}
	if p.Commits[1].AuthorName != "Bob" {
		t.Fatalf("commits must carry their author, got %+v", p.Commits[1])
	}
}

func TestNormalize_AuthorFilterMatches(t *testing.T) {
	n := NewNormalizer(NewSeenCommits(), nil, "Octo")

	ev := n.Normalize(context.Background(), rawPush("acme/api", "octo", at, "main",
		fakeCommit{sha: "1111111", msg: "by name", name: "octo"},
		fakeCommit{sha: "2222222", msg: "by email", name: "O. Cat", email: "octo@corp.example"},
		fakeCommit{sha: "3333333", msg: "by noreply", name: "O. Cat", email: "12345+octo@users.noreply.github.com"},
		fakeCommit{sha: "4444444", msg: "someone else", name: "Bob", email: "bob@example.com"},
	))
	p := ev.Detail.(Push)
	if p.AuthorFallback {
		t.Fatalf("fallback should not trigger when commits match")
	}
	var msgs []string
	for _, c := range p.Commits {
		msgs = append(msgs, c.Message)
	}
	if strings.Join(msgs, ",") != "by name,by email,by noreply" {
		t.Fatalf("kept = %v", msgs)
	}
}

type prGetter map[int]*github.PullRequest

func (g prGetter) GetPullRequest(_ context.Context, _ string, number int) (*github.PullRequest, error) {
	if pr, ok := g[number]; ok {
		return pr, nil
	}
	return nil, context.DeadlineExceeded
}

func TestNormalize_PullRequestOpenedUsesLookup(t *testing.T) {
	long := strings.Repeat("é", 250)
	n := NewNormalizer(NewSeenCommits(), prGetter{7: {Number: 7, Title: "Add retries", Body: long}}, "")

	ev := n.Normalize(context.Background(), rawEvent(github.TypePullRequest, "acme/api", "octo", at, map[string]any{
		"action":       "opened",
		"number":       7,
		"pull_request": map[string]any{"number": 7, "title": "stale title"},
	}))
	pr, ok := ev.Detail.(PullRequestOpened)
	if !ok {
		t.Fatalf("detail = %T", ev.Detail)
	}
	if pr.Title != "Add retries" {
		t.Fatalf("title = %q", pr.Title)
	}
	if !strings.HasSuffix(pr.Description, "...") || len([]rune(pr.Description)) != 203 {
		t.Fatalf("description not truncated to 200 runes: %d", len([]rune(pr.Description)))
	}
	if pr.URL != "https://github.com/acme/api/pull/7" {
		t.Fatalf("url = %q", pr.URL)
	}
}

func TestNormalize_PullRequestLookupFailureFallsBack(t *testing.T) {
	n := NewNormalizer(NewSeenCommits(), prGetter{}, "")

	ev := n.Normalize(context.Background(), rawEvent(github.TypePullRequest, "acme/api", "octo", at, map[string]any{
		"action":       "opened",
		"number":       9,
		"pull_request": map[string]any{"number": 9, "title": "From payload", "body": "short"},
	}))
	pr := ev.Detail.(PullRequestOpened)
	if pr.Title != "From payload" || pr.Description != "short" {
		t.Fatalf("unexpected %+v", pr)
	}
}

func TestNormalize_PullRequestOtherActions(t *testing.T) {
	n := NewNormalizer(NewSeenCommits(), nil, "")

	merged := n.Normalize(context.Background(), rawEvent(github.TypePullRequest, "acme/api", "octo", at, map[string]any{
		"action":       "closed",
		"number":       3,
		"pull_request": map[string]any{"number": 3, "merged": true},
	}))
	if d := merged.Detail.(PullRequestOther); d.Action != "merged" || d.Number != 3 {
		t.Fatalf("unexpected %+v", d)
	}

	closed := n.Normalize(context.Background(), rawEvent(github.TypePullRequest, "acme/api", "octo", at, map[string]any{
		"action":       "closed",
		"pull_request": map[string]any{"number": 4},
	}))
	if d := closed.Detail.(PullRequestOther); d.Action != "closed" || d.Number != 4 {
		t.Fatalf("unexpected %+v", d)
	}
}

func TestNormalize_CommentsReviewsRefs(t *testing.T) {
	n := NewNormalizer(NewSeenCommits(), nil, "")
	ctx := context.Background()

	comment := n.Normalize(ctx, rawEvent(github.TypeIssueComment, "acme/api", "octo", at, map[string]any{
		"issue":   map[string]any{"number": 12, "pull_request": map[string]any{}},
		"comment": map[string]any{"body": strings.Repeat("x", 160)},
	}))
	c := comment.Detail.(IssueComment)
	if !c.IsPR || c.Number != 12 || c.URL != "https://github.com/acme/api/pull/12" {
		t.Fatalf("unexpected comment %+v", c)
	}
	if len(c.Excerpt) != 153 {
		t.Fatalf("comment excerpt len = %d", len(c.Excerpt))
	}

	issue := n.Normalize(ctx, rawEvent(github.TypeIssueComment, "acme/api", "octo", at, map[string]any{
		"issue":   map[string]any{"number": 13},
		"comment": map[string]any{"body": "ok"},
	}))
	if ic := issue.Detail.(IssueComment); ic.IsPR || ic.URL != "https://github.com/acme/api/issues/13" {
		t.Fatalf("unexpected issue comment %+v", ic)
	}

	rev := n.Normalize(ctx, rawEvent(github.TypePullRequestReview, "acme/api", "octo", at, map[string]any{
		"review":       map[string]any{"state": "CHANGES_REQUESTED", "body": strings.Repeat("y", 120)},
		"pull_request": map[string]any{"number": 5},
	}))
	r := rev.Detail.(PullRequestReview)
	if r.State != "changes_requested" || r.Number != 5 || len(r.Excerpt) != 103 {
		t.Fatalf("unexpected review %+v", r)
	}

	rc := n.Normalize(ctx, rawEvent(github.TypeReviewComment, "acme/api", "octo", at, map[string]any{
		"comment":      map[string]any{"body": "nit"},
		"pull_request": map[string]any{"number": 5},
	}))
	if d := rc.Detail.(ReviewComment); d.Number != 5 {
		t.Fatalf("unexpected review comment %+v", d)
	}

	created := n.Normalize(ctx, rawEvent(github.TypeCreate, "acme/api", "octo", at, map[string]any{"ref": "feature/y", "ref_type": "branch"}))
	if d := created.Detail.(RefCreated); d.RefName != "feature/y" || d.URL != "https://github.com/acme/api/tree/feature/y" {
		t.Fatalf("unexpected create %+v", d)
	}

	deleted := n.Normalize(ctx, rawEvent(github.TypeDelete, "acme/api", "octo", at, map[string]any{"ref": "old", "ref_type": "tag"}))
	if d := deleted.Detail.(RefDeleted); d.RefType != "tag" || d.RefName != "old" {
		t.Fatalf("unexpected delete %+v", d)
	}
}

func TestNormalize_UnknownAndBrokenPayloadsAreGeneric(t *testing.T) {
	n := NewNormalizer(NewSeenCommits(), nil, "")

	watch := n.Normalize(context.Background(), rawEvent("WatchEvent", "acme/api", "octo", at, map[string]any{"action": "started"}))
	if watch.Kind() != KindGeneric || watch.Type != "WatchEvent" || watch.Repo != "acme/api" || !watch.CreatedAt.Equal(at) {
		t.Fatalf("unexpected generic %+v", watch)
	}

	broken := github.RawEvent{Type: github.TypePush, Repo: github.EventRepo{Name: "acme/api"}, Payload: []byte(`"nope"`), CreatedAt: at}
	if ev := n.Normalize(context.Background(), broken); ev.Kind() != KindGeneric {
		t.Fatalf("broken payload should be generic, got %s", ev.Kind())
	}
}
