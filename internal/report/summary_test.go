package report

import (
	"testing"
	"time"

	"github.com/Afrawles/standup/internal/activity"
	"github.com/Afrawles/standup/internal/workday"
)

var day = time.Date(2024, 7, 23, 0, 0, 0, 0, time.UTC)

func push(repo string, at time.Time, commits ...activity.Commit) activity.Event {
	return activity.Event{
		Type:      "PushEvent",
		Repo:      repo,
		Actor:     "octo",
		CreatedAt: at,
		Detail:    activity.Push{Branch: "main", Commits: commits, URL: "https://github.com/" + repo + "/commits/main"},
	}
}

func commit(repo, sha, msg string) activity.Commit {
	return activity.Commit{
		Message:  msg,
		ShortSHA: sha[:min(7, len(sha))],
		FullSHA:  sha,
		URL:      "https://github.com/" + repo + "/commit/" + sha,
	}
}

func sample() *activity.Activity {
	at := day.Add(9 * time.Hour)
	return &activity.Activity{
		Date:     "2024-07-23",
		Username: "octo",
		Repos:    []string{"acme/web", "acme/api"},
		Window:   workday.BuildWindow(day),
		Events: []activity.Event{
			{
				Type: "PullRequestReviewEvent", Repo: "acme/api", Actor: "octo", CreatedAt: at.Add(3 * time.Hour),
				Detail: activity.PullRequestReview{Number: 7, State: "changes_requested", URL: "https://github.com/acme/api/pull/7"},
			},
			push("acme/web", at.Add(time.Hour), commit("acme/web", "aaaaaaa1", "Fix header layout")),
			push("acme/api", at, commit("acme/api", "bbbbbbb1", "Add endpoint"), commit("acme/api", "bbbbbbb2", "Add tests\n\nlong body")),
			push("acme/api", at.Add(2*time.Hour), commit("acme/api", "bbbbbbb3", "Tidy")),
			{
				Type: "PullRequestEvent", Repo: "acme/web", Actor: "octo", CreatedAt: at.Add(4 * time.Hour),
				Detail: activity.PullRequestOpened{Number: 12, Title: "New header", URL: "https://github.com/acme/web/pull/12"},
			},
		},
	}
}

func TestAssemble_GroupsByFirstSeenRepository(t *testing.T) {
	s := Assemble(sample())

	if s.TotalEvents != 5 || s.RepositoryCount != 2 {
		t.Fatalf("totals = %d events, %d repos", s.TotalEvents, s.RepositoryCount)
	}
	if s.Repositories[0].Name != "acme/api" || s.Repositories[1].Name != "acme/web" {
		t.Fatalf("repository order = %s, %s", s.Repositories[0].Name, s.Repositories[1].Name)
	}
	if s.CommitCount != 4 || s.Repositories[0].CommitCount != 3 {
		t.Fatalf("commit counts = %d total, %d api", s.CommitCount, s.Repositories[0].CommitCount)
	}
	if s.PullRequestCount != 1 {
		t.Fatalf("pull request count = %d", s.PullRequestCount)
	}
	if s.EventTypes["PushEvent"] != 3 {
		t.Fatalf("event types = %v", s.EventTypes)
	}
	for _, r := range s.Repositories {
		for i := 1; i < len(r.Events); i++ {
			if r.Events[i].CreatedAt.Before(r.Events[i-1].CreatedAt) {
				t.Fatalf("%s events out of order", r.Name)
			}
		}
	}
	if s.Message != "" {
		t.Fatalf("unexpected message %q", s.Message)
	}
}

func TestAssemble_Items(t *testing.T) {
	s := Assemble(sample())

	kinds := []ItemKind{ItemCommits, ItemCommits, ItemPullRequestReview, ItemPullRequestOpened}
	if len(s.Items) != len(kinds) {
		t.Fatalf("items = %+v", s.Items)
	}
	for i, k := range kinds {
		if s.Items[i].Kind != k {
			t.Fatalf("item %d kind = %s, want %s", i, s.Items[i].Kind, k)
		}
	}
	api := s.Items[0]
	if api.Repo != "acme/api" || len(api.Commits) != 3 || api.URL != "https://github.com/acme/api" {
		t.Fatalf("api item = %+v", api)
	}
	web := s.Items[1]
	if len(web.Commits) != 1 || web.URL != "https://github.com/acme/web/commit/aaaaaaa1" {
		t.Fatalf("single commit item should link the commit: %+v", web)
	}
}

func TestAssemble_Empty(t *testing.T) {
	s := Assemble(&activity.Activity{Date: "2024-07-23", Window: workday.BuildWindow(day)})
	if !s.Empty() {
		t.Fatal("expected empty summary")
	}
	if s.Message != "No GitHub activity found for 2024-07-23." {
		t.Fatalf("message = %q", s.Message)
	}
	if s.Items == nil || s.Repositories == nil || s.FailedRepos == nil {
		t.Fatal("slices must be non-nil")
	}

	if s := Assemble(nil); !s.Empty() {
		t.Fatal("nil activity should assemble to an empty summary")
	}
}

func TestSummary_DayFallsBackToWindow(t *testing.T) {
	s := Summary{Window: workday.BuildWindow(day)}
	if !s.Day().Equal(day) {
		t.Fatalf("Day() = %v", s.Day())
	}
}
