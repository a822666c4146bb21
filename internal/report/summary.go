package report

import (
	"sort"
	"time"

	"github.com/Afrawles/standup/internal/activity"
	"github.com/Afrawles/standup/internal/workday"
)

// ItemKind names the standup bullet types
type ItemKind string

const (
	ItemCommits           ItemKind = "commits"
	ItemPullRequestOpened ItemKind = "pull_request_opened"
	ItemPullRequestReview ItemKind = "pull_request_review"
)

// Item is one standup bullet
type Item struct {
	Kind    ItemKind          `json:"kind"`
	Repo    string            `json:"repo"`
	URL     string            `json:"url"`
	Number  int               `json:"number,omitempty"`
	Title   string            `json:"title,omitempty"`
	State   string            `json:"state,omitempty"`
	Commits []activity.Commit `json:"commits,omitempty"`
	// ShowAuthors is set when commits were kept by the author fallback
	ShowAuthors bool `json:"show_authors,omitempty"`
}

// RepoActivity is one repository's events in chronological order
type RepoActivity struct {
	Name        string           `json:"name"`
	URL         string           `json:"url"`
	CommitCount int              `json:"commit_count"`
	Events      []activity.Event `json:"events"`
}

// Summary is the read-only model handed to renderers
type Summary struct {
	Date             string         `json:"date"`
	Username         string         `json:"username,omitempty"`
	Window           workday.Window `json:"window"`
	Message          string         `json:"message,omitempty"`
	TotalEvents      int            `json:"total_events"`
	RepositoryCount  int            `json:"repository_count"`
	CommitCount      int            `json:"commit_count"`
	PullRequestCount int            `json:"pull_request_count"`
	EventTypes       map[string]int `json:"event_types"`
	Items            []Item         `json:"items"`
	Repositories     []RepoActivity `json:"repositories"`
	FailedRepos      []string       `json:"failed_repos"`
}

// Empty reports whether there is nothing to show
func (s Summary) Empty() bool { return s.TotalEvents == 0 }

// Day parses Date, falling back to the window start
func (s Summary) Day() time.Time {
	if t, err := time.Parse(workday.ISODate, s.Date); err == nil {
		return t
	}
	return s.Window.Start
}

// Title is the report heading, dated when the workday is known
func (s Summary) Title() string {
	d := s.Day()
	if d.IsZero() {
		return "Standup Summary"
	}
	return "Standup Summary - " + d.Format("January 2, 2006")
}

// Assemble groups events by repository in first-seen order and derives the
// standup bullets. Events are taken in chronological order.
func Assemble(act *activity.Activity) Summary {
	s := Summary{
		EventTypes:   map[string]int{},
		Items:        []Item{},
		Repositories: []RepoActivity{},
		FailedRepos:  []string{},
	}
	if act == nil {
		return s
	}

	s.Date = act.Date
	s.Username = act.Username
	s.Window = act.Window
	if s.Date == "" && !act.Window.Start.IsZero() {
		s.Date = act.Window.Start.Format(workday.ISODate)
	}
	s.FailedRepos = append(s.FailedRepos, act.Failed...)

	events := make([]activity.Event, len(act.Events))
	copy(events, act.Events)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})

	index := map[string]int{}
	for _, e := range events {
		i, ok := index[e.Repo]
		if !ok {
			i = len(s.Repositories)
			index[e.Repo] = i
			s.Repositories = append(s.Repositories, RepoActivity{Name: e.Repo, URL: repoURL(e.Repo), Events: []activity.Event{}})
		}
		repo := &s.Repositories[i]
		repo.Events = append(repo.Events, e)

		s.TotalEvents++
		s.EventTypes[e.Type]++
		switch d := e.Detail.(type) {
		case activity.Push:
			repo.CommitCount += len(d.Commits)
			s.CommitCount += len(d.Commits)
		case activity.PullRequestOpened, activity.PullRequestOther:
			s.PullRequestCount++
		}
	}
	s.RepositoryCount = len(s.Repositories)

	s.Items = buildItems(events, s.Repositories, index)
	if s.Empty() {
		s.Message = noActivity(s.Date)
	}
	return s
}

// buildItems emits, in event order, one commit bullet per repository at its
// first push with new commits, and one bullet per opened PR and per review
func buildItems(events []activity.Event, repos []RepoActivity, index map[string]int) []Item {
	items := []Item{}
	emitted := map[string]bool{}

	for _, e := range events {
		switch d := e.Detail.(type) {
		case activity.Push:
			if len(d.Commits) == 0 || emitted[e.Repo] {
				continue
			}
			emitted[e.Repo] = true
			item := Item{Kind: ItemCommits, Repo: e.Repo, URL: repoURL(e.Repo), Commits: []activity.Commit{}}
			for _, re := range repos[index[e.Repo]].Events {
				if p, ok := re.Detail.(activity.Push); ok {
					item.Commits = append(item.Commits, p.Commits...)
					item.ShowAuthors = item.ShowAuthors || (p.AuthorFallback && len(p.Commits) > 0)
				}
			}
			if len(item.Commits) == 1 {
				item.URL = item.Commits[0].URL
			}
			items = append(items, item)

		case activity.PullRequestOpened:
			items = append(items, Item{Kind: ItemPullRequestOpened, Repo: e.Repo, URL: d.URL, Number: d.Number, Title: d.Title})

		case activity.PullRequestReview:
			items = append(items, Item{Kind: ItemPullRequestReview, Repo: e.Repo, URL: d.URL, Number: d.Number, State: d.State})
		}
	}
	return items
}

func repoURL(repo string) string {
	return "https://github.com/" + repo
}

func noActivity(date string) string {
	if date == "" {
		return "No GitHub activity found."
	}
	return "No GitHub activity found for " + date + "."
}
