package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Afrawles/standup/internal/github"
	"github.com/Afrawles/standup/internal/logger"
)

const (
	descriptionLimit = 200
	commentLimit     = 150
	reviewLimit      = 100
	ellipsis         = "..."

	webBase = "https://github.com/"
)

// Normalizer turns raw events into typed Events. It is safe for concurrent use
// as long as the SeenCommits registry is shared by reference.
type Normalizer struct {
	seen     *SeenCommits
	prs      github.PullRequestGetter
	username string
	log      logger.Logger
}

// NewNormalizer builds a Normalizer. prs may be nil, in which case opened pull
// requests keep the title and body from the event payload.
func NewNormalizer(seen *SeenCommits, prs github.PullRequestGetter, username string) *Normalizer {
	if seen == nil {
		seen = NewSeenCommits()
	}
	return &Normalizer{
		seen:     seen,
		prs:      prs,
		username: strings.TrimSpace(username),
		log:      *logger.Named("normalizer"),
	}
}

// Normalize dispatches on the event type. Unknown types and payloads that fail
// to decode become Generic events rather than errors.
func (n *Normalizer) Normalize(ctx context.Context, raw github.RawEvent) Event {
	ev := Event{
		Type:      raw.Type,
		Repo:      raw.Repo.Name,
		Actor:     raw.Actor.Login,
		CreatedAt: raw.CreatedAt,
		Detail:    Generic{},
	}

	var (
		d   Detail
		err error
	)
	switch raw.Type {
	case github.TypePush:
		d, err = n.push(ev.Repo, raw.Payload)
	case github.TypePullRequest:
		d, err = n.pullRequest(ctx, ev.Repo, raw.Payload)
	case github.TypeIssueComment:
		d, err = issueComment(ev.Repo, raw.Payload)
	case github.TypePullRequestReview:
		d, err = review(ev.Repo, raw.Payload)
	case github.TypeReviewComment:
		d, err = reviewComment(ev.Repo, raw.Payload)
	case github.TypeCreate, github.TypeDelete:
		d, err = ref(raw.Type, ev.Repo, raw.Payload)
	default:
		return ev
	}
	if err != nil {
		n.log.Warn().Err(err).Str("repo", ev.Repo).Str("type", raw.Type).Str("id", raw.ID).Msg("undecodable payload, keeping generic record")
		return ev
	}

	ev.Detail = d
	return ev
}

func (n *Normalizer) push(repo string, payload json.RawMessage) (Detail, error) {
	var p github.PushPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}

	branch := strings.TrimPrefix(p.Ref, "refs/heads/")
	out := Push{Branch: branch, Commits: []Commit{}, URL: webBase + repo + "/tree/" + branch}

	var withMessage []github.PushCommit
	for _, c := range p.Commits {
		if strings.TrimSpace(c.Message) != "" && c.SHA != "" {
			withMessage = append(withMessage, c)
		}
	}

	candidates := withMessage
	if n.username != "" {
		candidates = nil
		for _, c := range withMessage {
			if authoredBy(c, n.username) {
				candidates = append(candidates, c)
			}
		}
		if len(candidates) == 0 && len(withMessage) > 0 {
			candidates = withMessage
			out.AuthorFallback = true
		}
	}

	for _, c := range candidates {
		commit := Commit{
			Message:     strings.TrimSpace(c.Message),
			ShortSHA:    shortSHA(c.SHA),
			FullSHA:     c.SHA,
			AuthorName:  c.Author.Name,
			AuthorEmail: c.Author.Email,
			URL:         webBase + repo + "/commit/" + c.SHA,
		}
		if n.seen.SeenBefore(commit) {
			continue
		}
		out.Commits = append(out.Commits, commit)
	}
	return out, nil
}

func (n *Normalizer) pullRequest(ctx context.Context, repo string, payload json.RawMessage) (Detail, error) {
	var p github.PullRequestPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}

	number := p.Number
	if number == 0 {
		number = p.PullRequest.Number
	}
	link := p.PullRequest.HTMLURL
	if link == "" {
		link = fmt.Sprintf("%s%s/pull/%d", webBase, repo, number)
	}

	if p.Action != "opened" {
		action := p.Action
		if action == "closed" && p.PullRequest.Merged {
			action = "merged"
		}
		return PullRequestOther{Number: number, Action: action, Title: p.PullRequest.Title, URL: link}, nil
	}

	title, body := p.PullRequest.Title, p.PullRequest.Body
	if n.prs != nil {
		pr, err := n.prs.GetPullRequest(ctx, repo, number)
		if err != nil {
			n.log.Warn().Err(err).Str("repo", repo).Int("number", number).Msg("pull request lookup failed, using event payload")
		} else {
			if pr.Title != "" {
				title = pr.Title
			}
			body = pr.Body
		}
	}

	return PullRequestOpened{
		Number:      number,
		Title:       title,
		Description: truncate(body, descriptionLimit),
		URL:         link,
	}, nil
}

func issueComment(repo string, payload json.RawMessage) (Detail, error) {
	var p github.IssueCommentPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}
	isPR := p.Issue.PullRequest != nil
	kind := "issues"
	if isPR {
		kind = "pull"
	}
	return IssueComment{
		Number:  p.Issue.Number,
		IsPR:    isPR,
		Excerpt: truncate(p.Comment.Body, commentLimit),
		URL:     fmt.Sprintf("%s%s/%s/%d", webBase, repo, kind, p.Issue.Number),
	}, nil
}

func review(repo string, payload json.RawMessage) (Detail, error) {
	var p github.PullRequestReviewPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}
	return PullRequestReview{
		Number:  p.PullRequest.Number,
		State:   strings.ToLower(p.Review.State),
		Excerpt: truncate(p.Review.Body, reviewLimit),
		URL:     fmt.Sprintf("%s%s/pull/%d", webBase, repo, p.PullRequest.Number),
	}, nil
}

func reviewComment(repo string, payload json.RawMessage) (Detail, error) {
	var p github.ReviewCommentPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}
	return ReviewComment{
		Number:  p.PullRequest.Number,
		Excerpt: truncate(p.Comment.Body, commentLimit),
		URL:     fmt.Sprintf("%s%s/pull/%d", webBase, repo, p.PullRequest.Number),
	}, nil
}

func ref(eventType, repo string, payload json.RawMessage) (Detail, error) {
	var p github.RefPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}
	if eventType == github.TypeDelete {
		return RefDeleted{RefType: p.RefType, RefName: p.Ref}, nil
	}

	link := webBase + repo
	switch p.RefType {
	case "branch":
		link += "/tree/" + p.Ref
	case "tag":
		link += "/releases/tag/" + p.Ref
	}
	return RefCreated{RefType: p.RefType, RefName: p.Ref, URL: link}, nil
}

// authoredBy matches on author name, email local part, or the GitHub noreply
// address form id+login@users.noreply.github.com
func authoredBy(c github.PushCommit, username string) bool {
	if strings.EqualFold(c.Author.Name, username) {
		return true
	}
	email := strings.ToLower(c.Author.Email)
	user := strings.ToLower(username)
	if local, _, ok := strings.Cut(email, "@"); ok && local == user {
		return true
	}
	return strings.HasSuffix(email, "+"+user+"@users.noreply.github.com")
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

// truncate flattens whitespace and caps s at limit runes, marking the cut
func truncate(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + ellipsis
}
