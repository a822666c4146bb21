package activity

import (
	"encoding/json"
	"fmt"
	"time"

	perr "github.com/Afrawles/standup/internal/errors"
	"github.com/Afrawles/standup/internal/workday"
)

// Kind discriminates the Detail carried by an Event
type Kind string

const (
	KindPush              Kind = "push"
	KindPullRequestOpened Kind = "pull_request_opened"
	KindPullRequestOther  Kind = "pull_request"
	KindIssueComment      Kind = "issue_comment"
	KindPullRequestReview Kind = "pull_request_review"
	KindRefCreated        Kind = "ref_created"
	KindRefDeleted        Kind = "ref_deleted"
	KindReviewComment     Kind = "review_comment"
	KindGeneric           Kind = "generic"
)

// Detail is implemented by every event variant
type Detail interface {
	Kind() Kind
}

type Commit struct {
	Message     string `json:"message"`
	ShortSHA    string `json:"short_sha"`
	FullSHA     string `json:"full_sha"`
	AuthorName  string `json:"author_name"`
	AuthorEmail string `json:"author_email"`
	URL         string `json:"url"`
}

type Push struct {
	Branch  string   `json:"branch"`
	Commits []Commit `json:"commits"`
	// AuthorFallback is set when no commit matched the user filter and all
	// commits are shown with their authors instead
	AuthorFallback bool   `json:"author_fallback"`
	URL            string `json:"url"`
}

type PullRequestOpened struct {
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

type PullRequestOther struct {
	Number int    `json:"number"`
	Action string `json:"action"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}

type IssueComment struct {
	Number  int    `json:"number"`
	IsPR    bool   `json:"is_pr"`
	Excerpt string `json:"excerpt"`
	URL     string `json:"url"`
}

type PullRequestReview struct {
	Number  int    `json:"number"`
	State   string `json:"state"`
	Excerpt string `json:"excerpt"`
	URL     string `json:"url"`
}

type RefCreated struct {
	RefType string `json:"ref_type"`
	RefName string `json:"ref_name"`
	URL     string `json:"url"`
}

type RefDeleted struct {
	RefType string `json:"ref_type"`
	RefName string `json:"ref_name"`
}

type ReviewComment struct {
	Number  int    `json:"number"`
	Excerpt string `json:"excerpt"`
	URL     string `json:"url"`
}

// Generic stands in for event types the digest does not interpret
type Generic struct{}

func (Push) Kind() Kind              { return KindPush }
func (PullRequestOpened) Kind() Kind { return KindPullRequestOpened }
func (PullRequestOther) Kind() Kind  { return KindPullRequestOther }
func (IssueComment) Kind() Kind      { return KindIssueComment }
func (PullRequestReview) Kind() Kind { return KindPullRequestReview }
func (RefCreated) Kind() Kind        { return KindRefCreated }
func (RefDeleted) Kind() Kind        { return KindRefDeleted }
func (ReviewComment) Kind() Kind     { return KindReviewComment }
func (Generic) Kind() Kind           { return KindGeneric }

// Event is one normalized activity record
type Event struct {
	Type      string // source API type, e.g. PushEvent
	Repo      string
	Actor     string
	CreatedAt time.Time
	Detail    Detail
}

// Kind returns the variant of the event's detail
func (e Event) Kind() Kind {
	if e.Detail == nil {
		return KindGeneric
	}
	return e.Detail.Kind()
}

type eventJSON struct {
	Kind      Kind            `json:"kind"`
	Type      string          `json:"type"`
	Repo      string          `json:"repo"`
	Actor     string          `json:"actor"`
	CreatedAt time.Time       `json:"created_at"`
	Detail    json.RawMessage `json:"detail"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	var d Detail = Generic{}
	if e.Detail != nil {
		d = e.Detail
	}
	if p, ok := d.(Push); ok && p.Commits == nil {
		p.Commits = []Commit{}
		d = p
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return json.Marshal(eventJSON{
		Kind:      d.Kind(),
		Type:      e.Type,
		Repo:      e.Repo,
		Actor:     e.Actor,
		CreatedAt: e.CreatedAt,
		Detail:    raw,
	})
}

func (e *Event) UnmarshalJSON(b []byte) error {
	var w eventJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	var (
		d   Detail
		err error
	)
	switch w.Kind {
	case KindPush:
		d, err = decodeDetail[Push](w.Detail)
	case KindPullRequestOpened:
		d, err = decodeDetail[PullRequestOpened](w.Detail)
	case KindPullRequestOther:
		d, err = decodeDetail[PullRequestOther](w.Detail)
	case KindIssueComment:
		d, err = decodeDetail[IssueComment](w.Detail)
	case KindPullRequestReview:
		d, err = decodeDetail[PullRequestReview](w.Detail)
	case KindRefCreated:
		d, err = decodeDetail[RefCreated](w.Detail)
	case KindRefDeleted:
		d, err = decodeDetail[RefDeleted](w.Detail)
	case KindReviewComment:
		d, err = decodeDetail[ReviewComment](w.Detail)
	case KindGeneric, "":
		d = Generic{}
	default:
		return perr.Newf(perr.ErrorCodeInvalidArgument, "unknown event kind %q", w.Kind)
	}
	if err != nil {
		return fmt.Errorf("decode %s detail: %w", w.Kind, err)
	}

	*e = Event{Type: w.Type, Repo: w.Repo, Actor: w.Actor, CreatedAt: w.CreatedAt, Detail: d}
	return nil
}

func decodeDetail[T Detail](raw json.RawMessage) (Detail, error) {
	var v T
	if len(raw) == 0 || string(raw) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Activity is the normalized result of one fetch, and the input to rendering
type Activity struct {
	Date     string         `json:"date"` // YYYY-MM-DD
	Username string         `json:"username,omitempty"`
	Repos    []string       `json:"repos"`
	Window   workday.Window `json:"window"`
	Events   []Event        `json:"events"`
	// Failed lists repositories whose fetch was abandoned
	Failed []string `json:"failed_repos,omitempty"`
}
