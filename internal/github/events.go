package github

import (
	"encoding/json"
	"time"
)

// RawEvent is one entry of the repository events API, payload left undecoded
// until the event type is known
type RawEvent struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Actor     EventActor      `json:"actor"`
	Repo      EventRepo       `json:"repo"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

type EventActor struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

type EventRepo struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Event type names as the API reports them
const (
	TypePush              = "PushEvent"
	TypePullRequest       = "PullRequestEvent"
	TypeIssueComment      = "IssueCommentEvent"
	TypePullRequestReview = "PullRequestReviewEvent"
	TypeReviewComment     = "PullRequestReviewCommentEvent"
	TypeCreate            = "CreateEvent"
	TypeDelete            = "DeleteEvent"
)

// PushPayload for PushEvent
type PushPayload struct {
	Ref     string       `json:"ref"` // refs/heads/branch-name
	Size    int          `json:"size"`
	Commits []PushCommit `json:"commits"`
}

type PushCommit struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
	Author  struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"author"`
}

// PullRequestPayload for PullRequestEvent
type PullRequestPayload struct {
	Action      string      `json:"action"` // opened, closed, reopened, edited, synchronize
	Number      int         `json:"number"`
	PullRequest PullRequest `json:"pull_request"`
}

// PullRequest is the subset of the pull request resource the digest uses
type PullRequest struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	State   string `json:"state"`
	Merged  bool   `json:"merged"`
	HTMLURL string `json:"html_url"`
}

// IssueCommentPayload for IssueCommentEvent
type IssueCommentPayload struct {
	Action string `json:"action"`
	Issue  struct {
		Number      int       `json:"number"`
		Title       string    `json:"title"`
		PullRequest *struct{} `json:"pull_request"` // present if the issue is a PR
	} `json:"issue"`
	Comment struct {
		Body    string `json:"body"`
		HTMLURL string `json:"html_url"`
	} `json:"comment"`
}

// PullRequestReviewPayload for PullRequestReviewEvent
type PullRequestReviewPayload struct {
	Action string `json:"action"`
	Review struct {
		Body    string `json:"body"`
		State   string `json:"state"` // approved, changes_requested, commented
		HTMLURL string `json:"html_url"`
	} `json:"review"`
	PullRequest struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
	} `json:"pull_request"`
}

// ReviewCommentPayload for PullRequestReviewCommentEvent
type ReviewCommentPayload struct {
	Action  string `json:"action"`
	Comment struct {
		Body    string `json:"body"`
		HTMLURL string `json:"html_url"`
	} `json:"comment"`
	PullRequest struct {
		Number int `json:"number"`
	} `json:"pull_request"`
}

// RefPayload for CreateEvent and DeleteEvent
type RefPayload struct {
	Ref     string `json:"ref"`
	RefType string `json:"ref_type"` // branch, tag, or repository
}

// Repository is the subset of an org repository listing entry we need
type Repository struct {
	FullName string `json:"full_name"`
	Archived bool   `json:"archived"`
}
