package report

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Afrawles/standup/internal/activity"
	perr "github.com/Afrawles/standup/internal/errors"
)

//go:embed "templates"
var templateFS embed.FS

// Format is an output format for Render
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatJSON     Format = "json"
)

// Formats lists the accepted formats, default first
var Formats = []Format{FormatMarkdown, FormatText, FormatJSON}

// ParseFormat accepts one of Formats; empty means the first
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return Formats[0], nil
	}
	if slices.Contains(Formats, f) {
		return f, nil
	}
	return "", unsupported(s)
}

func unsupported(s string) error {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return perr.Newf(perr.ErrorCodeUnsupportedFormat, "unsupported format %q (use %s)", s, strings.Join(names, ", "))
}

// style is what differs between the markdown and plain text renderings
type style struct {
	plain bool
}

func (st style) bold(s string) string {
	if st.plain {
		return s
	}
	return "**" + s + "**"
}

func (st style) code(s string) string {
	if st.plain {
		return s
	}
	return "`" + s + "`"
}

func (st style) link(text, url string) string {
	if url == "" {
		return text
	}
	if st.plain {
		return text + " (" + url + ")"
	}
	return "[" + text + "](" + url + ")"
}

func (st style) funcs() template.FuncMap {
	return template.FuncMap{
		"h1": func(s string) string {
			if st.plain {
				return s + "\n" + strings.Repeat("=", 50)
			}
			return "# " + s
		},
		"h2": func(s string) string {
			if st.plain {
				return s + "\n" + strings.Repeat("-", len(s))
			}
			return "## " + s
		},
		"h3": func(s string) string {
			if st.plain {
				return s
			}
			return "### " + s
		},
		"rule": func() string {
			if st.plain {
				return strings.Repeat("-", 50)
			}
			return "---"
		},
		"bold":      st.bold,
		"link":      st.link,
		"plural":    plural,
		"itemLines": st.itemLines,
		"eventLine": st.eventLine,
	}
}

var (
	markdownTmpl = template.Must(template.New("report.tmpl").Funcs(style{}.funcs()).ParseFS(templateFS, "templates/report.tmpl"))
	textTmpl     = template.Must(template.New("report.tmpl").Funcs(style{plain: true}.funcs()).ParseFS(templateFS, "templates/report.tmpl"))
)

// Render formats the summary. A summary without events still renders a
// complete document saying so.
func Render(s Summary, f Format) (string, error) {
	s = s.withDefaults()

	switch f {
	case FormatMarkdown:
		return execute(markdownTmpl, s)
	case FormatText:
		return execute(textTmpl, s)
	case FormatJSON:
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return "", perr.Wrap(err, perr.ErrorCodeUnknown, "failed to encode summary")
		}
		return string(data) + "\n", nil
	default:
		return "", unsupported(string(f))
	}
}

func execute(t *template.Template, s Summary) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, s); err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeUnknown, "failed to render report")
	}
	return buf.String(), nil
}

// withDefaults keeps hand-built summaries from rendering null arrays or an
// empty document
func (s Summary) withDefaults() Summary {
	if s.EventTypes == nil {
		s.EventTypes = map[string]int{}
	}
	if s.Items == nil {
		s.Items = []Item{}
	}
	if s.Repositories == nil {
		s.Repositories = []RepoActivity{}
	}
	if s.FailedRepos == nil {
		s.FailedRepos = []string{}
	}
	if s.Empty() && s.Message == "" {
		s.Message = noActivity(s.Date)
	}
	return s
}

func (st style) itemLines(it Item) []string {
	switch it.Kind {
	case ItemCommits:
		if len(it.Commits) == 1 {
			c := it.Commits[0]
			line := fmt.Sprintf("- Committed %s to %s", st.bold(subject(c.Message)), st.link(it.Repo, c.URL))
			if it.ShowAuthors {
				line += " by " + authorOf(c)
			}
			return []string{line}
		}
		lines := []string{fmt.Sprintf("- Made %s to %s", st.bold(plural(len(it.Commits), "commit", "commits")), st.link(it.Repo, it.URL))}
		for _, c := range it.Commits {
			line := fmt.Sprintf("  - %s (%s)", subject(c.Message), st.link(c.ShortSHA, c.URL))
			if it.ShowAuthors {
				line += " by " + authorOf(c)
			}
			lines = append(lines, line)
		}
		return lines

	case ItemPullRequestOpened:
		line := fmt.Sprintf("- Opened %s", st.bold(st.link(fmt.Sprintf("PR #%d", it.Number), it.URL)))
		if it.Title != "" {
			line += ": " + it.Title
		}
		return []string{line + " in " + it.Repo}

	case ItemPullRequestReview:
		line := fmt.Sprintf("- Reviewed %s", st.bold(st.link(fmt.Sprintf("PR #%d", it.Number), it.URL)))
		if it.State != "" {
			line += " (" + stateLabel(it.State) + ")"
		}
		return []string{line + " in " + it.Repo}
	}
	return nil
}

func (st style) eventLine(e activity.Event) string {
	var what string
	switch d := e.Detail.(type) {
	case activity.Push:
		if len(d.Commits) == 0 {
			what = fmt.Sprintf("Pushed to %s (no new commits)", st.code(d.Branch))
		} else {
			what = fmt.Sprintf("Pushed %s to %s", plural(len(d.Commits), "new commit", "new commits"), st.code(d.Branch))
		}
	case activity.PullRequestOpened:
		what = fmt.Sprintf("Opened %s: %s", st.link(fmt.Sprintf("PR #%d", d.Number), d.URL), d.Title)
		if d.Description != "" {
			what += " - " + d.Description
		}
	case activity.PullRequestOther:
		what = fmt.Sprintf("%s %s", stateLabel(d.Action), st.link(fmt.Sprintf("PR #%d", d.Number), d.URL))
		if d.Title != "" {
			what += ": " + d.Title
		}
	case activity.IssueComment:
		target := "issue"
		if d.IsPR {
			target = "PR"
		}
		what = fmt.Sprintf("Commented on %s", st.link(fmt.Sprintf("%s #%d", target, d.Number), d.URL))
		if d.Excerpt != "" {
			what += ": " + d.Excerpt
		}
	case activity.PullRequestReview:
		what = fmt.Sprintf("Reviewed %s", st.link(fmt.Sprintf("PR #%d", d.Number), d.URL))
		if d.State != "" {
			what += ": " + stateLabel(d.State)
		}
		if d.Excerpt != "" {
			what += " - " + d.Excerpt
		}
	case activity.ReviewComment:
		what = fmt.Sprintf("Left a review comment on %s", st.link(fmt.Sprintf("PR #%d", d.Number), d.URL))
	case activity.RefCreated:
		what = fmt.Sprintf("Created %s %s", d.RefType, st.link(d.RefName, d.URL))
	case activity.RefDeleted:
		what = fmt.Sprintf("Deleted %s %s", d.RefType, d.RefName)
	default:
		what = "Other activity: " + e.Type
	}

	when := st.code(e.CreatedAt.UTC().Format("15:04"))
	if e.Actor != "" {
		return fmt.Sprintf("%s %s (%s)", when, what, e.Actor)
	}
	return when + " " + what
}

// stateLabel turns changes_requested into Changes Requested. Casers keep
// state, so each call gets its own.
func stateLabel(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

// subject is the first line of a commit message
func subject(msg string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(msg), "\n")
	return strings.TrimSpace(line)
}

func authorOf(c activity.Commit) string {
	if c.AuthorName != "" {
		return c.AuthorName
	}
	if c.AuthorEmail != "" {
		return c.AuthorEmail
	}
	return "unknown author"
}
