// Package standup wires configuration, the GitHub client, the fetcher and the
// renderers into the four operations the CLI, HTTP and MCP adapters expose.
package standup

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/Afrawles/standup/internal/activity"
	"github.com/Afrawles/standup/internal/config"
	perr "github.com/Afrawles/standup/internal/errors"
	"github.com/Afrawles/standup/internal/github"
	"github.com/Afrawles/standup/internal/logger"
	"github.com/Afrawles/standup/internal/report"
	"github.com/Afrawles/standup/internal/workday"
)

type Application struct {
	Config   *config.Config
	Source   activity.Source
	Resolver *workday.Resolver

	// Progress is handed to every Fetcher this application builds
	Progress func(repo string, err error)

	log logger.Logger
}

// Request names the workday, an optional actor and optional repositories
type Request struct {
	Date     string   `json:"date,omitempty"`
	Username string   `json:"username,omitempty"`
	Repos    []string `json:"repos,omitempty"`
}

// New builds an Application backed by the GitHub REST API
func New(cfg *config.Config) *Application {
	client := github.NewClient(github.Options{
		BaseURL:       cfg.GitHub.BaseURL,
		Token:         cfg.GitHub.Token,
		Timeout:       cfg.Fetch.RequestTimeout,
		RatePerSecond: cfg.Fetch.RatePerSecond,
	})
	app := NewWithSource(cfg, client)
	if cfg.GitHub.Token == "" {
		app.log.Warn().Msg("no GitHub token configured, requests are unauthenticated and heavily rate limited")
	}
	return app
}

// NewWithSource builds an Application over any activity source
func NewWithSource(cfg *config.Config, src activity.Source) *Application {
	return &Application{
		Config:   cfg,
		Source:   src,
		Resolver: workday.NewResolver(),
		log:      *logger.Named("standup"),
	}
}

// ResolveDate returns the ISO date an expression names
func (app *Application) ResolveDate(expr string) (string, error) {
	d, err := app.Resolver.Resolve(expr)
	if err != nil {
		return "", err
	}
	return d.Format(workday.ISODate), nil
}

// FetchActivity returns the normalized, deduplicated events of one workday.
// Date and configuration problems are reported before any request is made.
func (app *Application) FetchActivity(ctx context.Context, req Request) (*activity.Activity, error) {
	day, err := app.Resolver.Resolve(req.Date)
	if err != nil {
		return nil, err
	}
	repos := cleanList(req.Repos)
	if err := app.Config.Validate(repos); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := app.log.With().Str("run_id", runID).Logger()
	window := workday.BuildWindow(day)

	log.Info().
		Str("date", day.Format(workday.ISODate)).
		Str("user", req.Username).
		Strs("repos", repos).
		Str("org", app.Config.GitHub.Org).
		Time("window_start", window.Start).
		Time("window_end", window.End).
		Msg("fetching activity")

	fetcher := activity.NewFetcher(app.Source, activity.Options{
		Org:         app.Config.GitHub.Org,
		Repos:       app.Config.GitHub.Repos,
		PerPage:     app.Config.Fetch.PerPage,
		MaxPages:    app.Config.Fetch.MaxPages,
		Workers:     app.Config.Fetch.Workers,
		RepoTimeout: app.Config.Fetch.RepoTimeout,
		Progress:    app.Progress,
	})
	act, err := fetcher.Fetch(ctx, activity.Request{
		Window:   window,
		Username: req.Username,
		Repos:    repos,
		Seen:     activity.NewSeenCommits(),
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("code", perr.CodeOf(err).String()).
			Str("op", perr.OpOf(err)).
			Msg("fetch failed")
		return nil, err
	}

	log.Info().
		Int("events", len(act.Events)).
		Int("failed", len(act.Failed)).
		Msg("activity ready")
	return act, nil
}

// Summarize resolves the date, fetches activity and renders it. An unknown
// format is rejected before anything is fetched.
func (app *Application) Summarize(ctx context.Context, req Request, format string) (string, error) {
	f, err := app.Format(format)
	if err != nil {
		return "", err
	}
	act, err := app.FetchActivity(ctx, req)
	if err != nil {
		return "", err
	}
	return report.Render(report.Assemble(act), f)
}

// Render formats previously fetched activity
func (app *Application) Render(act *activity.Activity, format string) (string, error) {
	f, err := app.Format(format)
	if err != nil {
		return "", err
	}
	return report.Render(report.Assemble(act), f)
}

// ExportWorkbook writes the activity as an xlsx workbook under dir
func (app *Application) ExportWorkbook(act *activity.Activity, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "create output directory %s", dir)
	}
	path, err := report.NewExcelExporter(dir).Export(report.Assemble(act))
	if err != nil {
		return "", err
	}
	app.log.Info().Str("file", path).Msg("workbook exported")
	return path, nil
}

// Format parses an output format, falling back to the configured one
func (app *Application) Format(format string) (report.Format, error) {
	if format == "" && app.Config != nil {
		format = app.Config.Output.Format
	}
	return report.ParseFormat(format)
}

// DecodeActivity reads the JSON produced by FetchActivity
func DecodeActivity(r io.Reader) (*activity.Activity, error) {
	var act activity.Activity
	if err := json.NewDecoder(r).Decode(&act); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "invalid activity document")
	}
	return &act, nil
}

func cleanList(in []string) []string {
	var out []string
	for _, s := range in {
		out = append(out, config.SplitList(s)...)
	}
	return out
}
