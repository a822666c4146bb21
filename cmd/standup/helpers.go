package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	perr "github.com/Afrawles/standup/internal/errors"
	"github.com/Afrawles/standup/internal/standup"
)

// attachSpinner shows a stderr spinner that ticks once per finished repository.
// It stays silent when stderr is not a terminal or --quiet is set.
func attachSpinner(app *standup.Application, description string) func() {
	if quiet || !term.IsTerminal(int(os.Stderr.Fd())) {
		return func() {}
	}
	bar := newSpinner(description)
	var mu sync.Mutex
	done := 0
	app.Progress = func(repo string, err error) {
		mu.Lock()
		defer mu.Unlock()
		done++
		status := "done"
		if err != nil {
			status = "skipped"
		}
		bar.Describe(fmt.Sprintf("%s (%d repos, %s %s)", description, done, repo, status))
		_ = bar.Add(1)
	}
	return func() {
		app.Progress = nil
		finishBar(bar)
		fmt.Fprintln(os.Stderr)
	}
}

func newSpinner(description string) *progressbar.ProgressBar {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(15),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
	_ = bar.RenderBlank()
	return bar
}

func finishBar(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Finish()
	}
}

// openInput opens path for reading, "-" meaning stdin
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "open %s", path)
	}
	return f, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "failed to encode output")
	}
	return nil
}
