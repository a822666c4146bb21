package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Afrawles/standup/internal/api"
	"github.com/Afrawles/standup/internal/config"
	"github.com/Afrawles/standup/internal/logger"
	"github.com/Afrawles/standup/internal/mcptools"
	"github.com/Afrawles/standup/internal/standup"
)

var version = "dev"

var (
	configFile string
	envFile    string
	org        string
	repos      string
	logLevel   string
	dateExpr   string
	username   string
	format     string
	xlsxDir    string
	inputFile  string
	addr       string
	quiet      bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "standup",
	Short: "Turn a workday of GitHub activity into a standup summary",
	Long: `standup collects one workday of GitHub events across your repositories,
drops repeated commits and prints a standup-ready summary.`,
	Version:           version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
	RunE:              runSummary,
}

var (
	summaryCmd = &cobra.Command{
		Use:   "summary",
		Short: "Fetch a workday of activity and render the standup report (default)",
		RunE:  runSummary,
	}

	activityCmd = &cobra.Command{
		Use:   "activity",
		Short: "Print the normalized activity of a workday as JSON",
		RunE:  runActivity,
	}

	dateCmd = &cobra.Command{
		Use:   "date [EXPRESSION]",
		Short: "Resolve a date expression to the workday it names",
		Example: `  standup date
  standup date fri
  standup date "last tuesday"
  standup date "July 22, 2024"`,
		RunE: runDate,
	}

	renderCmd = &cobra.Command{
		Use:   "render",
		Short: "Render activity JSON produced by 'standup activity'",
		RunE:  runRender,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the standup operations over HTTP",
		RunE:  runServe,
	}

	mcpCmd = &cobra.Command{
		Use:   "mcp",
		Short: "Serve the standup operations as MCP tools on stdio",
		RunE:  runMCP,
	}
)

func execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(summaryCmd, activityCmd, dateCmd, renderCmd, serveCmd, mcpCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Config file (default $HOME/.standup.yaml)")
	pf.StringVar(&envFile, "env-file", "", "Dotenv file to load (default .env)")
	pf.StringVar(&org, "org", "", "GitHub organization whose repositories are scanned")
	pf.StringVar(&repos, "repos", "", "Comma-separated owner/name repositories")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	for _, c := range []*cobra.Command{rootCmd, summaryCmd, activityCmd} {
		c.Flags().StringVarP(&dateExpr, "date", "d", "", `Workday: weekday, "yesterday", YYYY-MM-DD or "July 22, 2024" (default last workday)`)
		c.Flags().StringVarP(&username, "user", "u", "", "Only include activity by this GitHub login")
		c.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not show the progress spinner")
	}
	for _, c := range []*cobra.Command{rootCmd, summaryCmd, renderCmd} {
		c.Flags().StringVarP(&format, "format", "f", "", "Output format: markdown, text or json")
	}
	for _, c := range []*cobra.Command{rootCmd, summaryCmd} {
		c.Flags().StringVar(&xlsxDir, "xlsx", "", "Also write an xlsx workbook into this directory")
	}

	renderCmd.Flags().StringVarP(&inputFile, "input", "i", "-", "Activity JSON file, - for stdin")
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
}

// loadConfig layers flags over the file and environment, then sets up logging
func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(config.Sources{ConfigFile: configFile, EnvFile: envFile})
	if err != nil {
		return err
	}
	if org != "" {
		c.GitHub.Org = org
	}
	if repos != "" {
		c.GitHub.Repos = config.SplitList(repos)
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}

	logger.Init(logger.Options{
		Level:  c.Log.Level,
		Format: c.Log.Format,
		StaticFields: map[string]string{
			"app":     "standup",
			"command": cmd.Name(),
		},
	})

	cfg = c
	return nil
}

func request() standup.Request {
	return standup.Request{Date: dateExpr, Username: strings.TrimSpace(username)}
}

func runSummary(cmd *cobra.Command, args []string) error {
	app := standup.New(cfg)

	if xlsxDir == "" {
		stopSpinner := attachSpinner(app, "Fetching GitHub activity")
		out, err := app.Summarize(cmd.Context(), request(), format)
		stopSpinner()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	}

	// Check the format before the sweep so a typo does not cost a fetch
	if _, err := app.Format(format); err != nil {
		return err
	}
	stopSpinner := attachSpinner(app, "Fetching GitHub activity")
	act, err := app.FetchActivity(cmd.Context(), request())
	stopSpinner()
	if err != nil {
		return err
	}
	out, err := app.Render(act, format)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)

	path, err := app.ExportWorkbook(act, xlsxDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Workbook written to %s\n", path)
	return nil
}

func runActivity(cmd *cobra.Command, args []string) error {
	app := standup.New(cfg)
	stopSpinner := attachSpinner(app, "Fetching GitHub activity")
	act, err := app.FetchActivity(cmd.Context(), request())
	stopSpinner()
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), act)
}

func runDate(cmd *cobra.Command, args []string) error {
	app := standup.NewWithSource(cfg, nil)
	d, err := app.ResolveDate(strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), d)
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	in, err := openInput(cmd, inputFile)
	if err != nil {
		return err
	}
	defer in.Close()

	act, err := standup.DecodeActivity(in)
	if err != nil {
		return err
	}
	out, err := standup.NewWithSource(cfg, nil).Render(act, format)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	app := standup.New(cfg)
	return api.NewServer(addr, api.NewRouter(app)).Run(cmd.Context())
}

func runMCP(cmd *cobra.Command, args []string) error {
	app := standup.New(cfg)
	s := mcptools.NewServer(app, version)
	return mcptools.Serve(cmd.Context(), s, cmd.InOrStdin(), cmd.OutOrStdout())
}
