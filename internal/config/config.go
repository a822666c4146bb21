package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	perr "github.com/Afrawles/standup/internal/errors"
)

type Config struct {
	GitHub GitHubConfig `mapstructure:"github"`
	Fetch  FetchConfig  `mapstructure:"fetch"`
	Output OutputConfig `mapstructure:"output"`
	Log    LogConfig    `mapstructure:"log"`
}

type GitHubConfig struct {
	Token   string   `mapstructure:"token"`
	Org     string   `mapstructure:"org"`
	Repos   []string `mapstructure:"repos"`
	BaseURL string   `mapstructure:"base_url"`
}

type FetchConfig struct {
	PerPage        int           `mapstructure:"per_page"`
	MaxPages       int           `mapstructure:"max_pages"`
	Workers        int           `mapstructure:"workers"`
	RepoTimeout    time.Duration `mapstructure:"repo_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RatePerSecond  float64       `mapstructure:"rate_per_second"`
}

type OutputConfig struct {
	Format string `mapstructure:"format"` // markdown, text, json
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Sources tells Load where to look besides the environment
type Sources struct {
	ConfigFile string // explicit path; empty means $HOME/.standup.yaml when present
	EnvFile    string // defaults to .env
}

var defaults = map[string]any{
	"github.base_url":       "https://api.github.com",
	"fetch.per_page":        100,
	"fetch.max_pages":       10,
	"fetch.workers":         4,
	"fetch.repo_timeout":    "60s",
	"fetch.request_timeout": "30s",
	"fetch.rate_per_second": 5.0,
	"output.format":         "markdown",
	"log.level":             "info",
	"log.format":            "console",
}

// bare names the standalone tool has always read
var legacyEnv = map[string]string{
	"github.token": "GITHUB_TOKEN",
	"github.org":   "GITHUB_ORG",
	"github.repos": "GITHUB_REPOS",
}

// Load layers defaults, an optional YAML file and the environment (.env included)
func Load(src Sources) (*Config, error) {
	envFile := src.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "failed to read %s", envFile)
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix("STANDUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, bare := range legacyEnv {
		prefixed := "STANDUP_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, bare); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "bind env %s", key)
		}
	}

	path := src.ConfigFile
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			candidate := filepath.Join(home, ".standup.yaml")
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
			}
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "failed to read config %s", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "failed to decode config")
	}

	// env values arrive as one comma-joined string
	cfg.GitHub.Repos = SplitList(strings.Join(cfg.GitHub.Repos, ","))
	cfg.GitHub.Org = strings.TrimSpace(cfg.GitHub.Org)

	return cfg, nil
}

// Validate checks that a run has somewhere to read activity from.
// explicitRepos is the caller-supplied repository list, if any.
func (c *Config) Validate(explicitRepos []string) error {
	if len(explicitRepos) == 0 && len(c.GitHub.Repos) == 0 && c.GitHub.Org == "" {
		return perr.New(perr.ErrorCodeConfigurationMissing,
			"no repositories configured (set GITHUB_ORG or GITHUB_REPOS, or pass --repos)")
	}
	if c.Fetch.PerPage <= 0 || c.Fetch.PerPage > 100 {
		return perr.Newf(perr.ErrorCodeInvalidArgument, "fetch.per_page must be within 1..100, got %d", c.Fetch.PerPage)
	}
	if c.Fetch.MaxPages <= 0 {
		return perr.Newf(perr.ErrorCodeInvalidArgument, "fetch.max_pages must be positive, got %d", c.Fetch.MaxPages)
	}
	if c.Fetch.Workers <= 0 {
		return perr.Newf(perr.ErrorCodeInvalidArgument, "fetch.workers must be positive, got %d", c.Fetch.Workers)
	}
	return nil
}

// SplitList splits a comma-separated string, trimming whitespace and dropping blanks
func SplitList(input string) []string {
	var out []string
	for _, part := range strings.Split(input, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
