// Package config loads arxivlens settings from a TOML file, ARXIVLENS_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/csheth/arxivlens/internal/arxiv"
	"github.com/csheth/arxivlens/internal/highlight"
)

const (
	appDir     = "arxivlens"
	fileName   = "config.toml"
	envPrefix  = "ARXIVLENS"
	configType = "toml"
)

// Config is the resolved configuration. It is a plain value; nothing below
// main reads viper directly.
type Config struct {
	Query     QueryConfig     `mapstructure:"query"`
	Highlight HighlightConfig `mapstructure:"highlight"`
	HTTP      HTTPConfig      `mapstructure:"http"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

type QueryConfig struct {
	Category   string `mapstructure:"category"`
	MaxResults uint   `mapstructure:"max_results"`
	SortBy     string `mapstructure:"sort_by"`
	SortOrder  string `mapstructure:"sort_order"`
}

type HighlightConfig struct {
	Authors  []string `mapstructure:"authors"`
	Keywords []string `mapstructure:"keywords"`
}

type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// flagKeys maps command-line flag names onto configuration keys.
var flagKeys = map[string]string{
	"category":    "query.category",
	"max-results": "query.max_results",
	"sort-by":     "query.sort_by",
	"sort-order":  "query.sort_order",
	"timeout":     "http.timeout",
}

// New returns a viper instance with defaults and environment lookup set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("query.category", arxiv.DefaultCategory)
	v.SetDefault("query.max_results", arxiv.DefaultPageSize)
	v.SetDefault("query.sort_by", string(arxiv.SortSubmittedDate))
	v.SetDefault("query.sort_order", string(arxiv.SortDescending))
	v.SetDefault("highlight.authors", []string{})
	v.SetDefault("highlight.keywords", []string{})
	v.SetDefault("http.timeout", arxiv.DefaultTimeout)
	v.SetDefault("http.user_agent", arxiv.DefaultUserAgent)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags lets the known flags in flags override file and environment
// values. Flags that are not defined are ignored.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// DefaultPath returns $XDG_CONFIG_HOME/arxivlens/config.toml, falling back
// to the platform config directory.
func DefaultPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return ""
		}
		base = dir
	}
	return filepath.Join(base, appDir, fileName)
}

// Load reads path into v and decodes the result. An empty path means
// DefaultPath, which may be absent; an explicit path must exist.
func Load(v *viper.Viper, path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	var used string
	if path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			v.SetConfigFile(path)
			v.SetConfigType(configType)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
			used = path
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = used
	cfg.Highlight.Authors = cleanList(cfg.Highlight.Authors)
	cfg.Highlight.Keywords = cleanList(cfg.Highlight.Keywords)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the query settings and highlight terms are usable.
func (c Config) Validate() error {
	if _, err := arxiv.BuildQuery(c.Filters("", "")); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.TermSet(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("config: negative http.timeout %s", c.HTTP.Timeout)
	}
	return nil
}

// Filters converts the query settings, plus the per-run author and free-text
// filters, into Query Builder input.
func (c Config) Filters(author, freeText string) arxiv.Filters {
	return arxiv.Filters{
		Category:   c.Query.Category,
		Author:     author,
		FreeText:   freeText,
		MaxResults: c.Query.MaxResults,
		SortBy:     arxiv.SortBy(c.Query.SortBy),
		SortOrder:  arxiv.SortOrder(c.Query.SortOrder),
	}
}

// TermSet builds the highlight terms, pinned authors first.
func (c Config) TermSet() (*highlight.TermSet, error) {
	terms := highlight.Terms(highlight.Author, c.Highlight.Authors...)
	terms = append(terms, highlight.Terms(highlight.Keyword, c.Highlight.Keywords...)...)
	return highlight.NewTermSet(terms...)
}

// cleanList drops blank entries so that a trailing comma in an environment
// variable does not turn into an invalid term.
func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}
