// Command arxivlens browses recent arXiv abstracts in the terminal.
package main

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/csheth/arxivlens/internal/arxiv"
	"github.com/csheth/arxivlens/internal/config"
	"github.com/csheth/arxivlens/internal/tui"
)

// version is set at build time via ldflags.
var version = "dev"

// debugEnv names the log file. "1" or "true" logs to arxivlens-debug.log in
// the working directory.
const debugEnv = "ARXIVLENS_DEBUG"

var rootCmd = &cobra.Command{
	Use:   "arxivlens",
	Short: "Browse recent arXiv abstracts in the terminal",
	Long: `arxivlens lists the newest submissions in an arXiv category, highlights
pinned authors and keywords, and shows abstracts and PDF full text without
leaving the terminal.

Settings are read from $XDG_CONFIG_HOME/arxivlens/config.toml, then
ARXIVLENS_* environment variables, then flags.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of arxivlens",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "arxivlens %s\n", version)
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringP("category", "c", arxiv.DefaultCategory, "arXiv category to list, eg. cs.LG")
	flags.StringP("author", "a", "", "only list papers by this author")
	flags.StringP("query", "q", "", "free-text search across all fields")
	flags.String("feed-file", "", "read an Atom feed from disk instead of querying arXiv")
	flags.Bool("no-alt-screen", false, "disable the alternate screen buffer")
	flags.String("config", "", "config file (default: $XDG_CONFIG_HOME/arxivlens/config.toml)")
	flags.Uint("max-results", arxiv.DefaultPageSize, "papers per request")
	flags.String("sort-by", string(arxiv.SortSubmittedDate), "relevance, lastUpdatedDate or submittedDate")
	flags.String("sort-order", string(arxiv.SortDescending), "ascending or descending")
	flags.Duration("timeout", arxiv.DefaultTimeout, "timeout for each arXiv request")

	rootCmd.AddCommand(versionCmd)
}

func run(cmd *cobra.Command, args []string) error {
	logger, closeLog, err := setupLogging()
	if err != nil {
		return err
	}
	defer closeLog()

	v := config.New()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return err
	}
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(v, configPath)
	if err != nil {
		return err
	}
	if cfg.File != "" {
		logger.Info("loaded config", slog.String("path", cfg.File))
	}

	author, _ := cmd.Flags().GetString("author")
	freeText, _ := cmd.Flags().GetString("query")
	query, err := arxiv.BuildQuery(cfg.Filters(author, freeText))
	if err != nil {
		return err
	}
	terms, err := cfg.TermSet()
	if err != nil {
		return err
	}

	client := &arxiv.Client{UserAgent: cfg.HTTP.UserAgent, Logger: logger}
	var source tui.Source = client
	if feedFile, _ := cmd.Flags().GetString("feed-file"); feedFile != "" {
		source = &fileSource{path: feedFile, parser: arxiv.NewParser(logger), fullText: client}
		logger.Info("reading feed from file", slog.String("path", feedFile))
	}

	opts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if noAltScreen, _ := cmd.Flags().GetBool("no-alt-screen"); !noAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(tui.New(tui.Config{
		Source:   source,
		Query:    query,
		Terms:    terms,
		Timeout:  cfg.HTTP.Timeout,
		Logger:   logger,
		Settings: cfg,
	}), opts...)

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("program error: %w", err)
	}
	return nil
}

// setupLogging routes the standard logger to a file when ARXIVLENS_DEBUG is
// set; the terminal belongs to the TUI otherwise.
func setupLogging() (*slog.Logger, func(), error) {
	path := os.Getenv(debugEnv)
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	if path == "1" || strings.EqualFold(path, "true") {
		path = "arxivlens-debug.log"
	}
	f, err := tea.LogToFile(path, "arxivlens")
	if err != nil {
		return nil, nil, fmt.Errorf("open debug log: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(log.Writer(), &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
	return logger, func() { _ = f.Close() }, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "arxivlens:", err)
		os.Exit(1)
	}
}
