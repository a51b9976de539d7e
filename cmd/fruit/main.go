package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	fruit "github.com/sammcvicker/fruit-sub000"
	"github.com/sammcvicker/fruit-sub000/internal/config"
	"github.com/sammcvicker/fruit-sub000/internal/extract"
	"github.com/sammcvicker/fruit-sub000/internal/filter"
	"github.com/sammcvicker/fruit-sub000/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// flags holds the raw command-line values. Only flags the user set are
// applied over the config file.
type flags struct {
	all         bool
	gitignore   bool
	level       int
	dirsOnly    bool
	ignore      []string
	newer       string
	older       string
	noComments  bool
	fullComment bool
	types       bool
	todos       bool
	todosOnly   bool
	imports     bool
	where       string
	size        bool
	jobs        int
	maxFileSize int64
	format      string
	json        bool
	markdown    bool
	noColor     bool
	wrap        int
	cache       bool
	cachePath   string
	configPath  string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:           "fruit [path]",
		Short:         "Directory tree with comments, signatures and TODOs",
		Long:          "fruit lists a directory tree like tree(1), limited to git-tracked files by default, and annotates each file with its leading comment and optionally its type signatures, TODO markers and imports.",
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, args)
		},
	}

	fl := cmd.Flags()
	fl.BoolVarP(&f.all, "all", "a", false, "show all files, ignoring git")
	fl.BoolVarP(&f.gitignore, "gitignore", "g", false, "show untracked files not excluded by .gitignore")
	fl.IntVarP(&f.level, "level", "L", 0, "descend at most this many levels (0 = unlimited)")
	fl.BoolVarP(&f.dirsOnly, "dirs-only", "d", false, "list directories only")
	fl.StringArrayVarP(&f.ignore, "ignore", "I", nil, "ignore entries matching a gitignore-style pattern (repeatable)")
	fl.StringVar(&f.newer, "newer", "", "only files modified within a duration (2h, 3d, 1w) or since a date (2006-01-02)")
	fl.StringVar(&f.older, "older", "", "only files modified before a duration ago or a date")
	fl.BoolVar(&f.noComments, "no-comments", false, "do not show leading comments")
	fl.BoolVarP(&f.fullComment, "full-comment", "f", false, "show the whole leading comment, not just its first line")
	fl.BoolVarP(&f.types, "types", "t", false, "show function and type signatures")
	fl.BoolVar(&f.todos, "todos", false, "show TODO, FIXME, HACK, XXX and BUG markers")
	fl.BoolVar(&f.todosOnly, "todos-only", false, "only show files containing TODO markers")
	fl.BoolVar(&f.imports, "imports", false, "show imported modules")
	fl.StringVar(&f.where, "where", "", "only show files matching a Risor expression, or @script.risor")
	fl.BoolVarP(&f.size, "size", "s", false, "show file sizes")
	fl.IntVarP(&f.jobs, "jobs", "j", 0, "extraction workers (0 = one per CPU, 1 = sequential)")
	fl.Int64Var(&f.maxFileSize, "max-file-size", 0, "skip metadata for files larger than this many bytes (default 1MiB)")
	fl.StringVar(&f.format, "format", "", "output format: tree|json|markdown|html")
	fl.BoolVar(&f.json, "json", false, "shorthand for --format json")
	fl.BoolVar(&f.markdown, "markdown", false, "shorthand for --format markdown")
	fl.BoolVar(&f.noColor, "no-color", false, "disable colored output")
	fl.IntVar(&f.wrap, "wrap", 0, "wrap metadata lines at this width (0 = terminal width, -1 = never)")
	fl.BoolVar(&f.cache, "cache", false, "cache extraction results between runs")
	fl.StringVar(&f.cachePath, "cache-path", "", "cache database location (implies --cache)")
	fl.StringVar(&f.configPath, "config", "", "config file (default: .fruit.yaml in the target or repository root)")
	fl.StringVar(&f.logLevel, "log-level", "", "log level: trace|debug|info|warn|error|off")

	cmd.MarkFlagsMutuallyExclusive("all", "gitignore")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown", "format")
	return cmd
}

func run(cmd *cobra.Command, f *flags, args []string) error {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}

	cfg, err := loadConfig(f.configPath, target)
	if err != nil {
		return err
	}
	applyFlags(cmd, f, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel, cmd.ErrOrStderr())

	walkCfg, mode, err := buildWalkConfig(cfg)
	if err != nil {
		return err
	}

	var opts []fruit.Option
	opts = append(opts, fruit.WithLogger(logger))
	if cfg.Cache && !walkCfg.Extract.Empty() {
		cache, err := store.Open(cfg.CachePath)
		if err != nil {
			logger.Warn("cache unavailable", "error", err)
		} else {
			defer cache.Close()
			opts = append(opts, fruit.WithCache(cache))
		}
	}

	pf := filter.New(mode, target, logger)
	engine, err := fruit.New(walkCfg, pf, opts...)
	if err != nil {
		return err
	}

	out := bufio.NewWriter(cmd.OutOrStdout())
	renderer, err := newRenderer(cfg, out, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if _, err := engine.Walk(context.Background(), target, renderer); err != nil {
		out.Flush()
		return err
	}
	return out.Flush()
}

// loadConfig reads an explicit config file, or .fruit.yaml from the target
// directory or its repository root.
func loadConfig(explicit, target string) (*config.Config, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		return config.LoadConfig(explicit)
	}

	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", target, err)
	}
	if _, err := os.Stat(filepath.Join(abs, config.FileName)); err == nil {
		return config.LoadConfigFromDir(abs)
	}
	return config.LoadConfigFromDir(findRepoRoot(abs))
}

// applyFlags copies every flag the user set onto cfg.
func applyFlags(cmd *cobra.Command, f *flags, cfg *config.Config) {
	changed := cmd.Flags().Changed

	switch {
	case changed("all") && f.all:
		cfg.Filter = filter.ModeAll.String()
	case changed("gitignore") && f.gitignore:
		cfg.Filter = filter.ModeGitignore.String()
	}
	if changed("level") {
		cfg.Level = f.level
	}
	if changed("dirs-only") {
		cfg.DirsOnly = f.dirsOnly
	}
	if changed("ignore") {
		cfg.Ignore = append(cfg.Ignore, f.ignore...)
	}
	if changed("newer") {
		cfg.Newer = f.newer
	}
	if changed("older") {
		cfg.Older = f.older
	}
	if changed("no-comments") {
		cfg.Comments = !f.noComments
	}
	if changed("full-comment") {
		cfg.FullComment = f.fullComment
	}
	if changed("types") {
		cfg.Types = f.types
	}
	if changed("todos") {
		cfg.Todos = f.todos
	}
	if changed("todos-only") {
		cfg.TodosOnly = f.todosOnly
	}
	if changed("imports") {
		cfg.Imports = f.imports
	}
	if changed("where") {
		cfg.Where = f.where
	}
	if changed("size") {
		cfg.Size = f.size
	}
	if changed("jobs") {
		cfg.Jobs = f.jobs
	}
	if changed("max-file-size") {
		cfg.MaxFileSize = f.maxFileSize
	}
	switch {
	case changed("json") && f.json:
		cfg.Format = "json"
	case changed("markdown") && f.markdown:
		cfg.Format = "markdown"
	case changed("format"):
		cfg.Format = f.format
	}
	if changed("no-color") && f.noColor {
		cfg.Color = "never"
	}
	if changed("wrap") {
		cfg.Wrap = f.wrap
	}
	if changed("cache") {
		cfg.Cache = f.cache
	}
	if changed("cache-path") {
		cfg.Cache = true
		cfg.CachePath = f.cachePath
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
}

// buildWalkConfig translates the merged settings into an engine Config.
func buildWalkConfig(cfg *config.Config) (fruit.Config, filter.Mode, error) {
	mode, err := filter.ParseMode(cfg.Filter)
	if err != nil {
		return fruit.Config{}, 0, err
	}

	var set extract.Set
	if cfg.Comments || cfg.FullComment {
		set = set.With(extract.Comments)
	}
	if cfg.Types {
		set = set.With(extract.Types)
	}
	if cfg.Todos || cfg.TodosOnly {
		set = set.With(extract.Todos)
	}
	if cfg.Imports {
		set = set.With(extract.Imports)
	}

	now := timeNow()
	newer, err := config.ParseTimeSpec(cfg.Newer, now)
	if err != nil {
		return fruit.Config{}, 0, fmt.Errorf("--newer: %w", err)
	}
	older, err := config.ParseTimeSpec(cfg.Older, now)
	if err != nil {
		return fruit.Config{}, 0, fmt.Errorf("--older: %w", err)
	}

	return fruit.Config{
		ShowAll:        mode == filter.ModeAll,
		MaxDepth:       cfg.Level,
		DirsOnly:       cfg.DirsOnly,
		IgnorePatterns: cfg.Ignore,
		NewerThan:      newer,
		OlderThan:      older,
		Workers:        cfg.Jobs,
		Extract:        set,
		TodosOnly:      cfg.TodosOnly,
		Where:          cfg.Where,
		MaxFileSize:    cfg.MaxFileSize,
		FullComment:    cfg.FullComment,
		ShowSize:       cfg.Size,
	}, mode, nil
}

// newLogger builds the process logger. Diagnostics go to stderr so they
// never mix with the listing.
func newLogger(level string, w io.Writer) hclog.Logger {
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Warn
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "fruit",
		Level:  lvl,
		Output: w,
	})
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root without finding .git.
			return startDir
		}
		dir = parent
	}
}
