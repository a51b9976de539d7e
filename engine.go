package fruit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/sammcvicker/fruit-sub000/internal/extract"
	"github.com/sammcvicker/fruit-sub000/internal/filter"
	"github.com/sammcvicker/fruit-sub000/internal/render"
	"github.com/sammcvicker/fruit-sub000/internal/runtime"
	"github.com/sammcvicker/fruit-sub000/internal/store"
)

// ErrInvalidRoot is returned when the walk root is missing, unreadable, a
// symlink or not a directory.
var ErrInvalidRoot = errors.New("invalid root")

// Config controls a walk.
type Config struct {
	// ShowAll disables version-control filtering.
	ShowAll bool
	// MaxDepth limits descent; 0 means unlimited. A directory at exactly
	// MaxDepth is listed but not descended into.
	MaxDepth int
	// DirsOnly lists directories only and keeps every one of them, whether
	// or not the filter includes a file beneath it.
	DirsOnly bool
	// IgnorePatterns are gitignore-syntax patterns removed from the walk.
	IgnorePatterns []string
	// NewerThan and OlderThan bound file modification times. Zero means unset.
	NewerThan time.Time
	OlderThan time.Time

	// Workers is the extraction pool size: 0 picks one per CPU, 1 runs the
	// fused sequential walk.
	Workers int
	Extract extract.Set
	// TodosOnly keeps only files with at least one TODO marker.
	TodosOnly bool
	// Where is a Risor predicate applied to every file.
	Where       string
	MaxFileSize int64
	FullComment bool
	// ShowSize records file sizes even when nothing else needs them.
	ShowSize bool
}

// Summary counts what was rendered. The root is not counted.
type Summary struct {
	Dirs  int
	Files int
}

// Engine runs walks. Per-walk state lives in a walkRun, so concurrent Walk
// calls are safe.
type Engine struct {
	cfg     Config
	filter  filter.PathFilter
	globs   *filter.Globs
	set     extract.Set
	opts    extract.Options
	logger  hclog.Logger
	cache   *store.Store
	runtime *runtime.Runtime

	// extractFn is extract.Extract outside tests.
	extractFn func(ctx context.Context, path string, set extract.Set, opts extract.Options) (*extract.Metadata, error)
}

// walkRun holds the state of one Walk call.
type walkRun struct {
	logger hclog.Logger
	stage  stage
	// batch buffers cache misses; nil without a cache.
	batch *store.BatchedStore
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger hclog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithCache memoizes extraction results in s across walks.
func WithCache(s *store.Store) Option {
	return func(e *Engine) {
		e.cache = s
	}
}

// WithRuntime supplies a prepared predicate runtime, taking precedence over
// Config.Where.
func WithRuntime(rt *runtime.Runtime) Option {
	return func(e *Engine) {
		e.runtime = rt
	}
}

// New creates an Engine. f decides visibility and may be nil, which shows
// everything; Config.ShowAll overrides it.
func New(cfg Config, f filter.PathFilter, opts ...Option) (*Engine, error) {
	if cfg.MaxDepth < 0 {
		return nil, fmt.Errorf("fruit: max depth must be >= 0, got %d", cfg.MaxDepth)
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("fruit: workers must be >= 0, got %d", cfg.Workers)
	}

	e := &Engine{
		cfg:       cfg,
		filter:    f,
		globs:     filter.NewGlobs(cfg.IgnorePatterns),
		set:       cfg.Extract,
		extractFn: extract.Extract,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = hclog.NewNullLogger()
	}
	if e.filter == nil || cfg.ShowAll {
		e.filter = filter.All
	}
	if cfg.TodosOnly {
		e.set = e.set.With(extract.Todos)
	}
	e.opts = extract.Options{MaxFileSize: cfg.MaxFileSize, FullComment: cfg.FullComment}
	if e.opts.MaxFileSize == 0 {
		e.opts.MaxFileSize = extract.DefaultMaxFileSize
	}

	if e.runtime == nil && cfg.Where != "" {
		rt, err := runtime.NewRuntime(cfg.Where, runtime.WithLogger(e.logger))
		if err != nil {
			return nil, fmt.Errorf("fruit: %w", err)
		}
		e.runtime = rt
	}
	return e, nil
}

// Extractors returns the active extractor set.
func (e *Engine) Extractors() extract.Set {
	return e.set
}

// classic reports whether walks use the fused sequential path.
func (e *Engine) classic() bool {
	return e.cfg.Workers == 1 || e.set.Empty()
}

// postFilterActive reports whether files can be dropped after extraction.
func (e *Engine) postFilterActive() bool {
	return e.cfg.TodosOnly || e.runtime != nil
}

// Walk lists root into r and returns the rendered counts.
func (e *Engine) Walk(ctx context.Context, root string, r render.Renderer) (Summary, error) {
	run := &walkRun{logger: e.logger}
	run.enter(stageIdle)
	canon, err := resolveRoot(root)
	if err != nil {
		return Summary{}, err
	}

	if e.cache != nil {
		run.batch = store.NewBatchedStore(e.cache)
	}

	var sum Summary
	if e.classic() {
		sum, err = e.walkClassic(ctx, run, root, canon, r)
	} else {
		sum, err = e.walkPhased(ctx, run, root, canon, r)
	}
	if err != nil {
		return Summary{}, err
	}

	e.commitCache(run.batch)
	run.enter(stageDone)
	return sum, nil
}

// walkPhased runs Collecting → Extracting → Reconciling → Rendering.
func (e *Engine) walkPhased(ctx context.Context, run *walkRun, display, canon string, r render.Renderer) (Summary, error) {
	run.enter(stageCollecting)
	records, err := e.collect(display, canon)
	if err != nil {
		return Summary{}, err
	}

	run.enter(stageExtracting)
	results, err := e.extractAll(ctx, records, e.cfg.Workers, run.batch)
	if err != nil {
		return Summary{}, err
	}

	run.enter(stageReconciling)
	entries, err := e.reconcile(ctx, records, results)
	if err != nil {
		return Summary{}, err
	}

	run.enter(stageRendering)
	var sum Summary
	for _, entry := range entries {
		if err := r.Entry(entry); err != nil {
			return Summary{}, fmt.Errorf("render %s: %w", entry.Path, err)
		}
		sum.count(entry)
	}
	if err := r.Finish(sum.Dirs, sum.Files); err != nil {
		return Summary{}, fmt.Errorf("render summary: %w", err)
	}
	return sum, nil
}

func (s *Summary) count(entry render.Entry) {
	switch {
	case entry.IsRoot:
	case entry.IsDir:
		s.Dirs++
	default:
		s.Files++
	}
}

// commitCache writes queued cache misses. Failures only cost future hits.
func (e *Engine) commitCache(batch *store.BatchedStore) {
	if batch == nil {
		return
	}
	n, err := e.cache.CommitBatch(batch)
	if err != nil {
		e.logger.Warn("cache commit failed", "path", e.cache.Path(), "error", err)
		return
	}
	if n > 0 {
		e.logger.Debug("cache updated", "entries", n)
	}
}

// resolveRoot validates root and returns its canonical form.
func resolveRoot(root string) (string, error) {
	info, err := os.Lstat(root)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRoot, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return "", fmt.Errorf("%w: %s is a symlink", ErrInvalidRoot, root)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, root)
	}
	canon, err := filter.CanonicalRoot(root)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRoot, err)
	}
	return canon, nil
}

// displayName is how the root is labeled in output.
func displayName(root string) string {
	if root == "" {
		return "."
	}
	return filepath.Clean(root)
}

type stage int

const (
	stageIdle stage = iota
	stageCollecting
	stageExtracting
	stageReconciling
	stageRendering
	stageDone
)

func (s stage) String() string {
	switch s {
	case stageIdle:
		return "idle"
	case stageCollecting:
		return "collecting"
	case stageExtracting:
		return "extracting"
	case stageReconciling:
		return "reconciling"
	case stageRendering:
		return "rendering"
	case stageDone:
		return "done"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

func (run *walkRun) enter(s stage) {
	run.logger.Trace("stage", "from", run.stage.String(), "to", s.String())
	run.stage = s
}
