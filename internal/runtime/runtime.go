// Package runtime evaluates user-supplied Risor predicates against files.
//
// A predicate is a Risor expression (or a script loaded from disk) whose
// final value decides whether a file stays in the listing. It sees the
// file's name, path, size and extracted metadata as globals.
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/sammcvicker/fruit-sub000/internal/extract"
)

// ScriptPrefix marks a predicate argument that names a script file.
const ScriptPrefix = "@"

// Subject is the file a predicate is evaluated against.
type Subject struct {
	Name     string
	Path     string // relative to the walk root, slash-separated
	Size     int64
	Metadata *extract.Metadata
}

// Runtime embeds a Risor VM and evaluates one compiled-in predicate.
// It holds no per-evaluation state and is safe for concurrent use.
type Runtime struct {
	source     string
	label      string
	scriptsDir string
	fsys       fs.FS
	logger     hclog.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts and resolve Risor
// imports from an fs.FS instead of from disk.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithScriptsDir sets the directory relative script paths and imports are
// resolved against.
func WithScriptsDir(dir string) RuntimeOption {
	return func(r *Runtime) {
		r.scriptsDir = dir
	}
}

// WithLogger routes the script-visible log global to logger.
func WithLogger(logger hclog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// NewRuntime creates a Runtime for predicate. A predicate beginning with
// ScriptPrefix is read from the named file. The predicate is evaluated once
// against an empty subject so syntax errors and unknown names surface here
// rather than per file.
func NewRuntime(predicate string, opts ...RuntimeOption) (*Runtime, error) {
	r := &Runtime{label: "<where>"}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = hclog.NewNullLogger()
	}

	if name, ok := strings.CutPrefix(predicate, ScriptPrefix); ok {
		src, err := r.LoadScript(name)
		if err != nil {
			return nil, err
		}
		r.source, r.label = src, name
		// Imports resolve next to the script unless configured otherwise.
		if r.scriptsDir == "" && r.fsys == nil {
			r.scriptsDir = filepath.Dir(name)
		}
	} else {
		r.source = predicate
	}
	if strings.TrimSpace(r.source) == "" {
		return nil, fmt.Errorf("runtime: empty predicate")
	}

	if _, err := r.Match(context.Background(), Subject{}); err != nil {
		return nil, err
	}
	return r, nil
}

// Match evaluates the predicate for s and reports whether the result is
// truthy.
func (r *Runtime) Match(ctx context.Context, s Subject) (bool, error) {
	result, err := r.eval(ctx, subjectGlobals(s))
	if err != nil {
		return false, err
	}
	return result != nil && result.IsTruthy(), nil
}

func (r *Runtime) eval(ctx context.Context, extra map[string]any) (object.Object, error) {
	globals := r.buildGlobals(extra)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	result, err := risor.Eval(ctx, r.source, opts...)
	if err != nil {
		return nil, fmt.Errorf("runtime: predicate %s: %w", r.label, err)
	}
	return result, nil
}

// buildImporter returns a Risor importer configured for the Runtime's script source.
// Returns nil if neither fs.FS nor scriptsDir is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code.
// When an fs.FS is configured, uses fs.ReadFile on that filesystem.
// Otherwise, uses os.ReadFile with scriptsDir as the base directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) && r.scriptsDir != "" {
		fullPath = filepath.Join(r.scriptsDir, path)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"log": mustProxy(&logObject{logger: r.logger.Named("where")}),
	}
	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
