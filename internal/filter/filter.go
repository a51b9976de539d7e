// Package filter decides which paths are visible in a tree listing.
//
// A PathFilter is built once per invocation, before traversal starts, into
// two read-only lookup sets: included files and directories that contain at
// least one included file. After construction it is safe for concurrent
// reads without locking.
package filter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// PathFilter answers visibility questions for absolute, canonical paths.
type PathFilter interface {
	// IncludesFile reports whether the file itself is visible.
	IncludesFile(path string) bool
	// IncludesDir reports whether at least one visible file lies beneath dir.
	IncludesDir(path string) bool
}

// Mode selects how a PathFilter is built.
type Mode int

const (
	// ModeTracked shows only files in the git index.
	ModeTracked Mode = iota
	// ModeGitignore shows every file not excluded by ignore files.
	ModeGitignore
	// ModeAll shows everything.
	ModeAll
)

func (m Mode) String() string {
	switch m {
	case ModeTracked:
		return "tracked"
	case ModeGitignore:
		return "gitignore"
	case ModeAll:
		return "all"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses a mode name as printed by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tracked", "git", "":
		return ModeTracked, nil
	case "gitignore":
		return ModeGitignore, nil
	case "all":
		return ModeAll, nil
	default:
		return 0, fmt.Errorf("unknown filter mode %q (want tracked|gitignore|all)", s)
	}
}

// All includes every path.
var All PathFilter = all{}

type all struct{}

func (all) IncludesFile(string) bool { return true }
func (all) IncludesDir(string) bool { return true }

// New builds the filter for mode rooted at root. A build failure, such as
// tracked mode outside a git repository, degrades to All and is logged.
func New(mode Mode, root string, logger hclog.Logger) PathFilter {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	var (
		f   PathFilter
		err error
	)
	switch mode {
	case ModeTracked:
		f, err = NewTracked(root)
	case ModeGitignore:
		f, err = NewGitignore(root)
	default:
		return All
	}
	if err != nil {
		logger.Debug("filter unavailable, showing all files", "mode", mode.String(), "root", root, "error", err)
		return All
	}
	return f
}

// Index is a PathFilter over precomputed path sets.
type Index struct {
	root  string
	files map[string]struct{}
	dirs  map[string]struct{}
}

// Compile-time check: *Index satisfies PathFilter.
var _ PathFilter = (*Index)(nil)

func newIndex(root string) *Index {
	return &Index{
		root:  root,
		files: make(map[string]struct{}),
		dirs:  make(map[string]struct{}),
	}
}

// addFile records path and every ancestor directory up to the root.
func (ix *Index) addFile(path string) {
	ix.files[path] = struct{}{}
	for dir := filepath.Dir(path); within(ix.root, dir); dir = filepath.Dir(dir) {
		if _, ok := ix.dirs[dir]; ok {
			return
		}
		ix.dirs[dir] = struct{}{}
		if dir == ix.root {
			return
		}
	}
}

func (ix *Index) IncludesFile(path string) bool {
	_, ok := ix.files[filepath.Clean(path)]
	return ok
}

func (ix *Index) IncludesDir(path string) bool {
	_, ok := ix.dirs[filepath.Clean(path)]
	return ok
}

// Len returns the number of included files.
func (ix *Index) Len() int {
	return len(ix.files)
}

// CanonicalRoot returns the absolute, symlink-free form of root.
func CanonicalRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", root, err)
	}
	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(canon)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", canon)
	}
	return canon, nil
}

// within reports whether path is root or lies beneath it.
func within(root, path string) bool {
	if path == root {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// splitRel returns path relative to base as slash-free components.
func splitRel(base, path string) []string {
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == "." {
		return nil
	}
	return strings.Split(filepath.ToSlash(rel), "/")
}
