package filter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFiles creates files (slash-separated paths) under root.
func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// initRepo creates a git repository at a canonical temp dir and stages tracked.
func initRepo(t *testing.T, files map[string]string, tracked ...string) string {
	t.Helper()
	root, err := CanonicalRoot(t.TempDir())
	require.NoError(t, err)

	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)
	writeFiles(t, root, files)

	wt, err := repo.Worktree()
	require.NoError(t, err)
	for _, p := range tracked {
		_, err := wt.Add(p)
		require.NoError(t, err)
	}
	return root
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	for _, m := range []Mode{ModeTracked, ModeGitignore, ModeAll} {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMode("bogus")
	require.Error(t, err)
}

func TestAll(t *testing.T) {
	t.Parallel()
	assert.True(t, All.IncludesFile("/anything"))
	assert.True(t, All.IncludesDir("/anything"))
}

func TestTracked(t *testing.T) {
	t.Parallel()
	root := initRepo(t, map[string]string{
		"a.rs":     "fn a() {}",
		"b.rs":     "fn b() {}",
		"sub/c.rs": "fn c() {}",
		"empty/x":  "untracked",
	}, "a.rs", "sub/c.rs")

	ix, err := NewTracked(root)
	require.NoError(t, err)

	assert.Equal(t, 2, ix.Len())
	assert.True(t, ix.IncludesFile(filepath.Join(root, "a.rs")))
	assert.True(t, ix.IncludesFile(filepath.Join(root, "sub", "c.rs")))
	assert.False(t, ix.IncludesFile(filepath.Join(root, "b.rs")))

	assert.True(t, ix.IncludesDir(root))
	assert.True(t, ix.IncludesDir(filepath.Join(root, "sub")))
	assert.False(t, ix.IncludesDir(filepath.Join(root, "empty")))
}

func TestTracked_Subdirectory(t *testing.T) {
	t.Parallel()
	root := initRepo(t, map[string]string{
		"top.go":        "package top",
		"pkg/inner.go":  "package pkg",
		"pkg/deep/x.go": "package deep",
	}, "top.go", "pkg/inner.go", "pkg/deep/x.go")

	sub := filepath.Join(root, "pkg")
	ix, err := NewTracked(sub)
	require.NoError(t, err)

	assert.Equal(t, 2, ix.Len())
	assert.False(t, ix.IncludesFile(filepath.Join(root, "top.go")))
	assert.True(t, ix.IncludesDir(filepath.Join(sub, "deep")))
	assert.False(t, ix.IncludesDir(root))
}

func TestTracked_NotARepository(t *testing.T) {
	t.Parallel()
	root, err := CanonicalRoot(t.TempDir())
	require.NoError(t, err)

	_, err = NewTracked(root)
	require.Error(t, err)

	// New degrades to All.
	f := New(ModeTracked, root, nil)
	assert.Equal(t, All, f)
}

func TestGitignore(t *testing.T) {
	t.Parallel()
	root := initRepo(t, map[string]string{
		".gitignore":       "*.log\n!keep.log\nbuild/\n# comment\n",
		"main.go":          "package main",
		"debug.log":        "noise",
		"keep.log":         "kept",
		"build/out.bin":    "binary",
		"sub/.gitignore":   "secret.txt\n",
		"sub/secret.txt":   "hidden",
		"sub/visible.txt":  "shown",
		"only/ignored.log": "noise",
	})

	ix, err := NewGitignore(root)
	require.NoError(t, err)

	assert.True(t, ix.IncludesFile(filepath.Join(root, "main.go")))
	assert.True(t, ix.IncludesFile(filepath.Join(root, "keep.log")))
	assert.True(t, ix.IncludesFile(filepath.Join(root, ".gitignore")))
	assert.False(t, ix.IncludesFile(filepath.Join(root, "debug.log")))
	assert.False(t, ix.IncludesFile(filepath.Join(root, "build", "out.bin")))
	assert.False(t, ix.IncludesFile(filepath.Join(root, "sub", "secret.txt")))
	assert.True(t, ix.IncludesFile(filepath.Join(root, "sub", "visible.txt")))

	assert.True(t, ix.IncludesDir(filepath.Join(root, "sub")))
	assert.False(t, ix.IncludesDir(filepath.Join(root, "build")))
	assert.False(t, ix.IncludesDir(filepath.Join(root, "only")))
}

func TestGitignore_ParentIgnoreFileApplies(t *testing.T) {
	t.Parallel()
	root := initRepo(t, map[string]string{
		".gitignore":      "*.tmp\n",
		"pkg/a.go":        "package pkg",
		"pkg/scratch.tmp": "x",
	})

	ix, err := NewGitignore(filepath.Join(root, "pkg"))
	require.NoError(t, err)
	assert.True(t, ix.IncludesFile(filepath.Join(root, "pkg", "a.go")))
	assert.False(t, ix.IncludesFile(filepath.Join(root, "pkg", "scratch.tmp")))
}

func TestGitignore_WithoutRepository(t *testing.T) {
	t.Parallel()
	root, err := CanonicalRoot(t.TempDir())
	require.NoError(t, err)
	writeFiles(t, root, map[string]string{
		".gitignore": "*.o\n",
		"main.c":     "int main() {}",
		"main.o":     "obj",
	})

	ix, err := NewGitignore(root)
	require.NoError(t, err)
	assert.True(t, ix.IncludesFile(filepath.Join(root, "main.c")))
	assert.False(t, ix.IncludesFile(filepath.Join(root, "main.o")))
}

func TestGitignore_SkipsSymlinks(t *testing.T) {
	t.Parallel()
	root, err := CanonicalRoot(t.TempDir())
	require.NoError(t, err)
	writeFiles(t, root, map[string]string{"real/a.txt": "a"})
	require.NoError(t, os.Symlink(root, filepath.Join(root, "loop")))

	ix, err := NewGitignore(root)
	require.NoError(t, err)
	assert.Equal(t, 1, ix.Len())
	assert.False(t, ix.IncludesDir(filepath.Join(root, "loop")))
}

func TestGlobs(t *testing.T) {
	t.Parallel()

	g := NewGlobs([]string{"*.log", "node_modules", "docs/*.md", " "})
	assert.True(t, g.Match("app.log", false))
	assert.True(t, g.Match("sub/app.log", false))
	assert.True(t, g.Match("node_modules", true))
	assert.True(t, g.Match("docs/readme.md", false))
	assert.False(t, g.Match("readme.md", false))
	assert.False(t, g.Match("main.go", false))

	var none *Globs
	assert.False(t, none.Match("x", false))
	assert.False(t, NewGlobs(nil).Match("x", false))
}
