package fruit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sammcvicker/fruit-sub000/internal/extract"
	"github.com/sammcvicker/fruit-sub000/internal/filter"
	"github.com/sammcvicker/fruit-sub000/internal/render"
)

// writeFiles creates files (slash-separated paths) under root.
func writeFiles(t testing.TB, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// newTestRoot returns a canonical temp dir holding files.
func newTestRoot(t testing.TB, files map[string]string) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	writeFiles(t, root, files)
	return root
}

// newTestRepo is newTestRoot plus a git repository with tracked staged.
func newTestRepo(t *testing.T, files map[string]string, tracked ...string) string {
	t.Helper()
	root := newTestRoot(t, nil)
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

func newTestEngine(t testing.TB, cfg Config, f filter.PathFilter, opts ...Option) *Engine {
	t.Helper()
	e, err := New(cfg, f, opts...)
	require.NoError(t, err)
	return e
}

// recorder is a Renderer that keeps everything it receives.
type recorder struct {
	entries  []render.Entry
	dirs     int
	files    int
	finished bool
}

func (r *recorder) Entry(e render.Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

func (r *recorder) Finish(dirs, files int) error {
	r.dirs, r.files, r.finished = dirs, files, true
	return nil
}

func (r *recorder) paths() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Path
	}
	return out
}

// shape is the part of a record the ordering tests compare.
type shape struct {
	Rel    string
	IsLast bool
	Prefix string
	Depth  int
}

func shapes(records []Record) []shape {
	out := make([]shape, len(records))
	for i, r := range records {
		out[i] = shape{Rel: r.Rel, IsLast: r.IsLast, Prefix: r.Prefix, Depth: r.Depth}
	}
	return out
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{MaxDepth: -1}, nil)
	require.Error(t, err)
	_, err = New(Config{Workers: -1}, nil)
	require.Error(t, err)
	_, err = New(Config{Where: "name =="}, nil)
	require.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Config{TodosOnly: true}, nil)
	assert.Equal(t, filter.All, e.filter)
	assert.True(t, e.Extractors().Has(extract.Todos), "todos-only implies the todo extractor")
	assert.Equal(t, int64(extract.DefaultMaxFileSize), e.opts.MaxFileSize)
	assert.False(t, e.classic())

	assert.True(t, newTestEngine(t, Config{}, nil).classic(), "no extractors")
	assert.True(t, newTestEngine(t, Config{Workers: 1, Extract: extract.NewSet(extract.Comments)}, nil).classic())
}

func TestNew_ShowAllOverridesFilter(t *testing.T) {
	t.Parallel()

	root := newTestRepo(t, map[string]string{"a.rs": "", "b.rs": ""}, "a.rs")
	e := newTestEngine(t, Config{ShowAll: true}, filter.New(filter.ModeTracked, root, nil))
	assert.Equal(t, filter.All, e.filter)
}

func TestCollect_TrackedScenario(t *testing.T) {
	t.Parallel()

	root := newTestRepo(t, map[string]string{
		"a.rs":     "fn a() {}\n",
		"b.rs":     "fn b() {}\n",
		"sub/c.rs": "fn c() {}\n",
	}, "a.rs", "sub/c.rs")

	e := newTestEngine(t, Config{}, filter.New(filter.ModeTracked, root, nil))
	records, err := e.Collect(root)
	require.NoError(t, err)

	assert.Equal(t, []shape{
		{Rel: "", IsLast: true},
		{Rel: "a.rs", IsLast: false, Depth: 1},
		{Rel: "sub", IsLast: true, Depth: 1},
		{Rel: "sub/c.rs", IsLast: true, Prefix: blank, Depth: 2},
	}, shapes(records))
	assert.True(t, records[0].IsRoot)
	assert.Equal(t, -1, records[0].Parent)
	assert.Equal(t, 2, records[3].Parent)

	var rec recorder
	sum, err := e.Walk(context.Background(), root, &rec)
	require.NoError(t, err)
	assert.Equal(t, Summary{Dirs: 1, Files: 2}, sum)
	assert.Equal(t, "1 directories, 2 files", render.SummaryLine(rec.dirs, rec.files))

	all := newTestEngine(t, Config{ShowAll: true}, filter.New(filter.ModeTracked, root, nil))
	records, err = all.Collect(root)
	require.NoError(t, err)
	var rels []string
	for _, r := range records {
		rels = append(rels, r.Rel)
	}
	assert.Equal(t, []string{"", "a.rs", "b.rs", "sub", "sub/c.rs"}, rels)
}

func TestCollect_OrderAndPrefixes(t *testing.T) {
	t.Parallel()

	root := newTestRoot(t, map[string]string{
		"b/x.txt":   "",
		"b/y/z.txt": "",
		"a.txt":     "",
		"c.txt":     "",
		"B.txt":     "",
	})
	e := newTestEngine(t, Config{}, nil)
	records, err := e.Collect(root)
	require.NoError(t, err)

	// Byte order puts upper case first.
	assert.Equal(t, []shape{
		{Rel: "", IsLast: true},
		{Rel: "B.txt", Depth: 1},
		{Rel: "a.txt", Depth: 1},
		{Rel: "b", Depth: 1},
		{Rel: "b/x.txt", Prefix: pipe, Depth: 2},
		{Rel: "b/y", IsLast: true, Prefix: pipe, Depth: 2},
		{Rel: "b/y/z.txt", IsLast: true, Prefix: pipe + blank, Depth: 3},
		{Rel: "c.txt", IsLast: true, Depth: 1},
	}, shapes(records))

	for i, r := range records {
		if r.IsRoot {
			continue
		}
		parent := records[r.Parent]
		assert.True(t, parent.IsDir, r.Rel)
		assert.Equal(t, parent.Depth+1, r.Depth, r.Rel)
		assert.Less(t, r.Parent, i)
	}
}

func TestCollect_SkipsGitDirAndSymlinks(t *testing.T) {
	t.Parallel()

	root := newTestRoot(t, map[string]string{
		".git/HEAD":  "ref: refs/heads/main",
		"real/a.txt": "a",
	})
	require.NoError(t, os.Symlink(root, filepath.Join(root, "loop")))
	require.NoError(t, os.Symlink(filepath.Join(root, "real", "a.txt"), filepath.Join(root, "link.txt")))

	e := newTestEngine(t, Config{}, nil)
	records, err := e.Collect(root)
	require.NoError(t, err)

	var rels []string
	for _, r := range records {
		rels = append(rels, r.Rel)
	}
	assert.Equal(t, []string{"", "real", "real/a.txt"}, rels)
}

func TestCollect_InvalidRoot(t *testing.T) {
	t.Parallel()

	root := newTestRoot(t, map[string]string{"file.txt": "x", "dir/a": "a"})
	require.NoError(t, os.Symlink(filepath.Join(root, "dir"), filepath.Join(root, "dirlink")))
	e := newTestEngine(t, Config{}, nil)

	for _, bad := range []string{
		filepath.Join(root, "missing"),
		filepath.Join(root, "file.txt"),
		filepath.Join(root, "dirlink"),
	} {
		_, err := e.Collect(bad)
		require.Error(t, err, bad)
		assert.True(t, errors.Is(err, ErrInvalidRoot), bad)

		var rec recorder
		_, err = e.Walk(context.Background(), bad, &rec)
		assert.True(t, errors.Is(err, ErrInvalidRoot), bad)
		assert.Empty(t, rec.entries)
	}
}

func TestCollect_MaxDepth(t *testing.T) {
	t.Parallel()

	root := newTestRoot(t, map[string]string{
		"top.txt":         "",
		"a/mid.txt":       "",
		"a/b/deep.txt":    "",
		"a/b/c/deeper.go": "",
	})

	tests := []struct {
		depth int
		want  []string
	}{
		{1, []string{"", "a", "top.txt"}},
		{2, []string{"", "a", "a/b", "a/mid.txt", "top.txt"}},
		{0, []string{"", "a", "a/b", "a/b/c", "a/b/c/deeper.go", "a/b/deep.txt", "a/mid.txt", "top.txt"}},
	}
	for _, tt := range tests {
		e := newTestEngine(t, Config{MaxDepth: tt.depth}, nil)
		records, err := e.Collect(root)
		require.NoError(t, err)
		var rels []string
		for _, r := range records {
			rels = append(rels, r.Rel)
			if tt.depth > 0 {
				assert.LessOrEqual(t, r.Depth, tt.depth)
			}
		}
		assert.Equal(t, tt.want, rels, "depth %d", tt.depth)
	}
}

func TestCollect_DirsOnly(t *testing.T) {
	t.Parallel()

	root := newTestRoot(t, map[string]string{"a/x.txt": "", "b.txt": "", "c/d/y.txt": ""})
	e := newTestEngine(t, Config{DirsOnly: true}, nil)

	var rec recorder
	sum, err := e.Walk(context.Background(), root, &rec)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "a", "c", "c/d"}, rec.paths())
	assert.Equal(t, Summary{Dirs: 3}, sum)
	assert.True(t, rec.entries[2].IsLast)
}

func TestCollect_DirsOnlyIgnoresFilterForDirectories(t *testing.T) {
	t.Parallel()

	root := newTestRepo(t, map[string]string{
		"a/x.go":               "package a",
		"untracked/y.go":       "package untracked",
		"untracked/deep/z.txt": "",
		"top.go":               "package top",
	}, "a/x.go", "top.go")
	f, err := filter.NewTracked(root)
	require.NoError(t, err)

	e := newTestEngine(t, Config{DirsOnly: true}, f)
	records, err := e.Collect(root)
	require.NoError(t, err)
	assert.Equal(t, []shape{
		{Rel: "", IsLast: true},
		{Rel: "a", Depth: 1},
		{Rel: "untracked", IsLast: true, Depth: 1},
		{Rel: "untracked/deep", IsLast: true, Prefix: blank, Depth: 2},
	}, shapes(records))

	// Without DirsOnly the filter prunes the untracked directory.
	e = newTestEngine(t, Config{}, f)
	records, err = e.Collect(root)
	require.NoError(t, err)
	var rels []string
	for _, r := range records {
		rels = append(rels, r.Rel)
	}
	assert.Equal(t, []string{"", "a", "a/x.go", "top.go"}, rels)
}

func TestCollect_IgnorePatterns(t *testing.T) {
	t.Parallel()

	root := newTestRoot(t, map[string]string{
		"main.go":                   "",
		"debug.log":                 "",
		"node_modules/pkg/index.js": "",
		"web/node_modules/x.js":     "",
		"web/app.js":                "",
		"docs/a.md":                 "",
		"docs/api/b.md":             "",
	})
	e := newTestEngine(t, Config{IgnorePatterns: []string{"*.log", "node_modules", "docs/*.md"}}, nil)
	records, err := e.Collect(root)
	require.NoError(t, err)

	var rels []string
	for _, r := range records {
		rels = append(rels, r.Rel)
	}
	assert.Equal(t, []string{"", "docs", "docs/api", "docs/api/b.md", "main.go", "web", "web/app.js"}, rels)
}

// stubFilter includes exactly the listed absolute files and their parents.
type stubFilter struct {
	files map[string]bool
	dirs  map[string]bool
}

func (s stubFilter) IncludesFile(p string) bool { return s.files[p] }
func (s stubFilter) IncludesDir(p string) bool { return s.dirs[p] }

func TestCollect_FilterPrunesDirectories(t *testing.T) {
	t.Parallel()

	root := newTestRoot(t, map[string]string{"keep/a.txt": "", "drop/b.txt": "", "c.txt": ""})
	f := stubFilter{
		files: map[string]bool{filepath.Join(root, "keep", "a.txt"): true},
		dirs:  map[string]bool{filepath.Join(root, "keep"): true},
	}
	e := newTestEngine(t, Config{}, f)
	records, err := e.Collect(root)
	require.NoError(t, err)

	assert.Equal(t, []shape{
		{Rel: "", IsLast: true},
		{Rel: "keep", IsLast: true, Depth: 1},
		{Rel: "keep/a.txt", IsLast: true, Prefix: blank, Depth: 2},
	}, shapes(records))
}

func TestCollect_UnreadableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	t.Parallel()

	root := newTestRoot(t, map[string]string{"locked/secret.txt": "", "open.txt": ""})
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	e := newTestEngine(t, Config{}, nil)
	records, err := e.Collect(root)
	require.NoError(t, err)

	var rels []string
	for _, r := range records {
		rels = append(rels, r.Rel)
	}
	assert.Equal(t, []string{"", "locked", "open.txt"}, rels)
}

func TestStage_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "collecting", stageCollecting.String())
	assert.Equal(t, "done", stageDone.String())
	assert.Equal(t, "stage(42)", stage(42).String())
}
