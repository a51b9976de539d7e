package filter

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

const (
	gitDir          = ".git"
	gitignoreFile   = ".gitignore"
	infoExcludeFile = ".git/info/exclude"
)

// NewGitignore builds an Index of every file under root that is not excluded
// by .git/info/exclude or a .gitignore between the repository top and the
// file. Nested ignore files and negation patterns are honored. Outside a
// repository root itself is treated as the top. Symlinks are never followed.
func NewGitignore(root string) (*Index, error) {
	root, err := CanonicalRoot(root)
	if err != nil {
		return nil, err
	}

	top := root
	if _, t, err := openRepo(root); err == nil && within(t, root) {
		top = t
	}

	var patterns []gitignore.Pattern
	patterns = append(patterns, readIgnoreFile(filepath.Join(top, infoExcludeFile), nil)...)

	// Ignore files above root still apply.
	for _, dir := range ancestorsBetween(top, root) {
		patterns = append(patterns, readIgnoreFile(filepath.Join(dir, gitignoreFile), splitRel(top, dir))...)
	}

	ix := newIndex(root)
	b := &ignoreBuilder{top: top, ix: ix}
	b.walk(root, patterns)
	return ix, nil
}

type ignoreBuilder struct {
	top string
	ix  *Index
}

func (b *ignoreBuilder) walk(dir string, inherited []gitignore.Pattern) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	domain := splitRel(b.top, dir)
	patterns := append(inherited[:len(inherited):len(inherited)],
		readIgnoreFile(filepath.Join(dir, gitignoreFile), domain)...)
	matcher := gitignore.NewMatcher(patterns)

	for _, e := range entries {
		name := e.Name()
		if name == gitDir || e.Type()&os.ModeSymlink != 0 {
			continue
		}
		path := filepath.Join(dir, name)
		parts := append(domain[:len(domain):len(domain)], name)
		if matcher.Match(parts, e.IsDir()) {
			continue
		}
		if e.IsDir() {
			b.walk(path, patterns)
			continue
		}
		b.ix.addFile(path)
	}
}

// readIgnoreFile parses one ignore file. A missing or unreadable file yields
// no patterns.
func readIgnoreFile(path string, domain []string) []gitignore.Pattern {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var ps []gitignore.Pattern
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		s := scanner.Text()
		if strings.HasPrefix(s, "#") || strings.TrimSpace(s) == "" {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(s, domain))
	}
	return ps
}

// ancestorsBetween returns the directories from top down to the parent of
// root, in that order. It is empty when root is top.
func ancestorsBetween(top, root string) []string {
	var dirs []string
	for dir := filepath.Dir(root); within(top, dir) && root != top; dir = filepath.Dir(dir) {
		dirs = append(dirs, dir)
		if dir == top {
			break
		}
	}
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) < len(dirs[j]) })
	return dirs
}

// Globs matches entries against user ignore patterns written in gitignore
// syntax. A pattern without a slash matches an entry name at any depth.
type Globs struct {
	matcher gitignore.Matcher
	n       int
}

// NewGlobs compiles patterns. Empty patterns are dropped.
func NewGlobs(patterns []string) *Globs {
	var ps []gitignore.Pattern
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			ps = append(ps, gitignore.ParsePattern(p, nil))
		}
	}
	return &Globs{matcher: gitignore.NewMatcher(ps), n: len(ps)}
}

// Match reports whether the entry at rel (slash-separated, relative to the
// walk root) is ignored.
func (g *Globs) Match(rel string, isDir bool) bool {
	if g == nil || g.n == 0 {
		return false
	}
	return g.matcher.Match(strings.Split(filepath.ToSlash(rel), "/"), isDir)
}
