package filter

import (
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

// NewTracked builds an Index of the files recorded in the git index of the
// repository containing root. Files outside root are ignored.
func NewTracked(root string) (*Index, error) {
	root, err := CanonicalRoot(root)
	if err != nil {
		return nil, err
	}

	repo, top, err := openRepo(root)
	if err != nil {
		return nil, err
	}
	idx, err := repo.Storer.Index()
	if err != nil {
		return nil, fmt.Errorf("read git index: %w", err)
	}

	ix := newIndex(root)
	for _, e := range idx.Entries {
		path := filepath.Join(top, filepath.FromSlash(e.Name))
		if path == root || !within(root, path) {
			continue
		}
		ix.addFile(path)
	}
	return ix, nil
}

// openRepo opens the repository enclosing dir and returns it with the
// canonical worktree root.
func openRepo(dir string) (*git.Repository, string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, "", fmt.Errorf("open git repository at %s: %w", dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, "", fmt.Errorf("git worktree: %w", err)
	}
	top, err := filepath.EvalSymlinks(wt.Filesystem.Root())
	if err != nil {
		return nil, "", fmt.Errorf("resolving worktree root: %w", err)
	}
	return repo, top, nil
}
