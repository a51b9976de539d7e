package fruit

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/sammcvicker/fruit-sub000/internal/extract"
	"github.com/sammcvicker/fruit-sub000/internal/render"
	"github.com/sammcvicker/fruit-sub000/internal/store"
)

// gitDir is never listed.
const gitDir = ".git"

const (
	pipe  = "│   "
	blank = "    "
)

// Record is one visited node in walk order.
type Record struct {
	Name string
	// Path is absolute and canonical.
	Path string
	// Rel is slash-separated and relative to the root; "" for the root.
	Rel    string
	IsDir  bool
	IsLast bool
	// Prefix is the indentation inherited from ancestors. Siblings share it.
	Prefix string
	IsRoot bool
	Depth  int
	// Parent is the index of the parent record, -1 for the root.
	Parent  int
	Size    int64
	ModTime time.Time
}

func (r Record) entry(md *extract.Metadata) render.Entry {
	return render.Entry{
		Name:     r.Name,
		Path:     r.Rel,
		IsDir:    r.IsDir,
		IsLast:   r.IsLast,
		Prefix:   r.Prefix,
		IsRoot:   r.IsRoot,
		Depth:    r.Depth,
		Size:     r.Size,
		Metadata: md,
	}
}

// Collect walks root and returns its records in pre-order with children
// sorted by name. IsLast is computed among the entries that survive
// filtering; post-filters are not applied.
func (e *Engine) Collect(root string) ([]Record, error) {
	canon, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}
	return e.collect(root, canon)
}

func (e *Engine) collect(display, canon string) ([]Record, error) {
	var records []Record
	w := &walker{e: e, emit: func(r Record, _ *extract.Metadata) error {
		records = append(records, r)
		return nil
	}}
	if err := w.run(display, canon); err != nil {
		return nil, err
	}
	return records, nil
}

// walkClassic lists root in a single pass. Extraction and post-filters run
// while each directory is classified, so sibling flags are final when a
// record is emitted and the renderer is fed directly.
func (e *Engine) walkClassic(ctx context.Context, run *walkRun, display, canon string, r render.Renderer) (Summary, error) {
	run.enter(stageCollecting)
	var sum Summary
	w := &walker{e: e, ctx: ctx, inline: true, batch: run.batch, emit: func(rec Record, md *extract.Metadata) error {
		entry := rec.entry(md)
		if err := r.Entry(entry); err != nil {
			return fmt.Errorf("render %s: %w", entry.Path, err)
		}
		sum.count(entry)
		return nil
	}}
	if err := w.run(display, canon); err != nil {
		return Summary{}, err
	}

	run.enter(stageRendering)
	if err := r.Finish(sum.Dirs, sum.Files); err != nil {
		return Summary{}, fmt.Errorf("render summary: %w", err)
	}
	return sum, nil
}

// walker performs the depth-first traversal shared by both paths.
type walker struct {
	e    *Engine
	ctx  context.Context
	emit func(Record, *extract.Metadata) error
	// inline extracts and post-filters during classification.
	inline bool
	batch  *store.BatchedStore
	next   int
}

// candidate is a directory entry that passed classification.
type candidate struct {
	name    string
	path    string
	rel     string
	isDir   bool
	size    int64
	modTime time.Time
	md      *extract.Metadata
}

func (w *walker) run(display, canon string) error {
	entries, err := os.ReadDir(canon)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRoot, err)
	}
	root := Record{
		Name:   displayName(display),
		Path:   canon,
		IsDir:  true,
		IsLast: true,
		IsRoot: true,
		Parent: -1,
	}
	if err := w.put(root, nil); err != nil {
		return err
	}
	return w.children(canon, "", entries, 1, "", 0)
}

func (w *walker) put(r Record, md *extract.Metadata) error {
	w.next++
	return w.emit(r, md)
}

func (w *walker) children(dir, rel string, entries []os.DirEntry, depth int, prefix string, parent int) error {
	valid := w.classify(dir, rel, entries)
	maxDepth := w.e.cfg.MaxDepth

	for i, c := range valid {
		isLast := i == len(valid)-1
		idx := w.next
		rec := Record{
			Name:    c.name,
			Path:    c.path,
			Rel:     c.rel,
			IsDir:   c.isDir,
			IsLast:  isLast,
			Prefix:  prefix,
			Depth:   depth,
			Parent:  parent,
			Size:    c.size,
			ModTime: c.modTime,
		}
		if err := w.put(rec, c.md); err != nil {
			return err
		}

		if !c.isDir || (maxDepth > 0 && depth >= maxDepth) {
			continue
		}
		sub, err := os.ReadDir(c.path)
		if err != nil {
			w.e.logger.Debug("unreadable directory", "path", c.path, "error", err)
			continue
		}
		childPrefix := prefix + pipe
		if isLast {
			childPrefix = prefix + blank
		}
		if err := w.children(c.path, c.rel, sub, depth+1, childPrefix, idx); err != nil {
			return err
		}
	}
	return nil
}

// classify returns the entries of dir that will be listed, in name order.
func (w *walker) classify(dir, rel string, entries []os.DirEntry) []candidate {
	e := w.e
	var valid []candidate
	for _, de := range entries {
		name := de.Name()
		if name == gitDir {
			continue
		}
		if de.Type()&os.ModeSymlink != 0 {
			e.logger.Trace("skipping symlink", "path", filepath.Join(dir, name))
			continue
		}

		c := candidate{
			name:  name,
			path:  filepath.Join(dir, name),
			rel:   path.Join(rel, name),
			isDir: de.IsDir(),
		}
		if e.globs.Match(c.rel, c.isDir) {
			continue
		}
		if c.isDir {
			if e.cfg.DirsOnly || e.filter.IncludesDir(c.path) {
				valid = append(valid, c)
			}
			continue
		}

		if e.cfg.DirsOnly || !e.filter.IncludesFile(c.path) {
			continue
		}
		if e.needInfo() {
			info, err := de.Info()
			if err != nil {
				e.logger.Debug("stat failed", "path", c.path, "error", err)
				continue
			}
			c.size, c.modTime = info.Size(), info.ModTime()
			if !e.inTimeWindow(c.modTime) {
				continue
			}
		}

		if w.inline {
			rec := Record{Name: c.name, Path: c.path, Rel: c.rel, Size: c.size, ModTime: c.modTime}
			if !e.set.Empty() {
				c.md = e.extractOne(w.ctx, rec, w.batch)
			}
			if !e.passes(w.ctx, rec, c.md) {
				continue
			}
		}
		valid = append(valid, c)
	}
	return valid
}

// needInfo reports whether file size and modification time are required.
func (e *Engine) needInfo() bool {
	return e.cfg.ShowSize || e.cache != nil || e.runtime != nil ||
		!e.cfg.NewerThan.IsZero() || !e.cfg.OlderThan.IsZero()
}

func (e *Engine) inTimeWindow(mt time.Time) bool {
	if !e.cfg.NewerThan.IsZero() && mt.Before(e.cfg.NewerThan) {
		return false
	}
	if !e.cfg.OlderThan.IsZero() && mt.After(e.cfg.OlderThan) {
		return false
	}
	return true
}
