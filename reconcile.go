package fruit

import (
	"context"

	"github.com/sammcvicker/fruit-sub000/internal/extract"
	"github.com/sammcvicker/fruit-sub000/internal/render"
	"github.com/sammcvicker/fruit-sub000/internal/runtime"
)

// reconcile merges records with their metadata and applies post-filters.
//
// Without a post-filter records map one-to-one onto entries. With one,
// files failing it are dropped (directories never are) and every survivor's
// IsLast and Prefix are derived again from the surviving siblings so
// connectors stay correct. Records are not modified and order is kept.
func (e *Engine) reconcile(ctx context.Context, records []Record, results map[int]*extract.Metadata) ([]render.Entry, error) {
	entries := make([]render.Entry, 0, len(records))
	if !e.postFilterActive() {
		for i, r := range records {
			entries = append(entries, r.entry(results[i]))
		}
		return entries, nil
	}

	keep := make([]bool, len(records))
	lastChild := make(map[int]int)
	for i, r := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		keep[i] = r.IsDir || e.passes(ctx, r, results[i])
		if keep[i] && !r.IsRoot {
			lastChild[r.Parent] = i
		}
	}

	// childPrefix[i] is the prefix handed to the children of directory i.
	childPrefix := make([]string, len(records))
	for i, r := range records {
		if !keep[i] {
			continue
		}
		entry := r.entry(results[i])
		if !r.IsRoot {
			entry.IsLast = lastChild[r.Parent] == i
			entry.Prefix = childPrefix[r.Parent]
		}
		if r.IsDir && !r.IsRoot {
			if entry.IsLast {
				childPrefix[i] = entry.Prefix + blank
			} else {
				childPrefix[i] = entry.Prefix + pipe
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// passes evaluates the post-filters for one file. A predicate error
// excludes the file.
func (e *Engine) passes(ctx context.Context, r Record, md *extract.Metadata) bool {
	if e.cfg.TodosOnly && !md.HasTodos() {
		return false
	}
	if e.runtime == nil {
		return true
	}
	ok, err := e.runtime.Match(ctx, runtime.Subject{
		Name:     r.Name,
		Path:     r.Rel,
		Size:     r.Size,
		Metadata: md,
	})
	if err != nil {
		e.logger.Debug("predicate failed", "path", r.Path, "error", err)
		return false
	}
	return ok
}
