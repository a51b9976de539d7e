package fruit

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/sammcvicker/fruit-sub000/internal/extract"
	"github.com/sammcvicker/fruit-sub000/internal/store"
)

// extractAll computes metadata for every file record using a fixed pool:
//
//	Partition (serial): file indices split into contiguous chunks.
//	Extract (parallel): one goroutine per chunk, each with its own result map.
//	Merge (serial):     partial maps combined after every worker returns.
//
// workers <= 0 uses one worker per CPU. A file whose extraction fails or
// panics is absent from the result. Cache misses are queued on batch when it
// is non-nil. The only error is ctx's: a cancelled walk stops workers before
// their next file and no partial result is returned.
func (e *Engine) extractAll(ctx context.Context, records []Record, workers int, batch *store.BatchedStore) (map[int]*extract.Metadata, error) {
	var items []int
	for i, r := range records {
		if !r.IsDir {
			items = append(items, i)
		}
	}
	results := make(map[int]*extract.Metadata, len(items))
	if len(items) == 0 {
		return results, ctx.Err()
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = max(min(workers, len(items)), 1)
	chunk := (len(items) + workers - 1) / workers

	partials := make([]map[int]*extract.Metadata, workers)
	g := new(errgroup.Group)
	for w := range workers {
		lo := w * chunk
		hi := min(lo+chunk, len(items))
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			part := make(map[int]*extract.Metadata, hi-lo)
			for _, idx := range items[lo:hi] {
				if err := ctx.Err(); err != nil {
					return err
				}
				if md := e.extractOne(ctx, records[idx], batch); md != nil {
					part[idx] = md
				}
			}
			partials[w] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, part := range partials {
		for idx, md := range part {
			results[idx] = md
		}
	}
	e.logger.Debug("extraction finished", "files", len(items), "workers", workers, "with_metadata", len(results))
	return results, nil
}

// extractOne runs the active extractors on one file, consulting the cache
// first. Failures are absorbed here and yield nil.
func (e *Engine) extractOne(ctx context.Context, r Record, batch *store.BatchedStore) (md *extract.Metadata) {
	defer func() {
		if p := recover(); p != nil {
			e.logger.Debug("extractor panicked", "path", r.Path, "panic", p)
			md = nil
		}
	}()

	var fp string
	if batch != nil {
		fp = store.Fingerprint(r.Path, r.Size, r.ModTime, e.set, e.opts)
		cached, found, err := batch.Lookup(fp)
		if err != nil {
			e.logger.Debug("cache lookup failed", "path", r.Path, "error", err)
		} else if found {
			return cached
		}
	}

	md, err := e.extractFn(ctx, r.Path, e.set, e.opts)
	if err != nil {
		e.logger.Debug("extraction failed", "path", r.Path, "error", err)
		return nil
	}
	if batch != nil {
		batch.Add(store.Entry{Fingerprint: fp, Path: r.Path, Metadata: md})
	}
	return md
}
