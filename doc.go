// Package fruit renders a filtered, annotated view of a directory tree.
//
// # Pipeline
//
// A walk moves through four stages, each finishing before the next starts:
//
//  1. Collect: a single-threaded, name-sorted, depth-first walk produces
//     records in display order. Symlinks, .git and ignore patterns are
//     dropped; the PathFilter decides which files and directories remain;
//     sibling flags and indentation prefixes are fixed here.
//
//  2. Extract: file records are split across a fixed worker pool that runs
//     the requested extractors (leading comment, type signatures, TODO
//     markers, imports). Workers share no mutable state; results are merged
//     after all of them return.
//
//  3. Reconcile: records are joined with their metadata. Post-filters such
//     as "only files with TODOs" or a Risor predicate drop files, after
//     which sibling flags and prefixes are recomputed for the survivors.
//
//  4. Render: entries stream to a [Renderer] in collection order, followed
//     by the directory and file counts.
//
// With one worker, or with no extractor active, the stages fuse into a
// single pass that renders while walking. Output is identical either way.
//
// # Usage
//
//	f := filter.New(filter.ModeTracked, root, logger)
//	e, err := fruit.New(fruit.Config{Extract: extract.NewSet(extract.Comments)}, f)
//	if err != nil { ... }
//
//	sum, err := e.Walk(ctx, root, render.NewTree(os.Stdout, render.Options{}))
package fruit
