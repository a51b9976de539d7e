package fruit

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/sammcvicker/fruit-sub000/internal/extract"
	"github.com/sammcvicker/fruit-sub000/internal/render"
)

// BenchmarkWalk_ListingOnly measures the fused single-pass walk with no
// extractors over a 400-file tree.
func BenchmarkWalk_ListingOnly(b *testing.B) {
	root := generateProject(b, 20, 20)
	e := newTestEngine(b, Config{}, nil)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Walk(ctx, root, render.NewTree(io.Discard, render.Options{})); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkWalk_Extract compares sequential and pooled extraction of
// comments, signatures and TODOs over the same tree.
func BenchmarkWalk_Extract(b *testing.B) {
	root := generateProject(b, 20, 20)
	ctx := context.Background()
	set := extract.NewSet(extract.Comments, extract.Types, extract.Todos)

	for _, workers := range []int{1, 4, 0} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			e := newTestEngine(b, Config{Extract: set, Workers: workers}, nil)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := e.Walk(ctx, root, render.NewTree(io.Discard, render.Options{})); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkReconcile_TodosOnly measures post-filtering and sibling
// recomputation on a precollected record list.
func BenchmarkReconcile_TodosOnly(b *testing.B) {
	root := generateProject(b, 20, 20)
	e := newTestEngine(b, Config{TodosOnly: true}, nil)
	records, err := e.Collect(root)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	results, err := e.extractAll(ctx, records, 0, nil)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.reconcile(ctx, records, results); err != nil {
			b.Fatal(err)
		}
	}
}
