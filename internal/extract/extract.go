// Package extract computes per-file metadata: the leading comment, type and
// function signatures, TODO markers and imports. Files in a language with a
// tree-sitter grammar are parsed; everything else falls back to line
// heuristics.
//
// Extraction is a pure function of file contents. The size ceiling is passed
// in through Options rather than read from package state, so concurrent
// callers with different settings never interfere.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
)

// Kind names one metadata extractor. The set of kinds is fixed.
type Kind uint8

const (
	Comments Kind = 1 << iota
	Types
	Todos
	Imports
)

// AllKinds lists every extractor in rendering order.
var AllKinds = []Kind{Comments, Types, Todos, Imports}

func (k Kind) String() string {
	switch k {
	case Comments:
		return "comments"
	case Types:
		return "types"
	case Todos:
		return "todos"
	case Imports:
		return "imports"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Set is a bitmask of enabled kinds.
type Set uint8

// NewSet returns a Set containing kinds.
func NewSet(kinds ...Kind) Set {
	var s Set
	for _, k := range kinds {
		s |= Set(k)
	}
	return s
}

// Has reports whether k is enabled.
func (s Set) Has(k Kind) bool { return s&Set(k) != 0 }

// With returns s with k enabled.
func (s Set) With(k Kind) Set { return s | Set(k) }

// Without returns s with k disabled.
func (s Set) Without(k Kind) Set { return s &^ Set(k) }

// Empty reports whether no extractor is enabled.
func (s Set) Empty() bool { return s == 0 }

func (s Set) String() string {
	var names []string
	for _, k := range AllKinds {
		if s.Has(k) {
			names = append(names, k.String())
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// DefaultMaxFileSize is the extraction size ceiling used when none is configured.
const DefaultMaxFileSize int64 = 1 << 20

// Options tunes extraction.
type Options struct {
	// MaxFileSize is the ceiling above which a file is not read. Zero or
	// negative disables the ceiling.
	MaxFileSize int64

	// FullComment keeps every line of the leading comment instead of the first.
	FullComment bool
}

// Metadata is the payload attached to one file. A nil *Metadata means the
// file produced nothing.
type Metadata struct {
	Comment string   `json:"comment,omitempty"`
	Types   []string `json:"types,omitempty"`
	Todos   []Todo   `json:"todos,omitempty"`
	Imports []string `json:"imports,omitempty"`
}

// Todo is one task marker found in a comment.
type Todo struct {
	Kind string `json:"kind"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Empty reports whether m carries no data. Safe on nil.
func (m *Metadata) Empty() bool {
	return m == nil || (m.Comment == "" && len(m.Types) == 0 && len(m.Todos) == 0 && len(m.Imports) == 0)
}

// HasTodos reports whether m contains at least one task marker. Safe on nil.
func (m *Metadata) HasTodos() bool {
	return m != nil && len(m.Todos) > 0
}

// binarySniffLen is how much of a file is inspected for NUL bytes.
const binarySniffLen = 8000

// Extract reads path and computes the kinds in set. It returns nil without
// error when the file is above the size ceiling, is not a regular file, looks
// binary or yields nothing.
func Extract(ctx context.Context, path string, set Set, opts Options) (*Metadata, error) {
	if set.Empty() {
		return nil, nil
	}
	info, err := os.Lstat(path)
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, nil
	}
	if opts.MaxFileSize > 0 && info.Size() > opts.MaxFileSize {
		return nil, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ExtractSource(ctx, path, src, set, opts)
}

// ExtractSource is Extract over already-loaded contents. path is only used to
// pick the language.
func ExtractSource(ctx context.Context, path string, src []byte, set Set, opts Options) (*Metadata, error) {
	if set.Empty() || isBinary(src) {
		return nil, nil
	}

	f, err := newSourceFile(ctx, path, src)
	if err != nil {
		return nil, err
	}
	defer f.close()

	md := &Metadata{}
	if set.Has(Comments) {
		md.Comment = f.leadingComment(opts.FullComment)
	}
	if set.Has(Types) {
		md.Types = f.signatures()
	}
	if set.Has(Todos) {
		md.Todos = f.todos()
	}
	if set.Has(Imports) {
		md.Imports = f.imports()
	}
	if md.Empty() {
		return nil, nil
	}
	return md, nil
}

func isBinary(src []byte) bool {
	return bytes.IndexByte(src[:min(len(src), binarySniffLen)], 0) >= 0
}
