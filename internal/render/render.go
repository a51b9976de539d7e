// Package render turns the reconciled entry stream into output.
//
// Every backend implements Renderer. Entries arrive in final display order
// with sibling flags and prefixes already recomputed, so a backend never
// needs to look ahead.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/sammcvicker/fruit-sub000/internal/extract"
)

// Entry is one displayed row.
type Entry struct {
	Name     string
	Path     string // slash-separated, relative to the root; "" for the root
	IsDir    bool
	IsLast   bool
	Prefix   string // indentation inherited from ancestors
	IsRoot   bool
	Depth    int
	Size     int64
	Metadata *extract.Metadata
}

// Renderer consumes entries in order and a final summary.
type Renderer interface {
	Entry(e Entry) error
	Finish(dirs, files int) error
}

// Format names an output backend.
type Format string

const (
	FormatTree     Format = "tree"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat validates a format name. "md" is accepted for markdown.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatTree:
		return FormatTree, nil
	case "md":
		return FormatMarkdown, nil
	case FormatJSON, FormatMarkdown, FormatHTML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want tree|json|markdown|html)", s)
	}
}

// Options controls presentation shared by the backends.
type Options struct {
	Color    bool // tree only
	Width    int  // tree only; wrap continuation lines, 0 = no wrap
	ShowSize bool
}

// New returns the backend for format writing to w.
func New(format Format, w io.Writer, opts Options) (Renderer, error) {
	switch format {
	case FormatTree, "":
		return NewTree(w, opts), nil
	case FormatJSON:
		return NewJSON(w, opts), nil
	case FormatMarkdown:
		return NewMarkdown(w, opts), nil
	case FormatHTML:
		return NewHTML(w, opts), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// SummaryLine formats the closing count line.
func SummaryLine(dirs, files int) string {
	return fmt.Sprintf("%d directories, %d files", dirs, files)
}

// HumanSize formats n bytes the way tree -h does: 512, 1.5K, 12M.
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d", n)
	}
	f := float64(n)
	suffixes := "KMGTPE"
	i := -1
	for f >= unit && i < len(suffixes)-1 {
		f /= unit
		i++
	}
	if f < 10 {
		return fmt.Sprintf("%.1f%c", f, suffixes[i])
	}
	return fmt.Sprintf("%.0f%c", f, suffixes[i])
}

// commentLines splits a payload comment into display lines.
func commentLines(md *extract.Metadata) []string {
	if md == nil || md.Comment == "" {
		return nil
	}
	return strings.Split(md.Comment, "\n")
}
