package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

const (
	branch     = "├── "
	lastBranch = "└── "
	pipe       = "│   "
	blank      = "    "
)

// Tree renders the classic box-drawing listing with metadata hung beneath
// each file.
type Tree struct {
	w    io.Writer
	opts Options

	dirColor     *color.Color
	commentColor *color.Color
	typeColor    *color.Color
	todoColor    *color.Color
	importColor  *color.Color
	dimColor     *color.Color
}

// NewTree creates a Tree renderer. Styling is applied only when opts.Color
// is set.
func NewTree(w io.Writer, opts Options) *Tree {
	t := &Tree{
		w:            w,
		opts:         opts,
		dirColor:     color.New(color.FgHiBlue, color.Bold),
		commentColor: color.New(color.FgHiBlack),
		typeColor:    color.New(color.FgCyan),
		todoColor:    color.New(color.FgHiYellow),
		importColor:  color.New(color.FgMagenta),
		dimColor:     color.New(color.FgHiBlack),
	}
	for _, c := range []*color.Color{t.dirColor, t.commentColor, t.typeColor, t.todoColor, t.importColor, t.dimColor} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return t
}

func (t *Tree) Entry(e Entry) error {
	var b strings.Builder

	name := e.Name
	if e.IsDir && !e.IsRoot {
		name += "/"
	}
	if e.IsDir {
		name = t.dirColor.Sprint(name)
	}

	if !e.IsRoot {
		b.WriteString(e.Prefix)
		if e.IsLast {
			b.WriteString(lastBranch)
		} else {
			b.WriteString(branch)
		}
	}
	if t.opts.ShowSize && !e.IsDir {
		b.WriteString(t.dimColor.Sprintf("[%5s]", HumanSize(e.Size)))
		b.WriteString(" ")
	}
	b.WriteString(name)

	lines := commentLines(e.Metadata)
	if len(lines) > 0 {
		b.WriteString("  ")
		b.WriteString(t.commentColor.Sprint("# " + lines[0]))
		lines = lines[1:]
	}
	b.WriteString("\n")

	cont := t.continuation(e)
	for _, l := range lines {
		t.writeWrapped(&b, cont, "  ", l, t.commentColor)
	}
	if md := e.Metadata; md != nil {
		for _, sig := range md.Types {
			t.writeWrapped(&b, cont, "  ", sig, t.typeColor)
		}
		for _, td := range md.Todos {
			t.writeWrapped(&b, cont, "  ", fmt.Sprintf("%s(%d): %s", td.Kind, td.Line, td.Text), t.todoColor)
		}
		if len(md.Imports) > 0 {
			t.writeWrapped(&b, cont, "  ", "imports: "+strings.Join(md.Imports, ", "), t.importColor)
		}
	}

	_, err := io.WriteString(t.w, b.String())
	return err
}

// continuation is the prefix for lines hung beneath e.
func (t *Tree) continuation(e Entry) string {
	if e.IsRoot {
		return ""
	}
	if e.IsLast {
		return e.Prefix + blank
	}
	return e.Prefix + pipe
}

func (t *Tree) writeWrapped(b *strings.Builder, cont, indent, text string, c *color.Color) {
	avail := 0
	if t.opts.Width > 0 {
		avail = t.opts.Width - displayWidth(cont) - len(indent)
	}
	for _, line := range wrap(text, avail) {
		b.WriteString(cont)
		b.WriteString(indent)
		b.WriteString(c.Sprint(line))
		b.WriteString("\n")
	}
}

func (t *Tree) Finish(dirs, files int) error {
	_, err := fmt.Fprintf(t.w, "\n%s\n", SummaryLine(dirs, files))
	return err
}

// wrap breaks text at spaces so no line exceeds width runes. Width <= 0
// disables wrapping. A single word longer than width gets its own line.
func wrap(text string, width int) []string {
	if width <= 0 || displayWidth(text) <= width {
		return []string{text}
	}
	var (
		lines []string
		cur   strings.Builder
	)
	for _, word := range strings.Fields(text) {
		if cur.Len() > 0 && displayWidth(cur.String())+1+displayWidth(word) > width {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

func displayWidth(s string) int {
	return len([]rune(s))
}
