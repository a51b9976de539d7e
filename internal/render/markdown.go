package render

import (
	"fmt"
	"io"
	"strings"
)

// Markdown renders a nested bullet list.
type Markdown struct {
	w    io.Writer
	opts Options
}

// NewMarkdown creates a Markdown renderer.
func NewMarkdown(w io.Writer, opts Options) *Markdown {
	return &Markdown{w: w, opts: opts}
}

func (m *Markdown) Entry(e Entry) error {
	var b strings.Builder
	if e.IsRoot {
		fmt.Fprintf(&b, "# %s\n\n", codeSpan(e.Name))
		_, err := io.WriteString(m.w, b.String())
		return err
	}

	indent := strings.Repeat("  ", max(e.Depth-1, 0))
	b.WriteString(indent)
	b.WriteString("- ")
	if e.IsDir {
		fmt.Fprintf(&b, "**%s/**", escapeMarkdown(e.Name))
	} else {
		b.WriteString(codeSpan(e.Name))
		if m.opts.ShowSize {
			fmt.Fprintf(&b, " (%s)", HumanSize(e.Size))
		}
	}
	if lines := commentLines(e.Metadata); len(lines) > 0 {
		b.WriteString(": ")
		b.WriteString(escapeMarkdown(strings.Join(lines, " ")))
	}
	b.WriteString("\n")

	if md := e.Metadata; md != nil {
		sub := indent + "  - "
		for _, sig := range md.Types {
			b.WriteString(sub + codeSpan(sig) + "\n")
		}
		for _, td := range md.Todos {
			fmt.Fprintf(&b, "%s**%s** (line %d): %s\n", sub, td.Kind, td.Line, escapeMarkdown(td.Text))
		}
		if len(md.Imports) > 0 {
			spans := make([]string, len(md.Imports))
			for i, imp := range md.Imports {
				spans[i] = codeSpan(imp)
			}
			b.WriteString(sub + "imports: " + strings.Join(spans, ", ") + "\n")
		}
	}

	_, err := io.WriteString(m.w, b.String())
	return err
}

func (m *Markdown) Finish(dirs, files int) error {
	_, err := fmt.Fprintf(m.w, "\n_%s_\n", SummaryLine(dirs, files))
	return err
}

// codeSpan wraps s in enough backticks that s cannot close the span.
func codeSpan(s string) string {
	fence := "`"
	for strings.Contains(s, fence) {
		fence += "`"
	}
	if strings.HasPrefix(s, "`") || strings.HasSuffix(s, "`") {
		return fence + " " + s + " " + fence
	}
	return fence + s + fence
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`,
	"[", `\[`, "]", `\]`, "<", `\<`, ">", `\>`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
