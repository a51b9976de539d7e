package render

import (
	"bytes"
	"fmt"
	"html"
	"io"

	"github.com/yuin/goldmark"
)

// HTML renders the markdown listing and converts it to a standalone page
// on Finish.
type HTML struct {
	w     io.Writer
	buf   bytes.Buffer
	md    *Markdown
	title string

	markdown goldmark.Markdown
}

// NewHTML creates an HTML renderer.
func NewHTML(w io.Writer, opts Options) *HTML {
	h := &HTML{w: w, markdown: goldmark.New()}
	h.md = NewMarkdown(&h.buf, opts)
	return h
}

func (h *HTML) Entry(e Entry) error {
	if e.IsRoot {
		h.title = e.Name
	}
	return h.md.Entry(e)
}

func (h *HTML) Finish(dirs, files int) error {
	if err := h.md.Finish(dirs, files); err != nil {
		return err
	}

	var body bytes.Buffer
	if err := h.markdown.Convert(h.buf.Bytes(), &body); err != nil {
		return fmt.Errorf("convert markdown: %w", err)
	}

	_, err := fmt.Fprintf(h.w, htmlPage, html.EscapeString(h.title), body.String())
	return err
}

const htmlPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: ui-monospace, monospace; }
ul { list-style: none; padding-left: 1.2em; }
</style>
</head>
<body>
%s</body>
</html>
`
