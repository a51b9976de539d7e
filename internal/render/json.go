package render

import (
	"encoding/json"
	"io"

	"github.com/sammcvicker/fruit-sub000/internal/extract"
)

// JSONNode is one element of the nested JSON listing. The shape follows
// tree -J: directories carry contents, the last element is a report.
type JSONNode struct {
	Type     string         `json:"type"`
	Name     string         `json:"name,omitempty"`
	Size     *int64         `json:"size,omitempty"`
	Comment  string         `json:"comment,omitempty"`
	Types    []string       `json:"types,omitempty"`
	Todos    []extract.Todo `json:"todos,omitempty"`
	Imports  []string       `json:"imports,omitempty"`
	Contents []*JSONNode    `json:"contents,omitempty"`

	Directories *int `json:"directories,omitempty"`
	Files       *int `json:"files,omitempty"`
}

// JSON buffers the stream into a nested document written on Finish.
type JSON struct {
	w     io.Writer
	opts  Options
	roots []*JSONNode
	stack []*JSONNode // open directories indexed by depth
}

// NewJSON creates a JSON renderer.
func NewJSON(w io.Writer, opts Options) *JSON {
	return &JSON{w: w, opts: opts}
}

func (j *JSON) Entry(e Entry) error {
	n := &JSONNode{Type: "file", Name: e.Name}
	if e.IsDir {
		n.Type = "directory"
		n.Contents = []*JSONNode{}
	} else if j.opts.ShowSize {
		size := e.Size
		n.Size = &size
	}
	if md := e.Metadata; md != nil {
		n.Comment = md.Comment
		n.Types = md.Types
		n.Todos = md.Todos
		n.Imports = md.Imports
	}

	if e.Depth > len(j.stack) {
		e.Depth = len(j.stack)
	}
	j.stack = j.stack[:e.Depth]
	if e.Depth == 0 {
		j.roots = append(j.roots, n)
	} else {
		parent := j.stack[e.Depth-1]
		parent.Contents = append(parent.Contents, n)
	}
	if e.IsDir {
		j.stack = append(j.stack, n)
	}
	return nil
}

func (j *JSON) Finish(dirs, files int) error {
	doc := append([]*JSONNode{}, j.roots...)
	doc = append(doc, &JSONNode{Type: "report", Directories: &dirs, Files: &files})

	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
