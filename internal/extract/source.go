package extract

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// maxNesting bounds how deep container bodies are scanned for signatures.
const maxNesting = 2

// sourceFile is one file's contents plus, when a grammar exists, its syntax
// tree. Each extraction owns its parser and tree, so concurrent workers share
// nothing.
type sourceFile struct {
	path  string
	lang  string
	src   []byte
	tree  *sitter.Tree
	spec  langSpec
	lines []string
}

func newSourceFile(ctx context.Context, path string, src []byte) (*sourceFile, error) {
	f := &sourceFile{path: path, src: src}

	lang, ok := LanguageForFile(path)
	if !ok {
		return f, nil
	}
	grammar, ok := GrammarForLanguage(lang)
	if !ok {
		return f, nil
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse: %w", err)
	}
	f.lang = lang
	f.tree = tree
	f.spec = langSpecs[lang]
	return f, nil
}

func (f *sourceFile) close() {
	if f.tree != nil {
		f.tree.Close()
	}
}

func (f *sourceFile) root() *sitter.Node {
	if f.tree == nil {
		return nil
	}
	return f.tree.RootNode()
}

func (f *sourceFile) text(n *sitter.Node) string {
	return n.Content(f.src)
}

func (f *sourceFile) sourceLines() []string {
	if f.lines == nil {
		f.lines = strings.Split(strings.ReplaceAll(string(f.src), "\r\n", "\n"), "\n")
	}
	return f.lines
}

// walkNamed visits n and its named descendants in document order. visit
// returns false to skip a node's children.
func walkNamed(n *sitter.Node, visit func(*sitter.Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walkNamed(n.NamedChild(i), visit)
	}
}

func isComment(n *sitter.Node) bool {
	return strings.Contains(n.Type(), "comment")
}

// signatures returns declaration headers in document order.
func (f *sourceFile) signatures() []string {
	root := f.root()
	if root == nil {
		return nil
	}
	var out []string
	f.collectDecls(root, 0, &out)
	return out
}

func (f *sourceFile) collectDecls(n *sitter.Node, depth int, out *[]string) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		t := child.Type()
		switch {
		case f.spec.unwrap[t]:
			f.collectDecls(child, depth, out)
		case f.spec.decls[t]:
			if sig := f.signature(child); sig != "" {
				*out = append(*out, sig)
			}
			if f.spec.containers[t] && depth < maxNesting {
				body := child.ChildByFieldName("body")
				if body == nil {
					body = child
				}
				f.collectDecls(body, depth+1, out)
			}
		}
	}
}

// signature renders a declaration up to its body on a single line.
// Comments between the header and the body are dropped.
func (f *sourceFile) signature(n *sitter.Node) string {
	end := n.EndByte()
	body := n.ChildByFieldName("body")
	if body != nil && body.StartByte() > n.StartByte() {
		end = headerEnd(n, body)
	}
	text := string(f.src[n.StartByte():end])
	if body == nil {
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = text[:i]
		}
	}

	text = strings.Join(strings.Fields(text), " ")
	text = strings.NewReplacer("( ", "(", " )", ")", ", )", ")").Replace(text)
	text = strings.TrimRight(text, " \t{:=;")
	if n.Type() == "type_spec" || n.Type() == "type_alias" {
		text = "type " + text
	}
	return text
}

// headerEnd is the end of the last non-comment child of n that precedes body.
func headerEnd(n, body *sitter.Node) uint32 {
	end := n.StartByte()
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.StartByte() >= body.StartByte() {
			break
		}
		if !isComment(c) {
			end = c.EndByte()
		}
	}
	return end
}

// imports returns imported module paths in document order, deduplicated.
func (f *sourceFile) imports() []string {
	root := f.root()
	if root == nil {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	walkNamed(root, func(n *sitter.Node) bool {
		if !f.spec.imports[n.Type()] {
			return true
		}
		for _, name := range f.importNames(n) {
			add(name)
		}
		return false
	})
	return out
}

func (f *sourceFile) importNames(n *sitter.Node) []string {
	switch f.lang {
	case "go":
		var names []string
		walkNamed(n, func(c *sitter.Node) bool {
			if c.Type() != "import_spec" {
				return true
			}
			if p := c.ChildByFieldName("path"); p != nil {
				names = append(names, unquote(f.text(p)))
			}
			return false
		})
		return names
	case "javascript", "typescript":
		if src := n.ChildByFieldName("source"); src != nil {
			return []string{unquote(f.text(src))}
		}
	case "c", "cpp":
		if p := n.ChildByFieldName("path"); p != nil {
			return []string{unquote(f.text(p))}
		}
	case "python":
		if n.Type() == "import_from_statement" {
			if m := n.ChildByFieldName("module_name"); m != nil {
				return []string{f.text(m)}
			}
			return nil
		}
		var names []string
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c.Type() == "aliased_import" {
				c = c.ChildByFieldName("name")
			}
			if c != nil {
				names = append(names, f.text(c))
			}
		}
		return names
	case "rust":
		if arg := n.ChildByFieldName("argument"); arg != nil {
			return []string{strings.Join(strings.Fields(f.text(arg)), " ")}
		}
	case "java", "php":
		text := strings.TrimSuffix(strings.TrimSpace(f.text(n)), ";")
		text = strings.TrimPrefix(text, "import")
		text = strings.TrimPrefix(text, "use")
		text = strings.TrimPrefix(strings.TrimSpace(text), "static ")
		return []string{strings.TrimSpace(text)}
	case "ruby":
		method := n.ChildByFieldName("method")
		if method == nil {
			return nil
		}
		switch f.text(method) {
		case "require", "require_relative", "load":
		default:
			return nil
		}
		if args := n.ChildByFieldName("arguments"); args != nil && args.NamedChildCount() > 0 {
			return []string{unquote(f.text(args.NamedChild(0)))}
		}
	}
	return nil
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	return strings.Trim(s, "\"'`<>")
}
