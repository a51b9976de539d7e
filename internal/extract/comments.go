package extract

import (
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// commentMarkers are stripped from the start of comment lines, longest first.
var commentMarkers = []string{"/**", "/*!", "/*", "///", "//!", "//", "##", "#", "--", ";;", ";", "\""}

// leadingComment returns the first comment block of the file, cleaned of
// comment markers. Unless full is set only its first line is kept.
func (f *sourceFile) leadingComment(full bool) string {
	var raw []string
	if root := f.root(); root != nil {
		raw = f.treeLeadingComment(root)
	} else {
		raw = f.lineLeadingComment()
	}
	return cleanComment(raw, full)
}

func (f *sourceFile) treeLeadingComment(root *sitter.Node) []string {
	var (
		block   []string
		lastRow = -1
	)
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		if f.spec.preamble[n.Type()] {
			continue
		}
		if isComment(n) {
			text := f.text(n)
			if strings.HasPrefix(text, "#!") {
				continue
			}
			// A blank line ends the block.
			if len(block) > 0 && int(n.StartPoint().Row) > lastRow+1 {
				break
			}
			block = append(block, text)
			lastRow = int(n.EndPoint().Row)
			continue
		}
		if len(block) == 0 && f.lang == "python" {
			if doc := pythonDocstring(f, n); doc != "" {
				return []string{doc}
			}
		}
		break
	}
	return block
}

func pythonDocstring(f *sourceFile, n *sitter.Node) string {
	if n.Type() != "expression_statement" || n.NamedChildCount() == 0 {
		return ""
	}
	s := n.NamedChild(0)
	if s.Type() != "string" {
		return ""
	}
	text := strings.TrimLeft(f.text(s), "rRuUbBfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(text, q) && strings.HasSuffix(text, q) && len(text) >= 2*len(q) {
			return text[len(q) : len(text)-len(q)]
		}
	}
	return text
}

// lineLeadingComment is the fallback for files without a grammar: the first
// run of lines starting with the file's line comment marker, after any
// shebang and blank lines.
func (f *sourceFile) lineLeadingComment() []string {
	marker := lineCommentFor(f.path)
	var block []string
	for i, line := range f.sourceLines() {
		trimmed := strings.TrimSpace(line)
		if i == 0 && strings.HasPrefix(trimmed, "#!") {
			continue
		}
		if trimmed == "" {
			if len(block) > 0 {
				break
			}
			continue
		}
		if marker == "" {
			// Unknown file type: accept a leading # or // comment only.
			switch {
			case strings.HasPrefix(trimmed, "//"):
				marker = "//"
			case strings.HasPrefix(trimmed, "#"):
				marker = "#"
			default:
				return nil
			}
		}
		if !strings.HasPrefix(trimmed, marker) {
			break
		}
		block = append(block, trimmed)
	}
	return block
}

// cleanComment strips markers and surrounding blank lines from raw comment
// text.
func cleanComment(raw []string, full bool) string {
	var lines []string
	for _, chunk := range raw {
		for _, line := range strings.Split(chunk, "\n") {
			lines = append(lines, cleanCommentLine(line))
		}
	}
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return ""
	}
	if !full {
		return lines[0]
	}
	return strings.Join(lines, "\n")
}

func cleanCommentLine(line string) string {
	l := strings.TrimSpace(line)
	for _, m := range commentMarkers {
		if strings.HasPrefix(l, m) {
			l = l[len(m):]
			break
		}
	}
	l = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(l), "*/"))
	if strings.HasPrefix(l, "*") {
		l = strings.TrimSpace(l[1:])
	}
	return l
}

// todoPattern matches task markers. The marker must be upper case and stand
// alone as a word.
var todoPattern = regexp.MustCompile(`\b(TODO|FIXME|HACK|XXX|BUG)\b(?:\([^)]*\))?:?\s*(.*)`)

// todos returns every task marker in a comment, with 1-based line numbers.
// Without a grammar every line is scanned.
func (f *sourceFile) todos() []Todo {
	var out []Todo
	scan := func(text string, firstLine int) {
		for i, line := range strings.Split(text, "\n") {
			m := todoPattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			out = append(out, Todo{
				Kind: m[1],
				Line: firstLine + i,
				Text: strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(m[2]), "*/")),
			})
		}
	}

	root := f.root()
	if root == nil {
		scan(strings.Join(f.sourceLines(), "\n"), 1)
		return out
	}
	walkNamed(root, func(n *sitter.Node) bool {
		if isComment(n) {
			scan(f.text(n), int(n.StartPoint().Row)+1)
			return false
		}
		return true
	})
	return out
}
