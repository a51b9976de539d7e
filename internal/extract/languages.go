package extract

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
)

// extToLanguage maps file extensions to canonical language names.
var extToLanguage = map[string]string{
	".go":   "go",
	".ts":   "typescript",
	".tsx":  "typescript",
	".mts":  "typescript",
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".py":   "python",
	".pyi":  "python",
	".rs":   "rust",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cc":   "cpp",
	".cxx":  "cpp",
	".hpp":  "cpp",
	".hh":   "cpp",
	".java": "java",
	".php":  "php",
	".rb":   "ruby",
}

// langToGrammar maps language names to tree-sitter Language objects.
// Lazily initialized on first call via sync.Once.
var (
	langToGrammar map[string]*sitter.Language
	grammarsOnce  sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		langToGrammar = map[string]*sitter.Language{
			"go":         golang.GetLanguage(),
			"typescript": ts.GetLanguage(),
			"javascript": javascript.GetLanguage(),
			"python":     python.GetLanguage(),
			"rust":       rust.GetLanguage(),
			"c":          c.GetLanguage(),
			"cpp":        cpp.GetLanguage(),
			"java":       java.GetLanguage(),
			"php":        php.GetLanguage(),
			"ruby":       ruby.GetLanguage(),
		}
	})
}

// LanguageForFile returns the canonical language name for a file path based
// on its extension. Returns ("", false) if the extension is not recognized.
func LanguageForFile(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extToLanguage[ext]
	return lang, ok
}

// GrammarForLanguage returns the tree-sitter Language for a canonical
// language name. Returns (nil, false) if the language is not supported.
func GrammarForLanguage(lang string) (*sitter.Language, bool) {
	initGrammars()
	l, ok := langToGrammar[lang]
	return l, ok
}

// langSpec describes which syntax nodes carry signatures and imports.
type langSpec struct {
	// decls are rendered as signatures.
	decls map[string]bool
	// containers are decls whose body is scanned for nested decls.
	containers map[string]bool
	// unwrap nodes are transparent: their children are scanned in place.
	unwrap map[string]bool
	// imports are import statements.
	imports map[string]bool
	// preamble nodes may precede the leading comment.
	preamble map[string]bool
}

func nodeTypes(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

var jsDecls = []string{
	"function_declaration", "generator_function_declaration",
	"class_declaration", "method_definition",
}

var langSpecs = map[string]langSpec{
	"go": {
		decls:   nodeTypes("function_declaration", "method_declaration", "type_spec", "type_alias"),
		unwrap:  nodeTypes("type_declaration"),
		imports: nodeTypes("import_declaration"),
	},
	"python": {
		decls:      nodeTypes("function_definition", "class_definition"),
		containers: nodeTypes("class_definition"),
		unwrap:     nodeTypes("decorated_definition"),
		imports:    nodeTypes("import_statement", "import_from_statement"),
	},
	"rust": {
		decls: nodeTypes("function_item", "function_signature_item", "struct_item", "enum_item",
			"union_item", "trait_item", "impl_item", "type_item"),
		containers: nodeTypes("impl_item", "trait_item"),
		imports:    nodeTypes("use_declaration"),
	},
	"javascript": {
		decls:      nodeTypes(jsDecls...),
		containers: nodeTypes("class_declaration"),
		unwrap:     nodeTypes("export_statement"),
		imports:    nodeTypes("import_statement"),
		preamble:   nodeTypes("hash_bang_line"),
	},
	"typescript": {
		decls: nodeTypes(append([]string{
			"abstract_class_declaration", "interface_declaration",
			"type_alias_declaration", "enum_declaration",
		}, jsDecls...)...),
		containers: nodeTypes("class_declaration", "abstract_class_declaration"),
		unwrap:     nodeTypes("export_statement"),
		imports:    nodeTypes("import_statement"),
		preamble:   nodeTypes("hash_bang_line"),
	},
	"c": {
		decls:   nodeTypes("function_definition", "struct_specifier", "enum_specifier", "type_definition"),
		imports: nodeTypes("preproc_include"),
	},
	"cpp": {
		decls: nodeTypes("function_definition", "struct_specifier", "enum_specifier",
			"class_specifier", "type_definition"),
		containers: nodeTypes("class_specifier", "struct_specifier"),
		unwrap:     nodeTypes("namespace_definition", "declaration_list", "template_declaration"),
		imports:    nodeTypes("preproc_include"),
	},
	"java": {
		decls: nodeTypes("class_declaration", "interface_declaration", "enum_declaration",
			"record_declaration", "method_declaration", "constructor_declaration"),
		containers: nodeTypes("class_declaration", "interface_declaration", "enum_declaration", "record_declaration"),
		imports:    nodeTypes("import_declaration"),
	},
	"php": {
		decls: nodeTypes("function_definition", "class_declaration", "interface_declaration",
			"trait_declaration", "method_declaration"),
		containers: nodeTypes("class_declaration", "interface_declaration", "trait_declaration"),
		unwrap:     nodeTypes("namespace_definition", "compound_statement"),
		imports:    nodeTypes("namespace_use_declaration"),
		preamble:   nodeTypes("php_tag", "text"),
	},
	"ruby": {
		decls:      nodeTypes("method", "singleton_method", "class", "module"),
		containers: nodeTypes("class", "module"),
		imports:    nodeTypes("call"),
	},
}

// lineCommentByExt covers files without a grammar.
var lineCommentByExt = map[string]string{
	".sh":     "#",
	".bash":   "#",
	".zsh":    "#",
	".fish":   "#",
	".yaml":   "#",
	".yml":    "#",
	".toml":   "#",
	".pl":     "#",
	".r":      "#",
	".ex":     "#",
	".exs":    "#",
	".tf":     "#",
	".nix":    "#",
	".cmake":  "#",
	".ps1":    "#",
	".sql":    "--",
	".lua":    "--",
	".hs":     "--",
	".el":     ";",
	".lisp":   ";",
	".clj":    ";",
	".ini":    ";",
	".swift":  "//",
	".kt":     "//",
	".kts":    "//",
	".scala":  "//",
	".cs":     "//",
	".dart":   "//",
	".zig":    "//",
	".proto":  "//",
	".gradle": "//",
	".vim":    "\"",
}

// lineCommentByName covers well-known extensionless files.
var lineCommentByName = map[string]string{
	"Makefile":      "#",
	"makefile":      "#",
	"GNUmakefile":   "#",
	"Dockerfile":    "#",
	"Containerfile": "#",
	"Gemfile":       "#",
	"Rakefile":      "#",
	"Vagrantfile":   "#",
	"Procfile":      "#",
	".gitignore":    "#",
	".dockerignore": "#",
	".editorconfig": "#",
}

// lineCommentFor returns the line comment marker for a file without a grammar.
func lineCommentFor(path string) string {
	base := filepath.Base(path)
	if m, ok := lineCommentByName[base]; ok {
		return m
	}
	return lineCommentByExt[strings.ToLower(filepath.Ext(base))]
}
