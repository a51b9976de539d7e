package runtime

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/risor-io/risor/object"

	"github.com/sammcvicker/fruit-sub000/internal/extract"
)

// subjectGlobals converts s into the globals a predicate sees.
//
//	name, path, ext  string
//	size             int
//	comment          string
//	types, imports   list of string
//	todos            list of {kind, line, text}
//	matches(glob)    glob match against name, or path when glob has a slash
//	has_todo(kind?)  any todo, or any todo of kind
func subjectGlobals(s Subject) map[string]any {
	md := s.Metadata
	if md == nil {
		md = &extract.Metadata{}
	}

	todos := make([]object.Object, 0, len(md.Todos))
	for _, t := range md.Todos {
		todos = append(todos, object.NewMap(map[string]object.Object{
			"kind": object.NewString(t.Kind),
			"line": object.NewInt(int64(t.Line)),
			"text": object.NewString(t.Text),
		}))
	}

	return map[string]any{
		"name":     object.NewString(s.Name),
		"path":     object.NewString(s.Path),
		"ext":      object.NewString(filepath.Ext(s.Name)),
		"size":     object.NewInt(s.Size),
		"comment":  object.NewString(md.Comment),
		"types":    stringList(md.Types),
		"imports":  stringList(md.Imports),
		"todos":    object.NewList(todos),
		"matches":  makeMatchesFn(s),
		"has_todo": makeHasTodoFn(md),
	}
}

func stringList(ss []string) *object.List {
	items := make([]object.Object, len(ss))
	for i, s := range ss {
		items[i] = object.NewString(s)
	}
	return object.NewList(items)
}

// makeMatchesFn creates the "matches" host function.
//
// matches(glob) → bool
func makeMatchesFn(s Subject) *object.Builtin {
	return object.NewBuiltin("matches", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("matches", 1, len(args))
		}
		pattern, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("matches: pattern must be a string, got %s", args[0].Type())
		}

		target := s.Name
		if strings.Contains(pattern.Value(), "/") {
			target = s.Path
		}
		ok, err := path.Match(pattern.Value(), target)
		if err != nil {
			return object.Errorf("matches: %v", err)
		}
		return object.NewBool(ok)
	})
}

// makeHasTodoFn creates the "has_todo" host function.
//
// has_todo() → bool
// has_todo(kind) → bool
func makeHasTodoFn(md *extract.Metadata) *object.Builtin {
	return object.NewBuiltin("has_todo", func(ctx context.Context, args ...object.Object) object.Object {
		switch len(args) {
		case 0:
			return object.NewBool(md.HasTodos())
		case 1:
			kind, ok := args[0].(*object.String)
			if !ok {
				return object.Errorf("has_todo: kind must be a string, got %s", args[0].Type())
			}
			for _, t := range md.Todos {
				if t.Kind == kind.Value() {
					return object.True
				}
			}
			return object.False
		default:
			return object.Errorf("has_todo: expected at most 1 argument, got %d", len(args))
		}
	})
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger hclog.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg)
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg)
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg)
}
