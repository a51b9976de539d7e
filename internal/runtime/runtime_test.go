package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sammcvicker/fruit-sub000/internal/extract"
)

func sampleSubject() Subject {
	return Subject{
		Name: "server.go",
		Path: "cmd/server.go",
		Size: 2048,
		Metadata: &extract.Metadata{
			Comment: "Package main runs the server.",
			Types:   []string{"func main()", "type Config struct"},
			Imports: []string{"net/http"},
			Todos:   []extract.Todo{{Kind: "FIXME", Line: 12, Text: "handle shutdown"}},
		},
	}
}

func mustMatch(t *testing.T, predicate string, s Subject) bool {
	t.Helper()
	rt, err := NewRuntime(predicate)
	require.NoError(t, err)
	ok, err := rt.Match(context.Background(), s)
	require.NoError(t, err)
	return ok
}

func TestMatch_Globals(t *testing.T) {
	t.Parallel()
	s := sampleSubject()

	tests := []struct {
		predicate string
		want      bool
	}{
		{`name == "server.go"`, true},
		{`path == "cmd/server.go"`, true},
		{`ext == ".go"`, true},
		{`size > 1024`, true},
		{`size > 4096`, false},
		{`len(types) == 2`, true},
		{`len(imports) > 0 && imports[0] == "net/http"`, true},
		{`len(todos) == 1 && todos[0]["kind"] == "FIXME"`, true},
		{`comment != ""`, true},
		{`has_todo()`, true},
		{`has_todo("TODO")`, false},
		{`has_todo("FIXME")`, true},
		{`matches("*.go")`, true},
		{`matches("cmd/*.go")`, true},
		{`matches("*.rs")`, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mustMatch(t, tt.predicate, s), tt.predicate)
	}
}

func TestMatch_NilMetadata(t *testing.T) {
	t.Parallel()

	s := Subject{Name: "a.txt", Path: "a.txt"}
	assert.False(t, mustMatch(t, `has_todo()`, s))
	assert.True(t, mustMatch(t, `comment == "" && len(types) == 0`, s))
}

func TestMatch_Concurrent(t *testing.T) {
	t.Parallel()

	rt, err := NewRuntime(`size % 2 == 0`)
	require.NoError(t, err)

	done := make(chan bool, 32)
	for i := range 32 {
		go func(i int) {
			ok, err := rt.Match(context.Background(), Subject{Name: "f", Size: int64(i)})
			done <- err == nil && ok == (i%2 == 0)
		}(i)
	}
	for range 32 {
		assert.True(t, <-done)
	}
}

func TestNewRuntime_InvalidPredicate(t *testing.T) {
	t.Parallel()

	_, err := NewRuntime(`name ==`)
	require.Error(t, err)

	_, err = NewRuntime(`no_such_global > 1`)
	require.Error(t, err)

	_, err = NewRuntime("   ")
	require.Error(t, err)
}

func TestNewRuntime_ScriptFromDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	script := "big := size > 100\nbig && ext == \".go\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.risor"), []byte(script), 0o644))

	rt, err := NewRuntime(ScriptPrefix+"big.risor", WithScriptsDir(dir))
	require.NoError(t, err)

	ok, err := rt.Match(context.Background(), sampleSubject())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewRuntime_ScriptMissing(t *testing.T) {
	t.Parallel()

	_, err := NewRuntime(ScriptPrefix + filepath.Join(t.TempDir(), "nope.risor"))
	require.Error(t, err)
}

func TestNewRuntime_ImportFromFS(t *testing.T) {
	t.Parallel()

	mapFS := fstest.MapFS{
		"rules.risor": &fstest.MapFile{Data: []byte(`
func is_source(e) {
	log.Info("checking " + e)
	return e == ".go" || e == ".rs"
}
`)},
		"main.risor": &fstest.MapFile{Data: []byte(`
import rules
rules.is_source(ext)
`)},
	}

	rt, err := NewRuntime(ScriptPrefix+"main.risor", WithRuntimeFS(mapFS))
	require.NoError(t, err)

	ok, err := rt.Match(context.Background(), sampleSubject())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = rt.Match(context.Background(), Subject{Name: "README.md"})
	require.NoError(t, err)
	assert.False(t, ok)
}
