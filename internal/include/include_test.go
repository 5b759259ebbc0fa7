package include_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c5lang/c5c/internal/ast"
	"github.com/c5lang/c5c/internal/include"
	"github.com/c5lang/c5c/internal/lexer"
	"github.com/c5lang/c5c/internal/parser"
)

func parseFile(t *testing.T, path string) *ast.File {
	t.Helper()
	src, err := os.ReadFile(path)
	require.NoError(t, err)
	toks, err := lexer.Tokenize(string(src))
	require.NoError(t, err)
	f, err := parser.Parse(toks)
	require.NoError(t, err)
	return f
}

func TestResolveNamespacesIncludedDecls(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "math.c5"), []byte(`
int square(int x) {
	return x * x;
}
`), 0o644))
	mainPath := filepath.Join(dir, "main.c5")
	require.NoError(t, os.WriteFile(mainPath, []byte(`
include "math.c5";

int main() {
	return math::square(3);
}
`), 0o644))

	entry := parseFile(t, mainPath)
	resolver := include.NewResolver(nil)
	out, err := resolver.Resolve(mainPath, entry)
	require.NoError(t, err)

	var names []string
	for _, d := range out.Decls {
		if fn, ok := d.(ast.FuncDecl); ok {
			names = append(names, fn.Name)
		}
	}
	require.Contains(t, names, "math::square")
	require.Contains(t, names, "main")
}

func TestResolveDetectsCycle(t *testing.T) {
	dir := t.TempDir()
	aPath := filepath.Join(dir, "a.c5")
	bPath := filepath.Join(dir, "b.c5")
	require.NoError(t, os.WriteFile(aPath, []byte(`include "b.c5";`), 0o644))
	require.NoError(t, os.WriteFile(bPath, []byte(`include "a.c5";`), 0o644))

	entry := parseFile(t, aPath)
	resolver := include.NewResolver(nil)
	_, err := resolver.Resolve(aPath, entry)
	require.Error(t, err)
	_, ok := err.(*include.CycleError)
	require.True(t, ok)
}

func TestResolveNotFound(t *testing.T) {
	dir := t.TempDir()
	mainPath := filepath.Join(dir, "main.c5")
	require.NoError(t, os.WriteFile(mainPath, []byte(`include "missing.c5";`), 0o644))

	entry := parseFile(t, mainPath)
	resolver := include.NewResolver(nil)
	_, err := resolver.Resolve(mainPath, entry)
	require.Error(t, err)
	_, ok := err.(*include.NotFoundError)
	require.True(t, ok)
}
