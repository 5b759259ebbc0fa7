package diag_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c5lang/c5c/ascii"
	"github.com/c5lang/c5c/internal/ast"
	"github.com/c5lang/c5c/internal/diag"
)

func TestRenderIncludesSourceLineAndCaret(t *testing.T) {
	d := diag.Error(diag.EUndefinedSymbol, ast.Location{Line: 2, Column: 4}, "foo")
	src := []string{"int main() {", "    return foo;", "}"}
	out := d.Render("test.c5", src, ascii.DefaultTheme)
	require.Contains(t, out, "test.c5:2:4:")
	require.Contains(t, out, "return foo;")
	require.Contains(t, out, "Tip:")
}

func TestSetDeduplicatesAndSorts(t *testing.T) {
	set := diag.NewSet()
	set.Add(diag.Error(diag.ETypeMismatch, ast.Location{Line: 5, Column: 1}, ""))
	set.Add(diag.Error(diag.ETypeMismatch, ast.Location{Line: 5, Column: 1}, ""))
	set.Add(diag.Error(diag.EUndefinedSymbol, ast.Location{Line: 1, Column: 1}, "x"))

	sorted := set.Sorted()
	require.Len(t, sorted, 2)
	require.Equal(t, diag.EUndefinedSymbol, sorted[0].Code)
	require.Equal(t, diag.ETypeMismatch, sorted[1].Code)
}

func TestSetHasErrorsDistinguishesWarnings(t *testing.T) {
	set := diag.NewSet()
	set.Add(diag.Warning(diag.WDeadVariable, ast.Location{Line: 1, Column: 1}, "x"))
	require.False(t, set.HasErrors())

	set.Add(diag.Error(diag.EMissingEntryPoint, ast.Location{Line: 1, Column: 1}, ""))
	require.True(t, set.HasErrors())
}

func TestSetRenderJoinsAllDiagnostics(t *testing.T) {
	set := diag.NewSet()
	set.Add(diag.Error(diag.EMissingEntryPoint, ast.Location{Line: 1, Column: 0}, ""))
	set.Add(diag.Warning(diag.WDeadFunction, ast.Location{Line: 3, Column: 0}, "helper"))
	out := set.Render("test.c5", []string{"a", "b", "c"}, ascii.DefaultTheme)
	require.Equal(t, 2, strings.Count(out, "test.c5:"))
}
