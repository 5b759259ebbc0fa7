package macro_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c5lang/c5c/internal/ast"
	"github.com/c5lang/c5c/internal/lexer"
	"github.com/c5lang/c5c/internal/macro"
	"github.com/c5lang/c5c/internal/parser"
)

func parse(t *testing.T, src string) *ast.File {
	t.Helper()
	toks, err := lexer.Tokenize(src)
	require.NoError(t, err)
	f, err := parser.Parse(toks)
	require.NoError(t, err)
	return f
}

func TestExpandCollapsesSingleExprMacroIntoCallSite(t *testing.T) {
	file := parse(t, `
macro double(x) {
	x + x;
}

int main() {
	return double(5);
}
`)
	out := macro.Expand(file)
	require.Len(t, out.Decls, 1)

	fn := out.Decls[0].(ast.FuncDecl)
	ret := fn.Body[0].(ast.ReturnStmt)
	bin, ok := ret.Value.(ast.BinOpExpr)
	require.True(t, ok)
	require.Equal(t, "+", bin.Op)

	left, ok := bin.Left.(ast.NumberExpr)
	require.True(t, ok)
	require.EqualValues(t, 5, left.Value)
}

func TestExpandMultiStatementMacroAbsorbsCallStatement(t *testing.T) {
	file := parse(t, `
macro swap(a, b) {
	int tmp = a;
	a = b;
	b = tmp;
}

int main() {
	int x = 1;
	int y = 2;
	swap(x, y);
	return x;
}
`)
	out := macro.Expand(file)
	fn := out.Decls[0].(ast.FuncDecl)
	// two var decls + three expanded macro statements + return
	require.Len(t, fn.Body, 6)
	_, isVarDecl := fn.Body[2].(ast.VarDecl)
	require.True(t, isVarDecl)
}

func TestExpandRemovesMacroDeclsFromOutput(t *testing.T) {
	file := parse(t, `
macro noop() {
	0;
}
int main() {
	return 0;
}
`)
	out := macro.Expand(file)
	for _, d := range out.Decls {
		_, isMacro := d.(ast.MacroDecl)
		require.False(t, isMacro)
	}
}
