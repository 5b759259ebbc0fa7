package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c5lang/c5c/internal/ast"
	"github.com/c5lang/c5c/internal/lexer"
	"github.com/c5lang/c5c/internal/parser"
)

func mustParse(t *testing.T, src string) *ast.File {
	t.Helper()
	toks, err := lexer.Tokenize(src)
	require.NoError(t, err)
	file, err := parser.Parse(toks)
	require.NoError(t, err)
	return file
}

func TestParseFuncAndStruct(t *testing.T) {
	file := mustParse(t, `
struct Point {
	int x;
	int y;
};

int add(int a, int b) {
	return a + b;
}
`)
	require.Len(t, file.Decls, 2)

	sd, ok := file.Decls[0].(ast.StructDecl)
	require.True(t, ok)
	require.Equal(t, "Point", sd.Name)
	require.Len(t, sd.Fields, 2)

	fd, ok := file.Decls[1].(ast.FuncDecl)
	require.True(t, ok)
	require.Equal(t, "add", fd.Name)
	require.Len(t, fd.Params, 2)
	require.Len(t, fd.Body, 1)

	ret, ok := fd.Body[0].(ast.ReturnStmt)
	require.True(t, ok)
	bin, ok := ret.Value.(ast.BinOpExpr)
	require.True(t, ok)
	require.Equal(t, "+", bin.Op)
}

func TestParseVarDeclVsExpressionStatement(t *testing.T) {
	file := mustParse(t, `
int main() {
	int x = 1;
	x = x + 1;
	return x;
}
`)
	fd := file.Decls[0].(ast.FuncDecl)
	require.Len(t, fd.Body, 3)

	_, isVarDecl := fd.Body[0].(ast.VarDecl)
	require.True(t, isVarDecl)

	_, isAssign := fd.Body[1].(ast.AssignStmt)
	require.True(t, isAssign)
}

func TestParseGenericArrayTypeDoesNotConfuseDeclStart(t *testing.T) {
	file := mustParse(t, `
int sum(array<int> xs) {
	array<int> ys = xs;
	return ys.length();
}
`)
	fd := file.Decls[0].(ast.FuncDecl)
	require.Equal(t, "array", fd.Params[0].Type.Base)
	require.NotNil(t, fd.Params[0].Type.Elem)
	require.Equal(t, "int", fd.Params[0].Type.Elem.Base)
}

func TestParseSyntaxErrorHasLocation(t *testing.T) {
	toks, err := lexer.Tokenize("int main( {")
	require.NoError(t, err)
	_, err = parser.Parse(toks)
	require.Error(t, err)
	perr, ok := err.(*parser.Error)
	require.True(t, ok)
	require.Equal(t, 1, perr.Loc.Line)
}
