package codegen_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c5lang/c5c/internal/ast"
	"github.com/c5lang/c5c/internal/codegen"
	"github.com/c5lang/c5c/internal/fold"
	"github.com/c5lang/c5c/internal/lexer"
	"github.com/c5lang/c5c/internal/macro"
	"github.com/c5lang/c5c/internal/parser"
	"github.com/c5lang/c5c/internal/sema"
)

func compile(t *testing.T, src string) (string, *sema.Result) {
	t.Helper()
	toks, err := lexer.Tokenize(src)
	require.NoError(t, err)
	f, err := parser.Parse(toks)
	require.NoError(t, err)
	f = macro.Expand(f)

	for i, d := range f.Decls {
		if fn, ok := d.(ast.FuncDecl); ok {
			fn.Body = fold.FoldBlock(fn.Body)
			f.Decls[i] = fn
		}
	}

	res := sema.Analyze(f, true)
	require.False(t, res.Diags.HasErrors())
	return codegen.Generate(f, res), res
}

func TestGenerateEmitsFunctionLabelAndReturn(t *testing.T) {
	asm, _ := compile(t, `
int add(int a, int b) {
	return a + b;
}

int main() {
	return add(2, 3);
}
`)
	require.Contains(t, asm, "add:")
	require.Contains(t, asm, "main:")
	require.Contains(t, asm, "call add")
	require.Contains(t, asm, ".section .note.GNU-stack")
}

func TestGenerateMainEmitsLeaveAndRet(t *testing.T) {
	asm, _ := compile(t, `
int main() {
	return 0;
}
`)
	require.Contains(t, asm, "leave")
	require.Contains(t, asm, "ret")
}

func TestGenerateStringConcatUsesStrAddHelper(t *testing.T) {
	asm, _ := compile(t, `
int main() {
	string a = "foo";
	string b = "bar";
	string c = a + b;
	return 0;
}
`)
	require.Contains(t, asm, "__c5_str_add:")
	require.Contains(t, asm, "call __c5_str_add")
}

func TestGenerateStructFieldAccess(t *testing.T) {
	asm, _ := compile(t, `
struct point {
	int x;
	int y;
};

int main() {
	point p;
	p.x = 4;
	return p.x;
}
`)
	require.Contains(t, asm, "main:")
	require.NotContains(t, asm, "((")
}
