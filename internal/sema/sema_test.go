package sema_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c5lang/c5c/internal/diag"
	"github.com/c5lang/c5c/internal/lexer"
	"github.com/c5lang/c5c/internal/parser"
	"github.com/c5lang/c5c/internal/sema"
)

func analyze(t *testing.T, src string, requireMain bool) *sema.Result {
	t.Helper()
	toks, err := lexer.Tokenize(src)
	require.NoError(t, err)
	f, err := parser.Parse(toks)
	require.NoError(t, err)
	return sema.Analyze(f, requireMain)
}

func TestAnalyzeValidProgramPopulatesTables(t *testing.T) {
	res := analyze(t, `
struct point {
	int x;
	int y;
};

int add(int a, int b) {
	return a + b;
}

int main() {
	point p;
	p.x = 1;
	p.y = 2;
	return add(p.x, p.y);
}
`, true)

	require.False(t, res.Diags.HasErrors())
	require.Contains(t, res.Structs, "point")
	require.Contains(t, res.Funcs, "main")
	require.Contains(t, res.Funcs, "add")
}

func TestAnalyzeMissingEntryPoint(t *testing.T) {
	res := analyze(t, `
int helper() {
	return 0;
}
`, true)

	require.True(t, res.Diags.HasErrors())
	found := false
	for _, d := range res.Diags.Sorted() {
		if d.Code == diag.EMissingEntryPoint {
			found = true
		}
	}
	require.True(t, found)
}

func TestAnalyzeUndefinedSymbol(t *testing.T) {
	res := analyze(t, `
int main() {
	return undefined_thing;
}
`, true)

	require.True(t, res.Diags.HasErrors())
	found := false
	for _, d := range res.Diags.Sorted() {
		if d.Code == diag.EUndefinedSymbol {
			found = true
		}
	}
	require.True(t, found)
}

func TestAnalyzeBreakOutsideLoopFlagsError(t *testing.T) {
	res := analyze(t, `
int main() {
	break;
	return 0;
}
`, true)

	require.True(t, res.Diags.HasErrors())
	found := false
	for _, d := range res.Diags.Sorted() {
		if d.Code == diag.EBreakOutsideLoop {
			found = true
		}
	}
	require.True(t, found)
}

func TestAnalyzeDeadFunctionWarning(t *testing.T) {
	res := analyze(t, `
int unused() {
	return 0;
}

int main() {
	return 0;
}
`, true)

	require.False(t, res.Diags.HasErrors())
	found := false
	for _, d := range res.Diags.Sorted() {
		if d.Code == diag.WDeadFunction {
			found = true
		}
	}
	require.True(t, found)
}
