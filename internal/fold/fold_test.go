package fold_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c5lang/c5c/internal/ast"
	"github.com/c5lang/c5c/internal/fold"
)

func num(v int64) ast.NumberExpr { return ast.NumberExpr{Value: v} }

func TestEvalArithmetic(t *testing.T) {
	e := ast.BinOpExpr{Op: "+", Left: num(2), Right: ast.BinOpExpr{Op: "*", Left: num(3), Right: num(4)}}
	v, ok := fold.Eval(e)
	require.True(t, ok)
	require.EqualValues(t, 14, v)
}

func TestEvalDivisionByZeroDeclines(t *testing.T) {
	_, ok := fold.Eval(ast.BinOpExpr{Op: "/", Left: num(1), Right: num(0)})
	require.False(t, ok)
}

func TestEvalBitwise(t *testing.T) {
	v, ok := fold.Eval(ast.BinOpExpr{Op: "<<", Left: num(1), Right: num(4)})
	require.True(t, ok)
	require.EqualValues(t, 16, v)
}

func TestEvalDeclinesOnNonConstant(t *testing.T) {
	_, ok := fold.Eval(ast.BinOpExpr{Op: "+", Left: num(1), Right: ast.IdentExpr{Name: "x"}})
	require.False(t, ok)
}

func TestFoldExprCollapsesConstantSubtree(t *testing.T) {
	e := ast.BinOpExpr{Op: "+", Left: num(1), Right: num(2)}
	folded := fold.FoldExpr(e)
	n, ok := folded.(ast.NumberExpr)
	require.True(t, ok)
	require.EqualValues(t, 3, n.Value)
}

func TestFoldExprLeavesNonConstantAlone(t *testing.T) {
	e := ast.BinOpExpr{Op: "+", Left: ast.IdentExpr{Name: "x"}, Right: num(2)}
	folded := fold.FoldExpr(e)
	bin, ok := folded.(ast.BinOpExpr)
	require.True(t, ok)
	require.Equal(t, "+", bin.Op)
}
