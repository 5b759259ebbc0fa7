package ast_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c5lang/c5c/internal/ast"
)

func TestInspectVisitsEveryNode(t *testing.T) {
	e := ast.BinOpExpr{
		Op:   "+",
		Left: ast.IdentExpr{Name: "a"},
		Right: ast.CallExpr{
			Target: ast.IdentExpr{Name: "f"},
			Args:   []ast.Expr{ast.NumberExpr{Value: 1}, ast.IdentExpr{Name: "b"}},
		},
	}

	var idents []string
	ast.Inspect(e, func(n ast.Expr) bool {
		if id, ok := n.(ast.IdentExpr); ok {
			idents = append(idents, id.Name)
		}
		return true
	})

	require.Equal(t, []string{"a", "f", "b"}, idents)
}

func TestInspectStopsDescendingWhenFReturnsFalse(t *testing.T) {
	e := ast.CallExpr{
		Target: ast.IdentExpr{Name: "f"},
		Args:   []ast.Expr{ast.IdentExpr{Name: "skip_me"}},
	}

	var seen []string
	ast.Inspect(e, func(n ast.Expr) bool {
		if call, ok := n.(ast.CallExpr); ok {
			seen = append(seen, "call")
			_ = call
			return false
		}
		seen = append(seen, "other")
		return true
	})

	require.Equal(t, []string{"call"}, seen)
}

func TestRelocateRewritesLocationThroughoutSubtree(t *testing.T) {
	e := ast.BinOpExpr{
		Op:    "+",
		Left:  ast.IdentExpr{Name: "a", L: ast.Location{Line: 1, Column: 1}},
		Right: ast.NumberExpr{Value: 2, L: ast.Location{Line: 1, Column: 5}},
		L:     ast.Location{Line: 1, Column: 3},
	}

	target := ast.Location{Line: 10, Column: 2}
	out := ast.Relocate(e, target)

	bin, ok := out.(ast.BinOpExpr)
	require.True(t, ok)
	require.Equal(t, target, bin.L)

	left, ok := bin.Left.(ast.IdentExpr)
	require.True(t, ok)
	require.Equal(t, target, left.L)

	right, ok := bin.Right.(ast.NumberExpr)
	require.True(t, ok)
	require.Equal(t, target, right.L)
}
