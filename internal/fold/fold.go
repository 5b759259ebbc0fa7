// Package fold implements C5's constant folder: recursive evaluation of
// binop over integer literals, used both as an AST-level optimization
// pass and, via Eval, as the integer evaluator backing the semantic
// analyzer's range checks on non-trivial constant initializer
// expressions.
//
// Grounded on original_source/c5c/optimizer.py's _opt_ast: same op set
// (+ - * / % plus the comparison operators, extended per spec.md §4.5 to
// include the bitwise << >> & | ^ the original's table omits), same
// decline-on-non-integer-child behavior, same bottom-up rewrite shape.
package fold

import "github.com/c5lang/c5c/internal/ast"

// Eval attempts to evaluate e as a constant integer expression. ok is
// false if e (or any subexpression reached by folding) is not reducible
// to an integer literal.
func Eval(e ast.Expr) (v int64, ok bool) {
	switch n := e.(type) {
	case ast.NumberExpr:
		return n.Value, true
	case ast.CharExpr:
		return n.Value, true
	case ast.UnaryExpr:
		x, ok := Eval(n.X)
		if !ok {
			return 0, false
		}
		switch n.Op {
		case "-":
			return -x, true
		case "+":
			return x, true
		}
		return 0, false
	case ast.BinOpExpr:
		l, lok := Eval(n.Left)
		r, rok := Eval(n.Right)
		if !lok || !rok {
			return 0, false
		}
		return evalBinOp(n.Op, l, r)
	default:
		return 0, false
	}
}

func evalBinOp(op string, l, r int64) (int64, bool) {
	switch op {
	case "+":
		return l + r, true
	case "-":
		return l - r, true
	case "*":
		return l * r, true
	case "/":
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case "%":
		if r == 0 {
			return 0, false
		}
		return l % r, true
	case "<<":
		return l << uint(r), true
	case ">>":
		return l >> uint(r), true
	case "&":
		return l & r, true
	case "|":
		return l | r, true
	case "^":
		return l ^ r, true
	case ">":
		return boolInt(l > r), true
	case "<":
		return boolInt(l < r), true
	case "==":
		return boolInt(l == r), true
	case "!=":
		return boolInt(l != r), true
	case ">=":
		return boolInt(l >= r), true
	case "<=":
		return boolInt(l <= r), true
	}
	return 0, false
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// FoldExpr rewrites e bottom-up, replacing any binop or unary subtree
// that folds to an integer constant with a NumberExpr. Other nodes are
// recursed into structurally but otherwise left untouched.
func FoldExpr(e ast.Expr) ast.Expr {
	switch n := e.(type) {
	case ast.BinOpExpr:
		n.Left = FoldExpr(n.Left)
		n.Right = FoldExpr(n.Right)
		if v, ok := Eval(n); ok {
			return ast.NumberExpr{Value: v, L: n.L}
		}
		return n
	case ast.UnaryExpr:
		n.X = FoldExpr(n.X)
		if v, ok := Eval(n); ok {
			return ast.NumberExpr{Value: v, L: n.L}
		}
		return n
	case ast.CallExpr:
		n.Target = FoldExpr(n.Target)
		for i, a := range n.Args {
			n.Args[i] = FoldExpr(a)
		}
		return n
	case ast.MemberAccessExpr:
		n.Base = FoldExpr(n.Base)
		return n
	case ast.ArrowAccessExpr:
		n.Base = FoldExpr(n.Base)
		return n
	case ast.NamespaceAccessExpr:
		n.Base = FoldExpr(n.Base)
		return n
	case ast.ArrayAccessExpr:
		n.Base = FoldExpr(n.Base)
		n.Index = FoldExpr(n.Index)
		return n
	case ast.AssignExpr:
		n.Target = FoldExpr(n.Target)
		n.Value = FoldExpr(n.Value)
		return n
	case ast.InitListExpr:
		for i, el := range n.Elems {
			n.Elems[i] = FoldExpr(el)
		}
		return n
	default:
		return e
	}
}

// FoldBlock applies FoldExpr to every expression reachable from stmts.
func FoldBlock(stmts []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = foldStmt(s)
	}
	return out
}

func foldStmt(s ast.Stmt) ast.Stmt {
	switch n := s.(type) {
	case ast.ExprStmt:
		n.X = FoldExpr(n.X)
		return n
	case ast.VarDecl:
		if n.Init != nil {
			n.Init = FoldExpr(n.Init)
		}
		return n
	case ast.AssignStmt:
		n.Target = FoldExpr(n.Target)
		n.Value = FoldExpr(n.Value)
		return n
	case ast.ReturnStmt:
		if n.Value != nil {
			n.Value = FoldExpr(n.Value)
		}
		return n
	case ast.IfStmt:
		n.Cond = FoldExpr(n.Cond)
		n.Then = FoldBlock(n.Then)
		n.Else = FoldBlock(n.Else)
		return n
	case ast.WhileStmt:
		n.Cond = FoldExpr(n.Cond)
		n.Body = FoldBlock(n.Body)
		return n
	case ast.DoWhileStmt:
		n.Body = FoldBlock(n.Body)
		n.Cond = FoldExpr(n.Cond)
		return n
	case ast.ForStmt:
		if n.Init != nil {
			n.Init = foldStmt(n.Init)
		}
		if n.Cond != nil {
			n.Cond = FoldExpr(n.Cond)
		}
		if n.Inc != nil {
			n.Inc = FoldExpr(n.Inc)
		}
		n.Body = FoldBlock(n.Body)
		return n
	case ast.ForeachStmt:
		n.Array = FoldExpr(n.Array)
		n.Body = FoldBlock(n.Body)
		return n
	case ast.SwitchStmt:
		n.Cond = FoldExpr(n.Cond)
		for i, c := range n.Cases {
			c.Value = FoldExpr(c.Value)
			c.Body = FoldBlock(c.Body)
			n.Cases[i] = c
		}
		n.Default = FoldBlock(n.Default)
		return n
	default:
		return s
	}
}
