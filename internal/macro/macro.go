// Package macro implements C5's textual macro expander.
//
// There is no macro pass in the original implementation worth grounding
// against — original_source/c5c only carries parse_macro, which builds
// the macro node and never expands it — so this package follows spec.md
// §4.4 directly, in the teacher's tree-rewrite style (grammar_capture_handler.go
// and grammar_whitespace_handler.go rewrite an AstNode tree in place by
// walking it and substituting matched nodes).
//
// Macros are textual and hygiene-unaware: substituted parameter
// references alias the caller's argument expressions rather than being
// deep-copied, and any local names the macro body introduces are not
// renamed. This is documented, not fixed (spec.md §9 "Macro hygiene").
package macro

import "github.com/c5lang/c5c/internal/ast"

// Expand removes every MacroDecl from file.Decls and rewrites every call
// to a macro name, in every function/extern body, into its expansion.
func Expand(file *ast.File) *ast.File {
	macros := map[string]ast.MacroDecl{}
	out := &ast.File{}
	for _, d := range file.Decls {
		if m, ok := d.(ast.MacroDecl); ok {
			macros[m.Name] = m
			continue
		}
		out.Decls = append(out.Decls, d)
	}
	if len(macros) == 0 {
		return out
	}
	for i, d := range out.Decls {
		switch n := d.(type) {
		case ast.FuncDecl:
			n.Body = expandBlock(n.Body, macros)
			out.Decls[i] = n
		}
	}
	return out
}

func expandBlock(stmts []ast.Stmt, macros map[string]ast.MacroDecl) []ast.Stmt {
	var out []ast.Stmt
	for _, s := range stmts {
		out = append(out, expandStmt(s, macros)...)
	}
	return out
}

// expandStmt returns the replacement statement list for s: usually a
// single statement, but a statement consisting solely of a call to a
// multi-statement macro absorbs the macro's entire (substituted) body.
func expandStmt(s ast.Stmt, macros map[string]ast.MacroDecl) []ast.Stmt {
	switch n := s.(type) {
	case ast.ExprStmt:
		if call, ok := n.X.(ast.CallExpr); ok {
			if body, expanded, ok := expandMacroCall(call, macros); ok {
				if expanded != nil {
					return []ast.Stmt{ast.ExprStmt{X: expanded, L: n.L}}
				}
				return body
			}
		}
		n.X = expandExpr(n.X, macros)
		return []ast.Stmt{n}
	case ast.VarDecl:
		if n.Init != nil {
			n.Init = expandExpr(n.Init, macros)
		}
		return []ast.Stmt{n}
	case ast.AssignStmt:
		n.Target = expandExpr(n.Target, macros)
		n.Value = expandExpr(n.Value, macros)
		return []ast.Stmt{n}
	case ast.ReturnStmt:
		if n.Value != nil {
			n.Value = expandExpr(n.Value, macros)
		}
		return []ast.Stmt{n}
	case ast.IfStmt:
		n.Cond = expandExpr(n.Cond, macros)
		n.Then = expandBlock(n.Then, macros)
		n.Else = expandBlock(n.Else, macros)
		return []ast.Stmt{n}
	case ast.WhileStmt:
		n.Cond = expandExpr(n.Cond, macros)
		n.Body = expandBlock(n.Body, macros)
		return []ast.Stmt{n}
	case ast.DoWhileStmt:
		n.Body = expandBlock(n.Body, macros)
		n.Cond = expandExpr(n.Cond, macros)
		return []ast.Stmt{n}
	case ast.ForStmt:
		if n.Init != nil {
			n.Init = expandStmt(n.Init, macros)[0]
		}
		if n.Cond != nil {
			n.Cond = expandExpr(n.Cond, macros)
		}
		if n.Inc != nil {
			n.Inc = expandExpr(n.Inc, macros)
		}
		n.Body = expandBlock(n.Body, macros)
		return []ast.Stmt{n}
	case ast.ForeachStmt:
		n.Array = expandExpr(n.Array, macros)
		n.Body = expandBlock(n.Body, macros)
		return []ast.Stmt{n}
	case ast.SwitchStmt:
		n.Cond = expandExpr(n.Cond, macros)
		for i, c := range n.Cases {
			c.Value = expandExpr(c.Value, macros)
			c.Body = expandBlock(c.Body, macros)
			n.Cases[i] = c
		}
		n.Default = expandBlock(n.Default, macros)
		return []ast.Stmt{n}
	default:
		return []ast.Stmt{s}
	}
}

// expandExpr rewrites macro calls appearing inside an expression context.
// Only macros whose body is a single expr_stmt can be expressed this way;
// a call to a multi-statement macro nested inside a larger expression is
// left as-is (such macros are meant to be invoked as their own statement).
func expandExpr(e ast.Expr, macros map[string]ast.MacroDecl) ast.Expr {
	switch n := e.(type) {
	case ast.CallExpr:
		n.Target = expandExpr(n.Target, macros)
		for i, a := range n.Args {
			n.Args[i] = expandExpr(a, macros)
		}
		if _, expanded, ok := expandMacroCall(n, macros); ok && expanded != nil {
			return expanded
		}
		return n
	case ast.BinOpExpr:
		n.Left = expandExpr(n.Left, macros)
		n.Right = expandExpr(n.Right, macros)
		return n
	case ast.UnaryExpr:
		n.X = expandExpr(n.X, macros)
		return n
	case ast.AssignExpr:
		n.Target = expandExpr(n.Target, macros)
		n.Value = expandExpr(n.Value, macros)
		return n
	case ast.MemberAccessExpr:
		n.Base = expandExpr(n.Base, macros)
		return n
	case ast.ArrowAccessExpr:
		n.Base = expandExpr(n.Base, macros)
		return n
	case ast.NamespaceAccessExpr:
		n.Base = expandExpr(n.Base, macros)
		return n
	case ast.ArrayAccessExpr:
		n.Base = expandExpr(n.Base, macros)
		n.Index = expandExpr(n.Index, macros)
		return n
	case ast.InitListExpr:
		for i, el := range n.Elems {
			n.Elems[i] = expandExpr(el, macros)
		}
		return n
	default:
		return e
	}
}

// expandMacroCall reports ok=false if call doesn't target a macro name.
// Otherwise it returns either the substituted single expression
// (expanded != nil, used in expression position) or the substituted
// statement list (body != nil, used when the call is an entire
// statement).
func expandMacroCall(call ast.CallExpr, macros map[string]ast.MacroDecl) (body []ast.Stmt, expanded ast.Expr, ok bool) {
	id, isIdent := call.Target.(ast.IdentExpr)
	if !isIdent {
		return nil, nil, false
	}
	m, found := macros[id.Name]
	if !found {
		return nil, nil, false
	}

	params := map[string]ast.Expr{}
	for i, pname := range m.Params {
		if i < len(call.Args) {
			params[pname] = call.Args[i]
		}
	}

	relocated := make([]ast.Stmt, len(m.Body))
	for i, s := range m.Body {
		relocated[i] = relocateStmt(s, call.L)
	}
	substituted := make([]ast.Stmt, len(relocated))
	for i, s := range relocated {
		substituted[i] = substituteStmt(s, params)
	}
	substituted = expandBlock(substituted, macros)

	if len(substituted) == 1 {
		if es, isExprStmt := substituted[0].(ast.ExprStmt); isExprStmt {
			return nil, es.X, true
		}
	}
	return substituted, nil, true
}

func substituteExpr(e ast.Expr, params map[string]ast.Expr) ast.Expr {
	switch n := e.(type) {
	case ast.IdentExpr:
		if repl, ok := params[n.Name]; ok {
			return repl
		}
		return n
	case ast.CallExpr:
		n.Target = substituteExpr(n.Target, params)
		args := make([]ast.Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = substituteExpr(a, params)
		}
		n.Args = args
		return n
	case ast.BinOpExpr:
		n.Left = substituteExpr(n.Left, params)
		n.Right = substituteExpr(n.Right, params)
		return n
	case ast.UnaryExpr:
		n.X = substituteExpr(n.X, params)
		return n
	case ast.AssignExpr:
		n.Target = substituteExpr(n.Target, params)
		n.Value = substituteExpr(n.Value, params)
		return n
	case ast.MemberAccessExpr:
		n.Base = substituteExpr(n.Base, params)
		return n
	case ast.ArrowAccessExpr:
		n.Base = substituteExpr(n.Base, params)
		return n
	case ast.NamespaceAccessExpr:
		n.Base = substituteExpr(n.Base, params)
		return n
	case ast.ArrayAccessExpr:
		n.Base = substituteExpr(n.Base, params)
		n.Index = substituteExpr(n.Index, params)
		return n
	case ast.InitListExpr:
		elems := make([]ast.Expr, len(n.Elems))
		for i, el := range n.Elems {
			elems[i] = substituteExpr(el, params)
		}
		n.Elems = elems
		return n
	default:
		return e
	}
}

func substituteStmt(s ast.Stmt, params map[string]ast.Expr) ast.Stmt {
	switch n := s.(type) {
	case ast.ExprStmt:
		n.X = substituteExpr(n.X, params)
		return n
	case ast.VarDecl:
		if n.Init != nil {
			n.Init = substituteExpr(n.Init, params)
		}
		return n
	case ast.AssignStmt:
		n.Target = substituteExpr(n.Target, params)
		n.Value = substituteExpr(n.Value, params)
		return n
	case ast.ReturnStmt:
		if n.Value != nil {
			n.Value = substituteExpr(n.Value, params)
		}
		return n
	case ast.IfStmt:
		n.Cond = substituteExpr(n.Cond, params)
		n.Then = substituteBlock(n.Then, params)
		n.Else = substituteBlock(n.Else, params)
		return n
	case ast.WhileStmt:
		n.Cond = substituteExpr(n.Cond, params)
		n.Body = substituteBlock(n.Body, params)
		return n
	case ast.DoWhileStmt:
		n.Body = substituteBlock(n.Body, params)
		n.Cond = substituteExpr(n.Cond, params)
		return n
	case ast.ForStmt:
		if n.Init != nil {
			n.Init = substituteStmt(n.Init, params)
		}
		if n.Cond != nil {
			n.Cond = substituteExpr(n.Cond, params)
		}
		if n.Inc != nil {
			n.Inc = substituteExpr(n.Inc, params)
		}
		n.Body = substituteBlock(n.Body, params)
		return n
	case ast.ForeachStmt:
		n.Array = substituteExpr(n.Array, params)
		n.Body = substituteBlock(n.Body, params)
		return n
	case ast.SwitchStmt:
		n.Cond = substituteExpr(n.Cond, params)
		for i, c := range n.Cases {
			c.Value = substituteExpr(c.Value, params)
			c.Body = substituteBlock(c.Body, params)
			n.Cases[i] = c
		}
		n.Default = substituteBlock(n.Default, params)
		return n
	default:
		return s
	}
}

func substituteBlock(stmts []ast.Stmt, params map[string]ast.Expr) []ast.Stmt {
	out := make([]ast.Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = substituteStmt(s, params)
	}
	return out
}

func relocateStmt(s ast.Stmt, loc ast.Location) ast.Stmt {
	switch n := s.(type) {
	case ast.ExprStmt:
		n.L = loc
		n.X = ast.Relocate(n.X, loc)
		return n
	case ast.VarDecl:
		n.L = loc
		if n.Init != nil {
			n.Init = ast.Relocate(n.Init, loc)
		}
		return n
	case ast.AssignStmt:
		n.L = loc
		n.Target = ast.Relocate(n.Target, loc)
		n.Value = ast.Relocate(n.Value, loc)
		return n
	case ast.ReturnStmt:
		n.L = loc
		if n.Value != nil {
			n.Value = ast.Relocate(n.Value, loc)
		}
		return n
	case ast.IfStmt:
		n.L = loc
		n.Cond = ast.Relocate(n.Cond, loc)
		n.Then = relocateBlock(n.Then, loc)
		n.Else = relocateBlock(n.Else, loc)
		return n
	case ast.WhileStmt:
		n.L = loc
		n.Cond = ast.Relocate(n.Cond, loc)
		n.Body = relocateBlock(n.Body, loc)
		return n
	case ast.DoWhileStmt:
		n.L = loc
		n.Body = relocateBlock(n.Body, loc)
		n.Cond = ast.Relocate(n.Cond, loc)
		return n
	case ast.ForStmt:
		n.L = loc
		if n.Init != nil {
			n.Init = relocateStmt(n.Init, loc)
		}
		if n.Cond != nil {
			n.Cond = ast.Relocate(n.Cond, loc)
		}
		if n.Inc != nil {
			n.Inc = ast.Relocate(n.Inc, loc)
		}
		n.Body = relocateBlock(n.Body, loc)
		return n
	case ast.ForeachStmt:
		n.L = loc
		n.Array = ast.Relocate(n.Array, loc)
		n.Body = relocateBlock(n.Body, loc)
		return n
	case ast.BreakStmt:
		n.L = loc
		return n
	case ast.SwitchStmt:
		n.L = loc
		n.Cond = ast.Relocate(n.Cond, loc)
		cases := make([]ast.SwitchCase, len(n.Cases))
		for i, c := range n.Cases {
			c.L = loc
			c.Value = ast.Relocate(c.Value, loc)
			c.Body = relocateBlock(c.Body, loc)
			cases[i] = c
		}
		n.Cases = cases
		n.Default = relocateBlock(n.Default, loc)
		return n
	default:
		return s
	}
}

func relocateBlock(stmts []ast.Stmt, loc ast.Location) []ast.Stmt {
	if stmts == nil {
		return nil
	}
	out := make([]ast.Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = relocateStmt(s, loc)
	}
	return out
}
