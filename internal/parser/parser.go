// Package parser implements C5's recursive-descent parser: a flat token
// stream in, a flat top-level declaration list (internal/ast) out.
//
// Grounded on the teacher's hand-written recursive-descent style
// (parser.go/grammar_parser.go use a cursor with peek/expect/advance
// rather than a generated table), adapted to C5's grammar rather than
// langlang's PEG meta-grammar.
package parser

import (
	"fmt"

	"github.com/c5lang/c5c/internal/ast"
	"github.com/c5lang/c5c/internal/token"
)

// Error is a syntax error: an unexpected token where some other
// construct was required.
type Error struct {
	Loc     ast.Location
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Loc.Line, e.Loc.Column, e.Message)
}

// Parser holds the token cursor for one source file.
type Parser struct {
	toks []token.Token
	pos  int
}

// New creates a Parser over a token stream produced by internal/lexer.
func New(toks []token.Token) *Parser {
	return &Parser{toks: toks}
}

// Parse consumes the entire token stream and returns the top-level
// declaration list.
func Parse(toks []token.Token) (*ast.File, error) {
	return New(toks).ParseFile()
}

func loc(t token.Token) ast.Location { return ast.Location{Line: t.Loc.Line, Column: t.Loc.Column} }

func (p *Parser) cur() token.Token { return p.toks[p.pos] }

func (p *Parser) peekAt(off int) token.Token {
	i := p.pos + off
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1] // EOF
	}
	return p.toks[i]
}

func (p *Parser) at(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	if p.at(k) {
		return p.advance(), nil
	}
	return token.Token{}, &Error{Loc: loc(p.cur()), Message: fmt.Sprintf("expected %s, found %s", k, p.cur().Kind)}
}

// ParseFile parses a whole source file into a flat top-level list.
func (p *Parser) ParseFile() (*ast.File, error) {
	f := &ast.File{}
	for !p.at(token.EOF) {
		d, err := p.parseTopLevel()
		if err != nil {
			return nil, err
		}
		f.Decls = append(f.Decls, d)
	}
	return f, nil
}

func (p *Parser) parseTopLevel() (ast.Decl, error) {
	switch p.cur().Kind {
	case token.Include:
		return p.parseInclude()
	case token.Struct:
		return p.parseStructDecl()
	case token.Enum:
		return p.parseEnumDecl()
	case token.Type:
		return p.parseTypeDecl()
	case token.Let:
		return p.parsePubVar()
	case token.Macro:
		return p.parseMacro()
	default:
		return p.parseFuncOrExtern()
	}
}

func (p *Parser) parseInclude() (ast.Decl, error) {
	start := p.advance() // 'include'
	var name string
	if p.at(token.Lt) {
		// include <name.ext>: the lexer splits the name into ident/dot
		// tokens, so their lexemes are joined back together.
		p.advance()
		for !p.at(token.Gt) && !p.at(token.EOF) {
			name += p.advance().Lexeme
		}
		if _, err := p.expect(token.Gt); err != nil {
			return nil, err
		}
	} else {
		file, err := p.expect(token.String)
		if err != nil {
			return nil, err
		}
		name = file.Lexeme
	}
	if p.at(token.Semi) {
		p.advance()
	}
	return ast.IncludeDecl{File: name, L: loc(start)}, nil
}

func (p *Parser) parseStructDecl() (ast.Decl, error) {
	start := p.advance() // 'struct'
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	var fields []ast.StructField
	for !p.at(token.RBrace) {
		ty, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		fname, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Semi); err != nil {
			return nil, err
		}
		fields = append(fields, ast.StructField{Type: ty, Name: fname.Lexeme})
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return ast.StructDecl{Name: name.Lexeme, Fields: fields, L: loc(start)}, nil
}

func (p *Parser) parseEnumDecl() (ast.Decl, error) {
	start := p.advance() // 'enum'
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	var variants []string
	for !p.at(token.RBrace) {
		v, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v.Lexeme)
		if p.at(token.Comma) {
			p.advance()
		}
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return ast.EnumDecl{Name: name.Lexeme, Variants: variants, L: loc(start)}, nil
}

func (p *Parser) parseTypeDecl() (ast.Decl, error) {
	start := p.advance() // 'type'
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	var members []ast.TypeExpr
	for !p.at(token.RBrace) {
		ty, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		members = append(members, ty)
		if p.at(token.Comma) {
			p.advance()
		}
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return ast.TypeDecl{Name: name.Lexeme, Members: members, L: loc(start)}, nil
}

func (p *Parser) parsePubVar() (ast.Decl, error) {
	start := p.advance() // 'let'
	ty, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	var init ast.Expr
	if p.at(token.Assign) {
		p.advance()
		init, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return ast.PubVarDecl{Type: ty, Name: name.Lexeme, Init: init, L: loc(start)}, nil
}

func (p *Parser) parseMacro() (ast.Decl, error) {
	start := p.advance() // 'macro'
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	var params []string
	for !p.at(token.RParen) {
		pn, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		params = append(params, pn.Lexeme)
		if p.at(token.Comma) {
			p.advance()
		}
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return ast.MacroDecl{Name: name.Lexeme, Params: params, Body: body, L: loc(start)}, nil
}

// parseParamList parses a parenthesized, comma-separated (type name) list.
// Returns varargs=true if the list ends with a bare `...`.
func (p *Parser) parseParamList() ([]ast.Param, bool, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return nil, false, err
	}
	var params []ast.Param
	varargs := false
	for !p.at(token.RParen) {
		if p.at(token.Ellipsis) {
			p.advance()
			varargs = true
			break
		}
		ty, err := p.parseTypeExpr()
		if err != nil {
			return nil, false, err
		}
		name, err := p.expect(token.Ident)
		if err != nil {
			return nil, false, err
		}
		params = append(params, ast.Param{Type: ty, Name: name.Lexeme})
		if p.at(token.Comma) {
			p.advance()
		}
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, false, err
	}
	return params, varargs, nil
}

func (p *Parser) parseFuncOrExtern() (ast.Decl, error) {
	start := p.cur()
	retType, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	params, varargs, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	if p.at(token.Semi) {
		p.advance()
		return ast.ExternDecl{RetType: retType, Name: name.Lexeme, Params: params, Varargs: varargs, L: loc(start)}, nil
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return ast.FuncDecl{RetType: retType, Name: name.Lexeme, Params: params, Body: body, L: loc(start)}, nil
}

// parseTypeExpr parses the type grammar: any order of signed/unsigned/const
// modifiers (each at most once), a base name (possibly namespace-qualified),
// an optional generic parameter (`<N>` or `<T>`), then trailing `*`s.
func (p *Parser) parseTypeExpr() (ast.TypeExpr, error) {
	start := p.cur()
	var te ast.TypeExpr
	for {
		switch p.cur().Kind {
		case token.Signed:
			te.Signed = true
			p.advance()
			continue
		case token.Unsigned:
			te.Unsigned = true
			p.advance()
			continue
		case token.Const:
			te.Const = true
			p.advance()
			continue
		}
		break
	}

	base, err := p.parseTypeBaseName()
	if err != nil {
		return ast.TypeExpr{}, err
	}
	te.Base = base

	if p.at(token.Lt) {
		p.advance()
		if p.at(token.Number) {
			n := p.advance()
			var size int
			fmt.Sscanf(n.Lexeme, "%d", &size)
			te.HasSize = true
			te.Size = size
		} else {
			elem, err := p.parseTypeExpr()
			if err != nil {
				return ast.TypeExpr{}, err
			}
			te.Elem = &elem
		}
		if _, err := p.expect(token.Gt); err != nil {
			return ast.TypeExpr{}, err
		}
	}

	for p.at(token.Star) {
		p.advance()
		te.Stars++
	}

	te.L = loc(start)
	return te, nil
}

func (p *Parser) parseTypeBaseName() (string, error) {
	var name string
	switch p.cur().Kind {
	case token.Void:
		p.advance()
		return "void", nil
	case token.Ident:
		name = p.advance().Lexeme
	default:
		return "", &Error{Loc: loc(p.cur()), Message: fmt.Sprintf("expected type name, found %s", p.cur().Kind)}
	}
	for p.at(token.ColonColon) {
		p.advance()
		part, err := p.expect(token.Ident)
		if err != nil {
			return "", err
		}
		name = name + "::" + part.Lexeme
	}
	return name, nil
}

// isDeclStart implements spec.md §4.2's declaration-vs-expression
// disambiguation: skip one identifier (possibly namespace-qualified),
// optionally a balanced `< ... >`, any number of `*`, and check whether
// another identifier follows.
func (p *Parser) isDeclStart() bool {
	if p.at(token.Void) || p.at(token.Signed) || p.at(token.Unsigned) || p.at(token.Const) {
		return true
	}
	if !p.at(token.Ident) {
		return false
	}
	off := 1
	for p.peekAt(off).Kind == token.ColonColon {
		if p.peekAt(off + 1).Kind != token.Ident {
			return false
		}
		off += 2
	}
	if p.peekAt(off).Kind == token.Lt {
		depth := 1
		off++
		for depth > 0 {
			k := p.peekAt(off).Kind
			if k == token.EOF {
				return false
			}
			if k == token.Lt {
				depth++
			} else if k == token.Gt {
				depth--
			}
			off++
		}
	}
	for p.peekAt(off).Kind == token.Star {
		off++
	}
	return p.peekAt(off).Kind == token.Ident
}

// ---- Statements ----

func (p *Parser) parseBlock() ([]ast.Stmt, error) {
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	for !p.at(token.RBrace) {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	return stmts, nil
}

func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch p.cur().Kind {
	case token.If:
		return p.parseIf()
	case token.While:
		return p.parseWhile()
	case token.Do:
		return p.parseDoWhile()
	case token.For:
		return p.parseFor()
	case token.Foreach:
		return p.parseForeach()
	case token.Switch:
		return p.parseSwitch()
	case token.Break:
		start := p.advance()
		if _, err := p.expect(token.Semi); err != nil {
			return nil, err
		}
		return ast.BreakStmt{L: loc(start)}, nil
	case token.Return:
		start := p.advance()
		var v ast.Expr
		if !p.at(token.Semi) {
			var err error
			v, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(token.Semi); err != nil {
			return nil, err
		}
		return ast.ReturnStmt{Value: v, L: loc(start)}, nil
	}

	if p.isDeclStart() {
		return p.parseVarDeclStmt()
	}
	return p.parseSimpleOrAssignStmt()
}

func (p *Parser) parseVarDeclStmt() (ast.Stmt, error) {
	start := p.cur()
	ty, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	var init ast.Expr
	if p.at(token.Assign) {
		p.advance()
		init, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return ast.VarDecl{Type: ty, Name: name.Lexeme, Init: init, L: loc(start)}, nil
}

func (p *Parser) parseSimpleOrAssignStmt() (ast.Stmt, error) {
	start := p.cur()
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if a, ok := e.(ast.AssignExpr); ok {
		if _, err := p.expect(token.Semi); err != nil {
			return nil, err
		}
		return ast.AssignStmt{Target: a.Target, Value: a.Value, L: loc(start)}, nil
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return ast.ExprStmt{X: e, L: loc(start)}, nil
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	start := p.advance() // 'if'
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	var els []ast.Stmt
	if p.at(token.Else) {
		p.advance()
		if p.at(token.If) {
			inner, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			els = []ast.Stmt{inner}
		} else {
			els, err = p.parseBlock()
			if err != nil {
				return nil, err
			}
		}
	}
	return ast.IfStmt{Cond: cond, Then: then, Else: els, L: loc(start)}, nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	start := p.advance() // 'while'
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return ast.WhileStmt{Cond: cond, Body: body, L: loc(start)}, nil
}

func (p *Parser) parseDoWhile() (ast.Stmt, error) {
	start := p.advance() // 'do'
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.While); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return ast.DoWhileStmt{Body: body, Cond: cond, L: loc(start)}, nil
}

func (p *Parser) parseFor() (ast.Stmt, error) {
	start := p.advance() // 'for'
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	var init ast.Stmt
	if !p.at(token.Semi) {
		var err error
		if p.isDeclStart() {
			init, err = p.parseVarDeclInline()
		} else {
			e, err2 := p.parseExpr()
			if err2 != nil {
				return nil, err2
			}
			if a, ok := e.(ast.AssignExpr); ok {
				init = ast.AssignStmt{Target: a.Target, Value: a.Value, L: loc(start)}
			} else {
				init = ast.ExprStmt{X: e, L: loc(start)}
			}
		}
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	var cond ast.Expr
	if !p.at(token.Semi) {
		var err error
		cond, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	var inc ast.Expr
	if !p.at(token.RParen) {
		var err error
		inc, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return ast.ForStmt{Init: init, Cond: cond, Inc: inc, Body: body, L: loc(start)}, nil
}

// parseVarDeclInline parses a var decl without its own terminating `;`
// consumption being special-cased — used for `for (T x = e; ...)` where the
// caller owns the semicolon.
func (p *Parser) parseVarDeclInline() (ast.Stmt, error) {
	start := p.cur()
	ty, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	var init ast.Expr
	if p.at(token.Assign) {
		p.advance()
		init, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	return ast.VarDecl{Type: ty, Name: name.Lexeme, Init: init, L: loc(start)}, nil
}

func (p *Parser) parseForeach() (ast.Stmt, error) {
	start := p.advance() // 'foreach'
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	idx, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Comma); err != nil {
		return nil, err
	}
	val, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.In); err != nil {
		return nil, err
	}
	arr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return ast.ForeachStmt{IndexVar: idx.Lexeme, ValueVar: val.Lexeme, Array: arr, Body: body, L: loc(start)}, nil
}

func (p *Parser) parseSwitch() (ast.Stmt, error) {
	start := p.advance() // 'switch'
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	var cases []ast.SwitchCase
	var def []ast.Stmt
	for !p.at(token.RBrace) {
		if p.at(token.Case) {
			cstart := p.advance()
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.Colon); err != nil {
				return nil, err
			}
			var body []ast.Stmt
			for !p.at(token.Case) && !p.at(token.Default) && !p.at(token.RBrace) {
				s, err := p.parseStmt()
				if err != nil {
					return nil, err
				}
				body = append(body, s)
			}
			cases = append(cases, ast.SwitchCase{Value: v, Body: body, L: loc(cstart)})
			continue
		}
		if p.at(token.Default) {
			p.advance()
			if _, err := p.expect(token.Colon); err != nil {
				return nil, err
			}
			for !p.at(token.Case) && !p.at(token.Default) && !p.at(token.RBrace) {
				s, err := p.parseStmt()
				if err != nil {
					return nil, err
				}
				def = append(def, s)
			}
			continue
		}
		return nil, &Error{Loc: loc(p.cur()), Message: fmt.Sprintf("expected 'case' or 'default', found %s", p.cur().Kind)}
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	return ast.SwitchStmt{Cond: cond, Cases: cases, Default: def, L: loc(start)}, nil
}

// ---- Expressions ----
//
// Precedence, low to high: assignment (right-assoc) -> comparisons
// (== != < > <= >=) -> additive (+ -) -> multiplicative (* / %) ->
// unary (* & + -) -> primary with postfix chains (. -> [] () ::).

func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseAssign()
}

func (p *Parser) parseAssign() (ast.Expr, error) {
	lhs, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	if p.at(token.Assign) {
		start := p.advance()
		rhs, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		return ast.AssignExpr{Target: lhs, Value: rhs, L: loc(start)}, nil
	}
	return lhs, nil
}

func (p *Parser) parseComparison() (ast.Expr, error) {
	lhs, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch p.cur().Kind {
		case token.Eq:
			op = "=="
		case token.Neq:
			op = "!="
		case token.Lt:
			op = "<"
		case token.Gt:
			op = ">"
		case token.Leq:
			op = "<="
		case token.Geq:
			op = ">="
		default:
			return lhs, nil
		}
		start := p.advance()
		rhs, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		lhs = ast.BinOpExpr{Op: op, Left: lhs, Right: rhs, L: loc(start)}
	}
}

func (p *Parser) parseAdditive() (ast.Expr, error) {
	lhs, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.at(token.Plus) || p.at(token.Minus) {
		op := "+"
		if p.at(token.Minus) {
			op = "-"
		}
		start := p.advance()
		rhs, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		lhs = ast.BinOpExpr{Op: op, Left: lhs, Right: rhs, L: loc(start)}
	}
	return lhs, nil
}

func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(token.Star) || p.at(token.Slash) || p.at(token.Percent) {
		var op string
		switch p.cur().Kind {
		case token.Star:
			op = "*"
		case token.Slash:
			op = "/"
		case token.Percent:
			op = "%"
		}
		start := p.advance()
		rhs, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		lhs = ast.BinOpExpr{Op: op, Left: lhs, Right: rhs, L: loc(start)}
	}
	return lhs, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	switch p.cur().Kind {
	case token.Star, token.Amp, token.Plus, token.Minus:
		op := p.cur().Lexeme
		start := p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.UnaryExpr{Op: op, X: x, L: loc(start)}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Kind {
		case token.Dot:
			start := p.advance()
			name, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			e = ast.MemberAccessExpr{Base: e, Field: name.Lexeme, L: loc(start)}
		case token.Arrow:
			start := p.advance()
			name, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			e = ast.ArrowAccessExpr{Base: e, Field: name.Lexeme, L: loc(start)}
		case token.ColonColon:
			start := p.advance()
			name, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			e = ast.NamespaceAccessExpr{Base: e, Name: name.Lexeme, L: loc(start)}
		case token.LBracket:
			start := p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBracket); err != nil {
				return nil, err
			}
			e = ast.ArrayAccessExpr{Base: e, Index: idx, L: loc(start)}
		case token.LParen:
			start := p.advance()
			var args []ast.Expr
			for !p.at(token.RParen) {
				a, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if p.at(token.Comma) {
					p.advance()
				}
			}
			if _, err := p.expect(token.RParen); err != nil {
				return nil, err
			}
			e = ast.CallExpr{Target: e, Args: args, L: loc(start)}
		default:
			return e, nil
		}
	}
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	start := p.cur()
	switch start.Kind {
	case token.Number:
		p.advance()
		var v int64
		fmt.Sscanf(start.Lexeme, "%d", &v)
		return ast.NumberExpr{Value: v, L: loc(start)}, nil
	case token.Float:
		p.advance()
		var v float64
		fmt.Sscanf(start.Lexeme, "%g", &v)
		return ast.FloatExpr{Value: v, L: loc(start)}, nil
	case token.Char:
		p.advance()
		return ast.CharExpr{Value: start.IntValue, L: loc(start)}, nil
	case token.String:
		p.advance()
		return ast.StringExpr{Value: start.Lexeme, L: loc(start)}, nil
	case token.Ident:
		p.advance()
		return ast.IdentExpr{Name: start.Lexeme, L: loc(start)}, nil
	case token.LParen:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		return e, nil
	case token.LBrace:
		return p.parseInitList()
	case token.Fnct:
		return p.parseLambda()
	}
	return nil, &Error{Loc: loc(start), Message: fmt.Sprintf("unexpected token %s in expression", start.Kind)}
}

func (p *Parser) parseInitList() (ast.Expr, error) {
	start := p.advance() // '{'
	var elems []ast.Expr
	for !p.at(token.RBrace) {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
		if p.at(token.Comma) {
			p.advance()
		}
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	return ast.InitListExpr{Elems: elems, L: loc(start)}, nil
}

func (p *Parser) parseLambda() (ast.Expr, error) {
	start := p.advance() // 'fnct'
	params, _, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return ast.LambdaExpr{Params: params, Body: body, L: loc(start)}, nil
}
