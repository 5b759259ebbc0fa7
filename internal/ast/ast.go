// Package ast defines the C5 syntax tree.
//
// Per spec.md §9's REDESIGN FLAGS ("syntax tree as heterogeneous tuples"),
// nodes are concrete structs per syntactic category rather than tagged
// tuples. Traversal follows the teacher's Inspect pattern
// (grammar_ast_visitor.go): a single type-switch-based walker rather than
// an exhaustive per-type visitor interface, since most passes (macro
// expansion, constant folding, codegen) only care about a handful of node
// kinds at a time.
package ast

import "fmt"

// Location is a 1-based line, 0-based column position in a source file.
type Location struct {
	Line   int
	Column int
}

func (l Location) String() string { return fmt.Sprintf("%d:%d", l.Line, l.Column) }

// Node is implemented by every syntax tree node.
type Node interface {
	Loc() Location
}

// Decl is a top-level declaration.
type Decl interface {
	Node
	declNode()
}

// Stmt is a statement inside a function/macro/lambda body.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression.
type Expr interface {
	Node
	exprNode()
}

// TypeExpr is the parsed (pre-resolution) textual type grammar described
// in spec.md §4.2: modifiers, a base name (possibly namespace-qualified),
// an optional generic parameter, and trailing pointer stars. It is
// resolved into a types.Type during semantic analysis.
type TypeExpr struct {
	Signed   bool
	Unsigned bool
	Const    bool

	Base string // e.g. "int", "void", "Point", "std::Color"

	// HasSize is true for int<N>/float<N>; Size holds N.
	HasSize bool
	Size    int

	// Elem is set for array<T> (the generic parameter was a type, not a
	// number).
	Elem *TypeExpr

	Stars int // trailing '*' count

	L Location
}

func (t TypeExpr) Loc() Location { return t.L }

// Param is a (type, name) function/lambda/macro-less parameter pair.
type Param struct {
	Type TypeExpr
	Name string
}

// ---- Declarations ----

type IncludeDecl struct {
	File string
	L    Location
}

type StructField struct {
	Type TypeExpr
	Name string
}

type StructDecl struct {
	Name   string
	Fields []StructField
	L      Location
}

type EnumDecl struct {
	Name     string
	Variants []string
	L        Location
}

type TypeDecl struct {
	Name    string
	Members []TypeExpr
	L       Location
}

type PubVarDecl struct {
	Type TypeExpr
	Name string
	Init Expr // nil if zero-initialized
	L    Location
}

type ExternDecl struct {
	RetType TypeExpr
	Name    string
	Params  []Param
	Varargs bool
	L       Location
}

type FuncDecl struct {
	RetType TypeExpr
	Name    string
	Params  []Param
	Body    []Stmt
	L       Location
}

type MacroDecl struct {
	Name   string
	Params []string
	Body   []Stmt
	L      Location
}

func (d IncludeDecl) Loc() Location { return d.L }
func (d StructDecl) Loc() Location  { return d.L }
func (d EnumDecl) Loc() Location    { return d.L }
func (d TypeDecl) Loc() Location    { return d.L }
func (d PubVarDecl) Loc() Location  { return d.L }
func (d ExternDecl) Loc() Location  { return d.L }
func (d FuncDecl) Loc() Location    { return d.L }
func (d MacroDecl) Loc() Location   { return d.L }

func (IncludeDecl) declNode() {}
func (StructDecl) declNode()  {}
func (EnumDecl) declNode()    {}
func (TypeDecl) declNode()    {}
func (PubVarDecl) declNode()  {}
func (ExternDecl) declNode()  {}
func (FuncDecl) declNode()    {}
func (MacroDecl) declNode()   {}

// File is the flat top-level declaration list produced by the parser for
// one source file (spec.md §4.2 "Parser ... producing a flat top-level
// list").
type File struct {
	Decls []Decl
}

// ---- Statements ----

type VarDecl struct {
	Type TypeExpr
	Name string
	Init Expr // nil if zero-initialized
	L    Location
}

type AssignStmt struct {
	Target Expr
	Value  Expr
	L      Location
}

type ExprStmt struct {
	X Expr
	L Location
}

type ReturnStmt struct {
	Value Expr // nil for bare `return;`
	L     Location
}

type BreakStmt struct {
	L Location
}

type IfStmt struct {
	Cond Expr
	Then []Stmt
	Else []Stmt // nil if no else clause
	L    Location
}

type WhileStmt struct {
	Cond Expr
	Body []Stmt
	L    Location
}

type DoWhileStmt struct {
	Body []Stmt
	Cond Expr
	L    Location
}

type ForStmt struct {
	Init Stmt
	Cond Expr
	Inc  Expr
	Body []Stmt
	L    Location
}

type ForeachStmt struct {
	IndexVar string
	ValueVar string
	Array    Expr
	Body     []Stmt
	L        Location
}

type SwitchCase struct {
	Value Expr
	Body  []Stmt
	L     Location
}

type SwitchStmt struct {
	Cond    Expr
	Cases   []SwitchCase
	Default []Stmt // nil if no default
	L       Location
}

func (s VarDecl) Loc() Location     { return s.L }
func (s AssignStmt) Loc() Location  { return s.L }
func (s ExprStmt) Loc() Location    { return s.L }
func (s ReturnStmt) Loc() Location  { return s.L }
func (s BreakStmt) Loc() Location   { return s.L }
func (s IfStmt) Loc() Location      { return s.L }
func (s WhileStmt) Loc() Location   { return s.L }
func (s DoWhileStmt) Loc() Location { return s.L }
func (s ForStmt) Loc() Location     { return s.L }
func (s ForeachStmt) Loc() Location { return s.L }
func (s SwitchStmt) Loc() Location  { return s.L }

func (VarDecl) stmtNode()     {}
func (AssignStmt) stmtNode()  {}
func (ExprStmt) stmtNode()    {}
func (ReturnStmt) stmtNode()  {}
func (BreakStmt) stmtNode()   {}
func (IfStmt) stmtNode()      {}
func (WhileStmt) stmtNode()   {}
func (DoWhileStmt) stmtNode() {}
func (ForStmt) stmtNode()     {}
func (ForeachStmt) stmtNode() {}
func (SwitchStmt) stmtNode()  {}

// ---- Expressions ----

type NumberExpr struct {
	Value int64
	L     Location
}

type FloatExpr struct {
	Value float64
	L     Location
}

type CharExpr struct {
	Value int64
	L     Location
}

type StringExpr struct {
	Value string
	L     Location
}

type IdentExpr struct {
	Name string
	L    Location
}

// NamespaceAccessExpr is `base::name`, where Base may itself be an
// expression (for chained `::`) but is most commonly a bare namespace
// identifier captured as an IdentExpr by the parser.
type NamespaceAccessExpr struct {
	Base Expr
	Name string
	L    Location
}

type MemberAccessExpr struct {
	Base  Expr
	Field string
	L     Location
}

type ArrowAccessExpr struct {
	Base  Expr
	Field string
	L     Location
}

type ArrayAccessExpr struct {
	Base  Expr
	Index Expr
	L     Location
}

type CallExpr struct {
	Target Expr
	Args   []Expr
	L      Location
}

type BinOpExpr struct {
	Op    string
	Left  Expr
	Right Expr
	L     Location
}

type UnaryExpr struct {
	Op   string
	X    Expr
	L    Location
}

type AssignExpr struct {
	Target Expr
	Value  Expr
	L      Location
}

type LambdaExpr struct {
	Params []Param
	Body   []Stmt
	L      Location
}

// InitListExpr is `{ e1, e2, ... }`; its meaning (array, struct, or union
// literal) is resolved from context during semantic analysis/codegen
// (spec.md §4.2 "Initializer lists").
type InitListExpr struct {
	Elems []Expr
	L     Location
}

func (e NumberExpr) Loc() Location          { return e.L }
func (e FloatExpr) Loc() Location           { return e.L }
func (e CharExpr) Loc() Location            { return e.L }
func (e StringExpr) Loc() Location          { return e.L }
func (e IdentExpr) Loc() Location           { return e.L }
func (e NamespaceAccessExpr) Loc() Location { return e.L }
func (e MemberAccessExpr) Loc() Location    { return e.L }
func (e ArrowAccessExpr) Loc() Location     { return e.L }
func (e ArrayAccessExpr) Loc() Location     { return e.L }
func (e CallExpr) Loc() Location            { return e.L }
func (e BinOpExpr) Loc() Location           { return e.L }
func (e UnaryExpr) Loc() Location           { return e.L }
func (e AssignExpr) Loc() Location          { return e.L }
func (e LambdaExpr) Loc() Location          { return e.L }
func (e InitListExpr) Loc() Location        { return e.L }

func (NumberExpr) exprNode()          {}
func (FloatExpr) exprNode()           {}
func (CharExpr) exprNode()            {}
func (StringExpr) exprNode()          {}
func (IdentExpr) exprNode()           {}
func (NamespaceAccessExpr) exprNode() {}
func (MemberAccessExpr) exprNode()    {}
func (ArrowAccessExpr) exprNode()     {}
func (ArrayAccessExpr) exprNode()     {}
func (CallExpr) exprNode()            {}
func (BinOpExpr) exprNode()           {}
func (UnaryExpr) exprNode()           {}
func (AssignExpr) exprNode()          {}
func (LambdaExpr) exprNode()          {}
func (InitListExpr) exprNode()        {}

// Relocate returns a copy of e with its own location and the locations
// of all its sub-expressions replaced by loc; a LambdaExpr is returned
// unchanged. This is
// how the macro expander re-tags a substituted macro body with the call
// site's location (spec.md §4.4).
func Relocate(e Expr, loc Location) Expr {
	switch n := e.(type) {
	case NumberExpr:
		n.L = loc
		return n
	case FloatExpr:
		n.L = loc
		return n
	case CharExpr:
		n.L = loc
		return n
	case StringExpr:
		n.L = loc
		return n
	case IdentExpr:
		n.L = loc
		return n
	case NamespaceAccessExpr:
		n.L = loc
		n.Base = Relocate(n.Base, loc)
		return n
	case MemberAccessExpr:
		n.L = loc
		n.Base = Relocate(n.Base, loc)
		return n
	case ArrowAccessExpr:
		n.L = loc
		n.Base = Relocate(n.Base, loc)
		return n
	case ArrayAccessExpr:
		n.L = loc
		n.Base = Relocate(n.Base, loc)
		n.Index = Relocate(n.Index, loc)
		return n
	case CallExpr:
		n.L = loc
		n.Target = Relocate(n.Target, loc)
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = Relocate(a, loc)
		}
		n.Args = args
		return n
	case BinOpExpr:
		n.L = loc
		n.Left = Relocate(n.Left, loc)
		n.Right = Relocate(n.Right, loc)
		return n
	case UnaryExpr:
		n.L = loc
		n.X = Relocate(n.X, loc)
		return n
	case AssignExpr:
		n.L = loc
		n.Target = Relocate(n.Target, loc)
		n.Value = Relocate(n.Value, loc)
		return n
	case InitListExpr:
		n.L = loc
		elems := make([]Expr, len(n.Elems))
		for i, el := range n.Elems {
			elems[i] = Relocate(el, loc)
		}
		n.Elems = elems
		return n
	default:
		return e
	}
}

// Inspect traverses expr in depth-first order, calling f for each node.
// If f returns false the children of that node are skipped. Grounded on
// grammar_ast_visitor.go's Inspect.
func Inspect(e Expr, f func(Expr) bool) {
	if e == nil || !f(e) {
		return
	}
	switch n := e.(type) {
	case NamespaceAccessExpr:
		Inspect(n.Base, f)
	case MemberAccessExpr:
		Inspect(n.Base, f)
	case ArrowAccessExpr:
		Inspect(n.Base, f)
	case ArrayAccessExpr:
		Inspect(n.Base, f)
		Inspect(n.Index, f)
	case CallExpr:
		Inspect(n.Target, f)
		for _, a := range n.Args {
			Inspect(a, f)
		}
	case BinOpExpr:
		Inspect(n.Left, f)
		Inspect(n.Right, f)
	case UnaryExpr:
		Inspect(n.X, f)
	case AssignExpr:
		Inspect(n.Target, f)
		Inspect(n.Value, f)
	case InitListExpr:
		for _, el := range n.Elems {
			Inspect(el, f)
		}
	}
}
