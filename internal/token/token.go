// Package token defines the lexical tokens produced by the C5 lexer and
// consumed by the parser.
package token

import "fmt"

// Kind identifies the lexical category of a Token.
type Kind int

const (
	EOF Kind = iota
	Ident
	Number
	Float
	Char
	String

	// Keywords
	Include
	Void
	Return
	If
	Else
	While
	For
	Foreach
	Do
	Switch
	Case
	Default
	Break
	Struct
	Enum
	Type
	Let
	Macro
	Signed
	Unsigned
	Const
	Fnct
	In

	// Punctuation
	Dot
	ColonColon
	Arrow
	Ellipsis
	Eq
	Neq
	Leq
	Geq
	Lt
	Gt
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Comma
	Semi
	Colon
	Assign
	Plus
	Minus
	Star
	Slash
	Percent
	Amp
)

var kindNames = map[Kind]string{
	EOF:        "EOF",
	Ident:      "identifier",
	Number:     "integer literal",
	Float:      "float literal",
	Char:       "char literal",
	String:     "string literal",
	Include:    "include",
	Void:       "void",
	Return:     "return",
	If:         "if",
	Else:       "else",
	While:      "while",
	For:        "for",
	Foreach:    "foreach",
	Do:         "do",
	Switch:     "switch",
	Case:       "case",
	Default:    "default",
	Break:      "break",
	Struct:     "struct",
	Enum:       "enum",
	Type:       "type",
	Let:        "let",
	Macro:      "macro",
	Signed:     "signed",
	Unsigned:   "unsigned",
	Const:      "const",
	Fnct:       "fnct",
	In:         "in",
	Dot:        "'.'",
	ColonColon: "'::'",
	Arrow:      "'->'",
	Ellipsis:   "'...'",
	Eq:         "'=='",
	Neq:        "'!='",
	Leq:        "'<='",
	Geq:        "'>='",
	Lt:         "'<'",
	Gt:         "'>'",
	LParen:     "'('",
	RParen:     "')'",
	LBrace:     "'{'",
	RBrace:     "'}'",
	LBracket:   "'['",
	RBracket:   "']'",
	Comma:      "','",
	Semi:       "';'",
	Colon:      "':'",
	Assign:     "'='",
	Plus:       "'+'",
	Minus:      "'-'",
	Star:       "'*'",
	Slash:      "'/'",
	Percent:    "'%'",
	Amp:        "'&'",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Keywords maps reserved identifiers to their Kind.
var Keywords = map[string]Kind{
	"include":  Include,
	"void":     Void,
	"return":   Return,
	"if":       If,
	"else":     Else,
	"while":    While,
	"for":      For,
	"foreach":  Foreach,
	"do":       Do,
	"switch":   Switch,
	"case":     Case,
	"default":  Default,
	"break":    Break,
	"struct":   Struct,
	"enum":     Enum,
	"type":     Type,
	"let":      Let,
	"macro":    Macro,
	"signed":   Signed,
	"unsigned": Unsigned,
	"const":    Const,
	"fnct":     Fnct,
	"in":       In,
}

// Location is a 1-based line, 0-based column position in a source file.
type Location struct {
	Line   int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Token is a single lexeme with its source position.
type Token struct {
	Kind   Kind
	Lexeme string

	// IntValue holds the decoded ordinal for Char tokens and is unused
	// otherwise (Number/String/Ident keep their textual form in Lexeme
	// and are reparsed by the parser, matching how literals are
	// threaded through the rest of the pipeline).
	IntValue int64

	Loc Location
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%s", t.Kind, t.Lexeme, t.Loc)
}
