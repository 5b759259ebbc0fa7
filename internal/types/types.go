// Package types implements C5's type lattice as an explicit tagged
// variant, per spec.md §9's REDESIGN FLAGS: the original implementation
// encodes types as free-form strings ("unsigned int<32>*") and re-parses
// them throughout; this rewrite uses a sum type instead, eliminating that
// family of string-parsing bugs while still rendering the exact canonical
// textual form the rest of the toolchain (and its diagnostics) expect.
package types

import (
	"fmt"
	"strings"
)

// Kind discriminates the variants of Type.
type Kind int

const (
	Invalid Kind = iota
	VoidKind
	IntKind
	CharKind
	FloatKind
	StringKind
	PointerKind
	ArrayKind
	StructKind
	EnumKind
	AliasKind
	FuncPointerKind
)

// Type is the canonical representation of a C5 type. Only the fields
// relevant to Kind are meaningful; zero value of unused fields is ignored.
type Type struct {
	Kind Kind

	// Bits is the width for IntKind (default 64) and FloatKind (32 or 64).
	// CharKind is always 8 bits; BitWidth reports 8 for it whatever Bits
	// holds (the Char value sets it to 8).
	Bits int

	// Elem is the pointee type (PointerKind) or the element type
	// (ArrayKind).
	Elem *Type

	// Name is the declared identifier for StructKind/EnumKind/AliasKind.
	Name string

	Signed   bool
	Unsigned bool
	Const    bool
}

// Void, Int, Char, StringType, Float, FuncPtr and Unknown are canonical
// values for convenient comparison and construction.
var (
	Void       = Type{Kind: VoidKind}
	Int        = Type{Kind: IntKind, Bits: 64}
	Char       = Type{Kind: CharKind, Bits: 8}
	StringType = Type{Kind: StringKind}
	Float      = Type{Kind: FloatKind, Bits: 64}
	FuncPtr    = Type{Kind: FuncPointerKind}
	Unknown    = Type{Kind: Invalid, Name: "unknown"}
)

// SizedInt returns int<N>.
func SizedInt(bits int) Type { return Type{Kind: IntKind, Bits: bits} }

// SizedFloat returns float<N>.
func SizedFloat(bits int) Type { return Type{Kind: FloatKind, Bits: bits} }

// PointerTo returns a pointer to t.
func PointerTo(t Type) Type {
	cp := t
	return Type{Kind: PointerKind, Elem: &cp}
}

// ArrayOf returns array<t>.
func ArrayOf(t Type) Type {
	cp := t
	return Type{Kind: ArrayKind, Elem: &cp}
}

// Struct returns a named struct reference.
func Struct(name string) Type { return Type{Kind: StructKind, Name: name} }

// Enum returns a named enum reference.
func Enum(name string) Type { return Type{Kind: EnumKind, Name: name} }

// Alias returns a named tagged-union alias reference.
func Alias(name string) Type { return Type{Kind: AliasKind, Name: name} }

// WithConst returns a copy of t with the const attribute set.
func (t Type) WithConst() Type {
	t.Const = true
	return t
}

// WithSign returns a copy of t with signed/unsigned set. Passing
// signed=false, unsigned=false clears both (the default, plain-signed
// state for integer types).
func (t Type) WithSign(signed, unsigned bool) Type {
	t.Signed = signed
	t.Unsigned = unsigned
	return t
}

// StripConst returns a copy of t with the const attribute cleared.
func (t Type) StripConst() Type {
	t.Const = false
	return t
}

// IsPointer reports whether t is a pointer type.
func (t Type) IsPointer() bool { return t.Kind == PointerKind }

// IsArray reports whether t is a dynamic-array type.
func (t Type) IsArray() bool { return t.Kind == ArrayKind }

// IsInteger reports whether t is an integer-kind type (int/char/int<N>),
// ignoring signedness and const.
func (t Type) IsInteger() bool { return t.Kind == IntKind || t.Kind == CharKind }

// IsFloat reports whether t is a floating-point type.
func (t Type) IsFloat() bool { return t.Kind == FloatKind }

// IsVoid reports whether t is void.
func (t Type) IsVoid() bool { return t.Kind == VoidKind }

// BitWidth returns the storage width, in bits, of an integer-kind type.
func (t Type) BitWidth() int {
	if t.Kind == CharKind {
		return 8
	}
	if t.Kind == IntKind {
		if t.Bits == 0 {
			return 64
		}
		return t.Bits
	}
	return 0
}

// Equal reports whether two types denote the same canonical type,
// ignoring const (const is a write-protection attribute, not part of a
// type's storage identity — see spec.md §4.5 `_types_compatible`).
func (t Type) Equal(o Type) bool {
	a, b := normalize(t), normalize(o)
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case PointerKind:
		return a.Elem.Equal(*b.Elem)
	case ArrayKind:
		return a.Elem.Equal(*b.Elem)
	case StructKind, EnumKind, AliasKind:
		return a.Name == b.Name
	case IntKind:
		return a.BitWidth() == b.BitWidth() && a.Unsigned == b.Unsigned
	case FloatKind:
		bw := a.Bits
		if bw == 0 {
			bw = 64
		}
		obw := b.Bits
		if obw == 0 {
			obw = 64
		}
		return bw == obw
	default:
		return true
	}
}

// normalize strips const and fills in default bit widths (int ≡ int<64>,
// float ≡ float<64>) per spec.md §4.5.
func normalize(t Type) Type {
	t.Const = false
	if t.Kind == IntKind && t.Bits == 0 {
		t.Bits = 64
	}
	if t.Kind == FloatKind && t.Bits == 0 {
		t.Bits = 64
	}
	return t
}

// Normalize exposes normalize for callers in other packages (sema's
// _types_compatible / analyzer equivalents).
func Normalize(t Type) Type { return normalize(t) }

// String renders the canonical textual form described in spec.md §3,
// e.g. "unsigned int<32>*", matching what diagnostics and the pre-rewrite
// source would have produced.
func (t Type) String() string {
	var b strings.Builder
	if t.Const {
		b.WriteString("const ")
	}
	if t.Unsigned {
		b.WriteString("unsigned ")
	} else if t.Signed {
		b.WriteString("signed ")
	}

	switch t.Kind {
	case VoidKind:
		b.WriteString("void")
	case IntKind:
		if t.Bits == 0 || t.Bits == 64 {
			b.WriteString("int")
		} else {
			fmt.Fprintf(&b, "int<%d>", t.Bits)
		}
	case CharKind:
		b.WriteString("char")
	case FloatKind:
		if t.Bits == 0 || t.Bits == 64 {
			b.WriteString("float")
		} else {
			fmt.Fprintf(&b, "float<%d>", t.Bits)
		}
	case StringKind:
		b.WriteString("string")
	case PointerKind:
		b.WriteString(t.Elem.String())
		b.WriteString("*")
	case ArrayKind:
		fmt.Fprintf(&b, "array<%s>", t.Elem.String())
	case StructKind, EnumKind, AliasKind:
		b.WriteString(t.Name)
	case FuncPointerKind:
		b.WriteString("fnptr")
	default:
		b.WriteString("unknown")
	}
	return b.String()
}

// PointerDepth returns how many '*' trail the type, i.e. 0 for a
// non-pointer and N for N nested PointerKind wraps.
func (t Type) PointerDepth() int {
	n := 0
	cur := t
	for cur.Kind == PointerKind {
		n++
		cur = *cur.Elem
	}
	return n
}
