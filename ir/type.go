// Package ir defines the High-level IR (HIR) consumed by the code generator:
// arena-indexed values, instructions, blocks and functions forming SSA-form
// control flow graphs.
package ir

import "fmt"

// Kind enumerates the closed set of HIR types. Aggregates (Struct, Array)
// carry additional descriptors in Type.
type Kind uint8

const (
	I1 Kind = iota
	I8
	I16
	I32
	I64
	// Felt is the native 64-bit prime-field element of the target VM
	// (modulus 2^64 - 2^32 + 1).
	Felt
	Ptr
	Struct
	Array
)

func (k Kind) String() string {
	switch k {
	case I1:
		return "i1"
	case I8:
		return "i8"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case Felt:
		return "felt"
	case Ptr:
		return "ptr"
	case Struct:
		return "struct"
	case Array:
		return "array"
	default:
		return "unknown"
	}
}

// Type describes the type of a Value. Scalar kinds need nothing further;
// Struct and Array carry field/element descriptors.
type Type struct {
	Kind Kind
	// Fields holds member types for Struct, in declaration order.
	Fields []Type
	// Elem is the element type for Array.
	Elem *Type
	// Len is the element count for Array.
	Len int
}

func Scalar(k Kind) Type { return Type{Kind: k} }

func ArrayOf(elem Type, n int) Type {
	e := elem
	return Type{Kind: Array, Elem: &e, Len: n}
}

func StructOf(fields ...Type) Type {
	return Type{Kind: Struct, Fields: fields}
}

// SizeOf returns the size of the type in stack elements (each element is
// one felt), for the scalar and aggregate kinds the emitter needs to
// address. Sub-felt integer kinds occupy a single element with masking
// applied at use.
func SizeOf(t Type) int {
	switch t.Kind {
	case Struct:
		n := 0
		for _, f := range t.Fields {
			n += SizeOf(f)
		}
		return n
	case Array:
		return SizeOf(*t.Elem) * t.Len
	default:
		return 1
	}
}

// IsWord reports whether a value of this type occupies exactly four stack
// elements ("a word" in MASM parlance), the unit dup/drop operate on via
// the `w`-suffixed primitives (dupw, dropw, ...).
func IsWord(t Type) bool { return SizeOf(t) == 4 }

func (t Type) String() string {
	switch t.Kind {
	case Array:
		return fmt.Sprintf("[%d x %s]", t.Len, t.Elem)
	case Struct:
		return fmt.Sprintf("struct%v", t.Fields)
	default:
		return t.Kind.String()
	}
}

func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case Array:
		return t.Len == o.Len && t.Elem.Equal(*o.Elem)
	case Struct:
		if len(t.Fields) != len(o.Fields) {
			return false
		}
		for i := range t.Fields {
			if !t.Fields[i].Equal(o.Fields[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}
