package ir

// Opcode enumerates HIR instruction operations. Code generation dispatches
// on this via a closed switch (per spec: "dispatch on instruction opcode
// via a closed match on the HIR-opcode enumeration", avoiding open-ended
// virtual dispatch on the hot codegen path).
type Opcode uint8

const (
	OpInvalid Opcode = iota

	// Arithmetic
	OpIAdd
	OpISub
	OpIMul
	OpIDiv // signed/unsigned division, resolved to an intrinsic for every integer width
	OpINeg

	// Bitwise
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr

	// Comparison; Predicate field selects eq/neq/lt/gt/lte/gte.
	OpICmp

	// Constants
	OpConst

	// Memory
	OpLoad
	OpStore
	// Global variable access; Symbol names the global, resolved via the
	// layout supplied to the emitter.
	OpGlobalLoad
	OpGlobalStore

	// Calls
	OpCall

	// Conversion
	OpTrunc
	OpZExt
	OpSExt

	// Terminators
	OpBr
	OpBrIf
	OpSwitch
	OpReturn
	OpUnreachable
)

func (op Opcode) IsTerminator() bool {
	switch op {
	case OpBr, OpBrIf, OpSwitch, OpReturn, OpUnreachable:
		return true
	default:
		return false
	}
}

func (op Opcode) String() string {
	switch op {
	case OpIAdd:
		return "iadd"
	case OpISub:
		return "isub"
	case OpIMul:
		return "imul"
	case OpIDiv:
		return "idiv"
	case OpINeg:
		return "ineg"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpXor:
		return "xor"
	case OpShl:
		return "shl"
	case OpShr:
		return "shr"
	case OpICmp:
		return "icmp"
	case OpConst:
		return "const"
	case OpLoad:
		return "load"
	case OpStore:
		return "store"
	case OpGlobalLoad:
		return "global.load"
	case OpGlobalStore:
		return "global.store"
	case OpCall:
		return "call"
	case OpTrunc:
		return "trunc"
	case OpZExt:
		return "zext"
	case OpSExt:
		return "sext"
	case OpBr:
		return "br"
	case OpBrIf:
		return "br_if"
	case OpSwitch:
		return "switch"
	case OpReturn:
		return "return"
	case OpUnreachable:
		return "unreachable"
	default:
		return "invalid"
	}
}

// Predicate selects the comparison performed by OpICmp.
type Predicate uint8

const (
	Eq Predicate = iota
	Neq
	Lt
	Gt
	Lte
	Gte
)

func (p Predicate) String() string {
	switch p {
	case Eq:
		return "eq"
	case Neq:
		return "neq"
	case Lt:
		return "lt"
	case Gt:
		return "gt"
	case Lte:
		return "lte"
	case Gte:
		return "gte"
	default:
		return "?"
	}
}
