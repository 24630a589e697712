// Package masm models the target stack-machine assembly language the code
// generator emits: a fixed vocabulary of stack manipulators,
// arithmetic/bitwise primitives, memory ops, structured control, and
// procedure calls (spec.md 6.4).
package masm

import "fmt"

// OpKind is the MASM op vocabulary tag.
type OpKind uint8

const (
	// Stack manipulation
	OpDup OpKind = iota
	OpDupW
	OpSwap
	OpSwapW
	OpMovUp
	OpMovDn
	OpDrop
	OpDropW

	// Arithmetic / bitwise (felt and u32 variants distinguished by Variant)
	OpAdd
	OpSub
	OpMul
	OpEq
	OpNeq
	OpLt
	OpGt
	OpLte
	OpGte
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr

	// Memory
	OpMemLoad
	OpMemStore
	OpMemLoadW
	OpMemStoreW
	OpPush

	// Control (structured)
	OpIfTrue
	OpElse
	OpWhileTrue
	OpRepeat
	OpEnd

	// Call
	OpExec
	OpCall
)

// Variant distinguishes felt arithmetic from the checked/wrapping/
// overflowing u32 variants of the same operator.
type Variant uint8

const (
	VariantFelt Variant = iota
	VariantU32Wrapping
	VariantU32Checked
	VariantU32Overflowing
	VariantU32Plain
)

// Op is a single MASM instruction.
type Op struct {
	Kind    OpKind
	N       int     // operand index for dup.n/swap.n/movup.n/movdn.n/repeat.N
	Imm     int64   // push.<imm>
	Path    string  // exec.<path> / call.<path>
	Variant Variant // arithmetic/bitwise variant
}

func Dup(n int) Op     { return Op{Kind: OpDup, N: n} }
func DupW(n int) Op    { return Op{Kind: OpDupW, N: n} }
func Swap(n int) Op    { return Op{Kind: OpSwap, N: n} }
func SwapW(n int) Op   { return Op{Kind: OpSwapW, N: n} }
func MovUp(n int) Op   { return Op{Kind: OpMovUp, N: n} }
func MovDn(n int) Op   { return Op{Kind: OpMovDn, N: n} }
func Drop() Op         { return Op{Kind: OpDrop} }
func DropW() Op        { return Op{Kind: OpDropW} }
func Push(imm int64) Op { return Op{Kind: OpPush, Imm: imm} }
func Exec(path string) Op { return Op{Kind: OpExec, Path: path} }
func Call(path string) Op { return Op{Kind: OpCall, Path: path} }

func Arith(kind OpKind, v Variant) Op { return Op{Kind: kind, Variant: v} }

func (o Op) String() string {
	switch o.Kind {
	case OpDup:
		return fmt.Sprintf("dup.%d", o.N)
	case OpDupW:
		return fmt.Sprintf("dupw.%d", o.N)
	case OpSwap:
		return fmt.Sprintf("swap.%d", o.N)
	case OpSwapW:
		return fmt.Sprintf("swapw.%d", o.N)
	case OpMovUp:
		return fmt.Sprintf("movup.%d", o.N)
	case OpMovDn:
		return fmt.Sprintf("movdn.%d", o.N)
	case OpDrop:
		return "drop"
	case OpDropW:
		return "dropw"
	case OpPush:
		return fmt.Sprintf("push.%d", o.Imm)
	case OpExec:
		return "exec." + o.Path
	case OpCall:
		return "call." + o.Path
	case OpIfTrue:
		return "if.true"
	case OpElse:
		return "else"
	case OpWhileTrue:
		return "while.true"
	case OpRepeat:
		return fmt.Sprintf("repeat.%d", o.N)
	case OpEnd:
		return "end"
	case OpMemLoad:
		return "mem_load"
	case OpMemStore:
		return "mem_store"
	case OpMemLoadW:
		return "mem_loadw"
	case OpMemStoreW:
		return "mem_storew"
	default:
		return o.arithString()
	}
}

func (o Op) arithString() string {
	base := map[OpKind]string{
		OpAdd: "add", OpSub: "sub", OpMul: "mul",
		OpEq: "eq", OpNeq: "neq", OpLt: "lt", OpGt: "gt", OpLte: "lte", OpGte: "gte",
		OpAnd: "and", OpOr: "or", OpXor: "xor", OpShl: "shl", OpShr: "shr",
	}[o.Kind]
	switch o.Variant {
	case VariantU32Wrapping:
		return "u32wrapping_" + base
	case VariantU32Checked:
		return "u32checked_" + base
	case VariantU32Overflowing:
		return "u32overflowing_" + base
	case VariantU32Plain:
		return "u32" + base
	default:
		return base
	}
}
