package ir

// SwitchCase maps one discriminant key to a target block plus the block
// arguments supplied at that edge.
type SwitchCase struct {
	Key    int64
	Target BlockID
	Args   []ValueID
}

// Instruction is an HIR operation: zero or more Value operands, zero or
// more Value results. Fields beyond Op/Args/Results are populated only for
// the opcodes that need them; this mirrors wazero's ssa.Instruction, which
// carries a superset of fields gated by the instruction's opcode rather
// than one struct type per opcode, so that instructions remain arena
// values (no boxing, no per-kind allocation).
type Instruction struct {
	ID      InstID
	Op      Opcode
	Args    []ValueID
	Results []ValueID
	Span    Span

	// OpICmp
	Predicate Predicate

	// OpConst: immediate value. Interpreted according to the single
	// result's type.
	Imm int64

	// OpLoad/OpStore: width in bits of the memory access, for sub-word
	// masking/shifting (1/8/16/32/64).
	MemWidth int

	// OpGlobalLoad/OpGlobalStore/OpCall
	Symbol string

	// OpCall: true if the callee lives in a different calling context and
	// must be reached via `call` rather than `exec`.
	CrossContext bool

	// OpBr: single target.
	// OpBrIf: Targets[0] = true-branch, Targets[1] = false-branch.
	// OpSwitch: Targets holds one entry per SwitchCases entry plus a
	// trailing default, mirrored in Cases/Default for convenience.
	Targets   []BlockID
	BlockArgs [][]ValueID

	// OpSwitch
	Cases   []SwitchCase
	Default BlockID
	DefArgs []ValueID
}

// NumOperands keeps call sites from reaching into Args
// directly when the semantics (e.g. commutative reordering) matter.
func (i *Instruction) NumOperands() int { return len(i.Args) }

func (i *Instruction) IsTerminator() bool { return i.Op.IsTerminator() }

// IsCommutative reports whether operand order does not affect semantics,
// allowing the emitter to pick the order that minimizes stack shuffles
// (spec.md 4.7 step 1).
func (i *Instruction) IsCommutative() bool {
	switch i.Op {
	case OpIAdd, OpIMul, OpAnd, OpOr, OpXor:
		return true
	case OpICmp:
		return i.Predicate == Eq || i.Predicate == Neq
	default:
		return false
	}
}
