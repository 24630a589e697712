// Package hirtext provides a small fluent builder for HIR functions, the
// test-fixture counterpart to go-highway's cmd/hwygen/parser.go: where that
// parser turns a textual IR description into its ir.Function-equivalent,
// Builder turns a short sequence of Go method calls into one, so this
// repo's tests can express a fixture function in a few lines instead of
// hand-driving ir.Function's arena API directly.
package hirtext

import "github.com/gopherj/hir2masm/ir"

// Builder accumulates instructions into one ir.Function, tracking "the
// current block" so callers don't have to pass a BlockID to every call.
type Builder struct {
	F    *ir.Function
	cur  ir.BlockID
}

// NewBuilder starts building fn with fn's entry block as the current block.
func NewBuilder(fn *ir.Function) *Builder {
	return &Builder{F: fn, cur: fn.Entry}
}

// Block switches the current block to id, returning the Builder for
// chaining.
func (b *Builder) Block(id ir.BlockID) *Builder {
	b.cur = id
	return b
}

// NewBlock allocates a fresh block, makes it current, and returns its ID.
func (b *Builder) NewBlock() ir.BlockID {
	id := b.F.NewBlock()
	b.cur = id
	return id
}

// Param adds a parameter of type ty to the current block.
func (b *Builder) Param(ty ir.Type) ir.ValueID {
	return b.F.AddParam(b.cur, ty)
}

func (b *Builder) emit(op ir.Opcode, args []ir.ValueID, results []ir.Type) []ir.ValueID {
	return b.F.Emit(b.cur, ir.Instruction{Op: op, Args: args}, results)
}

func (b *Builder) Const(ty ir.Type, imm int64) ir.ValueID {
	rs := b.F.Emit(b.cur, ir.Instruction{Op: ir.OpConst, Imm: imm}, []ir.Type{ty})
	return rs[0]
}

func (b *Builder) IAdd(x, y ir.ValueID) ir.ValueID {
	return b.emit(ir.OpIAdd, []ir.ValueID{x, y}, []ir.Type{b.F.ValueType(x)})[0]
}

func (b *Builder) ISub(x, y ir.ValueID) ir.ValueID {
	return b.emit(ir.OpISub, []ir.ValueID{x, y}, []ir.Type{b.F.ValueType(x)})[0]
}

func (b *Builder) IMul(x, y ir.ValueID) ir.ValueID {
	return b.emit(ir.OpIMul, []ir.ValueID{x, y}, []ir.Type{b.F.ValueType(x)})[0]
}

func (b *Builder) ICmp(pred ir.Predicate, x, y ir.ValueID) ir.ValueID {
	rs := b.F.Emit(b.cur, ir.Instruction{Op: ir.OpICmp, Args: []ir.ValueID{x, y}, Predicate: pred}, []ir.Type{ir.Scalar(ir.I1)})
	return rs[0]
}

func (b *Builder) IDiv(x, y ir.ValueID) ir.ValueID {
	return b.emit(ir.OpIDiv, []ir.ValueID{x, y}, []ir.Type{b.F.ValueType(x)})[0]
}

// Call emits a call to an intrinsic or sibling function. crossContext
// selects MASM's `call` rather than `exec` (spec.md 4.7).
func (b *Builder) Call(symbol string, crossContext bool, args []ir.ValueID, resultTypes []ir.Type) []ir.ValueID {
	return b.F.Emit(b.cur, ir.Instruction{
		Op: ir.OpCall, Args: args, Symbol: symbol, CrossContext: crossContext,
	}, resultTypes)
}

// Br emits an unconditional branch to target, passing args in target's
// parameter order. It is the caller's responsibility to make this the
// block's terminating instruction.
func (b *Builder) Br(target ir.BlockID, args []ir.ValueID) {
	b.F.Emit(b.cur, ir.Instruction{
		Op: ir.OpBr, Targets: []ir.BlockID{target}, BlockArgs: [][]ir.ValueID{args},
	}, nil)
}

// BrIf emits a conditional branch: trueTarget/trueArgs if cond is
// non-zero, falseTarget/falseArgs otherwise.
func (b *Builder) BrIf(cond ir.ValueID, trueTarget ir.BlockID, trueArgs []ir.ValueID, falseTarget ir.BlockID, falseArgs []ir.ValueID) {
	b.F.Emit(b.cur, ir.Instruction{
		Op:        ir.OpBrIf,
		Args:      []ir.ValueID{cond},
		Targets:   []ir.BlockID{trueTarget, falseTarget},
		BlockArgs: [][]ir.ValueID{trueArgs, falseArgs},
	}, nil)
}

func (b *Builder) Return(args []ir.ValueID) {
	b.F.Emit(b.cur, ir.Instruction{Op: ir.OpReturn, Args: args}, nil)
}
