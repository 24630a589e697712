package codegen

import (
	"fmt"

	"github.com/gopherj/hir2masm/analysis"
	"github.com/gopherj/hir2masm/ir"
	"github.com/gopherj/hir2masm/masm"
)

// Diagnostic is a fatal emitter-time error, named per spec.md 7's taxonomy.
type Diagnostic struct {
	Kind    string
	Span    ir.Span
	Message string
}

func (d Diagnostic) Error() string { return fmt.Sprintf("%s: %s (%s)", d.Kind, d.Message, d.Span) }

const (
	KindInvariantViolation   = "invariant-violation"
	KindUnsupportedConstruct = "unsupported-construct"
	KindIntrinsicNotFound    = "intrinsic-not-found"
	KindMergeMismatch        = "merge-mismatch"
	KindConfiguration        = "configuration"
)

type whileFrame struct {
	header     ir.BlockID
	entryShape []TypedValue
	// exitShape is the model as a top-tested loop's guard left it (condition
	// copy on top); such a loop exits from there, not from the back edge.
	exitShape []TypedValue
}

// Emitter walks a Schedule, translating each HIR instruction into MASM ops
// and materializing the stack shuffles the OperandStack model reports are
// necessary (spec.md 4.7). One Emitter emits exactly one Function.
type Emitter struct {
	f       *ir.Function
	fn      *masm.Function
	lf      *analysis.LoopForest
	live    *analysis.Liveness
	globals map[string]ir.GlobalVar

	stack OperandStack
	preds map[ir.BlockID][]ir.BlockID

	currentBlock ir.BlockID
	currentIndex int

	thenShapes    [][]TypedValue
	ifEntryShapes [][]TypedValue
	whileStk      []whileFrame

	intrinsics map[string]bool
	diags      []error
}

func NewEmitter(f *ir.Function, fn *masm.Function, dt *analysis.DominatorTree, lf *analysis.LoopForest, live *analysis.Liveness, globals map[string]ir.GlobalVar) *Emitter {
	_ = dt // reserved: not needed directly by the emitter today, kept for a uniform constructor signature with the scheduler
	return &Emitter{f: f, fn: fn, lf: lf, live: live, globals: globals, preds: f.Preds(), intrinsics: map[string]bool{}}
}

// Emit consumes a Schedule, starting from the given initial OperandStack
// (the function's arguments, already pushed by the caller in entry-param
// order). Returns any fatal diagnostics collected, and the set of
// intrinsic paths this function referenced. The driver uses these paths to
// add the intrinsic bodies to the program; it records no module imports
// for them.
func (e *Emitter) Emit(sched Schedule, initial OperandStack) (intrinsicsUsed []string, diags []error) {
	e.stack = initial
	for _, op := range sched {
		switch op.Kind {
		case SchedBlock:
			e.currentBlock = op.Block
			e.currentIndex = -1
			e.enterBlock(op.Block)
			if n := len(e.whileStk); n > 0 {
				frame := &e.whileStk[n-1]
				if frame.header == op.Block && frame.entryShape == nil {
					frame.entryShape = e.stack.Snapshot()
				}
			}
		case SchedInst:
			e.currentIndex++
			e.emitInst(e.f.Inst(op.Inst))
		case SchedDrop:
			e.emitDrop(op.Value)
		case SchedEnterIf:
			if op.SwitchCase {
				e.emitSwitchTest(op.Value, op.CaseKey)
			}
			e.fn.Emit(masm.Op{Kind: masm.OpIfTrue})
			// if.true pops its condition at runtime (masmvm's OpIfTrue case);
			// the model must follow suit or every depth computed inside
			// either arm comes out one too deep.
			e.stack.Pop()
			e.ifEntryShapes = append(e.ifEntryShapes, e.stack.Snapshot())
		case SchedElse:
			e.thenShapes = append(e.thenShapes, e.stack.Snapshot())
			entryShape := e.ifEntryShapes[len(e.ifEntryShapes)-1]
			e.ifEntryShapes = e.ifEntryShapes[:len(e.ifEntryShapes)-1]
			// The real VM starts the else arm from the same post-condition
			// stack the then arm started from, not from wherever the then
			// arm happened to leave the model: restore the snapshot taken
			// at SchedEnterIf before walking the else arm.
			e.stack.Restore(entryShape)
			e.fn.Emit(masm.Op{Kind: masm.OpElse})
		case SchedExitIf:
			elseShape := e.stack.Snapshot()
			thenShape := e.thenShapes[len(e.thenShapes)-1]
			e.thenShapes = e.thenShapes[:len(e.thenShapes)-1]
			if !shapeTypesEqual(thenShape, elseShape) {
				e.diag(KindMergeMismatch, ir.Span{}, fmt.Sprintf(
					"if/else arms leave different stack shapes: then=%v else=%v", describeShape(thenShape), describeShape(elseShape)))
			}
			e.fn.Emit(masm.Op{Kind: masm.OpEnd})
		case SchedEnterWhile:
			// The loop is always entered at least once: while.true's own test
			// is a synthesized `true`, not a value from the HIR (a real
			// zero-trip guard, if one is needed, shows up as an ordinary
			// If/Else around the loop in the HIR itself). Nothing is pushed
			// onto the model for it since nothing ever looks it up again.
			e.fn.Emit(masm.Push(1))
			e.fn.Emit(masm.Op{Kind: masm.OpWhileTrue})
			e.whileStk = append(e.whileStk, whileFrame{header: op.Block})
		case SchedExitWhile:
			frame := e.whileStk[len(e.whileStk)-1]
			e.whileStk = e.whileStk[:len(e.whileStk)-1]
			// The closing `end` pops the continuation test left by the
			// back-edge branch (masmvm's isWhileEnd case) before deciding
			// whether to repeat; compare net of that pop, same as entryShape
			// was taken net of while.true's.
			e.stack.Pop()
			backShape := e.stack.Snapshot()
			// backShape may run longer than entryShape: a value the exit
			// block needs straight from the header, never threaded through
			// the body itself, is kept (dup'd) on the model by
			// arrangeOperands' liveness check and survives below the
			// header's own shape. Only that shape is the loop's own
			// invariant; extra trailing survivors are exit's business.
			checked := backShape
			if len(checked) > len(frame.entryShape) {
				checked = checked[:len(frame.entryShape)]
			}
			if !shapeTypesEqual(frame.entryShape, checked) {
				e.diag(KindMergeMismatch, ir.Span{}, fmt.Sprintf(
					"loop back-edge stack shape does not match header entry: entry=%v back-edge=%v",
					describeShape(frame.entryShape), describeShape(backShape)))
			}
			if frame.exitShape != nil {
				e.stack.Restore(frame.exitShape)
				e.stack.Pop()
			}
			e.fn.Emit(masm.Op{Kind: masm.OpEnd})
		case SchedLoopGuard:
			// A top-tested loop's own continuation test, bracketed here
			// rather than with SchedEnterIf/SchedElse since it has no else
			// arm (schedule.go's OpBrIf case): emitBrIf already duplicated
			// the condition for this, so one copy is consumed exactly like
			// an ordinary if.true, leaving the other on the model for
			// SchedLoopGuardEnd to recover once the body has run.
			e.fn.Emit(masm.Op{Kind: masm.OpIfTrue})
			e.stack.Pop()
			e.whileStk[len(e.whileStk)-1].exitShape = e.stack.Snapshot()
		case SchedLoopGuardEnd:
			// The body's own stack traffic, including its back-edge
			// rearrangement into the header's parameter shape, may have
			// buried the surviving condition copy; bring it back to the top
			// so it is exactly what while.true's closing end pops as the
			// re-test (a no-op, by construction, on the path where the
			// guard was never entered and the body never ran).
			if depth := e.stack.Find(op.Value); depth >= 0 {
				e.fn.Emit(e.stack.MoveToTop(depth)...)
			} else {
				e.diag(KindInvariantViolation, ir.Span{}, fmt.Sprintf("loop guard condition %s not on operand stack", op.Value))
			}
			e.fn.Emit(masm.Op{Kind: masm.OpEnd})
		}
	}
	used := make([]string, 0, len(e.intrinsics))
	for path := range e.intrinsics {
		used = append(used, path)
	}
	return used, e.diags
}

func (e *Emitter) diag(kind string, span ir.Span, msg string) {
	e.diags = append(e.diags, Diagnostic{Kind: kind, Span: span, Message: msg})
}

// shapeTypesEqual is the merge-shape check spec.md 4.7/P6 calls for,
// compared by type sequence rather than raw Value identity: after
// rewrite.Treeify the two arms of an If/Else (or a loop's entry vs its
// back-edge) are, in general, different cloned blocks computing distinct
// Values for the same logical "slot" (e.g. `x+1` in the then-arm vs `y+2`
// in the else-arm of spec.md scenario S3) -- comparing raw Value identity
// would reject every such program. This is the emitter's reading of
// spec.md's "Value-by-Value, type-by-type" wording.
func shapeTypesEqual(a, b []TypedValue) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Type.Equal(b[i].Type) {
			return false
		}
	}
	return true
}

func describeShape(s []TypedValue) []string {
	out := make([]string, len(s))
	for i, tv := range s {
		out[i] = tv.Type.String()
	}
	return out
}

// forwardPredArgs finds b's unique non-back-edge predecessor (guaranteed by
// rewrite.Treeify for every block but the entry, and for loop headers
// ignoring their back-edge sources) and returns the Values that edge passes,
// in b's parameter order.
func (e *Emitter) forwardPredArgs(b ir.BlockID) []ir.ValueID {
	if b == e.f.Entry {
		return nil
	}
	backs := map[ir.BlockID]bool{}
	if e.lf.IsHeader(b) {
		for _, src := range e.lf.BackEdges(b) {
			backs[src] = true
		}
	}
	for _, p := range e.preds[b] {
		if backs[p] {
			continue
		}
		term := e.f.Block(p).Terminator(e.f)
		return ir.BlockArgsTo(term, b)
	}
	return nil
}

// enterBlock brings b's incoming arguments to the top of the stack in b's
// parameter order, then renames those positions to b's own Param Values
// (spec.md 4.7: "assert the model's top matches b's parameter vector").
// The function's entry block needs no reconciliation: the driver already
// pushed its arguments directly as the entry's own Params.
func (e *Emitter) enterBlock(b ir.BlockID) {
	if b != e.f.Entry {
		e.arrangeTop(e.forwardPredArgs(b))
	}
	params := e.f.Block(b).Params
	if len(params) > e.stack.Depth() {
		e.diag(KindInvariantViolation, ir.Span{}, fmt.Sprintf("block %s expects %d params but only %d values are live", b, len(params), e.stack.Depth()))
		return
	}
	for i, p := range params {
		want := e.f.ValueType(p)
		got := e.stack.entries[i].Type
		if !want.Equal(got) {
			e.diag(KindInvariantViolation, ir.Span{}, fmt.Sprintf("block %s param %d type mismatch: want %s got %s", b, i, want, got))
		}
		e.stack.entries[i].Value = p
	}
}

// arrangeTop rearranges the operand stack so that, top-to-bottom, it reads
// vals[0], vals[1], ..., vals[n-1]. A value needed again later in vals (a
// duplicate earlier in the list, scanning left to right) is duplicated in
// place; its last occurrence (processed first, scanning right to left) is
// moved, consuming its old position.
func (e *Emitter) arrangeTop(vals []ir.ValueID) {
	seen := make(map[ir.ValueID]bool, len(vals))
	for i := len(vals) - 1; i >= 0; i-- {
		v := vals[i]
		depth := e.stack.Find(v)
		if depth < 0 {
			e.diag(KindInvariantViolation, ir.Span{}, fmt.Sprintf("value %s expected on operand stack but not found", v))
			continue
		}
		if seen[v] {
			e.fn.Emit(e.stack.Dup(depth)...)
		} else {
			seen[v] = true
			e.fn.Emit(e.stack.MoveToTop(depth)...)
		}
	}
}

func (e *Emitter) emitDrop(v ir.ValueID) {
	depth := e.stack.Find(v)
	if depth < 0 {
		return
	}
	e.fn.Emit(e.stack.MoveToTop(depth)...)
	e.fn.Emit(e.stack.DropTop(1)...)
}

// pushImm emits a literal and records it on the model under a sentinel
// Value identity: nothing downstream ever looks an immediate up by Value,
// so ir.ValueInvalid is an adequate placeholder.
func (e *Emitter) pushImm(imm int64, ty ir.Type) {
	e.fn.Emit(masm.Push(imm))
	e.stack.entries = append([]TypedValue{{Value: ir.ValueInvalid, Type: ty}}, e.stack.entries...)
}

// replaceTopN pops n entries and pushes a single fresh entry of type ty
// under sentinel identity v, the bookkeeping half of any op the emitter
// issues manually (arithmetic, comparisons) rather than through
// OperandStack's own Push/Pop pair.
func (e *Emitter) replaceTopN(n int, v ir.ValueID, ty ir.Type) {
	for i := 0; i < n; i++ {
		e.stack.Pop()
	}
	e.stack.Push(v, ty)
}

func (e *Emitter) pointAfterCurrent() analysis.ProgramPoint {
	return analysis.ProgramPoint{Block: e.currentBlock, Index: e.currentIndex}
}

// arrangeOperands brings inst's operands to the top of the stack in MASM's
// expected order, duplicating any operand this instruction is not the last
// use of (spec.md 4.7 step 1-2). Two-operand arithmetic and comparisons
// pop b from the top and a beneath it, so Args[1] ends up on top and
// Args[0] just below; a commutative pair is swapped when that moves the
// operand already nearer the top first. Every other instruction (loads,
// stores, calls, division) gets Args[0] on top and Args[len-1] deepest.
func (e *Emitter) arrangeOperands(inst *ir.Instruction) {
	args := inst.Args
	switch inst.Op {
	case ir.OpIAdd, ir.OpISub, ir.OpIMul, ir.OpAnd, ir.OpOr, ir.OpXor, ir.OpShl, ir.OpShr, ir.OpICmp:
		if len(args) == 2 {
			// The loop below leaves its list's first entry on top.
			args = []ir.ValueID{args[1], args[0]}
			if inst.IsCommutative() && e.stack.Find(args[0]) < e.stack.Find(args[1]) {
				args = inst.Args
			}
		}
	}
	pp := e.pointAfterCurrent()
	for i := len(args) - 1; i >= 0; i-- {
		v := args[i]
		depth := e.stack.Find(v)
		if depth < 0 {
			e.diag(KindInvariantViolation, inst.Span, fmt.Sprintf("operand %s of %s not on operand stack", v, inst.Op))
			continue
		}
		if e.live.IsLiveAfter(e.f, v, pp) {
			e.fn.Emit(e.stack.Dup(depth)...)
		} else {
			e.fn.Emit(e.stack.MoveToTop(depth)...)
		}
	}
}

func variantFor(ty ir.Type) masm.Variant {
	if ty.Kind == ir.Felt || ty.Kind == ir.I64 {
		return masm.VariantFelt
	}
	return masm.VariantU32Wrapping
}

func (e *Emitter) emitInst(inst *ir.Instruction) {
	switch inst.Op {
	case ir.OpConst:
		e.emitConst(inst)
	case ir.OpIAdd, ir.OpISub, ir.OpIMul, ir.OpAnd, ir.OpOr, ir.OpXor, ir.OpShl, ir.OpShr:
		e.emitBinary(inst)
	case ir.OpIDiv:
		e.emitDiv(inst)
	case ir.OpINeg:
		e.emitNeg(inst)
	case ir.OpICmp:
		e.emitCmp(inst)
	case ir.OpLoad:
		e.emitLoad(inst)
	case ir.OpStore:
		e.emitStore(inst)
	case ir.OpGlobalLoad:
		e.emitGlobalLoad(inst)
	case ir.OpGlobalStore:
		e.emitGlobalStore(inst)
	case ir.OpCall:
		e.emitCall(inst)
	case ir.OpTrunc, ir.OpZExt, ir.OpSExt:
		e.emitConvert(inst)
	case ir.OpBr:
		e.emitBr(inst)
	case ir.OpBrIf:
		e.emitBrIf(inst)
	case ir.OpSwitch:
		// The discriminant comparisons and If brackets are synthesized by
		// the emitter's SchedEnterIf handling (see emitSwitchTest), driven
		// by the SwitchCase/CaseKey fields the scheduler attached -- there
		// is no per-case HIR instruction to translate here.
	case ir.OpReturn:
		e.emitReturn(inst)
	case ir.OpUnreachable:
		// MASM's vocabulary has no trap primitive; unreachable code emits
		// nothing and relies on the enclosing region's merge-shape check
		// to fail closed if this arm is ever actually live.
	default:
		e.diag(KindUnsupportedConstruct, inst.Span, fmt.Sprintf("opcode %s not supported", inst.Op))
	}
}

func (e *Emitter) emitConst(inst *ir.Instruction) {
	ty := e.f.ValueType(inst.Results[0])
	e.fn.Emit(masm.Push(inst.Imm))
	e.stack.Push(inst.Results[0], ty)
}

func (e *Emitter) emitBinary(inst *ir.Instruction) {
	e.arrangeOperands(inst)
	kinds := map[ir.Opcode]masm.OpKind{
		ir.OpIAdd: masm.OpAdd, ir.OpISub: masm.OpSub, ir.OpIMul: masm.OpMul,
		ir.OpAnd: masm.OpAnd, ir.OpOr: masm.OpOr, ir.OpXor: masm.OpXor,
		ir.OpShl: masm.OpShl, ir.OpShr: masm.OpShr,
	}
	resTy := e.f.ValueType(inst.Results[0])
	e.fn.Emit(masm.Arith(kinds[inst.Op], variantFor(resTy)))
	e.replaceTopN(2, inst.Results[0], resTy)
}

// emitDiv has no direct MASM primitive in this vocabulary (spec.md 6.4):
// integer division is always resolved to a content-addressed intrinsic
// (spec.md 4.8, scenario S6), named by width.
func (e *Emitter) emitDiv(inst *ir.Instruction) {
	e.arrangeOperands(inst)
	resTy := e.f.ValueType(inst.Results[0])
	var path string
	switch resTy.Kind {
	case ir.I64:
		path = "intrinsics::i64::sdiv"
	case ir.I32, ir.I16, ir.I8, ir.I1:
		path = "intrinsics::i32::udiv"
	default:
		e.diag(KindUnsupportedConstruct, inst.Span, fmt.Sprintf("no division intrinsic for type %s", resTy))
		return
	}
	e.intrinsics[path] = true
	e.fn.Emit(masm.Exec(path))
	e.replaceTopN(2, inst.Results[0], resTy)
}

// emitNeg synthesizes negation as 0 - x; the vocabulary has no dedicated
// negate primitive.
func (e *Emitter) emitNeg(inst *ir.Instruction) {
	ty := e.f.ValueType(inst.Args[0])
	depth := e.stack.Find(inst.Args[0])
	if depth < 0 {
		e.diag(KindInvariantViolation, inst.Span, fmt.Sprintf("operand %s not on operand stack", inst.Args[0]))
		return
	}
	if e.live.IsLiveAfter(e.f, inst.Args[0], e.pointAfterCurrent()) {
		e.fn.Emit(e.stack.Dup(depth)...)
	} else {
		e.fn.Emit(e.stack.MoveToTop(depth)...)
	}
	e.pushImm(0, ty)
	e.fn.Emit(masm.Op{Kind: masm.OpSwap, N: 1})
	e.fn.Emit(masm.Arith(masm.OpSub, variantFor(ty)))
	e.replaceTopN(2, inst.Results[0], e.f.ValueType(inst.Results[0]))
}

func (e *Emitter) emitCmp(inst *ir.Instruction) {
	e.arrangeOperands(inst)
	kinds := map[ir.Predicate]masm.OpKind{
		ir.Eq: masm.OpEq, ir.Neq: masm.OpNeq, ir.Lt: masm.OpLt,
		ir.Gt: masm.OpGt, ir.Lte: masm.OpLte, ir.Gte: masm.OpGte,
	}
	e.fn.Emit(masm.Arith(kinds[inst.Predicate], masm.VariantFelt))
	e.replaceTopN(2, inst.Results[0], e.f.ValueType(inst.Results[0]))
}

func (e *Emitter) emitLoad(inst *ir.Instruction) {
	e.arrangeOperands(inst)
	ty := e.f.ValueType(inst.Results[0])
	if ir.IsWord(ty) {
		e.fn.Emit(masm.Op{Kind: masm.OpMemLoadW})
	} else {
		e.fn.Emit(masm.Op{Kind: masm.OpMemLoad})
	}
	e.replaceTopN(1, inst.Results[0], ty)
}

func (e *Emitter) emitStore(inst *ir.Instruction) {
	// Args = [address, value].
	e.arrangeOperands(inst)
	ty := e.f.ValueType(inst.Args[1])
	if ir.IsWord(ty) {
		e.fn.Emit(masm.Op{Kind: masm.OpMemStoreW})
	} else {
		e.fn.Emit(masm.Op{Kind: masm.OpMemStore})
	}
	e.stack.Pop()
	e.stack.Pop()
}

func (e *Emitter) emitGlobalLoad(inst *ir.Instruction) {
	g, ok := e.globals[inst.Symbol]
	if !ok {
		e.diag(KindConfiguration, inst.Span, fmt.Sprintf("global %q not found in layout", inst.Symbol))
		return
	}
	ty := e.f.ValueType(inst.Results[0])
	e.pushImm(int64(g.Offset), ir.Scalar(ir.I32))
	if ir.IsWord(ty) {
		e.fn.Emit(masm.Op{Kind: masm.OpMemLoadW})
	} else {
		e.fn.Emit(masm.Op{Kind: masm.OpMemLoad})
	}
	e.replaceTopN(1, inst.Results[0], ty)
}

func (e *Emitter) emitGlobalStore(inst *ir.Instruction) {
	g, ok := e.globals[inst.Symbol]
	if !ok {
		e.diag(KindConfiguration, inst.Span, fmt.Sprintf("global %q not found in layout", inst.Symbol))
		return
	}
	e.arrangeOperands(inst)
	ty := e.f.ValueType(inst.Args[0])
	e.pushImm(int64(g.Offset), ir.Scalar(ir.I32))
	if ir.IsWord(ty) {
		e.fn.Emit(masm.Op{Kind: masm.OpMemStoreW})
	} else {
		e.fn.Emit(masm.Op{Kind: masm.OpMemStore})
	}
	e.stack.Pop()
	e.stack.Pop()
}

func (e *Emitter) emitCall(inst *ir.Instruction) {
	e.arrangeOperands(inst)
	if inst.CrossContext {
		e.fn.Emit(masm.Call(inst.Symbol))
	} else {
		e.fn.Emit(masm.Exec(inst.Symbol))
	}
	for range inst.Args {
		e.stack.Pop()
	}
	for _, r := range inst.Results {
		e.stack.Push(r, e.f.ValueType(r))
	}
}

// emitConvert folds trunc/zext/sext into a type-only rename: every HIR
// integer width below Felt occupies a single stack element in this model
// (spec.md 4.5), so narrowing/widening conversions change only the tracked
// Type, never the physical stack shape.
func (e *Emitter) emitConvert(inst *ir.Instruction) {
	depth := e.stack.Find(inst.Args[0])
	if depth < 0 {
		e.diag(KindInvariantViolation, inst.Span, fmt.Sprintf("operand %s not on operand stack", inst.Args[0]))
		return
	}
	if e.live.IsLiveAfter(e.f, inst.Args[0], e.pointAfterCurrent()) {
		e.fn.Emit(e.stack.Dup(depth)...)
	} else {
		e.fn.Emit(e.stack.MoveToTop(depth)...)
	}
	e.replaceTopN(1, inst.Results[0], e.f.ValueType(inst.Results[0]))
}

// isBackEdgeTarget reports whether target is the header of an innermost
// open while region, reached from e.currentBlock via a recorded back edge.
func (e *Emitter) isBackEdgeTarget(target ir.BlockID) bool {
	if len(e.whileStk) == 0 {
		return false
	}
	h := e.whileStk[len(e.whileStk)-1].header
	if h != target {
		return false
	}
	for _, src := range e.lf.BackEdges(h) {
		if src == e.currentBlock {
			return true
		}
	}
	return false
}

func (e *Emitter) emitBr(inst *ir.Instruction) {
	target := inst.Targets[0]
	if e.isBackEdgeTarget(target) {
		e.arrangeTop(ir.BlockArgsTo(inst, target))
		return
	}
	if e.lf.IsHeader(target) {
		// First entry into a loop header: canonicalize its incoming
		// arguments into the header's own parameter order right now, in
		// the same shape the back edge arranges them into (emitBrIf's
		// back-edge branch). The ops this schedules between while.true
		// and the header's own body physically re-run on every back edge,
		// so both entries must hand them an identical layout.
		e.arrangeTop(ir.BlockArgsTo(inst, target))
		return
	}
	// Forward edges into an ordinary block need nothing here: the target's
	// enterBlock reconciles its own incoming arguments when the scheduler
	// walks into it next.
}

// emitBrIf handles both ordinary conditional branches (bracketed by the
// scheduler with If/Else) and loop-continuation tests (left unbracketed by
// the scheduler, see schedule.go's OpBrIf case). In the bracketed case it
// simply brings the condition to the top for `if.true` to consume. In the
// loop-test case it leaves the (possibly negated, so that true always
// means "continue") condition on top for while.true's own re-test, and
// relies on the exit target's own enterBlock to reconcile its arguments
// once the loop closes.
func (e *Emitter) emitBrIf(inst *ir.Instruction) {
	tt, ft := inst.Targets[0], inst.Targets[1]
	cond := inst.Args[0]

	if len(e.whileStk) > 0 {
		h := e.whileStk[len(e.whileStk)-1].header
		if (tt == h || ft == h) && isBackEdgeSourceOf(e.lf, h, e.currentBlock) {
			exit := tt
			invert := false
			if tt == h {
				exit = ft
			} else {
				invert = true
			}
			// Canonicalize the values carried back to h into its own parameter
			// order before testing the continuation condition, matching the
			// layout the loop's first entry established (emitBr): the header's
			// own reconciliation ops physically re-run after every back edge,
			// so they need the same input shape every time.
			e.arrangeTop(ir.BlockArgsTo(inst, h))
			exitArgs := ir.BlockArgsTo(inst, exit)
			e.bringCond(cond, containsValue(exitArgs, cond))
			if invert {
				e.negateTop()
			}
			return
		}
		// Top-tested shape: this IS the open loop's own header testing its
		// condition directly (schedule.go's SchedLoopGuard case), rather than
		// a conditional further down the body branching back to the header.
		// The guard consumes one copy of the condition as an ordinary
		// if.true; SchedLoopGuardEnd needs the other copy once the body
		// (which may bury it) has run, so it is always duplicated here.
		if e.currentBlock == h {
			e.bringCond(cond, true)
			return
		}
	}

	keep := containsValue(ir.BlockArgsTo(inst, tt), cond) || containsValue(ir.BlockArgsTo(inst, ft), cond)
	e.bringCond(cond, keep)
}

func (e *Emitter) bringCond(cond ir.ValueID, keep bool) {
	depth := e.stack.Find(cond)
	if depth < 0 {
		e.diag(KindInvariantViolation, ir.Span{}, fmt.Sprintf("condition %s not on operand stack", cond))
		return
	}
	if keep {
		e.fn.Emit(e.stack.Dup(depth)...)
	} else {
		e.fn.Emit(e.stack.MoveToTop(depth)...)
	}
}

// negateTop inverts the boolean on top of the stack via `push.0 eq`
// (x == 0 is logical not for a 0/1-valued felt). The model's top entry
// keeps its existing slot; nothing references a loop-test condition's
// Value identity again after this point.
func (e *Emitter) negateTop() {
	e.fn.Emit(masm.Push(0))
	e.fn.Emit(masm.Arith(masm.OpEq, masm.VariantFelt))
}

func (e *Emitter) emitReturn(inst *ir.Instruction) {
	e.arrangeTop(inst.Args)
}

// emitSwitchTest synthesizes the "discriminant == key" comparison a
// SchedEnterIf switch-case marker stands for: dup the discriminant (its
// final SchedDrop, computed from HIR liveness at the switch instruction
// itself, takes care of dropping the original once no case needs it
// anymore), push the case key, and compare.
func (e *Emitter) emitSwitchTest(discr ir.ValueID, key int64) {
	depth := e.stack.Find(discr)
	if depth < 0 {
		e.diag(KindInvariantViolation, ir.Span{}, fmt.Sprintf("switch discriminant %s not on operand stack", discr))
		return
	}
	e.fn.Emit(e.stack.Dup(depth)...)
	ty := e.stack.entries[0].Type
	e.pushImm(key, ty)
	e.fn.Emit(masm.Arith(masm.OpEq, masm.VariantFelt))
	e.replaceTopN(2, ir.ValueInvalid, ir.Scalar(ir.I1))
}

func isBackEdgeSourceOf(lf *analysis.LoopForest, h, b ir.BlockID) bool {
	for _, src := range lf.BackEdges(h) {
		if src == b {
			return true
		}
	}
	return false
}

func containsValue(vals []ir.ValueID, v ir.ValueID) bool {
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}
