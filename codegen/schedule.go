package codegen

import (
	"github.com/gopherj/hir2masm/analysis"
	"github.com/gopherj/hir2masm/ir"
)

// ScheduleOpKind tags one entry of a Schedule.
type ScheduleOpKind uint8

const (
	SchedBlock ScheduleOpKind = iota
	SchedInst
	SchedDrop
	SchedEnterIf
	SchedElse
	SchedExitIf
	SchedEnterWhile
	SchedExitWhile
	SchedLoopGuard
	SchedLoopGuardEnd
)

// ScheduleOp is one entry of a Schedule: either a block-entry marker, an
// instruction to execute, a scheduler-inserted drop hint, or a structured
// region bracket (spec.md 3: "Schedule (intermediate product)").
//
// SwitchCase/CaseKey are populated only on the SchedEnterIf markers
// scheduleSwitch emits, telling the emitter which discriminant value and
// key to compare for that case (the Scheduler does not synthesize HIR
// instructions for these comparisons; the emitter does, at the point it
// sees the marker).
//
// SchedLoopGuard/SchedLoopGuardEnd bracket a top-tested loop's own
// continuation test (a header whose br_if targets its body and its exit
// directly, rather than targeting the header itself): Value carries the
// tested condition so the emitter can recover it, wherever the body's own
// stack traffic buries it, before closing the bracket.
type ScheduleOp struct {
	Kind      ScheduleOpKind
	Block     ir.BlockID
	Inst      ir.InstID
	Value     ir.ValueID
	SwitchCase bool
	CaseKey   int64
}

// Schedule is the flat, region-bracketed instruction ordering the emitter
// consumes. Representing it as data (per spec.md 9, "Schedule as data, not
// control") rather than a recursive emitter keeps the emitter iterative
// and the schedule itself inspectable by tests (P4 "schedule covers HIR").
type Schedule []ScheduleOp

// Scheduler builds a Schedule from an HIR function plus its dominator,
// loop and liveness analyses.
type Scheduler struct {
	f    *ir.Function
	dt   *analysis.DominatorTree
	lf   *analysis.LoopForest
	live *analysis.Liveness
}

func NewScheduler(f *ir.Function, dt *analysis.DominatorTree, lf *analysis.LoopForest, live *analysis.Liveness) *Scheduler {
	return &Scheduler{f: f, dt: dt, lf: lf, live: live}
}

// Build runs the region-construction walk of spec.md 4.6: a depth-first
// walk from the entry block along successor edges, opening a While region
// at every loop header and an If/Else region at every conditional branch,
// closing regions when control leaves their block set (loop exit) or hits
// a terminal instruction (return/unreachable). Because rewrite.Treeify has
// already put the CFG into single-predecessor-except-headers form, this
// successor-driven walk visits each non-header block exactly once, which
// is what P4 requires.
func (s *Scheduler) Build() Schedule {
	var out Schedule
	visited := make(map[ir.BlockID]bool)
	var loopStack []ir.BlockID

	closeExitedLoops := func(target ir.BlockID) {
		for len(loopStack) > 0 {
			top := loopStack[len(loopStack)-1]
			lp, _ := s.lf.Header(top)
			if lp.Blocks[target] {
				break
			}
			out = append(out, ScheduleOp{Kind: SchedExitWhile, Block: top})
			loopStack = loopStack[:len(loopStack)-1]
		}
	}

	var walk func(b ir.BlockID)
	walk = func(b ir.BlockID) {
		if visited[b] {
			return
		}
		visited[b] = true

		isHeader := s.lf.IsHeader(b)
		if isHeader {
			out = append(out, ScheduleOp{Kind: SchedEnterWhile, Block: b})
			loopStack = append(loopStack, b)
		}

		out = append(out, ScheduleOp{Kind: SchedBlock, Block: b})
		blk := s.f.Block(b)
		for _, p := range blk.Params {
			if !s.live.IsLiveAfter(s.f, p, analysis.ProgramPoint{Block: b, Index: -1}) {
				out = append(out, ScheduleOp{Kind: SchedDrop, Value: p})
			}
		}

		for idx, instID := range blk.Insts {
			out = append(out, ScheduleOp{Kind: SchedInst, Inst: instID})
			inst := s.f.Inst(instID)
			for _, r := range inst.Results {
				if !s.live.IsLiveAfter(s.f, r, analysis.ProgramPoint{Block: b, Index: idx}) {
					out = append(out, ScheduleOp{Kind: SchedDrop, Value: r})
				}
			}
		}

		term := blk.Terminator(s.f)
		switch term.Op {
		case ir.OpBr:
			t := term.Targets[0]
			if !visited[t] {
				closeExitedLoops(t)
			}
			walk(t)
		case ir.OpBrIf:
			tt, ft := term.Targets[0], term.Targets[1]
			// A br_if whose true or false target is the header of the loop
			// we're currently inside, taken from a recorded back-edge
			// source, IS that loop's own continuation test: it needs no
			// If/Else bracket of its own. The condition value it leaves on
			// the stack (see Emitter.emitBrIf) is exactly while.true's own
			// re-test at the bottom of the loop body, and the non-header
			// target is the loop's exit, scheduled immediately once the
			// loop closes.
			if len(loopStack) > 0 {
				h := loopStack[len(loopStack)-1]
				if (tt == h || ft == h) && isBackEdgeSource(s.lf, h, b) {
					exit := tt
					if tt == h {
						exit = ft
					}
					walk(h) // no-op: header already visited
					closeExitedLoops(exit)
					walk(exit)
					break
				}
				// Top-tested shape: b IS the open loop's own header, testing
				// its condition directly (br_if cond, body, exit) rather than
				// branching to a block whose target is literally the header
				// (the case just above, for a conditional back edge further
				// down in the loop body). Neither tt nor ft equals h here, so
				// that case can never fire for this shape; recognized instead
				// by b itself being the header currently open on loopStack.
				if b == h {
					lp, _ := s.lf.Header(h)
					cont, exit := tt, ft
					if lp != nil && !lp.Blocks[cont] {
						cont, exit = ft, tt
					}
					cond := term.Args[0]
					out = append(out, ScheduleOp{Kind: SchedLoopGuard, Block: b, Value: cond})
					walk(cont)
					out = append(out, ScheduleOp{Kind: SchedLoopGuardEnd, Block: b, Value: cond})
					out = append(out, ScheduleOp{Kind: SchedExitWhile, Block: h})
					loopStack = loopStack[:len(loopStack)-1]
					closeExitedLoops(exit)
					walk(exit)
					return
				}
			}
			out = append(out, ScheduleOp{Kind: SchedEnterIf, Block: b})
			walk(tt)
			out = append(out, ScheduleOp{Kind: SchedElse, Block: b})
			walk(ft)
			out = append(out, ScheduleOp{Kind: SchedExitIf, Block: b})
		case ir.OpSwitch:
			s.scheduleSwitch(term, &out, walk)
		case ir.OpReturn, ir.OpUnreachable:
			// closes enclosing regions by simply returning; While
			// brackets still open on loopStack are closed below only if
			// this block is itself the header (single-block infinite
			// loop edge case), otherwise a return from inside a loop
			// body is a second kind of loop exit handled the same way
			// other exits are: the loop is left open on loopStack until
			// an actual back-edge/exit branch is seen elsewhere in the
			// schedule. Well-formed structured input never returns from
			// the middle of a loop without an intervening exit edge.
		}

		if isHeader && len(loopStack) > 0 && loopStack[len(loopStack)-1] == b {
			out = append(out, ScheduleOp{Kind: SchedExitWhile, Block: b})
			loopStack = loopStack[:len(loopStack)-1]
		}
	}

	walk(s.f.Entry)
	return out
}

// scheduleSwitch lowers a switch to a chain of if.true comparisons on the
// discriminant in ascending key order, the default trailing as the
// innermost else (spec.md 4.6). The per-case SchedEnterIf markers carry the
// discriminant Value and key so the emitter can synthesize the "discriminant
// == key" comparison itself; no HIR instruction exists for it.
func (s *Scheduler) scheduleSwitch(term *ir.Instruction, out *Schedule, walk func(ir.BlockID)) {
	discr := term.Args[0]
	cases := append([]ir.SwitchCase(nil), term.Cases...)
	sortCasesByKey(cases)
	for _, c := range cases {
		*out = append(*out, ScheduleOp{Kind: SchedEnterIf, Value: discr, SwitchCase: true, CaseKey: c.Key})
		walk(c.Target)
		*out = append(*out, ScheduleOp{Kind: SchedElse})
	}
	walk(term.Default)
	for range cases {
		*out = append(*out, ScheduleOp{Kind: SchedExitIf})
	}
}

// isBackEdgeSource reports whether b is a recorded back-edge source for
// loop header h.
func isBackEdgeSource(lf *analysis.LoopForest, h, b ir.BlockID) bool {
	for _, src := range lf.BackEdges(h) {
		if src == b {
			return true
		}
	}
	return false
}

func sortCasesByKey(cases []ir.SwitchCase) {
	for i := 1; i < len(cases); i++ {
		for j := i; j > 0 && cases[j-1].Key > cases[j].Key; j-- {
			cases[j-1], cases[j] = cases[j], cases[j-1]
		}
	}
}
