package analysis

import "github.com/gopherj/hir2masm/ir"

// Liveness holds per-block live-in/live-out Value sets, computed with the
// standard backward may-dataflow equations of spec.md 4.4:
//
//	live_out(b) = union over succ s of (live_in(s) \ params(s)) + args_from_b_to_s
//	live_in(b)  = use(b) U (live_out(b) \ def(b))
//
// Side tables keyed by BlockID/ValueID, computed once and read-only
// thereafter -- the shape wazero's backend/regalloc/intervals.go uses for
// its per-value liveness intervals, generalized here to per-block sets
// since this analysis runs over HIR rather than over a linearized
// instruction stream.
type Liveness struct {
	liveIn  map[ir.BlockID]map[ir.ValueID]bool
	liveOut map[ir.BlockID]map[ir.ValueID]bool
}

// ComputeLiveness runs the fixed-point computation over f using dt's
// reverse postorder for fast convergence.
func ComputeLiveness(f *ir.Function, dt *DominatorTree) *Liveness {
	uses, defs := useDefSets(f)

	liveIn := make(map[ir.BlockID]map[ir.ValueID]bool, f.NumBlocks())
	liveOut := make(map[ir.BlockID]map[ir.ValueID]bool, f.NumBlocks())
	for i := 0; i < f.NumBlocks(); i++ {
		b := ir.BlockID(i)
		liveIn[b] = map[ir.ValueID]bool{}
		liveOut[b] = map[ir.ValueID]bool{}
	}

	rpo := dt.RPO()
	changed := true
	for changed {
		changed = false
		// Iterate in reverse of reverse-postorder (i.e. roughly postorder)
		// since this is a backward analysis: successors should be
		// processed before their predecessors converge.
		for i := len(rpo) - 1; i >= 0; i-- {
			b := rpo[i]
			out := map[ir.ValueID]bool{}
			term := f.Block(b).Terminator(f)
			for _, s := range f.Successors(b) {
				for v := range liveIn[s] {
					if !isBlockParam(f, v, s) {
						out[v] = true
					}
				}
				if term != nil {
					for _, arg := range ir.BlockArgsTo(term, s) {
						out[arg] = true
					}
				}
			}
			in := map[ir.ValueID]bool{}
			for v := range uses[b] {
				in[v] = true
			}
			for v := range out {
				if !defs[b][v] {
					in[v] = true
				}
			}
			if !setEqual(in, liveIn[b]) || !setEqual(out, liveOut[b]) {
				liveIn[b] = in
				liveOut[b] = out
				changed = true
			}
		}
	}

	return &Liveness{liveIn: liveIn, liveOut: liveOut}
}

func isBlockParam(f *ir.Function, v ir.ValueID, b ir.BlockID) bool {
	d := f.ValueDef(v)
	return d.Kind == ir.DefBlockParam && d.Block == b
}

// useDefSets computes, for every block, the Values it uses before any
// local redefinition (use(b)) and the Values it defines (block params plus
// instruction results).
func useDefSets(f *ir.Function) (map[ir.BlockID]map[ir.ValueID]bool, map[ir.BlockID]map[ir.ValueID]bool) {
	uses := make(map[ir.BlockID]map[ir.ValueID]bool, f.NumBlocks())
	defs := make(map[ir.BlockID]map[ir.ValueID]bool, f.NumBlocks())
	for i := 0; i < f.NumBlocks(); i++ {
		b := ir.BlockID(i)
		blk := f.Block(b)
		u := map[ir.ValueID]bool{}
		d := map[ir.ValueID]bool{}
		for _, p := range blk.Params {
			d[p] = true
		}
		for _, instID := range blk.Insts {
			inst := f.Inst(instID)
			for _, arg := range inst.Args {
				if !d[arg] {
					u[arg] = true
				}
			}
			for _, argsPerTarget := range inst.BlockArgs {
				for _, arg := range argsPerTarget {
					if !d[arg] {
						u[arg] = true
					}
				}
			}
			for _, c := range inst.Cases {
				for _, arg := range c.Args {
					if !d[arg] {
						u[arg] = true
					}
				}
			}
			for _, arg := range inst.DefArgs {
				if !d[arg] {
					u[arg] = true
				}
			}
			for _, r := range inst.Results {
				d[r] = true
			}
		}
		uses[b] = u
		defs[b] = d
	}
	return uses, defs
}

func setEqual(a, b map[ir.ValueID]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for v := range a {
		if !b[v] {
			return false
		}
	}
	return true
}

// LiveIn returns the set of Values live at block b's entry.
func (lv *Liveness) LiveIn(b ir.BlockID) map[ir.ValueID]bool { return lv.liveIn[b] }

// LiveOut returns the set of Values live at block b's exit.
func (lv *Liveness) LiveOut(b ir.BlockID) map[ir.ValueID]bool { return lv.liveOut[b] }

// ProgramPoint identifies an instruction position within a block: index
// into Block.Insts, or len(Insts) to denote "after the last instruction"
// (equivalently, the block's live-out point).
type ProgramPoint struct {
	Block ir.BlockID
	Index int
}

// IsLiveAfter reports whether v is live immediately after the instruction
// at pp (i.e. still needed by some later instruction in the block, or
// live-out of the block).
func (lv *Liveness) IsLiveAfter(f *ir.Function, v ir.ValueID, pp ProgramPoint) bool {
	blk := f.Block(pp.Block)
	if lv.liveOut[pp.Block][v] {
		return true
	}
	for i := pp.Index + 1; i < len(blk.Insts); i++ {
		inst := f.Inst(blk.Insts[i])
		for _, arg := range inst.Args {
			if arg == v {
				return true
			}
		}
	}
	return false
}
