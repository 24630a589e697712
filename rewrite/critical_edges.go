// Package rewrite implements the CFG-preconditioning passes the scheduler
// and emitter depend on: split-critical-edges and treeify. Both take a
// mutable *ir.Function, following wazero's ssa.RunPasses convention of
// small concrete pass functions operating on a builder in place, rather
// than the trait-object ConversionPass cascade of the original Rust
// source (Go favors concrete functions over generic trait dispatch for a
// fixed, known pass list; see DESIGN.md).
package rewrite

import "github.com/gopherj/hir2masm/ir"

// SplitCriticalEdges inserts a fresh block on every critical edge (u,v) --
// an edge where u has multiple successors and v has multiple predecessors
// -- so that no instruction ever needs to choose its stack shape based on
// which predecessor it arrived from at a shared join (spec.md 4.1.1).
//
// A single pass suffices: inserting a new block w between u and v gives u
// exactly one successor on that edge and gives w exactly one predecessor,
// so w cannot itself be an endpoint of a new critical edge.
func SplitCriticalEdges(f *ir.Function) {
	preds := f.Preds()
	for i := 0; i < f.NumBlocks(); i++ {
		u := ir.BlockID(i)
		succs := f.Successors(u)
		if len(succs) < 2 {
			continue
		}
		term := f.Block(u).Terminator(f)
		for _, v := range succs {
			if len(preds[v]) < 2 {
				continue
			}
			splitEdge(f, u, term, v)
		}
	}
}

// splitEdge inserts w between u and v, redirecting u's branch to w with
// the same arguments, and making w an unconditional forward to v
// reforwarding those arguments via w's own fresh parameters.
func splitEdge(f *ir.Function, u ir.BlockID, term *ir.Instruction, v ir.BlockID) {
	args := ir.BlockArgsTo(term, v)

	w := f.NewBlock()
	fresh := make([]ir.ValueID, len(args))
	for i, a := range args {
		fresh[i] = f.AddParam(w, f.ValueType(a))
	}
	f.Emit(w, ir.Instruction{
		Op:        ir.OpBr,
		Targets:   []ir.BlockID{v},
		BlockArgs: [][]ir.ValueID{fresh},
	}, nil)

	retargetOnce(term, v, w)
}

// retargetOnce rewrites exactly one occurrence of `from` in term's target
// list to `to`, since OpBrIf may name the same block twice (true==false is
// never emitted by a real frontend but OpSwitch can legitimately repeat a
// target across cases; each occurrence is a distinct edge and each is
// split independently by the outer loop).
func retargetOnce(term *ir.Instruction, from, to ir.BlockID) {
	switch term.Op {
	case ir.OpBr, ir.OpBrIf:
		for i, t := range term.Targets {
			if t == from {
				term.Targets[i] = to
				return
			}
		}
	case ir.OpSwitch:
		for i := range term.Cases {
			if term.Cases[i].Target == from {
				term.Cases[i].Target = to
				return
			}
		}
		if term.Default == from {
			term.Default = to
		}
	}
}
