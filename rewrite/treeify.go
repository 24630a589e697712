package rewrite

import (
	"github.com/gopherj/hir2masm/analysis"
	"github.com/gopherj/hir2masm/ir"
)

// Treeify clones blocks (and their dominator subtree, down to but not
// including the next loop header) once per forward predecessor beyond the
// first, so that after this pass every block other than a natural-loop
// header has exactly one predecessor (spec.md 4.1.2, invariant 5).
//
// Must run after SplitCriticalEdges, and before any analysis is cached
// (cloning invalidates dominator/loop/liveness results computed over the
// pre-clone CFG).
func Treeify(f *ir.Function) {
	dt := analysis.BuildDominatorTree(f)
	lf := analysis.BuildLoopForest(f, dt)

	for _, b := range dt.RPO() {
		if b == f.Entry || lf.IsHeader(b) {
			continue
		}
		preds := f.Preds()[b]
		if len(preds) <= 1 {
			continue
		}
		// Keep the first predecessor attached to the original block;
		// clone once per remaining predecessor.
		for _, p := range preds[1:] {
			blkMap := map[ir.BlockID]ir.BlockID{}
			valMap := map[ir.ValueID]ir.ValueID{}
			newB := cloneDomSubtree(f, b, dt, lf, blkMap, valMap)
			retarget(f, p, b, newB)
		}
	}
}

// cloneDomSubtree clones b and every dominator-tree descendant of b that is
// not itself a loop header, rewriting internal Value references through
// valMap. Successors outside the cloned set (loop headers, or blocks not
// dominated by b) keep pointing at their original target, with only their
// block-argument Values translated through valMap.
func cloneDomSubtree(f *ir.Function, b ir.BlockID, dt *analysis.DominatorTree, lf *analysis.LoopForest, blkMap map[ir.BlockID]ir.BlockID, valMap map[ir.ValueID]ir.ValueID) ir.BlockID {
	if nb, ok := blkMap[b]; ok {
		return nb
	}
	nb := f.NewBlock()
	blkMap[b] = nb

	remap := func(v ir.ValueID) ir.ValueID {
		if nv, ok := valMap[v]; ok {
			return nv
		}
		return v
	}

	for _, p := range f.Block(b).Params {
		valMap[p] = f.AddParam(nb, f.ValueType(p))
	}
	for _, instID := range f.Block(b).Insts {
		src := f.Inst(instID)
		results := f.CloneInstructionInto(nb, src, remap)
		for i, r := range results {
			valMap[src.Results[i]] = r
		}
	}

	for _, child := range dt.Children(b) {
		if lf.IsHeader(child) {
			continue
		}
		childNew := cloneDomSubtree(f, child, dt, lf, blkMap, valMap)
		f.RetargetTerminatorBlock(nb, child, childNew)
	}

	return nb
}

// retarget rewrites p's branch to oldTarget so it points at newTarget
// instead; arguments are left as-is since they reference Values visible at
// p's scope, outside the region that was cloned.
func retarget(f *ir.Function, p, oldTarget, newTarget ir.BlockID) {
	f.RetargetTerminatorBlock(p, oldTarget, newTarget)
}
