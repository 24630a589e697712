// Package analysis provides the dominator-tree, loop-nest and liveness
// analyses the scheduler and emitter depend on. Each analysis is a pure
// function of a Function; Cache memoizes results per function identity so
// C6 and C7 can share one computation (spec.md 3: "results are immutable
// once computed and shared by C6 and C7").
package analysis

import "github.com/gopherj/hir2masm/ir"

// DominatorTree answers idom/dominates/dominance-frontier queries, computed
// with the Cooper-Harvey-Kennedy "simple, fast dominance" algorithm over a
// reverse postorder block list -- the same algorithm and structure as
// wazero's ssa.calculateDominators/intersect (internal/engine/wazevo/ssa/pass_cfg.go).
type DominatorTree struct {
	f       *ir.Function
	idom    []ir.BlockID
	rpo     []ir.BlockID
	rpoNum  map[ir.BlockID]int
	preds   map[ir.BlockID][]ir.BlockID
	present []bool
}

// BuildDominatorTree computes the dominator tree for f. It is exposed as a
// pure function (rather than only through Cache) because package rewrite's
// treeify needs dominator and loop information before any cache exists
// (split-critical-edges needs only predecessor lists) (spec.md 5: "the
// split-critical-edges and treeify passes therefore run before analyses
// are ever computed").
func BuildDominatorTree(f *ir.Function) *DominatorTree {
	preds := f.Preds()
	rpo, rpoNum := reversePostorder(f, preds)

	idom := make([]ir.BlockID, f.NumBlocks())
	present := make([]bool, f.NumBlocks())
	entry := f.Entry
	idom[entry] = entry
	present[entry] = true

	changed := true
	for changed {
		changed = false
		for _, b := range rpo {
			if b == entry {
				continue
			}
			var u ir.BlockID
			uSet := false
			for _, p := range preds[b] {
				if !present[p] {
					continue
				}
				if !uSet {
					u, uSet = p, true
					continue
				}
				u = intersect(idom, rpoNum, u, p)
			}
			if uSet && (!present[b] || idom[b] != u) {
				idom[b] = u
				present[b] = true
				changed = true
			}
		}
	}

	return &DominatorTree{f: f, idom: idom, rpo: rpo, rpoNum: rpoNum, preds: preds, present: present}
}

func intersect(idom []ir.BlockID, rpoNum map[ir.BlockID]int, a, b ir.BlockID) ir.BlockID {
	for a != b {
		for rpoNum[a] > rpoNum[b] {
			a = idom[a]
		}
		for rpoNum[b] > rpoNum[a] {
			b = idom[b]
		}
	}
	return a
}

// reversePostorder walks successors from the entry block and returns blocks
// in reverse postorder, the traversal order every fixed-point analysis in
// this package relies on for fast convergence and deterministic output
// (spec.md 5: "stable ordering... must be derived from reverse post-order").
func reversePostorder(f *ir.Function, preds map[ir.BlockID][]ir.BlockID) ([]ir.BlockID, map[ir.BlockID]int) {
	_ = preds
	visited := make([]bool, f.NumBlocks())
	var postorder []ir.BlockID
	var visit func(b ir.BlockID)
	visit = func(b ir.BlockID) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range f.Successors(b) {
			visit(s)
		}
		postorder = append(postorder, b)
	}
	visit(f.Entry)

	rpo := make([]ir.BlockID, len(postorder))
	for i, b := range postorder {
		rpo[len(postorder)-1-i] = b
	}
	num := make(map[ir.BlockID]int, len(rpo))
	for i, b := range rpo {
		num[b] = i
	}
	return rpo, num
}

// RPO returns the blocks of the function in reverse postorder.
func (dt *DominatorTree) RPO() []ir.BlockID { return dt.rpo }

// Idom returns b's immediate dominator. For the entry block this is itself.
func (dt *DominatorTree) Idom(b ir.BlockID) ir.BlockID { return dt.idom[b] }

// Dominates reports whether a dominates b (reflexively: a dominates a).
func (dt *DominatorTree) Dominates(a, b ir.BlockID) bool {
	for {
		if a == b {
			return true
		}
		if b == dt.f.Entry {
			return a == dt.f.Entry
		}
		nb := dt.idom[b]
		if nb == b {
			return a == b
		}
		b = nb
	}
}

// Children returns the blocks whose immediate dominator is b.
func (dt *DominatorTree) Children(b ir.BlockID) []ir.BlockID {
	var out []ir.BlockID
	for _, n := range dt.rpo {
		if n != b && dt.present[n] && dt.idom[n] == b {
			out = append(out, n)
		}
	}
	return out
}

// DominanceFrontier computes the dominance frontier of b: blocks where b's
// dominance stops, i.e. successors of blocks dominated by b that are not
// themselves strictly dominated by b. Computed directly from that
// definition by checking every edge of the function, on demand rather than
// eagerly for every block.
func (dt *DominatorTree) DominanceFrontier(b ir.BlockID) []ir.BlockID {
	seen := map[ir.BlockID]bool{}
	var out []ir.BlockID
	for i := 0; i < dt.f.NumBlocks(); i++ {
		n := ir.BlockID(i)
		if !dt.present[n] {
			continue
		}
		for _, p := range dt.preds[n] {
			if !dt.present[p] {
				continue
			}
			if dt.Dominates(b, p) && !(dt.Dominates(b, n) && b != n) {
				if !seen[n] {
					seen[n] = true
					out = append(out, n)
				}
			}
		}
	}
	return out
}
