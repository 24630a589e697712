package analysis

import "github.com/gopherj/hir2masm/ir"

// Loop is one natural loop: a header block plus every block that can reach
// a back-edge source without passing through the header again.
type Loop struct {
	Header    ir.BlockID
	Blocks    map[ir.BlockID]bool
	BackEdges []ir.BlockID // sources of back edges into Header
	Parent    *Loop
	Children  []*Loop
	Depth     int
}

// LoopForest is the loop nesting forest of a function, keyed by header.
type LoopForest struct {
	byHeader map[ir.BlockID]*Loop
	// loopOf maps every block that is a member of some loop to its
	// innermost enclosing loop.
	loopOf map[ir.BlockID]*Loop
	roots  []*Loop
}

// BuildLoopForest detects natural loops via back edges (an edge (u,h)
// where h dominates u, per spec.md 4.3) and nests them by header
// containment. Exposed as a pure function for the same reason
// BuildDominatorTree is: package rewrite needs loop-header identity before
// any analysis cache exists.
func BuildLoopForest(f *ir.Function, dt *DominatorTree) *LoopForest {
	preds := f.Preds()
	byHeader := map[ir.BlockID]*Loop{}

	for i := 0; i < f.NumBlocks(); i++ {
		h := ir.BlockID(i)
		for _, u := range preds[h] {
			if !dt.Dominates(h, u) {
				continue
			}
			lp, ok := byHeader[h]
			if !ok {
				lp = &Loop{Header: h, Blocks: map[ir.BlockID]bool{h: true}}
				byHeader[h] = lp
			}
			lp.BackEdges = append(lp.BackEdges, u)
			collectLoopBody(f, preds, h, u, lp.Blocks)
		}
	}

	lf := &LoopForest{byHeader: byHeader, loopOf: map[ir.BlockID]*Loop{}}
	for _, lp := range byHeader {
		for b := range lp.Blocks {
			cur, ok := lf.loopOf[b]
			if !ok || len(lp.Blocks) < len(cur.Blocks) {
				lf.loopOf[b] = lp
			}
		}
	}

	// Nest loops: loop A is a child of loop B when B's body contains A's
	// header (and A != B). Depth counts how many headers enclose a loop.
	for _, lp := range byHeader {
		var parent *Loop
		for _, other := range byHeader {
			if other == lp {
				continue
			}
			if other.Blocks[lp.Header] && (parent == nil || len(other.Blocks) < len(parent.Blocks)) {
				parent = other
			}
		}
		lp.Parent = parent
		if parent != nil {
			parent.Children = append(parent.Children, lp)
		} else {
			lf.roots = append(lf.roots, lp)
		}
	}
	for _, lp := range byHeader {
		d := 1
		for p := lp.Parent; p != nil; p = p.Parent {
			d++
		}
		lp.Depth = d
	}

	return lf
}

// collectLoopBody walks predecessors backward from the back-edge source u
// until reaching the header h, adding every block visited to body.
func collectLoopBody(f *ir.Function, preds map[ir.BlockID][]ir.BlockID, h, u ir.BlockID, body map[ir.BlockID]bool) {
	if body[u] {
		return
	}
	var stack []ir.BlockID
	stack = append(stack, u)
	body[u] = true
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if b == h {
			continue
		}
		for _, p := range preds[b] {
			if !body[p] {
				body[p] = true
				stack = append(stack, p)
			}
		}
	}
}

// IsHeader reports whether b is a natural loop header.
func (lf *LoopForest) IsHeader(b ir.BlockID) bool { _, ok := lf.byHeader[b]; return ok }

// LoopOf returns the innermost loop containing b, or nil if b is not in a
// loop.
func (lf *LoopForest) LoopOf(b ir.BlockID) *Loop { return lf.loopOf[b] }

// Depth returns b's loop nesting depth (0 outside any loop).
func (lf *LoopForest) Depth(b ir.BlockID) int {
	if lp := lf.loopOf[b]; lp != nil {
		return lp.Depth
	}
	return 0
}

// BackEdges returns the sources of back edges into header h.
func (lf *LoopForest) BackEdges(h ir.BlockID) []ir.BlockID {
	if lp, ok := lf.byHeader[h]; ok {
		return lp.BackEdges
	}
	return nil
}

// Header looks up the Loop value for a header block, for callers that need
// more than the BackEdges/Depth accessors (e.g. the scheduler building a
// region's body set).
func (lf *LoopForest) Header(h ir.BlockID) (*Loop, bool) {
	lp, ok := lf.byHeader[h]
	return lp, ok
}

// Exits returns the edges leaving the loop: blocks outside lp.Blocks that
// are a successor of some block inside lp.Blocks.
func (lf *LoopForest) Exits(f *ir.Function, lp *Loop) []ir.BlockID {
	seen := map[ir.BlockID]bool{}
	var out []ir.BlockID
	for b := range lp.Blocks {
		for _, s := range f.Successors(b) {
			if !lp.Blocks[s] && !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}
