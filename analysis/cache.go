package analysis

import (
	"sync"

	"github.com/gopherj/hir2masm/ir"
)

// Cache memoizes per-function analysis results. Entries are produced once
// and thereafter read-only (spec.md 3). Every accessor holds the Cache's
// own mutex, so one Cache may be used from several goroutines;
// compiler.Driver still gives each function its own Cache (spec.md 5).
type Cache struct {
	mu   sync.Mutex
	dom  map[*ir.Function]*DominatorTree
	loop map[*ir.Function]*LoopForest
	live map[*ir.Function]*Liveness
}

func NewCache() *Cache {
	return &Cache{
		dom:  map[*ir.Function]*DominatorTree{},
		loop: map[*ir.Function]*LoopForest{},
		live: map[*ir.Function]*Liveness{},
	}
}

// AvailableDominatorTree reports whether f's dominator tree has already
// been computed, without computing it.
func (c *Cache) AvailableDominatorTree(f *ir.Function) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.dom[f]
	return ok
}

func (c *Cache) DominatorTree(f *ir.Function) *DominatorTree {
	c.mu.Lock()
	defer c.mu.Unlock()
	if dt, ok := c.dom[f]; ok {
		return dt
	}
	dt := BuildDominatorTree(f)
	c.dom[f] = dt
	return dt
}

func (c *Cache) AvailableLoopForest(f *ir.Function) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.loop[f]
	return ok
}

func (c *Cache) LoopForest(f *ir.Function) *LoopForest {
	c.mu.Lock()
	dt, ok := c.dom[f]
	c.mu.Unlock()
	if !ok {
		dt = c.DominatorTree(f)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if lf, ok := c.loop[f]; ok {
		return lf
	}
	lf := BuildLoopForest(f, dt)
	c.loop[f] = lf
	return lf
}

func (c *Cache) AvailableLiveness(f *ir.Function) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.live[f]
	return ok
}

func (c *Cache) Liveness(f *ir.Function) *Liveness {
	dt := c.DominatorTree(f)
	c.mu.Lock()
	defer c.mu.Unlock()
	if lv, ok := c.live[f]; ok {
		return lv
	}
	lv := ComputeLiveness(f, dt)
	c.live[f] = lv
	return lv
}

// Invalidate drops every cached analysis for f. Must be called whenever
// the CFG is mutated after caching (spec.md 5); the rewrite package itself
// runs before any cache is populated, so in normal driver operation this
// is only needed by tests that mutate a function in place after querying
// analyses.
func (c *Cache) Invalidate(f *ir.Function) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.dom, f)
	delete(c.loop, f)
	delete(c.live, f)
}
