// Package codegen implements the operand-stack model (C5), the scheduler
// (C6) and the function emitter (C7): the three collaborating pieces that
// turn an HIR function, once preconditioned by package rewrite and
// analyzed by package analysis, into a masm.Function.
package codegen

import (
	"fmt"

	"github.com/gopherj/hir2masm/ir"
	"github.com/gopherj/hir2masm/masm"
)

// TypedValue pairs an HIR Value with its Type, the unit the operand-stack
// model tracks (spec.md 4.5).
type TypedValue struct {
	Value ir.ValueID
	Type  ir.Type
}

// OperandStack is the compile-time symbolic image of the VM's runtime
// operand stack: a slice of (Value, Type) with index 0 as the top. It
// never emits MASM itself; the shuffle methods (Dup, MoveToTop, Sink,
// DropTop) return the sequence of stack-shuffle ops the caller (the
// emitter) must append, then update its own state to match, while Push,
// Pop and Restore only record the effect of ops the caller emits itself --
// so the model's depth is always exactly the
// runtime stack depth, modulo the function's fixed prelude (spec.md 4.5).
type OperandStack struct {
	entries []TypedValue // index 0 = top
}

func (s *OperandStack) Depth() int { return len(s.entries) }

// Push records a value now on top of the stack. It does not itself emit
// anything: the caller already arranged for v to be on top (e.g. by
// executing the instruction that produced it).
func (s *OperandStack) Push(v ir.ValueID, ty ir.Type) {
	s.entries = append([]TypedValue{{Value: v, Type: ty}}, s.entries...)
}

// Pop removes and returns the top entry.
func (s *OperandStack) Pop() TypedValue {
	if len(s.entries) == 0 {
		panic("codegen: pop on empty operand stack")
	}
	top := s.entries[0]
	s.entries = s.entries[1:]
	return top
}

// Peek returns the n-th-from-top entry without modifying the stack.
func (s *OperandStack) Peek(n int) TypedValue {
	if n < 0 || n >= len(s.entries) {
		panic(fmt.Sprintf("codegen: peek(%d) out of range (depth %d)", n, len(s.entries)))
	}
	return s.entries[n]
}

// Find returns the depth at which v first appears (closest to top), or -1.
func (s *OperandStack) Find(v ir.ValueID) int {
	for i, e := range s.entries {
		if e.Value == v {
			return i
		}
	}
	return -1
}

// Snapshot returns an immutable copy of the current stack shape, used to
// check merge invariants at If/Else/While region boundaries (spec.md 4.7).
func (s *OperandStack) Snapshot() []TypedValue {
	cp := make([]TypedValue, len(s.entries))
	copy(cp, s.entries)
	return cp
}

// Restore replaces the stack's shape wholesale, used when re-entering an
// Else arm from the snapshot taken at If entry.
func (s *OperandStack) Restore(shape []TypedValue) {
	s.entries = append([]TypedValue(nil), shape...)
}

// SameShape reports whether two snapshots agree Value-by-Value,
// type-by-type. The emitter's merge-mismatch checks (spec.md 4.7 / P6) do
// not use it: they compare types only (emitter.go's shapeTypesEqual).
func SameShape(a, b []TypedValue) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Value != b[i].Value || !a[i].Type.Equal(b[i].Type) {
			return false
		}
	}
	return true
}

// Dup duplicates the entry at depth to the top, using dupw for word-sized
// (4-element) entries and dup.n otherwise.
func (s *OperandStack) Dup(depth int) []masm.Op {
	e := s.Peek(depth)
	var ops []masm.Op
	if ir.IsWord(e.Type) {
		ops = []masm.Op{masm.DupW(depth)}
	} else {
		ops = []masm.Op{masm.Dup(depth)}
	}
	s.entries = append([]TypedValue{e}, s.entries...)
	return ops
}

// MoveToTop rotates the entry at depth up to the top via movup.n. depth 0
// is a no-op.
func (s *OperandStack) MoveToTop(depth int) []masm.Op {
	if depth == 0 {
		return nil
	}
	e := s.entries[depth]
	rest := append(append([]TypedValue{}, s.entries[:depth]...), s.entries[depth+1:]...)
	s.entries = append([]TypedValue{e}, rest...)
	return []masm.Op{masm.MovUp(depth)}
}

// Sink moves the current top down to position `depth` among the top n
// entries, via movdn.n. Used to place a freshly computed value back under
// operands that must remain accessible above it.
func (s *OperandStack) Sink(depth, n int) []masm.Op {
	_ = n
	if depth == 0 {
		return nil
	}
	top := s.entries[0]
	rest := s.entries[1:]
	newEntries := make([]TypedValue, 0, len(s.entries))
	newEntries = append(newEntries, rest[:depth]...)
	newEntries = append(newEntries, top)
	newEntries = append(newEntries, rest[depth:]...)
	s.entries = newEntries
	return []masm.Op{masm.MovDn(depth)}
}

// DropTop removes the top n entries, emitting drop (or dropw for
// word-sized entries) once per entry.
func (s *OperandStack) DropTop(n int) []masm.Op {
	ops := make([]masm.Op, 0, n)
	for i := 0; i < n; i++ {
		e := s.Pop()
		if ir.IsWord(e.Type) {
			ops = append(ops, masm.DropW())
		} else {
			ops = append(ops, masm.Drop())
		}
	}
	return ops
}
