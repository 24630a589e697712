package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gopherj/hir2masm/ir"
	"github.com/gopherj/hir2masm/masm"
)

func pushThree(s *OperandStack) (a, b, c ir.ValueID) {
	felt := ir.Scalar(ir.Felt)
	a, b, c = ir.ValueID(1), ir.ValueID(2), ir.ValueID(3)
	s.Push(a, felt)
	s.Push(b, felt)
	s.Push(c, felt)
	return
}

func TestOperandStackPushPop(t *testing.T) {
	var s OperandStack
	a, b, c := pushThree(&s)
	require.Equal(t, 3, s.Depth())
	assert.Equal(t, c, s.Peek(0).Value)
	assert.Equal(t, b, s.Peek(1).Value)
	assert.Equal(t, a, s.Peek(2).Value)

	top := s.Pop()
	assert.Equal(t, c, top.Value)
	assert.Equal(t, 2, s.Depth())
}

func TestOperandStackFind(t *testing.T) {
	var s OperandStack
	a, b, _ := pushThree(&s)
	assert.Equal(t, 1, s.Find(b))
	assert.Equal(t, 2, s.Find(a))
	assert.Equal(t, -1, s.Find(ir.ValueID(99)))
}

func TestOperandStackDup(t *testing.T) {
	var s OperandStack
	a, _, c := pushThree(&s)
	ops := s.Dup(2) // dup the deepest entry (a) to the top
	require.Len(t, ops, 1)
	assert.Equal(t, masm.Dup(2), ops[0])
	assert.Equal(t, 4, s.Depth())
	assert.Equal(t, a, s.Peek(0).Value)
	assert.Equal(t, c, s.Peek(1).Value)
}

func TestOperandStackMoveToTop(t *testing.T) {
	var s OperandStack
	a, b, c := pushThree(&s) // top-to-bottom: c, b, a
	ops := s.MoveToTop(2)    // bring a to the top
	require.Len(t, ops, 1)
	assert.Equal(t, masm.MovUp(2), ops[0])
	assert.Equal(t, []ir.ValueID{a, c, b}, []ir.ValueID{s.Peek(0).Value, s.Peek(1).Value, s.Peek(2).Value})
}

func TestOperandStackMoveToTopNoOpAtZero(t *testing.T) {
	var s OperandStack
	pushThree(&s)
	ops := s.MoveToTop(0)
	assert.Nil(t, ops)
}

func TestOperandStackSink(t *testing.T) {
	var s OperandStack
	a, b, c := pushThree(&s) // top-to-bottom: c, b, a
	ops := s.Sink(1, 3)      // push current top (c) down to depth 1
	require.Len(t, ops, 1)
	assert.Equal(t, masm.MovDn(1), ops[0])
	assert.Equal(t, []ir.ValueID{b, c, a}, []ir.ValueID{s.Peek(0).Value, s.Peek(1).Value, s.Peek(2).Value})
}

func TestOperandStackDropTop(t *testing.T) {
	var s OperandStack
	pushThree(&s)
	ops := s.DropTop(2)
	require.Len(t, ops, 2)
	assert.Equal(t, masm.Drop(), ops[0])
	assert.Equal(t, masm.Drop(), ops[1])
	assert.Equal(t, 1, s.Depth())
}

func TestOperandStackDupWordUsesDupW(t *testing.T) {
	var s OperandStack
	word := ir.ArrayOf(ir.Scalar(ir.I32), 4)
	s.Push(ir.ValueID(1), word)
	ops := s.Dup(0)
	require.Len(t, ops, 1)
	assert.Equal(t, masm.DupW(0), ops[0])
}

func TestSameShape(t *testing.T) {
	felt := ir.Scalar(ir.Felt)
	a := []TypedValue{{Value: 1, Type: felt}, {Value: 2, Type: felt}}
	b := []TypedValue{{Value: 1, Type: felt}, {Value: 2, Type: felt}}
	c := []TypedValue{{Value: 1, Type: felt}, {Value: 3, Type: felt}}

	assert.True(t, SameShape(a, b))
	assert.False(t, SameShape(a, c))
	assert.False(t, SameShape(a, []TypedValue{{Value: 1, Type: felt}}))
}

func TestSnapshotRestoreRoundTrips(t *testing.T) {
	var s OperandStack
	pushThree(&s)
	shape := s.Snapshot()

	s.Pop()
	assert.Equal(t, 2, s.Depth())

	s.Restore(shape)
	assert.Equal(t, 3, s.Depth())
	assert.True(t, SameShape(shape, s.Snapshot()))
}
