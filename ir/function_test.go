package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gopherj/hir2masm/ir"
)

func diamondFunc(t *testing.T) (*ir.Function, ir.BlockID, ir.BlockID, ir.BlockID, ir.BlockID) {
	t.Helper()
	felt := ir.Scalar(ir.Felt)
	f := ir.NewFunction(ir.FuncID{Module: "m", Name: "diamond"}, ir.Signature{
		Params:  []ir.Type{felt},
		Results: []ir.Type{felt},
	})
	entry := f.Entry
	p := f.Block(entry).Params[0]

	cond := f.Emit(entry, ir.Instruction{Op: ir.OpICmp, Args: []ir.ValueID{p, p}, Predicate: ir.Eq}, []ir.Type{ir.Scalar(ir.I1)})[0]

	thenB := f.NewBlock()
	elseB := f.NewBlock()
	joinB := f.NewBlock()
	joinParam := f.AddParam(joinB, felt)

	f.Emit(entry, ir.Instruction{
		Op:        ir.OpBrIf,
		Args:      []ir.ValueID{cond},
		Targets:   []ir.BlockID{thenB, elseB},
		BlockArgs: [][]ir.ValueID{{}, {}},
	}, nil)

	thenVal := f.Emit(thenB, ir.Instruction{Op: ir.OpConst, Imm: 1}, []ir.Type{felt})[0]
	f.Emit(thenB, ir.Instruction{Op: ir.OpBr, Targets: []ir.BlockID{joinB}, BlockArgs: [][]ir.ValueID{{thenVal}}}, nil)

	elseVal := f.Emit(elseB, ir.Instruction{Op: ir.OpConst, Imm: 2}, []ir.Type{felt})[0]
	f.Emit(elseB, ir.Instruction{Op: ir.OpBr, Targets: []ir.BlockID{joinB}, BlockArgs: [][]ir.ValueID{{elseVal}}}, nil)

	f.Emit(joinB, ir.Instruction{Op: ir.OpReturn, Args: []ir.ValueID{joinParam}}, nil)

	return f, entry, thenB, elseB, joinB
}

func TestFunctionSuccessors(t *testing.T) {
	f, entry, thenB, elseB, joinB := diamondFunc(t)

	assert.ElementsMatch(t, []ir.BlockID{thenB, elseB}, f.Successors(entry))
	assert.Equal(t, []ir.BlockID{joinB}, f.Successors(thenB))
	assert.Equal(t, []ir.BlockID{joinB}, f.Successors(elseB))
	assert.Nil(t, f.Successors(joinB))
}

func TestFunctionPreds(t *testing.T) {
	f, entry, thenB, elseB, joinB := diamondFunc(t)

	preds := f.Preds()
	assert.ElementsMatch(t, []ir.BlockID{thenB, elseB}, preds[joinB])
	assert.ElementsMatch(t, []ir.BlockID{entry}, preds[thenB])
	assert.ElementsMatch(t, []ir.BlockID{entry}, preds[elseB])
	assert.Empty(t, preds[entry])
}

func TestBlockArgsTo(t *testing.T) {
	f, entry, thenB, elseB, joinB := diamondFunc(t)
	_ = elseB

	term := f.Block(entry).Terminator(f)
	require.NotNil(t, term)
	// BrIf carries no args on either arm in this fixture.
	assert.Empty(t, ir.BlockArgsTo(term, thenB))

	thenTerm := f.Block(thenB).Terminator(f)
	args := ir.BlockArgsTo(thenTerm, joinB)
	require.Len(t, args, 1)
	assert.Equal(t, f.Block(thenB).Insts[0], f.ValueDef(args[0]).Inst)
}

func TestValueDefTracksBlockParamsAndResults(t *testing.T) {
	f, entry, _, _, joinB := diamondFunc(t)

	p := f.Block(entry).Params[0]
	def := f.ValueDef(p)
	assert.Equal(t, ir.DefBlockParam, def.Kind)
	assert.Equal(t, entry, def.Block)
	assert.Equal(t, 0, def.ParamIdx)

	joinParam := f.Block(joinB).Params[0]
	joinDef := f.ValueDef(joinParam)
	assert.Equal(t, ir.DefBlockParam, joinDef.Kind)
	assert.Equal(t, joinB, joinDef.Block)
}

func TestSizeOfAndIsWord(t *testing.T) {
	word := ir.ArrayOf(ir.Scalar(ir.I32), 4)
	assert.Equal(t, 4, ir.SizeOf(word))
	assert.True(t, ir.IsWord(word))

	felt := ir.Scalar(ir.Felt)
	assert.Equal(t, 1, ir.SizeOf(felt))
	assert.False(t, ir.IsWord(felt))

	st := ir.StructOf(felt, felt, ir.Scalar(ir.I32))
	assert.Equal(t, 3, ir.SizeOf(st))
}
