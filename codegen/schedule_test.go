package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gopherj/hir2masm/analysis"
	"github.com/gopherj/hir2masm/ir"
	"github.com/gopherj/hir2masm/rewrite"
)

func buildSchedule(t *testing.T, f *ir.Function) Schedule {
	t.Helper()
	rewrite.SplitCriticalEdges(f)
	rewrite.Treeify(f)
	dt := analysis.BuildDominatorTree(f)
	lf := analysis.BuildLoopForest(f, dt)
	live := analysis.ComputeLiveness(f, dt)
	return NewScheduler(f, dt, lf, live).Build()
}

func branchFunc(t *testing.T) *ir.Function {
	t.Helper()
	felt := ir.Scalar(ir.Felt)
	f := ir.NewFunction(ir.FuncID{Module: "m", Name: "branch"}, ir.Signature{
		Params: []ir.Type{felt}, Results: []ir.Type{felt},
	})
	entry := f.Entry
	p := f.Block(entry).Params[0]
	cond := f.Emit(entry, ir.Instruction{Op: ir.OpICmp, Args: []ir.ValueID{p, p}, Predicate: ir.Eq}, []ir.Type{ir.Scalar(ir.I1)})[0]

	thenB := f.NewBlock()
	elseB := f.NewBlock()
	joinB := f.NewBlock()
	joinParam := f.AddParam(joinB, felt)

	f.Emit(entry, ir.Instruction{
		Op: ir.OpBrIf, Args: []ir.ValueID{cond},
		Targets: []ir.BlockID{thenB, elseB}, BlockArgs: [][]ir.ValueID{{}, {}},
	}, nil)

	tv := f.Emit(thenB, ir.Instruction{Op: ir.OpConst, Imm: 1}, []ir.Type{felt})[0]
	f.Emit(thenB, ir.Instruction{Op: ir.OpBr, Targets: []ir.BlockID{joinB}, BlockArgs: [][]ir.ValueID{{tv}}}, nil)

	ev := f.Emit(elseB, ir.Instruction{Op: ir.OpConst, Imm: 2}, []ir.Type{felt})[0]
	f.Emit(elseB, ir.Instruction{Op: ir.OpBr, Targets: []ir.BlockID{joinB}, BlockArgs: [][]ir.ValueID{{ev}}}, nil)

	f.Emit(joinB, ir.Instruction{Op: ir.OpReturn, Args: []ir.ValueID{joinParam}}, nil)
	return f
}

func loopFuncForSchedule(t *testing.T) *ir.Function {
	t.Helper()
	felt := ir.Scalar(ir.Felt)
	f := ir.NewFunction(ir.FuncID{Module: "m", Name: "loop"}, ir.Signature{Results: []ir.Type{felt}})
	entry := f.Entry
	header := f.NewBlock()
	body := f.NewBlock()
	exit := f.NewBlock()

	i := f.AddParam(header, felt)

	zero := f.Emit(entry, ir.Instruction{Op: ir.OpConst, Imm: 0}, []ir.Type{felt})[0]
	f.Emit(entry, ir.Instruction{Op: ir.OpBr, Targets: []ir.BlockID{header}, BlockArgs: [][]ir.ValueID{{zero}}}, nil)

	bound := f.Emit(header, ir.Instruction{Op: ir.OpConst, Imm: 5}, []ir.Type{felt})[0]
	cond := f.Emit(header, ir.Instruction{Op: ir.OpICmp, Args: []ir.ValueID{i, bound}, Predicate: ir.Lt}, []ir.Type{ir.Scalar(ir.I1)})[0]
	f.Emit(header, ir.Instruction{
		Op: ir.OpBrIf, Args: []ir.ValueID{cond},
		Targets: []ir.BlockID{body, exit}, BlockArgs: [][]ir.ValueID{{}, {}},
	}, nil)

	one := f.Emit(body, ir.Instruction{Op: ir.OpConst, Imm: 1}, []ir.Type{felt})[0]
	next := f.Emit(body, ir.Instruction{Op: ir.OpIAdd, Args: []ir.ValueID{i, one}}, []ir.Type{felt})[0]
	f.Emit(body, ir.Instruction{Op: ir.OpBr, Targets: []ir.BlockID{header}, BlockArgs: [][]ir.ValueID{{next}}}, nil)

	f.Emit(exit, ir.Instruction{Op: ir.OpReturn, Args: []ir.ValueID{i}}, nil)
	return f
}

// P4: the schedule visits every HIR instruction exactly once.
func TestScheduleCoversEveryInstructionOnceBranch(t *testing.T) {
	f := branchFunc(t)
	sched := buildSchedule(t, f)
	assertEachInstScheduledOnce(t, f, sched)
}

func TestScheduleCoversEveryInstructionOnceLoop(t *testing.T) {
	f := loopFuncForSchedule(t)
	sched := buildSchedule(t, f)
	assertEachInstScheduledOnce(t, f, sched)
}

func assertEachInstScheduledOnce(t *testing.T, f *ir.Function, sched Schedule) {
	t.Helper()
	seen := map[ir.InstID]int{}
	for _, op := range sched {
		if op.Kind == SchedInst {
			seen[op.Inst]++
		}
	}
	for i := 0; i < f.NumInsts(); i++ {
		assert.Equalf(t, 1, seen[ir.InstID(i)], "instruction %d scheduled %d times, want 1", i, seen[ir.InstID(i)])
	}
}

func TestScheduleBranchBracketsBalance(t *testing.T) {
	f := branchFunc(t)
	sched := buildSchedule(t, f)

	var enters, elses, exits int
	for _, op := range sched {
		switch op.Kind {
		case SchedEnterIf:
			enters++
		case SchedElse:
			elses++
		case SchedExitIf:
			exits++
		}
	}
	require.Equal(t, 1, enters)
	require.Equal(t, 1, elses)
	require.Equal(t, 1, exits)
}

func TestScheduleLoopBracketsBalance(t *testing.T) {
	f := loopFuncForSchedule(t)
	sched := buildSchedule(t, f)

	var enters, exits int
	enterIdx, exitIdx := -1, -1
	for idx, op := range sched {
		switch op.Kind {
		case SchedEnterWhile:
			enters++
			enterIdx = idx
		case SchedExitWhile:
			exits++
			exitIdx = idx
		}
	}
	require.Equal(t, 1, enters)
	require.Equal(t, 1, exits)
	assert.Less(t, enterIdx, exitIdx, "SchedEnterWhile must precede its matching SchedExitWhile")
}
