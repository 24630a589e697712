package ir

import "fmt"

// CallConv distinguishes calling conventions the signature may request.
type CallConv uint8

const (
	CallConvFast CallConv = iota
	CallConvKernel
)

// Signature is a function's parameter/result types and calling convention.
type Signature struct {
	Params  []Type
	Results []Type
	CC      CallConv
}

// FuncID identifies a function within a Module for cross-function lookups
// (calls, intrinsic import bookkeeping).
type FuncID struct {
	Module string
	Name   string
}

func (id FuncID) String() string { return id.Module + "::" + id.Name }

// Function is an HIR function: arenas of blocks, instructions and values,
// addressed by the dense IDs defined in ids.go. Arenas are owned here;
// Block/Instruction/Value types themselves hold only indices, never
// pointers into one another, so the structure (which is naturally cyclic:
// a block's terminator references successor blocks which reference it
// back via predecessors) needs no back-pointer bookkeeping.
type Function struct {
	ID   FuncID
	Sig  Signature
	Span Span

	Entry BlockID

	blocks []Block
	insts  []Instruction
	values []valueData
}

func NewFunction(id FuncID, sig Signature) *Function {
	f := &Function{ID: id, Sig: sig}
	f.Entry = f.NewBlock()
	for _, pt := range sig.Params {
		f.AddParam(f.Entry, pt)
	}
	return f
}

func (f *Function) NewBlock() BlockID {
	id := BlockID(len(f.blocks))
	f.blocks = append(f.blocks, Block{ID: id})
	return id
}

func (f *Function) Block(id BlockID) *Block { return &f.blocks[id] }

// Blocks returns all block IDs in arena (creation) order. Callers that need
// a particular traversal order (reverse postorder, dominator preorder)
// should use the analysis package rather than relying on this order.
func (f *Function) Blocks() []BlockID {
	ids := make([]BlockID, len(f.blocks))
	for i := range f.blocks {
		ids[i] = BlockID(i)
	}
	return ids
}

func (f *Function) NumBlocks() int { return len(f.blocks) }

func (f *Function) Inst(id InstID) *Instruction { return &f.insts[id] }

func (f *Function) NumInsts() int { return len(f.insts) }

func (f *Function) newValue(ty Type, def ValueDef) ValueID {
	id := ValueID(len(f.values))
	f.values = append(f.values, valueData{Type: ty, Def: def})
	return id
}

func (f *Function) ValueType(v ValueID) Type { return f.values[v].Type }

func (f *Function) ValueDef(v ValueID) ValueDef { return f.values[v].Def }

// AddParam appends a new block parameter of type ty to b, returning its
// fresh Value.
func (f *Function) AddParam(b BlockID, ty Type) ValueID {
	blk := f.Block(b)
	idx := len(blk.Params)
	v := f.newValue(ty, ValueDef{Kind: DefBlockParam, Block: b, ParamIdx: idx})
	blk.Params = append(blk.Params, v)
	return v
}

// Emit appends a new instruction to the end of b's instruction list,
// allocating one fresh Value per entry in resultTypes. It is the caller's
// responsibility to keep terminators last and singular per block.
func (f *Function) Emit(b BlockID, inst Instruction, resultTypes []Type) []ValueID {
	id := InstID(len(f.insts))
	inst.ID = id
	results := make([]ValueID, len(resultTypes))
	for i, ty := range resultTypes {
		results[i] = f.newValue(ty, ValueDef{Kind: DefInstResult, Inst: id, ResultIdx: i})
	}
	inst.Results = results
	f.insts = append(f.insts, inst)
	f.Block(b).Insts = append(f.Block(b).Insts, id)
	return results
}

// Successors returns the blocks a block's terminator may transfer control
// to, in a stable, deterministic order (matching Targets/Cases order).
func (f *Function) Successors(b BlockID) []BlockID {
	term := f.Block(b).Terminator(f)
	if term == nil {
		return nil
	}
	switch term.Op {
	case OpBr:
		return append([]BlockID(nil), term.Targets...)
	case OpBrIf:
		return append([]BlockID(nil), term.Targets...)
	case OpSwitch:
		succs := make([]BlockID, 0, len(term.Cases)+1)
		for _, c := range term.Cases {
			succs = append(succs, c.Target)
		}
		succs = append(succs, term.Default)
		return succs
	default: // OpReturn, OpUnreachable
		return nil
	}
}

// Preds computes, for every block, the list of blocks that branch to it.
// Recomputed on demand (O(blocks+edges)) rather than maintained
// incrementally, since the CFG rewrites in package rewrite mutate
// terminators directly and incremental upkeep would be strictly more
// bookkeeping than a fresh pass costs for functions of this scale.
func (f *Function) Preds() map[BlockID][]BlockID {
	preds := make(map[BlockID][]BlockID, len(f.blocks))
	for i := range f.blocks {
		b := BlockID(i)
		for _, s := range f.Successors(b) {
			preds[s] = append(preds[s], b)
		}
	}
	return preds
}

// BlockArgsTo returns the Values block b passes as arguments to successor
// target via the given terminator, in the target's parameter order.
func BlockArgsTo(term *Instruction, target BlockID) []ValueID {
	switch term.Op {
	case OpBr:
		return term.BlockArgs[0]
	case OpBrIf:
		for i, t := range term.Targets {
			if t == target {
				return term.BlockArgs[i]
			}
		}
	case OpSwitch:
		for _, c := range term.Cases {
			if c.Target == target {
				return c.Args
			}
		}
		if term.Default == target {
			return term.DefArgs
		}
	}
	return nil
}

func (f *Function) String() string {
	return fmt.Sprintf("func %s(%v) -> %v", f.ID, f.Sig.Params, f.Sig.Results)
}
