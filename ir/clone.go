package ir

// Remap translates a Value reference during cloning; values with no entry
// (defined outside the region being cloned) pass through unchanged.
type Remap func(ValueID) ValueID

func remapAll(vs []ValueID, r Remap) []ValueID {
	if vs == nil {
		return nil
	}
	out := make([]ValueID, len(vs))
	for i, v := range vs {
		out[i] = r(v)
	}
	return out
}

// CloneInstructionInto appends a structural copy of src to block b: operand
// Values are translated through remap, and each result gets a fresh Value
// of the same type (recorded into valMap by the caller via the returned
// results). Used by the treeify rewrite to duplicate a block's instruction
// list under a fresh identity.
func (f *Function) CloneInstructionInto(b BlockID, src *Instruction, remap Remap) []ValueID {
	cp := *src
	cp.Args = remapAll(src.Args, remap)
	if src.BlockArgs != nil {
		cp.BlockArgs = make([][]ValueID, len(src.BlockArgs))
		for i, args := range src.BlockArgs {
			cp.BlockArgs[i] = remapAll(args, remap)
		}
	}
	if src.Cases != nil {
		cp.Cases = make([]SwitchCase, len(src.Cases))
		for i, c := range src.Cases {
			cp.Cases[i] = SwitchCase{Key: c.Key, Target: c.Target, Args: remapAll(c.Args, remap)}
		}
	}
	cp.DefArgs = remapAll(src.DefArgs, remap)
	cp.Targets = append([]BlockID(nil), src.Targets...)

	resultTypes := make([]Type, len(src.Results))
	for i, rv := range src.Results {
		resultTypes[i] = f.ValueType(rv)
	}
	return f.Emit(b, cp, resultTypes)
}

// RetargetTerminatorBlock rewrites block b's terminator so that any target
// equal to from is replaced with to. Used after cloning a dominator subtree
// to redirect edges into the newly cloned blocks.
func (f *Function) RetargetTerminatorBlock(b BlockID, from, to BlockID) {
	term := f.Block(b).Terminator(f)
	if term == nil {
		return
	}
	for i, t := range term.Targets {
		if t == from {
			term.Targets[i] = to
		}
	}
	if term.Default == from {
		term.Default = to
	}
	for i := range term.Cases {
		if term.Cases[i].Target == from {
			term.Cases[i].Target = to
		}
	}
}
