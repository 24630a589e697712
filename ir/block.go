package ir

// Block is an ordered sequence of Instructions ending in a terminator, plus
// the list of block parameters (phi-equivalents) callers must supply
// arguments for positionally and by type.
type Block struct {
	ID     BlockID
	Params []ValueID
	Insts  []InstID
}

// Terminator returns the block's last instruction (its terminator once the
// block is complete), or nil if the block has no instructions yet (used
// transiently while building).
func (b *Block) Terminator(f *Function) *Instruction {
	if len(b.Insts) == 0 {
		return nil
	}
	return f.Inst(b.Insts[len(b.Insts)-1])
}
