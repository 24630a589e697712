package ir

import "fmt"

// ValueID, InstID and BlockID are dense arena indices, following wazero's
// ssa.Builder convention of indexing into per-function slices rather than
// chasing pointers through a cyclic block/instruction graph.
type (
	ValueID uint32
	InstID  uint32
	BlockID uint32
)

const invalidID = ^uint32(0)

// ValueInvalid is the zero-value-safe sentinel for an absent Value.
var ValueInvalid = ValueID(invalidID)

func (v ValueID) Valid() bool { return v != ValueInvalid }
func (v ValueID) String() string {
	if !v.Valid() {
		return "v<invalid>"
	}
	return fmt.Sprintf("v%d", uint32(v))
}

func (b BlockID) String() string { return fmt.Sprintf("blk%d", uint32(b)) }
func (i InstID) String() string  { return fmt.Sprintf("inst%d", uint32(i)) }
