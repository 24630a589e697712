package masm_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gopherj/hir2masm/ir"
	"github.com/gopherj/hir2masm/masm"
)

func TestOpStringArithVariants(t *testing.T) {
	assert.Equal(t, "add", masm.Arith(masm.OpAdd, masm.VariantFelt).String())
	assert.Equal(t, "u32wrapping_add", masm.Arith(masm.OpAdd, masm.VariantU32Wrapping).String())
	assert.Equal(t, "u32checked_sub", masm.Arith(masm.OpSub, masm.VariantU32Checked).String())
}

func TestOpStringStackOps(t *testing.T) {
	assert.Equal(t, "dup.2", masm.Dup(2).String())
	assert.Equal(t, "movup.3", masm.MovUp(3).String())
	assert.Equal(t, "push.7", masm.Push(7).String())
	assert.Equal(t, "exec.intrinsics::i64::sdiv", masm.Exec("intrinsics::i64::sdiv").String())
}

func TestProgramContainsAndInsert(t *testing.T) {
	p := masm.NewProgram()
	assert.False(t, p.Contains("mymod"))
	p.Insert(masm.NewModule("mymod"))
	assert.True(t, p.Contains("mymod"))
}

func TestModuleAddImportDedups(t *testing.T) {
	m := masm.NewModule("mymod")
	m.AddImport("intrinsics::i64")
	m.AddImport("intrinsics::i64")
	require.Len(t, m.Imports, 1)
}

func TestPrintRendersNestedControl(t *testing.T) {
	p := masm.NewProgram()
	m := masm.NewModule("mymod")
	fn := masm.NewFunction(ir.FuncID{Module: "mymod", Name: "f"}, ir.Signature{})
	fn.Emit(
		masm.Op{Kind: masm.OpIfTrue},
		masm.Push(1),
		masm.Op{Kind: masm.OpElse},
		masm.Push(2),
		masm.Op{Kind: masm.OpEnd},
	)
	m.PushBack(fn)
	p.Insert(m)

	text := masm.Print(p)
	assert.True(t, strings.Contains(text, "mod mymod"))
	assert.True(t, strings.Contains(text, "export.f"))
	assert.True(t, strings.Contains(text, "if.true"))
	assert.True(t, strings.Contains(text, "else"))

	// The else/end lines must be less indented than the pushes they
	// bracket (region-nesting depth tracking).
	lines := strings.Split(text, "\n")
	var ifIndent, pushIndent int
	for _, l := range lines {
		trimmed := strings.TrimLeft(l, " ")
		indent := len(l) - len(trimmed)
		if trimmed == "if.true" {
			ifIndent = indent
		}
		if trimmed == "push.1" {
			pushIndent = indent
		}
	}
	assert.Less(t, ifIndent, pushIndent)
}
