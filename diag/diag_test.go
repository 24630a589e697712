package diag_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gopherj/hir2masm/diag"
	"github.com/gopherj/hir2masm/ir"
)

func TestCollectorHasErrorsOnlyOnErrorSeverity(t *testing.T) {
	c := diag.NewCollector()
	assert.False(t, c.HasErrors())

	c.Report(diag.Diagnostic{Severity: diag.SeverityWarning, Kind: "merge-mismatch", Message: "shape drift"})
	assert.False(t, c.HasErrors(), "a warning alone must not count as an error")

	c.Report(diag.Diagnostic{Severity: diag.SeverityError, Kind: "invariant-violation", Message: "boom"})
	assert.True(t, c.HasErrors())

	require.Len(t, c.Diagnostics(), 2)
}

func TestCollectorErrorStringIncludesEachDiagnostic(t *testing.T) {
	c := diag.NewCollector()
	assert.Equal(t, "no diagnostics", c.Error())

	c.Report(diag.Diagnostic{
		Severity: diag.SeverityError,
		Kind:     "unsupported-construct",
		Function: ir.FuncID{Module: "m", Name: "f"},
		Message:  "opcode not supported",
	})
	msg := c.Error()
	assert.Contains(t, msg, "unsupported-construct")
	assert.Contains(t, msg, "opcode not supported")
	assert.Contains(t, msg, "m::f")
}
