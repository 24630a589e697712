// Package diag collects compile-time diagnostics (SPEC_FULL.md C0a): a
// small typed event plus a Sink interface, so the driver and the
// cmd/hirmasmc frontend can each choose how diagnostics surface (buffered
// for tests, or streamed to a logger) without the codegen packages knowing
// about either.
package diag

import (
	"fmt"

	"github.com/gopherj/hir2masm/ir"
)

// Severity distinguishes a hard failure from advisory information.
type Severity uint8

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "error"
	}
}

// Diagnostic is one reported event, carrying enough context (function,
// span, kind) to point a caller at the offending HIR.
type Diagnostic struct {
	Severity Severity
	Kind     string
	Function ir.FuncID
	Span     ir.Span
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s (%s, %s)", d.Severity, d.Kind, d.Message, d.Function, d.Span)
}

// Sink receives Diagnostics as compilation proceeds. Report must not block
// compilation of unrelated functions -- a Sink that wants to halt the
// build on the first error does so by having Report panic with a
// recoverable sentinel, or by having its caller inspect Diagnostics() /
// HasErrors() after the fact, not by the Sink itself aborting control flow.
type Sink interface {
	Report(Diagnostic)
}

// Collector is the Sink used by the driver and by tests: it buffers every
// Diagnostic reported to it in order, grounded on the same
// accumulate-then-inspect shape wazero's api.Module compilation errors use
// (a multi-error slice standing in for wazero's wrapped *sys.ExitError
// chains, since this project's diagnostics are domain-specific rather than
// process exit codes).
type Collector struct {
	diagnostics []Diagnostic
}

func NewCollector() *Collector { return &Collector{} }

func (c *Collector) Report(d Diagnostic) { c.diagnostics = append(c.diagnostics, d) }

func (c *Collector) Diagnostics() []Diagnostic { return c.diagnostics }

func (c *Collector) HasErrors() bool {
	for _, d := range c.diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (c *Collector) Error() string {
	if len(c.diagnostics) == 0 {
		return "no diagnostics"
	}
	msg := fmt.Sprintf("%d diagnostic(s):", len(c.diagnostics))
	for _, d := range c.diagnostics {
		msg += "\n  " + d.String()
	}
	return msg
}
