// Package compiler implements the Program/Module/Function conversion
// cascade (C8): it runs the rewrite passes, builds the shared analysis
// cache, drives the scheduler and emitter per function, and assembles the
// resulting masm.Function/Module/Program -- the orchestration grounded on
// original_source/codegen/masm/src/convert.rs's top-level driver loop,
// reworked from its trait-object ConversionPass cascade into the
// concrete-function style package rewrite already establishes.
package compiler

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/gopherj/hir2masm/analysis"
	"github.com/gopherj/hir2masm/codegen"
	"github.com/gopherj/hir2masm/diag"
	"github.com/gopherj/hir2masm/intrinsics"
	"github.com/gopherj/hir2masm/ir"
	"github.com/gopherj/hir2masm/masm"
	"github.com/gopherj/hir2masm/rewrite"
	"github.com/gopherj/hir2masm/session"
)

// Driver owns the pieces shared across a single compilation: a fresh
// analysis.Cache per function (concurrent workers each get their own, so
// no cache is ever shared across goroutines), the program-wide intrinsics.Resolver (loaded
// once and reused across every module), and wherever diagnostics go.
type Driver struct {
	cfg        session.Config
	sink       diag.Sink
	intrinsics *intrinsics.Resolver
}

func NewDriver(cfg session.Config, sink diag.Sink) *Driver {
	return &Driver{cfg: cfg, sink: sink, intrinsics: intrinsics.NewResolver()}
}

// CompileProgram lowers every module of p into a masm.Program, resolving
// globals against p's program-wide table (spec.md 4.8: "when converting a
// multi-module HIR program, global-variable layout from the program-wide
// analysis is used"). Intrinsic modules referenced by any function are
// inserted into the output program at most once, regardless of how many
// functions or modules reference them (scenario S6).
func (d *Driver) CompileProgram(ctx context.Context, p *ir.Program) (*masm.Program, error) {
	out := masm.NewProgram()

	if d.cfg.EmitConcurrently {
		results := make([]*masm.Module, len(p.Modules))
		intrinsicPaths := make([][]string, len(p.Modules))
		sinks := make([]*diag.Collector, len(p.Modules))
		g, gctx := errgroup.WithContext(ctx)
		for i, m := range p.Modules {
			i, m := i, m
			// Each goroutine reports into its own Collector; their
			// diagnostics reach d.sink in module order once all have finished.
			sinks[i] = diag.NewCollector()
			worker := *d
			worker.sink = sinks[i]
			g.Go(func() error {
				compiled, used, err := worker.compileModule(gctx, m, p.Globals)
				if err != nil {
					return err
				}
				results[i] = compiled
				intrinsicPaths[i] = used
				return nil
			})
		}
		err := g.Wait()
		for _, s := range sinks {
			for _, dg := range s.Diagnostics() {
				d.sink.Report(dg)
			}
		}
		if err != nil {
			return nil, err
		}
		// Insert modules and resolve intrinsics sequentially, in input
		// order, once every goroutine has finished: masm.Program is not
		// safe for concurrent mutation, and S6's insert-once-per-program
		// guarantee needs a single deterministic pass anyway.
		for i, m := range results {
			out.Insert(m)
			if err := d.insertIntrinsics(out, intrinsicPaths[i]); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	for _, m := range p.Modules {
		compiled, intrinsicPaths, err := d.compileModule(ctx, m, p.Globals)
		if err != nil {
			return nil, err
		}
		out.Insert(compiled)
		if err := d.insertIntrinsics(out, intrinsicPaths); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// CompileModule lowers a single module in isolation, using the module's own
// global table rather than any program-wide layout (spec.md 4.8: "when
// converting a single self-contained module, the module's own global table
// is used").
func (d *Driver) CompileModule(ctx context.Context, m *ir.Module) (*masm.Program, error) {
	out := masm.NewProgram()
	compiled, intrinsicPaths, err := d.compileModule(ctx, m, m.Globals)
	if err != nil {
		return nil, err
	}
	out.Insert(compiled)
	if err := d.insertIntrinsics(out, intrinsicPaths); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Driver) compileModule(ctx context.Context, m *ir.Module, globals map[string]ir.GlobalVar) (*masm.Module, []string, error) {
	out := masm.NewModule(m.Name)
	var allIntrinsics []string
	for _, f := range m.Functions {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		fn, used, err := d.CompileFunction(f, globals)
		if err != nil {
			return nil, nil, err
		}
		out.PushBack(fn)
		allIntrinsics = append(allIntrinsics, used...)
	}
	return out, allIntrinsics, nil
}

// CompileFunction runs the full per-function pipeline: precondition the CFG
// (split-critical-edges, then treeify), compute the dominator/loop/liveness
// analyses fresh (a Driver gives every function its own analysis.Cache, so
// two functions compiled concurrently never contend on one), schedule, then
// emit. Returns the compiled masm.Function plus the set of intrinsic paths
// it referenced.
func (d *Driver) CompileFunction(f *ir.Function, globals map[string]ir.GlobalVar) (*masm.Function, []string, error) {
	rewrite.SplitCriticalEdges(f)
	rewrite.Treeify(f)

	cache := analysis.NewCache()
	dt := cache.DominatorTree(f)
	lf := cache.LoopForest(f)
	live := cache.Liveness(f)

	sched := codegen.NewScheduler(f, dt, lf, live).Build()

	fn := masm.NewFunction(f.ID, f.Sig)
	emitter := codegen.NewEmitter(f, fn, dt, lf, live, globals)

	var initial codegen.OperandStack
	for i := len(f.Sig.Params) - 1; i >= 0; i-- {
		initial.Push(f.Block(f.Entry).Params[i], f.Sig.Params[i])
	}

	used, diags := emitter.Emit(sched, initial)
	for _, e := range diags {
		d.sink.Report(diag.Diagnostic{
			Severity: severityFor(e, d.cfg),
			Kind:     kindOf(e),
			Function: f.ID,
			Message:  e.Error(),
		})
	}
	if hasFatal(diags, d.cfg) {
		return nil, nil, fmt.Errorf("compiler: function %s failed to compile: %w", f.ID, joinErrors(diags))
	}
	return fn, used, nil
}

func (d *Driver) insertIntrinsics(p *masm.Program, paths []string) error {
	seen := map[string]bool{}
	for _, path := range paths {
		if seen[path] {
			continue
		}
		seen[path] = true
		m, err := d.intrinsics.Resolve(path)
		if err != nil {
			d.sink.Report(diag.Diagnostic{Severity: diag.SeverityError, Kind: codegen.KindIntrinsicNotFound, Message: err.Error()})
			return err
		}
		if !p.Contains(m.Name) {
			p.Insert(m)
		}
	}
	return nil
}

func kindOf(e error) string {
	if d, ok := e.(codegen.Diagnostic); ok {
		return d.Kind
	}
	return "unknown"
}

func severityFor(e error, cfg session.Config) diag.Severity {
	if d, ok := e.(codegen.Diagnostic); ok && d.Kind == codegen.KindMergeMismatch && !cfg.VerifyMergeShapes {
		return diag.SeverityWarning
	}
	return diag.SeverityError
}

func hasFatal(errs []error, cfg session.Config) bool {
	for _, e := range errs {
		if d, ok := e.(codegen.Diagnostic); ok && d.Kind == codegen.KindMergeMismatch && !cfg.VerifyMergeShapes {
			continue
		}
		return true
	}
	return false
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	msg := errs[0].Error()
	for _, e := range errs[1:] {
		msg += "; " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}
