package masm

import "github.com/gopherj/hir2masm/ir"

// Import records a module-level dependency, e.g. an intrinsics module
// referenced via `exec.intrinsics::...`.
type Import struct {
	Name string
}

// Function is a MASM procedure: a name, signature (carried through from
// HIR for documentation; nothing checks calls against it) and its emitted
// op sequence.
type Function struct {
	ID   ir.FuncID
	Sig  ir.Signature
	Body []Op
}

func NewFunction(id ir.FuncID, sig ir.Signature) *Function {
	return &Function{ID: id, Sig: sig}
}

func (fn *Function) Emit(ops ...Op) { fn.Body = append(fn.Body, ops...) }

// Module is a named, ordered list of Functions plus the imports the module
// requires (spec.md 3: "A module is a name plus an ordered list of
// functions and an import list").
type Module struct {
	Name      string
	Imports   []Import
	Functions []*Function
}

func NewModule(name string) *Module { return &Module{Name: name} }

func (m *Module) PushBack(fn *Function) { m.Functions = append(m.Functions, fn) }

func (m *Module) AddImport(name string) {
	for _, im := range m.Imports {
		if im.Name == name {
			return
		}
	}
	m.Imports = append(m.Imports, Import{Name: name})
}

// Program is a collection of modules. The driver inserts intrinsic modules
// here once, program-wide, the first time any module references them
// (spec.md 4.8, S6).
type Program struct {
	Modules []*Module
}

func NewProgram() *Program { return &Program{} }

func (p *Program) Contains(name string) bool {
	for _, m := range p.Modules {
		if m.Name == name {
			return true
		}
	}
	return false
}

func (p *Program) Insert(m *Module) { p.Modules = append(p.Modules, m) }
