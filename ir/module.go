package ir

// GlobalVar describes a module-level variable's placement in linear memory.
type GlobalVar struct {
	Name   string
	Offset uint32
	Size   uint32
}

// Module is a named collection of Functions plus the module's own global
// table, used when converting a single self-contained module (spec.md
// 4.8: "when converting a single module, the module's own global table is
// used").
type Module struct {
	Name      string
	Functions []*Function
	Globals   map[string]GlobalVar
}

func NewModule(name string) *Module {
	return &Module{Name: name, Globals: make(map[string]GlobalVar)}
}

func (m *Module) AddFunction(f *Function) { m.Functions = append(m.Functions, f) }

func (m *Module) AddGlobal(g GlobalVar) { m.Globals[g.Name] = g }

// Program is a collection of Modules compiled together, with global
// placement fixed program-wide (spec.md 4.8: "when converting a multi-module
// HIR program, global-variable layout from the program-wide analysis is
// used").
type Program struct {
	Modules []*Module
	Globals map[string]GlobalVar
}

func NewProgram() *Program {
	return &Program{Globals: make(map[string]GlobalVar)}
}

func (p *Program) AddModule(m *Module) { p.Modules = append(p.Modules, m) }
