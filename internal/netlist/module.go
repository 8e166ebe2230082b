package netlist

import "fmt"

// Module is a flattened netlist fragment: wires, boolean cells, memories.
type Module struct {
	Name     string
	Wires    []*Wire
	Cells    []*Cell
	Memories []*Mem

	wireIndex map[string]*Wire
}

func NewModule(name string) *Module {
	return &Module{Name: name, wireIndex: make(map[string]*Wire)}
}

// AddWire creates a wire; duplicate names are an error.
func (m *Module) AddWire(name string, width int) (*Wire, error) {
	if _, ok := m.wireIndex[name]; ok {
		return nil, fmt.Errorf("module %s: duplicate wire %q", m.Name, name)
	}
	w := &Wire{Name: name, Width: width}
	m.Wires = append(m.Wires, w)
	m.wireIndex[name] = w
	return w, nil
}

// Wire looks up a wire by name.
func (m *Module) Wire(name string) (*Wire, bool) {
	w, ok := m.wireIndex[name]
	return w, ok
}

func (m *Module) AddCell(c *Cell) {
	m.Cells = append(m.Cells, c)
}

func (m *Module) AddMemory(mem *Mem) {
	mem.Module = m
	m.Memories = append(m.Memories, mem)
}

// Design is an ordered collection of modules.
type Design struct {
	Modules []*Module
}
