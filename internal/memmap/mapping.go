package memmap

import (
	"fmt"

	"cellmap/internal/memlib"
	"cellmap/internal/netlist"
	"cellmap/internal/sat"
)

// TraceFunc receives the mapper's debug trace. May be nil.
type TraceFunc func(format string, args ...any)

// Mapping is the candidate search for one abstract memory. Cfgs is the
// surviving candidate set after all pruning phases; LogicOK reports
// whether the memory may fall back to soft logic.
type Mapping struct {
	worker *Worker
	sat    *sat.MemQueries
	mem    *netlist.Mem
	lib    *memlib.Library
	trace  TraceFunc

	Cfgs    []MemConfig
	LogicOK bool
	Kind    memlib.RamKind
	Style   string
}

// Run maps one memory against the library. The returned error is fatal
// (an explicit user style request that no RAM satisfies); an empty Cfgs
// with a nil error just means no hardware binding exists.
func Run(worker *Worker, mem *netlist.Mem, lib *memlib.Library, trace TraceFunc) (*Mapping, error) {
	m := &Mapping{
		worker: worker,
		sat:    sat.NewMemQueries(worker.Module, mem),
		mem:    mem,
		lib:    lib,
		trace:  trace,
	}
	m.determineStyle()
	m.LogicOK = m.determineLogicOK()
	if m.Kind == memlib.RamKindLogic {
		return m, nil
	}
	for i := range lib.RamDefs {
		m.Cfgs = append(m.Cfgs, newMemConfig(i))
	}
	if err := m.handleRamKind(); err != nil {
		return m, err
	}
	if err := m.handleRamStyle(); err != nil {
		return m, err
	}
	m.handleInit()
	m.handleWrPorts()
	m.handleRdPorts()
	m.handleTrans()
	// If we got this far, the memory is mappable. The remaining phases
	// add emulation obligations where no capability matches; the only
	// candidates they drop are those whose free sync-reset match sits on
	// a port with a live enable and no applicable rdsrstmode capability.
	m.handlePriority()
	m.handleRdInit()
	m.handleRdArst()
	m.handleRdSrst()
	m.traceCandidates()
	m.handleDims()
	return m, nil
}

// determineStyle inspects memory attributes to find the user-requested
// mapping style.
func (m *Mapping) determineStyle() {
	m.Kind = memlib.RamKindAuto
	m.Style = ""
	for _, attr := range []string{
		"ram_block", "rom_block", "ram_style", "rom_style",
		"ramstyle", "romstyle", "syn_ramstyle", "syn_romstyle",
	} {
		val, ok := m.mem.Attr(attr)
		if !ok {
			continue
		}
		if v, isInt := val.AsInt(); isInt && v == 1 {
			m.Kind = memlib.RamKindNotLogic
			return
		}
		switch s := val.DecodeString(); s {
		case "auto":
			// Nothing.
		case "logic", "registers":
			m.Kind = memlib.RamKindLogic
		case "distributed":
			m.Kind = memlib.RamKindDistributed
		case "block", "block_ram", "ebr":
			m.Kind = memlib.RamKindBlock
		case "huge", "ultra":
			m.Kind = memlib.RamKindHuge
		default:
			m.Kind = memlib.RamKindNotLogic
			m.Style = s
		}
		return
	}
	if m.mem.GetBoolAttribute("logic_block") {
		m.Kind = memlib.RamKindLogic
	}
}

// determineLogicOK decides whether the memory can be mapped entirely to
// soft logic: all write ports must share one clock domain.
func (m *Mapping) determineLogicOK() bool {
	if m.Kind != memlib.RamKindAuto && m.Kind != memlib.RamKindLogic {
		return false
	}
	if len(m.mem.WrPorts) == 0 {
		return true
	}
	first := &m.mem.WrPorts[0]
	for i := range m.mem.WrPorts {
		port := &m.mem.WrPorts[i]
		if !port.ClkEnable {
			return false
		}
		if port.Clk != first.Clk {
			return false
		}
		if port.ClkPolarity != first.ClkPolarity {
			return false
		}
	}
	return true
}

// handleRamKind applies the distributed/block/huge restriction, if any.
func (m *Mapping) handleRamKind() error {
	if m.Kind == memlib.RamKindAuto || m.Kind == memlib.RamKindNotLogic {
		return nil
	}
	newCfgs := m.Cfgs[:0:0]
	for i := range m.Cfgs {
		if m.lib.RamDefs[m.Cfgs[i].RamDef].Kind == m.Kind {
			newCfgs = append(newCfgs, m.Cfgs[i])
		}
	}
	m.Cfgs = newCfgs
	if len(m.Cfgs) == 0 {
		return fmt.Errorf("%s.%s: no available %s RAMs", m.mem.Module.Name, m.mem.ID, m.Kind)
	}
	return nil
}

// handleRamStyle applies a named style restriction, if any.
func (m *Mapping) handleRamStyle() error {
	if m.Style == "" {
		return nil
	}
	var newCfgs []MemConfig
	for i := range m.Cfgs {
		cfg := &m.Cfgs[i]
		for _, def := range m.lib.RamDefs[cfg.RamDef].Style {
			if def.Val != m.Style {
				continue
			}
			newCfg := cfg.Clone()
			if !newCfg.Opts.Apply(def.Opts) {
				continue
			}
			newCfgs = append(newCfgs, newCfg)
		}
	}
	m.Cfgs = newCfgs
	if len(m.Cfgs) == 0 {
		return fmt.Errorf("%s.%s: no available RAMs with style %q", m.mem.Module.Name, m.mem.ID, m.Style)
	}
	return nil
}

// handleInit applies memory initializer restrictions, if any.
func (m *Mapping) handleInit() {
	hasNonx := false
	hasOne := false
	for _, init := range m.mem.Inits {
		if init.Data.IsFullyUndef() {
			continue
		}
		hasNonx = true
		if init.Data.HasOneBits() {
			hasOne = true
		}
	}
	if !hasNonx {
		return
	}

	var newCfgs []MemConfig
	for i := range m.Cfgs {
		cfg := &m.Cfgs[i]
		for _, def := range m.lib.RamDefs[cfg.RamDef].Init {
			if hasOne {
				if def.Val != memlib.InitAny {
					continue
				}
			} else {
				if def.Val != memlib.InitAny && def.Val != memlib.InitZero {
					continue
				}
			}
			newCfg := cfg.Clone()
			if !newCfg.Opts.Apply(def.Opts) {
				continue
			}
			newCfgs = append(newCfgs, newCfg)
		}
	}
	m.Cfgs = newCfgs
}

// handleDims picks the unit geometry; left for the downstream stage.
func (m *Mapping) handleDims() {
}
