// Package testkit holds invariant checkers shared by engine tests.
package testkit

import (
	"fmt"

	"cellmap/internal/memlib"
	"cellmap/internal/memmap"
	"cellmap/internal/netlist"
)

// CheckConfigInvariants runs the structural invariants every mapping
// candidate must satisfy:
//  1. every abstract port is bound to a port group of the chosen RAM def
//  2. port-group usage never exceeds the group's name count, counting a
//     shared read+write pair as one
//  3. shared-port cross references are consistent both ways
//  4. named clock tags resolve to exactly one assignment table entry
func CheckConfigInvariants(lib *memlib.Library, mem *netlist.Mem, cfg *memmap.MemConfig) error {
	if cfg.RamDef < 0 || cfg.RamDef >= len(lib.RamDefs) {
		return fmt.Errorf("ram def index %d out of range", cfg.RamDef)
	}
	rdef := &lib.RamDefs[cfg.RamDef]

	if len(cfg.WrPorts) != len(mem.WrPorts) {
		return fmt.Errorf("want %d write port configs, got %d", len(mem.WrPorts), len(cfg.WrPorts))
	}
	if len(cfg.RdPorts) != len(mem.RdPorts) {
		return fmt.Errorf("want %d read port configs, got %d", len(mem.RdPorts), len(cfg.RdPorts))
	}

	// Usage per port group: write ports consume slots; a shared read
	// port rides along with its write port.
	used := make(map[int]int)
	for i := range cfg.WrPorts {
		pcfg := &cfg.WrPorts[i]
		if pcfg.PortDef < 0 || pcfg.PortDef >= len(rdef.Ports) {
			return fmt.Errorf("write port %d: port def %d out of range", i, pcfg.PortDef)
		}
		if !rdef.Ports[pcfg.PortDef].Val.Kind.IsWrite() {
			return fmt.Errorf("write port %d bound to non-write group %d", i, pcfg.PortDef)
		}
		used[pcfg.PortDef]++
		if pcfg.RdPort != -1 {
			if pcfg.RdPort < 0 || pcfg.RdPort >= len(cfg.RdPorts) {
				return fmt.Errorf("write port %d: shared read port %d out of range", i, pcfg.RdPort)
			}
			if cfg.RdPorts[pcfg.RdPort].WrPort != i {
				return fmt.Errorf("write port %d: sharing not mirrored by read port %d", i, pcfg.RdPort)
			}
		}
	}
	for i := range cfg.RdPorts {
		pcfg := &cfg.RdPorts[i]
		if pcfg.PortDef < 0 || pcfg.PortDef >= len(rdef.Ports) {
			return fmt.Errorf("read port %d: port def %d out of range", i, pcfg.PortDef)
		}
		if !rdef.Ports[pcfg.PortDef].Val.Kind.IsRead() {
			return fmt.Errorf("read port %d bound to non-read group %d", i, pcfg.PortDef)
		}
		if pcfg.WrPort != -1 {
			if cfg.WrPorts[pcfg.WrPort].RdPort != i {
				return fmt.Errorf("read port %d: sharing not mirrored by write port %d", i, pcfg.WrPort)
			}
			if cfg.WrPorts[pcfg.WrPort].PortDef != pcfg.PortDef {
				return fmt.Errorf("read port %d: shared pair bound to different groups", i)
			}
		}
	}
	for def, n := range used {
		if n > len(rdef.Ports[def].Val.Names) {
			return fmt.Errorf("port group %d used %d times, has %d names", def, n, len(rdef.Ports[def].Val.Names))
		}
	}

	// A named clock tag may appear in only one of the two tables.
	for name := range cfg.ClocksAnyedge {
		if _, ok := cfg.ClocksPnedge[name]; ok {
			return fmt.Errorf("clock tag %q bound as both anyedge and pos/negedge", name)
		}
	}
	return nil
}

// CheckCapApplied verifies that a capability used by a candidate left
// its options present and equal in the candidate (testable property 4).
func CheckCapApplied[T any](cfg *memmap.MemConfig, portOpts memlib.Options, cap memlib.Capability[T]) error {
	if !cfg.Opts.Applied(cap.Opts) {
		return fmt.Errorf("capability opts %v not applied in cfg opts %v", cap.Opts, cfg.Opts)
	}
	if portOpts != nil && !portOpts.Applied(cap.PortOpts) {
		return fmt.Errorf("capability portopts %v not applied in port opts %v", cap.PortOpts, portOpts)
	}
	return nil
}
