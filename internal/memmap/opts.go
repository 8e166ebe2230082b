package memmap

import (
	"cellmap/internal/memlib"
	"cellmap/internal/netlist"
)

// applyWrPortOpts merges a capability's option maps into the candidate's
// global opts and the write port's portopts.
func applyWrPortOpts[T any](cfg *MemConfig, pidx int, cap memlib.Capability[T]) bool {
	pcfg := &cfg.WrPorts[pidx]
	return cfg.Opts.Apply(cap.Opts) && pcfg.PortOpts.Apply(cap.PortOpts)
}

// applyRdPortOpts is applyWrPortOpts for read ports; a shared read port
// delegates to the write port it is merged with.
func applyRdPortOpts[T any](cfg *MemConfig, pidx int, cap memlib.Capability[T]) bool {
	pcfg := &cfg.RdPorts[pidx]
	if pcfg.WrPort != -1 {
		return applyWrPortOpts(cfg, pcfg.WrPort, cap)
	}
	return cfg.Opts.Apply(cap.Opts) && pcfg.PortOpts.Apply(cap.PortOpts)
}

// wrPortOptsApplied reports whether the capability's options are already
// in effect; such a capability is "free" and does not split the search.
func wrPortOptsApplied[T any](cfg *MemConfig, pidx int, cap memlib.Capability[T]) bool {
	pcfg := &cfg.WrPorts[pidx]
	return cfg.Opts.Applied(cap.Opts) && pcfg.PortOpts.Applied(cap.PortOpts)
}

func rdPortOptsApplied[T any](cfg *MemConfig, pidx int, cap memlib.Capability[T]) bool {
	pcfg := &cfg.RdPorts[pidx]
	if pcfg.WrPort != -1 {
		return wrPortOptsApplied(cfg, pcfg.WrPort, cap)
	}
	return cfg.Opts.Applied(cap.Opts) && pcfg.PortOpts.Applied(cap.PortOpts)
}

// applyClock commits a named clock binding. Unnamed clocks always
// succeed. For anyedge defs the stored flag is the memory port's clock
// polarity; for pos/negedge defs it is clkPolarity XOR (def is posedge).
func applyClock(cfg *MemConfig, def memlib.ClockDef, clk netlist.SigBit, clkPolarity bool) bool {
	if def.Name == "" {
		return true
	}
	if def.Kind == memlib.ClkAnyedge {
		want := ClockAssign{Clk: clk, Flip: clkPolarity}
		if old, ok := cfg.ClocksAnyedge[def.Name]; ok {
			return old == want
		}
		cfg.ClocksAnyedge[def.Name] = want
		return true
	}
	want := ClockAssign{Clk: clk, Flip: clkPolarity != (def.Kind == memlib.ClkPosedge)}
	if old, ok := cfg.ClocksPnedge[def.Name]; ok {
		return old == want
	}
	cfg.ClocksPnedge[def.Name] = want
	return true
}

// applyRstVal checks a reset-value capability against an abstract reset
// value, binding named tags as a side effect.
func applyRstVal(pcfg *RdPortConfig, def memlib.ResetValDef, val netlist.Const) bool {
	switch def.ValKind {
	case memlib.ResetValNone:
		return false
	case memlib.ResetValZero:
		return !val.HasOneBits()
	default:
		if old, ok := pcfg.ResetVals[def.Name]; ok {
			return old.Equal(val)
		}
		pcfg.ResetVals[def.Name] = val
		return true
	}
}
