package memmap

import (
	"cellmap/internal/memlib"
	"cellmap/internal/netlist"
)

// handleWrPorts binds abstract write ports to port groups, validating
// clock options as it goes.
func (m *Mapping) handleWrPorts() {
	for pidx := range m.mem.WrPorts {
		port := &m.mem.WrPorts[pidx]
		if !port.ClkEnable {
			// Async write ports not supported.
			m.Cfgs = nil
			return
		}
		var newCfgs []MemConfig
		for ci := range m.Cfgs {
			cfg := &m.Cfgs[ci]
			ramDef := &m.lib.RamDefs[cfg.RamDef]
			for i := range ramDef.Ports {
				def := &ramDef.Ports[i]
				// The target must be a write port group.
				if !def.Val.Kind.IsWrite() {
					continue
				}
				// The group must still have a free physical port.
				used := 0
				for _, oport := range cfg.WrPorts {
					if oport.PortDef == i {
						used++
					}
				}
				if used >= len(def.Val.Names) {
					continue
				}
				cfg2 := cfg.Clone()
				if !cfg2.Opts.Apply(def.Opts) {
					continue
				}
				pcfg2 := newWrPortConfig()
				pcfg2.PortDef = i
				// Pick a clock def.
				for _, cdef := range def.Val.Clock {
					cfg3 := cfg2.Clone()
					pcfg3 := pcfg2.clone()
					if !cfg3.Opts.Apply(cdef.Opts) {
						continue
					}
					if !pcfg3.PortOpts.Apply(cdef.PortOpts) {
						continue
					}
					if !applyClock(&cfg3, cdef.Val, port.Clk, port.ClkPolarity) {
						continue
					}
					cfg3.WrPorts = append(cfg3.WrPorts, pcfg3)
					newCfgs = append(newCfgs, cfg3)
				}
			}
		}
		m.Cfgs = newCfgs
	}
}

// handleRdPorts binds abstract read ports, validating clock and rden
// options as it goes. Each port considers an unshared binding and a
// binding shared with an already-bound write port.
func (m *Mapping) handleRdPorts() {
	for pidx := range m.mem.RdPorts {
		port := &m.mem.RdPorts[pidx]
		var newCfgs []MemConfig
		for ci := range m.Cfgs {
			cfg := &m.Cfgs[ci]
			newCfgs = m.bindRdUnshared(newCfgs, cfg, pidx, port)
			newCfgs = m.bindRdShared(newCfgs, cfg, pidx, port)
		}
		m.Cfgs = newCfgs
	}
}

func (m *Mapping) bindRdUnshared(out []MemConfig, cfg *MemConfig, pidx int, port *netlist.RdPort) []MemConfig {
	ramDef := &m.lib.RamDefs[cfg.RamDef]
	for i := range ramDef.Ports {
		def := &ramDef.Ports[i]
		// The target must be able to read.
		if !def.Val.Kind.IsRead() {
			continue
		}
		// An async abstract port accepts only async defs.
		if !port.ClkEnable && def.Val.Kind.IsSyncRead() {
			continue
		}
		// The group needs a port not used up by write ports. Overuse by
		// other read ports is fine — it just means memory duplication
		// downstream.
		used := 0
		for _, oport := range cfg.WrPorts {
			if oport.PortDef == i {
				used++
			}
		}
		if used >= len(def.Val.Names) {
			continue
		}
		cfg2 := cfg.Clone()
		if !cfg2.Opts.Apply(def.Opts) {
			continue
		}
		pcfg2 := newRdPortConfig()
		pcfg2.PortDef = i
		if def.Val.Kind.IsSyncRead() {
			// Pick a clock def.
			for _, cdef := range def.Val.Clock {
				cfg3 := cfg2.Clone()
				pcfg3 := pcfg2.clone()
				if !cfg3.Opts.Apply(cdef.Opts) {
					continue
				}
				if !pcfg3.PortOpts.Apply(cdef.PortOpts) {
					continue
				}
				if !applyClock(&cfg3, cdef.Val, port.Clk, port.ClkPolarity) {
					continue
				}
				// Pick a rden def.
				for _, endef := range def.Val.RdEn {
					cfg4 := cfg3.Clone()
					pcfg4 := pcfg3.clone()
					if !cfg4.Opts.Apply(endef.Opts) {
						continue
					}
					if !pcfg4.PortOpts.Apply(endef.PortOpts) {
						continue
					}
					if endef.Val == memlib.RdEnNone && port.En != netlist.ConstBit(netlist.S1) {
						pcfg4.EmuEn = true
					}
					cfg4.RdPorts = append(cfg4.RdPorts, pcfg4)
					out = append(out, cfg4)
				}
			}
		} else {
			cfg3 := cfg2.Clone()
			pcfg3 := pcfg2.clone()
			pcfg3.EmuSync = port.ClkEnable
			cfg3.RdPorts = append(cfg3.RdPorts, pcfg3)
			out = append(out, cfg3)
		}
	}
	return out
}

func (m *Mapping) bindRdShared(out []MemConfig, cfg *MemConfig, pidx int, port *netlist.RdPort) []MemConfig {
	ramDef := &m.lib.RamDefs[cfg.RamDef]
	for wpidx := range m.mem.WrPorts {
		wport := &m.mem.WrPorts[wpidx]
		didx := cfg.WrPorts[wpidx].PortDef
		def := &ramDef.Ports[didx]
		// The write port must not be shared yet.
		if cfg.WrPorts[wpidx].RdPort != -1 {
			continue
		}
		// The target must be able to read.
		if !def.Val.Kind.IsRead() {
			continue
		}
		if !m.addrCompatible(wpidx, pidx) {
			continue
		}
		// Validate clock compatibility, if needed.
		if def.Val.Kind == memlib.PortSrsw {
			if !port.ClkEnable {
				continue
			}
			if port.Clk != wport.Clk {
				continue
			}
			if port.ClkPolarity != wport.ClkPolarity {
				continue
			}
		}
		cfg2 := cfg.Clone()
		cfg2.WrPorts[wpidx].RdPort = pidx
		pcfg2 := newRdPortConfig()
		pcfg2.WrPort = wpidx
		pcfg2.PortDef = didx
		pcfg2.EmuSync = port.ClkEnable && def.Val.Kind == memlib.PortArsw
		if def.Val.Kind == memlib.PortSrsw {
			// Pick a rden capability.
			for _, endef := range def.Val.RdEn {
				cfg3 := cfg2.Clone()
				pcfg3 := pcfg2.clone()
				if !applyWrPortOpts(&cfg3, wpidx, endef) {
					continue
				}
				switch endef.Val {
				case memlib.RdEnNone:
					pcfg3.EmuEn = port.En != netlist.ConstBit(netlist.S1)
				case memlib.RdEnAny:
				case memlib.RdEnWriteImplies:
					pcfg3.EmuEn = !m.sat.WrImpliesRd(wpidx, pidx)
				case memlib.RdEnWriteExcludes:
					if !m.sat.WrExcludesRd(wpidx, pidx) {
						continue
					}
				}
				cfg3.RdPorts = append(cfg3.RdPorts, pcfg3)
				out = append(out, cfg3)
			}
		} else {
			cfg3 := cfg2.Clone()
			cfg3.RdPorts = append(cfg3.RdPorts, pcfg2)
			out = append(out, cfg3)
		}
	}
	return out
}

// addrCompatible checks whether a write and a read port address the same
// rows once normalized for wide-port stride and x-muxing.
func (m *Mapping) addrCompatible(wpidx, rpidx int) bool {
	wport := &m.mem.WrPorts[wpidx]
	rport := &m.mem.RdPorts[rpidx]
	maxWideLog2 := max(rport.WideLog2, wport.WideLog2)
	raddr := rport.Addr.ExtractEnd(maxWideLog2)
	waddr := wport.Addr.ExtractEnd(maxWideLog2)
	abits := max(len(raddr), len(waddr))
	raddr = raddr.ExtendU0(abits)
	waddr = waddr.ExtendU0(abits)
	return m.worker.SigmapXMux.Equal(raddr, waddr)
}
