package memmap

import (
	"cellmap/internal/memlib"
	"cellmap/internal/netlist"
)

// handleTrans validates transparency restrictions and decides where soft
// transparency logic must be added.
func (m *Mapping) handleTrans() {
	for rpidx := range m.mem.RdPorts {
		rport := &m.mem.RdPorts[rpidx]
		if !rport.ClkEnable {
			continue
		}
		for wpidx := range m.mem.WrPorts {
			wport := &m.mem.WrPorts[wpidx]
			if !wport.ClkEnable {
				continue
			}
			if rport.Clk != wport.Clk {
				continue
			}
			if rport.ClkPolarity != wport.ClkPolarity {
				continue
			}
			if rport.CollisionXMask[wpidx] {
				continue
			}
			transparent := rport.TransparencyMask[wpidx]
			// If we got this far, there is a transparency restriction
			// to uphold.
			var newCfgs []MemConfig
			for ci := range m.Cfgs {
				cfg := &m.Cfgs[ci]
				rpcfg := &cfg.RdPorts[rpidx]
				wpcfg := &cfg.WrPorts[wpidx]
				rdef := &m.lib.RamDefs[cfg.RamDef]
				wpdef := &rdef.Ports[wpcfg.PortDef]
				rpdef := &rdef.Ports[rpcfg.PortDef]
				if rpcfg.EmuSync {
					// A sync port emulated on async hardware gets the
					// transparency logic along with the output register.
					cfg2 := cfg.Clone()
					if transparent {
						cfg2.RdPorts[rpidx].EmuTrans = append(cfg2.RdPorts[rpidx].EmuTrans, wpidx)
					}
					newCfgs = append(newCfgs, cfg2)
					continue
				}
				// Otherwise split through the relevant wrtrans caps.
				// For non-transparent pairs the cap must be present; a
				// transparent pair can fall back to emulation.
				foundFree := false
				for _, tdef := range wpdef.Val.WrTrans {
					switch tdef.Val.TargetKind {
					case memlib.TransSelf:
						if wpcfg.RdPort != rpidx {
							continue
						}
					case memlib.TransOther:
						if wpcfg.RdPort == rpidx {
							continue
						}
					case memlib.TransNamed:
						if rpdef.Val.Names[0] != tdef.Val.TargetName {
							continue
						}
					}
					// Check if the transparency kind is acceptable.
					if transparent {
						if tdef.Val.Kind == memlib.TransOld {
							continue
						}
					} else {
						if tdef.Val.Kind != memlib.TransOld {
							continue
						}
					}
					cfg2 := cfg.Clone()
					if wrPortOptsApplied(&cfg2, wpidx, tdef) {
						foundFree = true
					} else if !applyWrPortOpts(&cfg2, wpidx, tdef) {
						continue
					}
					newCfgs = append(newCfgs, cfg2)
				}
				if !foundFree && transparent {
					// No cap, or only caps with a splitting cost:
					// consider emulation as well.
					cfg2 := cfg.Clone()
					cfg2.RdPorts[rpidx].EmuTrans = append(cfg2.RdPorts[rpidx].EmuTrans, wpidx)
					newCfgs = append(newCfgs, cfg2)
				}
			}
			m.Cfgs = newCfgs
		}
	}
}

// handlePriority decides where soft write-priority logic must be added.
func (m *Mapping) handlePriority() {
	for p1idx := range m.mem.WrPorts {
		for p2idx := range m.mem.WrPorts {
			port2 := &m.mem.WrPorts[p2idx]
			if !port2.PriorityMask[p1idx] {
				continue
			}
			var newCfgs []MemConfig
			for ci := range m.Cfgs {
				cfg := &m.Cfgs[ci]
				p1cfg := &cfg.WrPorts[p1idx]
				p2cfg := &cfg.WrPorts[p2idx]
				rdef := &m.lib.RamDefs[cfg.RamDef]
				p1def := &rdef.Ports[p1cfg.PortDef]
				p2def := &rdef.Ports[p2cfg.PortDef]
				foundFree := false
				for _, prdef := range p2def.Val.WrPrio {
					// Check if the target matches.
					if p1def.Val.Names[0] != prdef.Val {
						continue
					}
					cfg2 := cfg.Clone()
					if wrPortOptsApplied(&cfg2, p2idx, prdef) {
						foundFree = true
					} else if !applyWrPortOpts(&cfg2, p2idx, prdef) {
						continue
					}
					newCfgs = append(newCfgs, cfg2)
				}
				if !foundFree {
					// No cap, or only caps with a splitting cost:
					// consider emulation as well.
					cfg2 := cfg.Clone()
					cfg2.WrPorts[p2idx].EmuPrio = append(cfg2.WrPorts[p2idx].EmuPrio, p1idx)
					newCfgs = append(newCfgs, cfg2)
				}
			}
			m.Cfgs = newCfgs
		}
	}
}

// handleRdInit decides where soft init-value logic must be added.
func (m *Mapping) handleRdInit() {
	m.handleRdRstPhase(memlib.ResetInit,
		func(port *netlist.RdPort) (netlist.Const, bool) {
			return port.InitValue, !port.InitValue.IsFullyUndef()
		},
		func(pcfg *RdPortConfig) { pcfg.EmuInit = true })
}

// handleRdArst decides where soft async-reset logic must be added.
func (m *Mapping) handleRdArst() {
	m.handleRdRstPhase(memlib.ResetAsync,
		func(port *netlist.RdPort) (netlist.Const, bool) {
			if port.Arst == netlist.ConstBit(netlist.S0) {
				return netlist.Const{}, false
			}
			return port.ArstValue, !port.ArstValue.IsFullyUndef()
		},
		func(pcfg *RdPortConfig) { pcfg.EmuArst = true })
}

// handleRdSrst decides where soft sync-reset logic must be added; when
// the port also has an enable, the enable/srst priority of the hardware
// is validated via rdsrstmode.
func (m *Mapping) handleRdSrst() {
	for pidx := range m.mem.RdPorts {
		port := &m.mem.RdPorts[pidx]
		if !port.ClkEnable {
			continue
		}
		if port.Srst == netlist.ConstBit(netlist.S0) {
			continue
		}
		if port.SrstValue.IsFullyUndef() {
			continue
		}
		var newCfgs []MemConfig
		for ci := range m.Cfgs {
			cfg := &m.Cfgs[ci]
			pcfg := &cfg.RdPorts[pidx]
			rdef := &m.lib.RamDefs[cfg.RamDef]
			pdef := &rdef.Ports[pcfg.PortDef]
			// Emulation by async port includes the reset for free.
			if pcfg.EmuSync {
				newCfgs = append(newCfgs, cfg.Clone())
				continue
			}
			foundFree := false
			for _, rstdef := range pdef.Val.RdRstVal {
				if rstdef.Val.Kind != memlib.ResetSync {
					continue
				}
				cfg2 := cfg.Clone()
				if !applyRstVal(&cfg2.RdPorts[pidx], rstdef.Val, port.SrstValue) {
					continue
				}
				if rdPortOptsApplied(&cfg2, pidx, rstdef) {
					foundFree = true
				} else if !applyRdPortOpts(&cfg2, pidx, rstdef) {
					continue
				}
				// With an enable in use, the relative priority of enable
				// and srst must be right. Otherwise proceed immediately.
				if port.En == netlist.ConstBit(netlist.S1) {
					newCfgs = append(newCfgs, cfg2)
					continue
				}
				for _, mdef := range pdef.Val.RdSrstMode {
					// Any value is usable; at worst the priority is
					// emulated.
					cfg3 := cfg2.Clone()
					pcfg3 := &cfg3.RdPorts[pidx]
					if mdef.Val == memlib.SrstOverEn && port.CeOverSrst {
						pcfg3.EmuSrstEnPrio = true
					}
					if mdef.Val == memlib.EnOverSrst && !port.CeOverSrst {
						pcfg3.EmuSrstEnPrio = true
					}
					if !applyRdPortOpts(&cfg3, pidx, mdef) {
						continue
					}
					newCfgs = append(newCfgs, cfg3)
				}
			}
			if !foundFree {
				cfg2 := cfg.Clone()
				cfg2.RdPorts[pidx].EmuSrst = true
				newCfgs = append(newCfgs, cfg2)
			}
		}
		m.Cfgs = newCfgs
	}
}

// handleRdRstPhase is the shared shape of the init and arst phases:
// match a rdrstval capability of the given scope or fall back to the
// emulation flag.
func (m *Mapping) handleRdRstPhase(scope memlib.ResetKind, value func(*netlist.RdPort) (netlist.Const, bool), setEmu func(*RdPortConfig)) {
	for pidx := range m.mem.RdPorts {
		port := &m.mem.RdPorts[pidx]
		if !port.ClkEnable {
			continue
		}
		val, present := value(port)
		if !present {
			continue
		}
		var newCfgs []MemConfig
		for ci := range m.Cfgs {
			cfg := &m.Cfgs[ci]
			pcfg := &cfg.RdPorts[pidx]
			rdef := &m.lib.RamDefs[cfg.RamDef]
			pdef := &rdef.Ports[pcfg.PortDef]
			// Emulation by async port includes the value for free.
			if pcfg.EmuSync {
				newCfgs = append(newCfgs, cfg.Clone())
				continue
			}
			foundFree := false
			for _, rstdef := range pdef.Val.RdRstVal {
				if rstdef.Val.Kind != scope {
					continue
				}
				cfg2 := cfg.Clone()
				if !applyRstVal(&cfg2.RdPorts[pidx], rstdef.Val, val) {
					continue
				}
				if rdPortOptsApplied(&cfg2, pidx, rstdef) {
					foundFree = true
				} else if !applyRdPortOpts(&cfg2, pidx, rstdef) {
					continue
				}
				newCfgs = append(newCfgs, cfg2)
			}
			if !foundFree {
				// No cap, or only caps with a splitting cost: consider
				// emulation as well.
				cfg2 := cfg.Clone()
				setEmu(&cfg2.RdPorts[pidx])
				newCfgs = append(newCfgs, cfg2)
			}
		}
		m.Cfgs = newCfgs
	}
}
