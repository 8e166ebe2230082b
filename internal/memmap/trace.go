package memmap

// traceCandidates emits the pre-geometry candidate listing through the
// trace callback.
func (m *Mapping) traceCandidates() {
	if m.trace == nil {
		return
	}
	m.trace("memory %s.%s mapping candidates (pre-geometry):", m.mem.Module.Name, m.mem.ID)
	if m.LogicOK {
		m.trace("- logic fallback")
	}
	for ci := range m.Cfgs {
		cfg := &m.Cfgs[ci]
		rdef := &m.lib.RamDefs[cfg.RamDef]
		m.trace("- %s:", rdef.ID)
		for _, k := range cfg.Opts.Keys() {
			m.trace("  - option %s %s", k, cfg.Opts[k])
		}
		for i := range m.mem.WrPorts {
			pcfg := &cfg.WrPorts[i]
			pdef := &rdef.Ports[pcfg.PortDef].Val
			if pcfg.RdPort == -1 {
				m.trace("  - write port %d: port group %s", i, pdef.Names[0])
			} else {
				m.trace("  - write port %d: port group %s (shared with read port %d)", i, pdef.Names[0], pcfg.RdPort)
			}
			for _, k := range pcfg.PortOpts.Keys() {
				m.trace("    - option %s %s", k, pcfg.PortOpts[k])
			}
			for _, j := range pcfg.EmuPrio {
				m.trace("    - emulate priority over write port %d", j)
			}
		}
		for i := range m.mem.RdPorts {
			pcfg := &cfg.RdPorts[i]
			pdef := &rdef.Ports[pcfg.PortDef].Val
			if pcfg.WrPort == -1 {
				m.trace("  - read port %d: port group %s", i, pdef.Names[0])
			} else {
				m.trace("  - read port %d: port group %s (shared with write port %d)", i, pdef.Names[0], pcfg.WrPort)
			}
			for _, k := range pcfg.PortOpts.Keys() {
				m.trace("    - option %s %s", k, pcfg.PortOpts[k])
			}
			if pcfg.EmuSync {
				m.trace("    - emulate data register")
			}
			if pcfg.EmuEn {
				m.trace("    - emulate clock enable")
			}
			if pcfg.EmuArst {
				m.trace("    - emulate async reset")
			}
			if pcfg.EmuSrst {
				m.trace("    - emulate sync reset")
			}
			if pcfg.EmuInit {
				m.trace("    - emulate init value")
			}
			if pcfg.EmuSrstEnPrio {
				m.trace("    - emulate sync reset / enable priority")
			}
			for _, j := range pcfg.EmuTrans {
				m.trace("    - emulate transparency with write port %d", j)
			}
		}
	}
}
