package memmap

import (
	"cellmap/internal/memlib"
	"cellmap/internal/netlist"
)

// ClockAssign is a committed binding for a named clock tag.
// For anyedge clocks Flip holds the shared clock polarity; for
// pos/negedge clocks it is the needs-inversion flag.
type ClockAssign struct {
	Clk  netlist.SigBit
	Flip bool
}

// WrPortConfig binds one abstract write port within a candidate.
type WrPortConfig struct {
	// RdPort is the read port this port is merged with, or -1.
	RdPort int
	// PortDef indexes the port group in the RAM definition.
	PortDef int
	// Already-decided port option settings.
	PortOpts memlib.Options
	// Emulate priority over these (source) write port indices.
	EmuPrio []int
	// Chosen width for this port.
	Width int
	// Chosen wrbe unit width for this port.
	WrBE int
}

// RdPortConfig binds one abstract read port within a candidate.
type RdPortConfig struct {
	// WrPort is the write port this port is merged with, or -1.
	WrPort int
	// PortDef indexes the port group in the RAM definition.
	PortDef int
	// Already-decided port option settings. Unused when WrPort != -1:
	// the write port's PortOpts apply instead.
	PortOpts memlib.Options
	// Named reset value assignments.
	ResetVals map[string]netlist.Const
	// EmuSync: a sync port mapped onto async hardware; an output
	// register is synthesized. Exclusive with the flags below.
	EmuSync bool
	// Emulate the EN / ARST / SRST / init value circuitry.
	EmuEn   bool
	EmuArst bool
	EmuSrst bool
	EmuInit bool
	// Emulate EN-SRST priority.
	EmuSrstEnPrio bool
	// Emulate transparency with these (source) write port indices.
	EmuTrans []int
	// Chosen width for this port.
	Width int
}

// SwizzleBit describes one output data bit after geometry selection.
type SwizzleBit struct {
	// SrcBit is -1 for unused bits.
	SrcBit int
	D2WIdx int
	D2AIdx int
}

// MemConfig is one surviving mapping candidate.
type MemConfig struct {
	// RamDef indexes the RAM definition in the Library.
	RamDef int
	// Already-decided option settings.
	Opts memlib.Options
	// Port assignments, indexed by abstract port index.
	WrPorts []WrPortConfig
	RdPorts []RdPortConfig
	// Named clock assignments committed so far.
	ClocksAnyedge map[string]ClockAssign
	ClocksPnedge  map[string]ClockAssign
	// Geometry fields, populated by the downstream stage.
	UnitABits     int
	UnitDBits     int
	BaseWidthLog2 int
	D2WLog2       int
	MultD         int
	D2AFactor     int
	Swizzle       []SwizzleBit
}

func newMemConfig(ramDef int) MemConfig {
	return MemConfig{
		RamDef:        ramDef,
		Opts:          memlib.Options{},
		ClocksAnyedge: map[string]ClockAssign{},
		ClocksPnedge:  map[string]ClockAssign{},
	}
}

func newWrPortConfig() WrPortConfig {
	return WrPortConfig{RdPort: -1, PortOpts: memlib.Options{}}
}

func newRdPortConfig() RdPortConfig {
	return RdPortConfig{
		WrPort:    -1,
		PortOpts:  memlib.Options{},
		ResetVals: map[string]netlist.Const{},
	}
}

// Clone returns a deep copy. Every next-generation candidate is cloned
// before mutation; aliasing would contaminate option bindings and the
// named clock tables across candidates.
func (c *MemConfig) Clone() MemConfig {
	out := *c
	out.Opts = c.Opts.Clone()
	out.WrPorts = make([]WrPortConfig, len(c.WrPorts))
	for i := range c.WrPorts {
		out.WrPorts[i] = c.WrPorts[i].clone()
	}
	out.RdPorts = make([]RdPortConfig, len(c.RdPorts))
	for i := range c.RdPorts {
		out.RdPorts[i] = c.RdPorts[i].clone()
	}
	out.ClocksAnyedge = make(map[string]ClockAssign, len(c.ClocksAnyedge))
	for k, v := range c.ClocksAnyedge {
		out.ClocksAnyedge[k] = v
	}
	out.ClocksPnedge = make(map[string]ClockAssign, len(c.ClocksPnedge))
	for k, v := range c.ClocksPnedge {
		out.ClocksPnedge[k] = v
	}
	out.Swizzle = append([]SwizzleBit(nil), c.Swizzle...)
	return out
}

func (p WrPortConfig) clone() WrPortConfig {
	out := p
	out.PortOpts = p.PortOpts.Clone()
	out.EmuPrio = append([]int(nil), p.EmuPrio...)
	return out
}

func (p RdPortConfig) clone() RdPortConfig {
	out := p
	out.PortOpts = p.PortOpts.Clone()
	out.ResetVals = make(map[string]netlist.Const, len(p.ResetVals))
	for k, v := range p.ResetVals {
		out.ResetVals[k] = v
	}
	out.EmuTrans = append([]int(nil), p.EmuTrans...)
	return out
}
