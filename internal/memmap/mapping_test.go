package memmap_test

import (
	"reflect"
	"strings"
	"testing"

	"cellmap/internal/diag"
	"cellmap/internal/memlib"
	"cellmap/internal/memmap"
	"cellmap/internal/netlist"
	"cellmap/internal/source"
	"cellmap/internal/testkit"
)

func buildLib(t *testing.T, src string, defines ...string) *memlib.Library {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("lib.txt", []byte(src))
	lib := memlib.NewLibrary(defines)
	if err := memlib.ParseFile(fs, id, lib, diag.NopReporter{}); err != nil {
		t.Fatalf("library parse failed: %v", err)
	}
	return lib
}

// memBuilder assembles a module with one memory using shared defaults:
// 16-bit data, 1024 entries, clock K, separate 10-bit address wires.
type memBuilder struct {
	t   *testing.T
	mod *netlist.Module
	mem *netlist.Mem
	clk *netlist.Wire
}

func newMemBuilder(t *testing.T) *memBuilder {
	t.Helper()
	mod := netlist.NewModule("top")
	clk, err := mod.AddWire("K", 1)
	if err != nil {
		t.Fatal(err)
	}
	mem := &netlist.Mem{
		ID:         "mem",
		Width:      16,
		Size:       1024,
		Attributes: map[string]netlist.Const{},
	}
	mod.AddMemory(mem)
	return &memBuilder{t: t, mod: mod, mem: mem, clk: clk}
}

func (b *memBuilder) wire(name string, width int) *netlist.Wire {
	b.t.Helper()
	if w, ok := b.mod.Wire(name); ok {
		return w
	}
	w, err := b.mod.AddWire(name, width)
	if err != nil {
		b.t.Fatal(err)
	}
	return w
}

func (b *memBuilder) attr(name string, val netlist.Const) *memBuilder {
	b.mem.Attributes[name] = val
	return b
}

// addWrPort appends a sync write port clocked by K. enWire == "" means
// always enabled.
func (b *memBuilder) addWrPort(addrWire, enWire string) *memBuilder {
	en := netlist.RepeatBit(netlist.ConstBit(netlist.S1), b.mem.Width)
	if enWire != "" {
		en = netlist.RepeatBit(netlist.WireBit(b.wire(enWire, 1), 0), b.mem.Width)
	}
	b.mem.WrPorts = append(b.mem.WrPorts, netlist.WrPort{
		ClkEnable:   true,
		ClkPolarity: true,
		Clk:         netlist.WireBit(b.clk, 0),
		En:          en,
		Addr:        netlist.WireSig(b.wire(addrWire, 10)),
	})
	return b
}

func (b *memBuilder) addAsyncWrPort(addrWire string) *memBuilder {
	b.mem.WrPorts = append(b.mem.WrPorts, netlist.WrPort{
		ClkEnable: false,
		En:        netlist.RepeatBit(netlist.ConstBit(netlist.S1), b.mem.Width),
		Addr:      netlist.WireSig(b.wire(addrWire, 10)),
	})
	return b
}

// addRdPort appends a sync read port clocked by K.
func (b *memBuilder) addRdPort(addrWire string, en netlist.SigBit) *memBuilder {
	b.mem.RdPorts = append(b.mem.RdPorts, netlist.RdPort{
		ClkEnable:   true,
		ClkPolarity: true,
		Clk:         netlist.WireBit(b.clk, 0),
		En:          en,
		Addr:        netlist.WireSig(b.wire(addrWire, 10)),
	})
	return b
}

func (b *memBuilder) addAsyncRdPort(addrWire string) *memBuilder {
	b.mem.RdPorts = append(b.mem.RdPorts, netlist.RdPort{
		En:   netlist.ConstBit(netlist.S1),
		Addr: netlist.WireSig(b.wire(addrWire, 10)),
	})
	return b
}

// finish sizes the per-port masks. Collision-x defaults to true so the
// transparency phase stays quiet unless a test opts in.
func (b *memBuilder) finish() *memBuilder {
	nwr := len(b.mem.WrPorts)
	for i := range b.mem.WrPorts {
		if b.mem.WrPorts[i].PriorityMask == nil {
			b.mem.WrPorts[i].PriorityMask = make([]bool, nwr)
		}
	}
	for i := range b.mem.RdPorts {
		p := &b.mem.RdPorts[i]
		if p.TransparencyMask == nil {
			p.TransparencyMask = make([]bool, nwr)
		}
		if p.CollisionXMask == nil {
			p.CollisionXMask = make([]bool, nwr)
			for j := range p.CollisionXMask {
				p.CollisionXMask[j] = true
			}
		}
	}
	return b
}

func (b *memBuilder) run(lib *memlib.Library) (*memmap.Mapping, error) {
	b.t.Helper()
	b.finish()
	return memmap.Run(memmap.NewWorker(b.mod), b.mem, lib, nil)
}

func (b *memBuilder) mustRun(lib *memlib.Library) *memmap.Mapping {
	b.t.Helper()
	m, err := b.run(lib)
	if err != nil {
		b.t.Fatalf("mapping failed: %v", err)
	}
	for i := range m.Cfgs {
		if err := testkit.CheckConfigInvariants(lib, b.mem, &m.Cfgs[i]); err != nil {
			b.t.Fatalf("candidate %d violates invariants: %v", i, err)
		}
	}
	return m
}

const simpleLib = `
ram block $BR {
	dims 10 16;
	port sr "R" {
		clock anyedge "C";
		rden any;
	}
	port sw "W" {
		clock anyedge "C";
	}
}
`

// S1: a minimal sync RAM binds directly with no emulation.
func TestMap_MinimalSyncRAM(t *testing.T) {
	lib := buildLib(t, simpleLib)
	b := newMemBuilder(t).
		addWrPort("waddr", "wen").
		addRdPort("raddr", netlist.ConstBit(netlist.S1))
	m := b.mustRun(lib)

	if len(m.Cfgs) != 1 {
		t.Fatalf("want exactly 1 candidate, got %d", len(m.Cfgs))
	}
	cfg := &m.Cfgs[0]
	want := memmap.ClockAssign{Clk: netlist.WireBit(mustWire(t, b.mod, "K"), 0), Flip: true}
	if got, ok := cfg.ClocksAnyedge["C"]; !ok || got != want {
		t.Errorf("clock binding: got %+v, want %+v", cfg.ClocksAnyedge, want)
	}
	rp := &cfg.RdPorts[0]
	if rp.EmuSync || rp.EmuEn || rp.EmuArst || rp.EmuSrst || rp.EmuInit || rp.EmuSrstEnPrio || len(rp.EmuTrans) != 0 {
		t.Errorf("unexpected emulation flags: %+v", rp)
	}
	if len(cfg.WrPorts[0].EmuPrio) != 0 {
		t.Errorf("unexpected priority emulation: %+v", cfg.WrPorts[0])
	}
}

func mustWire(t *testing.T, mod *netlist.Module, name string) *netlist.Wire {
	t.Helper()
	w, ok := mod.Wire(name)
	if !ok {
		t.Fatalf("wire %q missing", name)
	}
	return w
}

// S2: an async write port clears all candidates.
func TestMap_AsyncWriteKillsMapping(t *testing.T) {
	lib := buildLib(t, simpleLib)
	m := newMemBuilder(t).
		addAsyncWrPort("waddr").
		addRdPort("raddr", netlist.ConstBit(netlist.S1)).
		mustRun(lib)
	if len(m.Cfgs) != 0 {
		t.Fatalf("want no candidates, got %d", len(m.Cfgs))
	}
	if m.LogicOK {
		t.Error("logic fallback should not accept an async write port")
	}
}

const srswLib = `
ram block $DP {
	dims 10 16;
	port srsw "RW" {
		clock anyedge "C";
		rden write-excludes;
	}
	port sr "R" {
		clock anyedge "C";
		rden any;
	}
}
`

// S3: write-excludes without proof drops the sharing variant; the
// unshared binding through the second group survives.
func TestMap_WriteExcludesUnproven(t *testing.T) {
	lib := buildLib(t, srswLib)
	b := newMemBuilder(t)
	wen := b.wire("wen", 1)
	other := b.wire("other", 1)
	rden := b.wire("rden", 1)
	b.mod.AddCell(&netlist.Cell{
		Type: netlist.CellOr,
		A:    netlist.WireSig(wen),
		B:    netlist.WireSig(other),
		Y:    netlist.WireSig(rden),
	})
	b.addWrPort("addr", "wen")
	b.addRdPort("addr", netlist.WireBit(rden, 0))
	m := b.mustRun(lib)

	if len(m.Cfgs) != 1 {
		t.Fatalf("want 1 candidate, got %d", len(m.Cfgs))
	}
	rp := &m.Cfgs[0].RdPorts[0]
	if rp.WrPort != -1 {
		t.Errorf("sharing variant should be dropped, got shared with %d", rp.WrPort)
	}
	if rp.PortDef != 1 {
		t.Errorf("read port should bind the sr group, got group %d", rp.PortDef)
	}
}

// The proven counterpart: a read enable that excludes the write enable
// keeps the sharing variant alongside the unshared one.
func TestMap_WriteExcludesProven(t *testing.T) {
	lib := buildLib(t, srswLib)
	b := newMemBuilder(t)
	wen := b.wire("wen", 1)
	rden := b.wire("rden", 1)
	b.mod.AddCell(&netlist.Cell{
		Type: netlist.CellNot,
		A:    netlist.WireSig(wen),
		Y:    netlist.WireSig(rden),
	})
	b.addWrPort("addr", "wen")
	b.addRdPort("addr", netlist.WireBit(rden, 0))
	m := b.mustRun(lib)

	shared, unshared := 0, 0
	for i := range m.Cfgs {
		if m.Cfgs[i].RdPorts[0].WrPort == 0 {
			shared++
		} else {
			unshared++
		}
	}
	if shared != 1 || unshared != 1 {
		t.Fatalf("want 1 shared + 1 unshared candidate, got %d + %d", shared, unshared)
	}
}

// S4: a transparent pair with no wrtrans capability falls back to
// transparency emulation in every surviving candidate.
func TestMap_TransparencyEmulated(t *testing.T) {
	lib := buildLib(t, srswLib)
	b := newMemBuilder(t).
		addWrPort("addr", "wen").
		addRdPort("addr", netlist.ConstBit(netlist.S1))
	b.mem.RdPorts[0].TransparencyMask = []bool{true}
	b.mem.RdPorts[0].CollisionXMask = []bool{false}
	m := b.mustRun(lib)

	if len(m.Cfgs) == 0 {
		t.Fatal("want surviving candidates")
	}
	for i := range m.Cfgs {
		rp := &m.Cfgs[i].RdPorts[0]
		if len(rp.EmuTrans) != 1 || rp.EmuTrans[0] != 0 {
			t.Errorf("candidate %d: emu_trans = %v, want [0]", i, rp.EmuTrans)
		}
	}
}

// A non-transparent pair needs a wrtrans old capability; without one the
// candidate dies.
func TestMap_OldValueNeedsCapability(t *testing.T) {
	withCap := `
ram block $BR {
	dims 10 16;
	port sr "R" { clock anyedge "C"; rden any; }
	port sw "W" { clock anyedge "C"; wrtrans "R" old; }
}
`
	b := newMemBuilder(t).
		addWrPort("waddr", "wen").
		addRdPort("raddr", netlist.ConstBit(netlist.S1))
	b.mem.RdPorts[0].CollisionXMask = []bool{false}
	m := b.mustRun(buildLib(t, withCap))
	if len(m.Cfgs) != 1 {
		t.Fatalf("with wrtrans old: want 1 candidate, got %d", len(m.Cfgs))
	}
	if len(m.Cfgs[0].RdPorts[0].EmuTrans) != 0 {
		t.Errorf("old-value pair must not emulate transparency")
	}

	b2 := newMemBuilder(t).
		addWrPort("waddr", "wen").
		addRdPort("raddr", netlist.ConstBit(netlist.S1))
	b2.mem.RdPorts[0].CollisionXMask = []bool{false}
	m2 := b2.mustRun(buildLib(t, simpleLib))
	if len(m2.Cfgs) != 0 {
		t.Fatalf("without wrtrans old: want no candidates, got %d", len(m2.Cfgs))
	}
}

// S6: an init value with a one bit cannot use rdinitval zero; the sole
// candidate emulates the init value.
func TestMap_InitValueMustMatch(t *testing.T) {
	lib := buildLib(t, `
ram block $BR {
	dims 10 16;
	port sr "R" {
		clock anyedge "C";
		rden any;
		rdinitval zero;
	}
	port sw "W" {
		clock anyedge "C";
	}
}
`)
	b := newMemBuilder(t).
		addWrPort("waddr", "wen").
		addRdPort("raddr", netlist.ConstBit(netlist.S1))
	initVal, err := netlist.ParseBits("0000000000000001")
	if err != nil {
		t.Fatal(err)
	}
	b.mem.RdPorts[0].InitValue = initVal
	m := b.mustRun(lib)

	if len(m.Cfgs) != 1 {
		t.Fatalf("want 1 candidate, got %d", len(m.Cfgs))
	}
	if !m.Cfgs[0].RdPorts[0].EmuInit {
		t.Error("emu_init should be set")
	}
}

// An all-zero init value matches rdinitval zero for free.
func TestMap_ZeroInitValueMatches(t *testing.T) {
	lib := buildLib(t, `
ram block $BR {
	dims 10 16;
	port sr "R" {
		clock anyedge "C";
		rden any;
		rdinitval zero;
	}
	port sw "W" {
		clock anyedge "C";
	}
}
`)
	b := newMemBuilder(t).
		addWrPort("waddr", "wen").
		addRdPort("raddr", netlist.ConstBit(netlist.S1))
	initVal, err := netlist.ParseBits("0000000000000000")
	if err != nil {
		t.Fatal(err)
	}
	b.mem.RdPorts[0].InitValue = initVal
	m := b.mustRun(lib)

	if len(m.Cfgs) != 1 {
		t.Fatalf("want 1 candidate, got %d", len(m.Cfgs))
	}
	if m.Cfgs[0].RdPorts[0].EmuInit {
		t.Error("emu_init should not be set for a matching zero value")
	}
}

func TestMap_StyleDetermination(t *testing.T) {
	tests := []struct {
		name     string
		attrs    map[string]netlist.Const
		wantKind memlib.RamKind
		wantSty  string
	}{
		{"no attributes", nil, memlib.RamKindAuto, ""},
		{"ram_style block", map[string]netlist.Const{"ram_style": netlist.StringConst("block")}, memlib.RamKindBlock, ""},
		{"ram_style block_ram", map[string]netlist.Const{"ram_style": netlist.StringConst("block_ram")}, memlib.RamKindBlock, ""},
		{"ramstyle ultra", map[string]netlist.Const{"ramstyle": netlist.StringConst("ultra")}, memlib.RamKindHuge, ""},
		{"rom_style distributed", map[string]netlist.Const{"rom_style": netlist.StringConst("distributed")}, memlib.RamKindDistributed, ""},
		{"syn_ramstyle registers", map[string]netlist.Const{"syn_ramstyle": netlist.StringConst("registers")}, memlib.RamKindLogic, ""},
		{"ram_block 1", map[string]netlist.Const{"ram_block": netlist.IntConst(1)}, memlib.RamKindNotLogic, ""},
		{"auto keeps auto", map[string]netlist.Const{"ram_style": netlist.StringConst("auto")}, memlib.RamKindAuto, ""},
		{"named style", map[string]netlist.Const{"ram_style": netlist.StringConst("m9k")}, memlib.RamKindNotLogic, "m9k"},
		{"logic_block", map[string]netlist.Const{"logic_block": netlist.IntConst(1)}, memlib.RamKindLogic, ""},
		{
			"attribute order",
			map[string]netlist.Const{
				"ram_block": netlist.StringConst("logic"),
				"ram_style": netlist.StringConst("block"),
			},
			memlib.RamKindLogic, "",
		},
	}

	lib := buildLib(t, simpleLib+`
ram distributed $LUT { dims 5 16; port sw "W" { clock anyedge; } port ar "R" { } }
ram huge $U { dims 12 16; port sw "W" { clock anyedge; } port sr "R" { clock anyedge; rden any; } }
`)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newMemBuilder(t).
				addWrPort("waddr", "wen").
				addRdPort("raddr", netlist.ConstBit(netlist.S1))
			for k, v := range tt.attrs {
				b.attr(k, v)
			}
			m, err := b.run(lib)
			if tt.wantSty != "" {
				// A named style no library RAM declares is fatal.
				if err == nil {
					t.Fatalf("want style error, got %d candidates", len(m.Cfgs))
				}
				if !strings.Contains(err.Error(), tt.wantSty) {
					t.Errorf("error %q does not mention style", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if m.Kind != tt.wantKind {
				t.Errorf("kind: got %s, want %s", m.Kind, tt.wantKind)
			}
			if tt.wantKind == memlib.RamKindLogic && len(m.Cfgs) != 0 {
				t.Errorf("logic request should clear candidates, got %d", len(m.Cfgs))
			}
		})
	}
}

func TestMap_KindFilter(t *testing.T) {
	lib := buildLib(t, simpleLib)
	b := newMemBuilder(t).
		addWrPort("waddr", "wen").
		addRdPort("raddr", netlist.ConstBit(netlist.S1)).
		attr("ram_style", netlist.StringConst("distributed"))
	_, err := b.run(lib)
	if err == nil || !strings.Contains(err.Error(), "no available distributed RAMs") {
		t.Fatalf("want kind-filter error, got %v", err)
	}
}

func TestMap_StyleFilterAppliesOptions(t *testing.T) {
	lib := buildLib(t, `
ram block $BR {
	dims 10 16;
	option "VARIANT" 2 {
		style "m9k";
	}
	port sr "R" { clock anyedge "C"; rden any; }
	port sw "W" { clock anyedge "C"; }
}
`)
	b := newMemBuilder(t).
		addWrPort("waddr", "wen").
		addRdPort("raddr", netlist.ConstBit(netlist.S1)).
		attr("ram_style", netlist.StringConst("m9k"))
	m := b.mustRun(lib)
	if len(m.Cfgs) != 1 {
		t.Fatalf("want 1 candidate, got %d", len(m.Cfgs))
	}
	if got, ok := m.Cfgs[0].Opts["VARIANT"]; !ok || !got.Equal(netlist.IntConst(2)) {
		t.Errorf("style option not applied: %+v", m.Cfgs[0].Opts)
	}
}

func TestMap_InitFilter(t *testing.T) {
	zeroData, _ := netlist.ParseBits("0000")
	oneData, _ := netlist.ParseBits("0100")

	libZero := `
ram block $BR {
	dims 10 16;
	init zero;
	port sr "R" { clock anyedge "C"; rden any; }
	port sw "W" { clock anyedge "C"; }
}
`
	t.Run("zero init accepted by init zero", func(t *testing.T) {
		b := newMemBuilder(t).
			addWrPort("waddr", "wen").
			addRdPort("raddr", netlist.ConstBit(netlist.S1))
		b.mem.Inits = []netlist.MemInit{{Addr: 0, Data: zeroData}}
		m := b.mustRun(buildLib(t, libZero))
		if len(m.Cfgs) != 1 {
			t.Fatalf("want 1 candidate, got %d", len(m.Cfgs))
		}
	})
	t.Run("one bits rejected by init zero", func(t *testing.T) {
		b := newMemBuilder(t).
			addWrPort("waddr", "wen").
			addRdPort("raddr", netlist.ConstBit(netlist.S1))
		b.mem.Inits = []netlist.MemInit{{Addr: 0, Data: oneData}}
		m := b.mustRun(buildLib(t, libZero))
		if len(m.Cfgs) != 0 {
			t.Fatalf("want no candidates, got %d", len(m.Cfgs))
		}
	})
	t.Run("no init caps reject any initializer", func(t *testing.T) {
		b := newMemBuilder(t).
			addWrPort("waddr", "wen").
			addRdPort("raddr", netlist.ConstBit(netlist.S1))
		b.mem.Inits = []netlist.MemInit{{Addr: 0, Data: zeroData}}
		m := b.mustRun(buildLib(t, simpleLib))
		if len(m.Cfgs) != 0 {
			t.Fatalf("want no candidates, got %d", len(m.Cfgs))
		}
	})
	t.Run("fully undefined init is free", func(t *testing.T) {
		undef, _ := netlist.ParseBits("xxxx")
		b := newMemBuilder(t).
			addWrPort("waddr", "wen").
			addRdPort("raddr", netlist.ConstBit(netlist.S1))
		b.mem.Inits = []netlist.MemInit{{Addr: 0, Data: undef}}
		m := b.mustRun(buildLib(t, simpleLib))
		if len(m.Cfgs) != 1 {
			t.Fatalf("want 1 candidate, got %d", len(m.Cfgs))
		}
	})
}

func TestMap_WritePortSlotExhaustion(t *testing.T) {
	lib := buildLib(t, simpleLib)
	m := newMemBuilder(t).
		addWrPort("waddr0", "wen").
		addWrPort("waddr1", "wen").
		addRdPort("raddr", netlist.ConstBit(netlist.S1)).
		mustRun(lib)
	if len(m.Cfgs) != 0 {
		t.Fatalf("two write ports into one sw slot: want no candidates, got %d", len(m.Cfgs))
	}
	if !m.LogicOK {
		t.Error("same-clock write ports should keep the logic fallback")
	}
}

func TestMap_PriorityEmulation(t *testing.T) {
	twoSlots := `
ram block $BR {
	dims 10 16;
	port sw "WA" "WB" {
		clock anyedge "C";
	}
	port sr "R" {
		clock anyedge "C";
		rden any;
	}
}
`
	b := newMemBuilder(t).
		addWrPort("waddr0", "wen").
		addWrPort("waddr1", "wen").
		addRdPort("raddr", netlist.ConstBit(netlist.S1))
	b.finish()
	b.mem.WrPorts[1].PriorityMask[0] = true
	m := b.mustRun(buildLib(t, twoSlots))

	if len(m.Cfgs) != 1 {
		t.Fatalf("want 1 candidate, got %d", len(m.Cfgs))
	}
	if got := m.Cfgs[0].WrPorts[1].EmuPrio; len(got) != 1 || got[0] != 0 {
		t.Errorf("emu_prio: got %v, want [0]", got)
	}
}

func TestMap_PriorityCapability(t *testing.T) {
	withPrio := `
ram block $BR {
	dims 10 16;
	port sw "WA" "WB" {
		clock anyedge "C";
		wrprio "WA";
	}
	port sr "R" {
		clock anyedge "C";
		rden any;
	}
}
`
	b := newMemBuilder(t).
		addWrPort("waddr0", "wen").
		addWrPort("waddr1", "wen").
		addRdPort("raddr", netlist.ConstBit(netlist.S1))
	b.finish()
	b.mem.WrPorts[1].PriorityMask[0] = true
	m := b.mustRun(buildLib(t, withPrio))

	if len(m.Cfgs) != 1 {
		t.Fatalf("want 1 candidate, got %d", len(m.Cfgs))
	}
	if got := m.Cfgs[0].WrPorts[1].EmuPrio; len(got) != 0 {
		t.Errorf("free wrprio capability should avoid emulation, got %v", got)
	}
}

func TestMap_SrstEnPriority(t *testing.T) {
	lib := buildLib(t, `
ram block $BR {
	dims 10 16;
	port sr "R" {
		clock anyedge "C";
		rden any;
		rdsrstval zero;
		rdsrstmode srst-over-en;
	}
	port sw "W" {
		clock anyedge "C";
	}
}
`)
	b := newMemBuilder(t).
		addWrPort("waddr", "wen")
	ren := b.wire("ren", 1)
	srst := b.wire("srst", 1)
	b.addRdPort("raddr", netlist.WireBit(ren, 0))
	rp := &b.mem.RdPorts[0]
	rp.Srst = netlist.WireBit(srst, 0)
	srstVal, _ := netlist.ParseBits("0000000000000000")
	rp.SrstValue = srstVal
	rp.CeOverSrst = true
	m := b.mustRun(lib)

	if len(m.Cfgs) != 1 {
		t.Fatalf("want 1 candidate, got %d", len(m.Cfgs))
	}
	got := &m.Cfgs[0].RdPorts[0]
	if !got.EmuSrstEnPrio {
		t.Error("srst-over-en hardware with ce_over_srst memory needs priority emulation")
	}
	if got.EmuSrst {
		t.Error("matching rdsrstval zero should not force srst emulation")
	}
}

func TestMap_NamedResetValueBinding(t *testing.T) {
	lib := buildLib(t, `
ram block $BR {
	dims 10 16;
	port sr "R" {
		clock anyedge "C";
		rden any;
		rdinitval "IV";
	}
	port sw "W" {
		clock anyedge "C";
	}
}
`)
	b := newMemBuilder(t).
		addWrPort("waddr", "wen").
		addRdPort("raddr", netlist.ConstBit(netlist.S1))
	initVal, _ := netlist.ParseBits("1010101010101010")
	b.mem.RdPorts[0].InitValue = initVal
	m := b.mustRun(lib)

	if len(m.Cfgs) != 1 {
		t.Fatalf("want 1 candidate, got %d", len(m.Cfgs))
	}
	rp := &m.Cfgs[0].RdPorts[0]
	if rp.EmuInit {
		t.Error("named rdinitval should bind, not emulate")
	}
	if got, ok := rp.ResetVals["IV"]; !ok || !got.Equal(initVal) {
		t.Errorf("reset value binding: %+v", rp.ResetVals)
	}
}

func TestMap_NamedClockConflictPrunes(t *testing.T) {
	lib := buildLib(t, `
ram block $BR {
	dims 10 16;
	port sr "R" {
		clock negedge "C";
		rden any;
	}
	port sw "W" {
		clock posedge "C";
	}
}
`)
	m := newMemBuilder(t).
		addWrPort("waddr", "wen").
		addRdPort("raddr", netlist.ConstBit(netlist.S1)).
		mustRun(lib)
	// Write binds C with one inversion flag, the read port needs the
	// opposite one; the shared tag kills every candidate.
	if len(m.Cfgs) != 0 {
		t.Fatalf("want no candidates, got %d", len(m.Cfgs))
	}
}

func TestMap_AsyncReadPort(t *testing.T) {
	lib := buildLib(t, `
ram distributed $LUT {
	dims 10 16;
	port sw "W" { clock anyedge "C"; }
	port ar "R" { }
}
`)
	m := newMemBuilder(t).
		addWrPort("waddr", "wen").
		addAsyncRdPort("raddr").
		mustRun(lib)
	if len(m.Cfgs) != 1 {
		t.Fatalf("want 1 candidate, got %d", len(m.Cfgs))
	}
	if m.Cfgs[0].RdPorts[0].EmuSync {
		t.Error("async read on async hardware must not emulate a register")
	}
}

func TestMap_SyncReadOnAsyncHardware(t *testing.T) {
	lib := buildLib(t, `
ram distributed $LUT {
	dims 10 16;
	port sw "W" { clock anyedge "C"; }
	port ar "R" { }
}
`)
	m := newMemBuilder(t).
		addWrPort("waddr", "wen").
		addRdPort("raddr", netlist.ConstBit(netlist.S1)).
		mustRun(lib)
	if len(m.Cfgs) != 1 {
		t.Fatalf("want 1 candidate, got %d", len(m.Cfgs))
	}
	if !m.Cfgs[0].RdPorts[0].EmuSync {
		t.Error("sync read on async hardware needs emu_sync")
	}
}

func TestMap_AsyncReadRejectsSyncOnlyLibrary(t *testing.T) {
	lib := buildLib(t, simpleLib)
	m := newMemBuilder(t).
		addWrPort("waddr", "wen").
		addAsyncRdPort("raddr").
		mustRun(lib)
	if len(m.Cfgs) != 0 {
		t.Fatalf("async read cannot bind sync-only groups, got %d candidates", len(m.Cfgs))
	}
}

func TestMap_RdEnNoneEmulatesEnable(t *testing.T) {
	lib := buildLib(t, `
ram block $BR {
	dims 10 16;
	port sr "R" { clock anyedge "C"; rden none; }
	port sw "W" { clock anyedge "C"; }
}
`)
	b := newMemBuilder(t).
		addWrPort("waddr", "wen")
	ren := b.wire("ren", 1)
	b.addRdPort("raddr", netlist.WireBit(ren, 0))
	m := b.mustRun(lib)
	if len(m.Cfgs) != 1 {
		t.Fatalf("want 1 candidate, got %d", len(m.Cfgs))
	}
	if !m.Cfgs[0].RdPorts[0].EmuEn {
		t.Error("rden none with a real enable needs emu_en")
	}

	// A constant-one enable needs no emulation.
	b2 := newMemBuilder(t).
		addWrPort("waddr", "wen").
		addRdPort("raddr", netlist.ConstBit(netlist.S1))
	m2 := b2.mustRun(lib)
	if m2.Cfgs[0].RdPorts[0].EmuEn {
		t.Error("constant-one enable must not set emu_en")
	}
}

func TestMap_LogicFallback(t *testing.T) {
	lib := buildLib(t, simpleLib)

	t.Run("no write ports", func(t *testing.T) {
		m := newMemBuilder(t).
			addRdPort("raddr", netlist.ConstBit(netlist.S1)).
			mustRun(lib)
		if !m.LogicOK {
			t.Error("read-only memory is always logic-mappable")
		}
	})
	t.Run("explicit logic request clears candidates", func(t *testing.T) {
		m := newMemBuilder(t).
			addWrPort("waddr", "wen").
			addRdPort("raddr", netlist.ConstBit(netlist.S1)).
			attr("ram_style", netlist.StringConst("logic")).
			mustRun(lib)
		if len(m.Cfgs) != 0 || !m.LogicOK {
			t.Errorf("got %d candidates, logicOK=%v", len(m.Cfgs), m.LogicOK)
		}
	})
	t.Run("not_logic request disables fallback", func(t *testing.T) {
		m := newMemBuilder(t).
			addWrPort("waddr", "wen").
			addRdPort("raddr", netlist.ConstBit(netlist.S1)).
			attr("ram_block", netlist.IntConst(1)).
			mustRun(lib)
		if m.LogicOK {
			t.Error("not_logic request must not allow the logic fallback")
		}
	})
}

// Identical inputs must produce identical candidate sequences.
func TestMap_Deterministic(t *testing.T) {
	run := func() []memmap.MemConfig {
		lib := buildLib(t, srswLib)
		b := newMemBuilder(t).
			addWrPort("addr", "wen").
			addRdPort("addr", netlist.ConstBit(netlist.S1))
		b.mem.RdPorts[0].TransparencyMask = []bool{true}
		b.mem.RdPorts[0].CollisionXMask = []bool{false}
		return b.mustRun(lib).Cfgs
	}
	a := run()
	b := run()
	if !reflect.DeepEqual(a, b) {
		t.Errorf("candidate sets differ between identical runs:\n%+v\n%+v", a, b)
	}
}
