package driver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"cellmap/internal/netlist"
)

// The TOML design description: wires, boolean cells for the enable
// cones, and abstract memories. It is an input fixture for the mapping
// pass, not a general netlist interchange format.

type designFile struct {
	Modules []designModule `toml:"modules"`
}

type designModule struct {
	Name     string         `toml:"name"`
	Wires    []designWire   `toml:"wires"`
	Cells    []designCell   `toml:"cells"`
	Memories []designMemory `toml:"memories"`
}

type designWire struct {
	Name  string `toml:"name"`
	Width int    `toml:"width"`
}

type designCell struct {
	Type string `toml:"type"`
	A    string `toml:"a"`
	B    string `toml:"b"`
	S    string `toml:"s"`
	Y    string `toml:"y"`
}

type designMemory struct {
	ID          string         `toml:"id"`
	Width       int            `toml:"width"`
	Size        int            `toml:"size"`
	StartOffset int            `toml:"start_offset"`
	Attributes  map[string]any `toml:"attributes"`
	WritePorts  []designWrPort `toml:"write_ports"`
	ReadPorts   []designRdPort `toml:"read_ports"`
	Inits       []designInit   `toml:"inits"`
}

type designWrPort struct {
	Clk          string `toml:"clk"`
	ClkEnable    bool   `toml:"clk_enable"`
	ClkPolarity  bool   `toml:"clk_polarity"`
	En           string `toml:"en"`
	Addr         string `toml:"addr"`
	WideLog2     int    `toml:"wide_log2"`
	PriorityMask []bool `toml:"priority_mask"`
}

type designRdPort struct {
	Clk              string `toml:"clk"`
	ClkEnable        bool   `toml:"clk_enable"`
	ClkPolarity      bool   `toml:"clk_polarity"`
	En               string `toml:"en"`
	Addr             string `toml:"addr"`
	WideLog2         int    `toml:"wide_log2"`
	Arst             string `toml:"arst"`
	Srst             string `toml:"srst"`
	InitValue        string `toml:"init_value"`
	ArstValue        string `toml:"arst_value"`
	SrstValue        string `toml:"srst_value"`
	CeOverSrst       bool   `toml:"ce_over_srst"`
	TransparencyMask []bool `toml:"transparency_mask"`
	CollisionXMask   []bool `toml:"collision_x_mask"`
}

type designInit struct {
	Addr int    `toml:"addr"`
	Data string `toml:"data"`
}

// LoadDesign reads a TOML design description into a netlist.
func LoadDesign(path string) (*netlist.Design, error) {
	var file designFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	design := &netlist.Design{}
	for i := range file.Modules {
		mod, err := buildModule(&file.Modules[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		design.Modules = append(design.Modules, mod)
	}
	return design, nil
}

func buildModule(dm *designModule) (*netlist.Module, error) {
	mod := netlist.NewModule(dm.Name)
	for _, w := range dm.Wires {
		width := w.Width
		if width == 0 {
			width = 1
		}
		if _, err := mod.AddWire(w.Name, width); err != nil {
			return nil, err
		}
	}
	for i := range dm.Cells {
		cell, err := buildCell(mod, &dm.Cells[i])
		if err != nil {
			return nil, fmt.Errorf("module %s cell %d: %w", dm.Name, i, err)
		}
		mod.AddCell(cell)
	}
	for i := range dm.Memories {
		mem, err := buildMemory(mod, &dm.Memories[i])
		if err != nil {
			return nil, fmt.Errorf("module %s memory %s: %w", dm.Name, dm.Memories[i].ID, err)
		}
		mod.AddMemory(mem)
	}
	return mod, nil
}

func buildCell(mod *netlist.Module, dc *designCell) (*netlist.Cell, error) {
	var ctype netlist.CellType
	switch dc.Type {
	case "and":
		ctype = netlist.CellAnd
	case "or":
		ctype = netlist.CellOr
	case "xor":
		ctype = netlist.CellXor
	case "not":
		ctype = netlist.CellNot
	case "mux":
		ctype = netlist.CellMux
	default:
		return nil, fmt.Errorf("unknown cell type %q", dc.Type)
	}
	y, err := resolveSigRef(mod, dc.Y, 0)
	if err != nil {
		return nil, err
	}
	width := len(y)
	cell := &netlist.Cell{Type: ctype, Y: y}
	if cell.A, err = resolveSigRef(mod, dc.A, width); err != nil {
		return nil, err
	}
	if ctype != netlist.CellNot {
		bref := dc.B
		if bref == "" && ctype == netlist.CellMux {
			// An omitted mux arm is all-undefined, the x-mux shape.
			bref = strings.Repeat("x", width)
		}
		if cell.B, err = resolveSigRef(mod, bref, width); err != nil {
			return nil, err
		}
	}
	if ctype == netlist.CellMux {
		if cell.S, err = resolveBitRef(mod, dc.S); err != nil {
			return nil, err
		}
	}
	return cell, nil
}

func buildMemory(mod *netlist.Module, dm *designMemory) (*netlist.Mem, error) {
	mem := &netlist.Mem{
		ID:          dm.ID,
		Width:       dm.Width,
		Size:        dm.Size,
		StartOffset: dm.StartOffset,
		Attributes:  map[string]netlist.Const{},
	}
	for k, v := range dm.Attributes {
		c, err := attrConst(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", k, err)
		}
		mem.Attributes[k] = c
	}
	nwr := len(dm.WritePorts)
	for i := range dm.WritePorts {
		port, err := buildWrPort(mod, &dm.WritePorts[i], mem.Width, nwr)
		if err != nil {
			return nil, fmt.Errorf("write port %d: %w", i, err)
		}
		mem.WrPorts = append(mem.WrPorts, port)
	}
	for i := range dm.ReadPorts {
		port, err := buildRdPort(mod, &dm.ReadPorts[i], nwr)
		if err != nil {
			return nil, fmt.Errorf("read port %d: %w", i, err)
		}
		mem.RdPorts = append(mem.RdPorts, port)
	}
	for _, init := range dm.Inits {
		data, err := netlist.ParseBits(init.Data)
		if err != nil {
			return nil, fmt.Errorf("init at %d: %w", init.Addr, err)
		}
		mem.Inits = append(mem.Inits, netlist.MemInit{Addr: init.Addr, Data: data})
	}
	return mem, nil
}

func buildWrPort(mod *netlist.Module, dp *designWrPort, width, nwr int) (netlist.WrPort, error) {
	port := netlist.WrPort{
		ClkEnable:   dp.ClkEnable,
		ClkPolarity: dp.ClkPolarity,
		WideLog2:    dp.WideLog2,
	}
	var err error
	if port.Clk, err = resolveBitRef(mod, dp.Clk); err != nil {
		return port, err
	}
	en := dp.En
	if en == "" {
		en = "1"
	}
	if port.En, err = resolveSigRef(mod, en, width<<dp.WideLog2); err != nil {
		return port, err
	}
	if port.Addr, err = resolveSigRef(mod, dp.Addr, 0); err != nil {
		return port, err
	}
	if port.PriorityMask, err = normalizeMask(dp.PriorityMask, nwr); err != nil {
		return port, fmt.Errorf("priority_mask: %w", err)
	}
	return port, nil
}

func buildRdPort(mod *netlist.Module, dp *designRdPort, nwr int) (netlist.RdPort, error) {
	port := netlist.RdPort{
		ClkEnable:   dp.ClkEnable,
		ClkPolarity: dp.ClkPolarity,
		WideLog2:    dp.WideLog2,
		CeOverSrst:  dp.CeOverSrst,
	}
	var err error
	if port.Clk, err = resolveBitRef(mod, dp.Clk); err != nil {
		return port, err
	}
	en := dp.En
	if en == "" {
		en = "1"
	}
	if port.En, err = resolveBitRef(mod, en); err != nil {
		return port, err
	}
	if port.Addr, err = resolveSigRef(mod, dp.Addr, 0); err != nil {
		return port, err
	}
	if port.Arst, err = resolveBitRef(mod, orDefault(dp.Arst, "0")); err != nil {
		return port, err
	}
	if port.Srst, err = resolveBitRef(mod, orDefault(dp.Srst, "0")); err != nil {
		return port, err
	}
	if port.InitValue, err = valueBits(dp.InitValue); err != nil {
		return port, err
	}
	if port.ArstValue, err = valueBits(dp.ArstValue); err != nil {
		return port, err
	}
	if port.SrstValue, err = valueBits(dp.SrstValue); err != nil {
		return port, err
	}
	if port.TransparencyMask, err = normalizeMask(dp.TransparencyMask, nwr); err != nil {
		return port, fmt.Errorf("transparency_mask: %w", err)
	}
	if port.CollisionXMask, err = normalizeMask(dp.CollisionXMask, nwr); err != nil {
		return port, fmt.Errorf("collision_x_mask: %w", err)
	}
	return port, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func valueBits(s string) (netlist.Const, error) {
	if s == "" {
		return netlist.Const{}, nil
	}
	return netlist.ParseBits(s)
}

func normalizeMask(mask []bool, n int) ([]bool, error) {
	if mask == nil {
		return make([]bool, n), nil
	}
	if len(mask) != n {
		return nil, fmt.Errorf("want %d entries, got %d", n, len(mask))
	}
	return mask, nil
}

func attrConst(v any) (netlist.Const, error) {
	switch x := v.(type) {
	case string:
		return netlist.StringConst(x), nil
	case int64:
		return netlist.IntConst(int(x)), nil
	case bool:
		if x {
			return netlist.IntConst(1), nil
		}
		return netlist.IntConst(0), nil
	default:
		return netlist.Const{}, fmt.Errorf("unsupported value type %T", v)
	}
}

// resolveBitRef resolves "0", "1", "x", "name" (1-bit wire) or "name[i]".
func resolveBitRef(mod *netlist.Module, ref string) (netlist.SigBit, error) {
	switch ref {
	case "", "0":
		return netlist.ConstBit(netlist.S0), nil
	case "1":
		return netlist.ConstBit(netlist.S1), nil
	case "x":
		return netlist.ConstBit(netlist.Sx), nil
	}
	name, idx, err := splitIndex(ref)
	if err != nil {
		return netlist.SigBit{}, err
	}
	w, ok := mod.Wire(name)
	if !ok {
		return netlist.SigBit{}, fmt.Errorf("unknown wire %q", name)
	}
	if idx < 0 {
		if w.Width != 1 {
			return netlist.SigBit{}, fmt.Errorf("wire %q is %d bits wide, need an index", name, w.Width)
		}
		idx = 0
	}
	if idx >= w.Width {
		return netlist.SigBit{}, fmt.Errorf("bit %d out of range for wire %q", idx, name)
	}
	return netlist.WireBit(w, idx), nil
}

// resolveSigRef resolves a signal reference. want == 0 accepts any
// width; a 1-bit reference is replicated to the wanted width.
func resolveSigRef(mod *netlist.Module, ref string, want int) (netlist.SigSpec, error) {
	if ref == "" {
		return nil, fmt.Errorf("empty signal reference")
	}
	if isBitsLiteral(ref) {
		c, err := netlist.ParseBits(ref)
		if err != nil {
			return nil, err
		}
		sig := netlist.ConstSig(c)
		if len(sig) == 1 && want > 1 {
			sig = netlist.RepeatBit(sig[0], want)
		}
		if want != 0 && len(sig) != want {
			return nil, fmt.Errorf("constant %q is %d bits, want %d", ref, len(sig), want)
		}
		return sig, nil
	}
	name, idx, err := splitIndex(ref)
	if err != nil {
		return nil, err
	}
	w, ok := mod.Wire(name)
	if !ok {
		return nil, fmt.Errorf("unknown wire %q", name)
	}
	if idx >= 0 {
		if idx >= w.Width {
			return nil, fmt.Errorf("bit %d out of range for wire %q", idx, name)
		}
		sig := netlist.SigSpec{netlist.WireBit(w, idx)}
		if want > 1 {
			sig = netlist.RepeatBit(sig[0], want)
		}
		return sig, nil
	}
	sig := netlist.WireSig(w)
	if want != 0 && len(sig) != want {
		if w.Width == 1 {
			return netlist.RepeatBit(sig[0], want), nil
		}
		return nil, fmt.Errorf("wire %q is %d bits, want %d", name, w.Width, want)
	}
	return sig, nil
}

func isBitsLiteral(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '0', '1', 'x', 'X':
		default:
			return false
		}
	}
	return len(s) > 0
}

func splitIndex(ref string) (string, int, error) {
	open := strings.IndexByte(ref, '[')
	if open < 0 {
		return ref, -1, nil
	}
	if !strings.HasSuffix(ref, "]") {
		return "", 0, fmt.Errorf("malformed signal reference %q", ref)
	}
	idx, err := strconv.Atoi(ref[open+1 : len(ref)-1])
	if err != nil {
		return "", 0, fmt.Errorf("malformed signal reference %q", ref)
	}
	return ref[:open], idx, nil
}
