package memlib

import (
	"fmt"
	"io"
	"strconv"

	"cellmap/internal/netlist"
)

// Dump re-emits a library in canonical surface syntax. Re-parsing the
// dump (with the same defines) reproduces the in-memory model: every
// capability is emitted as a single statement wrapped in the option and
// portoption bindings it was captured under.
func Dump(w io.Writer, lib *Library) error {
	d := dumper{w: w}
	for i := range lib.RamDefs {
		d.ramDef(&lib.RamDefs[i])
	}
	return d.err
}

type dumper struct {
	w   io.Writer
	err error
}

func (d *dumper) printf(format string, args ...any) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, format, args...)
}

func constText(c netlist.Const) string {
	if c.IsStr {
		return strconv.Quote(c.Str)
	}
	if v, ok := c.AsInt(); ok {
		if len(c.Bits) == 32 {
			// IntConst stores two's complement; print it signed so the
			// parser's 32-bit integer reads it back.
			return strconv.Itoa(int(int32(uint32(v)))) //nolint:gosec // 32-bit pattern
		}
		return strconv.Itoa(v)
	}
	return c.String()
}

// optPrefix renders the option/portoption chain a capability was
// captured under; `option`/`portoption` accept a single-item body, so a
// flat prefix round-trips without braces.
func optPrefix(opts, portopts Options) string {
	out := ""
	for _, k := range opts.Keys() {
		out += fmt.Sprintf("option %q %s ", k, constText(opts[k]))
	}
	for _, k := range portopts.Keys() {
		out += fmt.Sprintf("portoption %q %s ", k, constText(portopts[k]))
	}
	return out
}

func (d *dumper) ramDef(ram *RamDef) {
	d.printf("ram %s %s {\n", ram.Kind, ram.ID)
	for _, cap := range ram.Dims {
		d.printf("\t%sdims %d %d;\n", optPrefix(cap.Opts, nil), cap.Val.ABits, cap.Val.DBits)
	}
	for _, cap := range ram.Init {
		d.printf("\t%sinit %s;\n", optPrefix(cap.Opts, nil), cap.Val)
	}
	for _, cap := range ram.Style {
		d.printf("\t%sstyle %q;\n", optPrefix(cap.Opts, nil), cap.Val)
	}
	for _, cap := range ram.Ports {
		d.portGroup(&cap)
	}
	d.printf("}\n")
}

func (d *dumper) portGroup(cap *Capability[PortGroupDef]) {
	port := &cap.Val
	d.printf("\t%sport %s", optPrefix(cap.Opts, nil), port.Kind)
	for _, name := range port.Names {
		d.printf(" %q", name)
	}
	d.printf(" {\n")
	for _, c := range port.Clock {
		if c.Val.Name != "" {
			d.capln(c.Opts, c.PortOpts, fmt.Sprintf("clock %s %q;", c.Val.Kind, c.Val.Name))
		} else {
			d.capln(c.Opts, c.PortOpts, fmt.Sprintf("clock %s;", c.Val.Kind))
		}
	}
	for _, c := range port.Width {
		d.capln(c.Opts, c.PortOpts, fmt.Sprintf("width %d;", c.Val))
	}
	for _, c := range port.MixWidth {
		d.capln(c.Opts, c.PortOpts, "mixwidth;")
	}
	for _, c := range port.AddrCE {
		d.capln(c.Opts, c.PortOpts, "addrce;")
	}
	for _, c := range port.RdEn {
		d.capln(c.Opts, c.PortOpts, fmt.Sprintf("rden %s;", c.Val))
	}
	for _, c := range port.RdRstVal {
		d.capln(c.Opts, c.PortOpts, rstValText(c.Val))
	}
	for _, c := range port.RdSrstMode {
		d.capln(c.Opts, c.PortOpts, fmt.Sprintf("rdsrstmode %s;", c.Val))
	}
	for _, c := range port.WrBE {
		d.capln(c.Opts, c.PortOpts, fmt.Sprintf("wrbe %d;", c.Val))
	}
	for _, c := range port.WrPrio {
		d.capln(c.Opts, c.PortOpts, fmt.Sprintf("wrprio %q;", c.Val))
	}
	for _, c := range port.WrTrans {
		d.capln(c.Opts, c.PortOpts, wrTransText(c.Val))
	}
	for _, c := range port.WrCS {
		d.capln(c.Opts, c.PortOpts, fmt.Sprintf("wrcs %d;", c.Val))
	}
	d.printf("\t}\n")
}

func (d *dumper) capln(opts, portopts Options, stmt string) {
	d.printf("\t\t%s%s\n", optPrefix(opts, portopts), stmt)
}

func rstValText(def ResetValDef) string {
	item := map[ResetKind]string{
		ResetInit:  "rdinitval",
		ResetSync:  "rdsrstval",
		ResetAsync: "rdarstval",
	}[def.Kind]
	switch def.ValKind {
	case ResetValNone:
		return item + " none;"
	case ResetValZero:
		return item + " zero;"
	default:
		return fmt.Sprintf("%s %q;", item, def.Name)
	}
}

func wrTransText(def WrTransDef) string {
	switch def.TargetKind {
	case TransSelf:
		return fmt.Sprintf("wrtrans self %s;", def.Kind)
	case TransOther:
		return fmt.Sprintf("wrtrans other %s;", def.Kind)
	default:
		return fmt.Sprintf("wrtrans %q %s;", def.TargetName, def.Kind)
	}
}
