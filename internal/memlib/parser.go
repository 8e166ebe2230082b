package memlib

import (
	"fmt"
	"strconv"

	"cellmap/internal/diag"
	"cellmap/internal/netlist"
	"cellmap/internal/source"
)

type optBinding struct {
	name string
	val  netlist.Const
}

// Parser is the recursive-descent parser for one library file. The
// parser is strict: the first error aborts the parse.
type Parser struct {
	fs       *source.FileSet
	file     *source.File
	lx       *Lexer
	lib      *Library
	reporter diag.Reporter

	optionStack     []optBinding
	portOptionStack []optBinding
	ram             RamDef
	port            PortGroupDef
	active          bool
}

// ParsePath loads a library file from disk and parses it into lib.
func ParsePath(fs *source.FileSet, path string, lib *Library, reporter diag.Reporter) error {
	fileID, err := fs.Load(path)
	if err != nil {
		msg := fmt.Sprintf("failed to open %s: %v", path, err)
		if reporter != nil {
			reporter.Report(diag.IOLoadFileError, diag.SevError, source.Span{}, msg, nil)
		}
		return fmt.Errorf("%s", msg)
	}
	return ParseFile(fs, fileID, lib, reporter)
}

// ParseFile parses an already-loaded library file into lib.
func ParseFile(fs *source.FileSet, fileID source.FileID, lib *Library, reporter diag.Reporter) error {
	p := &Parser{
		fs:       fs,
		file:     fs.Get(fileID),
		lib:      lib,
		reporter: reporter,
		active:   true,
	}
	p.lx = NewLexer(p.file)
	for !p.lx.Peek().EOF() {
		if err := p.parseTopItem(); err != nil {
			return err
		}
	}
	return nil
}

// FinalizeLibrary reports defines that were never referenced by any
// ifdef/ifndef across all parsed files.
func FinalizeLibrary(lib *Library, reporter diag.Reporter) {
	if reporter == nil {
		return
	}
	for _, d := range lib.UnusedDefines() {
		reporter.Report(diag.SemUnusedDefine, diag.SevWarning, source.Span{},
			fmt.Sprintf("define %s not used in the library", d), nil)
	}
}

func (p *Parser) errf(code diag.Code, span source.Span, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if p.reporter != nil {
		p.reporter.Report(code, diag.SevError, span, msg, nil)
	}
	return fmt.Errorf("%s: %s", p.fs.Position(span), msg)
}

// Token helpers.

func (p *Parser) getID() (string, error) {
	tok := p.lx.Next()
	if tok.EOF() || (tok.Text[0] != '$' && tok.Text[0] != '\\') {
		return "", p.errf(diag.SynExpectID, tok.Span, "expected id string, got `%s`", tok.Text)
	}
	return tok.Text, nil
}

func (p *Parser) getName() (string, error) {
	tok := p.lx.Next()
	valid := len(tok.Text) > 0 && (isAlpha(tok.Text[0]) || tok.Text[0] == '_')
	for i := 0; valid && i < len(tok.Text); i++ {
		c := tok.Text[i]
		if !isAlpha(c) && !isDigit(c) && c != '_' {
			valid = false
		}
	}
	if !valid {
		return "", p.errf(diag.SynExpectName, tok.Span, "expected name, got `%s`", tok.Text)
	}
	return tok.Text, nil
}

func (p *Parser) getString() (string, error) {
	tok := p.lx.Next()
	if len(tok.Text) < 2 || tok.Text[0] != '"' || tok.Text[len(tok.Text)-1] != '"' {
		return "", p.errf(diag.SynExpectString, tok.Span, "expected string, got `%s`", tok.Text)
	}
	return tok.Text[1 : len(tok.Text)-1], nil
}

func (p *Parser) peekString() bool {
	tok := p.lx.Peek()
	return !tok.EOF() && tok.Text[0] == '"'
}

func (p *Parser) getInt() (int, error) {
	tok := p.lx.Next()
	v, err := strconv.ParseInt(tok.Text, 0, 32)
	if tok.EOF() || err != nil {
		return 0, p.errf(diag.SynExpectInt, tok.Span, "expected int, got `%s`", tok.Text)
	}
	return int(v), nil
}

func (p *Parser) peekInt() bool {
	tok := p.lx.Peek()
	return !tok.EOF() && isDigit(tok.Text[0])
}

func (p *Parser) getSemi() error {
	tok := p.lx.Next()
	if tok.Text != ";" {
		return p.errf(diag.SynExpectSemicolon, tok.Span, "expected `;`, got `%s`", tok.Text)
	}
	return nil
}

func (p *Parser) getValue() (netlist.Const, error) {
	if p.peekString() {
		s, err := p.getString()
		if err != nil {
			return netlist.Const{}, err
		}
		return netlist.StringConst(s), nil
	}
	v, err := p.getInt()
	if err != nil {
		return netlist.Const{}, err
	}
	return netlist.IntConst(v), nil
}

// Option scopes.

func (p *Parser) snapshotOptions() Options {
	out := make(Options, len(p.optionStack))
	for _, b := range p.optionStack {
		out[b.name] = b.val
	}
	return out
}

func (p *Parser) snapshotPortOptions() Options {
	out := make(Options, len(p.portOptionStack))
	for _, b := range p.portOptionStack {
		out[b.name] = b.val
	}
	return out
}

// addCap appends a capability carrying the current option snapshots.
// Items inside an inactive ifdef branch are parsed and discarded.
func addCap[T any](p *Parser, caps *Caps[T], val T) {
	if !p.active {
		return
	}
	*caps = append(*caps, Capability[T]{
		Val:      val,
		Opts:     p.snapshotOptions(),
		PortOpts: p.snapshotPortOptions(),
	})
}

// parseIfdef handles `ifdef`/`ifndef NAME block [else block]` in any
// scope; block parses one nested block of the current scope.
func (p *Parser) parseIfdef(polarity bool, block func() error) error {
	save := p.active
	name, err := p.getName()
	if err != nil {
		return err
	}
	p.lib.markDefineUsed(name)
	condTrue := p.lib.Defines[name] == polarity
	p.active = save && condTrue
	if err := block(); err != nil {
		return err
	}
	if p.lx.Peek().Text == "else" {
		p.lx.Next()
		p.active = save && !condTrue
		if err := block(); err != nil {
			return err
		}
	}
	p.active = save
	return nil
}

// Blocks: `{ item* }` or a single item.

func (p *Parser) parseTopBlock() error  { return p.parseBlock(p.parseTopItem) }
func (p *Parser) parseRamBlock() error  { return p.parseBlock(p.parseRamItem) }
func (p *Parser) parsePortBlock() error { return p.parseBlock(p.parsePortItem) }

func (p *Parser) parseBlock(item func() error) error {
	if p.lx.Peek().Text == "{" {
		p.lx.Next()
		for p.lx.Peek().Text != "}" {
			if p.lx.Peek().EOF() {
				return p.errf(diag.SynUnexpectedEOF, p.lx.Peek().Span, "unexpected EOF while looking for `}`")
			}
			if err := item(); err != nil {
				return err
			}
		}
		p.lx.Next()
		return nil
	}
	return item()
}

// Top scope.

func (p *Parser) parseTopItem() error {
	tok := p.lx.Next()
	switch tok.Text {
	case "ifdef":
		return p.parseIfdef(true, p.parseTopBlock)
	case "ifndef":
		return p.parseIfdef(false, p.parseTopBlock)
	case "ram":
		return p.parseRam(tok.Span)
	case "":
		return p.errf(diag.SynUnexpectedEOF, tok.Span, "unexpected EOF while parsing top item")
	default:
		return p.errf(diag.SynUnknownItem, tok.Span, "unknown top-level item `%s`", tok.Text)
	}
}

func (p *Parser) parseRam(ramSpan source.Span) error {
	p.ram = RamDef{}
	tok := p.lx.Next()
	switch tok.Text {
	case "distributed":
		p.ram.Kind = RamKindDistributed
	case "block":
		p.ram.Kind = RamKindBlock
	case "huge":
		p.ram.Kind = RamKindHuge
	default:
		return p.errf(diag.SynBadEnumValue, tok.Span, "expected `distributed`, `block`, or `huge`, got `%s`", tok.Text)
	}
	id, err := p.getID()
	if err != nil {
		return err
	}
	p.ram.ID = id
	if err := p.parseRamBlock(); err != nil {
		return err
	}
	if !p.active {
		return nil
	}
	if len(p.ram.Dims) == 0 {
		return p.errf(diag.SemMissingDims, ramSpan, "`dims` capability should be specified")
	}
	if len(p.ram.Ports) == 0 {
		return p.errf(diag.SemMissingPorts, ramSpan, "at least one port group should be specified")
	}
	// A named clock is either always anyedge or always pos/negedge
	// across the whole RAM definition.
	pnedge := map[string]bool{}
	anyedge := map[string]bool{}
	for _, port := range p.ram.Ports {
		for _, def := range port.Val.Clock {
			if def.Val.Name == "" {
				continue
			}
			if def.Val.Kind == ClkAnyedge {
				anyedge[def.Val.Name] = true
			} else {
				pnedge[def.Val.Name] = true
			}
		}
	}
	for name := range pnedge {
		if anyedge[name] {
			return p.errf(diag.SemMixedClockEdge, ramSpan,
				"named clock \"%s\" used with both posedge/negedge and anyedge clocks", name)
		}
	}
	p.lib.RamDefs = append(p.lib.RamDefs, p.ram)
	return nil
}

// Ram scope.

func (p *Parser) parseRamItem() error {
	tok := p.lx.Next()
	switch tok.Text {
	case "ifdef":
		return p.parseIfdef(true, p.parseRamBlock)
	case "ifndef":
		return p.parseIfdef(false, p.parseRamBlock)
	case "option":
		return p.parseOption(p.parseRamBlock)
	case "dims":
		var dims DimsDef
		var err error
		if dims.ABits, err = p.getInt(); err != nil {
			return err
		}
		if dims.DBits, err = p.getInt(); err != nil {
			return err
		}
		if err := p.getSemi(); err != nil {
			return err
		}
		addCap(p, &p.ram.Dims, dims)
		return nil
	case "init":
		var kind MemoryInitKind
		vtok := p.lx.Next()
		switch vtok.Text {
		case "zero":
			kind = InitZero
		case "any":
			kind = InitAny
		case "none":
			kind = InitNone
		default:
			return p.errf(diag.SynBadEnumValue, vtok.Span, "expected `zero`, `any`, or `none`, got `%s`", vtok.Text)
		}
		if err := p.getSemi(); err != nil {
			return err
		}
		addCap(p, &p.ram.Init, kind)
		return nil
	case "style":
		for {
			s, err := p.getString()
			if err != nil {
				return err
			}
			addCap(p, &p.ram.Style, s)
			if !p.peekString() {
				break
			}
		}
		return p.getSemi()
	case "port":
		return p.parsePort(tok.Span)
	case "":
		return p.errf(diag.SynUnexpectedEOF, tok.Span, "unexpected EOF while parsing ram item")
	default:
		return p.errf(diag.SynUnknownItem, tok.Span, "unknown ram-level item `%s`", tok.Text)
	}
}

func (p *Parser) parseOption(block func() error) error {
	name, err := p.getString()
	if err != nil {
		return err
	}
	val, err := p.getValue()
	if err != nil {
		return err
	}
	p.optionStack = append(p.optionStack, optBinding{name, val})
	err = block()
	p.optionStack = p.optionStack[:len(p.optionStack)-1]
	return err
}

func (p *Parser) parsePortOption(block func() error) error {
	name, err := p.getString()
	if err != nil {
		return err
	}
	val, err := p.getValue()
	if err != nil {
		return err
	}
	p.portOptionStack = append(p.portOptionStack, optBinding{name, val})
	err = block()
	p.portOptionStack = p.portOptionStack[:len(p.portOptionStack)-1]
	return err
}

func (p *Parser) parsePort(portSpan source.Span) error {
	p.port = PortGroupDef{}
	tok := p.lx.Next()
	switch tok.Text {
	case "ar":
		p.port.Kind = PortAr
	case "sr":
		p.port.Kind = PortSr
	case "sw":
		p.port.Kind = PortSw
	case "arsw":
		p.port.Kind = PortArsw
	case "srsw":
		p.port.Kind = PortSrsw
	default:
		return p.errf(diag.SynBadEnumValue, tok.Span, "expected `ar`, `sr`, `sw`, `arsw`, or `srsw`, got `%s`", tok.Text)
	}
	for {
		name, err := p.getString()
		if err != nil {
			return err
		}
		p.port.Names = append(p.port.Names, name)
		if !p.peekString() {
			break
		}
	}
	if err := p.parsePortBlock(); err != nil {
		return err
	}
	if !p.active {
		return nil
	}
	// Synthesize defaults.
	if p.port.Kind != PortAr && len(p.port.Clock) == 0 {
		addCap(p, &p.port.Clock, ClockDef{Kind: ClkAnyedge})
	}
	if len(p.port.Width) == 0 {
		addCap(p, &p.port.Width, 1)
	}
	// Refuse to guess this one; there is no safe default.
	if p.port.Kind.IsSyncRead() && len(p.port.RdEn) == 0 {
		return p.errf(diag.SemMissingRdEn, portSpan, "`rden` capability should be specified")
	}
	addCap(p, &p.ram.Ports, p.port)
	return nil
}

// Port scope.

func (p *Parser) parsePortItem() error {
	tok := p.lx.Next()
	switch tok.Text {
	case "ifdef":
		return p.parseIfdef(true, p.parsePortBlock)
	case "ifndef":
		return p.parseIfdef(false, p.parsePortBlock)
	case "option":
		return p.parseOption(p.parsePortBlock)
	case "portoption":
		return p.parsePortOption(p.parsePortBlock)
	case "clock":
		return p.parseClock(tok.Span)
	case "width":
		for {
			w, err := p.getInt()
			if err != nil {
				return err
			}
			addCap(p, &p.port.Width, w)
			if !p.peekInt() {
				break
			}
		}
		return p.getSemi()
	case "mixwidth":
		if err := p.getSemi(); err != nil {
			return err
		}
		addCap(p, &p.port.MixWidth, Empty{})
		return nil
	case "addrce":
		if err := p.getSemi(); err != nil {
			return err
		}
		addCap(p, &p.port.AddrCE, Empty{})
		return nil
	case "rden":
		return p.parseRdEn(tok.Span)
	case "rdinitval", "rdsrstval", "rdarstval":
		return p.parseRdRstVal(tok)
	case "rdsrstmode":
		return p.parseRdSrstMode(tok.Span)
	case "wrbe":
		if err := p.checkWriteItem(tok); err != nil {
			return err
		}
		v, err := p.getInt()
		if err != nil {
			return err
		}
		addCap(p, &p.port.WrBE, v)
		return p.getSemi()
	case "wrprio":
		if err := p.checkWriteItem(tok); err != nil {
			return err
		}
		for {
			s, err := p.getString()
			if err != nil {
				return err
			}
			addCap(p, &p.port.WrPrio, s)
			if !p.peekString() {
				break
			}
		}
		return p.getSemi()
	case "wrtrans":
		return p.parseWrTrans(tok)
	case "wrcs":
		if err := p.checkWriteItem(tok); err != nil {
			return err
		}
		v, err := p.getInt()
		if err != nil {
			return err
		}
		addCap(p, &p.port.WrCS, v)
		return p.getSemi()
	case "":
		return p.errf(diag.SynUnexpectedEOF, tok.Span, "unexpected EOF while parsing port item")
	default:
		return p.errf(diag.SynUnknownItem, tok.Span, "unknown port-level item `%s`", tok.Text)
	}
}

func (p *Parser) checkSyncReadItem(tok Token) error {
	if !p.port.Kind.IsSyncRead() {
		return p.errf(diag.SemReadItemOnPort, tok.Span, "`%s` only allowed on sync read ports", tok.Text)
	}
	return nil
}

func (p *Parser) checkWriteItem(tok Token) error {
	if p.port.Kind == PortAr || p.port.Kind == PortSr {
		return p.errf(diag.SemWriteItemOnPort, tok.Span, "`%s` only allowed on write ports", tok.Text)
	}
	return nil
}

func (p *Parser) parseClock(span source.Span) error {
	if p.port.Kind == PortAr {
		return p.errf(diag.SemClockOnAsyncRead, span, "`clock` not allowed in async read port")
	}
	var def ClockDef
	tok := p.lx.Peek()
	switch tok.Text {
	case "anyedge":
		def.Kind = ClkAnyedge
		p.lx.Next()
	case "posedge":
		def.Kind = ClkPosedge
		p.lx.Next()
	case "negedge":
		def.Kind = ClkNegedge
		p.lx.Next()
	default:
		return p.errf(diag.SynBadEnumValue, tok.Span, "expected `posedge`, `negedge`, or `anyedge`, got `%s`", tok.Text)
	}
	if p.peekString() {
		name, err := p.getString()
		if err != nil {
			return err
		}
		def.Name = name
	}
	if err := p.getSemi(); err != nil {
		return err
	}
	addCap(p, &p.port.Clock, def)
	return nil
}

func (p *Parser) parseRdEn(span source.Span) error {
	if !p.port.Kind.IsSyncRead() {
		return p.errf(diag.SemReadItemOnPort, span, "`rden` only allowed on sync read ports")
	}
	tok := p.lx.Next()
	var val RdEnKind
	switch tok.Text {
	case "none":
		val = RdEnNone
	case "any":
		val = RdEnAny
	case "write-implies":
		if p.port.Kind != PortSrsw {
			return p.errf(diag.SemRdEnNeedsSrsw, tok.Span, "`write-implies` only makes sense for read+write ports")
		}
		val = RdEnWriteImplies
	case "write-excludes":
		if p.port.Kind != PortSrsw {
			return p.errf(diag.SemRdEnNeedsSrsw, tok.Span, "`write-excludes` only makes sense for read+write ports")
		}
		val = RdEnWriteExcludes
	default:
		return p.errf(diag.SynBadEnumValue, tok.Span,
			"expected `none`, `any`, `write-implies`, or `write-excludes`, got `%s`", tok.Text)
	}
	if err := p.getSemi(); err != nil {
		return err
	}
	addCap(p, &p.port.RdEn, val)
	return nil
}

func (p *Parser) parseRdRstVal(item Token) error {
	if err := p.checkSyncReadItem(item); err != nil {
		return err
	}
	var def ResetValDef
	switch item.Text {
	case "rdinitval":
		def.Kind = ResetInit
	case "rdsrstval":
		def.Kind = ResetSync
	case "rdarstval":
		def.Kind = ResetAsync
	}
	tok := p.lx.Peek()
	switch tok.Text {
	case "none":
		def.ValKind = ResetValNone
		p.lx.Next()
	case "zero":
		def.ValKind = ResetValZero
		p.lx.Next()
	default:
		name, err := p.getString()
		if err != nil {
			return err
		}
		def.ValKind = ResetValNamed
		def.Name = name
	}
	if err := p.getSemi(); err != nil {
		return err
	}
	addCap(p, &p.port.RdRstVal, def)
	return nil
}

func (p *Parser) parseRdSrstMode(span source.Span) error {
	if !p.port.Kind.IsSyncRead() {
		return p.errf(diag.SemReadItemOnPort, span, "`rdsrstmode` only allowed on sync read ports")
	}
	tok := p.lx.Next()
	var val SrstKind
	switch tok.Text {
	case "en-over-srst":
		val = EnOverSrst
	case "srst-over-en":
		val = SrstOverEn
	case "any":
		val = SrstAny
	default:
		return p.errf(diag.SynBadEnumValue, tok.Span,
			"expected `en-over-srst`, `srst-over-en`, or `any`, got `%s`", tok.Text)
	}
	if err := p.getSemi(); err != nil {
		return err
	}
	addCap(p, &p.port.RdSrstMode, val)
	return nil
}

func (p *Parser) parseWrTrans(item Token) error {
	if err := p.checkWriteItem(item); err != nil {
		return err
	}
	var def WrTransDef
	tok := p.lx.Peek()
	switch tok.Text {
	case "self":
		if p.port.Kind != PortSrsw {
			return p.errf(diag.SemTransSelfNotSrsw, tok.Span, "`wrtrans self` only allowed on sync read + sync write ports")
		}
		def.TargetKind = TransSelf
		p.lx.Next()
	case "other":
		def.TargetKind = TransOther
		p.lx.Next()
	default:
		name, err := p.getString()
		if err != nil {
			return err
		}
		def.TargetKind = TransNamed
		def.TargetName = name
	}
	tok = p.lx.Next()
	switch tok.Text {
	case "new":
		def.Kind = TransNew
	case "old":
		def.Kind = TransOld
	default:
		return p.errf(diag.SynBadEnumValue, tok.Span, "expected `new` or `old`, got `%s`", tok.Text)
	}
	if err := p.getSemi(); err != nil {
		return err
	}
	addCap(p, &p.port.WrTrans, def)
	return nil
}

func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }
