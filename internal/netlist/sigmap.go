package netlist

// SigMap resolves signal bits through recorded aliases. Chains are
// followed to a fixed point, so transitive aliases behave like a
// union-find over bits.
type SigMap struct {
	m map[SigBit]SigBit
}

func NewSigMap() *SigMap {
	return &SigMap{m: make(map[SigBit]SigBit)}
}

// Add records that from is driven by (an alias of) to.
func (sm *SigMap) Add(from, to SigBit) {
	to = sm.Bit(to)
	if from == to {
		return
	}
	sm.m[from] = to
}

// Bit resolves a single bit to its representative.
func (sm *SigMap) Bit(b SigBit) SigBit {
	seen := 0
	for {
		next, ok := sm.m[b]
		if !ok {
			return b
		}
		b = next
		// An alias cycle would mean a combinational loop in the input;
		// bail out instead of spinning.
		seen++
		if seen > len(sm.m) {
			return b
		}
	}
}

// Sig resolves every bit of a signal.
func (sm *SigMap) Sig(s SigSpec) SigSpec {
	out := make(SigSpec, len(s))
	for i, b := range s {
		out[i] = sm.Bit(b)
	}
	return out
}

// Equal reports whether two signals resolve to the same bits.
func (sm *SigMap) Equal(a, b SigSpec) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if sm.Bit(a[i]) != sm.Bit(b[i]) {
			return false
		}
	}
	return true
}

// NewXMuxSigMap builds the x-mux normalization map for a module: the
// output of a mux whose A or B input is fully undefined aliases the
// other input.
func NewXMuxSigMap(mod *Module) *SigMap {
	sm := NewSigMap()
	for _, cell := range mod.Cells {
		if cell.Type != CellMux {
			continue
		}
		switch {
		case sm.Sig(cell.A).IsFullyUndef():
			for i := range cell.Y {
				sm.Add(cell.Y[i], cell.B[i])
			}
		case sm.Sig(cell.B).IsFullyUndef():
			for i := range cell.Y {
				sm.Add(cell.Y[i], cell.A[i])
			}
		}
	}
	return sm
}
