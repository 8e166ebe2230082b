package memmap

import (
	"cellmap/internal/netlist"
)

// Worker holds the per-module state shared by all memory mappings in
// that module. Immutable once built, so mappings of different memories
// may run concurrently against one Worker.
type Worker struct {
	Module *netlist.Module
	// SigmapXMux normalizes signals through muxes with undefined
	// inputs, so addresses differing only in x-muxing compare equal.
	SigmapXMux *netlist.SigMap
}

func NewWorker(mod *netlist.Module) *Worker {
	return &Worker{
		Module:     mod,
		SigmapXMux: netlist.NewXMuxSigMap(mod),
	}
}
